package changelog

import "context"

// RemoteEntry is the minimal listing shape the legacy protocol needs from
// the transport's directory listing.
type RemoteEntry struct {
	Href        string
	IsDirectory bool
}

// Transport is the narrow slice of the webdav.Client surface the legacy
// protocol needs. Declaring it here (rather than importing the webdav
// package directly) keeps this package testable against a fake without
// pulling in HTTP plumbing; cmd/syncd adapts a *webdav.Client to this
// interface at wiring time.
type Transport interface {
	UploadJSON(ctx context.Context, path string, value any) error
	DownloadJSON(ctx context.Context, path string, out any) error
	List(ctx context.Context, path string) ([]RemoteEntry, error)
}
