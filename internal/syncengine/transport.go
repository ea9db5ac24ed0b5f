// Package syncengine implements the manifest-driven bidirectional sync
// lifecycle described in spec §4.6: Bootstrap, Scan & Diff, Execute,
// Commit.
package syncengine

import "context"

// Transport is the slice of webdav.Client this engine needs. Declaring it
// locally (rather than importing the webdav package) keeps the engine
// testable against an in-memory fake.
type Transport interface {
	Exists(ctx context.Context, path string) (bool, error)
	CreateDirectory(ctx context.Context, path string) error
	UploadText(ctx context.Context, path, body, contentType string) error
	UploadJSON(ctx context.Context, path string, value any) error
	UploadBinary(ctx context.Context, path string, data []byte) error
	DownloadText(ctx context.Context, path string) (string, error)
	DownloadJSON(ctx context.Context, path string, out any) error
	DownloadBinary(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
}
