// Package webdav implements the rate-limited, retrying WebDAV transport
// described in spec §4.1: the only component that speaks HTTP to the
// remote store. It wraps github.com/studio-b12/gowebdav, since no repo in
// the reference pack carries a WebDAV client and gowebdav is the
// established Go library for this protocol.
package webdav

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/studio-b12/gowebdav"
)

// requestTimeout bounds every individual HTTP request (spec §4.1 rule: each
// request has a 30s timeout), independent of ctx cancellation — gowebdav's
// Stat/Read/Write/etc. take no context, so this is the only bound a hung
// connection has.
const requestTimeout = 30 * time.Second

// Entry is one row of a parsed multistatus listing.
type Entry struct {
	Href        string
	IsDirectory bool
}

// Depth selects how far list() descends, mirroring the WebDAV Depth header.
type Depth int

const (
	Depth0 Depth = iota
	Depth1
	DepthInfinity
)

// Client is the rate-limited, retrying WebDAV transport. One Client should
// be shared across an entire sync run so its limiter state (request count,
// rolling window) is process-scoped per spec §4.1 rule 5.
type Client struct {
	raw     *gowebdav.Client
	limiter *Limiter
	log     zerolog.Logger
}

// New builds a Client against baseURL, authenticating with user/pass (an
// app password in the common case).
func New(baseURL, user, pass string, log zerolog.Logger) *Client {
	raw := gowebdav.NewClient(baseURL, user, pass)
	raw.SetTimeout(requestTimeout)
	return &Client{
		raw:     raw,
		limiter: NewLimiter(),
		log:     log.With().Str("component", "webdav").Logger(),
	}
}

func (c *Client) do(ctx context.Context, op, path string, fn func() error) error {
	release, err := c.limiter.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	err = withRetry(ctx, func() error {
		if rerr := fn(); rerr != nil {
			return normalize(op, path, rerr)
		}
		return nil
	})
	if err != nil {
		c.log.Debug().Err(err).Str("op", op).Str("path", path).Msg("webdav request failed")
		return err
	}
	c.log.Debug().Str("op", op).Str("path", path).Msg("webdav request ok")
	return nil
}

// TestConnection verifies the remote is reachable and credentials are
// accepted, by PROPFIND-ing the root.
func (c *Client) TestConnection(ctx context.Context) error {
	return c.do(ctx, "test_connection", "/", func() error {
		_, err := c.raw.ReadDir("/")
		return err
	})
}

// Exists treats both NotFound and Conflict(409, usually a missing parent)
// as "does not exist", per spec §4.1.
func (c *Client) Exists(ctx context.Context, path string) (bool, error) {
	err := c.do(ctx, "exists", path, func() error {
		_, serr := c.raw.Stat(path)
		return serr
	})
	if err == nil {
		return true, nil
	}
	var werr *Error
	if errors.As(err, &werr) && (werr.Kind == KindNotFound || werr.Kind == KindRemoteConflict) {
		return false, nil
	}
	return false, err
}

// CreateDirectory treats MethodNotAllowed and Conflict as "already exists".
func (c *Client) CreateDirectory(ctx context.Context, path string) error {
	err := c.do(ctx, "create_directory", path, func() error {
		return c.raw.MkdirAll(path, 0)
	})
	if err == nil {
		return nil
	}
	var werr *Error
	if errors.As(err, &werr) && (werr.Kind == KindMethodNotAllowed || werr.Kind == KindRemoteConflict) {
		return nil
	}
	return err
}

func (c *Client) UploadText(ctx context.Context, path, body string, contentType string) error {
	return c.do(ctx, "upload_text", path, func() error {
		return c.raw.Write(path, []byte(body), 0)
	})
}

func (c *Client) UploadJSON(ctx context.Context, path string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.do(ctx, "upload_json", path, func() error {
		return c.raw.Write(path, data, 0)
	})
}

func (c *Client) UploadBinary(ctx context.Context, path string, data []byte) error {
	return c.do(ctx, "upload_binary", path, func() error {
		return c.raw.Write(path, data, 0)
	})
}

func (c *Client) DownloadText(ctx context.Context, path string) (string, error) {
	var data []byte
	err := c.do(ctx, "download_text", path, func() error {
		d, derr := c.raw.Read(path)
		data = d
		return derr
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (c *Client) DownloadJSON(ctx context.Context, path string, out any) error {
	var data []byte
	err := c.do(ctx, "download_json", path, func() error {
		d, derr := c.raw.Read(path)
		data = d
		return derr
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (c *Client) DownloadBinary(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	err := c.do(ctx, "download_binary", path, func() error {
		d, derr := c.raw.Read(path)
		data = d
		return derr
	})
	return data, err
}

// Delete swallows NotFound: deleting something already gone is a success.
func (c *Client) Delete(ctx context.Context, path string) error {
	err := c.do(ctx, "delete", path, func() error {
		return c.raw.RemoveAll(path)
	})
	var werr *Error
	if errors.As(err, &werr) && werr.Kind == KindNotFound {
		return nil
	}
	return err
}

// List parses a directory listing into a flat sequence of entries,
// excluding the queried path itself. depth currently governs only whether
// subdirectories are recursed client-side for DepthInfinity; gowebdav's
// ReadDir is natively depth-1.
func (c *Client) List(ctx context.Context, path string, depth Depth) ([]Entry, error) {
	var entries []Entry
	err := c.do(ctx, "list", path, func() error {
		infos, lerr := c.raw.ReadDir(path)
		if lerr != nil {
			return lerr
		}
		base := strings.TrimSuffix(path, "/")
		for _, fi := range infos {
			entries = append(entries, Entry{
				Href:        base + "/" + fi.Name(),
				IsDirectory: fi.IsDir(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if depth == DepthInfinity {
		var all []Entry
		all = append(all, entries...)
		for _, e := range entries {
			if !e.IsDirectory {
				continue
			}
			children, cerr := c.List(ctx, e.Href, DepthInfinity)
			if cerr != nil {
				return nil, cerr
			}
			all = append(all, children...)
		}
		return all, nil
	}

	return entries, nil
}
