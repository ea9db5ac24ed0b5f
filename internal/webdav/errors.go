package webdav

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/studio-b12/gowebdav"
)

// Kind is the normalized, language-neutral error classification from
// spec §7.
type Kind string

const (
	KindAuthFailure      Kind = "AuthFailure"
	KindPermissionDenied Kind = "PermissionDenied"
	KindNotFound         Kind = "NotFound"
	KindMethodNotAllowed Kind = "MethodNotAllowed"
	KindRemoteConflict   Kind = "RemoteConflict"
	KindQuotaExceeded    Kind = "QuotaExceeded"
	KindServerError      Kind = "ServerError"
	KindNetworkError     Kind = "NetworkError"
)

// Error is a normalized transport error: every failure the Transport
// surfaces after its retry envelope is one of these, so callers can branch
// on Kind with errors.As instead of string-matching.
type Error struct {
	Kind    Kind
	Status  int // HTTP status, 0 for pure network errors
	Op      string
	Path    string
	Wrapped error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("webdav: %s %s: %s (HTTP %d)", e.Op, e.Path, e.Kind, e.Status)
	}
	return fmt.Sprintf("webdav: %s %s: %s: %v", e.Op, e.Path, e.Kind, e.Wrapped)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Is lets errors.Is(err, KindNotFound) work by comparing Kind to a bare
// Kind sentinel wrapped in an *Error with no other fields set.
func (e *Error) Is(target error) bool {
	var k Kind
	switch t := target.(type) {
	case *Error:
		k = t.Kind
	default:
		return false
	}
	return e.Kind == k
}

// sentinel helpers so callers can do errors.Is(err, webdav.ErrNotFound)
var (
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrRemoteConflict   = &Error{Kind: KindRemoteConflict}
	ErrMethodNotAllowed = &Error{Kind: KindMethodNotAllowed}
)

// normalize maps a raw error from gowebdav/net/http into a classified
// *Error, per the status-to-kind table in spec §4.1/§7.
func normalize(op, path string, err error) *Error {
	if err == nil {
		return nil
	}

	var statusErr *gowebdav.StatusError
	if errors.As(err, &statusErr) {
		return &Error{Op: op, Path: path, Status: statusErr.Status, Kind: kindForStatus(statusErr.Status), Wrapped: err}
	}

	// Anything that isn't an HTTP status is a transport-level failure
	// (connection reset, timeout, DNS, refused) — all map to NetworkError.
	return &Error{Op: op, Path: path, Kind: KindNetworkError, Wrapped: err}
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized:
		return KindAuthFailure
	case http.StatusForbidden:
		return KindPermissionDenied
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusMethodNotAllowed:
		return KindMethodNotAllowed
	case http.StatusConflict:
		return KindRemoteConflict
	case http.StatusInsufficientStorage:
		return KindQuotaExceeded
	default:
		if status >= 500 {
			return KindServerError
		}
		return KindServerError
	}
}

// Retriable reports whether a normalized error (or its HTTP status) should
// be retried per the retry contract in spec §4.1: network-kind errors or
// HTTP 408/429/500/502/503/504.
func Retriable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	if e.Kind == KindNetworkError {
		return true
	}
	switch e.Status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
