package webdav

import (
	"errors"
	"net/http"
	"testing"

	"github.com/studio-b12/gowebdav"
)

func TestNormalizeStatusCodes(t *testing.T) {
	cases := []struct {
		status int
		want   Kind
	}{
		{http.StatusUnauthorized, KindAuthFailure},
		{http.StatusForbidden, KindPermissionDenied},
		{http.StatusNotFound, KindNotFound},
		{http.StatusMethodNotAllowed, KindMethodNotAllowed},
		{http.StatusConflict, KindRemoteConflict},
		{http.StatusInsufficientStorage, KindQuotaExceeded},
		{http.StatusBadGateway, KindServerError},
	}
	for _, tc := range cases {
		err := normalize("op", "/path", &gowebdav.StatusError{Status: tc.status})
		if err.Kind != tc.want {
			t.Fatalf("status %d: got %s want %s", tc.status, err.Kind, tc.want)
		}
	}
}

func TestRetriableByStatus(t *testing.T) {
	retriable := []int{408, 429, 500, 502, 503, 504}
	for _, status := range retriable {
		err := normalize("op", "/p", &gowebdav.StatusError{Status: status})
		if !Retriable(err) {
			t.Fatalf("status %d should be retriable", status)
		}
	}

	notRetriable := []int{401, 403, 404, 405, 409}
	for _, status := range notRetriable {
		err := normalize("op", "/p", &gowebdav.StatusError{Status: status})
		if Retriable(err) {
			t.Fatalf("status %d should not be retriable", status)
		}
	}
}

func TestRetriableNetworkError(t *testing.T) {
	err := normalize("op", "/p", errors.New("connection reset by peer"))
	if !Retriable(err) {
		t.Fatalf("bare network error should be retriable")
	}
}

func TestErrorIsMatchesOnKind(t *testing.T) {
	err := normalize("exists", "/p", &gowebdav.StatusError{Status: http.StatusNotFound})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected errors.Is to match ErrNotFound")
	}
	if errors.Is(err, ErrRemoteConflict) {
		t.Fatalf("should not match a different kind")
	}
}
