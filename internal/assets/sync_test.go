package assets

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/flashnote/syncd/internal/model"
	"github.com/rs/zerolog"
)

type fakeLocal struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newFakeLocal() *fakeLocal { return &fakeLocal{files: map[string][]byte{}} }

func (f *fakeLocal) Exists(_ context.Context, p string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[p]
	return ok, nil
}
func (f *fakeLocal) Read(_ context.Context, p string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.files[p]
	if !ok {
		return nil, fmt.Errorf("not found: %s", p)
	}
	return d, nil
}
func (f *fakeLocal) Write(_ context.Context, p string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[p] = data
	return nil
}

type fakeRemote struct {
	mu          sync.Mutex
	files       map[string][]byte
	dirs        map[string]bool
	failUploads int // number of upload attempts to fail before succeeding
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{files: map[string][]byte{}, dirs: map[string]bool{}}
}

func (f *fakeRemote) Exists(_ context.Context, p string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[p]
	return ok, nil
}
func (f *fakeRemote) CreateDirectory(_ context.Context, p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dirs[p] = true
	return nil
}
func (f *fakeRemote) UploadBinary(_ context.Context, p string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUploads > 0 {
		f.failUploads--
		return fmt.Errorf("simulated failure")
	}
	f.files[p] = data
	return nil
}
func (f *fakeRemote) DownloadBinary(_ context.Context, p string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.files[p]
	if !ok {
		return nil, fmt.Errorf("not found: %s", p)
	}
	return d, nil
}

func TestUploadMissingSkipsExisting(t *testing.T) {
	local := newFakeLocal()
	local.files["images/a.png"] = []byte("a")
	remote := newFakeRemote()
	remote.files["/FlashNote/images/a.png"] = []byte("a")

	s := &Syncer{Local: local, Remote: remote, RootPath: "/FlashNote/", Log: zerolog.Nop(), RetryBaseBackoff: time.Millisecond}
	n := model.Note{Kind: model.NoteKindMarkdown, Body: "![x](images/a.png)"}

	res := s.UploadMissing(context.Background(), n)
	if res.Copied != 0 || len(res.Failed) != 0 {
		t.Fatalf("expected no-op for already-present asset, got %+v", res)
	}
}

func TestUploadMissingUploadsAbsentAsset(t *testing.T) {
	local := newFakeLocal()
	local.files["images/b.png"] = []byte("bytes")
	remote := newFakeRemote()

	s := &Syncer{Local: local, Remote: remote, RootPath: "/FlashNote/", Log: zerolog.Nop(), RetryBaseBackoff: time.Millisecond}
	n := model.Note{Kind: model.NoteKindMarkdown, Body: "![x](images/b.png)"}

	res := s.UploadMissing(context.Background(), n)
	if res.Copied != 1 || len(res.Failed) != 0 {
		t.Fatalf("expected 1 uploaded, got %+v", res)
	}
	if _, ok := remote.files["/FlashNote/images/b.png"]; !ok {
		t.Fatalf("expected asset present on remote after upload")
	}
}

func TestUploadMissingRetriesThenSucceeds(t *testing.T) {
	local := newFakeLocal()
	local.files["images/c.png"] = []byte("bytes")
	remote := newFakeRemote()
	remote.failUploads = 2 // fails twice, succeeds on 3rd attempt

	s := &Syncer{Local: local, Remote: remote, RootPath: "/FlashNote/", Log: zerolog.Nop(), RetryBaseBackoff: time.Millisecond}
	n := model.Note{Kind: model.NoteKindMarkdown, Body: "![x](images/c.png)"}

	res := s.UploadMissing(context.Background(), n)
	if res.Copied != 1 || len(res.Failed) != 0 {
		t.Fatalf("expected eventual success within retry budget, got %+v", res)
	}
}

func TestUploadMissingReportsFailureAfterExhaustingRetries(t *testing.T) {
	local := newFakeLocal()
	local.files["images/d.png"] = []byte("bytes")
	remote := newFakeRemote()
	remote.failUploads = 10 // exceeds retry budget

	s := &Syncer{Local: local, Remote: remote, RootPath: "/FlashNote/", Log: zerolog.Nop(), RetryBaseBackoff: time.Millisecond}
	n := model.Note{Kind: model.NoteKindMarkdown, Body: "![x](images/d.png)"}

	res := s.UploadMissing(context.Background(), n)
	if res.Copied != 0 || len(res.Failed) != 1 || res.Failed[0] != "images/d.png" {
		t.Fatalf("expected reported failure without aborting, got %+v", res)
	}
}

func TestDownloadMissingSkipsExistingLocally(t *testing.T) {
	local := newFakeLocal()
	local.files["images/e.png"] = []byte("e")
	remote := newFakeRemote()

	s := &Syncer{Local: local, Remote: remote, RootPath: "/FlashNote/", Log: zerolog.Nop(), RetryBaseBackoff: time.Millisecond}
	n := model.Note{Kind: model.NoteKindMarkdown, Body: "![x](images/e.png)"}

	res := s.DownloadMissing(context.Background(), n)
	if res.Copied != 0 {
		t.Fatalf("expected no download for already-present local asset, got %+v", res)
	}
}

func TestDownloadMissingFetchesAbsentAsset(t *testing.T) {
	local := newFakeLocal()
	remote := newFakeRemote()
	remote.files["/FlashNote/images/f.png"] = []byte("remote-bytes")

	s := &Syncer{Local: local, Remote: remote, RootPath: "/FlashNote/", Log: zerolog.Nop(), RetryBaseBackoff: time.Millisecond}
	n := model.Note{Kind: model.NoteKindMarkdown, Body: "![x](images/f.png)"}

	res := s.DownloadMissing(context.Background(), n)
	if res.Copied != 1 {
		t.Fatalf("expected 1 downloaded, got %+v", res)
	}
	got, _ := local.Read(context.Background(), "images/f.png")
	if string(got) != "remote-bytes" {
		t.Fatalf("unexpected local content: %s", got)
	}
}
