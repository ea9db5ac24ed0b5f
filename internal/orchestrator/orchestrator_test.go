package orchestrator

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/flashnote/syncd/internal/localstore"
	"github.com/flashnote/syncd/internal/model"
	"github.com/flashnote/syncd/internal/syncengine"
	"github.com/rs/zerolog"
)

type fakeTransport struct {
	mu    sync.Mutex
	blobs map[string][]byte
	dirs  map[string]bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{blobs: map[string][]byte{}, dirs: map[string]bool{}}
}

func (f *fakeTransport) Exists(_ context.Context, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.blobs[path]
	return ok || f.dirs[path], nil
}
func (f *fakeTransport) CreateDirectory(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dirs[path] = true
	return nil
}
func (f *fakeTransport) UploadText(_ context.Context, path, body, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[path] = []byte(body)
	return nil
}
func (f *fakeTransport) UploadJSON(_ context.Context, path string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[path] = data
	return nil
}
func (f *fakeTransport) UploadBinary(_ context.Context, path string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[path] = data
	return nil
}
func (f *fakeTransport) DownloadText(_ context.Context, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return string(f.blobs[path]), nil
}
func (f *fakeTransport) DownloadJSON(_ context.Context, path string, out any) error {
	f.mu.Lock()
	data := f.blobs[path]
	f.mu.Unlock()
	return json.Unmarshal(data, out)
}
func (f *fakeTransport) DownloadBinary(_ context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blobs[path], nil
}
func (f *fakeTransport) Delete(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blobs, path)
	return nil
}

type fakeCache struct {
	mu sync.Mutex
	m  *model.Manifest
}

func (c *fakeCache) Load(_ context.Context) (*model.Manifest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m, nil
}
func (c *fakeCache) Save(_ context.Context, m *model.Manifest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m = m
	return nil
}
func (c *fakeCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m = nil
	return nil
}

func newTestOrchestrator() *Orchestrator {
	adapter := localstore.New(localstore.NewMemRepository())
	engine := &syncengine.Engine{
		Remote:   newFakeTransport(),
		Local:    adapter,
		Cache:    &fakeCache{},
		RootPath: "/flashnote/",
		DeviceID: "device-a",
		Log:      zerolog.Nop(),
	}
	return New(engine, nil, false, zerolog.Nop())
}

func TestPerformSyncPublishesStartAndCompleteEvents(t *testing.T) {
	o := newTestOrchestrator()
	events, unsub := o.Subscribe()
	defer unsub()

	report, err := o.PerformSync(context.Background())
	if err != nil {
		t.Fatalf("PerformSync: %v", err)
	}
	if !report.Success {
		t.Fatalf("expected success, got %+v", report)
	}

	var kinds []EventKind
	for {
		select {
		case e := <-events:
			kinds = append(kinds, e.Kind)
			if e.Kind == EventSyncComplete {
				goto done
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for syncComplete, got %v so far", kinds)
		}
	}
done:
	if kinds[0] != EventSyncStart {
		t.Fatalf("got first event %v, want syncStart", kinds[0])
	}
	if kinds[len(kinds)-1] != EventSyncComplete {
		t.Fatalf("got last event %v, want syncComplete", kinds[len(kinds)-1])
	}
}

func TestPerformSyncRejectsConcurrentRuns(t *testing.T) {
	o := newTestOrchestrator()
	o.running = true

	_, err := o.PerformSync(context.Background())
	if err != ErrSyncInProgress {
		t.Fatalf("got err=%v, want ErrSyncInProgress", err)
	}
}

func TestResolveConflictAnswersWaitingHandler(t *testing.T) {
	o := newTestOrchestrator()

	resultCh := make(chan string, 1)
	go func() {
		resolution, ok := o.waitForResolution(context.Background(), syncengine.ConflictInfo{FileID: "n1"})
		if !ok {
			resultCh <- "timed-out"
			return
		}
		resultCh <- resolution
	}()

	// Give the goroutine a moment to register its pending channel.
	time.Sleep(20 * time.Millisecond)
	if !o.ResolveConflict("n1", "remote") {
		t.Fatalf("expected ResolveConflict to find a pending wait for n1")
	}

	select {
	case got := <-resultCh:
		if got != "remote" {
			t.Fatalf("got resolution %q, want remote", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for resolution")
	}
}

func TestResolveConflictReportsFalseWhenNothingPending(t *testing.T) {
	o := newTestOrchestrator()
	if o.ResolveConflict("missing", "local") {
		t.Fatalf("expected false for a file id with no pending conflict")
	}
}

func TestWaitForResolutionFallsBackOnTimeout(t *testing.T) {
	o := newTestOrchestrator()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, ok := o.waitForResolution(ctx, syncengine.ConflictInfo{FileID: "n1"})
	if ok {
		t.Fatalf("expected ok=false on context timeout")
	}
}

func TestStopCancelsInFlightRun(t *testing.T) {
	o := newTestOrchestrator()
	ctx, cancel := o.mustBeginForTest(t)
	defer cancel()

	o.Stop()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatalf("expected Stop to cancel the run context")
	}
}

// mustBeginForTest exercises the same path PerformSync uses to acquire a
// run, without running a full sync, so Stop()'s cancellation can be
// observed directly.
func (o *Orchestrator) mustBeginForTest(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	ctx, err := o.beginRun(context.Background())
	if err != nil {
		t.Fatalf("beginRun: %v", err)
	}
	return ctx, func() { o.endRun() }
}
