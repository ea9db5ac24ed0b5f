package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flashnote/syncd/internal/changelog"
	"github.com/flashnote/syncd/internal/metrics"
	"github.com/flashnote/syncd/internal/syncengine"
	"github.com/rs/zerolog"
)

// ErrSyncInProgress mirrors syncengine.ErrSyncInProgress at the
// orchestrator layer, returned by the control API as 409.
var ErrSyncInProgress = fmt.Errorf("orchestrator: a sync is already in progress")

// Report is the engine-agnostic summary of one sync pass, used for both
// the /status response and the syncComplete event payload.
type Report struct {
	Mode          string `json:"mode"` // "manifest" or "legacy"
	Success       bool   `json:"success"`
	NeedsFullSync bool   `json:"needsFullSync"`
	Uploaded      int      `json:"uploaded"`
	Downloaded    int      `json:"downloaded"`
	Deleted       int      `json:"deleted"`
	Skipped       int      `json:"skipped"`
	Conflicts     int      `json:"conflicts"`
	Errors        int      `json:"errors"`
	ErrorDetails  []string `json:"errorDetails,omitempty"`
	DurationMs    int64    `json:"durationMs"`
}

// Orchestrator runs either the manifest-driven Engine or the legacy
// LegacyIncrementalSync behind one surface, fans out events, and brokers
// conflict resolution between the engine and an external caller (the
// control API's POST /conflicts/{fileId}/resolve).
type Orchestrator struct {
	Engine *syncengine.Engine
	Legacy *changelog.LegacyIncrementalSync

	UseLegacy bool
	Log       zerolog.Logger

	// ConflictTimeout bounds how long a manifest-mode conflict waits for
	// external resolution before falling back to last-writer-wins.
	ConflictTimeout time.Duration

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	listeners map[int]chan Event
	nextSub   int

	conflictMu sync.Mutex
	pending    map[string]chan string
}

// New wires an Orchestrator and installs its conflict bridge on the
// manifest engine, if present.
func New(engine *syncengine.Engine, legacy *changelog.LegacyIncrementalSync, useLegacy bool, log zerolog.Logger) *Orchestrator {
	o := &Orchestrator{
		Engine:          engine,
		Legacy:          legacy,
		UseLegacy:       useLegacy,
		Log:             log.With().Str("component", "orchestrator").Logger(),
		ConflictTimeout: 30 * time.Second,
		listeners:       map[int]chan Event{},
		pending:         map[string]chan string{},
	}
	if engine != nil {
		engine.ConflictHandler = o.waitForResolution
		engine.ConflictTimeout = o.ConflictTimeout
		engine.AssetFailureNotifier = func(noteID, path string, upload bool) {
			if upload {
				o.NotifyImageUploadFailed(noteID, path)
			} else {
				o.NotifyImageDownloadFailed(noteID, path)
			}
		}
	}
	return o
}

// Subscribe registers a new event listener; the returned channel is
// closed when unsubscribe is called (by the SSE handler on disconnect).
func (o *Orchestrator) Subscribe() (ch <-chan Event, unsubscribe func()) {
	o.mu.Lock()
	id := o.nextSub
	o.nextSub++
	c := make(chan Event, 32)
	o.listeners[id] = c
	o.mu.Unlock()

	return c, func() {
		o.mu.Lock()
		if existing, ok := o.listeners[id]; ok {
			delete(o.listeners, id)
			close(existing)
		}
		o.mu.Unlock()
	}
}

func (o *Orchestrator) publish(kind EventKind, data any) {
	evt := Event{Kind: kind, At: time.Now(), Data: data}
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, ch := range o.listeners {
		select {
		case ch <- evt:
		default:
			o.Log.Warn().Str("kind", string(kind)).Msg("orchestrator: event listener full, dropping")
		}
	}
}

// Stop cancels the in-flight PerformSync's context, if any.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.cancel != nil {
		o.cancel()
	}
	o.mu.Unlock()
	if o.Legacy != nil {
		o.Legacy.Stop()
	}
}

func (o *Orchestrator) beginRun(parent context.Context) (context.Context, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return nil, ErrSyncInProgress
	}
	o.running = true
	ctx, cancel := context.WithCancel(parent)
	o.cancel = cancel
	return ctx, nil
}

func (o *Orchestrator) endRun() {
	o.mu.Lock()
	o.running = false
	o.cancel = nil
	o.mu.Unlock()
}

// PerformSync runs one pass with the configured engine, publishing events
// throughout. A second concurrent call returns ErrSyncInProgress.
func (o *Orchestrator) PerformSync(parent context.Context) (Report, error) {
	ctx, err := o.beginRun(parent)
	if err != nil {
		return Report{}, err
	}
	defer o.endRun()

	mode := "manifest"
	if o.UseLegacy {
		mode = "legacy"
	}
	o.publish(EventSyncStart, map[string]string{"mode": mode})

	var report Report
	if o.UseLegacy {
		report, err = o.runLegacy(ctx)
	} else {
		report, err = o.runManifest(ctx)
	}

	if err != nil {
		o.publish(EventSyncError, map[string]string{"error": err.Error()})
		return report, err
	}
	metrics.ObserveResult(float64(report.DurationMs)/1000, report.Uploaded, report.Downloaded, report.Conflicts)
	if !report.Success {
		o.publish(EventSyncError, map[string]any{"errors": report.ErrorDetails})
	} else {
		o.publish(EventSyncComplete, report)
	}
	return report, nil
}

// ForceFullSync runs the manifest Engine's ForceFullSync (clear the
// manifest cache, then sync) whether or not UseLegacy is set, and returns
// an error when no manifest Engine is configured. It has no legacy-mode
// path.
func (o *Orchestrator) ForceFullSync(parent context.Context) (Report, error) {
	ctx, err := o.beginRun(parent)
	if err != nil {
		return Report{}, err
	}
	defer o.endRun()

	o.publish(EventSyncStart, map[string]string{"mode": "manifest", "forceFull": "true"})

	if o.Engine == nil {
		return Report{}, fmt.Errorf("orchestrator: force-full-sync requires the manifest engine")
	}
	res, err := o.Engine.ForceFullSync(ctx)
	report := fromEngineResult(res)
	if err != nil {
		o.publish(EventSyncError, map[string]string{"error": err.Error()})
		return report, err
	}
	metrics.ObserveResult(float64(report.DurationMs)/1000, report.Uploaded, report.Downloaded, report.Conflicts)
	o.publish(EventSyncComplete, report)
	return report, nil
}

func (o *Orchestrator) runManifest(ctx context.Context) (Report, error) {
	if o.Engine == nil {
		return Report{}, fmt.Errorf("orchestrator: manifest engine not configured")
	}
	boot, err := o.Engine.Bootstrap(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("orchestrator: bootstrap: %w", err)
	}
	if !boot.AlreadyInitialized {
		o.publish(EventSyncProgress, map[string]int{"bootstrapUploaded": boot.Uploaded})
	}

	res, err := o.Engine.PerformSync(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("orchestrator: performSync: %w", err)
	}
	return fromEngineResult(res), nil
}

func fromEngineResult(res syncengine.Result) Report {
	return Report{
		Mode: "manifest", Success: res.Success,
		Uploaded: res.Uploaded, Downloaded: res.Downloaded, Deleted: res.Deleted,
		Skipped: res.Skipped, Errors: res.Errors, ErrorDetails: res.ErrorDetails,
		DurationMs: res.DurationMs,
	}
}

func (o *Orchestrator) runLegacy(ctx context.Context) (Report, error) {
	if o.Legacy == nil {
		return Report{}, fmt.Errorf("orchestrator: legacy sync not configured")
	}
	start := time.Now()
	o.Legacy.Reset()
	res, err := o.Legacy.PerformIncrementalSync(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("orchestrator: performIncrementalSync: %w", err)
	}
	for _, c := range res.Conflicts {
		o.publish(EventConflictDetected, ConflictEventData{FileID: c.EntityID, FileKind: string(c.EntityType)})
	}
	return Report{
		Mode: "legacy", Success: true, NeedsFullSync: res.NeedsFullSync,
		Uploaded: res.Pushed, Downloaded: res.Pulled, Conflicts: len(res.Conflicts),
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

// waitForResolution is installed as the manifest Engine's ConflictHandler.
// It publishes conflictDetected and blocks until ResolveConflict answers it
// or ctx (bounded by the engine's own per-conflict timeout) expires.
func (o *Orchestrator) waitForResolution(ctx context.Context, info syncengine.ConflictInfo) (string, bool) {
	ch := make(chan string, 1)
	o.conflictMu.Lock()
	o.pending[info.FileID] = ch
	o.conflictMu.Unlock()
	defer func() {
		o.conflictMu.Lock()
		delete(o.pending, info.FileID)
		o.conflictMu.Unlock()
	}()

	o.publish(EventConflictDetected, ConflictEventData{
		FileID: info.FileID, FileKind: info.FileKind,
		LocalTime: info.LocalTime, RemoteTime: info.RemoteTime,
	})

	select {
	case resolution := <-ch:
		return resolution, true
	case <-ctx.Done():
		return "", false
	}
}

// ResolveConflict answers a pending conflictDetected wait for fileID. It
// reports false if no conflict is currently pending for that id (already
// timed out, already resolved, or never raised).
func (o *Orchestrator) ResolveConflict(fileID, resolution string) bool {
	o.conflictMu.Lock()
	ch, ok := o.pending[fileID]
	o.conflictMu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- resolution:
		return true
	default:
		return false
	}
}

// NotifyImageUploadFailed/NotifyImageDownloadFailed let the engine's asset
// sync surface per-asset failures as events without importing orchestrator.
func (o *Orchestrator) NotifyImageUploadFailed(noteID, path string) {
	o.publish(EventImageUploadFailed, ImageFailureEventData{NoteID: noteID, Path: path})
}

func (o *Orchestrator) NotifyImageDownloadFailed(noteID, path string) {
	o.publish(EventImageDownloadFailed, ImageFailureEventData{NoteID: noteID, Path: path})
}
