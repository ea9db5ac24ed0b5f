package syncengine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flashnote/syncd/internal/assets"
	"github.com/flashnote/syncd/internal/localstore"
	"github.com/flashnote/syncd/internal/model"
	"github.com/rs/zerolog"
)

// ErrSyncInProgress is returned when performSync is called while a prior
// run on this Engine hasn't finished (spec §5: concurrent syncs on one
// device are disallowed).
var ErrSyncInProgress = fmt.Errorf("syncengine: a sync is already in progress")

// ConflictInfo carries both versions of a divergent file for the
// orchestrator's conflictDetected event (spec §6 Events).
type ConflictInfo struct {
	FileID     string
	FileKind   string // always "note": global files never escalate to a conflict
	Local      model.FileEntry
	Remote     model.FileEntry
	LocalTime  int64
	RemoteTime int64
}

// ConflictHandler resolves a conflict by returning "local" or "remote". A
// false ok (including a context deadline) falls back to last-writer-wins.
type ConflictHandler func(ctx context.Context, info ConflictInfo) (resolution string, ok bool)

// Engine implements the manifest-driven bidirectional sync lifecycle.
type Engine struct {
	Remote   Transport
	Local    *localstore.Adapter
	Assets   *assets.Syncer
	Cache    ManifestCache
	RootPath string
	DeviceID string
	Log      zerolog.Logger

	ConflictHandler ConflictHandler
	ConflictTimeout time.Duration // default 30s if zero

	// AssetFailureNotifier, if set, is called for every asset left
	// unsynced after retry so a caller (the orchestrator) can surface it
	// as an imageUploadFailed/imageDownloadFailed event without this
	// package importing back up to orchestrator.
	AssetFailureNotifier func(noteID, path string, upload bool)

	// nowMs returns the current time in epoch-ms; overridable in tests.
	nowMs func() int64

	mu      sync.Mutex
	running bool
}

// Result is the manifest-driven run's status output (spec §4.6).
type Result struct {
	Success      bool
	Uploaded     int
	Downloaded   int
	Deleted      int
	Skipped      int
	Errors       int
	ErrorDetails []string
	DurationMs   int64
}

// BootstrapResult reports clean-slate initialization's outcome.
type BootstrapResult struct {
	AlreadyInitialized bool
	Uploaded           int
}

func (e *Engine) now() int64 {
	if e.nowMs != nil {
		return e.nowMs()
	}
	return time.Now().UnixMilli()
}

func (e *Engine) acquireRun() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return ErrSyncInProgress
	}
	e.running = true
	return nil
}

func (e *Engine) releaseRun() {
	e.mu.Lock()
	e.running = false
	e.mu.Unlock()
}

func (e *Engine) manifestPath() string { return e.RootPath + "manifest.json" }
func (e *Engine) todosPath() string    { return e.RootPath + "todos.json" }
func (e *Engine) settingsPath() string { return e.RootPath + "settings.json" }
func (e *Engine) notePath(syncID, ext string) string {
	return e.RootPath + "notes/" + syncID + ext
}

// Bootstrap runs clean-slate initialization if the remote has no manifest
// yet, or reports already_initialized.
func (e *Engine) Bootstrap(ctx context.Context) (BootstrapResult, error) {
	exists, err := e.Remote.Exists(ctx, e.manifestPath())
	if err != nil {
		return BootstrapResult{}, fmt.Errorf("syncengine: checking remote manifest: %w", err)
	}
	if exists {
		return BootstrapResult{AlreadyInitialized: true}, nil
	}

	uploaded := 0

	for _, dir := range []string{e.RootPath, e.RootPath + "notes/", e.RootPath + "images/", e.RootPath + "images/whiteboard/"} {
		if err := e.Remote.CreateDirectory(ctx, dir); err != nil {
			return BootstrapResult{}, fmt.Errorf("syncengine: creating %s: %w", dir, err)
		}
	}

	notes, err := e.Local.AllNotes(ctx, false)
	if err != nil {
		return BootstrapResult{}, err
	}
	for _, n := range notes {
		if err := e.Remote.UploadText(ctx, e.notePath(n.SyncID, n.Kind.Ext()), n.Body, ""); err != nil {
			return BootstrapResult{}, fmt.Errorf("syncengine: uploading note %s: %w", n.SyncID, err)
		}
		uploaded++

		if e.Assets != nil {
			res := e.Assets.UploadMissing(ctx, n)
			uploaded += res.Copied
			if len(res.Failed) > 0 {
				e.Log.Warn().Strs("assets", res.Failed).Str("note", n.SyncID).Msg("syncengine: bootstrap asset upload failures")
			}
		}
	}

	todos, err := e.Local.AllTodos(ctx, false)
	if err != nil {
		return BootstrapResult{}, err
	}
	if err := e.Remote.UploadJSON(ctx, e.todosPath(), todosToWire(todos)); err != nil {
		return BootstrapResult{}, fmt.Errorf("syncengine: uploading todos.json: %w", err)
	}
	uploaded++

	settings, err := e.Local.AllSettings(ctx)
	if err != nil {
		return BootstrapResult{}, err
	}
	if err := e.Remote.UploadJSON(ctx, e.settingsPath(), settings); err != nil {
		return BootstrapResult{}, fmt.Errorf("syncengine: uploading settings.json: %w", err)
	}
	uploaded++

	manifest, err := buildLocalManifest(ctx, e.Local, nil, e.now())
	if err != nil {
		return BootstrapResult{}, err
	}
	manifest.DeviceID = e.DeviceID
	manifest.LastSyncedAt = e.now()

	if err := e.Remote.UploadJSON(ctx, e.manifestPath(), manifest); err != nil {
		return BootstrapResult{}, fmt.Errorf("syncengine: uploading manifest: %w", err)
	}
	uploaded++

	if err := e.Cache.Save(ctx, manifest); err != nil {
		return BootstrapResult{}, fmt.Errorf("syncengine: writing local manifest cache: %w", err)
	}

	return BootstrapResult{Uploaded: uploaded}, nil
}

func todosToWire(todos map[string]model.Todo) []map[string]any {
	out := make([]map[string]any, 0, len(todos))
	for _, t := range todos {
		out = append(out, map[string]any{
			"id": t.SyncID, "content": t.Content, "description": t.Description,
			"tags": t.Tags, "important": t.Important, "urgent": t.Urgent,
			"due_at": t.DueAt, "end_at": t.EndAt, "has_time": t.HasTime,
			"focus_seconds": t.FocusSeconds, "repeat": t.Repeat, "parent_todo_id": t.ParentTodoID,
			"is_completed": t.Completed, "completed_at": t.CompletedAt,
			"updated_at": t.UpdatedAt, "is_deleted": t.Deleted, "deleted_at": t.DeletedAt,
		})
	}
	return out
}

// PerformSync runs one full Scan & Diff -> Execute -> Commit cycle. A
// second concurrent call on the same Engine returns ErrSyncInProgress.
func (e *Engine) PerformSync(ctx context.Context) (Result, error) {
	if err := e.acquireRun(); err != nil {
		return Result{}, err
	}
	defer e.releaseRun()

	start := time.Now()

	remoteManifest, err := e.downloadRemoteManifest(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("syncengine: downloading remote manifest: %w", err)
	}

	cached, err := e.Cache.Load(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("syncengine: loading cached manifest: %w", err)
	}

	localManifest, err := buildLocalManifest(ctx, e.Local, cached, e.now())
	if err != nil {
		return Result{}, fmt.Errorf("syncengine: building local manifest: %w", err)
	}

	tasks := e.diff(ctx, remoteManifest, localManifest, cached)

	res := e.execute(ctx, tasks, localManifest)
	res.DurationMs = time.Since(start).Milliseconds()

	if res.Errors > 0 {
		res.Success = false
		return res, nil
	}

	if err := e.commit(ctx, remoteManifest, localManifest, tasks); err != nil {
		res.Errors++
		res.ErrorDetails = append(res.ErrorDetails, err.Error())
		res.Success = false
		return res, nil
	}

	res.Success = true
	return res, nil
}

func (e *Engine) downloadRemoteManifest(ctx context.Context) (*model.Manifest, error) {
	var m model.Manifest
	if err := e.Remote.DownloadJSON(ctx, e.manifestPath(), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// diff builds the Scan & Diff task list per the decision table in spec
// §4.6 (B).
func (e *Engine) diff(ctx context.Context, remote, local, cached *model.Manifest) []Task {
	fileIDs := unionFileIDs(remote, local)
	tasks := make([]Task, 0, len(fileIDs))

	for _, id := range fileIDs {
		remoteEntry := entryPtr(remote, id)
		localEntry := entryPtr(local, id)
		var cachedLocalEntry, cachedRemoteEntry *model.FileEntry
		if cached != nil {
			if v, ok := cached.Files[id]; ok {
				cachedEntry := v
				cachedLocalEntry = &cachedEntry
				cachedRemoteEntry = &cachedEntry
			}
		}

		task := decide(id, remoteEntry, localEntry, cachedLocalEntry, cachedRemoteEntry, e.ConflictHandler != nil)
		task.FileID = id

		if task.Decision == DecisionUpload && localEntry != nil && remoteEntry != nil && localEntry.Ext != remoteEntry.Ext {
			task.OldRemotePath = e.remotePathFor(id, remoteEntry)
		}

		if task.Decision == DecisionConflict {
			resolved := e.resolveConflict(ctx, id, *remoteEntry, *localEntry)
			task.Decision = resolved
		}

		tasks = append(tasks, task)
	}

	return tasks
}

// resolveConflict surfaces a conflict to the registered handler with a
// bounded timeout, falling back to last-writer-wins by t.
func (e *Engine) resolveConflict(ctx context.Context, fileID string, remote, local model.FileEntry) Decision {
	timeout := e.ConflictTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	info := ConflictInfo{
		FileID: fileID, FileKind: "note",
		Local: local, Remote: remote,
		LocalTime: local.T, RemoteTime: remote.T,
	}

	resolution, ok := e.ConflictHandler(cctx, info)
	if !ok {
		if local.T >= remote.T {
			return DecisionUpload
		}
		return DecisionDownload
	}
	if resolution == "local" {
		return DecisionUpload
	}
	return DecisionDownload
}

func (e *Engine) remotePathFor(fileID string, entry *model.FileEntry) string {
	if isGlobalFile(fileID) {
		if fileID == model.FileIDGlobalTodos {
			return e.todosPath()
		}
		return e.settingsPath()
	}
	return e.notePath(fileID, entry.Ext)
}

func unionFileIDs(manifests ...*model.Manifest) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range manifests {
		if m == nil {
			continue
		}
		for id := range m.Files {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

func entryPtr(m *model.Manifest, id string) *model.FileEntry {
	if m == nil {
		return nil
	}
	v, ok := m.Files[id]
	if !ok {
		return nil
	}
	return &v
}
