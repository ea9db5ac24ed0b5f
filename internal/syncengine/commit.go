package syncengine

import (
	"context"

	"github.com/flashnote/syncd/internal/model"
)

// commit assembles the post-Execute manifest snapshot, pushes it to
// <root>/manifest.json and writes the local cache, making both sides
// agree on what was just synced (spec §4.6 (D)).
func (e *Engine) commit(ctx context.Context, remote, local *model.Manifest, tasks []Task) error {
	files := make(map[string]model.FileEntry, len(tasks))

	for _, task := range tasks {
		switch task.Decision {
		case DecisionUpload, DecisionUploadDelete:
			if task.Local != nil {
				files[task.FileID] = *task.Local
			}
		case DecisionDownload, DecisionDeleteLocal:
			if task.Remote != nil {
				files[task.FileID] = *task.Remote
			}
		case DecisionSkip:
			if task.Local != nil {
				files[task.FileID] = *task.Local
			} else if task.Remote != nil {
				files[task.FileID] = *task.Remote
			}
		}
	}

	manifest := &model.Manifest{
		Version:      model.ManifestVersion,
		DeviceID:     e.DeviceID,
		LastSyncedAt: e.now(),
		Files:        files,
	}

	if err := e.Remote.UploadJSON(ctx, e.manifestPath(), manifest); err != nil {
		return err
	}
	return e.Cache.Save(ctx, manifest)
}

// ForceFullSync discards the local manifest cache so the next PerformSync
// re-derives every decision from a from-scratch comparison against the
// remote manifest, without re-running Bootstrap (spec §4.8).
func (e *Engine) ForceFullSync(ctx context.Context) (Result, error) {
	if err := e.Cache.Clear(ctx); err != nil {
		return Result{}, err
	}
	return e.PerformSync(ctx)
}
