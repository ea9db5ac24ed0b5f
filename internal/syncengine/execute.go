package syncengine

import (
	"context"
	"errors"
	"fmt"

	"github.com/flashnote/syncd/internal/model"
	"github.com/flashnote/syncd/internal/webdav"
)

// execute carries out every task's remote/local side effect, tolerating
// per-task failure so one bad file doesn't abort the whole run (spec
// §4.6 (C): errors are collected, not fatal to the pass).
func (e *Engine) execute(ctx context.Context, tasks []Task, local *model.Manifest) Result {
	var res Result

	for _, task := range tasks {
		var err error
		switch task.Decision {
		case DecisionSkip:
			res.Skipped++
			continue
		case DecisionUpload:
			err = e.executeUpload(ctx, task)
			if err == nil {
				res.Uploaded++
			}
		case DecisionDownload:
			err = e.executeDownload(ctx, task)
			if err == nil {
				res.Downloaded++
			}
		case DecisionDeleteLocal:
			err = e.executeDeleteLocal(ctx, task)
			if err == nil {
				res.Deleted++
			}
		case DecisionUploadDelete:
			err = e.executeUploadDelete(ctx, task)
			if err == nil {
				res.Deleted++
			}
		default:
			res.Skipped++
			continue
		}

		if err != nil {
			res.Errors++
			res.ErrorDetails = append(res.ErrorDetails, fmt.Sprintf("%s: %v", task.FileID, err))
			e.Log.Error().Err(err).Str("fileId", task.FileID).Str("decision", string(task.Decision)).Msg("syncengine: task failed")
		}
	}

	return res
}

func (e *Engine) executeUpload(ctx context.Context, task Task) error {
	if task.OldRemotePath != "" {
		if err := e.Remote.Delete(ctx, task.OldRemotePath); err != nil {
			e.Log.Warn().Err(err).Str("path", task.OldRemotePath).Msg("syncengine: stale-extension cleanup failed")
		}
	}

	if isGlobalFile(task.FileID) {
		return e.uploadGlobal(ctx, task.FileID)
	}

	n, err := e.Local.GetNote(ctx, task.FileID, true)
	if err != nil {
		return err
	}
	if n == nil {
		return fmt.Errorf("note %s vanished before upload", task.FileID)
	}
	ext := task.Local.Ext
	if err := e.Remote.UploadText(ctx, e.notePath(task.FileID, ext), n.Body, ""); err != nil {
		return err
	}

	if e.Assets != nil {
		res := e.Assets.UploadMissing(ctx, *n)
		if len(res.Failed) > 0 {
			e.Log.Warn().Strs("assets", res.Failed).Str("note", task.FileID).Msg("syncengine: asset upload failures")
			e.notifyAssetFailures(task.FileID, res.Failed, true)
		}
	}
	return nil
}

func (e *Engine) uploadGlobal(ctx context.Context, fileID string) error {
	if fileID == model.FileIDGlobalTodos {
		todos, err := e.Local.AllTodos(ctx, true)
		if err != nil {
			return err
		}
		return e.Remote.UploadJSON(ctx, e.todosPath(), todosToWire(todos))
	}
	settings, err := e.Local.AllSettings(ctx)
	if err != nil {
		return err
	}
	return e.Remote.UploadJSON(ctx, e.settingsPath(), settings)
}

func (e *Engine) executeDownload(ctx context.Context, task Task) error {
	if isGlobalFile(task.FileID) {
		return e.downloadGlobal(ctx, task.FileID)
	}

	ext := task.Remote.Ext
	body, err := e.Remote.DownloadText(ctx, e.notePath(task.FileID, ext))
	var werr *webdav.Error
	if err != nil && errors.As(err, &werr) && werr.Kind == webdav.KindNotFound {
		ext = alternateExt(ext)
		body, err = e.Remote.DownloadText(ctx, e.notePath(task.FileID, ext))
	}
	if err != nil {
		return err
	}

	kind := model.NoteKindMarkdown
	if ext == ".wb" {
		kind = model.NoteKindWhiteboard
	}
	meta := task.Remote.Meta

	n := model.Note{
		SyncID: task.FileID, Body: body, Kind: kind,
		CreatedAt: task.Remote.C, UpdatedAt: task.Remote.T,
	}
	if meta != nil {
		n.Title = meta.Title
		n.Tags = meta.Tags
		n.Category = meta.Category
		n.Pinned = meta.Pinned != 0
		n.Favorite = meta.Favorite != 0
	}

	if err := e.Local.UpsertNote(ctx, n, true); err != nil {
		return err
	}

	if e.Assets != nil {
		res := e.Assets.DownloadMissing(ctx, n)
		if len(res.Failed) > 0 {
			e.Log.Warn().Strs("assets", res.Failed).Str("note", task.FileID).Msg("syncengine: asset download failures")
			e.notifyAssetFailures(task.FileID, res.Failed, false)
		}
	}
	return nil
}

// alternateExt returns the other note extension, for the not-found retry
// in executeDownload: a note's extension can drift out of the manifest
// (the file was re-saved as the other kind) so a 404 on the recorded
// extension is retried once against its counterpart before failing.
func alternateExt(ext string) string {
	if ext == ".wb" {
		return ".md"
	}
	return ".wb"
}

func (e *Engine) notifyAssetFailures(noteID string, paths []string, upload bool) {
	if e.AssetFailureNotifier == nil {
		return
	}
	for _, p := range paths {
		e.AssetFailureNotifier(noteID, p, upload)
	}
}

func (e *Engine) downloadGlobal(ctx context.Context, fileID string) error {
	if fileID == model.FileIDGlobalTodos {
		var wire []map[string]any
		if err := e.Remote.DownloadJSON(ctx, e.todosPath(), &wire); err != nil {
			return err
		}
		for _, w := range wire {
			t := todoFromWire(w)
			if err := e.Local.UpsertTodo(ctx, t, true); err != nil {
				return err
			}
		}
		return nil
	}

	var settings map[string]any
	if err := e.Remote.DownloadJSON(ctx, e.settingsPath(), &settings); err != nil {
		return err
	}
	return e.Local.UpdateSettings(ctx, settings)
}

func (e *Engine) executeDeleteLocal(ctx context.Context, task Task) error {
	if isGlobalFile(task.FileID) {
		// Global aggregates are never individually tombstoned.
		return nil
	}
	return e.Local.SoftDeleteNote(ctx, task.FileID, task.Remote.T, true)
}

func (e *Engine) executeUploadDelete(ctx context.Context, task Task) error {
	if isGlobalFile(task.FileID) {
		return nil
	}
	ext := task.Local.Ext
	return e.Remote.Delete(ctx, e.notePath(task.FileID, ext))
}

func todoFromWire(w map[string]any) model.Todo {
	get := func(k string) string { s, _ := w[k].(string); return s }
	getBool := func(k string) bool { b, _ := w[k].(bool); return b }
	getInt := func(k string) int64 {
		switch v := w[k].(type) {
		case float64:
			return int64(v)
		case int64:
			return v
		}
		return 0
	}
	return model.Todo{
		SyncID: get("id"), Content: get("content"), Description: get("description"),
		Tags: get("tags"), Important: getBool("important"), Urgent: getBool("urgent"),
		DueAt: getInt("due_at"), EndAt: getInt("end_at"), HasTime: getBool("has_time"),
		FocusSeconds: getInt("focus_seconds"), Repeat: get("repeat"), ParentTodoID: get("parent_todo_id"),
		Completed: getBool("is_completed"), CompletedAt: getInt("completed_at"),
		UpdatedAt: getInt("updated_at"), Deleted: getBool("is_deleted"), DeletedAt: getInt("deleted_at"),
	}
}
