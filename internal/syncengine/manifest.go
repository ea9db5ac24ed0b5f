package syncengine

import (
	"context"

	"github.com/flashnote/syncd/internal/localstore"
	"github.com/flashnote/syncd/internal/model"
)

// noTodoTimestampSentinel is used as global_todos.t when no todo carries a
// valid timestamp, per spec §4.6 (B).
const noTodoTimestampSentinel = 1_000_000_000_000

// buildLocalManifest reads every local entity through the StorageAdapter
// and derives a fresh manifest snapshot, per spec §4.6 (B)'s per-entity
// rules. cached is the previously committed manifest (nil on first run),
// consulted only for global_settings.t carry-over.
func buildLocalManifest(ctx context.Context, local *localstore.Adapter, cached *model.Manifest, nowMs int64) (*model.Manifest, error) {
	notes, err := local.AllNotes(ctx, true)
	if err != nil {
		return nil, err
	}
	todos, err := local.AllTodos(ctx, true)
	if err != nil {
		return nil, err
	}
	settings, err := local.AllSettings(ctx)
	if err != nil {
		return nil, err
	}

	files := make(map[string]model.FileEntry, len(notes)+2)

	for syncID, n := range notes {
		d := 0
		if n.Deleted {
			d = 1
		}
		files[syncID] = model.FileEntry{
			V: 1, T: n.UpdatedAt, C: n.CreatedAt, H: localstore.NoteHash(n), D: d, Ext: n.Kind.Ext(),
			Meta: &model.NoteMeta{
				Title: n.Title, Tags: n.Tags, Category: n.Category,
				Pinned: boolToInt(n.Pinned), Favorite: boolToInt(n.Favorite), NoteType: string(n.Kind),
			},
		}
	}

	files[model.FileIDGlobalTodos] = buildGlobalTodosEntry(todos)
	files[model.FileIDGlobalSettings] = buildGlobalSettingsEntry(settings, cached, nowMs)

	return &model.Manifest{
		Version: model.ManifestVersion,
		Files:   files,
	}, nil
}

func buildGlobalTodosEntry(todos map[string]model.Todo) model.FileEntry {
	var max int64
	found := false
	for _, td := range todos {
		if td.UpdatedAt <= 0 {
			continue
		}
		if !found || td.UpdatedAt > max {
			max = td.UpdatedAt
			found = true
		}
	}
	t := int64(noTodoTimestampSentinel)
	if found {
		t = max
	}
	return model.FileEntry{V: 1, T: t, H: localstore.TodosHash(todos), D: 0, Ext: ".json"}
}

func buildGlobalSettingsEntry(settings map[string]any, cached *model.Manifest, nowMs int64) model.FileEntry {
	h := localstore.SettingsHash(settings)
	t := nowMs
	if cached != nil {
		if prior, ok := cached.Files[model.FileIDGlobalSettings]; ok && prior.H == h {
			t = prior.T
		}
	}
	return model.FileEntry{V: 1, T: t, H: h, D: 0, Ext: ".json"}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
