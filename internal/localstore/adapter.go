package localstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/flashnote/syncd/internal/hashutil"
	"github.com/flashnote/syncd/internal/model"
	"github.com/rs/zerolog/log"
)

// ErrMissingSyncID is returned when the sync core is asked to touch an
// entity that has no sync_id — spec invariant 1: the core refuses rather
// than guessing one.
var ErrMissingSyncID = fmt.Errorf("localstore: entity has no sync_id")

// Adapter presents notes/todos/settings as maps keyed by sync_id and
// accepts upserts that bypass the change journal (spec §4.3).
type Adapter struct {
	repo Repository
}

// New creates a StorageAdapter over repo.
func New(repo Repository) *Adapter {
	return &Adapter{repo: repo}
}

// AllNotes returns every note keyed by sync_id.
func (a *Adapter) AllNotes(ctx context.Context, includeDeleted bool) (map[string]model.Note, error) {
	notes, err := a.repo.AllNotes(ctx, includeDeleted)
	if err != nil {
		return nil, fmt.Errorf("localstore: AllNotes: %w", err)
	}
	out := make(map[string]model.Note, len(notes))
	for _, n := range notes {
		if n.SyncID == "" {
			log.Warn().Int64("localId", n.LocalID).Msg("note missing sync_id, skipping")
			continue
		}
		out[n.SyncID] = n
	}
	return out, nil
}

// GetNote looks up a single note by sync_id.
func (a *Adapter) GetNote(ctx context.Context, syncID string, includeDeleted bool) (*model.Note, error) {
	n, err := a.repo.GetNote(ctx, syncID, includeDeleted)
	if err != nil {
		return nil, fmt.Errorf("localstore: GetNote(%s): %w", syncID, err)
	}
	return n, nil
}

// UpsertNote creates or updates a note by sync_id. Sync-core callers must
// always pass skipChangeLog=true (invariant 4); it is a parameter rather
// than an implicit default so the call site states its intent.
func (a *Adapter) UpsertNote(ctx context.Context, n model.Note, skipChangeLog bool) error {
	if n.SyncID == "" {
		return ErrMissingSyncID
	}
	if err := a.repo.PutNote(ctx, n, skipChangeLog); err != nil {
		return fmt.Errorf("localstore: UpsertNote(%s): %w", n.SyncID, err)
	}
	return nil
}

// SoftDeleteNote marks a note deleted without touching the journal.
func (a *Adapter) SoftDeleteNote(ctx context.Context, syncID string, deletedAt int64, skipChangeLog bool) error {
	if err := a.repo.SoftDeleteNote(ctx, syncID, deletedAt, skipChangeLog); err != nil {
		return fmt.Errorf("localstore: SoftDeleteNote(%s): %w", syncID, err)
	}
	return nil
}

// AllTodos returns every todo keyed by sync_id.
func (a *Adapter) AllTodos(ctx context.Context, includeDeleted bool) (map[string]model.Todo, error) {
	todos, err := a.repo.AllTodos(ctx, includeDeleted)
	if err != nil {
		return nil, fmt.Errorf("localstore: AllTodos: %w", err)
	}
	out := make(map[string]model.Todo, len(todos))
	for _, t := range todos {
		if t.SyncID == "" {
			log.Warn().Int64("localId", t.LocalID).Msg("todo missing sync_id, skipping")
			continue
		}
		out[t.SyncID] = t
	}
	return out, nil
}

// GetTodo looks up a single todo by sync_id.
func (a *Adapter) GetTodo(ctx context.Context, syncID string, includeDeleted bool) (*model.Todo, error) {
	t, err := a.repo.GetTodo(ctx, syncID, includeDeleted)
	if err != nil {
		return nil, fmt.Errorf("localstore: GetTodo(%s): %w", syncID, err)
	}
	return t, nil
}

// UpsertTodo creates or updates a todo by sync_id. If the incoming record
// is marked deleted and the local copy exists, it performs a soft-delete
// instead of overwriting fields; if deleted-remote and absent-local, it is
// a no-op (spec §4.3).
func (a *Adapter) UpsertTodo(ctx context.Context, t model.Todo, skipChangeLog bool) error {
	if t.SyncID == "" {
		return ErrMissingSyncID
	}
	if t.Deleted {
		existing, err := a.repo.GetTodo(ctx, t.SyncID, true)
		if err != nil {
			return fmt.Errorf("localstore: UpsertTodo(%s) lookup: %w", t.SyncID, err)
		}
		if existing == nil {
			return nil
		}
		return a.SoftDeleteTodo(ctx, t.SyncID, t.DeletedAt, skipChangeLog)
	}
	if err := a.repo.PutTodo(ctx, t, skipChangeLog); err != nil {
		return fmt.Errorf("localstore: UpsertTodo(%s): %w", t.SyncID, err)
	}
	return nil
}

// SoftDeleteTodo marks a todo deleted without touching the journal.
func (a *Adapter) SoftDeleteTodo(ctx context.Context, syncID string, deletedAt int64, skipChangeLog bool) error {
	if err := a.repo.SoftDeleteTodo(ctx, syncID, deletedAt, skipChangeLog); err != nil {
		return fmt.Errorf("localstore: SoftDeleteTodo(%s): %w", syncID, err)
	}
	return nil
}

// AllSettings returns {key: decoded_value}, decoding each row's value by
// its declared type.
func (a *Adapter) AllSettings(ctx context.Context) (map[string]any, error) {
	rows, err := a.repo.AllSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("localstore: AllSettings: %w", err)
	}
	out := make(map[string]any, len(rows))
	for _, r := range rows {
		out[r.Key] = decodeSetting(r)
	}
	return out, nil
}

func decodeSetting(r model.Setting) any {
	switch r.Kind {
	case model.SettingJSON:
		if s, ok := r.Value.(string); ok {
			var v any
			if err := json.Unmarshal([]byte(s), &v); err == nil {
				return v
			}
		}
		return r.Value
	case model.SettingBoolean:
		return normalizeBool(r.Value)
	case model.SettingNumber:
		switch t := r.Value.(type) {
		case float64:
			return t
		case string:
			var f float64
			if _, err := fmt.Sscanf(t, "%f", &f); err == nil {
				return f
			}
		}
		return r.Value
	default:
		return normalizeString(r.Value)
	}
}

// UpdateSettings transactionally upserts a map of settings, serializing
// each value by its declared type.
func (a *Adapter) UpdateSettings(ctx context.Context, values map[string]any) error {
	rows := make([]model.Setting, 0, len(values))
	for k, v := range values {
		rows = append(rows, encodeSetting(k, v))
	}
	if err := a.repo.PutSettings(ctx, rows); err != nil {
		return fmt.Errorf("localstore: UpdateSettings: %w", err)
	}
	return nil
}

func encodeSetting(key string, v any) model.Setting {
	switch t := v.(type) {
	case bool:
		return model.Setting{Key: key, Kind: model.SettingBoolean, Value: t}
	case float64, int, int64:
		return model.Setting{Key: key, Kind: model.SettingNumber, Value: t}
	case string:
		return model.Setting{Key: key, Kind: model.SettingString, Value: t}
	case map[string]any, []any:
		b, _ := json.Marshal(t)
		return model.Setting{Key: key, Kind: model.SettingJSON, Value: string(b)}
	default:
		return model.Setting{Key: key, Kind: model.SettingString, Value: fmt.Sprintf("%v", t)}
	}
}

// NoteHash computes the content-equivalent hash for a note, dispatching to
// MarkdownHash or JSONHash depending on kind.
func NoteHash(n model.Note) string {
	if n.Kind == model.NoteKindWhiteboard {
		var body any
		if err := json.Unmarshal([]byte(n.Body), &body); err != nil {
			return hashutil.Hash(n.Body)
		}
		return hashutil.JSONHash(body)
	}
	return hashutil.MarkdownHash(n.Body)
}

// TodosHash computes the todos_hash over a map of todos keyed by sync_id
// (sorted by id, updated_at removed).
func TodosHash(todos map[string]model.Todo) string {
	asMaps := make([]map[string]any, 0, len(todos))
	for _, t := range todos {
		asMaps = append(asMaps, map[string]any{
			"id":            t.SyncID,
			"content":       t.Content,
			"description":   t.Description,
			"tags":          t.Tags,
			"important":     t.Important,
			"urgent":        t.Urgent,
			"due_at":        t.DueAt,
			"end_at":        t.EndAt,
			"has_time":      t.HasTime,
			"focus_seconds": t.FocusSeconds,
			"repeat":        t.Repeat,
			"parent_id":     t.ParentTodoID,
			"completed":     t.Completed,
			"completed_at":  t.CompletedAt,
			"is_deleted":    t.Deleted,
			"deleted_at":    t.DeletedAt,
		})
	}
	return hashutil.TodosHash(asMaps)
}

// SettingsHash computes the settings_hash over a decoded settings map.
func SettingsHash(settings map[string]any) string {
	return hashutil.SettingsHash(settings)
}
