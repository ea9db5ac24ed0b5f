package changelog

import (
	"context"
	"fmt"

	"github.com/flashnote/syncd/internal/model"
	"github.com/flashnote/syncd/internal/syncx"
)

// upsertFromPayload decodes a change package's changeData into the typed
// entity and upserts it locally, sync-origin (journal bypassed).
func (l *LegacyIncrementalSync) upsertFromPayload(ctx context.Context, entityType model.EntityType, entityID string, payload map[string]any) error {
	switch entityType {
	case model.EntityNote:
		return l.Local.UpsertNote(ctx, noteFromPayload(entityID, payload), true)
	case model.EntityTodo:
		return l.Local.UpsertTodo(ctx, todoFromPayload(entityID, payload), true)
	default:
		return fmt.Errorf("changelog: unknown entity type %q", entityType)
	}
}

func (l *LegacyIncrementalSync) softDelete(ctx context.Context, entityType model.EntityType, entityID string, deletedAtMs int64) *Conflict {
	var err error
	switch entityType {
	case model.EntityNote:
		err = l.Local.SoftDeleteNote(ctx, entityID, deletedAtMs, true)
	case model.EntityTodo:
		err = l.Local.SoftDeleteTodo(ctx, entityID, deletedAtMs, true)
	default:
		err = fmt.Errorf("changelog: unknown entity type %q", entityType)
	}
	if err != nil {
		return &Conflict{EntityType: entityType, EntityID: entityID, Reason: err.Error()}
	}
	return nil
}

func (l *LegacyIncrementalSync) restore(ctx context.Context, entityType model.EntityType, entityID string, payload map[string]any) *Conflict {
	if err := l.upsertFromPayload(ctx, entityType, entityID, payload); err != nil {
		return &Conflict{EntityType: entityType, EntityID: entityID, Reason: err.Error()}
	}
	return nil
}

// localKeyFields returns the local entity's updated_at (ms) and its
// key-field projection {content,title,tags,is_completed,is_deleted}, used
// for the legacy protocol's conflict detection.
func (l *LegacyIncrementalSync) localKeyFields(ctx context.Context, entityType model.EntityType, entityID string) (updatedAt int64, found bool, keyFields map[string]any, err error) {
	switch entityType {
	case model.EntityNote:
		n, gerr := l.Local.GetNote(ctx, entityID, true)
		if gerr != nil {
			return 0, false, nil, gerr
		}
		if n == nil {
			return 0, false, nil, nil
		}
		return n.UpdatedAt, true, map[string]any{
			"content": n.Body, "title": n.Title, "tags": n.Tags,
			"is_completed": false, "is_deleted": n.Deleted,
		}, nil
	case model.EntityTodo:
		t, gerr := l.Local.GetTodo(ctx, entityID, true)
		if gerr != nil {
			return 0, false, nil, gerr
		}
		if t == nil {
			return 0, false, nil, nil
		}
		return t.UpdatedAt, true, map[string]any{
			"content": t.Content, "title": t.Content, "tags": t.Tags,
			"is_completed": t.Completed, "is_deleted": t.Deleted,
		}, nil
	default:
		return 0, false, nil, fmt.Errorf("changelog: unknown entity type %q", entityType)
	}
}

func (l *LegacyIncrementalSync) localDeletedAt(ctx context.Context, entityType model.EntityType, entityID string) (deletedAt int64, deleted bool, err error) {
	switch entityType {
	case model.EntityNote:
		n, gerr := l.Local.GetNote(ctx, entityID, true)
		if gerr != nil || n == nil {
			return 0, false, gerr
		}
		return n.DeletedAt, n.Deleted, nil
	case model.EntityTodo:
		t, gerr := l.Local.GetTodo(ctx, entityID, true)
		if gerr != nil || t == nil {
			return 0, false, gerr
		}
		return t.DeletedAt, t.Deleted, nil
	default:
		return 0, false, fmt.Errorf("changelog: unknown entity type %q", entityType)
	}
}

func noteFromPayload(syncID string, p map[string]any) model.Note {
	title, _ := syncx.GetString(p, "title")
	body, _ := syncx.GetString(p, "content")
	if body == "" {
		body, _ = syncx.GetString(p, "body")
	}
	tags, _ := syncx.GetString(p, "tags")
	category, _ := syncx.GetString(p, "category")
	noteType, _ := syncx.GetString(p, "note_type")
	kind := model.NoteKindMarkdown
	if noteType == string(model.NoteKindWhiteboard) {
		kind = model.NoteKindWhiteboard
	}
	pinned, _ := syncx.GetBool(p, "is_pinned")
	favorite, _ := syncx.GetBool(p, "is_favorite")
	deleted, _ := syncx.GetBool(p, "is_deleted")
	updatedAt, _ := syncx.AnyToMs(p["updated_at"])
	createdAt, _ := syncx.AnyToMs(p["created_at"])
	deletedAt, _ := syncx.AnyToMs(p["deleted_at"])

	return model.Note{
		SyncID: syncID, Title: title, Body: body, Kind: kind,
		Tags: tags, Category: category, Pinned: pinned, Favorite: favorite,
		CreatedAt: createdAt, UpdatedAt: updatedAt, Deleted: deleted, DeletedAt: deletedAt,
	}
}

func todoFromPayload(syncID string, p map[string]any) model.Todo {
	content, _ := syncx.GetString(p, "content")
	description, _ := syncx.GetString(p, "description")
	tags, _ := syncx.GetString(p, "tags")
	repeat, _ := syncx.GetString(p, "repeat")
	parentID, _ := syncx.GetString(p, "parent_todo_id")
	important, _ := syncx.GetBool(p, "important")
	urgent, _ := syncx.GetBool(p, "urgent")
	hasTime, _ := syncx.GetBool(p, "has_time")
	completed, _ := syncx.GetBool(p, "is_completed")
	deleted, _ := syncx.GetBool(p, "is_deleted")
	dueAt, _ := syncx.AnyToMs(p["due_at"])
	endAt, _ := syncx.AnyToMs(p["end_at"])
	updatedAt, _ := syncx.AnyToMs(p["updated_at"])
	completedAt, _ := syncx.AnyToMs(p["completed_at"])
	deletedAt, _ := syncx.AnyToMs(p["deleted_at"])
	focusSeconds, _ := syncx.AnyToMs(p["focus_seconds"])

	return model.Todo{
		SyncID: syncID, Content: content, Description: description, Tags: tags,
		Important: important, Urgent: urgent, DueAt: dueAt, EndAt: endAt,
		HasTime: hasTime, FocusSeconds: focusSeconds, Repeat: repeat, ParentTodoID: parentID,
		Completed: completed, CompletedAt: completedAt, UpdatedAt: updatedAt,
		Deleted: deleted, DeletedAt: deletedAt,
	}
}
