package localstore

import (
	"context"
	"testing"

	"github.com/flashnote/syncd/internal/model"
	"github.com/stretchr/testify/require"
)

func TestUpsertNoteRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := New(NewMemRepository())

	n := model.Note{SyncID: "n1", Title: "hello", Body: "world", Kind: model.NoteKindMarkdown, UpdatedAt: 100}
	require.NoError(t, a.UpsertNote(ctx, n, true))

	got, err := a.GetNote(ctx, "n1", false)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "hello", got.Title)
	require.Equal(t, int64(100), got.UpdatedAt)
}

func TestUpsertNoteMissingSyncID(t *testing.T) {
	a := New(NewMemRepository())
	err := a.UpsertNote(context.Background(), model.Note{}, true)
	require.ErrorIs(t, err, ErrMissingSyncID)
}

func TestUpsertTodoDeletedRemoteAbsentLocalIsNoop(t *testing.T) {
	ctx := context.Background()
	a := New(NewMemRepository())

	err := a.UpsertTodo(ctx, model.Todo{SyncID: "t1", Deleted: true, DeletedAt: 10}, true)
	require.NoError(t, err)

	got, err := a.GetTodo(ctx, "t1", true)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestUpsertTodoDeletedRemotePresentLocalSoftDeletes(t *testing.T) {
	ctx := context.Background()
	a := New(NewMemRepository())
	require.NoError(t, a.UpsertTodo(ctx, model.Todo{SyncID: "t1", Content: "buy milk"}, true))

	require.NoError(t, a.UpsertTodo(ctx, model.Todo{SyncID: "t1", Deleted: true, DeletedAt: 55}, true))

	got, err := a.GetTodo(ctx, "t1", true)
	require.NoError(t, err)
	require.True(t, got.Deleted)
	require.Equal(t, int64(55), got.DeletedAt)
}

func TestSettingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := New(NewMemRepository())

	require.NoError(t, a.UpdateSettings(ctx, map[string]any{
		"theme":        "dark",
		"notifyOn":     true,
		"retentionDays": float64(30),
		"profile":      map[string]any{"name": "x"},
	}))

	settings, err := a.AllSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, "dark", settings["theme"])
	require.Equal(t, true, settings["notifyOn"])
	require.Equal(t, float64(30), settings["retentionDays"])
	require.Equal(t, map[string]any{"name": "x"}, settings["profile"])
}

func TestNoteHashIgnoresUpdatedAtFrontMatter(t *testing.T) {
	a := model.Note{Kind: model.NoteKindMarkdown, Body: "---\nupdated_at: t1\n---\nbody"}
	b := model.Note{Kind: model.NoteKindMarkdown, Body: "---\nupdated_at: t2\n---\nbody"}
	require.Equal(t, NoteHash(a), NoteHash(b))
}

func TestTodosHashStableAcrossOrderAndTimestamps(t *testing.T) {
	set1 := map[string]model.Todo{
		"a": {SyncID: "a", Content: "A", UpdatedAt: 1},
		"b": {SyncID: "b", Content: "B", UpdatedAt: 2},
	}
	set2 := map[string]model.Todo{
		"b": {SyncID: "b", Content: "B", UpdatedAt: 999},
		"a": {SyncID: "a", Content: "A", UpdatedAt: 888},
	}
	require.Equal(t, TodosHash(set1), TodosHash(set2))
}
