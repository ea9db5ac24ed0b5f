package changelog

import (
	"context"
	"testing"

	"github.com/flashnote/syncd/internal/model"
)

func TestJournalLogAndUnsynced(t *testing.T) {
	ctx := context.Background()
	j := NewJournal()

	id, err := j.Log(ctx, model.EntityNote, "n1", model.OpCreate, map[string]any{"title": "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if id == 0 {
		t.Fatalf("expected non-zero id")
	}

	unsynced, err := j.Unsynced(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(unsynced) != 1 || unsynced[0].EntityID != "n1" {
		t.Fatalf("unexpected unsynced: %+v", unsynced)
	}
}

func TestJournalMarkSyncedExcludesFromUnsynced(t *testing.T) {
	ctx := context.Background()
	j := NewJournal()

	id1, _ := j.Log(ctx, model.EntityNote, "n1", model.OpCreate, nil)
	id2, _ := j.Log(ctx, model.EntityNote, "n2", model.OpCreate, nil)

	if err := j.MarkSynced(ctx, []int64{id1}); err != nil {
		t.Fatal(err)
	}

	unsynced, _ := j.Unsynced(ctx, 10)
	if len(unsynced) != 1 || unsynced[0].ID != id2 {
		t.Fatalf("expected only id2 unsynced, got %+v", unsynced)
	}
}

func TestJournalUnsyncedRespectsLimitAndOrder(t *testing.T) {
	ctx := context.Background()
	j := NewJournal()

	for i := 0; i < 5; i++ {
		j.Log(ctx, model.EntityTodo, "t", model.OpUpdate, nil)
	}

	batch, _ := j.Unsynced(ctx, 3)
	if len(batch) != 3 {
		t.Fatalf("expected 3, got %d", len(batch))
	}
	if batch[0].ID > batch[1].ID || batch[1].ID > batch[2].ID {
		t.Fatalf("expected oldest-first order, got %+v", batch)
	}
}

func TestJournalCleanupOldRemovesOnlySyncedPastCutoff(t *testing.T) {
	ctx := context.Background()
	j := NewJournal()

	id1, _ := j.Log(ctx, model.EntityNote, "n1", model.OpCreate, nil)
	j.Log(ctx, model.EntityNote, "n2", model.OpCreate, nil)

	j.MarkSynced(ctx, []int64{id1})
	j.records[0].SyncedAt = 0 // force it far in the past

	removed, err := j.CleanupOld(ctx, 30, 999_999_999_999)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}

	stats, _ := j.Stats(ctx)
	if stats.Total != 1 {
		t.Fatalf("expected 1 remaining record, got %d", stats.Total)
	}
}

func TestJournalStatsCountsByEntityType(t *testing.T) {
	ctx := context.Background()
	j := NewJournal()
	j.Log(ctx, model.EntityNote, "n1", model.OpCreate, nil)
	j.Log(ctx, model.EntityTodo, "t1", model.OpCreate, nil)
	j.Log(ctx, model.EntityTodo, "t2", model.OpCreate, nil)

	stats, err := j.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 3 || stats.Unsynced != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.ByEntityType[model.EntityTodo] != 2 {
		t.Fatalf("expected 2 todo records, got %d", stats.ByEntityType[model.EntityTodo])
	}
}
