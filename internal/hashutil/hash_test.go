package hashutil

import "testing"

func TestMarkdownHashIgnoresUpdatedAt(t *testing.T) {
	a := "---\ntitle: hello\nupdated_at: 2024-01-01T00:00:00Z\n---\nbody text"
	b := "---\ntitle: hello\nupdated_at: 2024-06-06T12:00:00Z\n---\nbody text"
	if MarkdownHash(a) != MarkdownHash(b) {
		t.Fatalf("expected equal hashes, front-matter updated_at should be ignored")
	}
}

func TestMarkdownHashDetectsRealChange(t *testing.T) {
	a := "---\ntitle: hello\n---\nbody text"
	b := "---\ntitle: hello\n---\nbody text v2"
	if MarkdownHash(a) == MarkdownHash(b) {
		t.Fatalf("expected different hashes for different bodies")
	}
}

func TestMarkdownHashNoFrontMatter(t *testing.T) {
	if MarkdownHash("plain body") != Hash("plain body") {
		t.Fatalf("no front-matter should hash the raw text")
	}
}

func TestJSONHashKeyOrderInvariant(t *testing.T) {
	a := map[string]any{"a": 1, "b": 2}
	b := map[string]any{"b": 2, "a": 1}
	if JSONHash(a) != JSONHash(b) {
		t.Fatalf("key order should not affect hash")
	}
}

func TestJSONHashExcludedKeys(t *testing.T) {
	a := map[string]any{"a": 1, "updated_at": "2024-01-01"}
	b := map[string]any{"a": 1, "updated_at": "2025-01-01"}
	if JSONHash(a, "updated_at") != JSONHash(b, "updated_at") {
		t.Fatalf("excluded key should not affect hash")
	}
	if JSONHash(a) == JSONHash(b) {
		t.Fatalf("without exclusion the hashes should differ")
	}
}

func TestJSONHashNestedExclusion(t *testing.T) {
	a := map[string]any{"nested": map[string]any{"x": 1, "updated_at": "t1"}}
	b := map[string]any{"nested": map[string]any{"x": 1, "updated_at": "t2"}}
	if JSONHash(a, "updated_at") != JSONHash(b, "updated_at") {
		t.Fatalf("exclusion should apply at every nesting level")
	}
}

func TestTodosHashOrderAndTimestampInvariant(t *testing.T) {
	l1 := []map[string]any{
		{"id": "b", "content": "B", "updated_at": "t1"},
		{"id": "a", "content": "A", "updated_at": "t2"},
	}
	l2 := []map[string]any{
		{"id": "a", "content": "A", "updated_at": "t9"},
		{"id": "b", "content": "B", "updated_at": "t8"},
	}
	if TodosHash(l1) != TodosHash(l2) {
		t.Fatalf("todos_hash must ignore order and updated_at")
	}
}

func TestTodosHashDetectsContentChange(t *testing.T) {
	l1 := []map[string]any{{"id": "a", "content": "A"}}
	l2 := []map[string]any{{"id": "a", "content": "A2"}}
	if TodosHash(l1) == TodosHash(l2) {
		t.Fatalf("content change should change hash")
	}
}
