package assets

import (
	"reflect"
	"sort"
	"testing"

	"github.com/flashnote/syncd/internal/model"
)

func TestExtractMarkdownReferences(t *testing.T) {
	body := `# Title
![alt](app://images/one.png)
![alt2](images/two.png)
<img src="images/three.png">
`
	n := model.Note{Kind: model.NoteKindMarkdown, Body: body}
	got := ExtractReferences(n)
	sort.Strings(got)

	want := []string{"images/one.png", "images/three.png", "images/two.png"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestExtractMarkdownDedupes(t *testing.T) {
	body := "![a](images/dup.png) and again ![b](images/dup.png)"
	n := model.Note{Kind: model.NoteKindMarkdown, Body: body}
	got := ExtractReferences(n)
	if len(got) != 1 {
		t.Fatalf("expected 1 deduped ref, got %v", got)
	}
}

func TestExtractWhiteboardStringFileMap(t *testing.T) {
	body := `{"elements":[],"fileMap":{"file1":"photo.png","file2":"sketch.jpg"}}`
	n := model.Note{Kind: model.NoteKindWhiteboard, Body: body}
	got := ExtractReferences(n)
	sort.Strings(got)

	want := []string{"images/whiteboard/photo.png", "images/whiteboard/sketch.jpg"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestExtractWhiteboardObjectFileMap(t *testing.T) {
	body := `{"fileMap":{"file1":{"fileName":"shape.png","mimeType":"image/png"}}}`
	n := model.Note{Kind: model.NoteKindWhiteboard, Body: body}
	got := ExtractReferences(n)

	want := []string{"images/whiteboard/shape.png"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestExtractWhiteboardNoFileMap(t *testing.T) {
	n := model.Note{Kind: model.NoteKindWhiteboard, Body: `{"elements":[]}`}
	got := ExtractReferences(n)
	if len(got) != 0 {
		t.Fatalf("expected no refs, got %v", got)
	}
}
