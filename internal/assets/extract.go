// Package assets extracts and synchronizes the embedded images a note
// body references, per spec §4.7.
package assets

import (
	"encoding/json"
	"regexp"

	"github.com/flashnote/syncd/internal/model"
)

var (
	markdownAppImage = regexp.MustCompile(`!\[[^\]]*\]\(app://images/([^)]+)\)`)
	markdownRelImage = regexp.MustCompile(`!\[[^\]]*\]\(images/([^)]+)\)`)
	markdownSrcImage = regexp.MustCompile(`src="images/([^"]+)"`)
)

// ExtractReferences returns the set of images/... relative paths n's body
// refers to, deduplicated. Markdown references are grouped by pattern
// (app://images links, then images/ links, then src= attributes), each
// group in body order; whiteboard references come in no defined order.
func ExtractReferences(n model.Note) []string {
	if n.Kind == model.NoteKindWhiteboard {
		return extractWhiteboardRefs(n.Body)
	}
	return extractMarkdownRefs(n.Body)
}

func extractMarkdownRefs(body string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(suffix string) {
		path := "images/" + suffix
		if !seen[path] {
			seen[path] = true
			out = append(out, path)
		}
	}
	for _, re := range []*regexp.Regexp{markdownAppImage, markdownRelImage, markdownSrcImage} {
		for _, m := range re.FindAllStringSubmatch(body, -1) {
			add(m[1])
		}
	}
	return out
}

// extractWhiteboardRefs parses the whiteboard JSON body's fileMap, whose
// values are either a bare filename string or an object carrying
// fileName.
func extractWhiteboardRefs(body string) []string {
	var doc struct {
		FileMap map[string]json.RawMessage `json:"fileMap"`
	}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var out []string
	for _, raw := range doc.FileMap {
		var asString string
		if err := json.Unmarshal(raw, &asString); err == nil && asString != "" {
			addWhiteboardRef(&out, seen, asString)
			continue
		}
		var asObj struct {
			FileName string `json:"fileName"`
		}
		if err := json.Unmarshal(raw, &asObj); err == nil && asObj.FileName != "" {
			addWhiteboardRef(&out, seen, asObj.FileName)
		}
	}
	return out
}

func addWhiteboardRef(out *[]string, seen map[string]bool, fileName string) {
	path := "images/whiteboard/" + fileName
	if !seen[path] {
		seen[path] = true
		*out = append(*out, path)
	}
}
