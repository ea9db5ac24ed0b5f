// Package hashutil implements the canonical content fingerprints the sync
// core uses to tell real changes apart from metadata noise (spec §4.2).
//
// All hashes are 32-char lower-case hex MD5 digests. MD5 is not used for
// anything security-sensitive here — only as a cheap, stable content
// fingerprint — so the standard library's crypto/md5 is the right tool; no
// pack repo hashes canonicalized JSON/markdown for change-detection
// purposes, so there is nothing to ground the canonicalization logic on
// besides the spec itself (see DESIGN.md).
package hashutil

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// Hash returns the lower-case hex MD5 digest of s.
func Hash(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

var frontMatterDelim = "---"

// MarkdownHash strips any line beginning with "updated_at:" that lives
// inside a leading "---"/"---" front-matter block, then hashes the
// reconstituted text. This makes the hash stable across devices whose
// copies differ only by that one noisy timestamp line.
func MarkdownHash(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != frontMatterDelim {
		return Hash(text)
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontMatterDelim {
			end = i
			break
		}
	}
	if end == -1 {
		return Hash(text)
	}

	out := make([]string, 0, len(lines))
	out = append(out, lines[0])
	for i := 1; i < end; i++ {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "updated_at:") {
			continue
		}
		out = append(out, lines[i])
	}
	out = append(out, lines[end:]...)

	return Hash(strings.Join(out, "\n"))
}

// JSONHash deep-clones value, omitting exclude_keys at every nesting level,
// recursively sorts object keys, stable-serializes the result, and hashes
// it. This is what makes json-shaped content hashes stable across devices
// that only diverge in field order or in fields the caller doesn't
// consider semantically meaningful (e.g. updated_at).
func JSONHash(value any, excludeKeys ...string) string {
	excluded := make(map[string]bool, len(excludeKeys))
	for _, k := range excludeKeys {
		excluded[k] = true
	}
	canon := canonicalize(value, excluded)
	b, err := json.Marshal(canon)
	if err != nil {
		// canonicalize only ever produces json.Marshal-able primitives,
		// maps and slices, so this cannot happen in practice.
		return Hash("")
	}
	return Hash(string(b))
}

// canonicalize produces a value whose JSON encoding is deterministic:
// excluded keys are dropped at every depth. Maps are returned as plain
// map[string]any values, so the sorted key order of the output comes from
// encoding/json, which emits map[string]any keys in sorted order.
func canonicalize(value any, excluded map[string]bool) any {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			if excluded[k] {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]any, len(keys))
		for _, k := range keys {
			out[k] = canonicalize(v[k], excluded)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = canonicalize(e, excluded)
		}
		return out
	default:
		return v
	}
}

// TodosHash computes the spec's todos_hash: each todo has updated_at
// removed, the list is sorted by id, and the result is JSON-hashed.
// todos is a slice of generic maps (the shape StorageAdapter hands back)
// so this function has no dependency on the model package.
func TodosHash(todos []map[string]any) string {
	cloned := make([]map[string]any, len(todos))
	for i, t := range todos {
		c := make(map[string]any, len(t))
		for k, v := range t {
			if k == "updated_at" {
				continue
			}
			c[k] = v
		}
		cloned[i] = c
	}
	sort.Slice(cloned, func(i, j int) bool {
		return idString(cloned[i]) < idString(cloned[j])
	})
	asAny := make([]any, len(cloned))
	for i, c := range cloned {
		asAny[i] = c
	}
	return JSONHash(asAny)
}

func idString(m map[string]any) string {
	switch v := m["id"].(type) {
	case string:
		return v
	case float64:
		return strconvFloat(v)
	default:
		return ""
	}
}

func strconvFloat(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}

// SettingsHash hashes a settings map with no excluded keys.
func SettingsHash(settings map[string]any) string {
	return JSONHash(settings)
}
