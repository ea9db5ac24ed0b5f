package syncx

import (
	"strconv"
	"time"
)

// GetString safely extracts a string value from a map.
func GetString(m map[string]any, k string) (string, bool) {
	if v, ok := m[k]; ok {
		if s, ok2 := v.(string); ok2 {
			return s, true
		}
	}
	return "", false
}

// GetMap safely extracts a nested map from a map. Handles both
// map[string]any and map[string]interface{} (the two shapes that show up
// depending on whether a payload came from encoding/json or was built by
// hand).
func GetMap(m map[string]any, k string) (map[string]any, bool) {
	v, ok := m[k]
	if !ok {
		return nil, false
	}
	if mm, ok2 := v.(map[string]any); ok2 {
		return mm, true
	}
	return nil, false
}

// GetBool safely extracts a bool, tolerating the 0/1 numeric encoding the
// local store and legacy wire payloads sometimes use instead of a real JSON
// boolean.
func GetBool(m map[string]any, k string) (bool, bool) {
	v, ok := m[k]
	if !ok {
		return false, false
	}
	switch t := v.(type) {
	case bool:
		return t, true
	case float64:
		return t != 0, true
	case string:
		return t == "1" || t == "true", true
	}
	return false, false
}

// ParseTimeToMs converts various time representations to Unix milliseconds.
// Accepts RFC3339(Nano), a numeric-milliseconds string, or empty (returns
// 0, false). This is the tolerant parser StorageAdapter's normalization
// rules require: devices may hand back epoch-ms, numeric strings, or
// ISO-like strings.
func ParseTimeToMs(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC().UnixMilli(), true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().UnixMilli(), true
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t.UTC().UnixMilli(), true
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, true
	}
	return 0, false
}

// AnyToMs normalizes a JSON-decoded value (float64, string, or nil) to
// Unix milliseconds, per StorageAdapter's normalization rules.
func AnyToMs(v any) (int64, bool) {
	switch t := v.(type) {
	case float64:
		return int64(t), true
	case int64:
		return t, true
	case string:
		return ParseTimeToMs(t)
	}
	return 0, false
}
