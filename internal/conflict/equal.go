package conflict

import "reflect"

// deepEqual compares two loosely-typed JSON-ish values for equality,
// tolerating the float64/int mismatch that round-tripping through JSON
// commonly introduces.
func deepEqual(a, b any) bool {
	af, aIsFloat := asFloat(a)
	bf, bIsFloat := asFloat(b)
	if aIsFloat && bIsFloat {
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}
