// Package conflict implements the three-way field merge described in
// spec §4.4: reconciling local and remote edits against a common ancestor,
// never silently discarding data.
package conflict

// FieldConflict records one field that could not be automatically merged.
type FieldConflict struct {
	Field   string
	Local   any
	Remote  any
	Base    any
	Message string
}

// Result is the outcome of a three-way merge: either Merged is populated
// with no conflicts, or Conflicts is non-empty and NeedsUserIntervention is
// true.
type Result struct {
	Merged                map[string]any
	Conflicts             []FieldConflict
	NeedsUserIntervention bool
}

// Resolve performs a three-way field merge of local against remote, using
// base as the common ancestor snapshot. base may be nil, meaning no
// ancestor is known.
//
// Algorithm per field (spec §4.4):
//   - base unknown: any field where local != remote is a conflict.
//   - base known:
//     (a) both sides unchanged relative to base -> keep base
//     (b) only one side changed -> take the changed side
//     (c) both changed to the same value -> take that value
//     (d) both changed to different values -> field conflict
func Resolve(base, local, remote map[string]any) Result {
	fields := unionKeys(base, local, remote)

	merged := make(map[string]any, len(fields))
	var conflicts []FieldConflict

	for _, f := range fields {
		lv, lok := local[f]
		rv, rok := remote[f]

		if base == nil {
			if equal(lv, rv) {
				merged[f] = lv
				continue
			}
			conflicts = append(conflicts, FieldConflict{
				Field: f, Local: lv, Remote: rv, Base: nil,
				Message: "no common ancestor; local and remote differ",
			})
			continue
		}

		bv, bok := base[f]

		localChanged := !valueEqual(bv, bok, lv, lok)
		remoteChanged := !valueEqual(bv, bok, rv, rok)

		switch {
		case !localChanged && !remoteChanged:
			merged[f] = bv
		case localChanged && !remoteChanged:
			merged[f] = lv
		case !localChanged && remoteChanged:
			merged[f] = rv
		case equal(lv, rv):
			merged[f] = lv
		default:
			conflicts = append(conflicts, FieldConflict{
				Field: f, Local: lv, Remote: rv, Base: bv,
				Message: "both sides changed this field to different values",
			})
		}
	}

	if len(conflicts) > 0 {
		return Result{Conflicts: conflicts, NeedsUserIntervention: true}
	}
	return Result{Merged: merged}
}

func unionKeys(maps ...map[string]any) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, m := range maps {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}

func valueEqual(base any, baseOK bool, other any, otherOK bool) bool {
	if !baseOK && !otherOK {
		return true
	}
	if baseOK != otherOK {
		return false
	}
	return equal(base, other)
}

func equal(a, b any) bool {
	return deepEqual(a, b)
}
