// Package syncx holds small, dependency-free helpers shared by the sync
// core components: millisecond timestamp conversions and tolerant
// extraction of sync metadata from loosely-typed JSON maps.
//
// Adapted from the teacher's internal/syncx package — the cursor/pagination
// half (Cursor, EncodeCursor/DecodeCursor) does not survive here: this
// spec's wire protocols (manifest diff, timestamp-bookmarked legacy pull)
// never paginate a result set, so there is nothing for a keyset cursor to
// page through. What remains is the part every layer of this module
// actually calls: timestamp conversion and tolerant map extraction.
package syncx

import "time"

// RFC3339 converts Unix milliseconds to an RFC3339Nano timestamp string.
func RFC3339(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
}

// NowMs returns the current time as Unix milliseconds (UTC).
func NowMs() int64 {
	return time.Now().UTC().UnixMilli()
}

// EnsureMonotonicTimestamp returns a timestamp strictly greater than prev,
// using the current time when it has already advanced past prev and
// nudging forward by one millisecond otherwise. This keeps successive
// local mutations from colliding on the same updated_at, which would
// otherwise make the LWW comparisons in ConflictResolver/SyncEngine
// ambiguous.
func EnsureMonotonicTimestamp(prev int64) int64 {
	now := NowMs()
	if now > prev {
		return now
	}
	return prev + 1
}
