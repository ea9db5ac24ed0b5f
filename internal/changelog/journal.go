// Package changelog implements the append-only mutation journal (spec
// §4.5) and the legacy incremental push/pull protocol that still runs
// alongside the manifest-driven SyncEngine for devices that haven't
// bootstrapped onto it yet.
package changelog

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/flashnote/syncd/internal/model"
)

// Store is the append-only journal of entity mutations, keyed by sync_id.
// A production host wires this onto its local SQL database; Journal below
// is the in-process implementation used both for tests and as a reference
// for that wiring.
type Store interface {
	Log(ctx context.Context, entityType model.EntityType, entityID string, op model.ChangeOperation, payload map[string]any) (int64, error)
	BatchLog(ctx context.Context, records []model.ChangeLogRecord) error
	Unsynced(ctx context.Context, limit int) ([]model.ChangeLogRecord, error)
	MarkSynced(ctx context.Context, ids []int64) error
	CleanupOld(ctx context.Context, daysToKeep int, nowMs int64) (int, error)
	Stats(ctx context.Context) (Stats, error)

	// LastSynced returns the payload of the most recently synced record for
	// one entity, standing in for the version_history base lookup spec
	// §4.5 describes: the last change this device confirmed the remote
	// accepted is the closest thing to a common ancestor this protocol can
	// produce without a server-side history endpoint. ok is false if the
	// entity has never been pushed from this device.
	LastSynced(ctx context.Context, entityType model.EntityType, entityID string) (payload map[string]any, ok bool, err error)
}

// Stats summarizes journal occupancy, per spec §4.5's stats() operation.
type Stats struct {
	Total        int
	Unsynced     int
	ByEntityType map[model.EntityType]int
}

// Journal is an in-memory Store. It is concurrency-safe and matches the
// transactional guarantees the spec requires (batch_log and mark_synced
// are all-or-nothing against the in-memory slice).
type Journal struct {
	mu      sync.Mutex
	nextID  int64
	records []model.ChangeLogRecord
}

func NewJournal() *Journal {
	return &Journal{}
}

func (j *Journal) Log(_ context.Context, entityType model.EntityType, entityID string, op model.ChangeOperation, payload map[string]any) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.appendLocked(entityType, entityID, op, payload, 0), nil
}

// appendLocked requires the caller hold j.mu. createdAt of 0 means "use
// the next synthetic tick", which keeps journal ordering deterministic
// without depending on wall-clock time.
func (j *Journal) appendLocked(entityType model.EntityType, entityID string, op model.ChangeOperation, payload map[string]any, createdAt int64) int64 {
	j.nextID++
	id := j.nextID
	if createdAt == 0 {
		createdAt = id
	}
	j.records = append(j.records, model.ChangeLogRecord{
		ID:         id,
		EntityType: entityType,
		EntityID:   entityID,
		Operation:  op,
		Payload:    payload,
		CreatedAt:  createdAt,
		Synced:     false,
	})
	return id
}

func (j *Journal) BatchLog(_ context.Context, records []model.ChangeLogRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, r := range records {
		j.appendLocked(r.EntityType, r.EntityID, r.Operation, r.Payload, r.CreatedAt)
	}
	return nil
}

func (j *Journal) Unsynced(_ context.Context, limit int) ([]model.ChangeLogRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	var out []model.ChangeLogRecord
	for _, r := range j.records {
		if !r.Synced {
			out = append(out, r)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (j *Journal) MarkSynced(_ context.Context, ids []int64) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for i := range j.records {
		if want[j.records[i].ID] {
			j.records[i].Synced = true
			j.records[i].SyncedAt = time.Now().UnixMilli()
		}
	}
	return nil
}

func (j *Journal) CleanupOld(_ context.Context, daysToKeep int, nowMs int64) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	cutoff := nowMs - int64(daysToKeep)*24*60*60*1000
	kept := j.records[:0]
	removed := 0
	for _, r := range j.records {
		if r.Synced && r.SyncedAt < cutoff {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	j.records = kept
	return removed, nil
}

func (j *Journal) LastSynced(_ context.Context, entityType model.EntityType, entityID string) (map[string]any, bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	var best *model.ChangeLogRecord
	for i := range j.records {
		r := &j.records[i]
		if !r.Synced || r.EntityType != entityType || r.EntityID != entityID {
			continue
		}
		if best == nil || r.ID > best.ID {
			best = r
		}
	}
	if best == nil {
		return nil, false, nil
	}
	return best.Payload, true, nil
}

func (j *Journal) Stats(_ context.Context) (Stats, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	st := Stats{ByEntityType: map[model.EntityType]int{}}
	for _, r := range j.records {
		st.Total++
		if !r.Synced {
			st.Unsynced++
		}
		st.ByEntityType[r.EntityType]++
	}
	return st, nil
}

// DeviceShortID derives the short device identifier used in change-package
// filenames (<root>/incremental/changes-<type>-<device>-<ts>.json).
func DeviceShortID(deviceID string) string {
	if len(deviceID) <= 8 {
		return deviceID
	}
	return deviceID[:8]
}

func changePackagePath(rootPath string, entityType model.EntityType, deviceID string, nowMs int64) string {
	return fmt.Sprintf("%sincremental/changes-%s-%s-%d.json", rootPath, entityType, DeviceShortID(deviceID), nowMs)
}
