package changelog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/flashnote/syncd/internal/conflict"
	"github.com/flashnote/syncd/internal/localstore"
	"github.com/flashnote/syncd/internal/model"
	"github.com/rs/zerolog"
)

const (
	pushBatchSize   = 50
	defaultLookback = 30 * 24 * time.Hour
	pruneAfterDays  = 30
)

// ChangeEntry is one mutation inside a change package.
type ChangeEntry struct {
	ID         int64          `json:"id"`
	EntityID   string         `json:"entityId"`
	Operation  string         `json:"operation"`
	ChangeData map[string]any `json:"changeData"`
	Timestamp  string         `json:"timestamp"`
}

// ChangePackage is the wire shape uploaded to
// <root>/incremental/changes-<type>-<device>-<ts>.json.
type ChangePackage struct {
	EntityType string        `json:"entityType"`
	Changes    []ChangeEntry `json:"changes"`
	Timestamp  string        `json:"timestamp"`
	DeviceID   string        `json:"deviceId"`
	Count      int           `json:"count"`
}

// Result is the outcome of one performIncrementalSync call.
type Result struct {
	NeedsFullSync bool
	Pushed        int
	PushTotal     int
	Pulled        int
	Conflicts     []Conflict
}

// Conflict records an update/delete/restore that could not be applied
// automatically by the legacy protocol.
type Conflict struct {
	EntityType model.EntityType
	EntityID   string
	Reason     string
}

// TimeStore persists the legacy protocol's local artifacts: the
// last-sync-time cursor and the one-time initialization marker.
type TimeStore interface {
	Initialized(ctx context.Context) (bool, error)
	MarkInitialized(ctx context.Context) error
	LoadLastSyncTime(ctx context.Context) (time.Time, error)
	SaveLastSyncTime(ctx context.Context, t time.Time) error
}

// LegacyIncrementalSync implements the incremental push/pull protocol
// described in spec §4.5, preserved for devices coexisting with the
// manifest-driven engine during migration.
type LegacyIncrementalSync struct {
	Transport Transport
	Local     *localstore.Adapter
	Journal   Store
	Times     TimeStore
	Resolver  func(base, local, remote map[string]any) conflict.Result
	RootPath  string
	DeviceID  string
	Log       zerolog.Logger

	mu      sync.Mutex
	stopped bool
}

// Stop requests that the current or next performIncrementalSync halt at
// the next batch boundary.
func (l *LegacyIncrementalSync) Stop() {
	l.mu.Lock()
	l.stopped = true
	l.mu.Unlock()
}

// Reset clears a prior Stop() so the next PerformIncrementalSync call runs
// to completion instead of halting immediately.
func (l *LegacyIncrementalSync) Reset() {
	l.mu.Lock()
	l.stopped = false
	l.mu.Unlock()
}

func (l *LegacyIncrementalSync) isStopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopped
}

// PerformIncrementalSync runs one push/pull cycle. Stop() halts it at the
// next batch boundary; callers that want a fresh run after a prior stop
// must call Reset() first.
func (l *LegacyIncrementalSync) PerformIncrementalSync(ctx context.Context) (Result, error) {
	needsFull, err := l.needsFullSync(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("changelog: full-sync check: %w", err)
	}
	if needsFull {
		return Result{NeedsFullSync: true}, nil
	}

	var res Result

	pushed, total, err := l.push(ctx)
	if err != nil {
		return res, fmt.Errorf("changelog: push: %w", err)
	}
	res.Pushed, res.PushTotal = pushed, total

	if l.isStopped() {
		return res, nil
	}

	pulled, conflicts, err := l.pull(ctx)
	if err != nil {
		return res, fmt.Errorf("changelog: pull: %w", err)
	}
	res.Pulled = pulled
	res.Conflicts = conflicts

	if _, err := l.Journal.CleanupOld(ctx, pruneAfterDays, time.Now().UnixMilli()); err != nil {
		l.Log.Warn().Err(err).Msg("changelog: prune failed, continuing")
	}

	return res, nil
}

// needsFullSync implements spec §4.5 step 1: full bootstrap is required
// when no initialization marker is present, or the local store is empty
// while the remote has data. Per the Design Notes open question, a
// network failure while probing the remote must propagate as an error
// rather than be treated as "needs full sync".
func (l *LegacyIncrementalSync) needsFullSync(ctx context.Context) (bool, error) {
	initialized, err := l.Times.Initialized(ctx)
	if err != nil {
		return false, err
	}
	if !initialized {
		return true, nil
	}

	notes, err := l.Local.AllNotes(ctx, false)
	if err != nil {
		return false, err
	}
	todos, err := l.Local.AllTodos(ctx, false)
	if err != nil {
		return false, err
	}
	if len(notes) > 0 || len(todos) > 0 {
		return false, nil
	}

	entries, err := l.Transport.List(ctx, l.RootPath)
	if err != nil {
		return false, fmt.Errorf("changelog: probing remote for full-sync decision: %w", err)
	}
	return len(entries) > 0, nil
}

// push streams unsynced journal rows in batches of 50, grouped by
// entity_type, uploading one change package per group per batch.
func (l *LegacyIncrementalSync) push(ctx context.Context) (pushed int, total int, err error) {
	for {
		if l.isStopped() {
			return pushed, total, nil
		}

		batch, berr := l.Journal.Unsynced(ctx, pushBatchSize)
		if berr != nil {
			return pushed, total, berr
		}
		if len(batch) == 0 {
			return pushed, total, nil
		}
		total += len(batch)

		groups := groupByEntityType(batch)
		var markedAny bool
		var markIDs []int64

		for entityType, records := range groups {
			pkg := buildChangePackage(entityType, records, l.DeviceID)
			path := changePackagePath(l.RootPath, entityType, l.DeviceID, time.Now().UnixMilli())
			if uerr := l.Transport.UploadJSON(ctx, path, pkg); uerr != nil {
				l.Log.Warn().Err(uerr).Str("entityType", string(entityType)).Msg("changelog: push batch failed")
				continue
			}
			for _, r := range records {
				markIDs = append(markIDs, r.ID)
			}
			markedAny = true
			pushed += len(records)
		}

		if len(markIDs) > 0 {
			if merr := l.Journal.MarkSynced(ctx, markIDs); merr != nil {
				return pushed, total, merr
			}
		}

		// Nothing in this batch could be marked synced: stop to avoid
		// retrying the same failing batch forever.
		if !markedAny {
			return pushed, total, nil
		}
	}
}

func groupByEntityType(records []model.ChangeLogRecord) map[model.EntityType][]model.ChangeLogRecord {
	out := map[model.EntityType][]model.ChangeLogRecord{}
	for _, r := range records {
		out[r.EntityType] = append(out[r.EntityType], r)
	}
	return out
}

func buildChangePackage(entityType model.EntityType, records []model.ChangeLogRecord, deviceID string) ChangePackage {
	entries := make([]ChangeEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, ChangeEntry{
			ID:         r.ID,
			EntityID:   r.EntityID,
			Operation:  string(r.Operation),
			ChangeData: r.Payload,
			Timestamp:  time.UnixMilli(r.CreatedAt).UTC().Format(time.RFC3339),
		})
	}
	return ChangePackage{
		EntityType: string(entityType),
		Changes:    entries,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		DeviceID:   DeviceShortID(deviceID),
		Count:      len(entries),
	}
}

// pull reads changes since the last cursor, applies each, then advances
// the cursor.
func (l *LegacyIncrementalSync) pull(ctx context.Context) (pulled int, conflicts []Conflict, err error) {
	since, err := l.Times.LoadLastSyncTime(ctx)
	if err != nil {
		return 0, nil, err
	}
	if since.IsZero() {
		since = time.Now().Add(-defaultLookback)
	}

	entries, err := l.Transport.List(ctx, l.RootPath+"incremental/")
	if err != nil {
		return 0, nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Href < entries[j].Href })

	latest := since
	for _, e := range entries {
		if l.isStopped() {
			break
		}
		if e.IsDirectory || !strings.HasSuffix(e.Href, ".json") {
			continue
		}

		var pkg ChangePackage
		if derr := l.Transport.DownloadJSON(ctx, e.Href, &pkg); derr != nil {
			l.Log.Warn().Err(derr).Str("path", e.Href).Msg("changelog: pull download failed")
			continue
		}

		for _, change := range pkg.Changes {
			ts, perr := time.Parse(time.RFC3339, change.Timestamp)
			if perr != nil || !ts.After(since) {
				continue
			}
			if c := l.applyChange(ctx, model.EntityType(pkg.EntityType), change); c != nil {
				conflicts = append(conflicts, *c)
			} else {
				pulled++
			}
			if ts.After(latest) {
				latest = ts
			}
		}
	}

	if err := l.Times.SaveLastSyncTime(ctx, latest); err != nil {
		return pulled, conflicts, err
	}
	return pulled, conflicts, nil
}

// applyChange applies one remote change entry per spec §4.5, returning a
// *Conflict when the change could not be applied automatically.
func (l *LegacyIncrementalSync) applyChange(ctx context.Context, entityType model.EntityType, change ChangeEntry) *Conflict {
	switch model.ChangeOperation(change.Operation) {
	case model.OpCreate:
		return l.applyCreate(ctx, entityType, change)
	case model.OpUpdate:
		return l.applyUpdate(ctx, entityType, change)
	case model.OpDelete:
		return l.applyDelete(ctx, entityType, change)
	case model.OpRestore:
		return l.applyRestore(ctx, entityType, change)
	default:
		return &Conflict{EntityType: entityType, EntityID: change.EntityID, Reason: "unknown operation " + change.Operation}
	}
}

func (l *LegacyIncrementalSync) applyCreate(ctx context.Context, entityType model.EntityType, change ChangeEntry) *Conflict {
	if err := l.upsertFromPayload(ctx, entityType, change.EntityID, change.ChangeData); err != nil {
		return &Conflict{EntityType: entityType, EntityID: change.EntityID, Reason: err.Error()}
	}
	return nil
}

func (l *LegacyIncrementalSync) applyUpdate(ctx context.Context, entityType model.EntityType, change ChangeEntry) *Conflict {
	remoteTs, _ := parseEntryTime(change.Timestamp)

	localUpdatedAt, hasLocal, keyFields, err := l.localKeyFields(ctx, entityType, change.EntityID)
	if err != nil {
		return &Conflict{EntityType: entityType, EntityID: change.EntityID, Reason: err.Error()}
	}
	if !hasLocal {
		l.Log.Info().Str("entityId", change.EntityID).Msg("changelog: update for unknown local entity, skipping")
		return nil
	}

	remoteKeyFields := keyFieldsFromPayload(change.ChangeData)
	diverged := localUpdatedAt > remoteTs && !keyFieldsEqual(keyFields, remoteKeyFields)
	if !diverged {
		if err := l.upsertFromPayload(ctx, entityType, change.EntityID, change.ChangeData); err != nil {
			return &Conflict{EntityType: entityType, EntityID: change.EntityID, Reason: err.Error()}
		}
		return nil
	}

	if l.Resolver == nil {
		return &Conflict{EntityType: entityType, EntityID: change.EntityID, Reason: "update-update conflict, needs user intervention"}
	}

	// No transport in this deployment exposes version_history, so the base
	// comes from this device's own push journal instead: the payload of
	// the last change this device confirmed the remote accepted for this
	// entity. If nothing was ever pushed, base stays nil and Resolver
	// falls back to its documented no-ancestor behavior.
	var baseFields map[string]any
	if basePayload, ok, berr := l.Journal.LastSynced(ctx, entityType, change.EntityID); berr != nil {
		return &Conflict{EntityType: entityType, EntityID: change.EntityID, Reason: berr.Error()}
	} else if ok {
		baseFields = keyFieldsFromPayload(basePayload)
	}

	merge := l.Resolver(baseFields, keyFields, remoteKeyFields)
	if merge.NeedsUserIntervention {
		fields := make([]string, 0, len(merge.Conflicts))
		for _, c := range merge.Conflicts {
			fields = append(fields, c.Field)
		}
		return &Conflict{
			EntityType: entityType, EntityID: change.EntityID,
			Reason: "update-update conflict on " + strings.Join(fields, ", ") + ", needs user intervention",
		}
	}

	merged := mergeChangeData(change.ChangeData, merge.Merged)
	if err := l.upsertFromPayload(ctx, entityType, change.EntityID, merged); err != nil {
		return &Conflict{EntityType: entityType, EntityID: change.EntityID, Reason: err.Error()}
	}
	return nil
}

// mergeChangeData overlays a field-level merge result onto the remote
// change payload, so fields Resolver didn't touch (author metadata, etc.)
// still come from the remote package.
func mergeChangeData(payload map[string]any, merged map[string]any) map[string]any {
	out := make(map[string]any, len(payload)+len(merged))
	for k, v := range payload {
		out[k] = v
	}
	for k, v := range merged {
		out[k] = v
	}
	return out
}

func (l *LegacyIncrementalSync) applyDelete(ctx context.Context, entityType model.EntityType, change ChangeEntry) *Conflict {
	localUpdatedAt, hasLocal, _, err := l.localKeyFields(ctx, entityType, change.EntityID)
	if err != nil {
		return &Conflict{EntityType: entityType, EntityID: change.EntityID, Reason: err.Error()}
	}
	if !hasLocal {
		return nil
	}
	remoteTs, _ := parseEntryTime(change.Timestamp)
	if localUpdatedAt > remoteTs {
		return &Conflict{EntityType: entityType, EntityID: change.EntityID, Reason: "delete-update-conflict"}
	}
	return l.softDelete(ctx, entityType, change.EntityID, remoteTs)
}

func (l *LegacyIncrementalSync) applyRestore(ctx context.Context, entityType model.EntityType, change ChangeEntry) *Conflict {
	deletedAt, deleted, err := l.localDeletedAt(ctx, entityType, change.EntityID)
	if err != nil {
		return &Conflict{EntityType: entityType, EntityID: change.EntityID, Reason: err.Error()}
	}
	if !deleted {
		return nil
	}
	remoteTs, _ := parseEntryTime(change.Timestamp)
	if deletedAt > remoteTs {
		return &Conflict{EntityType: entityType, EntityID: change.EntityID, Reason: "restore-delete-conflict"}
	}
	return l.restore(ctx, entityType, change.EntityID, change.ChangeData)
}

func parseEntryTime(s string) (int64, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}

var keyFieldNames = []string{"content", "title", "tags", "is_completed", "is_deleted"}

func keyFieldsFromPayload(payload map[string]any) map[string]any {
	out := make(map[string]any, len(keyFieldNames))
	for _, f := range keyFieldNames {
		out[f] = payload[f]
	}
	return out
}

func keyFieldsEqual(a, b map[string]any) bool {
	for _, f := range keyFieldNames {
		if fmt.Sprint(a[f]) != fmt.Sprint(b[f]) {
			return false
		}
	}
	return true
}
