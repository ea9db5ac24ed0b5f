package localstore

import (
	"context"
	"sync"

	"github.com/flashnote/syncd/internal/model"
)

// MemRepository is an in-memory Repository used by tests in this module
// and by syncengine/changelog tests. It is not a production local store —
// the real DAO/migrations surface is the host application's, out of this
// module's scope.
type MemRepository struct {
	mu       sync.Mutex
	notes    map[string]model.Note
	todos    map[string]model.Todo
	settings map[string]model.Setting
}

// NewMemRepository creates an empty in-memory repository.
func NewMemRepository() *MemRepository {
	return &MemRepository{
		notes:    make(map[string]model.Note),
		todos:    make(map[string]model.Todo),
		settings: make(map[string]model.Setting),
	}
}

func (r *MemRepository) AllNotes(_ context.Context, includeDeleted bool) ([]model.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Note, 0, len(r.notes))
	for _, n := range r.notes {
		if n.Deleted && !includeDeleted {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (r *MemRepository) GetNote(_ context.Context, syncID string, includeDeleted bool) (*model.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notes[syncID]
	if !ok {
		return nil, nil
	}
	if n.Deleted && !includeDeleted {
		return nil, nil
	}
	cp := n
	return &cp, nil
}

func (r *MemRepository) PutNote(_ context.Context, n model.Note, _ bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes[n.SyncID] = n
	return nil
}

func (r *MemRepository) SoftDeleteNote(_ context.Context, syncID string, deletedAt int64, _ bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notes[syncID]
	if !ok {
		return nil
	}
	n.Deleted = true
	n.DeletedAt = deletedAt
	n.UpdatedAt = deletedAt
	r.notes[syncID] = n
	return nil
}

func (r *MemRepository) AllTodos(_ context.Context, includeDeleted bool) ([]model.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Todo, 0, len(r.todos))
	for _, t := range r.todos {
		if t.Deleted && !includeDeleted {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *MemRepository) GetTodo(_ context.Context, syncID string, includeDeleted bool) (*model.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.todos[syncID]
	if !ok {
		return nil, nil
	}
	if t.Deleted && !includeDeleted {
		return nil, nil
	}
	cp := t
	return &cp, nil
}

func (r *MemRepository) PutTodo(_ context.Context, t model.Todo, _ bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.todos[t.SyncID] = t
	return nil
}

func (r *MemRepository) SoftDeleteTodo(_ context.Context, syncID string, deletedAt int64, _ bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.todos[syncID]
	if !ok {
		return nil
	}
	t.Deleted = true
	t.DeletedAt = deletedAt
	t.UpdatedAt = deletedAt
	r.todos[syncID] = t
	return nil
}

func (r *MemRepository) AllSettings(_ context.Context) ([]model.Setting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Setting, 0, len(r.settings))
	for _, s := range r.settings {
		out = append(out, s)
	}
	return out, nil
}

func (r *MemRepository) PutSettings(_ context.Context, settings []model.Setting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range settings {
		r.settings[s.Key] = s
	}
	return nil
}
