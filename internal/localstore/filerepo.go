package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/flashnote/syncd/internal/model"
)

// FileRepository is a flat-file Repository for running cmd/syncd
// standalone, outside a host application that already owns a real DAO. It
// is not the schema-migrated relational store spec.md assumes (out of
// this module's scope); it exists so the daemon binary has somewhere to
// read and write notes/todos/settings without one.
type FileRepository struct {
	path string

	mu       sync.Mutex
	notes    map[string]model.Note
	todos    map[string]model.Todo
	settings map[string]model.Setting
}

type fileRepoSnapshot struct {
	Notes    map[string]model.Note    `json:"notes"`
	Todos    map[string]model.Todo    `json:"todos"`
	Settings map[string]model.Setting `json:"settings"`
}

// OpenFileRepository loads path if it exists, or starts empty.
func OpenFileRepository(path string) (*FileRepository, error) {
	r := &FileRepository{
		path:     path,
		notes:    make(map[string]model.Note),
		todos:    make(map[string]model.Todo),
		settings: make(map[string]model.Setting),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("localstore: reading %s: %w", path, err)
	}

	var snap fileRepoSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("localstore: parsing %s: %w", path, err)
	}
	if snap.Notes != nil {
		r.notes = snap.Notes
	}
	if snap.Todos != nil {
		r.todos = snap.Todos
	}
	if snap.Settings != nil {
		r.settings = snap.Settings
	}
	return r, nil
}

// persist writes the full snapshot. Callers hold r.mu.
func (r *FileRepository) persist() error {
	snap := fileRepoSnapshot{Notes: r.notes, Todos: r.todos, Settings: r.settings}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("localstore: creating data dir: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}

func (r *FileRepository) AllNotes(_ context.Context, includeDeleted bool) ([]model.Note, error) {
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

func (r *FileRepository) GetNote(_ context.Context, syncID string, includeDeleted bool) (*model.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notes[syncID]
	if !ok || (n.Deleted && !includeDeleted) {
		return nil, nil
	}
	cp := n
	return &cp, nil
}

func (r *FileRepository) PutNote(_ context.Context, n model.Note, _ bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes[n.SyncID] = n
	return r.persist()
}

func (r *FileRepository) SoftDeleteNote(_ context.Context, syncID string, deletedAt int64, _ bool) error {
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
	return r.persist()
}

func (r *FileRepository) AllTodos(_ context.Context, includeDeleted bool) ([]model.Todo, error) {
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

func (r *FileRepository) GetTodo(_ context.Context, syncID string, includeDeleted bool) (*model.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.todos[syncID]
	if !ok || (t.Deleted && !includeDeleted) {
		return nil, nil
	}
	cp := t
	return &cp, nil
}

func (r *FileRepository) PutTodo(_ context.Context, t model.Todo, _ bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.todos[t.SyncID] = t
	return r.persist()
}

func (r *FileRepository) SoftDeleteTodo(_ context.Context, syncID string, deletedAt int64, _ bool) error {
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
	return r.persist()
}

func (r *FileRepository) AllSettings(_ context.Context) ([]model.Setting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Setting, 0, len(r.settings))
	for _, s := range r.settings {
		out = append(out, s)
	}
	return out, nil
}

func (r *FileRepository) PutSettings(_ context.Context, settings []model.Setting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range settings {
		r.settings[s.Key] = s
	}
	return r.persist()
}
