// Package localstore implements the StorageAdapter (spec §4.3): a typed
// view over local notes/todos/settings keyed by sync_id, sitting on top of
// a Repository the host application provides.
//
// The local relational store's schema migrations and DAO surface are
// explicitly out of this module's scope (spec §1) — "assumed available as
// a typed repository". Repository is that assumed collaborator's
// interface; localstore only depends on it, never on a concrete SQL
// driver.
package localstore

import (
	"context"

	"github.com/flashnote/syncd/internal/model"
)

// Repository is the local relational store's sync-relevant surface, as a
// typed DAO. A real implementation (SQLite, schema migrations, query
// builder, etc.) lives in the host application and is out of scope here;
// MemRepository in this package is a test fake, not a production adapter.
type Repository interface {
	AllNotes(ctx context.Context, includeDeleted bool) ([]model.Note, error)
	GetNote(ctx context.Context, syncID string, includeDeleted bool) (*model.Note, error)
	PutNote(ctx context.Context, n model.Note, skipChangeLog bool) error
	SoftDeleteNote(ctx context.Context, syncID string, deletedAt int64, skipChangeLog bool) error

	AllTodos(ctx context.Context, includeDeleted bool) ([]model.Todo, error)
	GetTodo(ctx context.Context, syncID string, includeDeleted bool) (*model.Todo, error)
	PutTodo(ctx context.Context, t model.Todo, skipChangeLog bool) error
	SoftDeleteTodo(ctx context.Context, syncID string, deletedAt int64, skipChangeLog bool) error

	AllSettings(ctx context.Context) ([]model.Setting, error)
	PutSettings(ctx context.Context, settings []model.Setting) error
}
