// Package model defines the entity shapes the sync core operates on.
//
// These mirror the sync-relevant projection of Note/Todo/Setting rows as
// seen through the StorageAdapter — authoring, editor behavior and the
// local schema itself live outside this module's scope.
package model

// NoteKind distinguishes markdown notes from whiteboard notes; it decides
// both the remote file extension and the hashing/front-matter rules.
type NoteKind string

const (
	NoteKindMarkdown   NoteKind = "markdown"
	NoteKindWhiteboard NoteKind = "whiteboard"
)

// Ext returns the remote object extension for the note kind.
func (k NoteKind) Ext() string {
	if k == NoteKindWhiteboard {
		return ".wb"
	}
	return ".md"
}

// Note is the sync-relevant projection of a note row.
type Note struct {
	SyncID    string
	LocalID   int64
	Title     string
	Body      string
	Kind      NoteKind
	Tags      string
	Category  string
	Pinned    bool
	Favorite  bool
	CreatedAt int64 // ms since epoch
	UpdatedAt int64 // ms since epoch
	Deleted   bool
	DeletedAt int64 // ms since epoch, 0 if not deleted
}

// Todo is the sync-relevant projection of a todo row.
type Todo struct {
	SyncID       string
	LocalID      int64
	Content      string
	Description  string
	Tags         string
	Important    bool
	Urgent       bool
	DueAt        int64
	EndAt        int64
	HasTime      bool
	FocusSeconds int64
	Repeat       string
	ParentTodoID string
	Completed    bool
	CompletedAt  int64
	UpdatedAt    int64
	Deleted      bool
	DeletedAt    int64
}

// SettingValueKind declares how a Setting's raw value is encoded/decoded.
type SettingValueKind string

const (
	SettingString  SettingValueKind = "string"
	SettingNumber  SettingValueKind = "number"
	SettingBoolean SettingValueKind = "boolean"
	SettingJSON    SettingValueKind = "json"
)

// Setting is a single key/value row in the settings table.
type Setting struct {
	Key   string
	Kind  SettingValueKind
	Value any
}

// ChangeOperation enumerates the journal's mutation kinds.
type ChangeOperation string

const (
	OpCreate  ChangeOperation = "create"
	OpUpdate  ChangeOperation = "update"
	OpDelete  ChangeOperation = "delete"
	OpRestore ChangeOperation = "restore"
)

// EntityType enumerates the journal's entity kinds.
type EntityType string

const (
	EntityNote EntityType = "note"
	EntityTodo EntityType = "todo"
)

// ChangeLogRecord is one append-only journal row.
type ChangeLogRecord struct {
	ID         int64
	EntityType EntityType
	EntityID   string // == sync_id, never the local integer id
	Operation  ChangeOperation
	Payload    map[string]any
	DeviceID   string
	CreatedAt  int64
	Synced     bool
	SyncedAt   int64
}

// Reserved file-ids for the two aggregate blobs.
const (
	FileIDGlobalTodos    = "global_todos"
	FileIDGlobalSettings = "global_settings"
)

// NoteMeta is the optional per-note metadata carried in a FileEntry.
type NoteMeta struct {
	Title    string `json:"title"`
	Tags     string `json:"tags"`
	Category string `json:"category"`
	Pinned   int    `json:"is_pinned"`
	Favorite int    `json:"is_favorite"`
	NoteType string `json:"note_type"`
}

// FileEntry is a single manifest record.
type FileEntry struct {
	V    int       `json:"v"`
	T    int64     `json:"t"`
	C    int64     `json:"c,omitempty"`
	H    string    `json:"h"`
	D    int       `json:"d"`
	Ext  string    `json:"ext"`
	Meta *NoteMeta `json:"meta,omitempty"`
}

// Alive reports whether this entry represents a live (non-tombstone) object.
func (f FileEntry) Alive() bool { return f.D == 0 }

// Manifest is the JSON catalog persisted both locally and at
// <root>/manifest.json.
type Manifest struct {
	Version       int                  `json:"version"`
	LastSyncedAt  int64                `json:"last_synced_at"`
	DeviceID      string               `json:"device_id"`
	Files         map[string]FileEntry `json:"files"`
}

// ManifestVersion is the current wire version written by this engine.
const ManifestVersion = 3

// Clone returns a deep copy of the manifest, safe to mutate independently.
func (m *Manifest) Clone() *Manifest {
	out := &Manifest{
		Version:      m.Version,
		LastSyncedAt: m.LastSyncedAt,
		DeviceID:     m.DeviceID,
		Files:        make(map[string]FileEntry, len(m.Files)),
	}
	for k, v := range m.Files {
		if v.Meta != nil {
			meta := *v.Meta
			v.Meta = &meta
		}
		out.Files[k] = v
	}
	return out
}
