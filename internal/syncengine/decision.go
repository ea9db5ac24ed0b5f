package syncengine

import "github.com/flashnote/syncd/internal/model"

// Decision is the per-file-id action Scan & Diff assigns, per the table in
// spec §4.6 (B).
type Decision string

const (
	DecisionSkip         Decision = "skip"
	DecisionUpload       Decision = "upload"
	DecisionDownload     Decision = "download"
	DecisionDeleteLocal  Decision = "delete-local"
	DecisionUploadDelete Decision = "upload-delete"
	DecisionConflict     Decision = "conflict"
)

// Task is one file-id's diff outcome, carrying everything Execute needs.
type Task struct {
	FileID        string
	Decision      Decision
	Local         *model.FileEntry
	Remote        *model.FileEntry
	OldRemotePath string // set when an upload must also clean up a stale-extension object
}

func isGlobalFile(fileID string) bool {
	return fileID == model.FileIDGlobalTodos || fileID == model.FileIDGlobalSettings
}

// decide implements the Remote x Local decision table. cachedLocal and
// cachedRemote are this file-id's entry in the last-committed manifest (or
// nil), used to determine "changed vs cached".
func decide(fileID string, remote, local, cachedLocal, cachedRemote *model.FileEntry, hasConflictHandler bool) Task {
	t := Task{FileID: fileID, Local: local, Remote: remote}

	switch {
	case remote == nil && local == nil:
		t.Decision = DecisionSkip

	case remote != nil && remote.Alive() && local == nil:
		t.Decision = DecisionDownload

	case remote != nil && !remote.Alive() && local == nil:
		t.Decision = DecisionSkip

	case remote == nil && local != nil && local.Alive():
		t.Decision = DecisionUpload

	case remote == nil && local != nil && !local.Alive():
		t.Decision = DecisionSkip

	case remote != nil && !remote.Alive() && local != nil && local.Alive():
		// Remote deletion wins unless the tombstone predates local's own
		// change (local re-created/edited after the remote delete).
		if local.T > remote.T {
			t.Decision = DecisionUpload
		} else {
			t.Decision = DecisionDeleteLocal
		}

	case remote != nil && remote.Alive() && local != nil && !local.Alive():
		t.Decision = DecisionUploadDelete

	case remote != nil && !remote.Alive() && local != nil && !local.Alive():
		t.Decision = DecisionSkip

	case remote != nil && remote.Alive() && local != nil && local.Alive():
		t = decideBothAlive(fileID, remote, local, cachedLocal, cachedRemote, hasConflictHandler)
		t.FileID = fileID

	default:
		t.Decision = DecisionSkip
	}

	return t
}

func decideBothAlive(fileID string, remote, local, cachedLocal, cachedRemote *model.FileEntry, hasConflictHandler bool) Task {
	t := Task{Local: local, Remote: remote}

	if local.Ext != remote.Ext {
		if local.T >= remote.T {
			t.Decision = DecisionUpload
			t.OldRemotePath = "" // filled in by caller, which knows the path prefix
		} else {
			t.Decision = DecisionDownload
		}
		return t
	}

	if local.H == remote.H {
		t.Decision = DecisionSkip
		return t
	}

	localChanged := cachedLocal == nil || cachedLocal.H != local.H
	remoteChanged := cachedRemote == nil || cachedRemote.H != remote.H

	if localChanged && remoteChanged && !isGlobalFile(fileID) && hasConflictHandler {
		t.Decision = DecisionConflict
		return t
	}

	if local.T >= remote.T {
		t.Decision = DecisionUpload
	} else {
		t.Decision = DecisionDownload
	}
	return t
}
