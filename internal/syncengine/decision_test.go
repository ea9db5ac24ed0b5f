package syncengine

import (
	"testing"

	"github.com/flashnote/syncd/internal/model"
)

func alive(t, h int64, hash string) *model.FileEntry {
	return &model.FileEntry{V: 1, T: t, H: hash, D: 0, Ext: ".md"}
}

func tombstone(t int64) *model.FileEntry {
	return &model.FileEntry{V: 1, T: t, D: 1, Ext: ".md"}
}

func TestDecideBothAbsentSkips(t *testing.T) {
	task := decide("f1", nil, nil, nil, nil, false)
	if task.Decision != DecisionSkip {
		t.Fatalf("got %s, want skip", task.Decision)
	}
}

func TestDecideRemoteAliveLocalAbsentDownloads(t *testing.T) {
	task := decide("f1", alive(10, 0, "h1"), nil, nil, nil, false)
	if task.Decision != DecisionDownload {
		t.Fatalf("got %s, want download", task.Decision)
	}
}

func TestDecideRemoteTombstoneLocalAbsentSkips(t *testing.T) {
	task := decide("f1", tombstone(10), nil, nil, nil, false)
	if task.Decision != DecisionSkip {
		t.Fatalf("got %s, want skip", task.Decision)
	}
}

func TestDecideRemoteAbsentLocalAliveUploads(t *testing.T) {
	task := decide("f1", nil, alive(10, 0, "h1"), nil, nil, false)
	if task.Decision != DecisionUpload {
		t.Fatalf("got %s, want upload", task.Decision)
	}
}

func TestDecideRemoteAbsentLocalTombstoneSkips(t *testing.T) {
	task := decide("f1", nil, tombstone(10), nil, nil, false)
	if task.Decision != DecisionSkip {
		t.Fatalf("got %s, want skip", task.Decision)
	}
}

func TestDecideRemoteTombstoneLocalAliveDeletesLocalWhenTombstoneNewer(t *testing.T) {
	task := decide("f1", tombstone(20), alive(10, 0, "h1"), nil, nil, false)
	if task.Decision != DecisionDeleteLocal {
		t.Fatalf("got %s, want delete-local", task.Decision)
	}
}

func TestDecideRemoteTombstoneLocalAliveUploadsWhenLocalNewer(t *testing.T) {
	task := decide("f1", tombstone(10), alive(20, 0, "h1"), nil, nil, false)
	if task.Decision != DecisionUpload {
		t.Fatalf("got %s, want upload", task.Decision)
	}
}

func TestDecideRemoteAliveLocalTombstoneUploadsDelete(t *testing.T) {
	task := decide("f1", alive(10, 0, "h1"), tombstone(20), nil, nil, false)
	if task.Decision != DecisionUploadDelete {
		t.Fatalf("got %s, want upload-delete", task.Decision)
	}
}

func TestDecideBothTombstonedSkips(t *testing.T) {
	task := decide("f1", tombstone(10), tombstone(20), nil, nil, false)
	if task.Decision != DecisionSkip {
		t.Fatalf("got %s, want skip", task.Decision)
	}
}

func TestDecideBothAliveSameHashSkips(t *testing.T) {
	task := decide("f1", alive(10, 0, "h1"), alive(20, 0, "h1"), nil, nil, false)
	if task.Decision != DecisionSkip {
		t.Fatalf("got %s, want skip", task.Decision)
	}
}

func TestDecideBothAliveExtMismatchPicksNewerTime(t *testing.T) {
	remote := alive(10, 0, "h1")
	remote.Ext = ".md"
	local := alive(20, 0, "h2")
	local.Ext = ".wb"
	task := decide("f1", remote, local, nil, nil, false)
	if task.Decision != DecisionUpload {
		t.Fatalf("got %s, want upload", task.Decision)
	}

	remote2 := alive(20, 0, "h1")
	remote2.Ext = ".md"
	local2 := alive(10, 0, "h2")
	local2.Ext = ".wb"
	task2 := decide("f1", remote2, local2, nil, nil, false)
	if task2.Decision != DecisionDownload {
		t.Fatalf("got %s, want download", task2.Decision)
	}
}

func TestDecideBothAliveDivergedFallsBackToNewerWithoutHandler(t *testing.T) {
	cachedLocal := alive(5, 0, "base")
	cachedRemote := alive(5, 0, "base")
	remote := alive(10, 0, "remoteHash")
	local := alive(20, 0, "localHash")

	task := decide("f1", remote, local, cachedLocal, cachedRemote, false)
	if task.Decision != DecisionUpload {
		t.Fatalf("got %s, want upload (no handler registered)", task.Decision)
	}
}

func TestDecideBothAliveDivergedEscalatesToConflictWithHandler(t *testing.T) {
	cachedLocal := alive(5, 0, "base")
	cachedRemote := alive(5, 0, "base")
	remote := alive(10, 0, "remoteHash")
	local := alive(20, 0, "localHash")

	task := decide("f1", remote, local, cachedLocal, cachedRemote, true)
	if task.Decision != DecisionConflict {
		t.Fatalf("got %s, want conflict", task.Decision)
	}
}

func TestDecideGlobalFileNeverEscalatesToConflict(t *testing.T) {
	cachedLocal := alive(5, 0, "base")
	cachedRemote := alive(5, 0, "base")
	remote := alive(10, 0, "remoteHash")
	local := alive(20, 0, "localHash")

	task := decide(model.FileIDGlobalTodos, remote, local, cachedLocal, cachedRemote, true)
	if task.Decision == DecisionConflict {
		t.Fatalf("global file id must never produce a conflict decision")
	}
	if task.Decision != DecisionUpload {
		t.Fatalf("got %s, want upload (higher t wins)", task.Decision)
	}
}

func TestDecideOnlyOneSideChangedSincePriorCommitWinsWithoutConflict(t *testing.T) {
	cachedLocal := alive(5, 0, "base")
	cachedRemote := alive(5, 0, "base")
	remote := alive(5, 0, "base")
	local := alive(20, 0, "localHash")

	task := decide("f1", remote, local, cachedLocal, cachedRemote, true)
	if task.Decision != DecisionUpload {
		t.Fatalf("got %s, want upload (only local changed)", task.Decision)
	}
}
