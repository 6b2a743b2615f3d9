package screen

import (
	"testing"
	"time"
)

func TestNewRecordStartsPending(t *testing.T) {
	r := NewRecord("welcome", "Welcome", `{"type":"column"}`)

	if r.SyncStatus != StatusPending {
		t.Errorf("SyncStatus = %s, want %s", r.SyncStatus, StatusPending)
	}
	if r.FailedAttempts != 0 {
		t.Errorf("FailedAttempts = %d, want 0", r.FailedAttempts)
	}
	if r.Version != 0 {
		t.Errorf("Version = %d, want 0", r.Version)
	}
	if r.LocalModifiedAt.IsZero() {
		t.Error("LocalModifiedAt not set on creation")
	}
	if !r.NeedsSync() {
		t.Error("fresh record must need sync")
	}
}

func TestMarkSyncedResetsAttempts(t *testing.T) {
	r := NewRecord("welcome", "Welcome", "{}")
	r.MarkFailed()
	r.MarkFailed()

	r.MarkSynced()

	if r.SyncStatus != StatusSynced {
		t.Errorf("SyncStatus = %s, want %s", r.SyncStatus, StatusSynced)
	}
	if r.FailedAttempts != 0 {
		t.Errorf("FailedAttempts = %d, want 0 after MarkSynced", r.FailedAttempts)
	}
	if r.Version != 1 {
		t.Errorf("Version = %d, want 1 after first successful sync", r.Version)
	}
	if r.LastSyncedAt == nil {
		t.Fatal("LastSyncedAt not set by MarkSynced")
	}
	if r.NeedsSync() {
		t.Error("synced record must not need sync")
	}
}

func TestMarkFailedIncrementsAttempts(t *testing.T) {
	r := NewRecord("welcome", "Welcome", "{}")

	for i := 1; i <= 3; i++ {
		r.MarkFailed()
		if r.FailedAttempts != i {
			t.Errorf("after %d failures FailedAttempts = %d", i, r.FailedAttempts)
		}
	}

	if r.SyncStatus != StatusFailed {
		t.Errorf("SyncStatus = %s, want %s", r.SyncStatus, StatusFailed)
	}
	if r.LastSyncedAt == nil {
		t.Error("LastSyncedAt must record the failed attempt time")
	}
	if !r.NeedsSync() {
		t.Error("failed record stays eligible for retry")
	}
}

func TestMarkPendingKeepsAttempts(t *testing.T) {
	r := NewRecord("welcome", "Welcome", "{}")
	r.MarkFailed()
	before := r.LocalModifiedAt

	time.Sleep(time.Millisecond)
	r.MarkPending()

	if r.FailedAttempts != 1 {
		t.Errorf("FailedAttempts = %d, MarkPending must not touch the counter", r.FailedAttempts)
	}
	if !r.LocalModifiedAt.After(before) {
		t.Error("MarkPending must advance LocalModifiedAt")
	}
}

func TestConflictIsOrthogonalToStatus(t *testing.T) {
	r := NewRecord("welcome", "Welcome", `{"v":"local"}`)
	r.MarkSynced()

	r.MarkConflict(`{"v":"remote"}`)

	if !r.HasConflict {
		t.Error("HasConflict not set")
	}
	if r.RemoteVersion != `{"v":"remote"}` {
		t.Errorf("RemoteVersion = %q", r.RemoteVersion)
	}
	if r.SyncStatus != StatusSynced {
		t.Errorf("conflict marking must not change SyncStatus, got %s", r.SyncStatus)
	}

	r.ClearConflict()
	if r.HasConflict || r.RemoteVersion != "" {
		t.Error("ClearConflict must drop marker and held payload")
	}
}

func TestSoftDelete(t *testing.T) {
	r := NewRecord("welcome", "Welcome", "{}")
	r.MarkSynced()

	r.SoftDelete()

	if !r.IsDeleted {
		t.Error("IsDeleted not set")
	}
	if r.SyncStatus != StatusPending {
		t.Errorf("soft delete must re-enter the sync path, got %s", r.SyncStatus)
	}
}

func TestNeedsSync(t *testing.T) {
	tests := []struct {
		status   SyncStatus
		expected bool
	}{
		{StatusPending, true},
		{StatusFailed, true},
		{StatusSynced, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			r := &Record{SyncStatus: tt.status}
			if got := r.NeedsSync(); got != tt.expected {
				t.Errorf("NeedsSync() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestPayloadSize(t *testing.T) {
	r := NewRecord("welcome", "Welcome", `{"type":"text"}`)
	if got := r.PayloadSize(); got != len(`{"type":"text"}`) {
		t.Errorf("PayloadSize() = %d", got)
	}
}
