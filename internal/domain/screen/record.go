// Package screen defines the sync-aware screen record persisted by the local cache store.
package screen

import (
	"time"
)

// SyncStatus represents the synchronization state of a record.
type SyncStatus string

const (
	StatusPending SyncStatus = "pending" // Local changes not yet pushed
	StatusSynced  SyncStatus = "synced"  // Remote confirmed the latest local payload
	StatusFailed  SyncStatus = "failed"  // Last push attempt failed, eligible for retry
)

// Record is a locally cached screen definition with per-record sync tracking.
//
// LocalID is assigned by the store on first insert and is stable for the
// record's local lifetime. ScreenID is the externally assigned business key;
// the store enforces its uniqueness.
type Record struct {
	LocalID         int64      // Store-assigned identity (0 means not yet inserted)
	ScreenID        string     // Unique business key, immutable after creation
	Name            string     // Human-readable screen name
	JSONPayload     string     // Opaque serialized screen definition
	Version         int64      // Bumped on each successful remote sync
	SyncStatus      SyncStatus // Current sync state
	FailedAttempts  int        // Consecutive failed push attempts
	LastSyncedAt    *time.Time // Last remote confirmation (or failed attempt) time
	LocalModifiedAt time.Time  // Updated on every local mutation
	IsDeleted       bool       // Soft-delete marker, purged after confirmed remote deletion
	HasConflict     bool       // Remote diverged from the local payload
	RemoteVersion   string     // Divergent remote payload held for resolution
}

// NewRecord creates a freshly authored, not-yet-synced record. It starts
// pending so the next sync pass picks it up.
func NewRecord(screenID, name, payload string) *Record {
	return &Record{
		ScreenID:        screenID,
		Name:            name,
		JSONPayload:     payload,
		Version:         0,
		SyncStatus:      StatusPending,
		LocalModifiedAt: time.Now(),
	}
}

// MarkPending flags the record as locally modified and awaiting sync.
// Failed-attempt counters are left untouched.
func (r *Record) MarkPending() {
	r.SyncStatus = StatusPending
	r.LocalModifiedAt = time.Now()
}

// MarkSynced records a successful remote confirmation: attempts reset,
// version bumps, and the sync timestamp advances.
func (r *Record) MarkSynced() {
	now := time.Now()
	r.SyncStatus = StatusSynced
	r.FailedAttempts = 0
	r.Version++
	r.LastSyncedAt = &now
}

// MarkFailed records a failed push attempt. LastSyncedAt is stamped with the
// attempt time, not a success.
func (r *Record) MarkFailed() {
	now := time.Now()
	r.SyncStatus = StatusFailed
	r.FailedAttempts++
	r.LastSyncedAt = &now
}

// MarkConflict flags divergence from a remote payload. Conflict state is
// orthogonal to SyncStatus; the record stays out of the normal sync path
// until the conflict is resolved.
func (r *Record) MarkConflict(remotePayload string) {
	r.HasConflict = true
	r.RemoteVersion = remotePayload
}

// ClearConflict drops the conflict marker and the held remote payload.
func (r *Record) ClearConflict() {
	r.HasConflict = false
	r.RemoteVersion = ""
}

// SoftDelete marks the record deleted locally. The record remains queryable
// until the sync layer confirms remote deletion and purges it.
func (r *Record) SoftDelete() {
	r.IsDeleted = true
	r.MarkPending()
}

// NeedsSync reports whether the record should be included in the next sync pass.
func (r *Record) NeedsSync() bool {
	return r.SyncStatus == StatusPending || r.SyncStatus == StatusFailed
}

// PayloadSize returns the serialized payload size in bytes, for
// storage-budget monitoring.
func (r *Record) PayloadSize() int {
	return len(r.JSONPayload)
}

// Filter defines criteria for querying records from the store.
type Filter struct {
	Status         []SyncStatus  // Filter by sync status (empty for all)
	HasConflict    *bool         // Filter by conflict marker (nil for all)
	IncludeDeleted bool          // Include soft-deleted records
	ModifiedWithin time.Duration // Only records modified within this window of now (0 for all)
	Limit          int           // Maximum results (0 for all)
}
