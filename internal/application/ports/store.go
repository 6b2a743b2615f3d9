// Package ports defines the application layer port interfaces following hexagonal architecture.
// Ports are abstractions that allow the application core to interact with external systems
// (adapters) without knowing their implementation details.
package ports

import (
	"context"
	"time"

	"github.com/ikolvi/quicui-core/internal/domain/screen"
)

// ScreenStorePort defines the local cache store contract for screen records.
//
// The store exclusively owns persisted records. It enforces screenID
// uniqueness and assigns localID on first insert. All operations after Close
// fail fast with ErrStoreClosed rather than silently no-oping.
type ScreenStorePort interface {
	// Open opens the store, creating the backing schema if needed.
	Open(ctx context.Context) error

	// IsOpen reports whether the store is currently usable.
	IsOpen() bool

	// Close releases the store. Further operations fail with ErrStoreClosed.
	Close() error

	// Put inserts or updates a record. A zero LocalID inserts and returns the
	// newly assigned localID; a non-zero LocalID overwrites all fields of the
	// existing record. Inserting a record whose ScreenID already exists under
	// a different localID fails with ErrDuplicateScreenID.
	Put(ctx context.Context, rec *screen.Record) (int64, error)

	// PutMany is the batch form of Put with all-or-nothing semantics: a
	// failure on any record rolls back the whole batch.
	PutMany(ctx context.Context, recs []*screen.Record) ([]int64, error)

	// Get retrieves a record by localID. Returns ErrRecordNotFound if absent.
	Get(ctx context.Context, localID int64) (*screen.Record, error)

	// GetByScreenID retrieves a record by its business key.
	// Returns ErrRecordNotFound if absent.
	GetByScreenID(ctx context.Context, screenID string) (*screen.Record, error)

	// GetAll returns every stored record, soft-deleted ones included.
	GetAll(ctx context.Context) ([]*screen.Record, error)

	// GetNeedingSync returns all records whose status is not synced,
	// in insertion order.
	GetNeedingSync(ctx context.Context) ([]*screen.Record, error)

	// GetByStatus returns all records with the given sync status.
	GetByStatus(ctx context.Context, status screen.SyncStatus) ([]*screen.Record, error)

	// GetWithConflicts returns all records flagged with a conflict.
	GetWithConflicts(ctx context.Context) ([]*screen.Record, error)

	// GetRecentlyModified returns records whose LocalModifiedAt falls within
	// the window of now.
	GetRecentlyModified(ctx context.Context, window time.Duration) ([]*screen.Record, error)

	// List returns records matching the filter criteria.
	List(ctx context.Context, filter *screen.Filter) ([]*screen.Record, error)

	// Delete removes a record by localID. Returns false if absent.
	Delete(ctx context.Context, localID int64) (bool, error)

	// DeleteByScreenID removes a record by business key. Returns false if absent.
	DeleteByScreenID(ctx context.Context, screenID string) (bool, error)

	// DeleteMany removes the given records in one transaction.
	DeleteMany(ctx context.Context, localIDs []int64) error

	// ClearAll removes every record. Destructive and irreversible; callers
	// are responsible for confirmation.
	ClearAll(ctx context.Context) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// CountByStatus returns the number of records with the given status.
	CountByStatus(ctx context.Context, status screen.SyncStatus) (int, error)

	// TotalPayloadSize returns the summed serialized payload size in bytes,
	// for storage-budget monitoring.
	TotalPayloadSize(ctx context.Context) (int64, error)

	// MarkSyncedIf performs the optimistic-concurrency commit of a sync pass:
	// it marks the record synced, bumps version, and resets attempts only if
	// the stored version still equals expectedVersion. When the record changed
	// underneath the pass it returns ErrVersionChanged and leaves the record
	// untouched.
	MarkSyncedIf(ctx context.Context, localID int64, expectedVersion int64) error

	// MarkFailed increments the record's failed-attempt counter and stamps
	// the attempt time, atomically.
	MarkFailed(ctx context.Context, localID int64) error

	// SetConflict flags the record with a divergent remote payload held for
	// manual resolution.
	SetConflict(ctx context.Context, localID int64, remotePayload string) error

	// ClearConflict drops a record's conflict marker.
	ClearConflict(ctx context.Context, localID int64) error

	// Purge hard-deletes a soft-deleted record after its remote deletion was
	// confirmed. Purging a record that is not soft-deleted is an error.
	Purge(ctx context.Context, localID int64) error
}
