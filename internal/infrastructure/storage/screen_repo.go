package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ikolvi/quicui-core/internal/application/ports"
	domainErrors "github.com/ikolvi/quicui-core/internal/domain/errors"
	"github.com/ikolvi/quicui-core/internal/domain/screen"
)

// Compile-time check that ScreenStore implements ScreenStorePort.
var _ ports.ScreenStorePort = (*ScreenStore)(nil)

const screenColumns = `local_id, screen_id, name, json_payload, version, sync_status, failed_attempts, last_synced_at, local_modified_at, is_deleted, has_conflict, remote_version`

// ScreenStore implements ScreenStorePort using SQLite.
type ScreenStore struct {
	conn *Connection
}

// NewScreenStore creates a screen store backed by the given database path.
// An empty path uses the default location under ~/.quicui.
func NewScreenStore(dbPath string) (*ScreenStore, error) {
	conn, err := NewConnection(dbPath)
	if err != nil {
		return nil, err
	}
	return &ScreenStore{conn: conn}, nil
}

// Open opens the store and applies migrations.
func (s *ScreenStore) Open(ctx context.Context) error {
	return s.conn.Open()
}

// IsOpen reports whether the store is currently usable.
func (s *ScreenStore) IsOpen() bool {
	return s.conn.IsOpen()
}

// Close releases the store. Further operations fail with ErrStoreClosed.
func (s *ScreenStore) Close() error {
	return s.conn.Close()
}

// Put inserts or updates a record. See ports.ScreenStorePort for semantics.
func (s *ScreenStore) Put(ctx context.Context, rec *screen.Record) (int64, error) {
	db, err := s.conn.DB()
	if err != nil {
		return 0, err
	}

	if rec.ScreenID == "" {
		return 0, domainErrors.NewError(domainErrors.CodeValidation, "screen ID is required", nil)
	}

	if rec.LocalID == 0 {
		return s.insert(ctx, db, rec)
	}
	return rec.LocalID, s.update(ctx, db, rec)
}

func (s *ScreenStore) insert(ctx context.Context, db *sql.DB, rec *screen.Record) (int64, error) {
	// Explicit duplicate guard so callers get a domain error instead of a
	// driver-specific constraint message.
	var existing int64
	err := db.QueryRowContext(ctx, "SELECT local_id FROM screens WHERE screen_id = ?", rec.ScreenID).Scan(&existing)
	if err == nil {
		return 0, domainErrors.NewError(domainErrors.CodeStore,
			fmt.Sprintf("screen %s already stored under local ID %d", rec.ScreenID, existing),
			domainErrors.ErrDuplicateScreenID)
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to check screen ID: %w", err)
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO screens (screen_id, name, json_payload, version, sync_status, failed_attempts, last_synced_at, local_modified_at, is_deleted, has_conflict, remote_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ScreenID, rec.Name, rec.JSONPayload, rec.Version, string(rec.SyncStatus),
		rec.FailedAttempts, nullableMillis(rec.LastSyncedAt), millis(rec.LocalModifiedAt),
		boolToInt(rec.IsDeleted), boolToInt(rec.HasConflict), rec.RemoteVersion)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return 0, domainErrors.NewError(domainErrors.CodeStore, "duplicate screen ID", domainErrors.ErrDuplicateScreenID)
		}
		return 0, fmt.Errorf("failed to insert screen: %w", err)
	}

	localID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted ID: %w", err)
	}
	rec.LocalID = localID
	return localID, nil
}

func (s *ScreenStore) update(ctx context.Context, db *sql.DB, rec *screen.Record) error {
	res, err := db.ExecContext(ctx, `
		UPDATE screens
		SET screen_id = ?, name = ?, json_payload = ?, version = ?, sync_status = ?, failed_attempts = ?, last_synced_at = ?, local_modified_at = ?, is_deleted = ?, has_conflict = ?, remote_version = ?
		WHERE local_id = ?
	`, rec.ScreenID, rec.Name, rec.JSONPayload, rec.Version, string(rec.SyncStatus),
		rec.FailedAttempts, nullableMillis(rec.LastSyncedAt), millis(rec.LocalModifiedAt),
		boolToInt(rec.IsDeleted), boolToInt(rec.HasConflict), rec.RemoteVersion, rec.LocalID)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return domainErrors.NewError(domainErrors.CodeStore, "duplicate screen ID", domainErrors.ErrDuplicateScreenID)
		}
		return fmt.Errorf("failed to update screen: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return domainErrors.NewError(domainErrors.CodeNotFound,
			fmt.Sprintf("screen record not found: %d", rec.LocalID), domainErrors.ErrRecordNotFound)
	}
	return nil
}

// PutMany is the batch form of Put with all-or-nothing semantics.
func (s *ScreenStore) PutMany(ctx context.Context, recs []*screen.Record) ([]int64, error) {
	db, err := s.conn.DB()
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	ids := make([]int64, 0, len(recs))
	for _, rec := range recs {
		if rec.ScreenID == "" {
			return nil, domainErrors.NewError(domainErrors.CodeValidation, "screen ID is required", nil)
		}
		if rec.LocalID == 0 {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO screens (screen_id, name, json_payload, version, sync_status, failed_attempts, last_synced_at, local_modified_at, is_deleted, has_conflict, remote_version)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, rec.ScreenID, rec.Name, rec.JSONPayload, rec.Version, string(rec.SyncStatus),
				rec.FailedAttempts, nullableMillis(rec.LastSyncedAt), millis(rec.LocalModifiedAt),
				boolToInt(rec.IsDeleted), boolToInt(rec.HasConflict), rec.RemoteVersion)
			if err != nil {
				if strings.Contains(err.Error(), "UNIQUE constraint") {
					return nil, domainErrors.NewError(domainErrors.CodeStore, "duplicate screen ID", domainErrors.ErrDuplicateScreenID)
				}
				return nil, fmt.Errorf("failed to insert screen %s: %w", rec.ScreenID, err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return nil, fmt.Errorf("failed to read inserted ID: %w", err)
			}
			rec.LocalID = id
			ids = append(ids, id)
			continue
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE screens
			SET screen_id = ?, name = ?, json_payload = ?, version = ?, sync_status = ?, failed_attempts = ?, last_synced_at = ?, local_modified_at = ?, is_deleted = ?, has_conflict = ?, remote_version = ?
			WHERE local_id = ?
		`, rec.ScreenID, rec.Name, rec.JSONPayload, rec.Version, string(rec.SyncStatus),
			rec.FailedAttempts, nullableMillis(rec.LastSyncedAt), millis(rec.LocalModifiedAt),
			boolToInt(rec.IsDeleted), boolToInt(rec.HasConflict), rec.RemoteVersion, rec.LocalID)
		if err != nil {
			return nil, fmt.Errorf("failed to update screen %s: %w", rec.ScreenID, err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to check update result: %w", err)
		}
		if rows == 0 {
			return nil, domainErrors.NewError(domainErrors.CodeNotFound,
				fmt.Sprintf("screen record not found: %d", rec.LocalID), domainErrors.ErrRecordNotFound)
		}
		ids = append(ids, rec.LocalID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("could not commit batch: %w", err)
	}
	return ids, nil
}

// Get retrieves a record by localID.
func (s *ScreenStore) Get(ctx context.Context, localID int64) (*screen.Record, error) {
	db, err := s.conn.DB()
	if err != nil {
		return nil, err
	}

	rec, err := scanScreenRow(db.QueryRowContext(ctx,
		"SELECT "+screenColumns+" FROM screens WHERE local_id = ?", localID))
	if err == sql.ErrNoRows {
		return nil, domainErrors.NewError(domainErrors.CodeNotFound,
			fmt.Sprintf("screen record not found: %d", localID), domainErrors.ErrRecordNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get screen: %w", err)
	}
	return rec, nil
}

// GetByScreenID retrieves a record by its business key.
func (s *ScreenStore) GetByScreenID(ctx context.Context, screenID string) (*screen.Record, error) {
	db, err := s.conn.DB()
	if err != nil {
		return nil, err
	}

	rec, err := scanScreenRow(db.QueryRowContext(ctx,
		"SELECT "+screenColumns+" FROM screens WHERE screen_id = ?", screenID))
	if err == sql.ErrNoRows {
		return nil, domainErrors.NewError(domainErrors.CodeNotFound,
			fmt.Sprintf("screen record not found: %s", screenID), domainErrors.ErrRecordNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get screen: %w", err)
	}
	return rec, nil
}

// GetAll returns every stored record in insertion order.
func (s *ScreenStore) GetAll(ctx context.Context) ([]*screen.Record, error) {
	return s.queryScreens(ctx, "SELECT "+screenColumns+" FROM screens ORDER BY local_id")
}

// GetNeedingSync returns all records whose status is not synced, in insertion order.
func (s *ScreenStore) GetNeedingSync(ctx context.Context) ([]*screen.Record, error) {
	return s.queryScreens(ctx,
		"SELECT "+screenColumns+" FROM screens WHERE sync_status != ? ORDER BY local_id",
		string(screen.StatusSynced))
}

// GetByStatus returns all records with the given sync status.
func (s *ScreenStore) GetByStatus(ctx context.Context, status screen.SyncStatus) ([]*screen.Record, error) {
	return s.queryScreens(ctx,
		"SELECT "+screenColumns+" FROM screens WHERE sync_status = ? ORDER BY local_id",
		string(status))
}

// GetWithConflicts returns all records flagged with a conflict.
func (s *ScreenStore) GetWithConflicts(ctx context.Context) ([]*screen.Record, error) {
	return s.queryScreens(ctx,
		"SELECT "+screenColumns+" FROM screens WHERE has_conflict = 1 ORDER BY local_id")
}

// GetRecentlyModified returns records modified within the window of now.
func (s *ScreenStore) GetRecentlyModified(ctx context.Context, window time.Duration) ([]*screen.Record, error) {
	cutoff := time.Now().Add(-window).UnixMilli()
	return s.queryScreens(ctx,
		"SELECT "+screenColumns+" FROM screens WHERE local_modified_at >= ? ORDER BY local_modified_at DESC",
		cutoff)
}

// List returns records matching the filter criteria.
func (s *ScreenStore) List(ctx context.Context, filter *screen.Filter) ([]*screen.Record, error) {
	query := "SELECT " + screenColumns + " FROM screens WHERE 1=1"
	args := []any{}

	if filter != nil {
		if len(filter.Status) > 0 {
			placeholders := make([]string, len(filter.Status))
			for i, st := range filter.Status {
				placeholders[i] = "?"
				args = append(args, string(st))
			}
			query += " AND sync_status IN (" + strings.Join(placeholders, ", ") + ")"
		}
		if filter.HasConflict != nil {
			query += " AND has_conflict = ?"
			args = append(args, boolToInt(*filter.HasConflict))
		}
		if !filter.IncludeDeleted {
			query += " AND is_deleted = 0"
		}
		if filter.ModifiedWithin > 0 {
			query += " AND local_modified_at >= ?"
			args = append(args, time.Now().Add(-filter.ModifiedWithin).UnixMilli())
		}
	}

	query += " ORDER BY local_id"
	if filter != nil && filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	return s.queryScreens(ctx, query, args...)
}

// Delete removes a record by localID. Returns false if absent.
func (s *ScreenStore) Delete(ctx context.Context, localID int64) (bool, error) {
	db, err := s.conn.DB()
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx, "DELETE FROM screens WHERE local_id = ?", localID)
	if err != nil {
		return false, fmt.Errorf("failed to delete screen: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check delete result: %w", err)
	}
	return rows > 0, nil
}

// DeleteByScreenID removes a record by business key. Returns false if absent.
func (s *ScreenStore) DeleteByScreenID(ctx context.Context, screenID string) (bool, error) {
	db, err := s.conn.DB()
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx, "DELETE FROM screens WHERE screen_id = ?", screenID)
	if err != nil {
		return false, fmt.Errorf("failed to delete screen: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check delete result: %w", err)
	}
	return rows > 0, nil
}

// DeleteMany removes the given records in one transaction.
func (s *ScreenStore) DeleteMany(ctx context.Context, localIDs []int64) error {
	db, err := s.conn.DB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range localIDs {
		if _, err := tx.ExecContext(ctx, "DELETE FROM screens WHERE local_id = ?", id); err != nil {
			return fmt.Errorf("failed to delete screen %d: %w", id, err)
		}
	}

	return tx.Commit()
}

// ClearAll removes every record. Destructive; confirmation is the caller's job.
func (s *ScreenStore) ClearAll(ctx context.Context) error {
	db, err := s.conn.DB()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM screens"); err != nil {
		return fmt.Errorf("failed to clear screens: %w", err)
	}
	return nil
}

// Count returns the number of stored records.
func (s *ScreenStore) Count(ctx context.Context) (int, error) {
	db, err := s.conn.DB()
	if err != nil {
		return 0, err
	}
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM screens").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count screens: %w", err)
	}
	return count, nil
}

// CountByStatus returns the number of records with the given status.
func (s *ScreenStore) CountByStatus(ctx context.Context, status screen.SyncStatus) (int, error) {
	db, err := s.conn.DB()
	if err != nil {
		return 0, err
	}
	var count int
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM screens WHERE sync_status = ?", string(status)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count screens: %w", err)
	}
	return count, nil
}

// TotalPayloadSize returns the summed serialized payload size in bytes.
func (s *ScreenStore) TotalPayloadSize(ctx context.Context) (int64, error) {
	db, err := s.conn.DB()
	if err != nil {
		return 0, err
	}
	var total sql.NullInt64
	err = db.QueryRowContext(ctx, "SELECT SUM(LENGTH(CAST(json_payload AS BLOB))) FROM screens").Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum payload sizes: %w", err)
	}
	return total.Int64, nil
}

// MarkSyncedIf atomically marks the record synced when its version is still
// expectedVersion; otherwise the record changed underneath the sync pass and
// ErrVersionChanged is returned.
func (s *ScreenStore) MarkSyncedIf(ctx context.Context, localID int64, expectedVersion int64) error {
	db, err := s.conn.DB()
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, `
		UPDATE screens
		SET sync_status = ?, failed_attempts = 0, version = version + 1, last_synced_at = ?
		WHERE local_id = ? AND version = ?
	`, string(screen.StatusSynced), time.Now().UnixMilli(), localID, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to mark synced: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows > 0 {
		return nil
	}

	// Distinguish a missing record from a lost CAS.
	var exists int
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM screens WHERE local_id = ?", localID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check record: %w", err)
	}
	if exists == 0 {
		return domainErrors.NewError(domainErrors.CodeNotFound,
			fmt.Sprintf("screen record not found: %d", localID), domainErrors.ErrRecordNotFound)
	}
	return domainErrors.NewError(domainErrors.CodeConflict,
		fmt.Sprintf("record %d was modified during sync", localID), domainErrors.ErrVersionChanged)
}

// MarkFailed atomically increments the failed-attempt counter and stamps the
// attempt time.
func (s *ScreenStore) MarkFailed(ctx context.Context, localID int64) error {
	db, err := s.conn.DB()
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, `
		UPDATE screens
		SET sync_status = ?, failed_attempts = failed_attempts + 1, last_synced_at = ?
		WHERE local_id = ?
	`, string(screen.StatusFailed), time.Now().UnixMilli(), localID)
	if err != nil {
		return fmt.Errorf("failed to mark failed: %w", err)
	}
	return checkAffected(res, localID)
}

// SetConflict flags the record with a divergent remote payload.
func (s *ScreenStore) SetConflict(ctx context.Context, localID int64, remotePayload string) error {
	db, err := s.conn.DB()
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx,
		"UPDATE screens SET has_conflict = 1, remote_version = ? WHERE local_id = ?",
		remotePayload, localID)
	if err != nil {
		return fmt.Errorf("failed to set conflict: %w", err)
	}
	return checkAffected(res, localID)
}

// ClearConflict drops a record's conflict marker.
func (s *ScreenStore) ClearConflict(ctx context.Context, localID int64) error {
	db, err := s.conn.DB()
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx,
		"UPDATE screens SET has_conflict = 0, remote_version = '' WHERE local_id = ?", localID)
	if err != nil {
		return fmt.Errorf("failed to clear conflict: %w", err)
	}
	return checkAffected(res, localID)
}

// Purge hard-deletes a soft-deleted record after confirmed remote deletion.
func (s *ScreenStore) Purge(ctx context.Context, localID int64) error {
	db, err := s.conn.DB()
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx,
		"DELETE FROM screens WHERE local_id = ? AND is_deleted = 1", localID)
	if err != nil {
		return fmt.Errorf("failed to purge screen: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check purge result: %w", err)
	}
	if rows == 0 {
		return domainErrors.NewError(domainErrors.CodeStore,
			fmt.Sprintf("record %d is not soft-deleted or does not exist", localID), nil)
	}
	return nil
}

// queryScreens executes a query and returns multiple records.
func (s *ScreenStore) queryScreens(ctx context.Context, query string, args ...any) ([]*screen.Record, error) {
	db, err := s.conn.DB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query screens: %w", err)
	}
	defer rows.Close()

	var recs []*screen.Record
	for rows.Next() {
		rec, err := scanScreenRows(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating screens: %w", err)
	}
	return recs, nil
}

// checkAffected maps a zero-row update to ErrRecordNotFound.
func checkAffected(res sql.Result, localID int64) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return domainErrors.NewError(domainErrors.CodeNotFound,
			fmt.Sprintf("screen record not found: %d", localID), domainErrors.ErrRecordNotFound)
	}
	return nil
}

// scanScreenRow scans a single row into a record.
func scanScreenRow(row *sql.Row) (*screen.Record, error) {
	var (
		rec          screen.Record
		status       string
		lastSyncedAt sql.NullInt64
		modifiedAt   int64
		isDeleted    int
		hasConflict  int
	)

	err := row.Scan(&rec.LocalID, &rec.ScreenID, &rec.Name, &rec.JSONPayload, &rec.Version,
		&status, &rec.FailedAttempts, &lastSyncedAt, &modifiedAt, &isDeleted, &hasConflict, &rec.RemoteVersion)
	if err != nil {
		return nil, err
	}

	return buildRecord(&rec, status, lastSyncedAt, modifiedAt, isDeleted, hasConflict), nil
}

// scanScreenRows scans the current rows cursor into a record.
func scanScreenRows(rows *sql.Rows) (*screen.Record, error) {
	var (
		rec          screen.Record
		status       string
		lastSyncedAt sql.NullInt64
		modifiedAt   int64
		isDeleted    int
		hasConflict  int
	)

	err := rows.Scan(&rec.LocalID, &rec.ScreenID, &rec.Name, &rec.JSONPayload, &rec.Version,
		&status, &rec.FailedAttempts, &lastSyncedAt, &modifiedAt, &isDeleted, &hasConflict, &rec.RemoteVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to scan screen: %w", err)
	}

	return buildRecord(&rec, status, lastSyncedAt, modifiedAt, isDeleted, hasConflict), nil
}

// buildRecord finishes converting scanned columns into a domain record.
func buildRecord(rec *screen.Record, status string, lastSyncedAt sql.NullInt64, modifiedAt int64, isDeleted, hasConflict int) *screen.Record {
	rec.SyncStatus = screen.SyncStatus(status)
	rec.LocalModifiedAt = time.UnixMilli(modifiedAt)
	if lastSyncedAt.Valid {
		t := time.UnixMilli(lastSyncedAt.Int64)
		rec.LastSyncedAt = &t
	}
	rec.IsDeleted = isDeleted != 0
	rec.HasConflict = hasConflict != 0
	return rec
}

// millis converts a time to unix milliseconds for storage.
func millis(t time.Time) int64 {
	if t.IsZero() {
		return time.Now().UnixMilli()
	}
	return t.UnixMilli()
}

// nullableMillis converts an optional time to a nullable column value.
func nullableMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

// boolToInt converts a bool to its SQLite integer form.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
