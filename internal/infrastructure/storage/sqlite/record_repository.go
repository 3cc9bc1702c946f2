package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"clinicsync/internal/domain/record"

	"golang.org/x/exp/slog"
)

type scanner interface {
	Scan(dest ...any) error
}

// RecordRepository stores LocalRecord[T] in the table of one entity.
type RecordRepository[T any] struct {
	storage *Storage
	entity  record.Entity
	table   string
	log     *slog.Logger
}

func NewRecordRepository[T any](storage *Storage, entity record.Entity, log *slog.Logger) (*RecordRepository[T], error) {
	if err := entity.Validate(); err != nil {
		return nil, err
	}
	return &RecordRepository[T]{
		storage: storage,
		entity:  entity,
		table:   tableName(entity),
		log:     log.With("component", "record_repository", "entity", entity),
	}, nil
}

func (r *RecordRepository[T]) Entity() record.Entity {
	return r.entity
}

func (r *RecordRepository[T]) Create(ctx context.Context, scopeID string, data T) (*record.LocalRecord[T], error) {
	rec := &record.LocalRecord[T]{
		ID:         record.NewLocalID(),
		ScopeID:    scopeID,
		Data:       data,
		SyncStatus: record.SyncStatusPending,
		LocalOnly:  true,
		UpdatedAt:  r.storage.timestamp(),
	}

	payload, err := json.Marshal(rec.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", record.ErrInvalidData, err)
	}

	_, err = r.storage.db.ExecContext(ctx, `
		INSERT INTO `+r.table+` (id, remote_id, scope_id, data, sync_status, local_only, updated_at)
		VALUES (?, '', ?, ?, ?, 1, ?)`,
		rec.ID, rec.ScopeID, string(payload), rec.SyncStatus, toMillis(rec.UpdatedAt))
	if err != nil {
		r.log.Error("failed to create record", "error", err)
		return nil, fmt.Errorf("create record: %w", err)
	}

	return rec, nil
}

// Update applies mutate to the stored payload, refreshes UpdatedAt and marks
// the record pending. A missing id yields (nil, nil).
func (r *RecordRepository[T]) Update(ctx context.Context, id string, mutate func(*T)) (*record.LocalRecord[T], error) {
	tx, err := r.storage.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rec, err := r.scan(tx.QueryRowContext(ctx, r.selectQuery()+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}

	mutate(&rec.Data)
	rec.UpdatedAt = r.storage.timestamp()
	rec.SyncStatus = record.SyncStatusPending

	payload, err := json.Marshal(rec.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", record.ErrInvalidData, err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE `+r.table+` SET data = ?, sync_status = ?, updated_at = ? WHERE id = ?`,
		string(payload), rec.SyncStatus, toMillis(rec.UpdatedAt), id)
	if err != nil {
		return nil, fmt.Errorf("update record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

func (r *RecordRepository[T]) Delete(ctx context.Context, id string) error {
	if _, err := r.storage.db.ExecContext(ctx, `DELETE FROM `+r.table+` WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

func (r *RecordRepository[T]) GetByID(ctx context.Context, id string) (*record.LocalRecord[T], error) {
	rec, err := r.scan(r.storage.db.QueryRowContext(ctx, r.selectQuery()+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

func (r *RecordRepository[T]) GetAll(ctx context.Context, scopeID string) ([]*record.LocalRecord[T], error) {
	rows, err := r.storage.db.QueryContext(ctx,
		r.selectQuery()+` WHERE scope_id = ? ORDER BY updated_at DESC, id`, scopeID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []*record.LocalRecord[T]
	for rows.Next() {
		rec, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// UpdateRemoteID promotes a local record: the remote id is stored next to
// the unchanged local id and LocalOnly is cleared.
func (r *RecordRepository[T]) UpdateRemoteID(ctx context.Context, localID, remoteID string) error {
	_, err := r.storage.db.ExecContext(ctx,
		`UPDATE `+r.table+` SET remote_id = ?, local_only = 0 WHERE id = ?`, remoteID, localID)
	if err != nil {
		return fmt.Errorf("update remote id: %w", err)
	}
	return nil
}

func (r *RecordRepository[T]) UpdateSyncStatus(ctx context.Context, id string, status record.SyncStatus) error {
	_, err := r.storage.db.ExecContext(ctx,
		`UPDATE `+r.table+` SET sync_status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update sync status: %w", err)
	}
	return nil
}

// Upsert replaces the stored content of rec.ID wholesale, inserting it when
// absent. UpdatedAt is taken from rec as is.
func (r *RecordRepository[T]) Upsert(ctx context.Context, rec *record.LocalRecord[T]) error {
	payload, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("%w: %v", record.ErrInvalidData, err)
	}

	// LocalOnly и RemoteID взаимоисключающие
	localOnly := rec.LocalOnly && rec.RemoteID == ""

	_, err = r.storage.db.ExecContext(ctx, `
		INSERT INTO `+r.table+` (id, remote_id, scope_id, data, sync_status, local_only, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			remote_id = excluded.remote_id,
			scope_id = excluded.scope_id,
			data = excluded.data,
			sync_status = excluded.sync_status,
			local_only = excluded.local_only,
			updated_at = excluded.updated_at`,
		rec.ID, rec.RemoteID, rec.ScopeID, string(payload), rec.SyncStatus, localOnly, toMillis(rec.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

func (r *RecordRepository[T]) selectQuery() string {
	return `SELECT id, remote_id, scope_id, data, sync_status, local_only, updated_at FROM ` + r.table
}

func (r *RecordRepository[T]) scan(row scanner) (*record.LocalRecord[T], error) {
	var (
		rec       record.LocalRecord[T]
		payload   string
		updatedAt int64
	)
	if err := row.Scan(&rec.ID, &rec.RemoteID, &rec.ScopeID, &payload, &rec.SyncStatus, &rec.LocalOnly, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), &rec.Data); err != nil {
		return nil, fmt.Errorf("%w: %v", record.ErrInvalidData, err)
	}
	rec.UpdatedAt = fromMillis(updatedAt)
	return &rec, nil
}
