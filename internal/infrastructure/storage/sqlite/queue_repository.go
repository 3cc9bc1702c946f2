package sqlite

import (
	"context"
	"fmt"

	"clinicsync/internal/domain/queue"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

type QueueRepository struct {
	storage *Storage
	log     *slog.Logger
}

func NewQueueRepository(storage *Storage, log *slog.Logger) *QueueRepository {
	return &QueueRepository{
		storage: storage,
		log:     log.With("component", "queue_repository"),
	}
}

// Add persists item as pending with zero retries and stamps its ID and
// CreatedAt when missing. An empty RemoteID is taken from the latest item
// of the same record that already knows it.
func (r *QueueRepository) Add(ctx context.Context, item *queue.Item) error {
	if item.LocalID == "" || item.Entity == "" || item.Action == "" {
		return fmt.Errorf("%w: entity, action and local id are required", queue.ErrInvalidItem)
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Priority == "" {
		item.Priority = queue.PriorityMedium
	}
	item.Status = queue.StatusPending
	item.Retries = 0
	item.ErrorMessage = ""
	item.CreatedAt = r.storage.timestamp()

	var data any
	if len(item.Data) > 0 {
		data = string(item.Data)
	}

	err := r.storage.db.QueryRowContext(ctx, `
		INSERT INTO sync_queue (id, entity, action, data, local_id, remote_id, priority, retries, status, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, COALESCE(NULLIF(?, ''), (
			SELECT remote_id FROM sync_queue
			WHERE entity = ? AND local_id = ? AND remote_id <> ''
			ORDER BY seq DESC LIMIT 1
		), ''), ?, 0, ?, '', ?)
		RETURNING remote_id`,
		item.ID, item.Entity, item.Action, data, item.LocalID,
		item.RemoteID, item.Entity, item.LocalID,
		item.Priority, item.Status, toMillis(item.CreatedAt)).Scan(&item.RemoteID)
	if err != nil {
		r.log.Error("failed to enqueue", "entity", item.Entity, "action", item.Action, "error", err)
		return fmt.Errorf("add queue item: %w", err)
	}
	return nil
}

// GetPendingByPriority orders by priority tier, then CreatedAt, then
// insertion order for items stamped within the same millisecond.
func (r *QueueRepository) GetPendingByPriority(ctx context.Context) ([]*queue.Item, error) {
	return r.query(ctx, selectItems+`
		WHERE status = ?
		ORDER BY CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END, created_at, seq`,
		queue.StatusPending)
}

func (r *QueueRepository) GetAll(ctx context.Context) ([]*queue.Item, error) {
	return r.query(ctx, selectItems+` ORDER BY seq`)
}

func (r *QueueRepository) UpdateStatus(ctx context.Context, id string, status queue.Status, errorMessage string) error {
	_, err := r.storage.db.ExecContext(ctx,
		`UPDATE sync_queue SET status = ?, error_message = ? WHERE id = ?`, status, errorMessage, id)
	if err != nil {
		return fmt.Errorf("update queue status: %w", err)
	}
	return nil
}

func (r *QueueRepository) IncrementRetries(ctx context.Context, id string) error {
	_, err := r.storage.db.ExecContext(ctx,
		`UPDATE sync_queue SET retries = retries + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("increment retries: %w", err)
	}
	return nil
}

func (r *QueueRepository) UpdateRemoteID(ctx context.Context, id, remoteID string) error {
	_, err := r.storage.db.ExecContext(ctx,
		`UPDATE sync_queue SET remote_id = ? WHERE id = ?`, remoteID, id)
	if err != nil {
		return fmt.Errorf("update queue remote id: %w", err)
	}
	return nil
}

func (r *QueueRepository) UpdateRemoteIDByLocalID(ctx context.Context, localID, remoteID string) (int, error) {
	return r.exec(ctx, `
		UPDATE sync_queue SET remote_id = ?
		WHERE local_id = ? AND status <> ? AND remote_id <> ?`,
		remoteID, localID, queue.StatusCompleted, remoteID)
}

func (r *QueueRepository) ClearCompleted(ctx context.Context) (int, error) {
	return r.exec(ctx, `DELETE FROM sync_queue WHERE status = ?`, queue.StatusCompleted)
}

func (r *QueueRepository) HasPending(ctx context.Context, localID, excludeID string) (bool, error) {
	var exists bool
	err := r.storage.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM sync_queue WHERE local_id = ? AND id <> ? AND status <> ?)`,
		localID, excludeID, queue.StatusCompleted).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check pending: %w", err)
	}
	return exists, nil
}

func (r *QueueRepository) RequeueSyncing(ctx context.Context) (int, error) {
	return r.exec(ctx, `UPDATE sync_queue SET status = ? WHERE status = ?`,
		queue.StatusPending, queue.StatusSyncing)
}

func (r *QueueRepository) RetryFailed(ctx context.Context) (int, error) {
	return r.exec(ctx, `UPDATE sync_queue SET status = ?, retries = 0, error_message = '' WHERE status = ?`,
		queue.StatusPending, queue.StatusFailed)
}

func (r *QueueRepository) Clear(ctx context.Context) error {
	_, err := r.exec(ctx, `DELETE FROM sync_queue`)
	return err
}

const selectItems = `
	SELECT id, entity, action, data, local_id, remote_id, priority, retries, status, error_message, created_at
	FROM sync_queue`

func (r *QueueRepository) query(ctx context.Context, query string, args ...any) ([]*queue.Item, error) {
	rows, err := r.storage.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query queue: %w", err)
	}
	defer rows.Close()

	var items []*queue.Item
	for rows.Next() {
		var (
			item      queue.Item
			data      *string
			createdAt int64
		)
		err := rows.Scan(&item.ID, &item.Entity, &item.Action, &data, &item.LocalID, &item.RemoteID,
			&item.Priority, &item.Retries, &item.Status, &item.ErrorMessage, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scan queue item: %w", err)
		}
		if data != nil {
			item.Data = []byte(*data)
		}
		item.CreatedAt = fromMillis(createdAt)
		items = append(items, &item)
	}
	return items, rows.Err()
}

func (r *QueueRepository) exec(ctx context.Context, query string, args ...any) (int, error) {
	res, err := r.storage.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("exec queue: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
