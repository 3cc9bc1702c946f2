package sqlite

import (
	"context"
	"fmt"
	"time"
)

// Lease is a storage-level mutex shared by every process that opens the
// same database file. A lease left behind by a crashed holder expires
// after its TTL.
type Lease struct {
	storage *Storage
}

func NewLease(storage *Storage) *Lease {
	return &Lease{storage: storage}
}

func (l *Lease) Acquire(ctx context.Context, holder string, ttl time.Duration) (bool, error) {
	now := l.storage.now()
	res, err := l.storage.db.ExecContext(ctx, `
		INSERT INTO sync_lease (id, holder, expires_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET holder = excluded.holder, expires_at = excluded.expires_at
		WHERE sync_lease.expires_at <= ? OR sync_lease.holder = excluded.holder`,
		holder, now.Add(ttl).UnixMilli(), now.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("acquire lease: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (l *Lease) Release(ctx context.Context, holder string) error {
	if _, err := l.storage.db.ExecContext(ctx, `DELETE FROM sync_lease WHERE holder = ?`, holder); err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	return nil
}
