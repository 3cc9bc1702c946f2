package queue

import (
	"context"
)

// Repository is the durable sync queue.
//
// GetPendingByPriority is the only ordering guarantee: high before medium
// before low, FIFO by CreatedAt inside a tier. Nothing orders items across
// entities beyond that.
type Repository interface {
	Add(ctx context.Context, item *Item) error
	GetPendingByPriority(ctx context.Context) ([]*Item, error)
	UpdateStatus(ctx context.Context, id string, status Status, errorMessage string) error
	IncrementRetries(ctx context.Context, id string) error
	UpdateRemoteID(ctx context.Context, id, remoteID string) error
	// UpdateRemoteIDByLocalID stamps remoteID on every unfinished item of
	// localID and returns how many changed.
	UpdateRemoteIDByLocalID(ctx context.Context, localID, remoteID string) (int, error)
	ClearCompleted(ctx context.Context) (int, error)
	GetAll(ctx context.Context) ([]*Item, error)

	// HasPending reports whether an unfinished item other than excludeID
	// still references localID.
	HasPending(ctx context.Context, localID, excludeID string) (bool, error)
	// RequeueSyncing moves items left in syncing by an interrupted drain
	// back to pending.
	RequeueSyncing(ctx context.Context) (int, error)
	// RetryFailed resets failed items to pending with a zero retry count.
	RetryFailed(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}
