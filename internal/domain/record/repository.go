package record

import (
	"context"
)

// Repository is the durable local store for one entity type. Lookups of a
// missing id return (nil, nil); only storage failures produce errors.
type Repository[T any] interface {
	Create(ctx context.Context, scopeID string, data T) (*LocalRecord[T], error)
	Update(ctx context.Context, id string, mutate func(*T)) (*LocalRecord[T], error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*LocalRecord[T], error)
	GetAll(ctx context.Context, scopeID string) ([]*LocalRecord[T], error)
	UpdateRemoteID(ctx context.Context, localID, remoteID string) error
	UpdateSyncStatus(ctx context.Context, id string, status SyncStatus) error
	Upsert(ctx context.Context, rec *LocalRecord[T]) error
}
