package document

import (
	"context"
	"time"

	"clinicsync/internal/domain/record"
)

// Repository returns ErrNotFound for missing and soft-deleted documents alike.
type Repository interface {
	Create(ctx context.Context, doc *Document) (string, error)
	Get(ctx context.Context, clinicID string, entity record.Entity, id string) (*Document, error)
	Update(ctx context.Context, doc *Document) error
	SoftDelete(ctx context.Context, clinicID string, entity record.Entity, id string, at time.Time) error
	List(ctx context.Context, clinicID string, entity record.Entity) ([]*Document, error)
}
