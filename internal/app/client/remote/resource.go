package remote

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"clinicsync/internal/domain/record"
)

// Document is the wire form of an entity: the server echoes back the
// updated_at it was given so both sides compare the same clock.
type Document[T any] struct {
	ID        string    `json:"id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
	Data      T         `json:"data"`
}

// Resource is the REST collection of one entity.
type Resource[T any] struct {
	client *Client
	path   string
}

func NewResource[T any](client *Client, entity record.Entity) *Resource[T] {
	return &Resource[T]{
		client: client,
		path:   "/api/v1/" + string(entity),
	}
}

func (r *Resource[T]) Create(ctx context.Context, updatedAt time.Time, data T) (*Document[T], error) {
	var out Document[T]
	in := Document[T]{UpdatedAt: updatedAt, Data: data}
	if err := r.client.do(ctx, http.MethodPost, r.path, in, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Resource[T]) Get(ctx context.Context, id string) (*Document[T], error) {
	var out Document[T]
	if err := r.client.do(ctx, http.MethodGet, r.itemPath(id), nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Resource[T]) Update(ctx context.Context, id string, updatedAt time.Time, data T) (*Document[T], error) {
	var out Document[T]
	in := Document[T]{ID: id, UpdatedAt: updatedAt, Data: data}
	if err := r.client.do(ctx, http.MethodPut, r.itemPath(id), in, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete returns ErrNotFound when the resource is already gone.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	return r.client.do(ctx, http.MethodDelete, r.itemPath(id), nil, nil, true)
}

func (r *Resource[T]) itemPath(id string) string {
	return r.path + "/" + url.PathEscape(id)
}
