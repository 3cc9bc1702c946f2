package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"clinicsync/internal/domain/queue"
	"clinicsync/internal/domain/record"

	"golang.org/x/exp/slog"
)

// Guard rejects mutations the device may not perform right now.
type Guard interface {
	Check(ctx context.Context) error
}

// Notifier is poked after every queued mutation.
type Notifier interface {
	Notify()
}

// ScopeFunc returns the clinic the current user works in.
type ScopeFunc func(ctx context.Context) (string, error)

type PriorityFunc[T any] func(action queue.Action, data T, now time.Time) queue.Priority

// Collection is the offline write path for one entity: every mutation is
// checked by the guard, committed locally and queued for the server.
type Collection[T any] struct {
	entity   record.Entity
	repo     record.Repository[T]
	queue    queue.Repository
	guard    Guard
	scope    ScopeFunc
	priority PriorityFunc[T]
	validate func(T) error
	notifier Notifier
	now      func() time.Time
	log      *slog.Logger
}

type CollectionOption[T any] func(*Collection[T])

func WithValidator[T any](fn func(T) error) CollectionOption[T] {
	return func(c *Collection[T]) {
		c.validate = fn
	}
}

func WithPriority[T any](fn PriorityFunc[T]) CollectionOption[T] {
	return func(c *Collection[T]) {
		c.priority = fn
	}
}

func WithNotifier[T any](n Notifier) CollectionOption[T] {
	return func(c *Collection[T]) {
		c.notifier = n
	}
}

func WithCollectionClock[T any](now func() time.Time) CollectionOption[T] {
	return func(c *Collection[T]) {
		c.now = now
	}
}

func NewCollection[T any](
	entity record.Entity,
	repo record.Repository[T],
	q queue.Repository,
	guard Guard,
	scope ScopeFunc,
	log *slog.Logger,
	opts ...CollectionOption[T],
) *Collection[T] {
	c := &Collection[T]{
		entity: entity,
		repo:   repo,
		queue:  q,
		guard:  guard,
		scope:  scope,
		now:    time.Now,
		log:    log.With("component", "collection", "entity", entity),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Collection[T]) Entity() record.Entity {
	return c.entity
}

func (c *Collection[T]) Create(ctx context.Context, data T) (*record.LocalRecord[T], error) {
	if err := c.check(ctx, data); err != nil {
		return nil, err
	}

	scopeID, err := c.scope(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := c.repo.Create(ctx, scopeID, data)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", c.entity, err)
	}

	if err := c.enqueue(ctx, queue.ActionCreate, rec); err != nil {
		return nil, err
	}

	c.log.Info("record created", "id", rec.ID)
	return rec, nil
}

// Update applies mutate to the stored payload. A record that never reached
// the server is not queued again: its pending CREATE already sends the
// latest local state.
func (c *Collection[T]) Update(ctx context.Context, id string, mutate func(*T)) (*record.LocalRecord[T], error) {
	if err := c.guard.Check(ctx); err != nil {
		return nil, err
	}

	current, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("%w: %s", record.ErrNotFound, id)
	}

	data := current.Data
	mutate(&data)
	if err := c.valid(data); err != nil {
		return nil, err
	}

	rec, err := c.repo.Update(ctx, id, func(t *T) { *t = data })
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", c.entity, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", record.ErrNotFound, id)
	}

	if rec.LocalOnly {
		pending, err := c.queue.HasPending(ctx, rec.ID, "")
		if err != nil {
			return nil, err
		}
		if pending {
			c.log.Debug("update folded into pending create", "id", rec.ID)
			c.notify()
			return rec, nil
		}
	}

	if err := c.enqueue(ctx, queue.ActionUpdate, rec); err != nil {
		return nil, err
	}

	c.log.Info("record updated", "id", rec.ID)
	return rec, nil
}

func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	if err := c.guard.Check(ctx); err != nil {
		return err
	}

	rec, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("%w: %s", record.ErrNotFound, id)
	}

	if err := c.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete %s: %w", c.entity, err)
	}

	if err := c.enqueue(ctx, queue.ActionDelete, rec); err != nil {
		return err
	}

	c.log.Info("record deleted", "id", rec.ID, "remote_id", rec.ServerID())
	return nil
}

// Get returns (nil, nil) when id is unknown.
func (c *Collection[T]) Get(ctx context.Context, id string) (*record.LocalRecord[T], error) {
	return c.repo.GetByID(ctx, id)
}

// List returns the records of the current clinic. Reads are not gated.
func (c *Collection[T]) List(ctx context.Context) ([]*record.LocalRecord[T], error) {
	scopeID, err := c.scope(ctx)
	if err != nil {
		return nil, err
	}
	return c.repo.GetAll(ctx, scopeID)
}

func (c *Collection[T]) check(ctx context.Context, data T) error {
	if err := c.valid(data); err != nil {
		return err
	}
	return c.guard.Check(ctx)
}

func (c *Collection[T]) valid(data T) error {
	if c.validate == nil {
		return nil
	}
	return c.validate(data)
}

func (c *Collection[T]) enqueue(ctx context.Context, action queue.Action, rec *record.LocalRecord[T]) error {
	payload, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("%w: %v", record.ErrInvalidData, err)
	}

	priority := queue.PriorityMedium
	if c.priority != nil {
		priority = c.priority(action, rec.Data, c.now())
	}

	item := &queue.Item{
		Entity:   c.entity,
		Action:   action,
		Data:     payload,
		LocalID:  rec.ID,
		RemoteID: rec.ServerID(),
		Priority: priority,
	}
	if err := c.queue.Add(ctx, item); err != nil {
		return fmt.Errorf("enqueue %s %s: %w", action, c.entity, err)
	}

	c.notify()
	return nil
}

func (c *Collection[T]) notify() {
	if c.notifier != nil {
		c.notifier.Notify()
	}
}
