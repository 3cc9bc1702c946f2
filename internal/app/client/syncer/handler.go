package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clinicsync/internal/app/client/remote"
	"clinicsync/internal/domain/conflict"
	"clinicsync/internal/domain/queue"
	"clinicsync/internal/domain/record"

	"golang.org/x/exp/slog"
)

// Resource is the remote collection an EntityHandler talks to.
type Resource[T any] interface {
	Create(ctx context.Context, updatedAt time.Time, data T) (*remote.Document[T], error)
	Get(ctx context.Context, id string) (*remote.Document[T], error)
	Update(ctx context.Context, id string, updatedAt time.Time, data T) (*remote.Document[T], error)
	Delete(ctx context.Context, id string) error
}

// PrepareFunc rewrites a payload right before it is sent, e.g. to swap
// local references for remote ones.
type PrepareFunc[T any] func(ctx context.Context, data T) (T, error)

// EntityHandler syncs one entity type. It always sends the current local
// state of the record rather than the payload captured in the queue item.
type EntityHandler[T any] struct {
	repo     record.Repository[T]
	remote   Resource[T]
	resolver *conflict.Resolver[T]
	prepare  PrepareFunc[T]
	log      *slog.Logger
}

type HandlerOption[T any] func(*EntityHandler[T])

func WithPrepare[T any](fn PrepareFunc[T]) HandlerOption[T] {
	return func(h *EntityHandler[T]) {
		h.prepare = fn
	}
}

func NewEntityHandler[T any](
	repo record.Repository[T],
	res Resource[T],
	resolver *conflict.Resolver[T],
	log *slog.Logger,
	opts ...HandlerOption[T],
) *EntityHandler[T] {
	h := &EntityHandler[T]{
		repo:     repo,
		remote:   res,
		resolver: resolver,
		log:      log.With("component", "entity_handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *EntityHandler[T]) Create(ctx context.Context, item *queue.Item) (string, error) {
	local, err := h.repo.GetByID(ctx, item.LocalID)
	if err != nil {
		return "", fmt.Errorf("get local record: %w", err)
	}
	if local == nil {
		h.log.Info("local record deleted before create was sent", "local_id", item.LocalID)
		return "", nil
	}
	if id := local.ServerID(); id != "" {
		return id, nil
	}

	return h.create(ctx, local)
}

func (h *EntityHandler[T]) Update(ctx context.Context, item *queue.Item) (string, error) {
	local, err := h.repo.GetByID(ctx, item.LocalID)
	if err != nil {
		return "", fmt.Errorf("get local record: %w", err)
	}
	if local == nil {
		// Удаление уже в очереди, обновлять нечего
		return item.RemoteID, nil
	}

	remoteID := local.ServerID()
	if remoteID == "" {
		remoteID = item.RemoteID
	}
	if remoteID == "" {
		return "", fmt.Errorf("%w: %s has no remote id", ErrDependencyPending, local.ID)
	}

	data, err := h.payload(ctx, local.Data)
	if err != nil {
		return "", err
	}

	localVersion := &conflict.Version[T]{ID: local.ID, UpdatedAt: local.UpdatedAt, Data: data}

	current, err := h.remote.Get(ctx, remoteID)
	if errors.Is(err, remote.ErrNotFound) {
		// Сервер не отдаёт запись, а локальная копия есть
		res := h.resolver.HandleDeleteConflict(localVersion, nil, nil)
		if res.Action != conflict.ActionPush {
			return remoteID, nil
		}
		h.log.Info("remote record vanished, re-creating", "local_id", local.ID, "remote_id", remoteID)
		return h.create(ctx, local)
	}
	if err != nil {
		return "", fmt.Errorf("fetch remote: %w", err)
	}

	remoteVersion := &conflict.Version[T]{ID: remoteID, UpdatedAt: current.UpdatedAt, Data: current.Data}

	if h.resolver.DetectConflict(localVersion, remoteVersion) {
		res := h.resolver.ResolveByTimestamp(localVersion, remoteVersion)
		if res.Action == conflict.ActionPull {
			err := h.repo.Upsert(ctx, &record.LocalRecord[T]{
				ID:         local.ID,
				RemoteID:   remoteID,
				ScopeID:    local.ScopeID,
				Data:       *res.Data,
				SyncStatus: local.SyncStatus,
				UpdatedAt:  current.UpdatedAt,
			})
			if err != nil {
				return "", fmt.Errorf("pull remote: %w", err)
			}
			return remoteID, nil
		}
	}

	if _, err := h.remote.Update(ctx, remoteID, local.UpdatedAt, data); err != nil {
		return "", fmt.Errorf("push update: %w", err)
	}
	return remoteID, nil
}

// Delete treats an already missing remote resource as success.
func (h *EntityHandler[T]) Delete(ctx context.Context, item *queue.Item) error {
	if item.RemoteID == "" {
		h.log.Debug("record never reached the server, nothing to delete", "local_id", item.LocalID)
		return nil
	}

	err := h.remote.Delete(ctx, item.RemoteID)
	if errors.Is(err, remote.ErrNotFound) {
		h.log.Debug("remote record already gone", "remote_id", item.RemoteID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("remote delete: %w", err)
	}
	return nil
}

func (h *EntityHandler[T]) SetLocalStatus(ctx context.Context, localID string, status record.SyncStatus) error {
	return h.repo.UpdateSyncStatus(ctx, localID, status)
}

func (h *EntityHandler[T]) create(ctx context.Context, local *record.LocalRecord[T]) (string, error) {
	data, err := h.payload(ctx, local.Data)
	if err != nil {
		return "", err
	}

	doc, err := h.remote.Create(ctx, local.UpdatedAt, data)
	if err != nil {
		return "", fmt.Errorf("remote create: %w", err)
	}
	if doc.ID == "" {
		return "", errors.New("remote create: empty id in response")
	}

	// Если запись удалили во время запроса, id всё равно возвращается:
	// он нужен DELETE из очереди.
	if err := h.repo.UpdateRemoteID(ctx, local.ID, doc.ID); err != nil {
		return "", fmt.Errorf("store remote id: %w", err)
	}
	return doc.ID, nil
}

func (h *EntityHandler[T]) payload(ctx context.Context, data T) (T, error) {
	if h.prepare == nil {
		return data, nil
	}
	return h.prepare(ctx, data)
}
