// Package syncer drains the sync queue against the remote API.
package syncer

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"sync/atomic"
	"time"

	"clinicsync/internal/domain/queue"
	"clinicsync/internal/domain/record"

	"golang.org/x/exp/slog"
)

const (
	// MessageManualAttention is stored on items that ran out of retries.
	MessageManualAttention = "manual attention required"

	drainCompleted = "completed"
	drainSkipped   = "skipped"

	outcomeCompleted = "completed"
	outcomeRetried   = "retried"
	outcomeDeferred  = "deferred"
	outcomeFailed    = "failed"
)

// Handler performs the remote side of a queue item for one entity.
// Create and Update return the remote id the item ended up with.
type Handler interface {
	Create(ctx context.Context, item *queue.Item) (string, error)
	Update(ctx context.Context, item *queue.Item) (string, error)
	Delete(ctx context.Context, item *queue.Item) error
	// SetLocalStatus marks the local record behind an item; missing records
	// are ignored.
	SetLocalStatus(ctx context.Context, localID string, status record.SyncStatus) error
}

// Lease serializes drains across processes sharing the local store.
type Lease interface {
	Acquire(ctx context.Context, holder string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, holder string) error
}

// Result summarizes one ProcessSyncQueue call.
type Result struct {
	Skipped   bool `json:"skipped"`
	Processed int  `json:"processed"`
	Completed int  `json:"completed"`
	Retried   int  `json:"retried"`
	Deferred  int  `json:"deferred"`
	Failed    int  `json:"failed"`
	Purged    int  `json:"purged"`
}

type Manager struct {
	queue      queue.Repository
	maxRetries int

	mu       gosync.RWMutex
	handlers map[record.Entity]Handler

	syncing atomic.Bool

	lease       Lease
	leaseHolder string
	leaseTTL    time.Duration

	metrics *Metrics
	log     *slog.Logger
}

type Option func(*Manager)

func WithLease(lease Lease, holder string, ttl time.Duration) Option {
	return func(m *Manager) {
		m.lease = lease
		m.leaseHolder = holder
		m.leaseTTL = ttl
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

func New(q queue.Repository, maxRetries int, log *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		queue:      q,
		maxRetries: maxRetries,
		handlers:   make(map[record.Entity]Handler),
		log:        log.With("component", "sync_manager"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register binds the handler for an entity. Call it during startup.
func (m *Manager) Register(entity record.Entity, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[entity] = h
}

func (m *Manager) handler(entity record.Entity) (Handler, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.handlers[entity]
	return h, ok
}

// IsSyncing reports whether a drain is running in this process.
func (m *Manager) IsSyncing() bool {
	return m.syncing.Load()
}

// ProcessSyncQueue drains pending items one at a time in priority order.
// A call made while another drain is running returns a skipped Result
// immediately. ctx only bounds lease acquisition: once started, a drain
// runs to the end even if ctx is cancelled.
func (m *Manager) ProcessSyncQueue(ctx context.Context) (*Result, error) {
	if !m.syncing.CompareAndSwap(false, true) {
		m.log.Debug("drain already running, skipping")
		m.metrics.drain(drainSkipped, 0)
		return &Result{Skipped: true}, nil
	}
	defer m.syncing.Store(false)

	if m.lease != nil {
		ok, err := m.lease.Acquire(ctx, m.leaseHolder, m.leaseTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			m.log.Debug("drain lease held by another process, skipping")
			m.metrics.drain(drainSkipped, 0)
			return &Result{Skipped: true}, nil
		}
		defer func() {
			if err := m.lease.Release(context.WithoutCancel(ctx), m.leaseHolder); err != nil {
				m.log.Error("failed to release drain lease", "error", err)
			}
		}()
	}

	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	// Элементы, застрявшие в syncing после падения, возвращаем в очередь
	if n, err := m.queue.RequeueSyncing(ctx); err != nil {
		return nil, fmt.Errorf("requeue syncing: %w", err)
	} else if n > 0 {
		m.log.Warn("requeued interrupted items", "count", n)
	}

	items, err := m.queue.GetPendingByPriority(ctx)
	if err != nil {
		return nil, fmt.Errorf("get pending: %w", err)
	}

	res := &Result{}
	learned := make(map[string]string)
	var deferred []*queue.Item
	for _, item := range items {
		res.Processed++
		if m.runItem(ctx, item, res, learned) == outcomeDeferred {
			deferred = append(deferred, item)
		}
	}

	// Зависимости могли синхронизироваться в этом же проходе
	if len(deferred) > 0 && res.Completed > 0 {
		for _, item := range deferred {
			res.Deferred--
			m.runItem(ctx, item, res, learned)
		}
	}

	purged, err := m.queue.ClearCompleted(ctx)
	if err != nil {
		return res, fmt.Errorf("clear completed: %w", err)
	}
	res.Purged = purged

	if _, err := m.GetSyncStatus(ctx); err != nil {
		m.log.Warn("failed to refresh queue gauges", "error", err)
	}

	m.metrics.drain(drainCompleted, time.Since(start))
	m.log.Info("drain finished",
		"processed", res.Processed,
		"completed", res.Completed,
		"retried", res.Retried,
		"failed", res.Failed,
		"duration", time.Since(start),
	)
	return res, nil
}

// runItem processes one item. learned maps local ids to remote ids seen
// earlier in the same drain.
func (m *Manager) runItem(ctx context.Context, item *queue.Item, res *Result, learned map[string]string) string {
	if item.RemoteID == "" {
		item.RemoteID = learned[item.LocalID]
	}
	outcome, err := m.processItem(ctx, item)
	if item.RemoteID != "" {
		learned[item.LocalID] = item.RemoteID
	}
	if err != nil {
		m.log.Error("queue item bookkeeping failed", "id", item.ID, "error", err)
	}
	switch outcome {
	case outcomeCompleted:
		res.Completed++
	case outcomeRetried:
		res.Retried++
	case outcomeDeferred:
		res.Deferred++
	case outcomeFailed:
		res.Failed++
	}
	m.metrics.item(item, outcome)
	return outcome
}

// GetSyncStatus counts queue items per status.
func (m *Manager) GetSyncStatus(ctx context.Context) (queue.Counts, error) {
	items, err := m.queue.GetAll(ctx)
	if err != nil {
		return queue.Counts{}, fmt.Errorf("get queue: %w", err)
	}
	c := queue.Count(items)
	m.metrics.counts(c)
	return c, nil
}

// RetryFailed makes failed items eligible for the next drain.
func (m *Manager) RetryFailed(ctx context.Context) (int, error) {
	n, err := m.queue.RetryFailed(ctx)
	if err != nil {
		return 0, fmt.Errorf("retry failed: %w", err)
	}
	m.log.Info("failed items requeued", "count", n)
	return n, nil
}

func (m *Manager) processItem(ctx context.Context, item *queue.Item) (string, error) {
	log := m.log.With("id", item.ID, "entity", item.Entity, "action", item.Action, "local_id", item.LocalID)

	h, ok := m.handler(item.Entity)

	if item.Retries >= m.maxRetries {
		log.Warn("retry limit reached", "retries", item.Retries)
		return outcomeFailed, m.markFailed(ctx, h, item)
	}

	if err := m.queue.UpdateStatus(ctx, item.ID, queue.StatusSyncing, ""); err != nil {
		return outcomeRetried, err
	}
	if ok {
		if err := h.SetLocalStatus(ctx, item.LocalID, record.SyncStatusSyncing); err != nil {
			log.Warn("failed to mark local record syncing", "error", err)
		}
	}

	var (
		remoteID string
		err      error
	)
	if !ok {
		err = fmt.Errorf("%w: %s", ErrNoHandler, item.Entity)
	} else {
		remoteID, err = dispatch(ctx, h, item)
	}

	if errors.Is(err, ErrDependencyPending) {
		return m.postpone(ctx, h, item, err, log)
	}
	if err != nil {
		return m.retry(ctx, h, item, err, log)
	}

	if remoteID != "" && remoteID != item.RemoteID {
		if err := m.queue.UpdateRemoteID(ctx, item.ID, remoteID); err != nil {
			return outcomeCompleted, err
		}
		item.RemoteID = remoteID
	}
	if remoteID != "" {
		// DELETE или UPDATE могли встать в очередь, пока шёл запрос
		n, err := m.queue.UpdateRemoteIDByLocalID(ctx, item.LocalID, remoteID)
		if err != nil {
			return outcomeCompleted, err
		}
		if n > 0 {
			log.Debug("remote id propagated to queued items", "remote_id", remoteID, "count", n)
		}
	}
	if err := m.queue.UpdateStatus(ctx, item.ID, queue.StatusCompleted, ""); err != nil {
		return outcomeCompleted, err
	}
	item.Status = queue.StatusCompleted

	pending, err := m.queue.HasPending(ctx, item.LocalID, item.ID)
	if err != nil {
		return outcomeCompleted, err
	}
	if !pending {
		if err := h.SetLocalStatus(ctx, item.LocalID, record.SyncStatusSynced); err != nil {
			return outcomeCompleted, err
		}
	}

	log.Debug("item synced", "remote_id", item.RemoteID)
	return outcomeCompleted, nil
}

func (m *Manager) retry(ctx context.Context, h Handler, item *queue.Item, cause error, log *slog.Logger) (string, error) {
	item.Retries++
	item.ErrorMessage = cause.Error()
	log.Warn("item sync failed", "retries", item.Retries, "error", cause)

	if err := m.queue.IncrementRetries(ctx, item.ID); err != nil {
		return outcomeRetried, err
	}
	if item.Retries >= m.maxRetries {
		return outcomeFailed, m.markFailed(ctx, h, item)
	}

	item.Status = queue.StatusPending
	if err := m.queue.UpdateStatus(ctx, item.ID, queue.StatusPending, item.ErrorMessage); err != nil {
		return outcomeRetried, err
	}
	if h != nil {
		if err := h.SetLocalStatus(ctx, item.LocalID, record.SyncStatusPending); err != nil {
			return outcomeRetried, err
		}
	}
	return outcomeRetried, nil
}

// postpone returns the item to pending without spending a retry.
func (m *Manager) postpone(ctx context.Context, h Handler, item *queue.Item, cause error, log *slog.Logger) (string, error) {
	log.Debug("item postponed", "reason", cause)
	item.Status = queue.StatusPending
	item.ErrorMessage = cause.Error()
	if err := m.queue.UpdateStatus(ctx, item.ID, queue.StatusPending, item.ErrorMessage); err != nil {
		return outcomeDeferred, err
	}
	return outcomeDeferred, h.SetLocalStatus(ctx, item.LocalID, record.SyncStatusPending)
}

func (m *Manager) markFailed(ctx context.Context, h Handler, item *queue.Item) error {
	msg := MessageManualAttention
	if item.ErrorMessage != "" {
		msg += ": " + item.ErrorMessage
	}
	item.Status = queue.StatusFailed
	item.ErrorMessage = msg
	if err := m.queue.UpdateStatus(ctx, item.ID, queue.StatusFailed, msg); err != nil {
		return err
	}
	if h != nil {
		return h.SetLocalStatus(ctx, item.LocalID, record.SyncStatusFailed)
	}
	return nil
}

// dispatch turns handler panics into ordinary item errors.
func dispatch(ctx context.Context, h Handler, item *queue.Item) (remoteID string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	switch item.Action {
	case queue.ActionCreate:
		return h.Create(ctx, item)
	case queue.ActionUpdate:
		return h.Update(ctx, item)
	case queue.ActionDelete:
		return item.RemoteID, h.Delete(ctx, item)
	}
	return "", errors.New("unknown action " + string(item.Action))
}
