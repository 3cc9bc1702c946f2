// Package connectivity tracks whether the server is reachable and decides
// when the sync queue gets drained.
package connectivity

import (
	"context"
	gosync "sync"
	"time"

	"clinicsync/internal/app/client/syncer"
	"clinicsync/internal/domain/offline"
	"clinicsync/internal/domain/queue"

	"golang.org/x/exp/slog"
)

type ConnectionStatus string

const (
	ConnectionOnline       ConnectionStatus = "online"
	ConnectionOffline      ConnectionStatus = "offline"
	ConnectionReconnecting ConnectionStatus = "reconnecting"
)

type SyncStatus string

const (
	SyncIdle    SyncStatus = "idle"
	SyncSyncing SyncStatus = "syncing"
	SyncSynced  SyncStatus = "synced"
	SyncError   SyncStatus = "error"
)

// Status is a snapshot of the controller state.
type Status struct {
	IsOnline         bool             `json:"is_online"`
	ConnectionStatus ConnectionStatus `json:"connection_status"`
	SyncStatus       SyncStatus       `json:"sync_status"`
	PendingCount     int              `json:"pending_count"`
	FailedCount      int              `json:"failed_count"`
	IsBlocked        bool             `json:"is_blocked"`
	BlockReason      string           `json:"block_reason,omitempty"`
	LastSync         time.Time        `json:"last_sync,omitempty"`
	LastError        string           `json:"last_error,omitempty"`
}

type Prober interface {
	HealthCheck(ctx context.Context) error
}

type Syncer interface {
	ProcessSyncQueue(ctx context.Context) (*syncer.Result, error)
	GetSyncStatus(ctx context.Context) (queue.Counts, error)
}

type Gate interface {
	CanWorkOffline(ctx context.Context) (offline.Decision, error)
}

// Heartbeat persists the last moment the server was seen.
type Heartbeat interface {
	TouchLastOnline(ctx context.Context, at time.Time) error
}

// Intervals configures Run. Zero values fall back to the defaults.
type Intervals struct {
	Probe        time.Duration
	Sync         time.Duration
	OfflineCheck time.Duration
	Heartbeat    time.Duration
	ProbeTimeout time.Duration
}

const (
	defaultProbeInterval        = 10 * time.Second
	defaultSyncInterval         = 30 * time.Second
	defaultOfflineCheckInterval = 60 * time.Second
	defaultHeartbeatInterval    = 5 * time.Minute
	defaultProbeTimeout         = 5 * time.Second
)

func (i Intervals) withDefaults() Intervals {
	if i.Probe <= 0 {
		i.Probe = defaultProbeInterval
	}
	if i.Sync <= 0 {
		i.Sync = defaultSyncInterval
	}
	if i.OfflineCheck <= 0 {
		i.OfflineCheck = defaultOfflineCheckInterval
	}
	if i.Heartbeat <= 0 {
		i.Heartbeat = defaultHeartbeatInterval
	}
	if i.ProbeTimeout <= 0 {
		i.ProbeTimeout = defaultProbeTimeout
	}
	return i
}

type Controller struct {
	prober    Prober
	syncer    Syncer
	gate      Gate
	heartbeat Heartbeat
	intervals Intervals

	// onOnline runs after each offline→online transition, before the drain.
	onOnline func(ctx context.Context) error

	mu           gosync.RWMutex
	status       Status
	reconnecting bool

	kick chan struct{}
	now  func() time.Time
	log  *slog.Logger
}

type Option func(*Controller)

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

func WithIntervals(i Intervals) Option {
	return func(c *Controller) {
		c.intervals = i
	}
}

// WithOnlineHook registers fn to run when the server comes back.
func WithOnlineHook(fn func(ctx context.Context) error) Option {
	return func(c *Controller) {
		c.onOnline = fn
	}
}

func New(prober Prober, s Syncer, gate Gate, heartbeat Heartbeat, log *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		prober:    prober,
		syncer:    s,
		gate:      gate,
		heartbeat: heartbeat,
		status: Status{
			ConnectionStatus: ConnectionOffline,
			SyncStatus:       SyncIdle,
		},
		kick: make(chan struct{}, 1),
		now:  time.Now,
		log:  log.With("component", "connectivity"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.intervals = c.intervals.withDefaults()
	return c
}

func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

func (c *Controller) IsOnline() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status.IsOnline
}

// Probe asks the server whether it is reachable and applies the answer.
func (c *Controller) Probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, c.intervals.ProbeTimeout)
	err := c.prober.HealthCheck(probeCtx)
	cancel()
	if err != nil {
		c.log.Debug("health check failed", "error", err)
	}
	c.SetOnline(ctx, err == nil)
	return err == nil
}

// SetOnline records the network state. Coming back online refreshes the
// heartbeat and drains the queue; going offline re-evaluates the gate.
func (c *Controller) SetOnline(ctx context.Context, online bool) {
	c.mu.Lock()
	// Переподключение уже идёт в другом вызове
	if online == c.status.IsOnline || (online && c.reconnecting) {
		c.mu.Unlock()
		return
	}
	if online {
		c.reconnecting = true
		c.status.ConnectionStatus = ConnectionReconnecting
	} else {
		c.status.IsOnline = false
		c.status.ConnectionStatus = ConnectionOffline
	}
	c.mu.Unlock()

	if !online {
		c.log.Warn("server unreachable, working offline")
		if _, err := c.CheckOffline(ctx); err != nil {
			c.log.Error("offline check failed", "error", err)
		}
		return
	}

	c.log.Info("server reachable again")
	if err := c.beat(ctx); err != nil {
		c.log.Error("heartbeat failed", "error", err)
	}
	if c.onOnline != nil {
		if err := c.onOnline(ctx); err != nil {
			c.log.Warn("online hook failed", "error", err)
		}
	}

	c.mu.Lock()
	c.reconnecting = false
	c.status.IsOnline = true
	c.status.ConnectionStatus = ConnectionOnline
	// Сеть есть, блокировка офлайн-режима больше не действует
	c.status.IsBlocked = false
	c.status.BlockReason = ""
	c.mu.Unlock()

	if _, err := c.TriggerSync(ctx); err != nil {
		c.log.Error("sync after reconnect failed", "error", err)
	}
}

// Heartbeat stamps LastOnlineTime while the server is reachable.
func (c *Controller) Heartbeat(ctx context.Context) error {
	if !c.IsOnline() {
		return ErrOffline
	}
	return c.beat(ctx)
}

func (c *Controller) beat(ctx context.Context) error {
	return c.heartbeat.TouchLastOnline(ctx, c.now())
}

// TriggerSync drains the queue now. It fails with ErrOffline when the
// server is known to be unreachable.
func (c *Controller) TriggerSync(ctx context.Context) (*syncer.Result, error) {
	if !c.IsOnline() {
		return nil, ErrOffline
	}

	c.setSyncStatus(SyncSyncing, "")
	res, err := c.syncer.ProcessSyncQueue(ctx)
	if err != nil {
		c.setSyncStatus(SyncError, err.Error())
		return nil, err
	}

	counts, err := c.RefreshCounts(ctx)
	if err != nil {
		c.setSyncStatus(SyncError, err.Error())
		return res, err
	}

	switch {
	case res.Skipped:
		c.setSyncStatus(SyncIdle, "")
	case counts.Failed > 0:
		c.setSyncStatus(SyncError, "items need manual attention")
	default:
		c.mu.Lock()
		c.status.LastSync = c.now()
		c.mu.Unlock()
		c.setSyncStatus(SyncSynced, "")
	}
	return res, nil
}

// RefreshCounts reloads the pending and failed counters from the queue.
func (c *Controller) RefreshCounts(ctx context.Context) (queue.Counts, error) {
	counts, err := c.syncer.GetSyncStatus(ctx)
	if err != nil {
		return queue.Counts{}, err
	}
	c.mu.Lock()
	c.status.PendingCount = counts.Pending + counts.Syncing
	c.status.FailedCount = counts.Failed
	c.mu.Unlock()
	return counts, nil
}

// CheckOffline asks the gate whether offline work is still allowed and
// publishes the answer as IsBlocked/BlockReason. Online devices are never
// blocked.
func (c *Controller) CheckOffline(ctx context.Context) (offline.Decision, error) {
	d, err := c.gate.CanWorkOffline(ctx)
	if err != nil {
		return offline.Decision{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status.IsOnline {
		return d, nil
	}
	c.status.IsBlocked = !d.Allowed
	c.status.BlockReason = d.Reason
	if !d.Allowed {
		c.log.Warn("offline work blocked", "reason", d.Reason)
	}
	return d, nil
}

// Notify asks a running controller for an opportunistic drain. It never
// blocks; extra requests collapse into one.
func (c *Controller) Notify() {
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

// Run probes the server and drives the periodic triggers until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	probe := time.NewTicker(c.intervals.Probe)
	defer probe.Stop()
	sync := time.NewTicker(c.intervals.Sync)
	defer sync.Stop()
	check := time.NewTicker(c.intervals.OfflineCheck)
	defer check.Stop()
	heartbeat := time.NewTicker(c.intervals.Heartbeat)
	defer heartbeat.Stop()

	c.log.Info("connectivity controller started",
		"probe_interval", c.intervals.Probe,
		"sync_interval", c.intervals.Sync,
	)

	if _, err := c.RefreshCounts(ctx); err != nil {
		c.log.Warn("failed to read queue counts", "error", err)
	}
	if !c.Probe(ctx) {
		c.offlineCheck(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			c.log.Info("connectivity controller stopped")
			return nil
		case <-probe.C:
			c.Probe(ctx)
		case <-sync.C:
			c.periodicSync(ctx)
		case <-c.kick:
			c.periodicSync(ctx)
		case <-check.C:
			if !c.IsOnline() {
				c.offlineCheck(ctx)
			}
		case <-heartbeat.C:
			if c.IsOnline() {
				if err := c.beat(ctx); err != nil {
					c.log.Error("heartbeat failed", "error", err)
				}
			}
		}
	}
}

// periodicSync drains only while online and with work queued.
func (c *Controller) periodicSync(ctx context.Context) {
	if !c.IsOnline() {
		return
	}
	counts, err := c.RefreshCounts(ctx)
	if err != nil {
		c.log.Error("failed to read queue counts", "error", err)
		return
	}
	if counts.Pending == 0 {
		return
	}
	if _, err := c.TriggerSync(ctx); err != nil {
		c.log.Error("periodic sync failed", "error", err)
	}
}

func (c *Controller) offlineCheck(ctx context.Context) {
	if _, err := c.CheckOffline(ctx); err != nil {
		c.log.Error("offline check failed", "error", err)
	}
}

func (c *Controller) setSyncStatus(s SyncStatus, lastErr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.SyncStatus = s
	c.status.LastError = lastErr
}
