// Package offline decides whether the device may accept mutations while
// the server is unreachable.
package offline

import (
	"context"
	"fmt"
	"time"

	"clinicsync/internal/domain/session"

	"golang.org/x/exp/slog"
)

const (
	ReasonNoSession      = "no active session"
	ReasonOfflineTooLong = "offline too long, must reconnect"
	ReasonTokenExpired   = "session token expired, must reconnect to renew"
)

// Decision is the gate's answer. Reason is empty when Allowed.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

type MetadataReader interface {
	Get(ctx context.Context) (*session.AuthMetadata, error)
}

type Gate struct {
	store      MetadataReader
	maxOffline time.Duration
	now        func() time.Time
	log        *slog.Logger
}

type Option func(*Gate)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		g.now = now
	}
}

func NewGate(store MetadataReader, maxOffline time.Duration, log *slog.Logger, opts ...Option) *Gate {
	g := &Gate{
		store:      store,
		maxOffline: maxOffline,
		now:        time.Now,
		log:        log.With("component", "offline_gate"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CanWorkOffline evaluates the checks in order; the first failing one wins.
func (g *Gate) CanWorkOffline(ctx context.Context) (Decision, error) {
	meta, err := g.store.Get(ctx)
	if err != nil {
		return Decision{}, fmt.Errorf("read auth metadata: %w", err)
	}
	if meta == nil || meta.Token == "" {
		return deny(ReasonNoSession), nil
	}

	now := g.now()
	if now.Sub(meta.LastOnlineTime) > g.maxOffline {
		return deny(ReasonOfflineTooLong), nil
	}
	if now.After(meta.TokenExpiry) {
		return deny(ReasonTokenExpired), nil
	}

	return Decision{Allowed: true}, nil
}

// Check is CanWorkOffline for callers that only need an error.
func (g *Gate) Check(ctx context.Context) error {
	d, err := g.CanWorkOffline(ctx)
	if err != nil {
		return err
	}
	if !d.Allowed {
		g.log.Warn("offline mutation rejected", "reason", d.Reason)
		return fmt.Errorf("%w: %s", ErrOfflineNotPermitted, d.Reason)
	}
	return nil
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}
