package connectivity

import (
	"context"
	"errors"
	gosync "sync"
	"sync/atomic"
	"testing"
	"time"

	"clinicsync/internal/app/client/syncer"
	"clinicsync/internal/domain/offline"
	"clinicsync/internal/domain/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type fakeProber struct {
	mu  gosync.Mutex
	err error
}

func (p *fakeProber) HealthCheck(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *fakeProber) set(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

type fakeSyncer struct {
	mu     gosync.Mutex
	drains int
	res    *syncer.Result
	err    error
	counts queue.Counts
}

func (s *fakeSyncer) ProcessSyncQueue(context.Context) (*syncer.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drains++
	if s.err != nil {
		return nil, s.err
	}
	if s.res != nil {
		return s.res, nil
	}
	// дренаж опустошает очередь
	s.counts.Pending = 0
	return &syncer.Result{}, nil
}

func (s *fakeSyncer) GetSyncStatus(context.Context) (queue.Counts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts, nil
}

func (s *fakeSyncer) Drains() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drains
}

func (s *fakeSyncer) setPending(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts.Pending = n
}

type fakeGate struct {
	decision offline.Decision
	calls    int
}

func (g *fakeGate) CanWorkOffline(context.Context) (offline.Decision, error) {
	g.calls++
	return g.decision, nil
}

type fakeHeartbeat struct {
	mu    gosync.Mutex
	beats []time.Time

	// block, если задан, держит первый heartbeat до закрытия канала
	block   chan struct{}
	entered chan struct{}
}

func (h *fakeHeartbeat) TouchLastOnline(_ context.Context, at time.Time) error {
	h.mu.Lock()
	h.beats = append(h.beats, at)
	block, entered := h.block, h.entered
	h.block = nil
	h.mu.Unlock()
	if block != nil {
		close(entered)
		<-block
	}
	return nil
}

func (h *fakeHeartbeat) Beats() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.beats)
}

type fixture struct {
	prober    *fakeProber
	syncer    *fakeSyncer
	gate      *fakeGate
	heartbeat *fakeHeartbeat
	c         *Controller
}

var fixedNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newFixture(opts ...Option) *fixture {
	f := &fixture{
		prober:    &fakeProber{},
		syncer:    &fakeSyncer{},
		gate:      &fakeGate{decision: offline.Decision{Allowed: true}},
		heartbeat: &fakeHeartbeat{},
	}
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	f.c = New(f.prober, f.syncer, f.gate, f.heartbeat, slog.Default(), opts...)
	return f
}

func TestController_InitialStatus(t *testing.T) {
	f := newFixture()

	st := f.c.Status()

	assert.False(t, st.IsOnline)
	assert.Equal(t, ConnectionOffline, st.ConnectionStatus)
	assert.Equal(t, SyncIdle, st.SyncStatus)
	assert.False(t, st.IsBlocked)
}

func TestController_SetOnline_Reconnect(t *testing.T) {
	// Arrange
	var hookCalls int
	f := newFixture(WithOnlineHook(func(context.Context) error {
		hookCalls++
		return nil
	}))
	f.syncer.setPending(2)

	// Act
	f.c.SetOnline(context.Background(), true)

	// Assert
	st := f.c.Status()
	assert.True(t, st.IsOnline)
	assert.Equal(t, ConnectionOnline, st.ConnectionStatus)
	assert.Equal(t, SyncSynced, st.SyncStatus)
	assert.Equal(t, 0, st.PendingCount)
	assert.Equal(t, fixedNow, st.LastSync)
	assert.Equal(t, 1, f.syncer.Drains())
	assert.Equal(t, 1, f.heartbeat.Beats())
	assert.Equal(t, 1, hookCalls)

	// повторный сигнал "онлайн" не запускает второй дренаж
	f.c.SetOnline(context.Background(), true)
	assert.Equal(t, 1, f.syncer.Drains())
}

func TestController_SetOnline_ConcurrentReconnect(t *testing.T) {
	// Arrange
	var hookCalls atomic.Int32
	f := newFixture(WithOnlineHook(func(context.Context) error {
		hookCalls.Add(1)
		return nil
	}))
	release := make(chan struct{})
	f.heartbeat.block = release
	f.heartbeat.entered = make(chan struct{})
	entered := f.heartbeat.entered

	// Act
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.c.SetOnline(context.Background(), true)
	}()
	<-entered
	assert.Equal(t, ConnectionReconnecting, f.c.Status().ConnectionStatus)
	f.c.SetOnline(context.Background(), true)
	f.c.SetOnline(context.Background(), true)
	close(release)
	<-done

	// Assert
	assert.Equal(t, 1, f.heartbeat.Beats())
	assert.Equal(t, int32(1), hookCalls.Load())
	assert.Equal(t, 1, f.syncer.Drains())
	assert.True(t, f.c.IsOnline())
	assert.Equal(t, ConnectionOnline, f.c.Status().ConnectionStatus)
}

func TestController_SetOnline_GoingOffline(t *testing.T) {
	tests := []struct {
		name     string
		decision offline.Decision
		blocked  bool
	}{
		{
			name:     "offline work allowed",
			decision: offline.Decision{Allowed: true},
			blocked:  false,
		},
		{
			name:     "offline too long",
			decision: offline.Decision{Allowed: false, Reason: offline.ReasonOfflineTooLong},
			blocked:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.gate.decision = tt.decision
			f.c.SetOnline(context.Background(), true)

			f.c.SetOnline(context.Background(), false)

			st := f.c.Status()
			assert.False(t, st.IsOnline)
			assert.Equal(t, ConnectionOffline, st.ConnectionStatus)
			assert.Equal(t, tt.blocked, st.IsBlocked)
			assert.Equal(t, tt.decision.Reason, st.BlockReason)
			assert.Equal(t, 1, f.gate.calls)
		})
	}
}

func TestController_ReconnectClearsBlock(t *testing.T) {
	f := newFixture()
	f.gate.decision = offline.Decision{Allowed: false, Reason: offline.ReasonTokenExpired}
	_, err := f.c.CheckOffline(context.Background())
	require.NoError(t, err)
	require.True(t, f.c.Status().IsBlocked)

	f.c.SetOnline(context.Background(), true)

	assert.False(t, f.c.Status().IsBlocked)
	assert.Empty(t, f.c.Status().BlockReason)
}

func TestController_TriggerSync(t *testing.T) {
	t.Run("offline", func(t *testing.T) {
		f := newFixture()

		_, err := f.c.TriggerSync(context.Background())

		assert.ErrorIs(t, err, ErrOffline)
		assert.Zero(t, f.syncer.Drains())
	})

	t.Run("drain error", func(t *testing.T) {
		f := newFixture()
		f.c.SetOnline(context.Background(), true)
		f.syncer.err = errors.New("disk full")

		_, err := f.c.TriggerSync(context.Background())

		assert.Error(t, err)
		assert.Equal(t, SyncError, f.c.Status().SyncStatus)
		assert.Equal(t, "disk full", f.c.Status().LastError)
	})

	t.Run("failed items", func(t *testing.T) {
		f := newFixture()
		f.c.SetOnline(context.Background(), true)
		f.syncer.counts.Failed = 1

		_, err := f.c.TriggerSync(context.Background())

		require.NoError(t, err)
		assert.Equal(t, SyncError, f.c.Status().SyncStatus)
		assert.Equal(t, 1, f.c.Status().FailedCount)
	})

	t.Run("skipped drain", func(t *testing.T) {
		f := newFixture()
		f.c.SetOnline(context.Background(), true)
		f.syncer.res = &syncer.Result{Skipped: true}

		res, err := f.c.TriggerSync(context.Background())

		require.NoError(t, err)
		assert.True(t, res.Skipped)
		assert.Equal(t, SyncIdle, f.c.Status().SyncStatus)
	})
}

func TestController_PeriodicSync(t *testing.T) {
	f := newFixture()
	f.c.SetOnline(context.Background(), true)
	require.Equal(t, 1, f.syncer.Drains())

	// пустая очередь
	f.c.periodicSync(context.Background())
	assert.Equal(t, 1, f.syncer.Drains())

	f.syncer.setPending(3)
	f.c.periodicSync(context.Background())
	assert.Equal(t, 2, f.syncer.Drains())
}

func TestController_Heartbeat(t *testing.T) {
	f := newFixture()

	assert.ErrorIs(t, f.c.Heartbeat(context.Background()), ErrOffline)

	f.c.SetOnline(context.Background(), true)
	require.NoError(t, f.c.Heartbeat(context.Background()))
	assert.Equal(t, 2, f.heartbeat.Beats())
}

func TestController_Probe(t *testing.T) {
	f := newFixture()
	f.prober.set(errors.New("connection refused"))

	assert.False(t, f.c.Probe(context.Background()))
	assert.False(t, f.c.IsOnline())

	f.prober.set(nil)
	assert.True(t, f.c.Probe(context.Background()))
	assert.True(t, f.c.IsOnline())
}

func TestController_Notify_NeverBlocks(t *testing.T) {
	f := newFixture()

	f.c.Notify()
	f.c.Notify()

	assert.Len(t, f.c.kick, 1)
}

func TestController_Run(t *testing.T) {
	f := newFixture(WithIntervals(Intervals{
		Probe:        5 * time.Millisecond,
		Sync:         5 * time.Millisecond,
		OfflineCheck: 5 * time.Millisecond,
		Heartbeat:    5 * time.Millisecond,
	}))
	f.prober.set(errors.New("down"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.c.Run(ctx) }()

	// Офлайн: дренажа нет
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, f.syncer.Drains())

	// Сервер вернулся, очередь не пуста
	f.syncer.setPending(1)
	f.prober.set(nil)
	assert.Eventually(t, func() bool { return f.syncer.Drains() > 0 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return f.heartbeat.Beats() > 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
