package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	gosync "sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/exp/slog"

	"clinicsync/internal/app/client/config"
	"clinicsync/internal/app/client/connectivity"
	"clinicsync/internal/app/client/remote"
	"clinicsync/internal/app/client/syncer"
	"clinicsync/internal/domain/clinic"
	"clinicsync/internal/domain/conflict"
	"clinicsync/internal/domain/offline"
	"clinicsync/internal/domain/queue"
	"clinicsync/internal/domain/record"
	"clinicsync/internal/domain/session"
	"clinicsync/internal/infrastructure/storage/sqlite"
)

const (
	// токен обновляется, если до истечения осталось меньше
	tokenRefreshWindow = time.Hour
	drainLeaseTTL      = 2 * time.Minute
	healthTimeout      = 5 * time.Second
)

type App struct {
	config     *config.Config
	log        *slog.Logger
	storage    *sqlite.Storage
	sessions   *sqlite.SessionStore
	queue      *sqlite.QueueRepository
	remote     *remote.Client
	gate       *offline.Gate
	manager    *syncer.Manager
	controller *connectivity.Controller
	registry   *prometheus.Registry

	Patients     *Collection[clinic.Patient]
	Appointments *Collection[clinic.Appointment]

	now    func() time.Time
	wg     gosync.WaitGroup
	cancel context.CancelFunc
}

type Option func(*App)

// WithClock replaces time.Now for the session and the gate.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}

func New(cfg *config.Config, log *slog.Logger, opts ...Option) (*App, error) {
	a := &App{
		config:   cfg,
		log:      log,
		registry: prometheus.NewRegistry(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	storage, err := sqlite.New(cfg.DataPath, log, sqlite.WithClock(a.now))
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации хранилища: %w", err)
	}
	a.storage = storage
	a.sessions = sqlite.NewSessionStore(storage)
	a.queue = sqlite.NewQueueRepository(storage, log)

	patients, err := sqlite.NewRecordRepository[clinic.Patient](storage, record.EntityPatient, log)
	if err != nil {
		_ = storage.Close()
		return nil, err
	}
	appointments, err := sqlite.NewRecordRepository[clinic.Appointment](storage, record.EntityAppointment, log)
	if err != nil {
		_ = storage.Close()
		return nil, err
	}

	a.remote = remote.New(cfg.BaseURL(), storedTokens{store: a.sessions}, log, remote.WithTimeout(cfg.RequestTimeout))
	a.gate = offline.NewGate(a.sessions, cfg.MaxOfflineTime, log, offline.WithClock(a.now))

	a.registry.MustRegister(collectors.NewGoCollector())
	a.manager = syncer.New(a.queue, cfg.MaxSyncRetries, log,
		syncer.WithLease(sqlite.NewLease(storage), uuid.NewString(), drainLeaseTTL),
		syncer.WithMetrics(syncer.NewMetrics(a.registry)),
	)
	a.manager.Register(record.EntityPatient, syncer.NewEntityHandler[clinic.Patient](
		patients,
		remote.NewResource[clinic.Patient](a.remote, record.EntityPatient),
		conflict.NewResolver[clinic.Patient](log),
		log,
	))
	a.manager.Register(record.EntityAppointment, syncer.NewEntityHandler[clinic.Appointment](
		appointments,
		remote.NewResource[clinic.Appointment](a.remote, record.EntityAppointment),
		conflict.NewResolver[clinic.Appointment](log),
		log,
		syncer.WithPrepare(resolvePatientRef(patients)),
	))

	a.controller = connectivity.New(a.remote, a.manager, a.gate, a.sessions, log,
		connectivity.WithClock(a.now),
		connectivity.WithOnlineHook(a.refreshIfNeeded),
		connectivity.WithIntervals(connectivity.Intervals{
			Probe:        cfg.ProbeInterval,
			Sync:         cfg.SyncInterval,
			OfflineCheck: cfg.OfflineCheckInterval,
			Heartbeat:    cfg.HeartbeatInterval,
		}),
	)

	scope := clinicScope(a.sessions)
	a.Patients = NewCollection[clinic.Patient](record.EntityPatient, patients, a.queue, a.gate, scope, log,
		WithValidator[clinic.Patient](clinic.Patient.Validate),
		WithPriority[clinic.Patient](clinic.PatientPriority),
		WithNotifier[clinic.Patient](a.controller),
		WithCollectionClock[clinic.Patient](a.now),
	)
	a.Appointments = NewCollection[clinic.Appointment](record.EntityAppointment, appointments, a.queue, a.gate, scope, log,
		WithValidator[clinic.Appointment](clinic.Appointment.Validate),
		WithPriority[clinic.Appointment](clinic.AppointmentPriority),
		WithNotifier[clinic.Appointment](a.controller),
		WithCollectionClock[clinic.Appointment](a.now),
	)

	return a, nil
}

func (a *App) Close() error {
	return a.storage.Close()
}

// Run держит клиент запущенным: следит за сетью и синхронизирует очередь
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	defer cancel()

	go a.handleSignals()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.controller.Run(ctx); err != nil {
			a.log.Error("Ошибка контроллера соединения", "error", err)
		}
	}()

	if a.config.MetricsAddress != "" {
		a.serveMetrics(ctx)
	}

	a.log.Info("Клиент запущен",
		"server", a.config.ServerAddress,
		"env", a.config.Env,
	)

	a.wg.Wait()
	return nil
}

func (a *App) serveMetrics(ctx context.Context) {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              a.config.MetricsAddress,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("Ошибка сервера метрик", "error", err)
		}
	}()
	go func() {
		defer a.wg.Done()
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

func (a *App) handleSignals() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigChan)

	sig := <-sigChan
	a.log.Info("Получен сигнал завершения", "signal", sig.String())

	if a.cancel != nil {
		a.cancel()
	}
}

func (a *App) Shutdown() {
	a.log.Info("Завершение работы клиента...")

	if a.cancel != nil {
		a.cancel()
	}

	a.wg.Wait()
	a.log.Info("Клиент завершил работу")
}

// Register создает пользователя на сервере, локальная сессия не меняется
func (a *App) Register(ctx context.Context, reg remote.Registration) (*remote.User, error) {
	return a.remote.Register(ctx, reg)
}

// Login authenticates against the server and stores the session locally.
// Logging in as another user discards the previous user's offline data.
func (a *App) Login(ctx context.Context, email, password string) (*session.AuthMetadata, error) {
	sess, err := a.remote.Login(ctx, remote.Credentials{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	current, err := a.sessions.Get(ctx)
	if err != nil {
		return nil, err
	}
	if current != nil && current.UserID != sess.User.ID {
		a.log.Warn("another user logged in, wiping local data", "previous", current.UserEmail)
		if err := a.storage.Wipe(ctx); err != nil {
			return nil, err
		}
	}

	return a.saveSession(ctx, sess)
}

// Logout clears every local table. Unsynced changes are lost; callers
// should check PendingChanges first.
func (a *App) Logout(ctx context.Context) error {
	return a.storage.Wipe(ctx)
}

// PendingChanges counts queue items that have not reached the server.
func (a *App) PendingChanges(ctx context.Context) (int, error) {
	c, err := a.manager.GetSyncStatus(ctx)
	if err != nil {
		return 0, err
	}
	return c.Pending + c.Syncing + c.Failed, nil
}

// RefreshSession exchanges the refresh token for a new access token.
func (a *App) RefreshSession(ctx context.Context) error {
	meta, err := a.sessions.Get(ctx)
	if err != nil {
		return err
	}
	if meta == nil || meta.RefreshToken == "" {
		return ErrNotAuthenticated
	}

	sess, err := a.remote.Refresh(ctx, meta.RefreshToken)
	if err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}
	_, err = a.saveSession(ctx, sess)
	return err
}

func (a *App) refreshIfNeeded(ctx context.Context) error {
	meta, err := a.sessions.Get(ctx)
	if err != nil || meta == nil {
		return err
	}
	if meta.TokenExpiry.Sub(a.now()) > tokenRefreshWindow {
		return nil
	}
	a.log.Info("access token close to expiry, refreshing", "expires_at", meta.TokenExpiry)
	return a.RefreshSession(ctx)
}

func (a *App) saveSession(ctx context.Context, sess *remote.Session) (*session.AuthMetadata, error) {
	expiry, err := session.ExpiryFromToken(sess.AccessToken)
	if err != nil {
		return nil, err
	}

	meta := &session.AuthMetadata{
		Token:          sess.AccessToken,
		RefreshToken:   sess.RefreshToken,
		TokenExpiry:    expiry,
		LastOnlineTime: a.now(),
		UserID:         sess.User.ID,
		UserEmail:      sess.User.Email,
		UserName:       sess.User.Name,
		UserRole:       sess.User.Role,
		ClinicID:       sess.User.ClinicID,
	}
	if err := a.sessions.Save(ctx, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// Session returns nil when nobody is logged in.
func (a *App) Session(ctx context.Context) (*session.AuthMetadata, error) {
	return a.sessions.Get(ctx)
}

// Sync runs one drain if the server answers. retryFailed first gives
// items that ran out of retries another chance.
func (a *App) Sync(ctx context.Context, retryFailed bool) (*syncer.Result, error) {
	meta, err := a.sessions.Get(ctx)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, ErrNotAuthenticated
	}

	if retryFailed {
		if _, err := a.manager.RetryFailed(ctx); err != nil {
			return nil, err
		}
	}

	if !a.reachable(ctx) {
		return nil, connectivity.ErrOffline
	}
	if err := a.sessions.TouchLastOnline(ctx, a.now()); err != nil {
		return nil, err
	}
	if err := a.refreshIfNeeded(ctx); err != nil {
		a.log.Warn("token refresh failed", "error", err)
	}

	return a.manager.ProcessSyncQueue(ctx)
}

// StatusReport is what `status` prints.
type StatusReport struct {
	connectivity.Status
	User     string       `json:"user,omitempty"`
	ClinicID string       `json:"clinic_id,omitempty"`
	Queue    queue.Counts `json:"queue"`
}

// Status probes the server once and reports without draining.
func (a *App) Status(ctx context.Context) (*StatusReport, error) {
	counts, err := a.manager.GetSyncStatus(ctx)
	if err != nil {
		return nil, err
	}
	decision, err := a.gate.CanWorkOffline(ctx)
	if err != nil {
		return nil, err
	}
	meta, err := a.sessions.Get(ctx)
	if err != nil {
		return nil, err
	}

	online := a.reachable(ctx)
	r := &StatusReport{
		Status: connectivity.Status{
			IsOnline:         online,
			ConnectionStatus: connectivity.ConnectionOffline,
			SyncStatus:       connectivity.SyncIdle,
			PendingCount:     counts.Pending + counts.Syncing,
			FailedCount:      counts.Failed,
		},
		Queue: counts,
	}
	if online {
		r.ConnectionStatus = connectivity.ConnectionOnline
	} else {
		r.IsBlocked = !decision.Allowed
		r.BlockReason = decision.Reason
	}
	switch {
	case a.manager.IsSyncing() || counts.Syncing > 0:
		r.SyncStatus = connectivity.SyncSyncing
	case counts.Failed > 0:
		r.SyncStatus = connectivity.SyncError
	case counts.Pending == 0:
		r.SyncStatus = connectivity.SyncSynced
	}
	if meta != nil {
		r.User = meta.UserEmail
		r.ClinicID = meta.ClinicID
	}
	return r, nil
}

// FailedItems lists queue items waiting for manual attention.
func (a *App) FailedItems(ctx context.Context) ([]*queue.Item, error) {
	all, err := a.queue.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	var failed []*queue.Item
	for _, item := range all {
		if item.Status == queue.StatusFailed {
			failed = append(failed, item)
		}
	}
	return failed, nil
}

func (a *App) reachable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	if err := a.remote.HealthCheck(ctx); err != nil {
		a.log.Debug("server unreachable", "error", err)
		return false
	}
	return true
}
