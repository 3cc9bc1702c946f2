package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/exp/slog"

	"clinicsync/internal/app/server/api"
	"clinicsync/internal/app/server/config"
	"clinicsync/internal/domain/document"
	"clinicsync/internal/domain/session"
	"clinicsync/internal/domain/user"
	"clinicsync/internal/infrastructure/storage/postgres"
)

const readHeaderTimeout = 5 * time.Second

// App - эталонный сервер клиники, с которым синхронизируются клиенты.
type App struct {
	config  *config.Config
	log     *slog.Logger
	storage *postgres.Storage
	server  *http.Server
}

func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	storage, err := postgres.New(ctx, cfg.DB, log)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	users := user.NewService(postgres.NewUserRepository(storage, log), user.NewPasswordValidator(), log)
	sessions := session.NewService(
		postgres.NewSessionRepository(storage, log),
		users,
		session.NewIssuer(cfg.Auth.Secret, cfg.Auth.AccessTTL),
		cfg.Auth.RefreshTTL,
		log,
	)
	documents := document.NewService(postgres.NewDocumentRepository(storage, log), log)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	mux := api.New(api.Deps{
		Users:     users,
		Sessions:  sessions,
		Documents: documents,
		Registry:  registry,
	}, log)

	return &App{
		config:  cfg,
		log:     log.With("component", "server"),
		storage: storage,
		server: &http.Server{
			Addr:              cfg.Server.RunAddress,
			Handler:           mux,
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}, nil
}

// Run слушает порт до сигнала завершения и корректно останавливает сервер.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("Сервер запущен", "address", a.config.Server.RunAddress, "env", a.config.Env)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
		a.log.Info("Получен сигнал завершения")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (a *App) Close() error {
	return a.storage.Close()
}
