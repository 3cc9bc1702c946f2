package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"clinicsync/internal/domain/record"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/exp/slog"
)

const dsnParams = "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"

// Storage is the client-side durable store. Every write is committed
// before the call returns.
type Storage struct {
	db  *sql.DB
	now func() time.Time
	log *slog.Logger
}

type Option func(*Storage)

// WithClock replaces time.Now for timestamps written by the store.
func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		s.now = now
	}
}

func New(path string, log *slog.Logger, opts ...Option) (*Storage, error) {
	db, err := sql.Open("sqlite3", path+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Один писатель: SQLite не любит конкурентные записи
	db.SetMaxOpenConns(1)

	s := &Storage{
		db:  db,
		now: time.Now,
		log: log.With("component", "sqlite_storage"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.initTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init tables: %w", err)
	}

	return s, nil
}

func (s *Storage) initTables(ctx context.Context) error {
	for _, entity := range record.Entities() {
		_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %[1]s (
				id TEXT PRIMARY KEY,
				remote_id TEXT NOT NULL DEFAULT '',
				scope_id TEXT NOT NULL,
				data TEXT NOT NULL,
				sync_status TEXT NOT NULL,
				local_only INTEGER NOT NULL DEFAULT 1,
				updated_at INTEGER NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_%[1]s_scope ON %[1]s(scope_id);
		`, tableName(entity)))
		if err != nil {
			return fmt.Errorf("create %s table: %w", entity, err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS sync_queue (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			entity TEXT NOT NULL,
			action TEXT NOT NULL,
			data TEXT,
			local_id TEXT NOT NULL,
			remote_id TEXT NOT NULL DEFAULT '',
			priority TEXT NOT NULL,
			retries INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			error_message TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sync_queue_status ON sync_queue(status);
		CREATE INDEX IF NOT EXISTS idx_sync_queue_local_id ON sync_queue(local_id);

		CREATE TABLE IF NOT EXISTS auth_metadata (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			token TEXT NOT NULL,
			refresh_token TEXT NOT NULL DEFAULT '',
			token_expiry INTEGER NOT NULL,
			last_online_time INTEGER NOT NULL,
			user_id TEXT NOT NULL DEFAULT '',
			user_email TEXT NOT NULL DEFAULT '',
			user_name TEXT NOT NULL DEFAULT '',
			user_role TEXT NOT NULL DEFAULT '',
			clinic_id TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS sync_lease (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			holder TEXT NOT NULL,
			expires_at INTEGER NOT NULL
		);
	`)
	return err
}

// Wipe removes every cached record, the queue, the session and any lease.
func (s *Storage) Wipe(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	tables := []string{"sync_queue", "auth_metadata", "sync_lease"}
	for _, entity := range record.Entities() {
		tables = append(tables, tableName(entity))
	}
	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("wipe %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.log.Info("local data wiped")
	return nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// timestamp returns the store clock truncated to what survives a round-trip.
func (s *Storage) timestamp() time.Time {
	return time.UnixMilli(s.now().UnixMilli())
}

func tableName(entity record.Entity) string {
	return "records_" + string(entity)
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
