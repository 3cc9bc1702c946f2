package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"clinicsync/internal/domain/session"
)

// SessionStore keeps the single AuthMetadata row.
type SessionStore struct {
	storage *Storage
}

func NewSessionStore(storage *Storage) *SessionStore {
	return &SessionStore{storage: storage}
}

func (s *SessionStore) Get(ctx context.Context) (*session.AuthMetadata, error) {
	var (
		meta                 session.AuthMetadata
		expiry, lastOnlineAt int64
	)
	err := s.storage.db.QueryRowContext(ctx, `
		SELECT token, refresh_token, token_expiry, last_online_time, user_id, user_email, user_name, user_role, clinic_id
		FROM auth_metadata WHERE id = 1`).
		Scan(&meta.Token, &meta.RefreshToken, &expiry, &lastOnlineAt,
			&meta.UserID, &meta.UserEmail, &meta.UserName, &meta.UserRole, &meta.ClinicID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get auth metadata: %w", err)
	}

	meta.TokenExpiry = fromMillis(expiry)
	meta.LastOnlineTime = fromMillis(lastOnlineAt)
	return &meta, nil
}

func (s *SessionStore) Save(ctx context.Context, meta *session.AuthMetadata) error {
	_, err := s.storage.db.ExecContext(ctx, `
		INSERT INTO auth_metadata (id, token, refresh_token, token_expiry, last_online_time, user_id, user_email, user_name, user_role, clinic_id)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			refresh_token = excluded.refresh_token,
			token_expiry = excluded.token_expiry,
			last_online_time = excluded.last_online_time,
			user_id = excluded.user_id,
			user_email = excluded.user_email,
			user_name = excluded.user_name,
			user_role = excluded.user_role,
			clinic_id = excluded.clinic_id`,
		meta.Token, meta.RefreshToken, toMillis(meta.TokenExpiry), toMillis(meta.LastOnlineTime),
		meta.UserID, meta.UserEmail, meta.UserName, meta.UserRole, meta.ClinicID)
	if err != nil {
		return fmt.Errorf("save auth metadata: %w", err)
	}
	return nil
}

// TouchLastOnline is a no-op when nobody is logged in.
func (s *SessionStore) TouchLastOnline(ctx context.Context, at time.Time) error {
	_, err := s.storage.db.ExecContext(ctx,
		`UPDATE auth_metadata SET last_online_time = ? WHERE id = 1`, toMillis(at))
	if err != nil {
		return fmt.Errorf("touch last online: %w", err)
	}
	return nil
}

func (s *SessionStore) Clear(ctx context.Context) error {
	if _, err := s.storage.db.ExecContext(ctx, `DELETE FROM auth_metadata`); err != nil {
		return fmt.Errorf("clear auth metadata: %w", err)
	}
	return nil
}
