package session

import (
	"context"
	"time"
)

// AuthMetadata is the single locally persisted session of the client.
type AuthMetadata struct {
	Token          string    `json:"token"`
	RefreshToken   string    `json:"refresh_token"`
	TokenExpiry    time.Time `json:"token_expiry"`
	LastOnlineTime time.Time `json:"last_online_time"`
	UserID         string    `json:"user_id"`
	UserEmail      string    `json:"user_email"`
	UserName       string    `json:"user_name"`
	UserRole       string    `json:"user_role"`
	ClinicID       string    `json:"clinic_id"`
}

// Store keeps AuthMetadata on the device. Get returns nil, nil when nobody
// is logged in.
type Store interface {
	Get(ctx context.Context) (*AuthMetadata, error)
	Save(ctx context.Context, meta *AuthMetadata) error
	TouchLastOnline(ctx context.Context, at time.Time) error
	Clear(ctx context.Context) error
}
