package session

import (
	"context"
	"time"
)

// Repository stores hashed refresh tokens.
type Repository interface {
	Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	// Consume deletes a live refresh token and returns its owner.
	Consume(ctx context.Context, tokenHash string) (string, error)
}

// PrincipalSource resolves a user id to the data embedded in new tokens.
type PrincipalSource interface {
	FindPrincipal(ctx context.Context, userID string) (Principal, error)
}
