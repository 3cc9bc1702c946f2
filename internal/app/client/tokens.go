package client

import (
	"context"
	"errors"

	"clinicsync/internal/domain/session"
)

var ErrNotAuthenticated = errors.New("not logged in")

// storedTokens reads the bearer token from the local session on every
// request, so a refresh is picked up without rebuilding the client.
type storedTokens struct {
	store session.Store
}

func (s storedTokens) Token(ctx context.Context) (string, error) {
	meta, err := s.store.Get(ctx)
	if err != nil {
		return "", err
	}
	if meta == nil || meta.Token == "" {
		return "", ErrNotAuthenticated
	}
	return meta.Token, nil
}

// clinicScope is the ScopeFunc backed by the local session.
func clinicScope(store session.Store) ScopeFunc {
	return func(ctx context.Context) (string, error) {
		meta, err := store.Get(ctx)
		if err != nil {
			return "", err
		}
		if meta == nil {
			return "", ErrNotAuthenticated
		}
		return meta.ClinicID, nil
	}
}
