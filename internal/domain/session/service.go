package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/exp/slog"
)

type Servicer interface {
	Create(ctx context.Context, p Principal) (*Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (*Tokens, error)
	Validate(ctx context.Context, token string) (*Claims, error)
}

// Tokens is an access/refresh pair handed out on login and refresh.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Principal    Principal
}

type Service struct {
	repo       Repository
	principals PrincipalSource
	issuer     *Issuer
	refreshTTL time.Duration
	log        *slog.Logger
}

func NewService(repo Repository, principals PrincipalSource, issuer *Issuer, refreshTTL time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		principals: principals,
		issuer:     issuer,
		refreshTTL: refreshTTL,
		log:        log.With("component", "session_service"),
	}
}

func (s *Service) Create(ctx context.Context, p Principal) (*Tokens, error) {
	access, expiresAt, err := s.issuer.Issue(p)
	if err != nil {
		return nil, err
	}

	// Генерация refresh токена
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	refresh := base64.URLEncoding.EncodeToString(tokenBytes)

	if err := s.repo.Create(ctx, p.UserID, hashToken(refresh), s.issuer.now().Add(s.refreshTTL)); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	return &Tokens{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
		Principal:    p,
	}, nil
}

// Refresh rotates the refresh token: the presented one is consumed and a
// new pair is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	userID, err := s.repo.Consume(ctx, hashToken(refreshToken))
	if err != nil {
		s.log.Debug("refresh rejected", "error", err)
		return nil, ErrInvalidSession
	}

	p, err := s.principals.FindPrincipal(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find principal: %w", err)
	}

	return s.Create(ctx, p)
}

func (s *Service) Validate(_ context.Context, token string) (*Claims, error) {
	return s.issuer.Parse(token)
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
