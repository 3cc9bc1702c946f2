package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, userID, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *MockRepository) Consume(ctx context.Context, tokenHash string) (string, error) {
	args := m.Called(ctx, tokenHash)
	return args.String(0), args.Error(1)
}

type MockPrincipals struct {
	mock.Mock
}

func (m *MockPrincipals) FindPrincipal(ctx context.Context, userID string) (Principal, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(Principal), args.Error(1)
}

var testPrincipal = Principal{
	UserID:   "u-1",
	Email:    "ana@clinic.test",
	Name:     "Ana",
	Role:     "doctor",
	ClinicID: "c-1",
}

func TestIssuer_IssueAndParse(t *testing.T) {
	// Arrange
	issuer := NewIssuer("secret", time.Hour)

	// Act
	token, expiresAt, err := issuer.Issue(testPrincipal)
	require.NoError(t, err)
	claims, err := issuer.Parse(token)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "c-1", claims.ClinicID)
	assert.Equal(t, "doctor", claims.Role)
	assert.WithinDuration(t, expiresAt, claims.ExpiresAt.Time, time.Second)
}

func TestIssuer_Parse_Rejects(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	token, _, err := issuer.Issue(testPrincipal)
	require.NoError(t, err)

	expired := NewIssuer("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	oldToken, _, err := expired.Issue(testPrincipal)
	require.NoError(t, err)

	tests := []struct {
		name   string
		issuer *Issuer
		token  string
	}{
		{name: "wrong secret", issuer: NewIssuer("other", time.Hour), token: token},
		{name: "expired", issuer: issuer, token: oldToken},
		{name: "garbage", issuer: issuer, token: "not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.issuer.Parse(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestExpiryFromToken(t *testing.T) {
	issuer := NewIssuer("secret", 90*time.Minute)
	token, expiresAt, err := issuer.Issue(testPrincipal)
	require.NoError(t, err)

	got, err := ExpiryFromToken(token)

	require.NoError(t, err)
	assert.Equal(t, expiresAt.Unix(), got.Unix())

	_, err = ExpiryFromToken("abc.def")
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestService_Create(t *testing.T) {
	// Arrange
	repo := new(MockRepository)
	service := NewService(repo, nil, NewIssuer("secret", time.Hour), 24*time.Hour, slog.Default())

	repo.On("Create", mock.Anything, "u-1", mock.MatchedBy(func(hash string) bool {
		return len(hash) == 64
	}), mock.MatchedBy(func(expiresAt time.Time) bool {
		return expiresAt.After(time.Now().Add(23 * time.Hour))
	})).Return(nil)

	// Act
	tokens, err := service.Create(context.Background(), testPrincipal)

	// Assert
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	// base64 of 32 bytes with padding
	assert.Len(t, tokens.RefreshToken, 44)
	repo.AssertExpectations(t)
}

func TestService_Refresh(t *testing.T) {
	t.Run("rotates token", func(t *testing.T) {
		repo := new(MockRepository)
		principals := new(MockPrincipals)
		service := NewService(repo, principals, NewIssuer("secret", time.Hour), time.Hour, slog.Default())

		repo.On("Consume", mock.Anything, hashToken("old")).Return("u-1", nil)
		principals.On("FindPrincipal", mock.Anything, "u-1").Return(testPrincipal, nil)
		repo.On("Create", mock.Anything, "u-1", mock.Anything, mock.Anything).Return(nil)

		tokens, err := service.Refresh(context.Background(), "old")

		require.NoError(t, err)
		assert.NotEqual(t, "old", tokens.RefreshToken)
		assert.Equal(t, testPrincipal, tokens.Principal)
		repo.AssertExpectations(t)
	})

	t.Run("unknown token", func(t *testing.T) {
		repo := new(MockRepository)
		service := NewService(repo, nil, NewIssuer("secret", time.Hour), time.Hour, slog.Default())

		repo.On("Consume", mock.Anything, mock.Anything).Return("", errors.New("no rows"))

		_, err := service.Refresh(context.Background(), "missing")

		assert.ErrorIs(t, err, ErrInvalidSession)
	})
}
