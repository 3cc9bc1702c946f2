package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"clinicsync/internal/domain/session"
)

// Validator проверяет access токен.
type Validator interface {
	Validate(ctx context.Context, token string) (*session.Claims, error)
}

type Auth struct {
	api       huma.API
	validator Validator
	log       *slog.Logger
}

func New(api huma.API, validator Validator, log *slog.Logger) *Auth {
	return &Auth{
		api:       api,
		validator: validator,
		log:       log.With("component", "auth_middleware"),
	}
}

type contextKey string

const claimsKey contextKey = "claims"

// Middleware возвращает middleware для Huma с сигнатурой func(ctx Context, next func(Context))
func (a *Auth) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		header := ctx.Header("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			a.log.Debug("missing bearer token", "path", ctx.URL().Path)
			_ = huma.WriteErr(a.api, ctx, http.StatusUnauthorized, "Unauthorized")
			return
		}

		claims, err := a.validator.Validate(ctx.Context(), token)
		if err != nil {
			a.log.Debug("validate error", "error", err)
			_ = huma.WriteErr(a.api, ctx, http.StatusUnauthorized, "Unauthorized")
			return
		}

		next(huma.WithContext(ctx, WithClaims(ctx.Context(), claims)))
	}
}

func WithClaims(ctx context.Context, claims *session.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func ClaimsFromContext(ctx context.Context) (*session.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*session.Claims)
	return claims, ok && claims != nil
}
