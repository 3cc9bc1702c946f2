package user

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"clinicsync/internal/domain/session"
	"clinicsync/internal/domain/user"
)

type Handler struct {
	service    user.Servicer
	session    session.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service user.Servicer, session session.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		session:    session,
		log:        log.With("component", "auth_handler"),
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.registerOp(), h.register)
	huma.Register(api, h.loginOp(), h.login)
	huma.Register(api, h.refreshOp(), h.refresh)
}

func (h *Handler) register(ctx context.Context, input *registerInput) (*registerOutput, error) {
	u, err := h.service.Register(ctx, user.RegisterRequest{
		Email:    input.Body.Email,
		Password: input.Body.Password,
		Name:     input.Body.Name,
		Role:     input.Body.Role,
		ClinicID: input.Body.ClinicID,
	})
	switch {
	case errors.Is(err, user.ErrAlreadyExists):
		return nil, huma.Error409Conflict("user already exists")
	case errors.Is(err, user.ErrInvalidInput):
		return nil, huma.Error422UnprocessableEntity(err.Error())
	case err != nil:
		h.log.Error("register failed", "error", err)
		return nil, huma.Error500InternalServerError("register failed")
	}

	return &registerOutput{Body: toUserResponse(u.Principal())}, nil
}

func (h *Handler) login(ctx context.Context, input *loginInput) (*sessionOutput, error) {
	u, err := h.service.Authenticate(ctx, input.Body.Email, input.Body.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidAuth) {
			return nil, huma.Error401Unauthorized("Invalid credentials")
		}
		h.log.Error("authenticate failed", "error", err)
		return nil, huma.Error500InternalServerError("login failed")
	}

	tokens, err := h.session.Create(ctx, u.Principal())
	if err != nil {
		h.log.Error("create session", "user_id", u.ID, "error", err)
		return nil, huma.Error500InternalServerError("create session failed")
	}

	return &sessionOutput{Body: toSessionResponse(tokens)}, nil
}

func (h *Handler) refresh(ctx context.Context, input *refreshInput) (*sessionOutput, error) {
	tokens, err := h.session.Refresh(ctx, input.Body.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidSession) {
			return nil, huma.Error401Unauthorized("Invalid refresh token")
		}
		h.log.Error("refresh failed", "error", err)
		return nil, huma.Error500InternalServerError("refresh failed")
	}

	return &sessionOutput{Body: toSessionResponse(tokens)}, nil
}

func toSessionResponse(t *session.Tokens) SessionResponse {
	return SessionResponse{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    t.ExpiresAt,
		User:         toUserResponse(t.Principal),
	}
}

func toUserResponse(p session.Principal) UserResponse {
	return UserResponse{
		ID:       p.UserID,
		Email:    p.Email,
		Name:     p.Name,
		Role:     p.Role,
		ClinicID: p.ClinicID,
	}
}
