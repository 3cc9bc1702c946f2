package remote

import (
	"context"
	"net/http"
	"time"
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role,omitempty"`
	ClinicID string `json:"clinic_id"`
}

type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	ClinicID string `json:"clinic_id"`
}

// Session is the server's answer to login and refresh.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

func (c *Client) Register(ctx context.Context, reg Registration) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/register", reg, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, creds Credentials) (*Session, error) {
	var out Session
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", creds, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	body := struct {
		RefreshToken string `json:"refresh_token"`
	}{RefreshToken: refreshToken}

	var out Session
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/refresh", body, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}
