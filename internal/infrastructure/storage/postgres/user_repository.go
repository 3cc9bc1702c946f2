package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/exp/slog"

	"clinicsync/internal/domain/user"
)

func NewUserRepository(db *Storage, log *slog.Logger) *UserRepository {
	return &UserRepository{
		db:  db,
		log: log.With("component", "user_repository"),
	}
}

type UserRepository struct {
	db  *Storage
	log *slog.Logger
}

func (r *UserRepository) Create(ctx context.Context, u user.User) (string, error) {
	id := uuid.NewString()
	_, err := r.db.Pool().Exec(ctx,
		`INSERT INTO users (id, email, name, role, clinic_id, password_hash)
         VALUES ($1, $2, $3, $4, $5, $6)`,
		id, u.Email, u.Name, u.Role, u.ClinicID, u.Password)
	if err != nil {
		if isUniqueViolation(err) {
			return "", user.ErrAlreadyExists
		}
		return "", fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (user.User, error) {
	return r.findOne(ctx, `WHERE email = $1`, email)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (user.User, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

func (r *UserRepository) findOne(ctx context.Context, where string, arg any) (user.User, error) {
	var u user.User
	err := r.db.Pool().QueryRow(ctx,
		`SELECT id, email, name, role, clinic_id, password_hash, created_at FROM users `+where, arg).
		Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.ClinicID, &u.Password, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return u, user.ErrNotFound
		}
		return u, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}
