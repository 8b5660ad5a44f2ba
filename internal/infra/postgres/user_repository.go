package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/8SOAT-GRUPO-41/hackathon-backend/internal/domain/entity"
	"github.com/8SOAT-GRUPO-41/hackathon-backend/internal/domain/port"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	user := &entity.User{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, created_at FROM users WHERE id=$1`, id,
	).Scan(&user.ID, &user.Email, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, port.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return user, nil
}
