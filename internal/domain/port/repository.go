package port

import (
	"context"
	"errors"

	"github.com/8SOAT-GRUPO-41/hackathon-backend/internal/domain/entity"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a referenced aggregate does not exist.
var ErrNotFound = errors.New("not found")

// VideoRepository persists the Video aggregate. Save must commit the video,
// its processing job, status history and notifications atomically.
type VideoRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Video, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.Video, error)
	Save(ctx context.Context, video *entity.Video) error
}

type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
}
