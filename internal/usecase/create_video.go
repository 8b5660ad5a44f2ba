package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/8SOAT-GRUPO-41/hackathon-backend/internal/domain/entity"
	"github.com/8SOAT-GRUPO-41/hackathon-backend/internal/domain/port"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CreateVideoInput struct {
	UserID      uuid.UUID
	Name        string
	Description string
	Expiry      time.Duration
}

type CreateVideoOutput struct {
	Video     *entity.Video
	UploadURL string
}

// CreateVideoUseCase registers a video and hands back a presigned URL so the
// client uploads the bytes directly to object storage.
type CreateVideoUseCase struct {
	videos  port.VideoRepository
	storage port.ObjectStorage
	logger  *zap.Logger
	now     func() time.Time
}

func NewCreateVideoUseCase(videos port.VideoRepository, storage port.ObjectStorage, logger *zap.Logger) *CreateVideoUseCase {
	return &CreateVideoUseCase{
		videos:  videos,
		storage: storage,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

const defaultUploadExpiry = 15 * time.Minute

func (uc *CreateVideoUseCase) Execute(ctx context.Context, in CreateVideoInput) (*CreateVideoOutput, error) {
	expiry := in.Expiry
	if expiry <= 0 {
		expiry = defaultUploadExpiry
	}

	video := entity.NewVideo(in.UserID, in.Name, in.Description, uc.now())
	if err := uc.videos.Save(ctx, video); err != nil {
		return nil, fmt.Errorf("save video: %w", err)
	}

	uploadURL, err := uc.storage.PresignedUploadURL(ctx, video.OriginalKey, expiry)
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}

	uc.logger.Info("video registered",
		zap.String("video_id", video.ID.String()),
		zap.String("user_id", in.UserID.String()),
	)

	return &CreateVideoOutput{Video: video, UploadURL: uploadURL}, nil
}
