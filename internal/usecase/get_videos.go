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

const downloadExpiry = time.Hour

// GetUserVideosUseCase lists a user's videos. Videos whose job completed get
// an ephemeral presigned download URL for the result archive attached.
type GetUserVideosUseCase struct {
	videos  port.VideoRepository
	storage port.ObjectStorage
	logger  *zap.Logger
}

func NewGetUserVideosUseCase(videos port.VideoRepository, storage port.ObjectStorage, logger *zap.Logger) *GetUserVideosUseCase {
	return &GetUserVideosUseCase{videos: videos, storage: storage, logger: logger}
}

func (uc *GetUserVideosUseCase) Execute(ctx context.Context, userID uuid.UUID) ([]*entity.Video, error) {
	videos, err := uc.videos.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}

	for _, video := range videos {
		job := video.ProcessingJob
		if job == nil || job.CurrentStatus() != entity.JobStatusCompleted {
			continue
		}
		url, err := uc.storage.PresignedDownloadURL(ctx, video.ResultKey, downloadExpiry)
		if err != nil {
			uc.logger.Warn("could not presign result download",
				zap.String("video_id", video.ID.String()), zap.Error(err))
			continue
		}
		video.PresignedURL = url
	}

	return videos, nil
}

// GetVideoArchiveUseCase resolves the presigned download URL for one video's
// result archive.
type GetVideoArchiveUseCase struct {
	videos  port.VideoRepository
	storage port.ObjectStorage
}

func NewGetVideoArchiveUseCase(videos port.VideoRepository, storage port.ObjectStorage) *GetVideoArchiveUseCase {
	return &GetVideoArchiveUseCase{videos: videos, storage: storage}
}

func (uc *GetVideoArchiveUseCase) Execute(ctx context.Context, videoID uuid.UUID) (string, error) {
	video, err := uc.videos.FindByID(ctx, videoID)
	if err != nil {
		return "", fmt.Errorf("load video: %w", err)
	}

	url, err := uc.storage.PresignedDownloadURL(ctx, video.ResultKey, downloadExpiry)
	if err != nil {
		return "", fmt.Errorf("presign download: %w", err)
	}
	return url, nil
}
