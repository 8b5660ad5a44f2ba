package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/8SOAT-GRUPO-41/hackathon-backend/internal/domain/entity"
	"github.com/8SOAT-GRUPO-41/hackathon-backend/internal/domain/port"
	"github.com/8SOAT-GRUPO-41/hackathon-backend/internal/infra/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// TrackProcessingJobInput is one decoded status-update message.
type TrackProcessingJobInput struct {
	VideoID       uuid.UUID
	Status        entity.JobStatus
	FailureReason string
}

type TrackProcessingJobOutput struct {
	Video         *entity.Video
	StatusUpdated bool
	CurrentStatus entity.JobStatus
}

// TrackProcessingJobUseCase consumes one status update: it loads the video
// aggregate, creates or advances its processing job, builds the terminal
// notification when one is due, persists the aggregate and only then
// publishes. A publish error therefore never leaves state un-persisted;
// it propagates so the caller keeps the inbound message for redelivery.
type TrackProcessingJobUseCase struct {
	videos    port.VideoRepository
	users     port.UserRepository
	publisher port.NotificationPublisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewTrackProcessingJobUseCase(
	videos port.VideoRepository,
	users port.UserRepository,
	publisher port.NotificationPublisher,
	logger *zap.Logger,
) *TrackProcessingJobUseCase {
	return &TrackProcessingJobUseCase{
		videos:    videos,
		users:     users,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source. Tests use it to make transitions deterministic.
func (uc *TrackProcessingJobUseCase) WithClock(now func() time.Time) *TrackProcessingJobUseCase {
	uc.now = now
	return uc
}

func (uc *TrackProcessingJobUseCase) Execute(ctx context.Context, in TrackProcessingJobInput) (*TrackProcessingJobOutput, error) {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "TrackProcessingJobUseCase.Execute")
	defer span.End()

	span.SetAttributes(
		attribute.String("video.id", in.VideoID.String()),
		attribute.String("job.status", string(in.Status)),
	)

	start := uc.now()
	log := uc.logger.With(zap.String("video_id", in.VideoID.String()), zap.String("status", string(in.Status)))

	video, err := uc.videos.FindByID(ctx, in.VideoID)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return nil, fmt.Errorf("video %s: %w", in.VideoID, port.ErrNotFound)
		}
		return nil, fmt.Errorf("load video: %w", err)
	}

	job, statusUpdated, accepted := uc.applyStatus(video, in)
	metrics.TransitionsTotal.WithLabelValues(string(in.Status), strconv.FormatBool(accepted)).Inc()

	var notification *entity.Notification
	if accepted && in.Status.IsTerminal() {
		notification = uc.buildNotification(ctx, video, in, log)
	}

	if err := uc.videos.Save(ctx, video); err != nil {
		return nil, fmt.Errorf("save video: %w", err)
	}

	if notification != nil {
		if err := uc.publisher.PublishNotification(ctx, notification); err != nil {
			return nil, fmt.Errorf("publish notification: %w", err)
		}
		metrics.NotificationsPublishedTotal.Inc()
	}

	metrics.TrackDuration.WithLabelValues(string(in.Status)).Observe(uc.now().Sub(start).Seconds())

	log.Info("job status tracked",
		zap.Bool("status_updated", statusUpdated),
		zap.String("current_status", string(job.CurrentStatus())),
		zap.Bool("notification_sent", notification != nil),
	)

	return &TrackProcessingJobOutput{
		Video:         video,
		StatusUpdated: statusUpdated,
		CurrentStatus: job.CurrentStatus(),
	}, nil
}

// applyStatus creates the job on first sight of a video, otherwise delegates
// to the state machine. statusUpdated reflects the visible effect, so an
// ignored transition reports false; accepted is true only when the state
// machine actually recorded the requested transition, which is what gates
// the terminal notification.
func (uc *TrackProcessingJobUseCase) applyStatus(video *entity.Video, in TrackProcessingJobInput) (job *entity.ProcessingJob, statusUpdated, accepted bool) {
	job = video.ProcessingJob
	if job == nil {
		// A fresh job is always an update, even though only its initial
		// QUEUED entry is recorded.
		job = entity.NewProcessingJob(video.ID, uc.now())
		video.AttachJob(job)
		return job, true, false
	}

	previous := job.CurrentStatus()
	accepted = job.UpdateStatus(in.Status, in.FailureReason, uc.now())
	return job, previous != job.CurrentStatus(), accepted
}

// buildNotification assembles the terminal notification and resolves the
// recipient address. The user lookup is best effort: a missing user means the
// notification goes out without an email, not that the message fails.
func (uc *TrackProcessingJobUseCase) buildNotification(ctx context.Context, video *entity.Video, in TrackProcessingJobInput, log *zap.Logger) *entity.Notification {
	job := video.ProcessingJob
	notification := entity.NewNotification(video.UserID, job.ID, entity.ChannelEmail, entity.NotificationPayload{
		Status:              in.Status,
		VideoID:             video.ID,
		VideoName:           video.Name,
		NotificationChannel: entity.ChannelEmail,
		FailureReason:       in.FailureReason,
	}, uc.now())

	user, err := uc.users.FindByID(ctx, video.UserID)
	if err != nil {
		log.Warn("could not resolve notification recipient", zap.String("user_id", video.UserID.String()), zap.Error(err))
	} else {
		notification.SetUserEmail(user.Email)
	}

	job.AddNotification(notification)
	return notification
}
