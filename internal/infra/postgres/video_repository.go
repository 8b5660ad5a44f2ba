package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/8SOAT-GRUPO-41/hackathon-backend/internal/domain/entity"
	"github.com/8SOAT-GRUPO-41/hackathon-backend/internal/domain/port"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type VideoRepository struct {
	pool *pgxpool.Pool
}

func NewVideoRepository(pool *pgxpool.Pool) *VideoRepository {
	return &VideoRepository{pool: pool}
}

func (r *VideoRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Video, error) {
	query := `
		SELECT id, user_id, name, description, original_key, result_key, created_at
		FROM videos WHERE id=$1`

	video := &entity.Video{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&video.ID, &video.UserID, &video.Name, &video.Description,
		&video.OriginalKey, &video.ResultKey, &video.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("video %s: %w", id, port.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find video by id: %w", err)
	}

	if err := r.loadJob(ctx, video); err != nil {
		return nil, err
	}
	return video, nil
}

func (r *VideoRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.Video, error) {
	query := `
		SELECT id, user_id, name, description, original_key, result_key, created_at
		FROM videos WHERE user_id=$1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("find videos by user: %w", err)
	}
	defer rows.Close()

	var videos []*entity.Video
	for rows.Next() {
		video := &entity.Video{}
		err := rows.Scan(
			&video.ID, &video.UserID, &video.Name, &video.Description,
			&video.OriginalKey, &video.ResultKey, &video.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}

	for _, video := range videos {
		if err := r.loadJob(ctx, video); err != nil {
			return nil, err
		}
	}
	return videos, nil
}

// Save commits the whole aggregate in one transaction: the video row, its
// processing job, the full status history and any notifications. History rows
// are replaced wholesale; the serial primary key preserves insertion order.
func (r *VideoRepository) Save(ctx context.Context, video *entity.Video) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO videos (id, user_id, name, description, original_key, result_key, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET
			name=EXCLUDED.name, description=EXCLUDED.description,
			original_key=EXCLUDED.original_key, result_key=EXCLUDED.result_key`,
		video.ID, video.UserID, video.Name, video.Description,
		video.OriginalKey, video.ResultKey, video.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert video: %w", err)
	}

	if job := video.ProcessingJob; job != nil {
		if err := r.saveJob(ctx, tx, job); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *VideoRepository) saveJob(ctx context.Context, tx pgx.Tx, job *entity.ProcessingJob) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO processing_jobs (id, video_id, requested_at, started_at, finished_at, error_message)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET
			started_at=EXCLUDED.started_at, finished_at=EXCLUDED.finished_at,
			error_message=EXCLUDED.error_message`,
		job.ID, job.VideoID, job.RequestedAt, job.StartedAt, job.FinishedAt, job.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("upsert job: %w", err)
	}

	_, err = tx.Exec(ctx, `DELETE FROM job_status_history WHERE job_id=$1`, job.ID)
	if err != nil {
		return fmt.Errorf("clear status history: %w", err)
	}
	for _, h := range job.StatusHistory {
		_, err = tx.Exec(ctx, `
			INSERT INTO job_status_history (job_id, status, changed_at)
			VALUES ($1,$2,$3)`,
			h.JobID, string(h.Status), h.ChangedAt,
		)
		if err != nil {
			return fmt.Errorf("insert status history: %w", err)
		}
	}

	for _, n := range job.Notifications {
		payload, err := json.Marshal(n.Payload)
		if err != nil {
			return fmt.Errorf("marshal notification payload: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO notifications (id, user_id, job_id, channel, payload, sent_at, user_email)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (id) DO UPDATE SET payload=EXCLUDED.payload, user_email=EXCLUDED.user_email`,
			n.ID, n.UserID, n.JobID, string(n.Channel), payload, n.SentAt, n.UserEmail,
		)
		if err != nil {
			return fmt.Errorf("upsert notification: %w", err)
		}
	}
	return nil
}

func (r *VideoRepository) loadJob(ctx context.Context, video *entity.Video) error {
	query := `
		SELECT id, video_id, requested_at, started_at, finished_at, error_message
		FROM processing_jobs WHERE video_id=$1`

	job := &entity.ProcessingJob{}
	err := r.pool.QueryRow(ctx, query, video.ID).Scan(
		&job.ID, &job.VideoID, &job.RequestedAt,
		&job.StartedAt, &job.FinishedAt, &job.ErrorMessage,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find job for video: %w", err)
	}

	if err := r.loadHistory(ctx, job); err != nil {
		return err
	}
	if err := r.loadNotifications(ctx, job); err != nil {
		return err
	}

	video.ProcessingJob = job
	return nil
}

func (r *VideoRepository) loadHistory(ctx context.Context, job *entity.ProcessingJob) error {
	rows, err := r.pool.Query(ctx, `
		SELECT job_id, status, changed_at
		FROM job_status_history WHERE job_id=$1 ORDER BY id`, job.ID)
	if err != nil {
		return fmt.Errorf("load status history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var h entity.StatusHistory
		var status string
		if err := rows.Scan(&h.JobID, &status, &h.ChangedAt); err != nil {
			return fmt.Errorf("scan status history: %w", err)
		}
		h.Status = entity.JobStatus(status)
		job.StatusHistory = append(job.StatusHistory, h)
	}
	return rows.Err()
}

func (r *VideoRepository) loadNotifications(ctx context.Context, job *entity.ProcessingJob) error {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, job_id, channel, payload, sent_at, user_email
		FROM notifications WHERE job_id=$1 ORDER BY sent_at`, job.ID)
	if err != nil {
		return fmt.Errorf("load notifications: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		n := &entity.Notification{}
		var channel string
		var payload []byte
		if err := rows.Scan(&n.ID, &n.UserID, &n.JobID, &channel, &payload, &n.SentAt, &n.UserEmail); err != nil {
			return fmt.Errorf("scan notification: %w", err)
		}
		n.Channel = entity.NotificationChannel(channel)
		if err := json.Unmarshal(payload, &n.Payload); err != nil {
			return fmt.Errorf("unmarshal notification payload: %w", err)
		}
		job.Notifications = append(job.Notifications, n)
	}
	return rows.Err()
}
