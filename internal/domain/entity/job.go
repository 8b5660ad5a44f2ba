package entity

import (
	"time"

	"github.com/google/uuid"
)

// DefaultFailureMessage is recorded when a job fails without an explicit reason.
const DefaultFailureMessage = "video processing failed"

// ProcessingJob is the state machine for one video's processing lifecycle.
// Its current status is derived from the status history, never stored directly.
type ProcessingJob struct {
	ID            uuid.UUID
	VideoID       uuid.UUID
	RequestedAt   time.Time
	StartedAt     *time.Time
	FinishedAt    *time.Time
	ErrorMessage  string
	StatusHistory []StatusHistory
	Notifications []*Notification
}

// NewProcessingJob creates a job with its initial QUEUED history entry.
func NewProcessingJob(videoID uuid.UUID, now time.Time) *ProcessingJob {
	job := &ProcessingJob{
		ID:          uuid.New(),
		VideoID:     videoID,
		RequestedAt: now,
	}
	job.StatusHistory = append(job.StatusHistory, StatusHistory{
		JobID:     job.ID,
		Status:    JobStatusQueued,
		ChangedAt: now,
	})
	return job
}

// CurrentStatus returns the status of the most recent history entry, or
// JobStatusNone when the history is empty. Entries sharing the same timestamp
// are resolved by insertion order, the later entry wins.
func (j *ProcessingJob) CurrentStatus() JobStatus {
	if len(j.StatusHistory) == 0 {
		return JobStatusNone
	}
	latest := j.StatusHistory[0]
	for _, h := range j.StatusHistory[1:] {
		if !h.ChangedAt.Before(latest.ChangedAt) {
			latest = h
		}
	}
	return latest.Status
}

// UpdateStatus applies one transition and reports whether it was accepted.
// Invalid, duplicate and post-terminal transitions are no-ops: the queue may
// deliver out of order or more than once, and dropping is the safe response.
func (j *ProcessingJob) UpdateStatus(next JobStatus, failureReason string, now time.Time) bool {
	current := j.CurrentStatus()
	if current.IsTerminal() {
		return false
	}
	if !CanTransition(current, next) {
		return false
	}

	if next == JobStatusRunning && j.StartedAt == nil {
		started := now
		j.StartedAt = &started
	}
	if next.IsTerminal() {
		finished := now
		j.FinishedAt = &finished
		if next == JobStatusFailed {
			if failureReason != "" {
				j.ErrorMessage = failureReason
			} else if j.ErrorMessage == "" {
				j.ErrorMessage = DefaultFailureMessage
			}
		}
	}

	j.StatusHistory = append(j.StatusHistory, StatusHistory{
		JobID:     j.ID,
		Status:    next,
		ChangedAt: now,
	})
	return true
}

func (j *ProcessingJob) AddNotification(n *Notification) {
	j.Notifications = append(j.Notifications, n)
}
