package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Video is the aggregate root. It owns its processing job; the job, in turn,
// owns its status history and notifications. PresignedURL is request-scoped
// and never persisted.
type Video struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Name          string
	Description   string
	OriginalKey   string
	ResultKey     string
	CreatedAt     time.Time
	ProcessingJob *ProcessingJob
	PresignedURL  string
}

func NewVideo(userID uuid.UUID, name, description string, now time.Time) *Video {
	id := uuid.New()
	return &Video{
		ID:          id,
		UserID:      userID,
		Name:        name,
		Description: description,
		OriginalKey: fmt.Sprintf("raw/%s.mp4", id),
		ResultKey:   fmt.Sprintf("frames/%s.zip", id),
		CreatedAt:   now,
	}
}

func (v *Video) AttachJob(job *ProcessingJob) {
	v.ProcessingJob = job
}
