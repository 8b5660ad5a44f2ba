package entity

import (
	"time"

	"github.com/google/uuid"
)

// StatusHistory is one append-only ledger entry: a status value at a point in time.
type StatusHistory struct {
	JobID     uuid.UUID
	Status    JobStatus
	ChangedAt time.Time
}
