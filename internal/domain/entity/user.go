package entity

import (
	"time"

	"github.com/google/uuid"
)

// User carries only what the tracking flow needs: the notification address.
type User struct {
	ID        uuid.UUID
	Email     string
	CreatedAt time.Time
}
