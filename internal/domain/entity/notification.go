package entity

import (
	"time"

	"github.com/google/uuid"
)

type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "EMAIL"
)

// NotificationPayload is the message body published for a terminal job transition.
type NotificationPayload struct {
	Status              JobStatus           `json:"status"`
	VideoID             uuid.UUID           `json:"videoId"`
	VideoName           string              `json:"videoName"`
	NotificationChannel NotificationChannel `json:"notificationChannel"`
	Email               string              `json:"email,omitempty"`
	FailureReason       string              `json:"failureReason,omitempty"`
}

type Notification struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	JobID     uuid.UUID
	Channel   NotificationChannel
	Payload   NotificationPayload
	SentAt    time.Time
	UserEmail string
}

func NewNotification(userID, jobID uuid.UUID, channel NotificationChannel, payload NotificationPayload, now time.Time) *Notification {
	return &Notification{
		ID:      uuid.New(),
		UserID:  userID,
		JobID:   jobID,
		Channel: channel,
		Payload: payload,
		SentAt:  now,
	}
}

// SetUserEmail attaches the resolved recipient address and mirrors it into the
// payload. This is the only mutation allowed after construction.
func (n *Notification) SetUserEmail(email string) {
	n.UserEmail = email
	n.Payload.Email = email
}
