package entity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSetUserEmailMirrorsIntoPayload(t *testing.T) {
	n := NewNotification(uuid.New(), uuid.New(), ChannelEmail, NotificationPayload{
		Status:              JobStatusCompleted,
		VideoID:             uuid.New(),
		VideoName:           "holiday.mp4",
		NotificationChannel: ChannelEmail,
	}, baseTime)

	assert.Empty(t, n.UserEmail)
	assert.Empty(t, n.Payload.Email)

	n.SetUserEmail("user@example.com")

	assert.Equal(t, "user@example.com", n.UserEmail)
	assert.Equal(t, "user@example.com", n.Payload.Email)
}

func TestNewVideoDerivesObjectKeys(t *testing.T) {
	video := NewVideo(uuid.New(), "holiday.mp4", "beach trip", baseTime)

	assert.Equal(t, "raw/"+video.ID.String()+".mp4", video.OriginalKey)
	assert.Equal(t, "frames/"+video.ID.String()+".zip", video.ResultKey)
	assert.Nil(t, video.ProcessingJob)
	assert.Empty(t, video.PresignedURL)
}
