package port

import (
	"context"

	"github.com/8SOAT-GRUPO-41/hackathon-backend/internal/domain/entity"
)

// NotificationPublisher hands a terminal-transition notification to the
// outbound queue. It must fail loudly on transport errors.
type NotificationPublisher interface {
	PublishNotification(ctx context.Context, n *entity.Notification) error
}
