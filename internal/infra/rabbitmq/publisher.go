package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/8SOAT-GRUPO-41/hackathon-backend/internal/domain/entity"
	amqp "github.com/rabbitmq/amqp091-go"
)

type Publisher struct {
	channel  *amqp.Channel
	exchange string
}

func NewPublisher(conn *amqp.Connection, exchange string) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open publisher channel: %w", err)
	}
	return &Publisher{channel: ch, exchange: exchange}, nil
}

// NotificationPublisher publishes terminal-transition notifications. The
// notification id goes out as the message id so downstream consumers can
// deduplicate; the recipient's user id rides along as a header for grouping.
type NotificationPublisher struct {
	pub        *Publisher
	routingKey string
}

func NewNotificationPublisher(pub *Publisher) *NotificationPublisher {
	return &NotificationPublisher{pub: pub, routingKey: "video.notification"}
}

func (np *NotificationPublisher) PublishNotification(ctx context.Context, n *entity.Notification) error {
	body, err := json.Marshal(n.Payload)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}

	err = np.pub.channel.PublishWithContext(ctx,
		np.pub.exchange,
		np.routingKey,
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    n.ID.String(),
			Timestamp:    time.Now().UTC(),
			Headers: amqp.Table{
				"x-user-id": n.UserID.String(),
			},
		},
	)
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}
