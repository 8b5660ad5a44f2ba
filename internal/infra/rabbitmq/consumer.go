package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"github.com/8SOAT-GRUPO-41/hackathon-backend/internal/domain/entity"
	"github.com/8SOAT-GRUPO-41/hackathon-backend/internal/infra/metrics"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// MessageHandler processes one decoded status-update message. A nil return
// acknowledges the message; any error leaves it in the queue for redelivery.
type MessageHandler func(ctx context.Context, msg entity.StatusUpdateMessage) error

const consumeRetryDelay = 5 * time.Second

type Consumer struct {
	cfg         ConsumerConfig
	conn        *amqp.Connection
	channel     *amqp.Channel
	queue       string
	workerCount int
	baseDelay   time.Duration
	handler     MessageHandler
	logger      *zap.Logger
}

type ConsumerConfig struct {
	URL               string
	Queue             string
	Exchange          string
	NotificationQueue string
	Prefetch          int
	WorkerCount       int
	BaseDelayMs       int
}

func NewConsumer(cfg ConsumerConfig, handler MessageHandler, logger *zap.Logger) (*Consumer, error) {
	c := &Consumer{
		cfg:         cfg,
		queue:       cfg.Queue,
		workerCount: normalizeWorkers(cfg.WorkerCount),
		baseDelay:   time.Duration(cfg.BaseDelayMs) * time.Millisecond,
		handler:     handler,
		logger:      logger,
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

// normalizeWorkers guards the lane hash against a zero or negative count.
func normalizeWorkers(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// connect dials a fresh connection and channel and redeclares the topology.
// Channels are unusable after an error, so every reconnect starts from a dial.
func (c *Consumer) connect() error {
	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(c.cfg.Exchange, "topic", true, false, false, false, nil)
	if err != nil {
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, q := range []string{c.cfg.Queue, c.cfg.NotificationQueue} {
		_, err = ch.QueueDeclare(q, true, false, false, false, nil)
		if err != nil {
			conn.Close()
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
	}

	err = ch.QueueBind(c.cfg.Queue, "video.job-status", c.cfg.Exchange, false, nil)
	if err != nil {
		conn.Close()
		return fmt.Errorf("bind status queue: %w", err)
	}

	err = ch.QueueBind(c.cfg.NotificationQueue, "video.notification", c.cfg.Exchange, false, nil)
	if err != nil {
		conn.Close()
		return fmt.Errorf("bind notification queue: %w", err)
	}

	err = ch.Qos(c.cfg.Prefetch, 0, false)
	if err != nil {
		conn.Close()
		return fmt.Errorf("set qos: %w", err)
	}

	c.conn = conn
	c.channel = ch
	return nil
}

// reconnect tears the transport down and dials again until it succeeds or
// ctx is cancelled. Each attempt is spaced by a fixed delay so an unavailable
// broker never turns into a tight loop.
func (c *Consumer) reconnect(ctx context.Context) bool {
	for {
		c.closeTransport()
		select {
		case <-time.After(consumeRetryDelay):
		case <-ctx.Done():
			return false
		}
		if err := c.connect(); err != nil {
			c.logger.Error("reconnect failed", zap.Error(err), zap.Duration("delay", consumeRetryDelay))
			continue
		}
		c.logger.Info("reconnected to broker")
		return true
	}
}

// Start consumes until ctx is cancelled, surviving broker restarts by
// re-dialing whenever the delivery stream breaks.
func (c *Consumer) Start(ctx context.Context) error {
	for {
		deliveries, err := c.channel.ConsumeWithContext(
			ctx,
			c.queue,
			"",
			false, // autoAck=false
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("consume failed, reconnecting", zap.Error(err))
			if !c.reconnect(ctx) {
				return nil
			}
			continue
		}

		c.logger.Info("starting worker pool",
			zap.Int("workers", c.workerCount),
			zap.String("queue", c.queue),
		)

		c.dispatch(ctx, deliveries)

		if ctx.Err() != nil {
			return nil
		}

		c.logger.Warn("delivery stream ended, reconnecting")
		if !c.reconnect(ctx) {
			return nil
		}
	}
}

// dispatch fans deliveries out to the worker pool. Messages are routed by a
// hash of their videoId so updates for the same video are always handled by
// the same worker, in order. Shutdown is cooperative: cancelling ctx stops
// routing new deliveries but in-flight messages run to completion.
func (c *Consumer) dispatch(ctx context.Context, deliveries <-chan amqp.Delivery) {
	// The small buffer keeps one slow lane from stalling the dispatch loop
	// immediately. Per-video ordering means a worker deep in its requeue
	// backoff can still delay other videos hashed to the same lane; Prefetch
	// bounds how much work piles up behind it.
	lanes := make([]chan amqp.Delivery, c.workerCount)
	var wg sync.WaitGroup
	for i := range lanes {
		lanes[i] = make(chan amqp.Delivery, 1)
		wg.Add(1)
		go c.worker(ctx, i, lanes[i], &wg)
	}

	defer func() {
		for _, lane := range lanes {
			close(lane)
		}
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			lanes[c.laneFor(d.Body)] <- d
		}
	}
}

// laneFor peeks at the message body only to extract the routing key. Bodies
// that do not parse land in lane 0; the worker logs and rejects them there.
func (c *Consumer) laneFor(body []byte) int {
	var msg entity.StatusUpdateMessage
	if err := json.Unmarshal(body, &msg); err != nil || msg.VideoID == "" {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(msg.VideoID))
	return int(h.Sum32() % uint32(c.workerCount))
}

func (c *Consumer) worker(ctx context.Context, id int, lane <-chan amqp.Delivery, wg *sync.WaitGroup) {
	defer wg.Done()
	log := c.logger.With(zap.Int("worker_id", id))
	log.Info("worker started")

	for d := range lane {
		c.processDelivery(ctx, d, log)
	}
	log.Info("worker shutting down")
}

func (c *Consumer) processDelivery(ctx context.Context, d amqp.Delivery, log *zap.Logger) {
	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	var msg entity.StatusUpdateMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil || msg.VideoID == "" {
		// Non-retryable malformed input. The message stays in the queue;
		// expiry is the broker's dead-letter policy's problem, not ours.
		log.Warn("malformed message body",
			zap.ByteString("body", d.Body),
			zap.Uint64("delivery_tag", d.DeliveryTag),
		)
		metrics.MessagesConsumedTotal.WithLabelValues("malformed").Inc()
		c.requeue(ctx, d, log)
		return
	}

	// In-flight processing survives shutdown; only new deliveries stop.
	err := c.handler(context.WithoutCancel(ctx), msg)
	if err != nil {
		log.Warn("message processing failed, requeueing",
			zap.Error(err),
			zap.String("video_id", msg.VideoID),
			zap.Uint64("delivery_tag", d.DeliveryTag),
		)
		metrics.MessagesConsumedTotal.WithLabelValues("error").Inc()
		c.requeue(ctx, d, log)
		return
	}

	metrics.MessagesConsumedTotal.WithLabelValues("ok").Inc()
	_ = d.Ack(false)
}

func (c *Consumer) requeue(ctx context.Context, d amqp.Delivery, log *zap.Logger) {
	attempt := c.getAttemptFromHeaders(d)
	delay := c.calculateBackoff(attempt)
	log.Info("backoff before requeue", zap.Duration("delay", delay), zap.Int("attempt", attempt))

	select {
	case <-time.After(delay):
	case <-ctx.Done():
	}

	_ = d.Nack(false, true) // requeue=true
}

func (c *Consumer) getAttemptFromHeaders(d amqp.Delivery) int {
	if d.Headers == nil {
		return 1
	}
	if xDeath, ok := d.Headers["x-death"]; ok {
		if deaths, ok := xDeath.([]interface{}); ok && len(deaths) > 0 {
			return len(deaths)
		}
	}
	return 1
}

func (c *Consumer) calculateBackoff(attempt int) time.Duration {
	delay := c.baseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	if delay > 60*time.Second {
		delay = 60 * time.Second
	}
	return delay
}

func (c *Consumer) closeTransport() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Consumer) Close() error {
	c.closeTransport()
	return nil
}
