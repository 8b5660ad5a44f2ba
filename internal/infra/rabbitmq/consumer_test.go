package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/8SOAT-GRUPO-41/hackathon-backend/internal/domain/entity"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConsumer(workers int) *Consumer {
	return &Consumer{
		workerCount: workers,
		baseDelay:   time.Millisecond,
		logger:      zap.NewNop(),
	}
}

type fakeAcknowledger struct {
	acks    int
	nacks   int
	requeue bool
}

func (a *fakeAcknowledger) Ack(_ uint64, _ bool) error { a.acks++; return nil }

func (a *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacks++
	a.requeue = requeue
	return nil
}

func (a *fakeAcknowledger) Reject(_ uint64, requeue bool) error {
	a.nacks++
	a.requeue = requeue
	return nil
}

func statusBody(t *testing.T, videoID string) []byte {
	t.Helper()
	body, err := json.Marshal(entity.StatusUpdateMessage{VideoID: videoID, Status: "RUNNING"})
	require.NoError(t, err)
	return body
}

func TestProcessDeliveryMalformedBodyNackedNeverAcked(t *testing.T) {
	c := testConsumer(1)
	c.handler = func(context.Context, entity.StatusUpdateMessage) error {
		t.Fatal("handler must not run for a malformed body")
		return nil
	}

	for _, body := range [][]byte{[]byte(`{invalid json`), []byte(`{}`), nil} {
		ack := &fakeAcknowledger{}
		c.processDelivery(context.Background(), amqp.Delivery{Acknowledger: ack, Body: body}, c.logger)

		assert.Zero(t, ack.acks, "body %q", body)
		assert.Equal(t, 1, ack.nacks, "body %q", body)
		assert.True(t, ack.requeue, "body %q", body)
	}
}

func TestProcessDeliveryHandlerErrorRequeues(t *testing.T) {
	c := testConsumer(1)
	c.handler = func(context.Context, entity.StatusUpdateMessage) error {
		return errors.New("video not found")
	}

	ack := &fakeAcknowledger{}
	c.processDelivery(context.Background(), amqp.Delivery{
		Acknowledger: ack,
		Body:         statusBody(t, uuid.NewString()),
	}, c.logger)

	assert.Zero(t, ack.acks)
	assert.Equal(t, 1, ack.nacks)
	assert.True(t, ack.requeue)
}

func TestProcessDeliveryAcksOnSuccess(t *testing.T) {
	c := testConsumer(1)
	var handled entity.StatusUpdateMessage
	c.handler = func(_ context.Context, msg entity.StatusUpdateMessage) error {
		handled = msg
		return nil
	}

	videoID := uuid.NewString()
	ack := &fakeAcknowledger{}
	c.processDelivery(context.Background(), amqp.Delivery{
		Acknowledger: ack,
		Body:         statusBody(t, videoID),
	}, c.logger)

	assert.Equal(t, videoID, handled.VideoID)
	assert.Equal(t, 1, ack.acks)
	assert.Zero(t, ack.nacks)
}

func TestDispatchSlowLaneDoesNotStallOthers(t *testing.T) {
	c := testConsumer(2)

	// two videos that hash to different lanes
	slowID := uuid.NewString()
	fastID := uuid.NewString()
	for c.laneFor(statusBody(t, fastID)) == c.laneFor(statusBody(t, slowID)) {
		fastID = uuid.NewString()
	}

	release := make(chan struct{})
	handled := make(chan string, 4)
	c.handler = func(_ context.Context, msg entity.StatusUpdateMessage) error {
		if msg.VideoID == slowID {
			<-release
		}
		handled <- msg.VideoID
		return nil
	}

	deliveries := make(chan amqp.Delivery, 4)
	done := make(chan struct{})
	go func() {
		c.dispatch(context.Background(), deliveries)
		close(done)
	}()

	deliveries <- amqp.Delivery{Acknowledger: &fakeAcknowledger{}, Body: statusBody(t, slowID)}
	deliveries <- amqp.Delivery{Acknowledger: &fakeAcknowledger{}, Body: statusBody(t, fastID)}

	select {
	case id := <-handled:
		assert.Equal(t, fastID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("delivery for an unrelated video was stalled by a busy lane")
	}

	close(release)
	select {
	case id := <-handled:
		assert.Equal(t, slowID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("blocked delivery never completed")
	}

	close(deliveries)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch did not drain after deliveries closed")
	}
}

func TestLaneForIsStablePerVideo(t *testing.T) {
	c := testConsumer(4)

	body := statusBody(t, "c1f7d0e2-9b1f-4f44-9a93-1c51a1a2b3c4")
	lane := c.laneFor(body)
	for i := 0; i < 10; i++ {
		assert.Equal(t, lane, c.laneFor(body))
	}
	assert.GreaterOrEqual(t, lane, 0)
	assert.Less(t, lane, 4)
}

func TestLaneForMalformedBodyGoesToLaneZero(t *testing.T) {
	c := testConsumer(4)

	assert.Equal(t, 0, c.laneFor([]byte(`{invalid json`)))
	assert.Equal(t, 0, c.laneFor([]byte(`{}`)))
	assert.Equal(t, 0, c.laneFor(nil))
}

func TestNormalizeWorkers(t *testing.T) {
	assert.Equal(t, 1, normalizeWorkers(0))
	assert.Equal(t, 1, normalizeWorkers(-3))
	assert.Equal(t, 4, normalizeWorkers(4))
}

func TestCalculateBackoff(t *testing.T) {
	c := testConsumer(1)
	c.baseDelay = 100 * time.Millisecond

	assert.Equal(t, 100*time.Millisecond, c.calculateBackoff(1))
	assert.Equal(t, 200*time.Millisecond, c.calculateBackoff(2))
	assert.Equal(t, 400*time.Millisecond, c.calculateBackoff(3))

	// capped at one minute
	assert.Equal(t, time.Minute, c.calculateBackoff(20))
}

func TestGetAttemptFromHeaders(t *testing.T) {
	c := testConsumer(1)

	assert.Equal(t, 1, c.getAttemptFromHeaders(amqp.Delivery{}))

	d := amqp.Delivery{Headers: amqp.Table{
		"x-death": []interface{}{amqp.Table{}, amqp.Table{}, amqp.Table{}},
	}}
	assert.Equal(t, 3, c.getAttemptFromHeaders(d))
}
