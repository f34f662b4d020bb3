package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type event struct {
	SessionID string
	Kind      string
}

func TestQueue_PublishConsumeAck(t *testing.T) {
	queue := NewQueue[event](DefaultConfig())
	ctx := context.Background()

	err := queue.Publish(ctx, &event{SessionID: "s1", Kind: "escalated"})
	assert.Nil(t, err)
	assert.EqualValues(t, 1, queue.Size())

	msg, err := queue.Consume(ctx)
	assert.Nil(t, err)
	assert.EqualValues(t, "s1", msg.T().SessionID)
	assert.Nil(t, msg.Ack())
	assert.EqualValues(t, 0, queue.Size())

	// the second acknowledgement is rejected
	assert.NotNil(t, msg.Ack())
}

func TestQueue_NackRedelivers(t *testing.T) {
	queue := NewQueue[event](Config{MaxRedeliveries: 2, RedeliveryDelay: 5 * time.Millisecond, QueueBuffer: 10})
	ctx := context.Background()

	err := queue.Publish(ctx, &event{SessionID: "s1"})
	assert.Nil(t, err)

	deliveries := 0
	for {
		consumeCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
		msg, err := queue.Consume(consumeCtx)
		cancel()
		if err != nil {
			break
		}
		deliveries++
		assert.Nil(t, msg.Nack(context.DeadlineExceeded))
	}
	// initial delivery plus MaxRedeliveries retries
	assert.EqualValues(t, 3, deliveries)
}

func TestQueue_ConsumeHonoursContext(t *testing.T) {
	queue := NewQueue[event](DefaultConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := queue.Consume(ctx)
	assert.NotNil(t, err)
	assert.EqualValues(t, context.DeadlineExceeded, err)
}
