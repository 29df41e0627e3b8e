package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/idmint/model"
	"github.com/viant/idmint/service/messaging"
)

func testConfig() Config {
	config := DefaultConfig()
	config.RetryDelay = 5 * time.Millisecond
	return config
}

func consume(t *testing.T, queue *Queue[model.Allocation]) messaging.Message[model.Allocation] {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, err := queue.Consume(ctx)
	require.NoError(t, err)
	return msg
}

func TestQueue_PublishConsume(t *testing.T) {
	queue := NewQueue[model.Allocation](testConfig())
	ctx := context.Background()

	record := model.Allocation{ID: "a1", Owner: "alice", Number: 42}
	require.NoError(t, queue.Publish(ctx, &record))
	record.Number = 7
	assert.Equal(t, 1, queue.Size())

	msg := consume(t, queue)
	assert.EqualValues(t, 42, msg.T().Number, "payload is copied on publish")
	assert.NoError(t, msg.Ack())
	assert.ErrorIs(t, msg.Ack(), messaging.ErrAlreadySettled)
	assert.ErrorIs(t, msg.Nack(nil), messaging.ErrAlreadySettled)
}

func TestQueue_Retries(t *testing.T) {
	config := testConfig()
	config.MaxRetries = 2
	queue := NewQueue[model.Allocation](config)
	require.NoError(t, queue.Publish(context.Background(), &model.Allocation{ID: "a1"}))

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		msg := consume(t, queue)
		assert.Equal(t, attempt, msg.(*Message[model.Allocation]).Attempts())
		require.NoError(t, msg.Nack(errors.New("listener failed")))
	}

	assert.Eventually(t, func() bool { return len(queue.DeadLetters()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "a1", queue.DeadLetters()[0].ID)
	assert.Equal(t, 0, queue.Size())
}

func TestQueue_Full(t *testing.T) {
	config := testConfig()
	config.QueueBuffer = 1
	queue := NewQueue[model.Allocation](config)
	ctx := context.Background()
	require.NoError(t, queue.Publish(ctx, &model.Allocation{ID: "a1"}))
	assert.ErrorIs(t, queue.Publish(ctx, &model.Allocation{ID: "a2"}), messaging.ErrQueueFull)
}

func TestQueue_ConsumeCancelled(t *testing.T) {
	queue := NewQueue[model.Allocation](testConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	msg, err := queue.Consume(ctx)
	assert.Nil(t, msg)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	cancelled, stop := context.WithCancel(context.Background())
	stop()
	assert.ErrorIs(t, queue.Publish(cancelled, &model.Allocation{}), context.Canceled)
}
