// Package memory provides a bounded channel-backed queue.
package memory

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/viant/idmint/internal/clock"
	"github.com/viant/idmint/internal/idgen"
	"github.com/viant/idmint/service/messaging"
)

// Config for memory queue implementation
type Config struct {
	MaxRetries  int           `json:"maxRetries" yaml:"maxRetries"`
	RetryDelay  time.Duration `json:"retryDelay" yaml:"retryDelay"`
	QueueBuffer int           `json:"queueBuffer" yaml:"queueBuffer"`
}

// DefaultConfig returns a standard configuration for memory queue
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		RetryDelay:  100 * time.Millisecond,
		QueueBuffer: 1024,
	}
}

// Message is an in-memory queue entry.
type Message[T any] struct {
	id        string
	payload   T
	attempts  int
	createdAt time.Time
	queue     *Queue[T]
	mu        sync.Mutex
	settled   bool
}

// ID returns the message identifier.
func (m *Message[T]) ID() string { return m.id }

// Attempts returns how many times the message has been nacked.
func (m *Message[T]) Attempts() int { return m.attempts }

// T returns the message payload
func (m *Message[T]) T() *T {
	return &m.payload
}

// Ack acknowledges the message as processed successfully
func (m *Message[T]) Ack() error {
	return m.settle()
}

// Nack requeues the message after RetryDelay or dead-letters it once
// MaxRetries is exceeded.
func (m *Message[T]) Nack(err error) error {
	if e := m.settle(); e != nil {
		return e
	}
	retry := &Message[T]{
		id:        m.id,
		payload:   m.payload,
		attempts:  m.attempts + 1,
		createdAt: m.createdAt,
		queue:     m.queue,
	}
	q := m.queue
	if retry.attempts > q.config.MaxRetries {
		q.deadLetter(retry, err)
		return nil
	}
	time.AfterFunc(q.config.RetryDelay, func() {
		select {
		case q.messages <- retry:
		default:
			q.deadLetter(retry, messaging.ErrQueueFull)
		}
	})
	return nil
}

func (m *Message[T]) settle() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settled {
		return messaging.ErrAlreadySettled
	}
	m.settled = true
	return nil
}

// Queue implements an in-memory messaging.Queue
type Queue[T any] struct {
	messages chan *Message[T]
	config   Config
	dlqMu    sync.Mutex
	dlq      []*Message[T]
}

// NewQueue creates a new in-memory queue
func NewQueue[T any](config Config) *Queue[T] {
	if config.QueueBuffer <= 0 {
		config.QueueBuffer = DefaultConfig().QueueBuffer
	}
	return &Queue[T]{
		messages: make(chan *Message[T], config.QueueBuffer),
		config:   config,
	}
}

// Publish enqueues a copy of t without blocking; a full buffer yields
// messaging.ErrQueueFull.
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := &Message[T]{
		id:        idgen.New(),
		payload:   *t,
		createdAt: clock.Now(),
		queue:     q,
	}
	select {
	case q.messages <- msg:
		return nil
	default:
		return messaging.ErrQueueFull
	}
}

// Consume retrieves a single item from the queue
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	select {
	case msg := <-q.messages:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Size returns the current number of messages in the queue
func (q *Queue[T]) Size() int {
	return len(q.messages)
}

// DeadLetters returns the payloads of dead-lettered messages.
func (q *Queue[T]) DeadLetters() []T {
	q.dlqMu.Lock()
	defer q.dlqMu.Unlock()
	ret := make([]T, 0, len(q.dlq))
	for _, msg := range q.dlq {
		ret = append(ret, msg.payload)
	}
	return ret
}

func (q *Queue[T]) deadLetter(msg *Message[T], cause error) {
	log.Printf("idmint: dead-lettering message %s after %d attempts: %v", msg.id, msg.attempts, cause)
	q.dlqMu.Lock()
	q.dlq = append(q.dlq, msg)
	q.dlqMu.Unlock()
}

// ensure Queue implements messaging.Queue interface
var _ messaging.Queue[any] = (*Queue[any])(nil)
