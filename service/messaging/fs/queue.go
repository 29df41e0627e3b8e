// Package fs provides a durable queue whose messages are JSON files moved
// between pending, processing, completed and dead-letter folders through afs.
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/idmint/internal/clock"
	"github.com/viant/idmint/internal/idgen"
	"github.com/viant/idmint/service/messaging"
)

// MessageState represents the state of a message in the filesystem queue
type MessageState string

const (
	MessageStatePending    MessageState = "pending"
	MessageStateProcessing MessageState = "processing"
	MessageStateCompleted  MessageState = "completed"
	MessageStateDead       MessageState = "dlq"
)

// Config holds configuration for filesystem queue
type Config struct {
	BasePath      string        `json:"basePath" yaml:"basePath"`
	MaxRetries    int           `json:"maxRetries" yaml:"maxRetries"`
	PollInterval  time.Duration `json:"pollInterval" yaml:"pollInterval"`
	KeepCompleted bool          `json:"keepCompleted" yaml:"keepCompleted"`
}

// DefaultConfig returns a default queue configuration rooted at basePath.
func DefaultConfig(basePath string) Config {
	return Config{
		BasePath:     basePath,
		MaxRetries:   3,
		PollInterval: 50 * time.Millisecond,
	}
}

// Message is a queue entry persisted as one JSON file.
type Message[T any] struct {
	ID        string       `json:"id"`
	Data      T            `json:"data"`
	State     MessageState `json:"state"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Retries   int          `json:"retries"`

	name    string
	queue   *Queue[T]
	settled bool
	mu      sync.Mutex
}

// T returns the message payload
func (m *Message[T]) T() *T {
	return &m.Data
}

// Ack moves the message to completed, or removes it when completed
// messages are not kept.
func (m *Message[T]) Ack() error {
	if err := m.settle(); err != nil {
		return err
	}
	m.State = MessageStateCompleted
	m.UpdatedAt = clock.Now()
	return m.queue.move(context.Background(), m, MessageStateCompleted)
}

// Nack returns the message to pending, or to the dead-letter folder once
// MaxRetries is exceeded.
func (m *Message[T]) Nack(err error) error {
	if e := m.settle(); e != nil {
		return e
	}
	if err != nil {
		m.Error = err.Error()
	}
	m.Retries++
	m.UpdatedAt = clock.Now()
	target := MessageStatePending
	if m.Retries > m.queue.config.MaxRetries {
		target = MessageStateDead
	}
	m.State = target
	return m.queue.move(context.Background(), m, target)
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

// Queue implements a filesystem-based messaging.Queue
type Queue[T any] struct {
	fs     afs.Service
	config Config
	mu     sync.Mutex
}

// NewQueue creates the queue folders under config.BasePath.
func NewQueue[T any](fs afs.Service, config Config) (*Queue[T], error) {
	if config.BasePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultConfig("").PollInterval
	}
	q := &Queue[T]{fs: fs, config: config}
	ctx := context.Background()
	for _, state := range []MessageState{MessageStatePending, MessageStateProcessing, MessageStateCompleted, MessageStateDead} {
		dir := q.dir(state)
		exists, _ := fs.Exists(ctx, dir)
		if exists {
			continue
		}
		if err := fs.Create(ctx, dir, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return q, nil
}

// Publish writes a pending message file. File names sort in publish order.
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	now := clock.Now()
	message := &Message[T]{
		ID:        idgen.New(),
		Data:      *t,
		State:     MessageStatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	message.name = fmt.Sprintf("%020d-%s.json", now.UnixNano(), message.ID)
	return q.write(ctx, MessageStatePending, message)
}

// Consume polls the pending folder until a message is claimed or ctx ends.
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	for {
		message, err := q.claim(ctx)
		if err != nil {
			return nil, err
		}
		if message != nil {
			return message, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(q.config.PollInterval):
		}
	}
}

// Count returns the number of message files in the given state.
func (q *Queue[T]) Count(ctx context.Context, state MessageState) (int, error) {
	names, err := q.list(ctx, state)
	return len(names), err
}

// claim moves the oldest pending message to processing.
func (q *Queue[T]) claim(ctx context.Context) (*Message[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	names, err := q.list(ctx, MessageStatePending)
	if err != nil || len(names) == 0 {
		return nil, err
	}
	name := names[0]
	source := url.Join(q.dir(MessageStatePending), name)
	message, err := q.read(ctx, source)
	if err != nil {
		_ = q.fs.Move(ctx, source, url.Join(q.dir(MessageStateDead), "invalid-"+name))
		return nil, err
	}
	message.name = name
	message.queue = q
	message.State = MessageStateProcessing
	message.UpdatedAt = clock.Now()
	if err := q.write(ctx, MessageStateProcessing, message); err != nil {
		return nil, fmt.Errorf("failed to move message to processing: %w", err)
	}
	if err := q.fs.Delete(ctx, source); err != nil {
		return nil, fmt.Errorf("failed to delete pending message: %w", err)
	}
	return message, nil
}

func (q *Queue[T]) move(ctx context.Context, m *Message[T], target MessageState) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if target != MessageStateCompleted || q.config.KeepCompleted {
		if err := q.write(ctx, target, m); err != nil {
			return fmt.Errorf("failed to move message to %s: %w", target, err)
		}
	}
	processing := url.Join(q.dir(MessageStateProcessing), m.name)
	if exists, _ := q.fs.Exists(ctx, processing); exists {
		if err := q.fs.Delete(ctx, processing); err != nil {
			return fmt.Errorf("failed to delete processing message: %w", err)
		}
	}
	return nil
}

func (q *Queue[T]) list(ctx context.Context, state MessageState) ([]string, error) {
	objects, err := q.fs.List(ctx, q.dir(state))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s messages: %w", state, err)
	}
	var names []string
	for _, object := range objects {
		if !object.IsDir() && strings.HasSuffix(object.Name(), ".json") {
			names = append(names, object.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (q *Queue[T]) write(ctx context.Context, state MessageState, m *Message[T]) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return q.fs.Upload(ctx, url.Join(q.dir(state), m.name), file.DefaultFileOsMode, bytes.NewReader(data))
}

func (q *Queue[T]) read(ctx context.Context, location string) (*Message[T], error) {
	data, err := q.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read message %s: %w", location, err)
	}
	var message Message[T]
	if err := json.Unmarshal(data, &message); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message %s: %w", location, err)
	}
	return &message, nil
}

func (q *Queue[T]) dir(state MessageState) string {
	return url.Join(q.config.BasePath, string(state))
}

// ensure Queue implements messaging.Queue interface
var _ messaging.Queue[any] = (*Queue[any])(nil)
