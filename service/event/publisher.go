package event

import (
	"context"
	"sync/atomic"

	"github.com/viant/idmint/service/messaging"
)

// Publisher enqueues events of one payload type. Events are only queued once
// a consumer subscribed; before that Publish drops them, so queues of types
// nobody reads never fill up.
type Publisher[T any] struct {
	queue      messaging.Queue[Event[T]]
	all        *Publisher[any]
	subscribed atomic.Bool
}

func NewPublisher[T any](queue messaging.Queue[Event[T]]) *Publisher[T] {
	return &Publisher[T]{
		queue: queue,
	}
}

// Subscribe starts queueing published events for Consume.
func (p *Publisher[T]) Subscribe() {
	p.subscribed.Store(true)
}

// Subscribed reports whether events are being queued.
func (p *Publisher[T]) Subscribed() bool {
	return p.subscribed.Load()
}

// Publish enqueues event on its typed queue and, best effort, on the
// shared untyped queue.
func (p *Publisher[T]) Publish(ctx context.Context, event *Event[T]) error {
	if p.all != nil {
		_ = p.all.Publish(ctx, &Event[any]{
			ID:        event.ID,
			Context:   event.Context,
			CreatedAt: event.CreatedAt,
			Metadata:  event.Metadata,
			Data:      event.Data,
		})
	}
	if !p.Subscribed() {
		return nil
	}
	return p.queue.Publish(ctx, event)
}

// Consume returns the next event, acknowledging its message. It subscribes
// the publisher if nothing did before.
func (p *Publisher[T]) Consume(ctx context.Context) (*Event[T], error) {
	p.Subscribe()
	msg, err := p.queue.Consume(ctx)
	if err != nil || msg == nil {
		return nil, err
	}
	if err = msg.Ack(); err != nil {
		return nil, err
	}
	return msg.T(), nil
}
