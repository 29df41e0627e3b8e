package event

import (
	"context"
	"errors"
	"log"
	"sync"
)

// Listener feeds every consumed event to handler on its own goroutine.
type Listener[T any] struct {
	publisher *Publisher[T]
	handler   func(*Event[T])
	mux       sync.Mutex
	cancel    context.CancelFunc
	stopped   bool
	done      chan struct{}
}

func NewListener[T any](publisher *Publisher[T], handler func(*Event[T])) *Listener[T] {
	return &Listener[T]{
		publisher: publisher,
		handler:   handler,
		done:      make(chan struct{}),
	}
}

// Stop ends the consume loop and waits for the running handler to return.
// A stopped listener cannot be started again.
func (l *Listener[T]) Stop() {
	l.mux.Lock()
	if !l.stopped {
		l.stopped = true
		if l.cancel == nil {
			close(l.done)
		} else {
			l.cancel()
		}
	}
	l.mux.Unlock()
	<-l.done
}

// Start runs the consume loop. Calls after the first, or after Stop, are no-ops.
func (l *Listener[T]) Start() {
	l.mux.Lock()
	defer l.mux.Unlock()
	if l.stopped || l.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	go func() {
		defer close(l.done)
		for {
			event, err := l.publisher.Consume(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				log.Printf("idmint: error consuming event: %v", err)
				continue
			}
			if event != nil {
				l.handler(event)
			}
		}
	}()
}
