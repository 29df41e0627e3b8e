// Package event publishes allocator events to typed queues and runs
// listeners over them.
package event

import (
	"time"

	"github.com/viant/idmint/internal/clock"
	"github.com/viant/idmint/internal/idgen"
)

// Event types emitted by the allocator.
const (
	TypeNumberAllocated   = "NumberAllocated"
	TypeProceedsWithdrawn = "ProceedsWithdrawn"
	TypePriceChanged      = "PriceChanged"
	TypePoolMaterialized  = "PoolMaterialized"
	TypeFundsDeposited    = "FundsDeposited"
	TypeNumbersGranted    = "NumbersGranted"
)

// Context describes where an event came from.
type Context struct {
	Allocator   string `json:"allocator"`
	EventType   string `json:"eventType"`
	Actor       string `json:"actor,omitempty"`
	TimeTakenMs int    `json:"timeTakenMs,omitempty"`
}

type Event[T any] struct {
	ID        string                 `json:"id"`
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Data      T                      `json:"data"`
}

func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		ID:        idgen.New(),
		Context:   context,
		CreatedAt: clock.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}

// Type returns the event type or "" without context.
func (e *Event[T]) Type() string {
	if e == nil || e.Context == nil {
		return ""
	}
	return e.Context.EventType
}
