package progress

import (
	"context"
	"sync"
	"time"

	"github.com/viant/idmint/internal/clock"
)

// Delta is an incremental counter change.
type Delta struct {
	Materialized int
	Allocated    int
}

// Counters is a point-in-time copy of a tracker.
type Counters struct {
	Allocator string
	Universe  uint64
	StartedAt time.Time

	Materialized uint64
	Allocated    uint64
}

// Percent returns the materialized share of the universe in [0, 100].
func (c Counters) Percent() float64 {
	if c.Universe == 0 {
		return 0
	}
	return float64(c.Materialized) * 100 / float64(c.Universe)
}

// Progress keeps counters for one allocator. It is safe for concurrent use.
type Progress struct {
	mux      sync.Mutex
	counters Counters
	onChange func(Counters)
}

// Percent returns the materialized share of the universe in [0, 100].
func (p *Progress) Percent() float64 {
	return p.Snapshot().Percent()
}

// Update applies d and invokes the onChange callback with a copy, outside the
// lock. Counters never drop below zero.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}
	p.mux.Lock()
	p.counters.Materialized = apply(p.counters.Materialized, d.Materialized)
	p.counters.Allocated = apply(p.counters.Allocated, d.Allocated)
	snapshot := p.counters
	cb := p.onChange
	p.mux.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

func apply(value uint64, delta int) uint64 {
	if delta < 0 && uint64(-delta) > value {
		return 0
	}
	if delta < 0 {
		return value - uint64(-delta)
	}
	return value + uint64(delta)
}

// Snapshot returns a copy of the counters.
func (p *Progress) Snapshot() Counters {
	if p == nil {
		return Counters{}
	}
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.counters
}

// OnChange registers the callback invoked after every Update. Nil disables it.
func (p *Progress) OnChange(cb func(Counters)) {
	if p == nil {
		return
	}
	p.mux.Lock()
	p.onChange = cb
	p.mux.Unlock()
}

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithNewTracker creates a tracker seeded with the current counters and
// embeds it in a derived context.
func WithNewTracker(ctx context.Context, allocator string, universe, materialized, allocated uint64, onChange func(Counters)) (context.Context, *Progress) {
	if ctx == nil {
		ctx = context.Background()
	}
	tr := &Progress{
		counters: Counters{
			Allocator:    allocator,
			Universe:     universe,
			StartedAt:    clock.Now(),
			Materialized: materialized,
			Allocated:    allocated,
		},
		onChange: onChange,
	}
	return context.WithValue(ctx, trackerKey, tr), tr
}

// FromContext extracts the tracker from ctx.
func FromContext(ctx context.Context) (*Progress, bool) {
	if ctx == nil {
		return nil, false
	}
	tr, ok := ctx.Value(trackerKey).(*Progress)
	return tr, ok
}

// UpdateCtx applies d to the tracker in ctx, if any.
func UpdateCtx(ctx context.Context, d Delta) {
	if tr, ok := FromContext(ctx); ok {
		tr.Update(d)
	}
}
