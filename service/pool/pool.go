// Package pool holds the materialized, not yet allocated identifiers and
// removes them uniformly at random by seed.
package pool

import (
	"fmt"
	"sort"

	"github.com/viant/idmint/internal/journal"
	"github.com/viant/idmint/model"
	"github.com/viant/idmint/model/errs"
	"github.com/viant/idmint/service/entropy"
)

// Pool is an unordered array of free identifiers plus the materialization
// cursor: identifiers at offsets [0, cursor) have been appended at some point.
// It is not safe for concurrent use.
type Pool struct {
	universe model.Universe
	items    []uint64
	cursor   uint64
	dirty    map[int]struct{}
}

// New creates an empty pool over universe.
func New(universe model.Universe) *Pool {
	return &Pool{universe: universe}
}

// FromState rebuilds a pool from persisted items and cursor.
func FromState(universe model.Universe, items []uint64, cursor uint64) (*Pool, error) {
	if cursor > universe.Size() {
		return nil, fmt.Errorf("restore pool: cursor %d beyond universe size %d", cursor, universe.Size())
	}
	if uint64(len(items)) > cursor {
		return nil, fmt.Errorf("restore pool: %d items exceed cursor %d", len(items), cursor)
	}
	seen := make(map[uint64]struct{}, len(items))
	for _, id := range items {
		offset, ok := universe.Offset(id)
		if !ok || offset >= cursor {
			return nil, fmt.Errorf("restore pool: item %d: %w", id, errs.ErrOutOfRange)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("restore pool: item %d: %w", id, errs.ErrAlreadyAllocated)
		}
		seen[id] = struct{}{}
	}
	return &Pool{universe: universe, items: append([]uint64(nil), items...), cursor: cursor}, nil
}

// Size returns the number of free identifiers.
func (p *Pool) Size() int { return len(p.items) }

// Cursor returns how many universe offsets have been materialized.
func (p *Pool) Cursor() uint64 { return p.cursor }

// Universe returns the pool's identifier range.
func (p *Pool) Universe() model.Universe { return p.universe }

// Items returns a copy of the free identifiers in array order.
func (p *Pool) Items() []uint64 {
	return append([]uint64(nil), p.items...)
}

// Phase derives the lifecycle stage from cursor and size.
func (p *Pool) Phase() Phase {
	switch {
	case p.cursor == 0:
		return PhaseEmpty
	case p.cursor < p.universe.Size():
		return PhaseMaterializing
	case len(p.items) > 0:
		return PhaseReady
	default:
		return PhaseDepleted
	}
}

// Changes returns the slots written since the last ClearChanges that are still
// inside the pool, in slot order.
func (p *Pool) Changes() []model.Slot {
	slots := make([]model.Slot, 0, len(p.dirty))
	for index := range p.dirty {
		if index < len(p.items) {
			slots = append(slots, model.Slot{Index: index, ID: p.items[index]})
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Index < slots[j].Index })
	return slots
}

// ClearChanges forgets the written slots.
func (p *Pool) ClearChanges() {
	p.dirty = nil
}

func (p *Pool) touch(index int) {
	if p.dirty == nil {
		p.dirty = make(map[int]struct{})
	}
	p.dirty[index] = struct{}{}
}

// InitializeFull materializes the whole universe at once.
func (p *Pool) InitializeFull(j *journal.Journal) error {
	if p.cursor > 0 || len(p.items) > 0 {
		return fmt.Errorf("initialize pool: %w", errs.ErrAlreadyInitialized)
	}
	p.Extend(j, p.universe.Size())
	return nil
}

// Extend appends the next count identifiers after the cursor, clamped to the
// universe, and returns the new cursor.
func (p *Pool) Extend(j *journal.Journal, count uint64) uint64 {
	remaining := p.universe.Size() - p.cursor
	if count > remaining {
		count = remaining
	}
	prevCursor, prevLen := p.cursor, len(p.items)
	for i := uint64(0); i < count; i++ {
		p.touch(len(p.items))
		p.items = append(p.items, p.universe.At(p.cursor+i))
	}
	p.cursor += count
	j.Record(func() {
		p.items = p.items[:prevLen]
		p.cursor = prevCursor
	})
	return p.cursor
}

// AllocateRandom removes and returns the identifier at seed mod size,
// moving the last element into its slot.
func (p *Pool) AllocateRandom(j *journal.Journal, seed entropy.Seed) (uint64, error) {
	n := len(p.items)
	if n == 0 {
		return 0, fmt.Errorf("allocate from pool: %w", errs.ErrPoolEmpty)
	}
	slot := int(seed.Mod(uint64(n)))
	id := p.items[slot]
	p.items[slot] = p.items[n-1]
	p.items = p.items[:n-1]
	if slot < n-1 {
		p.touch(slot)
	}
	j.Record(func() { p.Restore(slot, id) })
	return id, nil
}

// Restore reverses an AllocateRandom that took id from slot.
func (p *Pool) Restore(slot int, id uint64) {
	if slot == len(p.items) {
		p.items = append(p.items, id)
		return
	}
	p.items = append(p.items, p.items[slot])
	p.items[slot] = id
}
