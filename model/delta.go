package model

import (
	"fmt"
	"time"
)

// Slot is one position of the pool array.
type Slot struct {
	Index int    `json:"index"`
	ID    uint64 `json:"id"`
}

// Assignment hands an identifier to an owner.
type Assignment struct {
	ID    uint64 `json:"id"`
	Owner string `json:"owner"`
}

// Delta is what one committed operation changed in a State: the pool slots it
// wrote, the new pool length, the identifiers it assigned and the nonces it
// advanced, plus the scalar fields. Its size follows the operation's own
// work, never the size of the state.
type Delta struct {
	Name      string            `json:"name"`
	Version   uint64            `json:"version"`
	Cursor    uint64            `json:"cursor"`
	PoolSize  int               `json:"poolSize"`
	Slots     []Slot            `json:"slots,omitempty"`
	Assigned  []Assignment      `json:"assigned,omitempty"`
	Nonces    map[string]uint64 `json:"nonces,omitempty"`
	Proceeds  Amount            `json:"proceeds"`
	Price     Amount            `json:"price"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// Validate checks d against a pool of currentSize before anything is applied.
func (d *Delta) Validate(currentSize int) error {
	if d == nil {
		return fmt.Errorf("delta is nil")
	}
	if d.PoolSize < 0 {
		return fmt.Errorf("delta %d: negative pool size %d", d.Version, d.PoolSize)
	}
	grown := 0
	for _, slot := range d.Slots {
		if slot.Index < 0 || slot.Index >= d.PoolSize {
			return fmt.Errorf("delta %d: slot %d outside pool of %d", d.Version, slot.Index, d.PoolSize)
		}
		if slot.Index >= currentSize {
			grown++
		}
	}
	if d.PoolSize > currentSize && grown < d.PoolSize-currentSize {
		return fmt.Errorf("delta %d: pool grows by %d but only %d new slots are written", d.Version, d.PoolSize-currentSize, grown)
	}
	for _, assignment := range d.Assigned {
		if assignment.Owner == "" {
			return fmt.Errorf("delta %d: identifier %d without owner", d.Version, assignment.ID)
		}
	}
	return nil
}

// Apply updates s in place with d. s is left untouched when d does not fit.
// Version ordering is the caller's concern.
func (s *State) Apply(d *Delta) error {
	if err := d.Validate(len(s.Pool)); err != nil {
		return err
	}
	if d.Name != s.Name {
		return fmt.Errorf("delta for %q applied to %q", d.Name, s.Name)
	}
	if d.PoolSize <= len(s.Pool) {
		s.Pool = s.Pool[:d.PoolSize]
	} else {
		s.Pool = append(s.Pool, make([]uint64, d.PoolSize-len(s.Pool))...)
	}
	for _, slot := range d.Slots {
		s.Pool[slot.Index] = slot.ID
	}
	if len(d.Assigned) > 0 && s.Holdings == nil {
		s.Holdings = make(map[string][]uint64)
	}
	for _, assignment := range d.Assigned {
		s.Holdings[assignment.Owner] = append(s.Holdings[assignment.Owner], assignment.ID)
	}
	if len(d.Nonces) > 0 && s.Nonces == nil {
		s.Nonces = make(map[string]uint64, len(d.Nonces))
	}
	for owner, nonce := range d.Nonces {
		s.Nonces[owner] = nonce
	}
	if len(s.Pool) == 0 {
		s.Pool = nil
	}
	s.Cursor = d.Cursor
	s.Proceeds = d.Proceeds
	s.Price = d.Price
	s.Version = d.Version
	s.UpdatedAt = d.UpdatedAt
	return nil
}
