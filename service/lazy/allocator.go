// Package lazy picks identifiers without materializing the universe: it
// draws random candidates and retries on collision, up to a bound.
package lazy

import (
	"fmt"

	"github.com/viant/idmint/internal/journal"
	"github.com/viant/idmint/model"
	"github.com/viant/idmint/model/errs"
	"github.com/viant/idmint/service/entropy"
)

// DefaultMaxAttempts bounds the retry loop when callers pass zero.
const DefaultMaxAttempts = 10

// Occupancy answers whether an identifier is taken.
type Occupancy interface {
	IsAllocated(id uint64) (bool, error)
}

// Allocator draws candidates from the universe.
type Allocator struct {
	universe model.Universe
	taken    Occupancy
	source   *entropy.Source
}

// New creates a lazy allocator.
func New(universe model.Universe, taken Occupancy, source *entropy.Source) *Allocator {
	return &Allocator{universe: universe, taken: taken, source: source}
}

// Allocate returns the first free candidate and the number of attempts used.
// Each attempt consumes one nonce of owner. The candidate is not assigned.
func (a *Allocator) Allocate(j *journal.Journal, owner string, external []byte, maxAttempts int) (uint64, int, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	size := a.universe.Size()
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		seed := a.source.Next(j, owner, external)
		candidate := a.universe.At(seed.Mod(size))
		taken, err := a.taken.IsAllocated(candidate)
		if err != nil {
			return 0, attempt, err
		}
		if !taken {
			return candidate, attempt, nil
		}
	}
	return 0, maxAttempts, fmt.Errorf("allocate after %d attempts: %w", maxAttempts, errs.ErrAllocationExhausted)
}
