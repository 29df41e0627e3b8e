// Package batch materializes a pool's universe in bounded chunks so that no
// single call costs O(N).
package batch

import (
	"fmt"

	"github.com/viant/idmint/internal/journal"
	"github.com/viant/idmint/model/errs"
	"github.com/viant/idmint/service/pool"
)

// Initializer advances a pool's materialization cursor.
type Initializer struct {
	pool *pool.Pool
}

// New returns an initializer for p.
func New(p *pool.Pool) *Initializer {
	return &Initializer{pool: p}
}

// MaterializeNext appends min(batchSize, N-cursor) identifiers to the pool
// and returns the new cursor.
func (i *Initializer) MaterializeNext(j *journal.Journal, batchSize uint64) (uint64, error) {
	if batchSize == 0 {
		return i.pool.Cursor(), fmt.Errorf("materialize: %w", errs.ErrInvalidBatchSize)
	}
	if i.Complete() {
		return i.pool.Cursor(), fmt.Errorf("materialize: %w", errs.ErrAlreadyComplete)
	}
	return i.pool.Extend(j, batchSize), nil
}

// Cursor returns the number of materialized universe offsets.
func (i *Initializer) Cursor() uint64 { return i.pool.Cursor() }

// Remaining returns how many identifiers are still to be materialized.
func (i *Initializer) Remaining() uint64 {
	return i.pool.Universe().Size() - i.pool.Cursor()
}

// Complete reports whether the whole universe has been materialized.
func (i *Initializer) Complete() bool {
	return i.pool.Cursor() >= i.pool.Universe().Size()
}
