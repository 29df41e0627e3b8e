// Package ledger is the single source of truth for identifier ownership.
//
// It keeps the id→owner map and the owner→ids lists (in insertion order)
// bidirectionally consistent, plus a bitset over universe offsets used for
// the allocated check on the lazy allocation hot path.
package ledger

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/viant/idmint/internal/journal"
	"github.com/viant/idmint/model"
	"github.com/viant/idmint/model/errs"
)

// initialBits caps the eagerly allocated bitset; it grows on demand.
const initialBits = 1 << 20

// Ledger records which owner holds which identifier. It is not safe for
// concurrent use; the allocator facade serialises access.
type Ledger struct {
	universe model.Universe
	owners   map[uint64]string
	holdings map[string][]uint64
	taken    *bitset.BitSet
	total    int
}

// New creates an empty ledger over the universe.
func New(universe model.Universe) *Ledger {
	size := universe.Size()
	if size > initialBits {
		size = initialBits
	}
	return &Ledger{
		universe: universe,
		owners:   make(map[uint64]string),
		holdings: make(map[string][]uint64),
		taken:    bitset.New(uint(size)),
	}
}

// Assign records owner as the holder of id. The undo step is recorded on j.
func (l *Ledger) Assign(j *journal.Journal, id uint64, owner string) error {
	offset, ok := l.universe.Offset(id)
	if !ok {
		return fmt.Errorf("assign %d: %w", id, errs.ErrOutOfRange)
	}
	if l.taken.Test(uint(offset)) {
		return fmt.Errorf("assign %d: %w", id, errs.ErrAlreadyAllocated)
	}
	l.owners[id] = owner
	l.holdings[owner] = append(l.holdings[owner], id)
	l.taken.Set(uint(offset))
	l.total++
	j.Record(func() { l.unassign(id, owner) })
	return nil
}

// unassign reverts the most recent Assign of id to owner.
func (l *Ledger) unassign(id uint64, owner string) {
	offset, _ := l.universe.Offset(id)
	delete(l.owners, id)
	ids := l.holdings[owner]
	if n := len(ids); n > 0 && ids[n-1] == id {
		ids = ids[:n-1]
	}
	if len(ids) == 0 {
		delete(l.holdings, owner)
	} else {
		l.holdings[owner] = ids
	}
	l.taken.Clear(uint(offset))
	l.total--
}

// OwnerOf returns the owner of id, or "" when id is unallocated.
func (l *Ledger) OwnerOf(id uint64) (string, error) {
	if !l.universe.Contains(id) {
		return "", fmt.Errorf("owner of %d: %w", id, errs.ErrOutOfRange)
	}
	return l.owners[id], nil
}

// IsAllocated reports whether id has an owner.
func (l *Ledger) IsAllocated(id uint64) (bool, error) {
	offset, ok := l.universe.Offset(id)
	if !ok {
		return false, fmt.Errorf("is allocated %d: %w", id, errs.ErrOutOfRange)
	}
	return l.taken.Test(uint(offset)), nil
}

// NumbersOf returns a copy of owner's identifiers in allocation order.
func (l *Ledger) NumbersOf(owner string) []uint64 {
	ids := l.holdings[owner]
	ret := make([]uint64, len(ids))
	copy(ret, ids)
	return ret
}

// CountOf returns how many identifiers owner holds.
func (l *Ledger) CountOf(owner string) int {
	return len(l.holdings[owner])
}

// Total returns the number of allocated identifiers.
func (l *Ledger) Total() int {
	return l.total
}

// Universe returns the ledger's identifier range.
func (l *Ledger) Universe() model.Universe {
	return l.universe
}

// Holdings returns a deep copy of the owner-side map for persistence.
func (l *Ledger) Holdings() map[string][]uint64 {
	ret := make(map[string][]uint64, len(l.holdings))
	for owner, ids := range l.holdings {
		ret[owner] = append([]uint64(nil), ids...)
	}
	return ret
}

// Restore replaces the ledger content with holdings, rebuilding the id-side
// map and bitset. Duplicate or out-of-range identifiers are rejected.
func Restore(universe model.Universe, holdings map[string][]uint64) (*Ledger, error) {
	l := New(universe)
	for owner, ids := range holdings {
		for _, id := range ids {
			if err := l.Assign(nil, id, owner); err != nil {
				return nil, fmt.Errorf("restore ledger for %q: %w", owner, err)
			}
		}
	}
	return l, nil
}

// Verify checks the bidirectional invariants and returns the first breach.
func (l *Ledger) Verify() error {
	count := 0
	for owner, ids := range l.holdings {
		if len(ids) == 0 {
			return fmt.Errorf("owner %q has an empty holding list", owner)
		}
		for _, id := range ids {
			if l.owners[id] != owner {
				return fmt.Errorf("id %d listed for %q but owned by %q", id, owner, l.owners[id])
			}
			count++
		}
	}
	if count != len(l.owners) {
		return fmt.Errorf("owner lists hold %d ids, id map holds %d", count, len(l.owners))
	}
	if count != l.total || uint(count) != l.taken.Count() {
		return fmt.Errorf("total %d, bitset %d, entries %d disagree", l.total, l.taken.Count(), count)
	}
	return nil
}
