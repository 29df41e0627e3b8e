package allocator

import (
	"github.com/viant/idmint/model"
	"github.com/viant/idmint/service/pool"
)

// Config returns the allocator configuration.
func (s *Service) Config() Config { return s.config }

// OwnerOf returns the owner of id, "" when free, or errs.ErrOutOfRange.
func (s *Service) OwnerOf(id uint64) (string, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.ledger.OwnerOf(id)
}

// IsAllocated reports whether id has an owner.
func (s *Service) IsAllocated(id uint64) (bool, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.ledger.IsAllocated(id)
}

// NumbersOf returns owner's identifiers in allocation order.
func (s *Service) NumbersOf(owner string) []uint64 {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.ledger.NumbersOf(owner)
}

// CountOf returns how many identifiers owner holds.
func (s *Service) CountOf(owner string) int {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.ledger.CountOf(owner)
}

// NonceOf returns owner's entropy nonce.
func (s *Service) NonceOf(owner string) uint64 {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.source.Nonce(owner)
}

// RemainingCapacity is the pool size for the pool strategy and the count of
// unowned identifiers for the lazy strategy.
func (s *Service) RemainingCapacity() uint64 {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.remaining()
}

func (s *Service) remaining() uint64 {
	if s.config.Strategy == model.StrategyPool {
		return uint64(s.pool.Size())
	}
	return s.config.Universe.Size() - uint64(s.ledger.Total())
}

// PoolSize returns the number of materialized, unallocated identifiers.
func (s *Service) PoolSize() int {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.pool.Size()
}

// Cursor returns how much of the universe has been materialized. A lazy
// allocator treats the whole universe as materialized.
func (s *Service) Cursor() uint64 {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.cursor()
}

func (s *Service) cursor() uint64 {
	if s.config.Strategy == model.StrategyPool {
		return s.pool.Cursor()
	}
	return s.config.Universe.Size()
}

// Phase returns the pool lifecycle stage.
func (s *Service) Phase() pool.Phase {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.pool.Phase()
}

// Price returns the current price per allocation.
func (s *Service) Price() model.Amount {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.price
}

// Proceeds returns the withdrawable balance.
func (s *Service) Proceeds() model.Amount {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.proceeds
}

// TotalAllocated returns the number of owned identifiers.
func (s *Service) TotalAllocated() int {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.ledger.Total()
}

// Info summarises the allocator.
func (s *Service) Info() *model.Info {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return &model.Info{
		Name:           s.config.Name,
		Strategy:       s.config.Strategy,
		Universe:       s.config.Universe,
		Price:          s.price,
		Proceeds:       s.proceeds,
		TotalAllocated: s.ledger.Total(),
		Remaining:      s.remaining(),
		PoolSize:       s.pool.Size(),
		Cursor:         s.cursor(),
	}
}
