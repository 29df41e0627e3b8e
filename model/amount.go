package model

import "strconv"

// Amount is a payment value in the smallest currency unit.
type Amount uint64

func (a Amount) String() string {
	return strconv.FormatUint(uint64(a), 10)
}

// Strategy names the allocation algorithm in use.
type Strategy string

const (
	// StrategyPool draws from a materialized pool of unallocated identifiers.
	StrategyPool Strategy = "pool"
	// StrategyLazy hashes straight into the universe and retries on collision.
	StrategyLazy Strategy = "lazy"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyPool, StrategyLazy:
		return true
	}
	return false
}
