package model

import (
	"fmt"
	"math"
)

// Universe is the inclusive identifier range [Min, Max]. It never changes
// once an allocator has been created.
type Universe struct {
	Min uint64 `json:"min" yaml:"min" env:"MIN"`
	Max uint64 `json:"max" yaml:"max" env:"MAX"`
}

// NewUniverse returns the universe [0, size).
func NewUniverse(size uint64) Universe {
	if size == 0 {
		return Universe{Min: 1, Max: 0}
	}
	return Universe{Min: 0, Max: size - 1}
}

// Size returns the number of identifiers in the universe.
func (u Universe) Size() uint64 {
	if u.Max < u.Min {
		return 0
	}
	return u.Max - u.Min + 1
}

// Contains reports whether id lies within [Min, Max].
func (u Universe) Contains(id uint64) bool {
	return id >= u.Min && id <= u.Max
}

// Offset returns id-Min for identifiers inside the universe.
func (u Universe) Offset(id uint64) (uint64, bool) {
	if !u.Contains(id) {
		return 0, false
	}
	return id - u.Min, true
}

// At returns the identifier at the given offset.
func (u Universe) At(offset uint64) uint64 {
	return u.Min + offset
}

// Validate rejects empty universes and the full uint64 range, whose size
// cannot be represented.
func (u Universe) Validate() error {
	if u.Max < u.Min {
		return fmt.Errorf("invalid universe [%d, %d]: max below min", u.Min, u.Max)
	}
	if u.Min == 0 && u.Max == math.MaxUint64 {
		return fmt.Errorf("invalid universe [%d, %d]: size overflows", u.Min, u.Max)
	}
	return nil
}

func (u Universe) String() string {
	return fmt.Sprintf("[%d, %d]", u.Min, u.Max)
}
