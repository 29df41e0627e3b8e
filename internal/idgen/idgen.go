package idgen

import "github.com/google/uuid"

// NewFunc returns a time-ordered UUIDv7 string, so record and message IDs
// sort by creation time. Tests may replace it.
var NewFunc = func() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// New returns NewFunc().
func New() string { return NewFunc() }
