// Package clock is the stubbable time source for records and entropy.
package clock

import "time"

// NowFunc returns the current UTC time. Tests override it through Freeze.
var NowFunc = func() time.Time { return time.Now().UTC() }

// Now returns NowFunc().
func Now() time.Time { return NowFunc() }

// Freeze pins Now to at and returns the function restoring the previous source.
func Freeze(at time.Time) func() {
	prev := NowFunc
	NowFunc = func() time.Time { return at }
	return func() { NowFunc = prev }
}
