package entropy

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/viant/idmint/internal/clock"
)

// Provider supplies the external entropy value when a request carries none.
type Provider interface {
	Entropy() []byte
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func() []byte

// Entropy returns f().
func (f ProviderFunc) Entropy() []byte { return f() }

// Clock mixes the current time with a process-local sequence. Anyone who can
// estimate the time can predict the value.
type Clock struct {
	seq atomic.Uint64
}

// NewClock returns a clock provider.
func NewClock() *Clock { return &Clock{} }

// Entropy returns unix-nanos || sequence as 16 bytes.
func (c *Clock) Entropy() []byte {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(clock.Now().UnixNano()))
	binary.BigEndian.PutUint64(buf[8:], c.seq.Add(1))
	return buf[:]
}

// Static always returns the same value.
type Static []byte

// Entropy returns s.
func (s Static) Entropy() []byte { return s }

var _ Provider = (*Clock)(nil)
var _ Provider = Static(nil)
