// Package entropy derives allocation seeds and tracks per-owner nonces.
//
// Seeds are predictable to anyone who knows the external value, the owner and
// the owner's nonce. They are suitable for spreading allocations, not for
// adversarial fairness.
package entropy

import "github.com/viant/idmint/internal/journal"

// Source derives seeds and owns the per-owner nonce registry.
type Source struct {
	derive Deriver
	nonces map[string]uint64
}

// NewSource creates a source; a nil deriver selects Keccak.
func NewSource(derive Deriver) *Source {
	if derive == nil {
		derive = Keccak
	}
	return &Source{derive: derive, nonces: make(map[string]uint64)}
}

// Next derives a seed for owner from the current nonce, then increments the
// nonce. The increment is recorded on j.
func (s *Source) Next(j *journal.Journal, owner string, external []byte) Seed {
	nonce := s.nonces[owner]
	seed := s.derive(external, owner, nonce)
	s.nonces[owner] = nonce + 1
	j.Record(func() { s.SetNonce(owner, nonce) })
	return seed
}

// Nonce returns owner's current nonce.
func (s *Source) Nonce(owner string) uint64 {
	return s.nonces[owner]
}

// SetNonce overwrites owner's nonce; zero removes the entry.
func (s *Source) SetNonce(owner string, nonce uint64) {
	if nonce == 0 {
		delete(s.nonces, owner)
		return
	}
	s.nonces[owner] = nonce
}

// Nonces returns a copy of the registry.
func (s *Source) Nonces() map[string]uint64 {
	ret := make(map[string]uint64, len(s.nonces))
	for k, v := range s.nonces {
		ret[k] = v
	}
	return ret
}

// Restore replaces the registry with nonces.
func (s *Source) Restore(nonces map[string]uint64) {
	s.nonces = make(map[string]uint64, len(nonces))
	for k, v := range nonces {
		if v > 0 {
			s.nonces[k] = v
		}
	}
}
