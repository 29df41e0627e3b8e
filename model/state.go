package model

import "time"

// State is the persisted allocator snapshot. Ledger ownership is stored only
// owner-side (Holdings, in insertion order); the id-side map is rebuilt on
// restore so the two can never disagree on disk.
type State struct {
	Name      string              `json:"name"`
	Universe  Universe            `json:"universe"`
	Strategy  Strategy            `json:"strategy"`
	Cursor    uint64              `json:"cursor"`
	Pool      []uint64            `json:"pool,omitempty"`
	Holdings  map[string][]uint64 `json:"holdings,omitempty"`
	Nonces    map[string]uint64   `json:"nonces,omitempty"`
	Proceeds  Amount              `json:"proceeds"`
	Price     Amount              `json:"price"`
	Version   uint64              `json:"version"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// StateKey selects the DAO key of a state.
func StateKey(s *State) string { return s.Name }

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	ret := *s
	ret.Pool = append([]uint64(nil), s.Pool...)
	if s.Holdings != nil {
		ret.Holdings = make(map[string][]uint64, len(s.Holdings))
		for owner, ids := range s.Holdings {
			ret.Holdings[owner] = append([]uint64(nil), ids...)
		}
	}
	if s.Nonces != nil {
		ret.Nonces = make(map[string]uint64, len(s.Nonces))
		for owner, nonce := range s.Nonces {
			ret.Nonces[owner] = nonce
		}
	}
	return &ret
}
