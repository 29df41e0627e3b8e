package entropy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/idmint/internal/clock"
	"github.com/viant/idmint/internal/journal"
)

func TestSeed_Mod(t *testing.T) {
	testCases := []struct {
		name   string
		seed   Seed
		n      uint64
		expect uint64
	}{
		{name: "zero seed", seed: Seed{}, n: 1000, expect: 0},
		{name: "low byte", seed: Seed{31: 7}, n: 5, expect: 2},
		{name: "n of one", seed: Seed{0: 0xff, 31: 0xff}, n: 1, expect: 0},
		// 2^248 mod 1000 = 656 (only the highest byte set to 1)
		{name: "high byte only", seed: Seed{0: 1}, n: 1000, expect: 656},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.expect, testCase.seed.Mod(testCase.n))
		})
	}
	assert.Panics(t, func() { Seed{}.Mod(0) })
}

func TestKeccak(t *testing.T) {
	a := Keccak([]byte("x"), "alice", 0)
	assert.Equal(t, a, Keccak([]byte("x"), "alice", 0), "deterministic")
	assert.NotEqual(t, a, Keccak([]byte("x"), "alice", 1))
	assert.NotEqual(t, a, Keccak([]byte("x"), "bob", 0))
	assert.NotEqual(t, a, Keccak([]byte("y"), "alice", 0))
	assert.Len(t, a.Hex(), 64)
}

func TestSource_Next(t *testing.T) {
	var seen []uint64
	s := NewSource(func(external []byte, owner string, nonce uint64) Seed {
		seen = append(seen, nonce)
		return Seed{31: byte(nonce)}
	})

	for i := 0; i < 3; i++ {
		seed := s.Next(nil, "alice", nil)
		assert.Equal(t, byte(i), seed[31])
	}
	s.Next(nil, "bob", nil)

	assert.Equal(t, []uint64{0, 1, 2, 0}, seen)
	assert.EqualValues(t, 3, s.Nonce("alice"))
	assert.EqualValues(t, 1, s.Nonce("bob"))
	assert.EqualValues(t, 0, s.Nonce("carol"))
}

func TestSource_NonceMonotonic(t *testing.T) {
	s := NewSource(nil)
	prev := s.Nonce("alice")
	for i := 0; i < 50; i++ {
		s.Next(nil, "alice", []byte{byte(i)})
		next := s.Nonce("alice")
		require.Greater(t, next, prev)
		prev = next
	}
}

func TestSource_Rollback(t *testing.T) {
	s := NewSource(nil)
	s.Next(nil, "alice", nil)

	j := journal.New()
	s.Next(j, "alice", nil)
	s.Next(j, "alice", nil)
	s.Next(j, "bob", nil)
	j.Rollback()

	assert.EqualValues(t, 1, s.Nonce("alice"))
	assert.Equal(t, map[string]uint64{"alice": 1}, s.Nonces())
}

func TestSource_Restore(t *testing.T) {
	s := NewSource(nil)
	s.Restore(map[string]uint64{"alice": 4, "ghost": 0})
	assert.Equal(t, map[string]uint64{"alice": 4}, s.Nonces())

	copied := s.Nonces()
	copied["alice"] = 99
	assert.EqualValues(t, 4, s.Nonce("alice"))
}

func TestProviders(t *testing.T) {
	restore := clock.Freeze(time.Unix(1700000000, 0))
	defer restore()

	c := NewClock()
	first, second := c.Entropy(), c.Entropy()
	assert.Len(t, first, 16)
	assert.Equal(t, first[:8], second[:8])
	assert.NotEqual(t, first, second, "sequence separates calls at the same instant")

	assert.Equal(t, []byte("fixed"), Static("fixed").Entropy())
	assert.Equal(t, []byte("f"), ProviderFunc(func() []byte { return []byte("f") }).Entropy())
}
