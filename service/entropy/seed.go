package entropy

import (
	"encoding/hex"
	"math/big"
)

// Seed is a 256-bit derived random value.
type Seed [32]byte

// Mod reduces the full 256-bit seed modulo n. It panics when n is zero.
func (s Seed) Mod(n uint64) uint64 {
	if n == 0 {
		panic("entropy: modulo by zero")
	}
	v := new(big.Int).SetBytes(s[:])
	return v.Mod(v, new(big.Int).SetUint64(n)).Uint64()
}

// Hex returns the hex encoding of the seed.
func (s Seed) Hex() string {
	return hex.EncodeToString(s[:])
}
