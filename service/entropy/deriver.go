package entropy

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"
)

// Deriver maps the request inputs to a seed.
type Deriver func(external []byte, owner string, nonce uint64) Seed

// Keccak hashes external || owner || nonce, the nonce encoded as a
// big-endian 256-bit word. The result is only as unpredictable as external.
func Keccak(external []byte, owner string, nonce uint64) Seed {
	var word [32]byte
	binary.BigEndian.PutUint64(word[24:], nonce)
	h := sha3.NewLegacyKeccak256()
	h.Write(external)
	h.Write([]byte(owner))
	h.Write(word[:])
	var seed Seed
	copy(seed[:], h.Sum(nil))
	return seed
}
