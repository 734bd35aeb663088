// Package crypto wraps the dedicated cryptographic libraries the execution
// engine delegates to: Keccak-256 hashing, secp256k1 signature recovery, and
// the elliptic-curve/pairing math behind the BN254, BLS12-381, and KZG
// precompiles. The engine treats all of it as opaque pure functions; only
// the dispatch and gas pricing around these calls is part of the core.
package crypto

import (
	"github.com/wyf-labs/evmcore/core/types"
	"golang.org/x/crypto/sha3"
)

// Keccak256 calculates the Keccak-256 hash of the concatenation of data.
func Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Keccak256Hash calculates Keccak-256 and returns it as a types.Hash.
func Keccak256Hash(data ...[]byte) types.Hash {
	return types.BytesToHash(Keccak256(data...))
}
