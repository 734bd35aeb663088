package crypto

import (
	"crypto/sha256"
	"errors"

	gokzg "github.com/ethereum/go-ethereum/crypto/kzg4844"
)

// KZGVersionedHashVersion is the single-byte version prefix EIP-4844 assigns
// to blob commitment hashes (the low 31 bytes are the SHA256 digest of the
// commitment).
const KZGVersionedHashVersion = 0x01

var (
	ErrKZGInvalidCommitment     = errors.New("kzg: invalid commitment encoding")
	ErrKZGInvalidProof          = errors.New("kzg: invalid proof encoding")
	ErrKZGVersionedHashMismatch = errors.New("kzg: versioned hash does not match commitment")
)

// KZGVerifyProof verifies the EIP-4844 point-evaluation precompile's core
// claim: that the polynomial committed to by commitment evaluates to claim
// at point. Delegates to go-ethereum's c-kzg-4844 binding.
func KZGVerifyProof(commitment [48]byte, point, claim [32]byte, proof [48]byte) error {
	return gokzg.VerifyProof(gokzg.Commitment(commitment), gokzg.Point(point), gokzg.Claim(claim), gokzg.Proof(proof))
}

// KZGToVersionedHash derives the EIP-4844 versioned hash of a KZG
// commitment: the version byte followed by the low 31 bytes of its SHA256
// digest.
func KZGToVersionedHash(commitment [48]byte) [32]byte {
	digest := sha256.Sum256(commitment[:])
	var out [32]byte
	out[0] = KZGVersionedHashVersion
	copy(out[1:], digest[1:])
	return out
}
