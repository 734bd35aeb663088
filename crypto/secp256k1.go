package crypto

import (
	"math/big"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/wyf-labs/evmcore/core/types"
)

// Ecrecover recovers the 65-byte uncompressed public key that produced sig
// (a 65-byte [R || S || V] signature, V in {0,1}) over hash. It delegates
// directly to go-ethereum's secp256k1 binding rather than re-implementing
// curve recovery.
func Ecrecover(hash, sig []byte) ([]byte, error) {
	return gethcrypto.Ecrecover(hash, sig)
}

// PubkeyToAddress derives the 20-byte Ethereum address from an uncompressed
// 65-byte secp256k1 public key: the low 20 bytes of Keccak256(pubkey[1:]).
func PubkeyToAddress(pubkey []byte) types.Address {
	if len(pubkey) == 65 {
		pubkey = pubkey[1:]
	}
	return types.BytesToAddress(Keccak256(pubkey)[12:])
}

// ValidateSignatureValues reports whether r and s lie within the valid
// secp256k1 signature range. homestead selects the post-Homestead rule that
// additionally rejects the upper half of the s range (EIP-2, malleability
// protection).
func ValidateSignatureValues(v byte, r, s []byte, homestead bool) bool {
	return gethcrypto.ValidateSignatureValues(v, new(big.Int).SetBytes(r), new(big.Int).SetBytes(s), homestead)
}
