package core

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/crypto/sha3"

	"github.com/wyf-labs/evmcore/core/types"
	"github.com/wyf-labs/evmcore/core/vm"
	"github.com/wyf-labs/evmcore/crypto"
)

// authMagic is the EIP-7702 authorization signing prefix: the authorization
// hash is keccak256(MAGIC || rlp([chain_id, address, nonce])).
const authMagic = 0x05

var (
	ErrAuthChainID    = errors.New("authorization chain ID mismatch")
	ErrAuthNonce      = errors.New("authorization nonce mismatch")
	ErrAuthSignature  = errors.New("authorization signature recovery failed")
	ErrAuthInvalidSig = errors.New("authorization signature values invalid")
)

// authRLP is the RLP shape signed over by an EIP-7702 authorization.
type authRLP struct {
	ChainID uint64
	Address types.Address
	Nonce   uint64
}

// ProcessAuthorizations applies the authorization list of a SetCode (type
// 0x04) transaction: for each entry it verifies the chain ID, recovers the
// signer from the authorization hash, checks the signer's nonce, and writes
// a delegation designator (0xef0100 || Address) to the signer's code.
//
// Per EIP-7702, an individual authorization that fails validation is simply
// skipped — it does not fail the surrounding transaction.
func ProcessAuthorizations(statedb vm.StateDB, authorizations []types.Authorization, chainID *big.Int) {
	for i := range authorizations {
		applyAuthorization(statedb, &authorizations[i], chainID)
	}
}

func applyAuthorization(statedb vm.StateDB, auth *types.Authorization, chainID *big.Int) error {
	if auth.ChainID != 0 {
		if chainID == nil || auth.ChainID != chainID.Uint64() {
			return ErrAuthChainID
		}
	}

	if auth.V > 1 {
		return ErrAuthInvalidSig
	}
	if !crypto.ValidateSignatureValues(auth.V, auth.R[:], auth.S[:], true) {
		return ErrAuthInvalidSig
	}

	authHash := authorizationSigningHash(auth)
	sig := make([]byte, 65)
	copy(sig[:32], auth.R[:])
	copy(sig[32:64], auth.S[:])
	sig[64] = auth.V

	pubkey, err := crypto.Ecrecover(authHash, sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthSignature, err)
	}
	signer := crypto.PubkeyToAddress(pubkey)

	currentNonce := statedb.GetNonce(signer)
	if auth.Nonce != currentNonce {
		return ErrAuthNonce
	}

	// The authority is always added to the warm access list, even if the
	// authorization is otherwise a no-op re-delegation.
	statedb.AddAddressToAccessList(signer)

	// Per EIP-7702: an authorization targeting an account that already
	// exists (is not empty) is refunded the difference between the
	// intrinsic-gas surcharge for a fresh account and the base per-tuple
	// cost, since the surcharge was charged assuming the worst case.
	if !statedb.Empty(signer) {
		statedb.AddRefund(PerEmptyAccountCost - PerAuthBaseCost)
	}

	var code [types.DelegationDesignatorLength]byte
	copy(code[:3], types.DelegationPrefix[:])
	copy(code[3:], auth.Address[:])
	statedb.SetCode(signer, code[:])
	statedb.SetNonce(signer, currentNonce+1)
	return nil
}

// authorizationSigningHash computes keccak256(0x05 || rlp([chainID, address, nonce])).
func authorizationSigningHash(auth *types.Authorization) []byte {
	d := sha3.NewLegacyKeccak256()
	d.Write([]byte{authMagic})
	rlp.Encode(d, &authRLP{ChainID: auth.ChainID, Address: auth.Address, Nonce: auth.Nonce})
	return d.Sum(nil)
}
