package types

import (
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/crypto/sha3"
)

// BlockNonce is the 64-bit proof-of-work nonce field of a header. It is
// carried for compatibility with pre-Merge block headers; post-Merge blocks
// leave it zeroed.
type BlockNonce [8]byte

// Header represents an Ethereum block header. It carries exactly the fields
// the execution core needs to build a BlockContext/TxContext and to resolve
// fork activation (Number, Time) -- full consensus fields like the state
// trie root are passed through opaquely since this module never builds a
// trie itself.
type Header struct {
	ParentHash  Hash
	UncleHash   Hash
	Coinbase    Address
	Root        Hash
	TxHash      Hash
	ReceiptHash Hash
	Bloom       Bloom
	Difficulty  *big.Int
	Number      *big.Int
	GasLimit    uint64
	GasUsed     uint64
	Time        uint64
	Extra       []byte
	MixDigest   Hash
	Nonce       BlockNonce

	// EIP-1559
	BaseFee *big.Int

	// EIP-4895: beacon chain withdrawals root
	WithdrawalsHash *Hash

	// EIP-4844: blob gas accounting
	BlobGasUsed   *uint64
	ExcessBlobGas *uint64

	// EIP-4788: beacon block root pushed into the EVM
	ParentBeaconRoot *Hash

	// EIP-7685: general purpose execution-layer requests root
	RequestsHash *Hash

	hash atomic.Pointer[Hash]
}

// Hash returns the Keccak-256 hash of the RLP-encoded header, caching the
// result on first call.
func (h *Header) Hash() Hash {
	if cached := h.hash.Load(); cached != nil {
		return *cached
	}
	d := sha3.NewLegacyKeccak256()
	rlp.Encode(d, h)
	var hash Hash
	d.Sum(hash[:0])
	h.hash.Store(&hash)
	return hash
}

// PrevRandao returns the MixDigest field under its post-Merge name
// (EIP-4399 repurposes the PoW mix digest as the beacon chain's RANDAO
// output).
func (h *Header) PrevRandao() Hash { return h.MixDigest }
