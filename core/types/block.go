package types

import (
	"math/big"
	"sync/atomic"
)

// Withdrawal represents a validator withdrawal from the beacon chain
// (EIP-4895).
type Withdrawal struct {
	Index          uint64
	ValidatorIndex uint64
	Address        Address
	Amount         uint64 // in Gwei
}

// Body contains the transactions and auxiliary data of a block.
type Body struct {
	Transactions []*Transaction
	Withdrawals  []*Withdrawal
}

// Block represents an Ethereum block: a header plus its transaction list.
// This module only ever reads header/tx fields to drive transaction
// processing, so Block is intentionally a thin, immutable wrapper.
type Block struct {
	header *Header
	body   Body

	hash atomic.Pointer[Hash]
}

// NewBlock creates a new block with the given header and body. A nil body
// is treated as an empty body.
func NewBlock(header *Header, body *Body) *Block {
	b := &Block{header: header}
	if body != nil {
		b.body = *body
	}
	return b
}

// Header returns the block header.
func (b *Block) Header() *Header { return b.header }

// Transactions returns the block's transactions.
func (b *Block) Transactions() []*Transaction { return b.body.Transactions }

// Withdrawals returns the block's withdrawals (nil if pre-Shanghai).
func (b *Block) Withdrawals() []*Withdrawal { return b.body.Withdrawals }

// Number returns the block number.
func (b *Block) Number() *big.Int {
	if b.header.Number == nil {
		return new(big.Int)
	}
	return b.header.Number
}

// NumberU64 returns the block number as uint64.
func (b *Block) NumberU64() uint64 {
	if b.header.Number == nil {
		return 0
	}
	return b.header.Number.Uint64()
}

// GasLimit returns the gas limit of the block.
func (b *Block) GasLimit() uint64 { return b.header.GasLimit }

// Time returns the block timestamp.
func (b *Block) Time() uint64 { return b.header.Time }

// BaseFee returns the base fee of the block (nil if pre-London).
func (b *Block) BaseFee() *big.Int { return b.header.BaseFee }

// Coinbase returns the block coinbase/miner address.
func (b *Block) Coinbase() Address { return b.header.Coinbase }

// Hash returns the keccak256 hash of the block header, caching the result.
func (b *Block) Hash() Hash {
	if cached := b.hash.Load(); cached != nil {
		return *cached
	}
	h := b.header.Hash()
	b.hash.Store(&h)
	return h
}
