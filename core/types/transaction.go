package types

import (
	"math/big"
	"sync/atomic"
	"unsafe"

	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/crypto/sha3"
)

// Transaction type constants.
const (
	LegacyTxType     = 0x00
	AccessListTxType = 0x01
	DynamicFeeTxType = 0x02
	BlobTxType       = 0x03
	SetCodeTxType    = 0x04
)

// Transaction represents an Ethereum transaction. It wraps a typed inner
// payload (LegacyTx, AccessListTx, DynamicFeeTx, BlobTx, SetCodeTx) behind a
// single value so the EVM and processor can treat every tx type uniformly.
type Transaction struct {
	inner TxData
	hash  atomic.Pointer[Hash]
	size  atomic.Uint64
	from  atomic.Pointer[Address] // cached sender address, set after signature recovery
}

// TxData is the type-specific payload of a transaction.
type TxData interface {
	txType() byte
	accessList() AccessList
	data() []byte
	gas() uint64
	gasPrice() *big.Int
	gasTipCap() *big.Int
	gasFeeCap() *big.Int
	value() *big.Int
	nonce() uint64
	to() *Address
}

// LegacyTx represents a legacy (type 0x00) Ethereum transaction.
type LegacyTx struct {
	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64
	To       *Address
	Value    *big.Int
	Data     []byte
	V, R, S  *big.Int
}

func (tx *LegacyTx) txType() byte          { return LegacyTxType }
func (tx *LegacyTx) accessList() AccessList { return nil }
func (tx *LegacyTx) data() []byte          { return tx.Data }
func (tx *LegacyTx) gas() uint64           { return tx.Gas }
func (tx *LegacyTx) gasPrice() *big.Int    { return tx.GasPrice }
func (tx *LegacyTx) gasTipCap() *big.Int   { return tx.GasPrice }
func (tx *LegacyTx) gasFeeCap() *big.Int   { return tx.GasPrice }
func (tx *LegacyTx) value() *big.Int       { return tx.Value }
func (tx *LegacyTx) nonce() uint64         { return tx.Nonce }
func (tx *LegacyTx) to() *Address          { return tx.To }

// AccessListTx represents an EIP-2930 (type 0x01) transaction.
type AccessListTx struct {
	ChainID    *big.Int
	Nonce      uint64
	GasPrice   *big.Int
	Gas        uint64
	To         *Address
	Value      *big.Int
	Data       []byte
	AccessList AccessList
	V, R, S    *big.Int
}

func (tx *AccessListTx) txType() byte          { return AccessListTxType }
func (tx *AccessListTx) accessList() AccessList { return tx.AccessList }
func (tx *AccessListTx) data() []byte          { return tx.Data }
func (tx *AccessListTx) gas() uint64           { return tx.Gas }
func (tx *AccessListTx) gasPrice() *big.Int    { return tx.GasPrice }
func (tx *AccessListTx) gasTipCap() *big.Int   { return tx.GasPrice }
func (tx *AccessListTx) gasFeeCap() *big.Int   { return tx.GasPrice }
func (tx *AccessListTx) value() *big.Int       { return tx.Value }
func (tx *AccessListTx) nonce() uint64         { return tx.Nonce }
func (tx *AccessListTx) to() *Address          { return tx.To }

// DynamicFeeTx represents an EIP-1559 (type 0x02) transaction.
type DynamicFeeTx struct {
	ChainID    *big.Int
	Nonce      uint64
	GasTipCap  *big.Int // maxPriorityFeePerGas
	GasFeeCap  *big.Int // maxFeePerGas
	Gas        uint64
	To         *Address
	Value      *big.Int
	Data       []byte
	AccessList AccessList
	V, R, S    *big.Int
}

func (tx *DynamicFeeTx) txType() byte          { return DynamicFeeTxType }
func (tx *DynamicFeeTx) accessList() AccessList { return tx.AccessList }
func (tx *DynamicFeeTx) data() []byte          { return tx.Data }
func (tx *DynamicFeeTx) gas() uint64           { return tx.Gas }
func (tx *DynamicFeeTx) gasPrice() *big.Int    { return tx.GasFeeCap }
func (tx *DynamicFeeTx) gasTipCap() *big.Int   { return tx.GasTipCap }
func (tx *DynamicFeeTx) gasFeeCap() *big.Int   { return tx.GasFeeCap }
func (tx *DynamicFeeTx) value() *big.Int       { return tx.Value }
func (tx *DynamicFeeTx) nonce() uint64         { return tx.Nonce }
func (tx *DynamicFeeTx) to() *Address          { return tx.To }

// BlobTx represents an EIP-4844 (type 0x03) blob-carrying transaction.
type BlobTx struct {
	ChainID    *big.Int
	Nonce      uint64
	GasTipCap  *big.Int
	GasFeeCap  *big.Int
	Gas        uint64
	To         Address // blob txs cannot be contract creations
	Value      *big.Int
	Data       []byte
	AccessList AccessList
	BlobFeeCap *big.Int
	BlobHashes []Hash
	V, R, S    *big.Int
}

func (tx *BlobTx) txType() byte          { return BlobTxType }
func (tx *BlobTx) accessList() AccessList { return tx.AccessList }
func (tx *BlobTx) data() []byte          { return tx.Data }
func (tx *BlobTx) gas() uint64           { return tx.Gas }
func (tx *BlobTx) gasPrice() *big.Int    { return tx.GasFeeCap }
func (tx *BlobTx) gasTipCap() *big.Int   { return tx.GasTipCap }
func (tx *BlobTx) gasFeeCap() *big.Int   { return tx.GasFeeCap }
func (tx *BlobTx) value() *big.Int       { return tx.Value }
func (tx *BlobTx) nonce() uint64         { return tx.Nonce }
func (tx *BlobTx) to() *Address          { addr := tx.To; return &addr }

// SetCodeTx represents an EIP-7702 (type 0x04) set-code transaction.
type SetCodeTx struct {
	ChainID           *big.Int
	Nonce             uint64
	GasTipCap         *big.Int
	GasFeeCap         *big.Int
	Gas               uint64
	To                Address
	Value             *big.Int
	Data              []byte
	AccessList        AccessList
	AuthorizationList []Authorization
	V, R, S           *big.Int
}

func (tx *SetCodeTx) txType() byte          { return SetCodeTxType }
func (tx *SetCodeTx) accessList() AccessList { return tx.AccessList }
func (tx *SetCodeTx) data() []byte          { return tx.Data }
func (tx *SetCodeTx) gas() uint64           { return tx.Gas }
func (tx *SetCodeTx) gasPrice() *big.Int    { return tx.GasFeeCap }
func (tx *SetCodeTx) gasTipCap() *big.Int   { return tx.GasTipCap }
func (tx *SetCodeTx) gasFeeCap() *big.Int   { return tx.GasFeeCap }
func (tx *SetCodeTx) value() *big.Int       { return tx.Value }
func (tx *SetCodeTx) nonce() uint64         { return tx.Nonce }
func (tx *SetCodeTx) to() *Address          { addr := tx.To; return &addr }

// NewTx wraps a typed payload in a Transaction.
func NewTx(inner TxData) *Transaction {
	return &Transaction{inner: inner}
}

// Type returns the transaction type.
func (tx *Transaction) Type() uint8 { return tx.inner.txType() }

// AccessList returns the access list of the transaction (nil for legacy txs).
func (tx *Transaction) AccessList() AccessList { return tx.inner.accessList() }

// Data returns the input data of the transaction.
func (tx *Transaction) Data() []byte { return tx.inner.data() }

// Gas returns the gas limit of the transaction.
func (tx *Transaction) Gas() uint64 { return tx.inner.gas() }

// GasPrice returns the effective gas price field carried by the tx payload.
func (tx *Transaction) GasPrice() *big.Int { return tx.inner.gasPrice() }

// GasTipCap returns the gas tip cap (maxPriorityFeePerGas) of the transaction.
func (tx *Transaction) GasTipCap() *big.Int { return tx.inner.gasTipCap() }

// GasFeeCap returns the gas fee cap (maxFeePerGas) of the transaction.
func (tx *Transaction) GasFeeCap() *big.Int { return tx.inner.gasFeeCap() }

// Value returns the value transfer amount of the transaction.
func (tx *Transaction) Value() *big.Int { return tx.inner.value() }

// Nonce returns the nonce of the transaction.
func (tx *Transaction) Nonce() uint64 { return tx.inner.nonce() }

// To returns the recipient address, or nil for contract creation.
func (tx *Transaction) To() *Address { return tx.inner.to() }

// AuthorizationList returns the EIP-7702 authorization list, or nil for
// every transaction type other than SetCodeTx.
func (tx *Transaction) AuthorizationList() []Authorization {
	if setCode, ok := tx.inner.(*SetCodeTx); ok {
		return setCode.AuthorizationList
	}
	return nil
}

// BlobGasFeeCap returns the blob gas fee cap for EIP-4844 blob transactions.
func (tx *Transaction) BlobGasFeeCap() *big.Int {
	if blob, ok := tx.inner.(*BlobTx); ok {
		return blob.BlobFeeCap
	}
	return nil
}

// BlobHashes returns the versioned hashes for EIP-4844 blob transactions.
func (tx *Transaction) BlobHashes() []Hash {
	if blob, ok := tx.inner.(*BlobTx); ok {
		return blob.BlobHashes
	}
	return nil
}

// GasPerBlob is the fixed gas cost of a single blob, per EIP-4844.
const GasPerBlob = 131072

// BlobGas returns the total blob gas consumed by an EIP-4844 transaction:
// one blob hash costs GasPerBlob gas. Non-blob transactions return zero.
func (tx *Transaction) BlobGas() uint64 {
	return uint64(len(tx.BlobHashes())) * GasPerBlob
}

// SetSender caches the sender address on the transaction, typically after
// signature recovery has been performed by the caller.
func (tx *Transaction) SetSender(addr Address) {
	a := addr
	tx.from.Store(&a)
}

// Sender returns the cached sender address, or nil if SetSender was never
// called.
func (tx *Transaction) Sender() *Address {
	return tx.from.Load()
}

// Hash returns the Keccak-256 hash of the RLP-encoded transaction, caching
// the result on first call.
func (tx *Transaction) Hash() Hash {
	if h := tx.hash.Load(); h != nil {
		return *h
	}
	d := sha3.NewLegacyKeccak256()
	if tx.Type() != LegacyTxType {
		d.Write([]byte{tx.Type()})
	}
	rlp.Encode(d, tx.inner)
	var h Hash
	d.Sum(h[:0])
	tx.hash.Store(&h)
	return h
}

// Size returns the approximate memory footprint of the transaction.
func (tx *Transaction) Size() uint64 {
	if cached := tx.size.Load(); cached != 0 {
		return cached
	}
	size := uint64(unsafe.Sizeof(*tx)) + uint64(len(tx.Data()))
	tx.size.Store(size)
	return size
}
