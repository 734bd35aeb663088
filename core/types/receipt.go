package types

import "math/big"

// Receipt status values.
const (
	ReceiptStatusFailed     = uint64(0)
	ReceiptStatusSuccessful = uint64(1)
)

// Receipt represents the result of applying a transaction.
type Receipt struct {
	// Consensus fields
	Type              uint8
	Status            uint64
	CumulativeGasUsed uint64
	Bloom             Bloom
	Logs              []*Log

	// Derived fields, filled in by the processor after execution.
	TxHash          Hash
	ContractAddress Address
	GasUsed         uint64

	// EIP-4844 blob transaction fields
	BlobGasUsed  uint64
	BlobGasPrice *big.Int

	// Inclusion information
	BlockHash        Hash
	BlockNumber      *big.Int
	TransactionIndex uint
}

// NewReceipt creates a new receipt with the given status and cumulative gas.
func NewReceipt(status uint64, cumulativeGasUsed uint64) *Receipt {
	return &Receipt{
		Status:            status,
		CumulativeGasUsed: cumulativeGasUsed,
	}
}

// Succeeded reports whether the receipt indicates a successful transaction
// (post-Byzantium status field equals 1).
func (r *Receipt) Succeeded() bool {
	return r.Status == ReceiptStatusSuccessful
}

// DeriveFields populates the bloom filter and block-context fields on a
// receipt after execution.
func (r *Receipt) DeriveFields(blockHash Hash, blockNumber uint64, txIndex uint, txHash Hash) {
	r.BlockHash = blockHash
	r.BlockNumber = new(big.Int).SetUint64(blockNumber)
	r.TransactionIndex = txIndex
	r.TxHash = txHash

	var bloom Bloom
	for _, log := range r.Logs {
		b := LogBloom(log)
		for i := range bloom {
			bloom[i] |= b[i]
		}
	}
	r.Bloom = bloom
}
