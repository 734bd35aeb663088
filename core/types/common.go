// Package types defines the core data types shared by the gas, interpreter,
// journal, and call-executor layers: fixed-size hashes and addresses, account
// summaries, and log records.
package types

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// keccak256 is a package-local Keccak-256 helper so the bloom filter can
// hash log fields without importing the crypto package (which itself
// imports types, and would otherwise create an import cycle).
func keccak256(data []byte) []byte {
	d := sha3.NewLegacyKeccak256()
	d.Write(data)
	return d.Sum(nil)
}

const (
	HashLength    = 32
	AddressLength = 20
	BloomLength   = 256
)

// Hash is a 256-bit word: a Keccak256 digest, a storage key, or a storage
// value. Stack words use uint256.Int directly; Hash is the fixed-array form
// used for storage keys/values and log topics.
type Hash [HashLength]byte

// Address is the low 160 bits of a Word.
type Address [AddressLength]byte

// Bloom is a 2048-bit log bloom filter.
type Bloom [BloomLength]byte

// BytesToHash converts bytes to Hash, left-padding if shorter than 32 bytes
// and keeping only the low 32 bytes if longer.
func BytesToHash(b []byte) Hash {
	var h Hash
	h.SetBytes(b)
	return h
}

// HexToHash converts a hex string to Hash.
func HexToHash(s string) Hash {
	return BytesToHash(fromHex(s))
}

func (h Hash) Bytes() []byte  { return h[:] }
func (h Hash) Hex() string    { return fmt.Sprintf("0x%x", h[:]) }
func (h Hash) String() string { return h.Hex() }
func (h Hash) IsZero() bool   { return h == Hash{} }

// SetBytes sets the hash from a byte slice, left-padding if necessary.
func (h *Hash) SetBytes(b []byte) {
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
}

// BytesToAddress converts bytes to Address, left-padding if shorter than 20
// bytes and keeping only the low 20 bytes if longer.
func BytesToAddress(b []byte) Address {
	var a Address
	a.SetBytes(b)
	return a
}

// HexToAddress converts a hex string to Address.
func HexToAddress(s string) Address {
	return BytesToAddress(fromHex(s))
}

func (a Address) Bytes() []byte  { return a[:] }
func (a Address) Hex() string    { return fmt.Sprintf("0x%x", a[:]) }
func (a Address) String() string { return a.Hex() }
func (a Address) IsZero() bool   { return a == Address{} }

// Hash returns the Word-form of an address (low 20 bytes, zero-extended).
func (a Address) Hash() Hash {
	var h Hash
	copy(h[HashLength-AddressLength:], a[:])
	return h
}

// SetBytes sets the address from a byte slice, keeping the low 20 bytes.
func (a *Address) SetBytes(b []byte) {
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
}

// Account is a summary of account state as seen by the backend interface;
// the engine never mutates it directly, it only reads through the StateDB
// port and writes through the journal.
type Account struct {
	Nonce    uint64
	Balance  Hash // big-endian 256-bit balance; zero-extended like a Word
	Root     Hash
	CodeHash Hash
}

var (
	// EmptyRootHash is the root hash of an empty Merkle-Patricia trie.
	EmptyRootHash = HexToHash("56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")

	// EmptyCodeHash is keccak256(""), the code hash of an externally owned
	// account.
	EmptyCodeHash = HexToHash("c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")
)

// Log is a single contract log event: the emitting address, 0-4 indexed
// topics, and opaque data. Block/receipt-level fields (block number, tx hash,
// log index) belong to the host's receipt assembly, not to the execution
// core, and are intentionally absent here.
type Log struct {
	Address Address
	Topics  []Hash
	Data    []byte
}

// BloomAdd sets the bits in bloom corresponding to data's Keccak256 hash,
// using the standard 3-bits-per-item Ethereum log bloom construction.
func BloomAdd(bloom *Bloom, data []byte) {
	h := keccak256(data)
	for i := 0; i < 6; i += 2 {
		bit := (uint(h[i+1]) + (uint(h[i]) << 8)) & 2047
		byteIdx := BloomLength - 1 - bit/8
		bloom[byteIdx] |= 1 << (bit % 8)
	}
}

// BloomContains reports whether bloom could contain data (false positives
// are possible by design; false negatives are not).
func BloomContains(bloom Bloom, data []byte) bool {
	h := keccak256(data)
	for i := 0; i < 6; i += 2 {
		bit := (uint(h[i+1]) + (uint(h[i]) << 8)) & 2047
		byteIdx := BloomLength - 1 - bit/8
		if bloom[byteIdx]&(1<<(bit%8)) == 0 {
			return false
		}
	}
	return true
}

// LogBloom computes the bloom filter contribution of a single log.
func LogBloom(l *Log) Bloom {
	var bloom Bloom
	BloomAdd(&bloom, l.Address.Bytes())
	for _, topic := range l.Topics {
		BloomAdd(&bloom, topic.Bytes())
	}
	return bloom
}

// fromHex decodes a hex string, stripping an optional "0x" prefix and
// left-padding with a zero nibble if the string has odd length.
func fromHex(s string) []byte {
	if has0xPrefix(s) {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, _ := hex.DecodeString(s)
	return b
}

func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}
