package types

// AccessTuple is one entry of an EIP-2930 access list: an address and the
// storage slots within it to pre-warm.
type AccessTuple struct {
	Address     Address
	StorageKeys []Hash
}

// AccessList is an EIP-2930 transaction access list.
type AccessList []AccessTuple

// StorageKeys returns the total number of storage keys across all tuples,
// used for EIP-2930/EIP-7623 intrinsic gas accounting.
func (al AccessList) StorageKeys() int {
	n := 0
	for _, tuple := range al {
		n += len(tuple.StorageKeys)
	}
	return n
}

// Addresses returns the number of address entries (tuples); an address that
// appears in several tuples is counted once per tuple.
func (al AccessList) Addresses() int {
	return len(al)
}

// Authorization is a single EIP-7702 authorization tuple: a signed statement
// by an EOA that its code should delegate to Address, subject to ChainID and
// Nonce matching at application time.
type Authorization struct {
	ChainID uint64
	Address Address
	Nonce   uint64
	V       uint8
	R       Hash
	S       Hash
}

// AuthorizationList is an EIP-7702 transaction authorization list.
type AuthorizationList []Authorization

// DelegationPrefix is the 3-byte marker EIP-7702 writes as the first bytes
// of a delegated EOA's code, followed by the 20-byte delegate address.
var DelegationPrefix = [3]byte{0xef, 0x01, 0x00}

// DelegationDesignatorLength is the total length of a delegation designator:
// the 3-byte prefix plus the 20-byte delegate address.
const DelegationDesignatorLength = 3 + AddressLength

// ParseDelegation reports whether code is an EIP-7702 delegation designator
// and, if so, returns the delegate address.
func ParseDelegation(code []byte) (Address, bool) {
	if len(code) != DelegationDesignatorLength {
		return Address{}, false
	}
	if code[0] != DelegationPrefix[0] || code[1] != DelegationPrefix[1] || code[2] != DelegationPrefix[2] {
		return Address{}, false
	}
	return BytesToAddress(code[3:]), true
}

// HasDelegationPrefix reports whether code starts with the EIP-7702
// delegation marker, regardless of overall length (used for the EIP-3607
// "sender must be an EOA" exception).
func HasDelegationPrefix(code []byte) bool {
	return len(code) >= 3 && code[0] == DelegationPrefix[0] && code[1] == DelegationPrefix[1] && code[2] == DelegationPrefix[2]
}
