package vm

// state_db.go provides MemoryStateDB, a reference in-memory implementation
// of the StateDB interface. It backs every account, storage slot, and piece
// of transient state in plain Go maps and journals every mutation so a
// CALL/CREATE frame can be unwound with Snapshot/RevertToSnapshot.

import (
	"github.com/holiman/uint256"
	"github.com/wyf-labs/evmcore/core/types"
	"github.com/wyf-labs/evmcore/crypto"
)

// stateObject is the in-memory account record backing one address.
type stateObject struct {
	nonce          uint64
	balance        *uint256.Int
	code           []byte
	codeHash       types.Hash
	selfDestructed bool

	dirtyStorage     map[types.Hash]types.Hash
	committedStorage map[types.Hash]types.Hash
}

func newStateObject() *stateObject {
	return &stateObject{
		balance:          new(uint256.Int),
		dirtyStorage:     make(map[types.Hash]types.Hash),
		committedStorage: make(map[types.Hash]types.Hash),
	}
}

// MemoryStateDB is an in-memory implementation of StateDB suitable for
// single-process execution, testing, and transaction simulation.
type MemoryStateDB struct {
	stateObjects map[types.Address]*stateObject
	journal      *journal
	logs         map[types.Hash][]*types.Log
	refund       uint64
	accessList   *AccessListTracker

	transientStorage map[types.Address]map[types.Hash]types.Hash
	createdThisTx    map[types.Address]bool

	txHash  types.Hash
	txIndex int
}

// NewMemoryStateDB creates an empty in-memory state database.
func NewMemoryStateDB() *MemoryStateDB {
	return &MemoryStateDB{
		stateObjects:     make(map[types.Address]*stateObject),
		journal:          newJournal(),
		logs:             make(map[types.Hash][]*types.Log),
		accessList:       NewAccessListTracker(),
		transientStorage: make(map[types.Address]map[types.Hash]types.Hash),
		createdThisTx:    make(map[types.Address]bool),
	}
}

// AccessListTracker exposes the backing warm/cold tracker so a caller can
// drive EIP-2930 pre-warming through the gas_eip2929.go calculator while
// still sharing this StateDB's view of what is warm.
func (s *MemoryStateDB) AccessListTracker() *AccessListTracker {
	return s.accessList
}

func (s *MemoryStateDB) getStateObject(addr types.Address) *stateObject {
	return s.stateObjects[addr]
}

func (s *MemoryStateDB) getOrNewStateObject(addr types.Address) *stateObject {
	if obj := s.stateObjects[addr]; obj != nil {
		return obj
	}
	obj := newStateObject()
	s.stateObjects[addr] = obj
	return obj
}

// --- Account operations ---

func (s *MemoryStateDB) CreateAccount(addr types.Address) {
	prev := s.stateObjects[addr]
	s.journal.append(createAccountChange{addr: addr, prev: prev})
	s.stateObjects[addr] = newStateObject()
}

func (s *MemoryStateDB) GetBalance(addr types.Address) *uint256.Int {
	if obj := s.getStateObject(addr); obj != nil {
		return new(uint256.Int).Set(obj.balance)
	}
	return new(uint256.Int)
}

func (s *MemoryStateDB) AddBalance(addr types.Address, amount *uint256.Int) {
	obj := s.getOrNewStateObject(addr)
	s.journal.append(balanceChange{addr: addr, prev: new(uint256.Int).Set(obj.balance)})
	obj.balance = new(uint256.Int).Add(obj.balance, amount)
}

func (s *MemoryStateDB) SubBalance(addr types.Address, amount *uint256.Int) {
	obj := s.getOrNewStateObject(addr)
	s.journal.append(balanceChange{addr: addr, prev: new(uint256.Int).Set(obj.balance)})
	obj.balance = new(uint256.Int).Sub(obj.balance, amount)
}

func (s *MemoryStateDB) GetNonce(addr types.Address) uint64 {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.nonce
	}
	return 0
}

func (s *MemoryStateDB) SetNonce(addr types.Address, nonce uint64) {
	obj := s.getOrNewStateObject(addr)
	s.journal.append(nonceChange{addr: addr, prev: obj.nonce})
	obj.nonce = nonce
}

func (s *MemoryStateDB) GetCode(addr types.Address) []byte {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.code
	}
	return nil
}

func (s *MemoryStateDB) SetCode(addr types.Address, code []byte) {
	obj := s.getOrNewStateObject(addr)
	s.journal.append(codeChange{addr: addr, prevCode: obj.code, prevHash: obj.codeHash})
	obj.code = code
	obj.codeHash = types.BytesToHash(crypto.Keccak256(code))
}

func (s *MemoryStateDB) GetCodeHash(addr types.Address) types.Hash {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.codeHash
	}
	return types.Hash{}
}

func (s *MemoryStateDB) GetCodeSize(addr types.Address) int {
	if obj := s.getStateObject(addr); obj != nil {
		return len(obj.code)
	}
	return 0
}

// --- Storage ---

func (s *MemoryStateDB) GetState(addr types.Address, key types.Hash) types.Hash {
	obj := s.getStateObject(addr)
	if obj == nil {
		return types.Hash{}
	}
	if val, ok := obj.dirtyStorage[key]; ok {
		return val
	}
	return obj.committedStorage[key]
}

func (s *MemoryStateDB) SetState(addr types.Address, key types.Hash, value types.Hash) {
	obj := s.getOrNewStateObject(addr)
	prevDirty, prevExists := obj.dirtyStorage[key]
	prev := prevDirty
	if !prevExists {
		prev = obj.committedStorage[key]
	}
	s.journal.append(storageChange{addr: addr, key: key, prev: prev, prevExists: prevExists})
	obj.dirtyStorage[key] = value
}

func (s *MemoryStateDB) GetCommittedState(addr types.Address, key types.Hash) types.Hash {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.committedStorage[key]
	}
	return types.Hash{}
}

// --- Transient storage (EIP-1153) ---

func (s *MemoryStateDB) GetTransientState(addr types.Address, key types.Hash) types.Hash {
	if slots, ok := s.transientStorage[addr]; ok {
		return slots[key]
	}
	return types.Hash{}
}

func (s *MemoryStateDB) SetTransientState(addr types.Address, key types.Hash, value types.Hash) {
	prev := s.GetTransientState(addr, key)
	s.journal.append(transientStorageChange{addr: addr, key: key, prev: prev})
	if _, ok := s.transientStorage[addr]; !ok {
		s.transientStorage[addr] = make(map[types.Hash]types.Hash)
	}
	s.transientStorage[addr][key] = value
}

// ClearTransientStorage discards all transient storage. Called once at the
// end of each transaction, per EIP-1153; it is not itself journaled since a
// transaction boundary is never reverted.
func (s *MemoryStateDB) ClearTransientStorage() {
	s.transientStorage = make(map[types.Address]map[types.Hash]types.Hash)
}

// --- Self-destruct ---

func (s *MemoryStateDB) SelfDestruct(addr types.Address) {
	obj := s.getStateObject(addr)
	if obj == nil {
		return
	}
	s.journal.append(selfDestructChange{
		addr:           addr,
		prevDestructed: obj.selfDestructed,
		prevBalance:    new(uint256.Int).Set(obj.balance),
	})
	obj.selfDestructed = true
	obj.balance = new(uint256.Int)
}

func (s *MemoryStateDB) HasSelfDestructed(addr types.Address) bool {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.selfDestructed
	}
	return false
}

// --- Existence ---

func (s *MemoryStateDB) Exist(addr types.Address) bool {
	return s.stateObjects[addr] != nil
}

func (s *MemoryStateDB) Empty(addr types.Address) bool {
	obj := s.getStateObject(addr)
	if obj == nil {
		return true
	}
	return obj.nonce == 0 && obj.balance.IsZero() && (obj.codeHash == types.Hash{} || obj.codeHash == types.EmptyCodeHash)
}

// --- Snapshot / revert ---
//
// The journal and the access-list tracker hand out IDs from independent
// zero-based counters. Since every Snapshot/RevertToSnapshot call drives
// both in lockstep, the two counters never drift apart, so a single int can
// index both.

func (s *MemoryStateDB) Snapshot() int {
	id := s.journal.snapshot()
	s.accessList.Snapshot()
	return id
}

func (s *MemoryStateDB) RevertToSnapshot(id int) {
	s.journal.revertToSnapshot(id, s)
	s.accessList.RevertToSnapshot(id)
}

// --- Logs ---

func (s *MemoryStateDB) AddLog(log *types.Log) {
	s.journal.append(logChange{txHash: s.txHash, prevLen: len(s.logs[s.txHash])})
	s.logs[s.txHash] = append(s.logs[s.txHash], log)
}

// GetLogs returns the logs emitted by the transaction with the given hash.
func (s *MemoryStateDB) GetLogs(txHash types.Hash) []*types.Log {
	return s.logs[txHash]
}

// SetTxContext records which transaction subsequent AddLog calls belong to.
// It also resets the created-this-tx set (EIP-6780), which is scoped to a
// single transaction and is never reverted across a transaction boundary.
func (s *MemoryStateDB) SetTxContext(txHash types.Hash, txIndex int) {
	s.txHash = txHash
	s.txIndex = txIndex
	s.createdThisTx = make(map[types.Address]bool)
}

// --- Refund counter (EIP-3529) ---

func (s *MemoryStateDB) AddRefund(gas uint64) {
	s.journal.append(refundChange{prev: s.refund})
	s.refund += gas
}

func (s *MemoryStateDB) SubRefund(gas uint64) {
	s.journal.append(refundChange{prev: s.refund})
	if gas > s.refund {
		panic("vm: refund counter below zero")
	}
	s.refund -= gas
}

func (s *MemoryStateDB) GetRefund() uint64 {
	return s.refund
}

// --- Access list (EIP-2929) ---

// AddAddressToAccessList and AddSlotToAccessList delegate straight to the
// tracker, which journals the change on its own internal stack; reverting
// it is handled by RevertToSnapshot calling accessList.RevertToSnapshot in
// lockstep with the state journal, not by a journalEntry here.

func (s *MemoryStateDB) AddAddressToAccessList(addr types.Address) {
	s.accessList.TouchAddress(addr)
}

func (s *MemoryStateDB) AddSlotToAccessList(addr types.Address, slot types.Hash) {
	s.accessList.TouchSlot(addr, slot)
}

func (s *MemoryStateDB) AddressInAccessList(addr types.Address) bool {
	return s.accessList.ContainsAddress(addr)
}

func (s *MemoryStateDB) SlotInAccessList(addr types.Address, slot types.Hash) (addressOk bool, slotOk bool) {
	return s.accessList.ContainsSlot(addr, slot)
}

// --- Created-this-transaction tracking (EIP-6780) ---

func (s *MemoryStateDB) AddAddressToCreatedList(addr types.Address) {
	if s.createdThisTx[addr] {
		return
	}
	s.journal.append(createdChange{addr: addr})
	s.createdThisTx[addr] = true
}

func (s *MemoryStateDB) CreatedThisTx(addr types.Address) bool {
	return s.createdThisTx[addr]
}

var _ StateDB = (*MemoryStateDB)(nil)
