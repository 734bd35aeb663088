package vm

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/wyf-labs/evmcore/core/types"
)

func testStateAddr(b byte) types.Address {
	var a types.Address
	a[19] = b
	return a
}

func testStateHash(b byte) types.Hash {
	var h types.Hash
	h[31] = b
	return h
}

func TestMemoryStateDBBalance(t *testing.T) {
	db := NewMemoryStateDB()
	addr := testStateAddr(1)

	if bal := db.GetBalance(addr); bal.Sign() != 0 {
		t.Fatalf("expected zero balance for non-existent account, got %s", bal)
	}

	db.AddBalance(addr, uint256.NewInt(100))
	if bal := db.GetBalance(addr); bal.Cmp(uint256.NewInt(100)) != 0 {
		t.Fatalf("expected balance 100, got %s", bal)
	}

	db.AddBalance(addr, uint256.NewInt(50))
	if bal := db.GetBalance(addr); bal.Cmp(uint256.NewInt(150)) != 0 {
		t.Fatalf("expected balance 150, got %s", bal)
	}

	db.SubBalance(addr, uint256.NewInt(30))
	if bal := db.GetBalance(addr); bal.Cmp(uint256.NewInt(120)) != 0 {
		t.Fatalf("expected balance 120, got %s", bal)
	}
}

func TestMemoryStateDBBalanceReturnsCopy(t *testing.T) {
	db := NewMemoryStateDB()
	addr := testStateAddr(1)
	db.AddBalance(addr, uint256.NewInt(100))

	bal := db.GetBalance(addr)
	bal.SetUint64(999)
	if db.GetBalance(addr).Cmp(uint256.NewInt(100)) != 0 {
		t.Fatal("GetBalance returned a reference instead of a copy")
	}
}

func TestMemoryStateDBNonce(t *testing.T) {
	db := NewMemoryStateDB()
	addr := testStateAddr(2)

	if n := db.GetNonce(addr); n != 0 {
		t.Fatalf("expected nonce 0 for non-existent account, got %d", n)
	}

	db.SetNonce(addr, 5)
	if n := db.GetNonce(addr); n != 5 {
		t.Fatalf("expected nonce 5, got %d", n)
	}
}

func TestMemoryStateDBCode(t *testing.T) {
	db := NewMemoryStateDB()
	addr := testStateAddr(3)

	if code := db.GetCode(addr); code != nil {
		t.Fatal("expected nil code for non-existent account")
	}
	if size := db.GetCodeSize(addr); size != 0 {
		t.Fatalf("expected code size 0, got %d", size)
	}

	code := []byte{0x60, 0x00, 0x60, 0x00, 0xf3}
	db.SetCode(addr, code)
	if got := db.GetCode(addr); string(got) != string(code) {
		t.Fatalf("expected code %x, got %x", code, got)
	}
	if size := db.GetCodeSize(addr); size != len(code) {
		t.Fatalf("expected code size %d, got %d", len(code), size)
	}
	if hash := db.GetCodeHash(addr); hash == (types.Hash{}) {
		t.Fatal("expected a non-zero code hash once code is set")
	}
}

func TestMemoryStateDBCreateAccountResets(t *testing.T) {
	db := NewMemoryStateDB()
	addr := testStateAddr(4)

	db.AddBalance(addr, uint256.NewInt(500))
	db.SetNonce(addr, 10)

	db.CreateAccount(addr)

	if bal := db.GetBalance(addr); bal.Sign() != 0 {
		t.Fatalf("expected zero balance after CreateAccount, got %s", bal)
	}
	if n := db.GetNonce(addr); n != 0 {
		t.Fatalf("expected nonce 0 after CreateAccount, got %d", n)
	}
}

func TestMemoryStateDBExistAndEmpty(t *testing.T) {
	db := NewMemoryStateDB()
	addr := testStateAddr(5)

	if db.Exist(addr) {
		t.Fatal("account should not exist yet")
	}
	if !db.Empty(addr) {
		t.Fatal("non-existent account should be empty")
	}

	db.CreateAccount(addr)
	if !db.Exist(addr) {
		t.Fatal("account should exist after creation")
	}
	if !db.Empty(addr) {
		t.Fatal("fresh account should be empty")
	}

	db.AddBalance(addr, uint256.NewInt(1))
	if db.Empty(addr) {
		t.Fatal("account with balance should not be empty")
	}
}

func TestMemoryStateDBStorage(t *testing.T) {
	db := NewMemoryStateDB()
	addr := testStateAddr(8)
	key := testStateHash(1)
	val := testStateHash(0xAB)

	if db.GetState(addr, key) != (types.Hash{}) {
		t.Fatal("expected zero for non-existent storage")
	}

	db.SetState(addr, key, val)
	if db.GetState(addr, key) != val {
		t.Fatalf("expected state %v, got %v", val, db.GetState(addr, key))
	}
}

func TestMemoryStateDBSelfDestruct(t *testing.T) {
	db := NewMemoryStateDB()
	addr := testStateAddr(11)
	db.AddBalance(addr, uint256.NewInt(1000))

	if db.HasSelfDestructed(addr) {
		t.Fatal("should not be self-destructed before calling SelfDestruct")
	}

	db.SelfDestruct(addr)

	if !db.HasSelfDestructed(addr) {
		t.Fatal("should be self-destructed after calling SelfDestruct")
	}
	if db.GetBalance(addr).Sign() != 0 {
		t.Fatal("balance should be zero after SelfDestruct")
	}
}

func TestMemoryStateDBSelfDestructNonExistentIsNoop(t *testing.T) {
	db := NewMemoryStateDB()
	addr := testStateAddr(12)

	db.SelfDestruct(addr)
	if db.HasSelfDestructed(addr) {
		t.Fatal("non-existent account should not be self-destructed")
	}
}

func TestMemoryStateDBSnapshotRevertBalance(t *testing.T) {
	db := NewMemoryStateDB()
	addr := testStateAddr(13)

	db.AddBalance(addr, uint256.NewInt(100))
	snap := db.Snapshot()
	db.AddBalance(addr, uint256.NewInt(200))

	if db.GetBalance(addr).Cmp(uint256.NewInt(300)) != 0 {
		t.Fatal("balance should be 300 before revert")
	}

	db.RevertToSnapshot(snap)

	if db.GetBalance(addr).Cmp(uint256.NewInt(100)) != 0 {
		t.Fatalf("expected balance 100 after revert, got %s", db.GetBalance(addr))
	}
}

func TestMemoryStateDBSnapshotRevertStorage(t *testing.T) {
	db := NewMemoryStateDB()
	addr := testStateAddr(16)
	key := testStateHash(1)

	db.SetState(addr, key, testStateHash(0xAA))
	snap := db.Snapshot()
	db.SetState(addr, key, testStateHash(0xBB))
	db.RevertToSnapshot(snap)

	if db.GetState(addr, key) != testStateHash(0xAA) {
		t.Fatal("expected storage to revert to 0xAA")
	}
}

func TestMemoryStateDBSnapshotRevertCreateAccount(t *testing.T) {
	db := NewMemoryStateDB()
	addr := testStateAddr(17)

	snap := db.Snapshot()
	db.CreateAccount(addr)
	db.AddBalance(addr, uint256.NewInt(50))
	db.RevertToSnapshot(snap)

	if db.Exist(addr) {
		t.Fatal("account should not exist after reverting creation")
	}
}

func TestMemoryStateDBSnapshotRevertSelfDestruct(t *testing.T) {
	db := NewMemoryStateDB()
	addr := testStateAddr(18)
	db.AddBalance(addr, uint256.NewInt(500))

	snap := db.Snapshot()
	db.SelfDestruct(addr)
	db.RevertToSnapshot(snap)

	if db.HasSelfDestructed(addr) {
		t.Fatal("self-destruct should be reverted")
	}
	if db.GetBalance(addr).Cmp(uint256.NewInt(500)) != 0 {
		t.Fatal("balance should be restored after revert of self-destruct")
	}
}

func TestMemoryStateDBNestedSnapshots(t *testing.T) {
	db := NewMemoryStateDB()
	addr := testStateAddr(19)

	db.AddBalance(addr, uint256.NewInt(10))
	snap1 := db.Snapshot()

	db.AddBalance(addr, uint256.NewInt(20))
	snap2 := db.Snapshot()

	db.AddBalance(addr, uint256.NewInt(30))

	db.RevertToSnapshot(snap2)
	if db.GetBalance(addr).Cmp(uint256.NewInt(30)) != 0 {
		t.Fatalf("expected 30 after reverting to snap2, got %s", db.GetBalance(addr))
	}

	db.RevertToSnapshot(snap1)
	if db.GetBalance(addr).Cmp(uint256.NewInt(10)) != 0 {
		t.Fatalf("expected 10 after reverting to snap1, got %s", db.GetBalance(addr))
	}
}

func TestMemoryStateDBRefund(t *testing.T) {
	db := NewMemoryStateDB()

	if db.GetRefund() != 0 {
		t.Fatal("expected initial refund 0")
	}
	db.AddRefund(100)
	if db.GetRefund() != 100 {
		t.Fatalf("expected refund 100, got %d", db.GetRefund())
	}
	db.SubRefund(40)
	if db.GetRefund() != 60 {
		t.Fatalf("expected refund 60, got %d", db.GetRefund())
	}
}

func TestMemoryStateDBRefundRevert(t *testing.T) {
	db := NewMemoryStateDB()
	db.AddRefund(50)
	snap := db.Snapshot()
	db.AddRefund(100)
	db.RevertToSnapshot(snap)

	if db.GetRefund() != 50 {
		t.Fatalf("expected refund reverted to 50, got %d", db.GetRefund())
	}
}

func TestMemoryStateDBLogs(t *testing.T) {
	db := NewMemoryStateDB()
	txHash := testStateHash(1)
	db.SetTxContext(txHash, 0)

	db.AddLog(&types.Log{Address: testStateAddr(1)})
	db.AddLog(&types.Log{Address: testStateAddr(2)})

	logs := db.GetLogs(txHash)
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(logs))
	}
}

func TestMemoryStateDBAccessList(t *testing.T) {
	db := NewMemoryStateDB()
	addr := testStateAddr(20)
	slot := testStateHash(1)

	if db.AddressInAccessList(addr) {
		t.Fatal("address should not be warm initially")
	}
	db.AddAddressToAccessList(addr)
	if !db.AddressInAccessList(addr) {
		t.Fatal("address should be warm after AddAddressToAccessList")
	}

	addrOK, slotOK := db.SlotInAccessList(addr, slot)
	if !addrOK || slotOK {
		t.Fatalf("expected addrOK=true, slotOK=false before touching slot, got %v %v", addrOK, slotOK)
	}
	db.AddSlotToAccessList(addr, slot)
	addrOK, slotOK = db.SlotInAccessList(addr, slot)
	if !addrOK || !slotOK {
		t.Fatal("expected both address and slot warm after AddSlotToAccessList")
	}
}

func TestMemoryStateDBTransientStorage(t *testing.T) {
	db := NewMemoryStateDB()
	addr := testStateAddr(21)
	key := testStateHash(1)
	val := testStateHash(0x42)

	if db.GetTransientState(addr, key) != (types.Hash{}) {
		t.Fatal("expected zero transient state initially")
	}
	db.SetTransientState(addr, key, val)
	if db.GetTransientState(addr, key) != val {
		t.Fatal("expected transient state to be set")
	}

	db.ClearTransientStorage()
	if db.GetTransientState(addr, key) != (types.Hash{}) {
		t.Fatal("expected transient state cleared")
	}
}

func TestMemoryStateDBTransientStorageRevert(t *testing.T) {
	db := NewMemoryStateDB()
	addr := testStateAddr(22)
	key := testStateHash(1)

	db.SetTransientState(addr, key, testStateHash(0x01))
	snap := db.Snapshot()
	db.SetTransientState(addr, key, testStateHash(0x02))
	db.RevertToSnapshot(snap)

	if db.GetTransientState(addr, key) != testStateHash(0x01) {
		t.Fatal("expected transient state to revert to 0x01")
	}
}
