package vm

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/wyf-labs/evmcore/core/types"
	"github.com/wyf-labs/evmcore/crypto"
)

// setupTest returns a bare EVM/Contract/Memory/Stack fixture with no state
// database attached, for opcodes that don't touch storage or balances.
func setupTest() (*EVM, *Contract, *Memory, *Stack) {
	evm := NewEVM(BlockContext{}, TxContext{}, Config{})
	contract := NewContract(types.Address{}, types.Address{0x01}, new(uint256.Int), 1_000_000)
	mem := NewMemory()
	st := NewStack()
	return evm, contract, mem, st
}

// setupTestWithState is like setupTest but wires in a real in-memory state
// database, for opcodes that read or write account/storage state.
func setupTestWithState() (*EVM, *Contract, *Memory, *Stack) {
	statedb := NewMemoryStateDB()
	evm := NewEVMWithState(BlockContext{}, TxContext{}, Config{}, statedb)
	contract := NewContract(types.Address{}, types.Address{0x01}, new(uint256.Int), 1_000_000)
	mem := NewMemory()
	st := NewStack()
	return evm, contract, mem, st
}

func TestOpAdd(t *testing.T) {
	evm, contract, mem, st := setupTest()
	st.Push(uint256.NewInt(3))
	st.Push(uint256.NewInt(4))
	if _, err := opAdd(new(uint64), evm, contract, mem, st); err != nil {
		t.Fatalf("opAdd returned error: %v", err)
	}
	got := st.Pop()
	if got.Uint64() != 7 {
		t.Errorf("3 + 4 = %d, want 7", got.Uint64())
	}
}

func TestOpSub(t *testing.T) {
	evm, contract, mem, st := setupTest()
	st.Push(uint256.NewInt(3))
	st.Push(uint256.NewInt(10)) // top of stack is the minuend
	if _, err := opSub(new(uint64), evm, contract, mem, st); err != nil {
		t.Fatalf("opSub returned error: %v", err)
	}
	got := st.Pop()
	if got.Uint64() != 7 {
		t.Errorf("10 - 3 = %d, want 7", got.Uint64())
	}
}

func TestOpMstoreAndMload(t *testing.T) {
	evm, contract, mem, st := setupTest()
	mem.Resize(64)

	st.Push(uint256.NewInt(0xdeadbeef))
	st.Push(uint256.NewInt(0)) // offset
	if _, err := opMstore(new(uint64), evm, contract, mem, st); err != nil {
		t.Fatalf("opMstore returned error: %v", err)
	}

	st.Push(uint256.NewInt(0)) // offset
	if _, err := opMload(new(uint64), evm, contract, mem, st); err != nil {
		t.Fatalf("opMload returned error: %v", err)
	}
	got := st.Pop()
	if got.Uint64() != 0xdeadbeef {
		t.Errorf("MLOAD after MSTORE = %d, want %d", got.Uint64(), uint64(0xdeadbeef))
	}
}

func TestOpMcopy(t *testing.T) {
	evm, contract, mem, st := setupTest()
	mem.Resize(96)
	mem.Set(0, 32, []byte{1, 2, 3, 4})

	// stack: dest, src, size (opMcopy pops dest, src, size in that order).
	st.Push(uint256.NewInt(32)) // size
	st.Push(uint256.NewInt(0))  // src
	st.Push(uint256.NewInt(64)) // dest
	if _, err := opMcopy(new(uint64), evm, contract, mem, st); err != nil {
		t.Fatalf("opMcopy returned error: %v", err)
	}

	got := mem.Get(64, 4)
	want := []byte{1, 2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("MCOPY byte %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestOpSstoreAndSload(t *testing.T) {
	evm, contract, mem, st := setupTestWithState()

	key := types.BytesToHash([]byte{0x01})
	val := types.BytesToHash([]byte{0x2a})

	st.Push(new(uint256.Int).SetBytes(val[:]))
	st.Push(new(uint256.Int).SetBytes(key[:]))
	if _, err := opSstore(new(uint64), evm, contract, mem, st); err != nil {
		t.Fatalf("opSstore returned error: %v", err)
	}

	st.Push(new(uint256.Int).SetBytes(key[:]))
	if _, err := opSload(new(uint64), evm, contract, mem, st); err != nil {
		t.Fatalf("opSload returned error: %v", err)
	}
	got := st.Pop()
	want := new(uint256.Int).SetBytes(val[:])
	if !got.Eq(want) {
		t.Errorf("SLOAD after SSTORE = %s, want %s", got.Hex(), want.Hex())
	}
}

func TestOpSstoreReadOnlyReverts(t *testing.T) {
	evm, contract, mem, st := setupTestWithState()
	evm.readOnly = true

	st.Push(uint256.NewInt(1)) // value
	st.Push(uint256.NewInt(0)) // key
	_, err := opSstore(new(uint64), evm, contract, mem, st)
	if err != ErrWriteProtection {
		t.Errorf("opSstore in read-only mode: got err %v, want ErrWriteProtection", err)
	}
}

func TestOpTloadAndTstore(t *testing.T) {
	evm, contract, mem, st := setupTestWithState()

	key := types.BytesToHash([]byte{0x07})
	val := types.BytesToHash([]byte{0x99})

	st.Push(new(uint256.Int).SetBytes(val[:]))
	st.Push(new(uint256.Int).SetBytes(key[:]))
	if _, err := opTstore(new(uint64), evm, contract, mem, st); err != nil {
		t.Fatalf("opTstore returned error: %v", err)
	}

	st.Push(new(uint256.Int).SetBytes(key[:]))
	if _, err := opTload(new(uint64), evm, contract, mem, st); err != nil {
		t.Fatalf("opTload returned error: %v", err)
	}
	got := st.Pop()
	want := new(uint256.Int).SetBytes(val[:])
	if !got.Eq(want) {
		t.Errorf("TLOAD after TSTORE = %s, want %s", got.Hex(), want.Hex())
	}

	// Transient storage must not leak into persistent storage.
	sloadVal := evm.StateDB.GetState(contract.Address, key)
	if sloadVal != (types.Hash{}) {
		t.Errorf("TSTORE should not touch persistent storage, got %x", sloadVal)
	}
}

func TestOpBalance(t *testing.T) {
	evm, contract, mem, st := setupTestWithState()
	target := types.HexToAddress("0x1234567890123456789012345678901234567890")
	evm.StateDB.AddBalance(target, uint256.NewInt(500))

	st.Push(new(uint256.Int).SetBytes(target[:]))
	if _, err := opBalance(new(uint64), evm, contract, mem, st); err != nil {
		t.Fatalf("opBalance returned error: %v", err)
	}
	got := st.Pop()
	if got.Uint64() != 500 {
		t.Errorf("BALANCE = %d, want 500", got.Uint64())
	}
}

func TestOpSelfBalance(t *testing.T) {
	evm, contract, mem, st := setupTestWithState()
	evm.StateDB.AddBalance(contract.Address, uint256.NewInt(777))

	if _, err := opSelfBalance(new(uint64), evm, contract, mem, st); err != nil {
		t.Fatalf("opSelfBalance returned error: %v", err)
	}
	got := st.Pop()
	if got.Uint64() != 777 {
		t.Errorf("SELFBALANCE = %d, want 777", got.Uint64())
	}
}

func TestOpExtcodehash(t *testing.T) {
	evm, contract, mem, st := setupTestWithState()
	target := types.HexToAddress("0xabcdefabcdefabcdefabcdefabcdefabcdefabcd")
	code := []byte{0x60, 0x01, 0x60, 0x02, 0x01}
	evm.StateDB.SetCode(target, code)

	st.Push(new(uint256.Int).SetBytes(target[:]))
	if _, err := opExtcodehash(new(uint64), evm, contract, mem, st); err != nil {
		t.Fatalf("opExtcodehash returned error: %v", err)
	}
	got := st.Pop()
	want := new(uint256.Int).SetBytes(evm.StateDB.GetCodeHash(target).Bytes())
	if !got.Eq(want) {
		t.Errorf("EXTCODEHASH = %s, want %s", got.Hex(), want.Hex())
	}
}

func TestOpExtcodehashNonexistentAccount(t *testing.T) {
	evm, contract, mem, st := setupTestWithState()
	target := types.HexToAddress("0x0000000000000000000000000000000000dead")

	st.Push(new(uint256.Int).SetBytes(target[:]))
	if _, err := opExtcodehash(new(uint64), evm, contract, mem, st); err != nil {
		t.Fatalf("opExtcodehash returned error: %v", err)
	}
	got := st.Pop()
	if !got.IsZero() {
		t.Errorf("EXTCODEHASH of a nonexistent account = %s, want 0", got.Hex())
	}
}

func TestOpSelfdestructSendsBalanceAndSurvives(t *testing.T) {
	evm, contract, mem, st := setupTestWithState()
	evm.StateDB.AddBalance(contract.Address, uint256.NewInt(1_000))
	beneficiary := types.HexToAddress("0x9999999999999999999999999999999999999999")

	st.Push(new(uint256.Int).SetBytes(beneficiary[:]))
	if _, err := opSelfdestruct(new(uint64), evm, contract, mem, st); err != nil {
		t.Fatalf("opSelfdestruct returned error: %v", err)
	}

	if got := evm.StateDB.GetBalance(contract.Address).Uint64(); got != 0 {
		t.Errorf("contract balance after SELFDESTRUCT = %d, want 0", got)
	}
	if got := evm.StateDB.GetBalance(beneficiary).Uint64(); got != 1_000 {
		t.Errorf("beneficiary balance after SELFDESTRUCT = %d, want 1000", got)
	}
	// Post-EIP-6780: an account not created in this transaction only loses
	// its balance, it is never flagged for destruction.
	if evm.StateDB.HasSelfDestructed(contract.Address) {
		t.Error("opSelfdestruct should not destroy an account created in an earlier transaction")
	}
}

func TestOpSelfdestructDestroysAccountCreatedThisTx(t *testing.T) {
	evm, contract, mem, st := setupTestWithState()
	evm.StateDB.AddBalance(contract.Address, uint256.NewInt(1_000))
	evm.StateDB.AddAddressToCreatedList(contract.Address)
	beneficiary := types.HexToAddress("0x9999999999999999999999999999999999999999")

	st.Push(new(uint256.Int).SetBytes(beneficiary[:]))
	if _, err := opSelfdestruct(new(uint64), evm, contract, mem, st); err != nil {
		t.Fatalf("opSelfdestruct returned error: %v", err)
	}

	if got := evm.StateDB.GetBalance(beneficiary).Uint64(); got != 1_000 {
		t.Errorf("beneficiary balance after SELFDESTRUCT = %d, want 1000", got)
	}
	if !evm.StateDB.HasSelfDestructed(contract.Address) {
		t.Error("opSelfdestruct should destroy an account created in the same transaction")
	}
}

func TestOpSelfdestructReadOnlyReverts(t *testing.T) {
	evm, contract, mem, st := setupTestWithState()
	evm.readOnly = true

	st.Push(new(uint256.Int))
	_, err := opSelfdestruct(new(uint64), evm, contract, mem, st)
	if err != ErrWriteProtection {
		t.Errorf("opSelfdestruct in read-only mode: got err %v, want ErrWriteProtection", err)
	}
}

// TestOpCallForwardsGasUnderEIP150 deploys a callee that echoes its own
// remaining gas back to the caller, then checks that a CALL requesting far
// more gas than is available only ever forwards the EIP-150 63/64 share.
func TestOpCallForwardsGasUnderEIP150(t *testing.T) {
	evm, contract, mem, st := setupTestWithState()
	contract.Gas = 10_000
	mem.Resize(32)

	callee := types.Address{0x02}
	// GAS PUSH1 0x00 MSTORE PUSH1 0x20 PUSH1 0x00 RETURN
	evm.StateDB.SetCode(callee, []byte{
		byte(GAS), byte(PUSH1), 0x00, byte(MSTORE),
		byte(PUSH1), 0x20, byte(PUSH1), 0x00, byte(RETURN),
	})

	availableGas := contract.Gas
	requestedGas := uint64(1_000_000)
	wantCallGas := CallGas(availableGas, requestedGas)

	st.Push(uint256.NewInt(32))                       // retSize
	st.Push(new(uint256.Int))                         // retOffset
	st.Push(new(uint256.Int))                         // inSize
	st.Push(new(uint256.Int))                         // inOffset
	st.Push(new(uint256.Int))                         // value
	st.Push(new(uint256.Int).SetBytes(callee[:]))      // addr
	st.Push(new(uint256.Int).SetUint64(requestedGas)) // gas

	if _, err := opCall(new(uint64), evm, contract, mem, st); err != nil {
		t.Fatalf("opCall returned error: %v", err)
	}

	echoed := new(uint256.Int).SetBytes(mem.Get(0, 32)).Uint64()
	wantEchoed := wantCallGas - GasGas
	if echoed != wantEchoed {
		t.Errorf("callee observed gas = %d, want %d (forwarded %d under the 63/64 rule)", echoed, wantEchoed, wantCallGas)
	}
	if wantCallGas > availableGas-availableGas/CallGasFraction {
		t.Error("CallGas must retain at least 1/64 of the caller's gas")
	}
}

func TestOpCallAddsStipendForValueTransfer(t *testing.T) {
	evm, contract, mem, st := setupTestWithState()
	contract.Gas = 10_000
	evm.StateDB.AddBalance(contract.Address, uint256.NewInt(1))
	mem.Resize(32)

	callee := types.Address{0x03}
	evm.StateDB.SetCode(callee, []byte{
		byte(GAS), byte(PUSH1), 0x00, byte(MSTORE),
		byte(PUSH1), 0x20, byte(PUSH1), 0x00, byte(RETURN),
	})

	st.Push(uint256.NewInt(32))                   // retSize
	st.Push(new(uint256.Int))                     // retOffset
	st.Push(new(uint256.Int))                     // inSize
	st.Push(new(uint256.Int))                     // inOffset
	st.Push(uint256.NewInt(1))                    // value (non-zero: triggers stipend)
	st.Push(new(uint256.Int).SetBytes(callee[:])) // addr
	st.Push(new(uint256.Int))                     // gas: request 0 explicit gas

	if _, err := opCall(new(uint64), evm, contract, mem, st); err != nil {
		t.Fatalf("opCall returned error: %v", err)
	}

	echoed := new(uint256.Int).SetBytes(mem.Get(0, 32)).Uint64()
	if echoed == 0 {
		t.Error("a value-transferring CALL with 0 explicit gas should still forward the CallStipend")
	}
	wantEchoed := CallStipend - GasGas
	if echoed != wantEchoed {
		t.Errorf("callee observed gas = %d, want %d (stipend %d)", echoed, wantEchoed, CallStipend)
	}
}

func TestOpBlobHash(t *testing.T) {
	evm, contract, mem, st := setupTest()
	h0 := types.BytesToHash([]byte{0xaa})
	h1 := types.BytesToHash([]byte{0xbb})
	evm.TxContext.BlobHashes = []types.Hash{h0, h1}

	st.Push(uint256.NewInt(1))
	if _, err := opBlobHash(new(uint64), evm, contract, mem, st); err != nil {
		t.Fatalf("opBlobHash returned error: %v", err)
	}
	got := st.Pop()
	want := new(uint256.Int).SetBytes(h1[:])
	if !got.Eq(want) {
		t.Errorf("BLOBHASH(1) = %s, want %s", got.Hex(), want.Hex())
	}
}

func TestOpBlobHashOutOfRange(t *testing.T) {
	evm, contract, mem, st := setupTest()
	evm.TxContext.BlobHashes = []types.Hash{types.BytesToHash([]byte{0xaa})}

	st.Push(uint256.NewInt(5))
	if _, err := opBlobHash(new(uint64), evm, contract, mem, st); err != nil {
		t.Fatalf("opBlobHash returned error: %v", err)
	}
	got := st.Pop()
	if !got.IsZero() {
		t.Errorf("BLOBHASH out of range = %s, want 0", got.Hex())
	}
}

func TestOpBlobBaseFee(t *testing.T) {
	evm, contract, mem, st := setupTest()
	evm.Context.BlobBaseFee = uint256.NewInt(12345)

	if _, err := opBlobBaseFee(new(uint64), evm, contract, mem, st); err != nil {
		t.Fatalf("opBlobBaseFee returned error: %v", err)
	}
	got := st.Pop()
	if got.Uint64() != 12345 {
		t.Errorf("BLOBBASEFEE = %d, want 12345", got.Uint64())
	}
}

func TestOpCreate2AddressIsDeterministic(t *testing.T) {
	evm, contract, mem, st := setupTestWithState()
	evm.StateDB.AddBalance(contract.Address, uint256.NewInt(1_000_000))

	initCode := []byte{0x60, 0x00, 0x60, 0x00, 0xf3} // PUSH1 0 PUSH1 0 RETURN
	mem.Resize(32)
	mem.Set(0, uint64(len(initCode)), initCode)

	st.Push(uint256.NewInt(1)) // salt
	st.Push(uint256.NewInt(uint64(len(initCode))))
	st.Push(uint256.NewInt(0)) // offset
	st.Push(new(uint256.Int)) // value
	if _, err := opCreate2(new(uint64), evm, contract, mem, st); err != nil {
		t.Fatalf("opCreate2 returned error: %v", err)
	}
	addr := st.Pop()
	if addr.IsZero() {
		t.Error("CREATE2 should push a nonzero contract address on success")
	}
	want := create2Address(contract.Address, uint256.NewInt(1), crypto.Keccak256(initCode))
	if got := types.BytesToAddress(addr.Bytes()); got != want {
		t.Errorf("CREATE2 address = %s, want %s", got.Hex(), want.Hex())
	}
}

func TestOpJumpToValidDest(t *testing.T) {
	evm, contract, mem, st := setupTest()
	contract.Code = []byte{0x00, 0x5b, 0x00} // STOP JUMPDEST STOP

	st.Push(uint256.NewInt(1))
	pc := new(uint64)
	if _, err := opJump(pc, evm, contract, mem, st); err != nil {
		t.Fatalf("opJump returned error: %v", err)
	}
	if *pc != 1 {
		t.Errorf("JUMP pc = %d, want 1", *pc)
	}
}

func TestOpJumpToInvalidDest(t *testing.T) {
	evm, contract, mem, st := setupTest()
	contract.Code = []byte{0x00, 0x00, 0x00} // no JUMPDEST anywhere

	st.Push(uint256.NewInt(1))
	_, err := opJump(new(uint64), evm, contract, mem, st)
	if err != ErrInvalidJump {
		t.Errorf("JUMP to non-JUMPDEST: got err %v, want ErrInvalidJump", err)
	}
}

func TestOpReturnAndRevert(t *testing.T) {
	evm, contract, mem, st := setupTest()
	mem.Resize(32)
	mem.Set(0, 4, []byte{1, 2, 3, 4})

	st.Push(uint256.NewInt(4)) // size
	st.Push(uint256.NewInt(0)) // offset
	ret, err := opReturn(new(uint64), evm, contract, mem, st)
	if err != nil {
		t.Fatalf("opReturn returned error: %v", err)
	}
	if len(ret) != 4 || ret[0] != 1 || ret[3] != 4 {
		t.Errorf("RETURN data = %v, want [1 2 3 4]", ret)
	}

	st.Push(uint256.NewInt(4))
	st.Push(uint256.NewInt(0))
	_, err = opRevert(new(uint64), evm, contract, mem, st)
	if err != ErrExecutionReverted {
		t.Errorf("REVERT: got err %v, want ErrExecutionReverted", err)
	}
}
