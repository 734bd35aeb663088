package vm

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestFrontierJumpTableSelfdestruct(t *testing.T) {
	tbl := NewFrontierJumpTable()
	op := tbl[SELFDESTRUCT]
	if op == nil {
		t.Fatal("SELFDESTRUCT not defined in Frontier jump table")
	}
	if !op.halts {
		t.Error("SELFDESTRUCT should halt")
	}
	if !op.writes {
		t.Error("SELFDESTRUCT should write")
	}
	if op.constantGas != GasSelfdestruct {
		t.Errorf("SELFDESTRUCT constantGas = %d, want %d", op.constantGas, GasSelfdestruct)
	}
}

func TestFrontierJumpTableCopyOpcodesChargePerWord(t *testing.T) {
	tbl := NewFrontierJumpTable()
	for _, op := range []OpCode{CALLDATACOPY, CODECOPY} {
		entry := tbl[op]
		if entry == nil {
			t.Fatalf("opcode 0x%02x not defined", op)
		}
		if entry.dynamicGas == nil {
			t.Fatalf("opcode 0x%02x should charge dynamic gas for the copied words", op)
		}
	}
}

func TestFrontierJumpTableExtCodeCopyMemorySize(t *testing.T) {
	tbl := NewFrontierJumpTable()
	entry := tbl[EXTCODECOPY]
	if entry == nil {
		t.Fatal("EXTCODECOPY not defined in Frontier jump table")
	}
	if entry.memorySize == nil {
		t.Fatal("EXTCODECOPY should compute a memory size")
	}
	if entry.dynamicGas == nil {
		t.Fatal("EXTCODECOPY should charge per-word copy gas")
	}

	// EXTCODECOPY stack: addr, destOffset, offset, length (top to bottom as
	// pushed, so Back(0)=addr, Back(1)=destOffset, Back(3)=length).
	stack := NewStack()
	stack.Push(uint256.NewInt(32))  // length
	stack.Push(uint256.NewInt(0))   // offset
	stack.Push(uint256.NewInt(64))  // destOffset
	stack.Push(uint256.NewInt(123)) // addr

	got := entry.memorySize(stack)
	want := uint64(64 + 32)
	if got != want {
		t.Errorf("EXTCODECOPY memorySize = %d, want %d", got, want)
	}
}

func TestFrontierJumpTableCallChargesValueAndNewAccountGas(t *testing.T) {
	tbl := NewFrontierJumpTable()
	for _, op := range []OpCode{CALL, CALLCODE} {
		entry := tbl[op]
		if entry == nil {
			t.Fatalf("opcode 0x%02x not defined", op)
		}
		if entry.dynamicGas == nil {
			t.Fatalf("opcode 0x%02x should charge dynamic gas", op)
		}
		if entry.constantGas != GasCallCold {
			t.Errorf("opcode 0x%02x constantGas = %d, want %d", op, entry.constantGas, GasCallCold)
		}
	}
}

func TestByzantiumJumpTableStaticcall(t *testing.T) {
	tbl := NewByzantiumJumpTable()
	op := tbl[STATICCALL]
	if op == nil {
		t.Fatal("STATICCALL not defined in Byzantium jump table")
	}
	if op.memorySize == nil {
		t.Fatal("STATICCALL should compute a memory size")
	}
}

func TestByzantiumJumpTableReturnDataCopyChargesPerWord(t *testing.T) {
	tbl := NewByzantiumJumpTable()
	op := tbl[RETURNDATACOPY]
	if op == nil {
		t.Fatal("RETURNDATACOPY not defined in Byzantium jump table")
	}
	if op.dynamicGas == nil {
		t.Fatal("RETURNDATACOPY should charge per-word copy gas")
	}
}

func TestConstantinopleJumpTableNewOpcodes(t *testing.T) {
	tbl := NewConstantinopleJumpTable()

	hashOp := tbl[EXTCODEHASH]
	if hashOp == nil {
		t.Fatal("EXTCODEHASH not defined in Constantinople jump table")
	}
	if hashOp.constantGas != GasBalanceCold {
		t.Errorf("EXTCODEHASH constantGas = %d, want %d", hashOp.constantGas, GasBalanceCold)
	}

	create2Op := tbl[CREATE2]
	if create2Op == nil {
		t.Fatal("CREATE2 not defined in Constantinople jump table")
	}
	if !create2Op.writes {
		t.Error("CREATE2 should write")
	}
	if create2Op.memorySize == nil {
		t.Fatal("CREATE2 should compute a memory size")
	}
}

func TestBerlinJumpTableEIP2929Repricing(t *testing.T) {
	tbl := NewBerlinJumpTable()

	for _, op := range []OpCode{BALANCE, SLOAD, EXTCODESIZE, EXTCODECOPY, EXTCODEHASH, CALL, CALLCODE, DELEGATECALL, STATICCALL} {
		entry := tbl[op]
		if entry == nil {
			t.Fatalf("opcode 0x%02x not defined in Berlin jump table", op)
		}
		if entry.constantGas != WarmStorageReadCost {
			t.Errorf("opcode 0x%02x constantGas = %d, want warm-access cost %d", op, entry.constantGas, WarmStorageReadCost)
		}
		if entry.dynamicGas == nil {
			t.Errorf("opcode 0x%02x should charge the EIP-2929 cold-access delta as dynamic gas", op)
		}
	}

	sstoreOp := tbl[SSTORE]
	if sstoreOp == nil {
		t.Fatal("SSTORE not defined in Berlin jump table")
	}
	if sstoreOp.constantGas != 0 {
		t.Errorf("SSTORE constantGas = %d, want 0 (EIP-2929 folds warm cost into dynamicGas)", sstoreOp.constantGas)
	}

	selfdestructOp := tbl[SELFDESTRUCT]
	if selfdestructOp == nil {
		t.Fatal("SELFDESTRUCT not defined in Berlin jump table")
	}
	if selfdestructOp.dynamicGas == nil {
		t.Error("SELFDESTRUCT should charge EIP-2929 cold-access gas for its target")
	}
}

func TestBerlinJumpTableInheritsIstanbulOpcodes(t *testing.T) {
	tbl := NewBerlinJumpTable()
	if tbl[ADD] == nil {
		t.Error("Berlin jump table should still carry forward Istanbul's base opcodes")
	}
	if tbl[CHAINID] == nil {
		t.Error("Berlin jump table should still carry forward Istanbul's CHAINID")
	}
}

func TestCancunJumpTableNewOpcodes(t *testing.T) {
	tbl := NewCancunJumpTable()

	for _, op := range []OpCode{TLOAD, TSTORE, MCOPY, BLOBHASH, BLOBBASEFEE} {
		if tbl[op] == nil {
			t.Fatalf("opcode 0x%02x not defined in Cancun jump table", op)
		}
	}

	mcopyOp := tbl[MCOPY]
	if mcopyOp.memorySize == nil {
		t.Fatal("MCOPY should compute a memory size")
	}
	if mcopyOp.dynamicGas == nil {
		t.Fatal("MCOPY should charge per-word copy gas")
	}

	tstoreOp := tbl[TSTORE]
	if !tstoreOp.writes {
		t.Error("TSTORE should write")
	}
}

func TestMemoryMcopySize(t *testing.T) {
	tests := []struct {
		name             string
		dest, src, size  uint64
		wantMemoryLength uint64
	}{
		{"dest larger", 100, 0, 32, 132},
		{"src larger", 0, 100, 32, 132},
		{"equal", 10, 10, 10, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stack := NewStack()
			stack.Push(uint256.NewInt(tt.size))
			stack.Push(uint256.NewInt(tt.src))
			stack.Push(uint256.NewInt(tt.dest))
			got := memoryMcopy(stack)
			if got != tt.wantMemoryLength {
				t.Errorf("memoryMcopy(dest=%d,src=%d,size=%d) = %d, want %d", tt.dest, tt.src, tt.size, got, tt.wantMemoryLength)
			}
		})
	}
}
