package vm

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/wyf-labs/evmcore/core/types"
)

func TestCallGasCapsAtSixtyThreeSixtyFourths(t *testing.T) {
	// EIP-150: at most 63/64 of the available gas may be forwarded, even if
	// more is explicitly requested.
	available := uint64(6400)
	requested := uint64(1_000_000)

	got := CallGas(available, requested)
	want := available - available/CallGasFraction
	if got != want {
		t.Errorf("CallGas(%d, %d) = %d, want %d", available, requested, got, want)
	}
	if got >= available {
		t.Error("CallGas must retain at least 1/64 of available gas for the caller")
	}
}

func TestCallGasReturnsRequestedWhenUnderCap(t *testing.T) {
	available := uint64(1_000_000)
	requested := uint64(1_000)

	if got := CallGas(available, requested); got != requested {
		t.Errorf("CallGas(%d, %d) = %d, want %d", available, requested, got, requested)
	}
}

func TestGasSstoreEIP2929AppliesClearRefund(t *testing.T) {
	statedb := NewMemoryStateDB()
	evm := NewEVMWithState(BlockContext{}, TxContext{}, Config{}, statedb)
	contract := NewContract(types.Address{}, types.Address{0x01}, new(uint256.Int), 1_000_000)

	key := types.BytesToHash([]byte{1})
	// Seed the slot's pre-transaction ("original") value directly, so
	// current == original == non-zero and the store below is a clear.
	obj := statedb.getOrNewStateObject(contract.Address)
	obj.committedStorage[key] = types.BytesToHash([]byte{0xAB})

	stack := NewStack()
	stack.Push(new(uint256.Int))                  // new value: 0 (clearing the slot)
	stack.Push(new(uint256.Int).SetBytes(key[:])) // slot

	if before := statedb.GetRefund(); before != 0 {
		t.Fatalf("expected zero refund before SSTORE, got %d", before)
	}

	gasSstoreEIP2929(evm, contract, stack, NewMemory(), 0)

	if got := statedb.GetRefund(); got != SstoreClearsScheduleRefund {
		t.Errorf("refund after clearing a non-zero slot = %d, want %d", got, SstoreClearsScheduleRefund)
	}
}

func TestGasSstoreEIP2929ChargesColdPenaltyOnce(t *testing.T) {
	statedb := NewMemoryStateDB()
	evm := NewEVMWithState(BlockContext{}, TxContext{}, Config{}, statedb)
	contract := NewContract(types.Address{}, types.Address{0x02}, new(uint256.Int), 1_000_000)
	key := types.BytesToHash([]byte{7})

	stack := NewStack()
	stack.Push(uint256.NewInt(1))
	stack.Push(new(uint256.Int).SetBytes(key[:]))

	gas1 := gasSstoreEIP2929(evm, contract, stack, NewMemory(), 0)
	if gas1 < ColdSloadCost {
		t.Errorf("first SSTORE to a slot should include the cold penalty, got gas %d", gas1)
	}

	addrOK, slotOK := statedb.SlotInAccessList(contract.Address, key)
	if !addrOK || !slotOK {
		t.Fatal("slot should be warm after gasSstoreEIP2929 touches it")
	}
}
