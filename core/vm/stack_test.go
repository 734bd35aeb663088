package vm

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestStackPushPop(t *testing.T) {
	st := NewStack()
	st.Push(uint256.NewInt(42))
	st.Push(uint256.NewInt(99))

	if st.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", st.Len())
	}

	val := st.Pop()
	if val.Uint64() != 99 {
		t.Errorf("Pop() = %d, want 99", val.Uint64())
	}

	val = st.Pop()
	if val.Uint64() != 42 {
		t.Errorf("Pop() = %d, want 42", val.Uint64())
	}

	if st.Len() != 0 {
		t.Errorf("Len() = %d, want 0", st.Len())
	}
}

func TestStackPeek(t *testing.T) {
	st := NewStack()
	st.Push(uint256.NewInt(10))
	st.Push(uint256.NewInt(20))
	st.Push(uint256.NewInt(30))

	if st.Peek().Uint64() != 30 {
		t.Errorf("Peek() = %d, want 30", st.Peek().Uint64())
	}
	if st.PeekN(0).Uint64() != 30 {
		t.Errorf("PeekN(0) = %d, want 30", st.PeekN(0).Uint64())
	}
	if st.PeekN(1).Uint64() != 20 {
		t.Errorf("PeekN(1) = %d, want 20", st.PeekN(1).Uint64())
	}
	if st.PeekN(2).Uint64() != 10 {
		t.Errorf("PeekN(2) = %d, want 10", st.PeekN(2).Uint64())
	}
}

func TestStackBack(t *testing.T) {
	st := NewStack()
	st.Push(uint256.NewInt(1))
	st.Push(uint256.NewInt(2))
	st.Push(uint256.NewInt(3))

	if st.Back(0).Uint64() != 3 {
		t.Errorf("Back(0) = %d, want 3", st.Back(0).Uint64())
	}
	if st.Back(2).Uint64() != 1 {
		t.Errorf("Back(2) = %d, want 1", st.Back(2).Uint64())
	}
}

func TestStackDup(t *testing.T) {
	st := NewStack()
	st.Push(uint256.NewInt(10))
	st.Push(uint256.NewInt(20))
	st.Push(uint256.NewInt(30))

	st.Dup(2) // duplicate the 2nd from top (20)
	if st.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", st.Len())
	}
	if st.Peek().Uint64() != 20 {
		t.Errorf("after Dup(2), top = %d, want 20", st.Peek().Uint64())
	}

	// Original should not be affected by modifying the dup.
	st.Peek().SetUint64(999)
	if st.PeekN(2).Uint64() != 20 {
		t.Errorf("Dup should create an independent copy")
	}
}

func TestStackSwap(t *testing.T) {
	st := NewStack()
	st.Push(uint256.NewInt(1))
	st.Push(uint256.NewInt(2))
	st.Push(uint256.NewInt(3))

	st.Swap(2) // swap top (3) with 2nd below (1)
	if st.Peek().Uint64() != 1 {
		t.Errorf("after Swap(2), top = %d, want 1", st.Peek().Uint64())
	}
	if st.PeekN(2).Uint64() != 3 {
		t.Errorf("after Swap(2), bottom = %d, want 3", st.PeekN(2).Uint64())
	}
}

func TestStackOverflow(t *testing.T) {
	st := NewStack()
	for i := 0; i < 1024; i++ {
		if err := st.Push(uint256.NewInt(uint64(i))); err != nil {
			t.Fatalf("Push(%d) failed: %v", i, err)
		}
	}
	if err := st.Push(uint256.NewInt(9999)); err == nil {
		t.Error("expected stack overflow error, got nil")
	}
}

func TestStackData(t *testing.T) {
	st := NewStack()
	st.Push(uint256.NewInt(7))
	st.Push(uint256.NewInt(8))

	data := st.Data()
	if len(data) != 2 {
		t.Fatalf("Data() length = %d, want 2", len(data))
	}
	if data[0].Uint64() != 7 || data[1].Uint64() != 8 {
		t.Errorf("Data() = %v, want [7 8] (bottom to top)", data)
	}
}
