package core

import "testing"

func TestGasPoolAddAndSub(t *testing.T) {
	gp := new(GasPool).AddGas(1000)
	if gp.Gas() != 1000 {
		t.Fatalf("Gas() = %d, want 1000", gp.Gas())
	}

	if err := gp.SubGas(400); err != nil {
		t.Fatalf("SubGas(400) returned error: %v", err)
	}
	if gp.Gas() != 600 {
		t.Errorf("Gas() after SubGas(400) = %d, want 600", gp.Gas())
	}
}

func TestGasPoolExhausted(t *testing.T) {
	gp := new(GasPool).AddGas(100)
	if err := gp.SubGas(101); err != ErrGasPoolExhausted {
		t.Errorf("SubGas(101) on a 100-gas pool: got err %v, want ErrGasPoolExhausted", err)
	}
	// A failed SubGas must not partially drain the pool.
	if gp.Gas() != 100 {
		t.Errorf("Gas() after a failed SubGas = %d, want 100 (unchanged)", gp.Gas())
	}
}

func TestGasPoolAddGasReturnsSelf(t *testing.T) {
	gp := new(GasPool)
	ret := gp.AddGas(50).AddGas(25)
	if ret.Gas() != 75 {
		t.Errorf("chained AddGas = %d, want 75", ret.Gas())
	}
}
