package core

import (
	"bytes"
	"math/big"
	"testing"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/wyf-labs/evmcore/core/types"
	"github.com/wyf-labs/evmcore/core/vm"
	"github.com/wyf-labs/evmcore/crypto"
)

// weiBalance returns n ether expressed in wei as a *uint256.Int.
func weiBalance(n uint64) *uint256.Int {
	eth := uint256.NewInt(n)
	return eth.Mul(eth, uint256.NewInt(1_000_000_000_000_000_000))
}

// signAuthorization produces a properly signed EIP-7702 authorization for
// the given key, chain, delegation target, and signer nonce.
func signAuthorization(priv []byte, chainID uint64, target types.Address, nonce uint64) types.Authorization {
	auth := types.Authorization{ChainID: chainID, Address: target, Nonce: nonce}
	hash := authorizationSigningHash(&auth)

	key, err := gethcrypto.ToECDSA(priv)
	if err != nil {
		panic(err)
	}
	sig, err := gethcrypto.Sign(hash, key)
	if err != nil {
		panic(err)
	}

	copy(auth.R[:], sig[:32])
	copy(auth.S[:], sig[32:64])
	auth.V = sig[64]
	return auth
}

func newSigner(t *testing.T) ([]byte, types.Address) {
	t.Helper()
	key, err := gethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	priv := gethcrypto.FromECDSA(key)
	pub := gethcrypto.FromECDSAPub(&key.PublicKey)
	return priv, crypto.PubkeyToAddress(pub)
}

func TestProcessAuthorizations_EmptyList(t *testing.T) {
	statedb := vm.NewMemoryStateDB()
	ProcessAuthorizations(statedb, nil, big.NewInt(1))
	ProcessAuthorizations(statedb, []types.Authorization{}, big.NewInt(1))
}

func TestProcessAuthorizations_ChainIDMismatchSkipped(t *testing.T) {
	statedb := vm.NewMemoryStateDB()
	priv, signer := newSigner(t)
	target := types.HexToAddress("0x1111111111111111111111111111111111111111")

	auth := signAuthorization(priv, 2, target, 0)
	ProcessAuthorizations(statedb, []types.Authorization{auth}, big.NewInt(1))

	if code := statedb.GetCode(signer); code != nil {
		t.Errorf("signer code should be untouched on chain ID mismatch, got %x", code)
	}
}

func TestProcessAuthorizations_ZeroChainIDAcceptsAnyChain(t *testing.T) {
	statedb := vm.NewMemoryStateDB()
	priv, signer := newSigner(t)
	target := types.HexToAddress("0x1111111111111111111111111111111111111111")

	auth := signAuthorization(priv, 0, target, 0)
	ProcessAuthorizations(statedb, []types.Authorization{auth}, big.NewInt(42))

	code := statedb.GetCode(signer)
	resolved, ok := types.ParseDelegation(code)
	if !ok {
		t.Fatalf("expected a delegation designator, got %x", code)
	}
	if resolved != target {
		t.Errorf("delegation target: got %v, want %v", resolved.Hex(), target.Hex())
	}
}

func TestProcessAuthorizations_NonceMismatchSkipped(t *testing.T) {
	statedb := vm.NewMemoryStateDB()
	priv, signer := newSigner(t)
	statedb.SetNonce(signer, 5)
	target := types.HexToAddress("0x2222222222222222222222222222222222222222")

	auth := signAuthorization(priv, 1, target, 0) // wrong nonce: state has 5
	ProcessAuthorizations(statedb, []types.Authorization{auth}, big.NewInt(1))

	if code := statedb.GetCode(signer); code != nil {
		t.Errorf("signer code should be untouched on nonce mismatch, got %x", code)
	}
	if statedb.GetNonce(signer) != 5 {
		t.Errorf("nonce should be unchanged, got %d", statedb.GetNonce(signer))
	}
}

func TestProcessAuthorizations_InvalidVSkipped(t *testing.T) {
	statedb := vm.NewMemoryStateDB()
	_, signer := newSigner(t)
	auth := types.Authorization{
		ChainID: 1,
		Address: types.HexToAddress("0x3333333333333333333333333333333333333333"),
		Nonce:   0,
		V:       28,
		R:       types.BytesToHash([]byte{1}),
		S:       types.BytesToHash([]byte{1}),
	}

	ProcessAuthorizations(statedb, []types.Authorization{auth}, big.NewInt(1))
	if code := statedb.GetCode(signer); code != nil {
		t.Errorf("signer code should be untouched for invalid V, got %x", code)
	}
}

func TestProcessAuthorizations_WritesDelegationAndBumpsNonce(t *testing.T) {
	statedb := vm.NewMemoryStateDB()
	priv, signer := newSigner(t)
	target := types.HexToAddress("0x4444444444444444444444444444444444444444")

	auth := signAuthorization(priv, 7, target, 0)
	ProcessAuthorizations(statedb, []types.Authorization{auth}, big.NewInt(7))

	code := statedb.GetCode(signer)
	if !types.HasDelegationPrefix(code) {
		t.Fatalf("signer code should carry the delegation prefix, got %x", code)
	}
	resolved, ok := types.ParseDelegation(code)
	if !ok || resolved != target {
		t.Errorf("delegation target: got %v, want %v", resolved.Hex(), target.Hex())
	}
	if statedb.GetNonce(signer) != 1 {
		t.Errorf("signer nonce should be bumped to 1, got %d", statedb.GetNonce(signer))
	}
}

func TestProcessAuthorizations_MultipleAuthorizationsIndependent(t *testing.T) {
	statedb := vm.NewMemoryStateDB()
	priv1, signer1 := newSigner(t)
	priv2, signer2 := newSigner(t)
	target1 := types.HexToAddress("0x1111111111111111111111111111111111111111")
	target2 := types.HexToAddress("0x2222222222222222222222222222222222222222")

	auths := []types.Authorization{
		signAuthorization(priv1, 1, target1, 0),
		signAuthorization(priv2, 1, target2, 0),
	}
	ProcessAuthorizations(statedb, auths, big.NewInt(1))

	for _, pair := range []struct {
		signer types.Address
		target types.Address
	}{{signer1, target1}, {signer2, target2}} {
		resolved, ok := types.ParseDelegation(statedb.GetCode(pair.signer))
		if !ok || resolved != pair.target {
			t.Errorf("signer %v: delegation target got %v, want %v", pair.signer.Hex(), resolved.Hex(), pair.target.Hex())
		}
		if statedb.GetNonce(pair.signer) != 1 {
			t.Errorf("signer %v nonce: got %d, want 1", pair.signer.Hex(), statedb.GetNonce(pair.signer))
		}
	}
}

func TestProcessAuthorizations_WarmsSignerAddress(t *testing.T) {
	statedb := vm.NewMemoryStateDB()
	priv, signer := newSigner(t)
	target := types.HexToAddress("0x5555555555555555555555555555555555555555")

	if statedb.AddressInAccessList(signer) {
		t.Fatal("signer should not be warm before authorization processing")
	}

	auth := signAuthorization(priv, 1, target, 0)
	ProcessAuthorizations(statedb, []types.Authorization{auth}, big.NewInt(1))

	if !statedb.AddressInAccessList(signer) {
		t.Error("signer should be added to the warm access list")
	}
}

func TestProcessAuthorizations_RefundsForExistingAccount(t *testing.T) {
	statedb := vm.NewMemoryStateDB()
	priv, signer := newSigner(t)
	target := types.HexToAddress("0x6666666666666666666666666666666666666666")

	// Give the signer a balance so it is not an empty account.
	statedb.AddBalance(signer, uint256.NewInt(1))

	auth := signAuthorization(priv, 1, target, 0)
	ProcessAuthorizations(statedb, []types.Authorization{auth}, big.NewInt(1))

	want := PerEmptyAccountCost - PerAuthBaseCost
	if got := statedb.GetRefund(); got != want {
		t.Errorf("refund for pre-existing authority = %d, want %d", got, want)
	}
}

func TestProcessAuthorizations_NoRefundForEmptyAccount(t *testing.T) {
	statedb := vm.NewMemoryStateDB()
	priv, _ := newSigner(t)
	target := types.HexToAddress("0x7777777777777777777777777777777777777777")

	auth := signAuthorization(priv, 1, target, 0)
	ProcessAuthorizations(statedb, []types.Authorization{auth}, big.NewInt(1))

	if got := statedb.GetRefund(); got != 0 {
		t.Errorf("refund for a fresh authority = %d, want 0", got)
	}
}

func TestAuthorizationSigningHash_Deterministic(t *testing.T) {
	auth := &types.Authorization{ChainID: 1, Address: types.HexToAddress("0x1111111111111111111111111111111111111111"), Nonce: 42}
	h1 := authorizationSigningHash(auth)
	h2 := authorizationSigningHash(auth)
	if !bytes.Equal(h1, h2) {
		t.Error("authorizationSigningHash should be deterministic")
	}
	if len(h1) != 32 {
		t.Errorf("hash should be 32 bytes, got %d", len(h1))
	}
}

func TestAuthorizationSigningHash_VariesWithFields(t *testing.T) {
	base := &types.Authorization{ChainID: 1, Address: types.HexToAddress("0x1111111111111111111111111111111111111111"), Nonce: 0}
	diffAddr := &types.Authorization{ChainID: 1, Address: types.HexToAddress("0x2222222222222222222222222222222222222222"), Nonce: 0}
	diffNonce := &types.Authorization{ChainID: 1, Address: base.Address, Nonce: 1}
	diffChain := &types.Authorization{ChainID: 2, Address: base.Address, Nonce: 0}

	h := authorizationSigningHash(base)
	if bytes.Equal(h, authorizationSigningHash(diffAddr)) {
		t.Error("different addresses should hash differently")
	}
	if bytes.Equal(h, authorizationSigningHash(diffNonce)) {
		t.Error("different nonces should hash differently")
	}
	if bytes.Equal(h, authorizationSigningHash(diffChain)) {
		t.Error("different chain IDs should hash differently")
	}
}

func TestSetCodeTx_ProcessedInApplyMessage(t *testing.T) {
	statedb := vm.NewMemoryStateDB()
	priv, signer := newSigner(t)
	statedb.AddBalance(signer, new(uint256.Int))

	sender := types.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	statedb.AddBalance(sender, weiBalance(10))

	target := types.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	to := types.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")
	auth := signAuthorization(priv, TestConfig.ChainID.Uint64(), target, 0)

	msg := &Message{
		From:      sender,
		To:        &to,
		Nonce:     0,
		Value:     new(big.Int),
		GasLimit:  200000,
		GasFeeCap: big.NewInt(1_000_000_000),
		GasTipCap: big.NewInt(0),
		AuthList:  []types.Authorization{auth},
		TxType:    types.SetCodeTxType,
	}

	header := &types.Header{
		Number:   big.NewInt(1),
		GasLimit: 10_000_000,
		Time:     1000,
		BaseFee:  big.NewInt(1),
		Coinbase: types.HexToAddress("0xfee"),
	}
	gp := new(GasPool).AddGas(header.GasLimit)

	if _, err := applyMessage(TestConfig, nil, statedb, header, msg, gp); err != nil {
		t.Fatalf("applyMessage failed: %v", err)
	}

	code := statedb.GetCode(signer)
	resolved, ok := types.ParseDelegation(code)
	if !ok {
		t.Fatalf("signer code should be a delegation designator, got %x", code)
	}
	if resolved != target {
		t.Errorf("delegation target: got %v, want %v", resolved.Hex(), target.Hex())
	}
	if statedb.GetNonce(signer) != 1 {
		t.Errorf("signer nonce: got %d, want 1", statedb.GetNonce(signer))
	}
}

func TestSetCodeTx_LegacyTxUntouched(t *testing.T) {
	statedb := vm.NewMemoryStateDB()
	sender := types.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	statedb.AddBalance(sender, weiBalance(10))

	to := types.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	msg := &Message{
		From:     sender,
		To:       &to,
		Nonce:    0,
		Value:    new(big.Int),
		GasLimit: TxGas,
		GasPrice: big.NewInt(1),
		TxType:   types.LegacyTxType,
	}
	header := &types.Header{
		Number:   big.NewInt(1),
		GasLimit: 10_000_000,
		Time:     1000,
		BaseFee:  big.NewInt(1),
		Coinbase: types.HexToAddress("0xfee"),
	}
	gp := new(GasPool).AddGas(header.GasLimit)

	result, err := applyMessage(TestConfig, nil, statedb, header, msg, gp)
	if err != nil {
		t.Fatalf("applyMessage failed: %v", err)
	}
	if result.UsedGas != TxGas {
		t.Errorf("legacy transfer gas: got %d, want %d", result.UsedGas, TxGas)
	}
}
