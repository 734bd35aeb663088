// processor.go implements the transaction-level state transition: intrinsic
// gas accounting, balance/nonce/fee validation, and driving the EVM through
// a single transaction or a full block of them.
package core

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/wyf-labs/evmcore/core/types"
	"github.com/wyf-labs/evmcore/core/vm"
)

const (
	// TxGas is the base intrinsic gas cost of every transaction.
	TxGas uint64 = 21000
	// TxDataZeroGas is the gas cost per zero byte of transaction calldata.
	TxDataZeroGas uint64 = 4
	// TxDataNonZeroGas is the gas cost per non-zero byte of transaction calldata.
	TxDataNonZeroGas uint64 = 16
	// TxCreateGas is the extra intrinsic gas charged for contract creation.
	TxCreateGas uint64 = 32000

	// AccessListAddressGas is the EIP-2930 per-address intrinsic gas cost.
	AccessListAddressGas uint64 = 2400
	// AccessListStorageKeyGas is the EIP-2930 per-storage-key intrinsic gas cost.
	AccessListStorageKeyGas uint64 = 1900

	// PerAuthBaseCost is the EIP-7702 per-authorization-tuple base gas cost.
	PerAuthBaseCost uint64 = 12500
	// PerEmptyAccountCost is the EIP-7702 surcharge for an authorization that
	// targets an account not yet present in state.
	PerEmptyAccountCost uint64 = 25000
)

// EIP-7623 calldata cost floor constants.
const (
	// StandardTokenCost is the standard (pre-floor) gas cost per calldata
	// token, in the same token units as the floor (a non-zero byte is four
	// tokens, so 16 gas).
	StandardTokenCost uint64 = 4
	// TotalCostFloorPerToken is the floor gas cost charged per calldata
	// token; the effective charge is max(standard_cost, floor_cost).
	TotalCostFloorPerToken uint64 = 10
	// FloorTokenCost is an alias for TotalCostFloorPerToken kept for callers
	// that talk about the floor in terms of a per-token cost.
	FloorTokenCost uint64 = TotalCostFloorPerToken
)

var (
	ErrNonceTooLow         = errors.New("nonce too low")
	ErrNonceTooHigh        = errors.New("nonce too high")
	ErrInsufficientBalance = errors.New("insufficient balance for transfer")
	ErrGasLimitExceeded    = errors.New("gas limit exceeded")
	ErrIntrinsicGasTooLow  = errors.New("intrinsic gas too low")
	ErrContractCreation    = errors.New("contract creation failed")
	ErrContractCall        = errors.New("contract call failed")
	ErrSenderNotEOA        = errors.New("sender not an externally owned account")
	ErrInvalidBaseFee      = errors.New("invalid base fee")
)

// StateProcessor applies the transactions of a block sequentially against a
// StateDB, in the teacher's per-transaction-then-fold-gas-used pattern.
type StateProcessor struct {
	config  *ChainConfig
	getHash vm.GetHashFunc
}

// NewStateProcessor creates a processor bound to the given chain config.
func NewStateProcessor(config *ChainConfig) *StateProcessor {
	return &StateProcessor{config: config}
}

// SetGetHash sets the block hash lookup function used to serve the
// BLOCKHASH opcode.
func (p *StateProcessor) SetGetHash(fn vm.GetHashFunc) {
	p.getHash = fn
}

// Process executes every transaction in the block and returns the receipts.
func (p *StateProcessor) Process(block *types.Block, statedb *vm.MemoryStateDB) ([]*types.Receipt, error) {
	var (
		receipts          []*types.Receipt
		gasPool           = new(GasPool).AddGas(block.GasLimit())
		header            = block.Header()
		cumulativeGasUsed uint64
	)

	for i, tx := range block.Transactions() {
		statedb.SetTxContext(tx.Hash(), i)

		receipt, usedGas, err := applyTransaction(p.config, p.getHash, statedb, header, tx, gasPool)
		if err != nil {
			return nil, fmt.Errorf("could not apply tx %d [%s]: %w", i, tx.Hash().Hex(), err)
		}

		cumulativeGasUsed += usedGas
		receipt.CumulativeGasUsed = cumulativeGasUsed
		receipt.TransactionIndex = uint(i)
		receipt.BlockHash = block.Hash()
		receipt.BlockNumber = block.Number()

		receipts = append(receipts, receipt)
	}

	if p.config != nil && p.config.IsShanghai(header.Time) {
		ProcessWithdrawals(statedb, block.Withdrawals())
	}

	return receipts, nil
}

// ProcessWithdrawals credits each EIP-4895 withdrawal to its target address.
// Withdrawals consume no gas and are applied after all transactions.
func ProcessWithdrawals(statedb *vm.MemoryStateDB, withdrawals []*types.Withdrawal) {
	for _, w := range withdrawals {
		if w == nil {
			continue
		}
		amount := new(uint256.Int).SetUint64(w.Amount)
		amount.Mul(amount, uint256.NewInt(1_000_000_000)) // Gwei -> Wei
		statedb.AddBalance(w.Address, amount)
	}
}

// ApplyTransaction applies a single transaction against statedb and returns
// its receipt and the gas it used.
func ApplyTransaction(config *ChainConfig, statedb *vm.MemoryStateDB, header *types.Header, tx *types.Transaction, gp *GasPool) (*types.Receipt, uint64, error) {
	return applyTransaction(config, nil, statedb, header, tx, gp)
}

func applyTransaction(config *ChainConfig, getHash vm.GetHashFunc, statedb *vm.MemoryStateDB, header *types.Header, tx *types.Transaction, gp *GasPool) (*types.Receipt, uint64, error) {
	msg := TransactionToMessage(tx)

	snapshot := statedb.Snapshot()
	result, err := applyMessage(config, getHash, statedb, header, &msg, gp)
	if err != nil {
		statedb.RevertToSnapshot(snapshot)
		return nil, 0, err
	}

	status := types.ReceiptStatusSuccessful
	if result.Failed() {
		status = types.ReceiptStatusFailed
	}

	receipt := types.NewReceipt(status, result.UsedGas)
	receipt.TxHash = tx.Hash()
	receipt.GasUsed = result.UsedGas
	receipt.Type = tx.Type()
	if msg.To == nil {
		receipt.ContractAddress = result.ContractAddress
	}
	if blobGas := tx.BlobGas(); blobGas > 0 {
		receipt.BlobGasUsed = blobGas
		if header.ExcessBlobGas != nil {
			receipt.BlobGasPrice = calcBlobBaseFee(*header.ExcessBlobGas)
		}
	}
	receipt.Logs = statedb.GetLogs(tx.Hash())
	var bloom types.Bloom
	for _, log := range receipt.Logs {
		b := types.LogBloom(log)
		for i := range bloom {
			bloom[i] |= b[i]
		}
	}
	receipt.Bloom = bloom

	return receipt, result.UsedGas, nil
}

// ValidateTransaction checks a transaction against state and header context
// without executing it: nonce, gas limit, intrinsic gas, fee caps, and
// balance sufficiency.
func ValidateTransaction(tx *types.Transaction, statedb *vm.MemoryStateDB, header *types.Header, config *ChainConfig) error {
	sender := tx.Sender()
	if sender == nil {
		return errors.New("transaction sender not set")
	}
	from := *sender

	stateNonce := statedb.GetNonce(from)
	if tx.Nonce() < stateNonce {
		return fmt.Errorf("%w: tx %d, state %d", ErrNonceTooLow, tx.Nonce(), stateNonce)
	}
	if tx.Nonce() > stateNonce {
		return fmt.Errorf("%w: tx %d, state %d", ErrNonceTooHigh, tx.Nonce(), stateNonce)
	}

	if tx.Gas() > header.GasLimit {
		return fmt.Errorf("%w: tx gas %d > block limit %d", ErrGasLimitExceeded, tx.Gas(), header.GasLimit)
	}

	isShanghai := config != nil && config.IsShanghai(header.Time)
	igas := intrinsicGas(tx.Data(), tx.To() == nil, isShanghai, tx.AccessList(), uint64(len(tx.AuthorizationList())), 0)
	if tx.Gas() < igas {
		return fmt.Errorf("%w: have %d, want %d", ErrIntrinsicGasTooLow, tx.Gas(), igas)
	}

	if header.BaseFee != nil && header.BaseFee.Sign() > 0 {
		if feeCap := tx.GasFeeCap(); feeCap != nil && feeCap.Cmp(header.BaseFee) < 0 {
			return fmt.Errorf("max fee per gas (%s) < base fee (%s)", feeCap, header.BaseFee)
		}
	}

	cost := TxCost(tx, header.BaseFee)
	if balance := statedb.GetBalance(from); balance.ToBig().Cmp(cost) < 0 {
		return fmt.Errorf("%w: have %s, want %s", ErrInsufficientBalance, balance, cost)
	}

	return nil
}

// toUint256 converts a *big.Int balance/gas amount to *uint256.Int, treating
// a nil input as zero.
func toUint256(b *big.Int) *uint256.Int {
	if b == nil {
		return new(uint256.Int)
	}
	u, _ := uint256.FromBig(b)
	return u
}

// intrinsicGas computes the gas charged before any EVM execution begins:
// the flat base cost, calldata cost, EIP-2930 access list cost, EIP-3860
// init code word cost, and EIP-7702 authorization cost.
func intrinsicGas(data []byte, isCreate, isShanghai bool, accessList types.AccessList, authCount, emptyAuthCount uint64) uint64 {
	gas := TxGas
	if isCreate {
		gas += TxCreateGas
	}
	for _, b := range data {
		if b == 0 {
			gas += TxDataZeroGas
		} else {
			gas += TxDataNonZeroGas
		}
	}
	if isCreate && isShanghai {
		words := (uint64(len(data)) + 31) / 32
		gas += words * vm.InitCodeWordGas
	}
	gas += accessListGas(accessList)
	gas += authCount * PerAuthBaseCost
	gas += emptyAuthCount * PerEmptyAccountCost
	return gas
}

// accessListGas computes the EIP-2930 intrinsic gas contribution of an
// access list: a flat per-address cost plus a per-storage-key cost.
func accessListGas(accessList types.AccessList) uint64 {
	var gas uint64
	for _, tuple := range accessList {
		gas += AccessListAddressGas
		gas += uint64(len(tuple.StorageKeys)) * AccessListStorageKeyGas
	}
	return gas
}

// calldataTokens computes the EIP-7623 token weight of calldata: zero bytes
// count as one token, non-zero bytes as four.
func calldataTokens(data []byte) uint64 {
	var tokens uint64
	for _, b := range data {
		if b == 0 {
			tokens++
		} else {
			tokens += 4
		}
	}
	return tokens
}

// TxCost computes the maximum amount a transaction can draw from the
// sender's balance: value transferred plus gas at its fee cap plus blob gas
// at its fee cap.
func TxCost(tx *types.Transaction, baseFee *big.Int) *big.Int {
	cost := new(big.Int)
	if tx.Value() != nil {
		cost.Set(tx.Value())
	}
	gasPrice := tx.GasFeeCap()
	if gasPrice == nil {
		gasPrice = tx.GasPrice()
	}
	if gasPrice == nil {
		gasPrice = new(big.Int)
	}
	cost.Add(cost, new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(tx.Gas())))

	if blobFeeCap := tx.BlobGasFeeCap(); blobFeeCap != nil {
		blobCost := new(big.Int).Mul(blobFeeCap, new(big.Int).SetUint64(tx.BlobGas()))
		cost.Add(cost, blobCost)
	}
	return cost
}

// EffectiveGasPrice returns the gas price actually paid per EIP-1559: the
// sender's GasPrice for legacy transactions, or min(GasFeeCap, BaseFee +
// GasTipCap) for dynamic-fee transactions.
func EffectiveGasPrice(tx *types.Transaction, baseFee *big.Int) *big.Int {
	return msgEffectiveGasPrice(&Message{
		GasPrice:  tx.GasPrice(),
		GasFeeCap: tx.GasFeeCap(),
		GasTipCap: tx.GasTipCap(),
	}, baseFee)
}

func msgEffectiveGasPrice(msg *Message, baseFee *big.Int) *big.Int {
	if msg.GasFeeCap != nil && baseFee != nil && baseFee.Sign() > 0 {
		tip := msg.GasTipCap
		if tip == nil {
			tip = new(big.Int)
		}
		effective := new(big.Int).Add(baseFee, tip)
		if effective.Cmp(msg.GasFeeCap) > 0 {
			effective = new(big.Int).Set(msg.GasFeeCap)
		}
		return effective
	}
	if msg.GasPrice != nil {
		return new(big.Int).Set(msg.GasPrice)
	}
	return new(big.Int)
}

// applyMessage runs a single message through the EVM: gas pool bookkeeping,
// sender/fee validation, intrinsic gas accounting, EIP-2929 pre-warming,
// EIP-3529 refunds, and final balance settlement.
func applyMessage(config *ChainConfig, getHash vm.GetHashFunc, statedb *vm.MemoryStateDB, header *types.Header, msg *Message, gp *GasPool) (*ExecutionResult, error) {
	if err := gp.SubGas(msg.GasLimit); err != nil {
		return nil, err
	}

	stateNonce := statedb.GetNonce(msg.From)
	if msg.Nonce < stateNonce {
		gp.AddGas(msg.GasLimit)
		return nil, fmt.Errorf("%w: address %v, tx nonce %d, state nonce %d", ErrNonceTooLow, msg.From, msg.Nonce, stateNonce)
	}
	if msg.Nonce > stateNonce {
		gp.AddGas(msg.GasLimit)
		return nil, fmt.Errorf("%w: address %v, tx nonce %d, state nonce %d", ErrNonceTooHigh, msg.From, msg.Nonce, stateNonce)
	}

	// EIP-3607: only EOAs (or EIP-7702 delegated EOAs) may send transactions.
	if codeHash := statedb.GetCodeHash(msg.From); codeHash != (types.Hash{}) && codeHash != types.EmptyCodeHash {
		if code := statedb.GetCode(msg.From); !types.HasDelegationPrefix(code) {
			gp.AddGas(msg.GasLimit)
			return nil, fmt.Errorf("%w: address %v, codehash %v", ErrSenderNotEOA, msg.From, codeHash)
		}
	}

	isEIP1559Tx := msg.TxType >= types.DynamicFeeTxType
	if isEIP1559Tx && header.BaseFee != nil && header.BaseFee.Sign() > 0 {
		if msg.GasFeeCap != nil && msg.GasTipCap != nil {
			if msg.GasFeeCap.Cmp(msg.GasTipCap) < 0 {
				gp.AddGas(msg.GasLimit)
				return nil, fmt.Errorf("max priority fee per gas higher than max fee per gas: tip %s, cap %s", msg.GasTipCap, msg.GasFeeCap)
			}
			if msg.GasFeeCap.Cmp(header.BaseFee) < 0 {
				gp.AddGas(msg.GasLimit)
				return nil, fmt.Errorf("max fee per gas less than block base fee: fee %s, baseFee %s", msg.GasFeeCap, header.BaseFee)
			}
		}
	}

	gasPrice := msgEffectiveGasPrice(msg, header.BaseFee)
	gasCost := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(msg.GasLimit))

	balanceGasCost := gasCost
	if isEIP1559Tx && msg.GasFeeCap != nil {
		balanceGasCost = new(big.Int).Mul(msg.GasFeeCap, new(big.Int).SetUint64(msg.GasLimit))
	}
	totalCost := new(big.Int).Add(msg.Value, balanceGasCost)
	balance := statedb.GetBalance(msg.From).ToBig()
	if balance.Cmp(totalCost) < 0 {
		gp.AddGas(msg.GasLimit)
		return nil, fmt.Errorf("%w: address %v have %v want %v", ErrInsufficientBalance, msg.From, balance, totalCost)
	}

	statedb.SubBalance(msg.From, toUint256(gasCost))

	isCreate := msg.To == nil
	if !isCreate {
		statedb.SetNonce(msg.From, msg.Nonce+1)
	}

	var authCount, emptyAuthCount uint64
	if msg.TxType == types.SetCodeTxType && len(msg.AuthList) > 0 {
		authCount = uint64(len(msg.AuthList))
		for _, auth := range msg.AuthList {
			if !statedb.Exist(auth.Address) || statedb.Empty(auth.Address) {
				emptyAuthCount++
			}
		}
	}

	isShanghai := config != nil && config.IsShanghai(header.Time)
	igas := intrinsicGas(msg.Data, isCreate, isShanghai, msg.AccessList, authCount, emptyAuthCount)

	// EIP-7623: from Prague onward, the gas limit must also cover the
	// calldata floor, so a cheap-but-calldata-heavy tx can't slip through.
	if config != nil && config.IsPrague(header.Time) {
		if floor := CalcFloorGas(msg.Data, isCreate).FloorGas; floor > igas {
			igas = floor
		}
	}

	if igas > msg.GasLimit {
		gp.AddGas(msg.GasLimit)
		return nil, fmt.Errorf("%w: have %d, want %d", ErrIntrinsicGasTooLow, msg.GasLimit, igas)
	}
	gasLeft := msg.GasLimit - igas

	blockNumber := header.Number
	if blockNumber == nil {
		blockNumber = new(big.Int)
	}
	blockCtx := vm.BlockContext{
		GetHash:     getHash,
		BlockNumber: toUint256(blockNumber),
		Time:        header.Time,
		Coinbase:    header.Coinbase,
		GasLimit:    header.GasLimit,
		PrevRandao:  header.PrevRandao(),
	}
	if header.BaseFee != nil {
		blockCtx.BaseFee = toUint256(header.BaseFee)
	}
	txCtx := vm.TxContext{
		Origin:     msg.From,
		GasPrice:   toUint256(gasPrice),
		BlobHashes: msg.BlobHashes,
	}
	evm := vm.NewEVMWithState(blockCtx, txCtx, vm.Config{}, statedb)

	var precompiles map[types.Address]vm.PrecompiledContract
	if config != nil {
		rules := config.Rules(header.Number, header.Time)
		evm.SetJumpTable(vm.SelectJumpTable(rules))
		precompiles = vm.SelectPrecompiles(rules)
		evm.SetPrecompiles(precompiles)
		evm.SetForkRules(rules)
		if config.ChainID != nil {
			evm.SetChainID(config.ChainID.Uint64())
		}
	}

	// EIP-2929/2930: warm sender, destination, coinbase, active precompiles,
	// and every address/slot named in the access list before execution.
	statedb.AddAddressToAccessList(msg.From)
	if msg.To != nil {
		statedb.AddAddressToAccessList(*msg.To)
	}
	statedb.AddAddressToAccessList(header.Coinbase)
	for addr := range precompiles {
		statedb.AddAddressToAccessList(addr)
	}
	for _, tuple := range msg.AccessList {
		statedb.AddAddressToAccessList(tuple.Address)
		for _, key := range tuple.StorageKeys {
			statedb.AddSlotToAccessList(tuple.Address, key)
		}
	}

	// EIP-7702: authorizations are applied before main execution, setting
	// delegation code on each signer's account.
	if msg.TxType == types.SetCodeTxType && len(msg.AuthList) > 0 {
		var chainID *big.Int
		if config != nil {
			chainID = config.ChainID
		}
		ProcessAuthorizations(statedb, msg.AuthList, chainID)
	}

	var (
		execErr      error
		returnData   []byte
		gasRemaining uint64
		contractAddr types.Address
	)
	if isCreate {
		returnData, contractAddr, gasRemaining, execErr = evm.Create(msg.From, msg.Data, gasLeft, toUint256(msg.Value))
	} else {
		returnData, gasRemaining, execErr = evm.Call(msg.From, *msg.To, msg.Data, gasLeft, toUint256(msg.Value))
	}

	gasUsedBeforeRefund := igas + (gasLeft - gasRemaining)
	gasUsed, _, _ := RefundWithFloor(gasUsedBeforeRefund, statedb.GetRefund(), msg.Data, msg.AccessList, isCreate, config, header.Time)
	if gasUsed > gasUsedBeforeRefund {
		gasUsedBeforeRefund = gasUsed
	}

	remainingGas := msg.GasLimit - gasUsed
	if remainingGas > 0 {
		refundAmount := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(remainingGas))
		statedb.AddBalance(msg.From, toUint256(refundAmount))
	}
	gp.AddGas(remainingGas)

	if header.BaseFee != nil && header.BaseFee.Sign() > 0 {
		tip := new(big.Int).Sub(gasPrice, header.BaseFee)
		if tip.Sign() > 0 {
			statedb.AddBalance(header.Coinbase, toUint256(new(big.Int).Mul(tip, new(big.Int).SetUint64(gasUsed))))
		}
	} else {
		statedb.AddBalance(header.Coinbase, toUint256(new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(gasUsed))))
	}

	return &ExecutionResult{
		UsedGas:         gasUsed,
		BlockGasUsed:    gasUsedBeforeRefund,
		Err:             execErr,
		ReturnData:      returnData,
		ContractAddress: contractAddr,
	}, nil
}

// calcBlobBaseFee computes the EIP-4844 blob base fee from excess blob gas
// using the fake-exponential approximation defined by the EIP.
func calcBlobBaseFee(excessBlobGas uint64) *big.Int {
	return fakeExponential(big.NewInt(1), new(big.Int).SetUint64(excessBlobGas), big.NewInt(3338477))
}

func fakeExponential(factor, numerator, denominator *big.Int) *big.Int {
	i := big.NewInt(1)
	output := new(big.Int)
	accum := new(big.Int).Mul(factor, denominator)
	for accum.Sign() > 0 {
		output.Add(output, accum)
		accum.Mul(accum, numerator)
		accum.Div(accum, new(big.Int).Mul(denominator, i))
		i.Add(i, big.NewInt(1))
	}
	return output.Div(output, denominator)
}
