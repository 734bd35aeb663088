package core

import (
	"math/big"

	"github.com/wyf-labs/evmcore/core/vm"
)

// ChainConfig holds chain-level fork scheduling. Forks through The Merge
// activate at a block number; every fork from Shanghai onward activates at
// a block timestamp, matching how post-Merge Ethereum schedules upgrades.
type ChainConfig struct {
	ChainID *big.Int

	HomesteadBlock        *big.Int
	TangerineWhistleBlock *big.Int
	SpuriousDragonBlock   *big.Int
	ByzantiumBlock        *big.Int
	ConstantinopleBlock   *big.Int
	IstanbulBlock         *big.Int
	BerlinBlock           *big.Int
	LondonBlock           *big.Int
	MergeBlock            *big.Int

	ShanghaiTime *uint64
	CancunTime   *uint64
	PragueTime   *uint64
}

func isBlockForked(forkBlock *big.Int, blockNumber *big.Int) bool {
	if forkBlock == nil {
		return false
	}
	if blockNumber == nil {
		return false
	}
	return forkBlock.Cmp(blockNumber) <= 0
}

func isTimestampForked(forkTime *uint64, blockTime uint64) bool {
	if forkTime == nil {
		return false
	}
	return *forkTime <= blockTime
}

func (c *ChainConfig) IsHomestead(num *big.Int) bool { return isBlockForked(c.HomesteadBlock, num) }
func (c *ChainConfig) IsTangerineWhistle(num *big.Int) bool {
	return isBlockForked(c.TangerineWhistleBlock, num)
}
func (c *ChainConfig) IsSpuriousDragon(num *big.Int) bool {
	return isBlockForked(c.SpuriousDragonBlock, num)
}
func (c *ChainConfig) IsByzantium(num *big.Int) bool { return isBlockForked(c.ByzantiumBlock, num) }
func (c *ChainConfig) IsConstantinople(num *big.Int) bool {
	return isBlockForked(c.ConstantinopleBlock, num)
}
func (c *ChainConfig) IsIstanbul(num *big.Int) bool { return isBlockForked(c.IstanbulBlock, num) }
func (c *ChainConfig) IsBerlin(num *big.Int) bool   { return isBlockForked(c.BerlinBlock, num) }
func (c *ChainConfig) IsLondon(num *big.Int) bool   { return isBlockForked(c.LondonBlock, num) }
func (c *ChainConfig) IsMerge(num *big.Int) bool { return isBlockForked(c.MergeBlock, num) }

// IsShanghai returns whether the given block time is at or past the Shanghai fork.
func (c *ChainConfig) IsShanghai(time uint64) bool {
	return isTimestampForked(c.ShanghaiTime, time)
}

// IsCancun returns whether the given block time is at or past the Cancun fork.
func (c *ChainConfig) IsCancun(time uint64) bool {
	return isTimestampForked(c.CancunTime, time)
}

// IsPrague returns whether the given block time is at or past the Prague fork.
func (c *ChainConfig) IsPrague(time uint64) bool {
	return isTimestampForked(c.PragueTime, time)
}

// Rules converts the config into the fork-rule flags the EVM consumes to
// select a jump table and precompile set for one block. Post-Merge fork
// activation is governed by blockTime; pre-Merge forks still key off the
// block number.
func (c *ChainConfig) Rules(blockNumber *big.Int, blockTime uint64) vm.ForkRules {
	return vm.ForkRules{
		IsHomestead:        c.IsHomestead(blockNumber),
		IsTangerineWhistle: c.IsTangerineWhistle(blockNumber),
		IsSpuriousDragon:   c.IsSpuriousDragon(blockNumber),
		IsEIP158:           c.IsSpuriousDragon(blockNumber),
		IsByzantium:        c.IsByzantium(blockNumber),
		IsConstantinople:   c.IsConstantinople(blockNumber),
		IsIstanbul:         c.IsIstanbul(blockNumber),
		IsBerlin:           c.IsBerlin(blockNumber),
		IsLondon:           c.IsLondon(blockNumber),
		IsMerge:            c.IsMerge(blockNumber),
		IsShanghai:         c.IsShanghai(blockTime),
		IsCancun:           c.IsCancun(blockTime),
		IsPrague:           c.IsPrague(blockTime),
	}
}

func big64(v uint64) *big.Int    { return new(big.Int).SetUint64(v) }
func newUint64(v uint64) *uint64 { return &v }

// MainnetConfig is the chain config for Ethereum mainnet.
var MainnetConfig = &ChainConfig{
	ChainID:               big.NewInt(1),
	HomesteadBlock:        big64(1_150_000),
	TangerineWhistleBlock: big64(2_463_000),
	SpuriousDragonBlock:   big64(2_675_000),
	ByzantiumBlock:        big64(4_370_000),
	ConstantinopleBlock:   big64(7_280_000),
	IstanbulBlock:         big64(9_069_000),
	BerlinBlock:           big64(12_244_000),
	LondonBlock:           big64(12_965_000),
	MergeBlock:            big64(15_537_394),
	ShanghaiTime:          newUint64(1681338455),
	CancunTime:            newUint64(1710338135),
	PragueTime:            nil, // not yet scheduled
}

// TestConfig is a chain config with every fork active at genesis.
var TestConfig = &ChainConfig{
	ChainID:               big.NewInt(1337),
	HomesteadBlock:        big.NewInt(0),
	TangerineWhistleBlock: big.NewInt(0),
	SpuriousDragonBlock:   big.NewInt(0),
	ByzantiumBlock:        big.NewInt(0),
	ConstantinopleBlock:   big.NewInt(0),
	IstanbulBlock:         big.NewInt(0),
	BerlinBlock:           big.NewInt(0),
	LondonBlock:           big.NewInt(0),
	MergeBlock:            big.NewInt(0),
	ShanghaiTime:          newUint64(0),
	CancunTime:            newUint64(0),
	PragueTime:            newUint64(0),
}
