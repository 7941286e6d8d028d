package common

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// BuildExactTx builds an unsigned tx. A nil tipCap builds a legacy tx with
// feeCap as its gas price.
func BuildExactTx(
	chainID *big.Int,
	nonce uint64,
	to common.Address,
	value *big.Int,
	gasLimit uint64,
	feeCap, tipCap *big.Int,
	data []byte,
) *types.Transaction {
	if value == nil {
		value = big.NewInt(0)
	}
	if tipCap != nil {
		return types.NewTx(&types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			GasTipCap: tipCap,
			GasFeeCap: feeCap,
			Gas:       gasLimit,
			To:        &to,
			Value:     value,
			Data:      data,
		})
	}
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: feeCap,
		Gas:      gasLimit,
		To:       &to,
		Value:    value,
		Data:     data,
	})
}

// DynamicFeeCap returns the max fee per gas for a block with baseFee:
// twice the base fee plus the tip, so the tx survives a few full blocks.
func DynamicFeeCap(baseFee, tipCap *big.Int) *big.Int {
	result := new(big.Int).Mul(baseFee, big.NewInt(2))
	return result.Add(result, tipCap)
}

// AddGasBuffer pads an estimated gas limit by percent.
func AddGasBuffer(gas uint64, percent uint64) uint64 {
	return gas + gas*percent/100
}
