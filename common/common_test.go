package common

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimalStringToBig(t *testing.T) {
	v, err := DecimalStringToBig("0.0005", 18)
	require.NoError(t, err)
	assert.Equal(t, "500000000000000", v.String())

	v, err = DecimalStringToBig("1.5", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(150), v.Int64())

	_, err = DecimalStringToBig("0.001", 2)
	assert.Error(t, err)

	_, err = DecimalStringToBig("abc", 18)
	assert.Error(t, err)
}

func TestBigToFloatString(t *testing.T) {
	assert.Equal(t, "0.0005", BigToFloatString(big.NewInt(500000000000000), 18))
	assert.Equal(t, "11", BigToFloatString(big.NewInt(1100), 2))
	assert.Equal(t, "0.011", BigToFloatString(big.NewInt(1100), 5))
	assert.Equal(t, "0", BigToFloatString(big.NewInt(0), 18))
	assert.Equal(t, "0", BigToFloatString(nil, 18))
}

func TestSameAddress(t *testing.T) {
	assert.True(t, SameAddress("0xABCDEF0000000000000000000000000000000001", "0xabcdef0000000000000000000000000000000001"))
	assert.False(t, SameAddress("0xabcdef0000000000000000000000000000000001", "0xabcdef0000000000000000000000000000000002"))
	assert.False(t, SameAddress("", ""))
}

func TestShortAddress(t *testing.T) {
	addr := common.HexToAddress("0x1417CbB2259d9657aEe014CcE8eaa4033230C0b3")
	assert.Equal(t, "0x1417...C0b3", ShortAddress(addr))
	assert.Equal(t, "", ShortAddress(common.Address{}))
}

func TestBuildExactTx(t *testing.T) {
	to := common.HexToAddress("0x1417CbB2259d9657aEe014CcE8eaa4033230C0b3")
	legacy := BuildExactTx(big.NewInt(80001), 3, to, big.NewInt(10), 21000, big.NewInt(5), nil, nil)
	assert.Equal(t, uint8(types.LegacyTxType), legacy.Type())
	assert.Equal(t, int64(5), legacy.GasPrice().Int64())

	dynamic := BuildExactTx(big.NewInt(80001), 3, to, nil, 21000, big.NewInt(50), big.NewInt(2), []byte{1})
	assert.Equal(t, uint8(types.DynamicFeeTxType), dynamic.Type())
	assert.Equal(t, int64(0), dynamic.Value().Int64())
	assert.Equal(t, int64(2), dynamic.GasTipCap().Int64())
	assert.Equal(t, uint64(80001), dynamic.ChainId().Uint64())
}

func TestRunParallel(t *testing.T) {
	n, err := RunParallel(
		func() error { return nil },
		func() error { return errors.New("a") },
		func() error { return errors.New("b") },
	)
	assert.Equal(t, 2, n)
	assert.Error(t, err)

	n, err = RunParallel(func() error { return nil })
	assert.Equal(t, 0, n)
	assert.NoError(t, err)
}
