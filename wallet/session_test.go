package wallet_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tranvictor/namesvc/networks"
	"github.com/tranvictor/namesvc/wallet"
	"github.com/tranvictor/namesvc/wallet/wallettest"
)

var alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")

func TestManagerWithoutProvider(t *testing.T) {
	m := wallet.NewManager(nil, zaptest.NewLogger(t))
	ctx := context.Background()

	_, err := m.DetectProvider()
	assert.ErrorIs(t, err, wallet.ErrProviderAbsent)
	_, err = m.RequestAccount(ctx)
	assert.ErrorIs(t, err, wallet.ErrProviderAbsent)
	_, err = m.ReadAuthorizedAccount(ctx)
	assert.ErrorIs(t, err, wallet.ErrProviderAbsent)
	_, err = m.ReadActiveNetwork(ctx)
	assert.ErrorIs(t, err, wallet.ErrProviderAbsent)
	_, err = m.Sync(ctx)
	assert.ErrorIs(t, err, wallet.ErrProviderAbsent)
	assert.NotPanics(t, func() { m.OnNetworkChanged(func(uint64) {})() })
}

func TestRequestAccountReturnsFirstApproved(t *testing.T) {
	p := wallettest.New(80001)
	p.Approved = []common.Address{alice, common.HexToAddress("0xb0b")}
	m := wallet.NewManager(p, zaptest.NewLogger(t))

	addr, err := m.RequestAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, alice, addr)
}

func TestRequestAccountRejected(t *testing.T) {
	p := wallettest.New(80001)
	p.RequestErr = wallet.ErrUserRejected
	m := wallet.NewManager(p, zaptest.NewLogger(t))

	_, err := m.RequestAccount(context.Background())
	assert.ErrorIs(t, err, wallet.ErrUserRejected)

	p.RequestErr = nil
	_, err = m.RequestAccount(context.Background())
	assert.ErrorIs(t, err, wallet.ErrUserRejected, "empty approval is a rejection")
}

func TestReadAuthorizedAccountDoesNotPrompt(t *testing.T) {
	p := wallettest.New(80001)
	m := wallet.NewManager(p, zaptest.NewLogger(t))

	addr, err := m.ReadAuthorizedAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, common.Address{}, addr)
	assert.Equal(t, 0, p.CountCalls("eth_requestAccounts"))
}

func TestReadActiveNetworkMapsUnknownIDs(t *testing.T) {
	p := wallettest.New(80001)
	m := wallet.NewManager(p, zaptest.NewLogger(t))

	n, err := m.ReadActiveNetwork(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Polygon Mumbai Testnet", n.GetDisplayName())

	p.SetChain(31337)
	n, err = m.ReadActiveNetwork(context.Background())
	require.NoError(t, err)
	assert.True(t, networks.IsUnknown(n))
	assert.Equal(t, "Unknown", n.GetDisplayName())
}

func TestSyncAndNetworkChanged(t *testing.T) {
	p := wallettest.New(1)
	p.SetAuthorized(alice)
	m := wallet.NewManager(p, zaptest.NewLogger(t))

	var got []uint64
	unsubscribe := m.OnNetworkChanged(func(id uint64) { got = append(got, id) })
	p.SetChain(80001)

	s, err := m.Sync(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Connected())
	assert.Equal(t, uint64(80001), s.ChainID())
	assert.Equal(t, []uint64{80001}, got)

	unsubscribe()
	p.SetChain(1)
	assert.Equal(t, []uint64{80001}, got)
}

func TestProviderErrorMatchesByCode(t *testing.T) {
	err := &wallet.ProviderError{Code: wallet.CodeChainNotAdded, Message: "Unrecognized chain ID"}
	wrapped := errors.Join(errors.New("switch"), err)

	assert.ErrorIs(t, wrapped, wallet.ErrChainNotAdded)
	assert.NotErrorIs(t, wrapped, wallet.ErrUserRejected)
	assert.Equal(t, wallet.CodeChainNotAdded, wallet.Code(wrapped))
	assert.Equal(t, 0, wallet.Code(errors.New("plain")))
}

func TestZeroSession(t *testing.T) {
	var s wallet.Session
	assert.False(t, s.Connected())
	assert.Equal(t, uint64(0), s.ChainID())
	assert.Equal(t, "", s.NetworkName())
}
