package wallet

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tranvictor/namesvc/networks"
)

var testAccount = common.HexToAddress("0x00000000000000000000000000000000000a11ce")

// bridge is a wallet served over JSON-RPC the way a browser extension bridge
// would serve it.
type bridge struct {
	chainID  atomic.Uint64
	approve  bool
	changes  chan uint64
	mu       sync.Mutex
	known    map[uint64]bool
	switched []uint64
	added    []networks.ChainDescriptor
}

type bridgeEth struct{ b *bridge }

func (e *bridgeEth) RequestAccounts() ([]common.Address, error) {
	if !e.b.approve {
		return nil, &ProviderError{Code: CodeUserRejected, Message: "User rejected the request."}
	}
	return []common.Address{testAccount}, nil
}

func (e *bridgeEth) Accounts() []common.Address {
	return []common.Address{}
}

func (e *bridgeEth) ChainId() hexutil.Uint64 {
	return hexutil.Uint64(e.b.chainID.Load())
}

func (e *bridgeEth) GetTransactionReceipt(hash common.Hash) (*types.Receipt, error) {
	return nil, nil
}

func (e *bridgeEth) ChainChanged(ctx context.Context) (*rpc.Subscription, error) {
	notifier, ok := rpc.NotifierFromContext(ctx)
	if !ok {
		return nil, rpc.ErrNotificationsUnsupported
	}
	sub := notifier.CreateSubscription()
	go func() {
		for {
			select {
			case id := <-e.b.changes:
				notifier.Notify(sub.ID, hexutil.Uint64(id))
			case <-sub.Err():
				return
			}
		}
	}()
	return sub, nil
}

type bridgeWallet struct{ b *bridge }

func (w *bridgeWallet) SwitchEthereumChain(params switchChainParams) error {
	w.b.mu.Lock()
	defer w.b.mu.Unlock()
	if !w.b.known[uint64(params.ChainID)] {
		return &ProviderError{Code: CodeChainNotAdded, Message: "Unrecognized chain ID"}
	}
	w.b.switched = append(w.b.switched, uint64(params.ChainID))
	w.b.chainID.Store(uint64(params.ChainID))
	return nil
}

func (w *bridgeWallet) AddEthereumChain(d networks.ChainDescriptor) error {
	w.b.mu.Lock()
	defer w.b.mu.Unlock()
	w.b.known[d.ChainIDUint64()] = true
	w.b.added = append(w.b.added, d)
	return nil
}

func newBridgeServer(t *testing.T, b *bridge) *rpc.Server {
	t.Helper()
	srv := rpc.NewServer()
	require.NoError(t, srv.RegisterName("eth", &bridgeEth{b}))
	require.NoError(t, srv.RegisterName("wallet", &bridgeWallet{b}))
	t.Cleanup(srv.Stop)
	return srv
}

func newBridge(chain uint64) *bridge {
	b := &bridge{changes: make(chan uint64), known: map[uint64]bool{chain: true}, approve: true}
	b.chainID.Store(chain)
	return b
}

func TestRPCProviderAccountsAndChain(t *testing.T) {
	b := newBridge(1)
	p := NewRPCProvider(rpc.DialInProc(newBridgeServer(t, b)), time.Second, zaptest.NewLogger(t))
	defer p.Close()
	ctx := context.Background()

	accounts, err := p.RequestAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{testAccount}, accounts)

	accounts, err = p.Accounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)

	id, err := p.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	b.approve = false
	_, err = p.RequestAccounts(ctx)
	assert.ErrorIs(t, err, ErrUserRejected)
}

func TestRPCProviderSwitchUnknownChainCarriesCode(t *testing.T) {
	b := newBridge(1)
	p := NewRPCProvider(rpc.DialInProc(newBridgeServer(t, b)), time.Second, zaptest.NewLogger(t))
	defer p.Close()
	ctx := context.Background()

	err := p.SwitchChain(ctx, 80001)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChainNotAdded)
	assert.Equal(t, CodeChainNotAdded, Code(err))

	require.NoError(t, p.AddChain(ctx, networks.Descriptor(networks.Mumbai)))
	require.NoError(t, p.SwitchChain(ctx, 80001))

	b.mu.Lock()
	defer b.mu.Unlock()
	require.Len(t, b.added, 1)
	assert.Equal(t, "Polygon Mumbai Testnet", b.added[0].ChainName)
	assert.Equal(t, []uint64{80001}, b.switched)
}

func TestRPCProviderReceiptNotFound(t *testing.T) {
	b := newBridge(1)
	p := NewRPCProvider(rpc.DialInProc(newBridgeServer(t, b)), time.Second, zaptest.NewLogger(t))
	defer p.Close()

	_, err := p.TransactionReceipt(context.Background(), common.Hash{1})
	assert.ErrorIs(t, err, ethereum.NotFound)
}

func TestRPCProviderChainChangedSubscription(t *testing.T) {
	b := newBridge(1)
	p := NewRPCProvider(rpc.DialInProc(newBridgeServer(t, b)), time.Hour, zaptest.NewLogger(t))
	defer p.Close()

	var got atomic.Uint64
	p.OnChainChanged(func(id uint64) { got.Store(id) })
	b.changes <- 80001

	require.Eventually(t, func() bool { return got.Load() == 80001 }, 2*time.Second, 5*time.Millisecond)
}

func TestRPCProviderChainChangedPollingOverHTTP(t *testing.T) {
	b := newBridge(1)
	hs := httptest.NewServer(newBridgeServer(t, b))
	defer hs.Close()
	client, err := rpc.DialHTTP(hs.URL)
	require.NoError(t, err)
	p := NewRPCProvider(client, 10*time.Millisecond, zaptest.NewLogger(t))
	defer p.Close()

	var got atomic.Uint64
	p.OnChainChanged(func(id uint64) { got.Store(id) })
	b.chainID.Store(80001)

	require.Eventually(t, func() bool { return got.Load() == 80001 }, 2*time.Second, 5*time.Millisecond)
}

// droppingSub stands in for a subscription whose connection goes away.
type droppingSub struct{ err chan error }

func (s *droppingSub) Err() <-chan error { return s.err }
func (s *droppingSub) Unsubscribe()      {}

func TestRPCProviderPollsAfterSubscriptionDrops(t *testing.T) {
	b := newBridge(1)
	p := NewRPCProvider(rpc.DialInProc(newBridgeServer(t, b)), 10*time.Millisecond, zaptest.NewLogger(t))
	defer p.Close()

	var got atomic.Uint64
	p.listeners.add(func(id uint64) { got.Store(id) })

	ctx, cancel := context.WithCancel(context.Background())
	sub := &droppingSub{err: make(chan error, 1)}
	ch := make(chan hexutil.Uint64)
	var done atomic.Bool
	go func() {
		p.forward(ctx, sub, ch, 1)
		done.Store(true)
	}()

	b.chainID.Store(137)
	ch <- 137
	require.Eventually(t, func() bool { return got.Load() == 137 }, 2*time.Second, 5*time.Millisecond)

	sub.err <- errors.New("websocket: close 1006 (abnormal closure)")
	b.chainID.Store(80001)
	require.Eventually(t, func() bool { return got.Load() == 80001 }, 2*time.Second, 5*time.Millisecond)
	assert.False(t, done.Load(), "still watching")

	cancel()
	require.Eventually(t, done.Load, 2*time.Second, 5*time.Millisecond)
}

func TestRPCProviderStopsOnUnsubscribe(t *testing.T) {
	b := newBridge(1)
	p := NewRPCProvider(rpc.DialInProc(newBridgeServer(t, b)), 10*time.Millisecond, zaptest.NewLogger(t))
	defer p.Close()

	sub := &droppingSub{err: make(chan error)}
	var done atomic.Bool
	go func() {
		p.forward(context.Background(), sub, make(chan hexutil.Uint64), 1)
		done.Store(true)
	}()
	close(sub.err)
	require.Eventually(t, done.Load, 2*time.Second, 5*time.Millisecond)
}
