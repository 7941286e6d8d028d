package wallet

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/tranvictor/namesvc/networks"
)

const DefaultChainPollInterval = 2 * time.Second

// RPCProvider talks to a wallet that serves EIP-1193 methods over JSON-RPC,
// such as a local wallet bridge.
type RPCProvider struct {
	client       *rpc.Client
	pollInterval time.Duration
	log          *zap.Logger

	listeners chainListeners

	watchOnce sync.Once
	stopWatch context.CancelFunc
	mu        sync.Mutex
}

func DialRPCProvider(ctx context.Context, url string, pollInterval time.Duration, log *zap.Logger) (*RPCProvider, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("couldn't dial wallet at %s: %w", url, err)
	}
	return NewRPCProvider(client, pollInterval, log), nil
}

func NewRPCProvider(client *rpc.Client, pollInterval time.Duration, log *zap.Logger) *RPCProvider {
	if pollInterval <= 0 {
		pollInterval = DefaultChainPollInterval
	}
	return &RPCProvider{
		client:       client,
		pollInterval: pollInterval,
		log:          log.Named("rpc-wallet"),
	}
}

func (p *RPCProvider) Close() {
	p.mu.Lock()
	if p.stopWatch != nil {
		p.stopWatch()
	}
	p.mu.Unlock()
	p.client.Close()
}

func (p *RPCProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	err := p.client.CallContext(ctx, &accounts, "eth_requestAccounts")
	return accounts, fromRPC("eth_requestAccounts", err)
}

func (p *RPCProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	err := p.client.CallContext(ctx, &accounts, "eth_accounts")
	return accounts, fromRPC("eth_accounts", err)
}

func (p *RPCProvider) ChainID(ctx context.Context) (uint64, error) {
	var id hexutil.Uint64
	if err := p.client.CallContext(ctx, &id, "eth_chainId"); err != nil {
		return 0, fromRPC("eth_chainId", err)
	}
	return uint64(id), nil
}

type switchChainParams struct {
	ChainID hexutil.Uint64 `json:"chainId"`
}

func (p *RPCProvider) SwitchChain(ctx context.Context, chainID uint64) error {
	err := p.client.CallContext(ctx, nil, "wallet_switchEthereumChain", switchChainParams{hexutil.Uint64(chainID)})
	return fromRPC("wallet_switchEthereumChain", err)
}

func (p *RPCProvider) AddChain(ctx context.Context, d networks.ChainDescriptor) error {
	err := p.client.CallContext(ctx, nil, "wallet_addEthereumChain", d)
	return fromRPC("wallet_addEthereumChain", err)
}

func toCallArg(msg ethereum.CallMsg) any {
	arg := map[string]any{
		"from": msg.From,
	}
	if msg.To != nil {
		arg["to"] = msg.To
	}
	if len(msg.Data) > 0 {
		arg["data"] = hexutil.Bytes(msg.Data)
	}
	if msg.Value != nil {
		arg["value"] = (*hexutil.Big)(msg.Value)
	}
	if msg.Gas != 0 {
		arg["gas"] = hexutil.Uint64(msg.Gas)
	}
	return arg
}

func (p *RPCProvider) Call(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	var out hexutil.Bytes
	if err := p.client.CallContext(ctx, &out, "eth_call", toCallArg(msg), "latest"); err != nil {
		return nil, fromRPC("eth_call", err)
	}
	return out, nil
}

func (p *RPCProvider) SendTransaction(ctx context.Context, msg ethereum.CallMsg) (common.Hash, error) {
	var hash common.Hash
	err := p.client.CallContext(ctx, &hash, "eth_sendTransaction", toCallArg(msg))
	return hash, fromRPC("eth_sendTransaction", err)
}

func (p *RPCProvider) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt
	if err := p.client.CallContext(ctx, &receipt, "eth_getTransactionReceipt", hash); err != nil {
		return nil, fromRPC("eth_getTransactionReceipt", err)
	}
	if receipt == nil {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

// OnChainChanged starts watching the wallet on first use. Transports with
// notifications get an eth_subscribe("chainChanged") subscription, the others
// are polled with eth_chainId. A dropped subscription falls back to polling.
func (p *RPCProvider) OnChainChanged(handler func(chainID uint64)) func() {
	unsubscribe := p.listeners.add(handler)
	p.watchOnce.Do(p.startWatching)
	return unsubscribe
}

func (p *RPCProvider) startWatching() {
	ctx, cancel := context.WithCancel(context.Background())
	p.mu.Lock()
	p.stopWatch = cancel
	p.mu.Unlock()

	initialCtx, initialCancel := context.WithTimeout(ctx, p.pollInterval)
	last, err := p.ChainID(initialCtx)
	initialCancel()
	if err != nil {
		p.log.Warn("couldn't read initial chain id", zap.Error(err))
	}

	ch := make(chan hexutil.Uint64, 4)
	sub, err := p.client.Subscribe(ctx, "eth", ch, "chainChanged")
	if err == nil {
		p.log.Debug("subscribed to chainChanged")
		go p.forward(ctx, sub, ch, last)
		return
	}
	p.log.Debug("chainChanged subscription unavailable, polling", zap.Error(err), zap.Duration("interval", p.pollInterval))
	go p.poll(ctx, last)
}

// forward emits every notification of sub. When sub fails while ctx is still
// live, the chain is polled from the last known id instead.
func (p *RPCProvider) forward(ctx context.Context, sub ethereum.Subscription, ch <-chan hexutil.Uint64, last uint64) {
	for {
		select {
		case id := <-ch:
			last = uint64(id)
			p.listeners.emit(last)
		case err := <-sub.Err():
			sub.Unsubscribe()
			if err == nil || ctx.Err() != nil {
				return
			}
			p.log.Warn("chainChanged subscription dropped, polling", zap.Error(err), zap.Duration("interval", p.pollInterval))
			p.poll(ctx, last)
			return
		case <-ctx.Done():
			sub.Unsubscribe()
			return
		}
	}
}

func (p *RPCProvider) poll(ctx context.Context, last uint64) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			callCtx, cancel := context.WithTimeout(ctx, p.pollInterval)
			id, err := p.ChainID(callCtx)
			cancel()
			if err != nil {
				p.log.Debug("chain id poll failed", zap.Error(err))
				continue
			}
			if id != last {
				last = id
				p.log.Info("wallet changed network", zap.Uint64("chain_id", id))
				p.listeners.emit(id)
			}
		}
	}
}

