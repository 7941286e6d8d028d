// Package wallettest provides an in-memory wallet.Provider for tests.
package wallettest

import (
	"context"
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/tranvictor/namesvc/networks"
	"github.com/tranvictor/namesvc/wallet"
)

// ChainBackend answers the contract-facing half of a wallet.
type ChainBackend interface {
	Call(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
	SendTransaction(ctx context.Context, msg ethereum.CallMsg) (common.Hash, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

var errNoBackend = errors.New("wallettest: no chain backend")

// Provider is a scriptable wallet. Exported fields are read on each call and
// may be set before the provider is shared.
type Provider struct {
	// Approved is what RequestAccounts grants; it becomes Authorized.
	Approved   []common.Address
	Authorized []common.Address
	RequestErr error

	Chain uint64
	// Known lists chains the wallet can switch to without adding them first.
	// A nil map knows every chain.
	Known map[uint64]bool
	// SwitchErrs are returned by successive SwitchChain calls before the
	// normal behaviour resumes.
	SwitchErrs []error
	AddErr     error
	Added      []networks.ChainDescriptor

	Backend ChainBackend

	mu        sync.Mutex
	calls     []string
	next      int
	listeners map[int]func(uint64)
}

func New(chain uint64) *Provider {
	return &Provider{Chain: chain, listeners: map[int]func(uint64){}}
}

func (p *Provider) record(call string) {
	p.calls = append(p.calls, call)
}

// Calls returns the provider methods called so far, in order.
func (p *Provider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// CountCalls returns how many times method was called.
func (p *Provider) CountCalls(method string) int {
	n := 0
	for _, c := range p.Calls() {
		if c == method {
			n++
		}
	}
	return n
}

// SetChain changes the active chain as if the user switched in the wallet UI.
func (p *Provider) SetChain(id uint64) {
	p.mu.Lock()
	p.Chain = id
	p.mu.Unlock()
	p.emit(id)
}

// SetAuthorized replaces the authorized accounts.
func (p *Provider) SetAuthorized(accounts ...common.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Authorized = accounts
}

func (p *Provider) emit(id uint64) {
	p.mu.Lock()
	hs := []func(uint64){}
	for _, h := range p.listeners {
		hs = append(hs, h)
	}
	p.mu.Unlock()
	for _, h := range hs {
		h(id)
	}
}

func (p *Provider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("eth_requestAccounts")
	if p.RequestErr != nil {
		return nil, p.RequestErr
	}
	p.Authorized = p.Approved
	return p.Approved, nil
}

func (p *Provider) Accounts(ctx context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("eth_accounts")
	return p.Authorized, nil
}

func (p *Provider) ChainID(ctx context.Context) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("eth_chainId")
	return p.Chain, nil
}

func (p *Provider) SwitchChain(ctx context.Context, chainID uint64) error {
	p.mu.Lock()
	p.record("wallet_switchEthereumChain")
	if len(p.SwitchErrs) > 0 {
		err := p.SwitchErrs[0]
		p.SwitchErrs = p.SwitchErrs[1:]
		if err != nil {
			p.mu.Unlock()
			return err
		}
	}
	if p.Known != nil && !p.Known[chainID] {
		p.mu.Unlock()
		return wallet.ErrChainNotAdded
	}
	changed := p.Chain != chainID
	p.Chain = chainID
	p.mu.Unlock()
	if changed {
		p.emit(chainID)
	}
	return nil
}

func (p *Provider) AddChain(ctx context.Context, d networks.ChainDescriptor) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("wallet_addEthereumChain")
	if p.AddErr != nil {
		return p.AddErr
	}
	if p.Known != nil {
		p.Known[d.ChainIDUint64()] = true
	}
	p.Added = append(p.Added, d)
	return nil
}

func (p *Provider) OnChainChanged(handler func(chainID uint64)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listeners == nil {
		p.listeners = map[int]func(uint64){}
	}
	id := p.next
	p.next++
	p.listeners[id] = handler
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

func (p *Provider) backend(call string) (ChainBackend, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record(call)
	if p.Backend == nil {
		return nil, errNoBackend
	}
	return p.Backend, nil
}

func (p *Provider) Call(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	b, err := p.backend("eth_call")
	if err != nil {
		return nil, err
	}
	return b.Call(ctx, msg)
}

func (p *Provider) SendTransaction(ctx context.Context, msg ethereum.CallMsg) (common.Hash, error) {
	b, err := p.backend("eth_sendTransaction")
	if err != nil {
		return common.Hash{}, err
	}
	return b.SendTransaction(ctx, msg)
}

func (p *Provider) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	b, err := p.backend("eth_getTransactionReceipt")
	if err != nil {
		return nil, err
	}
	return b.TransactionReceipt(ctx, hash)
}

var _ wallet.Provider = (*Provider)(nil)
