package wallet

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/tranvictor/namesvc/networks"
)

// Session is the account and network the wallet currently reports. It is a
// value: callers replace it wholesale rather than editing fields.
type Session struct {
	Account common.Address
	Network networks.Network
}

func (s Session) Connected() bool {
	return s.Account != (common.Address{})
}

func (s Session) ChainID() uint64 {
	if s.Network == nil {
		return 0
	}
	return s.Network.GetChainID()
}

func (s Session) NetworkName() string {
	if s.Network == nil {
		return ""
	}
	return s.Network.GetDisplayName()
}

// Manager reads the session from a Provider. A Manager without a provider
// answers every call with ErrProviderAbsent.
type Manager struct {
	provider Provider
	log      *zap.Logger
}

func NewManager(p Provider, log *zap.Logger) *Manager {
	return &Manager{provider: p, log: log.Named("wallet")}
}

func (m *Manager) DetectProvider() (Provider, error) {
	if m.provider == nil {
		return nil, ErrProviderAbsent
	}
	return m.provider, nil
}

// RequestAccount asks the wallet for access and returns the first authorized
// address. An approval that yields no account counts as a rejection.
func (m *Manager) RequestAccount(ctx context.Context) (common.Address, error) {
	p, err := m.DetectProvider()
	if err != nil {
		return common.Address{}, err
	}
	accounts, err := p.RequestAccounts(ctx)
	if err != nil {
		return common.Address{}, err
	}
	if len(accounts) == 0 {
		return common.Address{}, fmt.Errorf("wallet returned no accounts: %w", ErrUserRejected)
	}
	m.log.Info("connected", zap.Stringer("account", accounts[0]))
	return accounts[0], nil
}

// ReadAuthorizedAccount returns the zero address when nothing is authorized.
func (m *Manager) ReadAuthorizedAccount(ctx context.Context) (common.Address, error) {
	p, err := m.DetectProvider()
	if err != nil {
		return common.Address{}, err
	}
	accounts, err := p.Accounts(ctx)
	if err != nil {
		return common.Address{}, err
	}
	if len(accounts) == 0 {
		m.log.Debug("no authorized account found")
		return common.Address{}, nil
	}
	return accounts[0], nil
}

// ReadActiveNetwork maps ids outside the static table to networks.Unknown.
func (m *Manager) ReadActiveNetwork(ctx context.Context) (networks.Network, error) {
	p, err := m.DetectProvider()
	if err != nil {
		return nil, err
	}
	id, err := p.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	return networks.NetworkByChainID(id), nil
}

// OnNetworkChanged is a no-op without a provider.
func (m *Manager) OnNetworkChanged(handler func(chainID uint64)) (unsubscribe func()) {
	if m.provider == nil {
		return func() {}
	}
	return m.provider.OnChainChanged(handler)
}

// Sync reads both halves of the session.
func (m *Manager) Sync(ctx context.Context) (Session, error) {
	account, err := m.ReadAuthorizedAccount(ctx)
	if err != nil {
		return Session{}, err
	}
	network, err := m.ReadActiveNetwork(ctx)
	if err != nil {
		return Session{}, err
	}
	return Session{Account: account, Network: network}, nil
}
