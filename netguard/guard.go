// Package netguard keeps mutating actions on the one network the registry
// lives on.
package netguard

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tranvictor/namesvc/networks"
	"github.com/tranvictor/namesvc/wallet"
)

var ErrSwitchFailed = errors.New("couldn't switch the wallet network")

type Guard struct {
	provider wallet.Provider
	target   networks.Network
	log      *zap.Logger
}

// New guards against target. A nil provider makes every EnsureNetwork fail
// with wallet.ErrProviderAbsent.
func New(p wallet.Provider, target networks.Network, log *zap.Logger) *Guard {
	return &Guard{provider: p, target: target, log: log.Named("netguard")}
}

func (g *Guard) Target() networks.Network {
	return g.target
}

// IsOnRequiredNetwork compares chain ids, so an empty session and the
// Unknown sentinel never pass.
func (g *Guard) IsOnRequiredNetwork(s wallet.Session) bool {
	if networks.IsUnknown(s.Network) {
		return false
	}
	return s.Network.GetChainID() == g.target.GetChainID()
}

// EnsureNetwork asks the wallet to switch to the target. A wallet that does
// not know the chain gets exactly one add request followed by exactly one
// more switch. Callers must read the network again afterwards instead of
// assuming the switch happened.
func (g *Guard) EnsureNetwork(ctx context.Context) error {
	if g.provider == nil {
		return wallet.ErrProviderAbsent
	}
	chainID := g.target.GetChainID()
	err := g.provider.SwitchChain(ctx, chainID)
	if err == nil {
		g.log.Info("switched network", zap.Uint64("chain_id", chainID))
		return nil
	}
	if !errors.Is(err, wallet.ErrChainNotAdded) {
		return g.failed(err)
	}

	g.log.Info("wallet doesn't know the network, adding it", zap.Uint64("chain_id", chainID))
	if err := g.provider.AddChain(ctx, networks.Descriptor(g.target)); err != nil {
		return g.failed(err)
	}
	if err := g.provider.SwitchChain(ctx, chainID); err != nil {
		return g.failed(err)
	}
	g.log.Info("added and switched network", zap.Uint64("chain_id", chainID))
	return nil
}

func (g *Guard) failed(err error) error {
	g.log.Warn("network switch failed", zap.String("target", g.target.GetDisplayName()), zap.Error(err))
	return fmt.Errorf("%w to %s: %w", ErrSwitchFailed, g.target.GetDisplayName(), err)
}
