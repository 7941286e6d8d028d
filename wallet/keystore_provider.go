package wallet

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	ncommon "github.com/tranvictor/namesvc/common"
	"github.com/tranvictor/namesvc/networks"
	"github.com/tranvictor/namesvc/ui"
	"github.com/tranvictor/namesvc/util/account"
	"github.com/tranvictor/namesvc/util/broadcaster"
	"github.com/tranvictor/namesvc/util/reader"
)

// gasBufferPercent pads estimated gas the way browser wallets do.
const gasBufferPercent = 20

// KeystoreProvider is a wallet living in this process: an encrypted keystore
// file unlocked by passphrase, node readers for the active chain and a
// broadcaster for signed txs. Every approval a browser wallet would show as
// a popup is asked on the terminal.
type KeystoreProvider struct {
	file string
	ui   ui.UI
	log  *zap.Logger

	mu          sync.Mutex
	account     *account.Account
	chains      map[uint64]networks.Network
	active      networks.Network
	reader      *reader.EthReader
	broadcaster *broadcaster.Broadcaster

	listeners chainListeners
}

// NewKeystoreProvider starts on network, the only chain the wallet knows
// until others are added.
func NewKeystoreProvider(file string, network networks.Network, u ui.UI, log *zap.Logger) *KeystoreProvider {
	p := &KeystoreProvider{
		file:   file,
		ui:     u,
		log:    log.Named("keystore-wallet"),
		chains: map[uint64]networks.Network{network.GetChainID(): network},
	}
	p.activate(network)
	return p
}

// activate must be called with mu held or before p is shared.
func (p *KeystoreProvider) activate(n networks.Network) {
	if p.reader != nil {
		p.reader.Close()
	}
	if p.broadcaster != nil {
		p.broadcaster.Close()
	}
	nodes := networks.GetNodes(n)
	p.active = n
	p.reader = reader.NewEthReaderGeneric(nodes)
	p.broadcaster = broadcaster.NewGenericBroadcaster(nodes, p.log)
}

func (p *KeystoreProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reader.Close()
	p.broadcaster.Close()
}

// RequestAccounts unlocks the keystore. An empty passphrase declines.
func (p *KeystoreProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.account != nil {
		return []common.Address{p.account.Address()}, nil
	}
	addr, err := account.KeystoreAddress(p.file)
	if err != nil {
		return nil, err
	}
	p.ui.Info("namesvc wants to connect to account %s", addr.Hex())
	passphrase := p.ui.AskSecret("Keystore passphrase (empty to decline)")
	if passphrase == "" {
		return nil, ErrUserRejected
	}
	acc, err := account.NewKeystoreAccount(p.file, passphrase)
	if err != nil {
		return nil, fmt.Errorf("couldn't unlock keystore: %w", err)
	}
	p.account = acc
	p.log.Info("keystore unlocked", zap.Stringer("account", acc.Address()))
	return []common.Address{acc.Address()}, nil
}

func (p *KeystoreProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.account == nil {
		return []common.Address{}, nil
	}
	return []common.Address{p.account.Address()}, nil
}

func (p *KeystoreProvider) ChainID(ctx context.Context) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active.GetChainID(), nil
}

// SwitchChain asks before switching. The prompt runs without holding mu so
// reads of the account and chain don't wait on the user.
func (p *KeystoreProvider) SwitchChain(ctx context.Context, chainID uint64) error {
	p.mu.Lock()
	active := p.active.GetChainID()
	n, known := p.chains[chainID]
	p.mu.Unlock()
	if active == chainID {
		return nil
	}
	if !known {
		return &ProviderError{Code: CodeChainNotAdded, Message: fmt.Sprintf("unrecognized chain id 0x%x", chainID)}
	}
	if !p.ui.Confirm(fmt.Sprintf("Allow namesvc to switch the network to %s?", n.GetDisplayName()), true) {
		return ErrUserRejected
	}
	p.mu.Lock()
	if p.active.GetChainID() == chainID {
		p.mu.Unlock()
		return nil
	}
	p.activate(n)
	p.mu.Unlock()

	p.log.Info("switched network", zap.String("network", n.GetName()), zap.Uint64("chain_id", chainID))
	p.listeners.emit(chainID)
	return nil
}

// AddChain remembers d so a later SwitchChain can use it. Adding a known
// chain succeeds without asking. Like SwitchChain it prompts without mu held.
func (p *KeystoreProvider) AddChain(ctx context.Context, d networks.ChainDescriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	_, known := p.chains[d.ChainIDUint64()]
	p.mu.Unlock()
	if known {
		return nil
	}
	p.ui.Section("Add network")
	p.ui.KeyValue([][2]string{
		{"Network", d.ChainName},
		{"Chain ID", fmt.Sprintf("%d", d.ChainIDUint64())},
		{"RPC", fmt.Sprintf("%v", d.RPCURLs)},
		{"Currency", d.NativeCurrency.Symbol},
	})
	if !p.ui.Confirm("Allow namesvc to add this network?", true) {
		return ErrUserRejected
	}
	p.mu.Lock()
	p.chains[d.ChainIDUint64()] = networks.NetworkFromDescriptor(d)
	p.mu.Unlock()
	p.log.Info("added network", zap.Uint64("chain_id", d.ChainIDUint64()), zap.String("name", d.ChainName))
	return nil
}

func (p *KeystoreProvider) OnChainChanged(handler func(chainID uint64)) func() {
	return p.listeners.add(handler)
}

func (p *KeystoreProvider) current() (*reader.EthReader, *broadcaster.Broadcaster, networks.Network, *account.Account) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reader, p.broadcaster, p.active, p.account
}

func (p *KeystoreProvider) Call(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	r, _, _, _ := p.current()
	return r.CallContract(ctx, msg)
}

func (p *KeystoreProvider) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	r, _, _, _ := p.current()
	return r.TransactionReceipt(ctx, hash)
}

// SendTransaction fills in nonce, gas and fees from the active chain, shows
// the tx for approval, signs and broadcasts it.
func (p *KeystoreProvider) SendTransaction(ctx context.Context, msg ethereum.CallMsg) (common.Hash, error) {
	r, b, network, acc := p.current()
	if acc == nil || acc.Address() != msg.From {
		return common.Hash{}, ErrUnauthorized
	}
	if msg.To == nil {
		return common.Hash{}, fmt.Errorf("contract creation is not supported")
	}
	tx, err := p.buildTx(ctx, r, network, msg)
	if err != nil {
		return common.Hash{}, err
	}

	p.ui.Section("Confirm tx data before signing")
	rows := [][2]string{
		{"From", msg.From.Hex()},
		{"To", msg.To.Hex()},
		{"Value", fmt.Sprintf("%s %s", ncommon.BigToFloatString(tx.Value(), network.GetNativeTokenDecimal()), network.GetNativeTokenSymbol())},
		{"Nonce", fmt.Sprintf("%d", tx.Nonce())},
		{"Gas limit", fmt.Sprintf("%d", tx.Gas())},
		{"Max fee", fmt.Sprintf("%s gwei", ncommon.BigToFloatString(tx.GasFeeCap(), 9))},
		{"Network", network.GetDisplayName()},
	}
	p.ui.KeyValue(rows)
	if !p.ui.Confirm("Sign and broadcast?", false) {
		return common.Hash{}, ErrUserRejected
	}

	signed, err := acc.SignTx(tx, new(big.Int).SetUint64(network.GetChainID()))
	if err != nil {
		return common.Hash{}, err
	}
	hash, err := b.BroadcastTx(ctx, signed)
	if err != nil {
		return common.Hash{}, err
	}
	p.log.Info("broadcasted tx", zap.Stringer("hash", hash), zap.Uint64("nonce", signed.Nonce()))
	return hash, nil
}

func (p *KeystoreProvider) buildTx(ctx context.Context, r *reader.EthReader, network networks.Network, msg ethereum.CallMsg) (*types.Transaction, error) {
	nonce, err := r.GetPendingNonce(ctx, msg.From)
	if err != nil {
		return nil, fmt.Errorf("couldn't get nonce: %w", err)
	}
	gas := msg.Gas
	if gas == 0 {
		estimated, err := r.EstimateGas(ctx, msg)
		if err != nil {
			return nil, fmt.Errorf("couldn't estimate gas: %w", err)
		}
		gas = ncommon.AddGasBuffer(estimated, gasBufferPercent)
	}

	dynamic, baseFee, err := r.CheckDynamicFeeTxAvailable(ctx)
	if err != nil {
		return nil, err
	}
	var feeCap, tipCap *big.Int
	if dynamic {
		tipCap, err = r.SuggestedGasTipCap(ctx)
		if err != nil {
			return nil, fmt.Errorf("couldn't get gas tip cap: %w", err)
		}
		feeCap = ncommon.DynamicFeeCap(baseFee, tipCap)
	} else {
		feeCap, err = r.SuggestedGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("couldn't get gas price: %w", err)
		}
	}
	return ncommon.BuildExactTx(
		new(big.Int).SetUint64(network.GetChainID()),
		nonce,
		*msg.To,
		msg.Value,
		gas,
		feeCap,
		tipCap,
		msg.Data,
	), nil
}
