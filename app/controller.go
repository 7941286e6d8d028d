// Package app owns the application state and drives every user intent:
// connecting, switching network, minting a name and updating its record.
package app

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/tranvictor/namesvc/mints"
	"github.com/tranvictor/namesvc/netguard"
	"github.com/tranvictor/namesvc/registry"
	"github.com/tranvictor/namesvc/ui"
	"github.com/tranvictor/namesvc/wallet"
)

const defaultResyncTimeout = 15 * time.Second

// Registry submits the two mutating registry calls.
type Registry interface {
	Register(ctx context.Context, from common.Address, name string, payment *big.Int) (registry.Tx, error)
	SetRecord(ctx context.Context, from common.Address, name, text string) (registry.Tx, error)
}

// MintList is rebuilt after every confirmed change.
type MintList interface {
	Refresh(ctx context.Context) error
}

type Options struct {
	// RefreshDelay is waited before refreshing the list after a mint. It
	// gives nodes time to index the new name and guarantees nothing.
	RefreshDelay time.Duration
	// ConfirmTimeout bounds each receipt wait; 0 waits until ctx is done.
	ConfirmTimeout time.Duration
	// ResyncTimeout bounds the session re-sync after a network change.
	ResyncTimeout time.Duration
}

type Deps struct {
	Wallet   *wallet.Manager
	Guard    *netguard.Guard
	Registry Registry
	Mints    MintList
	UI       ui.UI
	Log      *zap.Logger
}

// Controller is the single owner of State. Components it calls never keep
// state of their own about the session or the form.
type Controller struct {
	wallet   *wallet.Manager
	guard    *netguard.Guard
	registry Registry
	mints    MintList
	ui       ui.UI
	log      *zap.Logger
	opts     Options

	mu    sync.Mutex
	state State

	// held for the whole of a mint or update
	txMu sync.Mutex

	// set while SwitchNetwork runs, which re-syncs and refreshes itself
	switching bool

	unsubscribe func()
}

func NewController(d Deps, opts Options) *Controller {
	if opts.ResyncTimeout <= 0 {
		opts.ResyncTimeout = defaultResyncTimeout
	}
	return &Controller{
		wallet:   d.Wallet,
		guard:    d.Guard,
		registry: d.Registry,
		mints:    d.Mints,
		ui:       d.UI,
		log:      d.Log.Named("app"),
		opts:     opts,
	}
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) update(fn func(s *State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.state)
}

func (c *Controller) setPhase(p Phase) {
	c.update(func(s *State) { s.Phase = p })
}

func (c *Controller) setSession(s wallet.Session) {
	c.update(func(st *State) { st.Session = s })
}

func (c *Controller) SetDomainName(name string) {
	c.update(func(s *State) { s.Form.DomainName = name })
}

func (c *Controller) SetRecordText(text string) {
	c.update(func(s *State) { s.Form.RecordText = text })
}

// Edit starts editing the record of e, which the connected account must own.
func (c *Controller) Edit(e mints.Entry) error {
	account := c.State().Session.Account
	if account == (common.Address{}) {
		return c.fail(c.log, ErrNotConnected)
	}
	if !mints.IsOwnedBy(e, account.Hex()) {
		return c.fail(c.log, fmt.Errorf("%s: %w", e.Name, ErrNotOwner))
	}
	c.log.Debug("editing record", zap.String("name", e.Name))
	c.update(func(s *State) {
		s.Form.DomainName = e.Name
		s.Form.Editing = true
	})
	return nil
}

// Cancel leaves edit mode. The typed values stay.
func (c *Controller) Cancel() {
	c.update(func(s *State) { s.Form.Editing = false })
}

// Init reads the session without prompting, starts listening for network
// changes and loads the list when the session allows it.
func (c *Controller) Init(ctx context.Context) error {
	if _, err := c.wallet.DetectProvider(); err != nil {
		return c.fail(c.log, err)
	}
	session, err := c.wallet.Sync(ctx)
	if err != nil {
		return c.fail(c.log, err)
	}
	c.setSession(session)
	if session.Connected() {
		c.log.Info("found an authorized account", zap.Stringer("account", session.Account))
	}
	c.mu.Lock()
	if c.unsubscribe == nil {
		c.unsubscribe = c.wallet.OnNetworkChanged(c.HandleNetworkChanged)
	}
	c.mu.Unlock()
	return c.refreshIfReady(ctx, session)
}

// Close stops listening to the wallet.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

// Connect asks the wallet for an account.
func (c *Controller) Connect(ctx context.Context) error {
	account, err := c.wallet.RequestAccount(ctx)
	if err != nil {
		return c.fail(c.log, err)
	}
	network, err := c.wallet.ReadActiveNetwork(ctx)
	if err != nil {
		return c.fail(c.log, err)
	}
	session := wallet.Session{Account: account, Network: network}
	c.setSession(session)
	c.ui.Success("Connected %s", account.Hex())
	if !c.guard.IsOnRequiredNetwork(session) {
		c.ui.Warn("Please connect to the %s", c.guard.Target().GetDisplayName())
		return nil
	}
	return c.refreshIfReady(ctx, session)
}

// SwitchNetwork asks the wallet to move to the required network and reads
// the network back, since a switch request succeeding proves nothing.
func (c *Controller) SwitchNetwork(ctx context.Context) error {
	c.setSwitching(true)
	defer c.setSwitching(false)
	if err := c.guard.EnsureNetwork(ctx); err != nil {
		return c.fail(c.log, err)
	}
	session, err := c.wallet.Sync(ctx)
	if err != nil {
		return c.fail(c.log, err)
	}
	c.setSession(session)
	if !c.guard.IsOnRequiredNetwork(session) {
		return c.fail(c.log, ErrWrongNetwork)
	}
	c.ui.Success("Switched to %s", session.NetworkName())
	return c.refreshIfReady(ctx, session)
}

func (c *Controller) setSwitching(v bool) {
	c.mu.Lock()
	c.switching = v
	c.mu.Unlock()
}

// HandleNetworkChanged re-syncs the session after the wallet reports a new
// chain. The form survives unless the account changed too. Changes reported
// while SwitchNetwork runs are left to it.
func (c *Controller) HandleNetworkChanged(chainID uint64) {
	log := c.log.With(zap.Uint64("chain_id", chainID))
	c.mu.Lock()
	switching := c.switching
	c.mu.Unlock()
	if switching {
		log.Debug("network changed during a switch")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.ResyncTimeout)
	defer cancel()

	session, err := c.wallet.Sync(ctx)
	if err != nil {
		log.Warn("re-sync after network change failed", zap.Error(err))
		c.ui.Warn("The wallet changed network but namesvc couldn't read it: %s", err)
		return
	}
	var accountChanged bool
	c.update(func(s *State) {
		accountChanged = s.Session.Account != session.Account
		s.Session = session
		if accountChanged {
			s.Form = PendingForm{}
		}
	})
	log.Info("wallet network changed", zap.String("network", session.NetworkName()), zap.Bool("account_changed", accountChanged))
	c.ui.Info("Wallet switched to %s", session.NetworkName())
	if !c.guard.IsOnRequiredNetwork(session) {
		c.ui.Warn("Please connect to the %s", c.guard.Target().GetDisplayName())
		return
	}
	_ = c.refreshIfReady(ctx, session)
}

// Refresh reloads the list. On failure the last list is kept.
func (c *Controller) Refresh(ctx context.Context) error {
	if err := c.mints.Refresh(ctx); err != nil {
		c.log.Warn("refresh failed", zap.Error(err))
		c.notify(err)
		return err
	}
	return nil
}

func (c *Controller) refreshIfReady(ctx context.Context, s wallet.Session) error {
	if !s.Connected() || !c.guard.IsOnRequiredNetwork(s) {
		return nil
	}
	return c.Refresh(ctx)
}

// requireSession reads the session again so the network gate never relies on
// what was true before a switch.
func (c *Controller) requireSession(ctx context.Context) (wallet.Session, error) {
	if _, err := c.wallet.DetectProvider(); err != nil {
		return wallet.Session{}, err
	}
	session, err := c.wallet.Sync(ctx)
	if err != nil {
		return wallet.Session{}, err
	}
	c.setSession(session)
	if !session.Connected() {
		return session, ErrNotConnected
	}
	if !c.guard.IsOnRequiredNetwork(session) {
		return session, fmt.Errorf("%w: on %s", ErrWrongNetwork, session.NetworkName())
	}
	return session, nil
}

// fail logs err and shows it as a notice. It never panics and returns err so
// the caller can hand it up.
func (c *Controller) fail(log *zap.Logger, err error) error {
	if errors.Is(err, wallet.ErrUserRejected) {
		log.Info("request declined in wallet", zap.Error(err))
	} else {
		log.Warn("action failed", zap.Error(err))
	}
	c.notify(err)
	return err
}

func (c *Controller) notify(err error) {
	target := c.guard.Target().GetDisplayName()
	switch {
	case IsValidationError(err):
		c.ui.Error("%s", err)
	case errors.Is(err, wallet.ErrUserRejected):
		c.ui.Info("Cancelled in the wallet")
	case errors.Is(err, wallet.ErrProviderAbsent):
		c.ui.Warn("No wallet found. Set --wallet-rpc to a wallet endpoint or --keystore to a key file")
	case errors.Is(err, ErrNotConnected):
		c.ui.Warn("Connect a wallet first (namesvc connect)")
	case errors.Is(err, ErrWrongNetwork):
		c.ui.Warn("Please connect to the %s (namesvc switch)", target)
	case errors.Is(err, netguard.ErrSwitchFailed):
		c.ui.Error("Couldn't switch to the %s: %s", target, err)
	case errors.Is(err, ErrBusy):
		c.ui.Warn("Another transaction is still in progress, try again once it is done")
	case errors.Is(err, ErrNotOwner):
		c.ui.Error("%s", err)
	case errors.Is(err, ErrNotEditing):
		c.ui.Warn("Pick a name you own to edit its record")
	case errors.Is(err, registry.ErrReverted):
		c.ui.Error(MsgReverted)
	case errors.Is(err, registry.ErrSubmission):
		c.ui.Error("Couldn't submit the transaction: %s", err)
	case errors.Is(err, mints.ErrReadFailed):
		c.ui.Error("Couldn't load minted names, showing the last known list: %s", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.ui.Warn("Stopped waiting: %s", err)
	default:
		c.ui.Error("%s", err)
	}
}
