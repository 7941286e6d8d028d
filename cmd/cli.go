package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/tranvictor/namesvc/app"
	"github.com/tranvictor/namesvc/config"
	"github.com/tranvictor/namesvc/mints"
	"github.com/tranvictor/namesvc/netguard"
	"github.com/tranvictor/namesvc/networks"
	"github.com/tranvictor/namesvc/registry"
	"github.com/tranvictor/namesvc/ui"
	"github.com/tranvictor/namesvc/util/logger"
	"github.com/tranvictor/namesvc/wallet"
)

// skipSetup marks commands that run without a wallet or config.
const skipSetup = "namesvc/skip-setup"

// ProviderFactory opens the wallet described by cfg. A nil provider means no
// wallet is configured.
type ProviderFactory func(ctx context.Context, cfg *config.Config, u ui.UI, log *zap.Logger) (wallet.Provider, func(), error)

// cli is what every command works with once setup has run.
type cli struct {
	ui         ui.UI
	openWallet ProviderFactory
	newLogger  func(level string, json bool) (*zap.Logger, error)
	configFile string
	node       string
	flags      map[string]*pflag.Flag

	cfg      *config.Config
	log      *zap.Logger
	provider wallet.Provider
	registry *registry.Client
	mints    *mints.Cache
	ctrl     *app.Controller
	closers  []func()
}

func newCLI(u ui.UI) *cli {
	return &cli{ui: u, openWallet: OpenWallet, newLogger: logger.New}
}

// OpenWallet picks the JSON-RPC wallet when configured, then the keystore.
func OpenWallet(ctx context.Context, cfg *config.Config, u ui.UI, log *zap.Logger) (wallet.Provider, func(), error) {
	switch {
	case cfg.Wallet.RPC != "":
		p, err := wallet.DialRPCProvider(ctx, cfg.Wallet.RPC, cfg.Wallet.ChainPollInterval, log)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	case cfg.Wallet.Keystore != "":
		p := wallet.NewKeystoreProvider(cfg.Wallet.Keystore, cfg.KeystoreNetwork(), u, log)
		return p, p.Close, nil
	}
	return nil, func() {}, nil
}

func (c *cli) setup(ctx context.Context) error {
	cfg, err := config.Load(c.configFile, c.flags)
	if err != nil {
		return err
	}
	c.cfg = cfg

	log, err := c.newLogger(cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		return fmt.Errorf("couldn't set up logging: %w", err)
	}
	c.log = log
	c.closers = append(c.closers, func() { _ = log.Sync() })

	if c.node != "" {
		if err := os.Setenv(cfg.KeystoreNetwork().GetNodeVariableName(), c.node); err != nil {
			return err
		}
	}

	provider, closeWallet, err := c.openWallet(ctx, cfg, c.ui, log)
	if err != nil {
		return err
	}
	c.provider = provider
	c.closers = append(c.closers, closeWallet)

	c.registry = registry.NewClient(provider, cfg.ContractAddress(), registry.Options{
		ConfirmPollInterval: cfg.Flow.ConfirmPollInterval,
		ReadConcurrency:     cfg.Registry.ReadConcurrency,
	}, log)
	c.mints = mints.NewCache(c.registry, log)
	c.ctrl = app.NewController(app.Deps{
		Wallet:   wallet.NewManager(provider, log),
		Guard:    netguard.New(provider, networks.Target, log),
		Registry: c.registry,
		Mints:    c.mints,
		UI:       c.ui,
		Log:      log,
	}, app.Options{
		RefreshDelay:   cfg.Flow.RefreshDelay,
		ConfirmTimeout: cfg.Flow.ConfirmTimeout,
	})
	c.closers = append(c.closers, c.ctrl.Close)
	log.Debug("ready",
		zap.Bool("wallet", provider != nil),
		zap.Stringer("contract", cfg.ContractAddress()),
		zap.String("target", networks.Target.GetName()),
	)
	return nil
}

func (c *cli) close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// start loads the session and, when it allows, the list. A failed list load
// is already reported and doesn't stop the command.
func (c *cli) start(ctx context.Context) error {
	err := c.ctrl.Init(ctx)
	if err != nil && !errors.Is(err, mints.ErrReadFailed) {
		return reported(err)
	}
	return nil
}
