// Package config loads namesvc settings from flags, NAMESVC_* environment
// variables and an optional config file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tranvictor/namesvc/networks"
	"github.com/tranvictor/namesvc/registry"
	"github.com/tranvictor/namesvc/wallet"
)

const (
	EnvPrefix = "NAMESVC"
	FileName  = "namesvc"
)

// Keys, also the dotted paths in the config file.
const (
	KeyWalletRPC          = "wallet.rpc"
	KeyWalletKeystore     = "wallet.keystore"
	KeyWalletNetwork      = "wallet.network"
	KeyChainPollInterval  = "wallet.chain_poll_interval"
	KeyRegistryContract   = "registry.contract"
	KeyReadConcurrency    = "registry.read_concurrency"
	KeyRefreshDelay       = "flow.refresh_delay"
	KeyConfirmPoll        = "flow.confirm_poll_interval"
	KeyConfirmTimeout     = "flow.confirm_timeout"
	KeyLogLevel           = "log.level"
	KeyLogJSON            = "log.json"
	DefaultRefreshDelay   = 2 * time.Second
	DefaultConfirmPolling = 2 * time.Second
)

type Wallet struct {
	// RPC is the URL of a JSON-RPC wallet. It wins over Keystore.
	RPC string `mapstructure:"rpc"`
	// Keystore is an encrypted key file used as a local wallet.
	Keystore string `mapstructure:"keystore"`
	// Network is the chain the keystore wallet starts on.
	Network           string        `mapstructure:"network"`
	ChainPollInterval time.Duration `mapstructure:"chain_poll_interval"`
}

type Registry struct {
	Contract        string `mapstructure:"contract"`
	ReadConcurrency int    `mapstructure:"read_concurrency"`
}

type Flow struct {
	// RefreshDelay is waited before the list refresh after a mint, to give
	// nodes time to catch up. It is best-effort, not a consistency guarantee.
	RefreshDelay        time.Duration `mapstructure:"refresh_delay"`
	ConfirmPollInterval time.Duration `mapstructure:"confirm_poll_interval"`
	// ConfirmTimeout bounds the wait for a receipt; 0 waits until cancelled.
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`
}

type Log struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

type Config struct {
	Wallet   Wallet   `mapstructure:"wallet"`
	Registry Registry `mapstructure:"registry"`
	Flow     Flow     `mapstructure:"flow"`
	Log      Log      `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyWalletRPC, "")
	v.SetDefault(KeyWalletKeystore, "")
	v.SetDefault(KeyWalletNetwork, networks.Target.GetName())
	v.SetDefault(KeyChainPollInterval, wallet.DefaultChainPollInterval)
	v.SetDefault(KeyRegistryContract, registry.DefaultContract)
	v.SetDefault(KeyReadConcurrency, registry.DefaultReadConcurrency)
	v.SetDefault(KeyRefreshDelay, DefaultRefreshDelay)
	v.SetDefault(KeyConfirmPoll, DefaultConfirmPolling)
	v.SetDefault(KeyConfirmTimeout, time.Duration(0))
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyLogJSON, false)
}

// searchPaths are tried in order when no config file is given.
func searchPaths() []string {
	paths := []string{}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "namesvc"), filepath.Join(home, ".namesvc"))
	}
	return append(paths, ".")
}

// Load builds a Config. file may be empty, in which case a namesvc.{yaml,
// json,toml} is looked up in the search paths and its absence is not an
// error. flags maps keys to the command line flags that override them.
func Load(file string, flags map[string]*pflag.Flag) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, flag := range flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("couldn't bind flag %s: %w", flag.Name, err)
		}
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(FileName)
		for _, p := range searchPaths() {
			v.AddConfigPath(p)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("couldn't read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("couldn't decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if !common.IsHexAddress(c.Registry.Contract) {
		return fmt.Errorf("%s: %q is not an address", KeyRegistryContract, c.Registry.Contract)
	}
	if c.Registry.ReadConcurrency <= 0 {
		return fmt.Errorf("%s must be positive", KeyReadConcurrency)
	}
	if c.Flow.RefreshDelay < 0 || c.Flow.ConfirmTimeout < 0 {
		return fmt.Errorf("flow durations can't be negative")
	}
	if _, err := networks.GetNetwork(c.Wallet.Network); err != nil {
		return fmt.Errorf("%s: %q: %w", KeyWalletNetwork, c.Wallet.Network, err)
	}
	return nil
}

func (c *Config) ContractAddress() common.Address {
	return common.HexToAddress(c.Registry.Contract)
}

// KeystoreNetwork is the network the keystore wallet starts on.
func (c *Config) KeystoreNetwork() networks.Network {
	n, err := networks.GetNetwork(c.Wallet.Network)
	if err != nil {
		return networks.Target
	}
	return n
}
