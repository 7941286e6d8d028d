// Copyright © 2018 Victor Tran
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tranvictor/namesvc/config"
	"github.com/tranvictor/namesvc/networks"
	"github.com/tranvictor/namesvc/registry"
	"github.com/tranvictor/namesvc/ui"
)

// reportedError wraps errors that were already shown to the user.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return reportedError{err}
}

// newRootCmd builds the command tree around one cli.
func newRootCmd(c *cli) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "namesvc",
		Short: "Mint and manage names in the .2022 name registry",
		Long: fmt.Sprintf(`namesvc mints names under the %s top level domain and manages their
records. Names live in a registry contract on the %s.

namesvc never holds a private key on its own. It talks to a wallet:

	1. A JSON-RPC wallet bridge given with --wallet-rpc. The wallet asks you
	to approve every account request, network switch and transaction.

	2. An encrypted keystore file given with --keystore. namesvc asks for the
	passphrase and confirms every network switch and transaction with you.

Reads and broadcasts of the keystore wallet go to the network's default nodes.
You can use your own node with --node or by setting %s.

Settings can also come from NAMESVC_* env vars or a namesvc.yaml in
~/.config/namesvc, ~/.namesvc or the working directory.`,
			registry.TLD,
			networks.Target.GetDisplayName(),
			networks.Target.GetNodeVariableName(),
		),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipSetup] != "" {
				return nil
			}
			return c.setup(cmd.Context())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "config file, namesvc.yaml in the usual places is used when empty")
	flags.String("wallet-rpc", "", "JSON-RPC url of the wallet bridge. Wins over --keystore.")
	flags.String("keystore", "", "encrypted keystore file to use as the wallet")
	flags.String("wallet-network", "", "network the keystore wallet starts on")
	flags.String("contract", "", "address of the registry contract")
	flags.String("log-level", "", "debug, info, warn or error. Logs go to stderr.")
	flags.Bool("log-json", false, "log in json")
	flags.StringVar(&c.node, "node", "", "node url for the keystore wallet, replaces the default nodes")
	c.flags = map[string]*pflag.Flag{
		config.KeyWalletRPC:        flags.Lookup("wallet-rpc"),
		config.KeyWalletKeystore:   flags.Lookup("keystore"),
		config.KeyWalletNetwork:    flags.Lookup("wallet-network"),
		config.KeyRegistryContract: flags.Lookup("contract"),
		config.KeyLogLevel:         flags.Lookup("log-level"),
		config.KeyLogJSON:          flags.Lookup("log-json"),
	}

	rootCmd.AddCommand(
		statusCmd(c),
		connectCmd(c),
		switchCmd(c),
		mintCmd(c),
		setRecordCmd(c),
		listCmd(c),
		searchCmd(c),
		shellCmd(c),
		versionCmd(c),
	)
	return rootCmd
}

// Execute runs namesvc until it finishes or is interrupted. This is called
// by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	u := ui.NewTerminalUI()
	c := newCLI(u)
	err := newRootCmd(c).ExecuteContext(ctx)
	c.close()
	if err != nil {
		var r reportedError
		if !errors.As(err, &r) {
			u.Error("%s", err)
		}
		stop()
		os.Exit(1)
	}
}
