package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tranvictor/namesvc/common"
	"github.com/tranvictor/namesvc/networks"
)

func statusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the wallet account and network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.start(cmd.Context()); err != nil {
				return err
			}
			c.printStatus()
			return nil
		},
	}
}

func (c *cli) printStatus() {
	st := c.ctrl.State()
	account := "Not connected"
	if st.Session.Connected() {
		account = st.Session.Account.Hex()
	}
	network := st.Session.NetworkName()
	if networks.IsUnknown(st.Session.Network) {
		network = fmt.Sprintf("unknown (chain %d)", st.Session.ChainID())
	}
	onTarget := "no"
	if st.Session.ChainID() == networks.Target.GetChainID() {
		onTarget = "yes"
	}
	c.ui.KeyValue([][2]string{
		{"Account", account},
		{"Network", network},
		{"Required network", networks.Target.GetDisplayName()},
		{"On required network", onTarget},
		{"Contract", common.ShortAddress(c.cfg.ContractAddress())},
		{"Names loaded", fmt.Sprintf("%d", len(c.mints.Entries()))},
	})
}

func connectCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Ask the wallet for an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.start(cmd.Context()); err != nil {
				return err
			}
			return reported(c.ctrl.Connect(cmd.Context()))
		},
	}
}

func switchCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "switch",
		Short: fmt.Sprintf("Ask the wallet to switch to the %s", networks.Target.GetDisplayName()),
		Long: fmt.Sprintf(`Ask the wallet to switch to the %s. When the wallet doesn't
know the network yet, namesvc asks it to add the network and switches again.`,
			networks.Target.GetDisplayName()),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.start(cmd.Context()); err != nil {
				return err
			}
			return reported(c.ctrl.SwitchNetwork(cmd.Context()))
		},
	}
}
