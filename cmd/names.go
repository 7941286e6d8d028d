package cmd

import (
	"errors"
	"fmt"
	"strings"

	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/tranvictor/namesvc/common"
	"github.com/tranvictor/namesvc/mints"
	"github.com/tranvictor/namesvc/networks"
	"github.com/tranvictor/namesvc/registry"
)

const maxSuggestions = 5

var errNoMatch = errors.New("no minted name matches")

// bareName accepts names typed with or without the top level domain.
func bareName(name string) string {
	return strings.TrimSuffix(strings.TrimSpace(name), registry.TLD)
}

func mintCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "mint <name> [record]",
		Short: "Mint a name and set its record",
		Long: fmt.Sprintf(`Mint <name>%s and set its record. Names are %d to %d characters long
and cost, in MATIC: 0.0005 for 3 characters, 0.0003 for 4 and 0.0001 for more.

Minting takes two transactions: one registers the name, the other sets the
record. If the second one fails the name stays yours and set-record can try
the record again.`, registry.TLD, registry.MinNameLength, registry.MaxNameLength),
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.start(cmd.Context()); err != nil {
				return err
			}
			c.ctrl.SetDomainName(bareName(args[0]))
			if len(args) > 1 {
				c.ctrl.SetRecordText(args[1])
			}
			return reported(c.ctrl.Mint(cmd.Context()))
		},
	}
}

func setRecordCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "set-record <name> <record>",
		Short: "Set the record of a name you own",
		Long: `Set the record of a name you own. <name> may be partial, namesvc
suggests the closest minted names.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.start(cmd.Context()); err != nil {
				return err
			}
			name := bareName(args[0])
			if len(c.mints.Entries()) == 0 {
				// nothing loaded, the update reports why
				c.ctrl.SetDomainName(name)
			} else {
				entry, err := c.pickName(name)
				if err != nil {
					return err
				}
				if err := c.ctrl.Edit(entry); err != nil {
					return reported(err)
				}
			}
			c.ctrl.SetRecordText(args[1])
			return reported(c.ctrl.Update(cmd.Context()))
		},
	}
}

// pickName resolves a possibly partial name against the list, asking the
// user when it is ambiguous.
func (c *cli) pickName(name string) (mints.Entry, error) {
	matches := c.mints.Find(name)
	switch {
	case len(matches) == 0:
		return mints.Entry{}, fmt.Errorf("%w %q", errNoMatch, name)
	case matches[0].Name == name:
		return matches[0], nil
	case len(matches) == 1:
		if c.ui.Confirm(fmt.Sprintf("Did you mean %s?", registry.FullName(matches[0].Name)), true) {
			return matches[0], nil
		}
		return mints.Entry{}, fmt.Errorf("%w %q", errNoMatch, name)
	}
	if len(matches) > maxSuggestions {
		matches = matches[:maxSuggestions]
	}
	options := make([]string, len(matches))
	for i, m := range matches {
		options[i] = registry.FullName(m.Name)
	}
	idx := c.ui.Choose(fmt.Sprintf("Which name did you mean by %q?", name), options)
	if idx < 0 {
		return mints.Entry{}, fmt.Errorf("%w %q", errNoMatch, name)
	}
	return matches[idx], nil
}

func listCmd(c *cli) *cobra.Command {
	var mine bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List minted names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.start(cmd.Context()); err != nil {
				return err
			}
			if !c.ready() {
				return nil
			}
			entries := c.mints.Entries()
			if mine {
				entries = c.mints.Owned(c.ctrl.State().Session.Account.Hex())
			}
			c.printEntries(entries)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&mine, "mine", "m", false, "only names owned by the connected account")
	return cmd
}

func searchCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search minted names and records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.start(cmd.Context()); err != nil {
				return err
			}
			if !c.ready() {
				return nil
			}
			return c.search(strings.Join(args, " "))
		},
	}
}

func (c *cli) search(query string) error {
	entries, err := c.mints.Search(query)
	if err != nil {
		return fmt.Errorf("search %q: %w", query, err)
	}
	c.printEntries(entries)
	return nil
}

// ready tells whether the list could be loaded, warning when it couldn't.
func (c *cli) ready() bool {
	st := c.ctrl.State()
	switch {
	case !st.Session.Connected():
		c.ui.Warn("Connect a wallet to see minted names (namesvc connect)")
		return false
	case st.Session.ChainID() != networks.Target.GetChainID():
		c.ui.Warn("Please connect to the %s (namesvc switch)", networks.Target.GetDisplayName())
		return false
	}
	return true
}

func (c *cli) printEntries(entries []mints.Entry) {
	if len(entries) == 0 {
		c.ui.Info("No names found")
		return
	}
	account := c.ctrl.State().Session.Account.Hex()
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		owner := common.ShortAddress(gethcommon.HexToAddress(e.Owner))
		if mints.IsOwnedBy(e, account) {
			owner += " (you)"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", e.ID),
			registry.FullName(e.Name),
			e.Record,
			owner,
			registry.MarketplaceURL(c.cfg.ContractAddress(), e.ID),
		})
	}
	c.ui.Table([]string{"#", "NAME", "RECORD", "OWNER", "LINK"}, rows)
}
