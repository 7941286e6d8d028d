package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tranvictor/namesvc/app"
	"github.com/tranvictor/namesvc/networks"
	"github.com/tranvictor/namesvc/registry"
)

const (
	actionStatus = iota
	actionConnect
	actionSwitch
	actionMint
	actionSetRecord
	actionList
	actionSearch
	actionQuit
)

var shellActions = []string{
	actionStatus:    "Status",
	actionConnect:   "Connect wallet",
	actionSwitch:    "Switch to the " + networks.Target.GetDisplayName(),
	actionMint:      "Mint a name",
	actionSetRecord: "Set a record",
	actionList:      "List names",
	actionSearch:    "Search names",
	actionQuit:      "Quit",
}

func shellCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Work with the registry interactively",
		Long: `Work with the registry interactively. The shell follows the wallet: when
you switch network or account in the wallet, the session and the list are
read again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.start(cmd.Context()); err != nil {
				return err
			}
			c.shell(cmd.Context())
			return nil
		},
	}
}

// shell runs until the user quits, input ends or ctx is done. Failed actions
// are already reported by the controller and don't end the shell.
func (c *cli) shell(ctx context.Context) {
	c.ui.Section("namesvc " + registry.TLD)
	c.printStatus()
	for ctx.Err() == nil {
		switch c.ui.Choose("What do you want to do?", shellActions) {
		case actionStatus:
			c.printStatus()
		case actionConnect:
			_ = c.ctrl.Connect(ctx)
		case actionSwitch:
			_ = c.ctrl.SwitchNetwork(ctx)
		case actionMint:
			c.shellMint(ctx)
		case actionSetRecord:
			c.shellSetRecord(ctx)
		case actionList:
			if c.ready() {
				c.printEntries(c.mints.Entries())
			}
		case actionSearch:
			if !c.ready() {
				continue
			}
			c.ui.Info("Search for:")
			if query := c.ui.Ask(nil); query != "" {
				if err := c.search(query); err != nil {
					c.ui.Error("%s", err)
				}
			}
		default:
			return
		}
	}
}

func (c *cli) shellMint(ctx context.Context) {
	c.ui.Info("Name, %d to %d characters (%s is added):", registry.MinNameLength, registry.MaxNameLength, registry.TLD)
	name := c.ui.Ask(func(s string) error {
		_, err := app.ValidateName(bareName(s))
		return err
	})
	if name == "" {
		return
	}
	c.ui.Info("Record, who're you cheering for?")
	record := c.ui.Ask(nil)
	c.ctrl.SetDomainName(bareName(name))
	c.ctrl.SetRecordText(record)
	_ = c.ctrl.Mint(ctx)
}

func (c *cli) shellSetRecord(ctx context.Context) {
	if !c.ready() {
		return
	}
	owned := c.mints.Owned(c.ctrl.State().Session.Account.Hex())
	if len(owned) == 0 {
		c.ui.Info("You don't own any names yet")
		return
	}
	options := make([]string, 0, len(owned)+1)
	for _, e := range owned {
		options = append(options, registry.FullName(e.Name))
	}
	options = append(options, "Cancel")
	idx := c.ui.Choose("Which name?", options)
	if idx < 0 || idx >= len(owned) {
		return
	}
	if err := c.ctrl.Edit(owned[idx]); err != nil {
		return
	}
	c.ui.Info("New record for %s:", registry.FullName(owned[idx].Name))
	record := c.ui.Ask(nil)
	if record == "" {
		c.ctrl.Cancel()
		return
	}
	c.ctrl.SetRecordText(record)
	_ = c.ctrl.Update(ctx)
}
