// Package removecmder provides the `stamps remove` CLI command.
package removecmder

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tomp11/sb-stamp-manager/pkg/app"
	"github.com/tomp11/sb-stamp-manager/pkg/cliui"
)

type removeCommander struct {
	debug bool
}

const removeLongDesc string = `Remove a stamp from the collection by record id.

The record disappears from the collection immediately. When signed in, the
remote copy is also removed; a failed remote delete is reported but the
local removal stands.

Find record ids with 'stamps list --ids'.

Examples:
  stamps remove 4f7c2a...`

const removeShortDesc string = "Remove a stamp from the collection"

func NewRemoveCmd() *cobra.Command {
	cmder := &removeCommander{}

	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: removeShortDesc,
		Long:  removeLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			return cmder.run(cmd.Context(), configDir, args[0])
		},
	}

	return cmd
}

func (c *removeCommander) run(ctx context.Context, configDir, id string) error {
	a, err := app.New(ctx, configDir, c.debug)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.ActivateCurrent(ctx); err != nil {
		return err
	}

	if err := cliui.Step(os.Stdout, "Removing stamp", func() error {
		return a.Store.Delete(ctx, id)
	}); err != nil {
		return err
	}

	fmt.Printf("\n  %s Removed %s\n\n", cliui.SuccessMark, cliui.DimStyle.Render(id))
	return nil
}
