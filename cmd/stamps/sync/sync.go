// Package synccmder provides the `stamps sync` CLI command.
package synccmder

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tomp11/sb-stamp-manager/pkg/app"
	"github.com/tomp11/sb-stamp-manager/pkg/cliui"
)

type syncCommander struct {
	debug bool
}

const syncLongDesc string = `Push unsynced changes to the remote collection now.

Normally changes sync automatically shortly after each mutation. This
command forces an immediate push, e.g. after a failed background sync.

While signed out there is no remote collection; the command then just
confirms the local cache is current.

Examples:
  stamps sync`

const syncShortDesc string = "Push unsynced changes now"

func NewSyncCmd() *cobra.Command {
	cmder := &syncCommander{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: syncShortDesc,
		Long:  syncLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			return cmder.run(cmd.Context(), configDir)
		},
	}

	return cmd
}

func (c *syncCommander) run(ctx context.Context, configDir string) error {
	a, err := app.New(ctx, configDir, c.debug)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.ActivateCurrent(ctx); err != nil {
		return err
	}

	if !a.Store.IsDirty() {
		fmt.Printf("\n  %s Collection is already in sync.\n\n", cliui.SuccessMark)
		return nil
	}

	if err := cliui.Step(os.Stdout, "Syncing collection", func() error {
		return a.Store.Sync(ctx)
	}); err != nil {
		return err
	}

	fmt.Printf("\n  %s Collection synced.\n\n", cliui.SuccessMark)
	return nil
}
