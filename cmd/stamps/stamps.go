// Package stampscmder provides the root stamps command and wires up
// all subcommands.
package stampscmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/tomp11/sb-stamp-manager/cmd/stamps/auth"
	configcmder "github.com/tomp11/sb-stamp-manager/cmd/stamps/config"
	ingestcmder "github.com/tomp11/sb-stamp-manager/cmd/stamps/ingest"
	listcmder "github.com/tomp11/sb-stamp-manager/cmd/stamps/list"
	logincmder "github.com/tomp11/sb-stamp-manager/cmd/stamps/login"
	removecmder "github.com/tomp11/sb-stamp-manager/cmd/stamps/remove"
	servecmder "github.com/tomp11/sb-stamp-manager/cmd/stamps/serve"
	synccmder "github.com/tomp11/sb-stamp-manager/cmd/stamps/sync"
	versioncmder "github.com/tomp11/sb-stamp-manager/cmd/version"
)

const stampsLongDesc string = `Stamps manages your Starbucks Japan "My Store Passport" collection.

Ingest stamps from passport screenshots, keep them on this device while
signed out, and sync them to your remote collection once signed in:
  stamps ingest <image>   Extract stamps from a screenshot and merge them
  stamps list             Show the collection
  stamps login <user-id>  Sign in and migrate device-local stamps
  stamps sync             Push unsynced changes now
  stamps serve            Run the HTTP API server`

const stampsShortDesc string = "Stamps - My Store Passport manager"

func NewStampsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stamps",
		Short: stampsShortDesc,
		Long:  stampsLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .stamps/ directory location")

	// Add subcommands
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(listcmder.NewListCmd())
	cmd.AddCommand(removecmder.NewRemoveCmd())
	cmd.AddCommand(synccmder.NewSyncCmd())
	cmd.AddCommand(logincmder.NewLoginCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
