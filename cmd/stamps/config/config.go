// Package configcmder provides the config command for managing persistent
// stamps configuration stored in the .stamps/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent stamps configuration.

Configuration is stored as config.toml in the .stamps/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  storage.sqlite_path, remote.postgres_dsn,
  extraction.provider, extraction.target, extraction.model,
  api.listen,
  sync.debounce_ms, sync.load_timeout_ms, sync.save_timeout_ms, sync.batch_size

Use subcommands to get, set, or list configuration values:
  stamps config set <key> <value>    Set a configuration value
  stamps config get <key>            Get a configuration value
  stamps config list                 List all configuration values

Examples:
  stamps config set remote.postgres_dsn postgres://stamps@db/stamps
  stamps config set extraction.provider mock
  stamps config get api.listen
  stamps config list`

const configShortDesc string = "Manage persistent stamps configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
