// Package cli implements the catalogsync command line.
package cli

import (
	"github.com/spf13/cobra"
)

type globalOptions struct {
	configPath string
	logLevel   string
}

// NewRootCommand builds the catalogsync command tree
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "catalogsync",
		Short: "Mirror the ERP catalog into the portal database",
		Long: `catalogsync pulls products, prices, clients and sellers from the ERP
catalog API and reconciles them into the portal's PostgreSQL mirror.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default: catalogsync.toml in ., ./config or /etc/catalogsync)")
	flags.StringVar(&opts.logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")

	root.AddCommand(
		newSyncCommand(opts),
		newStatusCommand(opts),
		newMigrateCommand(opts),
	)
	return root
}
