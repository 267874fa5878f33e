package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Command builds the command tree. Persistent flags write straight into the
// App's configuration, so values given on the command line win over the
// JSON file.
func (a *App) Command() *cobra.Command {
	root := &cobra.Command{
		Use:           "pgpkeeper",
		Short:         "Encrypted local store for PGP keys and contacts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.Context())
		},
	}

	pf := root.PersistentFlags()
	pf.StringP("config", "c", "", "path to JSON config file")
	pf.StringVarP(&a.config.DataDir, "data-dir", "d", a.config.DataDir, "data directory")
	pf.StringVar(&a.config.LegacyDBPath, "legacy", a.config.LegacyDBPath, "legacy plaintext database path")
	pf.StringVar(&a.config.KeyFile, "key-file", a.config.KeyFile, "storage key file path")
	pf.StringVar(&a.config.LogLevel, "log-level", a.config.LogLevel, "log level (debug, info, warn, error)")

	root.AddCommand(
		a.migrateCommand(),
		a.keysCommand(),
		a.contactsCommand(),
		a.userCommand(),
		a.logoutCommand(),
	)
	return root
}

func (a *App) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring local storage up to date and report what was done",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to := a.store.SchemaChange()
			fmt.Fprintf(cmd.OutOrStdout(), "migration: %s\n", a.state)
			if from != to {
				fmt.Fprintf(cmd.OutOrStdout(), "schema: %d -> %d\n", from, to)
			}
			return nil
		},
	}
}

func (a *App) logoutCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Delete every stored key, contact and account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				ok, err := confirm(cmd, "This deletes all local keys and contacts. Type 'yes' to continue")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
					return nil
				}
			}
			if err := a.logout.LogOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
