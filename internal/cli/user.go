package cli

import (
	"fmt"

	"github.com/dmitrijs2005/pgpkeeper/internal/models"
	"github.com/spf13/cobra"
)

func (a *App) userCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Show or set the signed-in account",
	}
	cmd.AddCommand(a.userShowCommand(), a.userSetCommand())
	return cmd
}

func (a *App) userShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.keys.GetUser(cmd.Context())
			if err != nil {
				return err
			}
			if u == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No account")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\n", u.Name, u.Email)
			return nil
		},
	}
}

func (a *App) userSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <email> <name>",
		Short: "Save the current account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.keys.SaveUser(cmd.Context(), models.NewUserRecord(args[1], args[0], nil, nil))
		},
	}
}
