package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/pgpkeeper/internal/common"
	"github.com/dmitrijs2005/pgpkeeper/internal/models"
	"github.com/spf13/cobra"
)

func (a *App) contactsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "contacts",
		Aliases: []string{"c"},
		Short:   "Manage contacts and their public keys",
	}
	cmd.AddCommand(
		a.contactsListCommand(),
		a.contactsSearchCommand(),
		a.contactsShowCommand(),
		a.contactsExportCommand(),
		a.contactsImportCommand(),
		a.contactsRemoveCommand(),
		a.contactsRemoveKeyCommand(),
		a.contactsTouchCommand(),
	)
	return cmd
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func keyStatus(k models.PubKey, now time.Time) string {
	switch {
	case k.Revoked:
		return "revoked"
	case k.IsExpired(now):
		return "expired"
	default:
		return "valid"
	}
}

func (a *App) contactsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := a.contacts.GetAllRecipients(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "EMAIL\tNAME\tKEYS\tLAST USED")
			for _, r := range all {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.Email, r.Name, len(r.PubKeys), formatTime(r.LastUsed))
			}
			return tw.Flush()
		},
	}
}

func (a *App) contactsSearchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Find contact emails containing query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			emails, err := a.contacts.SearchEmails(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, e := range emails {
				fmt.Fprintln(cmd.OutOrStdout(), e)
			}
			return nil
		},
	}
}

func (a *App) contactsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <email>",
		Short: "Show a contact and its usable keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.contacts.SearchRecipient(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if r == nil {
				return fmt.Errorf("contact %s: %w", args[0], common.ErrorNotFound)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Email:     %s\n", r.Email)
			fmt.Fprintf(out, "Name:      %s\n", r.Name)
			fmt.Fprintf(out, "Last used: %s\n\n", formatTime(r.LastUsed))

			now := time.Now()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FINGERPRINT\tCREATED\tLAST SIG\tEXPIRES\tSTATUS")
			for _, k := range r.PubKeys {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", k.Fingerprint, formatTime(&k.Created), formatTime(k.LastSig), formatTime(k.Expiration), keyStatus(k, now))
			}
			return tw.Flush()
		},
	}
}

func (a *App) contactsExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export <email>",
		Short: "Print the stored armored keys of a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := a.contacts.RetrievePubKeys(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, k := range keys {
				fmt.Fprint(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
}

func (a *App) contactsImportCommand() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "import <email> <file|->",
		Short: "Merge public keys from a file into a contact",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}
			details, err := a.parser.Parse(cmd.Context(), data)
			if err != nil {
				return err
			}
			r := models.NewRecipient(args[0], name, nil, details)
			if err := a.contacts.UpdateKeys(cmd.Context(), r); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d key(s) merged into %s\n", len(details), args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "contact name, used when the contact is new")
	return cmd
}

func (a *App) contactsRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <email>",
		Short: "Delete a contact and all of its keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.contacts.Remove(cmd.Context(), models.Recipient{Email: args[0]})
		},
	}
}

func (a *App) contactsRemoveKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-key <email> <fingerprint>",
		Short: "Delete one public key of a contact",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.contacts.RemovePubKey(cmd.Context(), args[1], args[0])
		},
	}
}

func (a *App) contactsTouchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "touch <email>",
		Short: "Mark a contact as used now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.contacts.UpdateLastUsedDate(cmd.Context(), args[0])
		},
	}
}
