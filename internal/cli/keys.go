package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/dmitrijs2005/pgpkeeper/internal/common"
	"github.com/dmitrijs2005/pgpkeeper/internal/models"
	"github.com/spf13/cobra"
)

func (a *App) keysCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage your own private keys",
	}
	cmd.AddCommand(a.keysListCommand(), a.keysImportCommand(), a.keysPublicCommand())
	return cmd
}

func (a *App) keysListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored private keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := a.keys.Keys(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "LONGID\tFINGERPRINT\tSOURCE")
			for _, k := range keys {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", k.Longid, k.PrimaryFingerprint, k.Source)
			}
			return tw.Flush()
		},
	}
}

func (a *App) keysImportCommand() *cobra.Command {
	var (
		source        string
		update        bool
		askPassphrase bool
	)
	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import private keys from an armored or binary file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := models.ParseKeySource(source)
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			details, err := a.parser.Parse(cmd.Context(), data)
			if err != nil {
				return err
			}

			var passphrase string
			if askPassphrase {
				pw, err := GetPassword("Key passphrase", cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				passphrase = string(pw)
				common.WipeByteArray(pw)
			}

			if update {
				err = a.keys.UpdateKeys(cmd.Context(), details, passphrase, src)
			} else {
				err = a.keys.AddKeys(cmd.Context(), details, passphrase, src)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d key(s) stored\n", len(details))
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", string(models.KeySourceImported), "key source (generated, imported, backup, ekm)")
	cmd.Flags().BoolVar(&update, "update", false, "replace stored rows with the same longid")
	cmd.Flags().BoolVar(&askPassphrase, "ask-passphrase", false, "prompt for the key passphrase and store it")
	return cmd
}

func (a *App) keysPublicCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "public",
		Short: "Print the public part of the first stored key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pk, err := a.keys.PublicKey(cmd.Context())
			if err != nil {
				return err
			}
			if pk == "" {
				return fmt.Errorf("no keys stored: %w", common.ErrorNotFound)
			}
			fmt.Fprint(cmd.OutOrStdout(), pk)
			return nil
		},
	}
}
