// internal/cli/credentials.go
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zyniel/westie/internal/auth"
	"github.com/zyniel/westie/internal/ui"
)

// credentialsCmd represents the credentials command
var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage the stored login e-mail",
	Long: `Store, show or delete the e-mail used to log into the app.

The e-mail is kept in your OS keyring, or in a private file under your
home directory where no keyring is available. The PIN is never stored.`,
	Example: `  westie credentials set me@example.com
  westie credentials show
  westie credentials delete`,
	Annotations: map[string]string{annotationNoApp: "true"},
}

var credentialsSetCmd = &cobra.Command{
	Use:         "set <email>",
	Short:       "Store the login e-mail",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{annotationNoApp: "true"},
	RunE:        runCredentialsSet,
}

var credentialsShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Show the stored login e-mail",
	Annotations: map[string]string{annotationNoApp: "true"},
	RunE:        runCredentialsShow,
}

var credentialsDeleteCmd = &cobra.Command{
	Use:         "delete",
	Short:       "Delete the stored login e-mail",
	Annotations: map[string]string{annotationNoApp: "true"},
	RunE:        runCredentialsDelete,
}

func init() {
	rootCmd.AddCommand(credentialsCmd)
	credentialsCmd.AddCommand(credentialsSetCmd)
	credentialsCmd.AddCommand(credentialsShowCmd)
	credentialsCmd.AddCommand(credentialsDeleteCmd)
}

func runCredentialsSet(cmd *cobra.Command, args []string) error {
	store, err := auth.NewCredentialStore()
	if err != nil {
		return err
	}
	if err := store.SaveEmail(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s E-mail saved (%s)\n", ui.Success("✓"), store.Backend())
	return nil
}

func runCredentialsShow(cmd *cobra.Command, args []string) error {
	store, err := auth.NewCredentialStore()
	if err != nil {
		return err
	}
	email, err := store.LoadEmail()
	if errors.Is(err, auth.ErrNoCredentials) {
		fmt.Fprintln(cmd.OutOrStdout(), "No e-mail stored. Save one with:")
		fmt.Fprintln(cmd.OutOrStdout(), "  westie credentials set <email>")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", email, ui.Info("("+store.Backend()+")"))
	return nil
}

func runCredentialsDelete(cmd *cobra.Command, args []string) error {
	store, err := auth.NewCredentialStore()
	if err != nil {
		return err
	}
	if err := store.DeleteEmail(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s E-mail deleted\n", ui.Success("✓"))
	return nil
}
