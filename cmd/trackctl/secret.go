package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/track-notifier/internal/credential"
)

var secretValue string

// secretCmd groups keyring secret management
var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage secrets stored in the system keyring",
	Long: "Known keys: " + strings.Join(credential.Keys, ", ") + `

Secrets in the keyring are used when neither the config file nor the
environment provides a value.`,
}

var secretSetCmd = &cobra.Command{
	Use:   "set <key>",
	Short: "Store a secret (prompts when --value is omitted)",
	Args:  cobra.ExactArgs(1),
	RunE:  runSecretSet,
}

var secretDeleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Remove a secret from the keyring",
	Args:  cobra.ExactArgs(1),
	RunE:  runSecretDelete,
}

func init() {
	secretSetCmd.Flags().StringVar(&secretValue, "value", "", "secret value (avoid on shared shells)")
	secretCmd.AddCommand(secretSetCmd)
	secretCmd.AddCommand(secretDeleteCmd)
}

func runSecretSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	if !credential.IsKnownKey(key) {
		return fmt.Errorf("%w %q (known: %s)", credential.ErrUnknownSecret, key, strings.Join(credential.Keys, ", "))
	}

	value := secretValue
	if value == "" {
		err := huh.NewInput().
			Title(credential.Label(key)).
			Description(key).
			EchoMode(huh.EchoModePassword).
			Value(&value).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("value is required")
				}
				return nil
			}).
			Run()
		if err != nil {
			return err
		}
	}

	if err := credential.Set(key, value); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Stored %s in the keyring.\n", credential.Label(key))
	return nil
}

func runSecretDelete(cmd *cobra.Command, args []string) error {
	key := args[0]
	if err := credential.Delete(key); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from the keyring.\n", credential.Label(key))
	return nil
}
