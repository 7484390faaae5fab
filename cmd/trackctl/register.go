package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/track-notifier/internal/app"
	"github.com/nhle/track-notifier/internal/registration"
	"github.com/nhle/track-notifier/internal/store"
	"github.com/nhle/track-notifier/internal/track"
	"github.com/nhle/track-notifier/internal/ui/registerform"
)

var registerUser string

// registerCmd registers or replaces a subscriber through a terminal form
var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a subscriber from the terminal",
	Long: `Open the registration form for a chat user and save the result,
replacing any earlier registration of that user.

Examples:
  trackctl register --user U024BE7LH`,
	RunE: runRegister,
}

// consoleCmd opens the operator console
var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Browse subscribers, announcements and deliveries",
	RunE:  runConsole,
}

func init() {
	registerCmd.Flags().StringVar(&registerUser, "user", "", "chat user ID to register (required)")
	_ = registerCmd.MarkFlagRequired("user")
}

func runRegister(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	catalog, err := track.ParseCatalog(cfg.Tracks.Catalog)
	if err != nil {
		return err
	}

	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	existing, err := st.GetSubscriber(ctx, registerUser)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	in, err := registerform.New(catalog, registerUser, existing).Run(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		fmt.Fprintln(cmd.OutOrStdout(), "Registration cancelled.")
		return nil
	}
	if err != nil {
		return err
	}

	svc := registration.NewService(st, catalog, nil)
	sub, err := svc.Register(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), registration.Confirmation(sub, catalog))
	return nil
}

func runConsole(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	return app.Run(cmd.Context(), st)
}
