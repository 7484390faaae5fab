// Package main implements trackctl, the operator CLI for track-notifier:
// registering subscribers from the terminal, browsing the delivery log,
// previewing summaries and managing keyring secrets.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/track-notifier/internal/model"
)

var (
	// configPath is the YAML config shared with the service
	configPath string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "trackctl",
	Short: "Operate a track-notifier deployment",
	Long: `trackctl works against the same config file and database as the
track-notifier service. It registers subscribers, opens the operator
console, previews announcement summaries and stores secrets in the
system keyring.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", model.DefaultConfigPath(), "path to the YAML config file")
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(secretCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig reads the config file named by --config.
func loadConfig() (*model.AppConfig, error) {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
