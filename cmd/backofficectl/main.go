// Command backofficectl runs maintenance tasks against the backoffice
// database and prices quotes offline.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/devstudio/backoffice/internal/config"
	"github.com/devstudio/backoffice/internal/logging"
)

var Version = "dev"

var (
	configFile string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "backofficectl",
		Short:         "Backoffice maintenance and quoting tool",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to backoffice.yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(quoteCmd())
	rootCmd.AddCommand(holidaysCmd())
	rootCmd.AddCommand(createAdminCmd())
	rootCmd.AddCommand(replayWebhookCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads configuration and sets up logging for a subcommand.
func loadConfig() (*config.Config, error) {
	config.LoadDotEnv()
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logging.Init(logging.Config{Level: level, JSON: cfg.Log.JSON, Output: os.Stderr})
	return cfg, nil
}
