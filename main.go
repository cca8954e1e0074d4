// ABOUTME: Entry point for the PartnerOS CLI, TUI, web server and MCP server
// ABOUTME: Builds the cobra command tree and the shared application for every command
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/harperreed/partneros/cli"
	"github.com/harperreed/partneros/config"
	"github.com/harperreed/partneros/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const version = "0.2.0"

var (
	// Global flags
	configPath string
	dataDir    string
	verbose    bool

	logger *zap.Logger
	app    *cli.App
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "partneros",
	Short: "PartnerOS - a conversational partner program manager",
	Long: `PartnerOS routes plain-language requests to a partner ledger, document
templates and a small team of partner agents.

Run without arguments (or "partneros chat") to start chatting.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if dataDir != "" {
			cfg.DataDir = dataDir
		}

		// The MCP server and the TUI own stdout/stderr, so they log to the file only.
		logger, err = logging.New(logging.Options{
			Level:   cfg.Log.Level,
			Verbose: verbose,
			File:    cfg.LogPath(),
			Stderr:  cmd.Name() == "serve",
		})
		if err != nil {
			return err
		}

		app, err = cli.NewApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app != nil {
			if err := app.Close(); err != nil {
				logger.Warn("failed to close application", zap.Error(err))
			}
		}
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory (overrides config and "+config.EnvDataDir+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.Flags().BoolVar(&plainChat, "plain", false, "Use the line-oriented chat instead of the full-screen UI")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(partnersCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(vizCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
