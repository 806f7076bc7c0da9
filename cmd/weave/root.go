package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/weave/internal/config"
	"github.com/aretw0/weave/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "weave",
	Short: "Weave is the authoring core of a node-based workflow editor",
	Long: `Weave keeps workflow graphs consistent while they are edited: conditional
property visibility, async option loading, cycle-free connections and
undo/redo history. Use it to validate workflow files, preview node forms or
serve the editor API over HTTP and MCP.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to weave.yaml (default ./weave.yaml when present)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level override: debug, info, warn, error")
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	return cfg, logging.New(logging.ParseLevel(cfg.LogLevel)), nil
}

// workflowID derives a workflow identifier from a file name.
func workflowID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
