package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/weave/internal/cli"
	"github.com/aretw0/weave/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the workflow editor as an MCP Server.
This allows AI agents to inspect workflows, validate connections, fill in node
inputs and undo or redo edits as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		ctx := cmd.Context()
		rt, err := cli.Build(ctx, cfg, logger, nil)
		if err != nil {
			return err
		}
		defer rt.Close()

		files, _ := cmd.Flags().GetStringSlice("open")
		if err := openFiles(ctx, rt.Editor, files); err != nil {
			return err
		}

		srv := mcp.NewServer(rt.Editor, mcp.WithLogger(logger))

		switch transport {
		case "stdio":
			// Logs go to stderr (internal/logging) so they never corrupt JSON-RPC on stdout.
			logger.Info("Starting Weave MCP Server (Stdio)")
			return srv.ServeStdio()
		case "sse":
			logger.Info("Starting Weave MCP Server (SSE)", "port", port)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.ServeSSE(ctx, port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("MCP Server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
	mcpCmd.Flags().StringSlice("open", nil, "Workflow files to open at startup")
}
