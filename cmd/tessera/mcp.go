package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/tessera/internal/cli"
	"github.com/aretw0/tessera/internal/logging"
	"github.com/aretw0/tessera/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp [manifest]",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts Tessera as an MCP Server.
This allows AI agents to navigate pages and inspect their slots as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Run: func(cmd *cobra.Command, args []string) {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		// Logs go to stderr so they never corrupt JSON-RPC on stdout.
		logger := logging.New(slog.LevelInfo)

		host, err := cli.NewHost(cli.HostOptions{EngineOptions: engineOptions(cmd, args)}, logger)
		if err != nil {
			log.Fatalf("Error initializing tessera: %v", err)
		}
		defer host.Close()

		srv := mcp.NewServer(host.Host, host.Manifest(), logger)

		switch transport {
		case "stdio":
			log.SetOutput(os.Stderr)
			logger.Info("Starting Tessera MCP Server (Stdio)...")
			if err := srv.ServeStdio(); err != nil {
				logger.Error("MCP Server execution failed", "err", err)
				os.Exit(1)
			}
		case "sse":
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.ServeSSE(ctx, port); err != nil {
				logger.Error("MCP Server execution failed", "err", err)
				os.Exit(1)
			}
			logger.Info("MCP Server stopped gracefully")
		default:
			log.Fatalf("Unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
