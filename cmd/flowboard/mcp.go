package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/aretw0/flowboard/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes the configured flow storage as MCP tools over Standard Input/Output,
so an assistant can list, inspect, validate and edit agent flows.
Edits that leave a node invalid are rejected and not saved.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		// Ensure logs don't corrupt JSON-RPC on Stdout
		log.SetOutput(os.Stderr)
		slog.SetDefault(logger)

		sessions, backend, err := openSessions(context.Background(), cfg, logger, nil)
		if err != nil {
			return err
		}
		defer backend.Close()

		srv := mcp.NewServer(sessions, mcp.WithLogger(logger))
		logger.Info("Starting Flowboard MCP Server (Stdio)...", "storage", cfg.Storage.Backend)
		if err := srv.ServeStdio(); err != nil {
			logger.Error("MCP Server execution failed", "err", err)
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
