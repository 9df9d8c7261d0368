package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/learningtriangle/ltgate/internal/api"
	"github.com/learningtriangle/ltgate/internal/config"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve read-only staff tools over MCP (stdio)",
	Long: `Serve read-only staff tools over the Model Context Protocol on stdin/stdout.

The tools list published and pending reviews and the stored contact and
tutor applications, including e-mail addresses. Only expose this command
to trusted staff tooling.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP(cmd.Context())
	},
}

func runMCP(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// stdout carries the protocol, so logs stay on stderr.
	setupLogging(cfg.Log.Level)

	store, err := openStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := api.NewMCPServer(api.MCPDeps{Store: store, Version: version})
	if err := server.NewStdioServer(srv).Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
