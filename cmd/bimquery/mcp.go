package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	logpkg "github.com/kailas-cloud/bimquery/internal/logger"
	"github.com/kailas-cloud/bimquery/internal/transport/mcp"
	"github.com/kailas-cloud/bimquery/internal/version"
)

func mcpCmd() *cobra.Command {
	var configPath, modelPath string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the query tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(cmd.Context(), configPath, modelPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "config file (default: config/<ENV>.yaml)")
	cmd.Flags().StringVar(&modelPath, "model", "", "IFC file to load before serving")
	return cmd
}

func runMCP(parent context.Context, configPath, modelPath string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// stdout carries the protocol.
	logger, err := logpkg.NewLogger("cli", logpkg.WithStderr(), logpkg.WithLevel(cfg.Logging.Level))
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	eng, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	if modelPath != "" {
		if err := eng.preload(ctx, modelPath, logger); err != nil {
			return err
		}
	}

	server := mcp.NewServer(eng.query, eng.viewer, logger, version.Version)
	return server.Run(ctx, &sdk.StdioTransport{})
}
