package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/bimquery/internal/config"
	logpkg "github.com/kailas-cloud/bimquery/internal/logger"
	httpapi "github.com/kailas-cloud/bimquery/internal/transport/chi"
	"github.com/kailas-cloud/bimquery/internal/transport/mcp"
	"github.com/kailas-cloud/bimquery/internal/version"
)

func serveCmd() *cobra.Command {
	var configPath, modelPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, modelPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "config file (default: config/<ENV>.yaml)")
	cmd.Flags().StringVar(&modelPath, "model", "", "IFC file to load at startup")
	return cmd
}

// loadConfig reads an explicit file or falls back to the ENV lookup.
func loadConfig(path string) (config.Config, string, error) {
	env := config.GetEnv()
	if path != "" {
		cfg, err := config.LoadFile(path)
		return cfg, env, err
	}
	cfg, err := config.Load(env)
	return cfg, env, err
}

func runServe(parent context.Context, configPath, modelPath string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, env, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logpkg.NewLogger(env, logpkg.WithLevel(cfg.Logging.Level))
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting bimquery API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

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

	server := httpapi.NewServer(eng.viewer, eng.query, eng.usage, eng.health,
		eng.sources, eng.maxModelBytes, logger)

	routerCfg := httpapi.RouterConfig{APIKeys: cfg.Auth.APIKeys}
	if cfg.MCP.Enabled {
		routerCfg.MCP = mcp.NewServer(eng.query, eng.viewer, logger, version.Version).Handler()
		routerCfg.MCPPath = cfg.MCP.Path
		logger.Info("MCP endpoint enabled", zap.String("path", cfg.MCP.Path))
	}
	if len(cfg.Auth.APIKeys) > 0 {
		logger.Info("API key authentication enabled", zap.Int("keys", len(cfg.Auth.APIKeys)))
	}

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpapi.NewRouter(server, routerCfg),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
