// Package main implements the entry point for the mnemo daemon, the
// offline-first data layer for spaced repetition study. It owns the
// embedded store, the outbox, the sync engine, and the local status API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mnemo-app/mnemo/internal/config"
	"github.com/mnemo-app/mnemo/internal/platform/logger"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	flag.Parse()

	cfg, err := initializeApp(*configPath)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg)
	if err != nil {
		slog.Error("failed to build application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := app.run(ctx); err != nil {
		slog.Error("application exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// initializeApp loads configuration and sets up logging.
// Returns the loaded config and any initialization error.
func initializeApp(configPath string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if _, err := logger.Setup(cfg.Server.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	slog.Info("configuration loaded",
		slog.String("status_addr", cfg.Server.StatusAddr),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("storage_path", cfg.Storage.Path),
		slog.Bool("sync_configured", cfg.Sync.ServerURL != ""),
		slog.Bool("generation_enabled", cfg.Generation.Enabled()))

	return cfg, nil
}
