package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdugdh24/swipematch/internal/config"
	"github.com/gdugdh24/swipematch/internal/infrastructure/container"
	"github.com/gdugdh24/swipematch/internal/infrastructure/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	log := logger.New(&cfg.Logging, os.Stdout)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize dependency injection container
	app, err := container.NewContainer(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize application", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Close(closeCtx); err != nil {
			log.Error("error closing application", slog.Any("error", err))
		}
	}()

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Server.Start()
	}()

	log.Info("server started",
		slog.String("host", cfg.Server.Host),
		slog.Int("port", cfg.Server.Port),
		slog.String("db_driver", cfg.Database.Driver),
		slog.String("lock_backend", cfg.Match.LockBackend),
		slog.String("reswipe_policy", cfg.Match.ReswipePolicy),
	)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			log.Error("server error", slog.Any("error", err))
		}
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.Server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", slog.Any("error", err))
		return
	}

	log.Info("server exited properly")
}
