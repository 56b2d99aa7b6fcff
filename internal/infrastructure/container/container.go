package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gdugdh24/swipematch/internal/config"
	"github.com/gdugdh24/swipematch/internal/delivery/http"
	"github.com/gdugdh24/swipematch/internal/delivery/http/handler"
	"github.com/gdugdh24/swipematch/internal/delivery/http/middleware"
	"github.com/gdugdh24/swipematch/internal/infrastructure/database"
	"github.com/gdugdh24/swipematch/internal/infrastructure/events"
	"github.com/gdugdh24/swipematch/internal/infrastructure/gemini"
	"github.com/gdugdh24/swipematch/internal/infrastructure/lock"
	"github.com/gdugdh24/swipematch/internal/infrastructure/server"
	"github.com/gdugdh24/swipematch/internal/infrastructure/telemetry"
	"github.com/gdugdh24/swipematch/internal/usecase/auth"
	"github.com/gdugdh24/swipematch/internal/usecase/feed"
	"github.com/gdugdh24/swipematch/internal/usecase/match"
	"github.com/gdugdh24/swipematch/internal/usecase/swipe"
	"github.com/gdugdh24/swipematch/internal/usecase/wingman"
	"github.com/redis/go-redis/v9"
)

// Core holds everything needed to run the matching engine: storage, locking, events.
type Core struct {
	Config *config.Config
	Logger *slog.Logger
	Repos  *Repositories
	Redis  *redis.Client
	Bus    *events.Bus
	Engine *match.Engine
	Gemini *gemini.GeminiClient

	shutdownTracing func(context.Context) error
}

// Container holds all application dependencies
type Container struct {
	*Core
	Server *server.Server
}

// NewCore opens storage and wires the engine with its locker and publisher chain.
func NewCore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Core, error) {
	core := &Core{Config: cfg, Logger: logger}

	shutdown, err := telemetry.Setup(ctx, &cfg.Telemetry)
	if err != nil {
		logger.Warn("tracing disabled", slog.Any("error", err))
	}
	core.shutdownTracing = shutdown

	repos, err := OpenRepositories(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	core.Repos = repos

	applied, err := repos.Migrate(ctx)
	if err != nil {
		core.Close(ctx)
		return nil, fmt.Errorf("failed to migrate storage: %w", err)
	}
	for _, name := range applied {
		logger.Info("migration applied", slog.String("name", name))
	}

	if cfg.Redis.Enabled() {
		client, err := database.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			core.Close(ctx)
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		core.Redis = client
	}

	var locker match.Locker
	switch cfg.Match.LockBackend {
	case "redis":
		locker = lock.NewRedis(core.Redis, cfg.Match.LockTTL, 0)
	default:
		locker = lock.NewLocal()
	}

	core.Bus = events.NewBus(logger, cfg.Match.EventQueueSize, cfg.Match.EventWorkers, cfg.Match.EventHandlerTimeout)
	var marker events.Marker = events.NewMemoryMarker(cfg.Match.DedupTTL)
	if core.Redis != nil {
		marker = events.NewRedisMarker(core.Redis, cfg.Match.DedupTTL)
	}
	publisher := events.NewDedup(core.Bus, marker, logger)

	if cfg.GeminiAPIKey != "" {
		client, err := gemini.NewGeminiClient(ctx, cfg.GeminiAPIKey, logger)
		if err != nil {
			// Continue without AI features
			logger.Warn("failed to initialize gemini client", slog.Any("error", err))
		} else {
			core.Gemini = client
			w := wingman.New(repos.Profiles, repos.Matches, client, logger)
			core.Bus.Subscribe("wingman", w.HandleMatch)
		}
	}

	policy, err := match.ParseReswipePolicy(cfg.Match.ReswipePolicy)
	if err != nil {
		core.Close(ctx)
		return nil, err
	}
	core.Engine = match.NewEngine(repos.Edges, repos.Profiles, locker, publisher, logger, match.Options{
		ReswipePolicy:   policy,
		ReswipeCooldown: cfg.Match.ReswipeCooldown,
		LockTimeout:     cfg.Match.LockTimeout,
		MaxAttempts:     cfg.Match.MaxAttempts,
		InitialBackoff:  cfg.Match.InitialBackoff,
		MaxBackoff:      cfg.Match.MaxBackoff,
	})
	return core, nil
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if err := cfg.JWT.Validate(); err != nil {
		return nil, err
	}

	core, err := NewCore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	// Initialize use cases
	tokens := auth.NewTokenService(cfg.JWT.AccessSecret, auth.DefaultTokenTTL)
	feedUseCase := feed.NewFeedUseCase(core.Repos.Profiles)
	swipeUseCase := swipe.NewSwipeUseCase(core.Engine, core.Repos.Matches, core.Repos.Profiles)

	// Initialize handlers
	feedHandler := handler.NewFeedHandler(feedUseCase)
	swipeHandler := handler.NewSwipeHandler(swipeUseCase)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(tokens)

	// Initialize router
	router := http.NewRouter(swipeHandler, feedHandler, authMiddleware, logger)

	// Initialize server
	srv := server.NewServer(&cfg.Server, router.Setup(), logger)

	return &Container{Core: core, Server: srv}, nil
}

// Close drains pending match events, then closes every connection.
func (c *Core) Close(ctx context.Context) error {
	var errs []error

	if c.Bus != nil {
		drainCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := c.Bus.Close(drainCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to drain events: %w", err))
		}
		cancel()
	}
	if c.Gemini != nil {
		if err := c.Gemini.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close gemini: %w", err))
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}
	if c.Repos != nil {
		if err := c.Repos.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.shutdownTracing != nil {
		if err := c.shutdownTracing(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to flush traces: %w", err))
		}
	}
	return errors.Join(errs...)
}
