package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/storefront/internal/api"
	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/database"
	"github.com/example/storefront/internal/geo"
	"github.com/example/storefront/internal/handlers"
	"github.com/example/storefront/internal/logging"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/routes"
	"github.com/example/storefront/internal/session"
	"github.com/example/storefront/internal/views"
)

const sweepInterval = 15 * time.Minute

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store session.Store
	if cfg.DatabaseURL != "" {
		db, err := database.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("session database unavailable")
		}
		store = session.NewGormStore(db)
	} else {
		logger.Warn().Msg("DATABASE_URL not set, sessions are kept in memory")
		store = session.NewMemoryStore()
	}

	var provider geo.Provider = geo.NewHTTPProvider(cfg.GeoAPIURL, cfg.HTTPTimeout)
	if cfg.RedisURL != "" {
		rdb, err := geo.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, address lists are not cached")
		} else {
			defer rdb.Close()
			provider = geo.NewCachedProvider(provider, rdb, cfg.GeoCacheTTL, logger)
		}
	}

	cipher, err := session.NewTokenCipher(cfg.SessionCipherKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid session cipher key")
	}

	client := api.NewClient(api.NewRegistry(cfg.BackendURL), cfg.BackendCookieName, cfg.HTTPTimeout, logger)
	sessions := session.NewManager(store, cipher, client, cfg.SessionTTL, logger)
	go sessions.RunSweeper(ctx, sweepInterval)

	engine := views.New()
	if err := engine.Load(); err != nil {
		logger.Fatal().Err(err).Msg("failed to load templates")
	}

	app := fiber.New(fiber.Config{
		AppName:      "Storefront",
		Views:        engine,
		ViewsLayout:  views.Layout,
		ErrorHandler: handlers.ErrorHandler(sessions, logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger(logger))

	routes.Register(app, routes.Dependencies{
		Config:   cfg,
		Client:   client,
		Sessions: sessions,
		Geo:      provider,
		Logger:   logger,
	})

	go func() {
		<-ctx.Done()
		logger.Info().Msg("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error().Err(err).Msg("shutdown failed")
		}
	}()

	logger.Info().Str("port", cfg.AppPort).Str("backend", cfg.BackendURL).Msg("starting server")
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		logger.Fatal().Err(err).Msg("fiber.Listen error")
	}
}
