package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mcoot/kelimeoyunu/internal/api"
	"github.com/mcoot/kelimeoyunu/internal/config"
	"github.com/mcoot/kelimeoyunu/internal/factory"
	"github.com/mcoot/kelimeoyunu/internal/services/auth"
	"github.com/mcoot/kelimeoyunu/internal/storage/postgres"
	redisstorage "github.com/mcoot/kelimeoyunu/internal/storage/redis"
)

func main() {
	// A .env file is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not read .env file", slog.String("error", err.Error()))
	}

	cfg, err := config.Load(os.Getenv("KELIME_CONFIG_PATH"))
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := factory.New(ctx, factoryConfig(cfg, logger))
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to close application", slog.String("error", err.Error()))
		}
	}()

	router := api.NewRouter(api.RouterConfig{
		Logger:            logger,
		Clock:             app.Clock,
		AuthService:       app.AuthService,
		ProfileService:    app.ProfileService,
		LivesService:      app.LivesService,
		Poller:            app.Poller,
		Notifier:          app.Notifier,
		Preferences:       app.Storage,
		Lexicon:           app.Lexicon,
		RoomManager:       app.RoomManager,
		TournamentManager: app.TournamentManager,
		HubManager:        app.HubManager,
		Sockets:           app.Sockets,
	})

	server := api.NewServer(router, app, api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)

	// Start engine and server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.Storage.Type),
		slog.Int("dictionary_words", app.Lexicon.WordCount()))

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
		}
	}

	logger.Info("server stopped")
}

func factoryConfig(cfg *config.Config, logger *slog.Logger) factory.Config {
	fc := factory.Config{
		LexiconPath: cfg.Lexicon.Path,
		AuthConfig: auth.Config{
			JWTSecret:          cfg.Auth.JWTSecret,
			TokenTTL:           cfg.Auth.TokenTTL,
			GoogleClientID:     cfg.Auth.GoogleClientID,
			GoogleClientSecret: cfg.Auth.GoogleClientSecret,
			GoogleRedirectURL:  cfg.Auth.GoogleRedirectURL,
		},
		Logger:       logger,
		StorageType:  cfg.Storage.Type,
		SQLitePath:   cfg.Storage.SQLitePath,
		PollInterval: cfg.Lives.PollInterval,
	}

	if cfg.Storage.Type == config.StorageRedis {
		fc.RedisConfig = &redisstorage.Config{
			URL:           cfg.Storage.Redis.URL,
			PoolSize:      cfg.Storage.Redis.PoolSize,
			MinIdleConns:  cfg.Storage.Redis.MinIdleConns,
			RoomTTL:       cfg.Storage.Redis.RoomTTL,
			TournamentTTL: cfg.Storage.Redis.TournamentTTL,
		}
	}

	if pg := cfg.Storage.Postgres; pg.Enabled {
		fc.PostgresConfig = &postgres.Config{
			Host:            pg.Host,
			Port:            pg.Port,
			Name:            pg.Name,
			User:            pg.User,
			Password:        pg.Password,
			SSLMode:         pg.SSLMode,
			PoolSize:        pg.PoolSize,
			ConnectTimeout:  pg.ConnectTimeout,
			MaxConnLifetime: pg.MaxConnLifetime,
			MaxConnIdleTime: pg.MaxConnIdleTime,
		}
	}

	if cfg.Notifications.EmailEnabled() {
		fc.SESRegion = cfg.Notifications.SESRegion
		fc.SESFrom = cfg.Notifications.SESFrom
	}
	return fc
}
