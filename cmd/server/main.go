package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/garnizeh/southwheels/api"
	dbfs "github.com/garnizeh/southwheels/db"
	"github.com/garnizeh/southwheels/internal/cache"
	"github.com/garnizeh/southwheels/internal/config"
	"github.com/garnizeh/southwheels/internal/db"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	api.SetLogger(logger)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", slog.Any("err", err))
		os.Exit(1)
	}

	logger.Info("starting South Wheels server", slog.String("version", version), slog.String("build_time", buildTime))

	ctx := context.Background()

	// Open database connection
	database, err := db.New(ctx, cfg.Database.Driver, cfg.Database.DSN, logger)
	if err != nil {
		logger.Error("failed to open DB", slog.Any("err", err))
		os.Exit(1)
	}

	if cfg.Database.MigrateOnStart {
		if err := migrate(ctx, database, cfg.Database.Seed); err != nil {
			logger.Error("migration failed", slog.Any("err", err))
			os.Exit(1)
		}
	}

	// Token revocations and cached profiles are shared through Redis when configured
	var shared cache.Cache
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, "southwheels:")
		if err != nil {
			logger.Error("failed to connect to redis", slog.String("addr", cfg.Redis.Addr), slog.Any("err", err))
			os.Exit(1)
		}
		defer rc.Close()
		shared = rc
	} else if !cfg.IsDevelopment() {
		logger.Warn("redis not configured, sessions and profiles are cached per process")
	}

	handler := api.SetupRoutes(cfg, version, buildTime, database, shared)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server starting", slog.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", slog.Any("err", err))
	}

	// Close database connection
	if err := database.Close(); err != nil {
		logger.Error("error closing DB", slog.Any("err", err))
	}

	logger.Info("server exited")
}

func migrate(ctx context.Context, database *db.DB, seed bool) error {
	if !seed {
		return db.Migrate(ctx, database, dbfs.Migrations, nil)
	}
	return db.Migrate(ctx, database, dbfs.Migrations, dbfs.SeedFiles)
}
