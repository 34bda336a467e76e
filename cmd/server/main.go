// Package main is the entry point for the recipe-room server.
//
// MAIN PACKAGE IN GO:
// Every Go program starts execution in the main() function of the "main" package.
// The main package should be kept minimal. Its job is to:
// 1. Read configuration (config.Load: defaults, config.yaml, env vars)
// 2. Create dependencies (logger, image store)
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/handler, etc.).
package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sakif/recipe-room/internal/config"
	"github.com/sakif/recipe-room/internal/server"
	"github.com/sakif/recipe-room/internal/storage"
)

func main() {
	// === 1. LOAD .env ===
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to read .env", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. READ CONFIGURATION ===
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 3. SET UP LOGGING ===
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	// === 4. DATABASE DIRECTORY ===
	// os.MkdirAll creates all parent directories if needed (like `mkdir -p`).
	if cfg.Database.Path != ":memory:" {
		dbDir := filepath.Dir(cfg.Database.Path)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	// === 5. IMAGE STORE ===
	// Optional: without a bucket the upload routes answer 503.
	var images storage.ImageStore
	if cfg.Storage.Enabled() {
		s3Store, err := storage.NewS3Store(context.Background(), storage.S3Config{
			Bucket:          cfg.Storage.Bucket,
			Region:          cfg.Storage.Region,
			Endpoint:        cfg.Storage.Endpoint,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			PublicBaseURL:   cfg.Storage.PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to configure image storage", slog.String("error", err.Error()))
			os.Exit(1)
		}
		images = storage.NewBreakerStore(s3Store, storage.BreakerSettings{Name: "s3"}, logger)
	} else {
		logger.Warn("S3_BUCKET not set: image uploads are disabled")
	}

	if !cfg.GitHub.Enabled() {
		logger.Info("GITHUB_CLIENT_ID not set: GitHub sign-in is disabled")
	}
	if !cfg.Auth.CookieSecure {
		logger.Warn("token cookie is not marked Secure; use only on localhost")
	}

	// === 6. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger, images)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// newLogger builds the slog logger from LOG_LEVEL and LOG_FORMAT.
// Log levels (from least to most severe): Debug → Info → Warn → Error
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Level))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
