package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/benvon/neohub-telemetry-reader/internal/config"
	"github.com/benvon/neohub-telemetry-reader/internal/handlers"
	provider "github.com/benvon/neohub-telemetry-reader/internal/providers/neohub"
	"github.com/benvon/neohub-telemetry-reader/pkg/neohub"
)

// These variables will be set at build time by goreleaser
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Logging)
	logger.Info("Starting hub API server", "version", version, "commit", commit, "config", cfg.String())

	validator := neohub.Validator{
		MinC: cfg.Hub.ValidTempMinC,
		MaxC: cfg.Hub.ValidTempMaxC,
	}
	p := provider.NewProvider(cfg.Hub.Username, cfg.Hub.Password, cfg.Hub.BaseURL, validator, logger)

	// Create HTTP server
	mux := http.NewServeMux()
	handlers.NewHandler(p, logger).RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Add health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, err := fmt.Fprintf(w, `{"status":"healthy","version":"%s","timestamp":"%s"}`,
			version, time.Now().UTC().Format(time.RFC3339))
		if err != nil {
			logger.Warn("Failed to write health check response", "error", err)
		}
	})

	// Add version endpoint
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, err := fmt.Fprintf(w, `{"version":"%s","commit":"%s","date":"%s","builtBy":"%s"}`,
			version, commit, date, builtBy)
		if err != nil {
			logger.Warn("Failed to write version response", "error", err)
		}
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	// Create a deadline for server shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("Server exited")
}

// setupLogger configures structured logging
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
