package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/benvon/neohub-telemetry-reader/internal/core"
	neohubprovider "github.com/benvon/neohub-telemetry-reader/internal/providers/neohub"
	"github.com/benvon/neohub-telemetry-reader/internal/sinks/elasticsearch"
	"github.com/benvon/neohub-telemetry-reader/internal/sinks/mqtt"
	"github.com/benvon/neohub-telemetry-reader/pkg/config"
	"github.com/benvon/neohub-telemetry-reader/pkg/model"
	"github.com/benvon/neohub-telemetry-reader/pkg/neohub"
)

var (
	configFile    = flag.String("config", "config.yaml", "Path to configuration file")
	writeExample  = flag.Bool("write-example-config", false, "Write an example configuration file and exit")
	version       = flag.Bool("version", false, "Show version information")
)

const (
	appName    = "neohub-telemetry-reader"
	appVersion = "1.0.0"
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("%s version %s\n", appName, appVersion)
		os.Exit(0)
	}

	if *writeExample {
		if err := config.CreateExampleConfig(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write example config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote example configuration to %s\n", *configFile)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Set up logging
	logger := setupLogger(cfg.Reader.LogLevel)
	logger.Info("Starting hub telemetry reader",
		"version", appVersion,
		"config_file", *configFile)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("Received signal, shutting down gracefully", "signal", sig)
		cancel()
	}()

	// Initialize components
	app, err := initializeApp(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	// Open sinks before the first poll
	for _, sink := range app.Sinks {
		if err := sink.Open(ctx); err != nil {
			logger.Error("Failed to open sink", "sink", sink.Info().Name, "error", err)
			os.Exit(1)
		}
	}

	// Start health and metrics servers
	startHealthServers(ctx, app, cfg, logger)

	// Start the main scheduler
	logger.Info("Starting scheduler")
	if err := app.Scheduler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Scheduler failed", "error", err)
		os.Exit(1)
	}

	// Close sinks after the scheduler stops
	closeCtx, closeCancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer closeCancel()
	for _, sink := range app.Sinks {
		if err := sink.Close(closeCtx); err != nil {
			logger.Warn("Failed to close sink", "sink", sink.Info().Name, "error", err)
		}
	}

	logger.Info("Application stopped")
}

// Application holds all the application components
type Application struct {
	Config        *config.Config
	Providers     []model.Provider
	Sinks         []model.Sink
	Normalizer    *core.Normalizer
	Scheduler     *core.Scheduler
	HealthChecker *core.HealthChecker
	Metrics       *core.Metrics
	Logger        *slog.Logger

	offsetStore core.OffsetStore
}

// Close releases resources held by the application
func (a *Application) Close() {
	if store, ok := a.offsetStore.(*core.SQLiteOffsetStore); ok {
		if err := store.Close(); err != nil {
			a.Logger.Warn("Failed to close offset store", "error", err)
		}
	}
}

// initializeApp initializes all application components
func initializeApp(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	app := &Application{
		Config: cfg,
		Logger: logger,
	}

	validator := neohub.Validator{
		MinC: cfg.Reader.ValidTempMinC,
		MaxC: cfg.Reader.ValidTempMaxC,
	}

	// Initialize providers
	providers, err := initializeProviders(cfg, validator, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing providers: %w", err)
	}
	app.Providers = providers

	// Initialize sinks
	sinks, err := initializeSinks(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing sinks: %w", err)
	}
	app.Sinks = sinks

	// Initialize normalizer
	normalizer, err := core.NewNormalizer(cfg.Reader.Timezone)
	if err != nil {
		return nil, fmt.Errorf("initializing normalizer: %w", err)
	}
	app.Normalizer = normalizer

	// Initialize offset store
	offsetStore, err := initializeOffsetStore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing offset store: %w", err)
	}
	app.offsetStore = offsetStore

	// Initialize metrics
	metrics := core.NewMetrics(prometheus.DefaultRegisterer)
	app.Metrics = metrics

	// Initialize scheduler
	app.Scheduler = core.NewScheduler(
		providers,
		sinks,
		normalizer,
		offsetStore,
		metrics,
		cfg.Reader.PollInterval,
		cfg.Reader.HistoryInterval,
		logger,
	)

	// Initialize health checker
	app.HealthChecker = core.NewHealthChecker(providers, sinks)

	return app, nil
}

// initializeProviders initializes all configured providers
func initializeProviders(cfg *config.Config, validator neohub.Validator, logger *slog.Logger) ([]model.Provider, error) {
	var providers []model.Provider

	for _, providerConfig := range cfg.GetEnabledProviders() {
		switch providerConfig.Name {
		case "neohub":
			logger.Info("Initializing neoHub provider")
			provider, err := neohubprovider.NewProviderFromSettings(providerConfig.Settings, validator, logger)
			if err != nil {
				return nil, fmt.Errorf("initializing neohub provider: %w", err)
			}
			providers = append(providers, provider)
		default:
			logger.Warn("Unknown provider type", "provider", providerConfig.Name)
		}
	}

	return providers, nil
}

// initializeSinks initializes all configured sinks
func initializeSinks(cfg *config.Config, logger *slog.Logger) ([]model.Sink, error) {
	var sinks []model.Sink

	for _, sinkConfig := range cfg.GetEnabledSinks() {
		switch sinkConfig.Name {
		case "elasticsearch":
			logger.Info("Initializing Elasticsearch sink")
			sink, err := elasticsearch.NewSinkFromSettings(sinkConfig.Settings)
			if err != nil {
				return nil, fmt.Errorf("initializing elasticsearch sink: %w", err)
			}
			sinks = append(sinks, sink)
		case "mqtt":
			logger.Info("Initializing MQTT sink")
			sink, err := mqtt.NewSinkFromSettings(sinkConfig.Settings)
			if err != nil {
				return nil, fmt.Errorf("initializing mqtt sink: %w", err)
			}
			sinks = append(sinks, sink)
		default:
			logger.Warn("Unknown sink type", "sink", sinkConfig.Name)
		}
	}

	return sinks, nil
}

// initializeOffsetStore opens the SQLite offset store, or falls back to
// in-memory offsets when no path is configured
func initializeOffsetStore(cfg *config.Config, logger *slog.Logger) (core.OffsetStore, error) {
	if cfg.Reader.OffsetDBPath == "" {
		logger.Warn("No offset_db_path configured, history offsets will not survive restarts")
		return core.NewMemoryOffsetStore(), nil
	}
	logger.Info("Opening offset store", "path", cfg.Reader.OffsetDBPath)
	return core.NewSQLiteOffsetStore(cfg.Reader.OffsetDBPath)
}

// startHealthServers starts the health and metrics HTTP servers
func startHealthServers(ctx context.Context, app *Application, cfg *config.Config, logger *slog.Logger) {
	healthMux := http.NewServeMux()
	healthMux.Handle("/healthz", app.HealthChecker.ServeHealth())

	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Reader.HealthPort),
		Handler: healthMux,
	}

	go func() {
		logger.Info("Starting health server", "port", cfg.Reader.HealthPort)
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health server failed", "error", err)
		}
	}()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Reader.MetricsPort),
		Handler: metricsMux,
	}

	go func() {
		logger.Info("Starting metrics server", "port", cfg.Reader.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", "error", err)
		}
	}()

	// Graceful shutdown for servers
	go func() {
		<-ctx.Done()
		logger.Info("Shutting down HTTP servers")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer shutdownCancel()

		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shutdown health server", "error", err)
		}

		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shutdown metrics server", "error", err)
		}
	}()
}

// setupLogger configures structured logging
func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	return slog.New(handler)
}
