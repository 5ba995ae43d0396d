package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tributary-ai/model-selector/internal/config"
	"github.com/tributary-ai/model-selector/internal/registry"
	"github.com/tributary-ai/model-selector/internal/scenario"
	"github.com/tributary-ai/model-selector/internal/selection"
	"github.com/tributary-ai/model-selector/internal/server"
	"github.com/tributary-ai/model-selector/internal/strategy"
	"github.com/tributary-ai/model-selector/internal/types"
)

// Application represents the main application
type Application struct {
	config   *config.Config
	registry *registry.Registry
	store    *scenario.Store
	selector *selection.Selector
	server   *server.Server
	logger   *logrus.Logger
}

// NewApplication creates a new application instance
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logrus.New()
	if err := setupLogger(logger, cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}

	reg := registry.NewRegistry(logger)
	if err := seedCatalog(reg, cfg, logger); err != nil {
		return nil, fmt.Errorf("failed to seed catalog: %w", err)
	}

	store := scenario.NewStore(logger)
	if err := applyScenarioOverrides(store, cfg, logger); err != nil {
		return nil, fmt.Errorf("failed to apply scenario overrides: %w", err)
	}
	store.RegisterAvailableBackends(reg.ListAll())

	strategies := map[types.StrategyKind]strategy.Strategy{
		types.StrategyCost:     strategy.NewCostOptimized(cfg.Strategies.Cost, logger),
		types.StrategyQuality:  strategy.NewQualityOptimized(cfg.Strategies.Quality, logger),
		types.StrategyLatency:  strategy.NewLatencyOptimized(cfg.Strategies.Latency, logger),
		types.StrategyBalanced: strategy.NewBalanced(logger),
	}
	selector := selection.NewSelector(store, strategies, logger)

	serverInstance, err := server.NewServer(reg, store, selector, cfg.ToServerConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	return &Application{
		config:   cfg,
		registry: reg,
		store:    store,
		selector: selector,
		server:   serverInstance,
		logger:   logger,
	}, nil
}

// Run starts the application
func (app *Application) Run() error {
	app.logger.Info("Starting model selector")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		app.logger.WithField("address", ":"+app.config.Server.Port).Info("HTTP server starting")
		if err := app.server.Start(); err != nil {
			serverErrors <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		app.logger.WithField("signal", sig.String()).Info("Shutdown signal received")
	}

	app.logger.Info("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := app.server.Stop(shutdownCtx); err != nil {
		app.logger.WithError(err).Error("Server shutdown error")
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	app.logger.Info("Graceful shutdown completed")
	return nil
}

// setupLogger configures the logger based on configuration
func setupLogger(logger *logrus.Logger, cfg config.LoggingConfig) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %s: %w", cfg.Level, err)
	}
	logger.SetLevel(level)

	switch cfg.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	default:
		return fmt.Errorf("invalid log format: %s", cfg.Format)
	}

	switch cfg.Output {
	case "stdout":
		logger.SetOutput(os.Stdout)
	case "stderr":
		logger.SetOutput(os.Stderr)
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", cfg.Output, err)
		}
		logger.SetOutput(file)
	}

	return nil
}

// seedCatalog registers every configured backend with the registry
func seedCatalog(reg *registry.Registry, cfg *config.Config, logger *logrus.Logger) error {
	for _, backend := range cfg.Catalog {
		if err := reg.Register(backend); err != nil {
			return fmt.Errorf("failed to register %s: %w", backend.Name, err)
		}
	}

	logger.WithFields(logrus.Fields{
		"models":    reg.Count(),
		"available": reg.AvailableCount(),
	}).Info("Catalog seeded")
	return nil
}

// applyScenarioOverrides applies config-file overrides to the built-in
// scenario defaults
func applyScenarioOverrides(store *scenario.Store, cfg *config.Config, logger *logrus.Logger) error {
	for name, override := range cfg.Scenarios {
		sc := types.Scenario(name)
		if err := store.UpdateConfig(sc, override.ToUpdate()); err != nil {
			return fmt.Errorf("scenario %s: %w", name, err)
		}
		logger.WithField("scenario", name).Info("Scenario override applied")
	}
	return nil
}

// printUsage prints application usage information
func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "\nOptions:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
	fmt.Fprintf(os.Stderr, "  MODEL_SELECTOR_PORT        Server port (default: 8080)\n")
	fmt.Fprintf(os.Stderr, "  MODEL_SELECTOR_LOG_LEVEL   Log level (debug,info,warn,error,fatal)\n")
	fmt.Fprintf(os.Stderr, "  MODEL_SELECTOR_LOG_FORMAT  Log format (json,text)\n")
	fmt.Fprintf(os.Stderr, "  MODEL_SELECTOR_API_KEYS    Comma-separated admin API keys\n")
	fmt.Fprintf(os.Stderr, "  MODEL_SELECTOR_JWT_SECRET  JWT signing secret\n")
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  %s --config configs/config.yaml\n", os.Args[0])
}

func main() {
	var (
		configPath = flag.String("config", "", "Path to configuration file")
		showHelp   = flag.Bool("help", false, "Show help message")
		version    = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showHelp {
		printUsage()
		os.Exit(0)
	}

	if *version {
		fmt.Printf("Model Selector v1.0.0\n")
		os.Exit(0)
	}

	app, err := NewApplication(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}
