// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/etoile-yachts/MediaValidator/internal/config"
	"github.com/etoile-yachts/MediaValidator/internal/engine"
	"github.com/etoile-yachts/MediaValidator/internal/export"
	"github.com/etoile-yachts/MediaValidator/internal/media"
	"github.com/etoile-yachts/MediaValidator/internal/monitoring"
	"github.com/etoile-yachts/MediaValidator/internal/probe"
	"github.com/etoile-yachts/MediaValidator/internal/store"
	"github.com/etoile-yachts/MediaValidator/internal/utils"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("media-validator server %s (built %s)\n", version, buildTime)
		return
	}

	// .env is optional; environment wins over file values.
	_ = godotenv.Load()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	level, err := utils.ParseLogLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	utils.SetDefaultLevel(level)
	log := utils.NewComponentLogger("main")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	mongoStore, err := store.NewMongoStore(ctx, cfg.Mongo)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to connect document store: %w", err)
	}
	defer mongoStore.Close(context.Background())

	registry, err := media.NewRegistry(cfg.PlaceholderTypes())
	if err != nil {
		return fmt.Errorf("invalid placeholder configuration: %w", err)
	}

	prober := probe.NewHTTPProber(cfg.Probe.Options)
	defer prober.Close()

	var limiter *utils.RateLimiter
	if cfg.Probe.RateLimit > 0 {
		limiter = utils.NewRateLimiter(cfg.Probe.RateLimit, cfg.Probe.RateBurst)
	}

	metrics := monitoring.NewMetrics(monitoring.MetricsConfig{})

	eng, err := engine.New(engine.Config{
		Source:     mongoStore,
		Reports:    mongoStore,
		Prober:     prober,
		Registry:   registry,
		Classifier: media.NewClassifier(registry, cfg.Media),
		Extractor:  media.NewExtractor(cfg.Extraction),
		Limiter:    limiter,
		Metrics:    metrics,
		Defaults: engine.Options{
			Collections: cfg.Engine.Collections,
			BatchSize:   cfg.Engine.BatchSize,
			Concurrency: cfg.Engine.Concurrency,
			BatchDelay:  cfg.Engine.BatchDelay,
			PageSize:    cfg.Engine.PageSize,
			BaseURL:     cfg.Engine.BaseURL,
		},
	})
	if err != nil {
		return err
	}

	health := monitoring.NewHealthManager(version)
	health.Register("mongodb", func(ctx context.Context) error {
		_, err := mongoStore.ListCollections(ctx)
		return err
	})

	formats := make([]export.Format, 0, len(cfg.Export.Formats))
	for _, f := range cfg.Export.Formats {
		formats = append(formats, export.Format(f))
	}
	exporter := export.NewManager(cfg.Export.Directory, formats)

	srv := newServer(cfg, eng, mongoStore, exporter, metrics, health)
	defer srv.shutdown()

	httpServer := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      srv.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", cfg.Server.Listen)
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case sig := <-sigCh:
		log.Infof("received %s, shutting down", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
	}

	log.Info("server stopped")
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv("MEDIA_VALIDATOR_CONFIG")
	}
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
