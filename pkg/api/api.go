// pkg/api/api.go
package api

import (
	"context"
	"fmt"

	"github.com/etoile-yachts/MediaValidator/internal/engine"
	"github.com/etoile-yachts/MediaValidator/internal/export"
	"github.com/etoile-yachts/MediaValidator/internal/media"
	"github.com/etoile-yachts/MediaValidator/internal/monitoring"
	"github.com/etoile-yachts/MediaValidator/internal/probe"
	"github.com/etoile-yachts/MediaValidator/internal/store"
	"github.com/etoile-yachts/MediaValidator/internal/utils"
)

// Client is the high-level entry point for media validation. It wires
// the document store, prober, and engine from a single Config.
type Client struct {
	cfg      *Config
	store    *store.MongoStore
	prober   *probe.HTTPProber
	engine   *engine.Engine
	exporter *export.Manager
	metrics  *monitoring.Metrics
}

// NewClient connects to the configured MongoDB deployment and builds a
// ready-to-run engine. Callers own the client and must Close it.
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	mongoStore, err := store.NewMongoStore(ctx, cfg.Mongo)
	if err != nil {
		return nil, fmt.Errorf("failed to connect document store: %w", err)
	}

	client, err := newClientWithStore(cfg, mongoStore)
	if err != nil {
		mongoStore.Close(ctx)
		return nil, err
	}
	return client, nil
}

func newClientWithStore(cfg *Config, mongoStore *store.MongoStore) (*Client, error) {
	registry, err := media.NewRegistry(cfg.PlaceholderTypes())
	if err != nil {
		return nil, fmt.Errorf("invalid placeholder configuration: %w", err)
	}

	prober := probe.NewHTTPProber(cfg.Probe.Options)
	metrics := monitoring.NewMetrics(monitoring.MetricsConfig{Namespace: "media_validator"})

	var limiter *utils.RateLimiter
	if cfg.Probe.RateLimit > 0 {
		limiter = utils.NewRateLimiter(cfg.Probe.RateLimit, cfg.Probe.RateBurst)
	}

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
		return nil, err
	}

	formats := make([]export.Format, 0, len(cfg.Export.Formats))
	for _, f := range cfg.Export.Formats {
		formats = append(formats, export.Format(f))
	}

	return &Client{
		cfg:      cfg,
		store:    mongoStore,
		prober:   prober,
		engine:   eng,
		exporter: export.NewManager(cfg.Export.Directory, formats),
		metrics:  metrics,
	}, nil
}

// Engine exposes the underlying validation engine.
func (c *Client) Engine() *engine.Engine { return c.engine }

// Metrics exposes the Prometheus registry handler owner.
func (c *Client) Metrics() *monitoring.Metrics { return c.metrics }

// StartValidation begins an asynchronous validation run.
func (c *Client) StartValidation(ctx context.Context, opts RunOptions) error {
	return c.engine.Start(ctx, opts)
}

// StopValidation requests a pause at the next batch boundary.
func (c *Client) StopValidation() error { return c.engine.Stop() }

// ResumeValidation continues a paused run.
func (c *Client) ResumeValidation(ctx context.Context) error {
	return c.engine.Resume(ctx)
}

// ValidationProgress reports the current run state.
func (c *Client) ValidationProgress() Progress { return c.engine.Progress() }

// ValidateCollection runs a synchronous scan of one collection and
// returns its report.
func (c *Client) ValidateCollection(ctx context.Context, collection string, opts RunOptions) (*ValidationReport, error) {
	return c.engine.ValidateCollection(ctx, collection, opts)
}

// RepairFromReport applies repairs for the invalid references of a
// stored report, optionally restricted to specific URLs.
func (c *Client) RepairFromReport(ctx context.Context, reportID string, urls ...string) (*RepairReport, error) {
	return c.engine.RepairFromReport(ctx, reportID, urls...)
}

// FixRelativeURLs rewrites relative references against baseURL. An
// empty baseURL falls back to the configured engine base.
func (c *Client) FixRelativeURLs(ctx context.Context, baseURL string) (*RepairReport, error) {
	if baseURL == "" {
		baseURL = c.cfg.Engine.BaseURL
	}
	return c.engine.FixRelativeURLs(ctx, baseURL)
}

// ResolveBlobURLs replaces blob references with typed placeholders.
func (c *Client) ResolveBlobURLs(ctx context.Context) (*RepairReport, error) {
	return c.engine.ResolveBlobURLs(ctx)
}

// GetValidationReport fetches one stored validation report.
func (c *Client) GetValidationReport(ctx context.Context, id string) (*ValidationReport, error) {
	return c.store.GetValidationReport(ctx, id)
}

// ListValidationReports pages stored validation reports, newest first.
func (c *Client) ListValidationReports(ctx context.Context, page, pageSize int) ([]*ValidationReport, error) {
	return c.store.ListValidationReports(ctx, page, pageSize)
}

// GetRepairReport fetches one stored repair report.
func (c *Client) GetRepairReport(ctx context.Context, id string) (*RepairReport, error) {
	return c.store.GetRepairReport(ctx, id)
}

// ListRepairReports pages stored repair reports, newest first.
func (c *Client) ListRepairReports(ctx context.Context, page, pageSize int) ([]*RepairReport, error) {
	return c.store.ListRepairReports(ctx, page, pageSize)
}

// ExportReport writes a stored report to the configured export
// directory and returns the written file paths.
func (c *Client) ExportReport(ctx context.Context, reportID string) ([]string, error) {
	report, err := c.store.GetValidationReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	return c.exporter.ExportReport(report)
}

// Close releases the store connection and probe transport.
func (c *Client) Close(ctx context.Context) error {
	c.prober.Close()
	return c.store.Close(ctx)
}
