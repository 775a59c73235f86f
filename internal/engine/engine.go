// Package engine orchestrates media validation and repair: it pages
// documents out of the store, extracts and validates media references
// in bounded-concurrency batches, tracks resumable progress, persists
// immutable reports, and applies conditional repairs.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/etoile-yachts/MediaValidator/internal/media"
	"github.com/etoile-yachts/MediaValidator/internal/monitoring"
	"github.com/etoile-yachts/MediaValidator/internal/probe"
	"github.com/etoile-yachts/MediaValidator/internal/store"
	"github.com/etoile-yachts/MediaValidator/internal/utils"
)

// Options tune a validation run. Zero values fall back to the engine
// defaults supplied at construction.
type Options struct {
	// Collections restricts the scan; empty means every collection the
	// document source lists.
	Collections []string `json:"collections,omitempty"`

	// BatchSize is the number of references processed between pause
	// checks.
	BatchSize int `json:"batch_size,omitempty"`

	// Concurrency bounds the parallel probes within one batch.
	Concurrency int `json:"concurrency,omitempty"`

	// BatchDelay is an optional fixed delay between batches, throttling
	// load on the document store and on external hosts.
	BatchDelay time.Duration `json:"batch_delay,omitempty"`

	// PageSize is the document-ID page size used while collecting.
	PageSize int `json:"page_size,omitempty"`

	// BaseURL, when set, lets relative references be normalized to
	// absolute and re-classified instead of being marked invalid.
	BaseURL string `json:"base_url,omitempty"`
}

// Config wires the engine's collaborators.
type Config struct {
	Source     store.DocumentSource
	Reports    store.ReportStore
	Prober     probe.Prober
	Registry   *media.Registry
	Classifier *media.Classifier
	Extractor  *media.Extractor

	// Limiter throttles outbound probes; nil means unthrottled.
	Limiter *utils.RateLimiter

	// Metrics may be nil.
	Metrics *monitoring.Metrics

	// Defaults fill unset Options fields on every run.
	Defaults Options
}

// Engine is the media validation and repair engine. One engine holds at
// most one active run; concurrent starts are rejected by the state
// machine, never serialized silently.
type Engine struct {
	source     store.DocumentSource
	reports    store.ReportStore
	prober     probe.Prober
	registry   *media.Registry
	classifier *media.Classifier
	extractor  *media.Extractor
	limiter    *utils.RateLimiter
	metrics    *monitoring.Metrics
	defaults   Options
	log        utils.Logger

	mu            sync.Mutex
	progress      Progress
	stopRequested bool

	// Run state retained across pause/resume. pending holds the not yet
	// processed references in the extractor's stable order; outcomes
	// accumulates across the whole run.
	runOpts    Options
	pending    []media.Reference
	outcomes   []media.Outcome
	docCounts  map[string]int
	runStart   time.Time
	lastReport *media.ValidationReport
}

// New creates an engine. Source, Reports, Prober, Registry, Classifier
// and Extractor are required.
func New(cfg Config) (*Engine, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("engine requires a document source")
	}
	if cfg.Reports == nil {
		return nil, fmt.Errorf("engine requires a report store")
	}
	if cfg.Prober == nil {
		return nil, fmt.Errorf("engine requires a prober")
	}
	if cfg.Registry == nil || cfg.Classifier == nil || cfg.Extractor == nil {
		return nil, fmt.Errorf("engine requires registry, classifier, and extractor")
	}

	applyOptionDefaults(&cfg.Defaults)

	return &Engine{
		source:     cfg.Source,
		reports:    cfg.Reports,
		prober:     cfg.Prober,
		registry:   cfg.Registry,
		classifier: cfg.Classifier,
		extractor:  cfg.Extractor,
		limiter:    cfg.Limiter,
		metrics:    cfg.Metrics,
		defaults:   cfg.Defaults,
		log:        utils.NewComponentLogger("engine"),
		progress:   Progress{Status: StatusIdle},
	}, nil
}

// Progress returns a snapshot of the current run state.
func (e *Engine) Progress() Progress {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progress
}

// LastReport returns the report persisted by the most recent completed
// or failed run, or nil.
func (e *Engine) LastReport() *media.ValidationReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastReport
}

// Reset clears a terminal run state back to IDLE. It errors while a run
// is RUNNING or PAUSED.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.progress.Status {
	case StatusRunning, StatusPaused:
		return utils.NewErrorf(utils.ErrCodeInvalidState, "cannot reset while %s", e.progress.Status)
	}

	e.progress = Progress{Status: StatusIdle}
	e.pending = nil
	e.outcomes = nil
	e.docCounts = nil
	e.stopRequested = false
	return nil
}

// resolveOptions overlays run options on the engine defaults.
func (e *Engine) resolveOptions(opts Options) Options {
	resolved := e.defaults
	if len(opts.Collections) > 0 {
		resolved.Collections = opts.Collections
	}
	if opts.BatchSize > 0 {
		resolved.BatchSize = opts.BatchSize
	}
	if opts.Concurrency > 0 {
		resolved.Concurrency = opts.Concurrency
	}
	if opts.BatchDelay > 0 {
		resolved.BatchDelay = opts.BatchDelay
	}
	if opts.PageSize > 0 {
		resolved.PageSize = opts.PageSize
	}
	if opts.BaseURL != "" {
		resolved.BaseURL = opts.BaseURL
	}
	return resolved
}

func applyOptionDefaults(opts *Options) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 5
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
}
