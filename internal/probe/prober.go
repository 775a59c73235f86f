// Package probe performs bounded-timeout reachability checks against
// media URLs. The Prober interface is injectable so tests and callers
// can script responses without touching the network.
package probe

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/etoile-yachts/MediaValidator/internal/utils"
)

// Result is the observable outcome of a successful probe exchange.
// A non-2xx status is still a Result, not an error; errors are reserved
// for transport failures and timeouts.
type Result struct {
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type"`
}

// Prober checks whether a URL is reachable and what it serves.
type Prober interface {
	Probe(ctx context.Context, url string) (Result, error)
}

// Options configure the HTTP prober.
type Options struct {
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent   string        `yaml:"user_agent" json:"user_agent"`
	MaxIdle     int           `yaml:"max_idle" json:"max_idle"`
	MaxIdleHost int           `yaml:"max_idle_host" json:"max_idle_host"`
}

// DefaultOptions returns the production probe settings.
func DefaultOptions() Options {
	return Options{
		Timeout:     10 * time.Second,
		UserAgent:   "EtoileMediaValidator/1.0",
		MaxIdle:     100,
		MaxIdleHost: 10,
	}
}

// HTTPProber issues lightweight existence probes: HEAD first, falling
// back to a ranged GET for hosts that reject HEAD. One pooled client is
// shared across probes.
type HTTPProber struct {
	client  *http.Client
	options Options
	log     utils.Logger
}

// NewHTTPProber creates a prober with a pooled HTTP client.
func NewHTTPProber(options Options) *HTTPProber {
	if options.Timeout <= 0 {
		options.Timeout = DefaultOptions().Timeout
	}
	if options.UserAgent == "" {
		options.UserAgent = DefaultOptions().UserAgent
	}
	if options.MaxIdle <= 0 {
		options.MaxIdle = DefaultOptions().MaxIdle
	}
	if options.MaxIdleHost <= 0 {
		options.MaxIdleHost = DefaultOptions().MaxIdleHost
	}

	client := &http.Client{
		Timeout: options.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        options.MaxIdle,
			MaxIdleConnsPerHost: options.MaxIdleHost,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &HTTPProber{
		client:  client,
		options: options,
		log:     utils.NewComponentLogger("prober"),
	}
}

// Probe checks a URL with a per-probe timeout so one unreachable host
// cannot stall a batch.
func (p *HTTPProber) Probe(ctx context.Context, url string) (Result, error) {
	probeCtx, cancel := context.WithTimeout(ctx, p.options.Timeout)
	defer cancel()

	result, err := p.do(probeCtx, http.MethodHead, url)
	if err != nil {
		return Result{}, err
	}

	// Some CDN hosts reject HEAD outright; retry with a ranged GET so
	// the body stays tiny.
	if result.StatusCode == http.StatusMethodNotAllowed || result.StatusCode == http.StatusNotImplemented {
		p.log.Debugf("HEAD rejected with %d for %s, retrying with ranged GET", result.StatusCode, url)
		return p.do(probeCtx, http.MethodGet, url)
	}

	return result, nil
}

func (p *HTTPProber) do(ctx context.Context, method, url string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create probe request: %w", err)
	}
	req.Header.Set("User-Agent", p.options.UserAgent)
	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-0")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	return Result{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// Close releases idle connections held by the prober.
func (p *HTTPProber) Close() {
	if transport, ok := p.client.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}

// Func adapts a plain function to the Prober interface, the way tests
// script probe responses.
type Func func(ctx context.Context, url string) (Result, error)

// Probe implements Prober.
func (f Func) Probe(ctx context.Context, url string) (Result, error) {
	return f(ctx, url)
}
