// internal/config/types.go
package config

import (
	"time"

	"github.com/etoile-yachts/MediaValidator/internal/media"
	"github.com/etoile-yachts/MediaValidator/internal/probe"
	"github.com/etoile-yachts/MediaValidator/internal/store"
)

// Config is the root configuration for the media validation service.
type Config struct {
	Mongo        store.MongoOptions    `yaml:"mongo" json:"mongo"`
	Engine       EngineConfig          `yaml:"engine" json:"engine"`
	Probe        ProbeConfig           `yaml:"probe" json:"probe"`
	Placeholders map[string]string     `yaml:"placeholders" json:"placeholders"`
	Media        media.ClassifierRules `yaml:"media" json:"media"`
	Extraction   media.ExtractionRules `yaml:"extraction" json:"extraction"`
	Export       ExportConfig          `yaml:"export" json:"export"`
	Server       ServerConfig          `yaml:"server" json:"server"`
	Log          LogConfig             `yaml:"log" json:"log"`
}

// EngineConfig tunes the batch scheduler.
type EngineConfig struct {
	Collections []string      `yaml:"collections,omitempty" json:"collections,omitempty"`
	BatchSize   int           `yaml:"batch_size" json:"batch_size"`
	Concurrency int           `yaml:"concurrency" json:"concurrency"`
	BatchDelay  time.Duration `yaml:"batch_delay,omitempty" json:"batch_delay,omitempty"`
	PageSize    int           `yaml:"page_size" json:"page_size"`

	// BaseURL enables base-URL normalization of relative references
	// during validation, and is the default base for relative repairs.
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`
}

// ProbeConfig tunes reachability probing.
type ProbeConfig struct {
	probe.Options `yaml:",inline"`

	// RateLimit caps outbound probes per second; zero means unlimited.
	RateLimit float64 `yaml:"rate_limit,omitempty" json:"rate_limit,omitempty"`
	RateBurst int     `yaml:"rate_burst,omitempty" json:"rate_burst,omitempty"`
}

// ExportConfig controls report file export.
type ExportConfig struct {
	Directory string   `yaml:"directory" json:"directory"`
	Formats   []string `yaml:"formats,omitempty" json:"formats,omitempty"`
}

// ServerConfig configures the admin HTTP surface.
type ServerConfig struct {
	Listen      string `yaml:"listen" json:"listen"`
	MetricsPath string `yaml:"metrics_path" json:"metrics_path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// PlaceholderTypes converts the configured placeholder map into the
// typed form the registry consumes.
func (c *Config) PlaceholderTypes() map[media.Type]string {
	out := make(map[media.Type]string, len(c.Placeholders))
	for kind, url := range c.Placeholders {
		out[media.Type(kind)] = url
	}
	return out
}
