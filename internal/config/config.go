// internal/config/config.go
package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/etoile-yachts/MediaValidator/internal/export"
	"github.com/etoile-yachts/MediaValidator/internal/media"
)

// Default placeholder set. These are the storage-hosted assets the
// marketplace serves when media is missing or unrepairable; deployments
// override them per environment in configuration.
const (
	defaultImagePlaceholder    = "https://storage.googleapis.com/etoile-yachts.firebasestorage.app/placeholders/yacht-placeholder.jpg"
	defaultVideoPlaceholder    = "https://storage.googleapis.com/etoile-yachts.firebasestorage.app/placeholders/yacht-video-placeholder.mp4"
	defaultAudioPlaceholder    = "https://storage.googleapis.com/etoile-yachts.firebasestorage.app/placeholders/audio-placeholder.mp3"
	defaultDocumentPlaceholder = "https://storage.googleapis.com/etoile-yachts.firebasestorage.app/placeholders/document-placeholder.pdf"
)

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("configuration filename cannot be empty")
	}

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", filename)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %v", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes, expanding
// ${ENV_VAR} references first.
func LoadFromBytes(data []byte) (*Config, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("configuration data cannot be empty")
	}

	expanded := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %v", err)
	}

	ApplyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v", err)
	}

	return &config, nil
}

// LoadFromReader loads configuration from an io.Reader.
func LoadFromReader(reader io.Reader) (*Config, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read from reader: %v", err)
	}

	return LoadFromBytes(data)
}

// Default returns a fully defaulted configuration without touching the
// filesystem.
func Default() *Config {
	config := &Config{}
	ApplyDefaults(config)
	return config
}

// ApplyDefaults fills unset fields with production defaults.
func ApplyDefaults(config *Config) {
	if config.Mongo.Database == "" {
		config.Mongo.Database = "etoile_yachts"
	}
	if config.Mongo.Timeout == 0 {
		config.Mongo.Timeout = 30 * time.Second
	}

	if config.Engine.BatchSize <= 0 {
		config.Engine.BatchSize = 50
	}
	if config.Engine.Concurrency <= 0 {
		config.Engine.Concurrency = 5
	}
	if config.Engine.PageSize <= 0 {
		config.Engine.PageSize = 100
	}

	if config.Probe.Timeout <= 0 {
		config.Probe.Timeout = 10 * time.Second
	}
	if config.Probe.UserAgent == "" {
		config.Probe.UserAgent = "EtoileMediaValidator/1.0"
	}
	if config.Probe.RateBurst <= 0 {
		config.Probe.RateBurst = 5
	}

	if len(config.Placeholders) == 0 {
		config.Placeholders = map[string]string{
			string(media.TypeImage):    defaultImagePlaceholder,
			string(media.TypeVideo):    defaultVideoPlaceholder,
			string(media.TypeAudio):    defaultAudioPlaceholder,
			string(media.TypeDocument): defaultDocumentPlaceholder,
		}
	}

	defaults := media.DefaultClassifierRules()
	if len(config.Media.ImageExtensions) == 0 {
		config.Media.ImageExtensions = defaults.ImageExtensions
	}
	if len(config.Media.VideoExtensions) == 0 {
		config.Media.VideoExtensions = defaults.VideoExtensions
	}
	if len(config.Media.AudioExtensions) == 0 {
		config.Media.AudioExtensions = defaults.AudioExtensions
	}
	if len(config.Media.DocumentExtensions) == 0 {
		config.Media.DocumentExtensions = defaults.DocumentExtensions
	}
	if len(config.Media.VideoIndicators) == 0 {
		config.Media.VideoIndicators = defaults.VideoIndicators
	}

	ruleDefaults := media.DefaultExtractionRules()
	if len(config.Extraction.Collections) == 0 {
		config.Extraction.Collections = ruleDefaults.Collections
	}
	if len(config.Extraction.DefaultFields) == 0 {
		config.Extraction.DefaultFields = ruleDefaults.DefaultFields
	}

	if config.Export.Directory == "" {
		config.Export.Directory = "reports"
	}
	if len(config.Export.Formats) == 0 {
		config.Export.Formats = []string{"json"}
	}

	if config.Server.Listen == "" {
		config.Server.Listen = ":8085"
	}
	if config.Server.MetricsPath == "" {
		config.Server.MetricsPath = "/metrics"
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Engine.BatchSize <= 0 {
		return fmt.Errorf("engine.batch_size must be positive")
	}
	if c.Engine.Concurrency <= 0 {
		return fmt.Errorf("engine.concurrency must be positive")
	}
	if c.Engine.PageSize <= 0 {
		return fmt.Errorf("engine.page_size must be positive")
	}
	if c.Engine.BatchDelay < 0 {
		return fmt.Errorf("engine.batch_delay cannot be negative")
	}

	if c.Probe.Timeout <= 0 {
		return fmt.Errorf("probe.timeout must be positive")
	}
	if c.Probe.RateLimit < 0 {
		return fmt.Errorf("probe.rate_limit cannot be negative")
	}

	if _, ok := c.Placeholders[string(media.TypeImage)]; !ok {
		return fmt.Errorf("placeholders must include an %q entry", media.TypeImage)
	}
	knownTypes := make(map[string]bool)
	for _, kind := range media.ValidTypes() {
		knownTypes[string(kind)] = true
	}
	for kind, url := range c.Placeholders {
		if !knownTypes[kind] {
			return fmt.Errorf("unknown placeholder media type: %s", kind)
		}
		if url == "" {
			return fmt.Errorf("placeholder for %q cannot be empty", kind)
		}
	}

	knownFormats := make(map[string]bool)
	for _, format := range export.ValidFormats() {
		knownFormats[string(format)] = true
	}
	for _, format := range c.Export.Formats {
		if !knownFormats[format] {
			return fmt.Errorf("unsupported export format: %s", format)
		}
	}

	for collection, rules := range c.Extraction.Collections {
		if len(rules) == 0 {
			return fmt.Errorf("extraction rules for %q cannot be empty", collection)
		}
		for i, rule := range rules {
			if rule.Path == "" {
				return fmt.Errorf("extraction rule %d for %q has an empty path", i, collection)
			}
		}
	}

	return nil
}
