// Package config provides configuration structs and utilities for the quicui core.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Config represents the root configuration for the quicui core.
type Config struct {
	Storage       StorageConfig       `yaml:"storage"`
	Sync          SyncConfig          `yaml:"sync"`
	Remote        RemoteConfig        `yaml:"remote"`
	Flows         FlowsConfig         `yaml:"flows"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// StorageConfig holds configuration for the local cache store.
type StorageConfig struct {
	Path string `yaml:"path"` // SQLite database path, ":memory:" for in-memory
}

// SyncConfig holds configuration for the sync orchestrator.
type SyncConfig struct {
	Interval       time.Duration `yaml:"interval"`        // Periodic sync interval, 0 disables periodic sync
	MaxRetries     int           `yaml:"max_retries"`     // Retry attempts before giving up
	InitialBackoff time.Duration `yaml:"initial_backoff"` // First retry delay, doubles each attempt
	CompletedHold  time.Duration `yaml:"completed_hold"`  // How long Completed is shown before returning to Idle
}

// RemoteConfig holds configuration for the remote data source.
type RemoteConfig struct {
	BaseURL string        `yaml:"base_url"` // Remote endpoint, empty runs in local-only mode
	Timeout time.Duration `yaml:"timeout"`
}

// FlowsConfig holds configuration for flow definitions.
type FlowsConfig struct {
	Registry map[string]string `yaml:"registry"` // flow ID to resource locator
	Watch    bool              `yaml:"watch"`    // Invalidate cached definitions when files change
}

// LoggingConfig holds configuration for application logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// ObservabilityConfig holds configuration for observability features.
type ObservabilityConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
}

// TracingConfig holds configuration for distributed tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`       // Whether tracing is enabled
	ExporterType string  `yaml:"exporter_type"` // none, stdout, otlp
	OTLPEndpoint string  `yaml:"otlp_endpoint"` // OTLP collector endpoint
	SampleRate   float64 `yaml:"sample_rate"`   // Sampling rate (0.0 to 1.0)
	ServiceName  string  `yaml:"service_name"`  // Service name for traces
}

// Default configuration values.
const (
	DefaultStoragePath = "~/.quicui/quicui.db"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"

	// Sync defaults
	DefaultSyncInterval   = 0
	DefaultSyncMaxRetries = 3
	DefaultInitialBackoff = 2 * time.Second
	DefaultCompletedHold  = 2 * time.Second

	// Remote defaults
	DefaultRemoteTimeout = 30 * time.Second

	// Observability defaults
	DefaultTracingEnabled      = false
	DefaultTracingExporterType = "none"
	DefaultTracingSampleRate   = 1.0
	DefaultTracingServiceName  = "quicui"
)

// Valid log levels.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Valid log formats.
var validLogFormats = map[string]bool{
	"json": true,
	"text": true,
}

// Valid tracing exporter types.
var validTracingExporterTypes = map[string]bool{
	"none":   true,
	"stdout": true,
	"otlp":   true,
}

// NewDefaultConfig creates a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Path: DefaultStoragePath,
		},
		Sync: SyncConfig{
			Interval:       DefaultSyncInterval,
			MaxRetries:     DefaultSyncMaxRetries,
			InitialBackoff: DefaultInitialBackoff,
			CompletedHold:  DefaultCompletedHold,
		},
		Remote: RemoteConfig{
			Timeout: DefaultRemoteTimeout,
		},
		Flows: FlowsConfig{
			Registry: map[string]string{},
			Watch:    false,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Observability: ObservabilityConfig{
			Tracing: TracingConfig{
				Enabled:      DefaultTracingEnabled,
				ExporterType: DefaultTracingExporterType,
				SampleRate:   DefaultTracingSampleRate,
				ServiceName:  DefaultTracingServiceName,
			},
		},
	}
}

// Validate checks if the configuration is valid and returns an error if not.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("storage: %w", err))
	}

	if err := c.Sync.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("sync: %w", err))
	}

	if err := c.Remote.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("remote: %w", err))
	}

	if err := c.Flows.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("flows: %w", err))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}

	if err := c.Observability.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("observability: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks if the StorageConfig is valid.
func (s *StorageConfig) Validate() error {
	if s.Path == "" {
		return errors.New("path is required")
	}
	return nil
}

// Validate checks if the SyncConfig is valid.
func (s *SyncConfig) Validate() error {
	var errs []error

	if s.Interval < 0 {
		errs = append(errs, errors.New("interval must be non-negative"))
	}

	if s.MaxRetries < 0 {
		errs = append(errs, errors.New("max_retries must be non-negative"))
	}

	if s.InitialBackoff <= 0 {
		errs = append(errs, errors.New("initial_backoff must be positive"))
	}

	if s.CompletedHold < 0 {
		errs = append(errs, errors.New("completed_hold must be non-negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks if the RemoteConfig is valid.
func (r *RemoteConfig) Validate() error {
	var errs []error

	if r.Timeout < 0 {
		errs = append(errs, errors.New("timeout must be non-negative"))
	}

	if r.BaseURL != "" {
		parsedURL, err := url.Parse(r.BaseURL)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid base_url: %w", err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errs = append(errs, errors.New("base_url must use http or https scheme"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks if the FlowsConfig is valid.
func (f *FlowsConfig) Validate() error {
	var errs []error

	for flowID, locator := range f.Registry {
		if flowID == "" {
			errs = append(errs, errors.New("registry contains an empty flow ID"))
		}
		if locator == "" {
			errs = append(errs, fmt.Errorf("registry entry %q has an empty resource locator", flowID))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks if the LoggingConfig is valid.
func (l *LoggingConfig) Validate() error {
	var errs []error

	if l.Level != "" && !validLogLevels[l.Level] {
		errs = append(errs, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", l.Level))
	}

	if l.Format != "" && !validLogFormats[l.Format] {
		errs = append(errs, fmt.Errorf("invalid log format %q: must be one of json, text", l.Format))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks if the ObservabilityConfig is valid.
func (o *ObservabilityConfig) Validate() error {
	if err := o.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	return nil
}

// Validate checks if the TracingConfig is valid.
func (t *TracingConfig) Validate() error {
	var errs []error

	if t.Enabled {
		if t.ExporterType != "" && !validTracingExporterTypes[t.ExporterType] {
			errs = append(errs, fmt.Errorf("invalid exporter_type %q: must be one of none, stdout, otlp", t.ExporterType))
		}
		if t.ExporterType == "otlp" && t.OTLPEndpoint == "" {
			errs = append(errs, errors.New("otlp_endpoint is required when exporter_type is 'otlp'"))
		}
		if t.SampleRate < 0 || t.SampleRate > 1 {
			errs = append(errs, errors.New("sample_rate must be between 0.0 and 1.0"))
		}
		if t.ServiceName == "" {
			errs = append(errs, errors.New("service_name is required when tracing is enabled"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}
