package idmint

import (
	"context"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/viant/afs"
	"github.com/viant/idmint/policy"
	"github.com/viant/idmint/service/allocator"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. IDMINT_ALLOCATOR_PRICE.
const EnvPrefix = "IDMINT_"

// Store kinds.
const (
	StoreMemory = "memory"
	StoreFS     = "fs"
	StoreSQLite = "sqlite"
)

// Config is a serialisable representation of the allocator deployment. It can
// be populated from YAML and overridden from environment variables.
type Config struct {
	Allocator allocator.Config `json:"allocator" yaml:"allocator" envPrefix:"ALLOCATOR_"`
	Store     StoreConfig      `json:"store" yaml:"store" envPrefix:"STORE_"`
	Events    EventsConfig     `json:"events" yaml:"events" envPrefix:"EVENTS_"`
	Policy    policy.Config    `json:"policy" yaml:"policy"`
	Operator  OperatorConfig   `json:"operator" yaml:"operator" envPrefix:"OPERATOR_"`
	Tracing   TracingConfig    `json:"tracing" yaml:"tracing" envPrefix:"TRACING_"`
}

// StoreConfig selects where allocator state is persisted.
type StoreConfig struct {
	Kind string `json:"kind" yaml:"kind" env:"KIND"`
	URL  string `json:"url,omitempty" yaml:"url,omitempty" env:"URL"`
}

// EventsConfig selects the event queue vendor; an empty vendor disables events.
type EventsConfig struct {
	Vendor string `json:"vendor,omitempty" yaml:"vendor,omitempty" env:"VENDOR"`
	URL    string `json:"url,omitempty" yaml:"url,omitempty" env:"URL"`
}

// OperatorConfig points at an encrypted secret holding an extra operator identity.
type OperatorConfig struct {
	SecretURL string `json:"secretURL,omitempty" yaml:"secretURL,omitempty" env:"SECRET_URL"`
	Key       string `json:"key,omitempty" yaml:"key,omitempty" env:"KEY"`
}

// TracingConfig enables the stdout span exporter.
type TracingConfig struct {
	Enabled    bool   `json:"enabled,omitempty" yaml:"enabled,omitempty" env:"ENABLED"`
	OutputFile string `json:"outputFile,omitempty" yaml:"outputFile,omitempty" env:"OUTPUT_FILE"`
}

// DefaultConfig returns an in-memory pool allocator over [0, 999].
func DefaultConfig() *Config {
	return &Config{
		Allocator: allocator.DefaultConfig(),
		Store:     StoreConfig{Kind: StoreMemory},
		Operator:  OperatorConfig{Key: "blowfish://default"},
	}
}

// Validate returns aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is required")
	}
	if err := c.Allocator.Validate(); err != nil {
		return fmt.Errorf("allocator: %w", err)
	}
	switch c.Store.Kind {
	case StoreMemory:
	case StoreFS, StoreSQLite:
		if c.Store.URL == "" {
			return fmt.Errorf("store.url is required for %s store", c.Store.Kind)
		}
	default:
		return fmt.Errorf("unsupported store kind: %q", c.Store.Kind)
	}
	switch c.Events.Vendor {
	case "", "memory":
	case "fs":
		if c.Events.URL == "" {
			return fmt.Errorf("events.url is required for fs events")
		}
	default:
		return fmt.Errorf("unsupported events vendor: %q", c.Events.Vendor)
	}
	return nil
}

// LoadConfig reads a YAML config from URL (any afs location) over the
// defaults, then applies IDMINT_ environment overrides. An empty URL yields
// the defaults with overrides.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	cfg := DefaultConfig()
	if URL != "" {
		data, err := afs.New().DownloadWithURL(ctx, URL)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", URL, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config %s: %w", URL, err)
		}
	}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// ParseEnv overlays IDMINT_ environment variables onto target.
func ParseEnv(target any) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
