package allocator

import (
	"fmt"

	"github.com/viant/idmint/model"
	"github.com/viant/idmint/service/lazy"
)

// DefaultPrice is 0.0001 of a unit with 18 decimals.
const DefaultPrice model.Amount = 100_000_000_000_000

// Config describes one allocator.
type Config struct {
	Name        string         `json:"name" yaml:"name" env:"NAME"`
	Universe    model.Universe `json:"universe" yaml:"universe" envPrefix:"UNIVERSE_"`
	Strategy    model.Strategy `json:"strategy" yaml:"strategy" env:"STRATEGY"`
	Price       model.Amount   `json:"price" yaml:"price" env:"PRICE"`
	MaxAttempts int            `json:"maxAttempts" yaml:"maxAttempts" env:"MAX_ATTEMPTS"`
}

// DefaultConfig returns a pool allocator over [0, 999].
func DefaultConfig() Config {
	return Config{
		Name:        "default",
		Universe:    model.NewUniverse(1000),
		Strategy:    model.StrategyPool,
		Price:       DefaultPrice,
		MaxAttempts: lazy.DefaultMaxAttempts,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("allocator name is required")
	}
	if err := c.Universe.Validate(); err != nil {
		return err
	}
	if !c.Strategy.Valid() {
		return fmt.Errorf("unsupported strategy: %q", c.Strategy)
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("maxAttempts must not be negative")
	}
	return nil
}
