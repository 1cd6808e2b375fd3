package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultMaxResults     = 20
	DefaultMaxIterations  = 5
	DefaultRequestTimeout = 30 * time.Second
)

type FeedConfig struct {
	URL            string        `koanf:"url" mapstructure:"url"`
	RequestTimeout time.Duration `koanf:"request_timeout" mapstructure:"request_timeout"`
}

type LedgerConfig struct {
	URL            string        `koanf:"url" mapstructure:"url"`
	RequestTimeout time.Duration `koanf:"request_timeout" mapstructure:"request_timeout"`
}

type Config struct {
	ServiceName      string       `koanf:"service_name" mapstructure:"service_name"`
	CustodialAccount string       `koanf:"custodial_account" mapstructure:"custodial_account"`
	AdminAccount     string       `koanf:"admin_account" mapstructure:"admin_account"`
	MaxResults       int          `koanf:"max_results" mapstructure:"max_results"`
	MaxIterations    int          `koanf:"max_iterations" mapstructure:"max_iterations"`
	Feed             FeedConfig   `koanf:"feed" mapstructure:"feed"`
	Ledger           LedgerConfig `koanf:"ledger" mapstructure:"ledger"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:   "treasury",
		MaxResults:    DefaultMaxResults,
		MaxIterations: DefaultMaxIterations,
		Feed:          FeedConfig{RequestTimeout: DefaultRequestTimeout},
		Ledger:        LedgerConfig{RequestTimeout: DefaultRequestTimeout},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.MaxResults < 0 {
		return fmt.Errorf("core: max_results must not be negative")
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("core: max_iterations must not be negative")
	}
	return nil
}

// pageSize returns the bounded page size for feed fetches.
func (c Config) pageSize() int {
	if c.MaxResults <= 0 {
		return DefaultMaxResults
	}
	return c.MaxResults
}

// iterationBudget bounds how many feed pages one sync pass may walk.
func (c Config) iterationBudget() int {
	if c.MaxIterations <= 0 {
		return DefaultMaxIterations
	}
	return c.MaxIterations
}
