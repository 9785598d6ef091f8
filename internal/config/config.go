package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v6"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the top-level eris.yaml configuration.
type Config struct {
	Database string         `yaml:"database" env:"ERIS_DB"`
	Currency string         `yaml:"currency" env:"ERIS_CURRENCY"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Import   ImportConfig   `yaml:"import"`
}

// DefaultsConfig holds values applied to newly added members.
type DefaultsConfig struct {
	Fee      string `yaml:"fee" env:"ERIS_DEFAULT_FEE"` // decimal string, e.g. "20.00"
	Interval int    `yaml:"interval_months" env:"ERIS_DEFAULT_INTERVAL"`
}

// ImportConfig controls bank statement decoding.
type ImportConfig struct {
	Encoding string `yaml:"encoding" env:"ERIS_IMPORT_ENCODING"` // IANA charset name
}

// Load reads an eris.yaml file and applies ERIS_* environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("applying env overrides: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new ledger.
func Default() *Config {
	return &Config{
		Database: "members.sqlite3",
		Currency: "EUR",
		Defaults: DefaultsConfig{
			Fee:      "20.00",
			Interval: 1,
		},
		Import: ImportConfig{
			Encoding: "ISO-8859-1",
		},
	}
}

// DefaultFee parses the configured default membership fee.
func (c *Config) DefaultFee() (decimal.Decimal, error) {
	fee, err := decimal.NewFromString(c.Defaults.Fee)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing default fee %q: %w", c.Defaults.Fee, err)
	}
	return fee, nil
}
