// Package config loads the stockgrid JSON configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/stockgrid/internal/stockgrid"
	"github.com/banshee-data/stockgrid/internal/units"
)

const (
	DefaultListen      = ":8080"
	DefaultDBPath      = "stockgrid.db"
	DefaultSaveTimeout = 10 * time.Second
)

// Config is the root configuration. Every field is optional; the Get*
// methods fall back to defaults for anything the file omits.
type Config struct {
	Listen           *string   `json:"listen,omitempty"`
	DBPath           *string   `json:"db_path,omitempty"`
	DefaultCylFormat *string   `json:"default_cyl_format,omitempty"`
	CommonDiameters  []float64 `json:"common_diameters,omitempty"`
	SaveTimeout      *string   `json:"save_timeout,omitempty"` // duration string like "10s"
}

func ptrString(v string) *string { return &v }

// Default returns a Config with every field set to its default.
func Default() *Config {
	return &Config{
		Listen:           ptrString(DefaultListen),
		DBPath:           ptrString(DefaultDBPath),
		DefaultCylFormat: ptrString(string(units.Minus)),
		CommonDiameters:  stockgrid.CommonDiameters.Clone(),
		SaveTimeout:      ptrString(DefaultSaveTimeout.String()),
	}
}

// Load reads a Config from a JSON file. An empty path yields an empty
// config, so every Get* returns its default.
func Load(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if c.Listen != nil && *c.Listen == "" {
		return fmt.Errorf("listen must not be empty")
	}
	if c.DBPath != nil && *c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	if c.DefaultCylFormat != nil {
		if _, err := units.ParseNotation(*c.DefaultCylFormat); err != nil {
			return fmt.Errorf("default_cyl_format: %w", err)
		}
	}
	if c.CommonDiameters != nil {
		if len(stockgrid.NormalizeDiameters(c.CommonDiameters)) != len(c.CommonDiameters) {
			return fmt.Errorf("common_diameters must be distinct positive values, got %v", c.CommonDiameters)
		}
	}
	if c.SaveTimeout != nil && *c.SaveTimeout != "" {
		d, err := time.ParseDuration(*c.SaveTimeout)
		if err != nil {
			return fmt.Errorf("invalid save_timeout '%s': %w", *c.SaveTimeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("save_timeout must be positive, got %s", d)
		}
	}
	return nil
}

// GetListen returns the HTTP listen address or the default.
func (c *Config) GetListen() string {
	if c.Listen == nil {
		return DefaultListen
	}
	return *c.Listen
}

// GetDBPath returns the SQLite database path or the default.
func (c *Config) GetDBPath() string {
	if c.DBPath == nil {
		return DefaultDBPath
	}
	return *c.DBPath
}

// GetDefaultCylFormat returns the notation applied to lenses that have none.
func (c *Config) GetDefaultCylFormat() units.Notation {
	if c.DefaultCylFormat == nil {
		return units.Minus
	}
	n, err := units.ParseNotation(*c.DefaultCylFormat)
	if err != nil {
		return units.Minus // default on parse error
	}
	return n
}

// GetCommonDiameters returns the preset diameters, in mm.
func (c *Config) GetCommonDiameters() stockgrid.Diameters {
	if len(c.CommonDiameters) == 0 {
		return stockgrid.CommonDiameters.Clone()
	}
	return stockgrid.NormalizeDiameters(c.CommonDiameters)
}

// GetSaveTimeout parses and returns SaveTimeout as a time.Duration.
func (c *Config) GetSaveTimeout() time.Duration {
	if c.SaveTimeout == nil || *c.SaveTimeout == "" {
		return DefaultSaveTimeout
	}
	d, err := time.ParseDuration(*c.SaveTimeout)
	if err != nil || d <= 0 {
		return DefaultSaveTimeout // default on parse error
	}
	return d
}
