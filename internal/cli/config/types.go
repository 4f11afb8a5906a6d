// Package config provides configuration management for the lakeshift CLI.
//
// Configuration is layered: built-in defaults, then lakeshift.yaml, then
// LAKESHIFT_* environment variables, then explicitly set CLI flags.
package config

import (
	"github.com/leapstack-labs/lakeshift/internal/feed"
)

// ServeConfig holds configuration for the visualization server.
type ServeConfig struct {
	Port          int    `koanf:"port"`
	AutoOpen      bool   `koanf:"auto_open"`
	Watch         bool   `koanf:"watch"`
	SessionSecret string `koanf:"session_secret"`
}

// DefaultServeConfig returns a ServeConfig with default values.
func DefaultServeConfig() *ServeConfig {
	return &ServeConfig{
		Port:     DefaultPort,
		AutoOpen: true,
		Watch:    true,
	}
}

// GetServeConfig returns the serve config with defaults applied for any
// unset values.
func (c *Config) GetServeConfig() *ServeConfig {
	if c.Serve == nil {
		return DefaultServeConfig()
	}
	s := c.Serve
	if s.Port == 0 {
		s.Port = DefaultPort
	}
	return s
}

// Config holds all CLI configuration options.
type Config struct {
	// DataPath is the primary inventory CSV location.
	DataPath string `koanf:"data_path"`
	// FallbackPaths are tried in order when DataPath is absent.
	FallbackPaths []string `koanf:"fallback_paths"`
	// Virtualise names the warehouse columns routed through the
	// virtualisation layer; empty uses the first four in table order.
	Virtualise []string `koanf:"virtualise"`
	// Placeholder substitutes blank node labels.
	Placeholder string `koanf:"placeholder_label"`
	// Positions toggles advisory circle coordinates on warehouse nodes.
	Positions bool `koanf:"positions"`
	// LogBuffer is the diagnostics ring capacity.
	LogBuffer    int          `koanf:"log_buffer"`
	Verbose      bool         `koanf:"verbose"`
	OutputFormat string       `koanf:"output"`
	Serve        *ServeConfig `koanf:"serve"`

	// ProjectRoot is the resolved project directory (set by the loader,
	// never read from the file).
	ProjectRoot string `koanf:"-"`
}

// Source builds the feed source from the configured paths.
func (c *Config) Source() feed.Source {
	return feed.Source{Path: c.DataPath, Fallbacks: c.FallbackPaths}
}

// Default configuration values
const (
	DefaultDataPath     = "data/legacy_feeds.csv"
	DefaultFallbackPath = "data/legacy_data.csv"
	DefaultPlaceholder  = "Unknown"
	DefaultLogBuffer    = 256
	DefaultPort         = 8000
	DefaultOutput       = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)
