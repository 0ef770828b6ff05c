// Package config loads the guida configuration: YAML file, environment
// overrides, defaults, then validation.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mraffaele/guida/internal/epg"
)

// Config is the YAML configuration structure. Duration fields are strings
// ("12h", "2s") parsed by the accessors below.
type Config struct {
	LogLevel  string `yaml:"logLevel,omitempty"`
	CacheDir  string `yaml:"cacheDir,omitempty"`
	CacheTTL  string `yaml:"cacheTtl,omitempty"`
	UserAgent string `yaml:"userAgent,omitempty"`

	Fetch FetchConfig `yaml:"fetch,omitempty"`
	Guide GuideConfig `yaml:"guide,omitempty"`
	API   APIConfig   `yaml:"api,omitempty"`

	// Sources feed the guide pipeline. MergeSources, when set, feed the
	// batch exporter; otherwise Sources are reused.
	Sources      []epg.Source `yaml:"sources,omitempty"`
	MergeSources []epg.Source `yaml:"mergeSources,omitempty"`

	// Normalization overrides the default channel-name rule set. The rule
	// set is data, not code: it grows with every new source quirk.
	Normalization []epg.Rule `yaml:"normalization,omitempty"`
}

// FetchConfig holds downloader settings.
type FetchConfig struct {
	Retries    int     `yaml:"retries,omitempty"`
	Backoff    string  `yaml:"backoff,omitempty"` // e.g. "2s"
	Timeout    string  `yaml:"timeout,omitempty"` // e.g. "30s"
	RatePerSec float64 `yaml:"ratePerSec,omitempty"`
}

// GuideConfig holds manager settings.
type GuideConfig struct {
	Window          string `yaml:"window,omitempty"` // forward retention, e.g. "168h"
	FuzzyMax        int    `yaml:"fuzzyMax,omitempty"`
	MaxConcurrency  int    `yaml:"maxConcurrency,omitempty"`
	RefreshInterval string `yaml:"refreshInterval,omitempty"` // daemon mode
}

// APIConfig holds the status/query endpoint settings.
type APIConfig struct {
	Listen    string `yaml:"listen,omitempty"`
	RateLimit int    `yaml:"rateLimit,omitempty"` // requests/min per client
}

// Load reads the YAML file (optional), merges GUIDA_* environment overrides,
// applies defaults and validates. An empty path yields a default config.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		raw, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.mergeEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeEnv() {
	if v := os.Getenv("GUIDA_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("GUIDA_CACHE_DIR"); v != "" {
		c.CacheDir = v
	}
	if v := os.Getenv("GUIDA_CACHE_TTL"); v != "" {
		c.CacheTTL = v
	}
	if v := os.Getenv("GUIDA_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("GUIDA_LISTEN"); v != "" {
		c.API.Listen = v
	}
	if v := os.Getenv("GUIDA_FETCH_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Fetch.Retries = n
		}
	}
}

func (c *Config) applyDefaults() {
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir()
	}
	if c.CacheTTL == "" {
		c.CacheTTL = "12h"
	}
	if c.UserAgent == "" {
		c.UserAgent = "guida/1.0"
	}
	if c.Fetch.Retries == 0 {
		c.Fetch.Retries = 3
	}
	if c.Fetch.Backoff == "" {
		c.Fetch.Backoff = "2s"
	}
	if c.Fetch.Timeout == "" {
		c.Fetch.Timeout = "30s"
	}
	if c.Guide.Window == "" {
		c.Guide.Window = "168h"
	}
	if c.Guide.FuzzyMax == 0 {
		c.Guide.FuzzyMax = 2
	}
	if c.Guide.MaxConcurrency == 0 {
		c.Guide.MaxConcurrency = 4
	}
	if c.Guide.RefreshInterval == "" {
		c.Guide.RefreshInterval = "6h"
	}
	if c.API.RateLimit == 0 {
		c.API.RateLimit = 120
	}
	if len(c.Sources) == 0 {
		c.Sources = DefaultSources()
	}
	if len(c.MergeSources) == 0 {
		c.MergeSources = DefaultMergeSources()
	}
}

// Validate checks source URLs and duration strings.
func (c *Config) Validate() error {
	for _, src := range append(append([]epg.Source{}, c.Sources...), c.MergeSources...) {
		if src.Name == "" {
			return fmt.Errorf("source with URL %q is missing a name", src.URL)
		}
		for _, raw := range []string{src.URL, src.BackupURL} {
			if raw == "" {
				continue
			}
			u, err := url.Parse(raw)
			if err != nil {
				return fmt.Errorf("source %q: invalid URL %q: %w", src.Name, raw, err)
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return fmt.Errorf("source %q: unsupported URL scheme %q", src.Name, u.Scheme)
			}
			if u.Host == "" {
				return fmt.Errorf("source %q: URL %q is missing host", src.Name, raw)
			}
		}
	}
	for name, v := range map[string]string{
		"cacheTtl":              c.CacheTTL,
		"fetch.backoff":         c.Fetch.Backoff,
		"fetch.timeout":         c.Fetch.Timeout,
		"guide.window":          c.Guide.Window,
		"guide.refreshInterval": c.Guide.RefreshInterval,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("%s: invalid duration %q", name, v)
		}
	}
	return nil
}

func (c *Config) duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

func (c *Config) TTL() time.Duration             { return c.duration(c.CacheTTL) }
func (c *Config) Backoff() time.Duration         { return c.duration(c.Fetch.Backoff) }
func (c *Config) Timeout() time.Duration         { return c.duration(c.Fetch.Timeout) }
func (c *Config) Window() time.Duration          { return c.duration(c.Guide.Window) }
func (c *Config) RefreshInterval() time.Duration { return c.duration(c.Guide.RefreshInterval) }

func defaultCacheDir() string {
	if base, err := os.UserCacheDir(); err == nil {
		return filepath.Join(base, "guida")
	}
	return filepath.Join(os.TempDir(), "guida-cache")
}
