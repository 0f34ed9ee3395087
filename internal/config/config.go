// Package config loads losca-meetings settings.
//
// Values are resolved from built-in defaults, then the YAML config file
// (~/.losca-meetings/config.yaml), then LOSCA_* environment variables, then
// command-line flags bound by the cli package.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvPrefix = "LOSCA"
	DirName   = ".losca-meetings"
	FileName  = "config"
	DefaultUA = "losca-meetings/1.0 (+https://github.com/pfrederiksen/losca-meetings)"
)

// Config is the full application configuration
type Config struct {
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Fetch   FetchConfig   `mapstructure:"fetch" yaml:"fetch"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Crawl   CrawlConfig   `mapstructure:"crawl" yaml:"crawl"`
	Spiders SpiderConfig  `mapstructure:"spiders" yaml:"spiders"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LogConfig controls the structured logger
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// FetchConfig controls the HTTP fetcher
type FetchConfig struct {
	UserAgent      string        `mapstructure:"user_agent" yaml:"user_agent"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	RatePerSecond  float64       `mapstructure:"rate_per_second" yaml:"rate_per_second"`
	Burst          int           `mapstructure:"burst" yaml:"burst"`
	MaxRetries     uint64        `mapstructure:"max_retries" yaml:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff" yaml:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff" yaml:"max_backoff"`
	ObeyRobots     bool          `mapstructure:"obey_robots" yaml:"obey_robots"`
}

// CacheConfig controls the response cache
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	Dir     string        `mapstructure:"dir" yaml:"dir"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// CrawlConfig controls which spiders run and how many at once
type CrawlConfig struct {
	Concurrency int      `mapstructure:"concurrency" yaml:"concurrency"`
	Spiders     []string `mapstructure:"spiders" yaml:"spiders"`
}

// SpiderConfig holds per-source settings
type SpiderConfig struct {
	PublicWorks      PublicWorksConfig      `mapstructure:"public_works" yaml:"public_works"`
	HealthCommission HealthCommissionConfig `mapstructure:"health_commission" yaml:"health_commission"`
}

// PublicWorksConfig holds the city API client credentials
type PublicWorksConfig struct {
	// BasicAuth is the base64 "client_id:client_secret" pair sent to the token endpoint.
	BasicAuth string `mapstructure:"basic_auth" yaml:"basic_auth"`
}

// HealthCommissionConfig selects the PrimeGov committee archive
type HealthCommissionConfig struct {
	CommitteeID int `mapstructure:"committee_id" yaml:"committee_id"`
	// Year of the archive; 0 means the current year.
	Year int `mapstructure:"year" yaml:"year"`
}

// MetricsConfig controls the Prometheus textfile export
type MetricsConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Fetch: FetchConfig{
			UserAgent:      DefaultUA,
			Timeout:        30 * time.Second,
			MaxBodyBytes:   10 << 20,
			RatePerSecond:  1,
			Burst:          2,
			MaxRetries:     3,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     10 * time.Second,
			ObeyRobots:     true,
		},
		Cache: CacheConfig{
			Enabled: false,
			Dir:     "~/" + DirName + "/cache",
			TTL:     time.Hour,
		},
		Crawl: CrawlConfig{
			Concurrency: 4,
			Spiders:     []string{},
		},
		Spiders: SpiderConfig{
			HealthCommission: HealthCommissionConfig{
				CommitteeID: 6,
			},
		},
	}
}

// SetDefaults registers every default value with v so env vars and flags can override them
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("fetch.user_agent", d.Fetch.UserAgent)
	v.SetDefault("fetch.timeout", d.Fetch.Timeout)
	v.SetDefault("fetch.max_body_bytes", d.Fetch.MaxBodyBytes)
	v.SetDefault("fetch.rate_per_second", d.Fetch.RatePerSecond)
	v.SetDefault("fetch.burst", d.Fetch.Burst)
	v.SetDefault("fetch.max_retries", d.Fetch.MaxRetries)
	v.SetDefault("fetch.initial_backoff", d.Fetch.InitialBackoff)
	v.SetDefault("fetch.max_backoff", d.Fetch.MaxBackoff)
	v.SetDefault("fetch.obey_robots", d.Fetch.ObeyRobots)

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.ttl", d.Cache.TTL)

	v.SetDefault("crawl.concurrency", d.Crawl.Concurrency)
	v.SetDefault("crawl.spiders", d.Crawl.Spiders)

	v.SetDefault("spiders.public_works.basic_auth", d.Spiders.PublicWorks.BasicAuth)
	v.SetDefault("spiders.health_commission.committee_id", d.Spiders.HealthCommission.CommitteeID)
	v.SetDefault("spiders.health_commission.year", d.Spiders.HealthCommission.Year)

	v.SetDefault("metrics.file", d.Metrics.File)
}

// NewViper returns a viper instance with defaults, env binding and the config
// search path set up. An explicit file overrides the search path.
func NewViper(file string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, DirName))
		}
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Read loads the config file if one exists. A missing file in the default
// search path is not an error; a missing explicit file is.
func Read(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// Load decodes v into a validated Config
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive")
	}
	if c.Fetch.RatePerSecond <= 0 {
		return fmt.Errorf("fetch.rate_per_second must be positive")
	}
	if c.Fetch.Burst < 1 {
		return fmt.Errorf("fetch.burst must be at least 1")
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		return fmt.Errorf("fetch.max_body_bytes must be positive")
	}
	if c.Crawl.Concurrency < 1 {
		return fmt.Errorf("crawl.concurrency must be at least 1")
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive when the cache is enabled")
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	return nil
}

// DefaultPath returns ~/.losca-meetings/config.yaml
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, DirName, FileName+".yaml"), nil
}

// ExpandHome replaces a leading "~/" with the user's home directory
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}
