// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Netflix  UpstreamConfig `mapstructure:"netflix"`
	Serp     SerpConfig     `mapstructure:"serp"`
	DB       DBConfig       `mapstructure:"db"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Enrich   EnrichConfig   `mapstructure:"enrich"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// UpstreamConfig governs the title-page upstream client.
type UpstreamConfig struct {
	BaseURL           string  `mapstructure:"base_url"`
	UserAgent         string  `mapstructure:"user_agent"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	MaxConnections    int     `mapstructure:"max_connections"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
}

// SerpConfig governs the search-results upstream client.
type SerpConfig struct {
	APIURL            string  `mapstructure:"api_url"`
	Zone              string  `mapstructure:"zone"`
	Token             string  `mapstructure:"token"`
	SearchBaseURL     string  `mapstructure:"search_base_url"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	MaxConnections    int     `mapstructure:"max_connections"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
}

// DBConfig controls access to the relational database. An empty DSN
// selects the in-memory store.
type DBConfig struct {
	DSN string `mapstructure:"dsn"`
}

// ArchiveConfig selects where raw upstream pages are kept.
type ArchiveConfig struct {
	// Provider is one of "none", "memory", "local", "gcs".
	Provider  string `mapstructure:"provider"`
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for batch-completion notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// HeadlessConfig configures the headless rendering fallback.
type HeadlessConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxParallel   int  `mapstructure:"max_parallel"`
	NavTimeoutSec int  `mapstructure:"nav_timeout_seconds"`
}

// EnrichConfig governs the orchestrator.
type EnrichConfig struct {
	Country               string `mapstructure:"country"`
	PersistTimeoutSeconds int    `mapstructure:"persist_timeout_seconds"`
	KeepAliveSeconds      int    `mapstructure:"keep_alive_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRITIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("netflix.base_url", "https://www.netflix.com/title")
	v.SetDefault("netflix.user_agent", "netflix-critic/0.1")
	v.SetDefault("netflix.requests_per_second", 50)
	v.SetDefault("netflix.max_connections", 25)
	v.SetDefault("netflix.timeout_seconds", 15)
	v.SetDefault("serp.api_url", "https://api.brightdata.com/request")
	v.SetDefault("serp.zone", "serp_api1")
	v.SetDefault("serp.search_base_url", "https://www.google.com/search")
	v.SetDefault("serp.requests_per_second", 5)
	v.SetDefault("serp.max_connections", 5)
	v.SetDefault("serp.timeout_seconds", 30)
	v.SetDefault("archive.provider", "none")
	v.SetDefault("archive.prefix", "raw")
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("enrich.country", "US")
	v.SetDefault("enrich.persist_timeout_seconds", 30)
	v.SetDefault("enrich.keep_alive_seconds", 15)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Netflix.RequestsPerSecond < 0 {
		return fmt.Errorf("netflix.requests_per_second must be >= 0")
	}
	if c.Serp.RequestsPerSecond < 0 {
		return fmt.Errorf("serp.requests_per_second must be >= 0")
	}
	if c.Netflix.TimeoutSeconds <= 0 {
		return fmt.Errorf("netflix.timeout_seconds must be > 0")
	}
	if c.Serp.TimeoutSeconds <= 0 {
		return fmt.Errorf("serp.timeout_seconds must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	switch c.Archive.Provider {
	case "none", "memory", "local", "gcs":
	default:
		return fmt.Errorf("archive.provider must be one of none, memory, local, gcs")
	}
	if c.Archive.Provider == "local" && c.Archive.LocalDir == "" {
		return fmt.Errorf("archive.local_dir must be set for the local provider")
	}
	if c.Archive.Provider == "gcs" && c.Archive.GCSBucket == "" {
		return fmt.Errorf("archive.gcs_bucket must be set for the gcs provider")
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when a topic is configured")
	}
	return nil
}

// NetflixTimeout returns the title-page request timeout.
func (c Config) NetflixTimeout() time.Duration {
	return time.Duration(c.Netflix.TimeoutSeconds) * time.Second
}

// SerpTimeout returns the search-results request timeout.
func (c Config) SerpTimeout() time.Duration {
	return time.Duration(c.Serp.TimeoutSeconds) * time.Second
}

// PersistTimeout returns the bound on the final persistence pass.
func (c Config) PersistTimeout() time.Duration {
	return time.Duration(c.Enrich.PersistTimeoutSeconds) * time.Second
}

// KeepAliveInterval returns the SSE comment-frame spacing; 0 disables it.
func (c Config) KeepAliveInterval() time.Duration {
	return time.Duration(c.Enrich.KeepAliveSeconds) * time.Second
}

// NavTimeout returns the headless navigation timeout.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Headless.NavTimeoutSec) * time.Second
}
