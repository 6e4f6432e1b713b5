package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Server settings
	ListenAddr string `mapstructure:"listen_addr"`
	Debug      bool   `mapstructure:"debug"`
	LogLevel   string `mapstructure:"log_level"`

	// StaticMode serves a pre-exported snapshot instead of querying live.
	// Read once at startup.
	StaticMode bool `mapstructure:"static_mode"`

	QueryLayer QueryLayerConfig `mapstructure:"query_layer"`
	Breaker    BreakerConfig    `mapstructure:"breaker"`
	Snapshot   SnapshotConfig   `mapstructure:"snapshot"`
	KV         KVConfig         `mapstructure:"kv"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Health     HealthConfig     `mapstructure:"health"`

	// Warnings collects non-fatal problems found while loading, for the
	// caller to log once a logger exists
	Warnings []string `mapstructure:"-"`
}

// QueryLayerConfig locates the live metrics API
type QueryLayerConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// BreakerConfig tunes the circuit breakers on outbound HTTP
type BreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
}

// SnapshotConfig locates the exported snapshot. URL takes precedence over Dir.
type SnapshotConfig struct {
	Dir      string `mapstructure:"dir"`
	URL      string `mapstructure:"url"`
	Password string `mapstructure:"password"`
}

// KVConfig selects where the active organization is remembered
type KVConfig struct {
	Backend string `mapstructure:"backend"` // memory, file, redis
}

// RedisConfig is used by the redis kv backend
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// HealthConfig schedules the query layer health probe
type HealthConfig struct {
	Schedule string `mapstructure:"schedule"` // cron spec, empty disables
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}

	return &Config{
		ListenAddr: ":8080",
		LogLevel:   "info",
		QueryLayer: QueryLayerConfig{
			URL:     "http://localhost:8000",
			Timeout: 30 * time.Second,
		},
		Breaker: BreakerConfig{
			MaxRequests:      3,
			Interval:         60 * time.Second,
			Timeout:          30 * time.Second,
			FailureThreshold: 5,
		},
		Snapshot: SnapshotConfig{
			Dir: filepath.Join(wd, "data", "snapshot"),
		},
		KV: KVConfig{
			Backend: "file",
		},
		Redis: RedisConfig{
			URL: "redis://localhost:6379/0",
		},
		Health: HealthConfig{
			Schedule: "*/5 * * * *",
		},
	}
}

// Load reads configuration from defaults, an optional .env file, an optional
// intakedash.yaml and INTAKEDASH_* environment variables, in that order of
// increasing precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigName("intakedash")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	v.SetEnvPrefix("INTAKEDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Common names without the prefix
	v.BindEnv("redis.url", "REDIS_URL", "INTAKEDASH_REDIS_URL")
	v.BindEnv("log_level", "LOG_LEVEL", "INTAKEDASH_LOG_LEVEL")
	v.BindEnv("snapshot.password", "SNAPSHOT_PASSWORD", "INTAKEDASH_SNAPSHOT_PASSWORD")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := cfg.ensureDirectories(); err != nil {
		cfg.Warnings = append(cfg.Warnings, err.Error())
	}
	return cfg, nil
}

// Validate checks the settings the selected mode depends on
func (c *Config) Validate() error {
	if c.StaticMode {
		if c.Snapshot.URL == "" && c.Snapshot.Dir == "" {
			return fmt.Errorf("static mode needs snapshot.dir or snapshot.url")
		}
	} else if c.QueryLayer.URL == "" {
		return fmt.Errorf("live mode needs query_layer.url")
	}

	switch c.KV.Backend {
	case "memory", "file", "redis":
	default:
		return fmt.Errorf("unknown kv.backend %q", c.KV.Backend)
	}
	return nil
}

// setDefaults registers every key so environment overrides reach Unmarshal
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("listen_addr", d.ListenAddr)
	v.SetDefault("debug", d.Debug)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("static_mode", d.StaticMode)
	v.SetDefault("query_layer.url", d.QueryLayer.URL)
	v.SetDefault("query_layer.timeout", d.QueryLayer.Timeout)
	v.SetDefault("breaker.max_requests", d.Breaker.MaxRequests)
	v.SetDefault("breaker.interval", d.Breaker.Interval)
	v.SetDefault("breaker.timeout", d.Breaker.Timeout)
	v.SetDefault("breaker.failure_threshold", d.Breaker.FailureThreshold)
	v.SetDefault("snapshot.dir", d.Snapshot.Dir)
	v.SetDefault("snapshot.url", d.Snapshot.URL)
	v.SetDefault("snapshot.password", d.Snapshot.Password)
	v.SetDefault("kv.backend", d.KV.Backend)
	v.SetDefault("redis.url", d.Redis.URL)
	v.SetDefault("health.schedule", d.Health.Schedule)
}

// ensureDirectories creates the local snapshot directory when it is used
func (c *Config) ensureDirectories() error {
	if c.Snapshot.URL != "" || c.Snapshot.Dir == "" {
		return nil
	}
	if err := os.MkdirAll(c.Snapshot.Dir, 0755); err != nil {
		return fmt.Errorf("could not create directory %s: %w", c.Snapshot.Dir, err)
	}
	return nil
}
