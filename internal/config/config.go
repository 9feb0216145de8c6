// Package config provides configuration management for castarr using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/jmylchreest/castarr/pkg/bytesize"
)

// Default configuration values.
const (
	defaultServerPort        = 8000
	defaultReadTimeout       = 30 * time.Second
	defaultShutdownTimeout   = 10 * time.Second
	defaultMaxOpenConns      = 25
	defaultMaxIdleConns      = 10
	defaultConnMaxLifetime   = time.Hour
	defaultAttemptLimit      = 5
	defaultAttemptWindow     = 2 * time.Minute
	defaultSegmentRetention  = time.Hour
	defaultGuideDays         = 2
	defaultGuideCron         = "0 * * * *"
	defaultIconFetchTimeout  = 30 * time.Second
	defaultIconCacheMaxSize  = 64 * bytesize.MB
	defaultPlaybackRetention = 30 * 24 * time.Hour
	defaultPruneCron         = "30 4 * * *"
)

// Config holds all configuration for the application.
type Config struct {
	DataDir   string          `mapstructure:"data_dir"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Streaming StreamingConfig `mapstructure:"streaming"`
	Guide     GuideConfig     `mapstructure:"guide"`
	Icons     IconCacheConfig `mapstructure:"icons"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig holds HTTP server configuration.
//
// WriteTimeout defaults to 0: streams are live and unbounded, and a non-zero
// write timeout would sever every client mid-broadcast.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	BaseURL         string        `mapstructure:"base_url"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres, mysql
	DSN             string        `mapstructure:"dsn" masq:"secret"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level                string `mapstructure:"level"`  // debug, info, warn, error
	Format               string `mapstructure:"format"` // json, text
	AddSource            bool   `mapstructure:"add_source"`
	TimeFormat           string `mapstructure:"time_format"`
	EnableRequestLogging bool   `mapstructure:"enable_request_logging"`
}

// StreamingConfig holds streaming core configuration.
type StreamingConfig struct {
	// SegmentDir is where HLS/DASH encoders write manifests and segments.
	// Empty means {DataDir}/segments.
	SegmentDir string `mapstructure:"segment_dir"`
	// SegmentRetention bounds how long finished session directories are
	// kept before the sweeper removes them.
	SegmentRetention time.Duration `mapstructure:"segment_retention"`
	// AttemptLimit is the number of failed stream attempts a session may
	// accumulate inside AttemptWindow before resolution is throttled.
	AttemptLimit  int           `mapstructure:"attempt_limit"`
	AttemptWindow time.Duration `mapstructure:"attempt_window"`
}

// GuideConfig holds XMLTV guide generation configuration.
type GuideConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Days        int    `mapstructure:"days"`
	RefreshCron string `mapstructure:"refresh_cron"`
}

// IconCacheConfig holds channel icon cache configuration.
type IconCacheConfig struct {
	// Dir is the on-disk cache location. Empty means {DataDir}/icons.
	Dir          string        `mapstructure:"dir"`
	MaxSize      bytesize.Size `mapstructure:"max_size"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

// SchedulerConfig holds background job configuration.
type SchedulerConfig struct {
	// PlaybackRetention is how long persisted playback records are kept.
	PlaybackRetention time.Duration `mapstructure:"playback_retention"`
	PruneCron         string        `mapstructure:"prune_cron"`
}

// Load reads configuration from the given file path (or the default search
// locations when empty), applying CASTARR_* environment overrides on top.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/castarr")
		v.AddConfigPath("$HOME/.castarr")
	}

	v.SetEnvPrefix("CASTARR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// No config file is fine, defaults and env vars apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHooks())); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// decodeHooks extends viper's defaults with text unmarshalling so "7d"
// durations and "64MB" sizes decode directly into typed fields.
func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	)
}

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "./data")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.base_url", "")
	v.SetDefault("server.read_timeout", defaultReadTimeout)
	v.SetDefault("server.write_timeout", time.Duration(0))
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", defaultConnMaxLifetime)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", "")
	v.SetDefault("logging.enable_request_logging", true)

	v.SetDefault("streaming.segment_dir", "")
	v.SetDefault("streaming.segment_retention", defaultSegmentRetention)
	v.SetDefault("streaming.attempt_limit", defaultAttemptLimit)
	v.SetDefault("streaming.attempt_window", defaultAttemptWindow)

	v.SetDefault("guide.enabled", true)
	v.SetDefault("guide.days", defaultGuideDays)
	v.SetDefault("guide.refresh_cron", defaultGuideCron)

	v.SetDefault("icons.dir", "")
	v.SetDefault("icons.max_size", defaultIconCacheMaxSize.String())
	v.SetDefault("icons.fetch_timeout", defaultIconFetchTimeout)

	v.SetDefault("scheduler.playback_retention", defaultPlaybackRetention)
	v.SetDefault("scheduler.prune_cron", defaultPruneCron)
}

// Validate checks the configuration for invalid combinations.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}

	switch c.Database.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("database.driver %q not one of sqlite, postgres, mysql", c.Database.Driver)
	}
	if c.Database.Driver != "sqlite" && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn required for driver %q", c.Database.Driver)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q not one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format %q not one of json, text", c.Logging.Format)
	}

	if c.Streaming.AttemptLimit < 1 {
		return fmt.Errorf("streaming.attempt_limit must be at least 1")
	}
	if c.Streaming.AttemptWindow <= 0 {
		return fmt.Errorf("streaming.attempt_window must be positive")
	}

	if c.Guide.Days < 1 || c.Guide.Days > 14 {
		return fmt.Errorf("guide.days %d out of range 1..14", c.Guide.Days)
	}

	return nil
}

// Address returns the listen address in host:port form.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SQLitePath returns the on-disk SQLite database path.
func (c *Config) SQLitePath() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	return filepath.Join(c.DataDir, "castarr.db")
}

// SegmentDir returns the HLS/DASH segment directory.
func (c *Config) SegmentDir() string {
	if c.Streaming.SegmentDir != "" {
		return c.Streaming.SegmentDir
	}
	return filepath.Join(c.DataDir, "segments")
}

// IconCacheDir returns the icon cache directory.
func (c *Config) IconCacheDir() string {
	if c.Icons.Dir != "" {
		return c.Icons.Dir
	}
	return filepath.Join(c.DataDir, "icons")
}
