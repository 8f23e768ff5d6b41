// Package config defines the top-level configuration for the trenchwatch
// engine and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by TRENCHWATCH_* environment variables.
type Config struct {
	Telegram TelegramConfig `toml:"telegram"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	S3       S3Config       `toml:"s3"`
	Feed     FeedConfig     `toml:"feed"`
	Alert    AlertConfig    `toml:"alert"`
	Enrich   EnrichConfig   `toml:"enrich"`
	Compose  ComposeConfig  `toml:"compose"`
	Deliver  DeliverConfig  `toml:"deliver"`
	Command  CommandConfig  `toml:"command"`
	Archive  ArchiveConfig  `toml:"archive"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// TelegramConfig holds Telegram Bot API parameters. DefaultChatID is the
// subscriber that is present from first run and never auto-removed.
type TelegramConfig struct {
	Token         string `toml:"token"`
	DefaultChatID string `toml:"default_chat_id"`
	APIBase       string `toml:"api_base"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds PostgreSQL connection parameters for the alert log.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// S3Config holds S3-compatible object storage parameters for alert archival.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// FeedConfig holds raw snapshot source parameters.
type FeedConfig struct {
	WSURL          string   `toml:"ws_url"`
	ReconnectDelay duration `toml:"reconnect_delay"`
}

// AlertConfig holds threshold and cooldown parameters for the alert gate.
type AlertConfig struct {
	MinBuys       int      `toml:"min_buys"`
	MinBuyers     int      `toml:"min_buyers"`
	MinNetFlowSOL float64  `toml:"min_net_flow_sol"`
	Cooldown      duration `toml:"cooldown"`
	Retention     duration `toml:"retention"`
	SweepInterval duration `toml:"sweep_interval"`
}

// EnrichConfig holds the four enrichment source endpoints and the per-fetch
// timeout that bounds total enrichment latency.
type EnrichConfig struct {
	TokenInfoURL       string   `toml:"token_info_url"`
	MarketDataURL      string   `toml:"market_data_url"`
	DeployerHistoryURL string   `toml:"deployer_history_url"`
	HoldersURL         string   `toml:"holders_url"`
	Timeout            duration `toml:"timeout"`
}

// ComposeConfig holds message rendering parameters.
type ComposeConfig struct {
	MaxLength       int      `toml:"max_length"`
	DisplayTimezone string   `toml:"display_timezone"`
	Watchlist       []string `toml:"watchlist"`
}

// DeliverConfig holds per-subscriber retry parameters.
type DeliverConfig struct {
	MaxAttempts int      `toml:"max_attempts"`
	RetryDelay  duration `toml:"retry_delay"`
}

// CommandConfig holds inbound command processing parameters.
type CommandConfig struct {
	PollInterval duration `toml:"poll_interval"`
	Retention    duration `toml:"retention"`
}

// ArchiveConfig holds alert-log archival parameters.
type ArchiveConfig struct {
	Enabled       bool   `toml:"enabled"`
	RetentionDays int    `toml:"retention_days"`
	Cron          string `toml:"cron"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Telegram: TelegramConfig{
			APIBase: "https://api.telegram.org",
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "trenchwatch",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "trenchwatch-archive",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Feed: FeedConfig{
			ReconnectDelay: duration{2 * time.Second},
		},
		Alert: AlertConfig{
			MinBuys:       3,
			MinBuyers:     3,
			MinNetFlowSOL: 10.0,
			Cooldown:      duration{10 * time.Minute},
			Retention:     duration{24 * time.Hour},
			SweepInterval: duration{30 * time.Minute},
		},
		Enrich: EnrichConfig{
			Timeout: duration{8 * time.Second},
		},
		Compose: ComposeConfig{
			MaxLength:       4000,
			DisplayTimezone: "UTC",
		},
		Deliver: DeliverConfig{
			MaxAttempts: 3,
			RetryDelay:  duration{2 * time.Second},
		},
		Command: CommandConfig{
			PollInterval: duration{15 * time.Second},
			Retention:    duration{7 * 24 * time.Hour},
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			RetentionDays: 30,
			Cron:          "0 3 * * *",
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"full":     true,
	"alerts":   true,
	"commands": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: full, alerts, commands)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Telegram is the only notification channel; both directions need it.
	if c.Telegram.Token == "" {
		errs = append(errs, "telegram: token must not be empty")
	}
	if c.Telegram.DefaultChatID == "" {
		errs = append(errs, "telegram: default_chat_id must not be empty")
	}
	if c.Telegram.APIBase == "" {
		errs = append(errs, "telegram: api_base must not be empty")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// S3 is only required when archival is enabled.
	if c.Archive.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archive is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archive is enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
	}

	// Feed — required for alert modes.
	if c.Mode == "full" || c.Mode == "alerts" {
		if c.Feed.WSURL == "" {
			errs = append(errs, "feed: ws_url must not be empty for mode "+c.Mode)
		}
	}

	// Alert thresholds
	if c.Alert.MinBuys < 0 {
		errs = append(errs, "alert: min_buys must be >= 0")
	}
	if c.Alert.MinBuyers < 0 {
		errs = append(errs, "alert: min_buyers must be >= 0")
	}
	if c.Alert.Cooldown.Duration <= 0 {
		errs = append(errs, "alert: cooldown must be > 0")
	}
	if c.Alert.Retention.Duration <= c.Alert.Cooldown.Duration {
		errs = append(errs, "alert: retention must be longer than cooldown")
	}

	// Enrich
	if c.Enrich.Timeout.Duration <= 0 {
		errs = append(errs, "enrich: timeout must be > 0")
	}

	// Compose
	if c.Compose.MaxLength < 64 {
		errs = append(errs, "compose: max_length must be >= 64")
	}
	if _, err := time.LoadLocation(c.Compose.DisplayTimezone); err != nil {
		errs = append(errs, fmt.Sprintf("compose: invalid display_timezone %q", c.Compose.DisplayTimezone))
	}

	// Deliver
	if c.Deliver.MaxAttempts < 1 {
		errs = append(errs, "deliver: max_attempts must be >= 1")
	}

	// Command
	if c.Command.PollInterval.Duration <= 0 {
		errs = append(errs, "command: poll_interval must be > 0")
	}
	if c.Command.Retention.Duration <= 0 {
		errs = append(errs, "command: retention must be > 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
