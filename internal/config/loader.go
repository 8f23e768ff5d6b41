package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies TRENCHWATCH_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known TRENCHWATCH_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Telegram ──
	setStr(&cfg.Telegram.Token, "TRENCHWATCH_TELEGRAM_TOKEN")
	setStr(&cfg.Telegram.DefaultChatID, "TRENCHWATCH_TELEGRAM_DEFAULT_CHAT_ID")
	setStr(&cfg.Telegram.APIBase, "TRENCHWATCH_TELEGRAM_API_BASE")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "TRENCHWATCH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "TRENCHWATCH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "TRENCHWATCH_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "TRENCHWATCH_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "TRENCHWATCH_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "TRENCHWATCH_REDIS_TLS_ENABLED")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "TRENCHWATCH_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "TRENCHWATCH_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "TRENCHWATCH_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "TRENCHWATCH_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "TRENCHWATCH_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "TRENCHWATCH_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "TRENCHWATCH_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "TRENCHWATCH_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "TRENCHWATCH_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "TRENCHWATCH_POSTGRES_RUN_MIGRATIONS")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "TRENCHWATCH_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "TRENCHWATCH_S3_REGION")
	setStr(&cfg.S3.Bucket, "TRENCHWATCH_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "TRENCHWATCH_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "TRENCHWATCH_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "TRENCHWATCH_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "TRENCHWATCH_S3_FORCE_PATH_STYLE")

	// ── Feed ──
	setStr(&cfg.Feed.WSURL, "TRENCHWATCH_FEED_WS_URL")
	setDuration(&cfg.Feed.ReconnectDelay, "TRENCHWATCH_FEED_RECONNECT_DELAY")

	// ── Alert ──
	setInt(&cfg.Alert.MinBuys, "TRENCHWATCH_ALERT_MIN_BUYS")
	setInt(&cfg.Alert.MinBuyers, "TRENCHWATCH_ALERT_MIN_BUYERS")
	setFloat64(&cfg.Alert.MinNetFlowSOL, "TRENCHWATCH_ALERT_MIN_NET_FLOW_SOL")
	setDuration(&cfg.Alert.Cooldown, "TRENCHWATCH_ALERT_COOLDOWN")
	setDuration(&cfg.Alert.Retention, "TRENCHWATCH_ALERT_RETENTION")
	setDuration(&cfg.Alert.SweepInterval, "TRENCHWATCH_ALERT_SWEEP_INTERVAL")

	// ── Enrich ──
	setStr(&cfg.Enrich.TokenInfoURL, "TRENCHWATCH_ENRICH_TOKEN_INFO_URL")
	setStr(&cfg.Enrich.MarketDataURL, "TRENCHWATCH_ENRICH_MARKET_DATA_URL")
	setStr(&cfg.Enrich.DeployerHistoryURL, "TRENCHWATCH_ENRICH_DEPLOYER_HISTORY_URL")
	setStr(&cfg.Enrich.HoldersURL, "TRENCHWATCH_ENRICH_HOLDERS_URL")
	setDuration(&cfg.Enrich.Timeout, "TRENCHWATCH_ENRICH_TIMEOUT")

	// ── Compose ──
	setInt(&cfg.Compose.MaxLength, "TRENCHWATCH_COMPOSE_MAX_LENGTH")
	setStr(&cfg.Compose.DisplayTimezone, "TRENCHWATCH_COMPOSE_DISPLAY_TIMEZONE")
	setStringSlice(&cfg.Compose.Watchlist, "TRENCHWATCH_COMPOSE_WATCHLIST")

	// ── Deliver ──
	setInt(&cfg.Deliver.MaxAttempts, "TRENCHWATCH_DELIVER_MAX_ATTEMPTS")
	setDuration(&cfg.Deliver.RetryDelay, "TRENCHWATCH_DELIVER_RETRY_DELAY")

	// ── Command ──
	setDuration(&cfg.Command.PollInterval, "TRENCHWATCH_COMMAND_POLL_INTERVAL")
	setDuration(&cfg.Command.Retention, "TRENCHWATCH_COMMAND_RETENTION")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "TRENCHWATCH_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "TRENCHWATCH_ARCHIVE_RETENTION_DAYS")
	setStr(&cfg.Archive.Cron, "TRENCHWATCH_ARCHIVE_CRON")

	// ── Top-level ──
	setStr(&cfg.Mode, "TRENCHWATCH_MODE")
	setStr(&cfg.LogLevel, "TRENCHWATCH_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
