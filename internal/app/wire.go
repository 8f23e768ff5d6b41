package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/trenchwatch/engine/internal/blob/s3"
	"github.com/trenchwatch/engine/internal/cache/redis"
	"github.com/trenchwatch/engine/internal/config"
	"github.com/trenchwatch/engine/internal/domain"
	"github.com/trenchwatch/engine/internal/notify"
	"github.com/trenchwatch/engine/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Redis-backed stores
	CooldownStore domain.CooldownStore
	Subscribers   domain.SubscriberRegistry
	CommandStore  domain.ProcessedCommandStore
	PushCounter   domain.PushCounter

	// Alert audit log
	AlertLog domain.AlertLogStore

	// Blob storage
	BlobWriter domain.BlobWriter

	// Telegram client, used both for delivery and command polling
	Telegram *notify.Telegram
}

// needsPostgres returns true for modes that write the alert audit log.
func needsPostgres(mode string) bool {
	switch mode {
	case "full", "alerts":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.CooldownStore = redis.NewCooldownStore(redisClient)
	deps.Subscribers = redis.NewSubscriberStore(redisClient)
	deps.CommandStore = redis.NewCommandStore(redisClient, cfg.Command.Retention.Duration)
	deps.PushCounter = redis.NewCounterStore(redisClient)

	// The default chat is subscribed from first run; adding is idempotent.
	if err := deps.Subscribers.Add(ctx, cfg.Telegram.DefaultChatID); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: seed default subscriber: %w", err)
	}

	// --- PostgreSQL (only for modes that push alerts) ---
	if needsPostgres(cfg.Mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		deps.AlertLog = postgres.NewAlertStore(pgClient.Pool())
	}

	// --- S3 blob storage (only when archival is enabled) ---
	if cfg.Archive.Enabled && needsPostgres(cfg.Mode) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.BlobWriter = s3blob.NewWriter(s3Client)
	}

	// --- Telegram ---
	deps.Telegram = notify.NewTelegram(cfg.Telegram.APIBase, cfg.Telegram.Token)

	logger.InfoContext(ctx, "dependencies wired",
		slog.Bool("postgres", deps.AlertLog != nil),
		slog.Bool("s3", deps.BlobWriter != nil),
	)
	return deps, cleanup, nil
}
