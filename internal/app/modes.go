package app

import (
	"context"
	"fmt"
	"time"

	"github.com/trenchwatch/engine/internal/command"
	"github.com/trenchwatch/engine/internal/compose"
	"github.com/trenchwatch/engine/internal/config"
	"github.com/trenchwatch/engine/internal/deliver"
	"github.com/trenchwatch/engine/internal/detector"
	"github.com/trenchwatch/engine/internal/enrich"
	"github.com/trenchwatch/engine/internal/feed"
	"github.com/trenchwatch/engine/internal/ingest"
	"github.com/trenchwatch/engine/internal/notify"
	"github.com/trenchwatch/engine/internal/pipeline"
)

// FullMode runs the snapshot feed, the alert pipeline, the command poller,
// the cooldown sweeper, and the archival cron.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	runner, cooldown, err := a.buildAlertPipeline(deps)
	if err != nil {
		return fmt.Errorf("full mode: %w", err)
	}

	orch := pipeline.NewOrchestrator(
		a.buildFeed(runner),
		a.buildCommandProcessor(deps),
		cooldown,
		a.buildArchiver(deps),
		a.cfg.Command.PollInterval.Duration,
		a.cfg.Alert.SweepInterval.Duration,
		a.cfg.Archive.Cron,
		a.logger,
	)
	return orch.Run(ctx)
}

// AlertsMode runs the snapshot feed and the alert pipeline without command
// processing. The subscriber set stays whatever it already is.
func (a *App) AlertsMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting alerts mode")

	runner, cooldown, err := a.buildAlertPipeline(deps)
	if err != nil {
		return fmt.Errorf("alerts mode: %w", err)
	}

	orch := pipeline.NewOrchestrator(
		a.buildFeed(runner),
		nil,
		cooldown,
		a.buildArchiver(deps),
		0,
		a.cfg.Alert.SweepInterval.Duration,
		a.cfg.Archive.Cron,
		a.logger,
	)
	return orch.Run(ctx)
}

// CommandsMode runs only the inbound command poller. Useful for draining a
// backlog or operating the subscriber registry without a feed connection.
func (a *App) CommandsMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting commands mode")

	orch := pipeline.NewOrchestrator(
		nil,
		a.buildCommandProcessor(deps),
		nil,
		nil,
		a.cfg.Command.PollInterval.Duration,
		0,
		"",
		a.logger,
	)
	return orch.Run(ctx)
}

// buildAlertPipeline assembles the parse-detect-enrich-compose-deliver chain.
func (a *App) buildAlertPipeline(deps *Dependencies) (*pipeline.Runner, *detector.Cooldown, error) {
	loc, err := time.LoadLocation(a.cfg.Compose.DisplayTimezone)
	if err != nil {
		return nil, nil, fmt.Errorf("load display timezone: %w", err)
	}

	cooldown := detector.NewCooldown(
		deps.CooldownStore,
		a.cfg.Alert.Cooldown.Duration,
		a.cfg.Alert.Retention.Duration,
		a.logger,
	)

	enricher := enrich.NewOrchestrator(
		enrich.NewClient(enrichEndpoints(a.cfg.Enrich), a.cfg.Enrich.Timeout.Duration),
		a.logger,
	)

	composer := compose.NewComposer(
		deps.PushCounter,
		a.cfg.Compose.MaxLength,
		loc,
		a.cfg.Compose.Watchlist,
		a.logger,
	)

	deliverer := deliver.NewManager(
		deps.Telegram,
		deps.Subscribers,
		a.cfg.Deliver.MaxAttempts,
		a.cfg.Deliver.RetryDelay.Duration,
		notify.Retryable,
		a.logger,
	)

	runner := pipeline.NewRunner(
		ingest.NewParser(),
		detector.Thresholds{
			MinBuys:       a.cfg.Alert.MinBuys,
			MinBuyers:     a.cfg.Alert.MinBuyers,
			MinNetFlowSOL: a.cfg.Alert.MinNetFlowSOL,
		},
		cooldown,
		enricher,
		composer,
		deliverer,
		deps.AlertLog,
		a.logger,
	)
	return runner, cooldown, nil
}

// buildFeed creates the websocket snapshot feed driving the runner.
func (a *App) buildFeed(runner *pipeline.Runner) *feed.WSFeed {
	return feed.NewWSFeed(a.cfg.Feed.WSURL, func(ctx context.Context, raw string) {
		runner.ProcessSnapshot(ctx, raw)
	}, a.logger)
}

// buildCommandProcessor creates the subscribe/unsubscribe/status processor.
func (a *App) buildCommandProcessor(deps *Dependencies) *command.Processor {
	return command.NewProcessor(
		command.NewTelegramSource(deps.Telegram),
		deps.Telegram,
		deps.Subscribers,
		deps.CommandStore,
		a.logger,
	)
}

// buildArchiver returns the alert-log archiver, or nil when archival is not
// fully configured.
func (a *App) buildArchiver(deps *Dependencies) *pipeline.Archiver {
	if !a.cfg.Archive.Enabled || deps.AlertLog == nil || deps.BlobWriter == nil {
		return nil
	}
	return pipeline.NewArchiver(deps.AlertLog, deps.BlobWriter, a.cfg.Archive.RetentionDays, a.logger)
}

func enrichEndpoints(cfg config.EnrichConfig) enrich.Endpoints {
	return enrich.Endpoints{
		TokenInfoURL:       cfg.TokenInfoURL,
		MarketDataURL:      cfg.MarketDataURL,
		DeployerHistoryURL: cfg.DeployerHistoryURL,
		HoldersURL:         cfg.HoldersURL,
	}
}
