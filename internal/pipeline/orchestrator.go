package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/trenchwatch/engine/internal/command"
	"github.com/trenchwatch/engine/internal/detector"
	"github.com/trenchwatch/engine/internal/feed"
)

// Orchestrator manages the long-running loops: the snapshot feed, the inbound
// command poller, the cooldown sweeper, and the archival cron. Any of them may
// be nil; only the configured loops are started.
type Orchestrator struct {
	feed          *feed.WSFeed
	processor     *command.Processor
	cooldown      *detector.Cooldown
	archiver      *Archiver
	pollInterval  time.Duration
	sweepInterval time.Duration
	archiveCron   string
	logger        *slog.Logger
}

// NewOrchestrator creates an Orchestrator that coordinates the configured
// loops.
func NewOrchestrator(
	f *feed.WSFeed,
	processor *command.Processor,
	cooldown *detector.Cooldown,
	archiver *Archiver,
	pollInterval, sweepInterval time.Duration,
	archiveCron string,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		feed:          f,
		processor:     processor,
		cooldown:      cooldown,
		archiver:      archiver,
		pollInterval:  pollInterval,
		sweepInterval: sweepInterval,
		archiveCron:   archiveCron,
		logger:        logger.With(slog.String("component", "orchestrator")),
	}
}

// Run starts every configured loop as a concurrent goroutine using an
// errgroup. Each goroutine respects ctx cancellation. If any loop returns a
// non-context error, the errgroup cancels the shared context and Run returns
// that error.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("orchestrator starting")

	g, ctx := errgroup.WithContext(ctx)

	if o.feed != nil {
		g.Go(func() error {
			o.logger.Info("starting snapshot feed")
			err := o.feed.Run(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("snapshot feed: %w", err)
		})
	}

	if o.processor != nil {
		g.Go(func() error {
			o.logger.Info("starting command poller", slog.Duration("interval", o.pollInterval))
			err := o.runCommandLoop(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("command poller: %w", err)
		})
	}

	if o.cooldown != nil {
		g.Go(func() error {
			o.logger.Info("starting cooldown sweeper", slog.Duration("interval", o.sweepInterval))
			o.runSweepLoop(ctx)
			return nil
		})
	}

	if o.archiver != nil {
		g.Go(func() error {
			o.logger.Info("starting archiver cron")
			err := o.archiver.RunCron(ctx, o.archiveCron)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("archiver: %w", err)
		})
	}

	err := g.Wait()
	if err != nil {
		o.logger.Error("orchestrator stopped with error", slog.String("error", err.Error()))
		return err
	}

	o.logger.Info("orchestrator stopped cleanly")
	return nil
}

// runCommandLoop polls the command backlog on a ticker. Poll failures are
// logged and retried on the next tick.
func (o *Orchestrator) runCommandLoop(ctx context.Context) error {
	// Drain whatever backlog accumulated while the process was down.
	if err := o.processor.RunOnce(ctx); err != nil {
		o.logger.Error("command poll failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := o.processor.RunOnce(ctx); err != nil {
				o.logger.Error("command poll failed", slog.String("error", err.Error()))
			}
		}
	}
}

// runSweepLoop expires stale cooldown entries on a ticker.
func (o *Orchestrator) runSweepLoop(ctx context.Context) {
	ticker := time.NewTicker(o.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.cooldown.Sweep(ctx, time.Now().UTC())
		}
	}
}
