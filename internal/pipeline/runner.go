// Package pipeline coordinates the end-to-end alert flow: snapshot ingestion,
// detection, enrichment, composition, delivery, and audit logging.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trenchwatch/engine/internal/compose"
	"github.com/trenchwatch/engine/internal/deliver"
	"github.com/trenchwatch/engine/internal/detector"
	"github.com/trenchwatch/engine/internal/domain"
	"github.com/trenchwatch/engine/internal/enrich"
	"github.com/trenchwatch/engine/internal/ingest"
)

// Runner processes one raw snapshot at a time through the full alert
// pipeline. Qualifying tokens are handled concurrently; the per-token stages
// run sequentially because each stage feeds the next.
type Runner struct {
	parser     *ingest.Parser
	thresholds detector.Thresholds
	cooldown   *detector.Cooldown
	enricher   *enrich.Orchestrator
	composer   *compose.Composer
	deliverer  *deliver.Manager
	alertLog   domain.AlertLogStore
	logger     *slog.Logger
}

// NewRunner creates a Runner. alertLog may be nil when audit logging is
// disabled.
func NewRunner(
	parser *ingest.Parser,
	thresholds detector.Thresholds,
	cooldown *detector.Cooldown,
	enricher *enrich.Orchestrator,
	composer *compose.Composer,
	deliverer *deliver.Manager,
	alertLog domain.AlertLogStore,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		parser:     parser,
		thresholds: thresholds,
		cooldown:   cooldown,
		enricher:   enricher,
		composer:   composer,
		deliverer:  deliverer,
		alertLog:   alertLog,
		logger:     logger.With(slog.String("component", "alert_runner")),
	}
}

// ProcessSnapshot parses one raw trade-text snapshot, aggregates per-token
// statistics, and pushes an alert for every qualifying token that clears the
// cooldown gate. It returns the number of alerts pushed.
func (r *Runner) ProcessSnapshot(ctx context.Context, raw string) int {
	records := r.parser.Parse(raw)
	if len(records) == 0 {
		return 0
	}

	stats := detector.Aggregate(records)
	qualifying, ranked := detector.Evaluate(stats, r.thresholds)

	r.logger.Debug("snapshot evaluated",
		slog.Int("records", len(records)),
		slog.Int("tokens", len(ranked)),
		slog.Int("qualifying", len(qualifying)),
	)
	if len(qualifying) == 0 {
		return 0
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		pushed int
	)
	for _, d := range qualifying {
		wg.Add(1)
		go func(d domain.Decision) {
			defer wg.Done()
			if r.processToken(ctx, d) {
				mu.Lock()
				pushed++
				mu.Unlock()
			}
		}(d)
	}
	wg.Wait()
	return pushed
}

// processToken runs the cooldown gate, enrichment, composition, delivery, and
// audit insert for a single qualifying token. Returns true when an alert was
// actually sent.
func (r *Runner) processToken(ctx context.Context, d domain.Decision) bool {
	key := d.Stats.Key
	log := r.logger.With(slog.String("token", key.String()))

	acquired, err := r.cooldown.TryAcquire(ctx, key, time.Now().UTC())
	if err != nil {
		// The gate state is unknown; pushing anyway could double-alert.
		log.Error("cooldown check failed, abandoning alert", slog.String("error", err.Error()))
		return false
	}
	if !acquired {
		log.Debug("token in cooldown, skipping")
		return false
	}

	enrichment := r.enricher.Enrich(ctx, d.Stats.Contract)
	text := r.composer.Compose(ctx, d, enrichment)

	report, err := r.deliverer.Deliver(ctx, text)
	if err != nil {
		log.Error("delivery aborted", slog.String("error", err.Error()))
		return false
	}
	log.Info("alert pushed",
		slog.Int("delivered", report.Delivered()),
		slog.Int("failed", report.Failed()),
		slog.Int("length", len(text)),
	)

	r.recordAlert(ctx, d, report, len(text))
	return true
}

// recordAlert appends an audit row. Audit failures never block the pipeline.
func (r *Runner) recordAlert(ctx context.Context, d domain.Decision, report domain.DeliveryReport, msgLen int) {
	if r.alertLog == nil {
		return
	}
	rec := domain.AlertRecord{
		ID:         uuid.NewString(),
		TokenID:    d.Stats.Key.TokenID,
		Symbol:     d.Stats.Key.Symbol,
		Contract:   d.Stats.Contract,
		BuyCount:   d.Stats.BuyCount,
		BuyerCount: len(d.Stats.Buyers),
		NetFlowSOL: d.Stats.NetFlow(),
		Delivered:  report.Delivered(),
		Failed:     report.Failed(),
		MessageLen: msgLen,
		CreatedAt:  time.Now().UTC(),
	}
	if err := r.alertLog.Insert(ctx, rec); err != nil {
		r.logger.Warn("alert audit insert failed",
			slog.String("token", d.Stats.Key.String()),
			slog.String("error", err.Error()),
		)
	}
}
