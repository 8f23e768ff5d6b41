package detector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/trenchwatch/engine/internal/domain"
)

// Cooldown gates alerts so one token alerts at most once per window. The
// check-and-set itself is atomic inside the store, so the gate is safe even
// when qualifying tokens are processed in parallel.
type Cooldown struct {
	store     domain.CooldownStore
	window    time.Duration
	retention time.Duration
	logger    *slog.Logger
}

// NewCooldown creates a Cooldown over the given store. retention must be
// longer than window; entries older than retention are removed by Sweep.
func NewCooldown(store domain.CooldownStore, window, retention time.Duration, logger *slog.Logger) *Cooldown {
	return &Cooldown{
		store:     store,
		window:    window,
		retention: retention,
		logger:    logger.With(slog.String("component", "cooldown")),
	}
}

// TryAcquire returns true when the token is allowed to alert now, committing
// the slot immediately. A false result means the token alerted within the
// window. Store failures are returned to the caller, which abandons the alert
// attempt for this cycle.
func (c *Cooldown) TryAcquire(ctx context.Context, key domain.TokenKey, now time.Time) (bool, error) {
	ok, err := c.store.Acquire(ctx, key.String(), now, c.window)
	if err != nil {
		return false, fmt.Errorf("cooldown: acquire %s: %w", key, err)
	}
	return ok, nil
}

// Sweep deletes cooldown entries older than the retention window to bound
// storage growth. It is called on its own periodic timer.
func (c *Cooldown) Sweep(ctx context.Context, now time.Time) {
	removed, err := c.store.Sweep(ctx, now.Add(-c.retention))
	if err != nil {
		c.logger.Warn("cooldown sweep failed", slog.String("error", err.Error()))
		return
	}
	if removed > 0 {
		c.logger.Info("cooldown sweep removed entries", slog.Int("removed", removed))
	}
}
