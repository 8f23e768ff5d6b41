// Package deliver fans a composed alert out to every current subscriber,
// retrying transient failures. One subscriber's failure never blocks or fails
// delivery to the others.
package deliver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/trenchwatch/engine/internal/domain"
)

// Sender sends text to one recipient. *notify.Telegram satisfies this.
type Sender interface {
	Send(ctx context.Context, recipient, text string) error
}

// Manager delivers messages to the subscriber registry. It never mutates the
// registry.
type Manager struct {
	sender      Sender
	registry    domain.SubscriberRegistry
	maxAttempts int
	retryDelay  time.Duration
	retryable   func(error) bool
	logger      *slog.Logger
}

// NewManager creates a Manager. retryable classifies a send error as worth
// retrying; retries use a fixed delay up to maxAttempts total attempts.
func NewManager(sender Sender, registry domain.SubscriberRegistry, maxAttempts int, retryDelay time.Duration, retryable func(error) bool, logger *slog.Logger) *Manager {
	return &Manager{
		sender:      sender,
		registry:    registry,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		retryable:   retryable,
		logger:      logger.With(slog.String("component", "deliver")),
	}
}

// Deliver sends text to every subscriber concurrently and reports the
// per-subscriber outcomes. It returns an error only when the registry itself
// cannot be enumerated.
func (m *Manager) Deliver(ctx context.Context, text string) (domain.DeliveryReport, error) {
	subscribers, err := m.registry.All(ctx)
	if err != nil {
		return domain.DeliveryReport{}, fmt.Errorf("deliver: list subscribers: %w", err)
	}
	if len(subscribers) == 0 {
		return domain.DeliveryReport{}, nil
	}

	outcomes := make([]domain.DeliveryOutcome, len(subscribers))

	var wg sync.WaitGroup
	for i, sub := range subscribers {
		wg.Add(1)
		go func(i int, sub string) {
			defer wg.Done()
			outcomes[i] = m.sendWithRetry(ctx, sub, text)
		}(i, sub)
	}
	wg.Wait()

	report := domain.DeliveryReport{Outcomes: outcomes}
	m.logger.Info("delivery complete",
		slog.Int("subscribers", len(subscribers)),
		slog.Int("delivered", report.Delivered()),
		slog.Int("failed", report.Failed()),
	)
	return report, nil
}

// sendWithRetry attempts one recipient's send, retrying retryable failures
// with a fixed delay. Non-retryable failures are recorded immediately.
func (m *Manager) sendWithRetry(ctx context.Context, recipient, text string) domain.DeliveryOutcome {
	outcome := domain.DeliveryOutcome{Recipient: recipient}

	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		outcome.Attempts = attempt
		err := m.sender.Send(ctx, recipient, text)
		if err == nil {
			outcome.Err = nil
			return outcome
		}
		outcome.Err = err

		if !m.retryable(err) {
			m.logger.Warn("send failed permanently",
				slog.String("recipient", recipient),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
			return outcome
		}

		m.logger.Warn("send failed, will retry",
			slog.String("recipient", recipient),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)

		if attempt == m.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			outcome.Err = ctx.Err()
			return outcome
		case <-time.After(m.retryDelay):
		}
	}

	return outcome
}
