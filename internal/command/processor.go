// Package command maintains the subscriber registry from inbound channel
// messages. The upstream channel may redeliver the same backlog on every poll
// cycle, so processing is idempotent per command id.
package command

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/trenchwatch/engine/internal/domain"
)

// pollLimit caps the number of commands fetched per cycle.
const pollLimit = 100

// Source supplies pending inbound commands after a cursor, together with the
// cursor for the next poll.
type Source interface {
	Poll(ctx context.Context, cursor int64, limit int) ([]domain.InboundCommand, int64, error)
}

// Replier sends a reply to a command's originator.
type Replier interface {
	Send(ctx context.Context, recipient, text string) error
}

// Processor polls the command source on its own cadence, independent of the
// alert path, and applies (de)subscriptions idempotently.
type Processor struct {
	source    Source
	replier   Replier
	registry  domain.SubscriberRegistry
	processed domain.ProcessedCommandStore
	logger    *slog.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(source Source, replier Replier, registry domain.SubscriberRegistry, processed domain.ProcessedCommandStore, logger *slog.Logger) *Processor {
	return &Processor{
		source:    source,
		replier:   replier,
		registry:  registry,
		processed: processed,
		logger:    logger.With(slog.String("component", "command")),
	}
}

// RunOnce executes one poll cycle: fetch the backlog, process commands whose
// ids have not been seen, then persist the processed set once for the whole
// batch and advance the cursor.
func (p *Processor) RunOnce(ctx context.Context) error {
	cursor, err := p.processed.Cursor(ctx)
	if err != nil {
		return fmt.Errorf("command: read cursor: %w", err)
	}

	cmds, next, err := p.source.Poll(ctx, cursor, pollLimit)
	if err != nil {
		return fmt.Errorf("command: poll: %w", err)
	}
	if len(cmds) == 0 {
		return nil
	}

	var newIDs []string
	for _, cmd := range cmds {
		seen, err := p.processed.Seen(ctx, cmd.ID)
		if err != nil {
			return fmt.Errorf("command: check processed %s: %w", cmd.ID, err)
		}
		if seen {
			continue
		}

		p.handle(ctx, cmd)
		newIDs = append(newIDs, cmd.ID)
	}

	if len(newIDs) > 0 {
		if err := p.processed.Mark(ctx, newIDs, time.Now()); err != nil {
			return fmt.Errorf("command: mark processed: %w", err)
		}
		p.logger.Info("processed command batch",
			slog.Int("polled", len(cmds)),
			slog.Int("new", len(newIDs)),
		)
	}

	if next > cursor {
		if err := p.processed.SetCursor(ctx, next); err != nil {
			return fmt.Errorf("command: advance cursor: %w", err)
		}
	}
	return nil
}

// handle applies one new command. Registry or reply failures are logged, not
// escalated; the id is still marked processed so a broken command cannot wedge
// the backlog.
func (p *Processor) handle(ctx context.Context, cmd domain.InboundCommand) {
	kind := ParseKind(cmd.Text)

	switch kind {
	case domain.CommandSubscribe:
		if err := p.registry.Add(ctx, cmd.Sender); err != nil {
			p.logger.Error("subscribe failed",
				slog.String("sender", cmd.Sender),
				slog.String("error", err.Error()),
			)
			return
		}
		p.reply(ctx, cmd.Sender, "Subscribed. You will receive trade alerts.")

	case domain.CommandUnsubscribe:
		if err := p.registry.Remove(ctx, cmd.Sender); err != nil {
			p.logger.Error("unsubscribe failed",
				slog.String("sender", cmd.Sender),
				slog.String("error", err.Error()),
			)
			return
		}
		p.reply(ctx, cmd.Sender, "Unsubscribed. No further alerts will be sent.")

	case domain.CommandStatus:
		p.reply(ctx, cmd.Sender, p.statusText(ctx, cmd.Sender))

	default:
		// Unrecognized text is ignored (no reply), but still marked
		// processed by the caller so it is not re-examined every poll.
	}
}

// statusText is a pure read of the sender's subscription state.
func (p *Processor) statusText(ctx context.Context, sender string) string {
	subscribed, err := p.registry.Contains(ctx, sender)
	if err != nil {
		p.logger.Error("status lookup failed",
			slog.String("sender", sender),
			slog.String("error", err.Error()),
		)
		return "Status unavailable, try again later."
	}
	if subscribed {
		return "You are subscribed to trade alerts."
	}
	return "You are not subscribed. Send \"subscribe\" to receive alerts."
}

// reply sends a response to the command originator; a failed reply is logged
// and dropped (there is no error channel back to the source).
func (p *Processor) reply(ctx context.Context, recipient, text string) {
	if err := p.replier.Send(ctx, recipient, text); err != nil {
		p.logger.Warn("reply failed",
			slog.String("recipient", recipient),
			slog.String("error", err.Error()),
		)
	}
}

// ParseKind matches command text against the fixed vocabulary,
// case-insensitively, tolerating a leading slash.
func ParseKind(text string) domain.CommandKind {
	word := strings.ToLower(strings.TrimSpace(text))
	word = strings.TrimPrefix(word, "/")
	if i := strings.IndexAny(word, " \t"); i >= 0 {
		word = word[:i]
	}

	switch word {
	case "subscribe", "start":
		return domain.CommandSubscribe
	case "unsubscribe", "stop":
		return domain.CommandUnsubscribe
	case "status":
		return domain.CommandStatus
	default:
		return domain.CommandUnknown
	}
}
