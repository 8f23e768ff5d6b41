package command

import (
	"context"
	"strconv"

	"github.com/trenchwatch/engine/internal/domain"
	"github.com/trenchwatch/engine/internal/notify"
)

// TelegramSource adapts the Telegram getUpdates backlog to the Source
// interface. The update id doubles as the stable command id.
type TelegramSource struct {
	client *notify.Telegram
}

// NewTelegramSource creates a TelegramSource over the given client.
func NewTelegramSource(client *notify.Telegram) *TelegramSource {
	return &TelegramSource{client: client}
}

// Poll fetches pending updates after cursor and returns them as inbound
// commands along with the cursor for the next poll.
func (s *TelegramSource) Poll(ctx context.Context, cursor int64, limit int) ([]domain.InboundCommand, int64, error) {
	updates, err := s.client.Poll(ctx, cursor, limit)
	if err != nil {
		return nil, cursor, err
	}

	next := cursor
	cmds := make([]domain.InboundCommand, 0, len(updates))
	for _, u := range updates {
		if u.ID+1 > next {
			next = u.ID + 1
		}
		cmds = append(cmds, domain.InboundCommand{
			ID:     strconv.FormatInt(u.ID, 10),
			Sender: u.ChatID,
			Text:   u.Text,
		})
	}
	return cmds, next, nil
}

// Compile-time interface check.
var _ Source = (*TelegramSource)(nil)
