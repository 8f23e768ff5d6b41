// Package feed delivers raw trade-text snapshots from an upstream source.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/trenchwatch/engine/internal/domain"
)

// SnapshotHandler is called for each raw trade-text snapshot received from
// the upstream feed.
type SnapshotHandler func(ctx context.Context, raw string)

// WSFeed connects to a WebSocket endpoint that streams narrative trade-text
// snapshots and invokes the handler for each text message. It reconnects
// with a fixed delay on disconnect.
type WSFeed struct {
	wsURL      string
	onSnapshot SnapshotHandler
	logger     *slog.Logger

	dialTimeout    time.Duration
	reconnectDelay time.Duration
	pingInterval   time.Duration

	closeOnce sync.Once
	done      chan struct{}
}

// NewWSFeed creates a feed that reads snapshots from wsURL.
func NewWSFeed(wsURL string, onSnapshot SnapshotHandler, logger *slog.Logger) *WSFeed {
	return &WSFeed{
		wsURL:          wsURL,
		onSnapshot:     onSnapshot,
		logger:         logger.With(slog.String("component", "ws_feed")),
		dialTimeout:    15 * time.Second,
		reconnectDelay: 2 * time.Second,
		pingInterval:   30 * time.Second,
		done:           make(chan struct{}),
	}
}

// Run connects and reads snapshots until ctx is cancelled or Close is called.
func (f *WSFeed) Run(ctx context.Context) error {
	if f.wsURL == "" {
		return fmt.Errorf("feed: ws url is required")
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		err := f.runConnection(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("feed disconnected, reconnecting", slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case <-time.After(f.reconnectDelay):
		}
	}
}

func (f *WSFeed) runConnection(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, f.dialTimeout)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, f.wsURL, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("feed: dial %s: %w", f.wsURL, err)
	}
	defer conn.Close()

	f.logger.Info("feed connected", slog.String("url", f.wsURL))

	// Close the connection when ctx is cancelled so ReadMessage unblocks.
	readDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(f.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-f.done:
				conn.Close()
				return
			case <-readDone:
				return
			case <-ticker.C:
				deadline := time.Now().Add(10 * time.Second)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()
	defer close(readDone)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			select {
			case <-f.done:
				return domain.ErrFeedClosed
			default:
			}
			return fmt.Errorf("feed: read: %w", err)
		}
		if msgType != websocket.TextMessage || len(data) == 0 {
			continue
		}
		if f.onSnapshot != nil {
			f.onSnapshot(ctx, string(data))
		}
	}
}

// Close stops the feed.
func (f *WSFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}
