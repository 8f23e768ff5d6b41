package domain

import (
	"context"
	"time"
)

// CooldownStore persists the per-token last-alert timestamp.
type CooldownStore interface {
	// Acquire atomically checks the stored timestamp for key and, if it is
	// absent or older than window relative to now, stores now and returns
	// true. Otherwise it returns false without mutating state. A true result
	// commits the slot immediately, even if the alert later fails downstream.
	Acquire(ctx context.Context, key string, now time.Time, window time.Duration) (bool, error)

	// Last returns the stored last-alert timestamp for key, with ok=false
	// when no entry exists.
	Last(ctx context.Context, key string) (ts time.Time, ok bool, err error)

	// Sweep deletes entries whose timestamp is older than cutoff and returns
	// the number removed.
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
}

// SubscriberRegistry is the persisted set of alert recipients.
type SubscriberRegistry interface {
	Add(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) error
	Contains(ctx context.Context, id string) (bool, error)
	All(ctx context.Context) ([]string, error)
}

// ProcessedCommandStore records inbound command ids that have already been
// handled, so redelivered backlogs are processed at most once.
type ProcessedCommandStore interface {
	Seen(ctx context.Context, id string) (bool, error)

	// Mark records a batch of ids as processed at the given time. It is
	// called once per poll batch and also compacts entries older than the
	// store's retention horizon.
	Mark(ctx context.Context, ids []string, at time.Time) error

	// Cursor and SetCursor track the poll offset into the command backlog.
	Cursor(ctx context.Context) (int64, error)
	SetCursor(ctx context.Context, cursor int64) error
}

// PushCounter is the monotonic per-token compose counter shown in alert
// headers. It is never reset.
type PushCounter interface {
	Next(ctx context.Context, key string) (int64, error)
}

// AlertRecord is one row of the alert audit log.
type AlertRecord struct {
	ID         string
	TokenID    string
	Symbol     string
	Contract   string
	BuyCount   int
	BuyerCount int
	NetFlowSOL float64
	Delivered  int
	Failed     int
	MessageLen int
	CreatedAt  time.Time
}

// AlertLogStore persists the alert audit log.
type AlertLogStore interface {
	Insert(ctx context.Context, rec AlertRecord) error
	ListOlder(ctx context.Context, cutoff time.Time, limit int) ([]AlertRecord, error)
	DeleteOlder(ctx context.Context, cutoff time.Time) (int64, error)
}

// BlobWriter uploads a blob to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
}
