package compose

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trenchwatch/engine/internal/domain"
)

// fakeCounter is an in-memory domain.PushCounter.
type fakeCounter struct {
	counts map[string]int64
	fail   error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: make(map[string]int64)}
}

func (c *fakeCounter) Next(_ context.Context, key string) (int64, error) {
	if c.fail != nil {
		return 0, c.fail
	}
	c.counts[key]++
	return c.counts[key], nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleDecision() domain.Decision {
	return domain.Decision{
		Stats: &domain.TokenStats{
			Key:        domain.TokenKey{Symbol: "PEPE", TokenID: "p1"},
			Contract:   "6EF8rrecthR3Dkm6nVkVeZz1mhuAJ7qyyCY4dMrF6YcN",
			MarketCap:  "$1.2M",
			BuyCount:   4,
			BuyVolume:  22.5,
			SellCount:  1,
			SellVolume: 3,
			Buyers: map[string]struct{}{
				"HxWhale01": {},
				"AnonTrdr9": {},
			},
			Sellers: map[string]struct{}{"Dmp99": {}},
		},
		Satisfied: 3,
		Qualifies: true,
	}
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(n int) *int           { return &n }

func TestComposeFullEnrichment(t *testing.T) {
	counter := newFakeCounter()
	c := NewComposer(counter, 4000, time.UTC, []string{"Whale"}, discardLogger())

	created := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	enr := domain.Enrichment{
		Info: &domain.TokenInfo{
			Narrative:    "frog coin revival",
			TwitterURL:   "https://x.com/pepe",
			TwitterViews: 5000,
			TwitterLikes: 300,
			Deployer:     "dep-1",
			CreatedAt:    &created,
		},
		Market: &domain.MarketData{
			Volume5mUSD:  floatPtr(25_000),
			LiquidityUSD: floatPtr(90_000),
		},
		Deployer:    &domain.DeployerHistory{TokensCreated: 7, Rugged: 2, BestMCapUSD: floatPtr(2_400_000)},
		HolderCount: intPtr(412),
	}

	msg := c.Compose(context.Background(), sampleDecision(), enr)

	assert.Contains(t, msg, "🚨 $PEPE | MC $1.2M | holders 412 | push #1")
	assert.Contains(t, msg, "CA: 6EF8rrecthR3Dkm6nVkVeZz1mhuAJ7qyyCY4dMrF6YcN")
	assert.Contains(t, msg, "Created: 2026-08-30 09:00 UTC")
	assert.Contains(t, msg, "Buys: 4 (22.50 SOL) | Sells: 1 (3.00 SOL) | Net: +19.50 SOL")
	assert.Contains(t, msg, "📖 frog coin revival")
	assert.Contains(t, msg, "👷 Deployer: 7 launched, 2 rugged, best MC $2.4M")
	assert.Contains(t, msg, "📊 Volume: 5m $25.0K | liq $90.0K")
	assert.Contains(t, msg, "🐦 https://x.com/pepe (5000 views, 300 likes)")
	assert.Contains(t, msg, "https://gmgn.ai/sol/token/")
	assert.Contains(t, msg, "https://birdeye.so/token/")
	assert.Contains(t, msg, "https://solscan.io/token/")
}

func TestComposeWatchlistBuyersFirst(t *testing.T) {
	c := NewComposer(newFakeCounter(), 4000, time.UTC, []string{"Whale"}, discardLogger())

	msg := c.Compose(context.Background(), sampleDecision(), domain.Enrichment{})

	star := strings.Index(msg, "⭐ HxWhale01")
	dot := strings.Index(msg, "· AnonTrdr9")
	require.Greater(t, star, -1)
	require.Greater(t, dot, -1)
	assert.Less(t, star, dot)
}

func TestComposeMissingSectionsOmitted(t *testing.T) {
	c := NewComposer(newFakeCounter(), 4000, time.UTC, nil, discardLogger())

	msg := c.Compose(context.Background(), sampleDecision(), domain.Enrichment{})

	assert.Contains(t, msg, "holders n/a")
	assert.NotContains(t, msg, "📖")
	assert.NotContains(t, msg, "👷")
	assert.NotContains(t, msg, "📊")
	assert.NotContains(t, msg, "🐦")
	assert.NotContains(t, msg, "Created:")
}

func TestComposeCounterIncrementsPerToken(t *testing.T) {
	counter := newFakeCounter()
	c := NewComposer(counter, 4000, time.UTC, nil, discardLogger())
	d := sampleDecision()

	first := c.Compose(context.Background(), d, domain.Enrichment{})
	second := c.Compose(context.Background(), d, domain.Enrichment{})

	assert.Contains(t, first, "push #1")
	assert.Contains(t, second, "push #2")
}

func TestComposeCounterFailureDegrades(t *testing.T) {
	counter := newFakeCounter()
	counter.fail = errors.New("connection refused")
	c := NewComposer(counter, 4000, time.UTC, nil, discardLogger())

	msg := c.Compose(context.Background(), sampleDecision(), domain.Enrichment{})
	assert.Contains(t, msg, "push #?")
}

func TestComposeAppliesLengthLimit(t *testing.T) {
	c := NewComposer(newFakeCounter(), 200, time.UTC, nil, discardLogger())

	enr := domain.Enrichment{
		Info: &domain.TokenInfo{Narrative: strings.Repeat("very long narrative ", 50)},
	}
	msg := c.Compose(context.Background(), sampleDecision(), enr)

	assert.LessOrEqual(t, len([]rune(msg)), 200)
	assert.Contains(t, msg, truncationMarker)
}

func TestTruncate(t *testing.T) {
	t.Run("short text unchanged", func(t *testing.T) {
		assert.Equal(t, "hello", Truncate("hello", 10))
	})

	t.Run("exact length unchanged", func(t *testing.T) {
		assert.Equal(t, "hello", Truncate("hello", 5))
	})

	t.Run("long text keeps prefix and suffix", func(t *testing.T) {
		text := strings.Repeat("a", 500) + strings.Repeat("z", 500)
		out := Truncate(text, 100)

		assert.LessOrEqual(t, len([]rune(out)), 100)
		assert.True(t, strings.HasPrefix(out, "a"))
		assert.True(t, strings.HasSuffix(out, "z"))
		assert.Contains(t, out, truncationMarker)
	})

	t.Run("multibyte runes not split", func(t *testing.T) {
		text := strings.Repeat("🚨", 300)
		out := Truncate(text, 100)
		assert.LessOrEqual(t, len([]rune(out)), 100)
		assert.True(t, strings.HasPrefix(out, "🚨"))
	})

	t.Run("tiny budget falls back to hard cut", func(t *testing.T) {
		out := Truncate(strings.Repeat("x", 50), 5)
		assert.Equal(t, "xxxxx", out)
	})
}

func TestFmtUSD(t *testing.T) {
	assert.Equal(t, "$2.4M", fmtUSD(2_400_000))
	assert.Equal(t, "$25.0K", fmtUSD(25_000))
	assert.Equal(t, "$950", fmtUSD(950))
}
