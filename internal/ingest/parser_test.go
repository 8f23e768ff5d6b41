package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trenchwatch/engine/internal/domain"
)

const (
	contractA = "6EF8rrecthR3Dkm6nVkVeZz1mhuAJ7qyyCY4dMrF6YcN"
	contractB = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestParseCompleteEntry(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	p := NewParserAt(fixedClock(now))

	raw := "🟢 whale.sol(HxWhale01) bought 12.5 SOL of PEPE(pepe-01) MC: $1.2M CA: " + contractA + " [08-30 14:22]"

	records := p.Parse(raw)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, domain.SideBuy, rec.Side)
	assert.Equal(t, "whale.sol", rec.TraderName)
	assert.Equal(t, "HxWhale01", rec.TraderID)
	assert.Equal(t, "PEPE", rec.TokenSymbol)
	assert.Equal(t, "pepe-01", rec.TokenID)
	assert.Equal(t, contractA, rec.Contract)
	assert.Equal(t, 12.5, rec.AmountSOL)
	assert.Equal(t, "$1.2M", rec.MarketCap)
	assert.Equal(t, time.Date(2026, 8, 30, 14, 22, 0, 0, time.UTC), rec.ObservedAt)
}

func TestParseSellEntry(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	p := NewParserAt(fixedClock(now))

	raw := "🔴 dumper(Dmp99) sold 3 SOL of WIF(wif-7) CA: " + contractB + " [08-31 09:15]"

	records := p.Parse(raw)
	require.Len(t, records, 1)
	assert.Equal(t, domain.SideSell, records[0].Side)
	assert.Equal(t, 3.0, records[0].AmountSOL)
	assert.Empty(t, records[0].MarketCap)
}

func TestParseMultipleLines(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	p := NewParserAt(fixedClock(now))

	raw := "header noise\n" +
		"🟢 alice(A1) bought 5 SOL of PEPE(pepe-01) CA: " + contractA + " [08-31 10:00]\n" +
		"\n" +
		"🔴 bob(B2) sold 2.25 SOL of PEPE(pepe-01) CA: " + contractA + " [08-31 10:01]\n" +
		"trailing noise"

	records := p.Parse(raw)
	require.Len(t, records, 2)
	assert.Equal(t, domain.SideBuy, records[0].Side)
	assert.Equal(t, domain.SideSell, records[1].Side)
}

func TestParseDropsIncompleteEntries(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	p := NewParserAt(fixedClock(now))

	cases := map[string]string{
		"missing trader":    "🟢 bought 5 SOL of PEPE(pepe-01) CA: " + contractA + " [08-31 10:00]",
		"missing token":     "🟢 alice(A1) bought 5 SOL CA: " + contractA + " [08-31 10:00]",
		"missing amount":    "🟢 alice(A1) bought of PEPE(pepe-01) CA: " + contractA + " [08-31 10:00]",
		"missing contract":  "🟢 alice(A1) bought 5 SOL of PEPE(pepe-01) [08-31 10:00]",
		"missing timestamp": "🟢 alice(A1) bought 5 SOL of PEPE(pepe-01) CA: " + contractA,
		"zero amount":       "🟢 alice(A1) bought 0 SOL of PEPE(pepe-01) CA: " + contractA + " [08-31 10:00]",
		"short contract":    "🟢 alice(A1) bought 5 SOL of PEPE(pepe-01) CA: abc123 [08-31 10:00]",
		"no side glyph":     "alice(A1) bought 5 SOL of PEPE(pepe-01) CA: " + contractA + " [08-31 10:00]",
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Empty(t, p.Parse(raw))
		})
	}
}

func TestParseDropDoesNotAffectSiblings(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	p := NewParserAt(fixedClock(now))

	raw := "🟢 alice(A1) bought 5 SOL of PEPE(pepe-01) CA: " + contractA + " [08-31 10:00]\n" +
		"🟢 broken entry with no fields\n" +
		"🟢 carol(C3) bought 7 SOL of PEPE(pepe-01) CA: " + contractA + " [08-31 10:02]"

	records := p.Parse(raw)
	require.Len(t, records, 2)
	assert.Equal(t, "A1", records[0].TraderID)
	assert.Equal(t, "C3", records[1].TraderID)
}

func TestParseEmptySnapshot(t *testing.T) {
	p := NewParser()
	assert.Empty(t, p.Parse(""))
	assert.Empty(t, p.Parse("nothing tradable here"))
}

func TestResolveTimestampYearRollback(t *testing.T) {
	// Reading a December stamp just after New Year resolves to last year.
	now := time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)
	p := NewParserAt(fixedClock(now))

	raw := "🟢 alice(A1) bought 5 SOL of PEPE(pepe-01) CA: " + contractA + " [12-30 23:50]"

	records := p.Parse(raw)
	require.Len(t, records, 1)
	assert.Equal(t, 2025, records[0].ObservedAt.Year())
}

func TestResolveTimestampSameYear(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	p := NewParserAt(fixedClock(now))

	// Slightly in the future (clock skew) stays in the current year.
	raw := "🟢 alice(A1) bought 5 SOL of PEPE(pepe-01) CA: " + contractA + " [08-31 13:00]"

	records := p.Parse(raw)
	require.Len(t, records, 1)
	assert.Equal(t, 2026, records[0].ObservedAt.Year())
}
