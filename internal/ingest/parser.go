// Package ingest turns raw snapshot text from the event feed into structured
// trade records. The feed renders one trade per line in a fixed narrative
// format; anything that does not match is dropped, never errored.
package ingest

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/trenchwatch/engine/internal/domain"
)

// Side glyphs that open a candidate trade entry.
const (
	glyphBuy  = "🟢"
	glyphSell = "🔴"
)

// Extraction rules. Each rule either finds its field on the line or it does
// not; an entry is emitted only when every required rule matched.
var (
	traderRe    = regexp.MustCompile(`^(?:🟢|🔴)\s+(.+?)\(([A-Za-z0-9_-]+)\)`)
	tokenRe     = regexp.MustCompile(`of\s+(\S+?)\(([A-Za-z0-9_-]+)\)`)
	amountRe    = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)\s*SOL\b`)
	contractRe  = regexp.MustCompile(`CA:\s*([1-9A-HJ-NP-Za-km-z]{32,44})`)
	timestampRe = regexp.MustCompile(`\[([0-9]{2}-[0-9]{2} [0-9]{2}:[0-9]{2})\]`)
	marketCapRe = regexp.MustCompile(`MC:\s*(\$[0-9][0-9.,]*[KMB]?)`)
)

// Parser extracts trade records from raw snapshot text.
type Parser struct {
	clock func() time.Time
}

// NewParser creates a Parser using the wall clock to resolve the year of the
// feed's month-day timestamps.
func NewParser() *Parser {
	return &Parser{clock: time.Now}
}

// NewParserAt creates a Parser with an injected clock.
func NewParserAt(clock func() time.Time) *Parser {
	return &Parser{clock: clock}
}

// Parse extracts zero or more trade records from one raw snapshot. Entries
// missing any required field (trader, token, amount, timestamp, contract,
// token id) are silently dropped; a snapshot with no parseable entries yields
// an empty slice.
func (p *Parser) Parse(raw string) []domain.TradeRecord {
	var records []domain.TradeRecord

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)

		var side domain.Side
		switch {
		case strings.HasPrefix(line, glyphBuy):
			side = domain.SideBuy
		case strings.HasPrefix(line, glyphSell):
			side = domain.SideSell
		default:
			continue
		}

		rec, ok := p.parseEntry(line, side)
		if !ok {
			continue
		}
		records = append(records, rec)
	}

	return records
}

// parseEntry runs the extraction rules against one candidate line. It returns
// ok=false as soon as a required field is missing.
func (p *Parser) parseEntry(line string, side domain.Side) (domain.TradeRecord, bool) {
	trader := traderRe.FindStringSubmatch(line)
	if trader == nil {
		return domain.TradeRecord{}, false
	}

	token := tokenRe.FindStringSubmatch(line)
	if token == nil {
		return domain.TradeRecord{}, false
	}

	amount := amountRe.FindStringSubmatch(line)
	if amount == nil {
		return domain.TradeRecord{}, false
	}
	sol, err := strconv.ParseFloat(amount[1], 64)
	if err != nil || sol <= 0 {
		return domain.TradeRecord{}, false
	}

	contract := contractRe.FindStringSubmatch(line)
	if contract == nil {
		return domain.TradeRecord{}, false
	}

	stamp := timestampRe.FindStringSubmatch(line)
	if stamp == nil {
		return domain.TradeRecord{}, false
	}
	observed, ok := p.resolveTimestamp(stamp[1])
	if !ok {
		return domain.TradeRecord{}, false
	}

	rec := domain.TradeRecord{
		Side:        side,
		TraderName:  strings.TrimSpace(trader[1]),
		TraderID:    trader[2],
		TokenSymbol: token[1],
		TokenID:     token[2],
		Contract:    contract[1],
		AmountSOL:   sol,
		ObservedAt:  observed,
	}

	// Market cap is display-only and optional.
	if mc := marketCapRe.FindStringSubmatch(line); mc != nil {
		rec.MarketCap = mc[1]
	}

	return rec, true
}

// resolveTimestamp parses the feed's "MM-DD HH:MM" stamp against the current
// year. A stamp more than a day in the future is assumed to be from the
// previous year (snapshots read across a New Year boundary).
func (p *Parser) resolveTimestamp(s string) (time.Time, bool) {
	parsed, err := time.Parse("01-02 15:04", s)
	if err != nil {
		return time.Time{}, false
	}

	now := p.clock()
	ts := time.Date(now.Year(), parsed.Month(), parsed.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, now.Location())

	if ts.After(now.Add(24 * time.Hour)) {
		ts = ts.AddDate(-1, 0, 0)
	}
	return ts, true
}
