// Package compose renders one alert message per qualifying token from the
// aggregated statistics and enrichment results, then bounds its length for
// the downstream transport.
package compose

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/trenchwatch/engine/internal/domain"
)

// truncationMarker is inserted between the kept prefix and suffix when a
// message exceeds the configured maximum length.
const truncationMarker = "\n...[truncated]...\n"

// Composer renders alert messages.
type Composer struct {
	counter   domain.PushCounter
	maxLength int
	loc       *time.Location
	watchlist []string
	logger    *slog.Logger
}

// NewComposer creates a Composer. watchlist entries are matched by substring
// against buyer ids to split out the prioritized "smart buyers" section.
func NewComposer(counter domain.PushCounter, maxLength int, loc *time.Location, watchlist []string, logger *slog.Logger) *Composer {
	return &Composer{
		counter:   counter,
		maxLength: maxLength,
		loc:       loc,
		watchlist: watchlist,
		logger:    logger.With(slog.String("component", "compose")),
	}
}

// Compose renders the alert block for one qualifying token and applies the
// length limit. The push-attempt counter increments on every call for the
// same token key; if the counter store fails the attempt number degrades to
// "?" rather than abandoning the alert.
func (c *Composer) Compose(ctx context.Context, d domain.Decision, enr domain.Enrichment) string {
	st := d.Stats

	attempt := "?"
	if n, err := c.counter.Next(ctx, st.Key.String()); err != nil {
		c.logger.Warn("push counter unavailable",
			slog.String("token", st.Key.String()),
			slog.String("error", err.Error()),
		)
	} else {
		attempt = fmt.Sprintf("%d", n)
	}

	var b strings.Builder

	// Header
	mc := st.MarketCap
	if mc == "" && enr.Info != nil && enr.Info.MarketCapUSD != nil {
		mc = fmtUSD(*enr.Info.MarketCapUSD)
	}
	if mc == "" {
		mc = "n/a"
	}
	holders := "n/a"
	if enr.HolderCount != nil {
		holders = fmt.Sprintf("%d", *enr.HolderCount)
	}
	fmt.Fprintf(&b, "🚨 $%s | MC %s | holders %s | push #%s\n", st.Key.Symbol, mc, holders, attempt)
	fmt.Fprintf(&b, "CA: %s\n", st.Contract)

	if enr.Info != nil && enr.Info.CreatedAt != nil {
		fmt.Fprintf(&b, "Created: %s\n", enr.Info.CreatedAt.In(c.loc).Format("2006-01-02 15:04 MST"))
	}

	fmt.Fprintf(&b, "\nBuys: %d (%.2f SOL) | Sells: %d (%.2f SOL) | Net: %+.2f SOL\n",
		st.BuyCount, st.BuyVolume, st.SellCount, st.SellVolume, st.NetFlow())

	if enr.Info != nil && enr.Info.Narrative != "" {
		fmt.Fprintf(&b, "\n📖 %s\n", enr.Info.Narrative)
	}

	if enr.Deployer != nil {
		fmt.Fprintf(&b, "\n👷 Deployer: %d launched, %d rugged", enr.Deployer.TokensCreated, enr.Deployer.Rugged)
		if enr.Deployer.BestMCapUSD != nil {
			fmt.Fprintf(&b, ", best MC %s", fmtUSD(*enr.Deployer.BestMCapUSD))
		}
		b.WriteString("\n")
	}

	if enr.Market != nil {
		b.WriteString("\n📊 Volume:")
		writeWindow(&b, "1m", enr.Market.Volume1mUSD)
		writeWindow(&b, "5m", enr.Market.Volume5mUSD)
		writeWindow(&b, "1h", enr.Market.Volume1hUSD)
		if enr.Market.LiquidityUSD != nil {
			fmt.Fprintf(&b, " | liq %s", fmtUSD(*enr.Market.LiquidityUSD))
		}
		b.WriteString("\n")
	}

	if enr.Info != nil && (enr.Info.TwitterURL != "" || enr.Info.TwitterViews > 0) {
		b.WriteString("\n🐦 ")
		if enr.Info.TwitterURL != "" {
			b.WriteString(enr.Info.TwitterURL)
		}
		if enr.Info.TwitterViews > 0 {
			fmt.Fprintf(&b, " (%d views, %d likes)", enr.Info.TwitterViews, enr.Info.TwitterLikes)
		}
		b.WriteString("\n")
	}

	c.writeBuyers(&b, st.BuyerIDs())

	fmt.Fprintf(&b, "\n🔗 https://gmgn.ai/sol/token/%s", st.Contract)
	fmt.Fprintf(&b, "\n🔗 https://birdeye.so/token/%s", st.Contract)
	fmt.Fprintf(&b, "\n🔗 https://solscan.io/token/%s", st.Contract)

	return Truncate(b.String(), c.maxLength)
}

// writeBuyers renders the smart-buyers section: watchlist matches first, the
// remainder after.
func (c *Composer) writeBuyers(b *strings.Builder, buyers []string) {
	if len(buyers) == 0 {
		return
	}
	sort.Strings(buyers)

	var smart, rest []string
	for _, id := range buyers {
		if c.onWatchlist(id) {
			smart = append(smart, id)
		} else {
			rest = append(rest, id)
		}
	}

	b.WriteString("\n🧠 Buyers:\n")
	for _, id := range smart {
		fmt.Fprintf(b, "  ⭐ %s\n", id)
	}
	for _, id := range rest {
		fmt.Fprintf(b, "  · %s\n", id)
	}
}

// onWatchlist reports whether any watchlist entry is a substring of id.
func (c *Composer) onWatchlist(id string) bool {
	for _, w := range c.watchlist {
		if w != "" && strings.Contains(id, w) {
			return true
		}
	}
	return false
}

// Truncate bounds text to max runes. Oversized text keeps a ~70% prefix and
// ~30% suffix around the truncation marker. This is a display safeguard
// against transport limits, not a correctness requirement.
func Truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}

	marker := []rune(truncationMarker)
	budget := max - len(marker)
	if budget < 2 {
		return string(runes[:max])
	}

	head := budget * 7 / 10
	tail := budget - head

	var b strings.Builder
	b.WriteString(string(runes[:head]))
	b.WriteString(truncationMarker)
	b.WriteString(string(runes[len(runes)-tail:]))
	return b.String()
}

// writeWindow appends one volume window figure when present.
func writeWindow(b *strings.Builder, label string, v *float64) {
	if v == nil {
		return
	}
	fmt.Fprintf(b, " %s %s", label, fmtUSD(*v))
}

// fmtUSD renders a dollar amount with K/M suffixes to match the feed's
// market-cap labels.
func fmtUSD(v float64) string {
	switch {
	case v >= 1e6:
		return fmt.Sprintf("$%.1fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("$%.1fK", v/1e3)
	default:
		return fmt.Sprintf("$%.0f", v)
	}
}
