// Package domain defines the core types and storage interfaces shared by the
// trenchwatch pipeline. Concrete storage implementations live in
// internal/cache/redis and internal/store/postgres.
package domain

import (
	"fmt"
	"time"
)

// Side is the direction of an observed trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// TradeRecord is one parsed buy or sell observation from a raw snapshot.
// Records are immutable once parsed and live only for one snapshot evaluation.
type TradeRecord struct {
	Side        Side
	TraderName  string
	TraderID    string
	TokenSymbol string
	TokenID     string
	Contract    string
	AmountSOL   float64
	ObservedAt  time.Time // source-local, minute precision
	MarketCap   string    // display label, optional
}

// Key returns the token key this record belongs to.
func (r TradeRecord) Key() TokenKey {
	return TokenKey{Symbol: r.TokenSymbol, TokenID: r.TokenID}
}

// TokenKey identifies one tradable token instance within a snapshot. It is
// the grouping key for aggregation and the cooldown key.
type TokenKey struct {
	Symbol  string
	TokenID string
}

// String renders the key in the "SYMBOL:id" form used for storage keys.
func (k TokenKey) String() string {
	return fmt.Sprintf("%s:%s", k.Symbol, k.TokenID)
}

// TokenStats is the per-token aggregate over one snapshot's trade records.
// It is recomputed from scratch on every snapshot, never merged across them.
type TokenStats struct {
	Key        TokenKey
	Contract   string
	MarketCap  string
	BuyCount   int
	BuyVolume  float64
	SellCount  int
	SellVolume float64
	Buyers     map[string]struct{}
	Sellers    map[string]struct{}
}

// NetFlow returns buy volume minus sell volume in SOL.
func (s *TokenStats) NetFlow() float64 {
	return s.BuyVolume - s.SellVolume
}

// BuyerIDs returns the distinct buyer ids in unspecified order.
func (s *TokenStats) BuyerIDs() []string {
	ids := make([]string, 0, len(s.Buyers))
	for id := range s.Buyers {
		ids = append(ids, id)
	}
	return ids
}

// Decision is the threshold classification for one token's statistics.
// Qualifies is true only when all three predicates hold; Satisfied counts how
// many hold and is used for display ranking only.
type Decision struct {
	Stats     *TokenStats
	Satisfied int
	Qualifies bool
}
