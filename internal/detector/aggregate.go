// Package detector aggregates trade records per token, evaluates the alert
// threshold rule, and gates qualifying tokens through the persisted cooldown.
package detector

import (
	"sort"

	"github.com/trenchwatch/engine/internal/domain"
)

// Thresholds are the three independent floors a token must clear to alert.
type Thresholds struct {
	MinBuys       int     // buy count >= MinBuys
	MinBuyers     int     // distinct buyers >= MinBuyers
	MinNetFlowSOL float64 // net flow > MinNetFlowSOL (strict)
}

// Aggregate groups one snapshot's trade records by token key. Order of the
// input records does not affect the result.
func Aggregate(records []domain.TradeRecord) map[domain.TokenKey]*domain.TokenStats {
	stats := make(map[domain.TokenKey]*domain.TokenStats)

	for _, rec := range records {
		key := rec.Key()
		st, ok := stats[key]
		if !ok {
			st = &domain.TokenStats{
				Key:     key,
				Buyers:  make(map[string]struct{}),
				Sellers: make(map[string]struct{}),
			}
			stats[key] = st
		}

		// Contract and market cap are identical across a token's records
		// within one snapshot; last one wins.
		st.Contract = rec.Contract
		if rec.MarketCap != "" {
			st.MarketCap = rec.MarketCap
		}

		switch rec.Side {
		case domain.SideBuy:
			st.BuyCount++
			st.BuyVolume += rec.AmountSOL
			st.Buyers[rec.TraderID] = struct{}{}
		case domain.SideSell:
			st.SellCount++
			st.SellVolume += rec.AmountSOL
			st.Sellers[rec.TraderID] = struct{}{}
		}
	}

	return stats
}

// Evaluate classifies every token against the thresholds. It returns the
// qualifying decisions (all three predicates true) and the full ranked list,
// sorted by satisfied-predicate count descending, then net flow descending,
// then key ascending so output is deterministic. The ranked list only affects
// display and logging, never gating.
func Evaluate(stats map[domain.TokenKey]*domain.TokenStats, th Thresholds) (qualifying, ranked []domain.Decision) {
	ranked = make([]domain.Decision, 0, len(stats))

	for _, st := range stats {
		satisfied := 0
		if st.BuyCount >= th.MinBuys {
			satisfied++
		}
		if len(st.Buyers) >= th.MinBuyers {
			satisfied++
		}
		if st.NetFlow() > th.MinNetFlowSOL {
			satisfied++
		}
		ranked = append(ranked, domain.Decision{
			Stats:     st,
			Satisfied: satisfied,
			Qualifies: satisfied == 3,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Satisfied != ranked[j].Satisfied {
			return ranked[i].Satisfied > ranked[j].Satisfied
		}
		if ranked[i].Stats.NetFlow() != ranked[j].Stats.NetFlow() {
			return ranked[i].Stats.NetFlow() > ranked[j].Stats.NetFlow()
		}
		return ranked[i].Stats.Key.String() < ranked[j].Stats.Key.String()
	})

	for _, d := range ranked {
		if d.Qualifies {
			qualifying = append(qualifying, d)
		}
	}
	return qualifying, ranked
}
