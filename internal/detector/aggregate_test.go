package detector

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trenchwatch/engine/internal/domain"
)

func buy(trader, symbol, tokenID string, sol float64) domain.TradeRecord {
	return domain.TradeRecord{
		Side:        domain.SideBuy,
		TraderName:  trader,
		TraderID:    trader,
		TokenSymbol: symbol,
		TokenID:     tokenID,
		Contract:    "contract-" + tokenID,
		AmountSOL:   sol,
		ObservedAt:  time.Now(),
	}
}

func sell(trader, symbol, tokenID string, sol float64) domain.TradeRecord {
	r := buy(trader, symbol, tokenID, sol)
	r.Side = domain.SideSell
	return r
}

func TestAggregateGroupsByToken(t *testing.T) {
	records := []domain.TradeRecord{
		buy("alice", "PEPE", "p1", 5),
		buy("bob", "PEPE", "p1", 7),
		buy("alice", "WIF", "w1", 2),
		sell("carol", "PEPE", "p1", 3),
	}

	stats := Aggregate(records)
	require.Len(t, stats, 2)

	pepe := stats[domain.TokenKey{Symbol: "PEPE", TokenID: "p1"}]
	require.NotNil(t, pepe)
	assert.Equal(t, 2, pepe.BuyCount)
	assert.Equal(t, 12.0, pepe.BuyVolume)
	assert.Equal(t, 1, pepe.SellCount)
	assert.Equal(t, 3.0, pepe.SellVolume)
	assert.Equal(t, 9.0, pepe.NetFlow())
	assert.Len(t, pepe.Buyers, 2)
	assert.Len(t, pepe.Sellers, 1)

	wif := stats[domain.TokenKey{Symbol: "WIF", TokenID: "w1"}]
	require.NotNil(t, wif)
	assert.Equal(t, 1, wif.BuyCount)
}

func TestAggregateDistinctBuyers(t *testing.T) {
	// Same trader buying repeatedly counts once in the buyer set.
	records := []domain.TradeRecord{
		buy("alice", "PEPE", "p1", 5),
		buy("alice", "PEPE", "p1", 5),
		buy("alice", "PEPE", "p1", 5),
	}

	stats := Aggregate(records)
	pepe := stats[domain.TokenKey{Symbol: "PEPE", TokenID: "p1"}]
	require.NotNil(t, pepe)
	assert.Equal(t, 3, pepe.BuyCount)
	assert.Len(t, pepe.Buyers, 1)
}

func TestAggregateOrderIndependent(t *testing.T) {
	records := []domain.TradeRecord{
		buy("alice", "PEPE", "p1", 5),
		buy("bob", "PEPE", "p1", 7),
		sell("carol", "PEPE", "p1", 3),
		buy("dave", "WIF", "w1", 1),
		sell("erin", "WIF", "w1", 4),
	}

	want := Aggregate(records)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		shuffled := make([]domain.TradeRecord, len(records))
		copy(shuffled, records)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		got := Aggregate(shuffled)
		require.Len(t, got, len(want))
		for key, w := range want {
			g := got[key]
			require.NotNil(t, g)
			assert.Equal(t, w.BuyCount, g.BuyCount)
			assert.Equal(t, w.BuyVolume, g.BuyVolume)
			assert.Equal(t, w.SellCount, g.SellCount)
			assert.Equal(t, w.SellVolume, g.SellVolume)
			assert.Equal(t, len(w.Buyers), len(g.Buyers))
		}
	}
}

func TestEvaluateAllPredicatesRequired(t *testing.T) {
	th := Thresholds{MinBuys: 3, MinBuyers: 2, MinNetFlowSOL: 10}

	stats := Aggregate([]domain.TradeRecord{
		buy("alice", "PEPE", "p1", 8),
		buy("bob", "PEPE", "p1", 8),
		buy("alice", "PEPE", "p1", 8),
	})

	qualifying, ranked := Evaluate(stats, th)
	require.Len(t, qualifying, 1)
	require.Len(t, ranked, 1)
	assert.True(t, ranked[0].Qualifies)
	assert.Equal(t, 3, ranked[0].Satisfied)
}

func TestEvaluateBoundaries(t *testing.T) {
	th := Thresholds{MinBuys: 3, MinBuyers: 3, MinNetFlowSOL: 10}

	t.Run("counts at floor qualify", func(t *testing.T) {
		stats := Aggregate([]domain.TradeRecord{
			buy("a", "TOK", "t1", 4),
			buy("b", "TOK", "t1", 4),
			buy("c", "TOK", "t1", 4),
		})
		qualifying, _ := Evaluate(stats, th)
		// 3 buys, 3 buyers, net 12 > 10.
		assert.Len(t, qualifying, 1)
	})

	t.Run("net flow exactly at threshold fails", func(t *testing.T) {
		stats := Aggregate([]domain.TradeRecord{
			buy("a", "TOK", "t1", 4),
			buy("b", "TOK", "t1", 3),
			buy("c", "TOK", "t1", 3),
		})
		qualifying, ranked := Evaluate(stats, th)
		// Net is exactly 10; the net-flow predicate is strict.
		assert.Empty(t, qualifying)
		require.Len(t, ranked, 1)
		assert.Equal(t, 2, ranked[0].Satisfied)
	})

	t.Run("sells erode net flow", func(t *testing.T) {
		stats := Aggregate([]domain.TradeRecord{
			buy("a", "TOK", "t1", 6),
			buy("b", "TOK", "t1", 6),
			buy("c", "TOK", "t1", 6),
			sell("d", "TOK", "t1", 9),
		})
		qualifying, _ := Evaluate(stats, th)
		// Net 18 - 9 = 9 <= 10.
		assert.Empty(t, qualifying)
	})
}

func TestEvaluateRankingDeterministic(t *testing.T) {
	th := Thresholds{MinBuys: 3, MinBuyers: 3, MinNetFlowSOL: 10}

	stats := Aggregate([]domain.TradeRecord{
		// AAA: qualifies with net 30.
		buy("a", "AAA", "a1", 10), buy("b", "AAA", "a1", 10), buy("c", "AAA", "a1", 10),
		// BBB: qualifies with net 60, should rank first.
		buy("a", "BBB", "b1", 20), buy("b", "BBB", "b1", 20), buy("c", "BBB", "b1", 20),
		// CCC: one buy only, ranks last.
		buy("a", "CCC", "c1", 1),
	})

	qualifying, ranked := Evaluate(stats, th)
	require.Len(t, qualifying, 2)
	require.Len(t, ranked, 3)

	assert.Equal(t, "BBB", ranked[0].Stats.Key.Symbol)
	assert.Equal(t, "AAA", ranked[1].Stats.Key.Symbol)
	assert.Equal(t, "CCC", ranked[2].Stats.Key.Symbol)

	assert.Equal(t, "BBB", qualifying[0].Stats.Key.Symbol)
	assert.Equal(t, "AAA", qualifying[1].Stats.Key.Symbol)
}

func TestEvaluateEmptyStats(t *testing.T) {
	qualifying, ranked := Evaluate(nil, Thresholds{})
	assert.Empty(t, qualifying)
	assert.Empty(t, ranked)
}
