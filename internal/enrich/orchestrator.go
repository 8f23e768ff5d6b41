package enrich

import (
	"context"
	"log/slog"
	"sync"

	"github.com/trenchwatch/engine/internal/domain"
)

// Fetcher is the source-fetch surface the orchestrator coordinates. *Client
// is the production implementation.
type Fetcher interface {
	FetchTokenInfo(ctx context.Context, contract string) (*domain.TokenInfo, error)
	FetchMarketData(ctx context.Context, contract string) (*domain.MarketData, error)
	FetchDeployerHistory(ctx context.Context, deployer string) (*domain.DeployerHistory, error)
	FetchHolderCount(ctx context.Context, contract string) (*int, error)
}

// Orchestrator issues the enrichment fetches for one qualifying token. The
// holder-count fetch runs independently; the market and deployer-history
// fetches run only after the primary token-info fetch succeeds and names a
// deployer. The call returns once every outstanding fetch has completed or
// failed; each fetch's own timeout bounds total latency.
type Orchestrator struct {
	client Fetcher
	logger *slog.Logger
}

// NewOrchestrator creates an Orchestrator over the given fetcher.
func NewOrchestrator(client Fetcher, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		client: client,
		logger: logger.With(slog.String("component", "enrich")),
	}
}

// Enrich fetches and merges whatever the sources return for the contract. It
// never fails: a source error simply leaves that source's contribution nil.
func (o *Orchestrator) Enrich(ctx context.Context, contract string) domain.Enrichment {
	var enr domain.Enrichment
	var wg sync.WaitGroup

	// Holder count does not depend on the primary fetch.
	wg.Add(1)
	go func() {
		defer wg.Done()
		count, err := o.client.FetchHolderCount(ctx, contract)
		if err != nil {
			o.logger.Warn("holder count unavailable",
				slog.String("contract", contract),
				slog.String("error", err.Error()),
			)
			return
		}
		enr.HolderCount = count
	}()

	// Primary fetch, then the two dependent fetches concurrently.
	wg.Add(1)
	go func() {
		defer wg.Done()

		info, err := o.client.FetchTokenInfo(ctx, contract)
		if err != nil {
			o.logger.Warn("token info unavailable",
				slog.String("contract", contract),
				slog.String("error", err.Error()),
			)
			return
		}
		enr.Info = info

		if info.Deployer == "" {
			return
		}

		var inner sync.WaitGroup
		inner.Add(2)

		go func() {
			defer inner.Done()
			market, err := o.client.FetchMarketData(ctx, contract)
			if err != nil {
				o.logger.Warn("market data unavailable",
					slog.String("contract", contract),
					slog.String("error", err.Error()),
				)
				return
			}
			enr.Market = market
		}()

		go func() {
			defer inner.Done()
			hist, err := o.client.FetchDeployerHistory(ctx, info.Deployer)
			if err != nil {
				o.logger.Warn("deployer history unavailable",
					slog.String("deployer", info.Deployer),
					slog.String("error", err.Error()),
				)
				return
			}
			enr.Deployer = hist
		}()

		inner.Wait()
	}()

	wg.Wait()
	return enr
}
