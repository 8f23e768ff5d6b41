// Package enrich queries the independent token data sources and merges
// whatever succeeds into one enrichment result. Every source is optional: an
// error, timeout, or unexpected shape omits that source's fields and never
// aborts the alert.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/trenchwatch/engine/internal/domain"
)

// Endpoints holds the four enrichment source URLs. An empty URL disables that
// source.
type Endpoints struct {
	TokenInfoURL       string
	MarketDataURL      string
	DeployerHistoryURL string
	HoldersURL         string
}

// Client fetches enrichment payloads over HTTP. The client timeout bounds
// each individual fetch; there is no retry at this layer.
type Client struct {
	endpoints  Endpoints
	httpClient *http.Client
}

// NewClient creates a Client with the given endpoints and per-fetch timeout.
func NewClient(endpoints Endpoints, timeout time.Duration) *Client {
	return &Client{
		endpoints: endpoints,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// tokenInfoResponse is the wire shape of the primary source. All fields are
// absent-capable.
type tokenInfoResponse struct {
	Narrative    string   `json:"narrative"`
	Website      string   `json:"website"`
	Twitter      string   `json:"twitter"`
	TwitterViews *int64   `json:"twitter_views"`
	TwitterLikes *int64   `json:"twitter_likes"`
	Deployer     string   `json:"deployer"`
	CreatedAt    *int64   `json:"created_at"` // unix seconds
	MarketCapUSD *float64 `json:"market_cap_usd"`
}

// marketDataResponse is the wire shape of the market/volume source.
type marketDataResponse struct {
	Volume1m  *float64 `json:"volume_1m_usd"`
	Volume5m  *float64 `json:"volume_5m_usd"`
	Volume1h  *float64 `json:"volume_1h_usd"`
	Liquidity *float64 `json:"liquidity_usd"`
}

// deployerHistoryResponse is the wire shape of the deployer-record source.
type deployerHistoryResponse struct {
	TokensCreated *int     `json:"tokens_created"`
	Rugged        *int     `json:"rugged"`
	BestMCapUSD   *float64 `json:"best_mcap_usd"`
}

// holdersResponse is the wire shape of the holder-count source.
type holdersResponse struct {
	HolderCount *int `json:"holder_count"`
}

// FetchTokenInfo queries the primary source for narrative, social, and
// deployer metadata.
func (c *Client) FetchTokenInfo(ctx context.Context, contract string) (*domain.TokenInfo, error) {
	var resp tokenInfoResponse
	if err := c.get(ctx, c.endpoints.TokenInfoURL, contract, &resp); err != nil {
		return nil, fmt.Errorf("enrich: token info %s: %w", contract, err)
	}

	info := &domain.TokenInfo{
		Narrative:    resp.Narrative,
		Website:      resp.Website,
		TwitterURL:   resp.Twitter,
		Deployer:     resp.Deployer,
		MarketCapUSD: resp.MarketCapUSD,
	}
	if resp.TwitterViews != nil {
		info.TwitterViews = *resp.TwitterViews
	}
	if resp.TwitterLikes != nil {
		info.TwitterLikes = *resp.TwitterLikes
	}
	if resp.CreatedAt != nil {
		t := time.Unix(*resp.CreatedAt, 0).UTC()
		info.CreatedAt = &t
	}
	return info, nil
}

// FetchMarketData queries the market/volume source.
func (c *Client) FetchMarketData(ctx context.Context, contract string) (*domain.MarketData, error) {
	var resp marketDataResponse
	if err := c.get(ctx, c.endpoints.MarketDataURL, contract, &resp); err != nil {
		return nil, fmt.Errorf("enrich: market data %s: %w", contract, err)
	}
	return &domain.MarketData{
		Volume1mUSD:  resp.Volume1m,
		Volume5mUSD:  resp.Volume5m,
		Volume1hUSD:  resp.Volume1h,
		LiquidityUSD: resp.Liquidity,
	}, nil
}

// FetchDeployerHistory queries the deployer's historical token-launch record.
func (c *Client) FetchDeployerHistory(ctx context.Context, deployer string) (*domain.DeployerHistory, error) {
	var resp deployerHistoryResponse
	if err := c.get(ctx, c.endpoints.DeployerHistoryURL, deployer, &resp); err != nil {
		return nil, fmt.Errorf("enrich: deployer history %s: %w", deployer, err)
	}

	hist := &domain.DeployerHistory{BestMCapUSD: resp.BestMCapUSD}
	if resp.TokensCreated != nil {
		hist.TokensCreated = *resp.TokensCreated
	}
	if resp.Rugged != nil {
		hist.Rugged = *resp.Rugged
	}
	return hist, nil
}

// FetchHolderCount queries the holder-count source.
func (c *Client) FetchHolderCount(ctx context.Context, contract string) (*int, error) {
	var resp holdersResponse
	if err := c.get(ctx, c.endpoints.HoldersURL, contract, &resp); err != nil {
		return nil, fmt.Errorf("enrich: holders %s: %w", contract, err)
	}
	if resp.HolderCount == nil {
		return nil, fmt.Errorf("enrich: holders %s: count missing from response", contract)
	}
	return resp.HolderCount, nil
}

// get issues one GET with the address appended as a query parameter and
// decodes the JSON body into out.
func (c *Client) get(ctx context.Context, baseURL, address string, out any) error {
	if baseURL == "" {
		return fmt.Errorf("source not configured")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	q.Set("address", address)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
