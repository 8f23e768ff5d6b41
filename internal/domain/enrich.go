package domain

import "time"

// TokenInfo is the primary enrichment payload: narrative, social reach, and
// deployer metadata for a token. Every field is optional; absence of a field
// is a normal value, not an error.
type TokenInfo struct {
	Narrative    string
	Website      string
	TwitterURL   string
	TwitterViews int64
	TwitterLikes int64
	Deployer     string
	CreatedAt    *time.Time
	MarketCapUSD *float64
}

// MarketData carries volume-by-window figures for a token.
type MarketData struct {
	Volume1mUSD  *float64
	Volume5mUSD  *float64
	Volume1hUSD  *float64
	LiquidityUSD *float64
}

// DeployerHistory summarises the deployer's past token launches.
type DeployerHistory struct {
	TokensCreated int
	Rugged        int
	BestMCapUSD   *float64
}

// Enrichment merges whatever the enrichment sources returned for one token.
// A nil sub-struct means that source errored, timed out, or was skipped; the
// composer renders only the sections that are present.
type Enrichment struct {
	Info        *TokenInfo
	Market      *MarketData
	Deployer    *DeployerHistory
	HolderCount *int
}
