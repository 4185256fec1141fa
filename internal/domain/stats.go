package domain

// MarketStats is the market snapshot for a single trading pair.
// Every field is optional: upstream omits values freely.
type MarketStats struct {
	PriceUSD      *float64
	MarketCap     *float64 // falls back to fully diluted valuation
	Volume24h     *float64
	LiquidityUSD  *float64
	PairCreatedAt *int64 // Unix timestamp in milliseconds
	VenueID       string // identifier of the trading venue
	DisplayName   string
	DisplaySymbol string
}

// TokenStats is the persisted subset of MarketStats.
type TokenStats struct {
	PriceUSD     *float64 `json:"price_usd,omitempty"`
	MarketCap    *float64 `json:"market_cap,omitempty"`
	Volume24h    *float64 `json:"volume_24h,omitempty"`
	LiquidityUSD *float64 `json:"liquidity_usd,omitempty"`
}

// TokenStats extracts the persisted subset.
func (s *MarketStats) TokenStats() TokenStats {
	if s == nil {
		return TokenStats{}
	}
	return TokenStats{
		PriceUSD:     s.PriceUSD,
		MarketCap:    s.MarketCap,
		Volume24h:    s.Volume24h,
		LiquidityUSD: s.LiquidityUSD,
	}
}

// StatsSnapshot is one point of market-stats history for a token.
type StatsSnapshot struct {
	CA           string
	TimestampMs  int64
	PriceUSD     *float64
	MarketCap    *float64
	Volume24h    *float64
	LiquidityUSD *float64
	VenueID      string
}
