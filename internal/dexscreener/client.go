// Package dexscreener is a client for the public DexScreener API:
// the latest token profiles feed and batched per-token pair stats.
package dexscreener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/governor"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/observability"
)

// Default configuration values.
const (
	DefaultBaseURL     = "https://api.dexscreener.com"
	DefaultTimeout     = 15 * time.Second
	DefaultMaxRetries  = 2
	DefaultRetryDelay  = 500 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
	DefaultBackoffMult = 2.0

	// MaxAddressesPerRequest is the upstream limit for the tokens endpoint.
	MaxAddressesPerRequest = 30
)

const metricSource = "dexscreener"

// UpstreamError reports a non-success answer from the API.
// StatusCode is zero when no HTTP response was received.
type UpstreamError struct {
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("dexscreener: status %d", e.StatusCode)
	}
	return fmt.Sprintf("dexscreener: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match domain.ErrUpstreamUnavailable.
func (e *UpstreamError) Is(target error) bool {
	return target == domain.ErrUpstreamUnavailable
}

// Client implements the DexScreener HTTP API.
type Client struct {
	baseURL     string
	client      *http.Client
	limiter     *governor.Limiter
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithLimiter paces every request through l.
func WithLimiter(l *governor.Limiter) ClientOption {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithMaxRetries sets maximum retry attempts for 429, 5xx and transport errors.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// NewClient creates a new DexScreener client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LatestProfiles fetches the latest token profiles across all chains.
// Any failure is an *UpstreamError.
func (c *Client) LatestProfiles(ctx context.Context) ([]Profile, error) {
	var profiles []Profile
	body, err := c.get(ctx, "/token-profiles/latest/v1")
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, &profiles); err != nil {
		return nil, &UpstreamError{Err: fmt.Errorf("decode profiles: %w", err)}
	}
	return profiles, nil
}

// Pairs fetches pair records for up to MaxAddressesPerRequest addresses on chainID.
func (c *Client) Pairs(ctx context.Context, chainID string, addresses []string) ([]Pair, error) {
	if len(addresses) == 0 {
		return nil, nil
	}
	if len(addresses) > MaxAddressesPerRequest {
		return nil, fmt.Errorf("too many addresses: %d > %d", len(addresses), MaxAddressesPerRequest)
	}

	body, err := c.get(ctx, "/tokens/v1/"+chainID+"/"+strings.Join(addresses, ","))
	if err != nil {
		return nil, err
	}
	pairs, err := decodePairs(body)
	if err != nil {
		return nil, fmt.Errorf("decode pairs: %w", err)
	}
	return pairs, nil
}

// FetchStats returns market stats keyed by base token address for one batch.
// The first pair seen for an address wins; upstream orders pairs by liquidity.
func (c *Client) FetchStats(ctx context.Context, chainID string, addresses []string) (map[string]domain.MarketStats, error) {
	pairs, err := c.Pairs(ctx, chainID, addresses)
	if err != nil {
		return nil, err
	}
	return StatsFromPairs(pairs), nil
}

// StatsFromPairs converts pairs into stats, keeping the first pair per base address.
func StatsFromPairs(pairs []Pair) map[string]domain.MarketStats {
	stats := make(map[string]domain.MarketStats, len(pairs))
	for _, p := range pairs {
		addr := p.BaseToken.Address
		if addr == "" {
			continue
		}
		if _, seen := stats[addr]; seen {
			continue
		}
		marketCap := p.MarketCap.positive()
		if marketCap == nil {
			marketCap = p.FDV.positive()
		}
		var created *int64
		if p.PairCreatedAt != nil && *p.PairCreatedAt > 0 {
			v := *p.PairCreatedAt
			created = &v
		}
		stats[addr] = domain.MarketStats{
			PriceUSD:      p.PriceUSD.positive(),
			MarketCap:     marketCap,
			Volume24h:     p.Volume.H24.positive(),
			LiquidityUSD:  p.Liquidity.USD.positive(),
			PairCreatedAt: created,
			VenueID:       p.DexID,
			DisplayName:   p.BaseToken.Name,
			DisplaySymbol: p.BaseToken.Symbol,
		}
	}
	return stats
}

// get performs a GET with retries and exponential backoff.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, retry, err := c.do(ctx, path)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry {
			break
		}
	}

	return nil, lastErr
}

// do issues one request. retry reports whether the failure is transient.
func (c *Client) do(ctx context.Context, path string) (body []byte, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, false, &UpstreamError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		observability.RecordUpstreamRequest(metricSource, "network_error", time.Since(start).Seconds())
		return nil, ctx.Err() == nil, &UpstreamError{Err: fmt.Errorf("http request: %w", err)}
	}
	defer resp.Body.Close()

	observability.RecordUpstreamRequest(metricSource, fmt.Sprintf("%d", resp.StatusCode), time.Since(start).Seconds())

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, &UpstreamError{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		transient := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, transient, &UpstreamError{
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(string(body))),
		}
	}
	return body, false, nil
}
