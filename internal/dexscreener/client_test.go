package dexscreener

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
)

func TestClient_LatestProfiles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token-profiles/latest/v1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"chainId":"solana","tokenAddress":"AAApump","description":"hello","links":[{"type":"twitter","url":"https://x.com/a"}]},
			{"chainId":"base","tokenAddress":"0xabc"}
		]`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	profiles, err := client.LatestProfiles(context.Background())
	if err != nil {
		t.Fatalf("LatestProfiles: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(profiles))
	}
	if profiles[0].TokenAddress != "AAApump" {
		t.Errorf("expected AAApump, got %s", profiles[0].TokenAddress)
	}
	if len(profiles[0].Links) == 0 {
		t.Error("expected raw links to be kept")
	}
}

func TestClient_LatestProfiles_UpstreamError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithMaxRetries(1), WithRetryDelay(time.Millisecond))
	_, err := client.LatestProfiles(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
	}
	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected *UpstreamError, got %T", err)
	}
	if upErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", upErr.StatusCode)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestClient_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithMaxRetries(3), WithRetryDelay(time.Millisecond))
	if _, err := client.LatestProfiles(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 attempt, got %d", calls.Load())
	}
}

func TestClient_FetchStats_BareArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/tokens/v1/solana/") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if !strings.HasSuffix(r.URL.Path, "A1,B2") {
			t.Errorf("expected comma-joined addresses, got %s", r.URL.Path)
		}
		w.Write([]byte(`[
			{"dexId":"pumpfun","baseToken":{"address":"A1","name":"Alpha","symbol":"ALP"},
			 "priceUsd":"0.0012","marketCap":0,"fdv":150000,"volume":{"h24":2500},
			 "liquidity":{"usd":1200.5},"pairCreatedAt":1700000000000},
			{"dexId":"raydium","baseToken":{"address":"A1","name":"Second","symbol":"SEC"},"priceUsd":"9"}
		]`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	stats, err := client.FetchStats(context.Background(), "solana", []string{"A1", "B2"})
	if err != nil {
		t.Fatalf("FetchStats: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(stats))
	}
	s := stats["A1"]
	if s.VenueID != "pumpfun" || s.DisplayName != "Alpha" || s.DisplaySymbol != "ALP" {
		t.Errorf("first pair should win, got %+v", s)
	}
	if s.PriceUSD == nil || *s.PriceUSD != 0.0012 {
		t.Errorf("expected price 0.0012, got %v", s.PriceUSD)
	}
	if s.MarketCap == nil || *s.MarketCap != 150000 {
		t.Errorf("expected market cap to fall back to fdv, got %v", s.MarketCap)
	}
	if s.LiquidityUSD == nil || *s.LiquidityUSD != 1200.5 {
		t.Errorf("expected liquidity 1200.5, got %v", s.LiquidityUSD)
	}
	if s.PairCreatedAt == nil || *s.PairCreatedAt != 1700000000000 {
		t.Errorf("expected pair created at, got %v", s.PairCreatedAt)
	}
}

func TestClient_FetchStats_Envelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pairs":[{"dexId":"bags","baseToken":{"address":"Cbags"},"priceUsd":0.5}]}`))
	}))
	defer server.Close()

	stats, err := NewClient(server.URL).FetchStats(context.Background(), "solana", []string{"Cbags"})
	if err != nil {
		t.Fatalf("FetchStats: %v", err)
	}
	s, ok := stats["Cbags"]
	if !ok {
		t.Fatal("expected entry for Cbags")
	}
	if s.PriceUSD == nil || *s.PriceUSD != 0.5 {
		t.Errorf("expected numeric price 0.5, got %v", s.PriceUSD)
	}
	if s.MarketCap != nil {
		t.Errorf("expected nil market cap, got %v", *s.MarketCap)
	}
}

func TestClient_Pairs_TooManyAddresses(t *testing.T) {
	addrs := make([]string, MaxAddressesPerRequest+1)
	if _, err := NewClient("http://127.0.0.1:0").Pairs(context.Background(), "solana", addrs); err == nil {
		t.Fatal("expected error for oversized batch")
	}
}

func TestNumber_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want *float64
	}{
		{`"1.5"`, ptr(1.5)},
		{`2`, ptr(2)},
		{`null`, nil},
		{`""`, nil},
		{`"abc"`, nil},
	}
	for _, tt := range tests {
		var n Number
		if err := n.UnmarshalJSON([]byte(tt.in)); err != nil {
			t.Errorf("UnmarshalJSON(%s): %v", tt.in, err)
			continue
		}
		switch {
		case tt.want == nil && n.Value != nil:
			t.Errorf("UnmarshalJSON(%s) = %v, want nil", tt.in, *n.Value)
		case tt.want != nil && (n.Value == nil || *n.Value != *tt.want):
			t.Errorf("UnmarshalJSON(%s) = %v, want %v", tt.in, n.Value, *tt.want)
		}
	}
}

func ptr(f float64) *float64 { return &f }
