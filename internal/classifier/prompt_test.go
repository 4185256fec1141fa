package classifier

import (
	"strings"
	"testing"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
)

func fptr(v float64) *float64 { return &v }

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1500000, "1.50M"},
		{2500, "2.50K"},
		{42, "42.00"},
		{999.999, "1000.00"},
		{1000, "1.00K"},
		{0, "0.00"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.in); got != tt.want {
			t.Errorf("FormatNumber(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildContext_Full(t *testing.T) {
	tok := &domain.Token{
		Name:        "Solar Grid",
		Ticker:      "SGRID",
		Description: "Decentralised energy market",
		Links: []domain.Link{
			{Type: "twitter", URL: "https://x.com/sgrid"},
			{Type: "website", URL: "https://sgrid.io"},
			{Type: "website", URL: "https://docs.sgrid.io"},
		},
		Stats: domain.TokenStats{
			MarketCap:    fptr(1500000),
			LiquidityUSD: fptr(2500),
			Volume24h:    fptr(42),
		},
	}

	want := strings.Join([]string{
		"Token Name: Solar Grid",
		"Ticker: SGRID",
		"Description: Decentralised energy market",
		"Social Links: twitter, website, website",
		"Website: https://sgrid.io",
		"Market Cap: $1.50M",
		"Liquidity: $2.50K",
		"24h Volume: $42.00",
	}, "\n")

	if got := BuildContext(tok); got != want {
		t.Errorf("BuildContext mismatch:\n got %q\nwant %q", got, want)
	}
	if BuildContext(tok) != BuildContext(tok.Clone()) {
		t.Error("BuildContext must be deterministic")
	}
}

func TestBuildContext_Minimal(t *testing.T) {
	tok := &domain.Token{
		Links: []domain.Link{{Type: "telegram", URL: "https://t.me/x"}},
		Stats: domain.TokenStats{MarketCap: fptr(0)},
	}
	want := "Token Name: Unknown\nTicker: Unknown\nSocial Links: telegram"
	if got := BuildContext(tok); got != want {
		t.Errorf("BuildContext = %q, want %q", got, want)
	}
}
