// Package solana reads token metadata from a Solana DAS JSON-RPC provider (Helius).
package solana

import (
	"context"
	"net/url"
	"strings"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
)

// DefaultHeliusURL is the Helius mainnet RPC endpoint.
const DefaultHeliusURL = "https://mainnet.helius-rpc.com/"

// AssetSource resolves token metadata by mint address.
type AssetSource interface {
	// GetAsset returns nil, nil when the provider knows nothing about the address.
	GetAsset(ctx context.Context, address string) (*domain.AssetMetadata, error)
}

var _ AssetSource = (*HTTPClient)(nil)

// HeliusEndpoint appends the API key to a Helius base URL.
func HeliusEndpoint(baseURL, apiKey string) string {
	if baseURL == "" {
		baseURL = DefaultHeliusURL
	}
	if !strings.Contains(baseURL, "?") && !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	sep := "?"
	if strings.Contains(baseURL, "?") {
		sep = "&"
	}
	return baseURL + sep + "api-key=" + url.QueryEscape(apiKey)
}

// NewHeliusClient creates a client for the Helius getAsset API.
func NewHeliusClient(baseURL, apiKey string, opts ...ClientOption) *HTTPClient {
	return NewHTTPClient(HeliusEndpoint(baseURL, apiKey), opts...)
}
