package solana

import (
	"context"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
)

// publicKeyLen is the decoded length of a Solana public key.
const publicKeyLen = 32

// IsValidAddress reports whether address is a base58-encoded 32-byte public key.
func IsValidAddress(address string) bool {
	if address == "" {
		return false
	}
	decoded, err := base58.Decode(address)
	if err != nil {
		return false
	}
	return len(decoded) == publicKeyLen
}

// GetAsset retrieves DAS metadata for a mint. Invalid addresses and unknown
// assets yield nil without an error.
func (c *HTTPClient) GetAsset(ctx context.Context, address string) (*domain.AssetMetadata, error) {
	if !IsValidAddress(address) {
		return nil, nil
	}

	params := map[string]interface{}{"id": address}

	var result *getAssetResult
	if err := c.call(ctx, "getAsset", params, &result); err != nil {
		return nil, fmt.Errorf("getAsset %s: %w", address, err)
	}
	if result == nil || result.Content == nil {
		return nil, nil
	}

	content := result.Content
	meta := &domain.AssetMetadata{}
	if content.Metadata != nil {
		meta.Name = content.Metadata.Name
		meta.Symbol = content.Metadata.Symbol
		meta.Description = content.Metadata.Description
	}
	if content.Links != nil {
		meta.ImageURL = content.Links.Image
		meta.ExternalURL = content.Links.ExternalURL
	}
	if meta.ImageURL == "" && len(content.Files) > 0 {
		meta.ImageURL = content.Files[0].URI
	}

	if meta.IsEmpty() {
		return nil, nil
	}
	return meta, nil
}

// getAssetResult is the raw RPC response for getAsset.
type getAssetResult struct {
	ID      string           `json:"id"`
	Content *getAssetContent `json:"content"`
}

type getAssetContent struct {
	Metadata *getAssetMetadata `json:"metadata"`
	Links    *getAssetLinks    `json:"links"`
	Files    []getAssetFile    `json:"files"`
}

type getAssetMetadata struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
}

type getAssetLinks struct {
	Image       string `json:"image"`
	ExternalURL string `json:"external_url"`
}

type getAssetFile struct {
	URI  string `json:"uri"`
	Mime string `json:"mime"`
}
