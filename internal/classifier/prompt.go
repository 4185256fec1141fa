package classifier

import (
	"fmt"
	"strings"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
)

// Prompt templates. %s receives the output of BuildContext.
const (
	quickPrompt = "Is this a MEME coin or does it have real UTILITY? Analyze:\n\n%s\n\n" +
		"Reply with JSON only:\n" +
		`{"classification":"utility" or "meme","confidence":0-100,"reasoning":"1 sentence"}`

	detailedPrompt = "Analyze this Solana token and determine if it's a UTILITY token or a MEME coin.\n\n%s\n\n" +
		"Respond with a JSON object containing:\n" +
		`- "classification": either "utility" or "meme"` + "\n" +
		`- "confidence": a number from 0-100 indicating your confidence` + "\n" +
		`- "reasoning": a brief 1-2 sentence explanation` + "\n" +
		`- "redFlags": an array of any concerning patterns (empty array if none)` + "\n" +
		`- "utilityScore": a number from 0-100 (100 = pure utility, 0 = pure meme)` + "\n\n" +
		"Only respond with the JSON object, no other text."
)

// BuildContext renders the token facts sent to the oracle, one per line.
// The output depends only on the token.
func BuildContext(t *domain.Token) string {
	var parts []string

	parts = append(parts, "Token Name: "+orUnknown(t.Name))
	parts = append(parts, "Ticker: "+orUnknown(t.Ticker))

	if t.Description != "" {
		parts = append(parts, "Description: "+t.Description)
	}

	if len(t.Links) > 0 {
		types := make([]string, len(t.Links))
		for i, l := range t.Links {
			types[i] = l.Type
		}
		parts = append(parts, "Social Links: "+strings.Join(types, ", "))

		for _, l := range t.Links {
			if l.Type == domain.LinkTypeWebsite {
				parts = append(parts, "Website: "+l.URL)
				break
			}
		}
	}

	if v := t.Stats.MarketCap; v != nil && *v != 0 {
		parts = append(parts, "Market Cap: $"+FormatNumber(*v))
	}
	if v := t.Stats.LiquidityUSD; v != nil && *v != 0 {
		parts = append(parts, "Liquidity: $"+FormatNumber(*v))
	}
	if v := t.Stats.Volume24h; v != nil && *v != 0 {
		parts = append(parts, "24h Volume: $"+FormatNumber(*v))
	}

	return strings.Join(parts, "\n")
}

// FormatNumber renders n with two decimals and an M or K suffix at or above one million or one thousand.
func FormatNumber(n float64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.2fM", n/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.2fK", n/1_000)
	default:
		return fmt.Sprintf("%.2f", n)
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
