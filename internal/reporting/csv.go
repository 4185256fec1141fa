package reporting

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/venue"
)

var csvHeader = []string{
	"ca", "name", "ticker", "venue", "market_cap", "volume_24h",
	"classification", "confidence", "websites", "x_links",
}

// RenderCSV renders one row per token, in export order.
func RenderCSV(e *Export) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return "", err
	}
	for _, t := range e.Tokens {
		websites, xLinks, _ := splitLinks(t.Links)
		var class, confidence string
		if t.Analysis != nil {
			class = string(t.Analysis.Classification)
			confidence = strconv.Itoa(t.Analysis.Confidence)
		}
		row := []string{
			t.CA,
			t.Name,
			t.Ticker,
			venue.Family(t),
			formatOptional(t.Stats.MarketCap),
			formatOptional(t.Stats.Volume24h),
			class,
			confidence,
			joinURLs(websites),
			joinURLs(xLinks),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func joinURLs(links []domain.Link) string {
	urls := make([]string, len(links))
	for i, l := range links {
		urls[i] = l.URL
	}
	return strings.Join(urls, " ")
}
