package reporting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/storage"
)

// Generator collects tokens for an export.
type Generator struct {
	store storage.TokenStore
	now   func() time.Time
}

// NewGenerator creates a new export generator.
func NewGenerator(store storage.TokenStore) *Generator {
	return &Generator{store: store, now: time.Now}
}

// WithClock sets a custom clock for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate loads every token with the given status, newest first.
// A non-empty query keeps only tokens whose name, ticker or ca contains it (case-insensitive).
func (g *Generator) Generate(ctx context.Context, status domain.Status, query string) (*Export, error) {
	if !status.IsValid() {
		return nil, storage.ErrInvalidInput
	}

	var tokens []*domain.Token
	for offset := 0; ; {
		page, total, err := g.store.List(ctx, storage.ListFilter{
			Status: &status,
			SortBy: storage.SortCreatedAt,
			Limit:  storage.MaxListLimit,
			Offset: offset,
		})
		if err != nil {
			return nil, fmt.Errorf("list %s tokens: %w", status, err)
		}
		tokens = append(tokens, page...)
		offset += len(page)
		if len(page) == 0 || offset >= total {
			break
		}
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q != "" {
		filtered := tokens[:0]
		for _, t := range tokens {
			if matches(t, q) {
				filtered = append(filtered, t)
			}
		}
		tokens = filtered
	}

	return &Export{GeneratedAt: g.now(), Status: status, Tokens: tokens}, nil
}

func matches(t *domain.Token, q string) bool {
	return strings.Contains(strings.ToLower(t.Name), q) ||
		strings.Contains(strings.ToLower(t.Ticker), q) ||
		strings.Contains(strings.ToLower(t.CA), q)
}
