package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

const tokenColumns = `
	ca, name, ticker, description, image_url, links, venue_id, pair_created_at, status,
	price_usd, market_cap, volume_24h, liquidity_usd, analysis, analyzed_at, created_at, updated_at
`

// sortColumns maps accepted sort keys to SQL. Only whitelisted values reach the query text.
var sortColumns = map[string]string{
	storage.SortCreatedAt:     "created_at",
	storage.SortPairCreatedAt: "pair_created_at",
	storage.SortName:          "name",
	storage.SortTicker:        "ticker",
}

// InsertBatch adds new tokens in a single round trip. Existing cas are left untouched.
func (s *TokenStore) InsertBatch(ctx context.Context, tokens []*domain.Token) (n int, err error) {
	if len(tokens) == 0 {
		return 0, nil
	}
	start := time.Now()
	defer func() { observe("insert_tokens", start, err) }()

	query := `
		INSERT INTO tokens (
			ca, name, ticker, description, image_url, links, venue_id, pair_created_at, status,
			price_usd, market_cap, volume_24h, liquidity_usd, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
		ON CONFLICT (ca) DO NOTHING
	`

	nowMs := time.Now().UnixMilli()
	batch := &pgx.Batch{}
	for _, t := range tokens {
		if t == nil || t.CA == "" || !t.Status.IsValid() {
			return 0, storage.ErrInvalidInput
		}
		links, err := marshalLinks(t.Links)
		if err != nil {
			return 0, err
		}
		createdAt := t.CreatedAt
		if createdAt == 0 {
			createdAt = nowMs
		}
		batch.Queue(query,
			t.CA, t.Name, t.Ticker, t.Description, t.ImageURL, links, t.VenueID, t.PairCreatedAt,
			string(t.Status),
			t.Stats.PriceUSD, t.Stats.MarketCap, t.Stats.Volume24h, t.Stats.LiquidityUSD,
			createdAt,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for _, t := range tokens {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("insert token %s: %w", t.CA, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// ExistingAddresses returns the subset of cas already stored, in one query.
func (s *TokenStore) ExistingAddresses(ctx context.Context, cas []string) (known map[string]struct{}, err error) {
	known = make(map[string]struct{})
	if len(cas) == 0 {
		return known, nil
	}
	start := time.Now()
	defer func() { observe("existing_addresses", start, err) }()

	rows, err := s.pool.Query(ctx, `SELECT ca FROM tokens WHERE ca = ANY($1)`, cas)
	if err != nil {
		return nil, fmt.Errorf("query existing addresses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ca string
		if err := rows.Scan(&ca); err != nil {
			return nil, fmt.Errorf("scan address row: %w", err)
		}
		known[ca] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate address rows: %w", err)
	}
	return known, nil
}

// Get retrieves a token by ca. Returns ErrNotFound if not exists.
func (s *TokenStore) Get(ctx context.Context, ca string) (*domain.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE ca = $1`

	t, err := scanToken(s.pool.QueryRow(ctx, query, ca))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by ca: %w", err)
	}
	return t, nil
}

// List returns one page of tokens matching the filter and the total match count.
func (s *TokenStore) List(ctx context.Context, filter storage.ListFilter) (page []*domain.Token, total int, err error) {
	if err := filter.Normalize(); err != nil {
		return nil, 0, err
	}
	start := time.Now()
	defer func() { observe("list_tokens", start, err) }()

	where := ""
	var args []interface{}
	if filter.Status != nil {
		where = "WHERE status = $1"
		args = append(args, string(*filter.Status))
	}

	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM tokens `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tokens: %w", err)
	}

	direction := "DESC"
	if filter.Ascending {
		direction = "ASC"
	}
	query := fmt.Sprintf(`SELECT %s FROM tokens %s ORDER BY %s %s NULLS LAST, ca %s LIMIT $%d OFFSET $%d`,
		tokenColumns, where, sortColumns[filter.SortBy], direction, direction, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	page, err = scanTokens(rows)
	if err != nil {
		return nil, 0, err
	}
	if page == nil {
		page = []*domain.Token{}
	}
	return page, total, nil
}

// ListByStatus returns up to limit tokens with the given status, oldest first.
func (s *TokenStore) ListByStatus(ctx context.Context, status domain.Status, limit int) ([]*domain.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE status = $1 ORDER BY created_at ASC, ca ASC`
	args := []interface{}{string(status)}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tokens by status: %w", err)
	}
	defer rows.Close()

	return scanTokens(rows)
}

// UpdateDisposition moves a token out of status new and stores the analysis.
// The status guard makes the write idempotent: a terminal token is never rewritten.
func (s *TokenStore) UpdateDisposition(ctx context.Context, ca string, status domain.Status, analysis domain.ClassificationResult, analyzedAt int64) (rows int64, err error) {
	if !status.IsTerminal() {
		return 0, storage.ErrInvalidTransition
	}
	start := time.Now()
	defer func() { observe("update_disposition", start, err) }()

	payload, err := json.Marshal(analysis)
	if err != nil {
		return 0, fmt.Errorf("marshal analysis: %w", err)
	}

	query := `
		UPDATE tokens
		SET status = $2, analysis = $3, analyzed_at = $4, updated_at = $5
		WHERE ca = $1 AND status = 'new'
	`
	tag, err := s.pool.Exec(ctx, query, ca, string(status), payload, analyzedAt, time.Now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("update disposition: %w", err)
	}
	return tag.RowsAffected(), nil
}

// UpdateStatus sets the status from an operator command.
func (s *TokenStore) UpdateStatus(ctx context.Context, ca string, status domain.Status) error {
	if !status.IsValid() {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE tokens SET status = $2, updated_at = $3
		WHERE ca = $1 AND ($2 <> 'new' OR status = 'new')
	`
	tag, err := s.pool.Exec(ctx, query, ca, string(status), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Nothing changed: tell a missing row apart from a refused transition
	if _, err := s.Get(ctx, ca); err != nil {
		return err
	}
	return storage.ErrInvalidTransition
}

// UpdateMarketData refreshes stats, venue and pair creation time for a token.
func (s *TokenStore) UpdateMarketData(ctx context.Context, ca string, update storage.MarketDataUpdate) (int64, error) {
	query := `
		UPDATE tokens
		SET price_usd = $2, market_cap = $3, volume_24h = $4, liquidity_usd = $5,
		    venue_id = COALESCE(NULLIF($6, ''), venue_id),
		    pair_created_at = COALESCE($7, pair_created_at),
		    updated_at = $8
		WHERE ca = $1
	`
	tag, err := s.pool.Exec(ctx, query, ca,
		update.Stats.PriceUSD, update.Stats.MarketCap, update.Stats.Volume24h, update.Stats.LiquidityUSD,
		update.VenueID, update.PairCreatedAt, time.Now().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("update market data: %w", err)
	}
	return tag.RowsAffected(), nil
}

// scanToken scans a single row into a Token.
func scanToken(row pgx.Row) (*domain.Token, error) {
	var t domain.Token
	var status string
	var links, analysis []byte

	err := row.Scan(
		&t.CA, &t.Name, &t.Ticker, &t.Description, &t.ImageURL, &links, &t.VenueID, &t.PairCreatedAt, &status,
		&t.Stats.PriceUSD, &t.Stats.MarketCap, &t.Stats.Volume24h, &t.Stats.LiquidityUSD,
		&analysis, &t.AnalyzedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Status = domain.Status(status)
	if err := decodeJSONColumns(&t, links, analysis); err != nil {
		return nil, err
	}
	return &t, nil
}

// scanTokens scans multiple rows into a slice of Token.
func scanTokens(rows pgx.Rows) ([]*domain.Token, error) {
	var tokens []*domain.Token

	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token row: %w", err)
		}
		tokens = append(tokens, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token rows: %w", err)
	}

	return tokens, nil
}

func marshalLinks(links []domain.Link) ([]byte, error) {
	if links == nil {
		links = []domain.Link{}
	}
	data, err := json.Marshal(links)
	if err != nil {
		return nil, fmt.Errorf("marshal links: %w", err)
	}
	return data, nil
}

func decodeJSONColumns(t *domain.Token, links, analysis []byte) error {
	if len(links) > 0 {
		if err := json.Unmarshal(links, &t.Links); err != nil {
			return fmt.Errorf("decode links for %s: %w", t.CA, err)
		}
	}
	if len(analysis) > 0 {
		var a domain.ClassificationResult
		if err := json.Unmarshal(analysis, &a); err != nil {
			return fmt.Errorf("decode analysis for %s: %w", t.CA, err)
		}
		t.Analysis = &a
	}
	return nil
}
