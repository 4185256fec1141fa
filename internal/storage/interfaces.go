package storage

import (
	"context"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
)

// TokenStore provides access to tokens storage.
type TokenStore interface {
	// InsertBatch adds new tokens in a single round trip and returns how many were written.
	// Tokens whose ca already exists are left untouched.
	InsertBatch(ctx context.Context, tokens []*domain.Token) (int, error)

	// ExistingAddresses returns the subset of cas already stored, in one query.
	ExistingAddresses(ctx context.Context, cas []string) (map[string]struct{}, error)

	// Get retrieves a token by ca. Returns ErrNotFound if not exists.
	Get(ctx context.Context, ca string) (*domain.Token, error)

	// List returns one page of tokens matching the filter and the total match count.
	List(ctx context.Context, filter ListFilter) ([]*domain.Token, int, error)

	// ListByStatus returns up to limit tokens with the given status, oldest first.
	ListByStatus(ctx context.Context, status domain.Status, limit int) ([]*domain.Token, error)

	// UpdateDisposition moves a token out of status new and stores the analysis.
	// Returns the number of rows affected; zero means the token is gone or already terminal.
	UpdateDisposition(ctx context.Context, ca string, status domain.Status, analysis domain.ClassificationResult, analyzedAt int64) (int64, error)

	// UpdateStatus sets the status from an operator command.
	// Returns ErrNotFound if the token does not exist and ErrInvalidTransition
	// when asked to move a terminal token back to new.
	UpdateStatus(ctx context.Context, ca string, status domain.Status) error

	// UpdateMarketData refreshes stats, venue and pair creation time for a token.
	// Returns the number of rows affected.
	UpdateMarketData(ctx context.Context, ca string, update MarketDataUpdate) (int64, error)
}

// StatsSnapshotStore provides access to market-stats history.
type StatsSnapshotStore interface {
	// InsertBulk appends snapshots.
	InsertBulk(ctx context.Context, snapshots []*domain.StatsSnapshot) error

	// GetByCA retrieves the history for a token, ordered by timestamp ASC.
	GetByCA(ctx context.Context, ca string) ([]*domain.StatsSnapshot, error)

	// GetByTimeRange retrieves snapshots for a token within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, ca string, start, end int64) ([]*domain.StatsSnapshot, error)
}

// MarketDataUpdate carries fields rewritten by a stats refresh.
// Empty VenueID and nil PairCreatedAt keep the stored values.
type MarketDataUpdate struct {
	Stats         domain.TokenStats
	VenueID       string
	PairCreatedAt *int64
}
