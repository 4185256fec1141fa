package domain

// Sentinel values used when no source provides a name or ticker.
const (
	UnknownName   = "Unknown"
	UnknownTicker = "UNKNOWN"
)

// Token is the persisted record for a discovered asset.
// Corresponds to the tokens table in PostgreSQL.
type Token struct {
	CA            string                // PRIMARY KEY, contract address
	Name          string                // display name or UnknownName
	Ticker        string                // symbol or UnknownTicker
	Description   string                // free text (may be empty)
	ImageURL      string                // may be empty
	Links         []Link                // normalized links
	VenueID       string                // trading venue identifier (may be empty)
	PairCreatedAt *int64                // pair creation time in ms (nullable)
	Status        Status                // new | kept | deleted
	Stats         TokenStats            // latest market snapshot
	Analysis      *ClassificationResult // last classification (nullable)
	AnalyzedAt    *int64                // when Analysis was written (ms, nullable)
	CreatedAt     int64                 // record creation timestamp (ms)
	UpdatedAt     int64                 // last update timestamp (ms)
}

// HasUnknownName reports whether the name still holds the sentinel.
func (t *Token) HasUnknownName() bool {
	return t.Name == "" || t.Name == UnknownName
}

// HasUnknownTicker reports whether the ticker still holds the sentinel.
func (t *Token) HasUnknownTicker() bool {
	return t.Ticker == "" || t.Ticker == UnknownTicker
}

// HasLinkType reports whether a link of the given type is present.
func (t *Token) HasLinkType(linkType string) bool {
	for _, l := range t.Links {
		if l.Type == linkType {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the token.
func (t *Token) Clone() *Token {
	if t == nil {
		return nil
	}
	c := *t
	if t.Links != nil {
		c.Links = append([]Link(nil), t.Links...)
	}
	if t.PairCreatedAt != nil {
		v := *t.PairCreatedAt
		c.PairCreatedAt = &v
	}
	if t.AnalyzedAt != nil {
		v := *t.AnalyzedAt
		c.AnalyzedAt = &v
	}
	if t.Analysis != nil {
		a := t.Analysis.Clone()
		c.Analysis = &a
	}
	return &c
}
