package domain

// Candidate is a freshly discovered asset as reported by the discovery feed.
// It is ephemeral and never persisted as-is.
type Candidate struct {
	ChainID         string // network the asset lives on
	ContractAddress string // primary key across the whole system
	Description     string // free text from the feed (may be empty)
	Icon            string // image URL (may be empty)
	Links           []Link // normalized links
	Symbol          string // ticker advertised by the feed (may be empty)
	URL             string // feed page for the asset (may be empty)
}

// Link types produced by link normalization.
const (
	LinkTypeWebsite = "website"
	LinkTypeLink    = "link"
	LinkTypeTwitter = "twitter"
)

// Link is a typed URL attached to a token.
type Link struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}
