package domain

// AssetMetadata is the subset of secondary-source metadata used to fill gaps
// left by the discovery feed and market stats.
type AssetMetadata struct {
	Name        string
	Symbol      string
	Description string
	ImageURL    string
	ExternalURL string
}

// IsEmpty reports whether no usable field was returned.
func (m *AssetMetadata) IsEmpty() bool {
	return m == nil || (m.Name == "" && m.Symbol == "" && m.Description == "" &&
		m.ImageURL == "" && m.ExternalURL == "")
}
