package domain

// Classification is the oracle verdict for a token.
type Classification string

const (
	ClassificationUtility Classification = "utility"
	ClassificationMeme    Classification = "meme"
	ClassificationUnknown Classification = "unknown" // oracle answered but the answer was unusable
	ClassificationError   Classification = "error"   // oracle call failed
)

// ClassificationResult is the structured oracle answer, persisted alongside the token.
// Confidence and UtilityScore are stored exactly as returned.
type ClassificationResult struct {
	Classification Classification `json:"classification"`
	Confidence     int            `json:"confidence"`
	Reasoning      string         `json:"reasoning"`
	RedFlags       []string       `json:"redFlags,omitempty"`
	UtilityScore   *int           `json:"utilityScore,omitempty"`
}

// Clone returns a deep copy of the result.
func (r ClassificationResult) Clone() ClassificationResult {
	c := r
	if r.RedFlags != nil {
		c.RedFlags = append([]string(nil), r.RedFlags...)
	}
	if r.UtilityScore != nil {
		v := *r.UtilityScore
		c.UtilityScore = &v
	}
	return c
}

// Disposition maps a classification to the terminal status it implies.
// Only an explicit utility verdict keeps a token; everything else is deleted.
func (r ClassificationResult) Disposition() Status {
	if r.Classification == ClassificationUtility {
		return StatusKept
	}
	return StatusDeleted
}
