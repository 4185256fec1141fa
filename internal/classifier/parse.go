package classifier

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
)

// ErrMalformedResponse is returned when the oracle text holds no usable JSON object.
var ErrMalformedResponse = errors.New("malformed oracle response")

// parseFailureReasoning is the reasoning stored for unparseable responses.
const parseFailureReasoning = "Failed to parse AI response"

// response is the loose shape of the oracle's JSON answer.
type response struct {
	Classification string          `json:"classification"`
	Confidence     json.RawMessage `json:"confidence"`
	Reasoning      string          `json:"reasoning"`
	RedFlags       []string        `json:"redFlags"`
	UtilityScore   json.RawMessage `json:"utilityScore"`
}

// ParseResponse extracts the first top-level JSON object from text and decodes it.
// Surrounding prose is ignored. On failure it returns the unknown result together
// with ErrMalformedResponse. Confidence and utility score are not range-checked.
func ParseResponse(text string) (domain.ClassificationResult, error) {
	raw := extractObject(text)
	if raw == "" {
		raw = strings.TrimSpace(text)
	}

	var r response
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return unknownResult(), ErrMalformedResponse
	}

	result := domain.ClassificationResult{
		Classification: normalizeClassification(r.Classification),
		Reasoning:      r.Reasoning,
		RedFlags:       r.RedFlags,
	}
	if v, ok := toInt(r.Confidence); ok {
		result.Confidence = v
	}
	if v, ok := toInt(r.UtilityScore); ok {
		result.UtilityScore = &v
	}
	return result, nil
}

// extractObject returns the first balanced {...} span, skipping braces inside strings.
func extractObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

func normalizeClassification(s string) domain.Classification {
	switch c := domain.Classification(strings.ToLower(strings.TrimSpace(s))); c {
	case domain.ClassificationUtility, domain.ClassificationMeme:
		return c
	default:
		return domain.ClassificationUnknown
	}
}

// toInt accepts a JSON number or numeric string.
func toInt(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	s := string(raw)
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(math.Round(f)), true
}

func unknownResult() domain.ClassificationResult {
	return domain.ClassificationResult{
		Classification: domain.ClassificationUnknown,
		Confidence:     0,
		Reasoning:      parseFailureReasoning,
	}
}
