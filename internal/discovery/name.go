package discovery

import (
	"regexp"
	"strings"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
)

// maxNameRunes bounds names derived from free-text descriptions.
const maxNameRunes = 100

// ExtractName derives a display name from a description: the first sentence
// of the first line, truncated to 100 characters. Returns domain.UnknownName
// when nothing usable remains.
func ExtractName(description string) string {
	line, _, _ := strings.Cut(description, "\n")
	sentence, _, _ := strings.Cut(line, ".")
	sentence = strings.TrimSpace(sentence)
	if r := []rune(sentence); len(r) > maxNameRunes {
		sentence = strings.TrimSpace(string(r[:maxNameRunes]))
	}
	if sentence == "" {
		return domain.UnknownName
	}
	return sentence
}

var feedPathRe = regexp.MustCompile(`dexscreener\.com/\w+/(\w+)`)

// ExtractVenueID returns the path segment following the chain in a feed page URL,
// or "" when the URL does not match.
func ExtractVenueID(url string) string {
	m := feedPathRe.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return m[1]
}
