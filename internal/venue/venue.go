// Package venue decides whether a token trades on a supported launch venue.
package venue

import (
	"strings"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
)

// Venue families.
const (
	FamilyPumpfun = "pumpfun"
	FamilyBags    = "bags"
	FamilyBonk    = "bonk"
)

// families maps lowercase venue identifiers to their family.
var families = map[string]string{
	"pumpfun":   FamilyPumpfun,
	"pump":      FamilyPumpfun,
	"bags":      FamilyBags,
	"letsbag":   FamilyBags,
	"launchlab": FamilyBonk,
	"bonk":      FamilyBonk,
	"bonkfun":   FamilyBonk,
	"letsbonk":  FamilyBonk,
}

// allowedSuffixes are contract-address suffixes that qualify a token on their own.
var allowedSuffixes = []struct {
	suffix string
	family string
}{
	{"pump", FamilyPumpfun},
	{"bags", FamilyBags},
}

// allowedLinkFragments are URL fragments that qualify a token on their own.
var allowedLinkFragments = []struct {
	fragment string
	family   string
}{
	{"bags.fm", FamilyBags},
}

// IsAllowed reports whether t is associated with a supported venue through its
// venue identifier, its contract-address suffix or one of its links.
// Comparisons are case-insensitive. IsAllowed does no I/O.
func IsAllowed(t *domain.Token) bool {
	if t == nil {
		return false
	}
	if _, ok := families[strings.ToLower(t.VenueID)]; ok {
		return true
	}
	ca := strings.ToLower(t.CA)
	for _, s := range allowedSuffixes {
		if strings.HasSuffix(ca, s.suffix) {
			return true
		}
	}
	for _, l := range t.Links {
		u := strings.ToLower(l.URL)
		for _, f := range allowedLinkFragments {
			if strings.Contains(u, f.fragment) {
				return true
			}
		}
	}
	return false
}

// Family returns the venue family used for display badges, or "" when unknown.
// It also recognises the bonk suffix and bonk link domains, which do not
// on their own make a token allowed.
func Family(t *domain.Token) string {
	if t == nil {
		return ""
	}
	if f, ok := families[strings.ToLower(t.VenueID)]; ok {
		return f
	}

	ca := strings.ToLower(t.CA)
	for _, s := range allowedSuffixes {
		if strings.HasSuffix(ca, s.suffix) {
			return s.family
		}
	}
	if strings.HasSuffix(ca, "bonk") {
		return FamilyBonk
	}

	for _, f := range allowedLinkFragments {
		if hasLinkContaining(t.Links, f.fragment) {
			return f.family
		}
	}
	if hasLinkContaining(t.Links, "bonk.fun") || hasLinkContaining(t.Links, "letsbonk") {
		return FamilyBonk
	}
	return ""
}

func hasLinkContaining(links []domain.Link, fragment string) bool {
	for _, l := range links {
		if strings.Contains(strings.ToLower(l.URL), fragment) {
			return true
		}
	}
	return false
}
