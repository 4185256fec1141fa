package discovery

import (
	"encoding/json"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/dexscreener"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
)

// rawLink covers every object shape seen in the websites, links and socials arrays.
type rawLink struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	URL   string `json:"url"`
}

// linkSet accumulates links in source order. The first link of a type wins,
// except websites, which accumulate from every source.
type linkSet struct {
	links []domain.Link
	types map[string]struct{}
	urls  map[domain.Link]struct{}
}

func newLinkSet() *linkSet {
	return &linkSet{
		types: make(map[string]struct{}),
		urls:  make(map[domain.Link]struct{}),
	}
}

func (s *linkSet) add(linkType, url string) {
	if linkType == "" || url == "" {
		return
	}
	l := domain.Link{Type: linkType, URL: url}
	if _, dup := s.urls[l]; dup {
		return
	}
	if linkType != domain.LinkTypeWebsite {
		if _, seen := s.types[linkType]; seen {
			return
		}
	}
	s.types[linkType] = struct{}{}
	s.urls[l] = struct{}{}
	s.links = append(s.links, l)
}

// NormalizeLinks converts the heterogeneous link fields of a profile into canonical links.
// Sources are read in order: website, websites, links, socials.
//
// Accepted shapes:
//   - website: a bare string
//   - websites: strings or {url}
//   - links: {type,url}, {label,url} (label becomes the type) or a bare string (type "link")
//   - socials: {type,url}
//
// Anything else is ignored.
func NormalizeLinks(p dexscreener.Profile) []domain.Link {
	set := newLinkSet()

	var website string
	if decodeInto(p.Website, &website) {
		set.add(domain.LinkTypeWebsite, website)
	}

	for _, item := range rawItems(p.Websites) {
		var s string
		if decodeInto(item, &s) {
			set.add(domain.LinkTypeWebsite, s)
			continue
		}
		var obj rawLink
		if decodeInto(item, &obj) {
			set.add(domain.LinkTypeWebsite, obj.URL)
		}
	}

	for _, item := range rawItems(p.Links) {
		var s string
		if decodeInto(item, &s) {
			set.add(domain.LinkTypeLink, s)
			continue
		}
		var obj rawLink
		if !decodeInto(item, &obj) || obj.URL == "" {
			continue
		}
		switch {
		case obj.Type != "":
			set.add(obj.Type, obj.URL)
		case obj.Label != "":
			set.add(obj.Label, obj.URL)
		}
	}

	for _, item := range rawItems(p.Socials) {
		var obj rawLink
		if decodeInto(item, &obj) && obj.Type != "" {
			set.add(obj.Type, obj.URL)
		}
	}

	return set.links
}

// MergeLinks appends extra links after base using the same precedence as NormalizeLinks.
func MergeLinks(base, extra []domain.Link) []domain.Link {
	set := newLinkSet()
	for _, l := range base {
		set.add(l.Type, l.URL)
	}
	for _, l := range extra {
		set.add(l.Type, l.URL)
	}
	return set.links
}

// rawItems returns the elements of a JSON array, or nil for any other value.
func rawItems(raw json.RawMessage) []json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	return items
}

func decodeInto(raw json.RawMessage, v interface{}) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}
