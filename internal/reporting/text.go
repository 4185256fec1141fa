package reporting

import (
	"fmt"
	"strings"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/venue"
)

// RenderText renders the plain-text export handed to operators.
func RenderText(e *Export) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("%s Coins Export\n", titleCase(string(e.Status))))
	sb.WriteString(fmt.Sprintf("Exported: %s\n", e.GeneratedAt.Format("1/2/2006, 3:04:05 PM")))
	sb.WriteString(fmt.Sprintf("Total: %d coins\n", len(e.Tokens)))
	sb.WriteString(strings.Repeat("=", 60) + "\n\n")

	for i, t := range e.Tokens {
		name := t.Name
		if name == "" {
			name = domain.UnknownName
		}
		ticker := t.Ticker
		if ticker == "" {
			ticker = "N/A"
		}
		sb.WriteString(fmt.Sprintf("%d. %s (%s)\n", i+1, name, ticker))
		sb.WriteString(strings.Repeat("-", 40) + "\n")
		sb.WriteString(fmt.Sprintf("CA: %s\n", t.CA))
		if family := venue.Family(t); family != "" {
			sb.WriteString(fmt.Sprintf("Venue: %s\n", family))
		}
		if t.Description != "" {
			sb.WriteString(fmt.Sprintf("Description: %s\n", t.Description))
		}

		websites, xLinks, other := splitLinks(t.Links)
		writeList(&sb, "Websites", websites, false)
		writeList(&sb, "X Links", xLinks, false)
		writeList(&sb, "Other Links", other, true)
		sb.WriteString("\n")
	}

	return sb.String()
}

func writeList(sb *strings.Builder, title string, links []domain.Link, tagged bool) {
	if len(links) == 0 {
		return
	}
	sb.WriteString(title + ":\n")
	for _, l := range links {
		if tagged {
			typ := l.Type
			if typ == "" {
				typ = domain.LinkTypeLink
			}
			sb.WriteString(fmt.Sprintf("  - [%s] %s\n", typ, l.URL))
			continue
		}
		sb.WriteString(fmt.Sprintf("  - %s\n", l.URL))
	}
}

// splitLinks groups links into websites, X/Twitter links and everything else.
func splitLinks(links []domain.Link) (websites, xLinks, other []domain.Link) {
	for _, l := range links {
		switch {
		case strings.EqualFold(l.Type, domain.LinkTypeWebsite):
			websites = append(websites, l)
		case isXLink(l):
			xLinks = append(xLinks, l)
		default:
			other = append(other, l)
		}
	}
	return websites, xLinks, other
}

func isXLink(l domain.Link) bool {
	typ := strings.ToLower(l.Type)
	return typ == domain.LinkTypeTwitter || typ == "x" ||
		strings.Contains(l.URL, "x.com") || strings.Contains(l.URL, "twitter.com")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
