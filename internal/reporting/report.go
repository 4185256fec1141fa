// Package reporting renders exports of stored tokens.
package reporting

import (
	"fmt"
	"time"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
)

// Export is a point-in-time set of tokens to render.
type Export struct {
	GeneratedAt time.Time
	Status      domain.Status
	Tokens      []*domain.Token
}

// Filename returns the download name for a text export, e.g. kept_coins_2025-01-02_15-04-05.txt.
func Filename(status domain.Status, at time.Time) string {
	return fmt.Sprintf("%s_coins_%s.txt", status, at.UTC().Format("2006-01-02_15-04-05"))
}
