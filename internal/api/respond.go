package api

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/governor"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeCooldown answers 429 with a Retry-After header.
func writeCooldown(w http.ResponseWriter, err *governor.CooldownError) {
	w.Header().Set("Retry-After", strconv.Itoa(err.RetryAfterSeconds()))
	writeError(w, http.StatusTooManyRequests, err.Error())
}

func formatSeconds(sec float64) string {
	return strconv.Itoa(int(math.Ceil(sec)))
}

// decodeBody reads an optional JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v interface{}) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// tokenResponse is the wire shape of a stored token.
type tokenResponse struct {
	CA            string                       `json:"ca"`
	Name          string                       `json:"name"`
	Ticker        string                       `json:"ticker"`
	Description   string                       `json:"description"`
	ImageURL      string                       `json:"image_url"`
	Links         []domain.Link                `json:"links"`
	VenueID       string                       `json:"venue_id"`
	PairCreatedAt *int64                       `json:"pair_created_at"`
	Status        domain.Status                `json:"status"`
	PriceUSD      *float64                     `json:"price_usd"`
	MarketCap     *float64                     `json:"market_cap"`
	Volume24h     *float64                     `json:"volume_24h"`
	LiquidityUSD  *float64                     `json:"liquidity_usd"`
	Analysis      *domain.ClassificationResult `json:"analysis"`
	AnalyzedAt    *int64                       `json:"analyzed_at"`
	CreatedAt     int64                        `json:"created_at"`
	UpdatedAt     int64                        `json:"updated_at"`
}

func toTokenResponse(t *domain.Token) tokenResponse {
	links := t.Links
	if links == nil {
		links = []domain.Link{}
	}
	return tokenResponse{
		CA:            t.CA,
		Name:          t.Name,
		Ticker:        t.Ticker,
		Description:   t.Description,
		ImageURL:      t.ImageURL,
		Links:         links,
		VenueID:       t.VenueID,
		PairCreatedAt: t.PairCreatedAt,
		Status:        t.Status,
		PriceUSD:      t.Stats.PriceUSD,
		MarketCap:     t.Stats.MarketCap,
		Volume24h:     t.Stats.Volume24h,
		LiquidityUSD:  t.Stats.LiquidityUSD,
		Analysis:      t.Analysis,
		AnalyzedAt:    t.AnalyzedAt,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}
