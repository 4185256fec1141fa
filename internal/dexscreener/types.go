package dexscreener

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Profile is one record of the latest token profiles feed.
// Link-bearing fields keep their raw JSON: upstream mixes strings and objects freely.
type Profile struct {
	URL          string          `json:"url"`
	ChainID      string          `json:"chainId"`
	TokenAddress string          `json:"tokenAddress"`
	Icon         string          `json:"icon"`
	Header       string          `json:"header"`
	Description  string          `json:"description"`
	Symbol       string          `json:"symbol"`
	Website      json.RawMessage `json:"website,omitempty"`
	Websites     json.RawMessage `json:"websites,omitempty"`
	Links        json.RawMessage `json:"links,omitempty"`
	Socials      json.RawMessage `json:"socials,omitempty"`
}

// Pair is one trading-pair record from the tokens endpoint.
type Pair struct {
	ChainID       string    `json:"chainId"`
	DexID         string    `json:"dexId"`
	PairAddress   string    `json:"pairAddress"`
	BaseToken     PairToken `json:"baseToken"`
	PriceUSD      Number    `json:"priceUsd"`
	MarketCap     Number    `json:"marketCap"`
	FDV           Number    `json:"fdv"`
	Volume        struct {
		H24 Number `json:"h24"`
	} `json:"volume"`
	Liquidity struct {
		USD Number `json:"usd"`
	} `json:"liquidity"`
	PairCreatedAt *int64 `json:"pairCreatedAt"`
}

// PairToken identifies one side of a pair.
type PairToken struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// pairsEnvelope is the object form of the tokens response.
type pairsEnvelope struct {
	Pairs []Pair `json:"pairs"`
}

// decodePairs accepts both a bare array and an object with a pairs array.
func decodePairs(body []byte) ([]Pair, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var pairs []Pair
		if err := json.Unmarshal(trimmed, &pairs); err != nil {
			return nil, err
		}
		return pairs, nil
	}
	var env pairsEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, err
	}
	return env.Pairs, nil
}

// Number is a nullable float that upstream sends either as a JSON number or a numeric string.
type Number struct {
	Value *float64
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	s := string(bytes.TrimSpace(data))
	if s == "null" || s == `""` {
		n.Value = nil
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		s = unq
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Unparseable values are treated as absent
		n.Value = nil
		return nil
	}
	n.Value = &f
	return nil
}

// positive returns the value only when it is set and non-zero.
func (n Number) positive() *float64 {
	if n.Value == nil || *n.Value == 0 {
		return nil
	}
	v := *n.Value
	return &v
}
