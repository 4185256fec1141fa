package discovery

import "github.com/MoonBagDexter/DEX-UTILITY/internal/domain"

// Addresses returns the contract addresses of candidates, in order.
func Addresses(candidates []domain.Candidate) []string {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.ContractAddress
	}
	return out
}

// PartitionByExistence drops candidates whose address is in known.
// Matching is exact and case-sensitive. Order of the remaining candidates is kept.
func PartitionByExistence(candidates []domain.Candidate, known map[string]struct{}) (fresh []domain.Candidate, alreadyKnown int) {
	fresh = make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := known[c.ContractAddress]; ok {
			alreadyKnown++
			continue
		}
		fresh = append(fresh, c)
	}
	return fresh, alreadyKnown
}
