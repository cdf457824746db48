package analytics

import (
	"cmp"

	"vellum/backend/internal/domain"
)

const (
	combinationsLimit   = 20
	combinationMinCount = 2
)

// productPair is an unordered pair stored with a < b, so (A,B) and (B,A) share
// one ledger entry.
type productPair struct {
	a string
	b string
}

func canonicalPair(x, y string) productPair {
	if y < x {
		x, y = y, x
	}
	return productPair{a: x, b: y}
}

type combinationEntry struct {
	pair    productPair
	count   int
	revenue float64
}

// mineCombinations counts every pair of distinct products sharing a billed
// order and sums the value of the orders they shared.
func mineCombinations(book orderBook) *ledger[productPair, combinationEntry] {
	pairs := newLedger[productPair, combinationEntry]()
	for _, basket := range book.billed.values() {
		for i := 0; i < len(basket.products); i++ {
			for j := i + 1; j < len(basket.products); j++ {
				pair := canonicalPair(basket.products[i], basket.products[j])
				entry := pairs.entry(pair, func() combinationEntry { return combinationEntry{pair: pair} })
				entry.count++
				entry.revenue += basket.total
			}
		}
	}
	return pairs
}

func combinations(pairs *ledger[productPair, combinationEntry]) []domain.ProductCombination {
	out := make([]domain.ProductCombination, 0)
	for _, entry := range pairs.values() {
		if entry.count < combinationMinCount {
			continue
		}
		average := entry.revenue / float64(entry.count)
		confidence := clamp(float64(entry.count)/10, 0, 1)*50 + clamp(average/500, 0, 1)*50
		out = append(out, domain.ProductCombination{
			ProductA:          entry.pair.a,
			ProductB:          entry.pair.b,
			Count:             entry.count,
			TotalRevenue:      entry.revenue,
			AverageOrderValue: average,
			ConfidenceScore:   confidence,
			Strength:          combinationStrength(confidence),
		})
	}
	return topN(out, combinationsLimit, func(a, b domain.ProductCombination) int {
		return cmp.Compare(b.ConfidenceScore, a.ConfidenceScore)
	})
}

func combinationStrength(confidence float64) string {
	switch {
	case confidence >= 70:
		return domain.StrengthHigh
	case confidence >= 40:
		return domain.StrengthMedium
	default:
		return domain.StrengthLow
	}
}
