package report

import (
	"sort"

	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/ledger"
)

// sumByKey groups transactions by key and sums amount per group. The returned
// key slice preserves first-seen input order, which is what makes downstream
// tie-breaks stable and deterministic.
func sumByKey[K comparable](txs []ledger.Transaction, key func(ledger.Transaction) K, amount func(ledger.Transaction) float64) ([]K, map[K]float64) {
	keys := make([]K, 0)
	totals := make(map[K]float64)
	for _, tx := range txs {
		k := key(tx)
		if _, seen := totals[k]; !seen {
			keys = append(keys, k)
		}
		totals[k] += amount(tx)
	}
	return keys, totals
}

// rankTop orders keys by their summed total descending and keeps at most n.
// Keys with equal totals keep their first-seen order; keys below rank n are
// dropped even when tied with rank n.
func rankTop[K comparable](keys []K, totals map[K]float64, n int) []K {
	ranked := make([]K, len(keys))
	copy(ranked, keys)
	sort.SliceStable(ranked, func(i, j int) bool {
		return totals[ranked[i]] > totals[ranked[j]]
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
