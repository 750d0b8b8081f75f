package discovery

import (
	"math/rand"
	"sort"

	"stumbleDiscovery/domain"
)

// poolSize maps the wildness dial [0,100] onto the top-K sampling pool.
// Low wildness is near-greedy; high wildness widens the pool and with it
// the variance of what gets served.
func poolSize(wildness int, w Weights, candidates int) int {
	if wildness < 0 {
		wildness = 0
	}
	if wildness > 100 {
		wildness = 100
	}

	span := w.TopKMax - w.TopKMin
	k := w.TopKMin + (span*wildness+50)/100

	if k > candidates {
		k = candidates
	}
	if k < 1 {
		k = 1
	}
	return k
}

// drawWeighted picks one index from the top-k scored candidates, with
// probability proportional to score. scored must be sorted descending.
func drawWeighted(scored []domain.ScoredContent, k int, rnd *rand.Rand) int {
	if k > len(scored) {
		k = len(scored)
	}
	if k <= 1 {
		return 0
	}

	total := 0.0
	for i := 0; i < k; i++ {
		if scored[i].Score > 0 {
			total += scored[i].Score
		}
	}
	if total <= 0 {
		return rnd.Intn(k)
	}

	target := rnd.Float64() * total
	acc := 0.0
	for i := 0; i < k; i++ {
		if scored[i].Score <= 0 {
			continue
		}
		acc += scored[i].Score
		if target < acc {
			return i
		}
	}

	return k - 1
}

func sortByScore(scored []domain.ScoredContent) {
	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
}
