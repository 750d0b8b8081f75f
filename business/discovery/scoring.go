package discovery

import (
	"math"
	"time"

	"stumbleDiscovery/business/reputation"
	"stumbleDiscovery/domain"
)

// freshnessDecay is the half-life decay of spec'd content age:
// exp(-ln2 * age / halfLife). Monotonically non-increasing in age.
func freshnessDecay(ageDays, halfLifeDays float64) float64 {
	if ageDays <= 0 {
		return 1.0
	}
	if halfLifeDays <= 0 {
		halfLifeDays = defaultHalfLifeDays
	}
	return math.Exp(-math.Ln2 * ageDays / halfLifeDays)
}

// scoreInput carries the per-request context shared by every candidate's
// scoring pass.
type scoreInput struct {
	user          domain.UserContext
	weights       Weights
	reputations   map[string]domain.DomainReputation
	trending      map[string]float64 // content id -> normalized velocity [0,1]
	collab        map[string]float64 // content id -> cluster affinity [0,1]
	topicCounts   map[string]int     // history topic -> mentions
	topicTotal    int
	nowBucketHits int
	historyTotal  int
	now           time.Time
}

// scoreCandidate computes the full multiplicative score and its breakdown
// for one candidate. topicSim is supplied by the similarity matcher.
func scoreCandidate(c domain.ContentItem, topicSim float64, in scoreInput) domain.ScoreFactors {
	w := in.weights

	f := domain.ScoreFactors{
		Quality:   clamp01(c.QualityScore),
		Freshness: freshnessDecay(c.AgeDays(in.now), w.FreshnessHalfLifeDays),
	}

	// similarity floored so zero-overlap content remains discoverable
	f.TopicSimilarity = w.SimilarityFloor + (1.0-w.SimilarityFloor)*clamp01(topicSim)

	if rep, ok := in.reputations[c.Domain]; ok {
		f.Reputation = reputation.Multiplier(rep)
	} else {
		f.Reputation = reputation.NeutralMultiplier()
	}

	f.Personalization = personalizationBonus(c, in)
	f.Diversity = diversityBonus(c, in)
	f.Trending = trendingBoost(c.ID, in)

	return f
}

// finalScore folds the factor breakdown into the single ranking score.
func finalScore(f domain.ScoreFactors) float64 {
	return f.Quality * f.Freshness * f.TopicSimilarity * f.Reputation *
		f.Personalization * f.Diversity * f.Trending
}

// personalizationBonus blends topic-preference fit, time-of-day fit, and the
// pluggable collaborative signal into a multiplier around 1.0.
func personalizationBonus(c domain.ContentItem, in scoreInput) float64 {
	w := in.weights

	prefMatch := topicOverlapShare(in.user.Profile.PreferredTopics, c.Topics)
	todMatch := timeOfDayMatch(in)
	collab := in.collaborative(c)

	blend := w.TopicPrefWeight*prefMatch + w.TimeOfDayWeight*todMatch + w.CollaborativeWeight*collab

	// neutral at blend=0.5: bonus spans [1-span/2, 1+span/2]
	return 1.0 + w.PersonalizationSpan*(blend-0.5)
}

// diversityBonus rewards candidates whose topics are under-represented in
// the user's recent history, pushing back on filter-bubble convergence.
func diversityBonus(c domain.ContentItem, in scoreInput) float64 {
	if in.topicTotal == 0 || len(c.Topics) == 0 {
		return 1.0
	}

	share := 0.0
	for _, t := range c.Topics {
		share += float64(in.topicCounts[t]) / float64(in.topicTotal)
	}
	share /= float64(len(c.Topics))

	// share 0 (never seen topics) gets the full bonus; heavily repeated
	// topics drift toward a mild penalty
	underRep := 1.0 - clamp01(share*3.0)

	return 1.0 - in.weights.DiversitySpan/3.0 + in.weights.DiversitySpan*underRep
}

// trendingBoost is neutral (1.0) for non-trending content and rises with the
// item's normalized velocity.
func trendingBoost(contentID string, in scoreInput) float64 {
	v, ok := in.trending[contentID]
	if !ok {
		return 1.0
	}
	return 1.0 + in.weights.TrendingSpan*clamp01(v)
}

// timeOfDayMatch compares the current time bucket against where the user's
// positive interactions historically land. No history reads as neutral.
func timeOfDayMatch(in scoreInput) float64 {
	if in.historyTotal == 0 {
		return 0.5
	}

	share := float64(in.nowBucketHits) / float64(in.historyTotal)
	// uniform share across the four buckets is 0.25; scale so that reads
	// as neutral 0.5
	return clamp01(share * 2.0)
}

// topicOverlapShare is the fraction of candidate topics present in the
// preference set. Empty preferences read as neutral.
func topicOverlapShare(preferred, topics []string) float64 {
	if len(preferred) == 0 || len(topics) == 0 {
		return 0.5
	}

	set := make(map[string]struct{}, len(preferred))
	for _, t := range preferred {
		set[t] = struct{}{}
	}

	hits := 0
	for _, t := range topics {
		if _, ok := set[t]; ok {
			hits++
		}
	}

	return float64(hits) / float64(len(topics))
}

// collaborative reads the precomputed cluster-affinity signal for one
// candidate. Missing entries are neutral.
func (in scoreInput) collaborative(c domain.ContentItem) float64 {
	if v, ok := in.collab[c.ID]; ok {
		return clamp01(v)
	}
	return 0.5
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// timeBucket mirrors the four coarse day parts used for the time-of-day
// preference signal.
func timeBucket(t time.Time) string {
	h := t.Hour()
	switch {
	case h < 6:
		return "night"
	case h < 12:
		return "morning"
	case h < 18:
		return "afternoon"
	default:
		return "evening"
	}
}
