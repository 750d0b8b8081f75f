package domain

// ScoreFactors is the per-candidate multiplicative breakdown. Kept alongside
// the final score so the debug endpoint and rationale generation can name
// the dominant factor.
type ScoreFactors struct {
	Quality         float64 `json:"quality"`
	Freshness       float64 `json:"freshness"`
	TopicSimilarity float64 `json:"topic_similarity"`
	Reputation      float64 `json:"reputation"`
	Personalization float64 `json:"personalization"`
	Diversity       float64 `json:"diversity"`
	Trending        float64 `json:"trending"`
}

// DiscoveryResult is one selected item plus its score and explanation.
type DiscoveryResult struct {
	Content   ContentItem  `json:"content"`
	Score     float64      `json:"score"`
	Rationale string       `json:"rationale"`
	Factors   ScoreFactors `json:"factors"`
	Variant   string       `json:"variant,omitempty"`
}

// ScoredContent is a candidate with its computed score, used by the debug
// endpoint to expose the full ranked pool.
type ScoredContent struct {
	Content ContentItem  `json:"content"`
	Score   float64      `json:"score"`
	Factors ScoreFactors `json:"factors"`
}

// SimilarContent is one entry in a similarity-ranked list.
type SimilarContent struct {
	Content    ContentItem `json:"content"`
	Similarity float64     `json:"similarity"`
}
