package discovery

import (
	"context"

	"gorm.io/datatypes"

	"stumbleDiscovery/domain"
)

// Weights is the explicit, versioned scoring configuration. Every tunable
// the score formula uses lives here instead of as inline constants, so a
// variant payload or a DB config row can swap any of them.
type Weights struct {
	Version int

	// freshness decay half-life in days
	FreshnessHalfLifeDays float64

	// floor for the topic-similarity multiplier so zero-overlap candidates
	// stay drawable instead of scoring hard zero
	SimilarityFloor float64

	// personalization blend (sums to 1)
	TopicPrefWeight     float64
	TimeOfDayWeight     float64
	CollaborativeWeight float64

	// spans of the multiplicative bonuses around their neutral baselines
	PersonalizationSpan float64
	DiversitySpan       float64
	TrendingSpan        float64

	// explore/exploit pool bounds; wildness interpolates between them
	TopKMin int
	TopKMax int
}

const (
	defaultHalfLifeDays     = 14.0
	defaultSimilarityFloor  = 0.25
	defaultTopicPrefWeight  = 0.5
	defaultTimeOfDayWeight  = 0.2
	defaultCollabWeight     = 0.3
	defaultPersonalizeSpan  = 0.4
	defaultDiversitySpan    = 0.3
	defaultTrendingSpan     = 0.25
	defaultTopKMin          = 2
	defaultTopKMax          = 15
)

func DefaultWeights() Weights {
	return Weights{
		Version:               1,
		FreshnessHalfLifeDays: defaultHalfLifeDays,
		SimilarityFloor:       defaultSimilarityFloor,
		TopicPrefWeight:       defaultTopicPrefWeight,
		TimeOfDayWeight:       defaultTimeOfDayWeight,
		CollaborativeWeight:   defaultCollabWeight,
		PersonalizationSpan:   defaultPersonalizeSpan,
		DiversitySpan:         defaultDiversitySpan,
		TrendingSpan:          defaultTrendingSpan,
		TopKMin:               defaultTopKMin,
		TopKMax:               defaultTopKMax,
	}
}

// WeightConfigRepository reads the optional DB-backed weight overrides
// (admin-managed). A missing active row means defaults.
type WeightConfigRepository interface {
	GetActive(ctx context.Context) (domain.ScoringConfig, bool, error)
	Upsert(ctx context.Context, cfg domain.ScoringConfig) error
}

// loadWeights layers config sources: compiled defaults, then the active DB
// config, then the experiment variant payload.
func (s *Service) loadWeights(ctx context.Context, variantOverrides datatypes.JSONMap) Weights {
	w := s.defaultWeights

	if s.weightCfgRepo != nil {
		if row, ok, err := s.weightCfgRepo.GetActive(ctx); err == nil && ok {
			w = applyOverrides(w, row.Overrides)
			if row.Version > 0 {
				w.Version = row.Version
			}
		}
	}

	if variantOverrides != nil {
		w = applyOverrides(w, variantOverrides)
	}

	return w
}

// applyOverrides copies recognized keys from a JSON payload over w. Unknown
// keys are ignored so old payloads survive config additions.
func applyOverrides(w Weights, m map[string]any) Weights {
	setF := func(key string, dst *float64) {
		if v, ok := floatValue(m[key]); ok {
			*dst = v
		}
	}
	setI := func(key string, dst *int) {
		if v, ok := floatValue(m[key]); ok && v >= 0 {
			*dst = int(v)
		}
	}

	setF("freshness_half_life_days", &w.FreshnessHalfLifeDays)
	setF("similarity_floor", &w.SimilarityFloor)
	setF("topic_pref_weight", &w.TopicPrefWeight)
	setF("time_of_day_weight", &w.TimeOfDayWeight)
	setF("collaborative_weight", &w.CollaborativeWeight)
	setF("personalization_span", &w.PersonalizationSpan)
	setF("diversity_span", &w.DiversitySpan)
	setF("trending_span", &w.TrendingSpan)
	setI("top_k_min", &w.TopKMin)
	setI("top_k_max", &w.TopKMax)

	if w.TopKMin < 1 {
		w.TopKMin = 1
	}
	if w.TopKMax < w.TopKMin {
		w.TopKMax = w.TopKMin
	}

	return w
}

// floatValue tolerates the numeric shapes a JSONMap can carry.
func floatValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
