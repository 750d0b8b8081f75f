package similarity

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"stumbleDiscovery/domain"
)

// jaccardFloor is the cheap pre-filter: pairs below this overlap are treated
// as dissimilar without running the weighted comparison.
const jaccardFloor = 0.01

// ContentRepository is the index-backed lookup the matcher needs. The
// any-overlapping-topic query must be served by an index, never a full scan.
type ContentRepository interface {
	FindByID(ctx context.Context, id string) (domain.ContentItem, error)
	FindWithAnyTopic(ctx context.Context, topics []string, excludeID string, limit int) ([]domain.ContentItem, error)
}

// TopicStatsProvider supplies corpus-wide topic frequencies for IDF
// weighting: rare topics carry more discriminative weight.
type TopicStatsProvider interface {
	TopicCounts(ctx context.Context) (map[string]int64, int64, error)
}

type Matcher struct {
	contentRepo ContentRepository
	statsRepo   TopicStatsProvider

	mu         sync.RWMutex
	idf        map[string]float64
	refreshed  time.Time
	statsTTL   time.Duration
	candidates int
}

func NewMatcher(contentRepo ContentRepository, statsRepo TopicStatsProvider) *Matcher {
	return &Matcher{
		contentRepo: contentRepo,
		statsRepo:   statsRepo,
		statsTTL:    10 * time.Minute,
		candidates:  200,
	}
}

// Jaccard is set intersection over union. Symmetric, [0, 1].
func Jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}

	inter := 0
	seen := make(map[string]struct{}, len(b))
	for _, t := range b {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := set[t]; ok {
			inter++
		}
	}

	union := len(set) + len(seen) - inter
	if union == 0 {
		return 0
	}

	return float64(inter) / float64(union)
}

// Similarity scores topical relatedness between two topic sets: a Jaccard
// pre-filter, then an IDF-weighted cosine over the topic vectors. Symmetric
// in its arguments.
func (m *Matcher) Similarity(ctx context.Context, a, b []string) float64 {
	j := Jaccard(a, b)
	if j < jaccardFloor {
		return 0
	}

	weights := m.topicWeights(ctx)
	cos := weightedCosine(a, b, weights)

	return 0.6*cos + 0.4*j
}

// MultiFactor blends topic similarity with domain and quality similarity.
// Topic fit dominates.
func (m *Matcher) MultiFactor(ctx context.Context, a, b domain.ContentItem) float64 {
	topicSim := m.Similarity(ctx, a.Topics, b.Topics)

	domainSim := 0.0
	if a.Domain != "" && a.Domain == b.Domain {
		domainSim = 1.0
	}

	qualitySim := 1.0 - math.Abs(a.QualityScore-b.QualityScore)

	return 0.5*topicSim + 0.2*domainSim + 0.3*qualitySim
}

// FindSimilar returns up to limit items related to the reference item,
// ranked by multi-factor similarity. Candidates come from an indexed
// overlapping-topic query so the full corpus is never scored.
func (m *Matcher) FindSimilar(ctx context.Context, referenceID string, limit int, minSimilarity float64) ([]domain.SimilarContent, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	if limit <= 0 {
		limit = 10
	}

	ref, err := m.contentRepo.FindByID(ctx, referenceID)
	if err != nil {
		return nil, fmt.Errorf("load reference content: %w", err)
	}

	pool, err := m.contentRepo.FindWithAnyTopic(ctx, ref.Topics, ref.ID, m.candidates)
	if err != nil {
		return nil, fmt.Errorf("load similarity candidates: %w", err)
	}

	out := make([]domain.SimilarContent, 0, len(pool))
	for _, item := range pool {
		s := m.MultiFactor(ctx, ref, item)
		if s < minSimilarity {
			continue
		}
		out = append(out, domain.SimilarContent{Content: item, Similarity: s})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Similarity > out[j].Similarity
	})

	if len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

// topicWeights returns the cached IDF table, refreshing from the store when
// stale. A missing or failing stats source degrades to uniform weights.
func (m *Matcher) topicWeights(ctx context.Context) map[string]float64 {
	m.mu.RLock()
	if m.idf != nil && time.Since(m.refreshed) < m.statsTTL {
		w := m.idf
		m.mu.RUnlock()
		return w
	}
	m.mu.RUnlock()

	if m.statsRepo == nil {
		return nil
	}

	counts, total, err := m.statsRepo.TopicCounts(ctx)
	if err != nil || total == 0 {
		return m.cachedOrNil()
	}

	idf := make(map[string]float64, len(counts))
	for topic, n := range counts {
		if n <= 0 {
			continue
		}
		idf[topic] = math.Log(1.0 + float64(total)/float64(n))
	}

	m.mu.Lock()
	m.idf = idf
	m.refreshed = time.Now()
	m.mu.Unlock()

	return idf
}

func (m *Matcher) cachedOrNil() map[string]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idf
}

// weightedCosine compares two topic sets as weighted binary vectors. A nil
// weight table means uniform weights, which reduces to the Ochiai
// coefficient.
func weightedCosine(a, b []string, weights map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	wa := topicVector(a, weights)
	wb := topicVector(b, weights)

	var dot, na, nb float64
	for t, w := range wa {
		na += w * w
		if wbv, ok := wb[t]; ok {
			dot += w * wbv
		}
	}
	for _, w := range wb {
		nb += w * w
	}

	if na == 0 || nb == 0 {
		return 0
	}

	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func topicVector(topics []string, weights map[string]float64) map[string]float64 {
	v := make(map[string]float64, len(topics))
	for _, t := range topics {
		w := 1.0
		if weights != nil {
			if idf, ok := weights[t]; ok {
				w = idf
			}
		}
		v[t] = w
	}
	return v
}
