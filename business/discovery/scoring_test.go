package discovery

import (
	"math"
	"testing"
	"time"

	"stumbleDiscovery/domain"
)

func TestFreshnessDecay(t *testing.T) {
	if got := freshnessDecay(0, 14); got != 1.0 {
		t.Fatalf("fresh content should score 1.0, got %f", got)
	}

	half := freshnessDecay(14, 14)
	if math.Abs(half-0.5) > 1e-9 {
		t.Fatalf("content at its half-life should decay to 0.5, got %f", half)
	}

	prev := 1.0
	for age := 1.0; age <= 120; age += 1.0 {
		cur := freshnessDecay(age, 14)
		if cur >= prev {
			t.Fatalf("decay must be strictly decreasing, age=%f: %f >= %f", age, cur, prev)
		}
		prev = cur
	}
}

func TestScoreCandidateUnknownDomainIsNeutral(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	in := scoreInput{
		weights: DefaultWeights(),
		now:     now,
	}
	c := domain.ContentItem{
		ID:           "c1",
		Domain:       "never-seen.example",
		QualityScore: 0.7,
		PublishedAt:  now,
	}

	f := scoreCandidate(c, 0.5, in)
	if f.Reputation != 1.0 {
		t.Fatalf("unknown domain should get the neutral multiplier, got %f", f.Reputation)
	}
	if f.Trending != 1.0 {
		t.Fatalf("non-trending content should get no boost, got %f", f.Trending)
	}
}

func TestScoreCandidateReputationBounds(t *testing.T) {
	now := time.Now()
	for _, score := range []float64{0.0, 0.2, 0.5, 0.9, 1.0} {
		in := scoreInput{
			weights: DefaultWeights(),
			reputations: map[string]domain.DomainReputation{
				"blog.example": {Domain: "blog.example", ReputationScore: score},
			},
			now: now,
		}
		c := domain.ContentItem{ID: "c1", Domain: "blog.example", QualityScore: 0.5, PublishedAt: now}

		f := scoreCandidate(c, 0.5, in)
		if f.Reputation < 0.8 || f.Reputation > 1.2 {
			t.Fatalf("reputation multiplier out of range for score %f: %f", score, f.Reputation)
		}
	}
}

func TestFinalScoreIsMultiplicative(t *testing.T) {
	f := domain.ScoreFactors{
		Quality:         0.5,
		Freshness:       0.8,
		TopicSimilarity: 0.6,
		Reputation:      1.1,
		Personalization: 1.05,
		Diversity:       1.0,
		Trending:        1.2,
	}

	want := 0.5 * 0.8 * 0.6 * 1.1 * 1.05 * 1.0 * 1.2
	if got := finalScore(f); math.Abs(got-want) > 1e-12 {
		t.Fatalf("finalScore = %f, want %f", got, want)
	}

	// any factor hitting zero must zero the whole score
	f.Quality = 0
	if got := finalScore(f); got != 0 {
		t.Fatalf("zero quality should zero the score, got %f", got)
	}
}

func TestPreferredTopicOutranksOffTopic(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	in := scoreInput{
		user: domain.UserContext{
			Profile: domain.UserProfile{PreferredTopics: []string{"science"}},
		},
		weights: DefaultWeights(),
		now:     now,
	}

	science := domain.ContentItem{ID: "a", Topics: []string{"science"}, QualityScore: 0.7, PublishedAt: now}
	sports := domain.ContentItem{ID: "b", Topics: []string{"sports"}, QualityScore: 0.7, PublishedAt: now}

	// the matcher would hand the science item the higher topic similarity
	fs := scoreCandidate(science, 0.9, in)
	fo := scoreCandidate(sports, 0.0, in)

	if finalScore(fs) <= finalScore(fo) {
		t.Fatalf("preferred-topic item should outrank: %f <= %f", finalScore(fs), finalScore(fo))
	}
}

func TestDiversityBonusFavorsUnseenTopics(t *testing.T) {
	in := scoreInput{
		weights: DefaultWeights(),
		topicCounts: map[string]int{
			"programming": 18,
			"gardening":   2,
		},
		topicTotal: 20,
	}

	repeated := domain.ContentItem{ID: "a", Topics: []string{"programming"}}
	fresh := domain.ContentItem{ID: "b", Topics: []string{"astronomy"}}

	dr := diversityBonus(repeated, in)
	df := diversityBonus(fresh, in)

	if df <= dr {
		t.Fatalf("unseen topic should get the larger diversity bonus: %f <= %f", df, dr)
	}
	if df != 1.0-in.weights.DiversitySpan/3.0+in.weights.DiversitySpan {
		t.Fatalf("fully novel topics should earn the maximum bonus, got %f", df)
	}
}

func TestDiversityBonusNeutralWithoutHistory(t *testing.T) {
	in := scoreInput{weights: DefaultWeights()}
	c := domain.ContentItem{ID: "a", Topics: []string{"anything"}}

	if got := diversityBonus(c, in); got != 1.0 {
		t.Fatalf("no history should read neutral, got %f", got)
	}
}

func TestTimeOfDayMatchNeutralWithoutHistory(t *testing.T) {
	if got := timeOfDayMatch(scoreInput{}); got != 0.5 {
		t.Fatalf("empty history should read neutral, got %f", got)
	}

	in := scoreInput{nowBucketHits: 5, historyTotal: 20}
	if got := timeOfDayMatch(in); got != 0.5 {
		t.Fatalf("uniform bucket share should read neutral, got %f", got)
	}
}

func TestTopicOverlapShare(t *testing.T) {
	if got := topicOverlapShare(nil, []string{"a"}); got != 0.5 {
		t.Fatalf("empty preferences should read neutral, got %f", got)
	}
	if got := topicOverlapShare([]string{"a", "b"}, []string{"a", "c"}); got != 0.5 {
		t.Fatalf("half overlap should be 0.5, got %f", got)
	}
	if got := topicOverlapShare([]string{"a"}, []string{"a"}); got != 1.0 {
		t.Fatalf("full overlap should be 1.0, got %f", got)
	}
}

func TestTimeBucket(t *testing.T) {
	cases := map[int]string{
		3:  "night",
		6:  "morning",
		11: "morning",
		12: "afternoon",
		17: "afternoon",
		18: "evening",
		23: "evening",
	}
	for hour, want := range cases {
		ts := time.Date(2026, 3, 10, hour, 0, 0, 0, time.UTC)
		if got := timeBucket(ts); got != want {
			t.Fatalf("hour %d: got %s, want %s", hour, got, want)
		}
	}
}
