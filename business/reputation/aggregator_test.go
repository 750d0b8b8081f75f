package reputation

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"stumbleDiscovery/domain"
	"stumbleDiscovery/pkg/metrics"
)

type fakeStatsRepo struct {
	stats map[string]domain.DomainStats
}

func (f *fakeStatsRepo) DomainStats(_ context.Context, domainKey string) (domain.DomainStats, error) {
	return f.stats[domainKey], nil
}

func (f *fakeStatsRepo) AllDomainStats(_ context.Context) ([]domain.DomainStats, error) {
	out := make([]domain.DomainStats, 0, len(f.stats))
	for _, s := range f.stats {
		out = append(out, s)
	}
	return out, nil
}

type fakeRepRepo struct {
	saved map[string]domain.DomainReputation
}

func (f *fakeRepRepo) Upsert(_ context.Context, rec domain.DomainReputation) error {
	if f.saved == nil {
		f.saved = make(map[string]domain.DomainReputation)
	}
	f.saved[rec.Domain] = rec
	return nil
}

func testAggregator(stats map[string]domain.DomainStats, now time.Time) (*Aggregator, *fakeRepRepo) {
	repo := &fakeRepRepo{}
	agg := NewAggregator(&fakeStatsRepo{stats: stats}, repo)
	agg.now = func() time.Time { return now }
	return agg, repo
}

func TestTrustScoreSmallSampleStaysNeutral(t *testing.T) {
	// three approvals must not read as a perfect domain
	small := trustScore(3, 0)
	if small > 0.65 {
		t.Fatalf("3/3 approvals should stay near neutral, got %f", small)
	}

	large := trustScore(300, 0)
	if large < 0.95 {
		t.Fatalf("a long flawless record should approach 1, got %f", large)
	}
	if small >= large {
		t.Fatalf("more evidence should move trust further: %f >= %f", small, large)
	}

	if got := trustScore(0, 0); got != 0.5 {
		t.Fatalf("no moderation history should be exactly neutral, got %f", got)
	}
}

func TestEngagementFactor(t *testing.T) {
	if got := engagementFactor(domain.DomainStats{}); got != 0.5 {
		t.Fatalf("no views should read neutral, got %f", got)
	}

	hot := engagementFactor(domain.DomainStats{TotalViews: 100, TotalLikes: 60, TotalSaves: 40})
	cold := engagementFactor(domain.DomainStats{TotalViews: 100, TotalSkips: 90})
	if hot <= cold {
		t.Fatalf("engaging domain should beat skip-heavy domain: %f <= %f", hot, cold)
	}
	if hot > 1.0 || cold < 0 {
		t.Fatalf("engagement factor out of range: hot=%f cold=%f", hot, cold)
	}
}

func TestActivityRecencyFactor(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	if got := activityRecencyFactor(time.Time{}, now); got != 1.0 {
		t.Fatalf("never-submitted domain must not be treated as dormant, got %f", got)
	}
	if got := activityRecencyFactor(now, now); got != 1.0 {
		t.Fatalf("just-active domain should not decay, got %f", got)
	}

	quarter := activityRecencyFactor(now.AddDate(0, 0, -90), now)
	if quarter > 0.51 || quarter < 0.49 {
		t.Fatalf("90 idle days should roughly halve, got %f", quarter)
	}

	if got := activityRecencyFactor(now.AddDate(-5, 0, 0), now); got != 0.3 {
		t.Fatalf("decay must floor at 0.3, got %f", got)
	}
}

func TestBlacklistConditions(t *testing.T) {
	cases := []struct {
		name string
		rec  domain.DomainReputation
		want bool
	}{
		{"clean", domain.DomainReputation{ApprovedCount: 50, ReputationScore: 0.6}, false},
		{"flag threshold", domain.DomainReputation{FlaggedCount: 5, ReputationScore: 0.6}, true},
		{"below flag threshold", domain.DomainReputation{FlaggedCount: 4, ReputationScore: 0.6}, false},
		{"rejection ratio", domain.DomainReputation{ApprovedCount: 2, RejectedCount: 8, ReputationScore: 0.6}, true},
		{"rejection ratio boundary", domain.DomainReputation{ApprovedCount: 1, RejectedCount: 4, ReputationScore: 0.6}, true},
		{"just under rejection ratio", domain.DomainReputation{ApprovedCount: 3, RejectedCount: 7, ReputationScore: 0.6}, false},
		{"rock-bottom reputation", domain.DomainReputation{ApprovedCount: 50, ReputationScore: 0.1}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isBlacklisted(tc.rec); got != tc.want {
				t.Fatalf("isBlacklisted(%+v) = %v, want %v", tc.rec, got, tc.want)
			}
		})
	}
}

func TestRecomputeNewDomainIsNotBlacklisted(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	agg, repo := testAggregator(map[string]domain.DomainStats{
		"new.example": {Domain: "new.example"},
	}, now)

	rec, err := agg.Recompute(context.Background(), "new.example")
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}

	if rec.Blacklisted {
		t.Fatal("a brand-new domain with no history must not start blacklisted")
	}
	if rec.TrustScore != 0.5 {
		t.Fatalf("new domain trust should be neutral, got %f", rec.TrustScore)
	}
	if _, ok := repo.saved["new.example"]; !ok {
		t.Fatal("recompute must persist the record")
	}
}

func TestRecomputeAllPersistsEveryDomain(t *testing.T) {
	now := time.Now()
	agg, repo := testAggregator(map[string]domain.DomainStats{
		"a.example": {Domain: "a.example", ApprovedCount: 40, LastSubmissionAt: now},
		"b.example": {Domain: "b.example", RejectedCount: 9, ApprovedCount: 1, LastSubmissionAt: now},
	}, now)

	if err := agg.RecomputeAll(context.Background()); err != nil {
		t.Fatalf("RecomputeAll: %v", err)
	}

	if len(repo.saved) != 2 {
		t.Fatalf("expected 2 persisted records, got %d", len(repo.saved))
	}
	if repo.saved["b.example"].Blacklisted != true {
		t.Fatal("90%% rejection domain should be blacklisted")
	}
	if repo.saved["a.example"].Blacklisted {
		t.Fatal("well-moderated domain should stay listed")
	}
}

func TestRecomputeAllCountsUnderBoundedLabels(t *testing.T) {
	now := time.Now()
	agg, _ := testAggregator(map[string]domain.DomainStats{
		"a.example": {Domain: "a.example", ApprovedCount: 40, LastSubmissionAt: now},
		"b.example": {Domain: "b.example", ApprovedCount: 10, LastSubmissionAt: now},
	}, now)

	ok := metrics.BatchRunsTotal.WithLabelValues("reputation", "domain", "ok")
	before := testutil.ToFloat64(ok)

	if err := agg.RecomputeAll(context.Background()); err != nil {
		t.Fatalf("RecomputeAll: %v", err)
	}

	// every processed domain lands on the one fixed "domain" unit label,
	// never as a per-domain label value
	if got := testutil.ToFloat64(ok) - before; got != 2 {
		t.Fatalf("expected 2 increments on the bounded unit label, got %f", got)
	}
}

func TestMultiplierBounds(t *testing.T) {
	for _, score := range []float64{-1, 0, 0.25, 0.5, 1, 2} {
		m := Multiplier(domain.DomainReputation{ReputationScore: score})
		if m < 0.8 || m > 1.2 {
			t.Fatalf("multiplier out of [0.8, 1.2] for score %f: %f", score, m)
		}
	}

	if m := Multiplier(domain.DomainReputation{ReputationScore: 0.5}); m != 1.0 {
		t.Fatalf("mid reputation should be exactly neutral, got %f", m)
	}
	if NeutralMultiplier() != 1.0 {
		t.Fatal("neutral multiplier must be 1.0")
	}
}
