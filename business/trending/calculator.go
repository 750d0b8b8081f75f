package trending

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"stumbleDiscovery/domain"
	"stumbleDiscovery/pkg/logger"
	"stumbleDiscovery/pkg/metrics"
)

// Interaction weights for the velocity numerator. Likes and saves count more
// than raw views; skips are a penalty.
const (
	weightView = 1.0
	weightLike = 4.0
	weightSave = 6.0
	weightSkip = 2.0
)

// retentionFactor: records older than retention × window span are pruned in
// the same recompute pass.
const retentionFactor = 4

// EngagementRepository supplies raw interaction aggregates for a window.
type EngagementRepository interface {
	EngagementSince(ctx context.Context, since time.Time) ([]domain.EngagementSample, error)
}

// TrendingRepository persists window results as an idempotent whole-window
// replace.
type TrendingRepository interface {
	ReplaceWindow(ctx context.Context, window string, records []domain.TrendingRecord, staleBefore time.Time) error
	ListWindow(ctx context.Context, window string, limit int) ([]domain.TrendingRecord, error)
}

// Cache is the fast-read copy of each window's ranked list.
type Cache interface {
	SetWindow(ctx context.Context, window string, records []domain.TrendingRecord) error
	GetWindow(ctx context.Context, window string, limit int) ([]domain.TrendingRecord, error)
}

type Calculator struct {
	engagementRepo EngagementRepository
	trendingRepo   TrendingRepository
	cache          Cache
	now            func() time.Time
}

func NewCalculator(engagementRepo EngagementRepository, trendingRepo TrendingRepository, cache Cache) *Calculator {
	return &Calculator{
		engagementRepo: engagementRepo,
		trendingRepo:   trendingRepo,
		cache:          cache,
		now:            time.Now,
	}
}

// Recompute rebuilds one window's trending records: velocity per content
// item, whole-window replace, stale-record prune, cache refresh. Idempotent,
// safe to re-run after a failure.
func (c *Calculator) Recompute(ctx context.Context, window string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if !domain.ValidWindow(window) {
		return fmt.Errorf("unknown trending window: %q", window)
	}

	now := c.now()
	span := domain.WindowDuration(window)
	since := now.Add(-span)

	samples, err := c.engagementRepo.EngagementSince(ctx, since)
	if err != nil {
		return fmt.Errorf("load engagement for %s window: %w", window, err)
	}

	records := c.velocities(samples, window, now)
	sort.Slice(records, func(i, j int) bool {
		return records[i].VelocityScore > records[j].VelocityScore
	})

	staleBefore := now.Add(-time.Duration(retentionFactor) * span)
	if err := c.trendingRepo.ReplaceWindow(ctx, window, records, staleBefore); err != nil {
		return fmt.Errorf("replace %s window: %w", window, err)
	}

	if c.cache != nil {
		if err := c.cache.SetWindow(ctx, window, records); err != nil {
			// cache is best-effort; the store remains the source of truth
			logger.Warn("trending cache refresh failed", "window", window, "error", err)
		}
	}

	metrics.BatchLastSuccess.WithLabelValues("trending", window).Set(float64(now.Unix()))
	logger.Info("trending recompute complete", "window", window, "records", len(records))

	return nil
}

// List reads the ranked window, cache first with a store fallback.
func (c *Calculator) List(ctx context.Context, window string, limit int) ([]domain.TrendingRecord, error) {
	if !domain.ValidWindow(window) {
		return nil, fmt.Errorf("unknown trending window: %q", window)
	}
	if limit <= 0 {
		limit = 20
	}

	if c.cache != nil {
		if recs, err := c.cache.GetWindow(ctx, window, limit); err == nil && len(recs) > 0 {
			return recs, nil
		}
	}

	recs, err := c.trendingRepo.ListWindow(ctx, window, limit)
	if err != nil {
		return nil, fmt.Errorf("list %s window: %w", window, err)
	}

	return recs, nil
}

// velocities folds raw samples into one record per content id.
func (c *Calculator) velocities(samples []domain.EngagementSample, window string, now time.Time) []domain.TrendingRecord {
	type tally struct {
		weighted float64
		views    int64
	}

	span := domain.WindowDuration(window)
	// recency half-life is a small fraction of the window, so a burst in the
	// last minutes outranks the same volume spread across the whole window
	halfLife := span / 6

	byContent := make(map[string]*tally)
	for _, s := range samples {
		t, ok := byContent[s.ContentID]
		if !ok {
			t = &tally{}
			byContent[s.ContentID] = t
		}

		w := actionWeight(s.Action)
		if w == 0 {
			continue
		}

		age := now.Sub(s.OccurredAt)
		if age < 0 {
			age = 0
		}
		decay := math.Exp(-math.Ln2 * float64(age) / float64(halfLife))

		t.weighted += w * float64(s.Count) * decay
		if s.Action == domain.InteractionShown {
			t.views += s.Count
		}
	}

	records := make([]domain.TrendingRecord, 0, len(byContent))
	for contentID, t := range byContent {
		records = append(records, domain.TrendingRecord{
			ContentID:     contentID,
			Window:        window,
			VelocityScore: velocity(t.weighted, t.views),
			ComputedAt:    now,
		})
	}

	return records
}

func actionWeight(action string) float64 {
	switch action {
	case domain.InteractionShown:
		return weightView
	case domain.InteractionLiked:
		return weightLike
	case domain.InteractionSaved:
		return weightSave
	case domain.InteractionShare:
		return weightSave
	case domain.InteractionSkip:
		return -weightSkip
	default:
		return 0
	}
}

// velocity normalizes weighted engagement by view volume, then adds a
// logarithmic volume boost so a moderately-engaging but heavily viewed item
// can still surface.
func velocity(weighted float64, views int64) float64 {
	if weighted <= 0 {
		return 0
	}

	denom := float64(views)
	if denom < 1 {
		denom = 1
	}

	rate := weighted / denom
	boost := 1.0 + math.Log1p(float64(views))/10.0

	return rate * boost
}
