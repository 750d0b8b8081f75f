package reputation

import (
	"context"
	"fmt"
	"math"
	"time"

	"stumbleDiscovery/domain"
	"stumbleDiscovery/pkg/logger"
	"stumbleDiscovery/pkg/metrics"
)

// Blacklist thresholds. A domain meeting any one of these is excluded from
// the candidate pool entirely.
const (
	blacklistFlaggedCount   = 5
	blacklistRejectionRatio = 0.8
	blacklistReputationMin  = 0.2
)

// trustPriorWeight is the pseudo-count pulling low-volume domains toward a
// neutral 0.5 trust instead of letting three approvals read as perfection.
const trustPriorWeight = 10.0

// activityHalfLifeDays decays reputation for domains with no recent
// submissions.
const activityHalfLifeDays = 90.0

// StatsRepository produces the raw per-domain aggregates a recompute starts
// from.
type StatsRepository interface {
	DomainStats(ctx context.Context, domainKey string) (domain.DomainStats, error)
	AllDomainStats(ctx context.Context) ([]domain.DomainStats, error)
}

// ReputationRepository persists the computed records.
type ReputationRepository interface {
	Upsert(ctx context.Context, rec domain.DomainReputation) error
}

type Aggregator struct {
	statsRepo StatsRepository
	repRepo   ReputationRepository
	now       func() time.Time
}

func NewAggregator(statsRepo StatsRepository, repRepo ReputationRepository) *Aggregator {
	return &Aggregator{
		statsRepo: statsRepo,
		repRepo:   repRepo,
		now:       time.Now,
	}
}

// Recompute rebuilds and persists one domain's reputation record. Invoked
// incrementally from the moderation hook and per-domain from the batch pass.
func (a *Aggregator) Recompute(ctx context.Context, domainKey string) (domain.DomainReputation, error) {
	if err := ctx.Err(); err != nil {
		return domain.DomainReputation{}, fmt.Errorf("context error: %w", err)
	}

	stats, err := a.statsRepo.DomainStats(ctx, domainKey)
	if err != nil {
		return domain.DomainReputation{}, fmt.Errorf("load domain stats: %w", err)
	}

	rec := a.compute(stats)

	if err := a.repRepo.Upsert(ctx, rec); err != nil {
		return domain.DomainReputation{}, fmt.Errorf("persist reputation: %w", err)
	}

	return rec, nil
}

// RecomputeAll runs the scheduled full pass. Failures are isolated per
// domain: one bad domain is logged and skipped, the rest still update.
func (a *Aggregator) RecomputeAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	all, err := a.statsRepo.AllDomainStats(ctx)
	if err != nil {
		return fmt.Errorf("load domain stats: %w", err)
	}

	failed := 0
	for _, stats := range all {
		rec := a.compute(stats)
		if err := a.repRepo.Upsert(ctx, rec); err != nil {
			failed++
			logger.Error("reputation upsert failed", "domain", stats.Domain, "error", err)
			metrics.BatchRunsTotal.WithLabelValues("reputation", "domain", "error").Inc()
			continue
		}
		metrics.BatchRunsTotal.WithLabelValues("reputation", "domain", "ok").Inc()
	}

	metrics.BatchLastSuccess.WithLabelValues("reputation", "all").Set(float64(a.now().Unix()))
	logger.Info("reputation batch complete", "domains", len(all), "failed", failed)

	return nil
}

// compute derives the full record from raw stats. Pure, so the scoring rules
// are testable without a store.
func (a *Aggregator) compute(stats domain.DomainStats) domain.DomainReputation {
	now := a.now()

	trust := trustScore(stats.ApprovedCount, stats.RejectedCount)
	engagement := engagementFactor(stats)
	recency := activityRecencyFactor(stats.LastSubmissionAt, now)

	repScore := trust * engagement * recency

	rec := domain.DomainReputation{
		Domain:           stats.Domain,
		TrustScore:       trust,
		ReputationScore:  repScore,
		EngagementFactor: engagement,
		ApprovedCount:    stats.ApprovedCount,
		RejectedCount:    stats.RejectedCount,
		FlaggedCount:     stats.FlaggedCount,
		LastSubmissionAt: stats.LastSubmissionAt,
		ComputedAt:       now,
	}
	rec.Blacklisted = isBlacklisted(rec)

	return rec
}

// trustScore is the approval ratio shrunk toward 0.5 by a fixed prior, so
// small-sample domains stay near neutral.
func trustScore(approved, rejected int64) float64 {
	total := float64(approved + rejected)
	return (float64(approved) + 0.5*trustPriorWeight) / (total + trustPriorWeight)
}

// engagementFactor maps weighted per-view engagement into (0, 1], neutral at
// 0.5 for domains with no view history.
func engagementFactor(stats domain.DomainStats) float64 {
	if stats.TotalViews == 0 {
		return 0.5
	}

	weighted := 2.0*float64(stats.TotalLikes) + 3.0*float64(stats.TotalSaves) - 0.5*float64(stats.TotalSkips)
	rate := weighted / float64(stats.TotalViews)
	if rate < 0 {
		rate = 0
	}

	// 1 - e^-x saturates toward 1 for highly engaging domains
	return 0.25 + 0.75*(1.0-math.Exp(-2.0*rate))
}

// activityRecencyFactor decays reputation for dormant domains with a 90-day
// half-life; never below a 0.3 floor so a long-quiet good domain is not
// erased outright.
func activityRecencyFactor(lastSubmission, now time.Time) float64 {
	if lastSubmission.IsZero() {
		// never-submitted domain: treat as new, not dormant
		return 1.0
	}

	idleDays := now.Sub(lastSubmission).Hours() / 24.0
	if idleDays <= 0 {
		return 1.0
	}

	decay := math.Exp(-math.Ln2 * idleDays / activityHalfLifeDays)
	if decay < 0.3 {
		return 0.3
	}
	return decay
}

func isBlacklisted(rec domain.DomainReputation) bool {
	if rec.FlaggedCount >= blacklistFlaggedCount {
		return true
	}

	moderated := rec.ApprovedCount + rec.RejectedCount
	if moderated > 0 {
		rejectionRatio := float64(rec.RejectedCount) / float64(moderated)
		if rejectionRatio >= blacklistRejectionRatio {
			return true
		}
	}

	return rec.ReputationScore < blacklistReputationMin
}

// Multiplier maps a reputation record to the scoring multiplier, clamped to
// [0.8, 1.2] so reputation alone can neither silence nor dominate.
func Multiplier(rec domain.DomainReputation) float64 {
	m := 0.8 + 0.4*rec.ReputationScore
	if m < 0.8 {
		return 0.8
	}
	if m > 1.2 {
		return 1.2
	}
	return m
}

// NeutralMultiplier is used for domains with no reputation record yet.
func NeutralMultiplier() float64 {
	return 1.0
}
