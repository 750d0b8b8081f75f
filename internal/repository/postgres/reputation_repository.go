package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stumbleDiscovery/domain"
)

type ReputationRepository struct {
	DB *gorm.DB
}

func NewReputationRepository(db *gorm.DB) *ReputationRepository {
	return &ReputationRepository{DB: db}
}

// Upsert is a deterministic whole-record replace, so racing batch writers
// cannot leave a merged partial state.
func (r *ReputationRepository) Upsert(ctx context.Context, rec domain.DomainReputation) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "domain"}},
			UpdateAll: true,
		},
	).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to upsert domain reputation: %w", err)
	}

	return nil
}

// GetByDomains is the batch lookup the scoring path uses; one query per
// request, never per candidate.
func (r *ReputationRepository) GetByDomains(ctx context.Context, domains []string) (map[string]domain.DomainReputation, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	if len(domains) == 0 {
		return map[string]domain.DomainReputation{}, nil
	}

	var recs []domain.DomainReputation
	err := r.DB.WithContext(ctx).
		Where("domain IN ?", domains).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to batch-load reputations: %w", err)
	}

	out := make(map[string]domain.DomainReputation, len(recs))
	for _, rec := range recs {
		out[rec.Domain] = rec
	}

	return out, nil
}

type moderationAggRow struct {
	Domain        string
	ApprovedCount int64
	RejectedCount int64
	FlaggedCount  int64
}

type engagementAggRow struct {
	Domain           string
	TotalViews       int64
	TotalLikes       int64
	TotalSaves       int64
	TotalSkips       int64
	LastSubmissionAt time.Time
}

// DomainStats assembles the raw aggregates for one domain.
func (r *ReputationRepository) DomainStats(ctx context.Context, domainKey string) (domain.DomainStats, error) {
	if err := ctx.Err(); err != nil {
		return domain.DomainStats{}, fmt.Errorf("context error: %w", err)
	}

	stats := domain.DomainStats{Domain: domainKey}

	var mod moderationAggRow
	err := r.DB.WithContext(ctx).Raw(`
		SELECT domain,
		       COUNT(*) FILTER (WHERE decision = 'approved') AS approved_count,
		       COUNT(*) FILTER (WHERE decision = 'rejected') AS rejected_count,
		       COUNT(*) FILTER (WHERE decision = 'flagged')  AS flagged_count
		FROM moderation_decisions
		WHERE domain = ?
		GROUP BY domain
	`, domainKey).Scan(&mod).Error
	if err != nil {
		return domain.DomainStats{}, fmt.Errorf("failed to aggregate moderation outcomes: %w", err)
	}
	stats.ApprovedCount = mod.ApprovedCount
	stats.RejectedCount = mod.RejectedCount
	stats.FlaggedCount = mod.FlaggedCount

	var eng engagementAggRow
	err = r.DB.WithContext(ctx).Raw(`
		SELECT domain,
		       COALESCE(SUM(views), 0) AS total_views,
		       COALESCE(SUM(likes), 0) AS total_likes,
		       COALESCE(SUM(saves), 0) AS total_saves,
		       COALESCE(SUM(skips), 0) AS total_skips,
		       COALESCE(MAX(published_at), 'epoch'::timestamptz) AS last_submission_at
		FROM content_items
		WHERE domain = ?
		GROUP BY domain
	`, domainKey).Scan(&eng).Error
	if err != nil {
		return domain.DomainStats{}, fmt.Errorf("failed to aggregate domain engagement: %w", err)
	}
	stats.TotalViews = eng.TotalViews
	stats.TotalLikes = eng.TotalLikes
	stats.TotalSaves = eng.TotalSaves
	stats.TotalSkips = eng.TotalSkips
	stats.LastSubmissionAt = eng.LastSubmissionAt

	return stats, nil
}

// AllDomainStats feeds the scheduled full batch: one grouped pass over each
// source table, merged in memory.
func (r *ReputationRepository) AllDomainStats(ctx context.Context) ([]domain.DomainStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var mods []moderationAggRow
	err := r.DB.WithContext(ctx).Raw(`
		SELECT domain,
		       COUNT(*) FILTER (WHERE decision = 'approved') AS approved_count,
		       COUNT(*) FILTER (WHERE decision = 'rejected') AS rejected_count,
		       COUNT(*) FILTER (WHERE decision = 'flagged')  AS flagged_count
		FROM moderation_decisions
		GROUP BY domain
	`).Scan(&mods).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate moderation outcomes: %w", err)
	}

	var engs []engagementAggRow
	err = r.DB.WithContext(ctx).Raw(`
		SELECT domain,
		       COALESCE(SUM(views), 0) AS total_views,
		       COALESCE(SUM(likes), 0) AS total_likes,
		       COALESCE(SUM(saves), 0) AS total_saves,
		       COALESCE(SUM(skips), 0) AS total_skips,
		       COALESCE(MAX(published_at), 'epoch'::timestamptz) AS last_submission_at
		FROM content_items
		GROUP BY domain
	`).Scan(&engs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate domain engagement: %w", err)
	}

	byDomain := make(map[string]*domain.DomainStats)
	for _, m := range mods {
		byDomain[m.Domain] = &domain.DomainStats{
			Domain:        m.Domain,
			ApprovedCount: m.ApprovedCount,
			RejectedCount: m.RejectedCount,
			FlaggedCount:  m.FlaggedCount,
		}
	}
	for _, e := range engs {
		stats, ok := byDomain[e.Domain]
		if !ok {
			stats = &domain.DomainStats{Domain: e.Domain}
			byDomain[e.Domain] = stats
		}
		stats.TotalViews = e.TotalViews
		stats.TotalLikes = e.TotalLikes
		stats.TotalSaves = e.TotalSaves
		stats.TotalSkips = e.TotalSkips
		stats.LastSubmissionAt = e.LastSubmissionAt
	}

	out := make([]domain.DomainStats, 0, len(byDomain))
	for _, stats := range byDomain {
		out = append(out, *stats)
	}

	return out, nil
}

// SaveDecision appends one moderation outcome delivered by the hook.
func (r *ReputationRepository) SaveDecision(ctx context.Context, decision domain.ModerationDecision) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(&decision).Error; err != nil {
		return fmt.Errorf("failed to save moderation decision: %w", err)
	}

	return nil
}
