package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stumbleDiscovery/business/discovery"
	"stumbleDiscovery/domain"
)

type ContentRepository struct {
	DB *gorm.DB
}

func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{DB: db}
}

// FetchCandidates runs the push-down candidate query: active content,
// blacklisted domains excluded, session-seen and interaction-history ids
// excluded, all inside the query itself. The topic order hint surfaces
// preference-overlapping items first without hard-filtering the pool.
func (r *ContentRepository) FetchCandidates(ctx context.Context, q discovery.CandidateQuery) ([]domain.ContentItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var items []domain.ContentItem
	if err := r.candidateQuery(ctx, q).Find(&items).Error; err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &domain.CandidateFetchTimeoutError{Err: err}
		}
		return nil, fmt.Errorf("failed to fetch candidates: %w", err)
	}

	return items, nil
}

// candidateQuery builds the push-down statement. Topic lists bind as a
// single text[] parameter; gorm would otherwise expand a plain []string
// into a row constructor, which jsonb_exists_any cannot take.
func (r *ContentRepository) candidateQuery(ctx context.Context, q discovery.CandidateQuery) *gorm.DB {
	db := r.DB.WithContext(ctx).
		Model(&domain.ContentItem{}).
		Where("active = ?", true).
		Where("domain NOT IN (?)",
			r.DB.Model(&domain.DomainReputation{}).
				Select("domain").
				Where("blacklisted = ?", true),
		).
		Where("id NOT IN (?)",
			r.DB.Model(&domain.Interaction{}).
				Select("content_id").
				Where("user_id = ?", q.UserID),
		)

	if len(q.SessionSeen) > 0 {
		db = db.Where("id NOT IN ?", q.SessionSeen)
	}

	if len(q.PreferTopics) > 0 {
		db = db.Clauses(clause.OrderBy{
			Expression: clause.Expr{
				SQL:  "jsonb_exists_any(topics, ?::text[]) DESC, quality_score DESC",
				Vars: []interface{}{pq.StringArray(q.PreferTopics)},
			},
		})
	} else {
		db = db.Order("quality_score DESC")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	return db.Limit(limit)
}

func (r *ContentRepository) FindByID(ctx context.Context, id string) (domain.ContentItem, error) {
	if err := ctx.Err(); err != nil {
		return domain.ContentItem{}, fmt.Errorf("context error: %w", err)
	}

	var item domain.ContentItem
	err := r.DB.WithContext(ctx).First(&item, "id = ?", id).Error
	if err != nil {
		return domain.ContentItem{}, fmt.Errorf("failed to find content: %w", err)
	}

	return item, nil
}

// FindWithAnyTopic is the index-backed pre-filter for similarity search:
// active items sharing at least one topic with the reference set.
func (r *ContentRepository) FindWithAnyTopic(ctx context.Context, topics []string, excludeID string, limit int) ([]domain.ContentItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	if len(topics) == 0 {
		return []domain.ContentItem{}, nil
	}

	var items []domain.ContentItem
	if err := r.topicOverlapQuery(ctx, topics, excludeID, limit).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to find topic-overlapping content: %w", err)
	}

	return items, nil
}

func (r *ContentRepository) topicOverlapQuery(ctx context.Context, topics []string, excludeID string, limit int) *gorm.DB {
	if limit <= 0 {
		limit = 200
	}

	return r.DB.WithContext(ctx).
		Model(&domain.ContentItem{}).
		Where("active = ?", true).
		Where("id <> ?", excludeID).
		Where("jsonb_exists_any(topics, ?::text[])", pq.StringArray(topics)).
		Limit(limit)
}

type topicCountRow struct {
	Topic string
	Count int64
}

// TopicCounts returns how many active items carry each topic, plus the
// total active item count, for IDF weighting.
func (r *ContentRepository) TopicCounts(ctx context.Context) (map[string]int64, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, fmt.Errorf("context error: %w", err)
	}

	var rows []topicCountRow
	err := r.DB.WithContext(ctx).Raw(`
		SELECT t.topic AS topic, COUNT(*) AS count
		FROM content_items, jsonb_array_elements_text(topics) AS t(topic)
		WHERE active = true
		GROUP BY t.topic
	`).Scan(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to aggregate topic counts: %w", err)
	}

	var total int64
	err = r.DB.WithContext(ctx).
		Model(&domain.ContentItem{}).
		Where("active = ?", true).
		Count(&total).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count active content: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Topic] = row.Count
	}

	return counts, total, nil
}
