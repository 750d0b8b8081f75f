package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"stumbleDiscovery/domain"
)

type InteractionRepository struct {
	DB *gorm.DB
}

func NewInteractionRepository(db *gorm.DB) *InteractionRepository {
	return &InteractionRepository{DB: db}
}

func (r *InteractionRepository) Save(ctx context.Context, interaction domain.Interaction) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(&interaction).Error; err != nil {
		return fmt.Errorf("failed to save interaction: %w", err)
	}

	return nil
}

// EngagementSince returns interaction counts grouped by content, action,
// and minute of occurrence, feeding the trending velocity computation.
// Minute granularity keeps the result small while preserving enough
// resolution for recency decay.
func (r *InteractionRepository) EngagementSince(ctx context.Context, since time.Time) ([]domain.EngagementSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var samples []domain.EngagementSample
	err := r.DB.WithContext(ctx).Raw(`
		SELECT content_id,
		       action,
		       COUNT(*) AS count,
		       date_trunc('minute', created_at) AS occurred_at
		FROM interactions
		WHERE created_at >= ?
		GROUP BY content_id, action, date_trunc('minute', created_at)
	`, since).Scan(&samples).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate engagement: %w", err)
	}

	return samples, nil
}
