package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stumbleDiscovery/domain"
)

type TrendingRepository struct {
	DB *gorm.DB
}

func NewTrendingRepository(db *gorm.DB) *TrendingRepository {
	return &TrendingRepository{DB: db}
}

// ReplaceWindow upserts the freshly computed records and prunes stale rows
// past the retention horizon in one transaction. Whole-record replace keeps
// concurrent recomputes idempotent.
func (r *TrendingRepository) ReplaceWindow(ctx context.Context, window string, records []domain.TrendingRecord, staleBefore time.Time) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(records) > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "content_id"}, {Name: "window"}},
				UpdateAll: true,
			}).CreateInBatches(records, 200).Error
			if err != nil {
				return fmt.Errorf("failed to upsert trending records: %w", err)
			}
		}

		err := tx.Where(`"window" = ? AND computed_at < ?`, window, staleBefore).
			Delete(&domain.TrendingRecord{}).Error
		if err != nil {
			return fmt.Errorf("failed to prune stale trending records: %w", err)
		}

		return nil
	})
}

func (r *TrendingRepository) ListWindow(ctx context.Context, window string, limit int) ([]domain.TrendingRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	if limit <= 0 {
		limit = 20
	}

	var records []domain.TrendingRecord
	err := r.DB.WithContext(ctx).
		Where(`"window" = ?`, window).
		Order("velocity_score DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list trending window: %w", err)
	}

	return records, nil
}
