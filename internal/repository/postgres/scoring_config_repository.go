package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"stumbleDiscovery/domain"
)

type ScoringConfigRepository struct {
	DB *gorm.DB
}

func NewScoringConfigRepository(db *gorm.DB) *ScoringConfigRepository {
	return &ScoringConfigRepository{DB: db}
}

func (r *ScoringConfigRepository) GetActive(ctx context.Context) (domain.ScoringConfig, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.ScoringConfig{}, false, fmt.Errorf("context error: %w", err)
	}

	var cfg domain.ScoringConfig
	err := r.DB.WithContext(ctx).
		Where("active = ?", true).
		Order("version DESC").
		First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ScoringConfig{}, false, nil
	}
	if err != nil {
		return domain.ScoringConfig{}, false, fmt.Errorf("failed to load scoring config: %w", err)
	}

	return cfg, true, nil
}

// Upsert deactivates previous configs and stores the new one as active, so
// exactly one row is live at a time.
func (r *ScoringConfigRepository) Upsert(ctx context.Context, cfg domain.ScoringConfig) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&domain.ScoringConfig{}).
			Where("active = ?", true).
			Update("active", false).Error
		if err != nil {
			return fmt.Errorf("failed to deactivate scoring configs: %w", err)
		}

		cfg.Active = true
		if err := tx.Create(&cfg).Error; err != nil {
			return fmt.Errorf("failed to create scoring config: %w", err)
		}

		return nil
	})
}
