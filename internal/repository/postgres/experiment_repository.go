package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stumbleDiscovery/domain"
)

type ExperimentRepository struct {
	DB *gorm.DB
}

func NewExperimentRepository(db *gorm.DB) *ExperimentRepository {
	return &ExperimentRepository{DB: db}
}

func (r *ExperimentRepository) Create(ctx context.Context, exp domain.Experiment) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(&exp).Error; err != nil {
		return fmt.Errorf("failed to create experiment: %w", err)
	}

	return nil
}

func (r *ExperimentRepository) GetByID(ctx context.Context, id string) (domain.Experiment, error) {
	if err := ctx.Err(); err != nil {
		return domain.Experiment{}, fmt.Errorf("context error: %w", err)
	}

	var exp domain.Experiment
	err := r.DB.WithContext(ctx).First(&exp, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Experiment{}, domain.ErrExperimentNotFound
		}
		return domain.Experiment{}, fmt.Errorf("failed to find experiment: %w", err)
	}

	return exp, nil
}

func (r *ExperimentRepository) List(ctx context.Context) ([]domain.Experiment, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var exps []domain.Experiment
	err := r.DB.WithContext(ctx).Order("created_at DESC").Find(&exps).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list experiments: %w", err)
	}

	return exps, nil
}

func (r *ExperimentRepository) ListByStatus(ctx context.Context, status string) ([]domain.Experiment, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var exps []domain.Experiment
	err := r.DB.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&exps).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list experiments by status: %w", err)
	}

	return exps, nil
}

func (r *ExperimentRepository) Update(ctx context.Context, exp domain.Experiment) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	result := r.DB.WithContext(ctx).Model(&domain.Experiment{}).
		Where("id = ?", exp.ID).
		Updates(map[string]interface{}{
			"status":          exp.Status,
			"winning_variant": exp.WinningVariant,
			"has_assignments": exp.HasAssignments,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update experiment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrExperimentNotFound
	}

	return nil
}

func (r *ExperimentRepository) GetAssignment(ctx context.Context, userID uint, experimentID string) (*domain.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var assignment domain.Assignment
	err := r.DB.WithContext(ctx).
		First(&assignment, "user_id = ? AND experiment_id = ?", userID, experimentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find assignment: %w", err)
	}

	return &assignment, nil
}

// InsertAssignment never overwrites: an existing (user, experiment) row wins
// the race and the caller gets ErrAssignmentConflict to re-read.
func (r *ExperimentRepository) InsertAssignment(ctx context.Context, assignment domain.Assignment) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	result := r.DB.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "experiment_id"}},
			DoNothing: true,
		},
	).Create(&assignment)
	if result.Error != nil {
		return fmt.Errorf("failed to insert assignment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrAssignmentConflict
	}

	return nil
}

func (r *ExperimentRepository) AppendEvent(ctx context.Context, event domain.ExperimentEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(&event).Error; err != nil {
		return fmt.Errorf("failed to append experiment event: %w", err)
	}

	return nil
}

// VariantCounts folds the raw event log into per-variant shown/engaged
// totals in one grouped query.
func (r *ExperimentRepository) VariantCounts(ctx context.Context, experimentID string) ([]domain.VariantCounts, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var counts []domain.VariantCounts
	err := r.DB.WithContext(ctx).Raw(`
		SELECT variant,
		       COUNT(*) FILTER (WHERE event_type = 'shown') AS shown,
		       COUNT(*) FILTER (WHERE event_type IN ('liked', 'saved', 'shared')) AS engaged
		FROM experiment_events
		WHERE experiment_id = ?
		GROUP BY variant
	`, experimentID).Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate variant counts: %w", err)
	}

	return counts, nil
}
