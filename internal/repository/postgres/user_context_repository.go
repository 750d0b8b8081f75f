package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"stumbleDiscovery/domain"
)

// historyWindow bounds how many recent interactions feed personalization
// and diversity scoring.
const historyWindow = 50

type UserContextRepository struct {
	DB *gorm.DB
}

func NewUserContextRepository(db *gorm.DB) *UserContextRepository {
	return &UserContextRepository{DB: db}
}

// GetUserContext loads the profile plus the recent interaction history. A
// user without a stored profile gets neutral defaults so first-time
// discovery still works.
func (r *UserContextRepository) GetUserContext(ctx context.Context, userID uint) (domain.UserContext, error) {
	if err := ctx.Err(); err != nil {
		return domain.UserContext{}, fmt.Errorf("context error: %w", err)
	}

	var profile domain.UserProfile
	err := r.DB.WithContext(ctx).First(&profile, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		profile = domain.UserProfile{
			UserID:   userID,
			Wildness: 30,
		}
	} else if err != nil {
		return domain.UserContext{}, fmt.Errorf("failed to load user profile: %w", err)
	}

	var history []domain.Interaction
	err = r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(historyWindow).
		Find(&history).Error
	if err != nil {
		return domain.UserContext{}, fmt.Errorf("failed to load interaction history: %w", err)
	}

	return domain.UserContext{
		Profile: profile,
		History: history,
	}, nil
}
