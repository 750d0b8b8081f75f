package domain

import (
	"time"

	"gorm.io/datatypes"
)

// ScoringConfig is a versioned, DB-backed set of scoring-weight overrides.
// At most one row is active; the discovery engine falls back to compiled
// defaults when none is.
type ScoringConfig struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	Version   int               `gorm:"column:version;not null" json:"version"`
	Overrides datatypes.JSONMap `gorm:"column:overrides;type:jsonb" json:"overrides"`
	Active    bool              `gorm:"column:active;index" json:"active"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (ScoringConfig) TableName() string {
	return "scoring_configs"
}
