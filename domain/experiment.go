package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Experiment lifecycle states.
const (
	ExperimentDraft     = "draft"
	ExperimentActive    = "active"
	ExperimentPaused    = "paused"
	ExperimentCompleted = "completed"
)

// Variant is one arm of an experiment: a name, a traffic slice, and the
// scoring-weight payload the discovery engine runs with for assigned users.
type Variant struct {
	Name       string            `json:"name"`
	Allocation int               `json:"allocation"` // percent of traffic
	Weights    datatypes.JSONMap `json:"weights"`
}

type Experiment struct {
	ID             string                       `gorm:"column:id;primaryKey" json:"id"`
	Name           string                       `gorm:"column:name;not null" json:"name"`
	Status         string                       `gorm:"column:status;not null;index" json:"status"`
	Variants       datatypes.JSONSlice[Variant] `gorm:"column:variants;type:jsonb" json:"variants"`
	WinningVariant string                       `gorm:"column:winning_variant" json:"winning_variant,omitempty"`
	HasAssignments bool                         `gorm:"column:has_assignments" json:"has_assignments"`
	CreatedAt      time.Time                    `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time                    `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Experiment) TableName() string {
	return "experiments"
}

// Assignment is the sticky (user, experiment) -> variant record.
type Assignment struct {
	UserID       uint      `gorm:"column:user_id;primaryKey" json:"user_id"`
	ExperimentID string    `gorm:"column:experiment_id;primaryKey" json:"experiment_id"`
	Variant      string    `gorm:"column:variant;not null" json:"variant"`
	Method       string    `gorm:"column:method" json:"method"`
	AssignedAt   time.Time `gorm:"column:assigned_at;autoCreateTime" json:"assigned_at"`
}

func (Assignment) TableName() string {
	return "experiment_assignments"
}

// ExperimentEvent is an append-only outcome row. Never updated.
type ExperimentEvent struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	ExperimentID string        `gorm:"column:experiment_id;not null;index" json:"experiment_id"`
	UserID       uint          `gorm:"column:user_id;not null" json:"user_id"`
	Variant      string        `gorm:"column:variant;not null" json:"variant"`
	EventType    string        `gorm:"column:event_type;not null" json:"event_type"`
	TimeToAction time.Duration `gorm:"column:time_to_action" json:"time_to_action"`
	CreatedAt    time.Time     `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (ExperimentEvent) TableName() string {
	return "experiment_events"
}

// VariantCounts are the raw per-variant aggregates metrics are computed from.
type VariantCounts struct {
	Variant string
	Shown   int64
	Engaged int64
}
