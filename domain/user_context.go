package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Interaction event types written by the interaction collaborator and logged
// through the feedback endpoint.
const (
	InteractionShown = "shown"
	InteractionLiked = "liked"
	InteractionSaved = "saved"
	InteractionShare = "shared"
	InteractionSkip  = "skipped"
)

type UserProfile struct {
	UserID          uint                        `gorm:"column:user_id;primaryKey" json:"user_id"`
	PreferredTopics datatypes.JSONSlice[string] `gorm:"column:preferred_topics;type:jsonb" json:"preferred_topics"`
	Wildness        int                         `gorm:"column:wildness" json:"wildness"` // 0..100
	CreatedAt       time.Time                   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time                   `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}

// Interaction is one append-only history row. Topics are denormalized from
// the content item at write time so history scans never join content.
type Interaction struct {
	ID        uint                        `gorm:"primaryKey" json:"id"`
	UserID    uint                        `gorm:"column:user_id;not null;index" json:"user_id"`
	ContentID string                      `gorm:"column:content_id;not null" json:"content_id"`
	Action    string                      `gorm:"column:action;not null" json:"action"`
	Topics    datatypes.JSONSlice[string] `gorm:"column:topics;type:jsonb" json:"topics"`
	CreatedAt time.Time                   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Interaction) TableName() string {
	return "interactions"
}

// UserContext is everything the scoring engine needs about the requesting
// user. SessionSeen is ephemeral, carried on the request, never persisted.
type UserContext struct {
	Profile     UserProfile
	History     []Interaction
	SessionSeen []string
}
