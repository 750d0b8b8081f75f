package domain

import "time"

// Moderation outcomes recorded through the moderation hook.
const (
	ModerationApproved = "approved"
	ModerationRejected = "rejected"
	ModerationFlagged  = "flagged"
)

// ModerationDecision is one outcome delivered by the moderation
// collaborator. Reputation aggregates are derived from these rows.
type ModerationDecision struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Domain    string    `gorm:"column:domain;not null;index" json:"domain"`
	ContentID string    `gorm:"column:content_id" json:"content_id"`
	Decision  string    `gorm:"column:decision;not null" json:"decision"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (ModerationDecision) TableName() string {
	return "moderation_decisions"
}
