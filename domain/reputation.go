package domain

import "time"

// DomainReputation is the cached trust/quality aggregate per source domain.
// Written only by the reputation batch (or the moderation hook), read by the
// scoring path as a plain lookup.
type DomainReputation struct {
	Domain           string    `gorm:"column:domain;primaryKey" json:"domain"`
	TrustScore       float64   `gorm:"column:trust_score" json:"trust_score"`
	ReputationScore  float64   `gorm:"column:reputation_score" json:"reputation_score"`
	EngagementFactor float64   `gorm:"column:engagement_factor" json:"engagement_factor"`
	Blacklisted      bool      `gorm:"column:blacklisted;index" json:"blacklisted"`
	ApprovedCount    int64     `gorm:"column:approved_count" json:"approved_count"`
	RejectedCount    int64     `gorm:"column:rejected_count" json:"rejected_count"`
	FlaggedCount     int64     `gorm:"column:flagged_count" json:"flagged_count"`
	LastSubmissionAt time.Time `gorm:"column:last_submission_at" json:"last_submission_at"`
	ComputedAt       time.Time `gorm:"column:computed_at" json:"computed_at"`
}

func (DomainReputation) TableName() string {
	return "domain_reputations"
}

// DomainStats are the raw aggregates a reputation recompute starts from,
// produced by a single grouped query over moderation outcomes and content
// engagement.
type DomainStats struct {
	Domain           string
	ApprovedCount    int64
	RejectedCount    int64
	FlaggedCount     int64
	TotalViews       int64
	TotalLikes       int64
	TotalSaves       int64
	TotalSkips       int64
	LastSubmissionAt time.Time
}
