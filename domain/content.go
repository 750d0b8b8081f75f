package domain

import (
	"time"

	"gorm.io/datatypes"
)

// ContentItem is an ingested page eligible for discovery. The ranking engine
// never mutates these rows; engagement counters and the active flag are owned
// by external collaborators.
type ContentItem struct {
	ID           string                      `gorm:"column:id;primaryKey" json:"id"`
	URL          string                      `gorm:"column:url;not null" json:"url"`
	Title        string                      `gorm:"column:title" json:"title"`
	Topics       datatypes.JSONSlice[string] `gorm:"column:topics;type:jsonb" json:"topics"`
	Domain       string                      `gorm:"column:domain;not null;index" json:"domain"`
	QualityScore float64                     `gorm:"column:quality_score" json:"quality_score"`
	PublishedAt  time.Time                   `gorm:"column:published_at" json:"published_at"`
	Views        int64                       `gorm:"column:views" json:"views"`
	Likes        int64                       `gorm:"column:likes" json:"likes"`
	Saves        int64                       `gorm:"column:saves" json:"saves"`
	Skips        int64                       `gorm:"column:skips" json:"skips"`
	Active       bool                        `gorm:"column:active;index" json:"active"`
	CreatedAt    time.Time                   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (ContentItem) TableName() string {
	return "content_items"
}

// AgeDays is the content age measured from its freshness timestamp.
func (c ContentItem) AgeDays(now time.Time) float64 {
	return now.Sub(c.PublishedAt).Hours() / 24.0
}
