package domain

import "time"

// Trending windows. Each window is recomputed independently.
const (
	WindowHour = "hour"
	WindowDay  = "day"
	WindowWeek = "week"
)

// ValidWindow reports whether w names a supported trending window.
func ValidWindow(w string) bool {
	return w == WindowHour || w == WindowDay || w == WindowWeek
}

// WindowDuration maps a window name to its span.
func WindowDuration(w string) time.Duration {
	switch w {
	case WindowHour:
		return time.Hour
	case WindowDay:
		return 24 * time.Hour
	case WindowWeek:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// TrendingRecord is one (content, window) velocity snapshot. At most one row
// per pair; a recompute is a whole-record replace.
type TrendingRecord struct {
	ContentID     string    `gorm:"column:content_id;primaryKey" json:"content_id"`
	Window        string    `gorm:"column:window;primaryKey" json:"window"`
	VelocityScore float64   `gorm:"column:velocity_score;index" json:"velocity_score"`
	ComputedAt    time.Time `gorm:"column:computed_at" json:"computed_at"`
}

func (TrendingRecord) TableName() string {
	return "trending_records"
}

// EngagementSample is one interaction aggregate used by the trending
// recompute: counts bucketed by content id and event age inside the window.
type EngagementSample struct {
	ContentID  string
	Action     string
	Count      int64
	OccurredAt time.Time
}
