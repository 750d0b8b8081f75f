package reputation

import (
	"context"
	"time"

	"stumbleDiscovery/pkg/logger"
	"stumbleDiscovery/pkg/metrics"
)

// Runner drives the scheduled full-catalog reputation recompute. The
// moderation hook already refreshes single domains inline; this sweep picks
// up engagement drift and domains the hook missed.
type Runner struct {
	agg      *Aggregator
	interval time.Duration
}

func NewRunner(agg *Aggregator, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Runner{agg: agg, interval: interval}
}

// Start blocks until ctx is cancelled. Run it on its own goroutine.
func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.Info("reputation runner stopped")
			return
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	// RecomputeAll records per-domain batch metrics itself; the runner only
	// reports a sweep that failed outright.
	if err := r.agg.RecomputeAll(ctx); err != nil {
		logger.Error("reputation recompute failed", "error", err)
		metrics.BatchRunsTotal.WithLabelValues("reputation", "sweep", "error").Inc()
	}
}
