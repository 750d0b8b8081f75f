package trending

import (
	"context"
	"time"

	"stumbleDiscovery/domain"
	"stumbleDiscovery/pkg/logger"
	"stumbleDiscovery/pkg/metrics"
)

// Runner drives the scheduled recompute. One runner per process; windows are
// computed sequentially within a tick but fail independently.
type Runner struct {
	calc     *Calculator
	interval time.Duration
}

func NewRunner(calc *Calculator, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Runner{calc: calc, interval: interval}
}

// Start blocks until ctx is cancelled. Run it on its own goroutine.
func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// first pass immediately so a fresh deploy serves trending without
	// waiting a full interval
	r.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.Info("trending runner stopped")
			return
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	for _, window := range []string{domain.WindowHour, domain.WindowDay, domain.WindowWeek} {
		if ctx.Err() != nil {
			return
		}
		if err := r.calc.Recompute(ctx, window); err != nil {
			// one window failing must not block the others; the next tick
			// retries
			logger.Error("trending recompute failed", "window", window, "error", err)
			metrics.BatchRunsTotal.WithLabelValues("trending", window, "error").Inc()
			continue
		}
		metrics.BatchRunsTotal.WithLabelValues("trending", window, "ok").Inc()
	}
}
