package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Latency of the discovery select-next HTTP handler
	DiscoverySelectLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "discovery_select_latency_seconds",
		Help:    "Latency of the discovery next-item handler",
		Buckets: prometheus.DefBuckets,
	})

	// Total discovery requests served, by outcome (ok, empty, timeout, error)
	DiscoveryRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "discovery_requests_total",
		Help: "Total discovery requests by outcome",
	}, []string{"outcome"})

	// Selections by the dominant scoring factor named in the rationale
	DiscoverySelectionsByFactor = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "discovery_selections_by_factor_total",
		Help: "Selected items by dominant scoring factor",
	}, []string{"factor"})

	// Batch recompute outcomes for trending and reputation jobs
	BatchRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "discovery_batch_runs_total",
		Help: "Batch recompute runs by job, unit, and result",
	}, []string{"job", "unit", "result"})

	BatchLastSuccess = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "discovery_batch_last_success_timestamp_seconds",
		Help: "Unix time of the last successful batch run per job and unit",
	}, []string{"job", "unit"})
)

func Init() {
	prometheus.MustRegister(
		DiscoverySelectLatency,
		DiscoveryRequestsTotal,
		DiscoverySelectionsByFactor,
		BatchRunsTotal,
		BatchLastSuccess,
	)
}
