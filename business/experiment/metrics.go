package experiment

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "experiment_events_total",
			Help: "Count of recorded experiment events by variant and event_type.",
		},
		[]string{"variant", "event_type"},
	)

	eventDropsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "experiment_event_drops_total",
			Help: "Count of experiment events dropped by the best-effort logger.",
		},
		[]string{"event_type"},
	)
)

func init() {
	prometheus.MustRegister(eventsTotal, eventDropsTotal)
}
