package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	CyclesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arb_cycles_total",
		Help: "Evaluation cycles run, by strategy",
	}, []string{"strategy"})

	VenueFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arb_venue_failures_total",
		Help: "Gateway calls that failed and excluded a venue from a cycle",
	}, []string{"venue"})

	OpportunitiesFound = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arb_opportunities_total",
		Help: "Profitable opportunities emitted, by strategy",
	}, []string{"strategy"})

	SnapshotVenues = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arb_snapshot_venues",
		Help: "Venues that answered in the most recent snapshot",
	})

	CycleLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "arb_cycle_latency_seconds",
		Help:    "Wall time of a full evaluation cycle",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		CyclesTotal,
		VenueFailures,
		OpportunitiesFound,
		SnapshotVenues,
		CycleLatency,
	)
}
