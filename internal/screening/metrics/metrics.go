package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the screening module.
type Metrics struct {
	// Flags created by list type
	FlagsCreated *prometheus.CounterVec

	// Flags suppressed by the pending-dedup guard
	FlagsDeduplicated prometheus.Counter

	// Members screened during batch rescreens, by outcome
	RescreenMembers *prometheus.CounterVec

	// Full batch rescreen duration
	RescreenDuration prometheus.Histogram
}

// New creates a new Metrics instance with all screening module metrics registered.
func New() *Metrics {
	return &Metrics{
		FlagsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "coopaml_screening_flags_created_total",
			Help: "Total AML flags created by sanction list type",
		}, []string{"list_type"}),

		FlagsDeduplicated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "coopaml_screening_flags_deduplicated_total",
			Help: "Total flag creations suppressed because a pending flag for the pairing already existed",
		}),

		RescreenMembers: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "coopaml_screening_rescreen_members_total",
			Help: "Members processed during batch rescreens by outcome",
		}, []string{"outcome"}), // outcome: "screened", "failed"

		RescreenDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "coopaml_screening_rescreen_duration_seconds",
			Help:    "Duration of full tenant batch rescreens",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}

// IncrementFlagsCreated records a persisted flag.
func (m *Metrics) IncrementFlagsCreated(listType string) {
	if m != nil {
		m.FlagsCreated.WithLabelValues(listType).Inc()
	}
}

// IncrementFlagsDeduplicated records a flag suppressed by the dedup guard.
func (m *Metrics) IncrementFlagsDeduplicated() {
	if m != nil {
		m.FlagsDeduplicated.Inc()
	}
}

// IncrementRescreenMembers records a member processed during a rescreen.
func (m *Metrics) IncrementRescreenMembers(outcome string) {
	if m != nil {
		m.RescreenMembers.WithLabelValues(outcome).Inc()
	}
}

// ObserveRescreenDuration records the duration of a batch rescreen.
func (m *Metrics) ObserveRescreenDuration(d time.Duration) {
	if m != nil {
		m.RescreenDuration.Observe(d.Seconds())
	}
}
