package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the TTR module.
type Metrics struct {
	ReportsCreated prometheus.Counter
	Transitions    *prometheus.CounterVec
	XMLGenerated   prometheus.Counter
}

// New creates a new Metrics instance with all TTR module metrics registered.
func New() *Metrics {
	return &Metrics{
		ReportsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "coopaml_ttr_reports_created_total",
			Help: "Total TTR reports created from threshold crossings",
		}),

		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "coopaml_ttr_transitions_total",
			Help: "Total TTR status transitions by outcome",
		}, []string{"outcome"}), // outcome: "approved", "rejected"

		XMLGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "coopaml_ttr_xml_generated_total",
			Help: "Total TTR XML artifacts generated",
		}),
	}
}

// IncrementReportsCreated records a created report.
func (m *Metrics) IncrementReportsCreated() {
	if m != nil {
		m.ReportsCreated.Inc()
	}
}

// IncrementTransitions records a terminal transition.
func (m *Metrics) IncrementTransitions(outcome string) {
	if m != nil {
		m.Transitions.WithLabelValues(outcome).Inc()
	}
}

// IncrementXMLGenerated records a generated XML artifact.
func (m *Metrics) IncrementXMLGenerated() {
	if m != nil {
		m.XMLGenerated.Inc()
	}
}
