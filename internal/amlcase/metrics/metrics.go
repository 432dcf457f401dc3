package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the case module.
type Metrics struct {
	CasesOpened   *prometheus.CounterVec
	CasesClosed   prometheus.Counter
	STRsGenerated prometheus.Counter
}

// New creates a new Metrics instance with all case module metrics registered.
func New() *Metrics {
	return &Metrics{
		CasesOpened: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "coopaml_cases_opened_total",
			Help: "Total AML cases opened by case type",
		}, []string{"case_type"}),

		CasesClosed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "coopaml_cases_closed_total",
			Help: "Total AML cases closed",
		}),

		STRsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "coopaml_strs_generated_total",
			Help: "Total STR artifacts generated",
		}),
	}
}

// IncrementCasesOpened records an opened case.
func (m *Metrics) IncrementCasesOpened(caseType string) {
	if m != nil {
		m.CasesOpened.WithLabelValues(caseType).Inc()
	}
}

// IncrementCasesClosed records a closed case.
func (m *Metrics) IncrementCasesClosed() {
	if m != nil {
		m.CasesClosed.Inc()
	}
}

// IncrementSTRsGenerated records a generated STR artifact.
func (m *Metrics) IncrementSTRsGenerated() {
	if m != nil {
		m.STRsGenerated.Inc()
	}
}
