package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

// Metrics provides observability for balance reads, permits and the session.
type Metrics struct {
	// Balance reads by chain and outcome
	BalanceReads *prometheus.CounterVec

	// Permit outcomes by chain and result
	PermitOutcomes *prometheus.CounterVec

	// Session state transitions
	StateTransitions *prometheus.CounterVec

	// Results dropped because the session moved on (balances, ownership, permit)
	StaleResults *prometheus.CounterVec

	RefreshLatency prometheus.Histogram
}

// New registers all metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		BalanceReads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "permit_gateway_balance_reads_total",
			Help: "Token balance reads by chain and outcome",
		}, []string{"chain", "outcome"}),

		PermitOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "permit_gateway_permit_outcomes_total",
			Help: "Permit signing outcomes by chain and result",
		}, []string{"chain", "result"}),

		StateTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "permit_gateway_session_transitions_total",
			Help: "Wallet session state transitions",
		}, []string{"from", "to"}),

		StaleResults: f.NewCounterVec(prometheus.CounterOpts{
			Name: "permit_gateway_stale_results_total",
			Help: "Late results dropped because the session moved on",
		}, []string{"kind"}),

		RefreshLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "permit_gateway_balance_refresh_duration_seconds",
			Help:    "Duration of a full multi-chain balance refresh",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

func (m *Metrics) IncrementBalanceRead(chainID uint64, outcome string) {
	if m != nil {
		m.BalanceReads.WithLabelValues(chainLabel(chainID), outcome).Inc()
	}
}

func (m *Metrics) IncrementPermit(chainID uint64, result string) {
	if m != nil {
		m.PermitOutcomes.WithLabelValues(chainLabel(chainID), result).Inc()
	}
}

func (m *Metrics) IncrementTransition(from, to string) {
	if m != nil {
		m.StateTransitions.WithLabelValues(from, to).Inc()
	}
}

func (m *Metrics) IncrementStale(kind string) {
	if m != nil {
		m.StaleResults.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) ObserveRefreshLatency(d time.Duration) {
	if m != nil {
		m.RefreshLatency.Observe(d.Seconds())
	}
}

func chainLabel(chainID uint64) string {
	return strconv.FormatUint(chainID, 10)
}
