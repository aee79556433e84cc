package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersByLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncrementBalanceRead(56, OutcomeOK)
	m.IncrementBalanceRead(56, OutcomeOK)
	m.IncrementBalanceRead(137, OutcomeError)
	m.IncrementPermit(8453, OutcomeOK)
	m.IncrementTransition("connecting", "connected")
	m.IncrementStale("permit")
	m.ObserveRefreshLatency(150 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.BalanceReads.WithLabelValues("56", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BalanceReads.WithLabelValues("137", OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PermitOutcomes.WithLabelValues("8453", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaleResults.WithLabelValues("permit")))

	n, err := testutil.GatherAndCount(reg, "permit_gateway_balance_refresh_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementBalanceRead(1, OutcomeOK)
		m.IncrementPermit(1, OutcomeError)
		m.IncrementTransition("a", "b")
		m.IncrementStale("balances")
		m.ObserveRefreshLatency(time.Second)
	})
}
