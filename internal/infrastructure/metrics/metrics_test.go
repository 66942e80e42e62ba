package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestLedgerMetrics_Record(t *testing.T) {
	m := NewLedgerMetrics(prometheus.NewRegistry())

	m.RecordClick("recorded")
	m.RecordClick("recorded")
	m.RecordFraudAssessment("payment", "review", 45, true)
	m.RecordFloorHit("lifetime")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ClicksRecordedTotal.WithLabelValues("recorded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FraudAssessmentsTotal.WithLabelValues("payment", "review")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FraudEngineFailures.WithLabelValues("payment")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EarningsFloorHitsTotal.WithLabelValues("lifetime")))
}

func TestLedgerMetrics_NilSafe(t *testing.T) {
	var m *LedgerMetrics
	assert.NotPanics(t, func() {
		m.RecordClick("recorded")
		m.RecordIngest("payment.succeeded", "created")
		m.RecordOutbox("affiliate-events", 3, true)
	})
}
