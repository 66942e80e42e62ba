package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LedgerMetrics содержит все метрики атрибуции и леджера.
// Все Record* методы безопасны на nil-получателе.
type LedgerMetrics struct {
	// Атрибуция
	ClicksRecordedTotal *prometheus.CounterVec
	ConversionsTotal    *prometheus.CounterVec
	ClickReplaysTotal   prometheus.Counter

	// Комиссии
	CommissionsIngestedTotal   *prometheus.CounterVec
	CommissionAmountTotal      *prometheus.CounterVec
	CommissionTransitionsTotal *prometheus.CounterVec
	EarningsFloorHitsTotal     *prometheus.CounterVec

	// Антифрод
	FraudAssessmentsTotal *prometheus.CounterVec
	FraudScore            *prometheus.HistogramVec
	FraudEngineFailures   *prometheus.CounterVec

	// Сверка
	ReconciliationMismatchesTotal *prometheus.CounterVec
	ReconciliationRunDuration     *prometheus.HistogramVec

	// Вебхуки и outbox
	WebhookRequestsTotal *prometheus.CounterVec
	OutboxPublishedTotal *prometheus.CounterVec
	OutboxFailuresTotal  *prometheus.CounterVec
}

// NewLedgerMetrics регистрирует метрики в reg (prometheus.DefaultRegisterer, если nil)
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &LedgerMetrics{
		ClicksRecordedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "affiliate_clicks_recorded_total",
				Help: "Attribution clicks by result",
			},
			[]string{"result"},
		),
		ConversionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "affiliate_conversions_total",
				Help: "Signups by origin and match source",
			},
			[]string{"origin", "source"},
		),
		ClickReplaysTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "affiliate_click_replays_total",
				Help: "Signups that hit an already converted click",
			},
		),
		CommissionsIngestedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_commissions_ingested_total",
				Help: "Payment events by ingest result",
			},
			[]string{"event_type", "result"},
		),
		CommissionAmountTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_commission_amount_total",
				Help: "Commission amounts created, by share",
			},
			[]string{"share", "currency"},
		),
		CommissionTransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_commission_transitions_total",
				Help: "Commission status transitions",
			},
			[]string{"from", "to"},
		),
		EarningsFloorHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_earnings_floor_hits_total",
				Help: "Reversals whose debit was clamped at zero",
			},
			[]string{"field"},
		),
		FraudAssessmentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fraud_assessments_total",
				Help: "Fraud assessments by stage and decision",
			},
			[]string{"stage", "decision"},
		),
		FraudScore: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fraud_score",
				Help:    "Distribution of fraud scores",
				Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
			},
			[]string{"stage"},
		),
		FraudEngineFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fraud_engine_failures_total",
				Help: "Assessments that failed open",
			},
			[]string{"stage"},
		),
		ReconciliationMismatchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reconciliation_mismatches_total",
				Help: "Mismatches found by the validator",
			},
			[]string{"field", "action"},
		),
		ReconciliationRunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reconciliation_run_duration_seconds",
				Help:    "Validator run duration",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
			},
			[]string{"mode"},
		),
		WebhookRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhook_requests_total",
				Help: "Payment webhook requests by outcome",
			},
			[]string{"outcome"},
		),
		OutboxPublishedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outbox_published_total",
				Help: "Outbox events published",
			},
			[]string{"topic"},
		),
		OutboxFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outbox_failures_total",
				Help: "Outbox publish failures",
			},
			[]string{"topic"},
		),
	}
}

func (m *LedgerMetrics) RecordClick(result string) {
	if m == nil {
		return
	}
	m.ClicksRecordedTotal.WithLabelValues(result).Inc()
}

func (m *LedgerMetrics) RecordConversion(origin, source string) {
	if m == nil {
		return
	}
	m.ConversionsTotal.WithLabelValues(origin, source).Inc()
}

func (m *LedgerMetrics) RecordClickReplay() {
	if m == nil {
		return
	}
	m.ClickReplaysTotal.Inc()
}

func (m *LedgerMetrics) RecordIngest(eventType, result string) {
	if m == nil {
		return
	}
	m.CommissionsIngestedTotal.WithLabelValues(eventType, result).Inc()
}

// RecordCommissionShares записывает суммы долей созданной комиссии
func (m *LedgerMetrics) RecordCommissionShares(currency string, member, creator, platform float64) {
	if m == nil {
		return
	}
	m.CommissionAmountTotal.WithLabelValues("member", currency).Add(member)
	m.CommissionAmountTotal.WithLabelValues("creator", currency).Add(creator)
	m.CommissionAmountTotal.WithLabelValues("platform", currency).Add(platform)
}

func (m *LedgerMetrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.CommissionTransitionsTotal.WithLabelValues(from, to).Inc()
}

func (m *LedgerMetrics) RecordFloorHit(field string) {
	if m == nil {
		return
	}
	m.EarningsFloorHitsTotal.WithLabelValues(field).Inc()
}

func (m *LedgerMetrics) RecordFraudAssessment(stage, decision string, score int, degraded bool) {
	if m == nil {
		return
	}
	m.FraudAssessmentsTotal.WithLabelValues(stage, decision).Inc()
	m.FraudScore.WithLabelValues(stage).Observe(float64(score))
	if degraded {
		m.FraudEngineFailures.WithLabelValues(stage).Inc()
	}
}

func (m *LedgerMetrics) RecordMismatch(field, action string) {
	if m == nil {
		return
	}
	m.ReconciliationMismatchesTotal.WithLabelValues(field, action).Inc()
}

func (m *LedgerMetrics) RecordReconciliationRun(mode string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ReconciliationRunDuration.WithLabelValues(mode).Observe(durationSeconds)
}

func (m *LedgerMetrics) RecordWebhook(outcome string) {
	if m == nil {
		return
	}
	m.WebhookRequestsTotal.WithLabelValues(outcome).Inc()
}

func (m *LedgerMetrics) RecordOutbox(topic string, published int, failed bool) {
	if m == nil {
		return
	}
	if published > 0 {
		m.OutboxPublishedTotal.WithLabelValues(topic).Add(float64(published))
	}
	if failed {
		m.OutboxFailuresTotal.WithLabelValues(topic).Inc()
	}
}
