package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReconciliationMetrics tracks the payment observation pipeline: how
// observations arrive, how approval notifications fire, and how long the
// poller spends waiting.
type ReconciliationMetrics struct {
	observationsProcessed *prometheus.CounterVec
	notificationsFired    *prometheus.CounterVec
	signatureFailures     prometheus.Counter
	pollAttempts          *prometheus.CounterVec
	approvalLag           prometheus.Histogram
}

var (
	reconciliationOnce sync.Once
	reconciliation     *ReconciliationMetrics
)

func Reconciliation() *ReconciliationMetrics {
	return ReconciliationWithConfig(Config{})
}

func ReconciliationWithConfig(cfg Config) *ReconciliationMetrics {
	reconciliationOnce.Do(func() {
		reconciliation = newReconciliationMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return reconciliation
}

func ResetReconciliationMetricsForTest() {
	reconciliationOnce = sync.Once{}
	reconciliation = nil
}

func newReconciliationMetrics(registerer prometheus.Registerer, cfg Config) *ReconciliationMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "backmercadopro"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	observationsProcessed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "payment_observations_processed_total",
			Help:        "Status observations applied to the reconciliation record.",
			ConstLabels: constLabels,
		},
		[]string{"source", "result"}, // result: first_seen | transition | duplicate | anomaly | failed
	)

	notificationsFired := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "approval_notifications_fired_total",
			Help:        "Approval side effects dispatched, by notifier kind.",
			ConstLabels: constLabels,
		},
		[]string{"kind", "result"}, // result: sent | skipped | failed
	)

	signatureFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name:        "webhook_signature_failures_total",
			Help:        "Webhook deliveries rejected at signature verification.",
			ConstLabels: constLabels,
		},
	)

	pollAttempts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "status_poll_attempts_total",
			Help:        "Gateway status lookups made by the polling fallback.",
			ConstLabels: constLabels,
		},
		[]string{"result"}, // result: terminal | pending | not_found | error
	)

	approvalLag := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "approval_notify_lag_seconds",
			Help: "Delay between the first observation of a charge and its approval notification.",
			Buckets: []float64{
				1,    // webhook fast path
				5,    // first poll ticks
				30,   //
				120,  // slow card review
				600,  //
				3600, // pix or boleto settling later
			},
			ConstLabels: constLabels,
		},
	)

	registerer.MustRegister(
		observationsProcessed,
		notificationsFired,
		signatureFailures,
		pollAttempts,
		approvalLag,
	)

	return &ReconciliationMetrics{
		observationsProcessed: observationsProcessed,
		notificationsFired:    notificationsFired,
		signatureFailures:     signatureFailures,
		pollAttempts:          pollAttempts,
		approvalLag:           approvalLag,
	}
}

func (m *ReconciliationMetrics) IncObservation(source, result string) {
	if m == nil {
		return
	}
	m.observationsProcessed.WithLabelValues(source, result).Inc()
}

func (m *ReconciliationMetrics) IncNotification(kind, result string) {
	if m == nil {
		return
	}
	m.notificationsFired.WithLabelValues(kind, result).Inc()
}

func (m *ReconciliationMetrics) IncSignatureFailure() {
	if m == nil {
		return
	}
	m.signatureFailures.Inc()
}

func (m *ReconciliationMetrics) IncPollAttempt(result string) {
	if m == nil {
		return
	}
	m.pollAttempts.WithLabelValues(result).Inc()
}

func (m *ReconciliationMetrics) ObserveApprovalLag(lag time.Duration) {
	if m == nil {
		return
	}
	seconds := lag.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.approvalLag.Observe(seconds)
}
