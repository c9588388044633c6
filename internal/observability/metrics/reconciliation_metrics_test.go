package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestReconciliationCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newReconciliationMetrics(registry, Config{ServiceName: "backmercadopro", Environment: "test"})

	m.IncObservation("webhook", "first_seen")
	m.IncObservation("webhook", "first_seen")
	m.IncObservation("poll", "stale")
	m.IncNotification("email", "sent")
	m.IncSignatureFailure()
	m.IncPollAttempt("terminal")
	m.ObserveApprovalLag(2 * time.Second)
	m.ObserveApprovalLag(-time.Second)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) != 5 {
		t.Fatalf("expected 5 metric families, got %d", len(families))
	}

	webhook := testutil.ToFloat64(m.observationsProcessed.WithLabelValues("webhook", "first_seen"))
	if webhook != 2 {
		t.Fatalf("expected 2 webhook first_seen observations, got %v", webhook)
	}
	stale := testutil.ToFloat64(m.observationsProcessed.WithLabelValues("poll", "stale"))
	if stale != 1 {
		t.Fatalf("expected 1 stale poll observation, got %v", stale)
	}
	if got := testutil.ToFloat64(m.signatureFailures); got != 1 {
		t.Fatalf("expected 1 signature failure, got %v", got)
	}
}

func TestReconciliationSingletonReset(t *testing.T) {
	ResetReconciliationMetricsForTest()
	t.Cleanup(ResetReconciliationMetricsForTest)

	// Instruments may already live in the default registry from an earlier
	// test binary run; register into a throwaway one instead.
	registry := prometheus.NewRegistry()
	first := newReconciliationMetrics(registry, Config{})
	if first == nil {
		t.Fatal("expected metrics instance")
	}

	if m := Reconciliation(); m == nil {
		t.Fatal("expected singleton instance")
	}
	if again := Reconciliation(); again != Reconciliation() {
		t.Fatal("singleton must be stable")
	}
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *ReconciliationMetrics
	m.IncObservation("webhook", "first_seen")
	m.IncNotification("email", "sent")
	m.IncSignatureFailure()
	m.IncPollAttempt("error")
	m.ObserveApprovalLag(time.Second)
}
