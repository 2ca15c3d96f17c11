package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestVoucherMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewVoucherMetrics(reg)

	m.IncGenerated("created")
	m.IncGenerated("throttled")
	m.IncGenerated("throttled")
	m.IncCheckin()
	m.IncExpired()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "vouchers_generated_total", "outcome", "throttled"); err != nil {
		t.Fatalf("fetch throttled: %v", err)
	} else if got != 2 {
		t.Fatalf("expected throttled=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "vouchers_generated_total", "outcome", "created"); err != nil {
		t.Fatalf("fetch created: %v", err)
	} else if got != 1 {
		t.Fatalf("expected created=1, got %f", got)
	}
}

func TestReconcilerMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReconcilerMetrics(reg)

	m.IncEvent("stripe", "reconciled")
	m.IncEvent("stripe", "duplicate")
	m.IncEvent("square", "parked")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "payment_events_total", "outcome", "parked"); err != nil {
		t.Fatalf("fetch parked: %v", err)
	} else if got != 1 {
		t.Fatalf("expected parked=1, got %f", got)
	}
}

func TestVoucherMetricsNilSafe(t *testing.T) {
	var m *VoucherMetrics
	m.IncGenerated("created")
	m.IncCheckin()
	m.IncExpired()

	var r *ReconcilerMetrics
	r.IncEvent("stripe", "reconciled")
}
