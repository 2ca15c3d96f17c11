package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// VoucherMetrics tracks voucher lifecycle outcomes.
type VoucherMetrics struct {
	generated *prometheus.CounterVec
	checkins  prometheus.Counter
	expired   prometheus.Counter
}

// NewVoucherMetrics registers voucher metrics on the provided registerer.
func NewVoucherMetrics(reg prometheus.Registerer) *VoucherMetrics {
	if reg == nil {
		return &VoucherMetrics{}
	}
	generated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vouchers_generated_total",
		Help: "Voucher generation requests by outcome.",
	}, []string{"outcome"})
	checkins := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "voucher_checkins_total",
		Help: "Vouchers consumed at check-in.",
	})
	expired := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vouchers_expired_total",
		Help: "Vouchers observed past their deadline and marked expired.",
	})
	reg.MustRegister(generated, checkins, expired)
	return &VoucherMetrics{
		generated: generated,
		checkins:  checkins,
		expired:   expired,
	}
}

// IncGenerated records a generation attempt. Outcome is one of
// "created", "throttled" or "rejected".
func (v *VoucherMetrics) IncGenerated(outcome string) {
	if v == nil || v.generated == nil {
		return
	}
	v.generated.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncCheckin increments the check-in counter.
func (v *VoucherMetrics) IncCheckin() {
	if v == nil || v.checkins == nil {
		return
	}
	v.checkins.Inc()
}

// IncExpired increments the lazy-expiration counter.
func (v *VoucherMetrics) IncExpired() {
	if v == nil || v.expired == nil {
		return
	}
	v.expired.Inc()
}

// ReconcilerMetrics tracks payment event reconciliation outcomes.
type ReconcilerMetrics struct {
	events *prometheus.CounterVec
}

// NewReconcilerMetrics registers reconciler metrics on the provided registerer.
func NewReconcilerMetrics(reg prometheus.Registerer) *ReconcilerMetrics {
	if reg == nil {
		return &ReconcilerMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_events_total",
		Help: "Payment events processed by provider and outcome.",
	}, []string{"provider", "outcome"})
	reg.MustRegister(events)
	return &ReconcilerMetrics{events: events}
}

// IncEvent records a reconciliation outcome. Outcome is one of
// "reconciled", "duplicate", "parked" or "failed".
func (r *ReconcilerMetrics) IncEvent(provider, outcome string) {
	if r == nil || r.events == nil {
		return
	}
	r.events.WithLabelValues(normalizeLabel(provider), normalizeLabel(outcome)).Inc()
}
