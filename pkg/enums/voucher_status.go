package enums

import "fmt"

// VoucherStatus maps to the voucher_status enum in Postgres.
// Transitions only move forward: pending -> verified -> used, with expired
// reachable from pending or verified. A used voucher never changes again.
type VoucherStatus string

const (
	VoucherStatusPending  VoucherStatus = "pending"
	VoucherStatusVerified VoucherStatus = "verified"
	VoucherStatusUsed     VoucherStatus = "used"
	VoucherStatusExpired  VoucherStatus = "expired"
)

var validVoucherStatuses = []VoucherStatus{
	VoucherStatusPending,
	VoucherStatusVerified,
	VoucherStatusUsed,
	VoucherStatusExpired,
}

// String implements fmt.Stringer.
func (v VoucherStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is known.
func (v VoucherStatus) IsValid() bool {
	for _, candidate := range validVoucherStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed from this state.
func (v VoucherStatus) IsTerminal() bool {
	return v == VoucherStatusUsed || v == VoucherStatusExpired
}

// CanTransitionTo reports whether moving to next is a legal forward step.
func (v VoucherStatus) CanTransitionTo(next VoucherStatus) bool {
	switch v {
	case VoucherStatusPending:
		return next == VoucherStatusVerified || next == VoucherStatusExpired
	case VoucherStatusVerified:
		return next == VoucherStatusUsed || next == VoucherStatusExpired
	default:
		return false
	}
}

// ParseVoucherStatus converts raw input into a VoucherStatus.
func ParseVoucherStatus(value string) (VoucherStatus, error) {
	for _, candidate := range validVoucherStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid voucher status %q", value)
}
