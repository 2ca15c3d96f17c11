package enums

import "fmt"

// SubscriptionStatus tracks the entitlement lifecycle. A subscription starts
// as initiated when checkout begins, becomes active once the payment provider
// confirms, and drops to inactive on cancellation or supersession.
type SubscriptionStatus string

const (
	SubscriptionStatusInitiated SubscriptionStatus = "initiated"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusInactive  SubscriptionStatus = "inactive"
)

var validSubscriptionStatuses = []SubscriptionStatus{
	SubscriptionStatusInitiated,
	SubscriptionStatusActive,
	SubscriptionStatusInactive,
}

// String implements fmt.Stringer.
func (s SubscriptionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s SubscriptionStatus) IsValid() bool {
	for _, candidate := range validSubscriptionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSubscriptionStatus converts raw input into a SubscriptionStatus.
func ParseSubscriptionStatus(value string) (SubscriptionStatus, error) {
	for _, candidate := range validSubscriptionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid subscription status %q", value)
}

// IsActive reports whether the entitlement currently grants access.
func (s SubscriptionStatus) IsActive() bool {
	return s == SubscriptionStatusActive
}
