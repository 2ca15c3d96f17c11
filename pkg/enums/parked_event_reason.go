package enums

import "fmt"

// ParkedEventReason records why a payment event was held for manual review
// instead of being reconciled into a subscription.
type ParkedEventReason string

const (
	ParkedReasonBuyerUnresolvable   ParkedEventReason = "buyer_unresolvable"
	ParkedReasonPartnerUnresolvable ParkedEventReason = "partner_unresolvable"
	ParkedReasonMalformedEvent      ParkedEventReason = "malformed_event"
	ParkedReasonUnknownInterval     ParkedEventReason = "unknown_interval"
)

var validParkedEventReasons = []ParkedEventReason{
	ParkedReasonBuyerUnresolvable,
	ParkedReasonPartnerUnresolvable,
	ParkedReasonMalformedEvent,
	ParkedReasonUnknownInterval,
}

// String implements fmt.Stringer.
func (p ParkedEventReason) String() string {
	return string(p)
}

// IsValid reports whether the value is known.
func (p ParkedEventReason) IsValid() bool {
	for _, candidate := range validParkedEventReasons {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseParkedEventReason converts raw input into a ParkedEventReason.
func ParseParkedEventReason(value string) (ParkedEventReason, error) {
	for _, candidate := range validParkedEventReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid parked event reason %q", value)
}
