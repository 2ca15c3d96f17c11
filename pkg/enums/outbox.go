package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateVoucher      OutboxAggregateType = "voucher"
	AggregateSubscription OutboxAggregateType = "subscription"
	AggregatePaymentEvent OutboxAggregateType = "payment_event"
	AggregateNotification OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateVoucher,
	AggregateSubscription,
	AggregatePaymentEvent,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventVoucherCheckedIn      OutboxEventType = "voucher_checked_in"
	EventVoucherExpired        OutboxEventType = "voucher_expired"
	EventRatingRequested       OutboxEventType = "rating_requested"
	EventSubscriptionActivated OutboxEventType = "subscription_activated"
	EventSubscriptionReplaced  OutboxEventType = "subscription_replaced"
	EventPaymentEventParked    OutboxEventType = "payment_event_parked"
)

var validOutboxEventTypes = []OutboxEventType{
	EventVoucherCheckedIn,
	EventVoucherExpired,
	EventRatingRequested,
	EventSubscriptionActivated,
	EventSubscriptionReplaced,
	EventPaymentEventParked,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// OutboxDLQErrorReason classifies why a row landed in the DLQ.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
)

// IsValid reports whether the value matches the canonical dlq_error_reason enum.
func (r OutboxDLQErrorReason) IsValid() bool {
	switch r {
	case OutboxDLQReasonNonRetryable, OutboxDLQReasonMaxAttempts:
		return true
	default:
		return false
	}
}
