package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/valeclub/valeclub-backend/pkg/enums"
)

// VoucherCheckedInEvent is emitted when an establishment consumes a voucher.
type VoucherCheckedInEvent struct {
	VoucherID       uuid.UUID `json:"voucher_id"`
	Code            string    `json:"code"`
	MemberID        uuid.UUID `json:"member_id"`
	EstablishmentID uuid.UUID `json:"establishment_id"`
	UsedAt          time.Time `json:"used_at"`
}

// VoucherExpiredEvent reports a voucher observed past its deadline.
type VoucherExpiredEvent struct {
	VoucherID       uuid.UUID `json:"voucher_id"`
	Code            string    `json:"code"`
	MemberID        uuid.UUID `json:"member_id"`
	EstablishmentID uuid.UUID `json:"establishment_id"`
	ExpiredAt       time.Time `json:"expired_at"`
}

// RatingRequestedEvent asks downstream systems to collect feedback for a visit.
type RatingRequestedEvent struct {
	NotificationID  uuid.UUID `json:"notification_id"`
	VoucherID       uuid.UUID `json:"voucher_id"`
	MemberID        uuid.UUID `json:"member_id"`
	EstablishmentID uuid.UUID `json:"establishment_id"`
}

// SubscriptionActivatedEvent is emitted when a payment event reconciles into
// an active entitlement.
type SubscriptionActivatedEvent struct {
	SubscriptionID   uuid.UUID             `json:"subscription_id"`
	MemberID         uuid.UUID             `json:"member_id"`
	PartnerID        uuid.UUID             `json:"partner_id"`
	Provider         enums.PaymentProvider `json:"provider"`
	PaymentReference string                `json:"payment_reference"`
	ExpiresAt        *time.Time            `json:"expires_at,omitempty"`
}

// SubscriptionReplacedEvent reports a prior entitlement displaced by a newer
// payment for the same member and partner.
type SubscriptionReplacedEvent struct {
	SubscriptionID uuid.UUID  `json:"subscription_id"`
	ReplacedByID   uuid.UUID  `json:"replaced_by_id"`
	MemberID       uuid.UUID  `json:"member_id"`
	PartnerID      uuid.UUID  `json:"partner_id"`
	DeactivatedAt  time.Time  `json:"deactivated_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

// PaymentEventParkedEvent flags a payment event waiting for manual review.
type PaymentEventParkedEvent struct {
	ParkedEventID    uuid.UUID               `json:"parked_event_id"`
	Provider         enums.PaymentProvider   `json:"provider"`
	PaymentReference string                  `json:"payment_reference"`
	Reason           enums.ParkedEventReason `json:"reason"`
}
