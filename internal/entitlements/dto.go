package entitlements

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/valeclub/valeclub-backend/pkg/db/models"
	"github.com/valeclub/valeclub-backend/pkg/enums"
)

// BillingInterval is the provider's interval descriptor for a recurring plan.
type BillingInterval struct {
	Unit  enums.BillingIntervalUnit
	Count int
}

// PaymentEvent is the provider-agnostic payment signal the reconciler
// consumes. Webhook mappers translate provider payloads into this shape.
type PaymentEvent struct {
	Provider         enums.PaymentProvider
	PaymentReference string

	// Buyer identity hints, resolved through the identity fallback chain.
	BuyerDocumentID *uuid.UUID
	BuyerExternalID *string
	BuyerEmail      *string

	// Partner either named directly or reached through an attribution link.
	PartnerID       *uuid.UUID
	PartnerLinkID   *uuid.UUID
	PartnerLinkSlug *string

	ProviderPriceID string
	Interval        *BillingInterval
	PeriodEnd       *time.Time

	Amount       *decimal.Decimal
	CurrencyCode string

	OccurredAt time.Time
	Raw        json.RawMessage
}

// ReconcileOutcome classifies what reconciliation did with an event.
type ReconcileOutcome string

const (
	OutcomeCreated           ReconcileOutcome = "created"
	OutcomeAlreadyReconciled ReconcileOutcome = "already_reconciled"
	OutcomeParked            ReconcileOutcome = "parked"
)

// ReconciliationResult reports the outcome of processing one payment event.
// Exactly one of SubscriptionID and ParkedEventID is set, except for the
// already-reconciled case where SubscriptionID points at the existing row.
type ReconciliationResult struct {
	Outcome        ReconcileOutcome
	SubscriptionID *uuid.UUID
	ParkedEventID  *uuid.UUID
	ParkedReason   enums.ParkedEventReason
}

// SubscriptionDTO is the external shape of an entitlement record.
type SubscriptionDTO struct {
	ID               uuid.UUID                `json:"id"`
	MemberID         uuid.UUID                `json:"member_id"`
	PartnerID        uuid.UUID                `json:"partner_id"`
	Status           enums.SubscriptionStatus `json:"status"`
	PaymentProvider  enums.PaymentProvider    `json:"payment_provider"`
	PaymentReference string                   `json:"payment_reference"`
	ExpiresAt        *time.Time               `json:"expires_at,omitempty"`
	CreatedAt        time.Time                `json:"created_at"`
}

// SubscriptionFromModel maps a persisted subscription to its DTO.
func SubscriptionFromModel(sub *models.Subscription) SubscriptionDTO {
	return SubscriptionDTO{
		ID:               sub.ID,
		MemberID:         sub.MemberID,
		PartnerID:        sub.PartnerID,
		Status:           sub.Status,
		PaymentProvider:  sub.PaymentProvider,
		PaymentReference: sub.PaymentReference,
		ExpiresAt:        sub.ExpiresAt,
		CreatedAt:        sub.CreatedAt,
	}
}

// PartnerAssignment is one entry of an administrative batch link.
type PartnerAssignment struct {
	PartnerID        uuid.UUID
	PartnerLinkID    *uuid.UUID
	Provider         enums.PaymentProvider
	PaymentReference string
	ExpiresAt        *time.Time
}

// BatchLinkResult reports the replace-the-active-set outcome.
type BatchLinkResult struct {
	Created     []SubscriptionDTO `json:"created"`
	Deactivated []uuid.UUID       `json:"deactivated"`
}

// ParkedEventDTO is the admin review shape of a parked payment event.
type ParkedEventDTO struct {
	ID               uuid.UUID               `json:"id"`
	Provider         enums.PaymentProvider   `json:"provider"`
	PaymentReference string                  `json:"payment_reference"`
	Reason           enums.ParkedEventReason `json:"reason"`
	Detail           string                  `json:"detail"`
	ResolvedAt       *time.Time              `json:"resolved_at,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
}

// ParkedEventFromModel maps a parked event row to its DTO.
func ParkedEventFromModel(event *models.ParkedPaymentEvent) ParkedEventDTO {
	return ParkedEventDTO{
		ID:               event.ID,
		Provider:         event.Provider,
		PaymentReference: event.PaymentReference,
		Reason:           event.Reason,
		Detail:           event.Detail,
		ResolvedAt:       event.ResolvedAt,
		CreatedAt:        event.CreatedAt,
	}
}

// ListParkedParams filters the admin parked event listing.
type ListParkedParams struct {
	IncludeResolved bool
	Limit           int
	Cursor          string
}

// ListParkedResult carries one page of parked events.
type ListParkedResult struct {
	Events     []ParkedEventDTO `json:"events"`
	NextCursor string           `json:"next_cursor,omitempty"`
}
