package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/valeclub/valeclub-backend/pkg/enums"
)

// Subscription is the entitlement record granting a member access to a
// partner's discounts. (MemberID, PartnerID, PaymentReference) is unique and
// serves as the reconciliation idempotency key under at-least-once delivery.
type Subscription struct {
	ID               uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	MemberID         uuid.UUID                `gorm:"column:member_id;type:uuid;not null;uniqueIndex:ux_subscriptions_reconciliation_key,priority:1;index"`
	PartnerID        uuid.UUID                `gorm:"column:partner_id;type:uuid;not null;uniqueIndex:ux_subscriptions_reconciliation_key,priority:2;index"`
	Status           enums.SubscriptionStatus `gorm:"column:status;type:subscription_status;not null;default:'initiated'"`
	PaymentProvider  enums.PaymentProvider    `gorm:"column:payment_provider;type:payment_provider;not null"`
	PaymentReference string                   `gorm:"column:payment_reference;not null;uniqueIndex:ux_subscriptions_reconciliation_key,priority:3"`
	PartnerLinkID    *uuid.UUID               `gorm:"column:partner_link_id;type:uuid"`
	ExpiresAt        *time.Time               `gorm:"column:expires_at"`
	Metadata         json.RawMessage          `gorm:"column:metadata;type:jsonb"`
	CreatedAt        time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
