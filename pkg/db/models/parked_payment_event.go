package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/valeclub/valeclub-backend/pkg/enums"
)

// ParkedPaymentEvent holds a payment event the reconciler could not convert
// into a subscription. Parked events are never discarded; money changed
// hands, so they stay visible until an operator resolves them.
type ParkedPaymentEvent struct {
	ID               uuid.UUID               `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Provider         enums.PaymentProvider   `gorm:"column:provider;type:payment_provider;not null;uniqueIndex:ux_parked_events_provider_ref,priority:1"`
	PaymentReference string                  `gorm:"column:payment_reference;not null;uniqueIndex:ux_parked_events_provider_ref,priority:2"`
	Reason           enums.ParkedEventReason `gorm:"column:reason;type:parked_event_reason;not null"`
	Detail           string                  `gorm:"column:detail;type:text;not null"`
	Payload          json.RawMessage         `gorm:"column:payload;type:jsonb;not null"`
	ResolvedAt       *time.Time              `gorm:"column:resolved_at"`
	ResolvedBy       *uuid.UUID              `gorm:"column:resolved_by;type:uuid"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime"`
}
