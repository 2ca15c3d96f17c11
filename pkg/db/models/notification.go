package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/valeclub/valeclub-backend/pkg/enums"
)

// Notification stores in-app notification payloads. Rating requests are
// created in the same transaction as the voucher check-in they reference.
type Notification struct {
	ID              uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	MemberID        uuid.UUID              `gorm:"type:uuid;not null;index"`
	Type            enums.NotificationType `gorm:"type:notification_type;not null"`
	Title           string                 `gorm:"type:text;not null"`
	Message         string                 `gorm:"type:text;not null"`
	VoucherID       *uuid.UUID             `gorm:"column:voucher_id;type:uuid;uniqueIndex:ux_notifications_voucher_rating"`
	EstablishmentID *uuid.UUID             `gorm:"column:establishment_id;type:uuid"`
	ReadAt          *time.Time             `gorm:"type:timestamptz"`
	CreatedAt       time.Time              `gorm:"type:timestamptz;default:now()"`
}
