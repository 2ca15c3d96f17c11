package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/valeclub/valeclub-backend/pkg/enums"
)

// Voucher is a single-use discount redemption token tied to one member and
// one establishment. Status only moves forward; ExpiresAt is fixed at
// creation. Vouchers are never hard-deleted, reporting depends on the trail.
type Voucher struct {
	ID              uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Code            string              `gorm:"column:code;not null;uniqueIndex"`
	EstablishmentID uuid.UUID           `gorm:"column:establishment_id;type:uuid;not null;index"`
	MemberID        uuid.UUID           `gorm:"column:member_id;type:uuid;not null;index"`
	Status          enums.VoucherStatus `gorm:"column:status;type:voucher_status;not null;default:'pending'"`
	ExpiresAt       time.Time           `gorm:"column:expires_at;not null"`
	VerifiedAt      *time.Time          `gorm:"column:verified_at"`
	VerifiedBy      *uuid.UUID          `gorm:"column:verified_by;type:uuid"`
	UsedAt          *time.Time          `gorm:"column:used_at"`
	UsedBy          *uuid.UUID          `gorm:"column:used_by;type:uuid"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
