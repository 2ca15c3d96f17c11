package models

import (
	"time"

	"github.com/google/uuid"
)

// Establishment is a partner venue where vouchers are redeemed. The voucher
// engine only reads its configuration and display fields; CRUD lives upstream.
type Establishment struct {
	ID                     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PartnerID              uuid.UUID `gorm:"column:partner_id;type:uuid;not null;index"`
	Name                   string    `gorm:"column:name;not null"`
	City                   *string   `gorm:"column:city"`
	Category               *string   `gorm:"column:category"`
	IsActive               bool      `gorm:"column:is_active;not null;default:true"`
	CooldownHours          int       `gorm:"column:cooldown_hours;not null;default:24"`
	VoucherExpirationHours int       `gorm:"column:voucher_expiration_hours;not null;default:48"`
	CreatedAt              time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
