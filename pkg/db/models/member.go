package models

import (
	"time"

	"github.com/google/uuid"
)

// Member is the canonical person record behind a paying membership.
//
// Three identifier spaces reference a member: the storage-assigned ID, the
// external auth provider's subject (ExternalAuthID), and the email. Historic
// code paths populated them inconsistently, so lookups go through the
// identity resolver rather than hitting a single column.
type Member struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ExternalAuthID *string    `gorm:"column:external_auth_id;uniqueIndex"`
	Email          string     `gorm:"type:text;not null;index"`
	Name           string     `gorm:"column:name;not null"`
	Phone          *string    `gorm:"column:phone"`
	PhotoURL       *string    `gorm:"column:photo_url"`
	IsActive       bool       `gorm:"column:is_active;not null;default:true"`
	LastSeenAt     *time.Time `gorm:"column:last_seen_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
