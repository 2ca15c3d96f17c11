package vouchers

import (
	"time"

	"github.com/google/uuid"

	"github.com/valeclub/valeclub-backend/pkg/db/models"
	"github.com/valeclub/valeclub-backend/pkg/enums"
)

// VoucherDTO is the transport shape for a voucher. Status carries the
// effective status at read time, which may be ahead of storage for vouchers
// whose deadline passed but were not yet touched.
type VoucherDTO struct {
	ID              uuid.UUID           `json:"id"`
	Code            string              `json:"code"`
	EstablishmentID uuid.UUID           `json:"establishment_id"`
	MemberID        uuid.UUID           `json:"member_id"`
	Status          enums.VoucherStatus `json:"status"`
	ExpiresAt       time.Time           `json:"expires_at"`
	VerifiedAt      *time.Time          `json:"verified_at,omitempty"`
	UsedAt          *time.Time          `json:"used_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

// FromModel maps a voucher row to its transport shape as observed at now.
func FromModel(v *models.Voucher, now time.Time) *VoucherDTO {
	if v == nil {
		return nil
	}
	return &VoucherDTO{
		ID:              v.ID,
		Code:            v.Code,
		EstablishmentID: v.EstablishmentID,
		MemberID:        v.MemberID,
		Status:          EffectiveStatus(v, now),
		ExpiresAt:       v.ExpiresAt,
		VerifiedAt:      v.VerifiedAt,
		UsedAt:          v.UsedAt,
		CreatedAt:       v.CreatedAt,
	}
}

// MemberSummary is the display identity attached to a validated voucher.
// Enrichment is presentation only; validation succeeds without it.
type MemberSummary struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Phone    *string   `json:"phone,omitempty"`
	PhotoURL *string   `json:"photo_url,omitempty"`
}

// EstablishmentSummary names the venue on validation responses.
type EstablishmentSummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// GenerateResult is the member-facing outcome of voucher generation.
type GenerateResult struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ValidationResult is the operator-facing outcome of a successful validate.
type ValidationResult struct {
	Voucher       VoucherDTO            `json:"voucher"`
	Member        *MemberSummary        `json:"member,omitempty"`
	Establishment *EstablishmentSummary `json:"establishment,omitempty"`
}

// CheckInResult reports the redeemed voucher and its companion notification.
type CheckInResult struct {
	VoucherID      uuid.UUID `json:"voucher_id"`
	NotificationID uuid.UUID `json:"notification_id"`
	UsedAt         time.Time `json:"used_at"`
}

// ListParams filters the establishment voucher report.
type ListParams struct {
	EstablishmentID uuid.UUID
	Status          *enums.VoucherStatus
	Limit           int
	Cursor          string
}

// ListResult is one page of the voucher report.
type ListResult struct {
	Items  []VoucherDTO `json:"items"`
	Cursor string       `json:"cursor,omitempty"`
}
