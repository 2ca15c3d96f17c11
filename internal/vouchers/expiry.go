package vouchers

import (
	"time"

	"github.com/valeclub/valeclub-backend/pkg/db/models"
	"github.com/valeclub/valeclub-backend/pkg/enums"
)

// IsExpired reports whether a voucher deadline has passed at the given
// instant. There is no background sweeper; every read path applies this
// check, so stored status may lag expired until the voucher is next touched.
func IsExpired(expiresAt, now time.Time) bool {
	return !now.Before(expiresAt)
}

// EffectiveStatus maps a voucher's stored status to what a caller should
// observe at the given instant. Used vouchers are terminal and immune to
// expiration.
func EffectiveStatus(v *models.Voucher, now time.Time) enums.VoucherStatus {
	if v == nil {
		return ""
	}
	switch v.Status {
	case enums.VoucherStatusPending, enums.VoucherStatusVerified:
		if IsExpired(v.ExpiresAt, now) {
			return enums.VoucherStatusExpired
		}
	}
	return v.Status
}
