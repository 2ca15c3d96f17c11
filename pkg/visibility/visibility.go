package visibility

import (
	"strings"
	"time"

	"github.com/valeclub/valeclub-backend/pkg/db/models"
	pkgerrors "github.com/valeclub/valeclub-backend/pkg/errors"
)

// EstablishmentVisibilityInput drives the shared visibility checks for
// member-facing queries and voucher generation.
type EstablishmentVisibilityInput struct {
	Establishment *models.Establishment
	Partner       *models.Partner
	Entitlement   *models.Subscription
	Now           time.Time
}

// EnsureEstablishmentVisible enforces canonical rules so disabled venues and
// lapsed memberships never leak through member queries.
func EnsureEstablishmentVisible(input EstablishmentVisibilityInput) error {
	if input.Establishment == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "establishment not found")
	}
	if !input.Establishment.IsActive {
		return pkgerrors.New(pkgerrors.CodeNotFound, "establishment not available")
	}
	if input.Partner == nil || !input.Partner.IsActive {
		return pkgerrors.New(pkgerrors.CodeNotFound, "establishment not available")
	}
	return nil
}

// EnsureEntitled verifies the member holds an active, unexpired entitlement
// for the establishment's partner.
func EnsureEntitled(input EstablishmentVisibilityInput) error {
	if err := EnsureEstablishmentVisible(input); err != nil {
		return err
	}
	sub := input.Entitlement
	if sub == nil || !sub.Status.IsActive() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "membership required")
	}
	now := input.Now
	if now.IsZero() {
		now = time.Now()
	}
	if sub.ExpiresAt != nil && !sub.ExpiresAt.After(now) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "membership expired")
	}
	return nil
}

// NormalizeCity canonicalizes a city filter for listing queries.
func NormalizeCity(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}
