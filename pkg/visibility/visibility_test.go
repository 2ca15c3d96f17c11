package visibility

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/valeclub/valeclub-backend/pkg/db/models"
	"github.com/valeclub/valeclub-backend/pkg/enums"
	pkgerrors "github.com/valeclub/valeclub-backend/pkg/errors"
)

func activeFixture() EstablishmentVisibilityInput {
	future := time.Now().Add(30 * 24 * time.Hour)
	return EstablishmentVisibilityInput{
		Establishment: &models.Establishment{ID: uuid.New(), IsActive: true},
		Partner:       &models.Partner{ID: uuid.New(), IsActive: true},
		Entitlement: &models.Subscription{
			Status:    enums.SubscriptionStatusActive,
			ExpiresAt: &future,
		},
	}
}

func TestEnsureEstablishmentVisible(t *testing.T) {
	input := activeFixture()
	if err := EnsureEstablishmentVisible(input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	input.Establishment.IsActive = false
	assertCode(t, EnsureEstablishmentVisible(input), pkgerrors.CodeNotFound)

	input = activeFixture()
	input.Partner.IsActive = false
	assertCode(t, EnsureEstablishmentVisible(input), pkgerrors.CodeNotFound)

	input = activeFixture()
	input.Establishment = nil
	assertCode(t, EnsureEstablishmentVisible(input), pkgerrors.CodeNotFound)
}

func TestEnsureEntitled(t *testing.T) {
	input := activeFixture()
	if err := EnsureEntitled(input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	input.Entitlement = nil
	assertCode(t, EnsureEntitled(input), pkgerrors.CodeForbidden)

	input = activeFixture()
	input.Entitlement.Status = enums.SubscriptionStatusInitiated
	assertCode(t, EnsureEntitled(input), pkgerrors.CodeForbidden)

	input = activeFixture()
	past := time.Now().Add(-time.Hour)
	input.Entitlement.ExpiresAt = &past
	assertCode(t, EnsureEntitled(input), pkgerrors.CodeForbidden)

	// open-ended entitlements never lapse locally
	input = activeFixture()
	input.Entitlement.ExpiresAt = nil
	if err := EnsureEntitled(input); err != nil {
		t.Fatalf("unexpected error for open-ended entitlement: %v", err)
	}
}

func TestNormalizeCity(t *testing.T) {
	if got := NormalizeCity("  sao paulo "); got != "SAO PAULO" {
		t.Fatalf("unexpected normalization %q", got)
	}
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s", code)
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected coded error, got %v", err)
	}
	if typed.Code() != code {
		t.Fatalf("expected code %s, got %s", code, typed.Code())
	}
}
