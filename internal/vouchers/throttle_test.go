package vouchers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valeclub/valeclub-backend/pkg/config"
	"github.com/valeclub/valeclub-backend/pkg/db/models"
)

type fakeThrottleRepo struct {
	last *models.Voucher
	err  error
}

func (f *fakeThrottleRepo) LastForPair(ctx context.Context, establishmentID, memberID uuid.UUID) (*models.Voucher, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.last == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.last, nil
}

func testEstablishment(cooldownHours int) *models.Establishment {
	return &models.Establishment{ID: uuid.New(), CooldownHours: cooldownHours}
}

func TestGate_FirstGenerationAllowed(t *testing.T) {
	gate := NewGate(&fakeThrottleRepo{}, config.VouchersConfig{})
	decision, err := gate.Evaluate(context.Background(), testEstablishment(24), uuid.New(), time.Now())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("expected first generation to be allowed")
	}
	if decision.NextAvailableAt != nil {
		t.Fatal("expected no next-available time when allowed")
	}
}

func TestGate_WithinCooldownDenied(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := &fakeThrottleRepo{last: &models.Voucher{CreatedAt: t0}}
	gate := NewGate(repo, config.VouchersConfig{})

	decision, err := gate.Evaluate(context.Background(), testEstablishment(24), uuid.New(), t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Allowed {
		t.Fatal("expected denial inside cooldown window")
	}
	if decision.NextAvailableAt == nil {
		t.Fatal("denial must carry the next-available time")
	}
	if want := t0.Add(24 * time.Hour); !decision.NextAvailableAt.Equal(want) {
		t.Fatalf("next available at %s, want %s", decision.NextAvailableAt, want)
	}
}

func TestGate_AfterCooldownAllowed(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := &fakeThrottleRepo{last: &models.Voucher{CreatedAt: t0}}
	gate := NewGate(repo, config.VouchersConfig{})

	decision, err := gate.Evaluate(context.Background(), testEstablishment(24), uuid.New(), t0.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("expected generation allowed once the window elapsed")
	}
}

func TestGate_ZeroCooldownUsesDefault(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := &fakeThrottleRepo{last: &models.Voucher{CreatedAt: t0}}
	gate := NewGate(repo, config.VouchersConfig{DefaultCooldownHours: 12})

	decision, err := gate.Evaluate(context.Background(), testEstablishment(0), uuid.New(), t0.Add(6*time.Hour))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Allowed {
		t.Fatal("expected default cooldown to apply")
	}
	if want := t0.Add(12 * time.Hour); !decision.NextAvailableAt.Equal(want) {
		t.Fatalf("next available at %s, want %s", decision.NextAvailableAt, want)
	}
}
