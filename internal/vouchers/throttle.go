package vouchers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valeclub/valeclub-backend/pkg/config"
	"github.com/valeclub/valeclub-backend/pkg/db/models"
)

// ThrottleDecision is the gate's answer for a (establishment, member) pair.
// Denial is not a failure; it carries when the member may try again.
type ThrottleDecision struct {
	Allowed         bool
	NextAvailableAt *time.Time
}

type throttleReader interface {
	LastForPair(ctx context.Context, establishmentID, memberID uuid.UUID) (*models.Voucher, error)
}

// Gate enforces the per-establishment generation cooldown. The gate is a
// projection over the latest voucher for the pair, not its own table, so a
// rare race between check and create can slip a second voucher through; the
// cost is cosmetic and the gate stays best-effort.
type Gate struct {
	repo     throttleReader
	defaults config.VouchersConfig
}

// NewGate builds a throttle gate over the voucher repository.
func NewGate(repo throttleReader, defaults config.VouchersConfig) *Gate {
	return &Gate{repo: repo, defaults: defaults}
}

// Evaluate answers whether a new voucher may be generated now. A member with
// no prior voucher at the establishment is always allowed.
func (g *Gate) Evaluate(ctx context.Context, est *models.Establishment, memberID uuid.UUID, now time.Time) (ThrottleDecision, error) {
	last, err := g.repo.LastForPair(ctx, est.ID, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ThrottleDecision{Allowed: true}, nil
		}
		return ThrottleDecision{}, err
	}

	cooldown := g.cooldownFor(est)
	nextAvailableAt := last.CreatedAt.Add(cooldown)
	if now.Before(nextAvailableAt) {
		return ThrottleDecision{Allowed: false, NextAvailableAt: &nextAvailableAt}, nil
	}
	return ThrottleDecision{Allowed: true}, nil
}

func (g *Gate) cooldownFor(est *models.Establishment) time.Duration {
	hours := est.CooldownHours
	if hours <= 0 {
		hours = g.defaults.DefaultCooldownHours
	}
	return time.Duration(hours) * time.Hour
}
