package entitlements

import (
	"context"

	"gorm.io/gorm"

	"github.com/valeclub/valeclub-backend/pkg/db/models"
	"github.com/valeclub/valeclub-backend/pkg/enums"
)

// PlanRepository reads the local billing plan catalog.
type PlanRepository struct {
	db *gorm.DB
}

// NewPlanRepository binds a GORM DB to billing plan lookups.
func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) FindByProviderPriceID(ctx context.Context, provider enums.PaymentProvider, providerPriceID string) (*models.BillingPlan, error) {
	var plan models.BillingPlan
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_price_id = ?", provider, providerPriceID).
		First(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *PlanRepository) FindDefault(ctx context.Context, provider enums.PaymentProvider) (*models.BillingPlan, error) {
	var plan models.BillingPlan
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND is_default = ?", provider, true).
		First(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}
