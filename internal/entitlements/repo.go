package entitlements

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valeclub/valeclub-backend/pkg/db/models"
	"github.com/valeclub/valeclub-backend/pkg/enums"
)

// Repository exposes subscription persistence. The unique index on
// (member_id, partner_id, payment_reference) backs the reconciliation
// idempotency key, so a concurrent duplicate insert surfaces as a unique
// violation rather than a second row.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, sub *models.Subscription) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	FindByReconciliationKey(ctx context.Context, memberID, partnerID uuid.UUID, paymentReference string) (*models.Subscription, error)
	FindActiveForMemberPartner(ctx context.Context, memberID, partnerID uuid.UUID) (*models.Subscription, error)
	ListActiveForMember(ctx context.Context, memberID uuid.UUID) ([]models.Subscription, error)
	DeactivateByIDs(ctx context.Context, ids []uuid.UUID, at time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a subscription repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).First(&sub, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repositoryImpl) FindByReconciliationKey(ctx context.Context, memberID, partnerID uuid.UUID, paymentReference string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Where("member_id = ? AND partner_id = ? AND payment_reference = ?", memberID, partnerID, paymentReference).
		First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindActiveForMemberPartner returns the member's current active entitlement
// for the partner. Multiple rows should not occur; if reconciliation ever
// races into two, the newest wins for read purposes.
func (r *repositoryImpl) FindActiveForMemberPartner(ctx context.Context, memberID, partnerID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Where("member_id = ? AND partner_id = ? AND status = ?", memberID, partnerID, enums.SubscriptionStatusActive).
		Order("created_at DESC").
		First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repositoryImpl) ListActiveForMember(ctx context.Context, memberID uuid.UUID) ([]models.Subscription, error) {
	var subs []models.Subscription
	if err := r.db.WithContext(ctx).
		Where("member_id = ? AND status = ?", memberID, enums.SubscriptionStatusActive).
		Order("created_at ASC").
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// DeactivateByIDs demotes the given subscriptions to inactive. Already
// inactive rows are left untouched; the affected count lets callers detect
// a concurrent demotion.
func (r *repositoryImpl) DeactivateByIDs(ctx context.Context, ids []uuid.UUID, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id IN ? AND status = ?", ids, enums.SubscriptionStatusActive).
		UpdateColumns(map[string]any{
			"status":     enums.SubscriptionStatusInactive,
			"updated_at": at,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
