package vouchers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valeclub/valeclub-backend/pkg/db/models"
	"github.com/valeclub/valeclub-backend/pkg/enums"
	"github.com/valeclub/valeclub-backend/pkg/pagination"
)

// Repository exposes voucher persistence. State transitions are expressed as
// conditional updates keyed on the current status so that concurrent callers
// racing on the same voucher resolve to exactly one winner, the loser sees
// zero affected rows and maps that to a state conflict.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, voucher *models.Voucher) error
	FindByCode(ctx context.Context, code string) (*models.Voucher, error)
	LastForPair(ctx context.Context, establishmentID, memberID uuid.UUID) (*models.Voucher, error)
	MarkVerified(ctx context.Context, id uuid.UUID, operatorID uuid.UUID, at time.Time) (bool, error)
	MarkUsed(ctx context.Context, id uuid.UUID, operatorID uuid.UUID, at time.Time) (bool, error)
	MarkExpired(ctx context.Context, id uuid.UUID) (bool, error)
	ListForEstablishment(ctx context.Context, params listVouchersParams) ([]models.Voucher, *pagination.Cursor, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a voucher repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listVouchersParams struct {
	EstablishmentID uuid.UUID
	Status          *enums.VoucherStatus
	Limit           int
	Cursor          *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, voucher *models.Voucher) error {
	return r.db.WithContext(ctx).Create(voucher).Error
}

func (r *repositoryImpl) FindByCode(ctx context.Context, code string) (*models.Voucher, error) {
	var voucher models.Voucher
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&voucher).Error; err != nil {
		return nil, err
	}
	return &voucher, nil
}

// LastForPair returns the most recently created voucher for the
// (establishment, member) pair. The throttle gate projects the cooldown
// window over this row.
func (r *repositoryImpl) LastForPair(ctx context.Context, establishmentID, memberID uuid.UUID) (*models.Voucher, error) {
	var voucher models.Voucher
	if err := r.db.WithContext(ctx).
		Where("establishment_id = ? AND member_id = ?", establishmentID, memberID).
		Order("created_at DESC").
		First(&voucher).Error; err != nil {
		return nil, err
	}
	return &voucher, nil
}

func (r *repositoryImpl) MarkVerified(ctx context.Context, id uuid.UUID, operatorID uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Voucher{}).
		Where("id = ? AND status = ?", id, enums.VoucherStatusPending).
		UpdateColumns(map[string]any{
			"status":      enums.VoucherStatusVerified,
			"verified_at": at,
			"verified_by": operatorID,
			"updated_at":  at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) MarkUsed(ctx context.Context, id uuid.UUID, operatorID uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Voucher{}).
		Where("id = ? AND status = ?", id, enums.VoucherStatusVerified).
		UpdateColumns(map[string]any{
			"status":     enums.VoucherStatusUsed,
			"used_at":    at,
			"used_by":    operatorID,
			"updated_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkExpired persists a lazy expiration. Only pending and verified vouchers
// qualify; a used voucher never expires.
func (r *repositoryImpl) MarkExpired(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Voucher{}).
		Where("id = ? AND status IN ?", id, []enums.VoucherStatus{
			enums.VoucherStatusPending,
			enums.VoucherStatusVerified,
		}).
		UpdateColumn("status", enums.VoucherStatusExpired)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) ListForEstablishment(ctx context.Context, params listVouchersParams) ([]models.Voucher, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Model(&models.Voucher{}).
		Where("establishment_id = ?", params.EstablishmentID)
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var vouchers []models.Voucher
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&vouchers).Error; err != nil {
		return nil, nil, err
	}

	if len(vouchers) > normalized {
		next := vouchers[normalized]
		vouchers = vouchers[:normalized]
		return vouchers, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return vouchers, nil, nil
}
