package entitlements

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valeclub/valeclub-backend/pkg/db/models"
	"github.com/valeclub/valeclub-backend/pkg/enums"
	"github.com/valeclub/valeclub-backend/pkg/pagination"
)

// ParkedEventRepository persists payment events the reconciler could not
// process. (provider, payment_reference) is unique so a redelivered broken
// event parks once, not once per delivery.
type ParkedEventRepository struct {
	db *gorm.DB
}

// NewParkedEventRepository binds a GORM DB to parked payment event operations.
func NewParkedEventRepository(db *gorm.DB) *ParkedEventRepository {
	return &ParkedEventRepository{db: db}
}

func (r *ParkedEventRepository) CreateWithTx(tx *gorm.DB, event *models.ParkedPaymentEvent) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	return tx.Create(event).Error
}

func (r *ParkedEventRepository) FindByProviderReference(ctx context.Context, provider enums.PaymentProvider, paymentReference string) (*models.ParkedPaymentEvent, error) {
	var event models.ParkedPaymentEvent
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND payment_reference = ?", provider, paymentReference).
		First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

type listParkedEventsParams struct {
	IncludeResolved bool
	Limit           int
	Cursor          *pagination.Cursor
}

// List returns parked events for manual review, unresolved first by default,
// newest first with cursor pagination.
func (r *ParkedEventRepository) List(ctx context.Context, params listParkedEventsParams) ([]models.ParkedPaymentEvent, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.ParkedPaymentEvent{})
	if !params.IncludeResolved {
		query = query.Where("resolved_at IS NULL")
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var events []models.ParkedPaymentEvent
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&events).Error; err != nil {
		return nil, nil, err
	}

	var next *pagination.Cursor
	if len(events) > limit {
		events = events[:limit]
		last := events[len(events)-1]
		next = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return events, next, nil
}

// Resolve marks a parked event as handled. Returns false when the event was
// already resolved or does not exist.
func (r *ParkedEventRepository) Resolve(ctx context.Context, id uuid.UUID, resolvedBy uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ParkedPaymentEvent{}).
		Where("id = ? AND resolved_at IS NULL", id).
		UpdateColumns(map[string]any{
			"resolved_at": at,
			"resolved_by": resolvedBy,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
