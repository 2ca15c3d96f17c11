package establishments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valeclub/valeclub-backend/internal/repo"
	"github.com/valeclub/valeclub-backend/pkg/db/models"
)

// Repository handles establishment persistence. The voucher engine only
// reads establishments; their CRUD lives in the partner back office.
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to establishment operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// FindByID loads an establishment by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Establishment, error) {
	var est models.Establishment
	if err := r.DB(ctx).First(&est, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &est, nil
}

// ListActive returns all active establishments, optionally filtered by city,
// ordered by name for stable listing output.
func (r *Repository) ListActive(ctx context.Context, city string) ([]models.Establishment, error) {
	query := r.DB(ctx).Where("is_active = ?", true)
	if city != "" {
		query = query.Where("city = ?", city)
	}
	var ests []models.Establishment
	if err := query.Order("name ASC").Find(&ests).Error; err != nil {
		return nil, err
	}
	return ests, nil
}
