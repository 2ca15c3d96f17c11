package partners

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valeclub/valeclub-backend/internal/repo"
	"github.com/valeclub/valeclub-backend/pkg/db/models"
)

// Repository handles partner and attribution-link persistence.
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to partner operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// FindByID loads a partner by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Partner, error) {
	var partner models.Partner
	if err := r.DB(ctx).First(&partner, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &partner, nil
}

// FindLinkByID loads an attribution link by its UUID.
func (r *Repository) FindLinkByID(ctx context.Context, id uuid.UUID) (*models.PartnerLink, error) {
	var link models.PartnerLink
	if err := r.DB(ctx).First(&link, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

// FindLinkBySlug loads an attribution link by its checkout slug.
func (r *Repository) FindLinkBySlug(ctx context.Context, slug string) (*models.PartnerLink, error) {
	var link models.PartnerLink
	if err := r.DB(ctx).Where("slug = ?", slug).First(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}
