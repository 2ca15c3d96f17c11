package members

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valeclub/valeclub-backend/internal/repo"
	"github.com/valeclub/valeclub-backend/pkg/db/models"
)

// Repository exposes member persistence operations.
type Repository struct {
	repo.Base
}

// NewRepository constructs a members repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// FindByID loads a member by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	var member models.Member
	if err := r.DB(ctx).First(&member, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// FindByExternalAuthID retrieves the member matching the auth provider's subject.
func (r *Repository) FindByExternalAuthID(ctx context.Context, externalAuthID string) (*models.Member, error) {
	var member models.Member
	if err := r.DB(ctx).
		Where("external_auth_id = ?", externalAuthID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// FindByEmail retrieves the member matching the provided email, normalized to
// lower case. Emails are not unique across members; the oldest record wins so
// repeated lookups stay deterministic.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.Member, error) {
	var member models.Member
	if err := r.DB(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Order("created_at ASC").
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// UpdateExternalAuthID overwrites the member's stored auth subject.
func (r *Repository) UpdateExternalAuthID(ctx context.Context, id uuid.UUID, externalAuthID string) error {
	return r.DB(ctx).
		Model(&models.Member{}).
		Where("id = ?", id).
		UpdateColumn("external_auth_id", externalAuthID).Error
}
