package establishments

import (
	"github.com/google/uuid"

	"github.com/valeclub/valeclub-backend/pkg/db/models"
)

// EstablishmentDTO is the public listing shape. Cooldown and expiration
// settings are operational config and are not exposed.
type EstablishmentDTO struct {
	ID        uuid.UUID `json:"id"`
	PartnerID uuid.UUID `json:"partner_id"`
	Name      string    `json:"name"`
	City      *string   `json:"city,omitempty"`
	Category  *string   `json:"category,omitempty"`
}

// FromModel maps an establishment row to its listing shape.
func FromModel(e *models.Establishment) *EstablishmentDTO {
	if e == nil {
		return nil
	}
	return &EstablishmentDTO{
		ID:        e.ID,
		PartnerID: e.PartnerID,
		Name:      e.Name,
		City:      e.City,
		Category:  e.Category,
	}
}
