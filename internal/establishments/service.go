package establishments

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valeclub/valeclub-backend/pkg/cache"
	"github.com/valeclub/valeclub-backend/pkg/config"
	"github.com/valeclub/valeclub-backend/pkg/db/models"
	pkgerrors "github.com/valeclub/valeclub-backend/pkg/errors"
	"github.com/valeclub/valeclub-backend/pkg/visibility"
)

type establishmentRepository interface {
	ListActive(ctx context.Context, city string) ([]models.Establishment, error)
}

// Service exposes the public establishment surface.
type Service interface {
	ListPublic(ctx context.Context, city string) ([]EstablishmentDTO, error)
}

type service struct {
	repo  establishmentRepository
	cache *cache.Cache
	ttl   time.Duration
}

// NewService builds the establishment service. The cache is optional; without
// it every listing request hits the database.
func NewService(repo establishmentRepository, c *cache.Cache, cfg config.CacheConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("establishment repository required")
	}
	return &service{repo: repo, cache: c, ttl: cfg.ListingTTL}, nil
}

// ListPublic returns the active establishments for the public directory,
// served through the read-through cache keyed by normalized city.
func (s *service) ListPublic(ctx context.Context, city string) ([]EstablishmentDTO, error) {
	city = visibility.NormalizeCity(city)

	key := "establishments:public"
	if city != "" {
		key = key + ":" + city
	}

	payload, err := s.cache.GetOrCompute(ctx, key, s.ttl, func(ctx context.Context) (string, error) {
		rows, err := s.repo.ListActive(ctx, city)
		if err != nil {
			return "", err
		}
		dtos := make([]EstablishmentDTO, 0, len(rows))
		for i := range rows {
			dtos = append(dtos, *FromModel(&rows[i]))
		}
		raw, err := json.Marshal(dtos)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list establishments")
	}

	var dtos []EstablishmentDTO
	if err := json.Unmarshal([]byte(payload), &dtos); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode cached listing")
	}
	return dtos, nil
}
