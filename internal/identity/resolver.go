package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valeclub/valeclub-backend/pkg/db/models"
	pkgerrors "github.com/valeclub/valeclub-backend/pkg/errors"
	"github.com/valeclub/valeclub-backend/pkg/logger"
)

type memberRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Member, error)
	FindByExternalAuthID(ctx context.Context, externalAuthID string) (*models.Member, error)
	FindByEmail(ctx context.Context, email string) (*models.Member, error)
	UpdateExternalAuthID(ctx context.Context, id uuid.UUID, externalAuthID string) error
}

// Hint carries whatever identifiers the caller has for a member. Fields were
// historically populated by different upstream code paths and may disagree;
// the resolver tries them in precedence order rather than trusting any one.
type Hint struct {
	DocumentID     *uuid.UUID
	ExternalAuthID *string
	Email          *string
}

func (h Hint) empty() bool {
	return h.DocumentID == nil && h.ExternalAuthID == nil && h.Email == nil
}

// Resolver maps a fragmentary identifier hint to the canonical member record.
// It never owns member data and never merges distinct people: an exact id
// match always wins over an email match.
type Resolver struct {
	members memberRepository
	logg    *logger.Logger
}

// NewResolver builds a Resolver over the members repository.
func NewResolver(members memberRepository, logg *logger.Logger) (*Resolver, error) {
	if members == nil {
		return nil, fmt.Errorf("members repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Resolver{members: members, logg: logg}, nil
}

type strategy struct {
	name string
	run  func(ctx context.Context) (*models.Member, error)
}

// Resolve walks the strategy chain and returns the first match. When the
// match came from an email lookup and the hint carried an auth id the stored
// record disagrees with, the stored auth id is repaired in place; the repair
// is a logged corrective write and its failure never fails the resolution.
func (r *Resolver) Resolve(ctx context.Context, hint Hint) (*models.Member, error) {
	if hint.empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "identity hint is empty")
	}

	strategies := r.strategiesFor(hint)
	for _, s := range strategies {
		member, err := s.run(ctx)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve member")
		}
		if s.name == "email" {
			r.repairAuthID(ctx, member, hint)
		}
		return member, nil
	}

	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "member unresolvable")
}

func (r *Resolver) strategiesFor(hint Hint) []strategy {
	var strategies []strategy
	if hint.DocumentID != nil {
		id := *hint.DocumentID
		strategies = append(strategies, strategy{
			name: "document_id",
			run: func(ctx context.Context) (*models.Member, error) {
				return r.members.FindByID(ctx, id)
			},
		})
	}
	if hint.ExternalAuthID != nil && *hint.ExternalAuthID != "" {
		authID := *hint.ExternalAuthID
		strategies = append(strategies, strategy{
			name: "external_auth_id",
			run: func(ctx context.Context) (*models.Member, error) {
				return r.members.FindByExternalAuthID(ctx, authID)
			},
		})
	}
	if hint.DocumentID != nil {
		// Upstream has historically stored the auth subject where the
		// document id was expected. Try the supplied id in that space too.
		asAuthID := hint.DocumentID.String()
		strategies = append(strategies, strategy{
			name: "document_id_as_auth_id",
			run: func(ctx context.Context) (*models.Member, error) {
				return r.members.FindByExternalAuthID(ctx, asAuthID)
			},
		})
	}
	if hint.Email != nil && strings.TrimSpace(*hint.Email) != "" {
		email := *hint.Email
		strategies = append(strategies, strategy{
			name: "email",
			run: func(ctx context.Context) (*models.Member, error) {
				return r.members.FindByEmail(ctx, email)
			},
		})
	}
	return strategies
}

// repairAuthID persists the hint's auth id onto a member found only by email.
func (r *Resolver) repairAuthID(ctx context.Context, member *models.Member, hint Hint) {
	canonical := ""
	if hint.ExternalAuthID != nil && *hint.ExternalAuthID != "" {
		canonical = *hint.ExternalAuthID
	} else if hint.DocumentID != nil {
		canonical = hint.DocumentID.String()
	}
	if canonical == "" {
		return
	}
	if member.ExternalAuthID != nil && *member.ExternalAuthID == canonical {
		return
	}

	if err := r.members.UpdateExternalAuthID(ctx, member.ID, canonical); err != nil {
		if r.logg != nil {
			logCtx := r.logg.WithMemberID(ctx, member.ID.String())
			r.logg.Error(logCtx, "auth id repair failed", err)
		}
		return
	}
	member.ExternalAuthID = &canonical
	if r.logg != nil {
		logCtx := r.logg.WithFields(ctx, map[string]any{
			"member_id":        member.ID.String(),
			"external_auth_id": canonical,
		})
		r.logg.Info(logCtx, "repaired stale external auth id")
	}
}
