package entitlements

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valeclub/valeclub-backend/internal/identity"
	dbpkg "github.com/valeclub/valeclub-backend/pkg/db"
	"github.com/valeclub/valeclub-backend/pkg/db/models"
	"github.com/valeclub/valeclub-backend/pkg/enums"
	pkgerrors "github.com/valeclub/valeclub-backend/pkg/errors"
	"github.com/valeclub/valeclub-backend/pkg/logger"
	"github.com/valeclub/valeclub-backend/pkg/metrics"
	"github.com/valeclub/valeclub-backend/pkg/outbox"
	"github.com/valeclub/valeclub-backend/pkg/outbox/payloads"
	"github.com/valeclub/valeclub-backend/pkg/pagination"
)

const (
	metricReconciled = "reconciled"
	metricDuplicate  = "duplicate"
	metricParked     = "parked"
	metricFailed     = "failed"
)

type partnerLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Partner, error)
	FindLinkByID(ctx context.Context, id uuid.UUID) (*models.PartnerLink, error)
	FindLinkBySlug(ctx context.Context, slug string) (*models.PartnerLink, error)
}

type memberLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Member, error)
}

type identityResolver interface {
	Resolve(ctx context.Context, hint identity.Hint) (*models.Member, error)
}

type planResolver interface {
	Resolve(ctx context.Context, provider enums.PaymentProvider, providerPriceID string) (*PlanInfo, error)
}

type parkedStore interface {
	CreateWithTx(tx *gorm.DB, event *models.ParkedPaymentEvent) error
	FindByProviderReference(ctx context.Context, provider enums.PaymentProvider, paymentReference string) (*models.ParkedPaymentEvent, error)
	List(ctx context.Context, params listParkedEventsParams) ([]models.ParkedPaymentEvent, *pagination.Cursor, error)
	Resolve(ctx context.Context, id uuid.UUID, resolvedBy uuid.UUID, at time.Time) (bool, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service converts provider payment events into entitlements. Events that
// cannot be converted are parked for manual review, never dropped; money
// changed hands by the time a webhook reaches us.
type Service interface {
	Reconcile(ctx context.Context, event PaymentEvent) (*ReconciliationResult, error)
	BatchLink(ctx context.Context, memberID uuid.UUID, assignments []PartnerAssignment) (*BatchLinkResult, error)
	ListParked(ctx context.Context, params ListParkedParams) (*ListParkedResult, error)
	ResolveParked(ctx context.Context, id, resolvedBy uuid.UUID) error
}

// ServiceParams groups dependencies for the entitlement service.
type ServiceParams struct {
	Repo              Repository
	Parked            parkedStore
	Partners          partnerLoader
	Members           memberLoader
	Resolver          identityResolver
	Plans             planResolver
	Outbox            outboxPublisher
	TransactionRunner txRunner
	Metrics           *metrics.ReconcilerMetrics
	Logger            *logger.Logger
	Now               func() time.Time
}

type service struct {
	repo     Repository
	parked   parkedStore
	partners partnerLoader
	members  memberLoader
	resolver identityResolver
	plans    planResolver
	outbox   outboxPublisher
	txRunner txRunner
	metrics  *metrics.ReconcilerMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds an entitlement service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("subscription repository required")
	}
	if params.Parked == nil {
		return nil, fmt.Errorf("parked event store required")
	}
	if params.Partners == nil {
		return nil, fmt.Errorf("partners loader required")
	}
	if params.Members == nil {
		return nil, fmt.Errorf("members loader required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("identity resolver required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:     params.Repo,
		parked:   params.Parked,
		partners: params.Partners,
		members:  params.Members,
		resolver: params.Resolver,
		plans:    params.Plans,
		outbox:   params.Outbox,
		txRunner: params.TransactionRunner,
		metrics:  params.Metrics,
		logg:     logg,
		now:      now,
	}, nil
}

// Reconcile processes one payment event. Idempotent on
// (member, partner, payment reference): redelivered events return
// AlreadyReconciled without a second subscription row.
func (s *service) Reconcile(ctx context.Context, event PaymentEvent) (*ReconciliationResult, error) {
	now := s.now()
	ctx = s.logg.WithProvider(ctx, string(event.Provider))

	if event.PaymentReference == "" || !event.Provider.IsValid() {
		s.metrics.IncEvent(string(event.Provider), metricFailed)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment event missing provider or reference")
	}

	member, err := s.resolveBuyer(ctx, event)
	if err != nil {
		s.metrics.IncEvent(string(event.Provider), metricFailed)
		return nil, err
	}
	if member == nil {
		return s.park(ctx, event, enums.ParkedReasonBuyerUnresolvable, "no member matched the buyer identity hints", now)
	}

	if event.PartnerID == nil && event.PartnerLinkID == nil && event.PartnerLinkSlug == nil {
		return s.park(ctx, event, enums.ParkedReasonMalformedEvent, "event names neither a partner nor an attribution link", now)
	}
	partner, linkID, err := s.resolvePartner(ctx, event)
	if err != nil {
		s.metrics.IncEvent(string(event.Provider), metricFailed)
		return nil, err
	}
	if partner == nil {
		return s.park(ctx, event, enums.ParkedReasonPartnerUnresolvable, "partner hints did not match a known partner", now)
	}

	expiresAt, ok := s.computeExpiry(ctx, event, now)
	if !ok {
		return s.park(ctx, event, enums.ParkedReasonUnknownInterval, "no billing interval descriptor and no provider period end", now)
	}

	if existing, err := s.repo.FindByReconciliationKey(ctx, member.ID, partner.ID, event.PaymentReference); err == nil {
		s.metrics.IncEvent(string(event.Provider), metricDuplicate)
		return &ReconciliationResult{Outcome: OutcomeAlreadyReconciled, SubscriptionID: &existing.ID}, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.metrics.IncEvent(string(event.Provider), metricFailed)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check reconciliation key")
	}

	sub := &models.Subscription{
		ID:               uuid.New(),
		MemberID:         member.ID,
		PartnerID:        partner.ID,
		Status:           enums.SubscriptionStatusActive,
		PaymentProvider:  event.Provider,
		PaymentReference: event.PaymentReference,
		PartnerLinkID:    linkID,
		ExpiresAt:        expiresAt,
		Metadata:         rawOrEmpty(event.Raw),
	}

	txErr := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		prior, err := repo.FindActiveForMemberPartner(ctx, member.ID, partner.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := repo.Create(ctx, sub); err != nil {
			return err
		}

		if prior != nil {
			if _, err := repo.DeactivateByIDs(ctx, []uuid.UUID{prior.ID}, now); err != nil {
				return err
			}
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventSubscriptionReplaced,
				AggregateType: enums.AggregateSubscription,
				AggregateID:   prior.ID,
				Data: payloads.SubscriptionReplacedEvent{
					SubscriptionID: prior.ID,
					ReplacedByID:   sub.ID,
					MemberID:       member.ID,
					PartnerID:      partner.ID,
					DeactivatedAt:  now,
					ExpiresAt:      prior.ExpiresAt,
				},
				OccurredAt: now,
			}); err != nil {
				return err
			}
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSubscriptionActivated,
			AggregateType: enums.AggregateSubscription,
			AggregateID:   sub.ID,
			Data: payloads.SubscriptionActivatedEvent{
				SubscriptionID:   sub.ID,
				MemberID:         member.ID,
				PartnerID:        partner.ID,
				Provider:         event.Provider,
				PaymentReference: event.PaymentReference,
				ExpiresAt:        expiresAt,
			},
			OccurredAt: now,
		})
	})
	if txErr != nil {
		if dbpkg.IsUniqueViolation(txErr, "ux_subscriptions_reconciliation_key") {
			s.metrics.IncEvent(string(event.Provider), metricDuplicate)
			result := &ReconciliationResult{Outcome: OutcomeAlreadyReconciled}
			if existing, err := s.repo.FindByReconciliationKey(ctx, member.ID, partner.ID, event.PaymentReference); err == nil {
				result.SubscriptionID = &existing.ID
			}
			return result, nil
		}
		s.metrics.IncEvent(string(event.Provider), metricFailed)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "reconcile payment event")
	}

	s.metrics.IncEvent(string(event.Provider), metricReconciled)
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"subscription_id":   sub.ID.String(),
		"member_id":         member.ID.String(),
		"partner_id":        partner.ID.String(),
		"payment_reference": event.PaymentReference,
	})
	s.logg.Info(logCtx, "payment event reconciled")

	return &ReconciliationResult{Outcome: OutcomeCreated, SubscriptionID: &sub.ID}, nil
}

func (s *service) resolveBuyer(ctx context.Context, event PaymentEvent) (*models.Member, error) {
	hint := identity.Hint{
		DocumentID:     event.BuyerDocumentID,
		ExternalAuthID: event.BuyerExternalID,
		Email:          event.BuyerEmail,
	}
	member, err := s.resolver.Resolve(ctx, hint)
	if err != nil {
		if coded := pkgerrors.As(err); coded != nil {
			switch coded.Code() {
			case pkgerrors.CodeNotFound, pkgerrors.CodeValidation:
				return nil, nil
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve buyer identity")
	}
	return member, nil
}

// resolvePartner follows the direct id or the attribution link. A nil partner
// with nil error means the hints pointed at nothing, which parks the event.
func (s *service) resolvePartner(ctx context.Context, event PaymentEvent) (*models.Partner, *uuid.UUID, error) {
	if event.PartnerID != nil {
		partner, err := s.partners.FindByID(ctx, *event.PartnerID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil
		}
		if err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load partner")
		}
		return partner, event.PartnerLinkID, nil
	}

	var (
		link *models.PartnerLink
		err  error
	)
	if event.PartnerLinkID != nil {
		link, err = s.partners.FindLinkByID(ctx, *event.PartnerLinkID)
	} else {
		link, err = s.partners.FindLinkBySlug(ctx, *event.PartnerLinkSlug)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load attribution link")
	}

	partner, err := s.partners.FindByID(ctx, link.PartnerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load partner behind link")
	}
	return partner, &link.ID, nil
}

// computeExpiry derives the entitlement deadline: explicit interval
// descriptor first, then the billing plan behind the provider price id, then
// the provider-supplied period end. No guessing past that.
func (s *service) computeExpiry(ctx context.Context, event PaymentEvent, now time.Time) (*time.Time, bool) {
	if event.Interval != nil && event.Interval.Unit.IsValid() && event.Interval.Count > 0 {
		expiresAt := event.Interval.Unit.Add(now, event.Interval.Count)
		return &expiresAt, true
	}

	if event.ProviderPriceID != "" && s.plans != nil {
		info, err := s.plans.Resolve(ctx, event.Provider, event.ProviderPriceID)
		if err == nil && info.IntervalUnit.IsValid() && info.IntervalCount > 0 {
			expiresAt := info.IntervalUnit.Add(now, info.IntervalCount)
			return &expiresAt, true
		}
		if err != nil {
			logCtx := s.logg.WithField(ctx, "provider_price_id", event.ProviderPriceID)
			s.logg.Warn(logCtx, "billing plan lookup missed")
		}
	}

	if event.PeriodEnd != nil {
		return event.PeriodEnd, true
	}
	return nil, false
}

func (s *service) park(ctx context.Context, event PaymentEvent, reason enums.ParkedEventReason, detail string, now time.Time) (*ReconciliationResult, error) {
	parked := &models.ParkedPaymentEvent{
		ID:               uuid.New(),
		Provider:         event.Provider,
		PaymentReference: event.PaymentReference,
		Reason:           reason,
		Detail:           detail,
		Payload:          rawOrEmpty(event.Raw),
	}

	txErr := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.parked.CreateWithTx(tx, parked); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentEventParked,
			AggregateType: enums.AggregatePaymentEvent,
			AggregateID:   parked.ID,
			Data: payloads.PaymentEventParkedEvent{
				ParkedEventID:    parked.ID,
				Provider:         event.Provider,
				PaymentReference: event.PaymentReference,
				Reason:           reason,
			},
			OccurredAt: now,
		})
	})
	if txErr != nil {
		// Redelivery of an already-parked event hits the provider+reference
		// unique index; report the existing parked record.
		if dbpkg.IsUniqueViolation(txErr, "ux_parked_events_provider_ref") {
			existing, err := s.parked.FindByProviderReference(ctx, event.Provider, event.PaymentReference)
			if err == nil {
				s.metrics.IncEvent(string(event.Provider), metricParked)
				return &ReconciliationResult{Outcome: OutcomeParked, ParkedEventID: &existing.ID, ParkedReason: existing.Reason}, nil
			}
		}
		s.metrics.IncEvent(string(event.Provider), metricFailed)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "park payment event")
	}

	s.metrics.IncEvent(string(event.Provider), metricParked)
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"payment_reference": event.PaymentReference,
		"reason":            string(reason),
	})
	s.logg.Warn(logCtx, "payment event parked for manual review")

	return &ReconciliationResult{Outcome: OutcomeParked, ParkedEventID: &parked.ID, ParkedReason: reason}, nil
}

// BatchLink replaces the member's active entitlement set with the given
// assignments. Deactivations and creations commit together; no caller
// observes a half-applied set.
func (s *service) BatchLink(ctx context.Context, memberID uuid.UUID, assignments []PartnerAssignment) (*BatchLinkResult, error) {
	now := s.now()

	if len(assignments) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one partner assignment required")
	}
	seen := make(map[uuid.UUID]struct{}, len(assignments))
	for _, assignment := range assignments {
		if assignment.PartnerID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "assignment partner id required")
		}
		if _, dup := seen[assignment.PartnerID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate partner in batch")
		}
		seen[assignment.PartnerID] = struct{}{}
		if !assignment.Provider.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "assignment payment provider invalid")
		}
	}

	member, err := s.members.FindByID(ctx, memberID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "member not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load member")
	}
	for _, assignment := range assignments {
		if _, err := s.partners.FindByID(ctx, assignment.PartnerID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "assignment partner not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assignment partner")
		}
	}

	var (
		created     []SubscriptionDTO
		deactivated []uuid.UUID
	)
	txErr := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		prior, err := repo.ListActiveForMember(ctx, member.ID)
		if err != nil {
			return err
		}

		priorIDs := make([]uuid.UUID, 0, len(prior))
		for _, sub := range prior {
			priorIDs = append(priorIDs, sub.ID)
		}
		if _, err := repo.DeactivateByIDs(ctx, priorIDs, now); err != nil {
			return err
		}

		newByPartner := make(map[uuid.UUID]uuid.UUID, len(assignments))
		created = created[:0]
		for _, assignment := range assignments {
			sub := &models.Subscription{
				ID:               uuid.New(),
				MemberID:         member.ID,
				PartnerID:        assignment.PartnerID,
				Status:           enums.SubscriptionStatusActive,
				PaymentProvider:  assignment.Provider,
				PaymentReference: batchReference(assignment),
				PartnerLinkID:    assignment.PartnerLinkID,
				ExpiresAt:        assignment.ExpiresAt,
			}
			if err := repo.Create(ctx, sub); err != nil {
				return err
			}
			newByPartner[sub.PartnerID] = sub.ID
			created = append(created, SubscriptionFromModel(sub))

			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventSubscriptionActivated,
				AggregateType: enums.AggregateSubscription,
				AggregateID:   sub.ID,
				Data: payloads.SubscriptionActivatedEvent{
					SubscriptionID:   sub.ID,
					MemberID:         member.ID,
					PartnerID:        sub.PartnerID,
					Provider:         sub.PaymentProvider,
					PaymentReference: sub.PaymentReference,
					ExpiresAt:        sub.ExpiresAt,
				},
				OccurredAt: now,
			}); err != nil {
				return err
			}
		}

		deactivated = priorIDs
		for _, sub := range prior {
			replacedBy, replaced := newByPartner[sub.PartnerID]
			if !replaced {
				continue
			}
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventSubscriptionReplaced,
				AggregateType: enums.AggregateSubscription,
				AggregateID:   sub.ID,
				Data: payloads.SubscriptionReplacedEvent{
					SubscriptionID: sub.ID,
					ReplacedByID:   replacedBy,
					MemberID:       member.ID,
					PartnerID:      sub.PartnerID,
					DeactivatedAt:  now,
					ExpiresAt:      sub.ExpiresAt,
				},
				OccurredAt: now,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		if dbpkg.IsUniqueViolation(txErr, "ux_subscriptions_reconciliation_key") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeIdempotency, txErr, "assignment payment reference already reconciled")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "batch link member")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"member_id":   member.ID.String(),
		"created":     len(created),
		"deactivated": len(deactivated),
	})
	s.logg.Info(logCtx, "member active set replaced")

	return &BatchLinkResult{Created: created, Deactivated: deactivated}, nil
}

// ListParked returns parked payment events for the admin review surface.
func (s *service) ListParked(ctx context.Context, params ListParkedParams) (*ListParkedResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid pagination cursor")
	}

	events, next, err := s.parked.List(ctx, listParkedEventsParams{
		IncludeResolved: params.IncludeResolved,
		Limit:           params.Limit,
		Cursor:          cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list parked events")
	}

	result := &ListParkedResult{Events: make([]ParkedEventDTO, 0, len(events))}
	for i := range events {
		result.Events = append(result.Events, ParkedEventFromModel(&events[i]))
	}
	if next != nil {
		result.NextCursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

// ResolveParked marks a parked event handled by an operator.
func (s *service) ResolveParked(ctx context.Context, id, resolvedBy uuid.UUID) error {
	ok, err := s.parked.Resolve(ctx, id, resolvedBy, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve parked event")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "parked event already resolved or unknown")
	}
	return nil
}

func batchReference(assignment PartnerAssignment) string {
	if assignment.PaymentReference != "" {
		return assignment.PaymentReference
	}
	return "admin-link-" + uuid.NewString()
}

func rawOrEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(`{}`)
	}
	return raw
}
