package vouchers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valeclub/valeclub-backend/internal/identity"
	"github.com/valeclub/valeclub-backend/pkg/config"
	dbpkg "github.com/valeclub/valeclub-backend/pkg/db"
	"github.com/valeclub/valeclub-backend/pkg/db/models"
	"github.com/valeclub/valeclub-backend/pkg/enums"
	pkgerrors "github.com/valeclub/valeclub-backend/pkg/errors"
	"github.com/valeclub/valeclub-backend/pkg/logger"
	"github.com/valeclub/valeclub-backend/pkg/metrics"
	"github.com/valeclub/valeclub-backend/pkg/outbox"
	"github.com/valeclub/valeclub-backend/pkg/outbox/payloads"
	"github.com/valeclub/valeclub-backend/pkg/pagination"
	"github.com/valeclub/valeclub-backend/pkg/visibility"
)

const codeCollisionRetries = 5

type establishmentLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Establishment, error)
}

type partnerLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Partner, error)
}

type entitlementReader interface {
	FindActiveForMemberPartner(ctx context.Context, memberID, partnerID uuid.UUID) (*models.Subscription, error)
}

type identityResolver interface {
	Resolve(ctx context.Context, hint identity.Hint) (*models.Member, error)
}

type notificationWriter interface {
	CreateWithTx(tx *gorm.DB, notification *models.Notification) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns the voucher lifecycle: throttled generation, operator
// validation with lazy expiration, and atomic check-in.
type Service interface {
	Generate(ctx context.Context, memberID, establishmentID uuid.UUID) (*GenerateResult, error)
	Validate(ctx context.Context, code string, operatorID, operatorEstablishmentID uuid.UUID) (*ValidationResult, error)
	CheckIn(ctx context.Context, code string, operatorID, operatorEstablishmentID uuid.UUID) (*CheckInResult, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
}

// ServiceParams groups dependencies for the voucher service.
type ServiceParams struct {
	Repo              Repository
	Establishments    establishmentLoader
	Partners          partnerLoader
	Entitlements      entitlementReader
	Resolver          identityResolver
	Notifications     notificationWriter
	Outbox            outboxPublisher
	TransactionRunner txRunner
	Config            config.VouchersConfig
	Metrics           *metrics.VoucherMetrics
	Logger            *logger.Logger
	Now               func() time.Time
}

type service struct {
	repo           Repository
	establishments establishmentLoader
	partners       partnerLoader
	entitlements   entitlementReader
	resolver       identityResolver
	notifications  notificationWriter
	outbox         outboxPublisher
	txRunner       txRunner
	gate           *Gate
	cfg            config.VouchersConfig
	metrics        *metrics.VoucherMetrics
	logg           *logger.Logger
	now            func() time.Time
}

// NewService builds a voucher service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("voucher repository required")
	}
	if params.Establishments == nil {
		return nil, fmt.Errorf("establishments loader required")
	}
	if params.Partners == nil {
		return nil, fmt.Errorf("partners loader required")
	}
	if params.Entitlements == nil {
		return nil, fmt.Errorf("entitlements reader required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("identity resolver required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notifications repository required")
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
		repo:           params.Repo,
		establishments: params.Establishments,
		partners:       params.Partners,
		entitlements:   params.Entitlements,
		resolver:       params.Resolver,
		notifications:  params.Notifications,
		outbox:         params.Outbox,
		txRunner:       params.TransactionRunner,
		gate:           NewGate(params.Repo, params.Config),
		cfg:            params.Config,
		metrics:        params.Metrics,
		logg:           logg,
		now:            now,
	}, nil
}

// Generate creates a pending voucher for the member at the establishment.
// The throttle check and the insert are deliberately not one transaction; a
// rare race produces an extra voucher inside the cooldown window, which is a
// cosmetic inconsistency rather than a correctness problem.
func (s *service) Generate(ctx context.Context, memberID, establishmentID uuid.UUID) (*GenerateResult, error) {
	now := s.now()

	est, partner, err := s.loadVenue(ctx, establishmentID)
	if err != nil {
		s.metrics.IncGenerated("not_found")
		return nil, err
	}

	entitlement, err := s.activeEntitlement(ctx, memberID, est.PartnerID)
	if err != nil {
		return nil, err
	}
	if err := visibility.EnsureEntitled(visibility.EstablishmentVisibilityInput{
		Establishment: est,
		Partner:       partner,
		Entitlement:   entitlement,
		Now:           now,
	}); err != nil {
		s.metrics.IncGenerated("forbidden")
		return nil, err
	}

	decision, err := s.gate.Evaluate(ctx, est, memberID, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "evaluate generation throttle")
	}
	if !decision.Allowed {
		s.metrics.IncGenerated("throttled")
		return nil, pkgerrors.New(pkgerrors.CodeThrottled, "voucher generation is cooling down").
			WithDetails(map[string]any{"next_available_at": decision.NextAvailableAt})
	}

	expirationHours := est.VoucherExpirationHours
	if expirationHours <= 0 {
		expirationHours = s.cfg.DefaultExpirationHours
	}

	var voucher *models.Voucher
	for attempt := 0; attempt < codeCollisionRetries; attempt++ {
		code, err := NewCode(s.cfg.CodeLength)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate code")
		}
		candidate := &models.Voucher{
			Code:            code,
			EstablishmentID: est.ID,
			MemberID:        memberID,
			Status:          enums.VoucherStatusPending,
			ExpiresAt:       now.Add(time.Duration(expirationHours) * time.Hour),
		}
		if err := s.repo.Create(ctx, candidate); err != nil {
			if dbpkg.IsUniqueViolation(err, "ux_vouchers_code") {
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create voucher")
		}
		voucher = candidate
		break
	}
	if voucher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "voucher code space exhausted")
	}

	s.metrics.IncGenerated("created")
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"member_id":        memberID.String(),
			"establishment_id": est.ID.String(),
			"voucher_code":     voucher.Code,
		})
		s.logg.Info(logCtx, "voucher generated")
	}
	return &GenerateResult{Code: voucher.Code, ExpiresAt: voucher.ExpiresAt}, nil
}

// Validate moves a pending voucher to verified on behalf of an operator and
// enriches the response with the member's display identity. Enrichment runs
// through the resolver's fallback chain; its failure degrades the response,
// never the verification.
func (s *service) Validate(ctx context.Context, code string, operatorID, operatorEstablishmentID uuid.UUID) (*ValidationResult, error) {
	now := s.now()

	voucher, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "voucher not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load voucher")
	}
	if voucher.EstablishmentID != operatorEstablishmentID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "voucher belongs to another establishment")
	}

	if err := s.expireIfDue(ctx, voucher, now); err != nil {
		return nil, err
	}
	switch voucher.Status {
	case enums.VoucherStatusExpired:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "voucher expired")
	case enums.VoucherStatusUsed:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "voucher already used")
	case enums.VoucherStatusVerified:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "voucher already verified")
	}

	ok, err := s.repo.MarkVerified(ctx, voucher.ID, operatorID, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify voucher")
	}
	if !ok {
		// Lost a race: another operation moved the voucher first.
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "voucher is no longer pending")
	}
	voucher.Status = enums.VoucherStatusVerified
	voucher.VerifiedAt = &now
	voucher.VerifiedBy = &operatorID

	result := &ValidationResult{Voucher: *FromModel(voucher, now)}
	if est, err := s.establishments.FindByID(ctx, voucher.EstablishmentID); err == nil {
		result.Establishment = &EstablishmentSummary{ID: est.ID, Name: est.Name}
	}
	result.Member = s.enrichMember(ctx, voucher.MemberID)
	return result, nil
}

// CheckIn redeems a verified voucher. The status transition, the companion
// rating-request notification, and the outbox events commit in one
// transaction: a voucher is never used without its notification and a
// concurrent second check-in observes a state conflict, not a double count.
func (s *service) CheckIn(ctx context.Context, code string, operatorID, operatorEstablishmentID uuid.UUID) (*CheckInResult, error) {
	now := s.now()
	var result *CheckInResult

	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		voucher, err := repo.FindByCode(ctx, code)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "voucher not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load voucher")
		}
		if voucher.EstablishmentID != operatorEstablishmentID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "voucher belongs to another establishment")
		}
		if voucher.Status == enums.VoucherStatusVerified && IsExpired(voucher.ExpiresAt, now) {
			if _, err := repo.MarkExpired(ctx, voucher.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire voucher")
			}
			if err := s.emitExpired(ctx, tx, voucher, now); err != nil {
				return err
			}
			s.metrics.IncExpired()
			return pkgerrors.New(pkgerrors.CodeStateConflict, "voucher expired")
		}

		ok, err := repo.MarkUsed(ctx, voucher.ID, operatorID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark voucher used")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "check-in requires a verified voucher")
		}

		notification := &models.Notification{
			ID:              uuid.New(),
			MemberID:        voucher.MemberID,
			Type:            enums.NotificationTypeRatingRequest,
			Title:           "How was your visit?",
			Message:         "Tell us about your visit and help other members.",
			VoucherID:       &voucher.ID,
			EstablishmentID: &voucher.EstablishmentID,
		}
		if err := s.notifications.CreateWithTx(tx, notification); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create rating request")
		}

		actor := checkInActor(operatorID, operatorEstablishmentID)
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventVoucherCheckedIn,
			AggregateType: enums.AggregateVoucher,
			AggregateID:   voucher.ID,
			Version:       1,
			Actor:         actor,
			Data: payloads.VoucherCheckedInEvent{
				VoucherID:       voucher.ID,
				Code:            voucher.Code,
				MemberID:        voucher.MemberID,
				EstablishmentID: voucher.EstablishmentID,
				UsedAt:          now,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit check-in event")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRatingRequested,
			AggregateType: enums.AggregateNotification,
			AggregateID:   notification.ID,
			Version:       1,
			Actor:         actor,
			Data: payloads.RatingRequestedEvent{
				NotificationID:  notification.ID,
				VoucherID:       voucher.ID,
				MemberID:        voucher.MemberID,
				EstablishmentID: voucher.EstablishmentID,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit rating request event")
		}

		result = &CheckInResult{
			VoucherID:      voucher.ID,
			NotificationID: notification.ID,
			UsedAt:         now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncCheckin()
	if s.logg != nil {
		logCtx := s.logg.WithVoucherCode(ctx, code)
		s.logg.Info(logCtx, "voucher checked in")
	}
	return result, nil
}

// List pages the establishment's voucher report. Stored statuses are mapped
// through the lazy-expiration check for display; the list path never writes.
func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	now := s.now()

	var cursor *pagination.Cursor
	if params.Cursor != "" {
		parsed, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		cursor = parsed
	}

	rows, next, err := s.repo.ListForEstablishment(ctx, listVouchersParams{
		EstablishmentID: params.EstablishmentID,
		Status:          params.Status,
		Limit:           params.Limit,
		Cursor:          cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vouchers")
	}

	result := &ListResult{Items: make([]VoucherDTO, 0, len(rows))}
	for i := range rows {
		result.Items = append(result.Items, *FromModel(&rows[i], now))
	}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func (s *service) loadVenue(ctx context.Context, establishmentID uuid.UUID) (*models.Establishment, *models.Partner, error) {
	est, err := s.establishments.FindByID(ctx, establishmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "establishment not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load establishment")
	}
	partner, err := s.partners.FindByID(ctx, est.PartnerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "establishment not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load partner")
	}
	if err := visibility.EnsureEstablishmentVisible(visibility.EstablishmentVisibilityInput{
		Establishment: est,
		Partner:       partner,
	}); err != nil {
		return nil, nil, err
	}
	return est, partner, nil
}

func (s *service) activeEntitlement(ctx context.Context, memberID, partnerID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.entitlements.FindActiveForMemberPartner(ctx, memberID, partnerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load entitlement")
	}
	return sub, nil
}

// expireIfDue persists a lazy expiration observed on the validate path.
func (s *service) expireIfDue(ctx context.Context, voucher *models.Voucher, now time.Time) error {
	if voucher.Status != enums.VoucherStatusPending && voucher.Status != enums.VoucherStatusVerified {
		return nil
	}
	if !IsExpired(voucher.ExpiresAt, now) {
		return nil
	}

	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).MarkExpired(ctx, voucher.ID); err != nil {
			return err
		}
		return s.emitExpired(ctx, tx, voucher, now)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire voucher")
	}
	voucher.Status = enums.VoucherStatusExpired
	s.metrics.IncExpired()
	return nil
}

func (s *service) emitExpired(ctx context.Context, tx *gorm.DB, voucher *models.Voucher, now time.Time) error {
	return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventVoucherExpired,
		AggregateType: enums.AggregateVoucher,
		AggregateID:   voucher.ID,
		Version:       1,
		Data: payloads.VoucherExpiredEvent{
			VoucherID:       voucher.ID,
			Code:            voucher.Code,
			MemberID:        voucher.MemberID,
			EstablishmentID: voucher.EstablishmentID,
			ExpiredAt:       now,
		},
	})
}

func (s *service) enrichMember(ctx context.Context, memberID uuid.UUID) *MemberSummary {
	member, err := s.resolver.Resolve(ctx, identity.Hint{DocumentID: &memberID})
	if err != nil {
		if s.logg != nil {
			logCtx := s.logg.WithMemberID(ctx, memberID.String())
			s.logg.Warn(logCtx, "member enrichment unavailable")
		}
		return nil
	}
	return &MemberSummary{
		ID:       member.ID,
		Name:     member.Name,
		Email:    member.Email,
		Phone:    member.Phone,
		PhotoURL: member.PhotoURL,
	}
}

func checkInActor(operatorID, establishmentID uuid.UUID) *outbox.ActorRef {
	est := establishmentID
	return &outbox.ActorRef{
		MemberID:        operatorID,
		EstablishmentID: &est,
		Role:            string(enums.RoleOperator),
	}
}
