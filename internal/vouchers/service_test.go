package vouchers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valeclub/valeclub-backend/internal/identity"
	"github.com/valeclub/valeclub-backend/pkg/config"
	"github.com/valeclub/valeclub-backend/pkg/db/models"
	"github.com/valeclub/valeclub-backend/pkg/enums"
	pkgerrors "github.com/valeclub/valeclub-backend/pkg/errors"
	"github.com/valeclub/valeclub-backend/pkg/outbox"
	"github.com/valeclub/valeclub-backend/pkg/pagination"
)

type fakeVoucherRepo struct {
	createFn       func(ctx context.Context, voucher *models.Voucher) error
	findByCodeFn   func(ctx context.Context, code string) (*models.Voucher, error)
	lastForPairFn  func(ctx context.Context, establishmentID, memberID uuid.UUID) (*models.Voucher, error)
	markVerifiedFn func(ctx context.Context, id, operatorID uuid.UUID, at time.Time) (bool, error)
	markUsedFn     func(ctx context.Context, id, operatorID uuid.UUID, at time.Time) (bool, error)
	markExpiredFn  func(ctx context.Context, id uuid.UUID) (bool, error)
	listFn         func(ctx context.Context, params listVouchersParams) ([]models.Voucher, *pagination.Cursor, error)
}

func (f *fakeVoucherRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeVoucherRepo) Create(ctx context.Context, voucher *models.Voucher) error {
	if f.createFn != nil {
		return f.createFn(ctx, voucher)
	}
	return nil
}

func (f *fakeVoucherRepo) FindByCode(ctx context.Context, code string) (*models.Voucher, error) {
	if f.findByCodeFn != nil {
		return f.findByCodeFn(ctx, code)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeVoucherRepo) LastForPair(ctx context.Context, establishmentID, memberID uuid.UUID) (*models.Voucher, error) {
	if f.lastForPairFn != nil {
		return f.lastForPairFn(ctx, establishmentID, memberID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeVoucherRepo) MarkVerified(ctx context.Context, id, operatorID uuid.UUID, at time.Time) (bool, error) {
	if f.markVerifiedFn != nil {
		return f.markVerifiedFn(ctx, id, operatorID, at)
	}
	return true, nil
}

func (f *fakeVoucherRepo) MarkUsed(ctx context.Context, id, operatorID uuid.UUID, at time.Time) (bool, error) {
	if f.markUsedFn != nil {
		return f.markUsedFn(ctx, id, operatorID, at)
	}
	return true, nil
}

func (f *fakeVoucherRepo) MarkExpired(ctx context.Context, id uuid.UUID) (bool, error) {
	if f.markExpiredFn != nil {
		return f.markExpiredFn(ctx, id)
	}
	return true, nil
}

func (f *fakeVoucherRepo) ListForEstablishment(ctx context.Context, params listVouchersParams) ([]models.Voucher, *pagination.Cursor, error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}
	return nil, nil, nil
}

type fakeEstablishments struct {
	byID map[uuid.UUID]*models.Establishment
}

func (f *fakeEstablishments) FindByID(ctx context.Context, id uuid.UUID) (*models.Establishment, error) {
	if est, ok := f.byID[id]; ok {
		return est, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakePartners struct {
	byID map[uuid.UUID]*models.Partner
}

func (f *fakePartners) FindByID(ctx context.Context, id uuid.UUID) (*models.Partner, error) {
	if partner, ok := f.byID[id]; ok {
		return partner, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeEntitlements struct {
	sub *models.Subscription
}

func (f *fakeEntitlements) FindActiveForMemberPartner(ctx context.Context, memberID, partnerID uuid.UUID) (*models.Subscription, error) {
	if f.sub == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.sub, nil
}

type fakeResolver struct {
	member *models.Member
	err    error
}

func (f *fakeResolver) Resolve(ctx context.Context, hint identity.Hint) (*models.Member, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.member, nil
}

type fakeNotifRepo struct {
	created []*models.Notification
	fail    error
}

func (f *fakeNotifRepo) CreateWithTx(tx *gorm.DB, notification *models.Notification) error {
	if f.fail != nil {
		return f.fail
	}
	f.created = append(f.created, notification)
	return nil
}

type errDuplicateCode struct{}

func (errDuplicateCode) Error() string {
	return `duplicate key value violates unique constraint "ux_vouchers_code"`
}

type fakeOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutbox) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type serviceFixture struct {
	svc           Service
	repo          *fakeVoucherRepo
	outbox        *fakeOutbox
	notifications *fakeNotifRepo
	est           *models.Establishment
	now           time.Time
}

func newFixture(t *testing.T, repo *fakeVoucherRepo, opts ...func(*serviceFixture)) *serviceFixture {
	t.Helper()

	partnerID := uuid.New()
	est := &models.Establishment{
		ID:                     uuid.New(),
		PartnerID:              partnerID,
		Name:                   "Casa do Norte",
		IsActive:               true,
		CooldownHours:          24,
		VoucherExpirationHours: 48,
	}
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	f := &serviceFixture{
		repo:          repo,
		outbox:        &fakeOutbox{},
		notifications: &fakeNotifRepo{},
		est:           est,
		now:           now,
	}
	for _, opt := range opts {
		opt(f)
	}

	svc, err := NewService(ServiceParams{
		Repo:           repo,
		Establishments: &fakeEstablishments{byID: map[uuid.UUID]*models.Establishment{est.ID: est}},
		Partners: &fakePartners{byID: map[uuid.UUID]*models.Partner{
			partnerID: {ID: partnerID, Name: "Vale Norte", IsActive: true},
		}},
		Entitlements: &fakeEntitlements{sub: &models.Subscription{
			MemberID:  uuid.New(),
			PartnerID: partnerID,
			Status:    enums.SubscriptionStatusActive,
		}},
		Resolver:          &fakeResolver{member: &models.Member{ID: uuid.New(), Name: "Ana", Email: "ana@example.com"}},
		Notifications:     f.notifications,
		Outbox:            f.outbox,
		TransactionRunner: fakeTxRunner{},
		Config:            config.VouchersConfig{CodeLength: 8, DefaultCooldownHours: 24, DefaultExpirationHours: 48},
		Now:               func() time.Time { return f.now },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc
	return f
}

func TestGenerate_CreatesPendingVoucher(t *testing.T) {
	var created *models.Voucher
	repo := &fakeVoucherRepo{
		createFn: func(ctx context.Context, voucher *models.Voucher) error {
			created = voucher
			return nil
		},
	}
	f := newFixture(t, repo)

	result, err := f.svc.Generate(context.Background(), uuid.New(), f.est.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if created == nil {
		t.Fatal("expected voucher to be persisted")
	}
	if created.Status != enums.VoucherStatusPending {
		t.Fatalf("new voucher status %s, want pending", created.Status)
	}
	if len(result.Code) != 8 {
		t.Fatalf("code %q length %d, want 8", result.Code, len(result.Code))
	}
	if want := f.now.Add(48 * time.Hour); !result.ExpiresAt.Equal(want) {
		t.Fatalf("expires at %s, want %s", result.ExpiresAt, want)
	}
}

func TestGenerate_ThrottledCarriesNextAvailableAt(t *testing.T) {
	var f *serviceFixture
	repo := &fakeVoucherRepo{
		lastForPairFn: func(ctx context.Context, establishmentID, memberID uuid.UUID) (*models.Voucher, error) {
			return &models.Voucher{CreatedAt: f.now.Add(-time.Hour)}, nil
		},
	}
	f = newFixture(t, repo)

	_, err := f.svc.Generate(context.Background(), uuid.New(), f.est.ID)
	if err == nil {
		t.Fatal("expected throttle denial")
	}
	coded := pkgerrors.As(err)
	if coded.Code() != pkgerrors.CodeThrottled {
		t.Fatalf("expected throttled, got %s", coded.Code())
	}
	details, ok := coded.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", coded.Details())
	}
	next, ok := details["next_available_at"].(*time.Time)
	if !ok || next == nil {
		t.Fatal("expected next_available_at in details")
	}
	if want := f.now.Add(23 * time.Hour); !next.Equal(want) {
		t.Fatalf("next available at %s, want %s", next, want)
	}
}

func TestGenerate_UnknownEstablishment(t *testing.T) {
	f := newFixture(t, &fakeVoucherRepo{})
	_, err := f.svc.Generate(context.Background(), uuid.New(), uuid.New())
	if err == nil {
		t.Fatal("expected error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGenerate_RetriesCodeCollisions(t *testing.T) {
	attempts := 0
	codes := map[string]bool{}
	repo := &fakeVoucherRepo{
		createFn: func(ctx context.Context, voucher *models.Voucher) error {
			attempts++
			if attempts < 3 {
				return errDuplicateCode{}
			}
			codes[voucher.Code] = true
			return nil
		},
	}
	f := newFixture(t, repo)

	if _, err := f.svc.Generate(context.Background(), uuid.New(), f.est.ID); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 create attempts, got %d", attempts)
	}
}

func TestValidate_PersistsLazyExpiration(t *testing.T) {
	var f *serviceFixture
	expired := false
	voucher := &models.Voucher{
		ID:     uuid.New(),
		Code:   "ABC12345",
		Status: enums.VoucherStatusPending,
	}
	repo := &fakeVoucherRepo{
		findByCodeFn: func(ctx context.Context, code string) (*models.Voucher, error) {
			return voucher, nil
		},
		markExpiredFn: func(ctx context.Context, id uuid.UUID) (bool, error) {
			expired = true
			return true, nil
		},
	}
	f = newFixture(t, repo)
	voucher.EstablishmentID = f.est.ID
	voucher.ExpiresAt = f.now.Add(-time.Hour)

	_, err := f.svc.Validate(context.Background(), voucher.Code, uuid.New(), f.est.ID)
	if err == nil {
		t.Fatal("expected state conflict")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if !expired {
		t.Fatal("lazy expiration must persist before rejecting")
	}
	if len(f.outbox.events) != 1 || f.outbox.events[0].EventType != enums.EventVoucherExpired {
		t.Fatalf("expected one voucher_expired event, got %v", f.outbox.events)
	}
}

func TestValidate_RejectsUsedVoucher(t *testing.T) {
	var f *serviceFixture
	voucher := &models.Voucher{ID: uuid.New(), Code: "USED1234", Status: enums.VoucherStatusUsed}
	repo := &fakeVoucherRepo{
		findByCodeFn: func(ctx context.Context, code string) (*models.Voucher, error) {
			return voucher, nil
		},
	}
	f = newFixture(t, repo)
	voucher.EstablishmentID = f.est.ID
	voucher.ExpiresAt = f.now.Add(time.Hour)

	_, err := f.svc.Validate(context.Background(), voucher.Code, uuid.New(), f.est.ID)
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestValidate_ScopedToOperatorEstablishment(t *testing.T) {
	var f *serviceFixture
	voucher := &models.Voucher{ID: uuid.New(), Code: "ELSEWHER", Status: enums.VoucherStatusPending, EstablishmentID: uuid.New()}
	repo := &fakeVoucherRepo{
		findByCodeFn: func(ctx context.Context, code string) (*models.Voucher, error) {
			return voucher, nil
		},
	}
	f = newFixture(t, repo)
	voucher.ExpiresAt = f.now.Add(time.Hour)

	_, err := f.svc.Validate(context.Background(), voucher.Code, uuid.New(), f.est.ID)
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestValidate_EnrichmentFailureDegrades(t *testing.T) {
	var f *serviceFixture
	voucher := &models.Voucher{ID: uuid.New(), Code: "PEND1234", Status: enums.VoucherStatusPending, MemberID: uuid.New()}
	repo := &fakeVoucherRepo{
		findByCodeFn: func(ctx context.Context, code string) (*models.Voucher, error) {
			return voucher, nil
		},
	}
	f = newFixture(t, repo)
	voucher.EstablishmentID = f.est.ID
	voucher.ExpiresAt = f.now.Add(time.Hour)

	// Swap in a resolver that always fails.
	svc := f.svc.(*service)
	svc.resolver = &fakeResolver{err: pkgerrors.New(pkgerrors.CodeNotFound, "member unresolvable")}

	result, err := f.svc.Validate(context.Background(), voucher.Code, uuid.New(), f.est.ID)
	if err != nil {
		t.Fatalf("validation must succeed without enrichment: %v", err)
	}
	if result.Member != nil {
		t.Fatal("expected missing member summary")
	}
	if result.Voucher.Status != enums.VoucherStatusVerified {
		t.Fatalf("voucher status %s, want verified", result.Voucher.Status)
	}
}

func TestCheckIn_CreatesCompanionNotificationAndEvents(t *testing.T) {
	var f *serviceFixture
	voucher := &models.Voucher{ID: uuid.New(), Code: "VERIF123", Status: enums.VoucherStatusVerified, MemberID: uuid.New()}
	repo := &fakeVoucherRepo{
		findByCodeFn: func(ctx context.Context, code string) (*models.Voucher, error) {
			return voucher, nil
		},
	}
	f = newFixture(t, repo)
	voucher.EstablishmentID = f.est.ID
	voucher.ExpiresAt = f.now.Add(time.Hour)

	result, err := f.svc.CheckIn(context.Background(), voucher.Code, uuid.New(), f.est.ID)
	if err != nil {
		t.Fatalf("check in: %v", err)
	}

	created := f.notifications.created
	if len(created) != 1 {
		t.Fatalf("expected one rating request, got %d", len(created))
	}
	if created[0].VoucherID == nil || *created[0].VoucherID != voucher.ID {
		t.Fatal("notification must reference the redeemed voucher")
	}
	if created[0].Type != enums.NotificationTypeRatingRequest {
		t.Fatalf("notification type %s", created[0].Type)
	}
	if result.NotificationID != created[0].ID {
		t.Fatal("result must carry the companion notification id")
	}

	if len(f.outbox.events) != 2 {
		t.Fatalf("expected 2 outbox events, got %d", len(f.outbox.events))
	}
	if f.outbox.events[0].EventType != enums.EventVoucherCheckedIn {
		t.Fatalf("first event %s", f.outbox.events[0].EventType)
	}
	if f.outbox.events[1].EventType != enums.EventRatingRequested {
		t.Fatalf("second event %s", f.outbox.events[1].EventType)
	}
}

func TestCheckIn_SecondAttemptLoses(t *testing.T) {
	var f *serviceFixture
	voucher := &models.Voucher{ID: uuid.New(), Code: "RACE1234", Status: enums.VoucherStatusVerified}
	repo := &fakeVoucherRepo{
		findByCodeFn: func(ctx context.Context, code string) (*models.Voucher, error) {
			return voucher, nil
		},
		markUsedFn: func(ctx context.Context, id, operatorID uuid.UUID, at time.Time) (bool, error) {
			// The concurrent winner already flipped the row.
			return false, nil
		},
	}
	f = newFixture(t, repo)
	voucher.EstablishmentID = f.est.ID
	voucher.ExpiresAt = f.now.Add(time.Hour)

	_, err := f.svc.CheckIn(context.Background(), voucher.Code, uuid.New(), f.est.ID)
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if len(f.notifications.created) != 0 {
		t.Fatal("losing check-in must not create a notification")
	}
	if len(f.outbox.events) != 0 {
		t.Fatal("losing check-in must not emit events")
	}
}

func TestList_MapsLazyExpiration(t *testing.T) {
	var f *serviceFixture
	repo := &fakeVoucherRepo{}
	f = newFixture(t, repo)
	repo.listFn = func(ctx context.Context, params listVouchersParams) ([]models.Voucher, *pagination.Cursor, error) {
		return []models.Voucher{
			{ID: uuid.New(), Status: enums.VoucherStatusPending, ExpiresAt: f.now.Add(-time.Minute)},
			{ID: uuid.New(), Status: enums.VoucherStatusUsed, ExpiresAt: f.now.Add(-time.Minute)},
		}, nil, nil
	}

	result, err := f.svc.List(context.Background(), ListParams{EstablishmentID: f.est.ID, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if result.Items[0].Status != enums.VoucherStatusExpired {
		t.Fatalf("pending past deadline listed as %s", result.Items[0].Status)
	}
	if result.Items[1].Status != enums.VoucherStatusUsed {
		t.Fatalf("used voucher listed as %s", result.Items[1].Status)
	}
}
