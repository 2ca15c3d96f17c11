package entitlements

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valeclub/valeclub-backend/internal/identity"
	"github.com/valeclub/valeclub-backend/pkg/db/models"
	"github.com/valeclub/valeclub-backend/pkg/enums"
	pkgerrors "github.com/valeclub/valeclub-backend/pkg/errors"
	"github.com/valeclub/valeclub-backend/pkg/outbox"
	"github.com/valeclub/valeclub-backend/pkg/pagination"
)

type fakeSubRepo struct {
	findByKeyFn  func(ctx context.Context, memberID, partnerID uuid.UUID, reference string) (*models.Subscription, error)
	findActiveFn func(ctx context.Context, memberID, partnerID uuid.UUID) (*models.Subscription, error)
	listActiveFn func(ctx context.Context, memberID uuid.UUID) ([]models.Subscription, error)
	createFn     func(ctx context.Context, sub *models.Subscription) error

	created     []*models.Subscription
	deactivated [][]uuid.UUID
}

func (f *fakeSubRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeSubRepo) Create(ctx context.Context, sub *models.Subscription) error {
	if f.createFn != nil {
		if err := f.createFn(ctx, sub); err != nil {
			return err
		}
	}
	f.created = append(f.created, sub)
	return nil
}

func (f *fakeSubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSubRepo) FindByReconciliationKey(ctx context.Context, memberID, partnerID uuid.UUID, reference string) (*models.Subscription, error) {
	if f.findByKeyFn != nil {
		return f.findByKeyFn(ctx, memberID, partnerID, reference)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSubRepo) FindActiveForMemberPartner(ctx context.Context, memberID, partnerID uuid.UUID) (*models.Subscription, error) {
	if f.findActiveFn != nil {
		return f.findActiveFn(ctx, memberID, partnerID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSubRepo) ListActiveForMember(ctx context.Context, memberID uuid.UUID) ([]models.Subscription, error) {
	if f.listActiveFn != nil {
		return f.listActiveFn(ctx, memberID)
	}
	return nil, nil
}

func (f *fakeSubRepo) DeactivateByIDs(ctx context.Context, ids []uuid.UUID, at time.Time) (int64, error) {
	if len(ids) > 0 {
		f.deactivated = append(f.deactivated, ids)
	}
	return int64(len(ids)), nil
}

type fakeParkedStore struct {
	created []*models.ParkedPaymentEvent
	fail    error

	findFn    func(ctx context.Context, provider enums.PaymentProvider, reference string) (*models.ParkedPaymentEvent, error)
	resolveFn func(ctx context.Context, id uuid.UUID, resolvedBy uuid.UUID, at time.Time) (bool, error)
}

func (f *fakeParkedStore) CreateWithTx(tx *gorm.DB, event *models.ParkedPaymentEvent) error {
	if f.fail != nil {
		return f.fail
	}
	f.created = append(f.created, event)
	return nil
}

func (f *fakeParkedStore) FindByProviderReference(ctx context.Context, provider enums.PaymentProvider, reference string) (*models.ParkedPaymentEvent, error) {
	if f.findFn != nil {
		return f.findFn(ctx, provider, reference)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeParkedStore) List(ctx context.Context, params listParkedEventsParams) ([]models.ParkedPaymentEvent, *pagination.Cursor, error) {
	events := make([]models.ParkedPaymentEvent, 0, len(f.created))
	for _, event := range f.created {
		events = append(events, *event)
	}
	return events, nil, nil
}

func (f *fakeParkedStore) Resolve(ctx context.Context, id uuid.UUID, resolvedBy uuid.UUID, at time.Time) (bool, error) {
	if f.resolveFn != nil {
		return f.resolveFn(ctx, id, resolvedBy, at)
	}
	return true, nil
}

type fakePartnerLoader struct {
	byID      map[uuid.UUID]*models.Partner
	linksByID map[uuid.UUID]*models.PartnerLink
	linkSlugs map[string]*models.PartnerLink
}

func (f *fakePartnerLoader) FindByID(ctx context.Context, id uuid.UUID) (*models.Partner, error) {
	if partner, ok := f.byID[id]; ok {
		return partner, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePartnerLoader) FindLinkByID(ctx context.Context, id uuid.UUID) (*models.PartnerLink, error) {
	if link, ok := f.linksByID[id]; ok {
		return link, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePartnerLoader) FindLinkBySlug(ctx context.Context, slug string) (*models.PartnerLink, error) {
	if link, ok := f.linkSlugs[slug]; ok {
		return link, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeMemberLoader struct {
	byID map[uuid.UUID]*models.Member
}

func (f *fakeMemberLoader) FindByID(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	if member, ok := f.byID[id]; ok {
		return member, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeIdentity struct {
	member *models.Member
	err    error
}

func (f *fakeIdentity) Resolve(ctx context.Context, hint identity.Hint) (*models.Member, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.member, nil
}

type fakePlans struct {
	info *PlanInfo
	err  error
}

func (f *fakePlans) Resolve(ctx context.Context, provider enums.PaymentProvider, providerPriceID string) (*PlanInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.info, nil
}

type fakeEventSink struct {
	events []outbox.DomainEvent
}

func (f *fakeEventSink) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type errDuplicateSubscription struct{}

func (errDuplicateSubscription) Error() string {
	return `duplicate key value violates unique constraint "ux_subscriptions_reconciliation_key"`
}

type reconcilerFixture struct {
	repo    *fakeSubRepo
	parked  *fakeParkedStore
	outbox  *fakeEventSink
	member  *models.Member
	partner *models.Partner
	link    *models.PartnerLink
	now     time.Time
	svc     Service
}

func newReconcilerFixture(t *testing.T, repo *fakeSubRepo, opts ...func(*reconcilerFixture)) *reconcilerFixture {
	t.Helper()

	partner := &models.Partner{ID: uuid.New(), Name: "Vale Norte", IsActive: true}
	link := &models.PartnerLink{ID: uuid.New(), PartnerID: partner.ID, Slug: "vale-norte", IsActive: true}
	member := &models.Member{ID: uuid.New(), Name: "Ana", Email: "ana@example.com"}

	f := &reconcilerFixture{
		repo:    repo,
		parked:  &fakeParkedStore{},
		outbox:  &fakeEventSink{},
		member:  member,
		partner: partner,
		link:    link,
		now:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	for _, opt := range opts {
		opt(f)
	}

	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Parked: f.parked,
		Partners: &fakePartnerLoader{
			byID:      map[uuid.UUID]*models.Partner{partner.ID: partner},
			linksByID: map[uuid.UUID]*models.PartnerLink{link.ID: link},
			linkSlugs: map[string]*models.PartnerLink{link.Slug: link},
		},
		Members:           &fakeMemberLoader{byID: map[uuid.UUID]*models.Member{member.ID: member}},
		Resolver:          &fakeIdentity{member: member},
		Plans:             &fakePlans{err: pkgerrors.New(pkgerrors.CodeNotFound, "no plan")},
		Outbox:            f.outbox,
		TransactionRunner: fakeTx{},
		Now:               func() time.Time { return f.now },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc
	return f
}

func (f *reconcilerFixture) monthlyEvent() PaymentEvent {
	email := f.member.Email
	return PaymentEvent{
		Provider:         enums.PaymentProviderStripe,
		PaymentReference: "pay_999",
		BuyerEmail:       &email,
		PartnerID:        &f.partner.ID,
		Interval:         &BillingInterval{Unit: enums.BillingIntervalMonth, Count: 1},
		OccurredAt:       f.now,
		Raw:              []byte(`{"id":"evt_1"}`),
	}
}

func TestReconcile_CreatesActiveSubscription(t *testing.T) {
	repo := &fakeSubRepo{}
	f := newReconcilerFixture(t, repo)

	result, err := f.svc.Reconcile(context.Background(), f.monthlyEvent())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.Outcome != OutcomeCreated {
		t.Fatalf("outcome = %s, want created", result.Outcome)
	}
	if len(repo.created) != 1 {
		t.Fatalf("created %d subscriptions, want 1", len(repo.created))
	}

	sub := repo.created[0]
	if sub.Status != enums.SubscriptionStatusActive {
		t.Errorf("status = %s, want active", sub.Status)
	}
	if sub.MemberID != f.member.ID || sub.PartnerID != f.partner.ID {
		t.Error("subscription not keyed to resolved member and partner")
	}
	wantExpiry := f.now.AddDate(0, 1, 0)
	if sub.ExpiresAt == nil || !sub.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("expires_at = %v, want %v", sub.ExpiresAt, wantExpiry)
	}

	if len(f.outbox.events) != 1 || f.outbox.events[0].EventType != enums.EventSubscriptionActivated {
		t.Fatalf("events = %+v, want one subscription_activated", f.outbox.events)
	}
}

func TestReconcile_RedeliveryReturnsAlreadyReconciled(t *testing.T) {
	existing := &models.Subscription{ID: uuid.New()}
	repo := &fakeSubRepo{
		findByKeyFn: func(ctx context.Context, memberID, partnerID uuid.UUID, reference string) (*models.Subscription, error) {
			return existing, nil
		},
	}
	f := newReconcilerFixture(t, repo)

	result, err := f.svc.Reconcile(context.Background(), f.monthlyEvent())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.Outcome != OutcomeAlreadyReconciled {
		t.Fatalf("outcome = %s, want already_reconciled", result.Outcome)
	}
	if result.SubscriptionID == nil || *result.SubscriptionID != existing.ID {
		t.Error("result should point at the existing subscription")
	}
	if len(repo.created) != 0 {
		t.Error("redelivery must not create a second subscription")
	}
	if len(f.outbox.events) != 0 {
		t.Error("redelivery must not emit events")
	}
}

func TestReconcile_InsertRaceMapsToAlreadyReconciled(t *testing.T) {
	existing := &models.Subscription{ID: uuid.New()}
	calls := 0
	repo := &fakeSubRepo{
		findByKeyFn: func(ctx context.Context, memberID, partnerID uuid.UUID, reference string) (*models.Subscription, error) {
			calls++
			if calls == 1 {
				return nil, gorm.ErrRecordNotFound
			}
			return existing, nil
		},
		createFn: func(ctx context.Context, sub *models.Subscription) error {
			return errDuplicateSubscription{}
		},
	}
	f := newReconcilerFixture(t, repo)

	result, err := f.svc.Reconcile(context.Background(), f.monthlyEvent())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.Outcome != OutcomeAlreadyReconciled {
		t.Fatalf("outcome = %s, want already_reconciled", result.Outcome)
	}
	if result.SubscriptionID == nil || *result.SubscriptionID != existing.ID {
		t.Error("race loser should surface the winner's subscription")
	}
}

func TestReconcile_BuyerUnresolvableParks(t *testing.T) {
	repo := &fakeSubRepo{}
	f := newReconcilerFixture(t, repo)

	event := f.monthlyEvent()
	f.svcWithResolver(t, &fakeIdentity{err: pkgerrors.New(pkgerrors.CodeNotFound, "no member matched")})

	result, err := f.svc.Reconcile(context.Background(), event)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.Outcome != OutcomeParked {
		t.Fatalf("outcome = %s, want parked", result.Outcome)
	}
	if result.ParkedReason != enums.ParkedReasonBuyerUnresolvable {
		t.Errorf("reason = %s, want buyer_unresolvable", result.ParkedReason)
	}
	if len(f.parked.created) != 1 {
		t.Fatalf("parked %d events, want 1", len(f.parked.created))
	}
	if len(repo.created) != 0 {
		t.Error("unresolvable buyer must not create a subscription")
	}
	if len(f.outbox.events) != 1 || f.outbox.events[0].EventType != enums.EventPaymentEventParked {
		t.Fatalf("events = %+v, want one payment_event_parked", f.outbox.events)
	}
}

// svcWithResolver rebuilds the service with a different identity resolver.
func (f *reconcilerFixture) svcWithResolver(t *testing.T, resolver identityResolver) {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:   f.repo,
		Parked: f.parked,
		Partners: &fakePartnerLoader{
			byID:      map[uuid.UUID]*models.Partner{f.partner.ID: f.partner},
			linksByID: map[uuid.UUID]*models.PartnerLink{f.link.ID: f.link},
			linkSlugs: map[string]*models.PartnerLink{f.link.Slug: f.link},
		},
		Members:           &fakeMemberLoader{byID: map[uuid.UUID]*models.Member{f.member.ID: f.member}},
		Resolver:          resolver,
		Outbox:            f.outbox,
		TransactionRunner: fakeTx{},
		Now:               func() time.Time { return f.now },
	})
	if err != nil {
		t.Fatalf("rebuild service: %v", err)
	}
	f.svc = svc
}

func TestReconcile_PartnerViaAttributionLink(t *testing.T) {
	repo := &fakeSubRepo{}
	f := newReconcilerFixture(t, repo)

	slug := f.link.Slug
	event := f.monthlyEvent()
	event.PartnerID = nil
	event.PartnerLinkSlug = &slug

	result, err := f.svc.Reconcile(context.Background(), event)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.Outcome != OutcomeCreated {
		t.Fatalf("outcome = %s, want created", result.Outcome)
	}
	sub := repo.created[0]
	if sub.PartnerID != f.partner.ID {
		t.Error("link should resolve to the owning partner")
	}
	if sub.PartnerLinkID == nil || *sub.PartnerLinkID != f.link.ID {
		t.Error("subscription should record the attribution link")
	}
}

func TestReconcile_UnknownPartnerParks(t *testing.T) {
	repo := &fakeSubRepo{}
	f := newReconcilerFixture(t, repo)

	unknown := uuid.New()
	event := f.monthlyEvent()
	event.PartnerID = &unknown

	result, err := f.svc.Reconcile(context.Background(), event)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.Outcome != OutcomeParked || result.ParkedReason != enums.ParkedReasonPartnerUnresolvable {
		t.Fatalf("result = %+v, want parked partner_unresolvable", result)
	}
}

func TestReconcile_FallsBackToProviderPeriodEnd(t *testing.T) {
	repo := &fakeSubRepo{}
	f := newReconcilerFixture(t, repo)

	periodEnd := f.now.Add(30 * 24 * time.Hour)
	event := f.monthlyEvent()
	event.Interval = nil
	event.PeriodEnd = &periodEnd

	result, err := f.svc.Reconcile(context.Background(), event)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.Outcome != OutcomeCreated {
		t.Fatalf("outcome = %s, want created", result.Outcome)
	}
	sub := repo.created[0]
	if sub.ExpiresAt == nil || !sub.ExpiresAt.Equal(periodEnd) {
		t.Errorf("expires_at = %v, want provider period end %v", sub.ExpiresAt, periodEnd)
	}
}

func TestReconcile_NoIntervalNoPeriodEndParks(t *testing.T) {
	repo := &fakeSubRepo{}
	f := newReconcilerFixture(t, repo)

	event := f.monthlyEvent()
	event.Interval = nil

	result, err := f.svc.Reconcile(context.Background(), event)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.Outcome != OutcomeParked || result.ParkedReason != enums.ParkedReasonUnknownInterval {
		t.Fatalf("result = %+v, want parked unknown_interval", result)
	}
	if len(repo.created) != 0 {
		t.Error("parking must not guess an expiry and create a subscription")
	}
}

func TestReconcile_IntervalFromBillingPlan(t *testing.T) {
	repo := &fakeSubRepo{}
	f := newReconcilerFixture(t, repo)

	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Parked: f.parked,
		Partners: &fakePartnerLoader{
			byID: map[uuid.UUID]*models.Partner{f.partner.ID: f.partner},
		},
		Members:  &fakeMemberLoader{byID: map[uuid.UUID]*models.Member{f.member.ID: f.member}},
		Resolver: &fakeIdentity{member: f.member},
		Plans: &fakePlans{info: &PlanInfo{
			Name:          "Anual",
			IntervalUnit:  enums.BillingIntervalYear,
			IntervalCount: 1,
		}},
		Outbox:            f.outbox,
		TransactionRunner: fakeTx{},
		Now:               func() time.Time { return f.now },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	event := f.monthlyEvent()
	event.Interval = nil
	event.ProviderPriceID = "price_year"

	result, err := svc.Reconcile(context.Background(), event)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.Outcome != OutcomeCreated {
		t.Fatalf("outcome = %s, want created", result.Outcome)
	}
	wantExpiry := f.now.AddDate(1, 0, 0)
	if sub := repo.created[0]; sub.ExpiresAt == nil || !sub.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("expires_at = %v, want %v from the billing plan", sub.ExpiresAt, wantExpiry)
	}
}

func TestReconcile_SupersedesPriorActive(t *testing.T) {
	f := newReconcilerFixture(t, &fakeSubRepo{})
	prior := &models.Subscription{
		ID:        uuid.New(),
		MemberID:  f.member.ID,
		PartnerID: f.partner.ID,
		Status:    enums.SubscriptionStatusActive,
	}
	f.repo.findActiveFn = func(ctx context.Context, memberID, partnerID uuid.UUID) (*models.Subscription, error) {
		return prior, nil
	}

	result, err := f.svc.Reconcile(context.Background(), f.monthlyEvent())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.Outcome != OutcomeCreated {
		t.Fatalf("outcome = %s, want created", result.Outcome)
	}

	if len(f.repo.deactivated) != 1 || f.repo.deactivated[0][0] != prior.ID {
		t.Fatalf("deactivated = %+v, want the prior subscription", f.repo.deactivated)
	}
	if len(f.outbox.events) != 2 {
		t.Fatalf("emitted %d events, want replaced + activated", len(f.outbox.events))
	}
	if f.outbox.events[0].EventType != enums.EventSubscriptionReplaced {
		t.Errorf("first event = %s, want subscription_replaced", f.outbox.events[0].EventType)
	}
	if f.outbox.events[1].EventType != enums.EventSubscriptionActivated {
		t.Errorf("second event = %s, want subscription_activated", f.outbox.events[1].EventType)
	}
}

func TestBatchLink_ReplacesActiveSet(t *testing.T) {
	f := newReconcilerFixture(t, &fakeSubRepo{})

	p1 := &models.Partner{ID: uuid.New(), Name: "P1", IsActive: true}
	p2 := &models.Partner{ID: uuid.New(), Name: "P2", IsActive: true}
	p3 := &models.Partner{ID: uuid.New(), Name: "P3", IsActive: true}
	priorSub := models.Subscription{
		ID:        uuid.New(),
		MemberID:  f.member.ID,
		PartnerID: p3.ID,
		Status:    enums.SubscriptionStatusActive,
	}
	f.repo.listActiveFn = func(ctx context.Context, memberID uuid.UUID) ([]models.Subscription, error) {
		return []models.Subscription{priorSub}, nil
	}

	svc, err := NewService(ServiceParams{
		Repo:   f.repo,
		Parked: f.parked,
		Partners: &fakePartnerLoader{byID: map[uuid.UUID]*models.Partner{
			p1.ID: p1, p2.ID: p2, p3.ID: p3,
		}},
		Members:           &fakeMemberLoader{byID: map[uuid.UUID]*models.Member{f.member.ID: f.member}},
		Resolver:          &fakeIdentity{member: f.member},
		Outbox:            f.outbox,
		TransactionRunner: fakeTx{},
		Now:               func() time.Time { return f.now },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	result, err := svc.BatchLink(context.Background(), f.member.ID, []PartnerAssignment{
		{PartnerID: p1.ID, Provider: enums.PaymentProviderStripe, PaymentReference: "batch_p1"},
		{PartnerID: p2.ID, Provider: enums.PaymentProviderStripe, PaymentReference: "batch_p2"},
	})
	if err != nil {
		t.Fatalf("batch link: %v", err)
	}

	if len(result.Created) != 2 {
		t.Fatalf("created %d subscriptions, want 2", len(result.Created))
	}
	if len(result.Deactivated) != 1 || result.Deactivated[0] != priorSub.ID {
		t.Fatalf("deactivated = %+v, want the prior P3 subscription", result.Deactivated)
	}

	partners := map[uuid.UUID]bool{}
	for _, sub := range result.Created {
		if sub.Status != enums.SubscriptionStatusActive {
			t.Errorf("created subscription %s is %s, want active", sub.ID, sub.Status)
		}
		partners[sub.PartnerID] = true
	}
	if !partners[p1.ID] || !partners[p2.ID] {
		t.Error("active set should be exactly {P1, P2}")
	}

	// P3 had no replacement in the batch, so only the two activations emit.
	activated := 0
	for _, event := range f.outbox.events {
		if event.EventType == enums.EventSubscriptionActivated {
			activated++
		}
	}
	if activated != 2 {
		t.Errorf("emitted %d activation events, want 2", activated)
	}
}

func TestBatchLink_RejectsBadInput(t *testing.T) {
	f := newReconcilerFixture(t, &fakeSubRepo{})

	_, err := f.svc.BatchLink(context.Background(), f.member.ID, nil)
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Errorf("empty batch error = %v, want validation", err)
	}

	dup := []PartnerAssignment{
		{PartnerID: f.partner.ID, Provider: enums.PaymentProviderStripe, PaymentReference: "a"},
		{PartnerID: f.partner.ID, Provider: enums.PaymentProviderStripe, PaymentReference: "b"},
	}
	_, err = f.svc.BatchLink(context.Background(), f.member.ID, dup)
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Errorf("duplicate partner error = %v, want validation", err)
	}

	_, err = f.svc.BatchLink(context.Background(), uuid.New(), []PartnerAssignment{
		{PartnerID: f.partner.ID, Provider: enums.PaymentProviderStripe, PaymentReference: "c"},
	})
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeNotFound {
		t.Errorf("unknown member error = %v, want not found", err)
	}
}

func TestResolveParked_AlreadyResolvedConflicts(t *testing.T) {
	f := newReconcilerFixture(t, &fakeSubRepo{})
	f.parked.resolveFn = func(ctx context.Context, id uuid.UUID, resolvedBy uuid.UUID, at time.Time) (bool, error) {
		return false, nil
	}

	err := f.svc.ResolveParked(context.Background(), uuid.New(), uuid.New())
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeStateConflict {
		t.Errorf("error = %v, want state conflict", err)
	}
}
