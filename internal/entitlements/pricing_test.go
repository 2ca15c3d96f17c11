package entitlements

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/valeclub/valeclub-backend/pkg/db/models"
	"github.com/valeclub/valeclub-backend/pkg/enums"
	pkgerrors "github.com/valeclub/valeclub-backend/pkg/errors"
)

type fakePlanCatalog struct {
	byPriceID map[string]*models.BillingPlan
	defaults  map[enums.PaymentProvider]*models.BillingPlan
}

func (f *fakePlanCatalog) FindByProviderPriceID(ctx context.Context, provider enums.PaymentProvider, providerPriceID string) (*models.BillingPlan, error) {
	if plan, ok := f.byPriceID[providerPriceID]; ok {
		return plan, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePlanCatalog) FindDefault(ctx context.Context, provider enums.PaymentProvider) (*models.BillingPlan, error) {
	if plan, ok := f.defaults[provider]; ok {
		return plan, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeProviderCatalog struct {
	byPriceID map[string]*PlanInfo
	calls     int
}

func (f *fakeProviderCatalog) LookupPrice(ctx context.Context, providerPriceID string) (*PlanInfo, error) {
	f.calls++
	if info, ok := f.byPriceID[providerPriceID]; ok {
		return info, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "price not in provider catalog")
}

func TestPlanResolver_LocalCatalogWins(t *testing.T) {
	provider := &fakeProviderCatalog{byPriceID: map[string]*PlanInfo{
		"price_month": {Name: "Stripe Mensal", IntervalUnit: enums.BillingIntervalMonth, IntervalCount: 1},
	}}
	resolver, err := NewPlanResolver(
		&fakePlanCatalog{byPriceID: map[string]*models.BillingPlan{
			"price_month": {ID: "plan-monthly", Name: "Mensal", IntervalUnit: enums.BillingIntervalMonth, IntervalCount: 1},
		}},
		map[enums.PaymentProvider]ProviderCatalog{enums.PaymentProviderStripe: provider},
		nil,
	)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	info, err := resolver.Resolve(context.Background(), enums.PaymentProviderStripe, "price_month")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if info.Name != "Mensal" || info.Source != "catalog" {
		t.Errorf("info = %+v, want local catalog hit", info)
	}
	if provider.calls != 0 {
		t.Error("provider catalog must not be consulted when the local catalog hits")
	}
}

func TestPlanResolver_ProviderCatalogFallback(t *testing.T) {
	provider := &fakeProviderCatalog{byPriceID: map[string]*PlanInfo{
		"price_year": {Name: "Anual", IntervalUnit: enums.BillingIntervalYear, IntervalCount: 1},
	}}
	resolver, err := NewPlanResolver(
		&fakePlanCatalog{},
		map[enums.PaymentProvider]ProviderCatalog{enums.PaymentProviderStripe: provider},
		nil,
	)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	info, err := resolver.Resolve(context.Background(), enums.PaymentProviderStripe, "price_year")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if info.Name != "Anual" || info.Source != "provider" {
		t.Errorf("info = %+v, want provider catalog hit", info)
	}
}

func TestPlanResolver_DefaultPlanIsLastResort(t *testing.T) {
	resolver, err := NewPlanResolver(
		&fakePlanCatalog{defaults: map[enums.PaymentProvider]*models.BillingPlan{
			enums.PaymentProviderSquare: {ID: "plan-default", Name: "Padrão", IntervalUnit: enums.BillingIntervalMonth, IntervalCount: 1},
		}},
		nil,
		nil,
	)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	info, err := resolver.Resolve(context.Background(), enums.PaymentProviderSquare, "price_unknown")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if info.Name != "Padrão" || info.Source != "default" {
		t.Errorf("info = %+v, want default plan", info)
	}
}

func TestPlanResolver_NothingResolvesIsNotFound(t *testing.T) {
	resolver, err := NewPlanResolver(&fakePlanCatalog{}, nil, nil)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	_, err = resolver.Resolve(context.Background(), enums.PaymentProviderStripe, "price_unknown")
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeNotFound {
		t.Errorf("error = %v, want not found", err)
	}
}
