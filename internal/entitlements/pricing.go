package entitlements

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	stripeprice "github.com/stripe/stripe-go/v84/price"
	"gorm.io/gorm"

	"github.com/valeclub/valeclub-backend/pkg/db/models"
	"github.com/valeclub/valeclub-backend/pkg/enums"
	pkgerrors "github.com/valeclub/valeclub-backend/pkg/errors"
	"github.com/valeclub/valeclub-backend/pkg/logger"
	pkgstripe "github.com/valeclub/valeclub-backend/pkg/stripe"
)

// PlanInfo is the resolved description of a billing plan, whichever tier of
// the pricing chain produced it.
type PlanInfo struct {
	Name          string
	IntervalUnit  enums.BillingIntervalUnit
	IntervalCount int
	PriceAmount   decimal.Decimal
	CurrencyCode  string
	Source        string
}

const (
	planSourceCatalog  = "catalog"
	planSourceProvider = "provider"
	planSourceDefault  = "default"
)

type localPlanCatalog interface {
	FindByProviderPriceID(ctx context.Context, provider enums.PaymentProvider, providerPriceID string) (*models.BillingPlan, error)
	FindDefault(ctx context.Context, provider enums.PaymentProvider) (*models.BillingPlan, error)
}

// ProviderCatalog looks a price up in the payment provider's own catalog.
type ProviderCatalog interface {
	LookupPrice(ctx context.Context, providerPriceID string) (*PlanInfo, error)
}

// PlanResolver walks the pricing chain: local billing plan catalog, then the
// provider's catalog, then the configured default plan. Precedence is fixed;
// a lower tier is consulted only when every higher tier misses.
type PlanResolver struct {
	plans     localPlanCatalog
	providers map[enums.PaymentProvider]ProviderCatalog
	logg      *logger.Logger
}

// NewPlanResolver builds the pricing chain. Provider catalogs are optional;
// a nil map skips the provider tier entirely.
func NewPlanResolver(plans localPlanCatalog, providers map[enums.PaymentProvider]ProviderCatalog, logg *logger.Logger) (*PlanResolver, error) {
	if plans == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "plan catalog required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &PlanResolver{plans: plans, providers: providers, logg: logg}, nil
}

// Resolve returns plan info for the provider price id. A catalog tier that
// fails with a dependency error is skipped, not fatal; the default plan is
// the last resort before NOT_FOUND.
func (r *PlanResolver) Resolve(ctx context.Context, provider enums.PaymentProvider, providerPriceID string) (*PlanInfo, error) {
	if providerPriceID != "" {
		plan, err := r.plans.FindByProviderPriceID(ctx, provider, providerPriceID)
		switch {
		case err == nil:
			return planInfoFromModel(plan, planSourceCatalog), nil
		case err != gorm.ErrRecordNotFound:
			logCtx := r.logg.WithField(ctx, "provider_price_id", providerPriceID)
			r.logg.Error(logCtx, "local plan catalog lookup failed", err)
		}

		if catalog, ok := r.providers[provider]; ok && catalog != nil {
			info, err := catalog.LookupPrice(ctx, providerPriceID)
			if err == nil && info != nil {
				info.Source = planSourceProvider
				return info, nil
			}
			if err != nil {
				logCtx := r.logg.WithField(ctx, "provider_price_id", providerPriceID)
				r.logg.Error(logCtx, "provider catalog lookup failed", err)
			}
		}
	}

	plan, err := r.plans.FindDefault(ctx, provider)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no billing plan resolved for price")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "default plan lookup failed")
	}
	return planInfoFromModel(plan, planSourceDefault), nil
}

func planInfoFromModel(plan *models.BillingPlan, source string) *PlanInfo {
	return &PlanInfo{
		Name:          plan.Name,
		IntervalUnit:  plan.IntervalUnit,
		IntervalCount: plan.IntervalCount,
		PriceAmount:   plan.PriceAmount,
		CurrencyCode:  plan.CurrencyCode,
		Source:        source,
	}
}

type stripeCatalog struct{}

// NewStripeCatalog exposes the Stripe price catalog as a pricing chain tier.
func NewStripeCatalog(api *pkgstripe.Client) ProviderCatalog {
	if api == nil {
		return nil
	}
	return &stripeCatalog{}
}

func (c *stripeCatalog) LookupPrice(ctx context.Context, providerPriceID string) (*PlanInfo, error) {
	params := &stripe.PriceParams{}
	params.Context = ctx
	price, err := stripeprice.Get(providerPriceID, params)
	if err != nil {
		return nil, err
	}
	if price.Recurring == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stripe price is not recurring")
	}
	unit, err := enums.ParseBillingIntervalUnit(string(price.Recurring.Interval))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unrecognized stripe billing interval")
	}
	return &PlanInfo{
		Name:          price.Nickname,
		IntervalUnit:  unit,
		IntervalCount: int(price.Recurring.IntervalCount),
		PriceAmount:   decimal.New(price.UnitAmount, -2),
		CurrencyCode:  strings.ToUpper(string(price.Currency)),
	}, nil
}
