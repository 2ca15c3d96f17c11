package stripewebhook

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/subscription"

	"github.com/valeclub/valeclub-backend/internal/entitlements"
	"github.com/valeclub/valeclub-backend/pkg/enums"
	pkgerrors "github.com/valeclub/valeclub-backend/pkg/errors"
	pkgstripe "github.com/valeclub/valeclub-backend/pkg/stripe"
)

// Subscription metadata keys attached at checkout time. They carry the
// identity and attribution hints the reconciler resolves.
const (
	metaMemberID     = "member_id"
	metaMemberAuthID = "member_auth_id"
	metaMemberEmail  = "member_email"
	metaPartnerID    = "partner_id"
	metaPartnerLink  = "partner_link"
)

// SubscriptionClient exposes the subset of Stripe operations the webhook
// service needs.
type SubscriptionClient interface {
	Get(ctx context.Context, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
}

type entitlementReconciler interface {
	Reconcile(ctx context.Context, event entitlements.PaymentEvent) (*entitlements.ReconciliationResult, error)
}

type ServiceParams struct {
	Reconciler   entitlementReconciler
	StripeClient SubscriptionClient
}

type Service struct {
	reconciler entitlementReconciler
	stripe     SubscriptionClient
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Reconciler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "entitlement reconciler required")
	}
	if params.StripeClient == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	return &Service{
		reconciler: params.Reconciler,
		stripe:     params.StripeClient,
	}, nil
}

// HandleEvent maps a Stripe webhook event onto the reconciler. Events that
// carry no entitlement signal return a nil result.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) (*entitlements.ReconciliationResult, error) {
	if event == nil || event.Data == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated:
		var stripeSub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode subscription event")
		}
		return s.reconcileSubscription(ctx, &stripeSub, event)
	case stripe.EventTypeInvoicePaid:
		subscriptionID := event.GetObjectValue("subscription")
		if subscriptionID == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription id missing from invoice")
		}
		stripeSub, err := s.stripe.Get(ctx, subscriptionID, &stripe.SubscriptionParams{})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch stripe subscription")
		}
		return s.reconcileSubscription(ctx, stripeSub, event)
	default:
		return nil, nil
	}
}

func (s *Service) reconcileSubscription(ctx context.Context, stripeSub *stripe.Subscription, event *stripe.Event) (*entitlements.ReconciliationResult, error) {
	if stripeSub == nil || stripeSub.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stripe subscription payload missing")
	}
	if !entitledStatus(stripeSub.Status) {
		return nil, nil
	}
	return s.reconciler.Reconcile(ctx, mapSubscription(stripeSub, event))
}

func entitledStatus(status stripe.SubscriptionStatus) bool {
	switch status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return true
	default:
		return false
	}
}

func mapSubscription(stripeSub *stripe.Subscription, event *stripe.Event) entitlements.PaymentEvent {
	payment := entitlements.PaymentEvent{
		Provider:         enums.PaymentProviderStripe,
		PaymentReference: stripeSub.ID,
		OccurredAt:       time.Unix(event.Created, 0).UTC(),
		Raw:              event.Data.Raw,
	}

	if raw := stripeSub.Metadata[metaMemberID]; raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			payment.BuyerDocumentID = &id
		}
	}
	if raw := stripeSub.Metadata[metaMemberAuthID]; raw != "" {
		authID := raw
		payment.BuyerExternalID = &authID
	}
	if raw := stripeSub.Metadata[metaMemberEmail]; raw != "" {
		email := raw
		payment.BuyerEmail = &email
	}
	if raw := stripeSub.Metadata[metaPartnerID]; raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			payment.PartnerID = &id
		}
	}
	if raw := stripeSub.Metadata[metaPartnerLink]; raw != "" {
		slug := raw
		payment.PartnerLinkSlug = &slug
	}

	if item := firstItem(stripeSub); item != nil {
		if item.Price != nil {
			payment.ProviderPriceID = item.Price.ID
			if item.Price.Recurring != nil {
				if unit, err := enums.ParseBillingIntervalUnit(string(item.Price.Recurring.Interval)); err == nil {
					count := int(item.Price.Recurring.IntervalCount)
					if count <= 0 {
						count = 1
					}
					payment.Interval = &entitlements.BillingInterval{Unit: unit, Count: count}
				}
			}
		}
		if item.CurrentPeriodEnd > 0 {
			periodEnd := time.Unix(item.CurrentPeriodEnd, 0).UTC()
			payment.PeriodEnd = &periodEnd
		}
	}
	return payment
}

func firstItem(sub *stripe.Subscription) *stripe.SubscriptionItem {
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return nil
	}
	return sub.Items.Data[0]
}

type stripeClientWrapper struct{}

// NewStripeClient wraps the shared Stripe client so the webhook service can
// be tested against a fake.
func NewStripeClient(api *pkgstripe.Client) SubscriptionClient {
	if api == nil {
		return nil
	}
	return &stripeClientWrapper{}
}

func (w *stripeClientWrapper) Get(ctx context.Context, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	if params == nil {
		params = &stripe.SubscriptionParams{}
	}
	params.Context = ctx
	return subscription.Get(id, params)
}
