package squarewebhook

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"

	"github.com/valeclub/valeclub-backend/internal/entitlements"
	"github.com/valeclub/valeclub-backend/pkg/enums"
	pkgerrors "github.com/valeclub/valeclub-backend/pkg/errors"
)

// Subscription metadata keys attached at checkout time; mirrors the Stripe
// mapper's hint surface.
const (
	metaMemberID    = "member_id"
	metaMemberEmail = "member_email"
	metaPartnerID   = "partner_id"
	metaPartnerLink = "partner_link"
)

const chargedThroughLayout = "2006-01-02"

// SubscriptionClient exposes the subset of Square operations the webhook
// service needs.
type SubscriptionClient interface {
	GetSubscription(ctx context.Context, subscriptionID string) (*sq.Subscription, error)
	GetCustomer(ctx context.Context, customerID string) (*sq.Customer, error)
}

type entitlementReconciler interface {
	Reconcile(ctx context.Context, event entitlements.PaymentEvent) (*entitlements.ReconciliationResult, error)
}

type ServiceParams struct {
	Reconciler   entitlementReconciler
	SquareClient SubscriptionClient
}

type Service struct {
	reconciler entitlementReconciler
	square     SubscriptionClient
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Reconciler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "entitlement reconciler required")
	}
	if params.SquareClient == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "square client required")
	}
	return &Service{
		reconciler: params.Reconciler,
		square:     params.SquareClient,
	}, nil
}

// WebhookEvent is the Square webhook envelope shape.
type WebhookEvent struct {
	EventID   string      `json:"event_id"`
	Type      string      `json:"type"`
	CreatedAt time.Time   `json:"created_at"`
	Data      WebhookData `json:"data"`
}

type WebhookData struct {
	Type   string        `json:"type"`
	ID     string        `json:"id"`
	Object WebhookObject `json:"object"`
}

type WebhookObject struct {
	Subscription *Subscription `json:"subscription"`
}

// Subscription is the subset of the Square subscription payload the mapper
// reads.
type Subscription struct {
	ID                 string            `json:"id"`
	CustomerID         string            `json:"customer_id"`
	PlanVariationID    string            `json:"plan_variation_id"`
	Status             string            `json:"status"`
	ChargedThroughDate string            `json:"charged_through_date"`
	Metadata           map[string]string `json:"metadata"`
}

// HandleEvent maps a Square webhook event onto the reconciler. Events that
// carry no entitlement signal return a nil result.
func (s *Service) HandleEvent(ctx context.Context, event *WebhookEvent) (*entitlements.ReconciliationResult, error) {
	if event == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "square event required")
	}

	switch strings.ToLower(event.Type) {
	case "subscription.created", "subscription.updated":
		if event.Data.Object.Subscription == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription payload missing")
		}
		return s.reconcileSubscription(ctx, event.Data.Object.Subscription, event)
	case "invoice.payment_made":
		subscriptionID := event.Data.Object.subscriptionID()
		if subscriptionID == "" {
			subscriptionID = event.Data.ID
		}
		if subscriptionID == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription id missing from invoice")
		}
		squareSub, err := s.square.GetSubscription(ctx, subscriptionID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch square subscription")
		}
		return s.reconcileSubscription(ctx, fromSDK(squareSub), event)
	default:
		return nil, nil
	}
}

func (o WebhookObject) subscriptionID() string {
	if o.Subscription != nil {
		return o.Subscription.ID
	}
	return ""
}

func (s *Service) reconcileSubscription(ctx context.Context, squareSub *Subscription, event *WebhookEvent) (*entitlements.ReconciliationResult, error) {
	if squareSub == nil || squareSub.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "square subscription payload missing")
	}
	if !entitledStatus(squareSub.Status) {
		return nil, nil
	}
	return s.reconciler.Reconcile(ctx, s.mapSubscription(ctx, squareSub, event))
}

func entitledStatus(status string) bool {
	switch strings.ToUpper(status) {
	case "", "ACTIVE":
		return true
	default:
		return false
	}
}

func (s *Service) mapSubscription(ctx context.Context, squareSub *Subscription, event *WebhookEvent) entitlements.PaymentEvent {
	occurredAt := event.CreatedAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	raw, _ := json.Marshal(squareSub)
	payment := entitlements.PaymentEvent{
		Provider:         enums.PaymentProviderSquare,
		PaymentReference: squareSub.ID,
		ProviderPriceID:  squareSub.PlanVariationID,
		OccurredAt:       occurredAt,
		Raw:              raw,
	}

	if value := squareSub.Metadata[metaMemberID]; value != "" {
		if id, err := uuid.Parse(value); err == nil {
			payment.BuyerDocumentID = &id
		}
	}
	if value := squareSub.Metadata[metaMemberEmail]; value != "" {
		email := value
		payment.BuyerEmail = &email
	}
	if payment.BuyerDocumentID == nil && payment.BuyerEmail == nil && squareSub.CustomerID != "" {
		// Square subscriptions carry no buyer email; ask the customer API.
		if customer, err := s.square.GetCustomer(ctx, squareSub.CustomerID); err == nil {
			if email := customer.GetEmailAddress(); email != nil && *email != "" {
				payment.BuyerEmail = email
			}
		}
	}

	if value := squareSub.Metadata[metaPartnerID]; value != "" {
		if id, err := uuid.Parse(value); err == nil {
			payment.PartnerID = &id
		}
	}
	if value := squareSub.Metadata[metaPartnerLink]; value != "" {
		slug := value
		payment.PartnerLinkSlug = &slug
	}

	if squareSub.ChargedThroughDate != "" {
		if date, err := time.Parse(chargedThroughLayout, squareSub.ChargedThroughDate); err == nil {
			payment.PeriodEnd = &date
		}
	}
	return payment
}

func fromSDK(squareSub *sq.Subscription) *Subscription {
	if squareSub == nil {
		return nil
	}
	return &Subscription{
		ID:                 stringValue(squareSub.GetID()),
		CustomerID:         stringValue(squareSub.GetCustomerID()),
		PlanVariationID:    stringValue(squareSub.GetPlanVariationID()),
		Status:             statusString(squareSub.GetStatus()),
		ChargedThroughDate: stringValue(squareSub.GetChargedThroughDate()),
	}
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func statusString(status *sq.SubscriptionStatus) string {
	if status == nil {
		return ""
	}
	return string(*status)
}
