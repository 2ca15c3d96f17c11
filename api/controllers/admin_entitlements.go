package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/valeclub/valeclub-backend/api/responses"
	"github.com/valeclub/valeclub-backend/api/validators"
	"github.com/valeclub/valeclub-backend/internal/entitlements"
	"github.com/valeclub/valeclub-backend/pkg/enums"
	pkgerrors "github.com/valeclub/valeclub-backend/pkg/errors"
	"github.com/valeclub/valeclub-backend/pkg/logger"
	"github.com/valeclub/valeclub-backend/pkg/types"
)

type batchLinkItem struct {
	PartnerID        uuid.UUID          `json:"partner_id" validate:"required"`
	PartnerLinkID    types.NullableUUID `json:"partner_link_id"`
	Provider         string             `json:"provider"`
	PaymentReference string             `json:"payment_reference"`
	ExpiresAt        *time.Time         `json:"expires_at"`
}

type batchLinkRequest struct {
	Partners []batchLinkItem `json:"partners" validate:"required,min=1,dive"`
}

// AdminBatchLink replaces a member's active entitlement set with the given
// partner list.
func AdminBatchLink(svc entitlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "entitlements service unavailable"))
			return
		}

		memberID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid member id"))
			return
		}

		var req batchLinkRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignments := make([]entitlements.PartnerAssignment, 0, len(req.Partners))
		for _, item := range req.Partners {
			assignment := entitlements.PartnerAssignment{
				PartnerID:        item.PartnerID,
				PaymentReference: strings.TrimSpace(item.PaymentReference),
				ExpiresAt:        item.ExpiresAt,
			}
			if item.PartnerLinkID.Valid && item.PartnerLinkID.Value != nil {
				linkID := *item.PartnerLinkID.Value
				assignment.PartnerLinkID = &linkID
			}
			if raw := strings.TrimSpace(item.Provider); raw != "" {
				provider, err := enums.ParsePaymentProvider(raw)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid provider"))
					return
				}
				assignment.Provider = provider
			}
			assignments = append(assignments, assignment)
		}

		result, err := svc.BatchLink(r.Context(), memberID, assignments)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminListParkedEvents lists parked payment events awaiting review.
func AdminListParkedEvents(svc entitlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "entitlements service unavailable"))
			return
		}

		params := entitlements.ListParkedParams{
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("includeResolved")); raw != "" {
			value, err := strconv.ParseBool(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid includeResolved value"))
				return
			}
			params.IncludeResolved = value
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.Limit = limit

		result, err := svc.ListParked(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminResolveParkedEvent marks a parked payment event as handled.
func AdminResolveParkedEvent(svc entitlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "entitlements service unavailable"))
			return
		}

		eventID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event id"))
			return
		}

		resolvedBy, err := memberFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ResolveParked(r.Context(), eventID, resolvedBy); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "resolved"})
	}
}
