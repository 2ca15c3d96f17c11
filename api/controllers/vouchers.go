package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/valeclub/valeclub-backend/api/middleware"
	"github.com/valeclub/valeclub-backend/api/responses"
	"github.com/valeclub/valeclub-backend/api/validators"
	"github.com/valeclub/valeclub-backend/internal/vouchers"
	"github.com/valeclub/valeclub-backend/pkg/enums"
	pkgerrors "github.com/valeclub/valeclub-backend/pkg/errors"
	"github.com/valeclub/valeclub-backend/pkg/logger"
)

type generateVoucherRequest struct {
	EstablishmentID uuid.UUID `json:"establishment_id" validate:"required"`
}

// GenerateVoucher issues a voucher code for the calling member at the given
// establishment.
func GenerateVoucher(svc vouchers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "voucher service unavailable"))
			return
		}

		memberID, err := memberFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req generateVoucherRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if req.EstablishmentID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "establishment_id required"))
			return
		}

		result, err := svc.Generate(r.Context(), memberID, req.EstablishmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// ValidateVoucher is the operator-facing read of a voucher code. It reports
// the voucher with member and establishment summaries without consuming it.
func ValidateVoucher(svc vouchers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "voucher service unavailable"))
			return
		}

		operatorID, establishmentID, code, err := operatorVoucherRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Validate(r.Context(), code, operatorID, establishmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CheckInVoucher consumes a voucher code at the operator's establishment.
func CheckInVoucher(svc vouchers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "voucher service unavailable"))
			return
		}

		operatorID, establishmentID, code, err := operatorVoucherRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CheckIn(r.Context(), code, operatorID, establishmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ListEstablishmentVouchers is the operator report over an establishment's
// vouchers. Operators can only read their own establishment.
func ListEstablishmentVouchers(svc vouchers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "voucher service unavailable"))
			return
		}

		establishmentID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid establishment id"))
			return
		}

		bound := middleware.EstablishmentIDFromContext(r.Context())
		if bound == "" || bound != establishmentID.String() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "establishment mismatch"))
			return
		}

		params := vouchers.ListParams{EstablishmentID: establishmentID}

		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseVoucherStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			params.Status = &status
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.Limit = limit
		params.Cursor = strings.TrimSpace(r.URL.Query().Get("cursor"))

		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func operatorVoucherRequest(r *http.Request) (operatorID, establishmentID uuid.UUID, code string, err error) {
	operatorID, err = memberFromContext(r)
	if err != nil {
		return uuid.Nil, uuid.Nil, "", err
	}

	bound := middleware.EstablishmentIDFromContext(r.Context())
	if bound == "" {
		return uuid.Nil, uuid.Nil, "", pkgerrors.New(pkgerrors.CodeForbidden, "establishment binding required")
	}
	establishmentID, err = uuid.Parse(bound)
	if err != nil {
		return uuid.Nil, uuid.Nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid establishment id")
	}

	code = strings.TrimSpace(chi.URLParam(r, "code"))
	if code == "" {
		return uuid.Nil, uuid.Nil, "", pkgerrors.New(pkgerrors.CodeValidation, "voucher code required")
	}
	return operatorID, establishmentID, code, nil
}
