package controllers

import (
	"net/http"
	"strings"

	"github.com/valeclub/valeclub-backend/api/responses"
	"github.com/valeclub/valeclub-backend/api/validators"
	"github.com/valeclub/valeclub-backend/internal/establishments"
	pkgerrors "github.com/valeclub/valeclub-backend/pkg/errors"
	"github.com/valeclub/valeclub-backend/pkg/logger"
)

// PublicEstablishments lists active partner venues, optionally filtered by
// city. Responses are served from the listing cache.
func PublicEstablishments(svc establishments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "establishments service unavailable"))
			return
		}

		city := validators.SanitizeString(strings.TrimSpace(r.URL.Query().Get("city")), 120)

		items, err := svc.ListPublic(r.Context(), city)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}
