package controllers

import (
	"net/http"

	"github.com/dressing-intelligent/wardrobe-backend/api/middleware"
	"github.com/dressing-intelligent/wardrobe-backend/api/responses"
	"github.com/dressing-intelligent/wardrobe-backend/internal/account"
	pkgerrors "github.com/dressing-intelligent/wardrobe-backend/pkg/errors"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/logger"
)

// AccountDelete handles DELETE /api/v1/account. Row deletion is atomic from
// the caller's perspective; storage and email cleanup are best effort.
func AccountDelete(svc account.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "account service unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		accessID := middleware.AccessIDFromContext(r.Context())

		if err := svc.Delete(r.Context(), userID, accessID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
