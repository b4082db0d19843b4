package controllers

import (
	"net/http"

	"github.com/dressing-intelligent/wardrobe-backend/api/responses"
	"github.com/dressing-intelligent/wardrobe-backend/api/validators"
	"github.com/dressing-intelligent/wardrobe-backend/internal/ingestion"
	pkgerrors "github.com/dressing-intelligent/wardrobe-backend/pkg/errors"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/logger"
)

type processImageRequest struct {
	ImageBase64    string `json:"image_base64" validate:"required"`
	ProfileID      string `json:"profile_id" validate:"required,uuid"`
	MimeType       string `json:"mime_type,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty" validate:"omitempty,max=128"`
}

// ImagesProcess handles POST /api/v1/images/process. The pipeline uploads the
// original, then attempts background removal and category tagging; both
// degrade gracefully when an upstream stage fails.
func ImagesProcess(svc ingestion.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ingestion service unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body processImageRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Process(r.Context(), userID, ingestion.ProcessInput{
			ImageBase64:    body.ImageBase64,
			ProfileID:      body.ProfileID,
			MimeType:       body.MimeType,
			IdempotencyKey: body.IdempotencyKey,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
