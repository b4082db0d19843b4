package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dressing-intelligent/wardrobe-backend/api/responses"
	"github.com/dressing-intelligent/wardrobe-backend/api/validators"
	"github.com/dressing-intelligent/wardrobe-backend/internal/wardrobe"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/enums"
	pkgerrors "github.com/dressing-intelligent/wardrobe-backend/pkg/errors"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/logger"
)

type saveItemRequest struct {
	ProfileID    string  `json:"profile_id" validate:"required,uuid"`
	Category     string  `json:"category" validate:"required"`
	Color        string  `json:"color" validate:"required"`
	OriginalURL  string  `json:"original_url" validate:"required,url"`
	ProcessedURL *string `json:"processed_url,omitempty" validate:"omitempty,url"`
	PublicID     string  `json:"public_id" validate:"required,max=256"`
}

type updateItemRequest struct {
	Category *string `json:"category,omitempty"`
	Color    *string `json:"color,omitempty"`
}

type itemView struct {
	ID           uuid.UUID `json:"id"`
	ProfileID    uuid.UUID `json:"profile_id"`
	Category     string    `json:"category"`
	Color        string    `json:"color"`
	OriginalURL  string    `json:"original_url"`
	ProcessedURL *string   `json:"processed_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toItemView(item *wardrobe.Item) itemView {
	if item == nil {
		return itemView{}
	}
	return itemView{
		ID:           item.ID,
		ProfileID:    item.ProfileID,
		Category:     string(item.Category),
		Color:        string(item.Color),
		OriginalURL:  item.OriginalURL,
		ProcessedURL: item.ProcessedURL,
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
	}
}

// ClothesSave handles POST /api/v1/clothes.
func ClothesSave(svc wardrobe.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wardrobe service unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body saveItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profileID, err := uuid.Parse(body.ProfileID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "profile_id must be a UUID"))
			return
		}

		item, err := svc.Save(r.Context(), userID, wardrobe.SaveInput{
			ProfileID:    profileID,
			Category:     enums.Category(body.Category),
			Color:        enums.Color(body.Color),
			OriginalURL:  body.OriginalURL,
			ProcessedURL: body.ProcessedURL,
			PublicID:     body.PublicID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toItemView(item))
	}
}

// ClothesList handles GET /api/v1/clothes?profile_id=.
func ClothesList(svc wardrobe.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wardrobe service unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profileID, err := validators.ParseQueryUUID(r, "profile_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.List(r.Context(), userID, profileID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]itemView, 0, len(items))
		for i := range items {
			views = append(views, toItemView(&items[i]))
		}
		responses.WriteSuccess(w, views)
	}
}

// ClothesUpdate handles PATCH /api/v1/clothes/{itemId}.
func ClothesUpdate(svc wardrobe.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wardrobe service unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := pathUUID(r, chi.URLParam(r, "itemId"), "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := wardrobe.UpdateInput{}
		if body.Category != nil {
			category := enums.Category(*body.Category)
			input.Category = &category
		}
		if body.Color != nil {
			color := enums.Color(*body.Color)
			input.Color = &color
		}

		item, err := svc.Update(r.Context(), userID, itemID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toItemView(item))
	}
}

// ClothesDelete handles DELETE /api/v1/clothes/{itemId}.
func ClothesDelete(svc wardrobe.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wardrobe service unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := pathUUID(r, chi.URLParam(r, "itemId"), "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), userID, itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
