package controllers

import (
	"net/http"
	"time"

	"github.com/dressing-intelligent/wardrobe-backend/api/responses"
	"github.com/dressing-intelligent/wardrobe-backend/api/validators"
	"github.com/dressing-intelligent/wardrobe-backend/internal/receipts"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/db/models"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/enums"
	pkgerrors "github.com/dressing-intelligent/wardrobe-backend/pkg/errors"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/logger"
)

type validateReceiptRequest struct {
	Receipt   string `json:"receipt" validate:"required"`
	Platform  string `json:"platform" validate:"required,oneof=ios android"`
	ProductID string `json:"product_id" validate:"required,max=128"`
}

type subscriptionView struct {
	Status      string     `json:"status"`
	ProductID   string     `json:"product_id,omitempty"`
	Platform    string     `json:"platform,omitempty"`
	Environment string     `json:"environment,omitempty"`
	TrialEndsAt *time.Time `json:"trial_ends_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	AutoRenew   bool       `json:"auto_renew"`
}

func toSubscriptionView(sub *models.Subscription) subscriptionView {
	if sub == nil {
		return subscriptionView{Status: string(enums.SubscriptionStatusNone)}
	}
	return subscriptionView{
		Status:      string(sub.Status),
		ProductID:   sub.ProductID,
		Platform:    string(sub.Platform),
		Environment: sub.Environment,
		TrialEndsAt: sub.TrialEndsAt,
		ExpiresAt:   sub.ExpiresAt,
		AutoRenew:   sub.AutoRenew,
	}
}

// SubscriptionsValidate handles POST /api/v1/subscriptions/validate.
func SubscriptionsValidate(svc receipts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "receipts service unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body validateReceiptRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.Validate(r.Context(), userID, receipts.ValidateInput{
			Receipt:   body.Receipt,
			Platform:  enums.Platform(body.Platform),
			ProductID: body.ProductID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toSubscriptionView(sub))
	}
}

// SubscriptionsCurrent handles GET /api/v1/subscriptions.
func SubscriptionsCurrent(svc receipts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "receipts service unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.Current(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toSubscriptionView(sub))
	}
}
