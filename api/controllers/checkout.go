package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type cartCheckoutRequest struct {
	SessionID       string `json:"sessionId" validate:"required"`
	UserID          *int64 `json:"userId"`
	ShippingAddress string `json:"shippingAddress" validate:"required"`
}

// CheckoutCart turns the session's cart into an order priced at the current
// catalog prices.
func CheckoutCart(svc checkout.Service, access *CartAccess, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload cartCheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID := validators.SanitizeString(payload.SessionID, maxSessionIDLen)
		if err := access.Authorize(r, sessionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := resolveOwner(r, payload.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CheckoutCart(r.Context(), checkout.CartCheckoutInput{
			SessionID:       sessionID,
			UserID:          userID,
			ShippingAddress: validators.SanitizeString(payload.ShippingAddress, maxAddressLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
