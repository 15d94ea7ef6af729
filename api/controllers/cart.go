package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const maxSessionIDLen = 128

type cartAddRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
	UserID    *int64 `json:"userId"`
	ProductID int64  `json:"productId" validate:"required"`
	Quantity  *int   `json:"quantity"`
}

type cartUpdateRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
	ProductID int64  `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity"`
}

type cartRemoveRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
	ProductID int64  `json:"productId" validate:"required"`
}

type cartMergeRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
}

// CartList returns the lines of a cart session with live product data.
func CartList(svc cart.Service, access *CartAccess, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := validators.SanitizeString(chi.URLParam(r, "sessionId"), maxSessionIDLen)
		if err := access.Authorize(r, sessionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var userID *int64
		if raw := strings.TrimSpace(r.URL.Query().Get("userId")); raw != "" {
			value, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || value <= 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid userId"))
				return
			}
			userID = &value
		}

		if owner, ok := cart.SessionOwner(sessionID); ok {
			userID = &owner
		}

		dto, err := svc.List(r.Context(), sessionID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// CartAdd merges a quantity into the session's line for a product. The
// quantity defaults to one. A userId in the body follows the same rules as
// order ownership, and a user_<id> cart is always owned by that account.
func CartAdd(svc cart.Service, access *CartAccess, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload cartAddRequest
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
		if owner, ok := cart.SessionOwner(sessionID); ok {
			userID = &owner
		}

		quantity := 1
		if payload.Quantity != nil {
			quantity = *payload.Quantity
		}

		result, err := svc.AddToCart(r.Context(), cart.AddInput{
			SessionID: sessionID,
			UserID:    userID,
			ProductID: payload.ProductID,
			Quantity:  quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CartUpdate sets the line quantity; zero or less removes the line.
func CartUpdate(svc cart.Service, access *CartAccess, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload cartUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID := validators.SanitizeString(payload.SessionID, maxSessionIDLen)
		if err := access.Authorize(r, sessionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.SetQuantity(r.Context(), sessionID, payload.ProductID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func CartRemove(svc cart.Service, access *CartAccess, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload cartRemoveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID := validators.SanitizeString(payload.SessionID, maxSessionIDLen)
		if err := access.Authorize(r, sessionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Remove(r.Context(), sessionID, payload.ProductID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"sessionId": sessionID, "productId": payload.ProductID, "removed": true})
	}
}

func CartClear(svc cart.Service, access *CartAccess, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := validators.SanitizeString(chi.URLParam(r, "sessionId"), maxSessionIDLen)
		if err := access.Authorize(r, sessionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Clear(r.Context(), sessionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"sessionId": sessionID, "cleared": true})
	}
}

// CartSession issues a new guest cart session id. When a session store is
// configured the id is recorded there; a store failure only logs.
func CartSession(store CartSessionStore, ttl time.Duration, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := cart.NewSessionID()
		if store != nil {
			if err := store.RememberCartSession(r.Context(), sessionID, ttl); err != nil && logg != nil {
				logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "cart.session.record_failed")
			}
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{"sessionId": sessionID})
	}
}

// CartMerge folds a guest session into the signed-in user's cart.
func CartMerge(svc cart.Service, access *CartAccess, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.UserIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var payload cartMergeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		guest := validators.SanitizeString(payload.SessionID, maxSessionIDLen)
		if err := access.Authorize(r, guest); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.MergeGuestCart(r.Context(), guest, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		access.forget(r.Context(), guest)
		responses.WriteSuccess(w, dto)
	}
}
