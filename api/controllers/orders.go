package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

const maxAddressLen = 1000

type placeOrderRequest struct {
	UserID          *int64             `json:"userId"`
	SessionID       string             `json:"sessionId"`
	Products        []orderLineRequest `json:"products" validate:"required,min=1,dive"`
	TotalAmount     int                `json:"totalAmount" validate:"gte=0"`
	ShippingAddress string             `json:"shippingAddress" validate:"required"`
}

type orderLineRequest struct {
	ID       int64 `json:"id" validate:"required,gt=0"`
	Quantity int   `json:"quantity" validate:"required,gt=0"`
	Price    int   `json:"price" validate:"required,gt=0"`
}

// OrdersCreate places an order from explicit lines through the checkout
// saga: stock is reserved first and released again if the order cannot be
// written.
func OrdersCreate(svc checkout.Service, access *CartAccess, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload placeOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID := validators.SanitizeString(payload.SessionID, maxSessionIDLen)
		if sessionID != "" {
			if err := access.Authorize(r, sessionID); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		userID, err := resolveOwner(r, payload.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines := make([]orders.LineInput, len(payload.Products))
		for i, line := range payload.Products {
			lines[i] = orders.LineInput{ProductID: line.ID, Quantity: line.Quantity, Price: line.Price}
		}

		result, err := svc.PlaceOrder(r.Context(), checkout.PlaceOrderInput{
			SessionID:       sessionID,
			UserID:          userID,
			Lines:           lines,
			TotalAmount:     payload.TotalAmount,
			ShippingAddress: validators.SanitizeString(payload.ShippingAddress, maxAddressLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// OrdersList pages through all orders, newest first.
func OrdersList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), pagination.Params{Limit: limit, Cursor: r.URL.Query().Get("cursor")})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func OrdersByUser(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := validators.ParsePathID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListByUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func OrderGet(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func OrderItemsList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.MaxLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.ListItems(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func OrderItemsByOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParsePathID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.ListItemsByOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// resolveOwner decides which account an order or cart line belongs to. The
// bearer token wins; a userId in the body must match it unless the caller is
// an admin, and anonymous callers cannot claim an account.
func resolveOwner(r *http.Request, requested *int64) (*int64, error) {
	ctx := r.Context()
	caller, authenticated := middleware.UserIDFromContext(ctx)
	if !authenticated {
		if requested != nil {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to act for an account")
		}
		return nil, nil
	}
	if requested == nil || *requested == caller {
		return &caller, nil
	}
	if middleware.RoleFromContext(ctx) != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot act for another account")
	}
	owner := *requested
	return &owner, nil
}
