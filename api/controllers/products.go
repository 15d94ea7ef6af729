package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/products"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	maxProductNameLen = 200
	maxPriceMinor     = 1_000_000_000
)

type productRequest struct {
	Name        *string `json:"name"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
	Price       *int    `json:"price" validate:"omitempty,gt=0"`
	OldPrice    *int    `json:"oldPrice" validate:"omitempty,gt=0"`
	Stock       *int    `json:"stock" validate:"omitempty,gte=0"`
	Badge       *string `json:"badge"`
	Image       *string `json:"image"`
	Featured    *bool   `json:"featured"`
}

type stockUpdateRequest struct {
	Quantity int `json:"quantity"`
}

// ProductsList returns the catalog filtered by category and price range.
func ProductsList(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := products.ListFilter{Category: strings.TrimSpace(r.URL.Query().Get("category"))}
		if filter.Category == "all" {
			filter.Category = ""
		}
		var err error
		if filter.MinPrice, err = optionalPrice(r, "minPrice"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.MaxPrice, err = optionalPrice(r, "maxPrice"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func ProductsFeatured(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.Featured(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ProductsLowStock lists products at or below a threshold. The threshold
// path segment is optional and falls back to the configured default.
func ProductsLowStock(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var threshold *int
		if raw := strings.TrimSpace(chi.URLParam(r, "threshold")); raw != "" {
			value, err := strconv.Atoi(raw)
			if err != nil || value < 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "threshold must be a non-negative integer"))
				return
			}
			threshold = &value
		}

		list, err := svc.LowStock(r.Context(), threshold)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func ProductGet(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func ProductCreate(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload productRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toCreateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func ProductUpdate(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload productRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Update(r.Context(), id, payload.toUpdateInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// ProductDelete removes a product and returns the deleted record.
func ProductDelete(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Delete(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// ProductUpdateStock takes quantity units of stock atomically. A short
// product answers 409 with the available count in the error details.
func ProductUpdateStock(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload stockUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		remaining, err := svc.CheckAndReserve(r.Context(), id, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, products.StockUpdateDTO{
			ProductID:    id,
			NewStock:     remaining,
			SoldQuantity: payload.Quantity,
		})
	}
}

func (p productRequest) toCreateInput() (products.CreateProductInput, error) {
	if p.Name == nil || p.Category == nil || p.Price == nil {
		return products.CreateProductInput{}, pkgerrors.New(pkgerrors.CodeValidation, "name, category and price are required")
	}
	input := products.CreateProductInput{
		Name:        validators.SanitizeString(*p.Name, maxProductNameLen),
		Category:    validators.SanitizeString(*p.Category, maxProductNameLen),
		Description: p.Description,
		Price:       *p.Price,
		OldPrice:    p.OldPrice,
		Badge:       p.Badge,
	}
	if p.Stock != nil {
		input.Stock = *p.Stock
	}
	if p.Image != nil {
		input.Image = *p.Image
	}
	if p.Featured != nil {
		input.Featured = *p.Featured
	}
	return input, nil
}

func (p productRequest) toUpdateInput() products.UpdateProductInput {
	input := products.UpdateProductInput{
		Description: p.Description,
		Price:       p.Price,
		OldPrice:    p.OldPrice,
		Stock:       p.Stock,
		Badge:       p.Badge,
		Image:       p.Image,
		Featured:    p.Featured,
	}
	if p.Name != nil {
		name := validators.SanitizeString(*p.Name, maxProductNameLen)
		input.Name = &name
	}
	if p.Category != nil {
		category := validators.SanitizeString(*p.Category, maxProductNameLen)
		input.Category = &category
	}
	return input
}

func optionalPrice(r *http.Request, key string) (*int, error) {
	if strings.TrimSpace(r.URL.Query().Get(key)) == "" {
		return nil, nil
	}
	value, err := validators.ParseQueryInt(r, key, 0, 0, maxPriceMinor)
	if err != nil {
		return nil, err
	}
	return &value, nil
}
