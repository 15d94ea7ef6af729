package products

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/money"
)

// ListFilter narrows the catalog listing. Prices are minor units.
type ListFilter struct {
	Category string
	MinPrice *int
	MaxPrice *int
}

// ProductDTO is the catalog payload returned to clients.
type ProductDTO struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	Description  *string   `json:"description,omitempty"`
	Price        int       `json:"price"`
	PriceDisplay string    `json:"priceDisplay"`
	OldPrice     *int      `json:"oldPrice,omitempty"`
	Stock        int       `json:"stock"`
	Badge        *string   `json:"badge,omitempty"`
	Image        string    `json:"image"`
	Featured     bool      `json:"featured"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// StockUpdateDTO is returned after a successful reservation.
type StockUpdateDTO struct {
	ProductID    int64 `json:"productId"`
	NewStock     int   `json:"newStock"`
	SoldQuantity int   `json:"soldQuantity"`
}

// NewProductDTO maps a product row to its API shape.
func NewProductDTO(p *models.Product) ProductDTO {
	return ProductDTO{
		ID:           p.ID,
		Name:         p.Name,
		Category:     p.Category,
		Description:  p.Description,
		Price:        p.Price,
		PriceDisplay: money.Format(p.Price),
		OldPrice:     p.OldPrice,
		Stock:        p.Stock,
		Badge:        p.Badge,
		Image:        p.Image,
		Featured:     p.Featured,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func newProductDTOs(rows []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, NewProductDTO(&rows[i]))
	}
	return out
}
