package cart

import (
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/money"
)

// LineDTO is one cart line with live product data.
type LineDTO struct {
	ProductID    int64   `json:"productId"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Badge        *string `json:"badge,omitempty"`
	Price        int     `json:"price"`
	Quantity     int     `json:"quantity"`
	Image        string  `json:"image"`
	Stock        int     `json:"stock"`
	Total        int     `json:"total"`
	TotalDisplay string  `json:"totalDisplay"`
}

// CartDTO is the listed cart for a session.
type CartDTO struct {
	SessionID    string    `json:"sessionId"`
	UserID       *int64    `json:"userId,omitempty"`
	Items        []LineDTO `json:"items"`
	ItemCount    int       `json:"itemCount"`
	Total        int       `json:"total"`
	TotalDisplay string    `json:"totalDisplay"`
}

// AddResult reports the line quantity after an add or update.
type AddResult struct {
	SessionID string `json:"sessionId"`
	ProductID int64  `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func newCartDTO(sessionID string, userID *int64, rows []models.CartLine) (*CartDTO, error) {
	out := &CartDTO{
		SessionID: sessionID,
		UserID:    userID,
		Items:     make([]LineDTO, 0, len(rows)),
	}
	totals := make([]int, 0, len(rows))
	for _, row := range rows {
		total, err := money.LineTotal(row.Price, row.Quantity)
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, LineDTO{
			ProductID:    row.ProductID,
			Name:         row.Name,
			Category:     row.Category,
			Badge:        row.Badge,
			Price:        row.Price,
			Quantity:     row.Quantity,
			Image:        row.Image,
			Stock:        row.Stock,
			Total:        total,
			TotalDisplay: money.Format(total),
		})
		out.ItemCount += row.Quantity
		totals = append(totals, total)
	}
	total, err := money.Sum(totals...)
	if err != nil {
		return nil, err
	}
	out.Total = total
	out.TotalDisplay = money.Format(out.Total)
	return out, nil
}
