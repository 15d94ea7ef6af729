package helpers

import (
	"github.com/angelmondragon/storefront-backend/internal/checkout/reservation"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// LinesFromCart snapshots the live cart prices into order lines.
func LinesFromCart(rows []models.CartLine) []orders.LineInput {
	lines := make([]orders.LineInput, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, orders.LineInput{
			ProductID: row.ProductID,
			Quantity:  row.Quantity,
			Price:     row.Price,
		})
	}
	return lines
}

// Requests converts order lines into reservation requests, one per line.
func Requests(lines []orders.LineInput) []reservation.Request {
	out := make([]reservation.Request, 0, len(lines))
	for _, line := range lines {
		out = append(out, reservation.Request{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return out
}

// LowStock returns, per product, the last reservation that left the product
// at or below threshold. Order follows first appearance.
func LowStock(reserved []reservation.Result, threshold int) []reservation.Result {
	latest := make(map[int64]reservation.Result, len(reserved))
	order := make([]int64, 0, len(reserved))
	for _, r := range reserved {
		if _, seen := latest[r.ProductID]; !seen {
			order = append(order, r.ProductID)
		}
		latest[r.ProductID] = r
	}

	out := make([]reservation.Result, 0)
	for _, id := range order {
		if r := latest[id]; r.Remaining <= threshold {
			out = append(out, r)
		}
	}
	return out
}
