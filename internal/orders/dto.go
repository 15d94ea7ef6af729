package orders

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/money"
)

// LineInput is one ordered product with the price the buyer saw.
type LineInput struct {
	ProductID int64
	Quantity  int
	Price     int
}

// CreateOrderInput carries the order snapshot submitted by a caller.
type CreateOrderInput struct {
	UserID          *int64
	Lines           []LineInput
	TotalAmount     int
	ShippingAddress string
}

// OrderDTO is the order payload returned to clients.
type OrderDTO struct {
	ID              int64          `json:"id"`
	UserID          *int64         `json:"userId,omitempty"`
	TotalAmount     int            `json:"totalAmount"`
	TotalDisplay    string         `json:"totalDisplay"`
	Status          string         `json:"status"`
	ShippingAddress string         `json:"shippingAddress"`
	CreatedAt       time.Time      `json:"createdAt"`
	Items           []OrderItemDTO `json:"items,omitempty"`
}

// OrderItemDTO is a persisted order line.
type OrderItemDTO struct {
	ID           int64      `json:"id"`
	OrderID      int64      `json:"orderId"`
	ProductID    int64      `json:"productId"`
	Quantity     int        `json:"quantity"`
	Price        int        `json:"price"`
	ProductName  *string    `json:"productName,omitempty"`
	ProductImage *string    `json:"productImage,omitempty"`
	OrderDate    *time.Time `json:"orderDate,omitempty"`
}

// OrderList is one page of orders.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// CreateResult reports the new order id.
type CreateResult struct {
	OrderID int64 `json:"orderId"`
}

func newOrderDTO(order *models.Order) OrderDTO {
	dto := OrderDTO{
		ID:              order.ID,
		UserID:          order.UserID,
		TotalAmount:     order.TotalAmount,
		TotalDisplay:    money.Format(order.TotalAmount),
		Status:          order.Status.String(),
		ShippingAddress: order.ShippingAddress,
		CreatedAt:       order.CreatedAt,
	}
	if len(order.Items) > 0 {
		dto.Items = make([]OrderItemDTO, 0, len(order.Items))
		for _, item := range order.Items {
			dto.Items = append(dto.Items, OrderItemDTO{
				ID:        item.ID,
				OrderID:   item.OrderID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Price:     item.Price,
			})
		}
	}
	return dto
}

func newItemDTOs(rows []ItemRow) []OrderItemDTO {
	out := make([]OrderItemDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, OrderItemDTO{
			ID:           row.ID,
			OrderID:      row.OrderID,
			ProductID:    row.ProductID,
			Quantity:     row.Quantity,
			Price:        row.Price,
			ProductName:  row.ProductName,
			ProductImage: row.ProductImage,
			OrderDate:    row.OrderDate,
		})
	}
	return out
}
