package payloads

// OrderCreatedLine is one snapshot line of a placed order.
type OrderCreatedLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
	Price     int   `json:"price"`
}

// OrderCreatedEvent announces a committed order.
type OrderCreatedEvent struct {
	OrderID     int64              `json:"order_id"`
	UserID      *int64             `json:"user_id,omitempty"`
	TotalAmount int                `json:"total_amount"`
	Status      string             `json:"status"`
	Lines       []OrderCreatedLine `json:"lines"`
}

// StockLowEvent fires when a reservation leaves a product at or below the threshold.
type StockLowEvent struct {
	ProductID int64 `json:"product_id"`
	Remaining int   `json:"remaining"`
	Threshold int   `json:"threshold"`
}
