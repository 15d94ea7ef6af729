package models

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Order is a placed order. Status is written once at creation.
type Order struct {
	ID              int64             `gorm:"column:id;primaryKey;autoIncrement"`
	UserID          *int64            `gorm:"column:user_id"`
	TotalAmount     int               `gorm:"column:total_amount;not null"`
	Status          enums.OrderStatus `gorm:"column:status;not null;default:pending"`
	ShippingAddress string            `gorm:"column:shipping_address;not null"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	Items           []OrderItem       `gorm:"foreignKey:OrderID"`
}
