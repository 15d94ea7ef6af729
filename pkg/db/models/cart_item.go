package models

import "time"

// CartItem is one (session, product) line. The pair is unique.
type CartItem struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	SessionID string    `gorm:"column:session_id;not null"`
	UserID    *int64    `gorm:"column:user_id"`
	ProductID int64     `gorm:"column:product_id;not null"`
	Quantity  int       `gorm:"column:quantity;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// CartLine is a cart item joined with the live product columns.
type CartLine struct {
	ProductID int64   `gorm:"column:product_id"`
	SessionID string  `gorm:"column:session_id"`
	UserID    *int64  `gorm:"column:user_id"`
	Quantity  int     `gorm:"column:quantity"`
	Name      string  `gorm:"column:name"`
	Price     int     `gorm:"column:price"`
	Image     string  `gorm:"column:image"`
	Stock     int     `gorm:"column:stock"`
	Category  string  `gorm:"column:category"`
	Badge     *string `gorm:"column:badge"`
}
