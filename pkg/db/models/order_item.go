package models

// OrderItem stores the unit price as it was at purchase time.
type OrderItem struct {
	ID        int64 `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID   int64 `gorm:"column:order_id;not null"`
	ProductID int64 `gorm:"column:product_id;not null"`
	Quantity  int   `gorm:"column:quantity;not null"`
	Price     int   `gorm:"column:price;not null"`
}
