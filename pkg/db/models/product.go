package models

import "time"

// Product is a catalog listing. Price and OldPrice are minor currency units.
type Product struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name        string    `gorm:"column:name;not null"`
	Category    string    `gorm:"column:category;not null"`
	Description *string   `gorm:"column:description"`
	Price       int       `gorm:"column:price;not null"`
	OldPrice    *int      `gorm:"column:old_price"`
	Stock       int       `gorm:"column:stock;not null;default:0"`
	Badge       *string   `gorm:"column:badge"`
	Image       string    `gorm:"column:image;not null"`
	Featured    bool      `gorm:"column:featured;not null;default:false"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
