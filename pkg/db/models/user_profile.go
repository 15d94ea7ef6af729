package models

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

type UserProfile struct {
	ID        int64         `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    int64         `gorm:"column:user_id;not null;uniqueIndex"`
	FirstName *string       `gorm:"column:first_name"`
	LastName  *string       `gorm:"column:last_name"`
	Phone     *string       `gorm:"column:phone"`
	BirthDate *time.Time    `gorm:"column:birth_date"`
	Gender    *enums.Gender `gorm:"column:gender"`
	Address   *string       `gorm:"column:address"`
	UpdatedAt time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}
