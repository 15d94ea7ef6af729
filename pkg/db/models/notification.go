package models

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Notification is an operator alert derived from a published domain event.
// EventID is unique so redelivered events collapse into one row.
type Notification struct {
	ID        int64                  `gorm:"column:id;primaryKey;autoIncrement"`
	EventID   string                 `gorm:"column:event_id;not null;uniqueIndex"`
	Type      enums.NotificationType `gorm:"column:type;not null"`
	Title     string                 `gorm:"column:title;not null"`
	Message   string                 `gorm:"column:message;not null"`
	Link      *string                `gorm:"column:link"`
	ReadAt    *time.Time             `gorm:"column:read_at"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
}
