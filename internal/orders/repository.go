package orders

import (
	"context"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository defines persistence operations for the order tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	FindOrder(ctx context.Context, id int64) (*models.Order, error)
	ListOrders(ctx context.Context, afterID int64, limit int) ([]models.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]models.Order, error)
	ListItems(ctx context.Context, limit int) ([]ItemRow, error)
	ListItemsByOrder(ctx context.Context, orderID int64) ([]ItemRow, error)
	UserExists(ctx context.Context, userID int64) (bool, error)
}

// ItemRow is an order line joined with its product and order.
type ItemRow struct {
	ID           int64      `gorm:"column:id"`
	OrderID      int64      `gorm:"column:order_id"`
	ProductID    int64      `gorm:"column:product_id"`
	Quantity     int        `gorm:"column:quantity"`
	Price        int        `gorm:"column:price"`
	ProductName  *string    `gorm:"column:product_name"`
	ProductImage *string    `gorm:"column:product_image"`
	OrderDate    *time.Time `gorm:"column:order_date"`
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateOrder inserts the order and its Items in one statement batch.
func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindOrder(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		First(&order, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders walks orders newest first; afterID > 0 continues below that id.
func (r *repository) ListOrders(ctx context.Context, afterID int64, limit int) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if afterID > 0 {
		query = query.Where("id < ?", afterID)
	}
	var rows []models.Order
	err := query.Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

func (r *repository) ListOrdersByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&rows).
		Error
	return rows, err
}

func (r *repository) ListItems(ctx context.Context, limit int) ([]ItemRow, error) {
	var rows []ItemRow
	err := r.itemQuery(ctx).
		Order("oi.id DESC").
		Limit(limit).
		Scan(&rows).
		Error
	return rows, err
}

func (r *repository) ListItemsByOrder(ctx context.Context, orderID int64) ([]ItemRow, error) {
	var rows []ItemRow
	err := r.itemQuery(ctx).
		Where("oi.order_id = ?", orderID).
		Order("oi.id ASC").
		Scan(&rows).
		Error
	return rows, err
}

func (r *repository) itemQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("order_items AS oi").
		Select("oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price, p.name AS product_name, p.image AS product_image, o.created_at AS order_date").
		Joins("LEFT JOIN products p ON p.id = oi.product_id").
		Joins("LEFT JOIN orders o ON o.id = oi.order_id")
}

func (r *repository) UserExists(ctx context.Context, userID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&n).Error
	return n > 0, err
}
