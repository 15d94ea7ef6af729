package products

import (
	"context"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository is the catalog store. Stock mutations report affected rows so
// callers can tell a missing product or a failed guard from success.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id int64) (int64, error)
	List(ctx context.Context, filter ListFilter) ([]models.Product, error)
	ListFeatured(ctx context.Context) ([]models.Product, error)
	ListLowStock(ctx context.Context, threshold int) ([]models.Product, error)
	SetStock(ctx context.Context, id int64, stock int) (int64, error)
	DecrementStock(ctx context.Context, id int64, quantity int) (int64, error)
	IncrementStock(ctx context.Context, id int64, quantity int) (int64, error)
	CountOrderReferences(ctx context.Context, id int64) (int64, error)
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

func (r *repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *repository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// Update overwrites the editable columns, stock included.
func (r *repository) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).
		Model(product).
		Select("name", "category", "description", "price", "old_price", "stock", "badge", "image", "featured", "updated_at").
		Updates(product).
		Error
}

func (r *repository) Delete(ctx context.Context, id int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{})
	return res.RowsAffected, res.Error
}

// List applies the optional category and price bounds, newest first.
func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.MinPrice != nil {
		query = query.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", *filter.MaxPrice)
	}

	var rows []models.Product
	err := query.Order("id DESC").Find(&rows).Error
	return rows, err
}

func (r *repository) ListFeatured(ctx context.Context) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("featured = ?", true).
		Order("id DESC").
		Find(&rows).
		Error
	return rows, err
}

func (r *repository) ListLowStock(ctx context.Context, threshold int) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("stock <= ?", threshold).
		Order("stock ASC, id ASC").
		Find(&rows).
		Error
	return rows, err
}

func (r *repository) SetStock(ctx context.Context, id int64, stock int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]any{"stock": stock, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

// DecrementStock is the reservation primitive: a single conditional update
// that only succeeds while enough stock remains.
func (r *repository) DecrementStock(ctx context.Context, id int64, quantity int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, quantity).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock - ?", quantity),
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *repository) IncrementStock(ctx context.Context, id int64, quantity int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock + ?", quantity),
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *repository) CountOrderReferences(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("product_id = ?", id).
		Count(&count).
		Error
	return count, err
}
