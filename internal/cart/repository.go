package cart

import (
	"context"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists cart lines keyed by (session_id, product_id).
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetLine(ctx context.Context, sessionID string, productID int64) (*models.CartItem, error)
	AddQuantity(ctx context.Context, item *models.CartItem) error
	PutQuantity(ctx context.Context, item *models.CartItem) error
	Delete(ctx context.Context, sessionID string, productID int64) (int64, error)
	DeleteSession(ctx context.Context, sessionID string) (int64, error)
	ListItems(ctx context.Context, sessionID string) ([]models.CartItem, error)
	ListLines(ctx context.Context, sessionID string) ([]models.CartLine, error)
	DeleteStaleGuestLines(ctx context.Context, cutoff time.Time) (int64, error)
	UserExists(ctx context.Context, userID int64) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided DB handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

var lineConflict = []clause.Column{{Name: "session_id"}, {Name: "product_id"}}

func (r *repository) GetLine(ctx context.Context, sessionID string, productID int64) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND product_id = ?", sessionID, productID).
		First(&item).
		Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// AddQuantity inserts the line or adds item.Quantity to the existing one.
func (r *repository) AddQuantity(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: lineConflict,
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
				"user_id":    gorm.Expr("COALESCE(excluded.user_id, cart_items.user_id)"),
				"updated_at": time.Now().UTC(),
			}),
		}).
		Create(item).
		Error
}

// PutQuantity inserts the line or overwrites the existing quantity.
func (r *repository) PutQuantity(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: lineConflict,
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   gorm.Expr("excluded.quantity"),
				"user_id":    gorm.Expr("COALESCE(excluded.user_id, cart_items.user_id)"),
				"updated_at": time.Now().UTC(),
			}),
		}).
		Create(item).
		Error
}

func (r *repository) Delete(ctx context.Context, sessionID string, productID int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("session_id = ? AND product_id = ?", sessionID, productID).
		Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

func (r *repository) DeleteSession(ctx context.Context, sessionID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

func (r *repository) ListItems(ctx context.Context, sessionID string) ([]models.CartItem, error) {
	var rows []models.CartItem
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&rows).
		Error
	return rows, err
}

// ListLines joins the session's lines with live product data.
func (r *repository) ListLines(ctx context.Context, sessionID string) ([]models.CartLine, error) {
	var rows []models.CartLine
	err := r.db.WithContext(ctx).
		Table("cart_items AS c").
		Select("c.product_id, c.session_id, c.user_id, c.quantity, p.name, p.price, p.image, p.stock, p.category, p.badge").
		Joins("JOIN products p ON p.id = c.product_id").
		Where("c.session_id = ?", sessionID).
		Order("c.id ASC").
		Scan(&rows).
		Error
	return rows, err
}

// DeleteStaleGuestLines drops anonymous lines untouched since cutoff. Lines
// owned by a user survive until the user clears or checks out the cart.
func (r *repository) DeleteStaleGuestLines(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id IS NULL AND updated_at < ?", cutoff).
		Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

func (r *repository) UserExists(ctx context.Context, userID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Count(&n).
		Error
	return n > 0, err
}
