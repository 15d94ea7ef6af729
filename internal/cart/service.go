package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes cart operations. Stock checks here are advisory; stock is
// only taken when an order is placed.
type Service interface {
	AddToCart(ctx context.Context, input AddInput) (*AddResult, error)
	SetQuantity(ctx context.Context, sessionID string, productID int64, quantity int) (*AddResult, error)
	Remove(ctx context.Context, sessionID string, productID int64) error
	Clear(ctx context.Context, sessionID string) error
	List(ctx context.Context, sessionID string, userID *int64) (*CartDTO, error)
	Lines(ctx context.Context, sessionID string) ([]models.CartLine, error)
	MergeGuestCart(ctx context.Context, guestSessionID string, userID int64) (*CartDTO, error)
}

// AddInput carries an add-to-cart request.
type AddInput struct {
	SessionID string
	UserID    *int64
	ProductID int64
	Quantity  int
}

type service struct {
	repo     Repository
	products products.Repository
	tx       txRunner
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo Repository, productRepo products.Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, products: productRepo, tx: tx}, nil
}

// AddToCart merges quantity into the (session, product) line and returns the
// resulting quantity. The merged quantity may not exceed current stock.
func (s *service) AddToCart(ctx context.Context, input AddInput) (*AddResult, error) {
	sessionID, err := requireSession(input.SessionID)
	if err != nil {
		return nil, err
	}
	if input.ProductID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	var merged int
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		product, err := s.loadProduct(ctx, s.products.WithTx(tx), input.ProductID)
		if err != nil {
			return err
		}
		if input.Quantity > product.Stock {
			return pkgerrors.InsufficientStock(product.ID, input.Quantity, product.Stock)
		}

		txRepo := s.repo.WithTx(tx)
		if input.UserID != nil {
			exists, err := txRepo.UserExists(ctx, *input.UserID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
			}
			if !exists {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
		}
		item := &models.CartItem{
			SessionID: sessionID,
			UserID:    input.UserID,
			ProductID: input.ProductID,
			Quantity:  input.Quantity,
		}
		if err := txRepo.AddQuantity(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert cart line")
		}

		line, err := txRepo.GetLine(ctx, sessionID, input.ProductID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart line")
		}
		if line.Quantity > product.Stock {
			return pkgerrors.InsufficientStock(product.ID, line.Quantity, product.Stock)
		}
		merged = line.Quantity
		return nil
	})
	if err != nil {
		return nil, asServiceError(err, "add to cart")
	}
	return &AddResult{SessionID: sessionID, ProductID: input.ProductID, Quantity: merged}, nil
}

// SetQuantity overwrites the line quantity; quantity <= 0 removes the line.
func (s *service) SetQuantity(ctx context.Context, sessionID string, productID int64, quantity int) (*AddResult, error) {
	sessionID, err := requireSession(sessionID)
	if err != nil {
		return nil, err
	}
	if productID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	}
	if quantity <= 0 {
		if err := s.Remove(ctx, sessionID, productID); err != nil {
			return nil, err
		}
		return &AddResult{SessionID: sessionID, ProductID: productID, Quantity: 0}, nil
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		product, err := s.loadProduct(ctx, s.products.WithTx(tx), productID)
		if err != nil {
			return err
		}
		if quantity > product.Stock {
			return pkgerrors.InsufficientStock(product.ID, quantity, product.Stock)
		}
		item := &models.CartItem{SessionID: sessionID, ProductID: productID, Quantity: quantity}
		if err := s.repo.WithTx(tx).PutQuantity(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
		}
		return nil
	})
	if err != nil {
		return nil, asServiceError(err, "update cart")
	}
	return &AddResult{SessionID: sessionID, ProductID: productID, Quantity: quantity}, nil
}

// Remove deletes the line if present.
func (s *service) Remove(ctx context.Context, sessionID string, productID int64) error {
	sessionID, err := requireSession(sessionID)
	if err != nil {
		return err
	}
	if productID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	}
	if _, err := s.repo.Delete(ctx, sessionID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart line")
	}
	return nil
}

// Clear deletes every line of the session.
func (s *service) Clear(ctx context.Context, sessionID string) error {
	sessionID, err := requireSession(sessionID)
	if err != nil {
		return err
	}
	if _, err := s.repo.DeleteSession(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// List returns the session's lines. Lines are selected by session only; a
// signed-in user's guest lines are folded in by MergeGuestCart.
func (s *service) List(ctx context.Context, sessionID string, userID *int64) (*CartDTO, error) {
	sessionID, err := requireSession(sessionID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListLines(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart")
	}
	dto, err := newCartDTO(sessionID, userID, rows)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "cart total out of range")
	}
	return dto, nil
}

func (s *service) Lines(ctx context.Context, sessionID string) ([]models.CartLine, error) {
	sessionID, err := requireSession(sessionID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListLines(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart")
	}
	return rows, nil
}

// MergeGuestCart moves the guest session's lines into the user's cart.
// Duplicate products are summed and capped at current stock; lines for
// products that are out of stock are dropped. The guest key is emptied.
func (s *service) MergeGuestCart(ctx context.Context, guestSessionID string, userID int64) (*CartDTO, error) {
	guestSessionID, err := requireSession(guestSessionID)
	if err != nil {
		return nil, err
	}
	if userID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "userId is required")
	}
	target := UserSessionID(userID)
	if guestSessionID == target {
		return s.List(ctx, target, &userID)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		txProducts := s.products.WithTx(tx)

		guestItems, err := txRepo.ListItems(ctx, guestSessionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list guest cart")
		}
		for _, guest := range guestItems {
			product, err := txProducts.GetByID(ctx, guest.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
			}

			quantity := guest.Quantity
			existing, err := txRepo.GetLine(ctx, target, guest.ProductID)
			switch {
			case err == nil:
				quantity += existing.Quantity
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user cart line")
			}
			if quantity > product.Stock {
				quantity = product.Stock
			}
			if quantity <= 0 {
				continue
			}

			uid := userID
			item := &models.CartItem{SessionID: target, UserID: &uid, ProductID: guest.ProductID, Quantity: quantity}
			if err := txRepo.PutQuantity(ctx, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merge cart line")
			}
		}

		if _, err := txRepo.DeleteSession(ctx, guestSessionID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "drop guest cart")
		}
		return nil
	})
	if err != nil {
		return nil, asServiceError(err, "merge cart")
	}
	return s.List(ctx, target, &userID)
}

func (s *service) loadProduct(ctx context.Context, repo products.Repository, id int64) (*models.Product, error) {
	product, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func requireSession(sessionID string) (string, error) {
	trimmed := strings.TrimSpace(sessionID)
	if trimmed == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "sessionId is required")
	}
	return trimmed, nil
}

func asServiceError(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
