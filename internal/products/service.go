package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"gorm.io/gorm"
)

// Service exposes the catalog and the stock reservation primitive.
type Service interface {
	Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	Get(ctx context.Context, id int64) (*ProductDTO, error)
	Update(ctx context.Context, id int64, input UpdateProductInput) (*ProductDTO, error)
	Delete(ctx context.Context, id int64) (*ProductDTO, error)
	List(ctx context.Context, filter ListFilter) ([]ProductDTO, error)
	Featured(ctx context.Context) ([]ProductDTO, error)
	LowStock(ctx context.Context, threshold *int) ([]ProductDTO, error)
	CheckAndReserve(ctx context.Context, productID int64, quantity int) (int, error)
	Release(ctx context.Context, productID int64, quantity int) error
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name        string
	Category    string
	Description *string
	Price       int
	OldPrice    *int
	Stock       int
	Badge       *string
	Image       string
	Featured    bool
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name        *string
	Category    *string
	Description *string
	Price       *int
	OldPrice    *int
	Stock       *int
	Badge       *string
	Image       *string
	Featured    *bool
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Options carries catalog defaults sourced from configuration.
type Options struct {
	DefaultImage      string
	LowStockThreshold int
}

type service struct {
	repo Repository
	tx   txRunner
	opts Options
}

// NewService constructs a catalog service instance.
func NewService(repo Repository, tx txRunner, opts Options) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if opts.DefaultImage == "" {
		opts.DefaultImage = "/images/default.jpg"
	}
	if opts.LowStockThreshold <= 0 {
		opts.LowStockThreshold = 10
	}
	return &service{repo: repo, tx: tx, opts: opts}, nil
}

func (s *service) Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	product := &models.Product{
		Name:        strings.TrimSpace(input.Name),
		Category:    strings.TrimSpace(input.Category),
		Description: trimOptional(input.Description),
		Price:       input.Price,
		OldPrice:    input.OldPrice,
		Stock:       input.Stock,
		Badge:       trimOptional(input.Badge),
		Image:       strings.TrimSpace(input.Image),
		Featured:    input.Featured,
	}
	if product.Image == "" {
		product.Image = s.opts.DefaultImage
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	dto := NewProductDTO(product)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, id int64) (*ProductDTO, error) {
	product, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	dto := NewProductDTO(product)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id int64, input UpdateProductInput) (*ProductDTO, error) {
	var updated *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		product, err := s.load(ctx, txRepo, id)
		if err != nil {
			return err
		}

		applyUpdate(product, input)
		if product.Image == "" {
			product.Image = s.opts.DefaultImage
		}
		if err := validateProduct(product); err != nil {
			return err
		}
		if err := txRepo.Update(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
		}
		updated = product
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	dto := NewProductDTO(updated)
	return &dto, nil
}

// Delete removes a product that no order references and returns the removed row.
func (s *service) Delete(ctx context.Context, id int64) (*ProductDTO, error) {
	var deleted *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		product, err := s.load(ctx, txRepo, id)
		if err != nil {
			return err
		}

		refs, err := txRepo.CountOrderReferences(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count order references")
		}
		if refs > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "product is referenced by existing orders")
		}

		if _, err := txRepo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
		}
		deleted = product
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	dto := NewProductDTO(deleted)
	return &dto, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]ProductDTO, error) {
	filter.Category = strings.TrimSpace(filter.Category)
	if filter.MinPrice != nil && *filter.MinPrice < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minPrice must be non-negative")
	}
	if filter.MaxPrice != nil && *filter.MaxPrice < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "maxPrice must be non-negative")
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minPrice cannot exceed maxPrice")
	}

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return newProductDTOs(rows), nil
}

func (s *service) Featured(ctx context.Context) ([]ProductDTO, error) {
	rows, err := s.repo.ListFeatured(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list featured products")
	}
	return newProductDTOs(rows), nil
}

// LowStock lists products at or below threshold; nil uses the configured default.
func (s *service) LowStock(ctx context.Context, threshold *int) ([]ProductDTO, error) {
	limit := s.opts.LowStockThreshold
	if threshold != nil {
		if *threshold < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "threshold must be non-negative")
		}
		limit = *threshold
	}

	rows, err := s.repo.ListLowStock(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock products")
	}
	return newProductDTOs(rows), nil
}

// CheckAndReserve atomically takes quantity units from stock and returns the
// remaining level. When stock is short nothing changes and the error carries
// the quantity currently available.
func (s *service) CheckAndReserve(ctx context.Context, productID int64, quantity int) (int, error) {
	if productID <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "product id must be positive")
	}
	if quantity <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer")
	}

	var remaining int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		affected, err := txRepo.DecrementStock(ctx, productID, quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve stock")
		}

		product, err := s.load(ctx, txRepo, productID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return pkgerrors.InsufficientStock(productID, quantity, product.Stock)
		}
		remaining = product.Stock
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return 0, err
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve stock")
	}
	return remaining, nil
}

// Release returns previously reserved units to stock.
func (s *service) Release(ctx context.Context, productID int64, quantity int) error {
	if quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer")
	}
	affected, err := s.repo.IncrementStock(ctx, productID, quantity)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release stock")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

func (s *service) load(ctx context.Context, repo Repository, id int64) (*models.Product, error) {
	product, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func applyUpdate(product *models.Product, input UpdateProductInput) {
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Category != nil {
		product.Category = strings.TrimSpace(*input.Category)
	}
	if input.Description != nil {
		product.Description = trimOptional(input.Description)
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.OldPrice != nil {
		product.OldPrice = input.OldPrice
	}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
	if input.Badge != nil {
		product.Badge = trimOptional(input.Badge)
	}
	if input.Image != nil {
		product.Image = strings.TrimSpace(*input.Image)
	}
	if input.Featured != nil {
		product.Featured = *input.Featured
	}
}

func validateProduct(p *models.Product) error {
	switch {
	case len([]rune(p.Name)) < 2:
		return pkgerrors.New(pkgerrors.CodeValidation, "name must be at least 2 characters")
	case p.Category == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	case p.Price <= 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be greater than zero")
	case p.OldPrice != nil && *p.OldPrice <= 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "oldPrice must be greater than zero")
	case p.Stock < 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "stock must be non-negative")
	}
	return nil
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
