package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/money"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Service persists orders and exposes the read side.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*CreateResult, error)
	CreateTx(ctx context.Context, tx *gorm.DB, input CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, id int64) (*OrderDTO, error)
	List(ctx context.Context, params pagination.Params) (*OrderList, error)
	ListByUser(ctx context.Context, userID int64) ([]OrderDTO, error)
	ListItems(ctx context.Context, limit int) ([]OrderItemDTO, error)
	ListItemsByOrder(ctx context.Context, orderID int64) ([]OrderItemDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo    Repository
	tx      txRunner
	emitter outboxEmitter
}

// NewService wires the order store. The emitter is optional; without it no
// order_created event is queued.
func NewService(repo Repository, tx txRunner, emitter outboxEmitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, emitter: emitter}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*CreateResult, error) {
	if err := ValidateInput(input); err != nil {
		return nil, err
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.CreateTx(ctx, tx, input)
		if err != nil {
			return err
		}
		created = order
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	return &CreateResult{OrderID: created.ID}, nil
}

// CreateTx writes the order, its snapshot lines and the order_created event
// using the caller's transaction. Stock and carts are left untouched.
func (s *service) CreateTx(ctx context.Context, tx *gorm.DB, input CreateOrderInput) (*models.Order, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if err := ValidateInput(input); err != nil {
		return nil, err
	}
	txRepo := s.repo.WithTx(tx)
	if input.UserID != nil {
		exists, err := txRepo.UserExists(ctx, *input.UserID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
		}
		if !exists {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
	}

	order := &models.Order{
		UserID:          input.UserID,
		TotalAmount:     input.TotalAmount,
		Status:          enums.OrderStatusPending,
		ShippingAddress: strings.TrimSpace(input.ShippingAddress),
		Items:           make([]models.OrderItem, 0, len(input.Lines)),
	}
	for _, line := range input.Lines {
		order.Items = append(order.Items, models.OrderItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.Price,
		})
	}

	if err := txRepo.CreateOrder(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order")
	}

	if s.emitter != nil {
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   strconv.FormatInt(order.ID, 10),
			Data:          orderCreatedPayload(order),
		}
		if order.UserID != nil {
			event.Actor = &outbox.ActorRef{UserID: order.UserID}
		}
		if err := s.emitter.Emit(ctx, tx, event); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue order event")
		}
	}
	return order, nil
}

func (s *service) Get(ctx context.Context, id int64) (*OrderDTO, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id must be positive")
	}
	order, err := s.repo.FindOrder(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	dto := newOrderDTO(order)
	return &dto, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*OrderList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	var afterID int64
	if cursor != nil {
		afterID = cursor.ID
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListOrders(ctx, afterID, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	result := &OrderList{Orders: make([]OrderDTO, 0, limit)}
	if len(rows) > limit {
		rows = rows[:limit]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{ID: rows[len(rows)-1].ID})
	}
	for i := range rows {
		result.Orders = append(result.Orders, newOrderDTO(&rows[i]))
	}
	return result, nil
}

func (s *service) ListByUser(ctx context.Context, userID int64) ([]OrderDTO, error) {
	if userID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id must be positive")
	}
	rows, err := s.repo.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list user orders")
	}
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, newOrderDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) ListItems(ctx context.Context, limit int) ([]OrderItemDTO, error) {
	rows, err := s.repo.ListItems(ctx, pagination.NormalizeLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order items")
	}
	return newItemDTOs(rows), nil
}

func (s *service) ListItemsByOrder(ctx context.Context, orderID int64) ([]OrderItemDTO, error) {
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id must be positive")
	}
	rows, err := s.repo.ListItemsByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order items")
	}
	return newItemDTOs(rows), nil
}

// ValidateInput checks the order snapshot before anything is written.
func ValidateInput(input CreateOrderInput) error {
	if len(input.Lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one line")
	}
	for i, line := range input.Lines {
		switch {
		case line.ProductID <= 0:
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: product id must be positive", i))
		case line.Quantity < 1:
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: quantity must be at least 1", i))
		case line.Price <= 0:
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: price must be greater than zero", i))
		}
		if _, err := money.LineTotal(line.Price, line.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("line %d", i))
		}
	}
	if input.TotalAmount < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "totalAmount must be non-negative")
	}
	if strings.TrimSpace(input.ShippingAddress) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "shippingAddress is required")
	}
	return nil
}

func orderCreatedPayload(order *models.Order) payloads.OrderCreatedEvent {
	lines := make([]payloads.OrderCreatedLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, payloads.OrderCreatedLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	return payloads.OrderCreatedEvent{
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		Status:      order.Status.String(),
		Lines:       lines,
	}
}
