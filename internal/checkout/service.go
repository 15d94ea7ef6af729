package checkout

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/checkout/helpers"
	"github.com/angelmondragon/storefront-backend/internal/checkout/reservation"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderCreator interface {
	CreateTx(ctx context.Context, tx *gorm.DB, input orders.CreateOrderInput) (*models.Order, error)
}

type cartStore interface {
	Lines(ctx context.Context, sessionID string) ([]models.CartLine, error)
	Clear(ctx context.Context, sessionID string) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service executes checkout orchestration.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*Result, error)
	CheckoutCart(ctx context.Context, input CartCheckoutInput) (*Result, error)
}

// PlaceOrderInput is an order submitted with explicit lines. SessionID, when
// set, names the cart to clear once the order commits.
type PlaceOrderInput struct {
	SessionID       string
	UserID          *int64
	Lines           []orders.LineInput
	TotalAmount     int
	ShippingAddress string
}

// CartCheckoutInput checks out the current contents of a cart.
type CartCheckoutInput struct {
	SessionID       string
	UserID          *int64
	ShippingAddress string
}

// Result describes a committed order.
type Result struct {
	OrderID     int64                `json:"orderId"`
	TotalAmount int                  `json:"totalAmount"`
	Reserved    []reservation.Result `json:"reserved"`
}

// Dependencies groups the collaborators of the checkout saga.
type Dependencies struct {
	Tx                txRunner
	Stock             reservation.StockReserver
	Orders            orderCreator
	Cart              cartStore
	Outbox            outboxPublisher
	Logger            *logger.Logger
	Metrics           *metrics.CheckoutMetrics
	LowStockThreshold int
}

type service struct {
	tx        txRunner
	stock     reservation.StockReserver
	orders    orderCreator
	cart      cartStore
	outbox    outboxPublisher
	logg      *logger.Logger
	metrics   *metrics.CheckoutMetrics
	threshold int
}

// NewService builds the checkout service.
func NewService(deps Dependencies) (Service, error) {
	if deps.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if deps.Stock == nil {
		return nil, fmt.Errorf("stock reserver required")
	}
	if deps.Orders == nil {
		return nil, fmt.Errorf("order creator required")
	}
	if deps.Cart == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if deps.LowStockThreshold <= 0 {
		deps.LowStockThreshold = 10
	}
	return &service{
		tx:        deps.Tx,
		stock:     deps.Stock,
		orders:    deps.Orders,
		cart:      deps.Cart,
		outbox:    deps.Outbox,
		logg:      deps.Logger,
		metrics:   deps.Metrics,
		threshold: deps.LowStockThreshold,
	}, nil
}

// PlaceOrder reserves stock line by line, then writes the order. Any failure
// after the first reservation returns all reserved units before the original
// error is reported.
func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (result *Result, err error) {
	started := time.Now()
	defer func() {
		s.metrics.ObserveAttempt(reservation.Outcome(err), time.Since(started))
	}()

	input.SessionID = strings.TrimSpace(input.SessionID)
	input.ShippingAddress = strings.TrimSpace(input.ShippingAddress)
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one line")
	}
	total, err := helpers.ResolveTotal(input.Lines, input.TotalAmount)
	if err != nil {
		return nil, err
	}
	orderInput := orders.CreateOrderInput{
		UserID:          input.UserID,
		Lines:           input.Lines,
		TotalAmount:     total,
		ShippingAddress: input.ShippingAddress,
	}
	if err := orders.ValidateInput(orderInput); err != nil {
		return nil, err
	}

	if input.SessionID != "" {
		ctx = s.logg.WithSessionID(ctx, input.SessionID)
	}
	if input.UserID != nil {
		ctx = s.logg.WithUserID(ctx, strconv.FormatInt(*input.UserID, 10))
	}

	reserved, err := reservation.Reserve(ctx, s.stock, helpers.Requests(input.Lines), s.metrics)
	if err != nil {
		s.compensate(ctx, reserved)
		return nil, err
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.orders.CreateTx(ctx, tx, orderInput)
		if err != nil {
			return err
		}
		if err := s.emitLowStock(ctx, tx, reserved); err != nil {
			return err
		}
		order = created
		return nil
	})
	if err != nil {
		s.compensate(ctx, reserved)
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	ctx = s.logg.WithField(ctx, "order_id", order.ID)
	if input.SessionID != "" {
		if err := s.cart.Clear(ctx, input.SessionID); err != nil {
			s.logg.Error(ctx, "clear cart after checkout", err)
		}
	}
	s.logg.Info(ctx, "order placed")

	return &Result{OrderID: order.ID, TotalAmount: order.TotalAmount, Reserved: reserved}, nil
}

// CheckoutCart orders the cart's lines at their current catalog prices.
func (s *service) CheckoutCart(ctx context.Context, input CartCheckoutInput) (*Result, error) {
	sessionID := strings.TrimSpace(input.SessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	rows, err := s.cart.Lines(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	return s.PlaceOrder(ctx, PlaceOrderInput{
		SessionID:       sessionID,
		UserID:          input.UserID,
		Lines:           helpers.LinesFromCart(rows),
		ShippingAddress: input.ShippingAddress,
	})
}

func (s *service) emitLowStock(ctx context.Context, tx *gorm.DB, reserved []reservation.Result) error {
	if s.outbox == nil {
		return nil
	}
	for _, r := range helpers.LowStock(reserved, s.threshold) {
		event := outbox.DomainEvent{
			EventType:     enums.EventStockLow,
			AggregateType: enums.AggregateProduct,
			AggregateID:   strconv.FormatInt(r.ProductID, 10),
			Data: payloads.StockLowEvent{
				ProductID: r.ProductID,
				Remaining: r.Remaining,
				Threshold: s.threshold,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue stock event")
		}
	}
	return nil
}

// compensate releases reservations even when the request context is gone.
func (s *service) compensate(ctx context.Context, reserved []reservation.Result) {
	if len(reserved) == 0 {
		return
	}
	if err := reservation.ReleaseAll(context.WithoutCancel(ctx), s.stock, reserved, s.metrics); err != nil {
		s.logg.Error(ctx, "release reserved stock", err)
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "released_lines", len(reserved)), "checkout rolled back")
}
