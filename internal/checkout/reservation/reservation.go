// Package reservation takes stock for checkout lines one at a time and
// returns it when the saga cannot finish.
package reservation

import (
	"context"
	"fmt"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"go.uber.org/multierr"
)

// StockReserver is the catalog's atomic reservation surface.
type StockReserver interface {
	CheckAndReserve(ctx context.Context, productID int64, quantity int) (int, error)
	Release(ctx context.Context, productID int64, quantity int) error
}

// Request asks for quantity units of a product.
type Request struct {
	ProductID int64
	Quantity  int
}

// Result is a granted reservation and the stock left after it.
type Result struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
	Remaining int   `json:"remaining"`
}

// Reserve reserves every request in order and stops at the first failure.
// The returned slice holds the reservations granted before that failure so
// the caller can release them.
func Reserve(ctx context.Context, stock StockReserver, requests []Request, m *metrics.CheckoutMetrics) ([]Result, error) {
	results := make([]Result, 0, len(requests))
	for _, req := range requests {
		remaining, err := stock.CheckAndReserve(ctx, req.ProductID, req.Quantity)
		if err != nil {
			m.IncReservation(Outcome(err))
			return results, err
		}
		m.IncReservation(metrics.OutcomeSuccess)
		results = append(results, Result{
			ProductID: req.ProductID,
			Quantity:  req.Quantity,
			Remaining: remaining,
		})
	}
	return results, nil
}

// ReleaseAll returns every reservation to stock, newest first. All releases
// are attempted; failures are combined into one error.
func ReleaseAll(ctx context.Context, stock StockReserver, reserved []Result, m *metrics.CheckoutMetrics) error {
	var errs error
	for i := len(reserved) - 1; i >= 0; i-- {
		r := reserved[i]
		if err := stock.Release(ctx, r.ProductID, r.Quantity); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("release product %d qty %d: %w", r.ProductID, r.Quantity, err))
			continue
		}
		m.IncCompensation()
	}
	return errs
}

// Outcome maps a saga error onto a metrics label.
func Outcome(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		return metrics.OutcomeError
	}
	switch typed.Code() {
	case pkgerrors.CodeInsufficient:
		return metrics.OutcomeInsufficient
	case pkgerrors.CodeValidation, pkgerrors.CodeNotFound:
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}
