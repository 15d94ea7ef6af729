package helpers

import (
	"fmt"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/money"
)

// ComputeTotal sums price*quantity over the lines.
func ComputeTotal(lines []orders.LineInput) (int, error) {
	totals := make([]int, 0, len(lines))
	for i, line := range lines {
		lineTotal, err := money.LineTotal(line.Price, line.Quantity)
		if err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("line %d", i))
		}
		totals = append(totals, lineTotal)
	}
	total, err := money.Sum(totals...)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "order total")
	}
	return total, nil
}

// ResolveTotal returns the order total. A declared total of zero is filled in
// from the lines; any other declared total must match them exactly.
func ResolveTotal(lines []orders.LineInput, declared int) (int, error) {
	if declared < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "totalAmount must be non-negative")
	}
	computed, err := ComputeTotal(lines)
	if err != nil {
		return 0, err
	}
	if declared == 0 {
		return computed, nil
	}
	if declared != computed {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "totalAmount does not match order lines").
			WithDetails(map[string]any{"declared": declared, "computed": computed})
	}
	return declared, nil
}
