// Package money converts integer minor-unit amounts for display and arithmetic.
package money

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

const minorExponent = -2

var maxAmount = decimal.NewFromInt(math.MaxInt32)

// FromMinor converts minor units (cents) to a decimal amount.
func FromMinor(amount int) decimal.Decimal {
	return decimal.New(int64(amount), minorExponent)
}

// Format renders minor units with two fraction digits, e.g. 1999 -> "19.99".
func Format(amount int) string {
	return FromMinor(amount).StringFixed(2)
}

// LineTotal returns price*quantity, failing instead of overflowing int.
func LineTotal(price, quantity int) (int, error) {
	total := decimal.NewFromInt(int64(price)).Mul(decimal.NewFromInt(int64(quantity)))
	if total.GreaterThan(maxAmount) {
		return 0, fmt.Errorf("line total %s exceeds supported range", total.String())
	}
	return int(total.IntPart()), nil
}

// Sum adds minor-unit amounts, failing when the total leaves the range an
// order total column can hold.
func Sum(amounts ...int) (int, error) {
	total := decimal.Zero
	for _, amount := range amounts {
		total = total.Add(decimal.NewFromInt(int64(amount)))
	}
	if total.GreaterThan(maxAmount) {
		return 0, fmt.Errorf("total %s exceeds supported range", total.String())
	}
	return int(total.IntPart()), nil
}
