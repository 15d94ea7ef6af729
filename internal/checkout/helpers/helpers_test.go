package helpers

import (
	"testing"

	"github.com/angelmondragon/storefront-backend/internal/checkout/reservation"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTotal(t *testing.T) {
	lines := []orders.LineInput{
		{ProductID: 1, Quantity: 2, Price: 1250},
		{ProductID: 2, Quantity: 1, Price: 499},
	}

	total, err := ResolveTotal(lines, 0)
	require.NoError(t, err)
	assert.Equal(t, 2999, total)

	total, err = ResolveTotal(lines, 2999)
	require.NoError(t, err)
	assert.Equal(t, 2999, total)

	_, err = ResolveTotal(lines, 3000)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, map[string]any{"declared": 3000, "computed": 2999}, typed.Details())

	_, err = ResolveTotal(lines, -5)
	require.Error(t, err)
}

func TestComputeTotalRejectsOverflow(t *testing.T) {
	_, err := ComputeTotal([]orders.LineInput{{ProductID: 1, Quantity: 1 << 20, Price: 1 << 20}})
	require.Error(t, err)

	// each line fits, the order total does not
	_, err = ResolveTotal([]orders.LineInput{
		{ProductID: 1, Quantity: 1, Price: 1_500_000_000},
		{ProductID: 2, Quantity: 1, Price: 1_500_000_000},
	}, 0)
	apiErr := pkgerrors.As(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, pkgerrors.CodeValidation, apiErr.Code())
}

func TestLinesFromCart(t *testing.T) {
	lines := LinesFromCart([]models.CartLine{
		{ProductID: 4, Quantity: 2, Price: 700, Name: "Mug"},
		{ProductID: 9, Quantity: 1, Price: 1500, Name: "Tee"},
	})
	assert.Equal(t, []orders.LineInput{
		{ProductID: 4, Quantity: 2, Price: 700},
		{ProductID: 9, Quantity: 1, Price: 1500},
	}, lines)

	assert.Equal(t, []reservation.Request{
		{ProductID: 4, Quantity: 2},
		{ProductID: 9, Quantity: 1},
	}, Requests(lines))
}

func TestLowStockKeepsLatestPerProduct(t *testing.T) {
	got := LowStock([]reservation.Result{
		{ProductID: 1, Quantity: 1, Remaining: 20},
		{ProductID: 2, Quantity: 5, Remaining: 3},
		{ProductID: 1, Quantity: 15, Remaining: 5},
		{ProductID: 3, Quantity: 1, Remaining: 11},
	}, 10)

	assert.Equal(t, []reservation.Result{
		{ProductID: 1, Quantity: 15, Remaining: 5},
		{ProductID: 2, Quantity: 5, Remaining: 3},
	}, got)
	assert.Empty(t, LowStock(nil, 10))
}
