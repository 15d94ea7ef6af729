package reservation

import (
	"context"
	"errors"
	"testing"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

type memoryStock struct {
	levels      map[int64]int
	failRelease map[int64]bool
	released    []int64
}

func (m *memoryStock) CheckAndReserve(_ context.Context, productID int64, quantity int) (int, error) {
	level, ok := m.levels[productID]
	if !ok {
		return 0, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if level < quantity {
		return 0, pkgerrors.InsufficientStock(productID, quantity, level)
	}
	m.levels[productID] = level - quantity
	return m.levels[productID], nil
}

func (m *memoryStock) Release(_ context.Context, productID int64, quantity int) error {
	if m.failRelease[productID] {
		return errors.New("db down")
	}
	m.levels[productID] += quantity
	m.released = append(m.released, productID)
	return nil
}

func TestReserveStopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	stock := &memoryStock{levels: map[int64]int{1: 5, 2: 1, 3: 9}}
	results, err := Reserve(context.Background(), stock, []Request{
		{ProductID: 1, Quantity: 3},
		{ProductID: 2, Quantity: 2},
		{ProductID: 3, Quantity: 1},
	}, nil)

	require.Error(t, err)
	assert.Equal(t, metrics.OutcomeInsufficient, Outcome(err))
	require.Len(t, results, 1)
	assert.Equal(t, Result{ProductID: 1, Quantity: 3, Remaining: 2}, results[0])
	assert.Equal(t, 9, stock.levels[3], "requests after the failure are not attempted")
}

func TestReleaseAllRestoresNewestFirst(t *testing.T) {
	t.Parallel()

	stock := &memoryStock{levels: map[int64]int{1: 5, 2: 4}}
	results, err := Reserve(context.Background(), stock, []Request{
		{ProductID: 1, Quantity: 5},
		{ProductID: 2, Quantity: 1},
	}, nil)
	require.NoError(t, err)

	require.NoError(t, ReleaseAll(context.Background(), stock, results, nil))
	assert.Equal(t, []int64{2, 1}, stock.released)
	assert.Equal(t, 5, stock.levels[1])
	assert.Equal(t, 4, stock.levels[2])
}

func TestReleaseAllAggregatesFailures(t *testing.T) {
	t.Parallel()

	stock := &memoryStock{
		levels:      map[int64]int{1: 0, 2: 0, 3: 0},
		failRelease: map[int64]bool{1: true, 3: true},
	}
	err := ReleaseAll(context.Background(), stock, []Result{
		{ProductID: 1, Quantity: 1},
		{ProductID: 2, Quantity: 1},
		{ProductID: 3, Quantity: 1},
	}, nil)

	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Equal(t, 1, stock.levels[2], "healthy releases still run")
}

func TestOutcome(t *testing.T) {
	t.Parallel()

	assert.Equal(t, metrics.OutcomeSuccess, Outcome(nil))
	assert.Equal(t, metrics.OutcomeInvalid, Outcome(pkgerrors.New(pkgerrors.CodeValidation, "bad")))
	assert.Equal(t, metrics.OutcomeError, Outcome(errors.New("boom")))
	assert.Equal(t, metrics.OutcomeError, Outcome(pkgerrors.New(pkgerrors.CodeDependency, "db")))
}
