package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/depot-engine/inventory"
	"github.com/warp/depot-engine/ledger"
	"github.com/warp/depot-engine/store/memory"
)

func newTestController(t *testing.T, level, capacity float64) *inventory.Controller {
	t.Helper()
	c := inventory.NewController(memory.New(ledger.NewQuantity(capacity)))
	if level > 0 {
		_, err := c.ApplyRefill(context.Background(), ledger.NewQuantity(level))
		require.NoError(t, err)
	}
	return c
}

func TestTank_Refill_WithinHeadroom(t *testing.T) {
	// GIVEN: Tank at 200 of 1000 liters
	// WHEN: Refilling 500 liters
	// THEN: Level rises to 700

	c := newTestController(t, 200, 1000)
	tank, err := c.ApplyRefill(context.Background(), ledger.NewQuantity(500))
	require.NoError(t, err)
	assert.True(t, tank.CurrentLevel.Equal(ledger.NewQuantity(700)))
}

func TestTank_Refill_ExceedingHeadroom_Rejected(t *testing.T) {
	// GIVEN: Tank at 200 of 1000 liters (headroom 800)
	// WHEN: Refilling 900 liters
	// THEN: Rejected with the max acceptable amount, level unchanged

	c := newTestController(t, 200, 1000)
	ctx := context.Background()

	_, err := c.ApplyRefill(ctx, ledger.NewQuantity(900))
	require.Error(t, err)
	assert.ErrorIs(t, err, inventory.ErrExceedsCapacity)

	var capErr *inventory.CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.True(t, capErr.MaxRefill.Equal(ledger.NewQuantity(800)))

	tank, err := c.State(ctx)
	require.NoError(t, err)
	assert.True(t, tank.CurrentLevel.Equal(ledger.NewQuantity(200)), "rejected refill must not move the level")
}

func TestTank_Refill_ExactHeadroom_Accepted(t *testing.T) {
	c := newTestController(t, 200, 1000)
	tank, err := c.ApplyRefill(context.Background(), ledger.NewQuantity(800))
	require.NoError(t, err)
	assert.True(t, tank.CurrentLevel.Equal(tank.Capacity))
	assert.True(t, tank.Headroom().IsZero())
}

func TestTank_Consume_WithinStock(t *testing.T) {
	c := newTestController(t, 500, 1000)
	tank, err := c.Consume(context.Background(), ledger.NewQuantity(120))
	require.NoError(t, err)
	assert.True(t, tank.CurrentLevel.Equal(ledger.NewQuantity(380)))
}

func TestTank_Consume_BeyondStock_Rejected(t *testing.T) {
	// GIVEN: Tank holds 50 liters
	// WHEN: Drawing 60 liters
	// THEN: Rejected with available stock, level unchanged

	c := newTestController(t, 50, 1000)
	ctx := context.Background()

	_, err := c.Consume(ctx, ledger.NewQuantity(60))
	require.Error(t, err)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)

	var stockErr *inventory.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.True(t, stockErr.Available.Equal(ledger.NewQuantity(50)))

	tank, err := c.State(ctx)
	require.NoError(t, err)
	assert.True(t, tank.CurrentLevel.Equal(ledger.NewQuantity(50)))
}

func TestTank_NonPositiveAmounts_Rejected(t *testing.T) {
	c := newTestController(t, 100, 1000)
	ctx := context.Background()

	_, err := c.ApplyRefill(ctx, ledger.ZeroQuantity())
	assert.ErrorIs(t, err, ledger.ErrValidation)
	_, err = c.Consume(ctx, ledger.ZeroQuantity())
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestTank_FloatTolerance(t *testing.T) {
	// GIVEN: A level built from float arithmetic that lands a hair above
	//        the requested draw
	// WHEN: Drawing the nominal amount
	// THEN: The epsilon comparison accepts it

	c := newTestController(t, 0, 1000)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := c.ApplyRefill(ctx, ledger.NewQuantity(0.1))
		require.NoError(t, err)
	}
	_, err := c.Consume(ctx, ledger.NewQuantity(1.0))
	assert.NoError(t, err)
}
