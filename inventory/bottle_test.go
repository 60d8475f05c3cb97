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

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestRegistry(t *testing.T) *inventory.Registry {
	t.Helper()
	return inventory.NewRegistry(memory.New(ledger.NewQuantity(1000)))
}

func registerBottle(t *testing.T, r *inventory.Registry, id, serial string) inventory.Bottle {
	t.Helper()
	b, err := r.Register(context.Background(), inventory.Bottle{
		ID:             inventory.BottleID(id),
		SerialNumber:   serial,
		CapacityLiters: ledger.NewQuantity(10),
	})
	require.NoError(t, err)
	return b
}

// dispatchBottle walks a fresh bottle to with_customer.
func dispatchBottle(t *testing.T, r *inventory.Registry, id inventory.BottleID, customerID string) {
	t.Helper()
	ctx := context.Background()
	_, err := r.MarkFilled(ctx, id)
	require.NoError(t, err)
	_, err = r.Dispatch(ctx, id, customerID)
	require.NoError(t, err)
}

// =============================================================================
// REGISTRATION TESTS
// =============================================================================

func TestRegistry_Register_StartsEmpty(t *testing.T) {
	// GIVEN: A new bottle submitted with a filled status
	// WHEN: Registering
	// THEN: Status is forced to empty with no attribution

	r := newTestRegistry(t)
	b, err := r.Register(context.Background(), inventory.Bottle{
		ID:             "b1",
		SerialNumber:   "SN-001",
		CapacityLiters: ledger.NewQuantity(10),
		Status:         inventory.StatusFilled,
		CustomerID:     "c1",
	})
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusEmpty, b.Status)
	assert.Empty(t, b.CustomerID)
}

func TestRegistry_Register_DuplicateSerial_Rejected(t *testing.T) {
	r := newTestRegistry(t)
	registerBottle(t, r, "b1", "SN-001")

	_, err := r.Register(context.Background(), inventory.Bottle{
		ID:             "b2",
		SerialNumber:   "SN-001",
		CapacityLiters: ledger.NewQuantity(10),
	})
	assert.ErrorIs(t, err, inventory.ErrDuplicateSerial)
}

func TestRegistry_Register_NonPositiveCapacity_Rejected(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Register(context.Background(), inventory.Bottle{
		ID:           "b1",
		SerialNumber: "SN-001",
	})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

// =============================================================================
// STATE MACHINE TESTS
// =============================================================================

func TestRegistry_Lifecycle_EmptyFilledWithCustomerEmpty(t *testing.T) {
	// GIVEN: A registered empty bottle
	// WHEN: Filling, dispatching, then returning it
	// THEN: Each step lands on the expected status, and the return
	//       clears the attribution

	r := newTestRegistry(t)
	ctx := context.Background()
	registerBottle(t, r, "b1", "SN-001")

	b, err := r.MarkFilled(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusFilled, b.Status)

	b, err = r.Dispatch(ctx, "b1", "c1")
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusWithCustomer, b.Status)
	assert.Equal(t, "c1", b.CustomerID)

	b, err = r.Return(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusEmpty, b.Status)
	assert.Empty(t, b.CustomerID)
}

func TestRegistry_InvalidTransitions_Rejected(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	registerBottle(t, r, "b1", "SN-001")

	// empty bottles cannot be dispatched or returned
	_, err := r.Dispatch(ctx, "b1", "c1")
	assert.ErrorIs(t, err, inventory.ErrInvalidTransition)
	_, err = r.Return(ctx, "b1")
	assert.ErrorIs(t, err, inventory.ErrInvalidTransition)

	// filled bottles cannot be filled again
	_, err = r.MarkFilled(ctx, "b1")
	require.NoError(t, err)
	_, err = r.MarkFilled(ctx, "b1")
	assert.ErrorIs(t, err, inventory.ErrInvalidTransition)

	var trErr *inventory.InvalidTransitionError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, inventory.StatusFilled, trErr.From)
}

func TestRegistry_UnknownBottle_NotFound(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.MarkFilled(context.Background(), "ghost")
	assert.ErrorIs(t, err, inventory.ErrBottleNotFound)
}

// =============================================================================
// BULK RETURN TESTS
// =============================================================================

func TestRegistry_BulkReturn_AllOrNothing(t *testing.T) {
	// GIVEN: c1 holds b1, c2 holds b2
	// WHEN: c1 tries to return both
	// THEN: Rejected on ownership, and b1 stays with c1

	r := newTestRegistry(t)
	ctx := context.Background()
	registerBottle(t, r, "b1", "SN-001")
	registerBottle(t, r, "b2", "SN-002")
	dispatchBottle(t, r, "b1", "c1")
	dispatchBottle(t, r, "b2", "c2")

	_, err := r.BulkReturn(ctx, "c1", []inventory.BottleID{"b1", "b2"})
	require.Error(t, err)
	assert.ErrorIs(t, err, inventory.ErrNotOwnedByCustomer)

	var ownErr *inventory.OwnershipError
	require.ErrorAs(t, err, &ownErr)
	assert.Equal(t, inventory.BottleID("b2"), ownErr.BottleID)

	held, err := r.HeldBy(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, held, 1)
	assert.Equal(t, inventory.StatusWithCustomer, held[0].Status)
}

func TestRegistry_BulkReturn_HappyPath(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	registerBottle(t, r, "b1", "SN-001")
	registerBottle(t, r, "b2", "SN-002")
	dispatchBottle(t, r, "b1", "c1")
	dispatchBottle(t, r, "b2", "c1")

	returned, err := r.BulkReturn(ctx, "c1", []inventory.BottleID{"b1", "b2"})
	require.NoError(t, err)
	assert.Len(t, returned, 2)

	held, err := r.HeldBy(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, held)
}
