package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/depot-engine/engine"
	"github.com/warp/depot-engine/inventory"
	"github.com/warp/depot-engine/ledger"
	"github.com/warp/depot-engine/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:", ledger.NewQuantity(1000))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func chargeEntry(holderID string, amount float64, key string) ledger.Entry {
	return ledger.Entry{
		ID:             ledger.EntryID("e-" + key),
		HolderKind:     ledger.HolderCustomer,
		HolderID:       ledger.HolderID(holderID),
		Type:           ledger.EntryCharge,
		Amount:         ledger.NewMoney(amount),
		Method:         ledger.PayCash,
		IdempotencyKey: key,
		RecordedAt:     time.Now().UTC(),
	}
}

// =============================================================================
// LEDGER ENTRY TESTS
// =============================================================================

func TestSQLite_Entries_RoundTripInOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendEntry(ctx, chargeEntry("c1", 300, "k1")))
	require.NoError(t, store.AppendEntry(ctx, chargeEntry("c1", 200, "k2")))

	entries, err := store.Entries(ctx, ledger.HolderCustomer, "c1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "k1", entries[0].IdempotencyKey)
	assert.Equal(t, "k2", entries[1].IdempotencyKey)
	assert.True(t, entries[0].Amount.Equal(ledger.NewMoney(300)))
	assert.Equal(t, ledger.EntryCharge, entries[0].Type)
}

func TestSQLite_DuplicateIdempotencyKey_Rejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendEntry(ctx, chargeEntry("c1", 300, "retry-1")))

	err := store.AppendEntry(ctx, chargeEntry("c1", 300, "retry-1"))
	assert.ErrorIs(t, err, ledger.ErrDuplicateIdempotencyKey)

	exists, err := store.EntryExists(ctx, "retry-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSQLite_EntriesWithoutKey_Coexist(t *testing.T) {
	// Multiple NULL idempotency keys must not collide on the unique index.
	store := newTestStore(t)
	ctx := context.Background()

	e1 := chargeEntry("c1", 100, "")
	e1.ID = "e-a"
	e2 := chargeEntry("c1", 100, "")
	e2.ID = "e-b"
	require.NoError(t, store.AppendEntry(ctx, e1))
	require.NoError(t, store.AppendEntry(ctx, e2))

	entries, err := store.Entries(ctx, ledger.HolderCustomer, "c1")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

// =============================================================================
// BOTTLE AND TANK TESTS
// =============================================================================

func TestSQLite_Bottles_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	b := inventory.Bottle{
		ID:             "b1",
		SerialNumber:   "SN-001",
		CapacityLiters: ledger.NewQuantity(10),
		Status:         inventory.StatusEmpty,
	}
	require.NoError(t, store.CreateBottle(ctx, b))

	got, err := store.GetBottle(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, b.SerialNumber, got.SerialNumber)
	assert.True(t, got.CapacityLiters.Equal(b.CapacityLiters))

	got.Status = inventory.StatusWithCustomer
	got.CustomerID = "c1"
	require.NoError(t, store.SaveBottle(ctx, got))

	held, err := store.ListBottlesByCustomer(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, held, 1)
	assert.Equal(t, inventory.BottleID("b1"), held[0].ID)
}

func TestSQLite_DuplicateSerial_Rejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateBottle(ctx, inventory.Bottle{
		ID: "b1", SerialNumber: "SN-001", CapacityLiters: ledger.NewQuantity(10), Status: inventory.StatusEmpty,
	}))
	err := store.CreateBottle(ctx, inventory.Bottle{
		ID: "b2", SerialNumber: "SN-001", CapacityLiters: ledger.NewQuantity(10), Status: inventory.StatusEmpty,
	})
	assert.ErrorIs(t, err, inventory.ErrDuplicateSerial)
}

func TestSQLite_UnknownBottle_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetBottle(context.Background(), "ghost")
	assert.ErrorIs(t, err, inventory.ErrBottleNotFound)
}

func TestSQLite_Tank_SeededAndSaved(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tank, err := store.GetTank(ctx)
	require.NoError(t, err)
	assert.True(t, tank.CurrentLevel.IsZero())
	assert.True(t, tank.Capacity.Equal(ledger.NewQuantity(1000)))

	tank.CurrentLevel = ledger.NewQuantity(250.5)
	require.NoError(t, store.SaveTank(ctx, tank))

	tank, err = store.GetTank(ctx)
	require.NoError(t, err)
	assert.True(t, tank.CurrentLevel.Equal(ledger.NewQuantity(250.5)))
}

// =============================================================================
// ENTITY TESTS
// =============================================================================

func TestSQLite_Customers_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	c := engine.Customer{ID: "c1", Name: "Ada", Phone: "555", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.CreateCustomer(ctx, c))

	err := store.CreateCustomer(ctx, c)
	assert.ErrorIs(t, err, engine.ErrDuplicateID)

	got, err := store.GetCustomer(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)

	got.LoyaltyPoints = 12
	require.NoError(t, store.SaveCustomer(ctx, got))
	got, err = store.GetCustomer(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(12), got.LoyaltyPoints)

	_, err = store.GetCustomer(ctx, "ghost")
	assert.ErrorIs(t, err, engine.ErrCustomerNotFound)
}

func TestSQLite_Suppliers_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	s := engine.Supplier{
		ID:            "s1",
		Name:          "AirCo",
		TotalSupplied: ledger.NewQuantity(500),
		TotalPaid:     ledger.NewMoney(20000),
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, store.CreateSupplier(ctx, s))

	got, err := store.GetSupplier(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, got.TotalSupplied.Equal(ledger.NewQuantity(500)))
	assert.True(t, got.TotalPaid.Equal(ledger.NewMoney(20000)))
}

func TestSQLite_Sales_RoundTripWithItems(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	sale := engine.Sale{
		ID:         "sale-1",
		CustomerID: "c1",
		Items: []engine.SaleItem{{
			ProductID: "oxygen-bottle",
			BottleIDs: []inventory.BottleID{"b1", "b2"},
			Quantity:  2,
			UnitPrice: ledger.NewMoney(500),
			LineTotal: ledger.NewMoney(1000),
		}},
		Subtotal:      ledger.NewMoney(1000),
		Tax:           ledger.ZeroMoney(),
		Discount:      ledger.ZeroMoney(),
		Total:         ledger.NewMoney(1000),
		AmountPaid:    ledger.NewMoney(700),
		CreditCharged: ledger.NewMoney(300),
		PointsEarned:  10,
		PaymentMethod: ledger.PayCash,
		Status:        engine.SaleCompleted,
		CreatedAt:     now,
	}
	require.NoError(t, store.CreateSale(ctx, sale))

	got, err := store.GetSale(ctx, "sale-1")
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, []inventory.BottleID{"b1", "b2"}, got.Items[0].BottleIDs)
	assert.True(t, got.CreditCharged.Equal(ledger.NewMoney(300)))
	assert.Nil(t, got.CancelledAt)

	cancelledAt := now.Add(time.Hour)
	got.Status = engine.SaleCancelled
	got.CancelledAt = &cancelledAt
	require.NoError(t, store.SaveSale(ctx, got))

	got, err = store.GetSale(ctx, "sale-1")
	require.NoError(t, err)
	assert.Equal(t, engine.SaleCancelled, got.Status)
	require.NotNil(t, got.CancelledAt)
	assert.True(t, got.CancelledAt.Equal(cancelledAt))
}

func TestSQLite_Refills_FilteredBySupplier(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, supplier := range []string{"s1", "s2", "s1"} {
		require.NoError(t, store.RecordRefill(ctx, engine.Refill{
			ID:            "refill-" + string(rune('a'+i)),
			SupplierID:    supplier,
			Liters:        ledger.NewQuantity(100),
			PricePerLiter: ledger.NewMoney(40),
			TotalAmount:   ledger.NewMoney(4000),
			AmountPaid:    ledger.NewMoney(4000),
			PaymentStatus: engine.RefillPaidFull,
			RecordedAt:    time.Now().UTC(),
		}))
	}

	all, err := store.ListRefills(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	s1, err := store.ListRefills(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, s1, 2)
}

// =============================================================================
// TRANSACTION TESTS
// =============================================================================

func TestSQLite_WithTx_RollbackOnError(t *testing.T) {
	// GIVEN: A transaction writing an entry and a bottle, then failing
	// WHEN: WithTx returns the error
	// THEN: Neither write is visible

	store := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(s engine.Store) error {
		if err := s.AppendEntry(ctx, chargeEntry("c1", 300, "k1")); err != nil {
			return err
		}
		if err := s.CreateBottle(ctx, inventory.Bottle{
			ID: "b1", SerialNumber: "SN-001", CapacityLiters: ledger.NewQuantity(10), Status: inventory.StatusEmpty,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	entries, err := store.Entries(ctx, ledger.HolderCustomer, "c1")
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = store.GetBottle(ctx, "b1")
	assert.ErrorIs(t, err, inventory.ErrBottleNotFound)
}

func TestSQLite_WithTx_CommitKeepsWrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(s engine.Store) error {
		return s.AppendEntry(ctx, chargeEntry("c1", 300, "k1"))
	})
	require.NoError(t, err)

	entries, err := store.Entries(ctx, ledger.HolderCustomer, "c1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSQLite_EngineEndToEnd(t *testing.T) {
	// The engine drives the SQLite store through a full sale + cancel
	// cycle, exercising the same path the server uses.

	store := newTestStore(t)
	ctx := context.Background()
	eng := engine.New(store, nil)

	require.NoError(t, store.CreateCustomer(ctx, engine.Customer{ID: "c1", Name: "Ada", CreatedAt: time.Now().UTC()}))
	require.NoError(t, store.CreateBottle(ctx, inventory.Bottle{
		ID: "b1", SerialNumber: "SN-001", CapacityLiters: ledger.NewQuantity(10), Status: inventory.StatusFilled,
	}))

	sale, err := eng.RecordSale(ctx, engine.SaleInput{
		CustomerID: "c1",
		Items: []engine.SaleItemInput{{
			ProductID: "oxygen-bottle",
			BottleIDs: []inventory.BottleID{"b1"},
			Quantity:  1,
			UnitPrice: ledger.NewMoney(500),
		}},
		PaymentMethod: ledger.PayCash,
		AmountPaid:    ledger.NewMoney(200),
	})
	require.NoError(t, err)
	assert.True(t, sale.CreditCharged.Equal(ledger.NewMoney(300)))

	_, err = eng.CancelSale(ctx, sale.ID)
	require.NoError(t, err)

	b, err := store.GetBottle(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusEmpty, b.Status)

	balance, err := ledger.New(store).Balance(ctx, ledger.HolderCustomer, "c1")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}
