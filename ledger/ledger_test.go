package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/depot-engine/ledger"
	store "github.com/warp/depot-engine/ledger/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestLedger() *ledger.CreditLedger {
	return ledger.New(store.NewMemory())
}

func customerEntry(holderID string, amount float64, key string) ledger.Entry {
	return ledger.Entry{
		ID:             ledger.EntryID("e-" + key),
		HolderKind:     ledger.HolderCustomer,
		HolderID:       ledger.HolderID(holderID),
		Amount:         ledger.NewMoney(amount),
		IdempotencyKey: key,
		RecordedAt:     time.Now().UTC(),
	}
}

// =============================================================================
// BALANCE DERIVATION TESTS
// =============================================================================

func TestLedger_BalanceIsReplayed(t *testing.T) {
	// GIVEN: A charge of 300 and a settlement of 100 for one customer
	// WHEN: Reading the balance
	// THEN: Balance is 200, derived from the two entries

	l := newTestLedger()
	ctx := context.Background()

	require.NoError(t, l.Charge(ctx, customerEntry("c1", 300, "k1")))
	require.NoError(t, l.Settle(ctx, customerEntry("c1", 100, "k2")))

	balance, err := l.Balance(ctx, ledger.HolderCustomer, "c1")
	require.NoError(t, err)
	assert.True(t, balance.Equal(ledger.NewMoney(200)), "balance should be 200, got %s", balance)
}

func TestLedger_PositionTotals(t *testing.T) {
	// GIVEN: Charge 500, settle 200, reverse 100
	// WHEN: Replaying the position
	// THEN: Totals per entry type and a 200 balance

	l := newTestLedger()
	ctx := context.Background()

	require.NoError(t, l.Charge(ctx, customerEntry("c1", 500, "k1")))
	require.NoError(t, l.Settle(ctx, customerEntry("c1", 200, "k2")))
	require.NoError(t, l.Reverse(ctx, customerEntry("c1", 100, "k3")))

	pos, err := l.Position(ctx, ledger.HolderCustomer, "c1")
	require.NoError(t, err)
	assert.True(t, pos.TotalCharged.Equal(ledger.NewMoney(500)))
	assert.True(t, pos.TotalSettled.Equal(ledger.NewMoney(200)))
	assert.True(t, pos.TotalReversed.Equal(ledger.NewMoney(100)))
	assert.True(t, pos.Balance.Equal(ledger.NewMoney(200)))
}

func TestLedger_HoldersAreIsolated(t *testing.T) {
	// GIVEN: Charges against a customer and a supplier with the same id
	// WHEN: Reading each balance
	// THEN: The (kind, id) pairs do not bleed into each other

	l := newTestLedger()
	ctx := context.Background()

	require.NoError(t, l.Charge(ctx, customerEntry("x", 300, "k1")))
	supplier := customerEntry("x", 700, "k2")
	supplier.HolderKind = ledger.HolderSupplier
	require.NoError(t, l.Charge(ctx, supplier))

	cb, err := l.Balance(ctx, ledger.HolderCustomer, "x")
	require.NoError(t, err)
	sb, err := l.Balance(ctx, ledger.HolderSupplier, "x")
	require.NoError(t, err)

	assert.True(t, cb.Equal(ledger.NewMoney(300)))
	assert.True(t, sb.Equal(ledger.NewMoney(700)))
}

// =============================================================================
// NON-NEGATIVE INVARIANT TESTS
// =============================================================================

func TestLedger_Overpayment_Rejected(t *testing.T) {
	// GIVEN: Customer owes 5000
	// WHEN: Settling 7000
	// THEN: Rejected with OverpaymentError carrying both amounts,
	//       and the balance is untouched

	l := newTestLedger()
	ctx := context.Background()

	require.NoError(t, l.Charge(ctx, customerEntry("c1", 5000, "k1")))

	err := l.Settle(ctx, customerEntry("c1", 7000, "k2"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrOverpayment)

	var opErr *ledger.OverpaymentError
	require.ErrorAs(t, err, &opErr)
	assert.True(t, opErr.Balance.Equal(ledger.NewMoney(5000)))
	assert.True(t, opErr.Requested.Equal(ledger.NewMoney(7000)))

	balance, err := l.Balance(ctx, ledger.HolderCustomer, "c1")
	require.NoError(t, err)
	assert.True(t, balance.Equal(ledger.NewMoney(5000)), "rejected settlement must not move the balance")
}

func TestLedger_ExactSettlement_ZeroesBalance(t *testing.T) {
	// GIVEN: Customer owes 5000
	// WHEN: Settling exactly 5000
	// THEN: Balance reaches zero

	l := newTestLedger()
	ctx := context.Background()

	require.NoError(t, l.Charge(ctx, customerEntry("c1", 5000, "k1")))
	require.NoError(t, l.Settle(ctx, customerEntry("c1", 5000, "k2")))

	balance, err := l.Balance(ctx, ledger.HolderCustomer, "c1")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestLedger_ReversalExceedingBalance_Rejected(t *testing.T) {
	// GIVEN: Charge 300 already settled down to 100
	// WHEN: Reversing 300
	// THEN: Rejected, a reversal may not drive the balance negative

	l := newTestLedger()
	ctx := context.Background()

	require.NoError(t, l.Charge(ctx, customerEntry("c1", 300, "k1")))
	require.NoError(t, l.Settle(ctx, customerEntry("c1", 200, "k2")))

	err := l.Reverse(ctx, customerEntry("c1", 300, "k3"))
	assert.ErrorIs(t, err, ledger.ErrReversalExceedsCharge)

	var revErr *ledger.ReversalError
	require.ErrorAs(t, err, &revErr)
	assert.True(t, revErr.Balance.Equal(ledger.NewMoney(100)))
}

// =============================================================================
// VALIDATION AND IDEMPOTENCY TESTS
// =============================================================================

func TestLedger_NonPositiveAmount_Rejected(t *testing.T) {
	// GIVEN: A zero-amount charge
	// WHEN: Charging
	// THEN: Validation error

	l := newTestLedger()
	err := l.Charge(context.Background(), customerEntry("c1", 0, "k1"))
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestLedger_UnknownHolderKind_Rejected(t *testing.T) {
	l := newTestLedger()
	e := customerEntry("c1", 100, "k1")
	e.HolderKind = "vendor"
	err := l.Charge(context.Background(), e)
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestLedger_DuplicateIdempotencyKey_Rejected(t *testing.T) {
	// GIVEN: A charge recorded under key "retry-1"
	// WHEN: Appending another entry with the same key
	// THEN: Rejected, and the balance reflects only the first write

	l := newTestLedger()
	ctx := context.Background()

	require.NoError(t, l.Charge(ctx, customerEntry("c1", 300, "retry-1")))

	err := l.Charge(ctx, customerEntry("c1", 300, "retry-1"))
	assert.ErrorIs(t, err, ledger.ErrDuplicateIdempotencyKey)

	balance, err := l.Balance(ctx, ledger.HolderCustomer, "c1")
	require.NoError(t, err)
	assert.True(t, balance.Equal(ledger.NewMoney(300)))
}

// =============================================================================
// TRANSACTIONAL STORE TESTS
// =============================================================================

func TestTxMemory_RollbackDiscardsWrites(t *testing.T) {
	// GIVEN: A transaction that charges then fails
	// WHEN: WithTx returns the error
	// THEN: The charge is rolled back

	tm := store.NewTxMemory()
	ctx := context.Background()
	boom := errors.New("boom")

	err := tm.WithTx(ctx, func(s ledger.Store) error {
		l := ledger.New(s)
		if err := l.Charge(ctx, customerEntry("c1", 300, "k1")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	balance, err := ledger.New(tm).Balance(ctx, ledger.HolderCustomer, "c1")
	require.NoError(t, err)
	assert.True(t, balance.IsZero(), "rolled back charge must not be visible")
}

func TestTxMemory_CommitKeepsWrites(t *testing.T) {
	tm := store.NewTxMemory()
	ctx := context.Background()

	err := tm.WithTx(ctx, func(s ledger.Store) error {
		return ledger.New(s).Charge(ctx, customerEntry("c1", 300, "k1"))
	})
	require.NoError(t, err)

	balance, err := ledger.New(tm).Balance(ctx, ledger.HolderCustomer, "c1")
	require.NoError(t, err)
	assert.True(t, balance.Equal(ledger.NewMoney(300)))
}
