package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/depot-engine/engine"
	"github.com/warp/depot-engine/inventory"
	"github.com/warp/depot-engine/ledger"
)

func findingCodes(findings []engine.Finding) []string {
	codes := make([]string, len(findings))
	for i, f := range findings {
		codes[i] = f.Code
	}
	return codes
}

func TestAudit_CleanStateHasNoFindings(t *testing.T) {
	// GIVEN: A depot state built only through engine operations
	// WHEN: Auditing
	// THEN: No findings

	eng, store := newTestEngine(t, 1000)
	seedCustomer(t, store, "c1")
	seedSupplier(t, store, "s1")
	seedBottle(t, store, "b1", "SN-001", 10, inventory.StatusFilled, "")
	seedBottle(t, store, "b2", "SN-002", 10, inventory.StatusFilled, "")
	ctx := context.Background()

	_, err := eng.RefillTank(ctx, engine.RefillInput{
		SupplierID:    "s1",
		Liters:        ledger.NewQuantity(300),
		PricePerLiter: ledger.NewMoney(40),
		AmountPaid:    ledger.NewMoney(5000),
		PaymentStatus: engine.RefillPaidPartial,
		Method:        ledger.PayCash,
	})
	require.NoError(t, err)
	twoBottleSale(t, eng, 700)

	findings, err := eng.Audit(ctx)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestAudit_DetectsStaleAttribution(t *testing.T) {
	// GIVEN: An empty bottle still carrying a customer id (out-of-band write)
	// WHEN: Auditing
	// THEN: stale_attribution is reported

	eng, store := newTestEngine(t, 1000)
	seedCustomer(t, store, "c1")
	seedBottle(t, store, "b1", "SN-001", 10, inventory.StatusEmpty, "c1")

	findings, err := eng.Audit(context.Background())
	require.NoError(t, err)
	assert.Contains(t, findingCodes(findings), "stale_attribution")
}

func TestAudit_DetectsMissingAndUnknownAttribution(t *testing.T) {
	eng, store := newTestEngine(t, 1000)
	seedBottle(t, store, "b1", "SN-001", 10, inventory.StatusWithCustomer, "")
	seedBottle(t, store, "b2", "SN-002", 10, inventory.StatusWithCustomer, "ghost")

	findings, err := eng.Audit(context.Background())
	require.NoError(t, err)
	codes := findingCodes(findings)
	assert.Contains(t, codes, "missing_attribution")
	assert.Contains(t, codes, "unknown_customer")
}

func TestAudit_DetectsLedgerDrift(t *testing.T) {
	// GIVEN: A supplier charge with no matching refill record
	// WHEN: Auditing
	// THEN: ledger_drift is reported

	eng, store := newTestEngine(t, 1000)
	seedSupplier(t, store, "s1")

	require.NoError(t, store.AppendEntry(context.Background(), ledger.Entry{
		ID:         "ent-drift",
		HolderKind: ledger.HolderSupplier,
		HolderID:   "s1",
		Type:       ledger.EntryCharge,
		Amount:     ledger.NewMoney(500),
		RecordedAt: time.Now().UTC(),
	}))

	findings, err := eng.Audit(context.Background())
	require.NoError(t, err)
	assert.Contains(t, findingCodes(findings), "ledger_drift")
}

func TestAudit_DetectsOverfullTank(t *testing.T) {
	eng, store := newTestEngine(t, 1000)
	ctx := context.Background()

	tank, err := store.GetTank(ctx)
	require.NoError(t, err)
	tank.CurrentLevel = ledger.NewQuantity(1200)
	require.NoError(t, store.SaveTank(ctx, tank))

	findings, err := eng.Audit(ctx)
	require.NoError(t, err)
	assert.Contains(t, findingCodes(findings), "tank_overfull")
}
