/*
tank.go - Bulk tank level control

PURPOSE:
  The Controller owns the single bulk gas reservoir. It validates refills
  against remaining headroom and draws gas down when bottles are filled.

INVARIANT:
  0 <= CurrentLevel <= Capacity at all times. A refill exceeding the
  headroom is rejected with ErrExceedsCapacity; a draw exceeding the level
  is rejected with ErrInsufficientStock. Either way the level is unchanged.

NUMERIC POLICY:
  Levels are decimals; comparisons go through ledger.Quantity, which
  applies a 1e-6 liter tolerance so client-side float rounding does not
  produce false rejections.

SEE ALSO:
  - bottle.go: Bottles filled from this tank
  - engine: RefillTank/FillBottles compose this controller with the ledger
*/
package inventory

import (
	"context"

	"github.com/warp/depot-engine/ledger"
)

// =============================================================================
// TANK
// =============================================================================

// Tank is the bulk reservoir. Capacity is fixed; CurrentLevel changes only
// through the Controller.
type Tank struct {
	CurrentLevel ledger.Quantity
	Capacity     ledger.Quantity
}

// Headroom returns how many liters still fit.
func (t Tank) Headroom() ledger.Quantity {
	return t.Capacity.Sub(t.CurrentLevel)
}

// =============================================================================
// CONTROLLER
// =============================================================================

type Controller struct {
	store TankStore
}

func NewController(store TankStore) *Controller {
	return &Controller{store: store}
}

// State returns the current tank snapshot.
func (c *Controller) State(ctx context.Context) (Tank, error) {
	return c.store.GetTank(ctx)
}

// MaxRefill returns the largest refill the tank currently accepts.
func (c *Controller) MaxRefill(ctx context.Context) (ledger.Quantity, error) {
	t, err := c.store.GetTank(ctx)
	if err != nil {
		return ledger.Quantity{}, err
	}
	return t.Headroom(), nil
}

// CanRefill validates a refill of the given size without applying it.
func (c *Controller) CanRefill(ctx context.Context, liters ledger.Quantity) error {
	if !liters.IsPositive() {
		return ledger.Invalidf("liters", "must be positive, got %s", liters)
	}
	t, err := c.store.GetTank(ctx)
	if err != nil {
		return err
	}
	if liters.GreaterThan(t.Headroom()) {
		return &CapacityError{Requested: liters, MaxRefill: t.Headroom(), Capacity: t.Capacity}
	}
	return nil
}

// ApplyRefill raises the level by liters. Requires 0 < liters <= headroom.
func (c *Controller) ApplyRefill(ctx context.Context, liters ledger.Quantity) (Tank, error) {
	if !liters.IsPositive() {
		return Tank{}, ledger.Invalidf("liters", "must be positive, got %s", liters)
	}
	t, err := c.store.GetTank(ctx)
	if err != nil {
		return Tank{}, err
	}
	if liters.GreaterThan(t.Headroom()) {
		return Tank{}, &CapacityError{Requested: liters, MaxRefill: t.Headroom(), Capacity: t.Capacity}
	}
	t.CurrentLevel = t.CurrentLevel.Add(liters)
	if err := c.store.SaveTank(ctx, t); err != nil {
		return Tank{}, err
	}
	return t, nil
}

// Consume lowers the level by liters, used when filling bottles.
// Requires liters <= CurrentLevel.
func (c *Controller) Consume(ctx context.Context, liters ledger.Quantity) (Tank, error) {
	if !liters.IsPositive() {
		return Tank{}, ledger.Invalidf("liters", "must be positive, got %s", liters)
	}
	t, err := c.store.GetTank(ctx)
	if err != nil {
		return Tank{}, err
	}
	if liters.GreaterThan(t.CurrentLevel) {
		return Tank{}, &StockError{Requested: liters, Available: t.CurrentLevel}
	}
	t.CurrentLevel = t.CurrentLevel.Sub(liters)
	if err := c.store.SaveTank(ctx, t); err != nil {
		return Tank{}, err
	}
	return t, nil
}
