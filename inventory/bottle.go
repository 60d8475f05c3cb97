/*
Package inventory owns the physical stock of the depot: the bulk tank and
the individually numbered bottles.

PURPOSE (bottle.go):
  The Registry enforces the bottle lifecycle state machine:

    empty --fill--> filled --dispatch--> with_customer --return--> empty

  No other edges exist. Attempting fill on a filled or dispatched bottle,
  or dispatch on an empty one, is rejected with ErrInvalidTransition and
  leaves the bottle unchanged.

ATTRIBUTION:
  A bottle carries CustomerID iff its status is with_customer. The reverse
  lookup (bottles held by a customer) is a store query, never a maintained
  back-pointer list on the customer.

BULK RETURNS:
  BulkReturn validates every bottle before writing any, so a mixed batch
  (one bottle owned by somebody else) changes nothing.

SEE ALSO:
  - tank.go: Bulk tank level control
  - errors.go: Error types used here
*/
package inventory

import (
	"context"

	"github.com/warp/depot-engine/ledger"
)

// =============================================================================
// BOTTLE
// =============================================================================

type BottleID string
type BottleStatus string

const (
	StatusEmpty        BottleStatus = "empty"
	StatusFilled       BottleStatus = "filled"
	StatusWithCustomer BottleStatus = "with_customer"
)

func (s BottleStatus) Valid() bool {
	switch s {
	case StatusEmpty, StatusFilled, StatusWithCustomer:
		return true
	}
	return false
}

// Bottle is an individually tracked cylinder. CapacityLiters is fixed at
// creation; Status and CustomerID change only through the Registry.
type Bottle struct {
	ID             BottleID
	SerialNumber   string
	CapacityLiters ledger.Quantity
	Status         BottleStatus
	CustomerID     string // set iff Status == StatusWithCustomer
}

// =============================================================================
// REGISTRY - Bottle state machine over a BottleStore
// =============================================================================

type Registry struct {
	store BottleStore
}

func NewRegistry(store BottleStore) *Registry {
	return &Registry{store: store}
}

// Register creates a new bottle in empty status.
func (r *Registry) Register(ctx context.Context, b Bottle) (Bottle, error) {
	if b.ID == "" {
		return Bottle{}, ledger.Invalidf("bottle_id", "must not be empty")
	}
	if b.SerialNumber == "" {
		return Bottle{}, ledger.Invalidf("serial_number", "must not be empty")
	}
	if !b.CapacityLiters.IsPositive() {
		return Bottle{}, ledger.Invalidf("capacity_liters", "must be positive, got %s", b.CapacityLiters)
	}
	b.Status = StatusEmpty
	b.CustomerID = ""
	if err := r.store.CreateBottle(ctx, b); err != nil {
		return Bottle{}, err
	}
	return b, nil
}

// MarkFilled transitions empty -> filled.
func (r *Registry) MarkFilled(ctx context.Context, id BottleID) (Bottle, error) {
	b, err := r.store.GetBottle(ctx, id)
	if err != nil {
		return Bottle{}, err
	}
	if b.Status != StatusEmpty {
		return Bottle{}, &InvalidTransitionError{BottleID: id, From: b.Status, Op: "fill"}
	}
	b.Status = StatusFilled
	if err := r.store.SaveBottle(ctx, b); err != nil {
		return Bottle{}, err
	}
	return b, nil
}

// Dispatch transitions filled -> with_customer and sets attribution.
func (r *Registry) Dispatch(ctx context.Context, id BottleID, customerID string) (Bottle, error) {
	if customerID == "" {
		return Bottle{}, ledger.Invalidf("customer_id", "must not be empty")
	}
	b, err := r.store.GetBottle(ctx, id)
	if err != nil {
		return Bottle{}, err
	}
	if b.Status != StatusFilled {
		return Bottle{}, &InvalidTransitionError{BottleID: id, From: b.Status, Op: "dispatch"}
	}
	b.Status = StatusWithCustomer
	b.CustomerID = customerID
	if err := r.store.SaveBottle(ctx, b); err != nil {
		return Bottle{}, err
	}
	return b, nil
}

// Return transitions with_customer -> empty and clears attribution.
func (r *Registry) Return(ctx context.Context, id BottleID) (Bottle, error) {
	b, err := r.store.GetBottle(ctx, id)
	if err != nil {
		return Bottle{}, err
	}
	if b.Status != StatusWithCustomer {
		return Bottle{}, &InvalidTransitionError{BottleID: id, From: b.Status, Op: "return"}
	}
	b.Status = StatusEmpty
	b.CustomerID = ""
	if err := r.store.SaveBottle(ctx, b); err != nil {
		return Bottle{}, err
	}
	return b, nil
}

// BulkReturn returns every bottle in ids from the given customer.
// Validates all bottles before writing any: if one bottle is not held by
// the customer, nothing is applied.
func (r *Registry) BulkReturn(ctx context.Context, customerID string, ids []BottleID) ([]Bottle, error) {
	if customerID == "" {
		return nil, ledger.Invalidf("customer_id", "must not be empty")
	}
	if len(ids) == 0 {
		return nil, ledger.Invalidf("bottle_ids", "at least one bottle is required")
	}

	bottles := make([]Bottle, 0, len(ids))
	for _, id := range ids {
		b, err := r.store.GetBottle(ctx, id)
		if err != nil {
			return nil, err
		}
		if b.Status != StatusWithCustomer {
			return nil, &InvalidTransitionError{BottleID: id, From: b.Status, Op: "return"}
		}
		if b.CustomerID != customerID {
			return nil, &OwnershipError{BottleID: id, Expected: customerID, Actual: b.CustomerID}
		}
		bottles = append(bottles, b)
	}

	for i := range bottles {
		bottles[i].Status = StatusEmpty
		bottles[i].CustomerID = ""
		if err := r.store.SaveBottle(ctx, bottles[i]); err != nil {
			return nil, err
		}
	}
	return bottles, nil
}

// HeldBy lists the bottles currently attributed to a customer.
func (r *Registry) HeldBy(ctx context.Context, customerID string) ([]Bottle, error) {
	return r.store.ListBottlesByCustomer(ctx, customerID)
}
