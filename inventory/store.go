/*
store.go - Persistence interfaces for bottles and the tank

IMPLEMENTATIONS:
  - store/memory: In-memory, for tests
  - store/sqlite: Production SQLite store
*/
package inventory

import "context"

// BottleStore persists bottle records. Status transitions are written as
// whole-record saves; the Registry is the only caller that mutates status.
type BottleStore interface {
	// CreateBottle inserts a new bottle. Fails with ErrDuplicateSerial if
	// the serial number is already registered.
	CreateBottle(ctx context.Context, b Bottle) error

	// GetBottle returns a bottle by id, or ErrBottleNotFound.
	GetBottle(ctx context.Context, id BottleID) (Bottle, error)

	// SaveBottle persists status/attribution changes to an existing bottle.
	SaveBottle(ctx context.Context, b Bottle) error

	// ListBottles returns the whole fleet, optionally filtered by status
	// (empty string = all).
	ListBottles(ctx context.Context, status BottleStatus) ([]Bottle, error)

	// ListBottlesByCustomer returns bottles currently held by a customer.
	ListBottlesByCustomer(ctx context.Context, customerID string) ([]Bottle, error)
}

// TankStore persists the single tank record.
type TankStore interface {
	GetTank(ctx context.Context) (Tank, error)
	SaveTank(ctx context.Context, t Tank) error
}
