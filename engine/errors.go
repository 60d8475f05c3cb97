/*
errors.go - Sale lifecycle and lookup errors

The bottle, tank, and ledger errors live with their owning packages;
these cover what only the orchestrator can detect.
*/
package engine

import (
	"errors"
	"fmt"

	"github.com/warp/depot-engine/inventory"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAlreadyCancelled is returned when cancelling a sale twice.
	ErrAlreadyCancelled = errors.New("sale already cancelled")

	// ErrCannotCancel is returned when a sale's bottles have changed status
	// through an unrelated operation since the sale completed.
	ErrCannotCancel = errors.New("sale cannot be cancelled")

	// ErrSaleNotFound is returned when a referenced sale doesn't exist.
	ErrSaleNotFound = errors.New("sale not found")

	// ErrCustomerNotFound is returned when a referenced customer doesn't exist.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrSupplierNotFound is returned when a referenced supplier doesn't exist.
	ErrSupplierNotFound = errors.New("supplier not found")

	// ErrDuplicateID is returned when creating an entity with an id that
	// already exists.
	ErrDuplicateID = errors.New("duplicate id")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// CannotCancelError reports stale state blocking a sale cancellation.
type CannotCancelError struct {
	SaleID   string
	BottleID inventory.BottleID
	Status   inventory.BottleStatus
	HeldBy   string
}

func (e *CannotCancelError) Error() string {
	return fmt.Sprintf("cannot cancel sale %s: bottle %s is now %s (held by %q)",
		e.SaleID, e.BottleID, e.Status, e.HeldBy)
}

func (e *CannotCancelError) Unwrap() error { return ErrCannotCancel }

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSaleNotFound) ||
		errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrSupplierNotFound) ||
		errors.Is(err, inventory.ErrBottleNotFound)
}
