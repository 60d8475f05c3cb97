/*
errors.go - Error types for bottle and tank operations

SEE ALSO:
  - ledger/errors.go: Validation errors shared across packages
*/
package inventory

import (
	"errors"
	"fmt"

	"github.com/warp/depot-engine/ledger"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidTransition is returned for any bottle status change outside
	// empty -> filled -> with_customer -> empty.
	ErrInvalidTransition = errors.New("invalid bottle transition")

	// ErrNotOwnedByCustomer is returned when a return names a bottle held
	// by a different customer.
	ErrNotOwnedByCustomer = errors.New("bottle not owned by customer")

	// ErrExceedsCapacity is returned when a refill does not fit in the tank.
	ErrExceedsCapacity = errors.New("refill exceeds tank capacity")

	// ErrInsufficientStock is returned when a draw exceeds the tank level.
	ErrInsufficientStock = errors.New("insufficient gas in tank")

	// ErrBottleNotFound is returned when a referenced bottle doesn't exist.
	ErrBottleNotFound = errors.New("bottle not found")

	// ErrDuplicateSerial is returned when registering a bottle with a
	// serial number already in the fleet.
	ErrDuplicateSerial = errors.New("duplicate bottle serial number")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// InvalidTransitionError reports a rejected bottle state change.
type InvalidTransitionError struct {
	BottleID BottleID
	From     BottleStatus
	Op       string // "fill", "dispatch", "return"
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s bottle %s: status is %s", e.Op, e.BottleID, e.From)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// OwnershipError reports a return attributed to the wrong customer.
type OwnershipError struct {
	BottleID BottleID
	Expected string
	Actual   string
}

func (e *OwnershipError) Error() string {
	return fmt.Sprintf("bottle %s is held by customer %s, not %s", e.BottleID, e.Actual, e.Expected)
}

func (e *OwnershipError) Unwrap() error { return ErrNotOwnedByCustomer }

// CapacityError reports a refill that does not fit.
type CapacityError struct {
	Requested ledger.Quantity
	MaxRefill ledger.Quantity
	Capacity  ledger.Quantity
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("refill of %sL exceeds headroom %sL (capacity %sL)",
		e.Requested, e.MaxRefill, e.Capacity)
}

func (e *CapacityError) Unwrap() error { return ErrExceedsCapacity }

// StockError reports a draw exceeding the tank level.
type StockError struct {
	Requested ledger.Quantity
	Available ledger.Quantity
}

func (e *StockError) Error() string {
	return fmt.Sprintf("cannot draw %sL: only %sL in tank", e.Requested, e.Available)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrNotOwnedByCustomer) ||
		errors.Is(err, ErrExceedsCapacity) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrDuplicateSerial)
}
