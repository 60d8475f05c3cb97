/*
errors.go - Centralized error types for the credit ledger

PURPOSE:
  All ledger error types in one place for consistency and discoverability.
  Other packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Bound errors   - Operations that would drive a balance negative
  2. Validation     - Non-positive amounts, unknown holder kinds
  3. Store errors   - Persistence-level failures

USAGE:
  if errors.Is(err, ledger.ErrOverpayment) {
      // reject with 409, balance is untouched
  }

SEE ALSO:
  - ledger.go: Uses these errors
  - store.go: Uses these errors
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrOverpayment is returned when a settlement exceeds the current
	// balance. Balances never go negative; callers that offer a "pay full"
	// shortcut must clamp, and the ledger re-validates regardless.
	ErrOverpayment = errors.New("settlement exceeds outstanding balance")

	// ErrReversalExceedsCharge is returned when reversing more than the
	// holder currently owes.
	ErrReversalExceedsCharge = errors.New("reversal exceeds outstanding charge")

	// ErrValidation is returned for non-positive amounts and malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateIdempotencyKey is returned when an entry with the same
	// idempotency key already exists. Expected behavior for retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrHolderNotFound is returned when a referenced holder doesn't exist.
	ErrHolderNotFound = errors.New("holder not found")

	// ErrEntryFailed is returned when an entry cannot be persisted.
	ErrEntryFailed = errors.New("entry failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// OverpaymentError reports a settlement that exceeds the balance.
type OverpaymentError struct {
	Kind      HolderKind
	HolderID  HolderID
	Balance   Money
	Requested Money
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("overpayment: %s %s owes %s, settlement of %s rejected",
		e.Kind, e.HolderID, e.Balance, e.Requested)
}

func (e *OverpaymentError) Unwrap() error { return ErrOverpayment }

// ReversalError reports a reversal that would drive the balance negative.
type ReversalError struct {
	Kind      HolderKind
	HolderID  HolderID
	Balance   Money
	Requested Money
}

func (e *ReversalError) Error() string {
	return fmt.Sprintf("reversal of %s exceeds outstanding balance %s for %s %s",
		e.Requested, e.Balance, e.Kind, e.HolderID)
}

func (e *ReversalError) Unwrap() error { return ErrReversalExceedsCharge }

// ValidationError reports invalid input with a field hint.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalidf builds a ValidationError.
func Invalidf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input
// rather than a system failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrOverpayment) ||
		errors.Is(err, ErrReversalExceedsCharge) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrDuplicateIdempotencyKey)
}

// IsNotFound returns true if the error indicates a missing holder.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrHolderNotFound)
}
