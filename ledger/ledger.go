/*
ledger.go - Credit ledger over the append-only entry log

PURPOSE:
  The CreditLedger applies charges, settlements, and reversals for a
  balance holder (customer or supplier). The running balance is never
  stored; it is derived by replaying the holder's entries.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: entries are written once, never edited or deleted
  2. NON-NEGATIVE: no operation may drive a balance below zero
  3. ATOMIC: a rejected operation leaves the ledger untouched

CORRECTIONS:
  A mistaken charge is not edited. A reversal entry referencing it is
  appended instead; both remain in the log and the net effect is the
  correction.

EXAMPLE FLOW:
  1. Sale on credit, 300 owed:        charge     +300
  2. Customer pays 100:               settlement -100
  3. Sale cancelled:                  reversal   -200
  Balance: 300 - 100 - 200 = 0, full history preserved.

SEE ALSO:
  - store.go: Entry persistence interface
  - engine: composes this ledger into Sale/Refill/Payment operations
*/
package ledger

import "context"

// =============================================================================
// POSITION - Derived balance snapshot
// =============================================================================

// Position is the replayed state of one holder's ledger.
type Position struct {
	Kind          HolderKind
	HolderID      HolderID
	Balance       Money
	TotalCharged  Money
	TotalSettled  Money
	TotalReversed Money
}

// =============================================================================
// CREDIT LEDGER
// =============================================================================

// CreditLedger mutates and reads holder balances through a Store.
type CreditLedger struct {
	store Store
}

func New(store Store) *CreditLedger {
	return &CreditLedger{store: store}
}

// Charge increases the holder's balance. Amount must be positive.
func (l *CreditLedger) Charge(ctx context.Context, e Entry) error {
	e.Type = EntryCharge
	if err := l.validate(e); err != nil {
		return err
	}
	return l.append(ctx, e)
}

// Settle decreases the holder's balance and records an immutable payment.
// Rejects amounts exceeding the current balance: the caller may clamp a
// "pay full" shortcut, but the ledger re-validates regardless.
func (l *CreditLedger) Settle(ctx context.Context, e Entry) error {
	e.Type = EntrySettlement
	if err := l.validate(e); err != nil {
		return err
	}
	pos, err := l.Position(ctx, e.HolderKind, e.HolderID)
	if err != nil {
		return err
	}
	if e.Amount.GreaterThan(pos.Balance) {
		return &OverpaymentError{
			Kind:      e.HolderKind,
			HolderID:  e.HolderID,
			Balance:   pos.Balance,
			Requested: e.Amount,
		}
	}
	return l.append(ctx, e)
}

// Reverse decreases a prior charge, used when cancelling a completed sale
// or refill. Rejects reversals that would drive the balance negative.
func (l *CreditLedger) Reverse(ctx context.Context, e Entry) error {
	e.Type = EntryReversal
	if err := l.validate(e); err != nil {
		return err
	}
	pos, err := l.Position(ctx, e.HolderKind, e.HolderID)
	if err != nil {
		return err
	}
	if e.Amount.GreaterThan(pos.Balance) {
		return &ReversalError{
			Kind:      e.HolderKind,
			HolderID:  e.HolderID,
			Balance:   pos.Balance,
			Requested: e.Amount,
		}
	}
	return l.append(ctx, e)
}

// Balance returns the holder's current balance.
func (l *CreditLedger) Balance(ctx context.Context, kind HolderKind, holderID HolderID) (Money, error) {
	pos, err := l.Position(ctx, kind, holderID)
	if err != nil {
		return Money{}, err
	}
	return pos.Balance, nil
}

// Position replays the holder's entries into a balance snapshot.
func (l *CreditLedger) Position(ctx context.Context, kind HolderKind, holderID HolderID) (Position, error) {
	entries, err := l.store.Entries(ctx, kind, holderID)
	if err != nil {
		return Position{}, err
	}

	pos := Position{
		Kind:          kind,
		HolderID:      holderID,
		Balance:       ZeroMoney(),
		TotalCharged:  ZeroMoney(),
		TotalSettled:  ZeroMoney(),
		TotalReversed: ZeroMoney(),
	}
	for _, e := range entries {
		switch e.Type {
		case EntryCharge:
			pos.TotalCharged = pos.TotalCharged.Add(e.Amount)
		case EntrySettlement:
			pos.TotalSettled = pos.TotalSettled.Add(e.Amount)
		case EntryReversal:
			pos.TotalReversed = pos.TotalReversed.Add(e.Amount)
		}
		pos.Balance = pos.Balance.Add(e.Delta())
	}
	return pos, nil
}

// Entries returns the holder's full entry history.
func (l *CreditLedger) Entries(ctx context.Context, kind HolderKind, holderID HolderID) ([]Entry, error) {
	return l.store.Entries(ctx, kind, holderID)
}

// =============================================================================
// INTERNAL
// =============================================================================

func (l *CreditLedger) validate(e Entry) error {
	if !e.HolderKind.Valid() {
		return Invalidf("holder_kind", "unknown kind %q", e.HolderKind)
	}
	if e.HolderID == "" {
		return Invalidf("holder_id", "must not be empty")
	}
	if !e.Amount.IsPositive() {
		return Invalidf("amount", "must be positive, got %s", e.Amount)
	}
	return nil
}

func (l *CreditLedger) append(ctx context.Context, e Entry) error {
	if e.IdempotencyKey != "" {
		exists, err := l.store.EntryExists(ctx, e.IdempotencyKey)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateIdempotencyKey
		}
	}
	return l.store.AppendEntry(ctx, e)
}
