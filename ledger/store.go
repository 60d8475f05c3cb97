/*
store.go - Persistence interface for credit ledger entries

PURPOSE:
  Defines the interface between the ledger and the database. The Store
  maintains append-only semantics: entries are written once and never
  updated or deleted. Corrections happen via reversal entries.

IDEMPOTENCY:
  Writes may carry an idempotency key. If the key already exists the write
  is rejected, which makes retried composite operations safe.

IMPLEMENTATIONS:
  - ledger/store/memory.go: In-memory, for tests
  - store/sqlite:           Production SQLite store (implements the full
                            engine store, of which this is a subset)

SEE ALSO:
  - ledger.go: CreditLedger built on top of this interface
*/
package ledger

import "context"

// Store persists ledger entries. APPEND-ONLY: no Update, no Delete.
type Store interface {
	// AppendEntry persists one entry. Fails if its idempotency key exists.
	AppendEntry(ctx context.Context, e Entry) error

	// AppendEntries persists several entries atomically.
	AppendEntries(ctx context.Context, es []Entry) error

	// Entries returns all entries for a holder in recording order.
	Entries(ctx context.Context, kind HolderKind, holderID HolderID) ([]Entry, error)

	// EntryExists checks whether an idempotency key has been used.
	EntryExists(ctx context.Context, idempotencyKey string) (bool, error)
}

// TxStore wraps Store with transaction support. If fn returns an error the
// transaction is rolled back, otherwise committed.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
