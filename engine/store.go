/*
store.go - Full persistence surface driven by the orchestrator

PURPOSE:
  One interface spanning every aggregate the engine touches: the credit
  entry log, bottles, the tank, customers, suppliers, sales, and refill
  movements. Composite operations run against a transactional view of
  this interface so they commit all-or-nothing.

OWNERSHIP:
  The engine is the sole writer. Read paths (API listings) may use the
  same interface but must never call the mutating methods directly.

IMPLEMENTATIONS:
  - store/memory: In-memory with snapshot/rollback transactions
  - store/sqlite: SQLite with sql.Tx-backed transactions
*/
package engine

import (
	"context"

	"github.com/warp/depot-engine/inventory"
	"github.com/warp/depot-engine/ledger"
)

// Store is everything the composite operations persist through.
type Store interface {
	ledger.Store
	inventory.BottleStore
	inventory.TankStore

	// Customers
	CreateCustomer(ctx context.Context, c Customer) error
	GetCustomer(ctx context.Context, id string) (Customer, error)
	SaveCustomer(ctx context.Context, c Customer) error
	ListCustomers(ctx context.Context) ([]Customer, error)

	// Suppliers
	CreateSupplier(ctx context.Context, s Supplier) error
	GetSupplier(ctx context.Context, id string) (Supplier, error)
	SaveSupplier(ctx context.Context, s Supplier) error
	ListSuppliers(ctx context.Context) ([]Supplier, error)

	// Sales
	CreateSale(ctx context.Context, s Sale) error
	GetSale(ctx context.Context, id string) (Sale, error)
	SaveSale(ctx context.Context, s Sale) error
	ListSales(ctx context.Context) ([]Sale, error)

	// Refill movements (append-only)
	RecordRefill(ctx context.Context, r Refill) error
	ListRefills(ctx context.Context, supplierID string) ([]Refill, error)
}

// TxStore wraps Store with transaction support. Every composite operation
// runs inside exactly one WithTx scope, released before the call returns.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
