/*
Package engine composes the bottle registry, tank controller, and credit
ledger into the composite business operations of the depot.

PURPOSE:
  Every mutation of depot state flows through this package. The
  presentation layer submits intents (sell, refill, return, pay); the
  engine validates them and commits all resulting changes atomically, or
  none of them. It is the sole writer of tank, bottle, customer, and
  supplier state.

KEY CONCEPTS IN THIS FILE (types.go):
  - Customer/Supplier: balance holders. Their outstanding credit is NEVER
    stored; it is replayed from the ledger entry log on demand.
  - Sale: an immutable record once completed, except for the single
    transition to cancelled (which reverses its side effects).
  - Refill: an append-only movement record of gas bought from a supplier.

SEE ALSO:
  - engine.go: The composite operations
  - store.go: Persistence interface the engine drives
  - audit.go: Invariant sweep over the whole state
*/
package engine

import (
	"time"

	"github.com/warp/depot-engine/inventory"
	"github.com/warp/depot-engine/ledger"
)

// =============================================================================
// CUSTOMER / SUPPLIER
// =============================================================================

// Customer is a balance holder on the receivables side. LoyaltyPoints are
// monotonically non-decreasing except through RedeemPoints.
type Customer struct {
	ID            string
	Name          string
	Phone         string
	LoyaltyPoints int64
	CreatedAt     time.Time
}

// Supplier is a balance holder on the payables side. TotalSupplied and
// TotalPaid are cumulative and only ever grow.
type Supplier struct {
	ID            string
	Name          string
	Phone         string
	TotalSupplied ledger.Quantity
	TotalPaid     ledger.Money
	CreatedAt     time.Time
}

// CustomerAccount is a customer plus their replayed credit position.
type CustomerAccount struct {
	Customer
	TotalCredit ledger.Money
}

// SupplierAccount is a supplier plus their replayed credit position.
type SupplierAccount struct {
	Supplier
	TotalOutstanding ledger.Money
}

// =============================================================================
// SALE
// =============================================================================

type SaleStatus string

const (
	SaleCompleted SaleStatus = "completed"
	SaleCancelled SaleStatus = "cancelled"
)

// SaleItem is one line of a sale. Bottle-backed lines carry the dispatched
// bottle ids; len(BottleIDs) equals Quantity for those lines.
type SaleItem struct {
	ProductID string
	BottleIDs []inventory.BottleID
	Quantity  int
	UnitPrice ledger.Money
	LineTotal ledger.Money
}

// Sale is immutable once completed, except for the transition to
// cancelled. CreditCharged records exactly what was charged to the
// customer's ledger so cancellation can reverse it precisely.
type Sale struct {
	ID            string
	CustomerID    string // empty for anonymous cash sales without bottles
	Items         []SaleItem
	Subtotal      ledger.Money
	Tax           ledger.Money
	Discount      ledger.Money
	Total         ledger.Money
	AmountPaid    ledger.Money
	CreditCharged ledger.Money
	PointsEarned  int64
	PaymentMethod ledger.PaymentMethod
	Status        SaleStatus
	CreatedAt     time.Time
	CancelledAt   *time.Time
}

// BottleIDs returns every bottle dispatched by the sale.
func (s Sale) BottleIDs() []inventory.BottleID {
	var ids []inventory.BottleID
	for _, it := range s.Items {
		ids = append(ids, it.BottleIDs...)
	}
	return ids
}

// =============================================================================
// REFILL
// =============================================================================

// RefillPaymentStatus describes how a tank refill was paid for.
type RefillPaymentStatus string

const (
	RefillPaidFull    RefillPaymentStatus = "full"        // paid in full at refill time
	RefillPaidPartial RefillPaymentStatus = "partial"     // 0 < amountPaid < totalAmount
	RefillUnpaid      RefillPaymentStatus = "outstanding" // nothing paid, full amount owed
)

func (s RefillPaymentStatus) Valid() bool {
	switch s {
	case RefillPaidFull, RefillPaidPartial, RefillUnpaid:
		return true
	}
	return false
}

// Refill is an append-only record of gas bought into the tank.
type Refill struct {
	ID            string
	SupplierID    string
	Liters        ledger.Quantity
	PricePerLiter ledger.Money
	TotalAmount   ledger.Money
	AmountPaid    ledger.Money
	PaymentStatus RefillPaymentStatus
	RecordedAt    time.Time
}

// =============================================================================
// OPERATION INPUTS
// =============================================================================

// SaleItemInput is one requested sale line.
type SaleItemInput struct {
	ProductID string
	BottleIDs []inventory.BottleID
	Quantity  int
	UnitPrice ledger.Money
}

// SaleInput is the intent behind RecordSale. The engine trusts nothing
// derived client-side: subtotal and total are recomputed here.
type SaleInput struct {
	CustomerID    string
	Items         []SaleItemInput
	Tax           ledger.Money
	Discount      ledger.Money
	PaymentMethod ledger.PaymentMethod
	AmountPaid    ledger.Money
}

// RefillInput is the final submitted refill tuple. The engine revalidates
// the tuple's internal consistency rather than trust client-computed
// amounts (full forces amountPaid = liters*pricePerLiter, outstanding
// forces amountPaid = 0).
type RefillInput struct {
	SupplierID    string
	Liters        ledger.Quantity
	PricePerLiter ledger.Money
	AmountPaid    ledger.Money
	PaymentStatus RefillPaymentStatus
	Method        ledger.PaymentMethod
	Reference     string
	Note          string
}

// PaymentInput is a settlement against a customer or supplier balance.
type PaymentInput struct {
	HolderKind ledger.HolderKind
	HolderID   string
	Amount     ledger.Money
	Method     ledger.PaymentMethod
	Reference  string
	Note       string
}
