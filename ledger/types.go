/*
Package ledger provides the credit ledger core of the depot engine.

PURPOSE:
  This package contains the value types and the append-only entry log for
  the money side of the business: what customers owe the depot (receivables)
  and what the depot owes its gas suppliers (payables). One ledger handles
  both, parameterized by holder kind.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A currency amount backed by decimal.Decimal
  - Quantity: Liters of gas, compared with a small epsilon tolerance
  - Entry: An immutable ledger record (charge, settlement, reversal)
  - Holder IDs: Type-safe identifiers for customers and suppliers

DESIGN PRINCIPLES:
  1. Immutability: Entries are never modified, only reversed
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Derivation: Balances are replayed from entries, never stored as
     mutable columns that can drift out of sync

SEE ALSO:
  - ledger.go: Charge/Settle/Reverse over the entry log
  - errors.go: Sentinel and structured error types
  - store.go: Entry persistence interface
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Currency amount
// =============================================================================

// Money is a currency amount. Ledger entries always carry a positive Money;
// the direction of an entry comes from its type, not its sign.
type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money {
	return Money{Value: decimal.NewFromFloat(value)}
}

func NewMoneyFromInt(value int64) Money {
	return Money{Value: decimal.NewFromInt(value)}
}

func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{Value: decimal.Zero}
	}
	return Money{Value: d}
}

func ZeroMoney() Money { return Money{Value: decimal.Zero} }

func (m Money) Add(o Money) Money           { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money           { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Mul(s decimal.Decimal) Money { return Money{Value: m.Value.Mul(s)} }
func (m Money) Neg() Money                  { return Money{Value: m.Value.Neg()} }
func (m Money) IsZero() bool                { return m.Value.IsZero() }
func (m Money) IsNegative() bool            { return m.Value.IsNegative() }
func (m Money) IsPositive() bool            { return m.Value.IsPositive() }
func (m Money) GreaterThan(o Money) bool    { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool       { return m.Value.LessThan(o.Value) }
func (m Money) Equal(o Money) bool          { return m.Value.Equal(o.Value) }
func (m Money) String() string              { return m.Value.StringFixed(2) }

// =============================================================================
// QUANTITY - Liters of gas
// =============================================================================

// quantityEpsilon is the tolerance used for liters comparisons. Inputs arrive
// as client-side floats; an exact comparison would reject a refill of
// 799.9999999 liters into 800 liters of headroom.
var quantityEpsilon = decimal.NewFromFloat(1e-6)

// Quantity is a volume in liters.
type Quantity struct {
	Value decimal.Decimal
}

func NewQuantity(liters float64) Quantity {
	return Quantity{Value: decimal.NewFromFloat(liters)}
}

func NewQuantityFromInt(liters int64) Quantity {
	return Quantity{Value: decimal.NewFromInt(liters)}
}

func ZeroQuantity() Quantity { return Quantity{Value: decimal.Zero} }

func (q Quantity) Add(o Quantity) Quantity { return Quantity{Value: q.Value.Add(o.Value)} }
func (q Quantity) Sub(o Quantity) Quantity { return Quantity{Value: q.Value.Sub(o.Value)} }
func (q Quantity) IsZero() bool            { return q.Value.IsZero() }
func (q Quantity) String() string          { return q.Value.String() }

// IsPositive reports whether q is greater than zero beyond epsilon.
func (q Quantity) IsPositive() bool {
	return q.Value.GreaterThan(quantityEpsilon)
}

// IsNegative reports whether q is below zero beyond epsilon.
func (q Quantity) IsNegative() bool {
	return q.Value.LessThan(quantityEpsilon.Neg())
}

// GreaterThan reports q > o beyond epsilon.
func (q Quantity) GreaterThan(o Quantity) bool {
	return q.Value.Sub(o.Value).GreaterThan(quantityEpsilon)
}

// LessThan reports q < o beyond epsilon.
func (q Quantity) LessThan(o Quantity) bool {
	return o.Value.Sub(q.Value).GreaterThan(quantityEpsilon)
}

// AtMost reports q <= o within epsilon.
func (q Quantity) AtMost(o Quantity) bool { return !q.GreaterThan(o) }

// Equal reports q == o within epsilon.
func (q Quantity) Equal(o Quantity) bool {
	return q.Value.Sub(o.Value).Abs().LessThanOrEqual(quantityEpsilon)
}

// MoneyAt returns q liters priced at pricePerLiter.
func (q Quantity) MoneyAt(pricePerLiter Money) Money {
	return Money{Value: q.Value.Mul(pricePerLiter.Value)}
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

// HolderKind distinguishes the two sides of the credit ledger.
type HolderKind string

const (
	HolderCustomer HolderKind = "customer" // balance = what the customer owes us
	HolderSupplier HolderKind = "supplier" // balance = what we owe the supplier
)

func (k HolderKind) Valid() bool {
	return k == HolderCustomer || k == HolderSupplier
}

type HolderID string
type EntryID string

// =============================================================================
// PAYMENT METHOD
// =============================================================================

type PaymentMethod string

const (
	PayCash   PaymentMethod = "cash"
	PayCard   PaymentMethod = "card"
	PayMobile PaymentMethod = "mobile"
	PayCredit PaymentMethod = "credit" // no money tendered, full amount charged
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PayCash, PayCard, PayMobile, PayCredit:
		return true
	}
	return false
}

// =============================================================================
// ENTRY - Atomic change to a holder's balance
// =============================================================================

type EntryType string

const (
	EntryCharge     EntryType = "charge"     // balance increases (sale shortfall, refill cost)
	EntrySettlement EntryType = "settlement" // balance decreases (payment collected/made)
	EntryReversal   EntryType = "reversal"   // undo of a prior charge (sale cancellation)
)

// Entry is one immutable record in the credit ledger. Amount is always
// positive; EntryType decides whether it raises or lowers the balance.
//
// Settlement entries double as the payment records of the system: they carry
// the payment method, an optional external reference, and free-form notes.
// They are append-only and never mutated or deleted.
type Entry struct {
	ID             EntryID
	HolderKind     HolderKind
	HolderID       HolderID
	Type           EntryType
	Amount         Money
	Method         PaymentMethod // settlements only
	ReferenceID    string        // sale/refill id, or reversed entry id
	Reason         string
	Note           string
	IdempotencyKey string
	RecordedAt     time.Time
}

// Delta returns the signed effect of the entry on the holder's balance.
func (e Entry) Delta() Money {
	if e.Type == EntryCharge {
		return e.Amount
	}
	return e.Amount.Neg()
}
