/*
engine.go - Composite depot operations

PURPOSE:
  Implements the all-or-nothing business transactions:

    RecordSale      dispatch bottles, compute totals, charge shortfall
    CancelSale      compensating reversal of a completed sale
    RefillTank      buy gas from a supplier, charge the unpaid part
    FillBottles     draw the tank down into empty bottles
    ReturnBottles   take bottles back from a customer (no ledger effect)
    CollectPayment  settle a customer or supplier balance
    RedeemPoints    the only decrease of loyalty points

ATOMICITY:
  Each operation runs inside a single TxStore.WithTx scope. Validation
  happens before any mutation where possible; where mutations interleave
  (dispatch per bottle), the surrounding transaction rolls every write
  back on the first error. An error always means zero partial mutation.

CONCURRENCY:
  WithTx also serializes operations touching the same aggregates. No
  operation blocks past its own transaction scope.

SEE ALSO:
  - store.go: The persistence surface these operations drive
  - audit.go: Invariant sweep run by the scheduler
*/
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/warp/depot-engine/inventory"
	"github.com/warp/depot-engine/ledger"
)

// loyaltyDivisor converts sale totals into loyalty points: one point per
// 100 of total, floored.
var loyaltyDivisor = ledger.NewMoneyFromInt(100)

// Engine is the transaction orchestrator. It carries no state of its own
// beyond its store and logger; all depot state lives in the store.
type Engine struct {
	store TxStore
	log   *zap.Logger
}

func New(store TxStore, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{store: store, log: log}
}

// Store exposes the read side for the presentation layer.
func (e *Engine) Store() Store { return e.store }

// =============================================================================
// SALE
// =============================================================================

// RecordSale validates and commits a sale: bottle-backed lines are
// dispatched to the customer, totals are recomputed server-side, and any
// shortfall between the total and the amount tendered is charged to the
// customer's credit. Loyalty points accrue on the recomputed total.
func (e *Engine) RecordSale(ctx context.Context, in SaleInput) (Sale, error) {
	if err := validateSaleInput(in); err != nil {
		return Sale{}, err
	}

	var sale Sale
	err := e.store.WithTx(ctx, func(s Store) error {
		registry := inventory.NewRegistry(s)
		credit := ledger.New(s)

		var customer Customer
		if in.CustomerID != "" {
			var err error
			customer, err = s.GetCustomer(ctx, in.CustomerID)
			if err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		sale = Sale{
			ID:            newID("sale"),
			CustomerID:    in.CustomerID,
			Tax:           in.Tax,
			Discount:      in.Discount,
			AmountPaid:    in.AmountPaid,
			PaymentMethod: in.PaymentMethod,
			Status:        SaleCompleted,
			CreatedAt:     now,
			Subtotal:      ledger.ZeroMoney(),
			CreditCharged: ledger.ZeroMoney(),
		}

		for _, it := range in.Items {
			line := SaleItem{
				ProductID: it.ProductID,
				BottleIDs: it.BottleIDs,
				Quantity:  it.Quantity,
				UnitPrice: it.UnitPrice,
				LineTotal: it.UnitPrice.Mul(intDecimal(it.Quantity)),
			}
			for _, bid := range it.BottleIDs {
				if _, err := registry.Dispatch(ctx, bid, in.CustomerID); err != nil {
					return err
				}
			}
			sale.Subtotal = sale.Subtotal.Add(line.LineTotal)
			sale.Items = append(sale.Items, line)
		}

		sale.Total = sale.Subtotal.Add(sale.Tax).Sub(sale.Discount)
		if sale.Total.IsNegative() {
			return ledger.Invalidf("discount", "exceeds subtotal plus tax")
		}

		shortfall := sale.Total.Sub(sale.AmountPaid)
		if shortfall.IsPositive() {
			if in.CustomerID == "" {
				return ledger.Invalidf("customer_id", "required when the sale leaves a balance owed")
			}
			if err := credit.Charge(ctx, ledger.Entry{
				ID:             ledger.EntryID(newID("ent")),
				HolderKind:     ledger.HolderCustomer,
				HolderID:       ledger.HolderID(in.CustomerID),
				Amount:         shortfall,
				ReferenceID:    sale.ID,
				Reason:         "sale shortfall",
				IdempotencyKey: fmt.Sprintf("charge-%s", sale.ID),
				RecordedAt:     now,
			}); err != nil {
				return err
			}
			sale.CreditCharged = shortfall
		}

		if in.CustomerID != "" {
			sale.PointsEarned = sale.Total.Value.Div(loyaltyDivisor.Value).IntPart()
			if sale.PointsEarned > 0 {
				customer.LoyaltyPoints += sale.PointsEarned
				if err := s.SaveCustomer(ctx, customer); err != nil {
					return err
				}
			}
		}

		return s.CreateSale(ctx, sale)
	})
	if err != nil {
		return Sale{}, err
	}

	e.log.Info("sale recorded",
		zap.String("sale_id", sale.ID),
		zap.String("customer_id", sale.CustomerID),
		zap.String("total", sale.Total.String()),
		zap.String("credit_charged", sale.CreditCharged.String()),
	)
	return sale, nil
}

// CancelSale reverses a completed sale: every dispatched bottle goes back
// to empty and the charged credit is reversed. Fails with
// ErrAlreadyCancelled on a second attempt, and with ErrCannotCancel when
// the sale's bottles have since moved through an unrelated operation.
func (e *Engine) CancelSale(ctx context.Context, saleID string) (Sale, error) {
	var sale Sale
	err := e.store.WithTx(ctx, func(s Store) error {
		registry := inventory.NewRegistry(s)
		credit := ledger.New(s)

		var err error
		sale, err = s.GetSale(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Status == SaleCancelled {
			return ErrAlreadyCancelled
		}

		// Stale-state detection: every bottle must still sit with the
		// sale's customer, untouched by later operations.
		for _, bid := range sale.BottleIDs() {
			b, err := s.GetBottle(ctx, bid)
			if err != nil {
				return err
			}
			if b.Status != inventory.StatusWithCustomer || b.CustomerID != sale.CustomerID {
				return &CannotCancelError{
					SaleID:   sale.ID,
					BottleID: bid,
					Status:   b.Status,
					HeldBy:   b.CustomerID,
				}
			}
		}

		for _, bid := range sale.BottleIDs() {
			if _, err := registry.Return(ctx, bid); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		if sale.CreditCharged.IsPositive() {
			if err := credit.Reverse(ctx, ledger.Entry{
				ID:             ledger.EntryID(newID("ent")),
				HolderKind:     ledger.HolderCustomer,
				HolderID:       ledger.HolderID(sale.CustomerID),
				Amount:         sale.CreditCharged,
				ReferenceID:    sale.ID,
				Reason:         "sale cancelled",
				IdempotencyKey: fmt.Sprintf("reversal-%s", sale.ID),
				RecordedAt:     now,
			}); err != nil {
				return err
			}
		}

		sale.Status = SaleCancelled
		sale.CancelledAt = &now
		return s.SaveSale(ctx, sale)
	})
	if err != nil {
		return Sale{}, err
	}

	e.log.Info("sale cancelled",
		zap.String("sale_id", sale.ID),
		zap.String("credit_reversed", sale.CreditCharged.String()),
	)
	return sale, nil
}

// =============================================================================
// TANK
// =============================================================================

// RefillTank buys gas into the tank. The submitted tuple is revalidated:
// full pays the whole amount, partial pays strictly between zero and the
// total, outstanding pays nothing. The unpaid part is charged to the
// supplier's ledger and an append-only Refill movement is recorded.
func (e *Engine) RefillTank(ctx context.Context, in RefillInput) (inventory.Tank, error) {
	if in.SupplierID == "" {
		return inventory.Tank{}, ledger.Invalidf("supplier_id", "must not be empty")
	}
	if !in.Liters.IsPositive() {
		return inventory.Tank{}, ledger.Invalidf("liters", "must be positive, got %s", in.Liters)
	}
	if !in.PricePerLiter.IsPositive() {
		return inventory.Tank{}, ledger.Invalidf("price_per_liter", "must be positive, got %s", in.PricePerLiter)
	}
	if !in.PaymentStatus.Valid() {
		return inventory.Tank{}, ledger.Invalidf("payment_status", "unknown status %q", in.PaymentStatus)
	}

	total := in.Liters.MoneyAt(in.PricePerLiter)
	amountPaid := in.AmountPaid
	switch in.PaymentStatus {
	case RefillPaidFull:
		amountPaid = total
	case RefillPaidPartial:
		if !amountPaid.IsPositive() || !amountPaid.LessThan(total) {
			return inventory.Tank{}, ledger.Invalidf("amount_paid",
				"partial payment must be between 0 and %s, got %s", total, amountPaid)
		}
	case RefillUnpaid:
		if !amountPaid.IsZero() {
			return inventory.Tank{}, ledger.Invalidf("amount_paid",
				"outstanding refill must carry no payment, got %s", amountPaid)
		}
	}

	var tank inventory.Tank
	var refill Refill
	err := e.store.WithTx(ctx, func(s Store) error {
		tanks := inventory.NewController(s)
		credit := ledger.New(s)

		supplier, err := s.GetSupplier(ctx, in.SupplierID)
		if err != nil {
			return err
		}
		if err := tanks.CanRefill(ctx, in.Liters); err != nil {
			return err
		}

		now := time.Now().UTC()
		refill = Refill{
			ID:            newID("refill"),
			SupplierID:    in.SupplierID,
			Liters:        in.Liters,
			PricePerLiter: in.PricePerLiter,
			TotalAmount:   total,
			AmountPaid:    amountPaid,
			PaymentStatus: in.PaymentStatus,
			RecordedAt:    now,
		}

		owed := total.Sub(amountPaid)
		if owed.IsPositive() {
			if err := credit.Charge(ctx, ledger.Entry{
				ID:             ledger.EntryID(newID("ent")),
				HolderKind:     ledger.HolderSupplier,
				HolderID:       ledger.HolderID(in.SupplierID),
				Amount:         owed,
				ReferenceID:    refill.ID,
				Reason:         "refill balance",
				Note:           in.Note,
				IdempotencyKey: fmt.Sprintf("charge-%s", refill.ID),
				RecordedAt:     now,
			}); err != nil {
				return err
			}
		}

		tank, err = tanks.ApplyRefill(ctx, in.Liters)
		if err != nil {
			return err
		}

		supplier.TotalSupplied = supplier.TotalSupplied.Add(in.Liters)
		supplier.TotalPaid = supplier.TotalPaid.Add(amountPaid)
		if err := s.SaveSupplier(ctx, supplier); err != nil {
			return err
		}

		return s.RecordRefill(ctx, refill)
	})
	if err != nil {
		return inventory.Tank{}, err
	}

	e.log.Info("tank refilled",
		zap.String("refill_id", refill.ID),
		zap.String("supplier_id", in.SupplierID),
		zap.String("liters", in.Liters.String()),
		zap.String("level", tank.CurrentLevel.String()),
	)
	return tank, nil
}

// FillBottles draws the tank down into empty bottles, one bottle capacity
// each, and marks them filled. A batch with one non-empty bottle or not
// enough gas in the tank changes nothing.
func (e *Engine) FillBottles(ctx context.Context, ids []inventory.BottleID) (inventory.Tank, error) {
	if len(ids) == 0 {
		return inventory.Tank{}, ledger.Invalidf("bottle_ids", "at least one bottle is required")
	}

	var tank inventory.Tank
	err := e.store.WithTx(ctx, func(s Store) error {
		registry := inventory.NewRegistry(s)
		tanks := inventory.NewController(s)

		needed := ledger.ZeroQuantity()
		for _, id := range ids {
			b, err := s.GetBottle(ctx, id)
			if err != nil {
				return err
			}
			if b.Status != inventory.StatusEmpty {
				return &inventory.InvalidTransitionError{BottleID: id, From: b.Status, Op: "fill"}
			}
			needed = needed.Add(b.CapacityLiters)
		}

		var err error
		tank, err = tanks.Consume(ctx, needed)
		if err != nil {
			return err
		}

		for _, id := range ids {
			if _, err := registry.MarkFilled(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return inventory.Tank{}, err
	}

	e.log.Info("bottles filled",
		zap.Int("count", len(ids)),
		zap.String("level", tank.CurrentLevel.String()),
	)
	return tank, nil
}

// =============================================================================
// RETURNS / PAYMENTS / POINTS
// =============================================================================

// ReturnBottles takes bottles back from a customer. Returns carry no
// ledger effect; paying down credit is a separate CollectPayment call.
func (e *Engine) ReturnBottles(ctx context.Context, customerID string, ids []inventory.BottleID) error {
	err := e.store.WithTx(ctx, func(s Store) error {
		if _, err := s.GetCustomer(ctx, customerID); err != nil {
			return err
		}
		registry := inventory.NewRegistry(s)
		_, err := registry.BulkReturn(ctx, customerID, ids)
		return err
	})
	if err != nil {
		return err
	}

	e.log.Info("bottles returned",
		zap.String("customer_id", customerID),
		zap.Int("count", len(ids)),
	)
	return nil
}

// CollectPayment settles part of a holder's balance and records the
// immutable payment entry. Supplier settlements also advance the
// supplier's cumulative TotalPaid. Returns the balance after settlement.
func (e *Engine) CollectPayment(ctx context.Context, in PaymentInput) (ledger.Money, error) {
	if !in.Method.Valid() || in.Method == ledger.PayCredit {
		return ledger.Money{}, ledger.Invalidf("payment_method", "unknown method %q", in.Method)
	}

	var balance ledger.Money
	err := e.store.WithTx(ctx, func(s Store) error {
		credit := ledger.New(s)

		switch in.HolderKind {
		case ledger.HolderCustomer:
			if _, err := s.GetCustomer(ctx, in.HolderID); err != nil {
				return err
			}
		case ledger.HolderSupplier:
			if _, err := s.GetSupplier(ctx, in.HolderID); err != nil {
				return err
			}
		default:
			return ledger.Invalidf("holder_kind", "unknown kind %q", in.HolderKind)
		}

		now := time.Now().UTC()
		if err := credit.Settle(ctx, ledger.Entry{
			ID:          ledger.EntryID(newID("ent")),
			HolderKind:  in.HolderKind,
			HolderID:    ledger.HolderID(in.HolderID),
			Amount:      in.Amount,
			Method:      in.Method,
			ReferenceID: in.Reference,
			Reason:      "payment collected",
			Note:        in.Note,
			RecordedAt:  now,
		}); err != nil {
			return err
		}

		if in.HolderKind == ledger.HolderSupplier {
			supplier, err := s.GetSupplier(ctx, in.HolderID)
			if err != nil {
				return err
			}
			supplier.TotalPaid = supplier.TotalPaid.Add(in.Amount)
			if err := s.SaveSupplier(ctx, supplier); err != nil {
				return err
			}
		}

		var err error
		balance, err = credit.Balance(ctx, in.HolderKind, ledger.HolderID(in.HolderID))
		return err
	})
	if err != nil {
		return ledger.Money{}, err
	}

	e.log.Info("payment collected",
		zap.String("holder_kind", string(in.HolderKind)),
		zap.String("holder_id", in.HolderID),
		zap.String("amount", in.Amount.String()),
		zap.String("balance", balance.String()),
	)
	return balance, nil
}

// RedeemPoints is the only operation that decreases loyalty points.
func (e *Engine) RedeemPoints(ctx context.Context, customerID string, points int64) (Customer, error) {
	if points <= 0 {
		return Customer{}, ledger.Invalidf("points", "must be positive, got %d", points)
	}

	var customer Customer
	err := e.store.WithTx(ctx, func(s Store) error {
		var err error
		customer, err = s.GetCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		if points > customer.LoyaltyPoints {
			return ledger.Invalidf("points", "customer holds %d points, cannot redeem %d",
				customer.LoyaltyPoints, points)
		}
		customer.LoyaltyPoints -= points
		return s.SaveCustomer(ctx, customer)
	})
	if err != nil {
		return Customer{}, err
	}

	e.log.Info("points redeemed",
		zap.String("customer_id", customerID),
		zap.Int64("points", points),
	)
	return customer, nil
}

// =============================================================================
// ACCOUNT VIEWS
// =============================================================================

// CustomerAccount returns a customer joined with their replayed credit.
func (e *Engine) CustomerAccount(ctx context.Context, id string) (CustomerAccount, error) {
	c, err := e.store.GetCustomer(ctx, id)
	if err != nil {
		return CustomerAccount{}, err
	}
	balance, err := ledger.New(e.store).Balance(ctx, ledger.HolderCustomer, ledger.HolderID(id))
	if err != nil {
		return CustomerAccount{}, err
	}
	return CustomerAccount{Customer: c, TotalCredit: balance}, nil
}

// SupplierAccount returns a supplier joined with their replayed balance.
func (e *Engine) SupplierAccount(ctx context.Context, id string) (SupplierAccount, error) {
	s, err := e.store.GetSupplier(ctx, id)
	if err != nil {
		return SupplierAccount{}, err
	}
	balance, err := ledger.New(e.store).Balance(ctx, ledger.HolderSupplier, ledger.HolderID(id))
	if err != nil {
		return SupplierAccount{}, err
	}
	return SupplierAccount{Supplier: s, TotalOutstanding: balance}, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func validateSaleInput(in SaleInput) error {
	if !in.PaymentMethod.Valid() {
		return ledger.Invalidf("payment_method", "unknown method %q", in.PaymentMethod)
	}
	if len(in.Items) == 0 {
		return ledger.Invalidf("items", "at least one item is required")
	}
	if in.Tax.IsNegative() {
		return ledger.Invalidf("tax", "must not be negative")
	}
	if in.Discount.IsNegative() {
		return ledger.Invalidf("discount", "must not be negative")
	}
	if in.AmountPaid.IsNegative() {
		return ledger.Invalidf("amount_paid", "must not be negative")
	}
	for i, it := range in.Items {
		if it.Quantity <= 0 {
			return ledger.Invalidf("items", "item %d: quantity must be positive", i)
		}
		if it.UnitPrice.IsNegative() {
			return ledger.Invalidf("items", "item %d: unit price must not be negative", i)
		}
		if len(it.BottleIDs) > 0 {
			if len(it.BottleIDs) != it.Quantity {
				return ledger.Invalidf("items",
					"item %d: %d bottles for quantity %d", i, len(it.BottleIDs), it.Quantity)
			}
			if in.CustomerID == "" {
				return ledger.Invalidf("customer_id", "required for bottle-backed items")
			}
		}
	}
	return nil
}
