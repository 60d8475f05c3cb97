/*
admin.go - Registration of customers, suppliers, and bottles

PURPOSE:
  Simple single-write operations that bring new parties and fleet units
  into the depot. Kept out of engine.go because they are not composite
  transactions: each is one validated insert.
*/
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/warp/depot-engine/inventory"
	"github.com/warp/depot-engine/ledger"
)

// RegisterCustomer creates a customer. An empty ID is minted.
func (e *Engine) RegisterCustomer(ctx context.Context, id, name, phone string) (Customer, error) {
	if name == "" {
		return Customer{}, ledger.Invalidf("name", "must not be empty")
	}
	if id == "" {
		id = newID("cust")
	}
	c := Customer{
		ID:        id,
		Name:      name,
		Phone:     phone,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.store.CreateCustomer(ctx, c); err != nil {
		return Customer{}, err
	}
	e.log.Info("customer registered", zap.String("customer_id", c.ID))
	return c, nil
}

// RegisterSupplier creates a supplier. An empty ID is minted.
func (e *Engine) RegisterSupplier(ctx context.Context, id, name, phone string) (Supplier, error) {
	if name == "" {
		return Supplier{}, ledger.Invalidf("name", "must not be empty")
	}
	if id == "" {
		id = newID("supp")
	}
	s := Supplier{
		ID:            id,
		Name:          name,
		Phone:         phone,
		TotalSupplied: ledger.ZeroQuantity(),
		TotalPaid:     ledger.ZeroMoney(),
		CreatedAt:     time.Now().UTC(),
	}
	if err := e.store.CreateSupplier(ctx, s); err != nil {
		return Supplier{}, err
	}
	e.log.Info("supplier registered", zap.String("supplier_id", s.ID))
	return s, nil
}

// RegisterBottle adds a bottle to the fleet. New bottles always start
// empty; serial numbers must be unique across the fleet.
func (e *Engine) RegisterBottle(ctx context.Context, serial string, capacity ledger.Quantity) (inventory.Bottle, error) {
	registry := inventory.NewRegistry(e.store)
	b, err := registry.Register(ctx, inventory.Bottle{
		ID:             inventory.BottleID(newID("btl")),
		SerialNumber:   serial,
		CapacityLiters: capacity,
	})
	if err != nil {
		return inventory.Bottle{}, err
	}
	e.log.Info("bottle registered",
		zap.String("bottle_id", string(b.ID)),
		zap.String("serial", b.SerialNumber))
	return b, nil
}
