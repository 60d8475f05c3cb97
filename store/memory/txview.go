package memory

import (
	"context"
	"sort"

	"github.com/warp/depot-engine/engine"
	"github.com/warp/depot-engine/inventory"
	"github.com/warp/depot-engine/ledger"
)

// txView is the engine.Store handed to WithTx callbacks. The parent mutex
// is already held for the whole transaction, so the view touches parent
// state directly without re-locking.
type txView struct {
	parent *Store
}

// Ledger entries

func (tv *txView) AppendEntry(_ context.Context, e ledger.Entry) error {
	return tv.parent.appendEntryLocked(e)
}

func (tv *txView) AppendEntries(_ context.Context, es []ledger.Entry) error {
	for _, e := range es {
		if err := tv.parent.appendEntryLocked(e); err != nil {
			return err
		}
	}
	return nil
}

func (tv *txView) Entries(_ context.Context, kind ledger.HolderKind, holderID ledger.HolderID) ([]ledger.Entry, error) {
	k := entryKey{Kind: kind, HolderID: holderID}
	return tv.parent.entries[k], nil
}

func (tv *txView) EntryExists(_ context.Context, key string) (bool, error) {
	return tv.parent.idempotency[key], nil
}

// Bottles

func (tv *txView) CreateBottle(_ context.Context, b inventory.Bottle) error {
	return tv.parent.createBottleLocked(b)
}

func (tv *txView) GetBottle(_ context.Context, id inventory.BottleID) (inventory.Bottle, error) {
	return tv.parent.getBottleLocked(id)
}

func (tv *txView) SaveBottle(_ context.Context, b inventory.Bottle) error {
	return tv.parent.saveBottleLocked(b)
}

func (tv *txView) ListBottles(_ context.Context, status inventory.BottleStatus) ([]inventory.Bottle, error) {
	return tv.parent.listBottlesLocked(status), nil
}

func (tv *txView) ListBottlesByCustomer(_ context.Context, customerID string) ([]inventory.Bottle, error) {
	return tv.parent.listByCustomerLocked(customerID), nil
}

// Tank

func (tv *txView) GetTank(_ context.Context) (inventory.Tank, error) {
	return tv.parent.tank, nil
}

func (tv *txView) SaveTank(_ context.Context, t inventory.Tank) error {
	tv.parent.tank = t
	return nil
}

// Customers

func (tv *txView) CreateCustomer(_ context.Context, c engine.Customer) error {
	if _, ok := tv.parent.customers[c.ID]; ok {
		return engine.ErrDuplicateID
	}
	tv.parent.customers[c.ID] = c
	return nil
}

func (tv *txView) GetCustomer(_ context.Context, id string) (engine.Customer, error) {
	c, ok := tv.parent.customers[id]
	if !ok {
		return engine.Customer{}, engine.ErrCustomerNotFound
	}
	return c, nil
}

func (tv *txView) SaveCustomer(_ context.Context, c engine.Customer) error {
	if _, ok := tv.parent.customers[c.ID]; !ok {
		return engine.ErrCustomerNotFound
	}
	tv.parent.customers[c.ID] = c
	return nil
}

func (tv *txView) ListCustomers(_ context.Context) ([]engine.Customer, error) {
	out := make([]engine.Customer, 0, len(tv.parent.customers))
	for _, c := range tv.parent.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Suppliers

func (tv *txView) CreateSupplier(_ context.Context, s engine.Supplier) error {
	if _, ok := tv.parent.suppliers[s.ID]; ok {
		return engine.ErrDuplicateID
	}
	tv.parent.suppliers[s.ID] = s
	return nil
}

func (tv *txView) GetSupplier(_ context.Context, id string) (engine.Supplier, error) {
	s, ok := tv.parent.suppliers[id]
	if !ok {
		return engine.Supplier{}, engine.ErrSupplierNotFound
	}
	return s, nil
}

func (tv *txView) SaveSupplier(_ context.Context, s engine.Supplier) error {
	if _, ok := tv.parent.suppliers[s.ID]; !ok {
		return engine.ErrSupplierNotFound
	}
	tv.parent.suppliers[s.ID] = s
	return nil
}

func (tv *txView) ListSuppliers(_ context.Context) ([]engine.Supplier, error) {
	out := make([]engine.Supplier, 0, len(tv.parent.suppliers))
	for _, s := range tv.parent.suppliers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Sales

func (tv *txView) CreateSale(_ context.Context, s engine.Sale) error {
	if _, ok := tv.parent.sales[s.ID]; ok {
		return engine.ErrDuplicateID
	}
	tv.parent.sales[s.ID] = s
	tv.parent.saleOrder = append(tv.parent.saleOrder, s.ID)
	return nil
}

func (tv *txView) GetSale(_ context.Context, id string) (engine.Sale, error) {
	s, ok := tv.parent.sales[id]
	if !ok {
		return engine.Sale{}, engine.ErrSaleNotFound
	}
	return s, nil
}

func (tv *txView) SaveSale(_ context.Context, s engine.Sale) error {
	if _, ok := tv.parent.sales[s.ID]; !ok {
		return engine.ErrSaleNotFound
	}
	tv.parent.sales[s.ID] = s
	return nil
}

func (tv *txView) ListSales(_ context.Context) ([]engine.Sale, error) {
	out := make([]engine.Sale, 0, len(tv.parent.saleOrder))
	for _, id := range tv.parent.saleOrder {
		out = append(out, tv.parent.sales[id])
	}
	return out, nil
}

// Refills

func (tv *txView) RecordRefill(_ context.Context, r engine.Refill) error {
	tv.parent.refills = append(tv.parent.refills, r)
	return nil
}

func (tv *txView) ListRefills(_ context.Context, supplierID string) ([]engine.Refill, error) {
	var out []engine.Refill
	for _, r := range tv.parent.refills {
		if supplierID == "" || r.SupplierID == supplierID {
			out = append(out, r)
		}
	}
	return out, nil
}
