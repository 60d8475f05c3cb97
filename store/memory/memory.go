/*
Package memory provides an in-memory engine.TxStore.

PURPOSE:
  Backs tests and local development. Transactions are simulated with a
  full snapshot before the function runs and a restore on error, which
  gives the same all-or-nothing behavior as the SQLite store.

NOT FOR PRODUCTION:
  Snapshot-per-transaction copies the whole state. Fine for tests, wrong
  for a depot with a real fleet.

SEE ALSO:
  - store/sqlite: Production implementation
*/
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/depot-engine/engine"
	"github.com/warp/depot-engine/inventory"
	"github.com/warp/depot-engine/ledger"
)

type entryKey struct {
	Kind     ledger.HolderKind
	HolderID ledger.HolderID
}

// Store holds the whole depot state in maps guarded by one mutex.
type Store struct {
	mu sync.RWMutex

	tank        inventory.Tank
	bottles     map[inventory.BottleID]inventory.Bottle
	serials     map[string]inventory.BottleID
	customers   map[string]engine.Customer
	suppliers   map[string]engine.Supplier
	sales       map[string]engine.Sale
	saleOrder   []string
	refills     []engine.Refill
	entries     map[entryKey][]ledger.Entry
	idempotency map[string]bool
}

// New creates a store with an empty fleet and a tank of the given capacity.
func New(tankCapacity ledger.Quantity) *Store {
	return &Store{
		tank:        inventory.Tank{CurrentLevel: ledger.ZeroQuantity(), Capacity: tankCapacity},
		bottles:     make(map[inventory.BottleID]inventory.Bottle),
		serials:     make(map[string]inventory.BottleID),
		customers:   make(map[string]engine.Customer),
		suppliers:   make(map[string]engine.Supplier),
		sales:       make(map[string]engine.Sale),
		entries:     make(map[entryKey][]ledger.Entry),
		idempotency: make(map[string]bool),
	}
}

// =============================================================================
// TRANSACTIONS - snapshot + restore
// =============================================================================

func (m *Store) WithTx(ctx context.Context, fn func(engine.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&txView{parent: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	tank        inventory.Tank
	bottles     map[inventory.BottleID]inventory.Bottle
	serials     map[string]inventory.BottleID
	customers   map[string]engine.Customer
	suppliers   map[string]engine.Supplier
	sales       map[string]engine.Sale
	saleOrder   []string
	refills     []engine.Refill
	entries     map[entryKey][]ledger.Entry
	idempotency map[string]bool
}

func (m *Store) snapshot() snapshot {
	s := snapshot{
		tank:        m.tank,
		bottles:     make(map[inventory.BottleID]inventory.Bottle, len(m.bottles)),
		serials:     make(map[string]inventory.BottleID, len(m.serials)),
		customers:   make(map[string]engine.Customer, len(m.customers)),
		suppliers:   make(map[string]engine.Supplier, len(m.suppliers)),
		sales:       make(map[string]engine.Sale, len(m.sales)),
		saleOrder:   append([]string{}, m.saleOrder...),
		refills:     append([]engine.Refill{}, m.refills...),
		entries:     make(map[entryKey][]ledger.Entry, len(m.entries)),
		idempotency: make(map[string]bool, len(m.idempotency)),
	}
	for k, v := range m.bottles {
		s.bottles[k] = v
	}
	for k, v := range m.serials {
		s.serials[k] = v
	}
	for k, v := range m.customers {
		s.customers[k] = v
	}
	for k, v := range m.suppliers {
		s.suppliers[k] = v
	}
	for k, v := range m.sales {
		s.sales[k] = v
	}
	for k, v := range m.entries {
		s.entries[k] = append([]ledger.Entry{}, v...)
	}
	for k, v := range m.idempotency {
		s.idempotency[k] = v
	}
	return s
}

func (m *Store) restore(s snapshot) {
	m.tank = s.tank
	m.bottles = s.bottles
	m.serials = s.serials
	m.customers = s.customers
	m.suppliers = s.suppliers
	m.sales = s.sales
	m.saleOrder = s.saleOrder
	m.refills = s.refills
	m.entries = s.entries
	m.idempotency = s.idempotency
}

// =============================================================================
// LEDGER ENTRIES
// =============================================================================

func (m *Store) AppendEntry(_ context.Context, e ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendEntryLocked(e)
}

func (m *Store) AppendEntries(_ context.Context, es []ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range es {
		if e.IdempotencyKey != "" && m.idempotency[e.IdempotencyKey] {
			return ledger.ErrDuplicateIdempotencyKey
		}
	}
	for _, e := range es {
		if err := m.appendEntryLocked(e); err != nil {
			return err
		}
	}
	return nil
}

func (m *Store) appendEntryLocked(e ledger.Entry) error {
	if e.IdempotencyKey != "" && m.idempotency[e.IdempotencyKey] {
		return ledger.ErrDuplicateIdempotencyKey
	}
	k := entryKey{Kind: e.HolderKind, HolderID: e.HolderID}
	m.entries[k] = append(m.entries[k], e)
	if e.IdempotencyKey != "" {
		m.idempotency[e.IdempotencyKey] = true
	}
	return nil
}

func (m *Store) Entries(_ context.Context, kind ledger.HolderKind, holderID ledger.HolderID) ([]ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k := entryKey{Kind: kind, HolderID: holderID}
	out := make([]ledger.Entry, len(m.entries[k]))
	copy(out, m.entries[k])
	return out, nil
}

func (m *Store) EntryExists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idempotency[key], nil
}

// =============================================================================
// BOTTLES
// =============================================================================

func (m *Store) CreateBottle(_ context.Context, b inventory.Bottle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createBottleLocked(b)
}

func (m *Store) createBottleLocked(b inventory.Bottle) error {
	if _, ok := m.bottles[b.ID]; ok {
		return engine.ErrDuplicateID
	}
	if _, ok := m.serials[b.SerialNumber]; ok {
		return inventory.ErrDuplicateSerial
	}
	m.bottles[b.ID] = b
	m.serials[b.SerialNumber] = b.ID
	return nil
}

func (m *Store) GetBottle(_ context.Context, id inventory.BottleID) (inventory.Bottle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getBottleLocked(id)
}

func (m *Store) getBottleLocked(id inventory.BottleID) (inventory.Bottle, error) {
	b, ok := m.bottles[id]
	if !ok {
		return inventory.Bottle{}, inventory.ErrBottleNotFound
	}
	return b, nil
}

func (m *Store) SaveBottle(_ context.Context, b inventory.Bottle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveBottleLocked(b)
}

func (m *Store) saveBottleLocked(b inventory.Bottle) error {
	if _, ok := m.bottles[b.ID]; !ok {
		return inventory.ErrBottleNotFound
	}
	m.bottles[b.ID] = b
	return nil
}

func (m *Store) ListBottles(_ context.Context, status inventory.BottleStatus) ([]inventory.Bottle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listBottlesLocked(status), nil
}

func (m *Store) listBottlesLocked(status inventory.BottleStatus) []inventory.Bottle {
	var out []inventory.Bottle
	for _, b := range m.bottles {
		if status == "" || b.Status == status {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SerialNumber < out[j].SerialNumber })
	return out
}

func (m *Store) ListBottlesByCustomer(_ context.Context, customerID string) ([]inventory.Bottle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listByCustomerLocked(customerID), nil
}

func (m *Store) listByCustomerLocked(customerID string) []inventory.Bottle {
	var out []inventory.Bottle
	for _, b := range m.bottles {
		if b.Status == inventory.StatusWithCustomer && b.CustomerID == customerID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SerialNumber < out[j].SerialNumber })
	return out
}

// =============================================================================
// TANK
// =============================================================================

func (m *Store) GetTank(_ context.Context) (inventory.Tank, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tank, nil
}

func (m *Store) SaveTank(_ context.Context, t inventory.Tank) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tank = t
	return nil
}

// =============================================================================
// CUSTOMERS / SUPPLIERS
// =============================================================================

func (m *Store) CreateCustomer(_ context.Context, c engine.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.customers[c.ID]; ok {
		return engine.ErrDuplicateID
	}
	m.customers[c.ID] = c
	return nil
}

func (m *Store) GetCustomer(_ context.Context, id string) (engine.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.customers[id]
	if !ok {
		return engine.Customer{}, engine.ErrCustomerNotFound
	}
	return c, nil
}

func (m *Store) SaveCustomer(_ context.Context, c engine.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.customers[c.ID]; !ok {
		return engine.ErrCustomerNotFound
	}
	m.customers[c.ID] = c
	return nil
}

func (m *Store) ListCustomers(_ context.Context) ([]engine.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]engine.Customer, 0, len(m.customers))
	for _, c := range m.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Store) CreateSupplier(_ context.Context, s engine.Supplier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.suppliers[s.ID]; ok {
		return engine.ErrDuplicateID
	}
	m.suppliers[s.ID] = s
	return nil
}

func (m *Store) GetSupplier(_ context.Context, id string) (engine.Supplier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.suppliers[id]
	if !ok {
		return engine.Supplier{}, engine.ErrSupplierNotFound
	}
	return s, nil
}

func (m *Store) SaveSupplier(_ context.Context, s engine.Supplier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.suppliers[s.ID]; !ok {
		return engine.ErrSupplierNotFound
	}
	m.suppliers[s.ID] = s
	return nil
}

func (m *Store) ListSuppliers(_ context.Context) ([]engine.Supplier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]engine.Supplier, 0, len(m.suppliers))
	for _, s := range m.suppliers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// SALES / REFILLS
// =============================================================================

func (m *Store) CreateSale(_ context.Context, s engine.Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sales[s.ID]; ok {
		return engine.ErrDuplicateID
	}
	m.sales[s.ID] = s
	m.saleOrder = append(m.saleOrder, s.ID)
	return nil
}

func (m *Store) GetSale(_ context.Context, id string) (engine.Sale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sales[id]
	if !ok {
		return engine.Sale{}, engine.ErrSaleNotFound
	}
	return s, nil
}

func (m *Store) SaveSale(_ context.Context, s engine.Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sales[s.ID]; !ok {
		return engine.ErrSaleNotFound
	}
	m.sales[s.ID] = s
	return nil
}

func (m *Store) ListSales(_ context.Context) ([]engine.Sale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]engine.Sale, 0, len(m.saleOrder))
	for _, id := range m.saleOrder {
		out = append(out, m.sales[id])
	}
	return out, nil
}

func (m *Store) RecordRefill(_ context.Context, r engine.Refill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refills = append(m.refills, r)
	return nil
}

func (m *Store) ListRefills(_ context.Context, supplierID string) ([]engine.Refill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.Refill
	for _, r := range m.refills {
		if supplierID == "" || r.SupplierID == supplierID {
			out = append(out, r)
		}
	}
	return out, nil
}
