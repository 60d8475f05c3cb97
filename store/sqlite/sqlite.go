/*
Package sqlite provides the SQLite-backed engine.TxStore.

PURPOSE:
  Implements the full persistence surface (credit entries, bottles, tank,
  customers, suppliers, sales, refills) on database/sql with the
  mattn/go-sqlite3 driver. In production, the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  credit_entries and refills never see an UPDATE or DELETE statement.
  Corrections are reversal entries.

KEY TABLES:
  credit_entries: Immutable ledger of all balance changes
  refills:        Append-only tank intake log
  bottles:        Fleet records (status + attribution mutate)
  tank:           Single-row bulk tank level
  customers, suppliers, sales: Entity records

INDEXES:
  - idx_entries_holder:      Balance replay (hot path)
  - idx_entries_idempotency: Retry safety
  - idx_bottles_customer:    Bottles-held-by-customer lookups
  - UNIQUE(serial_number):   Fleet serial uniqueness

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

TRANSACTIONS:
  WithTx wraps the callback in one sql.Tx. Every read and write a
  composite operation performs goes through the same transaction; an
  error rolls all of it back.

USAGE:
  st, err := sqlite.New("./data/depot.db", ledger.NewQuantity(1000))
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

  eng := engine.New(st, logger)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - engine/store.go: Interface definitions
  - store/memory:    In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/depot-engine/engine"
	"github.com/warp/depot-engine/inventory"
	"github.com/warp/depot-engine/ledger"
)

// Store implements engine.TxStore using SQLite.
type Store struct {
	db *sql.DB
	queries
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New opens (or creates) the database, migrates the schema, and seeds the
// single tank row with the given capacity if it doesn't exist yet.
// Use ":memory:" for an in-memory database.
func New(dbPath string, tankCapacity ledger.Quantity) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, queries: queries{q: db}}
	if err := store.migrate(tankCapacity); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx runs fn inside a single SQL transaction.
func (s *Store) WithTx(ctx context.Context, fn func(engine.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&queries{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// migrate creates the database schema.
func (s *Store) migrate(tankCapacity ledger.Quantity) error {
	schema := `
	-- Credit entries (append-only ledger)
	CREATE TABLE IF NOT EXISTS credit_entries (
		id TEXT PRIMARY KEY,
		holder_kind TEXT NOT NULL,
		holder_id TEXT NOT NULL,
		entry_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		method TEXT NOT NULL DEFAULT '',
		reference_id TEXT NOT NULL DEFAULT '',
		reason TEXT NOT NULL DEFAULT '',
		note TEXT NOT NULL DEFAULT '',
		idempotency_key TEXT UNIQUE,
		recorded_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_holder
		ON credit_entries(holder_kind, holder_id);
	CREATE INDEX IF NOT EXISTS idx_entries_reference
		ON credit_entries(reference_id) WHERE reference_id != '';

	-- Bottles (fleet)
	CREATE TABLE IF NOT EXISTS bottles (
		id TEXT PRIMARY KEY,
		serial_number TEXT NOT NULL UNIQUE,
		capacity_liters TEXT NOT NULL,
		status TEXT NOT NULL,
		customer_id TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_bottles_status ON bottles(status);
	CREATE INDEX IF NOT EXISTS idx_bottles_customer
		ON bottles(customer_id) WHERE customer_id != '';

	-- Tank (single row)
	CREATE TABLE IF NOT EXISTS tank (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		current_level TEXT NOT NULL,
		capacity TEXT NOT NULL
	);

	-- Customers
	CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		loyalty_points INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	-- Suppliers
	CREATE TABLE IF NOT EXISTS suppliers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		total_supplied TEXT NOT NULL,
		total_paid TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Sales (only status and cancelled_at mutate, via cancellation)
	CREATE TABLE IF NOT EXISTS sales (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL DEFAULT '',
		items_json TEXT NOT NULL,
		subtotal TEXT NOT NULL,
		tax TEXT NOT NULL,
		discount TEXT NOT NULL,
		total TEXT NOT NULL,
		amount_paid TEXT NOT NULL,
		credit_charged TEXT NOT NULL,
		points_earned INTEGER NOT NULL DEFAULT 0,
		payment_method TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		cancelled_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sales_customer
		ON sales(customer_id) WHERE customer_id != '';

	-- Refills (append-only intake log)
	CREATE TABLE IF NOT EXISTS refills (
		id TEXT PRIMARY KEY,
		supplier_id TEXT NOT NULL,
		liters TEXT NOT NULL,
		price_per_liter TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		amount_paid TEXT NOT NULL,
		payment_status TEXT NOT NULL,
		recorded_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_refills_supplier ON refills(supplier_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	_, err := s.db.Exec(
		`INSERT INTO tank (id, current_level, capacity) VALUES (1, '0', ?)
		 ON CONFLICT(id) DO NOTHING`,
		tankCapacity.Value.String(),
	)
	return err
}

// =============================================================================
// QUERIES - engine.Store methods over either *sql.DB or *sql.Tx
// =============================================================================

type queries struct {
	q dbtx
}

// --- Ledger entries ---

func (s *queries) AppendEntry(ctx context.Context, e ledger.Entry) error {
	if e.IdempotencyKey != "" {
		exists, err := s.EntryExists(ctx, e.IdempotencyKey)
		if err != nil {
			return err
		}
		if exists {
			return ledger.ErrDuplicateIdempotencyKey
		}
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO credit_entries
		 (id, holder_kind, holder_id, entry_type, amount, method, reference_id, reason, note, idempotency_key, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(e.ID), string(e.HolderKind), string(e.HolderID), string(e.Type),
		e.Amount.Value.String(), string(e.Method), e.ReferenceID, e.Reason, e.Note,
		nullIfEmpty(e.IdempotencyKey), e.RecordedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ledger.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("%w: %v", ledger.ErrEntryFailed, err)
	}
	return nil
}

func (s *queries) AppendEntries(ctx context.Context, es []ledger.Entry) error {
	for _, e := range es {
		if err := s.AppendEntry(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (s *queries) Entries(ctx context.Context, kind ledger.HolderKind, holderID ledger.HolderID) ([]ledger.Entry, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, holder_kind, holder_id, entry_type, amount, method, reference_id, reason, note,
		        COALESCE(idempotency_key, ''), recorded_at
		 FROM credit_entries
		 WHERE holder_kind = ? AND holder_id = ?
		 ORDER BY rowid`,
		string(kind), string(holderID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		var e ledger.Entry
		var id, hk, hid, typ, amount, method, recordedAt string
		if err := rows.Scan(&id, &hk, &hid, &typ, &amount, &method,
			&e.ReferenceID, &e.Reason, &e.Note, &e.IdempotencyKey, &recordedAt); err != nil {
			return nil, err
		}
		e.ID = ledger.EntryID(id)
		e.HolderKind = ledger.HolderKind(hk)
		e.HolderID = ledger.HolderID(hid)
		e.Type = ledger.EntryType(typ)
		e.Method = ledger.PaymentMethod(method)
		if e.Amount, err = parseMoney(amount); err != nil {
			return nil, err
		}
		if e.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *queries) EntryExists(ctx context.Context, idempotencyKey string) (bool, error) {
	var one int
	err := s.q.QueryRowContext(ctx,
		`SELECT 1 FROM credit_entries WHERE idempotency_key = ?`, idempotencyKey,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// --- Bottles ---

func (s *queries) CreateBottle(ctx context.Context, b inventory.Bottle) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO bottles (id, serial_number, capacity_liters, status, customer_id)
		 VALUES (?, ?, ?, ?, ?)`,
		string(b.ID), b.SerialNumber, b.CapacityLiters.Value.String(), string(b.Status), b.CustomerID,
	)
	if err != nil && isUniqueViolation(err) {
		return inventory.ErrDuplicateSerial
	}
	return err
}

func (s *queries) GetBottle(ctx context.Context, id inventory.BottleID) (inventory.Bottle, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT id, serial_number, capacity_liters, status, customer_id
		 FROM bottles WHERE id = ?`, string(id),
	)
	return scanBottle(row)
}

func (s *queries) SaveBottle(ctx context.Context, b inventory.Bottle) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE bottles SET status = ?, customer_id = ? WHERE id = ?`,
		string(b.Status), b.CustomerID, string(b.ID),
	)
	if err != nil {
		return err
	}
	return mustAffect(res, inventory.ErrBottleNotFound)
}

func (s *queries) ListBottles(ctx context.Context, status inventory.BottleStatus) ([]inventory.Bottle, error) {
	query := `SELECT id, serial_number, capacity_liters, status, customer_id
	          FROM bottles ORDER BY serial_number`
	args := []any{}
	if status != "" {
		query = `SELECT id, serial_number, capacity_liters, status, customer_id
		         FROM bottles WHERE status = ? ORDER BY serial_number`
		args = append(args, string(status))
	}
	return s.queryBottles(ctx, query, args...)
}

func (s *queries) ListBottlesByCustomer(ctx context.Context, customerID string) ([]inventory.Bottle, error) {
	return s.queryBottles(ctx,
		`SELECT id, serial_number, capacity_liters, status, customer_id
		 FROM bottles WHERE customer_id = ? AND status = ? ORDER BY serial_number`,
		customerID, string(inventory.StatusWithCustomer),
	)
}

func (s *queries) queryBottles(ctx context.Context, query string, args ...any) ([]inventory.Bottle, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bottles []inventory.Bottle
	for rows.Next() {
		b, err := scanBottle(rows)
		if err != nil {
			return nil, err
		}
		bottles = append(bottles, b)
	}
	return bottles, rows.Err()
}

// --- Tank ---

func (s *queries) GetTank(ctx context.Context) (inventory.Tank, error) {
	var level, capacity string
	err := s.q.QueryRowContext(ctx,
		`SELECT current_level, capacity FROM tank WHERE id = 1`,
	).Scan(&level, &capacity)
	if err != nil {
		return inventory.Tank{}, err
	}
	var t inventory.Tank
	if t.CurrentLevel, err = parseQuantity(level); err != nil {
		return inventory.Tank{}, err
	}
	if t.Capacity, err = parseQuantity(capacity); err != nil {
		return inventory.Tank{}, err
	}
	return t, nil
}

func (s *queries) SaveTank(ctx context.Context, t inventory.Tank) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE tank SET current_level = ?, capacity = ? WHERE id = 1`,
		t.CurrentLevel.Value.String(), t.Capacity.Value.String(),
	)
	return err
}

// --- Customers ---

func (s *queries) CreateCustomer(ctx context.Context, c engine.Customer) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO customers (id, name, phone, loyalty_points, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Phone, c.LoyaltyPoints, c.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil && isUniqueViolation(err) {
		return engine.ErrDuplicateID
	}
	return err
}

func (s *queries) GetCustomer(ctx context.Context, id string) (engine.Customer, error) {
	var c engine.Customer
	var createdAt string
	err := s.q.QueryRowContext(ctx,
		`SELECT id, name, phone, loyalty_points, created_at FROM customers WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Phone, &c.LoyaltyPoints, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.Customer{}, engine.ErrCustomerNotFound
	}
	if err != nil {
		return engine.Customer{}, err
	}
	c.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	return c, err
}

func (s *queries) SaveCustomer(ctx context.Context, c engine.Customer) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE customers SET name = ?, phone = ?, loyalty_points = ? WHERE id = ?`,
		c.Name, c.Phone, c.LoyaltyPoints, c.ID,
	)
	if err != nil {
		return err
	}
	return mustAffect(res, engine.ErrCustomerNotFound)
}

func (s *queries) ListCustomers(ctx context.Context) ([]engine.Customer, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, name, phone, loyalty_points, created_at FROM customers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []engine.Customer
	for rows.Next() {
		var c engine.Customer
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.LoyaltyPoints, &createdAt); err != nil {
			return nil, err
		}
		if c.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// --- Suppliers ---

func (s *queries) CreateSupplier(ctx context.Context, sup engine.Supplier) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO suppliers (id, name, phone, total_supplied, total_paid, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sup.ID, sup.Name, sup.Phone,
		sup.TotalSupplied.Value.String(), sup.TotalPaid.Value.String(),
		sup.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil && isUniqueViolation(err) {
		return engine.ErrDuplicateID
	}
	return err
}

func (s *queries) GetSupplier(ctx context.Context, id string) (engine.Supplier, error) {
	var sup engine.Supplier
	var supplied, paid, createdAt string
	err := s.q.QueryRowContext(ctx,
		`SELECT id, name, phone, total_supplied, total_paid, created_at
		 FROM suppliers WHERE id = ?`, id,
	).Scan(&sup.ID, &sup.Name, &sup.Phone, &supplied, &paid, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.Supplier{}, engine.ErrSupplierNotFound
	}
	if err != nil {
		return engine.Supplier{}, err
	}
	if sup.TotalSupplied, err = parseQuantity(supplied); err != nil {
		return engine.Supplier{}, err
	}
	if sup.TotalPaid, err = parseMoney(paid); err != nil {
		return engine.Supplier{}, err
	}
	sup.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	return sup, err
}

func (s *queries) SaveSupplier(ctx context.Context, sup engine.Supplier) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE suppliers SET name = ?, phone = ?, total_supplied = ?, total_paid = ? WHERE id = ?`,
		sup.Name, sup.Phone, sup.TotalSupplied.Value.String(), sup.TotalPaid.Value.String(), sup.ID,
	)
	if err != nil {
		return err
	}
	return mustAffect(res, engine.ErrSupplierNotFound)
}

func (s *queries) ListSuppliers(ctx context.Context) ([]engine.Supplier, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, name, phone, total_supplied, total_paid, created_at
		 FROM suppliers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suppliers []engine.Supplier
	for rows.Next() {
		var sup engine.Supplier
		var supplied, paid, createdAt string
		if err := rows.Scan(&sup.ID, &sup.Name, &sup.Phone, &supplied, &paid, &createdAt); err != nil {
			return nil, err
		}
		if sup.TotalSupplied, err = parseQuantity(supplied); err != nil {
			return nil, err
		}
		if sup.TotalPaid, err = parseMoney(paid); err != nil {
			return nil, err
		}
		if sup.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, err
		}
		suppliers = append(suppliers, sup)
	}
	return suppliers, rows.Err()
}

// --- Sales ---

func (s *queries) CreateSale(ctx context.Context, sale engine.Sale) error {
	items, err := json.Marshal(sale.Items)
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx,
		`INSERT INTO sales
		 (id, customer_id, items_json, subtotal, tax, discount, total, amount_paid,
		  credit_charged, points_earned, payment_method, status, created_at, cancelled_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sale.ID, sale.CustomerID, string(items),
		sale.Subtotal.Value.String(), sale.Tax.Value.String(), sale.Discount.Value.String(),
		sale.Total.Value.String(), sale.AmountPaid.Value.String(), sale.CreditCharged.Value.String(),
		sale.PointsEarned, string(sale.PaymentMethod), string(sale.Status),
		sale.CreatedAt.Format(time.RFC3339Nano), nullableTime(sale.CancelledAt),
	)
	if err != nil && isUniqueViolation(err) {
		return engine.ErrDuplicateID
	}
	return err
}

func (s *queries) GetSale(ctx context.Context, id string) (engine.Sale, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT id, customer_id, items_json, subtotal, tax, discount, total, amount_paid,
		        credit_charged, points_earned, payment_method, status, created_at, cancelled_at
		 FROM sales WHERE id = ?`, id,
	)
	sale, err := scanSale(row)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.Sale{}, engine.ErrSaleNotFound
	}
	return sale, err
}

func (s *queries) SaveSale(ctx context.Context, sale engine.Sale) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE sales SET status = ?, cancelled_at = ? WHERE id = ?`,
		string(sale.Status), nullableTime(sale.CancelledAt), sale.ID,
	)
	if err != nil {
		return err
	}
	return mustAffect(res, engine.ErrSaleNotFound)
}

func (s *queries) ListSales(ctx context.Context) ([]engine.Sale, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, customer_id, items_json, subtotal, tax, discount, total, amount_paid,
		        credit_charged, points_earned, payment_method, status, created_at, cancelled_at
		 FROM sales ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []engine.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

// --- Refills ---

func (s *queries) RecordRefill(ctx context.Context, r engine.Refill) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO refills
		 (id, supplier_id, liters, price_per_liter, total_amount, amount_paid, payment_status, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SupplierID,
		r.Liters.Value.String(), r.PricePerLiter.Value.String(),
		r.TotalAmount.Value.String(), r.AmountPaid.Value.String(),
		string(r.PaymentStatus), r.RecordedAt.Format(time.RFC3339Nano),
	)
	return err
}

func (s *queries) ListRefills(ctx context.Context, supplierID string) ([]engine.Refill, error) {
	query := `SELECT id, supplier_id, liters, price_per_liter, total_amount, amount_paid, payment_status, recorded_at
	          FROM refills ORDER BY rowid`
	args := []any{}
	if supplierID != "" {
		query = `SELECT id, supplier_id, liters, price_per_liter, total_amount, amount_paid, payment_status, recorded_at
		         FROM refills WHERE supplier_id = ? ORDER BY rowid`
		args = append(args, supplierID)
	}
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refills []engine.Refill
	for rows.Next() {
		var r engine.Refill
		var liters, price, total, paid, status, recordedAt string
		if err := rows.Scan(&r.ID, &r.SupplierID, &liters, &price, &total, &paid, &status, &recordedAt); err != nil {
			return nil, err
		}
		if r.Liters, err = parseQuantity(liters); err != nil {
			return nil, err
		}
		if r.PricePerLiter, err = parseMoney(price); err != nil {
			return nil, err
		}
		if r.TotalAmount, err = parseMoney(total); err != nil {
			return nil, err
		}
		if r.AmountPaid, err = parseMoney(paid); err != nil {
			return nil, err
		}
		r.PaymentStatus = engine.RefillPaymentStatus(status)
		if r.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
			return nil, err
		}
		refills = append(refills, r)
	}
	return refills, rows.Err()
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBottle(row rowScanner) (inventory.Bottle, error) {
	var b inventory.Bottle
	var id, capacity, status string
	err := row.Scan(&id, &b.SerialNumber, &capacity, &status, &b.CustomerID)
	if errors.Is(err, sql.ErrNoRows) {
		return inventory.Bottle{}, inventory.ErrBottleNotFound
	}
	if err != nil {
		return inventory.Bottle{}, err
	}
	b.ID = inventory.BottleID(id)
	b.Status = inventory.BottleStatus(status)
	if b.CapacityLiters, err = parseQuantity(capacity); err != nil {
		return inventory.Bottle{}, err
	}
	return b, nil
}

func scanSale(row rowScanner) (engine.Sale, error) {
	var sale engine.Sale
	var items, subtotal, tax, discount, total, paid, charged, method, status, createdAt string
	var cancelledAt sql.NullString
	err := row.Scan(&sale.ID, &sale.CustomerID, &items, &subtotal, &tax, &discount, &total,
		&paid, &charged, &sale.PointsEarned, &method, &status, &createdAt, &cancelledAt)
	if err != nil {
		return engine.Sale{}, err
	}
	if err := json.Unmarshal([]byte(items), &sale.Items); err != nil {
		return engine.Sale{}, err
	}
	if sale.Subtotal, err = parseMoney(subtotal); err != nil {
		return engine.Sale{}, err
	}
	if sale.Tax, err = parseMoney(tax); err != nil {
		return engine.Sale{}, err
	}
	if sale.Discount, err = parseMoney(discount); err != nil {
		return engine.Sale{}, err
	}
	if sale.Total, err = parseMoney(total); err != nil {
		return engine.Sale{}, err
	}
	if sale.AmountPaid, err = parseMoney(paid); err != nil {
		return engine.Sale{}, err
	}
	if sale.CreditCharged, err = parseMoney(charged); err != nil {
		return engine.Sale{}, err
	}
	sale.PaymentMethod = ledger.PaymentMethod(method)
	sale.Status = engine.SaleStatus(status)
	if sale.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return engine.Sale{}, err
	}
	if cancelledAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, cancelledAt.String)
		if err != nil {
			return engine.Sale{}, err
		}
		sale.CancelledAt = &t
	}
	return sale, nil
}

func parseMoney(s string) (ledger.Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ledger.Money{}, fmt.Errorf("bad money value %q: %w", s, err)
	}
	return ledger.Money{Value: d}, nil
}

func parseQuantity(s string) (ledger.Quantity, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ledger.Quantity{}, fmt.Errorf("bad quantity value %q: %w", s, err)
	}
	return ledger.Quantity{Value: d}, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

func mustAffect(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// mattn/go-sqlite3 reports constraint breaches as
// "UNIQUE constraint failed: <table>.<column>".
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
