// Package store provides ledger.Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/depot-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	entries     map[key][]ledger.Entry
	idempotency map[string]bool
}

type key struct {
	Kind     ledger.HolderKind
	HolderID ledger.HolderID
}

func NewMemory() *Memory {
	return &Memory{
		entries:     make(map[key][]ledger.Entry),
		idempotency: make(map[string]bool),
	}
}

// AppendEntry adds a single entry. Append-only.
func (m *Memory) AppendEntry(_ context.Context, e ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(e)
}

// AppendEntries adds multiple entries atomically.
func (m *Memory) AppendEntries(_ context.Context, es []ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check all idempotency keys first (atomic check)
	for _, e := range es {
		if e.IdempotencyKey != "" && m.idempotency[e.IdempotencyKey] {
			return ledger.ErrDuplicateIdempotencyKey
		}
	}

	for _, e := range es {
		if err := m.appendLocked(e); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) appendLocked(e ledger.Entry) error {
	if e.IdempotencyKey != "" && m.idempotency[e.IdempotencyKey] {
		return ledger.ErrDuplicateIdempotencyKey
	}
	k := key{Kind: e.HolderKind, HolderID: e.HolderID}
	m.entries[k] = append(m.entries[k], e)
	if e.IdempotencyKey != "" {
		m.idempotency[e.IdempotencyKey] = true
	}
	return nil
}

func (m *Memory) Entries(_ context.Context, kind ledger.HolderKind, holderID ledger.HolderID) ([]ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	k := key{Kind: kind, HolderID: holderID}
	result := make([]ledger.Entry, len(m.entries[k]))
	copy(result, m.entries[k])
	return result, nil
}

func (m *Memory) EntryExists(_ context.Context, idempotencyKey string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idempotency[idempotencyKey], nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support, simulated with a
// snapshot + rollback on error.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

func (tm *TxMemory) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()
	view := &txMemoryView{parent: tm}

	if err := fn(view); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

func (tm *TxMemory) snapshot() memorySnapshot {
	entriesCopy := make(map[key][]ledger.Entry)
	for k, v := range tm.entries {
		entriesCopy[k] = append([]ledger.Entry{}, v...)
	}
	idempCopy := make(map[string]bool)
	for k, v := range tm.idempotency {
		idempCopy[k] = v
	}
	return memorySnapshot{entries: entriesCopy, idempotency: idempCopy}
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.entries = s.entries
	tm.idempotency = s.idempotency
}

type memorySnapshot struct {
	entries     map[key][]ledger.Entry
	idempotency map[string]bool
}

type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) AppendEntry(_ context.Context, e ledger.Entry) error {
	return tv.parent.appendLocked(e)
}

func (tv *txMemoryView) AppendEntries(_ context.Context, es []ledger.Entry) error {
	for _, e := range es {
		if err := tv.parent.appendLocked(e); err != nil {
			return err
		}
	}
	return nil
}

func (tv *txMemoryView) Entries(_ context.Context, kind ledger.HolderKind, holderID ledger.HolderID) ([]ledger.Entry, error) {
	k := key{Kind: kind, HolderID: holderID}
	return tv.parent.entries[k], nil
}

func (tv *txMemoryView) EntryExists(_ context.Context, idempotencyKey string) (bool, error) {
	return tv.parent.idempotency[idempotencyKey], nil
}
