// Package ledger owns the canonical in-memory transaction cache. Every
// mutation is written through the store before the cache reflects it, so the
// aggregations never report state the store does not have.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"monetra/internal/core"
)

// Store is the persistent row store behind the cache.
type Store interface {
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	UpsertTransaction(ctx context.Context, tx core.Transaction) error
	UpsertTransactions(ctx context.Context, txs []core.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
	DeleteTransactions(ctx context.Context, ids []string) error
	UpdateTransactionFields(ctx context.Context, id string, patch core.TransactionPatch) error
}

// Syncer pushes mutations to a secondary backend. Best effort: the ledger
// logs sync failures and never propagates or retries them.
type Syncer interface {
	SyncTransaction(ctx context.Context, tx core.Transaction) error
	SyncDeletion(ctx context.Context, id string) error
}

// Ledger mediates all transaction mutations through the Store and serves
// every aggregation from its in-memory cache, never re-querying per call.
type Ledger struct {
	store  Store
	syncer Syncer
	base   string

	mu    sync.RWMutex
	cache []core.Transaction
}

// New wires a ledger to its store and optional syncer. baseCurrency is the
// currency bare amounts are assumed denominated in; empty selects the
// default.
func New(store Store, syncer Syncer, baseCurrency string) *Ledger {
	if baseCurrency == "" {
		baseCurrency = core.DefaultBaseCurrency
	}
	return &Ledger{
		store:  store,
		syncer: syncer,
		base:   baseCurrency,
	}
}

// BaseCurrency returns the currency bare amounts are assumed to be in.
func (l *Ledger) BaseCurrency() string {
	return l.base
}

// Load replaces the entire cache with the store's contents, ordered by date
// descending. Idempotent; must run before aggregations are trusted.
func (l *Ledger) Load(ctx context.Context) error {
	txs, err := l.store.ListTransactions(ctx)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}

	l.mu.Lock()
	l.cache = txs
	l.mu.Unlock()

	slog.InfoContext(ctx, "Transaction cache loaded", "count", len(txs))
	return nil
}

// Add validates and persists a new transaction, then prepends it to the
// cache. New entries always land at index 0 regardless of their date, so
// Recent reflects insertion order. The cache is untouched when the store
// write fails.
func (l *Ledger) Add(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate transaction: %w", err)
	}

	if err := l.store.UpsertTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	l.mu.Lock()
	l.cache = append([]core.Transaction{tx}, l.cache...)
	l.mu.Unlock()

	l.syncUpsert(ctx, tx)
	return tx, nil
}

// Delete removes a transaction from store then cache. A store failure is
// logged and reported as false, with the cache left untouched.
func (l *Ledger) Delete(ctx context.Context, id string) bool {
	if err := l.store.DeleteTransaction(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to delete transaction",
			"id", id, "error", err)
		return false
	}

	l.mu.Lock()
	kept := l.cache[:0]
	for _, tx := range l.cache {
		if tx.ID != id {
			kept = append(kept, tx)
		}
	}
	l.cache = kept
	l.mu.Unlock()

	l.syncDelete(ctx, id)
	return true
}

// Update writes a partial patch to the store, then merges the same patch
// into the matching cached record. Same false-on-failure contract as Delete.
func (l *Ledger) Update(ctx context.Context, id string, patch core.TransactionPatch) bool {
	if patch.IsEmpty() {
		return true
	}
	if err := patch.Validate(); err != nil {
		slog.ErrorContext(ctx, "Rejected transaction patch",
			"id", id, "error", err)
		return false
	}

	if err := l.store.UpdateTransactionFields(ctx, id, patch); err != nil {
		slog.ErrorContext(ctx, "Failed to update transaction",
			"id", id, "error", err)
		return false
	}

	var updated *core.Transaction
	l.mu.Lock()
	for i := range l.cache {
		if l.cache[i].ID == id {
			l.cache[i] = patch.Apply(l.cache[i])
			tx := l.cache[i]
			updated = &tx
			break
		}
	}
	l.mu.Unlock()

	if updated != nil {
		l.syncUpsert(ctx, *updated)
	}
	return true
}

// DeleteMultiple removes all given ids with one batched store statement,
// then filters the cache in a single pass, or not at all on store failure.
func (l *Ledger) DeleteMultiple(ctx context.Context, ids []string) bool {
	if len(ids) == 0 {
		return true
	}

	if err := l.store.DeleteTransactions(ctx, ids); err != nil {
		slog.ErrorContext(ctx, "Failed to delete transactions",
			"count", len(ids), "error", err)
		return false
	}

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	l.mu.Lock()
	kept := l.cache[:0]
	for _, tx := range l.cache {
		if _, gone := drop[tx.ID]; !gone {
			kept = append(kept, tx)
		}
	}
	l.cache = kept
	l.mu.Unlock()

	for _, id := range ids {
		l.syncDelete(ctx, id)
	}
	return true
}

// Import bulk-upserts records (id conflicts overwrite) and then performs a
// full reload. Incremental patching is unsafe at import volume, so this is
// the only mutation that re-reads from the store.
func (l *Ledger) Import(ctx context.Context, records []core.Transaction) error {
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = uuid.NewString()
		}
		if err := records[i].Validate(); err != nil {
			return fmt.Errorf("validate record %d: %w", i, err)
		}
	}

	if err := l.store.UpsertTransactions(ctx, records); err != nil {
		return fmt.Errorf("import transactions: %w", err)
	}

	if err := l.Load(ctx); err != nil {
		return fmt.Errorf("reload after import: %w", err)
	}

	slog.InfoContext(ctx, "Transactions imported", "count", len(records))
	return nil
}

// All returns a snapshot of the current cache in insertion order.
func (l *Ledger) All() []core.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]core.Transaction, len(l.cache))
	copy(out, l.cache)
	return out
}

// Recent returns the first n cache entries, the most recently added first.
func (l *Ledger) Recent(n int) []core.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n > len(l.cache) {
		n = len(l.cache)
	}
	if n < 0 {
		n = 0
	}
	out := make([]core.Transaction, n)
	copy(out, l.cache[:n])
	return out
}

func (l *Ledger) syncUpsert(ctx context.Context, tx core.Transaction) {
	if l.syncer == nil {
		return
	}
	if err := l.syncer.SyncTransaction(ctx, tx); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction sync",
			"id", tx.ID, "error", err)
	}
}

func (l *Ledger) syncDelete(ctx context.Context, id string) {
	if l.syncer == nil {
		return
	}
	if err := l.syncer.SyncDeletion(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction deletion",
			"id", id, "error", err)
	}
}
