package ledger

import (
	"context"
	"errors"
	"testing"

	"monetra/internal/core"
)

// fakeStore is an in-memory Store with per-operation failure injection.
type fakeStore struct {
	rows map[string]core.Transaction

	failList   error
	failUpsert error
	failDelete error
	failUpdate error

	deleteNotFound bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]core.Transaction)}
}

func (s *fakeStore) ListTransactions(context.Context) ([]core.Transaction, error) {
	if s.failList != nil {
		return nil, s.failList
	}
	out := make([]core.Transaction, 0, len(s.rows))
	for _, tx := range s.rows {
		out = append(out, tx)
	}
	return out, nil
}

func (s *fakeStore) UpsertTransaction(_ context.Context, tx core.Transaction) error {
	if s.failUpsert != nil {
		return s.failUpsert
	}
	s.rows[tx.ID] = tx
	return nil
}

func (s *fakeStore) UpsertTransactions(ctx context.Context, txs []core.Transaction) error {
	if s.failUpsert != nil {
		return s.failUpsert
	}
	for _, tx := range txs {
		s.rows[tx.ID] = tx
	}
	return nil
}

func (s *fakeStore) DeleteTransaction(_ context.Context, id string) error {
	if s.failDelete != nil {
		return s.failDelete
	}
	if _, ok := s.rows[id]; !ok && s.deleteNotFound {
		return core.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *fakeStore) DeleteTransactions(_ context.Context, ids []string) error {
	if s.failDelete != nil {
		return s.failDelete
	}
	for _, id := range ids {
		delete(s.rows, id)
	}
	return nil
}

func (s *fakeStore) UpdateTransactionFields(_ context.Context, id string, patch core.TransactionPatch) error {
	if s.failUpdate != nil {
		return s.failUpdate
	}
	tx, ok := s.rows[id]
	if !ok {
		return core.ErrNotFound
	}
	s.rows[id] = patch.Apply(tx)
	return nil
}

// fakeSyncer records sync calls and optionally fails them all.
type fakeSyncer struct {
	synced  []string
	deleted []string
	err     error
}

func (s *fakeSyncer) SyncTransaction(_ context.Context, tx core.Transaction) error {
	s.synced = append(s.synced, tx.ID)
	return s.err
}

func (s *fakeSyncer) SyncDeletion(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return s.err
}

func tx(id, title string, amount float64, category string, tt core.TransactionType, date string) core.Transaction {
	return core.Transaction{
		ID:       id,
		Title:    title,
		Amount:   amount,
		Category: category,
		Type:     tt,
		Date:     date,
	}
}

func TestAddPrependsAndPersists(t *testing.T) {
	store := newFakeStore()
	syncer := &fakeSyncer{}
	l := New(store, syncer, "")

	first, err := l.Add(context.Background(), tx("", "Salary", 100, "Salary", core.Income, "2025-06-01"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if first.ID == "" {
		t.Fatal("Add should generate an id")
	}

	// Older date, but new entries still land at index 0.
	second, err := l.Add(context.Background(), tx("", "Lunch", 40, "Food", core.Expense, "2025-05-01"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	all := l.All()
	if len(all) != 2 || all[0].ID != second.ID || all[1].ID != first.ID {
		t.Errorf("cache order = %v, want most recently added first", all)
	}
	if _, ok := store.rows[first.ID]; !ok {
		t.Error("Add did not persist to the store")
	}
	if len(syncer.synced) != 2 {
		t.Errorf("synced %d transactions, want 2", len(syncer.synced))
	}
}

func TestAddStoreFailureLeavesCacheUnmodified(t *testing.T) {
	store := newFakeStore()
	store.failUpsert = errors.New("disk full")
	l := New(store, nil, "")

	if _, err := l.Add(context.Background(), tx("", "Lunch", 40, "Food", core.Expense, "2025-05-01")); err == nil {
		t.Fatal("Add should propagate the store error")
	}
	if len(l.All()) != 0 {
		t.Error("cache must stay empty when the store write fails")
	}
}

func TestAddValidationRejectedBeforeStore(t *testing.T) {
	store := newFakeStore()
	l := New(store, nil, "")

	if _, err := l.Add(context.Background(), tx("", "Bad", -5, "Food", core.Expense, "2025-05-01")); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("Add = %v, want ErrInvalidAmount", err)
	}
	if len(store.rows) != 0 {
		t.Error("no store call expected for an invalid transaction")
	}
}

func TestSyncFailureDoesNotPropagate(t *testing.T) {
	store := newFakeStore()
	syncer := &fakeSyncer{err: errors.New("broker down")}
	l := New(store, syncer, "")

	added, err := l.Add(context.Background(), tx("", "Salary", 100, "Salary", core.Income, "2025-06-01"))
	if err != nil {
		t.Fatalf("Add must not fail on sync errors: %v", err)
	}
	if len(l.All()) != 1 {
		t.Error("cache must reflect the local write despite the sync failure")
	}
	if !l.Delete(context.Background(), added.ID) {
		t.Error("Delete must not fail on sync errors")
	}
}

func TestAddDeleteRoundTrip(t *testing.T) {
	store := newFakeStore()
	l := New(store, nil, "")
	seed, _ := l.Add(context.Background(), tx("", "Rent", 500, "Housing", core.Expense, "2025-06-01"))

	before := l.All()
	added, err := l.Add(context.Background(), tx("", "Coffee", 5, "Food", core.Expense, "2025-06-02"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !l.Delete(context.Background(), added.ID) {
		t.Fatal("Delete returned false")
	}

	after := l.All()
	if len(after) != len(before) {
		t.Fatalf("cache length = %d, want %d", len(after), len(before))
	}
	for _, tx := range after {
		if tx.ID == added.ID {
			t.Error("deleted transaction still present in cache")
		}
	}
	if after[0].ID != seed.ID {
		t.Errorf("surviving entry = %s, want %s", after[0].ID, seed.ID)
	}
}

func TestDeleteMissingIDReturnsFalse(t *testing.T) {
	store := newFakeStore()
	store.deleteNotFound = true
	l := New(store, nil, "")
	l.Add(context.Background(), tx("", "Rent", 500, "Housing", core.Expense, "2025-06-01"))

	if l.Delete(context.Background(), "missing-id") {
		t.Error("Delete of an unknown id must return false")
	}
	if len(l.All()) != 1 {
		t.Error("cache length must be unchanged after a failed delete")
	}
}

func TestUpdateMergesPatch(t *testing.T) {
	store := newFakeStore()
	syncer := &fakeSyncer{}
	l := New(store, syncer, "")
	added, _ := l.Add(context.Background(), tx("", "Lunch", 40, "Food", core.Expense, "2025-06-01"))
	syncer.synced = nil

	amount := 45.0
	if !l.Update(context.Background(), added.ID, core.TransactionPatch{Amount: &amount}) {
		t.Fatal("Update returned false")
	}

	got := l.All()[0]
	if got.Amount != 45 || got.Title != "Lunch" {
		t.Errorf("cached record = %+v, want amount patched and title kept", got)
	}
	if store.rows[added.ID].Amount != 45 {
		t.Error("store not updated")
	}
	if len(syncer.synced) != 1 {
		t.Error("updated record should be re-synced")
	}
}

func TestUpdateStoreFailureLeavesCacheUntouched(t *testing.T) {
	store := newFakeStore()
	l := New(store, nil, "")
	added, _ := l.Add(context.Background(), tx("", "Lunch", 40, "Food", core.Expense, "2025-06-01"))

	store.failUpdate = errors.New("locked")
	amount := 45.0
	if l.Update(context.Background(), added.ID, core.TransactionPatch{Amount: &amount}) {
		t.Fatal("Update should return false when the store write fails")
	}
	if got := l.All()[0].Amount; got != 40 {
		t.Errorf("cached amount = %v, want unpatched 40", got)
	}
}

func TestDeleteMultipleAllOrNothing(t *testing.T) {
	store := newFakeStore()
	l := New(store, nil, "")
	a, _ := l.Add(context.Background(), tx("", "A", 10, "Food", core.Expense, "2025-06-01"))
	b, _ := l.Add(context.Background(), tx("", "B", 20, "Food", core.Expense, "2025-06-02"))
	c, _ := l.Add(context.Background(), tx("", "C", 30, "Food", core.Expense, "2025-06-03"))

	if !l.DeleteMultiple(context.Background(), []string{a.ID, c.ID}) {
		t.Fatal("DeleteMultiple returned false")
	}
	all := l.All()
	if len(all) != 1 || all[0].ID != b.ID {
		t.Errorf("cache = %v, want only %s", all, b.ID)
	}

	store.failDelete = errors.New("io error")
	if l.DeleteMultiple(context.Background(), []string{b.ID}) {
		t.Fatal("DeleteMultiple should return false on store failure")
	}
	if len(l.All()) != 1 {
		t.Error("cache must be untouched when the batched delete fails")
	}
}

func TestImportUpsertsAndReloads(t *testing.T) {
	store := newFakeStore()
	l := New(store, nil, "")
	existing, _ := l.Add(context.Background(), tx("dup", "Old title", 10, "Food", core.Expense, "2025-06-01"))

	records := []core.Transaction{
		tx("dup", "New title", 15, "Food", core.Expense, "2025-06-01"),
		tx("", "Imported", 99, "Misc", core.Income, "2025-06-02"),
	}
	if err := l.Import(context.Background(), records); err != nil {
		t.Fatalf("Import: %v", err)
	}

	all := l.All()
	if len(all) != 2 {
		t.Fatalf("cache length = %d, want 2 (duplicate id overwritten)", len(all))
	}
	var found bool
	for _, tx := range all {
		if tx.ID == existing.ID {
			found = true
			if tx.Title != "New title" || tx.Amount != 15 {
				t.Errorf("duplicate id not overwritten: %+v", tx)
			}
		}
	}
	if !found {
		t.Error("existing id missing after import")
	}
}

func TestImportRejectsMalformedRecordBeforeStore(t *testing.T) {
	store := newFakeStore()
	l := New(store, nil, "")

	records := []core.Transaction{tx("x", "Bad", 0, "Food", core.Expense, "2025-06-01")}
	if err := l.Import(context.Background(), records); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("Import = %v, want ErrInvalidAmount", err)
	}
	if len(store.rows) != 0 {
		t.Error("no store call expected for a malformed import")
	}
}

func TestLoadIdempotent(t *testing.T) {
	store := newFakeStore()
	store.rows["a"] = tx("a", "Salary", 100, "Salary", core.Income, "2025-06-01")
	store.rows["b"] = tx("b", "Lunch", 40, "Food", core.Expense, "2025-06-02")
	l := New(store, nil, "")

	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	first := l.All()

	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	second := l.All()

	if len(first) != len(second) {
		t.Fatalf("snapshots differ in length: %d vs %d", len(first), len(second))
	}
	seen := make(map[string]core.Transaction, len(first))
	for _, tx := range first {
		seen[tx.ID] = tx
	}
	for _, tx := range second {
		if seen[tx.ID] != tx {
			t.Errorf("snapshot for %s changed between loads", tx.ID)
		}
	}
}

func TestLoadErrorPropagates(t *testing.T) {
	store := newFakeStore()
	store.failList = errors.New("corrupt db")
	l := New(store, nil, "")

	if err := l.Load(context.Background()); err == nil {
		t.Error("Load must propagate store read errors")
	}
}

func TestRecent(t *testing.T) {
	store := newFakeStore()
	l := New(store, nil, "")
	l.Add(context.Background(), tx("", "A", 10, "Food", core.Expense, "2025-06-01"))
	b, _ := l.Add(context.Background(), tx("", "B", 20, "Food", core.Expense, "2025-06-02"))
	c, _ := l.Add(context.Background(), tx("", "C", 30, "Food", core.Expense, "2025-06-03"))

	recent := l.Recent(2)
	if len(recent) != 2 || recent[0].ID != c.ID || recent[1].ID != b.ID {
		t.Errorf("Recent(2) = %v, want [C B]", recent)
	}
	if got := l.Recent(10); len(got) != 3 {
		t.Errorf("Recent(10) length = %d, want 3", len(got))
	}
	if got := l.Recent(-1); len(got) != 0 {
		t.Errorf("Recent(-1) length = %d, want 0", len(got))
	}
}
