package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"monetra/internal/amqp"
	"monetra/internal/core"
)

type fakeReader struct {
	rows map[string]core.Transaction
	err  error
}

func (r *fakeReader) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	if r.err != nil {
		return core.Transaction{}, r.err
	}
	tx, ok := r.rows[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	return tx, nil
}

type fakeMirror struct {
	upserts  []core.Transaction
	deletes  []string
	failures int // number of calls that fail before succeeding
}

func (m *fakeMirror) Upsert(_ context.Context, tx core.Transaction) (string, error) {
	if m.failures > 0 {
		m.failures--
		return "", errors.New("sheet unavailable")
	}
	m.upserts = append(m.upserts, tx)
	return "mem:" + tx.ID, nil
}

func (m *fakeMirror) Delete(_ context.Context, id string) error {
	if m.failures > 0 {
		m.failures--
		return errors.New("sheet unavailable")
	}
	m.deletes = append(m.deletes, id)
	return nil
}

func fastWorker(r *fakeReader, m *fakeMirror) *SyncWorker {
	w := NewSyncWorker(r, m, m)
	w.delay = time.Millisecond
	return w
}

func storedTx(id string) core.Transaction {
	return core.Transaction{
		ID: id, Title: "Groceries", Amount: 120_000,
		Category: "Food", Type: core.Expense, Date: "2025-06-01",
	}
}

func TestHandleUpsertMirrorsStoredRow(t *testing.T) {
	reader := &fakeReader{rows: map[string]core.Transaction{"tx-1": storedTx("tx-1")}}
	mirror := &fakeMirror{}
	w := fastWorker(reader, mirror)

	if err := w.HandleMessage(context.Background(), amqp.NewUpsertMessage("tx-1")); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(mirror.upserts) != 1 || mirror.upserts[0].ID != "tx-1" {
		t.Errorf("upserts = %v, want the stored row", mirror.upserts)
	}
}

func TestHandleUpsertSkipsVanishedRow(t *testing.T) {
	reader := &fakeReader{rows: map[string]core.Transaction{}}
	mirror := &fakeMirror{}
	w := fastWorker(reader, mirror)

	if err := w.HandleMessage(context.Background(), amqp.NewUpsertMessage("gone")); err != nil {
		t.Errorf("HandleMessage = %v, want nil for a vanished row", err)
	}
	if len(mirror.upserts) != 0 {
		t.Error("nothing should be mirrored for a vanished row")
	}
}

func TestHandleUpsertPropagatesStorageError(t *testing.T) {
	reader := &fakeReader{err: errors.New("db locked")}
	w := fastWorker(reader, &fakeMirror{})

	if err := w.HandleMessage(context.Background(), amqp.NewUpsertMessage("tx-1")); err == nil {
		t.Error("storage errors must requeue the message")
	}
}

func TestHandleUpsertRetriesTransientFailures(t *testing.T) {
	reader := &fakeReader{rows: map[string]core.Transaction{"tx-1": storedTx("tx-1")}}
	mirror := &fakeMirror{failures: 2}
	w := fastWorker(reader, mirror)

	if err := w.HandleMessage(context.Background(), amqp.NewUpsertMessage("tx-1")); err != nil {
		t.Fatalf("HandleMessage after transient failures: %v", err)
	}
	if len(mirror.upserts) != 1 {
		t.Errorf("upserts = %d, want 1 after retries", len(mirror.upserts))
	}
}

func TestHandleUpsertGivesUpAfterAttempts(t *testing.T) {
	reader := &fakeReader{rows: map[string]core.Transaction{"tx-1": storedTx("tx-1")}}
	mirror := &fakeMirror{failures: 10}
	w := fastWorker(reader, mirror)

	if err := w.HandleMessage(context.Background(), amqp.NewUpsertMessage("tx-1")); err == nil {
		t.Error("persistent failures must surface so the message requeues")
	}
}

func TestHandleDelete(t *testing.T) {
	mirror := &fakeMirror{}
	w := fastWorker(&fakeReader{}, mirror)

	if err := w.HandleMessage(context.Background(), amqp.NewDeleteMessage("tx-9")); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(mirror.deletes) != 1 || mirror.deletes[0] != "tx-9" {
		t.Errorf("deletes = %v, want [tx-9]", mirror.deletes)
	}
}

func TestHandleDeleteWithoutDeleter(t *testing.T) {
	w := NewSyncWorker(&fakeReader{}, &fakeMirror{}, nil)

	if err := w.HandleMessage(context.Background(), amqp.NewDeleteMessage("tx-9")); err != nil {
		t.Errorf("HandleMessage = %v, want nil when no deleter is configured", err)
	}
}

func TestHandleUnknownKind(t *testing.T) {
	w := fastWorker(&fakeReader{}, &fakeMirror{})
	msg := &amqp.SyncMessage{Kind: "replay", ID: "tx-1"}

	if err := w.HandleMessage(context.Background(), msg); err == nil {
		t.Error("unknown kinds must be rejected")
	}
}
