// Package worker mirrors ledger mutations into the spreadsheet. It consumes
// sync messages, fetches the durable row from SQLite, and retries transient
// sheet failures before giving the message back to the queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go"

	"monetra/internal/amqp"
	"monetra/internal/core"
	"monetra/internal/sheets"
)

// TransactionReader is the slice of storage the worker needs.
type TransactionReader interface {
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
}

type SyncWorker struct {
	storage  TransactionReader
	writer   sheets.TransactionWriter
	deleter  sheets.TransactionDeleter
	attempts uint
	delay    time.Duration
}

func NewSyncWorker(storage TransactionReader, writer sheets.TransactionWriter, deleter sheets.TransactionDeleter) *SyncWorker {
	return &SyncWorker{
		storage:  storage,
		writer:   writer,
		deleter:  deleter,
		attempts: 4,
		delay:    500 * time.Millisecond,
	}
}

// HandleMessage processes one sync message. A returned error requeues the
// message; nil acknowledges it.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.SyncMessage) error {
	switch msg.Kind {
	case amqp.KindUpsert:
		return w.handleUpsert(ctx, msg.ID)
	case amqp.KindDelete:
		return w.handleDelete(ctx, msg.ID)
	default:
		return fmt.Errorf("unhandled message kind %q", msg.Kind)
	}
}

func (w *SyncWorker) handleUpsert(ctx context.Context, id string) error {
	tx, err := w.storage.GetTransaction(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		// The row was deleted after the upsert was published. The delete
		// message will clean the mirror; nothing left to write.
		slog.InfoContext(ctx, "Transaction gone from storage, skipping mirror write", "id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	var rowRef string
	err = w.retry(ctx, func() error {
		var appendErr error
		rowRef, appendErr = w.writer.Upsert(ctx, tx)
		return appendErr
	})
	if err != nil {
		return fmt.Errorf("mirror transaction to sheet: %w", err)
	}

	slog.InfoContext(ctx, "Mirrored transaction to sheet", "id", id, "row", rowRef)
	return nil
}

func (w *SyncWorker) handleDelete(ctx context.Context, id string) error {
	if w.deleter == nil {
		slog.WarnContext(ctx, "No sheet deleter configured, skipping mirror delete", "id", id)
		return nil
	}

	err := w.retry(ctx, func() error {
		return w.deleter.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete mirrored row: %w", err)
	}

	slog.InfoContext(ctx, "Deleted mirrored row from sheet", "id", id)
	return nil
}

func (w *SyncWorker) retry(ctx context.Context, fn func() error) error {
	return retry.Do(fn,
		retry.Attempts(w.attempts),
		retry.Delay(w.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
}
