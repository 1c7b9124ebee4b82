package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"monetra/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the durable row store behind the ledger cache. Every
// ledger mutation is written through here before the cache reflects it.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const transactionColumns = "id, title, amount, category, type, date, note, original_currency, original_amount"

// ListTransactions returns every stored transaction ordered by date
// descending, the order the ledger cache is seeded with.
func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions ORDER BY date DESC")
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	return txs, nil
}

// GetTransaction fetches a single transaction by id. Returns core.ErrNotFound
// when no row matches.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)

	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return tx, nil
}

// UpsertTransaction inserts or replaces by primary key, the semantics both
// add and import rely on.
func (r *SQLiteRepository) UpsertTransaction(ctx context.Context, tx core.Transaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO transactions (`+transactionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.Title, tx.Amount, tx.Category, string(tx.Type), tx.Date,
		nullString(tx.Note), nullString(tx.OriginalCurrency), nullFloat(tx.OriginalAmount))
	if err != nil {
		return fmt.Errorf("upsert transaction %s: %w", tx.ID, err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", tx.ID,
		"title", tx.Title,
		"amount", tx.Amount,
		"type", tx.Type)

	return nil
}

// UpsertTransactions bulk-upserts in one database transaction so an import
// either lands completely or not at all.
func (r *SQLiteRepository) UpsertTransactions(ctx context.Context, txs []core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO transactions (`+transactionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare import: %w", err)
	}
	defer stmt.Close()

	for _, tx := range txs {
		if _, err := stmt.ExecContext(ctx,
			tx.ID, tx.Title, tx.Amount, tx.Category, string(tx.Type), tx.Date,
			nullString(tx.Note), nullString(tx.OriginalCurrency), nullFloat(tx.OriginalAmount)); err != nil {
			return fmt.Errorf("import transaction %s: %w", tx.ID, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}

	slog.InfoContext(ctx, "Transactions imported", "count", len(txs))
	return nil
}

// DeleteTransaction removes one row; core.ErrNotFound when the id is unknown.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DeleteTransactions removes all given ids in a single batched statement.
func (r *SQLiteRepository) DeleteTransactions(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	if _, err := r.db.ExecContext(ctx,
		"DELETE FROM transactions WHERE id IN ("+placeholders+")", args...); err != nil {
		return fmt.Errorf("delete %d transactions: %w", len(ids), err)
	}
	return nil
}

// UpdateTransactionFields writes only the fields set on the patch.
func (r *SQLiteRepository) UpdateTransactionFields(ctx context.Context, id string, patch core.TransactionPatch) error {
	var (
		sets []string
		args []any
	)
	set := func(column string, v any) {
		sets = append(sets, column+" = ?")
		args = append(args, v)
	}

	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Amount != nil {
		set("amount", *patch.Amount)
	}
	if patch.Category != nil {
		set("category", *patch.Category)
	}
	if patch.Type != nil {
		set("type", string(*patch.Type))
	}
	if patch.Date != nil {
		set("date", *patch.Date)
	}
	if patch.Note != nil {
		set("note", nullString(*patch.Note))
	}
	if patch.OriginalCurrency != nil {
		set("original_currency", nullString(*patch.OriginalCurrency))
	}
	if patch.OriginalAmount != nil {
		set("original_amount", nullFloat(*patch.OriginalAmount))
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	res, err := r.db.ExecContext(ctx,
		"UPDATE transactions SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update transaction %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// GetSetting returns the stored blob for key, or "" when absent.
func (r *SQLiteRepository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		"SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting upserts a settings blob.
func (r *SQLiteRepository) SetSetting(ctx context.Context, key, value string) error {
	if _, err := r.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)", key, value); err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx      core.Transaction
		txType  string
		note    sql.NullString
		origCur sql.NullString
		origAmt sql.NullFloat64
	)
	if err := row.Scan(&tx.ID, &tx.Title, &tx.Amount, &tx.Category, &txType,
		&tx.Date, &note, &origCur, &origAmt); err != nil {
		return core.Transaction{}, err
	}
	tx.Type = core.TransactionType(txType)
	tx.Note = note.String
	tx.OriginalCurrency = origCur.String
	tx.OriginalAmount = origAmt.Float64
	return tx, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(v float64) any {
	if v == 0 {
		return nil
	}
	return v
}
