// Package store persists canonical transactions in SQLite. The table is
// append-only: records are never updated or deleted, and an exact duplicate of
// a stored record is never written twice.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/finsplit-dev/finsplit/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS Transactions (
	amount TEXT NOT NULL,
	name TEXT NOT NULL,
	date TEXT NOT NULL,
	memo TEXT NOT NULL,
	"account number" TEXT NOT NULL,
	"account name" TEXT NOT NULL,
	"Transaction ID" TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_dedup ON Transactions (
	amount, name, date, memo, "account number", "account name", "Transaction ID"
);`

const existsQuery = `
SELECT 1 FROM Transactions
WHERE amount = ? AND name = ? AND date = ? AND memo = ?
  AND "account number" = ? AND "account name" = ? AND "Transaction ID" = ?
LIMIT 1`

const insertQuery = `
INSERT INTO Transactions
	(amount, name, date, memo, "account number", "account name", "Transaction ID")
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT DO NOTHING`

const selectAllQuery = `
SELECT amount, name, date, memo, "account number", "account name", "Transaction ID"
FROM Transactions
ORDER BY rowid ASC`

// Store is a SQLite-backed transaction ledger.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (or creates) the ledger database at path and ensures the schema
// exists.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// With opens the store at path, runs fn and closes the store on every path.
func With(ctx context.Context, path string, fn func(*Store) error) (err error) {
	s, err := Open(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(s)
}

// uriPath escapes the characters that would end the path part of a SQLite
// URI filename.
var uriPath = strings.NewReplacer("%", "%25", "?", "%3F", "#", "%23")

func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Set("_txlock", "immediate")
	return "file:" + uriPath.Replace(path) + "?" + q.Encode()
}

// Close releases the database handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}

// Exists reports whether a record with all seven fields equal to txn is
// stored.
func (s *Store) Exists(ctx context.Context, txn model.Transaction) (bool, error) {
	return exists(ctx, s.db, txn)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func exists(ctx context.Context, q querier, txn model.Transaction) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, existsQuery, keyArgs(txn)...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check transaction: %w", err)
	}
	return true, nil
}

// Insert writes txn unless an identical record exists. It reports whether a
// row was written. The check and the write run in one immediate transaction.
func (s *Store) Insert(ctx context.Context, txn model.Transaction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	found, err := exists(ctx, tx, txn)
	if err != nil {
		return false, err
	}
	if found {
		return false, nil
	}

	res, err := tx.ExecContext(ctx, insertQuery, keyArgs(txn)...)
	if err != nil {
		return false, fmt.Errorf("insert transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert transaction: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit insert: %w", err)
	}
	return n == 1, nil
}

// All returns every stored transaction in insertion order.
func (s *Store) All(ctx context.Context) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, selectAllQuery)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		var t model.Transaction
		var amount string
		if err := rows.Scan(&amount, &t.Name, &t.Date, &t.Memo, &t.AccountNumber, &t.AccountName, &t.TransactionID); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parsing stored amount %q: %w", amount, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Count returns the number of stored transactions.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM Transactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

// keyArgs returns the seven dedup fields as query arguments. The amount is
// stored in canonical decimal form so equal values compare equal as text.
func keyArgs(t model.Transaction) []any {
	return []any{
		t.Amount.String(),
		t.Name,
		t.Date,
		t.Memo,
		t.AccountNumber,
		t.AccountName,
		t.TransactionID,
	}
}
