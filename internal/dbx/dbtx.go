// Package dbx holds the database/sql plumbing shared by the SQLite credential
// store and the development server's PostgreSQL repositories.
package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// DBTX is satisfied by *sql.DB and *sql.Tx, so repositories run the same
// statements inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn in a transaction. It commits when fn returns nil and rolls
// back on an error or a panic; the panic is re-raised.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		_ = tx.Rollback()
		if p := recover(); p != nil {
			panic(p)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

// RowError maps sql.ErrNoRows from a single-row query to notFound and wraps
// any other failure.
func RowError(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return notFound
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

// ExpectRows returns notFound when an update or delete touched nothing.
func ExpectRows(res sql.Result, err error, notFound error) error {
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
