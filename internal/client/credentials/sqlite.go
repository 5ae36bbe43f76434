package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/credentials/migrations"
	"github.com/dmitrijs2005/sessionkeeper/internal/dbx"
	"github.com/dmitrijs2005/sessionkeeper/internal/filex"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps credentials in the local "credentials" table.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// OpenSQLite opens (creating if needed) the database at dsn and applies the
// embedded migrations. The caller owns the returned *sql.DB.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, *sql.DB, error) {
	if path := filex.SQLitePath(dsn); path != "" {
		if err := filex.EnsureParentDir(path); err != nil {
			return nil, nil, err
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection: serialises writers and keeps ":memory:" databases whole.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return NewSQLiteStore(db), db, nil
}

// RunMigrations brings the credential schema up to date.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (r *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	return get(ctx, r.db, key)
}

func (r *SQLiteStore) Put(ctx context.Context, key string, value []byte) error {
	return put(ctx, r.db, key, value)
}

func (r *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete credential[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLiteStore) GetMany(ctx context.Context, keys ...string) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	query := `SELECT key, value FROM credentials WHERE key IN (` + placeholders(len(keys)) + `)`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan credential row: %w", err)
		}
		result[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate credential rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteStore) PutMany(ctx context.Context, values map[string][]byte) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for k, v := range values {
			if err := put(ctx, tx, k, v); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLiteStore) DeleteMany(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE key IN (`+placeholders(len(keys))+`)`, args...)
	if err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}

func get(ctx context.Context, db dbx.DBTX, key string) ([]byte, error) {
	var value []byte
	err := db.QueryRowContext(ctx, `SELECT value FROM credentials WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential[%s]: %w", key, err)
	}
	return value, nil
}

func put(ctx context.Context, db dbx.DBTX, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO credentials (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set credential[%s]: %w", key, err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
