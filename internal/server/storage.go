package server

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/sessionkeeper/internal/server/migrations"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/refreshtokens"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type repositories struct {
	users         users.Repository
	refreshTokens refreshtokens.Repository
	close         func() error
}

// openRepositories keeps everything in memory when dsn is empty, otherwise
// it connects to PostgreSQL and migrates the schema.
func openRepositories(ctx context.Context, dsn string) (*repositories, error) {
	if dsn == "" {
		return &repositories{
			users:         users.NewMemoryRepository(),
			refreshTokens: refreshtokens.NewMemoryRepository(),
			close:         func() error { return nil },
		}, nil
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	return &repositories{
		users:         users.NewPostgresRepository(db),
		refreshTokens: refreshtokens.NewPostgresRepository(db),
		close:         db.Close,
	}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}
