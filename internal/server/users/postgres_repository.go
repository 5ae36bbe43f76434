package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/dbx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *User) (*User, error) {

	query :=
		`INSERT INTO users (id, email, password_hash, membership, billing_active)
         VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at
		 `

	u := *user
	u.ID = uuid.NewString()
	u.Email = strings.ToLower(u.Email)

	err := r.db.QueryRowContext(ctx, query,
		u.ID, u.Email, u.PasswordHash, string(u.Membership), u.BillingActive).Scan(&u.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return &u, nil
}

func (r *PostgresRepository) GetUserByLogin(ctx context.Context, login string) (*User, error) {
	query :=
		`SELECT id, email, password_hash, membership, billing_active, created_at FROM users
		 WHERE email = $1
		 `
	return r.getOne(ctx, query, strings.ToLower(login))
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*User, error) {
	query :=
		`SELECT id, email, password_hash, membership, billing_active, created_at FROM users
		 WHERE id = $1
		 `
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg string) (*User, error) {
	user := &User{}
	var membership string
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &membership, &user.BillingActive, &user.CreatedAt)

	if err := dbx.RowError(err, common.ErrorNotFound); err != nil {
		return nil, err
	}

	user.Membership = Membership(membership)
	return user, nil
}
