package refreshtokens

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/dbx"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new refresh token for userID with an expiry time of now+validity.
func (r *PostgresRepository) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	query := `
		INSERT INTO refresh_tokens (user_id, token, expires_at)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.ExecContext(ctx, query, userID, token, time.Now().Add(validity)); err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

// Find returns common.ErrorNotFound for unknown and expired tokens.
func (r *PostgresRepository) Find(ctx context.Context, token string) (*RefreshToken, error) {
	query := `
		SELECT token, user_id, expires_at, used
		FROM refresh_tokens
		WHERE token = $1 AND expires_at > now()
	`
	rt := &RefreshToken{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(&rt.Token, &rt.UserID, &rt.ExpiresAt, &rt.Used)
	if err := dbx.RowError(err, common.ErrorNotFound); err != nil {
		return nil, err
	}
	return rt, nil
}

func (r *PostgresRepository) MarkUsed(ctx context.Context, token string) error {
	query := `
		UPDATE refresh_tokens SET used = TRUE
		WHERE token = $1
	`
	res, err := r.db.ExecContext(ctx, query, token)
	return dbx.ExpectRows(res, err, common.ErrorNotFound)
}

func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID string) error {
	query := `
		DELETE FROM refresh_tokens
		WHERE user_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("delete refresh tokens: %w", err)
	}
	return nil
}
