package refreshtokens

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	insertQuery   = `INSERT\s+INTO\s+refresh_tokens\s*\(user_id,\s*token,\s*expires_at\)`
	findQuery     = `SELECT\s+token,\s*user_id,\s*expires_at,\s*used\s+FROM\s+refresh_tokens\s+WHERE\s+token\s*=\s*\$1\s+AND\s+expires_at\s*>\s*now\(\)`
	markUsedQuery = `UPDATE\s+refresh_tokens\s+SET\s+used\s*=\s*TRUE\s+WHERE\s+token\s*=\s*\$1`
	deleteQuery   = `DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+user_id\s*=\s*\$1`
)

func newMockRepo(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewPostgresRepository(db), mock
}

// expiryNear matches an expires_at argument close to now+validity.
type expiryNear time.Duration

func (v expiryNear) Match(arg driver.Value) bool {
	at, ok := arg.(time.Time)
	if !ok {
		return false
	}
	want := time.Now().Add(time.Duration(v))
	return at.After(want.Add(-time.Minute)) && at.Before(want.Add(time.Second))
}

func TestPostgresCreate(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(insertQuery).
		WithArgs("u1", "rt-1", expiryNear(30*time.Minute)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), "u1", "rt-1", 30*time.Minute))
}

func TestPostgresCreate_DBError(t *testing.T) {
	repo, mock := newMockRepo(t)
	down := errors.New("db down")

	mock.ExpectExec(insertQuery).WillReturnError(down)

	err := repo.Create(context.Background(), "u1", "rt-1", time.Hour)
	require.ErrorIs(t, err, down)
	assert.Contains(t, err.Error(), "insert refresh token")
}

func TestPostgresFind(t *testing.T) {
	repo, mock := newMockRepo(t)
	expires := time.Now().Add(10 * time.Minute)

	mock.ExpectQuery(findQuery).
		WithArgs("rt-1").
		WillReturnRows(sqlmock.NewRows([]string{"token", "user_id", "expires_at", "used"}).
			AddRow("rt-1", "u1", expires, true))

	got, err := repo.Find(context.Background(), "rt-1")
	require.NoError(t, err)
	assert.Equal(t, &RefreshToken{Token: "rt-1", UserID: "u1", ExpiresAt: expires, Used: true}, got)
}

func TestPostgresFind_MissingOrExpired(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(findQuery).WithArgs("gone").WillReturnError(sql.ErrNoRows)

	_, err := repo.Find(context.Background(), "gone")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPostgresMarkUsed(t *testing.T) {
	tests := []struct {
		name    string
		result  sql.Result
		err     error
		wantErr error
	}{
		{name: "marked", result: sqlmock.NewResult(0, 1)},
		{name: "unknown token", result: sqlmock.NewResult(0, 0), wantErr: common.ErrorNotFound},
		{name: "db down", err: errors.New("db down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			exp := mock.ExpectExec(markUsedQuery).WithArgs("rt-1")
			if tt.err != nil {
				exp.WillReturnError(tt.err)
			} else {
				exp.WillReturnResult(tt.result)
			}

			err := repo.MarkUsed(context.Background(), "rt-1")
			switch {
			case tt.err != nil:
				require.ErrorIs(t, err, tt.err)
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			default:
				require.NoError(t, err)
			}
		})
	}
}

func TestPostgresDeleteByUser(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(deleteQuery).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 3))
	require.NoError(t, repo.DeleteByUser(context.Background(), "u1"))

	// nothing to delete is not an error
	mock.ExpectExec(deleteQuery).WithArgs("u2").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, repo.DeleteByUser(context.Background(), "u2"))
}
