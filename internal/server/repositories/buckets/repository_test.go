package buckets

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snipvault/snipvault/internal/common"
	"github.com/snipvault/snipvault/internal/ratelimit"
)

// compile-time check: the repository satisfies the limiter's port.
var _ ratelimit.BucketStore = (*SQLRepository)(nil)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestIncrement_Allowed(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSQLRepository(db)

	mock.ExpectExec(`INSERT INTO rate_limit_buckets`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`UPDATE rate_limit_buckets`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, ok, err := repo.Increment(context.Background(), "user:u|share:resolve", time.Now(), 60, 5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrement_Denied(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSQLRepository(db)

	mock.ExpectExec(`INSERT INTO rate_limit_buckets`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`UPDATE rate_limit_buckets`).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT count FROM rate_limit_buckets`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	count, ok, err := repo.Increment(context.Background(), "k", time.Now(), 60, 5)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 5, count)
}

func TestIncrement_DBDown(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSQLRepository(db)

	mock.ExpectExec(`INSERT INTO rate_limit_buckets`).
		WillReturnError(errors.New("timeout"))

	_, _, err := repo.Increment(context.Background(), "k", time.Now(), 60, 5)
	assert.True(t, errors.Is(err, common.ErrPersistenceUnavailable), "got %v", err)
}
