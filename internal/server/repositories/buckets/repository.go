// Package buckets persists rate-limit window buckets. SQLRepository
// implements ratelimit.BucketStore over SQL shared by PostgreSQL and
// SQLite: an idempotent window-reset upsert followed by a conditional
// increment, so concurrent callers can never push a bucket past its limit.
package buckets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/snipvault/snipvault/internal/common"
	"github.com/snipvault/snipvault/internal/dbx"
)

type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func dbErr(op string, err error) error {
	return fmt.Errorf("%s: %w (%w)", op, common.ErrPersistenceUnavailable, err)
}

// Increment implements ratelimit.BucketStore.
func (r *SQLRepository) Increment(ctx context.Context, key string, windowStart time.Time, windowSeconds int, limit int) (int, bool, error) {
	// Create the bucket, or reset it when the stored window differs from
	// the current one. Count resets to zero exactly at the boundary; a
	// racing reset loses the conditional update and is a no-op.
	upsert := `
		INSERT INTO rate_limit_buckets (key, window_start, count, max_count, window_seconds)
		VALUES ($1, $2, 0, $3, $4)
		ON CONFLICT (key) DO UPDATE SET
			window_start = excluded.window_start,
			count = 0,
			max_count = excluded.max_count,
			window_seconds = excluded.window_seconds
		WHERE rate_limit_buckets.window_start <> excluded.window_start
	`
	if _, err := r.db.ExecContext(ctx, upsert, key, windowStart, limit, windowSeconds); err != nil {
		return 0, false, dbErr("upsert bucket", err)
	}

	// The contended step: increment-and-compare in one statement.
	var count int
	err := r.db.QueryRowContext(ctx, `
		UPDATE rate_limit_buckets
		SET count = count + 1
		WHERE key = $1 AND window_start = $2 AND count < max_count
		RETURNING count
	`, key, windowStart).Scan(&count)
	if err == nil {
		return count, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, dbErr("increment bucket", err)
	}

	// Guard failed: report the spent count for headers.
	err = r.db.QueryRowContext(ctx,
		`SELECT count FROM rate_limit_buckets WHERE key = $1`, key,
	).Scan(&count)
	if err != nil {
		return 0, false, dbErr("read bucket", err)
	}
	return count, false, nil
}
