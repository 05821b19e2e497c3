// Package shares provides SQL-backed persistence for share links. The same
// statements run on PostgreSQL (pgx) and SQLite (modernc), so the queries
// stick to portable SQL: $N placeholders, caller-supplied timestamps, and
// JSON-encoded text columns for the allowlists.
package shares

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/snipvault/snipvault/internal/common"
	"github.com/snipvault/snipvault/internal/dbx"
	"github.com/snipvault/snipvault/internal/server/models"
)

// SQLRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type SQLRepository struct {
	db dbx.DBTX
}

// NewSQLRepository constructs a repository bound to the given DBTX.
func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func dbErr(op string, err error) error {
	return fmt.Errorf("%s: %w (%w)", op, common.ErrPersistenceUnavailable, err)
}

func encodeList(list []string) string {
	if len(list) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(list)
	return string(b)
}

func decodeList(s string) []string {
	if s == "" || s == "[]" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(s), &list); err != nil {
		return nil
	}
	return list
}

func (r *SQLRepository) Create(ctx context.Context, link *models.ShareLink) error {
	query := `
		INSERT INTO share_links (
			id, token_hash, resource_ref, share_type,
			allowed_emails, allowed_domains, require_authentication, require_password, password_hash,
			expires_at, max_views, current_views,
			state, created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := r.db.ExecContext(ctx, query,
		link.ID, link.TokenHash, link.ResourceRef, string(link.ShareType),
		encodeList(link.Rules.AllowedEmails), encodeList(link.Rules.AllowedDomains),
		link.Rules.RequireAuthentication, link.Rules.RequirePassword, link.Rules.PasswordHash,
		link.Limits.ExpiresAt, link.Limits.MaxViews, link.Limits.CurrentViews,
		string(link.State), link.CreatedBy, link.CreatedAt,
	)
	if err != nil {
		return dbErr("insert share link", err)
	}
	return nil
}

const selectColumns = `
	id, token_hash, resource_ref, share_type,
	allowed_emails, allowed_domains, require_authentication, require_password, password_hash,
	expires_at, max_views, current_views,
	state, last_accessed_at, last_ip, last_user_agent, created_by, created_at
`

func (r *SQLRepository) scanLink(row *sql.Row) (*models.ShareLink, error) {
	link := &models.ShareLink{}
	var shareType, state, emails, domains string
	var expiresAt, lastAccessedAt sql.NullTime
	var maxViews sql.NullInt64

	err := row.Scan(
		&link.ID, &link.TokenHash, &link.ResourceRef, &shareType,
		&emails, &domains, &link.Rules.RequireAuthentication, &link.Rules.RequirePassword, &link.Rules.PasswordHash,
		&expiresAt, &maxViews, &link.Limits.CurrentViews,
		&state, &lastAccessedAt, &link.Audit.LastIP, &link.Audit.LastUserAgent, &link.CreatedBy, &link.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, dbErr("scan share link", err)
	}

	link.ShareType = models.ShareType(shareType)
	link.State = models.ShareState(state)
	link.Rules.AllowedEmails = decodeList(emails)
	link.Rules.AllowedDomains = decodeList(domains)
	if expiresAt.Valid {
		t := expiresAt.Time
		link.Limits.ExpiresAt = &t
	}
	if maxViews.Valid {
		n := int(maxViews.Int64)
		link.Limits.MaxViews = &n
	}
	if lastAccessedAt.Valid {
		t := lastAccessedAt.Time
		link.Audit.LastAccessedAt = &t
	}
	return link, nil
}

func (r *SQLRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.ShareLink, error) {
	query := `SELECT ` + selectColumns + ` FROM share_links WHERE token_hash = $1`
	return r.scanLink(r.db.QueryRowContext(ctx, query, tokenHash))
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (*models.ShareLink, error) {
	query := `SELECT ` + selectColumns + ` FROM share_links WHERE id = $1`
	return r.scanLink(r.db.QueryRowContext(ctx, query, id))
}

// ConsumeView is the contended-counter primitive: one conditional UPDATE
// that increments the view counter, refreshes the audit fields, and flips
// the state to exhausted when the increment spends the last view. The
// guard (state = active AND under budget) makes overshoot impossible no
// matter how many callers race.
func (r *SQLRepository) ConsumeView(ctx context.Context, id string, now time.Time, ip, userAgent string) (int, models.ShareState, bool, error) {
	query := `
		UPDATE share_links
		SET current_views = current_views + 1,
			state = CASE
				WHEN max_views IS NOT NULL AND current_views + 1 >= max_views THEN 'exhausted'
				ELSE state
			END,
			last_accessed_at = $2,
			last_ip = $3,
			last_user_agent = $4
		WHERE id = $1
		  AND state = 'active'
		  AND (max_views IS NULL OR current_views < max_views)
		RETURNING current_views, state
	`
	var views int
	var state string
	err := r.db.QueryRowContext(ctx, query, id, now, ip, userAgent).Scan(&views, &state)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, "", false, nil
		}
		return 0, "", false, dbErr("consume view", err)
	}
	return views, models.ShareState(state), true, nil
}

func (r *SQLRepository) TransitionState(ctx context.Context, id string, to models.ShareState) (bool, error) {
	query := `UPDATE share_links SET state = $2 WHERE id = $1 AND state = 'active'`
	res, err := r.db.ExecContext(ctx, query, id, string(to))
	if err != nil {
		return false, dbErr("transition state", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, dbErr("transition state rows affected", err)
	}
	return n == 1, nil
}

func (r *SQLRepository) Revoke(ctx context.Context, id string) error {
	// Conditional on Active so an already-terminal link stays as it is;
	// the caller treats both outcomes as success.
	if _, err := r.TransitionState(ctx, id, models.ShareStateRevoked); err != nil {
		return err
	}
	return nil
}

func (r *SQLRepository) SweepInvalid(ctx context.Context, now time.Time) (int64, int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE share_links SET state = 'expired'
		WHERE state = 'active' AND expires_at IS NOT NULL AND expires_at <= $1
	`, now)
	if err != nil {
		return 0, 0, dbErr("sweep expired", err)
	}
	expired, err := res.RowsAffected()
	if err != nil {
		return 0, 0, dbErr("sweep expired rows affected", err)
	}

	res, err = r.db.ExecContext(ctx, `
		UPDATE share_links SET state = 'exhausted'
		WHERE state = 'active' AND max_views IS NOT NULL AND current_views >= max_views
	`)
	if err != nil {
		return expired, 0, dbErr("sweep exhausted", err)
	}
	exhausted, err := res.RowsAffected()
	if err != nil {
		return expired, 0, dbErr("sweep exhausted rows affected", err)
	}
	return expired, exhausted, nil
}
