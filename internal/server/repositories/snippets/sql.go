// Package snippets provides SQL-backed persistence for snippets and their
// versioned content, portable across PostgreSQL and SQLite.
package snippets

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

type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func dbErr(op string, err error) error {
	return fmt.Errorf("%s: %w (%w)", op, common.ErrPersistenceUnavailable, err)
}

func (r *SQLRepository) Create(ctx context.Context, s *models.Snippet) error {
	query := `
		INSERT INTO snippets (id, owner_id, title, language, version, sealed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.OwnerID, s.Title, s.Language, s.Version, s.Sealed, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return dbErr("insert snippet", err)
	}
	return nil
}

func (r *SQLRepository) Get(ctx context.Context, id string) (*models.Snippet, error) {
	query := `
		SELECT id, owner_id, title, language, version, sealed, created_at, updated_at
		FROM snippets WHERE id = $1
	`
	s := &models.Snippet{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.OwnerID, &s.Title, &s.Language, &s.Version, &s.Sealed, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, dbErr("select snippet", err)
	}
	return s, nil
}

func (r *SQLRepository) BumpVersion(ctx context.Context, id string, now time.Time) (int64, error) {
	query := `
		UPDATE snippets SET version = version + 1, updated_at = $2
		WHERE id = $1
		RETURNING version
	`
	var version int64
	err := r.db.QueryRowContext(ctx, query, id, now).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, dbErr("bump version", err)
	}
	return version, nil
}

func (r *SQLRepository) InsertVersion(ctx context.Context, v *models.ContentVersion) error {
	findings, _ := json.Marshal(v.Findings)
	if v.Findings == nil {
		findings = []byte("[]")
	}
	query := `
		INSERT INTO snippet_versions (snippet_id, version, content, blob_key, content_hash, findings, detected_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		v.SnippetID, v.Version, v.Content, v.BlobKey, v.ContentHash, string(findings), v.DetectedAt, v.CreatedAt)
	if err != nil {
		return dbErr("insert content version", err)
	}
	return nil
}

func (r *SQLRepository) GetVersion(ctx context.Context, snippetID string, version int64) (*models.ContentVersion, error) {
	query := `
		SELECT snippet_id, version, content, blob_key, content_hash, findings, detected_at, created_at
		FROM snippet_versions
		WHERE snippet_id = $1 AND version = $2
	`
	v := &models.ContentVersion{}
	var findings string
	var detectedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, snippetID, version).Scan(
		&v.SnippetID, &v.Version, &v.Content, &v.BlobKey, &v.ContentHash, &findings, &detectedAt, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, dbErr("select content version", err)
	}
	if findings != "" && findings != "[]" {
		if err := json.Unmarshal([]byte(findings), &v.Findings); err != nil {
			return nil, fmt.Errorf("decode findings: %w", err)
		}
	}
	if detectedAt.Valid {
		v.DetectedAt = detectedAt.Time
	}
	return v, nil
}
