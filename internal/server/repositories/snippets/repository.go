package snippets

import (
	"context"
	"time"

	"github.com/snipvault/snipvault/internal/server/models"
)

// Repository persists snippets and their immutable content versions.
// BumpVersion is the atomic primitive the save pipeline relies on: two
// concurrent saves of the same snippet get distinct version numbers.
type Repository interface {
	Create(ctx context.Context, s *models.Snippet) error
	Get(ctx context.Context, id string) (*models.Snippet, error)

	// BumpVersion increments the snippet's version counter and refreshes
	// updated_at, returning the new version.
	BumpVersion(ctx context.Context, id string, now time.Time) (int64, error)

	// InsertVersion stores one content version row. Versions are immutable;
	// a duplicate (snippet_id, version) is a caller bug and surfaces as a
	// constraint error.
	InsertVersion(ctx context.Context, v *models.ContentVersion) error

	// GetVersion loads one content version. Returns common.ErrorNotFound
	// when absent.
	GetVersion(ctx context.Context, snippetID string, version int64) (*models.ContentVersion, error)
}
