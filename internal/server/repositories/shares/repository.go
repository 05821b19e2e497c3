package shares

import (
	"context"
	"time"

	"github.com/snipvault/snipvault/internal/server/models"
)

// Repository persists share links. The conditional single-statement
// updates (ConsumeView, TransitionState, Revoke) are the atomic primitives
// the access state machine is built on; implementations must guarantee
// that concurrent callers cannot push CurrentViews past MaxViews.
type Repository interface {
	Create(ctx context.Context, link *models.ShareLink) error

	// GetByTokenHash loads a link by the SHA-256 of its token. Returns
	// common.ErrorNotFound when no such link exists.
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.ShareLink, error)

	GetByID(ctx context.Context, id string) (*models.ShareLink, error)

	// ConsumeView atomically increments the view counter and refreshes the
	// audit fields, but only while the link is Active and under its view
	// budget. When the increment reaches MaxViews the state flips to
	// Exhausted in the same statement. ok reports whether the guard held.
	ConsumeView(ctx context.Context, id string, now time.Time, ip, userAgent string) (views int, state models.ShareState, ok bool, err error)

	// TransitionState moves an Active link to a terminal state. ok is false
	// when the link was not Active (already terminal), which makes the
	// transition idempotent under concurrent invocations.
	TransitionState(ctx context.Context, id string, to models.ShareState) (ok bool, err error)

	// Revoke moves an Active link to Revoked. Revoking a link already in a
	// terminal state is a no-op success.
	Revoke(ctx context.Context, id string) error

	// SweepInvalid transitions every Active link whose time or view
	// condition has become true, returning how many rows changed per
	// terminal state. Safe to run repeatedly and concurrently.
	SweepInvalid(ctx context.Context, now time.Time) (expired, exhausted int64, err error)
}
