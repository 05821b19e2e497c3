// Package services implements the security-perimeter operations over the
// repository ports: share lifecycle and access decisions, the snippet save
// pipeline, and the rate-limit gate.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/snipvault/snipvault/internal/common"
	"github.com/snipvault/snipvault/internal/cryptox"
	"github.com/snipvault/snipvault/internal/logging"
	"github.com/snipvault/snipvault/internal/server/models"
	"github.com/snipvault/snipvault/internal/server/repositories/shares"
)

// tokenBytes gives 256 bits of token entropy (64 hex characters).
const tokenBytes = 32

// TokenPrefix returns the short non-reversible prefix under which a share
// token may appear in logs. The full token never does.
func TokenPrefix(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8]
}

// Resource is what the lookup collaborator returns for a resourceRef:
// the owner and the content, already unsealed.
type Resource struct {
	Ref     string
	OwnerID string
	Content []byte
}

// ResourceStore is the resource lookup collaborator. ShareService calls it
// only after a Grant decision.
type ResourceStore interface {
	Lookup(ctx context.Context, resourceRef string) (*Resource, error)
}

// AccessContext describes the requester of a share resolution.
type AccessContext struct {
	Email         string
	Authenticated bool
	Password      string
	IP            string
	UserAgent     string
}

// Grant is a successful access decision.
type Grant struct {
	Resource  *Resource
	ShareType models.ShareType

	// RemainingViews is nil for unlimited shares.
	RemainingViews *int
}

// CreateShareParams are the caller-supplied share settings.
type CreateShareParams struct {
	ResourceRef string
	ShareType   models.ShareType

	AllowedEmails         []string
	AllowedDomains        []string
	RequireAuthentication bool

	// Password, when non-empty, makes the share password-protected. Only
	// its SHA-256 is stored.
	Password string

	ExpiresAt *time.Time
	MaxViews  *int
}

// ShareService is the share-access state machine over a shares.Repository.
type ShareService struct {
	repo      shares.Repository
	resources ResourceStore
	logger    logging.Logger

	now func() time.Time
}

func NewShareService(repo shares.Repository, resources ResourceStore, logger logging.Logger) *ShareService {
	return &ShareService{
		repo:      repo,
		resources: resources,
		logger:    logger.With("component", "share"),
		now:       time.Now,
	}
}

// WithClock overrides the service time source. Intended for tests.
func (s *ShareService) WithClock(now func() time.Time) *ShareService {
	s.now = now
	return s
}

// CreateShare mints a share link with a fresh unguessable token. The raw
// token is returned exactly once; only its hash is persisted.
func (s *ShareService) CreateShare(ctx context.Context, params CreateShareParams, owner string) (*models.ShareLink, string, error) {
	if !params.ShareType.Valid() {
		return nil, "", fmt.Errorf("share type %q: %w", params.ShareType, common.ErrorInternal)
	}
	if params.MaxViews != nil && *params.MaxViews < 1 {
		return nil, "", fmt.Errorf("max views must be positive: %w", common.ErrorInternal)
	}

	token, err := common.MakeRandHexString(tokenBytes)
	if err != nil {
		return nil, "", err
	}

	link := &models.ShareLink{
		ID:          uuid.NewString(),
		TokenHash:   cryptox.Hash([]byte(token)),
		ResourceRef: params.ResourceRef,
		ShareType:   params.ShareType,
		Rules: models.ShareRules{
			AllowedEmails:         params.AllowedEmails,
			AllowedDomains:        params.AllowedDomains,
			RequireAuthentication: params.RequireAuthentication,
			RequirePassword:       params.Password != "",
		},
		Limits: models.ShareLimits{
			ExpiresAt: params.ExpiresAt,
			MaxViews:  params.MaxViews,
		},
		State:     models.ShareStateActive,
		CreatedBy: owner,
		CreatedAt: s.now(),
	}
	if link.Rules.RequirePassword {
		link.Rules.PasswordHash = cryptox.Hash([]byte(params.Password))
	}

	if err := s.repo.Create(ctx, link); err != nil {
		return nil, "", err
	}

	s.logger.Info(ctx, "share created",
		"share_id", link.ID,
		"token_prefix", TokenPrefix(token),
		"share_type", string(link.ShareType),
	)
	return link, token, nil
}

// terminalErr maps a terminal state to its deny reason.
func terminalErr(state models.ShareState) error {
	switch state {
	case models.ShareStateRevoked:
		return common.ErrTokenRevoked
	case models.ShareStateExpired:
		return common.ErrTokenExpired
	case models.ShareStateExhausted:
		return common.ErrViewLimitExhausted
	}
	return nil
}

// ResolveAccess runs the ordered access checks for token and, on success,
// atomically consumes one view and returns the resource. Denials are the
// sentinel errors of package common; callers branch on them with errors.Is.
//
// The check order is part of the contract: token existence, revocation,
// time expiry, view budget, password, allowlist, authentication. The first
// failure wins.
func (s *ShareService) ResolveAccess(ctx context.Context, token string, actx AccessContext) (*Grant, error) {
	now := s.now()

	link, err := s.repo.GetByTokenHash(ctx, cryptox.Hash([]byte(token)))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrTokenNotFound
		}
		return nil, err
	}

	log := s.logger.With("share_id", link.ID, "token_prefix", TokenPrefix(token))

	if err := terminalErr(link.State); err != nil {
		return nil, err
	}

	if link.ExpiredAt(now) {
		// Lazy transition; the conditional update makes a racing cleanup
		// run harmless.
		if _, err := s.repo.TransitionState(ctx, link.ID, models.ShareStateExpired); err != nil {
			return nil, err
		}
		return nil, common.ErrTokenExpired
	}

	if link.ViewsExhausted() {
		if _, err := s.repo.TransitionState(ctx, link.ID, models.ShareStateExhausted); err != nil {
			return nil, err
		}
		return nil, common.ErrViewLimitExhausted
	}

	if link.Rules.RequirePassword {
		if actx.Password == "" {
			return nil, common.ErrPasswordRequired
		}
		if !cryptox.VerifyHash([]byte(actx.Password), link.Rules.PasswordHash) {
			return nil, common.ErrPasswordMismatch
		}
	}

	if !link.Rules.EmailAllowed(actx.Email) {
		return nil, common.ErrAccessRestricted
	}

	if link.Rules.RequireAuthentication && !actx.Authenticated {
		return nil, common.ErrAuthenticationRequired
	}

	views, state, ok, err := s.repo.ConsumeView(ctx, link.ID, now, actx.IP, actx.UserAgent)
	if err != nil {
		return nil, err
	}
	if !ok {
		// A concurrent caller spent the budget (or terminated the link)
		// between our read and the increment. Re-read for the exact reason.
		current, err := s.repo.GetByID(ctx, link.ID)
		if err == nil {
			if terr := terminalErr(current.State); terr != nil {
				return nil, terr
			}
		}
		return nil, common.ErrViewLimitExhausted
	}

	resource, err := s.resources.Lookup(ctx, link.ResourceRef)
	if err != nil {
		return nil, err
	}

	grant := &Grant{Resource: resource, ShareType: link.ShareType}
	if link.Limits.MaxViews != nil {
		remaining := *link.Limits.MaxViews - views
		grant.RemainingViews = &remaining
	}

	log.Info(ctx, "share access granted", "views", views, "state", string(state))
	return grant, nil
}

// Revoke terminates a share. Only the owner (or an admin) may revoke;
// revoking a link already in a terminal state is a no-op success.
func (s *ShareService) Revoke(ctx context.Context, shareID, actorID string, admin bool) error {
	link, err := s.repo.GetByID(ctx, shareID)
	if err != nil {
		return err
	}
	if !admin && link.CreatedBy != actorID {
		return common.ErrorUnauthorized
	}

	if err := s.repo.Revoke(ctx, shareID); err != nil {
		return err
	}
	s.logger.Info(ctx, "share revoked", "share_id", shareID, "actor", actorID)
	return nil
}

// CleanupExpired transitions every Active share whose time or view
// condition has become true. Idempotent; overlapping invocations cannot
// double-transition a row because the sweep updates are conditional on
// the Active state.
func (s *ShareService) CleanupExpired(ctx context.Context) (int64, error) {
	expired, exhausted, err := s.repo.SweepInvalid(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if expired+exhausted > 0 {
		s.logger.Info(ctx, "share cleanup", "expired", expired, "exhausted", exhausted)
	}
	return expired + exhausted, nil
}
