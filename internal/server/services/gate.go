package services

import (
	"context"
	"fmt"

	"github.com/snipvault/snipvault/internal/common"
	"github.com/snipvault/snipvault/internal/logging"
	"github.com/snipvault/snipvault/internal/ratelimit"
	"github.com/snipvault/snipvault/internal/server/auth"
)

// RateLimitGate sits in front of the other services. Every request passes
// it before reaching a share resolution or a write; a deny never touches
// the guarded operation.
type RateLimitGate struct {
	limiter *ratelimit.Limiter
	logger  logging.Logger
}

func NewRateLimitGate(limiter *ratelimit.Limiter, logger logging.Logger) *RateLimitGate {
	return &RateLimitGate{limiter: limiter, logger: logger.With("component", "ratelimit")}
}

// identityOf maps an authenticated principal (or an anonymous origin) to a
// limiter identity. Anonymous and authenticated traffic never share a pool.
func identityOf(id auth.Identity, origin string) ratelimit.Identity {
	out := ratelimit.Identity{Origin: origin, Tier: id.Tier}
	if id.Authenticated() {
		out.PrincipalID = id.UserID
	}
	return out
}

// Allow consumes one unit from the global layer and the scoped layer for
// this principal. A deny returns common.ErrRateLimitExceeded; the decision
// carries the limit metadata either way so callers can emit headers.
func (g *RateLimitGate) Allow(ctx context.Context, id auth.Identity, origin string, scope ratelimit.Scope) (ratelimit.Decision, error) {
	ident := identityOf(id, origin)

	decision, err := g.limiter.CheckAndConsume(ctx, ident, scope)
	if err != nil {
		return decision, err
	}
	if !decision.Allowed {
		g.logger.Warn(ctx, "rate limit exceeded",
			"key", ident.Key(),
			"scope", string(scope),
			"retry_after", decision.RetryAfter.String(),
		)
		return decision, fmt.Errorf("scope %s: %w", scope, common.ErrRateLimitExceeded)
	}
	return decision, nil
}
