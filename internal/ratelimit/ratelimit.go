// Package ratelimit implements fixed-window request-quota accounting keyed
// by identity and rule scope. Endpoint-specific rules are layered under a
// coarser global per-identity-class rule; a request must pass both layers
// to be allowed. Buckets live behind the BucketStore port so the atomic
// increment-and-compare can be served by an in-memory store or by the
// persistence layer in multi-instance deployments.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Identity names the actor a quota is charged to. Authenticated principals
// and anonymous network origins use disjoint pools.
type Identity struct {
	// PrincipalID is the authenticated principal id; empty for anonymous.
	PrincipalID string

	// Origin is the network origin (remote address), used for anonymous
	// callers.
	Origin string

	// Tier applies to authenticated identities only.
	Tier Tier
}

// Key returns the pool key for this identity. The "user:"/"anon:" prefixes
// keep the pools disjoint even if a principal id collides with an address.
func (id Identity) Key() string {
	if id.PrincipalID != "" {
		return "user:" + id.PrincipalID
	}
	return "anon:" + id.Origin
}

// Class returns the rule class the identity's quotas are drawn from.
func (id Identity) Class() Class {
	if id.PrincipalID == "" {
		return ClassAnonymous
	}
	switch id.Tier {
	case TierPro:
		return ClassPro
	case TierEnterprise:
		return ClassEnterprise
	default:
		return ClassFree
	}
}

// Decision is the outcome of a quota check. It carries everything the HTTP
// boundary needs for Retry-After and X-RateLimit-* headers.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// BucketStore is the persistence port for window buckets. Increment must be
// atomic per key: concurrent callers may never push Count past limit.
type BucketStore interface {
	// Increment bumps the bucket (key, windowStart) by one if its count is
	// below limit, creating or resetting the bucket when the window rolled
	// over. It returns the count after the call and whether the increment
	// was applied.
	Increment(ctx context.Context, key string, windowStart time.Time, windowSeconds int, limit int) (count int, ok bool, err error)
}

// Limiter evaluates the rule table against a bucket store.
type Limiter struct {
	store BucketStore
	rules RuleTable

	now func() time.Time
}

// New returns a limiter over the given store and rule table.
func New(store BucketStore, rules RuleTable) *Limiter {
	return &Limiter{store: store, rules: rules, now: time.Now}
}

// consume charges one request against a single rule layer.
func (l *Limiter) consume(ctx context.Context, key string, scope Scope, rule Rule) (Decision, error) {
	now := l.now()
	windowStart := now.Truncate(rule.Window)
	resetAt := windowStart.Add(rule.Window)

	bucketKey := key + "|" + string(scope)
	count, ok, err := l.store.Increment(ctx, bucketKey, windowStart, int(rule.Window.Seconds()), rule.Limit)
	if err != nil {
		return Decision{}, fmt.Errorf("bucket increment: %w", err)
	}

	d := Decision{
		Allowed: ok,
		Limit:   rule.Limit,
		ResetAt: resetAt,
	}
	if ok {
		d.Remaining = rule.Limit - count
		return d, nil
	}
	d.RetryAfter = resetAt.Sub(now)
	if d.RetryAfter <= 0 {
		d.RetryAfter = time.Second
	}
	return d, nil
}

// CheckAndConsume charges one request for identity against scope. The global
// per-class layer is consumed first, then the scope layer; denial at either
// layer denies the request. A token consumed at the global layer stays
// consumed even when the scope layer denies: denied traffic still costs
// global quota.
func (l *Limiter) CheckAndConsume(ctx context.Context, identity Identity, scope Scope) (Decision, error) {
	class := identity.Class()
	key := identity.Key()

	if rule, ok := l.rules.Lookup(ScopeGlobal, class); ok {
		d, err := l.consume(ctx, key, ScopeGlobal, rule)
		if err != nil {
			return Decision{}, err
		}
		if !d.Allowed {
			return d, nil
		}
	}

	rule, ok := l.rules.Lookup(scope, class)
	if !ok {
		// No scoped rule configured; the global layer already passed.
		return Decision{Allowed: true, Limit: -1, Remaining: -1}, nil
	}
	return l.consume(ctx, key, scope, rule)
}

// WithClock overrides the limiter's time source. Intended for tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}
