// Package models defines the persisted shapes of the sharing core:
// share links, snippets with their content versions, and rate-limit
// window buckets.
package models

import (
	"strings"
	"time"
)

// ShareType is a closed variant: how a granted requester may use the
// resource. Type-specific checks dispatch on it by switch, never by
// subtyping.
type ShareType string

const (
	ShareTypeView   ShareType = "view"
	ShareTypeEdit   ShareType = "edit"
	ShareTypeReview ShareType = "review"
)

// Valid reports whether t is one of the closed set of share types.
func (t ShareType) Valid() bool {
	switch t {
	case ShareTypeView, ShareTypeEdit, ShareTypeReview:
		return true
	}
	return false
}

// ShareState is the lifecycle state of a share link. Active is the only
// non-terminal state; transitions are monotonic and terminal states never
// revert. Links are never physically deleted, only terminally stated, to
// preserve the audit trail.
type ShareState string

const (
	ShareStateActive    ShareState = "active"
	ShareStateRevoked   ShareState = "revoked"
	ShareStateExpired   ShareState = "expired"
	ShareStateExhausted ShareState = "exhausted"
)

// Terminal reports whether the state admits no further transitions.
func (s ShareState) Terminal() bool {
	return s != ShareStateActive
}

// ShareRules are the access restrictions evaluated on every resolution.
type ShareRules struct {
	AllowedEmails         []string
	AllowedDomains        []string
	RequireAuthentication bool
	RequirePassword       bool

	// PasswordHash is the hex SHA-256 of the share password; empty unless
	// RequirePassword is set.
	PasswordHash string
}

// EmailAllowed reports whether email passes the allowlist. An empty
// allowlist (no emails and no domains) allows everyone.
func (r ShareRules) EmailAllowed(email string) bool {
	if len(r.AllowedEmails) == 0 && len(r.AllowedDomains) == 0 {
		return true
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, allowed := range r.AllowedEmails {
		if email == strings.ToLower(strings.TrimSpace(allowed)) {
			return true
		}
	}
	if at := strings.LastIndexByte(email, '@'); at >= 0 {
		domain := email[at+1:]
		for _, allowed := range r.AllowedDomains {
			if domain == strings.ToLower(strings.TrimSpace(allowed)) {
				return true
			}
		}
	}
	return false
}

// ShareLimits bound how long and how often a link grants access.
type ShareLimits struct {
	// ExpiresAt is the absolute expiry; nil means the link never expires
	// by time.
	ExpiresAt *time.Time

	// MaxViews caps successful grants; nil means unlimited. CurrentViews
	// never exceeds MaxViews, including under concurrent access.
	MaxViews     *int
	CurrentViews int
}

// ShareAudit records the most recent successful access.
type ShareAudit struct {
	LastAccessedAt *time.Time
	LastIP         string
	LastUserAgent  string
}

// ShareLink is a time-limited, access-controlled grant of one resource.
// Only the SHA-256 hash of the opaque token is stored; the raw token is
// returned once at creation and otherwise appears only as a short prefix
// in logs.
type ShareLink struct {
	ID          string
	TokenHash   string
	ResourceRef string
	ShareType   ShareType
	Rules       ShareRules
	Limits      ShareLimits
	State       ShareState
	Audit       ShareAudit
	CreatedBy   string
	CreatedAt   time.Time
}

// ExpiredAt reports whether the link's time limit has passed at now.
func (l *ShareLink) ExpiredAt(now time.Time) bool {
	return l.Limits.ExpiresAt != nil && !now.Before(*l.Limits.ExpiresAt)
}

// ViewsExhausted reports whether the view budget is already spent.
func (l *ShareLink) ViewsExhausted() bool {
	return l.Limits.MaxViews != nil && l.Limits.CurrentViews >= *l.Limits.MaxViews
}
