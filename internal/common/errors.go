// Package common defines shared constants and sentinel errors used across
// snipvault components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrPersistenceUnavailable marks transient storage failures (timeouts,
	// lost connections). It is the only retryable class; retry policy is
	// owned by the caller.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Crypto errors. ErrAuthenticationFailed signals tamper or corruption
	// and must never be retried with the same inputs.
	ErrInvalidKey           = errors.New("invalid key")
	ErrAuthenticationFailed = errors.New("authentication failed")

	// Share access errors, one per deny reason of the access state machine.
	ErrTokenNotFound          = errors.New("token not found")
	ErrTokenRevoked           = errors.New("token revoked")
	ErrTokenExpired           = errors.New("token expired")
	ErrViewLimitExhausted     = errors.New("view limit exhausted")
	ErrPasswordRequired       = errors.New("password required")
	ErrPasswordMismatch       = errors.New("password mismatch")
	ErrAccessRestricted       = errors.New("access restricted")
	ErrAuthenticationRequired = errors.New("authentication required")

	// Rate limiting.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInvalidToken marks malformed or badly signed identity tokens.
	ErrInvalidToken = errors.New("invalid token")
)

// reasonCodes maps deny sentinels to the stable wire codes clients branch on.
var reasonCodes = []struct {
	err  error
	code string
}{
	{ErrTokenNotFound, "token_not_found"},
	{ErrTokenRevoked, "token_revoked"},
	{ErrTokenExpired, "token_expired"},
	{ErrViewLimitExhausted, "view_limit_exhausted"},
	{ErrPasswordRequired, "password_required"},
	{ErrPasswordMismatch, "password_mismatch"},
	{ErrAccessRestricted, "access_restricted"},
	{ErrAuthenticationRequired, "authentication_required"},
	{ErrRateLimitExceeded, "rate_limit_exceeded"},
	{ErrPersistenceUnavailable, "persistence_unavailable"},
}

// ReasonCode returns the stable machine-readable code for a deny error, or
// "internal_error" for anything outside the deny taxonomy. Codes are part
// of the client contract and never change.
func ReasonCode(err error) string {
	for _, rc := range reasonCodes {
		if errors.Is(err, rc.err) {
			return rc.code
		}
	}
	return "internal_error"
}
