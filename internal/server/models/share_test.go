package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShareType_Valid(t *testing.T) {
	assert.True(t, ShareTypeView.Valid())
	assert.True(t, ShareTypeEdit.Valid())
	assert.True(t, ShareTypeReview.Valid())
	assert.False(t, ShareType("download").Valid())
}

func TestShareState_Terminal(t *testing.T) {
	assert.False(t, ShareStateActive.Terminal())
	for _, s := range []ShareState{ShareStateRevoked, ShareStateExpired, ShareStateExhausted} {
		assert.True(t, s.Terminal(), "state %s", s)
	}
}

func TestShareRules_EmailAllowed(t *testing.T) {
	open := ShareRules{}
	assert.True(t, open.EmailAllowed("anyone@example.com"))
	assert.True(t, open.EmailAllowed(""))

	byEmail := ShareRules{AllowedEmails: []string{"Alice@Example.com"}}
	assert.True(t, byEmail.EmailAllowed("alice@example.com"))
	assert.False(t, byEmail.EmailAllowed("bob@example.com"))

	byDomain := ShareRules{AllowedDomains: []string{"example.com"}}
	assert.True(t, byDomain.EmailAllowed("bob@example.com"))
	assert.False(t, byDomain.EmailAllowed("bob@other.org"))
	assert.False(t, byDomain.EmailAllowed("no-at-sign"))

	both := ShareRules{AllowedEmails: []string{"x@y.z"}, AllowedDomains: []string{"corp.io"}}
	assert.True(t, both.EmailAllowed("x@y.z"))
	assert.True(t, both.EmailAllowed("dev@corp.io"))
	assert.False(t, both.EmailAllowed("dev@y.z"))
}

func TestShareLink_ExpiredAt(t *testing.T) {
	now := time.Now()

	var l ShareLink
	assert.False(t, l.ExpiredAt(now), "no expiry set")

	past := now.Add(-time.Minute)
	l.Limits.ExpiresAt = &past
	assert.True(t, l.ExpiredAt(now))

	future := now.Add(time.Minute)
	l.Limits.ExpiresAt = &future
	assert.False(t, l.ExpiredAt(now))

	// Exactly at the boundary counts as expired.
	l.Limits.ExpiresAt = &now
	assert.True(t, l.ExpiredAt(now))
}

func TestShareLink_ViewsExhausted(t *testing.T) {
	var l ShareLink
	l.Limits.CurrentViews = 1000
	assert.False(t, l.ViewsExhausted(), "unlimited views")

	three := 3
	l.Limits.MaxViews = &three
	l.Limits.CurrentViews = 2
	assert.False(t, l.ViewsExhausted())
	l.Limits.CurrentViews = 3
	assert.True(t, l.ViewsExhausted())
}

func TestContentVersion_ContainsSensitiveData(t *testing.T) {
	v := ContentVersion{}
	assert.False(t, v.ContainsSensitiveData())
	v.Findings = []string{"aws_access_key"}
	assert.True(t, v.ContainsSensitiveData())
}
