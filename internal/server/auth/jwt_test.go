package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snipvault/snipvault/internal/common"
	"github.com/snipvault/snipvault/internal/ratelimit"
)

var testSecret = []byte("test-secret")

func TestToken_RoundTrip(t *testing.T) {
	id := Identity{UserID: "u-42", Email: "dev@example.com", Tier: ratelimit.TierPro}

	tokenString, err := GenerateToken(id, testSecret, time.Hour)
	require.NoError(t, err)

	got, err := IdentityFromToken(tokenString, testSecret)
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.True(t, got.Authenticated())
}

func TestIdentityFromToken_Expired(t *testing.T) {
	tokenString, err := GenerateToken(Identity{UserID: "u-1"}, testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = IdentityFromToken(tokenString, testSecret)
	assert.True(t, errors.Is(err, common.ErrTokenExpired), "got %v", err)
}

func TestIdentityFromToken_WrongKey(t *testing.T) {
	tokenString, err := GenerateToken(Identity{UserID: "u-1"}, testSecret, time.Hour)
	require.NoError(t, err)

	_, err = IdentityFromToken(tokenString, []byte("other-secret"))
	assert.True(t, errors.Is(err, common.ErrInvalidToken), "got %v", err)
}

func TestIdentityFromToken_Garbage(t *testing.T) {
	_, err := IdentityFromToken("not-a-jwt", testSecret)
	assert.True(t, errors.Is(err, common.ErrInvalidToken), "got %v", err)
}

func TestIdentity_Authenticated(t *testing.T) {
	assert.False(t, Identity{}.Authenticated())
	assert.True(t, Identity{UserID: "u"}.Authenticated())
}
