// Package auth issues and validates the signed identity tokens presented
// by authenticated requesters. The share-access and rate-limit layers only
// consume the resulting Identity; login flows live outside this core.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/snipvault/snipvault/internal/common"
	"github.com/snipvault/snipvault/internal/ratelimit"
)

// Claims carries the registered claims plus the principal id, email, and
// paid tier used by the quota pools.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
	Email  string `json:"email,omitempty"`
	Tier   string `json:"tier,omitempty"`
}

// Identity is a validated requester identity.
type Identity struct {
	UserID string
	Email  string
	Tier   ratelimit.Tier
}

// Authenticated reports whether the identity names a principal.
func (id Identity) Authenticated() bool {
	return id.UserID != ""
}

// GenerateToken signs an HS256 token for the given identity.
func GenerateToken(id Identity, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		UserID: id.UserID,
		Email:  id.Email,
		Tier:   string(id.Tier),
	})
	return token.SignedString(secretKey)
}

// IdentityFromToken validates tokenString and extracts the identity.
// Expired tokens return common.ErrTokenExpired; any other validation
// failure returns common.ErrInvalidToken.
func IdentityFromToken(tokenString string, secretKey []byte) (Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, common.ErrInvalidToken
		}
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, common.ErrTokenExpired
		}
		return Identity{}, common.ErrInvalidToken
	}
	if !token.Valid || claims.UserID == "" {
		return Identity{}, common.ErrInvalidToken
	}

	return Identity{
		UserID: claims.UserID,
		Email:  claims.Email,
		Tier:   ratelimit.Tier(claims.Tier),
	}, nil
}
