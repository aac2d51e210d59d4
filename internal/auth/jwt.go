// Package auth issues and verifies the bearer tokens presented at WebSocket
// connect time. Tokens are HS256 JWTs carrying the user id and username.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nexuschat/server/internal/core"
	"github.com/nexuschat/server/internal/domain"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type JWT struct {
	secret []byte
	ttl    time.Duration
}

func New(secret string, ttl time.Duration) *JWT {
	return &JWT{secret: []byte(secret), ttl: ttl}
}

// Issue creates a signed token for a user.
func (j *JWT) Issue(uid domain.UserID, username string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   string(uid),
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "nexuschat",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// Verify parses the token, checks signature and expiry, and resolves the
// identity it names. Implements core.TokenVerifier.
func (j *JWT) Verify(tokenString string) (core.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return j.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return core.Identity{}, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return core.Identity{}, ErrInvalidToken
	}
	if err := domain.ValidateUsername(claims.Username); err != nil {
		return core.Identity{}, fmt.Errorf("invalid claims: %w", err)
	}
	return core.Identity{UserID: domain.UserID(claims.UserID), Username: claims.Username}, nil
}
