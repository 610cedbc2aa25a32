// Package auth implements the credential primitives of the authentication
// core: signed expiring tokens, password hashing, and refresh-token
// fingerprints.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/penlight/penlight/internal/common"
	"github.com/penlight/penlight/internal/server/config"
)

// TokenClass distinguishes the two token kinds issued by the codec.
type TokenClass string

const (
	TokenClassAccess  TokenClass = "access"
	TokenClassRefresh TokenClass = "refresh"
)

// Claims includes the registered claims plus the subject user ID and the
// token class.
type Claims struct {
	jwt.RegisteredClaims
	UserID string     `json:"uid"`
	Class  TokenClass `json:"class"`
}

// Codec issues and verifies signed expiring tokens. Each class is signed
// with its own secret, so a leaked access key cannot forge refresh tokens.
type Codec struct {
	accessSecret    []byte
	refreshSecret   []byte
	accessValidity  time.Duration
	refreshValidity time.Duration
}

// NewCodec constructs a Codec from server config.
func NewCodec(cfg *config.Config) *Codec {
	return &Codec{
		accessSecret:    []byte(cfg.AccessTokenSecret),
		refreshSecret:   []byte(cfg.RefreshTokenSecret),
		accessValidity:  cfg.AccessTokenValidityDuration,
		refreshValidity: cfg.RefreshTokenValidityDuration,
	}
}

// Validity returns the configured lifetime of the given class.
func (c *Codec) Validity(class TokenClass) time.Duration {
	if class == TokenClassRefresh {
		return c.refreshValidity
	}
	return c.accessValidity
}

func (c *Codec) secretFor(class TokenClass) ([]byte, error) {
	switch class {
	case TokenClassAccess:
		return c.accessSecret, nil
	case TokenClassRefresh:
		return c.refreshSecret, nil
	default:
		return nil, common.ErrInvalidToken
	}
}

// Issue signs a token of the given class for userID, expiring after the
// class's configured validity.
func (c *Codec) Issue(userID string, class TokenClass) (string, error) {
	secret, err := c.secretFor(class)
	if err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(c.Validity(class))),
		},
		UserID: userID,
		Class:  class,
	})

	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Verify validates the token string and returns the subject user ID.
//
// The signing secret is chosen by the class the token claims to be, so the
// signature check pins the claim: a token cannot pass as a class it was not
// signed for. Errors are one of common.ErrTokenExpired,
// common.ErrTokenClassMismatch, or common.ErrInvalidToken.
func (c *Codec) Verify(tokenString string, expected TokenClass) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secretFor(claims.Class)
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid {
		return "", common.ErrInvalidToken
	}

	if claims.Class != expected {
		return "", common.ErrTokenClassMismatch
	}

	return claims.UserID, nil
}
