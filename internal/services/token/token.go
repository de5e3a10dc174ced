// Copyright 2025 The Tradebench Authors
// Licensed under the EUPL-1.2

// Package token issues and verifies the signed session tokens carried by
// clients. Tokens are stateless; validity is purely cryptographic plus an
// expiry check.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired means the token was well-formed and correctly signed
	// but past its expiry. A token expiring exactly now counts as expired.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid means the token was malformed, forged, or signed with
	// a different secret. Callers may treat both errors uniformly as
	// unauthenticated.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrEmptyUserID is returned when issuing a token without a subject.
	ErrEmptyUserID = errors.New("empty user id")
)

// Claims are the verified contents of a session token.
type Claims struct {
	jwt.RegisteredClaims
}

// UserID returns the user identifier the token was issued for.
func (c *Claims) UserID() string {
	return c.Subject
}

// Issuer signs and verifies session tokens with a symmetric secret.
type Issuer struct {
	secret   []byte
	lifetime time.Duration
}

// NewIssuer creates an Issuer. The secret is externally supplied, never
// hardcoded.
func NewIssuer(secret []byte, lifetime time.Duration) *Issuer {
	return &Issuer{secret: secret, lifetime: lifetime}
}

// Issue mints a signed token for the given user id, expiring after the
// configured lifetime. No side effects.
func (i *Issuer) Issue(userID string) (string, error) {
	if userID == "" {
		return "", ErrEmptyUserID
	}

	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.lifetime)),
		},
	})

	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry. It distinguishes ErrTokenExpired from
// ErrTokenInvalid but never returns the library's raw errors.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if !tok.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
