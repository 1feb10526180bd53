// Copyright (c) 2025-2026 IEEE Student Branch UCSC
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenTTL is the lifetime of an admin API token.
const TokenTTL = 24 * time.Hour

var (
	// ErrTokenInvalid is returned for malformed, forged, or wrong-audience tokens.
	ErrTokenInvalid = errors.New("invalid admin token")
	// ErrTokenExpired is returned for otherwise valid but expired tokens.
	ErrTokenExpired = errors.New("admin token expired")
)

const tokenIssuer = "codequest-portal"

// AdminClaims are the claims carried by an admin API token.
type AdminClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenSigner mints and verifies HS256-signed admin tokens. The server never
// trusts a client-supplied session identifier; authorization comes only from
// a token the server itself signed.
type TokenSigner struct {
	secret []byte
	now    func() time.Time
}

// NewTokenSigner creates a signer bound to the shared session secret.
func NewTokenSigner(secret string) *TokenSigner {
	return &TokenSigner{secret: []byte(secret), now: time.Now}
}

// Mint issues a fresh admin token for username. The jti doubles as the
// audit session identifier for the login.
func (s *TokenSigner) Mint(username string) (token, sessionID string, err error) {
	now := s.now()
	sessionID = uuid.NewString()
	claims := AdminClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Issuer:    tokenIssuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", "", fmt.Errorf("signing admin token: %w", err)
	}
	return signed, sessionID, nil
}

// Verify parses and validates a token string, returning its claims.
func (s *TokenSigner) Verify(tokenString string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
