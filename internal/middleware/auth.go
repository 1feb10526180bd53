// Copyright (c) 2025-2026 IEEE Student Branch UCSC
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ieeeucsc/codequest/internal/auth"
)

// ContextKey is the type for request context keys set by middleware.
type ContextKey string

// ContextKeyAdmin is the context key for verified admin token claims.
const ContextKeyAdmin ContextKey = "admin_claims"

// AdminAuth creates middleware that requires a valid admin token in the
// Authorization header. Authorization is decided solely by verifying the
// token signature; nothing client-supplied is trusted on its own.
func AdminAuth(signer *auth.TokenSigner) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "Missing Authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				writeError(w, http.StatusUnauthorized, "Invalid Authorization header format. Use: Bearer <token>")
				return
			}

			claims, err := signer.Verify(parts[1])
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					writeError(w, http.StatusUnauthorized, "Session expired. Please log in again.")
					return
				}
				writeError(w, http.StatusUnauthorized, "Invalid admin token")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyAdmin, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAdminClaims retrieves the verified admin claims from the request context.
// Returns nil if the request did not pass AdminAuth.
func GetAdminClaims(r *http.Request) *auth.AdminClaims {
	claims, ok := r.Context().Value(ContextKeyAdmin).(*auth.AdminClaims)
	if !ok {
		return nil
	}
	return claims
}
