// Copyright (c) 2025-2026 IEEE Student Branch UCSC
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/ieeeucsc/codequest/internal/middleware"
	"github.com/ieeeucsc/codequest/internal/service"
	"github.com/ieeeucsc/codequest/internal/session"
)

// AuthHandler serves admin login and logout.
type AuthHandler struct {
	auth     *service.AuthService
	sessions *scs.SessionManager
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(auth *service.AuthService, sessions *scs.SessionManager) *AuthHandler {
	return &AuthHandler{auth: auth, sessions: sessions}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
}

// Login verifies admin credentials, mints the API token, and starts the
// browser session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.auth.Login(r.Context(), r, req.Username, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// Session fixation: fresh session token on privilege change
	if err := h.sessions.RenewToken(r.Context()); err == nil {
		h.sessions.Put(r.Context(), session.KeyAdminUser, result.Username)
	}

	writeJSONSuccess(w, http.StatusOK, loginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Username:  result.Username,
	})
}

// Logout records the session end and destroys the browser session. The API
// token itself is short-lived and simply expires.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetAdminClaims(r)
	if claims == nil {
		writeJSONError(w, http.StatusUnauthorized, "Missing Authorization header")
		return
	}

	h.auth.Logout(r.Context(), r, claims)
	_ = h.sessions.Destroy(r.Context())

	writeJSONSuccess(w, http.StatusOK, map[string]any{"message": "Logged out"})
}
