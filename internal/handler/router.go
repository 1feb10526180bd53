// Copyright (c) 2025-2026 IEEE Student Branch UCSC
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ieeeucsc/codequest/internal/auth"
	"github.com/ieeeucsc/codequest/internal/config"
	"github.com/ieeeucsc/codequest/internal/middleware"
	"github.com/ieeeucsc/codequest/internal/service"
)

// RouterDeps carries everything the router wires together.
type RouterDeps struct {
	Config       *config.Config
	Sessions     *scs.SessionManager
	Signer       *auth.TokenSigner
	Challenge    *service.ChallengeService
	Registration *service.RegistrationService
	Auth         *service.AuthService
	Moderation   *service.ModerationService

	// LoginProtection rate-limits the admin login POST on top of tracking
	// its failure streaks.
	LoginProtection *middleware.LoginProtection
}

// NewRouter builds the full API router.
func NewRouter(deps RouterDeps) http.Handler {
	cfg := deps.Config
	isDev := cfg.IsDevelopment()

	challengeHandler := NewChallengeHandler(deps.Challenge, isDev)
	registrationHandler := NewRegistrationHandler(deps.Registration, isDev)
	authHandler := NewAuthHandler(deps.Auth, deps.Sessions)
	adminHandler := NewAdminHandler(deps.Moderation)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(isDev)))
	r.Use(deps.Sessions.LoadAndSave)

	csrfConfig := middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), isDev)
	r.Use(middleware.CSRF(csrfConfig))

	// Wrong verbs on known routes answer in the JSON envelope too
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "Not found")
	})

	publicRateLimiter := middleware.NewIPRateLimiter(10, 20)

	// Public routes
	r.Group(func(r chi.Router) {
		r.Use(publicRateLimiter.Middleware())

		r.Get("/api/challenge", challengeHandler.Get)
		r.Post("/api/challenge/submit", challengeHandler.Submit)
		r.Post("/api/teams", registrationHandler.Register)

		r.With(deps.LoginProtection.Middleware()).Post("/api/admin/login", authHandler.Login)
	})

	// Admin routes: signed token required
	r.Group(func(r chi.Router) {
		r.Use(middleware.AdminAuth(deps.Signer))

		r.Post("/api/admin/logout", authHandler.Logout)
		r.Get("/api/admin/teams", adminHandler.ListTeams)
		r.Patch("/api/admin/teams", adminHandler.UpdateTeamStatus)
		r.Get("/api/admin/teams/export", adminHandler.ExportTeams)
		r.Get("/api/admin/security-logs", adminHandler.SecurityLogs)
		r.Get("/api/admin/stats", adminHandler.Stats)
	})

	return r
}
