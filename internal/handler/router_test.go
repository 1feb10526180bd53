// Copyright (c) 2025-2026 IEEE Student Branch UCSC
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/ieeeucsc/codequest/internal/audit"
	"github.com/ieeeucsc/codequest/internal/auth"
	"github.com/ieeeucsc/codequest/internal/cache"
	"github.com/ieeeucsc/codequest/internal/config"
	"github.com/ieeeucsc/codequest/internal/middleware"
	"github.com/ieeeucsc/codequest/internal/service"
	"github.com/ieeeucsc/codequest/internal/session"
	"github.com/ieeeucsc/codequest/internal/store"
)

const (
	testFlag      = "CODEQUEST{c00k13_m0nst3r_f0und_th3_tr34sur3}"
	testAdminUser = "admin"
	testAdminPass = "codequest2025admin"
	testSecret    = "test-secret-key-32-bytes-long!!!"
)

type testApp struct {
	router  http.Handler
	queries *store.Queries
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	f, err := os.CreateTemp("", "codequest-handler-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	_ = f.Close()

	db, err := store.NewDB(dbPath)
	if err != nil {
		_ = os.Remove(dbPath)
		t.Fatalf("NewDB: %v", err)
	}
	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		_ = os.Remove(dbPath)
		t.Fatalf("Migrate: %v", err)
	}

	queries := store.New(db)
	if err := store.Seed(t.Context(), queries); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	memCache := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Minute})

	// Generous rate limits so tests never trip them
	flagAttempts := middleware.NewLoginProtection(middleware.LoginProtectionConfig{
		IPRateLimit: 1000, IPBurst: 1000, AttemptWindow: time.Hour,
	})
	loginProtection := middleware.NewLoginProtection(middleware.LoginProtectionConfig{
		IPRateLimit: 1000, IPBurst: 1000, AttemptWindow: time.Hour,
	})

	t.Cleanup(func() {
		flagAttempts.Close()
		loginProtection.Close()
		_ = memCache.Close()
		_ = db.Close()
		_ = os.Remove(dbPath)
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := audit.NewRecorder(queries, nil, logger)

	creds, err := auth.NewCredentials(testAdminUser, testAdminPass, "")
	if err != nil {
		t.Fatalf("NewCredentials: %v", err)
	}
	signer := auth.NewTokenSigner(testSecret)

	challengeService := service.NewChallengeService(queries, memCache, recorder, flagAttempts)
	registrationService := service.NewRegistrationService(queries, challengeService, recorder)
	authService := service.NewAuthService(creds, signer, recorder, loginProtection)
	moderationService := service.NewModerationService(queries, recorder)

	cfg := &config.Config{
		SessionSecret: testSecret,
		Env:           "development",
	}

	router := NewRouter(RouterDeps{
		Config:          cfg,
		Sessions:        session.New(db, true),
		Signer:          signer,
		Challenge:       challengeService,
		Registration:    registrationService,
		Auth:            authService,
		Moderation:      moderationService,
		LoginProtection: loginProtection,
	})

	return &testApp{router: router, queries: queries}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (app *testApp) do(t *testing.T, method, target string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) Chrome/120.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decoding envelope from %q: %v", rec.Body.String(), err)
	}
	return env
}

func (app *testApp) loginAdmin(t *testing.T) string {
	t.Helper()
	rec := app.do(t, http.MethodPost, "/api/admin/login",
		map[string]string{"username": testAdminUser, "password": testAdminPass}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body.String())
	}
	var data struct {
		Token string `json:"token"`
	}
	env := app.decode(t, rec)
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decoding login data: %v", err)
	}
	if data.Token == "" {
		t.Fatal("login returned empty token")
	}
	return data.Token
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func registerTeamBody(name, email string) map[string]string {
	return map[string]string{
		"team_name":         name,
		"team_leader_name":  "Amara Silva",
		"team_leader_email": email,
		"team_leader_phone": "+94 71 234 5678",
		"member2_name":      "Kasun Perera",
		"member2_email":     "kasun@uni.example",
		"university":        "UCSC",
		"flag":              testFlag,
	}
}
