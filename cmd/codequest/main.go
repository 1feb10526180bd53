// Copyright (c) 2025-2026 IEEE Student Branch UCSC
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ieeeucsc/codequest/internal/audit"
	"github.com/ieeeucsc/codequest/internal/auth"
	"github.com/ieeeucsc/codequest/internal/cache"
	"github.com/ieeeucsc/codequest/internal/config"
	"github.com/ieeeucsc/codequest/internal/geoip"
	"github.com/ieeeucsc/codequest/internal/handler"
	"github.com/ieeeucsc/codequest/internal/logging"
	"github.com/ieeeucsc/codequest/internal/middleware"
	"github.com/ieeeucsc/codequest/internal/scheduler"
	"github.com/ieeeucsc/codequest/internal/service"
	"github.com/ieeeucsc/codequest/internal/session"
	"github.com/ieeeucsc/codequest/internal/store"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "CodeQuest - CTF hackathon registration portal\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CODEQUEST_SESSION_SECRET    Session/token signing key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CODEQUEST_DB_PATH           SQLite database path (default: ./data/codequest.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CODEQUEST_SERVER_PORT       Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CODEQUEST_ENV               Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CODEQUEST_ADMIN_USERNAME    Admin username (default: admin)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CODEQUEST_ADMIN_PASSWORD    Admin password (or CODEQUEST_ADMIN_PASSWORD_HASH)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CODEQUEST_REDIS_URL         Redis URL for distributed caching (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CODEQUEST_GEOIP_DB_PATH     GeoLite2-Country.mmdb path for audit enrichment (optional)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}
	if *showVersion {
		_, _ = fmt.Printf("codequest %s (commit: %s, built: %s)\n", appVersion, appGitCommit, appBuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Ensure data directory exists
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger so WARN and ERROR records mirror into the security log
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewSecurityLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("security log integration enabled", "min_level", "warn")

	ctx := context.Background()
	queries := store.New(db)

	if cfg.DoSeed {
		if err := store.Seed(ctx, queries); err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}
	}

	// GeoIP enrichment for audit events (optional)
	geo := geoip.NewLookup()
	if err := geo.Init(cfg.GeoIPDBPath); err != nil {
		slog.Warn("GeoIP disabled", "error", err)
	} else if geo.IsEnabled() {
		slog.Info("GeoIP lookup enabled", "path", cfg.GeoIPDBPath)
	}
	defer func() {
		_ = geo.Close()
	}()

	// Challenge cache (Redis when configured, memory otherwise)
	appCache := cache.NewFromConfig(cfg)
	defer func() {
		_ = appCache.Close()
	}()

	sessionManager := session.New(db, cfg.IsDevelopment())
	slog.Info("session manager initialized")

	recorder := audit.NewRecorder(queries, geo, logger)

	creds, err := auth.NewCredentials(cfg.AdminUsername, cfg.AdminPassword, cfg.AdminPasswordHash)
	if err != nil {
		return fmt.Errorf("preparing admin credentials: %w", err)
	}
	signer := auth.NewTokenSigner(cfg.SessionSecret)

	// Failure streaks: admin logins key by client IP, flag submissions by
	// visitor session. The flag gate window matches its suspicious-activity
	// report window of one hour.
	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	defer loginProtection.Close()
	flagAttempts := middleware.NewLoginProtection(middleware.LoginProtectionConfig{
		IPRateLimit:   2,
		IPBurst:       10,
		AttemptWindow: time.Hour,
	})
	defer flagAttempts.Close()
	slog.Info("login protection initialized",
		"ip_rate_limit", "0.5 req/s",
		"suspicious_threshold", service.SuspiciousThreshold,
	)

	challengeService := service.NewChallengeService(queries, appCache, recorder, flagAttempts)
	registrationService := service.NewRegistrationService(queries, challengeService, recorder)
	authService := service.NewAuthService(creds, signer, recorder, loginProtection)
	moderationService := service.NewModerationService(queries, recorder)

	// Background maintenance: audit retention pruning, GeoIP reloads
	sched := scheduler.New(queries, geo, logger, cfg.LogRetentionDays)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	router := handler.NewRouter(handler.RouterDeps{
		Config:          cfg,
		Sessions:        sessionManager,
		Signer:          signer,
		Challenge:       challengeService,
		Registration:    registrationService,
		Auth:            authService,
		Moderation:      moderationService,
		LoginProtection: loginProtection,
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
