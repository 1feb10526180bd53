// Copyright (c) 2025-2026 IEEE Student Branch UCSC
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ieeeucsc/codequest/internal/util"
)

// LoginProtection combines per-IP rate limiting with consecutive-failure
// tracking. The failure counter backs the suspicious-activity detector:
// callers record each failure and get back the running count, which resets
// on success or after the attempt window passes.
type LoginProtection struct {
	ipLimiters *limiterCache[string]

	failedAttempts map[string]*failureStreak
	attemptsMu     sync.Mutex

	attemptWindow time.Duration
	done          chan struct{}
}

// failureStreak tracks consecutive failures for one key.
type failureStreak struct {
	count      int
	lastFailed time.Time
}

// LoginProtectionConfig holds configuration for login protection.
type LoginProtectionConfig struct {
	// IPRateLimit is requests per second per IP (default: 0.5 = 1 request per 2 seconds)
	IPRateLimit float64
	// IPBurst is the maximum burst size for IP rate limiting (default: 5)
	IPBurst int
	// AttemptWindow is the time window for counting consecutive failures (default: 15 minutes)
	AttemptWindow time.Duration
}

// DefaultLoginProtectionConfig returns sensible defaults.
func DefaultLoginProtectionConfig() LoginProtectionConfig {
	return LoginProtectionConfig{
		IPRateLimit:   0.5, // 1 request per 2 seconds
		IPBurst:       5,
		AttemptWindow: 15 * time.Minute,
	}
}

// NewLoginProtection creates a new login protection instance.
func NewLoginProtection(cfg LoginProtectionConfig) *LoginProtection {
	if cfg.IPRateLimit <= 0 {
		cfg.IPRateLimit = 0.5
	}
	if cfg.IPBurst <= 0 {
		cfg.IPBurst = 5
	}
	if cfg.AttemptWindow <= 0 {
		cfg.AttemptWindow = 15 * time.Minute
	}

	lp := &LoginProtection{
		ipLimiters:     newLimiterCache[string](cfg.IPRateLimit, cfg.IPBurst),
		failedAttempts: make(map[string]*failureStreak),
		attemptWindow:  cfg.AttemptWindow,
		done:           make(chan struct{}),
	}

	go lp.cleanup()

	return lp
}

// RecordFailure records one failed attempt for key and returns the
// consecutive-failure count including this one. The counter resets when
// the attempt window passes without failures.
func (lp *LoginProtection) RecordFailure(key string) int {
	lp.attemptsMu.Lock()
	defer lp.attemptsMu.Unlock()

	now := time.Now()
	streak, exists := lp.failedAttempts[key]

	if !exists || now.Sub(streak.lastFailed) > lp.attemptWindow {
		streak = &failureStreak{}
		lp.failedAttempts[key] = streak
	}

	streak.count++
	streak.lastFailed = now
	return streak.count
}

// Reset clears failure tracking for key after a success.
func (lp *LoginProtection) Reset(key string) {
	lp.attemptsMu.Lock()
	defer lp.attemptsMu.Unlock()

	delete(lp.failedAttempts, key)
}

// FailureCount returns the current consecutive-failure count for key.
func (lp *LoginProtection) FailureCount(key string) int {
	lp.attemptsMu.Lock()
	defer lp.attemptsMu.Unlock()

	streak, exists := lp.failedAttempts[key]
	if !exists || time.Since(streak.lastFailed) > lp.attemptWindow {
		return 0
	}
	return streak.count
}

// Close stops the background cleanup goroutine.
func (lp *LoginProtection) Close() {
	close(lp.done)
}

// cleanup periodically removes stale entries.
func (lp *LoginProtection) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-lp.done:
			return
		case <-ticker.C:
			lp.cleanupStaleEntries()
		}
	}
}

func (lp *LoginProtection) cleanupStaleEntries() {
	if lp.ipLimiters.clearIfExceeds(10000) {
		slog.Info("cleared IP rate limiters due to size")
	}

	now := time.Now()
	lp.attemptsMu.Lock()
	for key, streak := range lp.failedAttempts {
		if now.Sub(streak.lastFailed) > lp.attemptWindow {
			delete(lp.failedAttempts, key)
		}
	}
	lp.attemptsMu.Unlock()
}

// Middleware returns HTTP middleware for IP rate limiting on login.
// This should be applied to the login POST route.
func (lp *LoginProtection) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Only rate limit POST requests
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			ip := util.ClientIP(r)

			if !lp.ipLimiters.get(ip).Allow() {
				slog.Warn("login rate limit exceeded", "ip", ip)
				writeError(w, http.StatusTooManyRequests, "Too many login attempts. Please wait a moment and try again.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
