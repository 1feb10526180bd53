// Copyright (c) 2025-2026 IEEE Student Branch UCSC
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/ieeeucsc/codequest/internal/audit"
	"github.com/ieeeucsc/codequest/internal/auth"
	"github.com/ieeeucsc/codequest/internal/model"
	"github.com/ieeeucsc/codequest/internal/util"
)

// LoginResult is returned on a successful admin login.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	SessionID string    `json:"session_id"`
}

// AuthService handles admin login and logout with full audit coverage.
// Consecutive failures are tracked per client IP; the fifth in a row emits
// exactly one suspicious_activity event.
type AuthService struct {
	creds    *auth.Credentials
	signer   *auth.TokenSigner
	recorder *audit.Recorder
	failures AttemptTracker
}

// NewAuthService creates the admin auth service.
func NewAuthService(creds *auth.Credentials, signer *auth.TokenSigner, rec *audit.Recorder, failures AttemptTracker) *AuthService {
	return &AuthService{creds: creds, signer: signer, recorder: rec, failures: failures}
}

// Login verifies the credential pair and mints an admin token. Every attempt
// is audited; failed attempts are classified but the caller only ever sees
// ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, r *http.Request, username, password string) (LoginResult, error) {
	ip := util.ClientIP(r)

	reason := ""
	switch {
	case username == "":
		reason = model.FailureEmptyUsername
	case password == "":
		reason = model.FailureEmptyPassword
	default:
		ok, err := s.creds.Verify(username, password)
		if err != nil {
			return LoginResult{}, fmt.Errorf("verifying credentials: %w", err)
		}
		if !ok {
			reason = model.FailureInvalidCredentials
		}
	}

	if reason != "" {
		count := s.failures.RecordFailure(ip)
		s.recorder.Record(ctx, r, audit.Entry{
			EventType:      model.EventAdminLoginFailed,
			UserIdentifier: identifierOrUnknown(username),
			Details: map[string]any{
				"attempted_username":        username,
				"attempted_password_length": len(password),
				"failure_reason":            reason,
				"consecutive_failures":      count,
			},
			Success:   false,
			RiskLevel: model.RiskMedium,
		})

		if count == SuspiciousThreshold {
			s.recorder.Record(ctx, r, audit.Entry{
				EventType:      model.EventSuspicious,
				UserIdentifier: identifierOrUnknown(username),
				Details: map[string]any{
					"activity_type": "multiple_failed_logins",
					"failure_count": count,
					"time_window":   "24h",
				},
				Success:   false,
				RiskLevel: model.RiskHigh,
			})
		}

		return LoginResult{}, ErrInvalidCredentials
	}

	s.failures.Reset(ip)

	// First event: the credential check itself
	s.recorder.Record(ctx, r, audit.Entry{
		EventType:      model.EventAdminLogin,
		UserIdentifier: username,
		Details: map[string]any{
			"attempted_username": username,
		},
		Success:   true,
		RiskLevel: model.RiskLow,
	})

	token, sessionID, err := s.signer.Mint(username)
	if err != nil {
		return LoginResult{}, fmt.Errorf("minting admin token: %w", err)
	}

	// Second event: session creation
	s.recorder.Record(ctx, r, audit.Entry{
		EventType:      model.EventAdminLogin,
		UserIdentifier: username,
		Details: map[string]any{
			"action":     "session_created",
			"session_id": sessionID,
		},
		Success:   true,
		SessionID: sessionID,
		RiskLevel: model.RiskLow,
	})

	return LoginResult{
		Token:     token,
		ExpiresAt: time.Now().Add(auth.TokenTTL),
		Username:  username,
		SessionID: sessionID,
	}, nil
}

// Logout records the end of an admin session with its duration in minutes.
// The token itself simply ages out; logout is an audit affordance.
func (s *AuthService) Logout(ctx context.Context, r *http.Request, claims *auth.AdminClaims) {
	minutes := 0
	if claims.IssuedAt != nil {
		minutes = int(math.Round(time.Since(claims.IssuedAt.Time).Minutes()))
	}

	s.failures.Reset(util.ClientIP(r))

	s.recorder.Record(ctx, r, audit.Entry{
		EventType:      model.EventAdminLogout,
		UserIdentifier: claims.Username,
		Details: map[string]any{
			"action":                   "session_ended",
			"session_duration_minutes": minutes,
		},
		Success:   true,
		SessionID: claims.ID,
		RiskLevel: model.RiskLow,
	})
}

func identifierOrUnknown(username string) string {
	if username == "" {
		return "unknown"
	}
	return username
}
