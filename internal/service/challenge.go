// Copyright (c) 2025-2026 IEEE Student Branch UCSC
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/ieeeucsc/codequest/internal/audit"
	"github.com/ieeeucsc/codequest/internal/cache"
	"github.com/ieeeucsc/codequest/internal/model"
	"github.com/ieeeucsc/codequest/internal/store"
	"github.com/ieeeucsc/codequest/internal/util"
)

// SuspiciousThreshold is the consecutive-failure count at which exactly one
// suspicious_activity event is emitted.
const SuspiciousThreshold = 5

const (
	challengeCategory = "web"
	challengeCacheKey = "challenge:web"
)

// AttemptTracker counts consecutive failures per key. Satisfied by
// middleware.LoginProtection.
type AttemptTracker interface {
	RecordFailure(key string) int
	FailureCount(key string) int
	Reset(key string)
}

// ChallengeView is the public challenge payload. The flag is deliberately
// absent: it reaches the browser only through the puzzle cookie.
type ChallengeView struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	DescriptionHTML string `json:"description_html"`
	Points          int64  `json:"points"`
	Category        string `json:"category"`
}

// SubmitResult reports one flag submission outcome.
type SubmitResult struct {
	Correct bool `json:"correct"`
	Attempt int  `json:"attempt"`
}

// ChallengeService serves the flag challenge gate.
type ChallengeService struct {
	queries  *store.Queries
	cache    cache.Cache
	recorder *audit.Recorder
	attempts AttemptTracker
	markdown goldmark.Markdown
	cacheTTL time.Duration
}

// NewChallengeService creates the challenge gate service.
func NewChallengeService(q *store.Queries, c cache.Cache, rec *audit.Recorder, attempts AttemptTracker) *ChallengeService {
	return &ChallengeService{
		queries:  q,
		cache:    c,
		recorder: rec,
		attempts: attempts,
		markdown: goldmark.New(),
		cacheTTL: time.Hour,
	}
}

// gatePayload is the cached challenge state: the public view plus the flag
// for cookie planting. It lives only in the server-side cache; the flag
// field never reaches a JSON response.
type gatePayload struct {
	View ChallengeView `json:"view"`
	Flag string        `json:"flag"`
}

// load returns the challenge gate payload from cache, falling back to one
// database read. The row never changes after seeding.
func (s *ChallengeService) load(ctx context.Context) (gatePayload, error) {
	if cached, err := s.cache.Get(ctx, challengeCacheKey); err == nil {
		var p gatePayload
		if err := json.Unmarshal(cached, &p); err == nil && p.Flag != "" {
			return p, nil
		}
	}

	ch, err := s.queries.GetChallengeByCategory(ctx, challengeCategory)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return gatePayload{}, &NotFoundError{Resource: "challenge"}
		}
		return gatePayload{}, fmt.Errorf("loading challenge: %w", err)
	}

	view := ChallengeView{
		ID:          ch.ID,
		Title:       ch.Title,
		Description: ch.Description,
		Points:      ch.Points,
		Category:    ch.Category,
	}

	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(ch.Description), &buf); err == nil {
		view.DescriptionHTML = buf.String()
	}

	p := gatePayload{View: view, Flag: ch.Flag}
	if encoded, err := json.Marshal(p); err == nil {
		_ = s.cache.Set(ctx, challengeCacheKey, encoded, s.cacheTTL)
	}

	return p, nil
}

// ActiveChallenge returns the single active web challenge, with the
// description rendered to HTML.
func (s *ChallengeService) ActiveChallenge(ctx context.Context) (ChallengeView, error) {
	p, err := s.load(ctx)
	if err != nil {
		return ChallengeView{}, err
	}
	return p.View, nil
}

// Gate returns the public view together with the flag in a single fetch:
// the view goes in the response body, the flag into the treasure cookie.
func (s *ChallengeService) Gate(ctx context.Context) (ChallengeView, string, error) {
	p, err := s.load(ctx)
	if err != nil {
		return ChallengeView{}, "", err
	}
	return p.View, p.Flag, nil
}

// Flag returns the stored flag for server-side gate checks. Never exposed
// through the JSON API.
func (s *ChallengeService) Flag(ctx context.Context) (string, error) {
	p, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	return p.Flag, nil
}

// SubmitFlag checks one candidate flag. The comparison is exact and
// case-sensitive after trimming surrounding whitespace. Every submission is
// persisted and audited; the per-session failure streak emits exactly one
// suspicious_activity event when it reaches the threshold.
func (s *ChallengeService) SubmitFlag(ctx context.Context, r *http.Request, sessionID, candidate string) (SubmitResult, error) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return SubmitResult{}, &ValidationError{Field: "flag", Message: "Please enter a flag"}
	}

	ch, err := s.queries.GetChallengeByCategory(ctx, challengeCategory)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SubmitResult{}, &NotFoundError{Resource: "challenge"}
		}
		return SubmitResult{}, fmt.Errorf("loading challenge: %w", err)
	}

	correct := candidate == ch.Flag

	ip := util.ClientIP(r)
	_, err = s.queries.CreateFlagSubmission(ctx, store.CreateFlagSubmissionParams{
		SubmittedFlag: candidate,
		IsCorrect:     correct,
		IPAddress:     sql.NullString{String: ip, Valid: ip != ""},
		SubmittedAt:   time.Now().UTC(),
	})
	if err != nil {
		return SubmitResult{}, fmt.Errorf("recording submission: %w", err)
	}

	var attempt int
	if correct {
		attempt = s.attempts.FailureCount(sessionID) + 1
		s.attempts.Reset(sessionID)
	} else {
		attempt = s.attempts.RecordFailure(sessionID)
	}

	risk := model.RiskLow
	if !correct {
		risk = model.RiskMedium
	}
	s.recorder.Record(ctx, r, audit.Entry{
		EventType:      model.EventFlagSubmission,
		UserIdentifier: userIdentifier(ip),
		Details: map[string]any{
			"challenge_id":    ch.ID,
			"challenge_title": ch.Title,
			"submitted_flag":  candidate,
			"flag_length":     len(candidate),
			"is_correct":      correct,
			"attempt_number":  attempt,
		},
		Success:   correct,
		SessionID: sessionID,
		RiskLevel: risk,
	})

	if !correct && attempt == SuspiciousThreshold {
		s.recorder.Record(ctx, r, audit.Entry{
			EventType:      model.EventSuspicious,
			UserIdentifier: userIdentifier(ip),
			Details: map[string]any{
				"activity_type":   "multiple_failed_flag_attempts",
				"challenge_id":    ch.ID,
				"total_attempts":  attempt,
				"submitted_flags": []string{candidate},
				"time_window":     "1h",
			},
			Success:   false,
			SessionID: sessionID,
			RiskLevel: model.RiskHigh,
		})
	}

	return SubmitResult{Correct: correct, Attempt: attempt}, nil
}

func userIdentifier(ip string) string {
	if ip == "" {
		return "anonymous"
	}
	return ip
}
