// Copyright (c) 2025-2026 IEEE Student Branch UCSC
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/ieeeucsc/codequest/internal/audit"
	"github.com/ieeeucsc/codequest/internal/model"
	"github.com/ieeeucsc/codequest/internal/store"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[+]?[\d\s\-()]+$`)
)

// RegisterTeamInput carries the raw registration form fields. Members 2-4
// are optional; a member slot is persisted only when its name is non-empty.
type RegisterTeamInput struct {
	TeamName        string `json:"team_name"`
	TeamLeaderName  string `json:"team_leader_name"`
	TeamLeaderEmail string `json:"team_leader_email"`
	TeamLeaderPhone string `json:"team_leader_phone"`
	Member2Name     string `json:"member2_name"`
	Member2Email    string `json:"member2_email"`
	Member3Name     string `json:"member3_name"`
	Member3Email    string `json:"member3_email"`
	Member4Name     string `json:"member4_name"`
	Member4Email    string `json:"member4_email"`
	University      string `json:"university"`
	Flag            string `json:"flag"`
}

// RegistrationService validates and stores team registrations behind the
// flag gate.
type RegistrationService struct {
	queries   *store.Queries
	challenge *ChallengeService
	recorder  *audit.Recorder
	sanitizer *bluemonday.Policy
}

// NewRegistrationService creates the registration service.
func NewRegistrationService(q *store.Queries, ch *ChallengeService, rec *audit.Recorder) *RegistrationService {
	return &RegistrationService{
		queries:   q,
		challenge: ch,
		recorder:  rec,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// Register validates input, verifies the flag gate server-side, and stores
// the team with status pending. Returns ValidationError, ConflictError, or
// the stored team.
func (s *RegistrationService) Register(ctx context.Context, r *http.Request, sessionID string, in RegisterTeamInput) (model.Team, error) {
	team, err := s.register(ctx, in)

	email := strings.ToLower(strings.TrimSpace(in.TeamLeaderEmail))
	if err != nil {
		s.recorder.Record(ctx, r, audit.Entry{
			EventType:      model.EventTeamRegistration,
			UserIdentifier: email,
			Details: map[string]any{
				"error_type":          "registration_failed",
				"error_message":       publicReason(err),
				"attempted_team_name": strings.TrimSpace(in.TeamName),
				"attempted_email":     email,
				"university":          strings.TrimSpace(in.University),
				"flag_used":           strings.TrimSpace(in.Flag),
			},
			Success:   false,
			SessionID: sessionID,
			RiskLevel: model.RiskMedium,
		})
		return model.Team{}, err
	}

	s.recorder.Record(ctx, r, audit.Entry{
		EventType:      model.EventTeamRegistration,
		UserIdentifier: team.TeamLeaderEmail,
		Details: map[string]any{
			"team_name":       team.TeamName,
			"team_leader":     team.TeamLeaderName,
			"university":      team.University,
			"member_count":    team.MemberCount(),
			"flag_used":       team.FlagSubmitted,
			"registration_id": team.ID,
		},
		Success:   true,
		SessionID: sessionID,
		RiskLevel: model.RiskLow,
	})

	return team, nil
}

func (s *RegistrationService) register(ctx context.Context, in RegisterTeamInput) (model.Team, error) {
	params := store.CreateTeamParams{
		TeamName:        s.cleanText(in.TeamName),
		TeamLeaderName:  s.cleanText(in.TeamLeaderName),
		TeamLeaderEmail: strings.ToLower(strings.TrimSpace(in.TeamLeaderEmail)),
		TeamLeaderPhone: strings.TrimSpace(in.TeamLeaderPhone),
		University:      s.cleanText(in.University),
		FlagSubmitted:   strings.TrimSpace(in.Flag),
		RegisteredAt:    time.Now().UTC(),
	}

	if params.TeamName == "" {
		return model.Team{}, &ValidationError{Field: "team_name", Message: "Team name is required"}
	}
	if params.TeamLeaderName == "" {
		return model.Team{}, &ValidationError{Field: "team_leader_name", Message: "Team leader name is required"}
	}
	if params.TeamLeaderEmail == "" {
		return model.Team{}, &ValidationError{Field: "team_leader_email", Message: "Team leader email is required"}
	}
	if !emailPattern.MatchString(params.TeamLeaderEmail) {
		return model.Team{}, &ValidationError{Field: "team_leader_email", Message: "Invalid email address"}
	}
	if params.TeamLeaderPhone == "" {
		return model.Team{}, &ValidationError{Field: "team_leader_phone", Message: "Team leader phone is required"}
	}
	if !phonePattern.MatchString(params.TeamLeaderPhone) {
		return model.Team{}, &ValidationError{Field: "team_leader_phone", Message: "Invalid phone number"}
	}
	if params.University == "" {
		return model.Team{}, &ValidationError{Field: "university", Message: "University is required"}
	}

	// The gate is enforced here, not in the browser: the submitted flag must
	// match the stored one.
	flag, err := s.challenge.Flag(ctx)
	if err != nil {
		return model.Team{}, fmt.Errorf("verifying flag gate: %w", err)
	}
	if params.FlagSubmitted != flag {
		return model.Team{}, &ValidationError{Field: "flag", Message: "Flag verification failed. Solve the challenge first."}
	}

	members := []struct {
		name, email string
		outName     *sql.NullString
		outEmail    *sql.NullString
		field       string
	}{
		{in.Member2Name, in.Member2Email, &params.Member2Name, &params.Member2Email, "member2_email"},
		{in.Member3Name, in.Member3Email, &params.Member3Name, &params.Member3Email, "member3_email"},
		{in.Member4Name, in.Member4Email, &params.Member4Name, &params.Member4Email, "member4_email"},
	}
	for _, m := range members {
		name := s.cleanText(m.name)
		if name == "" {
			continue // slot left empty, nothing persisted
		}
		*m.outName = sql.NullString{String: name, Valid: true}

		email := strings.ToLower(strings.TrimSpace(m.email))
		if email != "" {
			if !emailPattern.MatchString(email) {
				return model.Team{}, &ValidationError{Field: m.field, Message: "Invalid email address"}
			}
			*m.outEmail = sql.NullString{String: email, Valid: true}
		}
	}

	team, err := s.queries.CreateTeam(ctx, params)
	if err != nil {
		if store.IsUniqueViolation(err, "teams.team_name") {
			return model.Team{}, &ConflictError{Field: "team_name"}
		}
		if store.IsUniqueViolation(err, "teams.team_leader_email") {
			return model.Team{}, &ConflictError{Field: "team_leader_email"}
		}
		return model.Team{}, fmt.Errorf("creating team: %w", err)
	}

	return team, nil
}

// cleanText trims whitespace and strips any markup from a free-text field.
func (s *RegistrationService) cleanText(v string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(v))
}

// publicReason maps an error to the audit detail string without leaking
// internals on storage failures.
func publicReason(err error) string {
	if ve, ok := AsValidation(err); ok {
		return ve.Message
	}
	if ce, ok := AsConflict(err); ok {
		return "duplicate " + ce.Field
	}
	return "storage error"
}
