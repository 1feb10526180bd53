// Copyright (c) 2025-2026 IEEE Student Branch UCSC
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ieeeucsc/codequest/internal/audit"
	"github.com/ieeeucsc/codequest/internal/auth"
	"github.com/ieeeucsc/codequest/internal/model"
	"github.com/ieeeucsc/codequest/internal/store"
)

// SecurityLogLimit caps the audit log view on the dashboard.
const SecurityLogLimit = 100

// TeamFilter narrows the dashboard team listing. Search matches team name,
// leader name, leader email, and university case-insensitively; Status is an
// exact match when non-empty.
type TeamFilter struct {
	Search string
	Status string
}

// DashboardStats summarizes the registration pipeline.
type DashboardStats struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
}

// ModerationService backs the admin dashboard: team listing, status
// moderation, CSV export, stats, and the security log view.
type ModerationService struct {
	queries  *store.Queries
	recorder *audit.Recorder
	now      func() time.Time
}

// NewModerationService creates the moderation service.
func NewModerationService(q *store.Queries, rec *audit.Recorder) *ModerationService {
	return &ModerationService{queries: q, recorder: rec, now: time.Now}
}

// ListTeams returns the filtered team list, newest registration first, and
// audits the dashboard access.
func (s *ModerationService) ListTeams(ctx context.Context, r *http.Request, admin *auth.AdminClaims, filter TeamFilter) ([]model.Team, error) {
	teams, err := s.filteredTeams(ctx, filter)
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, r, audit.Entry{
		EventType:      model.EventDataAccess,
		UserIdentifier: admin.Username,
		Details: map[string]any{
			"action":     "dashboard_accessed",
			"resource":   "admin_dashboard",
			"team_count": len(teams),
		},
		Success:   true,
		SessionID: admin.ID,
		RiskLevel: model.RiskLow,
	})

	return teams, nil
}

// SetTeamStatus moves a team to the given status. Any status may transition
// to any other, including back to pending.
func (s *ModerationService) SetTeamStatus(ctx context.Context, r *http.Request, admin *auth.AdminClaims, id int64, status string) (model.Team, error) {
	if !model.ValidStatus(status) {
		return model.Team{}, &ValidationError{Field: "status", Message: "Status must be pending, approved, or rejected"}
	}

	team, err := s.queries.UpdateTeamStatus(ctx, store.UpdateTeamStatusParams{ID: id, Status: status})
	if err != nil {
		s.recorder.Record(ctx, r, audit.Entry{
			EventType:      model.EventDataAccess,
			UserIdentifier: admin.Username,
			Details: map[string]any{
				"action":           "team_status_update_failed",
				"team_id":          id,
				"attempted_status": status,
			},
			Success:   false,
			SessionID: admin.ID,
			RiskLevel: model.RiskMedium,
		})
		if errors.Is(err, sql.ErrNoRows) {
			return model.Team{}, &NotFoundError{Resource: "team", ID: id}
		}
		return model.Team{}, fmt.Errorf("updating team status: %w", err)
	}

	s.recorder.Record(ctx, r, audit.Entry{
		EventType:      model.EventDataAccess,
		UserIdentifier: admin.Username,
		Details: map[string]any{
			"action":     "team_status_changed",
			"team_id":    team.ID,
			"team_name":  team.TeamName,
			"new_status": team.Status,
		},
		Success:   true,
		SessionID: admin.ID,
		RiskLevel: model.RiskLow,
	})

	return team, nil
}

// ExportCSV renders the filtered team view as CSV and audits the export.
// Returns the document and a dated filename.
func (s *ModerationService) ExportCSV(ctx context.Context, r *http.Request, admin *auth.AdminClaims, filter TeamFilter) ([]byte, string, error) {
	teams, err := s.filteredTeams(ctx, filter)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Team Name", "Leader Name", "Leader Email", "Leader Phone", "University", "Members", "Status", "Registration Date"}); err != nil {
		return nil, "", fmt.Errorf("writing csv header: %w", err)
	}
	for _, t := range teams {
		record := []string{
			t.TeamName,
			t.TeamLeaderName,
			t.TeamLeaderEmail,
			t.TeamLeaderPhone,
			t.University,
			strings.Join(t.MemberNames(), "; "),
			t.Status,
			t.RegisteredAt.Format("2006-01-02 15:04:05"),
		}
		if err := w.Write(record); err != nil {
			return nil, "", fmt.Errorf("writing csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", fmt.Errorf("flushing csv: %w", err)
	}

	s.recorder.Record(ctx, r, audit.Entry{
		EventType:      model.EventDataAccess,
		UserIdentifier: admin.Username,
		Details: map[string]any{
			"action":         "data_exported",
			"resource":       "teams_csv",
			"exported_count": len(teams),
		},
		Success:   true,
		SessionID: admin.ID,
		RiskLevel: model.RiskMedium,
	})

	filename := fmt.Sprintf("codequest-teams-%s.csv", s.now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

// SecurityLogs returns the most recent audit records for the dashboard.
func (s *ModerationService) SecurityLogs(ctx context.Context) ([]model.SecurityLog, error) {
	return s.queries.ListSecurityLogs(ctx, SecurityLogLimit)
}

// Stats returns team counts by status.
func (s *ModerationService) Stats(ctx context.Context) (DashboardStats, error) {
	var (
		stats DashboardStats
		err   error
	)
	if stats.Total, err = s.queries.CountTeams(ctx); err != nil {
		return DashboardStats{}, fmt.Errorf("counting teams: %w", err)
	}
	if stats.Pending, err = s.queries.CountTeamsByStatus(ctx, model.StatusPending); err != nil {
		return DashboardStats{}, fmt.Errorf("counting pending teams: %w", err)
	}
	if stats.Approved, err = s.queries.CountTeamsByStatus(ctx, model.StatusApproved); err != nil {
		return DashboardStats{}, fmt.Errorf("counting approved teams: %w", err)
	}
	if stats.Rejected, err = s.queries.CountTeamsByStatus(ctx, model.StatusRejected); err != nil {
		return DashboardStats{}, fmt.Errorf("counting rejected teams: %w", err)
	}
	return stats, nil
}

func (s *ModerationService) filteredTeams(ctx context.Context, filter TeamFilter) ([]model.Team, error) {
	teams, err := s.queries.ListTeams(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	status := strings.TrimSpace(filter.Status)
	if search == "" && status == "" {
		return teams, nil
	}

	filtered := make([]model.Team, 0, len(teams))
	for _, t := range teams {
		if status != "" && t.Status != status {
			continue
		}
		if search != "" && !matchesSearch(t, search) {
			continue
		}
		filtered = append(filtered, t)
	}
	return filtered, nil
}

func matchesSearch(t model.Team, search string) bool {
	for _, field := range []string{t.TeamName, t.TeamLeaderName, t.TeamLeaderEmail, t.University} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}
