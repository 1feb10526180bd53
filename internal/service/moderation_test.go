// Copyright (c) 2025-2026 IEEE Student Branch UCSC
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ieeeucsc/codequest/internal/auth"
	"github.com/ieeeucsc/codequest/internal/model"
	"github.com/ieeeucsc/codequest/internal/store"
)

func newModerationService(t *testing.T) (*ModerationService, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	return NewModerationService(env.queries, env.recorder), env
}

func adminClaims() *auth.AdminClaims {
	return &auth.AdminClaims{
		Username: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       "session-id-1",
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
}

func seedTeams(t *testing.T, env *testEnv) []model.Team {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	inputs := []store.CreateTeamParams{
		{
			TeamName:        "Null Pointers",
			TeamLeaderName:  "Amara Silva",
			TeamLeaderEmail: "amara@ucsc.example",
			TeamLeaderPhone: "+94 71 234 5678",
			Member2Name:     sql.NullString{String: "Kasun Perera", Valid: true},
			University:      "UCSC",
			FlagSubmitted:   testFlag,
			RegisteredAt:    base,
		},
		{
			TeamName:        "Segfault Society",
			TeamLeaderName:  "Nuwan Perera",
			TeamLeaderEmail: "nuwan@moratuwa.example",
			TeamLeaderPhone: "+94 77 111 2222",
			University:      "University of Moratuwa",
			FlagSubmitted:   testFlag,
			RegisteredAt:    base.Add(time.Hour),
		},
		{
			TeamName:        "Bit Flippers",
			TeamLeaderName:  "Ishara Fernando",
			TeamLeaderEmail: "ishara@ucsc.example",
			TeamLeaderPhone: "+94 76 333 4444",
			University:      "UCSC",
			FlagSubmitted:   testFlag,
			RegisteredAt:    base.Add(2 * time.Hour),
		},
	}

	var teams []model.Team
	for _, in := range inputs {
		team, err := env.queries.CreateTeam(ctx, in)
		if err != nil {
			t.Fatalf("CreateTeam(%s): %v", in.TeamName, err)
		}
		teams = append(teams, team)
	}
	return teams
}

func TestListTeamsNewestFirstAndAudited(t *testing.T) {
	svc, env := newModerationService(t)
	seedTeams(t, env)

	teams, err := svc.ListTeams(context.Background(), testRequest(), adminClaims(), TeamFilter{})
	if err != nil {
		t.Fatalf("ListTeams: %v", err)
	}
	if len(teams) != 3 {
		t.Fatalf("teams = %d, want 3", len(teams))
	}
	if teams[0].TeamName != "Bit Flippers" || teams[2].TeamName != "Null Pointers" {
		t.Errorf("order wrong: %s ... %s", teams[0].TeamName, teams[2].TeamName)
	}
	if got := env.countEvents(t, model.EventDataAccess); got != 1 {
		t.Errorf("data_access events = %d, want 1", got)
	}
}

func TestListTeamsSearchFilter(t *testing.T) {
	svc, env := newModerationService(t)
	seedTeams(t, env)
	ctx := context.Background()

	cases := []struct {
		search string
		want   int
	}{
		{"moratuwa", 1},     // university, case-insensitive
		{"PERERA", 1},       // leader name
		{"ucsc.example", 2}, // leader emails
		{"flippers", 1},     // team name
		{"nothing", 0},
	}
	for _, tc := range cases {
		teams, err := svc.ListTeams(ctx, testRequest(), adminClaims(), TeamFilter{Search: tc.search})
		if err != nil {
			t.Fatalf("ListTeams(%q): %v", tc.search, err)
		}
		if len(teams) != tc.want {
			t.Errorf("search %q: got %d teams, want %d", tc.search, len(teams), tc.want)
		}
	}
}

func TestListTeamsStatusFilter(t *testing.T) {
	svc, env := newModerationService(t)
	seeded := seedTeams(t, env)
	ctx := context.Background()

	if _, err := svc.SetTeamStatus(ctx, testRequest(), adminClaims(), seeded[0].ID, model.StatusApproved); err != nil {
		t.Fatalf("SetTeamStatus: %v", err)
	}

	approved, err := svc.ListTeams(ctx, testRequest(), adminClaims(), TeamFilter{Status: model.StatusApproved})
	if err != nil {
		t.Fatalf("ListTeams: %v", err)
	}
	if len(approved) != 1 || approved[0].ID != seeded[0].ID {
		t.Errorf("approved filter returned %d teams", len(approved))
	}

	both, err := svc.ListTeams(ctx, testRequest(), adminClaims(), TeamFilter{Search: "ucsc", Status: model.StatusPending})
	if err != nil {
		t.Fatalf("ListTeams: %v", err)
	}
	if len(both) != 1 || both[0].TeamName != "Bit Flippers" {
		t.Errorf("combined filter wrong: %+v", both)
	}
}

func TestSetTeamStatusTransitions(t *testing.T) {
	svc, env := newModerationService(t)
	seeded := seedTeams(t, env)
	ctx := context.Background()

	// Any status may move to any other, including back to pending
	for _, status := range []string{model.StatusApproved, model.StatusRejected, model.StatusPending} {
		team, err := svc.SetTeamStatus(ctx, testRequest(), adminClaims(), seeded[0].ID, status)
		if err != nil {
			t.Fatalf("SetTeamStatus(%s): %v", status, err)
		}
		if team.Status != status {
			t.Errorf("status = %q, want %q", team.Status, status)
		}
	}
}

func TestSetTeamStatusInvalid(t *testing.T) {
	svc, env := newModerationService(t)
	seeded := seedTeams(t, env)

	_, err := svc.SetTeamStatus(context.Background(), testRequest(), adminClaims(), seeded[0].ID, "banned")
	ve, ok := AsValidation(err)
	if !ok {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if ve.Field != "status" {
		t.Errorf("field = %q, want status", ve.Field)
	}
}

func TestSetTeamStatusNotFound(t *testing.T) {
	svc, _ := newModerationService(t)

	_, err := svc.SetTeamStatus(context.Background(), testRequest(), adminClaims(), 9999, model.StatusApproved)
	ne, ok := AsNotFound(err)
	if !ok {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
	if ne.Resource != "team" || ne.ID != 9999 {
		t.Errorf("not found = %+v", ne)
	}
}

func TestSetTeamStatusFailureAudited(t *testing.T) {
	svc, env := newModerationService(t)
	ctx := context.Background()

	_, err := svc.SetTeamStatus(ctx, testRequest(), adminClaims(), 9999, model.StatusApproved)
	if _, ok := AsNotFound(err); !ok {
		t.Fatalf("err = %v, want NotFoundError", err)
	}

	logs, err := env.queries.ListSecurityLogs(ctx, 1)
	if err != nil || len(logs) != 1 {
		t.Fatalf("ListSecurityLogs: %v (%d rows)", err, len(logs))
	}
	if logs[0].EventType != model.EventDataAccess {
		t.Errorf("event type = %q, want %q", logs[0].EventType, model.EventDataAccess)
	}
	if logs[0].Success {
		t.Error("failed transition recorded as success")
	}
	if logs[0].RiskLevel != model.RiskMedium {
		t.Errorf("risk = %q, want medium", logs[0].RiskLevel)
	}
	var details map[string]any
	if err := json.Unmarshal([]byte(logs[0].EventDetails), &details); err != nil {
		t.Fatalf("unmarshal details: %v", err)
	}
	if details["action"] != "team_status_update_failed" {
		t.Errorf("action = %v", details["action"])
	}
	if id, _ := details["team_id"].(float64); id != 9999 {
		t.Errorf("team_id = %v, want 9999", details["team_id"])
	}
	if details["attempted_status"] != model.StatusApproved {
		t.Errorf("attempted_status = %v", details["attempted_status"])
	}
}

func TestExportCSV(t *testing.T) {
	svc, env := newModerationService(t)
	seedTeams(t, env)
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) }

	doc, filename, err := svc.ExportCSV(context.Background(), testRequest(), adminClaims(), TeamFilter{})
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	if filename != "codequest-teams-2026-03-02.csv" {
		t.Errorf("filename = %q", filename)
	}

	lines := strings.Split(strings.TrimSpace(string(doc)), "\n")
	if len(lines) != 4 {
		t.Fatalf("csv lines = %d, want 4", len(lines))
	}
	if lines[0] != "Team Name,Leader Name,Leader Email,Leader Phone,University,Members,Status,Registration Date" {
		t.Errorf("header = %q", lines[0])
	}
	// Newest team first, mirroring the dashboard order
	if !strings.HasPrefix(lines[1], "Bit Flippers,") {
		t.Errorf("first row = %q", lines[1])
	}
	if !strings.Contains(lines[3], "Kasun Perera") {
		t.Errorf("members column missing: %q", lines[3])
	}
}

func TestExportCSVAuditedWithCount(t *testing.T) {
	svc, env := newModerationService(t)
	seedTeams(t, env)
	ctx := context.Background()

	if _, _, err := svc.ExportCSV(ctx, testRequest(), adminClaims(), TeamFilter{Search: "ucsc"}); err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}

	logs, err := env.queries.ListSecurityLogs(ctx, 1)
	if err != nil || len(logs) != 1 {
		t.Fatalf("ListSecurityLogs: %v (%d rows)", err, len(logs))
	}
	if logs[0].RiskLevel != model.RiskMedium {
		t.Errorf("risk = %q, want medium", logs[0].RiskLevel)
	}
	var details map[string]any
	if err := json.Unmarshal([]byte(logs[0].EventDetails), &details); err != nil {
		t.Fatalf("unmarshal details: %v", err)
	}
	if details["action"] != "data_exported" || details["resource"] != "teams_csv" {
		t.Errorf("details = %v", details)
	}
	if count, _ := details["exported_count"].(float64); count != 2 {
		t.Errorf("exported_count = %v, want 2", details["exported_count"])
	}
}

func TestStats(t *testing.T) {
	svc, env := newModerationService(t)
	seeded := seedTeams(t, env)
	ctx := context.Background()

	if _, err := svc.SetTeamStatus(ctx, testRequest(), adminClaims(), seeded[0].ID, model.StatusApproved); err != nil {
		t.Fatalf("SetTeamStatus: %v", err)
	}
	if _, err := svc.SetTeamStatus(ctx, testRequest(), adminClaims(), seeded[1].ID, model.StatusRejected); err != nil {
		t.Fatalf("SetTeamStatus: %v", err)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := DashboardStats{Total: 3, Pending: 1, Approved: 1, Rejected: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}

func TestSecurityLogsLimit(t *testing.T) {
	svc, env := newModerationService(t)
	ctx := context.Background()

	for i := 0; i < SecurityLogLimit+20; i++ {
		_, err := env.queries.CreateSecurityLog(ctx, store.CreateSecurityLogParams{
			EventType:      model.EventFlagSubmission,
			UserIdentifier: "anonymous",
			EventDetails:   "{}",
			RiskLevel:      model.RiskLow,
			CreatedAt:      time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("CreateSecurityLog: %v", err)
		}
	}

	logs, err := svc.SecurityLogs(ctx)
	if err != nil {
		t.Fatalf("SecurityLogs: %v", err)
	}
	if len(logs) != SecurityLogLimit {
		t.Errorf("logs = %d, want %d", len(logs), SecurityLogLimit)
	}
}
