// Copyright (c) 2025-2026 IEEE Student Branch UCSC
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"strings"
	"testing"

	"github.com/ieeeucsc/codequest/internal/model"
)

func newRegistrationService(t *testing.T) (*RegistrationService, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	challenge := NewChallengeService(env.queries, env.cache, env.recorder, newFakeTracker())
	return NewRegistrationService(env.queries, challenge, env.recorder), env
}

func validInput() RegisterTeamInput {
	return RegisterTeamInput{
		TeamName:        "Null Pointers",
		TeamLeaderName:  "Amara Silva",
		TeamLeaderEmail: "Amara@uni.example",
		TeamLeaderPhone: "+94 71 234 5678",
		Member2Name:     "Kasun Perera",
		Member2Email:    "kasun@uni.example",
		University:      "UCSC",
		Flag:            testFlag,
	}
}

func TestRegisterStartsPending(t *testing.T) {
	svc, env := newRegistrationService(t)

	team, err := svc.Register(context.Background(), testRequest(), "session_1700000000000_abc123def", validInput())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if team.Status != model.StatusPending {
		t.Errorf("status = %q, want pending", team.Status)
	}
	if team.TeamLeaderEmail != "amara@uni.example" {
		t.Errorf("leader email not lowercased: %q", team.TeamLeaderEmail)
	}
	if team.MemberCount() != 2 {
		t.Errorf("member count = %d, want 2", team.MemberCount())
	}
	if got := env.countEvents(t, model.EventTeamRegistration); got != 1 {
		t.Errorf("team_registration events = %d, want 1", got)
	}
}

func TestRegisterWrongFlagRejected(t *testing.T) {
	svc, env := newRegistrationService(t)

	in := validInput()
	in.Flag = "CODEQUEST{wrong}"
	_, err := svc.Register(context.Background(), testRequest(), "session_1700000000000_abc123def", in)
	ve, ok := AsValidation(err)
	if !ok {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if ve.Field != "flag" {
		t.Errorf("field = %q, want flag", ve.Field)
	}

	// The refusal itself lands in the audit log
	if got := env.countEvents(t, model.EventTeamRegistration); got != 1 {
		t.Errorf("team_registration events = %d, want 1", got)
	}
	if n, err := env.queries.CountTeams(context.Background()); err != nil || n != 0 {
		t.Errorf("teams stored = %d (err %v), want 0", n, err)
	}
}

func TestRegisterRequiredFields(t *testing.T) {
	svc, _ := newRegistrationService(t)
	ctx := context.Background()

	cases := []struct {
		field  string
		mutate func(*RegisterTeamInput)
	}{
		{"team_name", func(in *RegisterTeamInput) { in.TeamName = "  " }},
		{"team_leader_name", func(in *RegisterTeamInput) { in.TeamLeaderName = "" }},
		{"team_leader_email", func(in *RegisterTeamInput) { in.TeamLeaderEmail = "" }},
		{"team_leader_email", func(in *RegisterTeamInput) { in.TeamLeaderEmail = "not-an-email" }},
		{"team_leader_phone", func(in *RegisterTeamInput) { in.TeamLeaderPhone = "" }},
		{"team_leader_phone", func(in *RegisterTeamInput) { in.TeamLeaderPhone = "call me" }},
		{"university", func(in *RegisterTeamInput) { in.University = "" }},
		{"member2_email", func(in *RegisterTeamInput) { in.Member2Email = "kasun@nowhere" }},
	}
	for _, tc := range cases {
		in := validInput()
		tc.mutate(&in)
		_, err := svc.Register(ctx, testRequest(), "session_1700000000000_abc123def", in)
		ve, ok := AsValidation(err)
		if !ok {
			t.Errorf("%s: err = %v, want ValidationError", tc.field, err)
			continue
		}
		if ve.Field != tc.field {
			t.Errorf("field = %q, want %q", ve.Field, tc.field)
		}
	}
}

func TestRegisterDuplicateTeamName(t *testing.T) {
	svc, _ := newRegistrationService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, testRequest(), "session_1700000000000_abc123def", validInput()); err != nil {
		t.Fatalf("first Register: %v", err)
	}

	in := validInput()
	in.TeamLeaderEmail = "other@uni.example"
	_, err := svc.Register(ctx, testRequest(), "session_1700000000000_abc123def", in)
	ce, ok := AsConflict(err)
	if !ok {
		t.Fatalf("err = %v, want ConflictError", err)
	}
	if ce.Field != "team_name" {
		t.Errorf("field = %q, want team_name", ce.Field)
	}
}

func TestRegisterDuplicateLeaderEmail(t *testing.T) {
	svc, _ := newRegistrationService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, testRequest(), "session_1700000000000_abc123def", validInput()); err != nil {
		t.Fatalf("first Register: %v", err)
	}

	in := validInput()
	in.TeamName = "Segfault Society"
	_, err := svc.Register(ctx, testRequest(), "session_1700000000000_abc123def", in)
	ce, ok := AsConflict(err)
	if !ok {
		t.Fatalf("err = %v, want ConflictError", err)
	}
	if ce.Field != "team_leader_email" {
		t.Errorf("field = %q, want team_leader_email", ce.Field)
	}
}

func TestRegisterMemberEmailIgnoredWithoutName(t *testing.T) {
	svc, _ := newRegistrationService(t)

	in := validInput()
	in.Member2Name = ""
	in.Member2Email = "ghost@uni.example"
	team, err := svc.Register(context.Background(), testRequest(), "session_1700000000000_abc123def", in)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if team.Member2Name.Valid || team.Member2Email.Valid {
		t.Errorf("member slot persisted without a name: %+v", team)
	}
	if team.MemberCount() != 1 {
		t.Errorf("member count = %d, want 1", team.MemberCount())
	}
}

func TestRegisterStripsMarkup(t *testing.T) {
	svc, _ := newRegistrationService(t)

	in := validInput()
	in.TeamName = `<script>alert(1)</script>Null Pointers`
	team, err := svc.Register(context.Background(), testRequest(), "session_1700000000000_abc123def", in)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if strings.Contains(team.TeamName, "<script>") {
		t.Errorf("markup survived sanitization: %q", team.TeamName)
	}
}
