// Copyright (c) 2025-2026 IEEE Student Branch UCSC
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/ieeeucsc/codequest/internal/model"
	"github.com/ieeeucsc/codequest/internal/service"
)

// teamView is the JSON representation of a team. The submitted flag stays
// server-side.
type teamView struct {
	ID              int64     `json:"id"`
	TeamName        string    `json:"team_name"`
	TeamLeaderName  string    `json:"team_leader_name"`
	TeamLeaderEmail string    `json:"team_leader_email"`
	TeamLeaderPhone string    `json:"team_leader_phone"`
	Member2Name     string    `json:"member2_name,omitempty"`
	Member2Email    string    `json:"member2_email,omitempty"`
	Member3Name     string    `json:"member3_name,omitempty"`
	Member3Email    string    `json:"member3_email,omitempty"`
	Member4Name     string    `json:"member4_name,omitempty"`
	Member4Email    string    `json:"member4_email,omitempty"`
	University      string    `json:"university"`
	Status          string    `json:"status"`
	MemberCount     int       `json:"member_count"`
	RegisteredAt    time.Time `json:"registered_at"`
}

func newTeamView(t model.Team) teamView {
	str := func(ns sql.NullString) string {
		if ns.Valid {
			return ns.String
		}
		return ""
	}
	return teamView{
		ID:              t.ID,
		TeamName:        t.TeamName,
		TeamLeaderName:  t.TeamLeaderName,
		TeamLeaderEmail: t.TeamLeaderEmail,
		TeamLeaderPhone: t.TeamLeaderPhone,
		Member2Name:     str(t.Member2Name),
		Member2Email:    str(t.Member2Email),
		Member3Name:     str(t.Member3Name),
		Member3Email:    str(t.Member3Email),
		Member4Name:     str(t.Member4Name),
		Member4Email:    str(t.Member4Email),
		University:      t.University,
		Status:          t.Status,
		MemberCount:     t.MemberCount(),
		RegisteredAt:    t.RegisteredAt,
	}
}

func newTeamViews(teams []model.Team) []teamView {
	views := make([]teamView, 0, len(teams))
	for _, t := range teams {
		views = append(views, newTeamView(t))
	}
	return views
}

// RegistrationHandler serves the public team registration endpoint.
type RegistrationHandler struct {
	registration *service.RegistrationService
	isDev        bool
}

// NewRegistrationHandler creates the registration handler.
func NewRegistrationHandler(registration *service.RegistrationService, isDev bool) *RegistrationHandler {
	return &RegistrationHandler{registration: registration, isDev: isDev}
}

// Register creates a team registration behind the flag gate.
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	sessionID := ensureVisitorSession(w, r, h.isDev)

	var in service.RegisterTeamInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	team, err := h.registration.Register(r.Context(), r, sessionID, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSONSuccess(w, http.StatusCreated, newTeamView(team))
}
