// Copyright (c) 2025-2026 IEEE Student Branch UCSC
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ieeeucsc/codequest/internal/middleware"
	"github.com/ieeeucsc/codequest/internal/model"
	"github.com/ieeeucsc/codequest/internal/service"
)

// AdminHandler serves the token-protected moderation endpoints.
type AdminHandler struct {
	moderation *service.ModerationService
}

// NewAdminHandler creates the admin handler.
func NewAdminHandler(moderation *service.ModerationService) *AdminHandler {
	return &AdminHandler{moderation: moderation}
}

func teamFilterFromQuery(r *http.Request) service.TeamFilter {
	return service.TeamFilter{
		Search: r.URL.Query().Get("search"),
		Status: r.URL.Query().Get("status"),
	}
}

// ListTeams returns the filtered team list for the dashboard.
// Query parameters: search (substring), status (pending|approved|rejected).
func (h *AdminHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	filter := teamFilterFromQuery(r)
	if filter.Status != "" && !model.ValidStatus(filter.Status) {
		writeJSONError(w, http.StatusBadRequest, "Status must be pending, approved, or rejected")
		return
	}

	teams, err := h.moderation.ListTeams(r.Context(), r, middleware.GetAdminClaims(r), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSONSuccess(w, http.StatusOK, newTeamViews(teams))
}

type updateTeamStatusRequest struct {
	TeamID int64  `json:"team_id"`
	Status string `json:"status"`
}

// UpdateTeamStatus moves a team to a new moderation status.
func (h *AdminHandler) UpdateTeamStatus(w http.ResponseWriter, r *http.Request) {
	var req updateTeamStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.TeamID <= 0 {
		writeJSONError(w, http.StatusBadRequest, "team_id is required")
		return
	}
	if req.Status == "" {
		writeJSONError(w, http.StatusBadRequest, "status is required")
		return
	}

	team, err := h.moderation.SetTeamStatus(r.Context(), r, middleware.GetAdminClaims(r), req.TeamID, req.Status)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSONSuccess(w, http.StatusOK, newTeamView(team))
}

// ExportTeams streams the filtered team list as a CSV attachment.
func (h *AdminHandler) ExportTeams(w http.ResponseWriter, r *http.Request) {
	filter := teamFilterFromQuery(r)
	if filter.Status != "" && !model.ValidStatus(filter.Status) {
		writeJSONError(w, http.StatusBadRequest, "Status must be pending, approved, or rejected")
		return
	}

	doc, filename, err := h.moderation.ExportCSV(r.Context(), r, middleware.GetAdminClaims(r), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// securityLogView is the JSON representation of one audit row. Details are
// passed through as the JSON object they were stored as.
type securityLogView struct {
	ID             int64           `json:"id"`
	EventType      string          `json:"event_type"`
	UserIdentifier string          `json:"user_identifier"`
	IPAddress      string          `json:"ip_address,omitempty"`
	UserAgent      string          `json:"user_agent,omitempty"`
	EventDetails   json.RawMessage `json:"event_details"`
	Success        bool            `json:"success"`
	SessionID      string          `json:"session_id,omitempty"`
	RiskLevel      string          `json:"risk_level"`
	CreatedAt      time.Time       `json:"created_at"`
}

// SecurityLogs returns the most recent audit entries.
func (h *AdminHandler) SecurityLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.moderation.SecurityLogs(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	views := make([]securityLogView, 0, len(logs))
	for _, l := range logs {
		details := json.RawMessage(l.EventDetails)
		if !json.Valid(details) {
			details = json.RawMessage("{}")
		}
		view := securityLogView{
			ID:             l.ID,
			EventType:      l.EventType,
			UserIdentifier: l.UserIdentifier,
			EventDetails:   details,
			Success:        l.Success,
			RiskLevel:      l.RiskLevel,
			CreatedAt:      l.CreatedAt,
		}
		if l.IPAddress.Valid {
			view.IPAddress = l.IPAddress.String
		}
		if l.UserAgent.Valid {
			view.UserAgent = l.UserAgent.String
		}
		if l.SessionID.Valid {
			view.SessionID = l.SessionID.String
		}
		views = append(views, view)
	}

	writeJSONSuccess(w, http.StatusOK, views)
}

// Stats returns team counts for the dashboard header.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.moderation.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONSuccess(w, http.StatusOK, stats)
}
