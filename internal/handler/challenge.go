// Copyright (c) 2025-2026 IEEE Student Branch UCSC
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/ieeeucsc/codequest/internal/service"
)

// ChallengeHandler serves the public challenge gate.
type ChallengeHandler struct {
	challenge *service.ChallengeService
	isDev     bool
}

// NewChallengeHandler creates the challenge handler.
func NewChallengeHandler(challenge *service.ChallengeService, isDev bool) *ChallengeHandler {
	return &ChallengeHandler{challenge: challenge, isDev: isDev}
}

// Get returns the active challenge and plants the puzzle cookies. The flag
// never appears in the JSON body; it travels only in the hidden_treasure
// cookie among the decoys.
func (h *ChallengeHandler) Get(w http.ResponseWriter, r *http.Request) {
	ensureVisitorSession(w, r, h.isDev)

	view, flag, err := h.challenge.Gate(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	setTreasureCookies(w, flag)

	writeJSONSuccess(w, http.StatusOK, view)
}

type submitFlagRequest struct {
	Flag string `json:"flag"`
}

type submitFlagResponse struct {
	Correct bool   `json:"correct"`
	Attempt int    `json:"attempt"`
	Message string `json:"message"`
}

// Submit checks one candidate flag for the visitor's session.
func (h *ChallengeHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sessionID := ensureVisitorSession(w, r, h.isDev)

	var req submitFlagRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.challenge.SubmitFlag(r.Context(), r, sessionID, req.Flag)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := submitFlagResponse{
		Correct: result.Correct,
		Attempt: result.Attempt,
		Message: "Incorrect flag. Keep digging.",
	}
	if result.Correct {
		resp.Message = "Correct! Registration is now open for you."
	}
	writeJSONSuccess(w, http.StatusOK, resp)
}
