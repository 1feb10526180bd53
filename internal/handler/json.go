// Copyright (c) 2025-2026 IEEE Student Branch UCSC
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler exposes the JSON API: the public challenge and
// registration endpoints and the token-protected admin endpoints.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/ieeeucsc/codequest/internal/service"
)

// maxBodyBytes caps request bodies; every payload here is a small form.
const maxBodyBytes = 64 * 1024

// writeJSONSuccess writes a success envelope.
func writeJSONSuccess(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    data,
	})
}

// writeJSONError writes an error envelope.
func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   message,
	})
}

// writeServiceError maps a service-layer error onto the HTTP surface.
// Store failures never leak details; the client gets a generic retry message.
func writeServiceError(w http.ResponseWriter, err error) {
	if ve, ok := service.AsValidation(err); ok {
		writeJSONError(w, http.StatusBadRequest, ve.Message)
		return
	}
	if ce, ok := service.AsConflict(err); ok {
		writeJSONError(w, http.StatusConflict, conflictMessage(ce.Field))
		return
	}
	if ne, ok := service.AsNotFound(err); ok {
		writeJSONError(w, http.StatusNotFound, notFoundMessage(ne.Resource))
		return
	}
	if errors.Is(err, service.ErrInvalidCredentials) {
		writeJSONError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	slog.Error("request failed", "error", err)
	writeJSONError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
}

func conflictMessage(field string) string {
	switch field {
	case "team_name":
		return "A team with this name is already registered"
	case "team_leader_email":
		return "This email is already registered to another team"
	}
	return "Duplicate value for " + field
}

func notFoundMessage(resource string) string {
	switch resource {
	case "team":
		return "Team not found"
	case "challenge":
		return "No active challenge"
	}
	return "Not found"
}

// decodeJSON reads a JSON body into dst with a size cap.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return errors.New("invalid JSON body")
	}
	return nil
}
