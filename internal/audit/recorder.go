// Copyright (c) 2025-2026 IEEE Student Branch UCSC
// SPDX-License-Identifier: GPL-3.0-or-later

// Package audit writes the append-only security log. Recording is
// best-effort: an audit failure never fails the request that triggered it.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/mileusna/useragent"

	"github.com/ieeeucsc/codequest/internal/geoip"
	"github.com/ieeeucsc/codequest/internal/model"
	"github.com/ieeeucsc/codequest/internal/store"
	"github.com/ieeeucsc/codequest/internal/util"
)

// Entry describes one security event before enrichment.
type Entry struct {
	EventType      string
	UserIdentifier string
	Details        map[string]any
	Success        bool
	SessionID      string
	RiskLevel      string
}

// Recorder enriches and persists security events. The GeoIP lookup is
// optional; pass nil to skip country enrichment.
type Recorder struct {
	queries *store.Queries
	geo     *geoip.Lookup
	logger  *slog.Logger
	now     func() time.Time
}

// NewRecorder creates a Recorder writing through q.
func NewRecorder(q *store.Queries, geo *geoip.Lookup, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{queries: q, geo: geo, logger: logger, now: time.Now}
}

// Record persists one security event enriched with request metadata.
// Errors are logged and swallowed; the caller's operation proceeds either way.
func (rec *Recorder) Record(ctx context.Context, r *http.Request, e Entry) {
	entry := store.CreateSecurityLogParams{
		EventType:      e.EventType,
		UserIdentifier: e.UserIdentifier,
		Success:        e.Success,
		RiskLevel:      e.RiskLevel,
		CreatedAt:      rec.now().UTC(),
	}
	if e.RiskLevel == "" {
		entry.RiskLevel = model.RiskLow
	}
	if e.SessionID != "" {
		entry.SessionID = sql.NullString{String: e.SessionID, Valid: true}
	}

	details := make(map[string]any, len(e.Details)+3)
	for k, v := range e.Details {
		details[k] = v
	}

	if r != nil {
		if ip := util.ClientIP(r); ip != "" {
			entry.IPAddress = sql.NullString{String: ip, Valid: true}
			if rec.geo != nil {
				if country := rec.geo.LookupCountry(ip); country != "" {
					details["country"] = country
				}
			}
		}
		if uaString := r.UserAgent(); uaString != "" {
			entry.UserAgent = sql.NullString{String: uaString, Valid: true}
			ua := useragent.Parse(uaString)
			if ua.Name != "" {
				details["browser"] = ua.Name
			}
			if ua.OS != "" {
				details["os"] = ua.OS
			}
			if ua.Bot {
				details["bot"] = true
			}
		}
	}

	entry.EventDetails = marshalDetails(details)

	// Background context so the row lands even if the request was cancelled
	if _, err := rec.queries.CreateSecurityLog(context.WithoutCancel(ctx), entry); err != nil {
		rec.logger.Error("writing security log",
			"event_type", e.EventType,
			"user", e.UserIdentifier,
			"error", err)
	}
}

func marshalDetails(details map[string]any) string {
	if len(details) == 0 {
		return "{}"
	}
	b, err := json.Marshal(details)
	if err != nil {
		return "{}"
	}
	return string(b)
}
