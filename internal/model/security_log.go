// Copyright (c) 2025-2026 IEEE Student Branch UCSC
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Security event types
const (
	EventAdminLogin       = "admin_login"
	EventAdminLoginFailed = "admin_login_failed"
	EventAdminLogout      = "admin_logout"
	EventTeamRegistration = "team_registration"
	EventFlagSubmission   = "flag_submission"
	EventDataAccess       = "data_access"
	EventSuspicious       = "suspicious_activity"
	EventSystemAlert      = "system_alert"
)

// Risk levels
const (
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

// Admin login failure reasons
const (
	FailureEmptyUsername      = "empty_username"
	FailureEmptyPassword      = "empty_password"
	FailureInvalidCredentials = "invalid_credentials"
)

// SecurityLog is one append-only audit record. Rows are created by every
// state-changing action and are never mutated or deleted outside retention
// pruning.
type SecurityLog struct {
	ID             int64
	EventType      string
	UserIdentifier string
	IPAddress      sql.NullString
	UserAgent      sql.NullString
	EventDetails   string // JSON object
	Success        bool
	SessionID      sql.NullString
	RiskLevel      string
	CreatedAt      time.Time
}

// ValidEventType reports whether t is one of the enumerated event types.
func ValidEventType(t string) bool {
	switch t {
	case EventAdminLogin, EventAdminLoginFailed, EventAdminLogout,
		EventTeamRegistration, EventFlagSubmission, EventDataAccess,
		EventSuspicious, EventSystemAlert:
		return true
	}
	return false
}

// ValidRiskLevel reports whether l is one of the enumerated risk levels.
func ValidRiskLevel(l string) bool {
	switch l {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}
