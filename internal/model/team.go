// Copyright (c) 2025-2026 IEEE Student Branch UCSC
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the domain types shared between the store, the
// service layer, and the HTTP handlers.
package model

import (
	"database/sql"
	"time"
)

// Team statuses. Every registration starts as pending; any status may move to
// any other status, including back to pending.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// ValidStatus reports whether s is one of the three team statuses.
func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// Team is a registration entity. team_name and team_leader_email carry unique
// constraints in the store.
type Team struct {
	ID              int64
	TeamName        string
	TeamLeaderName  string
	TeamLeaderEmail string
	TeamLeaderPhone string
	Member2Name     sql.NullString
	Member2Email    sql.NullString
	Member3Name     sql.NullString
	Member3Email    sql.NullString
	Member4Name     sql.NullString
	Member4Email    sql.NullString
	University      string
	FlagSubmitted   string
	Status          string
	RegisteredAt    time.Time
}

// MemberNames returns the optional member names that were actually supplied.
func (t Team) MemberNames() []string {
	var names []string
	for _, n := range []sql.NullString{t.Member2Name, t.Member3Name, t.Member4Name} {
		if n.Valid && n.String != "" {
			names = append(names, n.String)
		}
	}
	return names
}

// MemberCount is the total head count including the leader.
func (t Team) MemberCount() int {
	return 1 + len(t.MemberNames())
}
