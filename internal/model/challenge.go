// Copyright (c) 2025-2026 IEEE Student Branch UCSC
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Challenge is one puzzle record. Immutable for the lifetime of the event;
// the flag itself never leaves the server through the challenge API.
type Challenge struct {
	ID          int64
	Title       string
	Description string
	Flag        string
	Points      int64
	Category    string
	CreatedAt   time.Time
}

// FlagSubmission is an append-only record of a single guess.
type FlagSubmission struct {
	ID            int64
	SubmittedFlag string
	IsCorrect     bool
	IPAddress     sql.NullString
	SubmittedAt   time.Time
}
