// Copyright (c) 2025-2026 IEEE Student Branch UCSC
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/ieeeucsc/codequest/internal/model"
)

const securityLogColumns = `id, event_type, user_identifier, ip_address, user_agent,
	event_details, success, session_id, risk_level, created_at`

// CreateSecurityLogParams holds the fields for a new audit row.
type CreateSecurityLogParams struct {
	EventType      string
	UserIdentifier string
	IPAddress      sql.NullString
	UserAgent      sql.NullString
	EventDetails   string
	Success        bool
	SessionID      sql.NullString
	RiskLevel      string
	CreatedAt      time.Time
}

// CreateSecurityLog appends one audit record.
func (q *Queries) CreateSecurityLog(ctx context.Context, arg CreateSecurityLogParams) (model.SecurityLog, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO security_logs (event_type, user_identifier, ip_address, user_agent,
			event_details, success, session_id, risk_level, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.EventType, arg.UserIdentifier, arg.IPAddress, arg.UserAgent,
		arg.EventDetails, arg.Success, arg.SessionID, arg.RiskLevel, arg.CreatedAt)
	if err != nil {
		return model.SecurityLog{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.SecurityLog{}, err
	}
	row := q.db.QueryRowContext(ctx,
		"SELECT "+securityLogColumns+" FROM security_logs WHERE id = ?", id)
	return scanSecurityLogRow(row)
}

// ListSecurityLogs returns the most recent entries, newest first.
func (q *Queries) ListSecurityLogs(ctx context.Context, limit int64) ([]model.SecurityLog, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT "+securityLogColumns+" FROM security_logs ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []model.SecurityLog
	for rows.Next() {
		var l model.SecurityLog
		if err := rows.Scan(&l.ID, &l.EventType, &l.UserIdentifier, &l.IPAddress, &l.UserAgent,
			&l.EventDetails, &l.Success, &l.SessionID, &l.RiskLevel, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// CountSecurityLogsByType returns the number of audit rows of one event type.
func (q *Queries) CountSecurityLogsByType(ctx context.Context, eventType string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM security_logs WHERE event_type = ?", eventType).Scan(&count)
	return count, err
}

// DeleteOldSecurityLogs removes audit rows created before cutoff. Used by the
// retention job only; nothing else ever deletes from this table.
func (q *Queries) DeleteOldSecurityLogs(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		"DELETE FROM security_logs WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanSecurityLogRow(row *sql.Row) (model.SecurityLog, error) {
	var l model.SecurityLog
	err := row.Scan(&l.ID, &l.EventType, &l.UserIdentifier, &l.IPAddress, &l.UserAgent,
		&l.EventDetails, &l.Success, &l.SessionID, &l.RiskLevel, &l.CreatedAt)
	return l, err
}
