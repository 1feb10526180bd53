// Copyright (c) 2025-2026 IEEE Student Branch UCSC
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/ieeeucsc/codequest/internal/model"
)

const teamColumns = `id, team_name, team_leader_name, team_leader_email, team_leader_phone,
	member2_name, member2_email, member3_name, member3_email, member4_name, member4_email,
	university, flag_submitted, status, registered_at`

// CreateTeamParams holds the fields for a new team row. Status is always
// written as pending regardless of what the caller staged upstream.
type CreateTeamParams struct {
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
	RegisteredAt    time.Time
}

// CreateTeam inserts a team and returns the stored row.
func (q *Queries) CreateTeam(ctx context.Context, arg CreateTeamParams) (model.Team, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO teams (team_name, team_leader_name, team_leader_email, team_leader_phone,
			member2_name, member2_email, member3_name, member3_email, member4_name, member4_email,
			university, flag_submitted, status, registered_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.TeamName, arg.TeamLeaderName, arg.TeamLeaderEmail, arg.TeamLeaderPhone,
		arg.Member2Name, arg.Member2Email, arg.Member3Name, arg.Member3Email,
		arg.Member4Name, arg.Member4Email,
		arg.University, arg.FlagSubmitted, model.StatusPending, arg.RegisteredAt)
	if err != nil {
		return model.Team{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Team{}, err
	}
	return q.GetTeamByID(ctx, id)
}

// GetTeamByID fetches a single team by primary key.
func (q *Queries) GetTeamByID(ctx context.Context, id int64) (model.Team, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+teamColumns+" FROM teams WHERE id = ?", id)
	return scanTeamRow(row)
}

// ListTeams returns all teams, most recent registration first. The id
// tiebreaker keeps the order total and stable for equal timestamps.
func (q *Queries) ListTeams(ctx context.Context) ([]model.Team, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT "+teamColumns+" FROM teams ORDER BY registered_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teams []model.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// UpdateTeamStatusParams identifies the team and the target status.
type UpdateTeamStatusParams struct {
	ID     int64
	Status string
}

// UpdateTeamStatus sets a team's status and returns the updated row.
// Returns sql.ErrNoRows if the team does not exist.
func (q *Queries) UpdateTeamStatus(ctx context.Context, arg UpdateTeamStatusParams) (model.Team, error) {
	res, err := q.db.ExecContext(ctx,
		"UPDATE teams SET status = ? WHERE id = ?", arg.Status, arg.ID)
	if err != nil {
		return model.Team{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return model.Team{}, err
	}
	if affected == 0 {
		return model.Team{}, sql.ErrNoRows
	}
	return q.GetTeamByID(ctx, arg.ID)
}

// CountTeams returns the total number of registered teams.
func (q *Queries) CountTeams(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM teams").Scan(&count)
	return count, err
}

// CountTeamsByStatus returns the number of teams in the given status.
func (q *Queries) CountTeamsByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM teams WHERE status = ?", status).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTeamFields(s rowScanner) (model.Team, error) {
	var t model.Team
	err := s.Scan(&t.ID, &t.TeamName, &t.TeamLeaderName, &t.TeamLeaderEmail, &t.TeamLeaderPhone,
		&t.Member2Name, &t.Member2Email, &t.Member3Name, &t.Member3Email, &t.Member4Name, &t.Member4Email,
		&t.University, &t.FlagSubmitted, &t.Status, &t.RegisteredAt)
	return t, err
}

func scanTeamRow(row *sql.Row) (model.Team, error) { return scanTeamFields(row) }

func scanTeam(rows *sql.Rows) (model.Team, error) { return scanTeamFields(rows) }
