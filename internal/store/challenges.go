// Copyright (c) 2025-2026 IEEE Student Branch UCSC
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/ieeeucsc/codequest/internal/model"
)

const challengeColumns = "id, title, description, flag, points, category, created_at"

// CreateChallengeParams holds the fields for a new challenge row.
type CreateChallengeParams struct {
	Title       string
	Description string
	Flag        string
	Points      int64
	Category    string
	CreatedAt   time.Time
}

// CreateChallenge inserts a challenge and returns the stored row.
func (q *Queries) CreateChallenge(ctx context.Context, arg CreateChallengeParams) (model.Challenge, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO ctf_challenges (title, description, flag, points, category, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		arg.Title, arg.Description, arg.Flag, arg.Points, arg.Category, arg.CreatedAt)
	if err != nil {
		return model.Challenge{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Challenge{}, err
	}
	return q.GetChallengeByID(ctx, id)
}

// GetChallengeByID fetches a single challenge by primary key.
func (q *Queries) GetChallengeByID(ctx context.Context, id int64) (model.Challenge, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+challengeColumns+" FROM ctf_challenges WHERE id = ?", id)
	return scanChallenge(row)
}

// GetChallengeByCategory fetches the single active challenge for a category.
func (q *Queries) GetChallengeByCategory(ctx context.Context, category string) (model.Challenge, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+challengeColumns+" FROM ctf_challenges WHERE category = ? ORDER BY id LIMIT 1", category)
	return scanChallenge(row)
}

// CountChallenges returns the number of challenge rows.
func (q *Queries) CountChallenges(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ctf_challenges").Scan(&count)
	return count, err
}

func scanChallenge(row *sql.Row) (model.Challenge, error) {
	var c model.Challenge
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.Flag, &c.Points, &c.Category, &c.CreatedAt)
	return c, err
}

// CreateFlagSubmissionParams holds the fields for a new submission row.
type CreateFlagSubmissionParams struct {
	SubmittedFlag string
	IsCorrect     bool
	IPAddress     sql.NullString
	SubmittedAt   time.Time
}

// CreateFlagSubmission appends one guess record.
func (q *Queries) CreateFlagSubmission(ctx context.Context, arg CreateFlagSubmissionParams) (model.FlagSubmission, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO flag_submissions (submitted_flag, is_correct, ip_address, submitted_at)
		 VALUES (?, ?, ?, ?)`,
		arg.SubmittedFlag, arg.IsCorrect, arg.IPAddress, arg.SubmittedAt)
	if err != nil {
		return model.FlagSubmission{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.FlagSubmission{}, err
	}
	var s model.FlagSubmission
	err = q.db.QueryRowContext(ctx,
		"SELECT id, submitted_flag, is_correct, ip_address, submitted_at FROM flag_submissions WHERE id = ?", id).
		Scan(&s.ID, &s.SubmittedFlag, &s.IsCorrect, &s.IPAddress, &s.SubmittedAt)
	return s, err
}

// CountFlagSubmissions returns the total number of recorded guesses.
func (q *Queries) CountFlagSubmissions(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM flag_submissions").Scan(&count)
	return count, err
}
