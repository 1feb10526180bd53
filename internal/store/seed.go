// Copyright (c) 2025-2026 IEEE Student Branch UCSC
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"time"
)

const (
	seedChallengeTitle = "VAULT ENTRY CHALLENGE"
	seedChallengeFlag  = "CODEQUEST{c00k13_m0nst3r_f0und_th3_tr34sur3}"

	seedChallengeDescription = `Somewhere in this page a treasure is hidden.
The vault does not give up its secrets to those who only look at the surface.

**Hint:** the best treasures are stored where the browser keeps its crumbs.`
)

// Seed inserts the default web challenge if no challenge exists yet.
// Safe to call on every startup.
func Seed(ctx context.Context, q *Queries) error {
	count, err := q.CountChallenges(ctx)
	if err != nil {
		return fmt.Errorf("counting challenges: %w", err)
	}
	if count > 0 {
		return nil
	}

	_, err = q.CreateChallenge(ctx, CreateChallengeParams{
		Title:       seedChallengeTitle,
		Description: seedChallengeDescription,
		Flag:        seedChallengeFlag,
		Points:      100,
		Category:    "web",
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("seeding challenge: %w", err)
	}
	return nil
}
