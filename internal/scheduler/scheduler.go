// Copyright (c) 2025-2026 IEEE Student Branch UCSC
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the periodic maintenance jobs: audit log retention
// pruning and GeoIP database reloads.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ieeeucsc/codequest/internal/geoip"
	"github.com/ieeeucsc/codequest/internal/store"
)

// Scheduler owns the cron jobs for background maintenance.
type Scheduler struct {
	queries       *store.Queries
	geo           *geoip.Lookup
	cron          *cron.Cron
	logger        *slog.Logger
	retentionDays int
}

// New creates a scheduler. A zero retentionDays disables pruning; a nil geo
// disables GeoIP reloads.
func New(queries *store.Queries, geo *geoip.Lookup, logger *slog.Logger, retentionDays int) *Scheduler {
	return &Scheduler{
		queries:       queries,
		geo:           geo,
		cron:          cron.New(),
		logger:        logger,
		retentionDays: retentionDays,
	}
}

// Start registers and starts the jobs.
func (s *Scheduler) Start() error {
	if s.retentionDays > 0 {
		// Daily at 03:30
		if _, err := s.cron.AddFunc("30 3 * * *", func() {
			if err := s.pruneSecurityLogs(); err != nil {
				s.logger.Error("failed to prune security logs", "error", err)
			}
		}); err != nil {
			return err
		}
	}

	if s.geo != nil && s.geo.IsEnabled() {
		// Weekly, Sunday 04:00; picks up refreshed GeoLite2 downloads
		if _, err := s.cron.AddFunc("0 4 * * 0", func() {
			if err := s.geo.Reload(); err != nil {
				s.logger.Error("failed to reload geoip database", "error", err)
			}
		}); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// pruneSecurityLogs deletes audit rows older than the retention window.
func (s *Scheduler) pruneSecurityLogs() error {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.retentionDays)
	deleted, err := s.queries.DeleteOldSecurityLogs(context.Background(), cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		s.logger.Info("pruned security logs", "deleted", deleted, "cutoff", cutoff.Format(time.RFC3339))
	}
	return nil
}
