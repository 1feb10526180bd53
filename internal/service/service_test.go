// Copyright (c) 2025-2026 IEEE Student Branch UCSC
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/ieeeucsc/codequest/internal/audit"
	"github.com/ieeeucsc/codequest/internal/cache"
	"github.com/ieeeucsc/codequest/internal/store"
)

const testFlag = "CODEQUEST{c00k13_m0nst3r_f0und_th3_tr34sur3}"

type testEnv struct {
	queries  *store.Queries
	recorder *audit.Recorder
	cache    cache.Cache
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	f, err := os.CreateTemp("", "codequest-service-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	_ = f.Close()

	db, err := store.NewDB(dbPath)
	if err != nil {
		_ = os.Remove(dbPath)
		t.Fatalf("NewDB: %v", err)
	}
	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		_ = os.Remove(dbPath)
		t.Fatalf("Migrate: %v", err)
	}

	q := store.New(db)
	if err := store.Seed(context.Background(), q); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	c := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Minute})

	t.Cleanup(func() {
		_ = c.Close()
		_ = db.Close()
		_ = os.Remove(dbPath)
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &testEnv{
		queries:  q,
		recorder: audit.NewRecorder(q, nil, logger),
		cache:    c,
	}
}

func (e *testEnv) countEvents(t *testing.T, eventType string) int64 {
	t.Helper()
	n, err := e.queries.CountSecurityLogsByType(context.Background(), eventType)
	if err != nil {
		t.Fatalf("CountSecurityLogsByType(%s): %v", eventType, err)
	}
	return n
}

// fakeTracker is an in-memory AttemptTracker for service tests.
type fakeTracker struct {
	counts map[string]int
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{counts: make(map[string]int)}
}

func (f *fakeTracker) RecordFailure(key string) int {
	f.counts[key]++
	return f.counts[key]
}

func (f *fakeTracker) FailureCount(key string) int { return f.counts[key] }

func (f *fakeTracker) Reset(key string) { delete(f.counts, key) }

func testRequest() *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/api/test", nil)
	r.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	return r
}
