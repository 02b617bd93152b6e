// Package store owns Teamarr's authoritative SQLite-compatible persistence:
// settings, teams, templates, event groups, managed channels, managed-channel
// history, the match fingerprint cache, and the update tracker. It uses the
// pure-Go modernc.org/sqlite driver, the same CGo-free choice
// snapetech-plexTuner's own library database makes.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schemaVersion = 48

// Store wraps the shared *sql.DB. Fingerprint-cache writes go through
// busyRetry, since that table is written once per matched stream during a
// generation run; other writes rely on the connection's busy_timeout.
type Store struct {
	db *sql.DB
}

// Open creates (or migrates) the database at path and returns a ready Store.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create data dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(30000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite: single-writer discipline, avoid SQLITE_BUSY storms
	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle for callers that need direct queries
// outside the typed methods.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			schema_version INTEGER NOT NULL,
			timezone TEXT NOT NULL DEFAULT 'UTC',
			dispatcharr_url TEXT,
			dispatcharr_user TEXT,
			dispatcharr_pass TEXT,
			create_unmatched_channels INTEGER NOT NULL DEFAULT 0,
			unmatched_channel_epg_source_id TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS teams (
			id TEXT NOT NULL,
			provider TEXT NOT NULL,
			name TEXT NOT NULL,
			short_name TEXT,
			abbreviation TEXT,
			league TEXT NOT NULL,
			sport TEXT NOT NULL,
			logo_url TEXT,
			color TEXT,
			PRIMARY KEY (provider, id)
		)`,
		`CREATE TABLE IF NOT EXISTS templates (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			definition TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS event_groups (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			assigned_league TEXT,
			is_multi_sport INTEGER NOT NULL DEFAULT 0,
			channel_group_id INTEGER NOT NULL,
			channel_start INTEGER NOT NULL,
			create_timing TEXT NOT NULL,
			delete_timing TEXT NOT NULL,
			event_template_id INTEGER,
			exception_keywords TEXT,
			duplicate_event_handling TEXT NOT NULL DEFAULT 'merge'
		)`,
		`CREATE TABLE IF NOT EXISTS managed_channels (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_group_id INTEGER NOT NULL,
			dispatcharr_channel_id INTEGER,
			dispatcharr_uuid TEXT,
			dispatcharr_stream_id TEXT,
			channel_number INTEGER NOT NULL,
			channel_name TEXT NOT NULL,
			espn_event_id TEXT,
			event_date TEXT,
			scheduled_delete_at TEXT,
			logo_id INTEGER,
			sync_status TEXT NOT NULL DEFAULT 'in_sync',
			deleted_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_managed_channels_group ON managed_channels(event_group_id)`,
		`CREATE INDEX IF NOT EXISTS idx_managed_channels_uuid ON managed_channels(dispatcharr_uuid)`,
		`CREATE TABLE IF NOT EXISTS managed_channel_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			managed_channel_id INTEGER NOT NULL,
			event TEXT NOT NULL,
			detail TEXT,
			occurred_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS match_cache (
			event_group_id INTEGER NOT NULL,
			stream_id TEXT NOT NULL,
			stream_name_hash TEXT NOT NULL,
			event_id TEXT NOT NULL,
			league TEXT NOT NULL,
			snapshot BLOB,
			last_seen_generation INTEGER NOT NULL,
			PRIMARY KEY (event_group_id, stream_id, stream_name_hash)
		)`,
		`CREATE TABLE IF NOT EXISTS team_channels (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			team_id TEXT NOT NULL,
			league TEXT NOT NULL,
			channel_id TEXT NOT NULL UNIQUE,
			team_name TEXT NOT NULL,
			team_abbrev TEXT,
			logo_url TEXT,
			sport TEXT,
			template_id INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS update_tracker (
			key TEXT PRIMARY KEY,
			updated_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (id, schema_version) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET schema_version = excluded.schema_version
		 WHERE excluded.schema_version > settings.schema_version`,
		schemaVersion)
	if err != nil {
		return fmt.Errorf("store: seed settings: %w", err)
	}
	return nil
}

// busyRetry runs fn up to 3 attempts with exponential backoff starting at
// 100ms (doubling, ±25% jitter) when fn fails with SQLITE_BUSY, matching the
// cache-write contention policy in the concurrency model.
func busyRetry(ctx context.Context, fn func() error) error {
	const maxAttempts = 3
	base := 100 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			wait := base * time.Duration(1<<uint(attempt-1))
			frac := float64(wait) * 0.25
			jittered := wait + time.Duration(rand.Int63n(int64(frac*2+1))) - time.Duration(frac)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(jittered):
			}
		}
		lastErr = fn()
		if lastErr == nil || !isBusyErr(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func isBusyErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
