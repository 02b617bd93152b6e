package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/teamarr/teamarr/internal/core"
)

// GetMatchCacheEntry returns the cached match for the given fingerprint, or
// (nil, nil) on a cache miss — misses are not errors, per the error-handling
// policy that cache-read misses are equivalent to "no entry".
func (s *Store) GetMatchCacheEntry(ctx context.Context, groupID int64, streamID, streamNameHash string) (*core.MatchCacheEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT event_id, league, snapshot, last_seen_generation FROM match_cache
		 WHERE event_group_id = ? AND stream_id = ? AND stream_name_hash = ?`,
		groupID, streamID, streamNameHash)
	var e core.MatchCacheEntry
	e.EventGroupID, e.StreamID, e.StreamNameHash = groupID, streamID, streamNameHash
	err := row.Scan(&e.EventID, &e.League, &e.SerializedSnapshot, &e.LastSeenGeneration)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get match cache entry: %w", err)
	}
	return &e, nil
}

// PutMatchCacheEntry upserts a fingerprint-cache row, retrying on SQLITE_BUSY
// since this write is shared across the matcher's fan-out over many streams.
func (s *Store) PutMatchCacheEntry(ctx context.Context, e core.MatchCacheEntry) error {
	return busyRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO match_cache (event_group_id, stream_id, stream_name_hash, event_id, league, snapshot, last_seen_generation)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(event_group_id, stream_id, stream_name_hash) DO UPDATE SET
				event_id = excluded.event_id,
				league = excluded.league,
				snapshot = excluded.snapshot,
				last_seen_generation = excluded.last_seen_generation`,
			e.EventGroupID, e.StreamID, e.StreamNameHash, e.EventID, e.League, e.SerializedSnapshot, e.LastSeenGeneration)
		if err != nil {
			return fmt.Errorf("store: put match cache entry: %w", err)
		}
		return nil
	})
}

// EvictStaleMatchCacheEntries deletes entries not seen within the last
// keepGenerations generations, so cache entries for streams that stopped
// appearing don't accumulate forever.
func (s *Store) EvictStaleMatchCacheEntries(ctx context.Context, currentGeneration int64, keepGenerations int64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM match_cache WHERE last_seen_generation <= ?`,
		currentGeneration-keepGenerations)
	if err != nil {
		return 0, fmt.Errorf("store: evict stale match cache entries: %w", err)
	}
	return res.RowsAffected()
}
