package matcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"

	"github.com/teamarr/teamarr/internal/core"
	"github.com/teamarr/teamarr/internal/sportsprovider"
)

// DetectionTier reports which stage produced a StreamMatchResult, so callers
// can verify that a cache hit skips all fuzzy work.
type DetectionTier string

const (
	TierCache     DetectionTier = "cache"
	TierFuzzy     DetectionTier = "fuzzy"
	TierException DetectionTier = "exception"
	TierNone      DetectionTier = "none"
)

// CacheStore is the narrow persistence surface the fingerprint cache needs;
// internal/store.Store satisfies it.
type CacheStore interface {
	GetMatchCacheEntry(ctx context.Context, groupID int64, streamID, streamNameHash string) (*core.MatchCacheEntry, error)
	PutMatchCacheEntry(ctx context.Context, e core.MatchCacheEntry) error
}

// FingerprintHash hashes (eventGroupID, streamID, streamName) into the
// lookup key for a match_cache row.
func FingerprintHash(eventGroupID int64, streamID, streamName string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d\x00%s\x00%s", eventGroupID, streamID, streamName)))
	return hex.EncodeToString(sum[:])
}

// CachedMatcher wraps any matcher's fallback path with the fingerprint
// cache: a hit skips pattern generation and fuzzy scoring entirely and
// instead re-fetches only the dynamic fields (status, scores, odds) of the
// previously matched event, reusing every other field from the cached
// snapshot verbatim. Team streaks are not part of core.Event and are not
// refreshed on a hit. Grounded on
// original_source/epg/stream_match_cache.py.
type CachedMatcher struct {
	Store      CacheStore
	Provider   sportsprovider.Provider
	Generation int64 // current run's generation counter, stamped on every hit and miss-write
}

// Match resolves one stream, consulting the cache before falling back to
// fallback (the caller's normal fuzzy matching path). fallback is only
// invoked on a cache miss.
func (c *CachedMatcher) Match(ctx context.Context, groupID int64, streamID, streamName string, fallback func() (StreamMatchResult, error)) (StreamMatchResult, DetectionTier, error) {
	hash := FingerprintHash(groupID, streamID, streamName)

	entry, err := c.Store.GetMatchCacheEntry(ctx, groupID, streamID, hash)
	if err != nil {
		// Cache errors are not fatal to matching; fall through to fuzzy.
		log.Printf("matcher: cache read failed, falling back to fuzzy: %v", err)
		entry = nil
	}

	if entry != nil {
		result, err := c.refreshFromCache(ctx, *entry, streamID, streamName)
		if err != nil {
			log.Printf("matcher: cache dynamic refresh failed for stream %s, falling back to fuzzy: %v", streamID, err)
		} else {
			entry.LastSeenGeneration = c.Generation
			if putErr := c.Store.PutMatchCacheEntry(ctx, *entry); putErr != nil {
				log.Printf("matcher: cache generation stamp failed for stream %s: %v", streamID, putErr)
			}
			return result, TierCache, nil
		}
	}

	result, err := fallback()
	if err != nil {
		return StreamMatchResult{}, TierNone, err
	}
	if result.IsException() {
		return result, TierException, nil
	}
	if !result.Matched || result.Event == nil {
		return result, TierNone, nil
	}

	snapshot, err := json.Marshal(result.Event)
	if err != nil {
		log.Printf("matcher: cache write skipped, snapshot marshal failed for stream %s: %v", streamID, err)
		return result, TierFuzzy, nil
	}
	writeErr := c.Store.PutMatchCacheEntry(ctx, core.MatchCacheEntry{
		EventGroupID:       groupID,
		StreamID:           streamID,
		StreamNameHash:     hash,
		EventID:            result.Event.ID,
		League:             result.League,
		SerializedSnapshot: snapshot,
		LastSeenGeneration: c.Generation,
	})
	if writeErr != nil {
		log.Printf("matcher: cache write failed for stream %s: %v", streamID, writeErr)
	}
	return result, TierFuzzy, nil
}

// refreshFromCache unmarshals the cached event snapshot and re-fetches its
// dynamic fields (status, scores, odds) from the provider, leaving every
// other field as cached. The cached event's id is authoritative for the
// result regardless of what the refresh returns: every match cache hit
// must return the cached event_id unchanged.
func (c *CachedMatcher) refreshFromCache(ctx context.Context, entry core.MatchCacheEntry, streamID, streamName string) (StreamMatchResult, error) {
	var cached core.Event
	if err := json.Unmarshal(entry.SerializedSnapshot, &cached); err != nil {
		return StreamMatchResult{}, fmt.Errorf("matcher: unmarshal cached snapshot: %w", err)
	}

	if c.Provider != nil {
		fresh, err := c.Provider.GetEvent(ctx, entry.EventID, entry.League)
		if err == nil {
			applyDynamicFields(&cached, fresh)
		}
		// A refresh error is tolerated: the cached snapshot is still usable
		// verbatim, it just won't reflect the latest live score/odds tick.
	}

	return StreamMatchResult{
		StreamID:   streamID,
		StreamName: streamName,
		Event:      &cached,
		League:     entry.League,
		Matched:    true,
		MatchScore: 100, // cache hits carry no fuzzy score; full confidence by construction
	}, nil
}

// applyDynamicFields overlays the fields that change between runs — status,
// scores, and odds — onto dst, leaving every other field (names, venue,
// season info) from the cached snapshot untouched. Team streaks are not
// carried on core.Event, so they are not refreshed here.
func applyDynamicFields(dst *core.Event, fresh core.Event) {
	dst.Status = fresh.Status
	dst.HomeScore = fresh.HomeScore
	dst.AwayScore = fresh.AwayScore
	dst.HasOdds = fresh.HasOdds
	dst.OddsFavorite = fresh.OddsFavorite
	dst.OddsSpread = fresh.OddsSpread
	dst.OddsOverUnder = fresh.OddsOverUnder
}
