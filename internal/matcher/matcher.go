// Package matcher binds free-text upstream stream names to canonical
// events using the Events→Streams approach: fetch a league's events for a
// date, generate search patterns from each event's teams, then scan every
// stream name for those patterns. This is the inverse of a per-stream
// team-extraction approach and tolerates far more stream-naming variation.
// Grounded on original_source/consumers/stream_matcher.py.
package matcher

import (
	"context"
	"strings"
	"time"

	"github.com/teamarr/teamarr/internal/core"
	"github.com/teamarr/teamarr/internal/fuzzy"
	"github.com/teamarr/teamarr/internal/sportsprovider"
)

// StreamMatchResult is the outcome of matching one stream to an event.
type StreamMatchResult struct {
	StreamID         string
	StreamName       string
	Event            *core.Event
	League           string
	Matched          bool
	MatchScore       float64
	ExceptionKeyword string
}

// IsException reports whether the stream was excluded by an exception
// keyword rather than simply failing to match anything.
func (r StreamMatchResult) IsException() bool {
	return r.ExceptionKeyword != ""
}

// BatchMatchResult summarizes matching a batch of streams.
type BatchMatchResult struct {
	Results        []StreamMatchResult
	EventsFound    int
	StreamsMatched int
	StreamsTotal   int
}

// MatchRate returns the percentage of streams that matched, or 0 when the
// batch was empty.
func (b BatchMatchResult) MatchRate() float64 {
	if b.StreamsTotal == 0 {
		return 0
	}
	return float64(b.StreamsMatched) / float64(b.StreamsTotal) * 100
}

type eventPatterns struct {
	event         core.Event
	homePatterns  []string
	awayPatterns  []string
	eventPatterns []string
}

// DefaultMinScore is the score below which a match is rejected rather than
// returned. The source expresses this threshold on a 0..1 scale (default
// 0.5); this package's fuzzy scorer works on 0..100, so the default is
// carried over scaled to the same range.
const DefaultMinScore = 50.0

// SingleLeagueMatcher matches streams against events for one known league.
// Patterns are built once per (league, date) and reused across a batch.
type SingleLeagueMatcher struct {
	service           sportsprovider.Provider
	league            string
	exceptionKeywords []string
	fuzzyMatcher      *fuzzy.Matcher
	minScore          float64

	events        []core.Event
	eventPatterns []eventPatterns
	cacheDate     string // yyyy-mm-dd; empty until built
}

// NewSingleLeagueMatcher builds a matcher for league, using fuzzyMatcher (or
// a default-vocabulary matcher when nil) and the given exception keywords
// (case-insensitive substrings that exclude a stream from matching). Matches
// scoring below DefaultMinScore are rejected; use SetMinScore to override.
func NewSingleLeagueMatcher(service sportsprovider.Provider, league string, exceptionKeywords []string, fuzzyMatcher *fuzzy.Matcher) *SingleLeagueMatcher {
	if fuzzyMatcher == nil {
		fuzzyMatcher = fuzzy.New()
	}
	lowered := make([]string, len(exceptionKeywords))
	for i, kw := range exceptionKeywords {
		lowered[i] = strings.ToLower(kw)
	}
	return &SingleLeagueMatcher{
		service:           service,
		league:            league,
		exceptionKeywords: lowered,
		fuzzyMatcher:      fuzzyMatcher,
		minScore:          DefaultMinScore,
	}
}

// SetMinScore overrides the minimum accepted match score.
func (m *SingleLeagueMatcher) SetMinScore(score float64) {
	m.minScore = score
}

// Match matches one stream name to an event in the configured league,
// fetching/caching the league's events for targetDate as needed.
func (m *SingleLeagueMatcher) Match(ctx context.Context, streamID, streamName string, targetDate time.Time) (StreamMatchResult, error) {
	streamLower := strings.ToLower(streamName)

	for _, keyword := range m.exceptionKeywords {
		if strings.Contains(streamLower, keyword) {
			return StreamMatchResult{
				StreamID:         streamID,
				StreamName:       streamName,
				League:           m.league,
				ExceptionKeyword: keyword,
			}, nil
		}
	}

	if err := m.buildPatterns(ctx, targetDate); err != nil {
		return StreamMatchResult{}, err
	}

	event, score := m.findMatchingEvent(streamLower)
	return StreamMatchResult{
		StreamID:   streamID,
		StreamName: streamName,
		Event:      event,
		League:     m.league,
		Matched:    event != nil,
		MatchScore: score,
	}, nil
}

// StreamRef is one (id, name) pair to match in a batch.
type StreamRef struct {
	ID   string
	Name string
}

// MatchBatch builds patterns once, then matches every stream against them.
func (m *SingleLeagueMatcher) MatchBatch(ctx context.Context, streams []StreamRef, targetDate time.Time) (BatchMatchResult, error) {
	if err := m.buildPatterns(ctx, targetDate); err != nil {
		return BatchMatchResult{}, err
	}

	results := make([]StreamMatchResult, 0, len(streams))
	matched := 0
	for _, s := range streams {
		r, err := m.Match(ctx, s.ID, s.Name, targetDate)
		if err != nil {
			return BatchMatchResult{}, err
		}
		results = append(results, r)
		if r.Matched {
			matched++
		}
	}
	return BatchMatchResult{
		Results:        results,
		EventsFound:    len(m.events),
		StreamsMatched: matched,
		StreamsTotal:   len(streams),
	}, nil
}

func (m *SingleLeagueMatcher) buildPatterns(ctx context.Context, targetDate time.Time) error {
	dateKey := targetDate.Format("2006-01-02")
	if m.cacheDate == dateKey {
		return nil
	}

	events, err := m.service.GetEvents(ctx, m.league, targetDate)
	if err != nil {
		return err
	}

	m.events = events
	m.eventPatterns = m.eventPatterns[:0]
	for _, event := range events {
		ep := eventPatterns{
			event:         event,
			eventPatterns: m.fuzzyMatcher.GenerateEventPatterns(event.Name, event.ShortName),
		}
		// Events without two identified sides (UFC, boxing) get no team
		// patterns and are reachable only through event-name matching.
		if event.HomeTeam.ID != "" && event.AwayTeam.ID != "" {
			ep.homePatterns = m.fuzzyMatcher.GenerateTeamPatterns(event.HomeTeam)
			ep.awayPatterns = m.fuzzyMatcher.GenerateTeamPatterns(event.AwayTeam)
		}
		m.eventPatterns = append(m.eventPatterns, ep)
	}
	m.cacheDate = dateKey
	return nil
}

// findMatchingEvent tries team-based matching first (both home and away
// patterns must hit), then falls back to event-name matching for events
// without distinct home/away sides (UFC, boxing). Candidates scoring below
// m.minScore are rejected even when they are the best available. Ties within
// a strategy break on the smaller event id, lexicographically.
func (m *SingleLeagueMatcher) findMatchingEvent(streamLower string) (*core.Event, float64) {
	var best *core.Event
	bestScore := 0.0

	for i := range m.eventPatterns {
		ep := &m.eventPatterns[i]
		home := m.fuzzyMatcher.MatchesAny(ep.homePatterns, streamLower)
		away := m.fuzzyMatcher.MatchesAny(ep.awayPatterns, streamLower)
		if home.Matched && away.Matched {
			combined := (home.Score + away.Score) / 2
			if betterCandidate(combined, &ep.event, bestScore, best) {
				bestScore = combined
				best = &ep.event
			}
		}
	}
	if best != nil {
		if bestScore < m.minScore {
			return nil, 0
		}
		return best, bestScore
	}

	for i := range m.eventPatterns {
		ep := &m.eventPatterns[i]
		match := m.fuzzyMatcher.MatchesAny(ep.eventPatterns, streamLower)
		if match.Matched && betterCandidate(match.Score, &ep.event, bestScore, best) {
			bestScore = match.Score
			best = &ep.event
		}
	}
	if best != nil && bestScore < m.minScore {
		return nil, 0
	}
	return best, bestScore
}

// betterCandidate reports whether (score, event) should replace the current
// best (bestScore, best): a strictly higher score always wins; a tied score
// wins only when event's id sorts lexicographically before best's, so the
// result is independent of provider iteration order.
func betterCandidate(score float64, event *core.Event, bestScore float64, best *core.Event) bool {
	if best == nil {
		return true
	}
	if score != bestScore {
		return score > bestScore
	}
	return event.ID < best.ID
}

// Events returns the cached events for targetDate, building the cache if
// necessary. Useful for inspection and for MultiLeagueMatcher's
// single-event-league shortcut.
func (m *SingleLeagueMatcher) Events(ctx context.Context, targetDate time.Time) ([]core.Event, error) {
	if err := m.buildPatterns(ctx, targetDate); err != nil {
		return nil, err
	}
	out := make([]core.Event, len(m.events))
	copy(out, m.events)
	return out, nil
}

// ClearCache drops the built pattern cache, forcing a refetch on next Match.
func (m *SingleLeagueMatcher) ClearCache() {
	m.events = nil
	m.eventPatterns = nil
	m.cacheDate = ""
}

// SingleEventLeagueKeywords lists leagues that typically run only one event
// per day, keyed to the stream-text keywords that identify them. When a
// stream mentions one of these keywords and exactly one event exists for
// that league on the target date, MultiLeagueMatcher auto-matches it at a
// reduced confidence score rather than requiring a team-pattern hit.
var SingleEventLeagueKeywords = map[string][]string{
	"ufc": {"ufc", "fight night", "mma"},
}

// singleEventLeagueMatchScore is the confidence assigned to a
// keyword-only single-event-league match: lower than a genuine
// team/event-pattern hit, since it has no positive evidence beyond the
// league keyword and the absence of any other candidate that day.
const singleEventLeagueMatchScore = 80.0

// MultiLeagueMatcher matches streams against events across several leagues,
// with an optional include-list narrowing which league's matches are
// surfaced (useful when a channel group searches multiple leagues but only
// wants one reported back).
type MultiLeagueMatcher struct {
	service           sportsprovider.Provider
	searchLeagues     []string
	includeLeagues    map[string]struct{} // nil means include all
	exceptionKeywords []string
	fuzzyMatcher      *fuzzy.Matcher
	minScore          float64

	matchers map[string]*SingleLeagueMatcher
}

// SetMinScore overrides the minimum accepted match score applied to every
// per-league matcher, including ones created after this call.
func (m *MultiLeagueMatcher) SetMinScore(score float64) {
	m.minScore = score
	for _, matcher := range m.matchers {
		matcher.SetMinScore(score)
	}
}

// NewMultiLeagueMatcher builds a matcher searching searchLeagues, reporting
// only matches in includeLeagues when non-empty (nil/empty means all).
func NewMultiLeagueMatcher(service sportsprovider.Provider, searchLeagues, includeLeagues, exceptionKeywords []string, fuzzyMatcher *fuzzy.Matcher) *MultiLeagueMatcher {
	if fuzzyMatcher == nil {
		fuzzyMatcher = fuzzy.New()
	}
	var include map[string]struct{}
	if len(includeLeagues) > 0 {
		include = make(map[string]struct{}, len(includeLeagues))
		for _, l := range includeLeagues {
			include[l] = struct{}{}
		}
	}
	lowered := make([]string, len(exceptionKeywords))
	for i, kw := range exceptionKeywords {
		lowered[i] = strings.ToLower(kw)
	}
	return &MultiLeagueMatcher{
		service:           service,
		searchLeagues:     searchLeagues,
		includeLeagues:    include,
		exceptionKeywords: lowered,
		fuzzyMatcher:      fuzzyMatcher,
		minScore:          DefaultMinScore,
		matchers:          make(map[string]*SingleLeagueMatcher),
	}
}

// MatchAll matches every stream against every configured league.
func (m *MultiLeagueMatcher) MatchAll(ctx context.Context, streams []StreamRef, targetDate time.Time) (BatchMatchResult, error) {
	totalEvents := 0
	for _, league := range m.searchLeagues {
		matcher := m.matcherFor(league)
		if _, err := matcher.Events(ctx, targetDate); err != nil {
			return BatchMatchResult{}, err
		}
		totalEvents += len(matcher.events)
	}

	results := make([]StreamMatchResult, 0, len(streams))
	matched := 0
	for _, s := range streams {
		r, err := m.matchStream(ctx, s.ID, s.Name, targetDate)
		if err != nil {
			return BatchMatchResult{}, err
		}
		results = append(results, r)
		if r.Matched {
			matched++
		}
	}
	return BatchMatchResult{
		Results:        results,
		EventsFound:    totalEvents,
		StreamsMatched: matched,
		StreamsTotal:   len(streams),
	}, nil
}

// Match matches a single stream, the same per-stream step MatchAll uses
// internally under the hood. Exposed so a caller wanting to interleave a
// fingerprint-cache lookup between individual streams (rather than only
// through the whole-batch MatchAll) has a per-stream entrypoint to wrap.
func (m *MultiLeagueMatcher) Match(ctx context.Context, streamID, streamName string, targetDate time.Time) (StreamMatchResult, error) {
	return m.matchStream(ctx, streamID, streamName, targetDate)
}

func (m *MultiLeagueMatcher) matcherFor(league string) *SingleLeagueMatcher {
	if matcher, ok := m.matchers[league]; ok {
		return matcher
	}
	matcher := NewSingleLeagueMatcher(m.service, league, m.exceptionKeywords, m.fuzzyMatcher)
	matcher.SetMinScore(m.minScore)
	m.matchers[league] = matcher
	return matcher
}

func (m *MultiLeagueMatcher) matchStream(ctx context.Context, streamID, streamName string, targetDate time.Time) (StreamMatchResult, error) {
	streamLower := strings.ToLower(streamName)

	for _, keyword := range m.exceptionKeywords {
		if strings.Contains(streamLower, keyword) {
			return StreamMatchResult{StreamID: streamID, StreamName: streamName, ExceptionKeyword: keyword}, nil
		}
	}

	for league, keywords := range SingleEventLeagueKeywords {
		if !contains(m.searchLeagues, league) {
			continue
		}
		if !anyContains(streamLower, keywords) {
			continue
		}
		matcher := m.matcherFor(league)
		if len(matcher.events) == 1 && m.shouldInclude(league) {
			event := matcher.events[0]
			return StreamMatchResult{
				StreamID:   streamID,
				StreamName: streamName,
				Event:      &event,
				League:     league,
				Matched:    true,
				MatchScore: singleEventLeagueMatchScore,
			}, nil
		}
	}

	var best *StreamMatchResult
	bestScore := 0.0
	for _, league := range m.searchLeagues {
		if !m.shouldInclude(league) {
			continue
		}
		matcher := m.matcherFor(league)
		result, err := matcher.Match(ctx, streamID, streamName, targetDate)
		if err != nil {
			return StreamMatchResult{}, err
		}
		if result.Matched && betterCandidate(result.MatchScore, result.Event, bestScore, candidateEvent(best)) {
			bestScore = result.MatchScore
			r := result
			best = &r
		}
	}
	if best != nil {
		return *best, nil
	}

	return StreamMatchResult{StreamID: streamID, StreamName: streamName}, nil
}

// candidateEvent extracts the event pointer from a possibly-nil best-so-far
// result, for feeding into betterCandidate's tie-break.
func candidateEvent(best *StreamMatchResult) *core.Event {
	if best == nil {
		return nil
	}
	return best.Event
}

func (m *MultiLeagueMatcher) shouldInclude(league string) bool {
	if m.includeLeagues == nil {
		return true
	}
	_, ok := m.includeLeagues[league]
	return ok
}

// ClearCache drops every per-league matcher's cache.
func (m *MultiLeagueMatcher) ClearCache() {
	for _, matcher := range m.matchers {
		matcher.ClearCache()
	}
	m.matchers = make(map[string]*SingleLeagueMatcher)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func anyContains(haystack string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}
