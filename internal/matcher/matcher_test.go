package matcher

import (
	"context"
	"testing"
	"time"

	"github.com/teamarr/teamarr/internal/core"
)

type fakeProvider struct {
	events map[string][]core.Event
}

func (f *fakeProvider) GetEvents(ctx context.Context, league string, date time.Time) ([]core.Event, error) {
	return f.events[league], nil
}

func (f *fakeProvider) GetEvent(ctx context.Context, id string, league string) (core.Event, error) {
	for _, e := range f.events[league] {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Event{}, nil
}

func (f *fakeProvider) GetTeamSchedule(ctx context.Context, teamID string, league string, daysAhead int) ([]core.Event, error) {
	return nil, nil
}

func (f *fakeProvider) GetTeamStats(ctx context.Context, teamID string, league string) (core.TeamStats, error) {
	return core.TeamStats{}, nil
}

func nflEvent() core.Event {
	return core.Event{
		ID:        "1",
		Name:      "Detroit Lions at Green Bay Packers",
		ShortName: "DET @ GB",
		League:    "nfl",
		HomeTeam:  core.Team{ID: "9", Name: "Green Bay Packers", ShortName: "Packers", Abbreviation: "GB"},
		AwayTeam:  core.Team{ID: "8", Name: "Detroit Lions", ShortName: "Lions", Abbreviation: "DET"},
	}
}

func TestSingleLeagueMatcherMatchesBothTeams(t *testing.T) {
	provider := &fakeProvider{events: map[string][]core.Event{"nfl": {nflEvent()}}}
	m := NewSingleLeagueMatcher(provider, "nfl", nil, nil)

	result, err := m.Match(context.Background(), "s1", "Lions @ Packers HD Feed", time.Now())
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if !result.Matched {
		t.Fatalf("expected match, got %+v", result)
	}
	if result.Event.ID != "1" {
		t.Errorf("matched wrong event: %+v", result.Event)
	}
}

func TestSingleLeagueMatcherRequiresBothTeams(t *testing.T) {
	provider := &fakeProvider{events: map[string][]core.Event{"nfl": {nflEvent()}}}
	m := NewSingleLeagueMatcher(provider, "nfl", nil, nil)

	result, err := m.Match(context.Background(), "s1", "Packers pregame show", time.Now())
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if result.Matched {
		t.Fatalf("expected no match without both teams, got %+v", result)
	}
}

func TestSingleLeagueMatcherExceptionKeyword(t *testing.T) {
	provider := &fakeProvider{events: map[string][]core.Event{"nfl": {nflEvent()}}}
	m := NewSingleLeagueMatcher(provider, "nfl", []string{"redzone"}, nil)

	result, err := m.Match(context.Background(), "s1", "NFL RedZone Channel", time.Now())
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if result.Matched {
		t.Fatalf("expected exception keyword to prevent match")
	}
	if !result.IsException() || result.ExceptionKeyword != "redzone" {
		t.Fatalf("expected exception keyword recorded, got %+v", result)
	}
}

func TestSingleLeagueMatcherEventNameFallback(t *testing.T) {
	ufcEvent := core.Event{ID: "ufc1", Name: "UFC Fight Night: Royval vs. Kape", ShortName: "UFC FN", League: "ufc"}
	provider := &fakeProvider{events: map[string][]core.Event{"ufc": {ufcEvent}}}
	m := NewSingleLeagueMatcher(provider, "ufc", nil, nil)

	result, err := m.Match(context.Background(), "s1", "UFC Fight Night prelims", time.Now())
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if !result.Matched || result.Event.ID != "ufc1" {
		t.Fatalf("expected event-name fallback match, got %+v", result)
	}
}

func TestMultiLeagueMatcherSingleEventLeagueShortcut(t *testing.T) {
	ufcEvent := core.Event{ID: "ufc1", Name: "UFC 300", League: "ufc"}
	provider := &fakeProvider{events: map[string][]core.Event{"ufc": {ufcEvent}}}
	m := NewMultiLeagueMatcher(provider, []string{"ufc"}, nil, nil, nil)

	result, err := m.MatchAll(context.Background(), []StreamRef{{ID: "s1", Name: "UFC PPV Main Card"}}, time.Now())
	if err != nil {
		t.Fatalf("MatchAll: %v", err)
	}
	if result.StreamsMatched != 1 {
		t.Fatalf("expected 1 match, got %+v", result)
	}
	if result.Results[0].MatchScore != singleEventLeagueMatchScore {
		t.Errorf("expected keyword-shortcut score %v, got %v", singleEventLeagueMatchScore, result.Results[0].MatchScore)
	}
}

func TestSingleLeagueMatcherRejectsBelowMinScore(t *testing.T) {
	provider := &fakeProvider{events: map[string][]core.Event{"nfl": {nflEvent()}}}
	m := NewSingleLeagueMatcher(provider, "nfl", nil, nil)
	m.SetMinScore(101) // above the fuzzy scorer's 0..100 range: nothing can clear it

	result, err := m.Match(context.Background(), "s1", "Lions @ Packers HD Feed", time.Now())
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if result.Matched {
		t.Fatalf("expected sub-threshold match to be rejected, got %+v", result)
	}
}

func TestSingleLeagueMatcherTieBreaksOnSmallerEventID(t *testing.T) {
	// Two identically-named matchups under different event ids: both score
	// identically, so the smaller id must win regardless of slice order.
	first := core.Event{
		ID: "200", Name: "Lions at Packers", League: "nfl",
		HomeTeam: core.Team{ID: "9", Name: "Green Bay Packers", Abbreviation: "GB"},
		AwayTeam: core.Team{ID: "8", Name: "Detroit Lions", Abbreviation: "DET"},
	}
	second := first
	second.ID = "100"

	provider := &fakeProvider{events: map[string][]core.Event{"nfl": {first, second}}}
	m := NewSingleLeagueMatcher(provider, "nfl", nil, nil)

	result, err := m.Match(context.Background(), "s1", "Lions @ Packers HD Feed", time.Now())
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if !result.Matched || result.Event.ID != "100" {
		t.Fatalf("expected tie broken by smaller event id (100), got %+v", result)
	}
}

func TestMultiLeagueMatcherIncludeLeaguesFilter(t *testing.T) {
	provider := &fakeProvider{events: map[string][]core.Event{
		"nfl": {nflEvent()},
		"nba": {},
	}}
	m := NewMultiLeagueMatcher(provider, []string{"nfl", "nba"}, []string{"nba"}, nil, nil)

	result, err := m.MatchAll(context.Background(), []StreamRef{{ID: "s1", Name: "Lions @ Packers"}}, time.Now())
	if err != nil {
		t.Fatalf("MatchAll: %v", err)
	}
	if result.StreamsMatched != 0 {
		t.Fatalf("expected nfl match to be filtered out by include list, got %+v", result.Results)
	}
}
