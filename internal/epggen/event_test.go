package epggen

import (
	"testing"
	"time"

	"github.com/teamarr/teamarr/internal/core"
)

func TestGenerateEventProgrammesBasic(t *testing.T) {
	loc := time.UTC
	ev := core.Event{ID: "1", Sport: "football", StartTime: time.Date(2025, 9, 7, 13, 0, 0, 0, loc),
		HomeTeam: core.Team{Name: "Detroit Lions"}, AwayTeam: core.Team{Name: "Green Bay Packers"}}
	matched := []core.MatchedStream{{StreamID: "s1", StreamName: "Lions Feed", Event: ev, ChannelID: "teamarr-event-1"}}

	tmpl := core.Template{Title: "{away_team} @ {home_team}", GameDurationMode: "sport"}
	opts := EventGenOptions{Timezone: loc}

	programmes := GenerateEventProgrammes(matched, EventGroupInfo{AssignedSport: "football"}, tmpl, opts)
	if len(programmes) != 1 {
		t.Fatalf("expected 1 programme (no filler enabled), got %d", len(programmes))
	}
	if programmes[0].Title != "Green Bay Packers @ Detroit Lions" {
		t.Errorf("unexpected title: %q", programmes[0].Title)
	}
}

func TestGenerateEventProgrammesWithPregamePostgame(t *testing.T) {
	loc := time.UTC
	ev := core.Event{ID: "1", Sport: "football", StartTime: time.Date(2025, 9, 7, 13, 0, 0, 0, loc),
		HomeTeam: core.Team{Name: "Detroit Lions"}, AwayTeam: core.Team{Name: "Green Bay Packers"}}
	matched := []core.MatchedStream{{StreamID: "s1", StreamName: "Lions Feed", Event: ev, ChannelID: "teamarr-event-1"}}

	tmpl := core.Template{
		Title: "{away_team} @ {home_team}", GameDurationMode: "sport",
		PregameEnabled: true, PostgameEnabled: true,
		PregameFallback: "Pregame", PostgameFallback: "Postgame",
	}
	opts := EventGenOptions{Timezone: loc}
	programmes := GenerateEventProgrammes(matched, EventGroupInfo{AssignedSport: "football"}, tmpl, opts)

	if len(programmes) != 3 {
		t.Fatalf("expected event + pregame + postgame, got %d", len(programmes))
	}
	var pregame, postgame, game bool
	for _, p := range programmes {
		switch {
		case p.FillerType == core.FillerPregame:
			pregame = true
			if !p.Start.Equal(time.Date(2025, 9, 7, 0, 0, 0, 0, loc)) {
				t.Errorf("expected pregame to start at midnight, got %v", p.Start)
			}
		case p.FillerType == core.FillerPostgame:
			postgame = true
		default:
			game = true
		}
	}
	if !pregame || !postgame || !game {
		t.Fatalf("missing expected programme kind: pregame=%v postgame=%v game=%v", pregame, postgame, game)
	}
}

func TestGenerateEventProgrammesSuppressesPregameAtMidnightStart(t *testing.T) {
	loc := time.UTC
	ev := core.Event{ID: "1", Sport: "football", StartTime: time.Date(2025, 9, 7, 0, 0, 0, 0, loc),
		HomeTeam: core.Team{Name: "A"}, AwayTeam: core.Team{Name: "B"}}
	matched := []core.MatchedStream{{StreamID: "s1", Event: ev, ChannelID: "c1"}}
	tmpl := core.Template{PregameEnabled: true, GameDurationMode: "sport"}

	programmes := GenerateEventProgrammes(matched, EventGroupInfo{AssignedSport: "football"}, tmpl, EventGenOptions{Timezone: loc})
	for _, p := range programmes {
		if p.FillerType == core.FillerPregame {
			t.Fatalf("expected pregame suppressed for midnight-start event, got %+v", p)
		}
	}
}

func TestGenerateEventProgrammesSuppressesPostgameAcrossMidnight(t *testing.T) {
	loc := time.UTC
	// Kicks off 11pm, football duration (3.5h) pushes the end past midnight.
	ev := core.Event{ID: "1", Sport: "football", StartTime: time.Date(2025, 9, 7, 23, 0, 0, 0, loc),
		HomeTeam: core.Team{Name: "A"}, AwayTeam: core.Team{Name: "B"}}
	matched := []core.MatchedStream{{StreamID: "s1", Event: ev, ChannelID: "c1"}}
	tmpl := core.Template{PostgameEnabled: true, GameDurationMode: "sport", PostgameFallback: "Postgame"}

	programmes := GenerateEventProgrammes(matched, EventGroupInfo{AssignedSport: "football"}, tmpl, EventGenOptions{Timezone: loc})
	for _, p := range programmes {
		if p.FillerType == core.FillerPostgame {
			t.Fatalf("expected postgame suppressed for event crossing midnight, got %+v", p)
		}
	}
}

func TestGenerateEventProgrammesUsesConditionalDescription(t *testing.T) {
	loc := time.UTC
	ev := core.Event{ID: "1", StartTime: time.Date(2025, 9, 7, 13, 0, 0, 0, loc), HomeTeam: core.Team{Name: "A"}, AwayTeam: core.Team{Name: "B"}}
	matched := []core.MatchedStream{{StreamID: "s1", Event: ev, ChannelID: "c1"}}
	tmpl := core.Template{
		GameDurationMode: "sport",
		ConditionalDescriptions: []core.ConditionalTemplate{
			{Template: "desc for {home_team}", Priority: 10},
		},
	}
	programmes := GenerateEventProgrammes(matched, EventGroupInfo{}, tmpl, EventGenOptions{Timezone: loc})
	if programmes[0].Description != "desc for A" {
		t.Errorf("expected conditional description used, got %q", programmes[0].Description)
	}
}
