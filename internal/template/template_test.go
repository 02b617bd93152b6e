package template

import (
	"testing"
	"time"

	"github.com/teamarr/teamarr/internal/core"
)

func sampleEvent() core.Event {
	home := 24
	away := 17
	return core.Event{
		ID:        "401547439",
		Name:      "Detroit Lions at Green Bay Packers",
		ShortName: "DET @ GB",
		League:    "nfl",
		Sport:     "football",
		StartTime: time.Date(2025, 9, 7, 17, 0, 0, 0, time.UTC),
		HomeTeam:  core.Team{Name: "Green Bay Packers", Abbreviation: "GB"},
		AwayTeam:  core.Team{Name: "Detroit Lions", Abbreviation: "DET"},
		HomeScore: &home,
		AwayScore: &away,
		Status:    core.EventStatus{State: core.StateFinal, Period: 4},
	}
}

func TestResolveBasicVariables(t *testing.T) {
	ctx := Context{Event: sampleEvent(), StreamID: "42", StreamName: "Lions Feed"}
	got := Resolve("{away_team} @ {home_team}", ctx)
	if got != "Detroit Lions @ Green Bay Packers" {
		t.Fatalf("unexpected resolve: %q", got)
	}
}

func TestResolveElidesOptionalVarWhenEmpty(t *testing.T) {
	ctx := Context{Event: sampleEvent()}
	got := Resolve("{event_name} ({exception_keyword})", ctx)
	if got != "DET @ GB" {
		t.Fatalf("expected optional var elided, got %q", got)
	}
}

func TestResolveKeepsOptionalVarWhenPresent(t *testing.T) {
	ctx := Context{Event: sampleEvent(), ExceptionKeyword: "prime vision"}
	got := Resolve("{event_name} ({exception_keyword})", ctx)
	if got != "DET @ GB (prime vision)" {
		t.Fatalf("expected optional var kept, got %q", got)
	}
}

func TestResolveEventResultOnFinal(t *testing.T) {
	ctx := Context{Event: sampleEvent()}
	got := Resolve("{event_result}", ctx)
	want := "Green Bay Packers 24 - Detroit Lions 17"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	winner := Resolve("{winner}", ctx)
	if winner != "Green Bay Packers" {
		t.Fatalf("expected home team winner, got %q", winner)
	}
}

func TestResolveEventResultEmptyWhenNotFinal(t *testing.T) {
	ev := sampleEvent()
	ev.Status = core.EventStatus{State: core.StateScheduled}
	ctx := Context{Event: ev}
	if got := Resolve("[{event_result}]", ctx); got != "[]" {
		t.Fatalf("expected empty result before final, got %q", got)
	}
}

func TestOvertimeTextThresholds(t *testing.T) {
	if got := OvertimeText("basketball", 5); got != "in overtime" {
		t.Errorf("basketball 5 periods: got %q", got)
	}
	if got := OvertimeText("basketball", 4); got != "" {
		t.Errorf("basketball 4 periods (regulation): got %q", got)
	}
	if got := OvertimeText("hockey", 4); got != "in overtime" {
		t.Errorf("hockey 4 periods: got %q", got)
	}
	if got := OvertimeText("unknown-sport", 5); got != "in overtime" {
		t.Errorf("unknown sport falls back to default threshold 4: got %q", got)
	}
}

func TestSelectDescriptionPicksLowestPriority(t *testing.T) {
	ctx := Context{Event: sampleEvent()}
	opts := []core.ConditionalTemplate{
		{Template: "low priority {home_team}", Priority: 90},
		{Template: "", Priority: 1},
		{Template: "high priority {home_team}", Priority: 10},
	}
	got := SelectDescription(opts, ctx)
	if got != "high priority Green Bay Packers" {
		t.Fatalf("unexpected selection: %q", got)
	}
}

func TestSelectDescriptionEmptyWhenNoValidOptions(t *testing.T) {
	ctx := Context{Event: sampleEvent()}
	if got := SelectDescription(nil, ctx); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestBuildTeamVariablesNextLastSuffixes(t *testing.T) {
	lionsScore := 10
	bearsScore := 20
	nextEvent := core.Event{
		HomeTeam:  core.Team{Name: "Detroit Lions"},
		AwayTeam:  core.Team{Name: "Chicago Bears"},
		StartTime: time.Date(2025, 9, 14, 13, 0, 0, 0, time.UTC),
	}
	lastEvent := core.Event{
		HomeTeam:  core.Team{Name: "Detroit Lions"},
		AwayTeam:  core.Team{Name: "Green Bay Packers"},
		HomeScore: &lionsScore,
		AwayScore: &bearsScore,
		Status:    core.EventStatus{State: core.StateFinal},
	}
	ctx := TeamContext{TeamName: "Detroit Lions", NextEvent: &nextEvent, LastEvent: &lastEvent}
	vars := BuildTeamVariables(ctx)

	if vars["opponent_next"] != "Chicago Bears" {
		t.Errorf("expected next opponent Chicago Bears, got %q", vars["opponent_next"])
	}
	if vars["final_score_last"] != "Detroit Lions 10 - Green Bay Packers 20" {
		t.Errorf("unexpected final_score_last: %q", vars["final_score_last"])
	}

	got := ResolveVars("Next: {opponent.next} on {game_date.next}", vars)
	want := "Next: Chicago Bears on " + nextEvent.StartTime.Format("Monday, January 2, 2006")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestPostgameDescriptionSwitchesOnFinal(t *testing.T) {
	sw := core.PostgameSwitch{Final: "Final: {event_result}", NotFinal: "In progress: {home_team}"}

	finalCtx := Context{Event: sampleEvent()}
	if got := PostgameDescription(sw, finalCtx); got != "Final: Green Bay Packers 24 - Detroit Lions 17" {
		t.Fatalf("unexpected final description: %q", got)
	}

	liveEvent := sampleEvent()
	liveEvent.Status = core.EventStatus{State: core.StateLive}
	liveCtx := Context{Event: liveEvent}
	if got := PostgameDescription(sw, liveCtx); got != "In progress: Green Bay Packers" {
		t.Fatalf("unexpected not-final description: %q", got)
	}
}
