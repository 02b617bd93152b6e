package cricket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/teamarr/teamarr/internal/core"
	"github.com/teamarr/teamarr/internal/sportsprovider/thesportsdb"
)

type fakeSchedule struct {
	events []core.Event
}

func (f *fakeSchedule) GetEvents(ctx context.Context, league string, date time.Time) ([]core.Event, error) {
	return f.events, nil
}

func (f *fakeSchedule) GetEvent(ctx context.Context, id string, league string) (core.Event, error) {
	for _, e := range f.events {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Event{}, nil
}

func (f *fakeSchedule) GetTeamSchedule(ctx context.Context, teamID string, league string, daysAhead int) ([]core.Event, error) {
	return f.events, nil
}

func TestGetEventsEnrichesTeamsFromTheSportsDB(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"teams": [{"idTeam": "100", "strTeam": "India", "strTeamShort": "IND", "strTeamBadge": "https://example.com/ind.png"}]}`))
	}))
	defer srv.Close()

	schedule := &fakeSchedule{events: []core.Event{
		{ID: "1", HomeTeam: core.Team{ID: "100", Name: "India (bare)"}, AwayTeam: core.Team{ID: "999"}},
	}}
	teams := thesportsdb.New(srv.URL, 10)
	p := New(schedule, teams)

	events, err := p.GetEvents(context.Background(), "cricket", time.Now())
	if err != nil {
		t.Fatalf("GetEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].HomeTeam.LogoURL != "https://example.com/ind.png" {
		t.Errorf("expected enriched logo, got %+v", events[0].HomeTeam)
	}
	// Away team lookup fails (id not in fixture) so it should fall back to
	// the schedule-source team unchanged, not be dropped.
	if events[0].AwayTeam.ID != "999" {
		t.Errorf("expected away team preserved on lookup miss, got %+v", events[0].AwayTeam)
	}
}

func TestResolveTeamCachesLookups(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"teams": [{"idTeam": "100", "strTeam": "India"}]}`))
	}))
	defer srv.Close()

	teams := thesportsdb.New(srv.URL, 10)
	p := New(&fakeSchedule{}, teams)

	p.resolveTeam(context.Background(), core.Team{ID: "100"})
	p.resolveTeam(context.Background(), core.Team{ID: "100"})
	if calls != 1 {
		t.Fatalf("expected team lookup to be cached, got %d calls", calls)
	}
}
