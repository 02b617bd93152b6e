package espn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const sampleScoreboard = `{
  "events": [
    {
      "id": "401547439",
      "name": "Detroit Lions at Green Bay Packers",
      "shortName": "DET @ GB",
      "date": "2025-09-07T17:00Z",
      "competitions": [
        {
          "competitors": [
            {"homeAway": "home", "score": "24", "team": {"id": "9", "displayName": "Green Bay Packers", "shortDisplayName": "Packers", "abbreviation": "GB", "color": "203731", "logos": [{"href": "https://example.com/gb.png"}]}},
            {"homeAway": "away", "score": "17", "team": {"id": "8", "displayName": "Detroit Lions", "shortDisplayName": "Lions", "abbreviation": "DET", "color": "0076B6", "logos": [{"href": "https://example.com/det.png"}]}}
          ],
          "status": {"type": {"name": "STATUS_FINAL", "state": "post", "detail": "Final"}, "period": 4, "displayClock": "0:00"},
          "venue": {"fullName": "Lambeau Field", "address": {"city": "Green Bay", "state": "WI"}},
          "broadcasts": [{"names": ["FOX"]}]
        }
      ]
    }
  ]
}`

func TestGetEventsNormalizesScoreboard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleScoreboard))
	}))
	defer srv.Close()

	p := New(srv.URL, 10)
	events, err := p.GetEvents(context.Background(), "nfl", time.Date(2025, 9, 7, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.HomeTeam.Name != "Green Bay Packers" || ev.AwayTeam.Name != "Detroit Lions" {
		t.Errorf("unexpected teams: home=%q away=%q", ev.HomeTeam.Name, ev.AwayTeam.Name)
	}
	if !ev.Status.IsFinal() {
		t.Errorf("expected status final, got %+v", ev.Status)
	}
	if ev.HomeScore == nil || *ev.HomeScore != 24 {
		t.Errorf("expected home score 24, got %v", ev.HomeScore)
	}
	if ev.Venue == nil || ev.Venue.Name != "Lambeau Field" {
		t.Errorf("expected venue Lambeau Field, got %+v", ev.Venue)
	}
	if len(ev.Broadcasts) != 1 || ev.Broadcasts[0] != "FOX" {
		t.Errorf("expected broadcasts [FOX], got %v", ev.Broadcasts)
	}
}

func TestGetEventsSkipsMalformedEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"events": [{"id": "", "competitions": []}]}`))
	}))
	defer srv.Close()

	p := New(srv.URL, 10)
	events, err := p.GetEvents(context.Background(), "nfl", time.Now())
	if err != nil {
		t.Fatalf("GetEvents: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected malformed entry to be skipped, got %d events", len(events))
	}
}

func TestSportPathForKnownAndUnknownLeague(t *testing.T) {
	if got := sportPathFor("nfl"); got != "football/nfl" {
		t.Errorf("sportPathFor(nfl) = %q", got)
	}
	if got := sportPathFor("some-new-league"); got != "some-new-league" {
		t.Errorf("sportPathFor fallback = %q", got)
	}
}
