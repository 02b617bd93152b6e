package sportsprovider

import (
	"context"
	"testing"
	"time"

	"github.com/teamarr/teamarr/internal/core"
)

type stubProvider struct {
	name string
}

func (p *stubProvider) GetEvents(ctx context.Context, league string, date time.Time) ([]core.Event, error) {
	return []core.Event{{ID: p.name + ":" + league}}, nil
}

func (p *stubProvider) GetEvent(ctx context.Context, id string, league string) (core.Event, error) {
	return core.Event{ID: p.name + ":" + id}, nil
}

func (p *stubProvider) GetTeamSchedule(ctx context.Context, teamID string, league string, daysAhead int) ([]core.Event, error) {
	return nil, nil
}

func (p *stubProvider) GetTeamStats(ctx context.Context, teamID string, league string) (core.TeamStats, error) {
	return core.TeamStats{}, nil
}

func TestService_routesRegisteredLeagueToItsProvider(t *testing.T) {
	espn := &stubProvider{name: "espn"}
	tsdb := &stubProvider{name: "tsdb"}

	svc := NewService(espn)
	svc.Register("epl", tsdb)

	ev, err := svc.GetEvent(context.Background(), "123", "epl")
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if ev.ID != "tsdb:123" {
		t.Fatalf("ID = %q, want tsdb:123 (epl should route to the registered provider)", ev.ID)
	}
}

func TestService_fallsBackToDefaultProviderForUnregisteredLeague(t *testing.T) {
	espn := &stubProvider{name: "espn"}
	svc := NewService(espn)

	ev, err := svc.GetEvent(context.Background(), "456", "nfl")
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if ev.ID != "espn:456" {
		t.Fatalf("ID = %q, want espn:456 (unregistered league should use the fallback)", ev.ID)
	}
}

func TestService_noFallbackReturnsError(t *testing.T) {
	svc := NewService(nil)
	if _, err := svc.GetEvent(context.Background(), "1", "nfl"); err == nil {
		t.Fatal("expected an error when no provider is registered and there is no fallback")
	}
}

func TestCanonicalizeStatus(t *testing.T) {
	cases := []struct {
		rawState string
		want     core.EventState
	}{
		{"post", core.StateFinal},
		{"STATUS_FINAL", core.StateFinal},
		{"in", core.StateLive},
		{"STATUS_IN_PROGRESS", core.StateLive},
		{"postponed", core.StatePostponed},
		{"cancelled", core.StateCancelled},
		{"canceled", core.StateCancelled},
		{"", core.StateScheduled},
		{"pre", core.StateScheduled},
	}
	for _, tc := range cases {
		got := CanonicalizeStatus(tc.rawState, "detail", 2, "5:00")
		if got.State != tc.want {
			t.Errorf("CanonicalizeStatus(%q) state = %v, want %v", tc.rawState, got.State, tc.want)
		}
		if got.Detail != "detail" || got.Period != 2 || got.Clock != "5:00" {
			t.Errorf("CanonicalizeStatus(%q) did not pass through detail/period/clock: %+v", tc.rawState, got)
		}
	}
}
