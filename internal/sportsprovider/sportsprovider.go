// Package sportsprovider defines the capability surface Teamarr needs from
// any sports data source (ESPN, TheSportsDB, or a hybrid of the two) and a
// Service that routes by league to the right provider, replacing
// original_source/teamarr/providers' duck-typed dict access with tagged
// response structs and an explicit Normalize step per adapter.
package sportsprovider

import (
	"context"
	"fmt"
	"time"

	"github.com/teamarr/teamarr/internal/core"
)

// Provider is the capability set every sports data source implements.
// Responses are normalized into core.Event/core.Team before they ever leave
// the adapter, so downstream code (matcher, template resolver, EPG
// generators) is provider-agnostic.
type Provider interface {
	// GetEvents returns all events for league on the given local date.
	GetEvents(ctx context.Context, league string, date time.Time) ([]core.Event, error)
	// GetEvent fetches a single event by id from a narrower endpoint, used
	// for today's/yesterday's enrichment re-fetch.
	GetEvent(ctx context.Context, id string, league string) (core.Event, error)
	// GetTeamSchedule returns a team's upcoming schedule for daysAhead days.
	GetTeamSchedule(ctx context.Context, teamID string, league string, daysAhead int) ([]core.Event, error)
	// GetTeamStats returns aggregate record/streak/rank info for a team.
	GetTeamStats(ctx context.Context, teamID string, league string) (core.TeamStats, error)
}

// Service routes by league to the provider registered for it, so the rest
// of the pipeline never needs to know which concrete provider backs a
// league. This replaces original_source/services/sports_data.py's
// SportsDataService singleton with an explicit, dependency-injected table.
type Service struct {
	byLeague map[string]Provider
	fallback Provider
}

// NewService builds an empty router; call Register per league before use.
func NewService(fallback Provider) *Service {
	return &Service{byLeague: make(map[string]Provider), fallback: fallback}
}

// Register binds league to provider, overriding any previous registration.
func (s *Service) Register(league string, p Provider) {
	s.byLeague[league] = p
}

func (s *Service) providerFor(league string) (Provider, error) {
	if p, ok := s.byLeague[league]; ok {
		return p, nil
	}
	if s.fallback != nil {
		return s.fallback, nil
	}
	return nil, fmt.Errorf("sportsprovider: no provider registered for league %q", league)
}

func (s *Service) GetEvents(ctx context.Context, league string, date time.Time) ([]core.Event, error) {
	p, err := s.providerFor(league)
	if err != nil {
		return nil, err
	}
	return p.GetEvents(ctx, league, date)
}

func (s *Service) GetEvent(ctx context.Context, id string, league string) (core.Event, error) {
	p, err := s.providerFor(league)
	if err != nil {
		return core.Event{}, err
	}
	return p.GetEvent(ctx, id, league)
}

func (s *Service) GetTeamSchedule(ctx context.Context, teamID string, league string, daysAhead int) ([]core.Event, error) {
	p, err := s.providerFor(league)
	if err != nil {
		return nil, err
	}
	return p.GetTeamSchedule(ctx, teamID, league, daysAhead)
}

func (s *Service) GetTeamStats(ctx context.Context, teamID string, league string) (core.TeamStats, error) {
	p, err := s.providerFor(league)
	if err != nil {
		return core.TeamStats{}, err
	}
	return p.GetTeamStats(ctx, teamID, league)
}

// CanonicalizeStatus maps the inconsistent state spellings
// original_source/teamarr/providers tolerated (sometimes "STATUS_FINAL",
// sometimes state=="post") onto core.EventState at ingest time, so the rest
// of the pipeline only ever sees one canonical form.
func CanonicalizeStatus(rawState, rawDetail string, period int, clock string) core.EventStatus {
	state := core.StateScheduled
	switch rawState {
	case "post", "STATUS_FINAL", "final", "Final":
		state = core.StateFinal
	case "in", "STATUS_IN_PROGRESS", "live", "Live":
		state = core.StateLive
	case "postponed", "STATUS_POSTPONED":
		state = core.StatePostponed
	case "cancelled", "canceled", "STATUS_CANCELED":
		state = core.StateCancelled
	case "pre", "STATUS_SCHEDULED", "scheduled", "":
		state = core.StateScheduled
	}
	return core.EventStatus{State: state, Detail: rawDetail, Period: period, Clock: clock}
}
