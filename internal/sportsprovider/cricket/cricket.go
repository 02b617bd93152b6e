// Package cricket composes a schedule/score source with TheSportsDB's team
// directory into a single sportsprovider.Provider, mirroring
// original_source/teamarr/providers/cricket_hybrid: team info and logos come
// from TheSportsDB's team cache, while event schedules and live scores come
// from a separate feed, because TheSportsDB's free tier doesn't carry
// cricket fixtures. The service layer sees a single "cricket_hybrid"
// provider and is unaware of the split.
package cricket

import (
	"context"
	"time"

	"github.com/teamarr/teamarr/internal/core"
	"github.com/teamarr/teamarr/internal/sportsprovider/thesportsdb"
)

// ScheduleSource is the capability the hybrid needs from whatever feed
// supplies cricket fixtures and live scores (e.g. a TheSportsDB premium key,
// or a separate scraped source); kept narrow so callers can swap it freely.
type ScheduleSource interface {
	GetEvents(ctx context.Context, league string, date time.Time) ([]core.Event, error)
	GetEvent(ctx context.Context, id string, league string) (core.Event, error)
	GetTeamSchedule(ctx context.Context, teamID string, league string, daysAhead int) ([]core.Event, error)
}

// Provider implements sportsprovider.Provider by fetching fixtures from a
// ScheduleSource and filling in team logos/short names from TheSportsDB's
// team directory, caching lookups in-process since team metadata changes
// rarely within a run.
type Provider struct {
	Schedule ScheduleSource
	Teams    *thesportsdb.Provider

	teamCache map[string]core.Team
}

// New builds a cricket hybrid provider over schedule (fixtures/scores) and
// teams (TheSportsDB, for logos and canonical short names).
func New(schedule ScheduleSource, teams *thesportsdb.Provider) *Provider {
	return &Provider{Schedule: schedule, Teams: teams, teamCache: make(map[string]core.Team)}
}

func (p *Provider) GetEvents(ctx context.Context, league string, date time.Time) ([]core.Event, error) {
	events, err := p.Schedule.GetEvents(ctx, league, date)
	if err != nil {
		return nil, err
	}
	for i := range events {
		p.enrichTeams(ctx, &events[i])
	}
	return events, nil
}

func (p *Provider) GetEvent(ctx context.Context, id string, league string) (core.Event, error) {
	ev, err := p.Schedule.GetEvent(ctx, id, league)
	if err != nil {
		return core.Event{}, err
	}
	p.enrichTeams(ctx, &ev)
	return ev, nil
}

func (p *Provider) GetTeamSchedule(ctx context.Context, teamID string, league string, daysAhead int) ([]core.Event, error) {
	events, err := p.Schedule.GetTeamSchedule(ctx, teamID, league, daysAhead)
	if err != nil {
		return nil, err
	}
	for i := range events {
		p.enrichTeams(ctx, &events[i])
	}
	return events, nil
}

// GetTeamStats delegates straight to TheSportsDB, which for cricket (as for
// other leagues on its free tier) returns only the bare team id.
func (p *Provider) GetTeamStats(ctx context.Context, teamID string, league string) (core.TeamStats, error) {
	return p.Teams.GetTeamStats(ctx, teamID, league)
}

// enrichTeams replaces each side's bare schedule-source team with the
// TheSportsDB-resolved version (logo, canonical short name) when a lookup
// succeeds, leaving the original on a lookup failure so a down team
// directory never blocks the fixture itself from surfacing.
func (p *Provider) enrichTeams(ctx context.Context, ev *core.Event) {
	ev.HomeTeam = p.resolveTeam(ctx, ev.HomeTeam)
	ev.AwayTeam = p.resolveTeam(ctx, ev.AwayTeam)
}

func (p *Provider) resolveTeam(ctx context.Context, t core.Team) core.Team {
	if t.ID == "" {
		return t
	}
	if cached, ok := p.teamCache[t.ID]; ok {
		return cached
	}
	resolved, err := p.Teams.LookupTeam(ctx, t.ID)
	if err != nil {
		p.teamCache[t.ID] = t
		return t
	}
	if resolved.Name == "" {
		resolved.Name = t.Name
	}
	p.teamCache[t.ID] = resolved
	return resolved
}
