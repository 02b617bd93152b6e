// Package thesportsdb normalizes TheSportsDB's v1 JSON API into Teamarr's
// canonical core.Event/core.Team shapes. It is the secondary provider used
// for leagues ESPN doesn't cover well (cricket, and smaller domestic
// leagues), and the team/logo source for the cricket hybrid provider.
package thesportsdb

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teamarr/teamarr/internal/core"
	"github.com/teamarr/teamarr/internal/sportsprovider"
	"github.com/teamarr/teamarr/internal/sportsprovider/httpfetch"
)

// Provider implements sportsprovider.Provider against TheSportsDB's
// api/v1/json/<key> endpoints.
type Provider struct {
	BaseURL string // e.g. "https://www.thesportsdb.com/api/v1/json/123"
	Fetcher *httpfetch.Fetcher
}

// New builds a TheSportsDB provider. TheSportsDB's documented free-tier rate
// limit is generous but per-minute; callers typically pass a low
// ratePerSecond (e.g. 2) to stay well under it.
func New(baseURL string, ratePerSecond float64) *Provider {
	return &Provider{BaseURL: baseURL, Fetcher: httpfetch.New(ratePerSecond)}
}

type eventsResponse struct {
	Events []tsdbEvent `json:"events"`
}

type tsdbEvent struct {
	ID            string `json:"idEvent"`
	Name          string `json:"strEvent"`
	League        string `json:"strLeague"`
	Date          string `json:"dateEvent"`
	Time          string `json:"strTime"`
	HomeTeam      string `json:"strHomeTeam"`
	AwayTeam      string `json:"strAwayTeam"`
	HomeTeamID    string `json:"idHomeTeam"`
	AwayTeamID    string `json:"idAwayTeam"`
	HomeScore     string `json:"intHomeScore"`
	AwayScore     string `json:"intAwayScore"`
	Status        string `json:"strStatus"`
	Progress      string `json:"strProgress"`
	Venue         string `json:"strVenue"`
}

type teamResponse struct {
	Teams []tsdbTeam `json:"teams"`
}

type tsdbTeam struct {
	ID        string `json:"idTeam"`
	Name      string `json:"strTeam"`
	ShortName string `json:"strTeamShort"`
	League    string `json:"strLeague"`
	Badge     string `json:"strTeamBadge"`
}

// GetEvents fetches the day's events for league (TheSportsDB's
// eventsday.php endpoint, keyed by league id rather than a sport path).
func (p *Provider) GetEvents(ctx context.Context, league string, date time.Time) ([]core.Event, error) {
	url := fmt.Sprintf("%s/eventsday.php?d=%s&l=%s", p.BaseURL, date.Format("2006-01-02"), league)
	var resp eventsResponse
	if err := p.Fetcher.GetJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("thesportsdb: get events %s: %w", league, err)
	}
	out := make([]core.Event, 0, len(resp.Events))
	for _, e := range resp.Events {
		ev, err := normalizeEvent(e, league)
		if err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// GetEvent fetches a single event by id (lookupevent.php).
func (p *Provider) GetEvent(ctx context.Context, id string, league string) (core.Event, error) {
	url := fmt.Sprintf("%s/lookupevent.php?id=%s", p.BaseURL, id)
	var resp eventsResponse
	if err := p.Fetcher.GetJSON(ctx, url, &resp); err != nil {
		return core.Event{}, fmt.Errorf("thesportsdb: get event %s: %w", id, err)
	}
	if len(resp.Events) == 0 {
		return core.Event{}, fmt.Errorf("thesportsdb: event %s not found", id)
	}
	return normalizeEvent(resp.Events[0], league)
}

// GetTeamSchedule fetches a team's upcoming events (eventsnext.php),
// filtered client-side to daysAhead.
func (p *Provider) GetTeamSchedule(ctx context.Context, teamID string, league string, daysAhead int) ([]core.Event, error) {
	url := fmt.Sprintf("%s/eventsnext.php?id=%s", p.BaseURL, teamID)
	var resp eventsResponse
	if err := p.Fetcher.GetJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("thesportsdb: get team schedule %s: %w", teamID, err)
	}
	cutoff := time.Now().AddDate(0, 0, daysAhead)
	out := make([]core.Event, 0, len(resp.Events))
	for _, e := range resp.Events {
		ev, err := normalizeEvent(e, league)
		if err != nil {
			continue
		}
		if ev.StartTime.After(cutoff) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// GetTeamStats is not meaningfully populated by TheSportsDB's free tier
// (no record/streak/rank feed); it returns the bare team id so callers can
// distinguish "no stats available" from an error.
func (p *Provider) GetTeamStats(ctx context.Context, teamID string, league string) (core.TeamStats, error) {
	return core.TeamStats{TeamID: teamID}, nil
}

// LookupTeam resolves a team by id, used by the cricket hybrid provider to
// source logos/short names that the secondary schedule feed doesn't carry.
func (p *Provider) LookupTeam(ctx context.Context, teamID string) (core.Team, error) {
	url := fmt.Sprintf("%s/lookupteam.php?id=%s", p.BaseURL, teamID)
	var resp teamResponse
	if err := p.Fetcher.GetJSON(ctx, url, &resp); err != nil {
		return core.Team{}, fmt.Errorf("thesportsdb: lookup team %s: %w", teamID, err)
	}
	if len(resp.Teams) == 0 {
		return core.Team{}, fmt.Errorf("thesportsdb: team %s not found", teamID)
	}
	t := resp.Teams[0]
	return core.Team{
		ID:        t.ID,
		Provider:  "thesportsdb",
		Name:      t.Name,
		ShortName: t.ShortName,
		League:    t.League,
		LogoURL:   t.Badge,
	}, nil
}

func normalizeEvent(e tsdbEvent, league string) (core.Event, error) {
	if e.ID == "" || e.Date == "" {
		return core.Event{}, fmt.Errorf("thesportsdb: event missing id/date")
	}
	clock := e.Time
	if clock == "" {
		clock = "00:00:00"
	}
	start, err := time.Parse("2006-01-02 15:04:05", e.Date+" "+clock)
	if err != nil {
		return core.Event{}, fmt.Errorf("thesportsdb: parse date %q %q: %w", e.Date, e.Time, err)
	}

	home := core.Team{ID: e.HomeTeamID, Provider: "thesportsdb", Name: e.HomeTeam, League: league}
	away := core.Team{ID: e.AwayTeamID, Provider: "thesportsdb", Name: e.AwayTeam, League: league}

	status := sportsprovider.CanonicalizeStatus(statusState(e.Status), e.Status, 0, e.Progress)

	var venue *core.Venue
	if e.Venue != "" {
		venue = &core.Venue{Name: e.Venue}
	}

	return core.Event{
		ID:        e.ID,
		Provider:  "thesportsdb",
		Name:      e.Name,
		StartTime: start,
		HomeTeam:  home,
		AwayTeam:  away,
		Status:    status,
		League:    league,
		HomeScore: parseScore(e.HomeScore),
		AwayScore: parseScore(e.AwayScore),
		Venue:     venue,
	}, nil
}

// statusState maps TheSportsDB's free-text strStatus field onto lowercase
// state spellings sportsprovider.CanonicalizeStatus accepts ("final", "live",
// "postponed", "cancelled", "scheduled"), since its spellings diverge from
// ESPN's (e.g. "Match Finished" rather than "STATUS_FINAL").
func statusState(raw string) string {
	lower := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case lower == "":
		return "scheduled"
	case strings.Contains(lower, "finish") || strings.Contains(lower, "ft") || lower == "final":
		return "final"
	case strings.Contains(lower, "postponed"):
		return "postponed"
	case strings.Contains(lower, "cancel"):
		return "cancelled"
	case strings.Contains(lower, "live") || strings.Contains(lower, "progress") || strings.Contains(lower, "1h") || strings.Contains(lower, "2h"):
		return "live"
	default:
		return "scheduled"
	}
}

func parseScore(s string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}
