// Package espn normalizes ESPN's scoreboard/summary JSON into Teamarr's
// canonical core.Event/core.Team shapes. Grounded on
// original_source/teamarr/providers/espn/constants.py's STATUS_MAP (applied
// through sportsprovider.CanonicalizeStatus).
package espn

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/teamarr/teamarr/internal/core"
	"github.com/teamarr/teamarr/internal/sportsprovider"
	"github.com/teamarr/teamarr/internal/sportsprovider/httpfetch"
)

// Provider implements sportsprovider.Provider against ESPN's public
// site.api.espn.com endpoints.
type Provider struct {
	BaseURL string
	Fetcher *httpfetch.Fetcher
}

// New builds an ESPN provider against baseURL (e.g.
// "https://site.api.espn.com") at the given requests-per-second ceiling.
func New(baseURL string, ratePerSecond float64) *Provider {
	return &Provider{BaseURL: baseURL, Fetcher: httpfetch.New(ratePerSecond)}
}

type scoreboardResponse struct {
	Events []scoreboardEvent `json:"events"`
}

type scoreboardEvent struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	ShortName    string          `json:"shortName"`
	Date         string          `json:"date"`
	Season       struct{ Year int; Type struct{ ID string } } `json:"-"`
	Competitions []competition   `json:"competitions"`
}

type competition struct {
	Competitors []competitor `json:"competitors"`
	Status      struct {
		Type   statusType `json:"type"`
		Period int        `json:"period"`
		Clock  string     `json:"displayClock"`
	} `json:"status"`
	Venue struct {
		FullName string `json:"fullName"`
		Address  struct {
			City  string `json:"city"`
			State string `json:"state"`
		} `json:"address"`
	} `json:"venue"`
	Broadcasts []struct {
		Names []string `json:"names"`
	} `json:"broadcasts"`
}

type statusType struct {
	Name   string `json:"name"`
	State  string `json:"state"`
	Detail string `json:"detail"`
}

type competitor struct {
	HomeAway string `json:"homeAway"`
	Score    string `json:"score"`
	Team     struct {
		ID           string `json:"id"`
		DisplayName  string `json:"displayName"`
		ShortDisplay string `json:"shortDisplayName"`
		Abbreviation string `json:"abbreviation"`
		Color        string `json:"color"`
		Logos        []struct {
			Href string `json:"href"`
		} `json:"logos"`
	} `json:"team"`
}

// GetEvents fetches the scoreboard for league on date and normalizes every
// event into core.Event.
func (p *Provider) GetEvents(ctx context.Context, league string, date time.Time) ([]core.Event, error) {
	url := fmt.Sprintf("%s/apis/site/v2/sports/%s/scoreboard?dates=%s",
		p.BaseURL, sportPathFor(league), date.Format("20060102"))
	var resp scoreboardResponse
	if err := p.Fetcher.GetJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("espn: get events %s: %w", league, err)
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

// GetEvent re-fetches a single event by id from the narrower summary
// endpoint, used for today's/yesterday's enrichment pass.
func (p *Provider) GetEvent(ctx context.Context, id string, league string) (core.Event, error) {
	url := fmt.Sprintf("%s/apis/site/v2/sports/%s/summary?event=%s", p.BaseURL, sportPathFor(league), id)
	var resp struct {
		Header scoreboardEvent `json:"header"`
	}
	if err := p.Fetcher.GetJSON(ctx, url, &resp); err != nil {
		return core.Event{}, fmt.Errorf("espn: get event %s: %w", id, err)
	}
	return normalizeEvent(resp.Header, league)
}

// GetTeamSchedule fetches daysAhead worth of scheduled events for teamID.
func (p *Provider) GetTeamSchedule(ctx context.Context, teamID string, league string, daysAhead int) ([]core.Event, error) {
	url := fmt.Sprintf("%s/apis/site/v2/sports/%s/teams/%s/schedule", p.BaseURL, sportPathFor(league), teamID)
	var resp scoreboardResponse
	if err := p.Fetcher.GetJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("espn: get team schedule %s: %w", teamID, err)
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

// GetTeamStats is a capability ESPN's public scoreboard feed doesn't expose
// directly; callers needing rank/seed/streak rely on the team endpoint's
// record summary, which we surface here in the minimal shape available.
func (p *Provider) GetTeamStats(ctx context.Context, teamID string, league string) (core.TeamStats, error) {
	url := fmt.Sprintf("%s/apis/site/v2/sports/%s/teams/%s", p.BaseURL, sportPathFor(league), teamID)
	var resp struct {
		Team struct {
			Record struct {
				Items []struct {
					Summary string `json:"summary"`
				} `json:"items"`
			} `json:"record"`
		} `json:"team"`
	}
	if err := p.Fetcher.GetJSON(ctx, url, &resp); err != nil {
		return core.TeamStats{}, fmt.Errorf("espn: get team stats %s: %w", teamID, err)
	}
	stats := core.TeamStats{TeamID: teamID}
	if len(resp.Team.Record.Items) > 0 {
		stats.Record = resp.Team.Record.Items[0].Summary
	}
	return stats, nil
}

func normalizeEvent(e scoreboardEvent, league string) (core.Event, error) {
	if e.ID == "" || len(e.Competitions) == 0 {
		return core.Event{}, fmt.Errorf("espn: event missing id/competition")
	}
	comp := e.Competitions[0]
	start, err := time.Parse(time.RFC3339, e.Date)
	if err != nil {
		return core.Event{}, fmt.Errorf("espn: parse date %q: %w", e.Date, err)
	}

	var home, away core.Team
	var homeScore, awayScore *int
	for _, c := range comp.Competitors {
		t := core.Team{
			ID:           c.Team.ID,
			Provider:     "espn",
			Name:         c.Team.DisplayName,
			ShortName:    c.Team.ShortDisplay,
			Abbreviation: c.Team.Abbreviation,
			League:       league,
			Color:        c.Team.Color,
		}
		if len(c.Team.Logos) > 0 {
			t.LogoURL = c.Team.Logos[0].Href
		}
		score := parseScore(c.Score)
		switch c.HomeAway {
		case "home":
			home = t
			homeScore = score
		case "away":
			away = t
			awayScore = score
		}
	}

	status := sportsprovider.CanonicalizeStatus(statusState(comp.Status.Type), comp.Status.Type.Detail, comp.Status.Period, comp.Status.Clock)

	var broadcasts []string
	for _, b := range comp.Broadcasts {
		broadcasts = append(broadcasts, b.Names...)
	}

	var venue *core.Venue
	if comp.Venue.FullName != "" {
		venue = &core.Venue{Name: comp.Venue.FullName, City: comp.Venue.Address.City, State: comp.Venue.Address.State}
	}

	ev := core.Event{
		ID:         e.ID,
		Provider:   "espn",
		Name:       e.Name,
		ShortName:  e.ShortName,
		StartTime:  start,
		HomeTeam:   home,
		AwayTeam:   away,
		Status:     status,
		League:     league,
		Sport:      sportFor(league),
		HomeScore:  homeScore,
		AwayScore:  awayScore,
		Venue:      venue,
		Broadcasts: broadcasts,
	}
	return ev, nil
}

// statusState prefers ESPN's state field, falling back to its status-type
// name when state is empty, since ESPN's own payloads are inconsistent
// about which field carries the canonical value.
func statusState(t statusType) string {
	if t.State != "" {
		return t.State
	}
	return t.Name
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

// sportFor maps a league code to its sport family for duration/overtime
// lookups; unregistered leagues default to "" and fall through to the
// global default duration/threshold.
var leagueSport = map[string]string{
	"nfl": "football", "college-football": "football",
	"nba": "basketball", "mens-college-basketball": "basketball",
	"nhl": "hockey",
	"mlb": "baseball",
	"eng.1": "soccer", "usa.1": "soccer",
}

func sportFor(league string) string {
	return leagueSport[league]
}

// sportPathFor maps a league code to ESPN's URL sport/league path segment.
// This is intentionally a small table; operators add entries for leagues
// they configure via event groups.
var leaguePath = map[string]string{
	"nfl":                      "football/nfl",
	"college-football":         "football/college-football",
	"nba":                      "basketball/nba",
	"mens-college-basketball":  "basketball/mens-college-basketball",
	"nhl":                      "hockey/nhl",
	"mlb":                      "baseball/mlb",
	"eng.1":                    "soccer/eng.1",
	"usa.1":                    "soccer/usa.1",
	"ufc":                      "mma/ufc",
}

func sportPathFor(league string) string {
	if p, ok := leaguePath[league]; ok {
		return p
	}
	return league
}
