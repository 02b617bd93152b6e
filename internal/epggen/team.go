package epggen

import (
	"sort"
	"time"

	"github.com/teamarr/teamarr/internal/core"
	"github.com/teamarr/teamarr/internal/template"
)

// TeamTemplates holds the resolved title/description formats for a team
// channel's game, pregame, postgame, and idle programmes.
type TeamTemplates struct {
	TitleFormat       string
	SubtitleFormat    string
	DescriptionFormat string
	Category          string

	PregameTitle       string
	PregameDescription string
	PostgameTitle      string
	PostgameDescription string
	IdleTitle          string
	IdleDescription    string
}

// TeamChannelConfig identifies the team and channel a schedule is being
// generated for.
type TeamChannelConfig struct {
	TeamID      string
	League      string
	ChannelID   string
	TeamName    string
	TeamAbbrev  string
	LogoURL     string
	Sport       string
}

// TeamGenOptions controls how far ahead to look and how fillers are built.
type TeamGenOptions struct {
	OutputDaysAhead  int
	PregameMinutes   int
	GameDurationMode string // custom | sport | default
	CustomDuration   float64
	DurationSettings DurationSettings
	FillerEnabled    bool
	Timezone         *time.Location
	Now              time.Time // injected for deterministic tests; callers pass time.Now()
}

// GenerateTeamProgrammes builds the full programme timeline for one team
// channel from its (already fetched, not-yet-sorted) schedule: the games
// themselves within the output window, plus pregame/postgame filler
// bridging the gaps without overlapping: a postgame runs from the game's end
// to the next game's pregame start or to local midnight after the game's
// day, whichever comes first, and a pregame runs from the later of the
// previous game's end and the previous postgame's end (local midnight of its
// day for the first game) up to the game's pregame start. No idle filler is
// generated. Grounded on
// TeamEPGGenerator.generate / _generate_fillers.
func GenerateTeamProgrammes(events []core.Event, config TeamChannelConfig, stats core.TeamStats, templates TeamTemplates, opts TeamGenOptions) []core.ProcessedProgramme {
	loc := opts.Timezone
	if loc == nil {
		loc = time.UTC
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	sorted := make([]core.Event, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartTime.Before(sorted[j].StartTime) })

	cutoff := now.AddDate(0, 0, opts.OutputDaysAhead)

	var programmes []core.ProcessedProgramme
	for i, event := range sorted {
		if event.StartTime.After(cutoff) {
			continue
		}
		var next, last *core.Event
		if i+1 < len(sorted) {
			next = &sorted[i+1]
		}
		if i > 0 {
			last = &sorted[i-1]
		}

		duration := ResolveDuration(opts.GameDurationMode, opts.CustomDuration, event.Sport, opts.DurationSettings)
		start := event.StartTime.Add(-time.Duration(opts.PregameMinutes) * time.Minute)
		stop := event.StartTime.Add(time.Duration(duration * float64(time.Hour)))

		ctx := template.TeamContext{
			TeamName: config.TeamName, TeamAbbrev: config.TeamAbbrev, TeamLogoURL: config.LogoURL,
			Stats: stats, Game: &sorted[i], NextEvent: next, LastEvent: last, Timezone: loc,
		}
		vars := template.BuildTeamVariables(ctx)
		vars["matchup"] = event.AwayTeam.Name + " @ " + event.HomeTeam.Name

		icon := config.LogoURL
		if icon == "" {
			icon = event.HomeTeam.LogoURL
		}

		programmes = append(programmes, core.ProcessedProgramme{
			Programme: core.Programme{
				ChannelID:   config.ChannelID,
				Title:       template.ResolveVars(templates.TitleFormat, vars),
				Subtitle:    template.ResolveVars(templates.SubtitleFormat, vars),
				Description: template.ResolveVars(templates.DescriptionFormat, vars),
				Start:       start,
				Stop:        stop,
				Category:    categoryList(templates.Category),
				Icon:        icon,
			},
			EventID: event.ID,
		})
	}

	if opts.FillerEnabled && len(sorted) > 0 {
		programmes = append(programmes, generateTeamFillers(sorted, config, stats, templates, opts, loc, cutoff)...)
	}

	sort.Slice(programmes, func(i, j int) bool { return programmes[i].Start.Before(programmes[j].Start) })
	return programmes
}

func generateTeamFillers(sorted []core.Event, config TeamChannelConfig, stats core.TeamStats, templates TeamTemplates, opts TeamGenOptions, loc *time.Location, cutoff time.Time) []core.ProcessedProgramme {
	var outputEvents []core.Event
	for _, e := range sorted {
		if !e.StartTime.After(cutoff) {
			outputEvents = append(outputEvents, e)
		}
	}
	if len(outputEvents) == 0 {
		return nil
	}

	var fillers []core.ProcessedProgramme
	var prevPostgameEnd time.Time
	for i, event := range outputEvents {
		var next, last *core.Event
		if i+1 < len(outputEvents) {
			next = &outputEvents[i+1]
		}
		if i > 0 {
			last = &outputEvents[i-1]
		}

		duration := ResolveDuration(opts.GameDurationMode, opts.CustomDuration, event.Sport, opts.DurationSettings)
		eventStart := event.StartTime.Add(-time.Duration(opts.PregameMinutes) * time.Minute)
		eventEnd := event.StartTime.Add(time.Duration(duration * float64(time.Hour)))

		pregameCtx := template.BuildTeamVariables(template.TeamContext{
			TeamName: config.TeamName, TeamAbbrev: config.TeamAbbrev, TeamLogoURL: config.LogoURL,
			Stats: stats, NextEvent: &outputEvents[i], LastEvent: last, Timezone: loc,
		})
		postgameCtx := template.BuildTeamVariables(template.TeamContext{
			TeamName: config.TeamName, TeamAbbrev: config.TeamAbbrev, TeamLogoURL: config.LogoURL,
			Stats: stats, NextEvent: next, LastEvent: &outputEvents[i], Timezone: loc,
		})

		var pregameStart time.Time
		if i == 0 {
			localDay := event.StartTime.In(loc)
			pregameStart = time.Date(localDay.Year(), localDay.Month(), localDay.Day(), 0, 0, 0, 0, loc)
		} else if last != nil {
			lastDuration := ResolveDuration(opts.GameDurationMode, opts.CustomDuration, last.Sport, opts.DurationSettings)
			pregameStart = last.StartTime.Add(time.Duration(lastDuration * float64(time.Hour)))
			if prevPostgameEnd.After(pregameStart) {
				pregameStart = prevPostgameEnd
			}
		} else {
			pregameStart = eventStart
		}

		if pregameStart.Before(eventStart) {
			fillers = append(fillers, core.ProcessedProgramme{
				Programme: core.Programme{
					ChannelID:   config.ChannelID,
					Title:       template.ResolveVars(templates.PregameTitle, pregameCtx),
					Description: template.ResolveVars(templates.PregameDescription, pregameCtx),
					Start:       pregameStart,
					Stop:        eventStart,
					Category:    categoryList(templates.Category),
					Icon:        config.LogoURL,
				},
				IsFiller:   true,
				FillerType: core.FillerPregame,
				EventID:    event.ID,
			})
		}

		localDay := event.StartTime.In(loc)
		postgameEnd := time.Date(localDay.Year(), localDay.Month(), localDay.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
		if next != nil {
			if nextStart := next.StartTime.Add(-time.Duration(opts.PregameMinutes) * time.Minute); nextStart.Before(postgameEnd) {
				postgameEnd = nextStart
			}
		}

		if eventEnd.Before(postgameEnd) {
			prevPostgameEnd = postgameEnd
			fillers = append(fillers, core.ProcessedProgramme{
				Programme: core.Programme{
					ChannelID:   config.ChannelID,
					Title:       template.ResolveVars(templates.PostgameTitle, postgameCtx),
					Description: template.ResolveVars(templates.PostgameDescription, postgameCtx),
					Start:       eventEnd,
					Stop:        postgameEnd,
					Category:    categoryList(templates.Category),
					Icon:        config.LogoURL,
				},
				IsFiller:   true,
				FillerType: core.FillerPostgame,
				EventID:    event.ID,
			})
		}
	}
	return fillers
}

func categoryList(category string) []string {
	if category == "" {
		return nil
	}
	return []string{category}
}
