package epggen

import (
	"time"

	"github.com/teamarr/teamarr/internal/core"
	"github.com/teamarr/teamarr/internal/template"
)

// EventGroupInfo carries the assigned-sport/league fallback an event
// channel's duration lookup and template context use when the matched
// event itself doesn't specify them (single-sport groups).
type EventGroupInfo struct {
	AssignedSport  string
	AssignedLeague string
}

// EventGenOptions controls timezone and duration-settings lookups shared
// across every matched stream in one generation pass.
type EventGenOptions struct {
	Timezone         *time.Location
	DurationSettings DurationSettings
}

// GenerateEventProgrammes builds one channel-with-programme(s) timeline per
// matched stream: the event itself, plus an optional pregame filler
// (midnight to event start) and postgame filler (event end to the
// following midnight) when the template enables them. A filler that would
// cross midnight (because the event starts at/ends after local midnight)
// is suppressed rather than clipped, since a window that doesn't open
// before it closes isn't meaningful. Grounded on
// EventEPGGenerator.generate/_add_pregame_programme/_add_postgame_programme.
func GenerateEventProgrammes(matched []core.MatchedStream, group EventGroupInfo, tmpl core.Template, opts EventGenOptions) []core.ProcessedProgramme {
	loc := opts.Timezone
	if loc == nil {
		loc = time.UTC
	}

	var programmes []core.ProcessedProgramme
	for _, m := range matched {
		ev := m.Event
		evSport := ev.Sport
		if evSport == "" {
			evSport = group.AssignedSport
		}
		duration := ResolveDuration(tmpl.GameDurationMode, tmpl.GameDurationHours, evSport, opts.DurationSettings)

		eventStart := ev.StartTime
		eventEnd := ev.StartTime.Add(time.Duration(duration * float64(time.Hour)))

		ctx := template.Context{
			Event: ev, StreamID: m.StreamID, StreamName: m.StreamName,
			Timezone: loc, AssignedSport: group.AssignedSport, AssignedLeague: group.AssignedLeague,
		}

		title := template.Resolve(tmpl.Title, ctx)
		if title == "" {
			title = m.StreamName
		}

		programmes = append(programmes, core.ProcessedProgramme{
			Programme: core.Programme{
				ChannelID:   m.ChannelID,
				Title:       title,
				Subtitle:    template.Resolve(tmpl.Subtitle, ctx),
				Description: resolveEventDescription(tmpl, ctx),
				Start:       eventStart,
				Stop:        eventEnd,
				Category:    categoriesFor(tmpl, ctx, "events"),
				Live:        tmpl.XMLTVFlags.Live,
				New:         tmpl.XMLTVFlags.New,
			},
			EventID: ev.ID,
		})

		if tmpl.PregameEnabled {
			if p, ok := buildEventPregame(m, tmpl, ctx, loc, eventStart); ok {
				programmes = append(programmes, p)
			}
		}
		if tmpl.PostgameEnabled {
			if p, ok := buildEventPostgame(m, tmpl, ctx, loc, eventStart, eventEnd); ok {
				programmes = append(programmes, p)
			}
		}
	}
	return programmes
}

func resolveEventDescription(tmpl core.Template, ctx template.Context) string {
	if len(tmpl.ConditionalDescriptions) > 0 {
		return template.SelectDescription(tmpl.ConditionalDescriptions, ctx)
	}
	return template.Resolve(tmpl.Description, ctx)
}

func buildEventPregame(m core.MatchedStream, tmpl core.Template, ctx template.Context, loc *time.Location, eventStart time.Time) (core.ProcessedProgramme, bool) {
	local := eventStart.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	if !dayStart.Before(eventStart) {
		return core.ProcessedProgramme{}, false
	}
	title := tmpl.PregameFallback
	if title == "" {
		title = "Pregame Coverage"
	}
	return core.ProcessedProgramme{
		Programme: core.Programme{
			ChannelID:   m.ChannelID,
			Title:       template.Resolve(title, ctx),
			Description: template.Resolve(tmpl.PregameFallback, ctx),
			Start:       dayStart,
			Stop:        eventStart,
			Category:    categoriesFor(tmpl, ctx, "pregame"),
			Live:        tmpl.XMLTVFlags.Live,
			New:         tmpl.XMLTVFlags.New,
		},
		IsFiller:   true,
		FillerType: core.FillerPregame,
		EventID:    m.Event.ID,
	}, true
}

// buildEventPostgame emits [event.end, 23:59:59 local] unless the event
// crosses local midnight (start and end fall on different local dates), in
// which case postgame is suppressed entirely rather than clipped to the
// wrong day's window.
func buildEventPostgame(m core.MatchedStream, tmpl core.Template, ctx template.Context, loc *time.Location, eventStart, eventEnd time.Time) (core.ProcessedProgramme, bool) {
	startLocal := eventStart.In(loc)
	local := eventEnd.In(loc)
	if startLocal.Year() != local.Year() || startLocal.YearDay() != local.YearDay() {
		return core.ProcessedProgramme{}, false
	}
	dayEnd := time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 0, loc)
	if !eventEnd.Before(dayEnd) {
		return core.ProcessedProgramme{}, false
	}
	title := "Postgame Recap"
	desc := template.PostgameDescription(tmpl.PostgameConditional, ctx)
	if desc == "" {
		desc = template.Resolve(tmpl.PostgameFallback, ctx)
	}
	return core.ProcessedProgramme{
		Programme: core.Programme{
			ChannelID:   m.ChannelID,
			Title:       template.Resolve(title, ctx),
			Description: desc,
			Start:       eventEnd,
			Stop:        dayEnd,
			Category:    categoriesFor(tmpl, ctx, "postgame"),
			Live:        tmpl.XMLTVFlags.Live,
			New:         tmpl.XMLTVFlags.New,
		},
		IsFiller:   true,
		FillerType: core.FillerPostgame,
		EventID:    m.Event.ID,
	}, true
}

func categoriesFor(tmpl core.Template, ctx template.Context, programmeType string) []string {
	if len(tmpl.XMLTVCategories) == 0 || !tmpl.CategoryAppliesTo(programmeType) {
		return nil
	}
	out := make([]string, 0, len(tmpl.XMLTVCategories))
	for _, c := range tmpl.XMLTVCategories {
		out = append(out, template.Resolve(c, ctx))
	}
	return out
}
