// Package template resolves {variable} placeholders in user-configured
// title/subtitle/description strings against event data, and selects among
// conditional description candidates. Grounded on
// original_source/epg/event_template_engine.py: variables are positional
// (home_team/away_team), resolution is a single non-recursive pass, and a
// small set of "optional" variables are elided along with their
// surrounding brackets/dash when empty rather than left as stray
// punctuation.
package template

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/teamarr/teamarr/internal/core"
)

// optionalVars are removed along with their surrounding "(...)", "[...]" or
// leading " - " when their value is empty, so a template like
// "{event_name} ({exception_keyword})" degrades gracefully to "{event_name}"
// instead of "{event_name} ()".
var optionalVars = []string{"exception_keyword", "exception_keyword_title"}

// overtimeThresholds is the regulation period count per sport above which a
// final score implies the game went to overtime.
var overtimeThresholds = map[string]int{
	"basketball": 4,
	"hockey":     3,
	"football":   4,
	"baseball":   9,
}

const defaultOvertimeThreshold = 4

var sportDisplayNames = map[string]string{
	"basketball": "Basketball",
	"football":   "Football",
	"hockey":     "Hockey",
	"baseball":   "Baseball",
	"soccer":     "Soccer",
}

// varPattern matches {variable} and {variable.next}/{variable.last}; the
// suffix selects the next/last scheduled event's value of the same
// variable for team-channel filler templates (e.g. "{opponent.next}").
var varPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)(\.(?:next|last))?\}`)
var multiSpace = regexp.MustCompile(`  +`)

func optionalBracketPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\s*[(\[]\s*\{` + regexp.QuoteMeta(name) + `\}\s*[)\]]\s*`)
}

func optionalDashPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\s*[-–—]\s*\{` + regexp.QuoteMeta(name) + `\}`)
}

// Context carries everything the variable builder needs: the event, the
// originating stream, the owning group's configuration, and display
// preferences.
type Context struct {
	Event             core.Event
	StreamID          string
	StreamName        string
	Timezone          *time.Location
	LeagueAlias       string // friendly display name for event.League, if known
	ExceptionKeyword  string
	AssignedSport     string // fallback for multi-sport groups with no per-event sport
	AssignedLeague    string
}

// Resolve replaces every {variable} placeholder in tmpl using ctx, eliding
// optional variables (and their surrounding decoration) when empty, then
// collapsing any double spaces left behind. This never recurses: a
// variable's resolved value is inserted as literal text, not re-scanned for
// further placeholders.
func Resolve(tmpl string, ctx Context) string {
	if tmpl == "" {
		return ""
	}
	return ResolveVars(tmpl, BuildVariables(ctx))
}

// ResolveVars is the variable-dictionary-driven core both Resolve (event
// context) and team-channel filler resolution share: elide empty optional
// variables and their decoration, substitute every {var}/{var.next}/
// {var.last} placeholder (a .next/.last suffix looks up "<var>_next" or
// "<var>_last" in vars), then collapse stray double spaces.
func ResolveVars(tmpl string, vars map[string]string) string {
	if tmpl == "" {
		return ""
	}
	for _, name := range optionalVars {
		if vars[name] != "" {
			continue
		}
		tmpl = optionalBracketPattern(name).ReplaceAllString(tmpl, "")
		tmpl = optionalDashPattern(name).ReplaceAllString(tmpl, "")
	}

	result := varPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		groups := varPattern.FindStringSubmatch(match)
		name := strings.ToLower(groups[1])
		switch groups[2] {
		case ".next":
			name += "_next"
		case ".last":
			name += "_last"
		}
		return vars[name]
	})

	result = multiSpace.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// BuildVariables computes the full positional variable dictionary for one
// event context.
func BuildVariables(ctx Context) map[string]string {
	ev := ctx.Event
	home, away := ev.HomeTeam, ev.AwayTeam
	v := make(map[string]string)

	eventName := ev.ShortName
	if eventName == "" {
		eventName = ev.Name
	}
	v["event_name"] = eventName
	v["matchup"] = away.Name + " @ " + home.Name
	v["matchup_abbrev"] = away.Abbreviation + " @ " + home.Abbreviation

	v["home_team"] = home.Name
	v["home_team_abbrev"] = home.Abbreviation
	v["home_team_abbrev_lower"] = strings.ToLower(home.Abbreviation)
	v["home_team_logo"] = home.LogoURL

	v["away_team"] = away.Name
	v["away_team_abbrev"] = away.Abbreviation
	v["away_team_abbrev_lower"] = strings.ToLower(away.Abbreviation)
	v["away_team_logo"] = away.LogoURL

	sportCode := ev.Sport
	if sportCode == "" {
		sportCode = ctx.AssignedSport
	}
	if display, ok := sportDisplayNames[sportCode]; ok {
		v["sport"] = display
	} else {
		v["sport"] = strings.Title(sportCode)
	}

	league := ev.League
	if league == "" {
		league = ctx.AssignedLeague
	}
	v["league_id"] = strings.ToLower(league)
	if ctx.LeagueAlias != "" {
		v["league"] = ctx.LeagueAlias
		v["league_name"] = ctx.LeagueAlias
	} else {
		v["league"] = strings.ToUpper(league)
		v["league_name"] = ""
	}

	loc := ctx.Timezone
	if loc == nil {
		loc = time.UTC
	}
	if !ev.StartTime.IsZero() {
		local := ev.StartTime.In(loc)
		v["game_date"] = local.Format("Monday, January 2, 2006")
		v["game_date_short"] = local.Format("Jan 2")
		v["game_time"] = local.Format("3:04 PM MST")
		v["game_day"] = local.Format("Monday")
		v["game_day_short"] = local.Format("Mon")
		if local.Hour() >= 17 {
			v["today_tonight"] = "tonight"
			v["today_tonight_title"] = "Tonight"
		} else {
			v["today_tonight"] = "today"
			v["today_tonight_title"] = "Today"
		}
	}

	if ev.Venue != nil {
		v["venue"] = ev.Venue.Name
		v["venue_city"] = ev.Venue.City
		v["venue_state"] = ev.Venue.State
		switch {
		case ev.Venue.Name != "" && ev.Venue.City != "" && ev.Venue.State != "":
			v["venue_full"] = ev.Venue.Name + ", " + ev.Venue.City + ", " + ev.Venue.State
		case ev.Venue.Name != "" && ev.Venue.City != "":
			v["venue_full"] = ev.Venue.Name + ", " + ev.Venue.City
		default:
			v["venue_full"] = ev.Venue.Name
		}
	}

	homeScore := intOrZero(ev.HomeScore)
	awayScore := intOrZero(ev.AwayScore)
	v["home_team_score"] = strconv.Itoa(homeScore)
	v["away_team_score"] = strconv.Itoa(awayScore)

	isFinal := ev.Status.IsFinal()
	v["is_final"] = strconv.FormatBool(isFinal)
	v["status_detail"] = ev.Status.Detail
	v["status_state"] = string(ev.Status.State)

	if isFinal && (homeScore > 0 || awayScore > 0) {
		v["event_result"] = home.Name + " " + strconv.Itoa(homeScore) + " - " + away.Name + " " + strconv.Itoa(awayScore)
		v["event_result_abbrev"] = home.Abbreviation + " " + strconv.Itoa(homeScore) + " - " + away.Abbreviation + " " + strconv.Itoa(awayScore)

		switch {
		case homeScore > awayScore:
			v["winner"], v["winner_abbrev"] = home.Name, home.Abbreviation
			v["loser"], v["loser_abbrev"] = away.Name, away.Abbreviation
		case awayScore > homeScore:
			v["winner"], v["winner_abbrev"] = away.Name, away.Abbreviation
			v["loser"], v["loser_abbrev"] = home.Name, home.Abbreviation
		default:
			v["winner"], v["winner_abbrev"] = "Tie", "TIE"
			v["loser"], v["loser_abbrev"] = "Tie", "TIE"
		}

		v["overtime_text"] = OvertimeText(sportCode, ev.Status.Period)
	} else {
		v["event_result"] = ""
		v["event_result_abbrev"] = ""
		v["winner"] = ""
		v["winner_abbrev"] = ""
		v["loser"] = ""
		v["loser_abbrev"] = ""
		v["overtime_text"] = ""
	}

	if len(ev.Broadcasts) > 0 {
		limit := ev.Broadcasts
		if len(limit) > 3 {
			limit = limit[:3]
		}
		v["broadcast_simple"] = strings.Join(limit, ", ")
		v["broadcast_network"] = ev.Broadcasts[0]
	}

	if ev.HasOdds {
		v["odds_spread"] = ev.OddsSpread
		v["odds_over_under"] = ev.OddsOverUnder
		v["odds_details"] = ev.OddsSpread
	}

	v["stream_name"] = ctx.StreamName
	v["stream_id"] = ctx.StreamID
	if ev.ID != "" {
		v["channel_id"] = "teamarr-event-" + ev.ID
	} else {
		v["channel_id"] = "event-" + ctx.StreamID
	}

	v["exception_keyword"] = ctx.ExceptionKeyword
	v["exception_keyword_title"] = strings.Title(ctx.ExceptionKeyword)

	return v
}

// TeamContext carries perspective-based data for a team channel's filler
// templates: "our team" vs. "the opponent", with the game itself reachable
// as both the bare variable (for an in-progress/just-played game) and the
// .next/.last suffixed form (the next or previous scheduled game), per
// team_epg.py's pregame/postgame filler context construction.
type TeamContext struct {
	TeamName     string
	TeamAbbrev   string
	TeamLogoURL  string
	Stats        core.TeamStats
	Game         *core.Event // the event this filler is adjacent to, if any
	NextEvent    *core.Event
	LastEvent    *core.Event
	Timezone     *time.Location
}

// BuildTeamVariables computes the perspective-based variable dictionary a
// team channel's title/description/filler templates resolve against.
func BuildTeamVariables(ctx TeamContext) map[string]string {
	v := make(map[string]string)
	v["team_name"] = ctx.TeamName
	v["team_abbrev"] = ctx.TeamAbbrev
	v["team_logo"] = ctx.TeamLogoURL
	v["team_record"] = ctx.Stats.Record
	v["team_streak"] = ctx.Stats.Streak

	loc := ctx.Timezone
	if loc == nil {
		loc = time.UTC
	}

	addGameVars(v, "", ctx.Game, ctx.TeamName, loc)
	addGameVars(v, "_next", ctx.NextEvent, ctx.TeamName, loc)
	addGameVars(v, "_last", ctx.LastEvent, ctx.TeamName, loc)

	return v
}

// addGameVars fills in opponent/game_time/game_date/final_score variables
// (with the given suffix) from ev relative to teamName's perspective;
// fields are left empty when ev is nil so an absent next/last game degrades
// to blank text rather than a stale value.
func addGameVars(v map[string]string, suffix string, ev *core.Event, teamName string, loc *time.Location) {
	if ev == nil {
		return
	}
	opponent := ev.AwayTeam
	ourScore, oppScore := ev.HomeScore, ev.AwayScore
	if !strings.EqualFold(ev.HomeTeam.Name, teamName) {
		opponent = ev.HomeTeam
		ourScore, oppScore = ev.AwayScore, ourScore
	}
	v["opponent"+suffix] = opponent.Name
	v["opponent_abbrev"+suffix] = opponent.Abbreviation

	if !ev.StartTime.IsZero() {
		local := ev.StartTime.In(loc)
		v["game_time"+suffix] = local.Format("3:04 PM MST")
		v["game_date"+suffix] = local.Format("Monday, January 2, 2006")
	}

	if ev.Status.IsFinal() && ourScore != nil && oppScore != nil {
		v["final_score"+suffix] = teamName + " " + strconv.Itoa(*ourScore) + " - " + opponent.Name + " " + strconv.Itoa(*oppScore)
	}
}

// OvertimeText returns "in overtime" when periods exceeds the regulation
// threshold for sport, else "".
func OvertimeText(sport string, periods int) string {
	threshold, ok := overtimeThresholds[sport]
	if !ok {
		threshold = defaultOvertimeThreshold
	}
	if periods > threshold {
		return "in overtime"
	}
	return ""
}

// SelectDescription picks among conditional description candidates: only
// entries with a non-empty Template are eligible, and the lowest Priority
// value wins (priority is "how early to try this", not importance rank).
// Condition strings are accepted for forward compatibility but are not yet
// evaluated against ctx — every entry with a template is currently treated
// as unconditionally eligible, matching original_source/epg/event_template_engine.py's
// behavior this was ported from.
func SelectDescription(options []core.ConditionalTemplate, ctx Context) string {
	var valid []core.ConditionalTemplate
	for _, opt := range options {
		if opt.Template != "" {
			valid = append(valid, opt)
		}
	}
	if len(valid) == 0 {
		return ""
	}
	sort.SliceStable(valid, func(i, j int) bool {
		return priorityOf(valid[i]) < priorityOf(valid[j])
	})
	return Resolve(valid[0].Template, ctx)
}

func priorityOf(t core.ConditionalTemplate) int {
	if t.Priority == 0 {
		return 50
	}
	return t.Priority
}

// PostgameDescription resolves the final/not-final postgame description
// switch, preferring Final when the event has concluded.
func PostgameDescription(sw core.PostgameSwitch, ctx Context) string {
	if ctx.Event.Status.IsFinal() {
		if sw.Final != "" {
			return Resolve(sw.Final, ctx)
		}
	}
	return Resolve(sw.NotFinal, ctx)
}

func intOrZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
