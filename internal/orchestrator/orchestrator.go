// Package orchestrator ties the rest of Teamarr into one generation run:
// refresh M3U accounts, regenerate team and event programmes, create/delete
// managed channels, write and consolidate XMLTV, then reconcile drift.
// Mirrors original_source/consumers/orchestrator.py's top-level "run one
// cycle" entrypoint (GenerationOrchestrator), but expressed as a single
// explicit Run(ctx) method over dependency-injected collaborators instead
// of a module full of globals.
package orchestrator

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teamarr/teamarr/internal/authcore"
	"github.com/teamarr/teamarr/internal/config"
	"github.com/teamarr/teamarr/internal/core"
	"github.com/teamarr/teamarr/internal/dispatcharr"
	"github.com/teamarr/teamarr/internal/epggen"
	"github.com/teamarr/teamarr/internal/lifecycle"
	"github.com/teamarr/teamarr/internal/matcher"
	"github.com/teamarr/teamarr/internal/metrics"
	"github.com/teamarr/teamarr/internal/reconcile"
	"github.com/teamarr/teamarr/internal/sportsprovider"
	"github.com/teamarr/teamarr/internal/store"
	"github.com/teamarr/teamarr/internal/xmltv"
)

const eventChannelPrefix = "teamarr-event-"

// Orchestrator wires the store, Dispatcharr client, and sports provider
// router into one runnable generation cycle.
type Orchestrator struct {
	Store   *store.Store
	Channels *dispatcharr.Client
	Sports  *sportsprovider.Service
	Config  *config.Config
	Metrics *metrics.Collectors

	lifecycle *lifecycle.Manager
	reconcile *reconcile.Reconciler
}

// New builds an Orchestrator, deriving the lifecycle manager and reconciler
// it needs from the same store and Dispatcharr client.
func New(s *store.Store, channels *dispatcharr.Client, sports *sportsprovider.Service, cfg *config.Config, m *metrics.Collectors, epgDataID int64, loc *time.Location) *Orchestrator {
	return &Orchestrator{
		Store: s, Channels: channels, Sports: sports, Config: cfg, Metrics: m,
		lifecycle: lifecycle.New(channels, s, epgDataID, loc),
		reconcile: reconcile.New(channels, s, reconcile.Settings{
			AutoFixEnabled:       cfg.ReconcileAutoFix,
			AutoFixOrphanTeamarr: true,
			AutoFixDuplicates:    false,
		}),
	}
}

// Run executes one full generation cycle: refresh accounts, regenerate team
// and event EPGs, apply channel lifecycle changes, consolidate XMLTV, and
// reconcile drift. Failures within a single team/group/channel are recorded
// on the returned RunResult and do not abort the rest of the cycle; only a
// failure loading the event-group list itself is fatal, since nothing
// downstream can proceed without it. A template that fails to load skips
// only the team or group that uses it.
func (o *Orchestrator) Run(ctx context.Context) core.RunResult {
	result := core.RunResult{RunID: uuid.New().String()}
	o.Metrics.GenerationRuns.Inc()
	generation := time.Now().Unix()
	log.Printf("orchestrator: starting generation run %s", result.RunID)

	loc, err := time.LoadLocation(o.Config.Timezone)
	if err != nil {
		log.Printf("orchestrator: unknown timezone %q, using UTC: %v", o.Config.Timezone, err)
		loc = time.UTC
	}

	o.refreshAccounts(ctx, &result)

	groups, err := o.Store.ListEventGroups(ctx)
	if err != nil {
		result.AddError("orchestrator: load event groups: %v", err)
		return result
	}

	o.runTeamChannels(ctx, loc, &result)

	for _, group := range groups {
		o.runEventGroup(ctx, group, loc, generation, &result)
	}

	dataDir := o.Config.XMLTVOutputDir
	if merged, err := xmltv.Consolidate(dataDir, ""); err != nil {
		result.AddError("orchestrator: consolidate xmltv: %v", err)
	} else {
		log.Printf("orchestrator: consolidated %d channels, %d programmes from %d files into %s",
			merged.ChannelCount, merged.ProgrammeCount, merged.FilesMerged, merged.OutputPath)
	}
	if archived, swept, err := xmltv.Finalize(dataDir); err != nil {
		result.AddError("orchestrator: finalize xmltv: %v", err)
	} else {
		log.Printf("orchestrator: archived %d event fragments, swept %d stale archives", archived, swept)
	}

	o.runReconcile(ctx, groups, &result)

	if _, err := o.Store.EvictStaleMatchCacheEntries(ctx, generation, 7); err != nil {
		result.AddError("orchestrator: evict stale match cache entries: %v", err)
	}

	return result
}

// refreshAccounts dispatches a parallel refresh trigger across every
// configured M3U account, then waits for each to settle.
func (o *Orchestrator) refreshAccounts(ctx context.Context, result *core.RunResult) {
	accounts, err := o.Channels.ListM3UAccounts(ctx)
	if err != nil {
		result.AddError("orchestrator: list m3u accounts: %v", err)
		return
	}
	outcomes := authcore.RefreshAccounts(ctx, o.Channels, toAuthcoreStates(accounts), authcore.RefreshOptions{
		PollInterval: o.Config.PollInterval,
		PollTimeout:  o.Config.PollTimeout,
	})
	for _, outcome := range outcomes {
		if !outcome.Succeeded && !outcome.Skipped {
			result.AddError("orchestrator: refresh m3u account %d: %v", outcome.AccountID, outcome.Err)
		}
	}
}

func toAuthcoreStates(accounts []dispatcharr.M3UAccount) []authcore.AccountState {
	out := make([]authcore.AccountState, len(accounts))
	for i, a := range accounts {
		out[i] = authcore.AccountState{AccountID: a.ID, UpdatedAt: a.UpdatedAt}
	}
	return out
}

// runTeamChannels regenerates teams.xml: one channel plus game/filler
// programmes per configured team, all written as a single fragment so a
// partial refresh later in the cycle can still merge it. Mirrors
// after_team_epg_generation's "teams.xml always gets rewritten whole" shape.
func (o *Orchestrator) runTeamChannels(ctx context.Context, loc *time.Location, result *core.RunResult) {
	rows, err := o.Store.ListTeamChannels(ctx)
	if err != nil {
		result.AddError("orchestrator: list team channels: %v", err)
		return
	}
	if len(rows) == 0 {
		return
	}

	doc := xmltv.Document{GeneratorName: "Teamarr"}
	for _, row := range rows {
		doc.Channels = append(doc.Channels, xmltv.Channel{
			ID: row.Config.ChannelID, DisplayName: row.Config.TeamName, IconURL: row.Config.LogoURL,
		})

		events, err := o.Sports.GetTeamSchedule(ctx, row.Config.TeamID, row.Config.League, o.Config.LookaheadDays)
		if err != nil {
			result.AddError("orchestrator: team schedule for %s: %v", row.Config.TeamName, err)
			continue
		}
		stats, err := o.Sports.GetTeamStats(ctx, row.Config.TeamID, row.Config.League)
		if err != nil {
			log.Printf("orchestrator: team stats unavailable for %s: %v", row.Config.TeamName, err)
		}

		tmpl, err := o.Store.GetTemplate(ctx, row.TemplateID)
		if err != nil {
			result.AddError("orchestrator: team template for %s: %v", row.Config.TeamName, err)
			continue
		}

		programmes := epggen.GenerateTeamProgrammes(events, row.Config, stats, teamTemplatesFrom(tmpl), epggen.TeamGenOptions{
			OutputDaysAhead:  o.Config.LookaheadDays,
			PregameMinutes:   tmpl.PregameMinutes,
			GameDurationMode: tmpl.GameDurationMode,
			CustomDuration:   tmpl.GameDurationHours,
			Timezone:         loc,
		})
		for _, p := range programmes {
			doc.Programmes = append(doc.Programmes, p.Programme)
		}
		result.Succeeded++
	}

	if err := xmltv.WriteFragment(xmltv.TeamsPath(o.Config.XMLTVOutputDir), doc); err != nil {
		result.AddError("orchestrator: write teams.xml: %v", err)
	}
}

// teamTemplatesFrom adapts the shared core.Template fields a team channel
// and an event channel both draw from into epggen's team-specific shape.
func teamTemplatesFrom(tmpl core.Template) epggen.TeamTemplates {
	return epggen.TeamTemplates{
		TitleFormat:         tmpl.Title,
		SubtitleFormat:      tmpl.Subtitle,
		DescriptionFormat:   tmpl.Description,
		Category:            firstCategory(tmpl.XMLTVCategories),
		PregameTitle:        tmpl.PregameFallback,
		PregameDescription:  tmpl.PregameFallback,
		PostgameTitle:       "Postgame Recap",
		PostgameDescription: tmpl.PostgameFallback,
		IdleTitle:           tmpl.IdleContent,
		IdleDescription:     tmpl.IdleContent,
	}
}

func firstCategory(categories []string) string {
	if len(categories) == 0 {
		return ""
	}
	return categories[0]
}

// runEventGroup matches one group's current Dispatcharr streams, writes its
// event_epg fragment, and applies channel lifecycle changes.
func (o *Orchestrator) runEventGroup(ctx context.Context, group core.EventGroup, loc *time.Location, generation int64, result *core.RunResult) {
	tmpl, err := o.Store.GetTemplate(ctx, group.EventTemplateID)
	if err != nil {
		result.AddError("orchestrator: group %q template: %v", group.Name, err)
		return
	}

	streams, err := o.Channels.ListStreamsByGroup(ctx, group.ChannelGroupID)
	if err != nil {
		result.AddError("orchestrator: group %q list streams: %v", group.Name, err)
		return
	}

	matched, currentStreamIDs := o.matchGroupStreams(ctx, group, streams, generation, result)

	groupInfo := epggen.EventGroupInfo{AssignedSport: sportForLeague(group.AssignedLeague), AssignedLeague: group.AssignedLeague}
	programmes := epggen.GenerateEventProgrammes(matched, groupInfo, tmpl, epggen.EventGenOptions{Timezone: loc})

	doc := xmltv.Document{GeneratorName: "Teamarr"}
	seen := make(map[string]struct{})
	for _, m := range matched {
		if _, dup := seen[m.ChannelID]; dup {
			continue
		}
		seen[m.ChannelID] = struct{}{}
		doc.Channels = append(doc.Channels, xmltv.Channel{ID: m.ChannelID, DisplayName: m.Event.Name, IconURL: tmpl.ChannelLogoURL})
	}
	for _, p := range programmes {
		doc.Programmes = append(doc.Programmes, p.Programme)
	}
	if err := xmltv.WriteFragment(xmltv.EventFragmentPath(o.Config.XMLTVOutputDir, group.ID), doc); err != nil {
		result.AddError("orchestrator: write fragment for group %q: %v", group.Name, err)
	}

	existingByEvent := o.existingManagedByEvent(ctx, group.ID, result)

	process := o.lifecycle.ProcessMatchedStreams(ctx, matched, group, tmpl, existingByEvent)
	o.Metrics.ChannelCreates.Add(float64(len(process.Created)))
	for _, e := range process.Errors {
		result.AddError("orchestrator: group %q create channel for stream %s: %v", group.Name, e.StreamID, e.Err)
	}
	result.Succeeded += len(process.Created)

	if _, errs := o.lifecycle.UpdateExistingChannels(ctx, matched, group, existingByEvent); len(errs) > 0 {
		for _, e := range errs {
			result.AddError("orchestrator: group %q update channel for stream %s: %v", group.Name, e.StreamID, e.Err)
		}
	}

	cleanup := o.lifecycle.CleanupDeletedStreams(ctx, group, currentStreamIDs)
	for _, e := range cleanup.Errors {
		result.AddError("orchestrator: group %q cleanup stream %s: %v", group.Name, e.StreamID, e.Err)
	}

	scheduled := o.lifecycle.ProcessScheduledDeletions(ctx, time.Now())
	for _, e := range scheduled.Errors {
		result.AddError("orchestrator: group %q scheduled deletion: %v", group.Name, e.Err)
	}
}

// matchGroupStreams runs the fingerprint cache in front of the group's
// fuzzy matcher over every current stream, returning the matched subset and
// the full set of current stream ids (for stream_removed cleanup).
func (o *Orchestrator) matchGroupStreams(ctx context.Context, group core.EventGroup, streams []dispatcharr.Stream, generation int64, result *core.RunResult) ([]core.MatchedStream, map[string]struct{}) {
	currentStreamIDs := make(map[string]struct{}, len(streams))
	singleMatch, multiMatch := o.buildMatchers(group)
	cached := &matcher.CachedMatcher{Store: o.Store, Provider: o.Sports, Generation: generation}
	targetDate := time.Now()

	var matched []core.MatchedStream
	for _, s := range streams {
		streamID := strconv.FormatInt(s.ID, 10)
		currentStreamIDs[streamID] = struct{}{}

		fallback := func() (matcher.StreamMatchResult, error) {
			if multiMatch != nil {
				return multiMatch.Match(ctx, streamID, s.Name, targetDate)
			}
			return singleMatch.Match(ctx, streamID, s.Name, targetDate)
		}

		r, tier, err := cached.Match(ctx, group.ID, streamID, s.Name, fallback)
		if err != nil {
			result.AddError("orchestrator: group %q match stream %s: %v", group.Name, streamID, err)
			continue
		}
		if tier == matcher.TierCache {
			o.Metrics.CacheHits.Inc()
		}
		if r.IsException() || !r.Matched || r.Event == nil {
			continue
		}
		o.Metrics.MatchedStreams.WithLabelValues(r.League).Inc()
		matched = append(matched, core.MatchedStream{
			StreamID: streamID, StreamName: s.Name, Event: *r.Event,
			ChannelID: eventChannelPrefix + r.Event.ID,
		})
	}
	return matched, currentStreamIDs
}

func (o *Orchestrator) buildMatchers(group core.EventGroup) (*matcher.SingleLeagueMatcher, *matcher.MultiLeagueMatcher) {
	if group.IsMultiSport {
		leagues := strings.Split(group.AssignedLeague, ",")
		for i := range leagues {
			leagues[i] = strings.TrimSpace(leagues[i])
		}
		return nil, matcher.NewMultiLeagueMatcher(o.Sports, leagues, nil, group.ExceptionKeywords, nil)
	}
	return matcher.NewSingleLeagueMatcher(o.Sports, group.AssignedLeague, group.ExceptionKeywords, nil), nil
}

func (o *Orchestrator) existingManagedByEvent(ctx context.Context, groupID int64, result *core.RunResult) map[string]core.ManagedChannel {
	existing, err := o.Store.ListManagedChannelsByGroup(ctx, groupID)
	if err != nil {
		result.AddError("orchestrator: list managed channels for group %d: %v", groupID, err)
		return nil
	}
	byEvent := make(map[string]core.ManagedChannel, len(existing))
	for _, ch := range existing {
		if ch.DeletedAt == nil && ch.ESPNEventID != "" {
			byEvent[ch.ESPNEventID] = ch
		}
	}
	return byEvent
}

func (o *Orchestrator) runReconcile(ctx context.Context, groups []core.EventGroup, result *core.RunResult) {
	infos := make([]reconcile.GroupInfo, len(groups))
	for i, g := range groups {
		infos[i] = reconcile.GroupInfo{ID: g.ID, ChannelGroupID: g.ChannelGroupID, DuplicateEventHandling: g.DuplicateEventHandling}
	}
	recResult := o.reconcile.Reconcile(ctx, infos, o.Config.ReconcileAutoFix)
	for _, e := range recResult.Errors {
		result.AddError("orchestrator: reconcile: %s", e)
	}
	log.Printf("orchestrator: reconcile summary %v", recResult.Summary())
}

func sportForLeague(league string) string {
	switch strings.ToLower(league) {
	case "nfl", "ncaaf":
		return "football"
	case "nba", "ncaab":
		return "basketball"
	case "nhl":
		return "hockey"
	case "mlb":
		return "baseball"
	case "mls", "epl", "laliga", "seriea", "bundesliga", "ligue1", "ucl":
		return "soccer"
	default:
		return league
	}
}
