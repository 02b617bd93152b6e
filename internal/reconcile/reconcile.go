// Package reconcile detects and optionally fixes drift between Teamarr's
// managed_channels bookkeeping and Dispatcharr's actual channel state:
// records that outlived their Dispatcharr channel (orphan_teamarr),
// teamarr-tagged channels with no local record (orphan_dispatcharr),
// multiple channels tracking the same event (duplicate), and channels whose
// number/group has drifted from what Teamarr expects (drift). Grounded on
// original_source/epg/reconciliation.py.
package reconcile

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/teamarr/teamarr/internal/core"
	"github.com/teamarr/teamarr/internal/dispatcharr"
)

// IssueType enumerates the four kinds of drift reconciliation detects.
type IssueType string

const (
	IssueOrphanTeamarr     IssueType = "orphan_teamarr"
	IssueOrphanDispatcharr IssueType = "orphan_dispatcharr"
	IssueDuplicate         IssueType = "duplicate"
	IssueDrift             IssueType = "drift"
)

// Severity ranks how urgently an issue needs attention.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// DriftField is one (field, expected, actual) mismatch found on a drifted channel.
type DriftField struct {
	Field    string
	Expected string
	Actual   string
}

// Issue is a single reconciliation finding.
type Issue struct {
	Type                 IssueType
	Severity             Severity
	ManagedChannelID      int64
	DispatcharrChannelID int64
	DispatcharrUUID      string
	ChannelName          string
	ESPNEventID          string
	DuplicateChannelIDs  []int64
	DriftFields          []DriftField
	AutoFixable          bool
}

// Settings gates which issue types are eligible for automatic fixing.
type Settings struct {
	AutoFixEnabled           bool
	AutoFixOrphanTeamarr     bool // default true in practice
	AutoFixOrphanDispatcharr bool // default false: deleting someone's manual channel is destructive
	AutoFixDuplicates        bool
}

// FixOutcome records what happened to one issue during Apply.
type FixOutcome struct {
	Issue  Issue
	Action string
	Error  error
	Fixed  bool
}

// Result is the full outcome of one Reconcile pass.
type Result struct {
	StartedAt  time.Time
	CompletedAt time.Time
	Issues     []Issue
	Fixed      []FixOutcome
	Skipped    []FixOutcome
	Errors     []string
}

// Summary tallies issues found/fixed/skipped by type, for logging and status surfaces.
func (r Result) Summary() map[string]int {
	counts := map[string]int{
		string(IssueOrphanTeamarr): 0, string(IssueOrphanDispatcharr): 0,
		string(IssueDuplicate): 0, string(IssueDrift): 0,
		"total": len(r.Issues), "fixed": len(r.Fixed), "skipped": len(r.Skipped), "errors": len(r.Errors),
	}
	for _, issue := range r.Issues {
		counts[string(issue.Type)]++
	}
	return counts
}

// ChannelAPI is the narrow Dispatcharr surface reconciliation needs.
type ChannelAPI interface {
	GetChannel(ctx context.Context, channelID int64) (*dispatcharr.Channel, error)
	GetChannels(ctx context.Context) ([]dispatcharr.Channel, error)
	DeleteChannel(ctx context.Context, channelID int64) error
	UpdateChannel(ctx context.Context, channelID int64, fields map[string]any) (*dispatcharr.Channel, error)
}

// Store is the narrow persistence surface reconciliation needs.
type Store interface {
	ListManagedChannelsByGroup(ctx context.Context, groupID int64) ([]core.ManagedChannel, error)
	ListAllManagedChannels(ctx context.Context) ([]core.ManagedChannel, error)
	SetDispatcharrUUID(ctx context.Context, channelID int64, uuid string) error
	SetSyncStatus(ctx context.Context, channelID int64, status core.SyncStatus) error
	MarkDeleted(ctx context.Context, channelID int64, at time.Time) error
	AppendHistory(ctx context.Context, channelID int64, event, detail string, at time.Time) error
}

// Reconciler ties a Dispatcharr client and the store together to run
// detection and (optionally) fixing passes.
type Reconciler struct {
	Channels ChannelAPI
	Store    Store
	Settings Settings
}

// New builds a Reconciler.
func New(channels ChannelAPI, store Store, settings Settings) *Reconciler {
	return &Reconciler{Channels: channels, Store: store, Settings: settings}
}

// GroupInfo is the narrow slice of event-group config duplicate detection and
// orphan-teamarr scanning need, keyed by group id.
type GroupInfo struct {
	ID                     int64
	ChannelGroupID         int64
	DuplicateEventHandling core.DuplicateEventHandling
}

// Reconcile runs the full detection sequence (orphan_teamarr,
// orphan_dispatcharr, duplicate, drift) across the given groups, then
// applies fixes if autoFix is true. Mirrors ChannelReconciler.reconcile.
func (r *Reconciler) Reconcile(ctx context.Context, groups []GroupInfo, autoFix bool) Result {
	result := Result{StartedAt: time.Now()}

	managed, err := r.Store.ListAllManagedChannels(ctx)
	if err != nil {
		result.Errors = append(result.Errors, "reconcile: list managed channels: "+err.Error())
		result.CompletedAt = time.Now()
		return result
	}

	result.Issues = append(result.Issues, r.detectOrphanTeamarr(ctx, managed)...)
	result.Issues = append(result.Issues, r.detectOrphanDispatcharr(ctx, managed)...)
	result.Issues = append(result.Issues, detectDuplicates(managed, groups)...)
	result.Issues = append(result.Issues, r.detectDrift(ctx, managed, groups)...)

	if autoFix {
		r.applyFixes(ctx, &result)
	}
	result.CompletedAt = time.Now()
	return result
}

// detectOrphanTeamarr finds managed_channels rows whose Dispatcharr channel
// no longer exists, backfilling the UUID along the way for channels that
// predate UUID tracking. Mirrors _detect_orphan_teamarr.
func (r *Reconciler) detectOrphanTeamarr(ctx context.Context, managed []core.ManagedChannel) []Issue {
	var issues []Issue
	for _, ch := range managed {
		if ch.DispatcharrChannelID == 0 {
			continue
		}
		upstream, err := r.Channels.GetChannel(ctx, ch.DispatcharrChannelID)
		if err != nil || upstream == nil {
			issues = append(issues, Issue{
				Type: IssueOrphanTeamarr, Severity: SeverityWarning,
				ManagedChannelID: ch.ID, DispatcharrChannelID: ch.DispatcharrChannelID,
				ChannelName: ch.ChannelName, ESPNEventID: ch.ESPNEventID,
				AutoFixable: r.Settings.AutoFixOrphanTeamarr,
			})
			continue
		}
		if ch.DispatcharrUUID == "" && upstream.UUID != "" {
			_ = r.Store.SetDispatcharrUUID(ctx, ch.ID, upstream.UUID)
		}
	}
	return issues
}

// detectOrphanDispatcharr finds Dispatcharr channels with a
// "teamarr-event-" tvg_id that aren't tracked locally, by UUID first and
// tvg_id pattern as the fallback for pre-UUID-tracking channels. Mirrors
// _detect_orphan_dispatcharr.
func (r *Reconciler) detectOrphanDispatcharr(ctx context.Context, managed []core.ManagedChannel) []Issue {
	all, err := r.Channels.GetChannels(ctx)
	if err != nil {
		return nil
	}
	knownIDs := make(map[int64]struct{}, len(managed))
	knownUUIDs := make(map[string]struct{}, len(managed))
	for _, ch := range managed {
		knownIDs[ch.DispatcharrChannelID] = struct{}{}
		if ch.DispatcharrUUID != "" {
			knownUUIDs[ch.DispatcharrUUID] = struct{}{}
		}
	}

	var issues []Issue
	for _, ch := range all {
		_, byUUID := knownUUIDs[ch.UUID]
		_, byID := knownIDs[ch.ID]
		if byUUID || byID {
			continue
		}
		if !strings.HasPrefix(ch.TVGID, "teamarr-event-") {
			continue
		}
		eventID := strings.TrimPrefix(ch.TVGID, "teamarr-event-")
		issues = append(issues, Issue{
			Type: IssueOrphanDispatcharr, Severity: SeverityWarning,
			DispatcharrChannelID: ch.ID, DispatcharrUUID: ch.UUID,
			ChannelName: ch.Name, ESPNEventID: eventID,
			AutoFixable: r.Settings.AutoFixOrphanDispatcharr,
		})
	}
	return issues
}

// detectDuplicates finds (event, group) pairs tracked by more than one
// managed channel, skipping groups configured for 'separate' handling where
// duplicates are the intended behavior. Mirrors _detect_duplicates.
func detectDuplicates(managed []core.ManagedChannel, groups []GroupInfo) []Issue {
	handling := make(map[int64]core.DuplicateEventHandling, len(groups))
	for _, g := range groups {
		handling[g.ID] = g.DuplicateEventHandling
	}

	type key struct {
		eventID string
		groupID int64
	}
	byKey := map[key][]core.ManagedChannel{}
	for _, ch := range managed {
		if ch.ESPNEventID == "" {
			continue
		}
		k := key{ch.ESPNEventID, ch.EventGroupID}
		byKey[k] = append(byKey[k], ch)
	}

	var issues []Issue
	for k, chans := range byKey {
		if len(chans) < 2 {
			continue
		}
		if handling[k.groupID] == core.DuplicateSeparate {
			continue
		}
		ids := make([]int64, len(chans))
		for i, c := range chans {
			ids[i] = c.ID
		}
		issues = append(issues, Issue{
			Type: IssueDuplicate, Severity: SeverityWarning,
			ESPNEventID: k.eventID, DuplicateChannelIDs: ids,
			AutoFixable: false, // merging channels needs a stream-union decision; never silent
		})
	}
	return issues
}

// detectDrift compares each managed channel's expected channel_group_id and
// channel_number against Dispatcharr's current state. Mirrors _detect_drift
// (channel number/tvg_id/group checks); tvg_id is not checked, since our
// schema does not track it independently (EPG is injected directly via
// set-epg).
func (r *Reconciler) detectDrift(ctx context.Context, managed []core.ManagedChannel, groups []GroupInfo) []Issue {
	expectedGroup := make(map[int64]int64, len(groups))
	for _, g := range groups {
		expectedGroup[g.ID] = g.ChannelGroupID
	}

	var issues []Issue
	for _, ch := range managed {
		if ch.DispatcharrChannelID == 0 {
			continue
		}
		upstream, err := r.Channels.GetChannel(ctx, ch.DispatcharrChannelID)
		if err != nil || upstream == nil {
			continue // caught by orphan detection
		}

		var fields []DriftField
		if want := expectedGroup[ch.EventGroupID]; want != 0 && want != upstream.ChannelGroup {
			fields = append(fields, DriftField{Field: "channel_group_id", Expected: strconv.FormatInt(want, 10), Actual: strconv.FormatInt(upstream.ChannelGroup, 10)})
		}
		if want := strconv.Itoa(ch.ChannelNumber); want != "" && want != upstream.ChannelNumber {
			fields = append(fields, DriftField{Field: "channel_number", Expected: want, Actual: upstream.ChannelNumber})
		}
		if len(fields) == 0 {
			continue
		}
		issues = append(issues, Issue{
			Type: IssueDrift, Severity: SeverityInfo,
			ManagedChannelID: ch.ID, DispatcharrChannelID: ch.DispatcharrChannelID,
			ChannelName: ch.ChannelName, ESPNEventID: ch.ESPNEventID,
			DriftFields: fields, AutoFixable: true, // drift is generally safe to auto-fix
		})
	}
	return issues
}

// applyFixes resolves every auto-fixable issue: orphan_teamarr gets marked
// deleted locally, drift gets synced to Dispatcharr, orphan_dispatcharr gets
// deleted upstream only when that specific setting is on (it can destroy a
// manually created channel), and duplicates are never auto-fixed. Mirrors
// _apply_fixes.
func (r *Reconciler) applyFixes(ctx context.Context, result *Result) {
	for _, issue := range result.Issues {
		if !issue.AutoFixable {
			result.Skipped = append(result.Skipped, FixOutcome{Issue: issue, Action: "skip", Error: nil})
			continue
		}

		switch issue.Type {
		case IssueOrphanTeamarr:
			r.fixOrphanTeamarr(ctx, issue, result)
		case IssueOrphanDispatcharr:
			r.fixOrphanDispatcharr(ctx, issue, result)
		case IssueDrift:
			r.fixDrift(ctx, issue, result)
		default:
			result.Skipped = append(result.Skipped, FixOutcome{Issue: issue, Action: "skip", Error: nil})
		}
	}
}

func (r *Reconciler) fixOrphanTeamarr(ctx context.Context, issue Issue, result *Result) {
	if issue.ManagedChannelID == 0 {
		return
	}
	now := time.Now()
	if err := r.Store.MarkDeleted(ctx, issue.ManagedChannelID, now); err != nil {
		result.Errors = append(result.Errors, "reconcile: mark deleted: "+err.Error())
		return
	}
	_ = r.Store.SetSyncStatus(ctx, issue.ManagedChannelID, core.SyncOrphaned)
	_ = r.Store.AppendHistory(ctx, issue.ManagedChannelID, "deleted", "orphan detected - channel missing from Dispatcharr", now)
	result.Fixed = append(result.Fixed, FixOutcome{Issue: issue, Action: "marked_deleted", Fixed: true})
}

func (r *Reconciler) fixOrphanDispatcharr(ctx context.Context, issue Issue, result *Result) {
	if !r.Settings.AutoFixOrphanDispatcharr {
		result.Skipped = append(result.Skipped, FixOutcome{Issue: issue, Action: "skip", Error: nil})
		return
	}
	if err := r.Channels.DeleteChannel(ctx, issue.DispatcharrChannelID); err != nil {
		result.Errors = append(result.Errors, "reconcile: delete orphan channel: "+err.Error())
		return
	}
	result.Fixed = append(result.Fixed, FixOutcome{Issue: issue, Action: "deleted_from_dispatcharr", Fixed: true})
}

func (r *Reconciler) fixDrift(ctx context.Context, issue Issue, result *Result) {
	if issue.ManagedChannelID == 0 || issue.DispatcharrChannelID == 0 {
		return
	}
	update := make(map[string]any, len(issue.DriftFields))
	for _, f := range issue.DriftFields {
		update[f.Field] = f.Expected
	}
	if len(update) == 0 {
		return
	}
	if _, err := r.Channels.UpdateChannel(ctx, issue.DispatcharrChannelID, update); err != nil {
		result.Errors = append(result.Errors, "reconcile: sync drift: "+err.Error())
		return
	}
	_ = r.Store.SetSyncStatus(ctx, issue.ManagedChannelID, core.SyncInSync)
	result.Fixed = append(result.Fixed, FixOutcome{Issue: issue, Action: "synced", Fixed: true})
}
