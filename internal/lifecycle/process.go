package lifecycle

import (
	"context"
	"time"

	"github.com/teamarr/teamarr/internal/core"
	"github.com/teamarr/teamarr/internal/dispatcharr"
	"github.com/teamarr/teamarr/internal/template"
)

// CreatedChannel describes one channel ProcessMatchedStreams created.
type CreatedChannel struct {
	StreamID          string
	ManagedChannelID  int64
	ChannelID         int64
	ChannelNumber     int
	ChannelName       string
	LogoID            int64
	ScheduledDeleteAt *time.Time
}

// SkippedStream names a stream that was not turned into a channel and why.
type SkippedStream struct {
	StreamID string
	Reason   string
}

// StreamError pairs a stream with the error encountered processing it.
type StreamError struct {
	StreamID string
	Err      error
}

// ProcessResult is the outcome of one ProcessMatchedStreams pass.
type ProcessResult struct {
	Created  []CreatedChannel
	Existing []core.ManagedChannel
	Skipped  []SkippedStream
	Errors   []StreamError
}

// ProcessMatchedStreams creates (or finds existing) channels for every
// matched stream in a group, gated by the group's create-timing policy.
// Mirrors ChannelLifecycleManager.process_matched_streams. existingByEvent
// looks up an already-tracked channel for (groupID, espnEventID); callers
// typically back it with Store.ListManagedChannelsByGroup keyed by event id.
func (m *Manager) ProcessMatchedStreams(ctx context.Context, matched []core.MatchedStream, group core.EventGroup, tmpl core.Template, existingByEvent map[string]core.ManagedChannel) ProcessResult {
	var result ProcessResult

	if group.ChannelStart == 0 {
		for _, s := range matched {
			result.Skipped = append(result.Skipped, SkippedStream{StreamID: s.StreamID, Reason: "no channel_start configured for group"})
		}
		return result
	}

	for _, s := range matched {
		if s.Event.ID == "" {
			result.Errors = append(result.Errors, StreamError{StreamID: s.StreamID, Err: errNoEventID})
			continue
		}

		if existing, found := existingByEvent[s.Event.ID]; found {
			result.Existing = append(result.Existing, existing)
			continue
		}

		shouldCreate, reason := ShouldCreateChannel(s.Event, group.CreateTiming, m.Timezone, time.Now())
		if !shouldCreate {
			result.Skipped = append(result.Skipped, SkippedStream{StreamID: s.StreamID, Reason: reason})
			continue
		}

		created, err := m.createOne(ctx, s, group, tmpl)
		if err != nil {
			result.Errors = append(result.Errors, StreamError{StreamID: s.StreamID, Err: err})
			continue
		}
		result.Created = append(result.Created, *created)
	}
	return result
}

func (m *Manager) createOne(ctx context.Context, s core.MatchedStream, group core.EventGroup, tmpl core.Template) (*CreatedChannel, error) {
	channelNumber, err := m.Store.NextChannelNumber(ctx, group.ID, group.ChannelStart)
	if err != nil {
		return nil, err
	}

	ctmpl := template.Context{Event: s.Event, StreamID: s.StreamID, StreamName: s.StreamName, Timezone: m.Timezone, AssignedSport: group.AssignedLeague}
	channelName := GenerateChannelName(ctmpl, tmpl)

	var logoID int64
	if tmpl.ChannelLogoURL != "" {
		if logoURL := template.Resolve(tmpl.ChannelLogoURL, ctmpl); logoURL != "" {
			id, _, err := m.Channels.UploadLogo(ctx, channelName+" Logo", logoURL)
			if err == nil {
				logoID = id
			}
		}
	}

	deleteAt := CalculateDeleteTime(s.Event, group.DeleteTiming, m.Timezone, group.AssignedLeague)

	dispatcharrChannel, err := m.Channels.CreateChannel(ctx, dispatcharr.CreateChannelRequest{
		Name: channelName, ChannelNumber: channelNumber,
		ChannelGroupID: group.ChannelGroupID, LogoID: logoID,
	})
	if err != nil {
		return nil, err
	}

	if m.EPGDataID != 0 {
		// A failed EPG injection rolls the new channel back, as a failed
		// insert below does.
		if err := m.Channels.SetChannelEPG(ctx, dispatcharrChannel.ID, m.EPGDataID); err != nil {
			_ = m.Channels.DeleteChannel(ctx, dispatcharrChannel.ID)
			return nil, err
		}
	}

	managedID, err := m.Store.InsertManagedChannel(ctx, core.ManagedChannel{
		EventGroupID:         group.ID,
		DispatcharrChannelID: dispatcharrChannel.ID,
		DispatcharrUUID:      dispatcharrChannel.UUID,
		DispatcharrStreamID:  s.StreamID,
		ChannelNumber:        channelNumber,
		ChannelName:          channelName,
		ESPNEventID:          s.Event.ID,
		EventDate:            s.Event.StartTime,
		ScheduledDeleteAt:    deleteAt,
		LogoID:               logoID,
		SyncStatus:           core.SyncInSync,
	})
	if err != nil {
		// Channel exists upstream but local tracking failed: roll it back
		// rather than leave an unmanaged orphan in Dispatcharr.
		_ = m.Channels.DeleteChannel(ctx, dispatcharrChannel.ID)
		return nil, err
	}

	return &CreatedChannel{
		StreamID: s.StreamID, ManagedChannelID: managedID, ChannelID: dispatcharrChannel.ID,
		ChannelNumber: channelNumber, ChannelName: channelName, LogoID: logoID, ScheduledDeleteAt: deleteAt,
	}, nil
}

// CleanupResult is the outcome of a deletion pass (stream-removed cleanup
// or scheduled-deletion sweep).
type CleanupResult struct {
	Deleted []int64 // managed_channel ids
	Errors  []StreamError
}

// CleanupDeletedStreams deletes channels for a group's managed channels
// whose backing stream no longer exists in currentStreamIDs, but only when
// the group's delete timing is stream_removed — every other timing relies
// on the scheduled-deletion sweep instead. Mirrors cleanup_deleted_streams.
func (m *Manager) CleanupDeletedStreams(ctx context.Context, group core.EventGroup, currentStreamIDs map[string]struct{}) CleanupResult {
	var result CleanupResult
	if group.DeleteTiming != core.DeleteStreamRemoved {
		return result
	}
	channels, err := m.Store.ListManagedChannelsByGroup(ctx, group.ID)
	if err != nil {
		result.Errors = append(result.Errors, StreamError{Err: err})
		return result
	}
	for _, ch := range channels {
		if _, stillExists := currentStreamIDs[ch.DispatcharrStreamID]; stillExists {
			continue
		}
		if err := m.deleteManagedChannel(ctx, ch); err != nil {
			result.Errors = append(result.Errors, StreamError{StreamID: ch.DispatcharrStreamID, Err: err})
			continue
		}
		result.Deleted = append(result.Deleted, ch.ID)
	}
	return result
}

// ProcessScheduledDeletions deletes every managed channel past its
// scheduled_delete_at. Intended to run on every refresh cycle. Mirrors
// process_scheduled_deletions.
func (m *Manager) ProcessScheduledDeletions(ctx context.Context, asOf time.Time) CleanupResult {
	var result CleanupResult
	pending, err := m.Store.ListPendingDeletions(ctx, asOf)
	if err != nil {
		result.Errors = append(result.Errors, StreamError{Err: err})
		return result
	}
	for _, ch := range pending {
		if err := m.deleteManagedChannel(ctx, ch); err != nil {
			result.Errors = append(result.Errors, StreamError{StreamID: ch.DispatcharrStreamID, Err: err})
			continue
		}
		result.Deleted = append(result.Deleted, ch.ID)
	}
	return result
}

// deleteManagedChannel deletes a channel upstream (404 tolerated), marks it
// deleted locally, and cleans up its logo if nothing else references it.
func (m *Manager) deleteManagedChannel(ctx context.Context, ch core.ManagedChannel) error {
	if err := m.Channels.DeleteChannel(ctx, ch.DispatcharrChannelID); err != nil {
		return err
	}
	if err := m.Store.MarkDeleted(ctx, ch.ID, time.Now()); err != nil {
		return err
	}
	_ = m.Store.AppendHistory(ctx, ch.ID, "deleted", "channel removed", time.Now())

	if ch.LogoID != 0 {
		if referenced, err := m.Store.LogoIsReferenced(ctx, ch.LogoID); err == nil && !referenced {
			_, _ = m.Channels.DeleteLogo(ctx, ch.LogoID)
		}
	}
	return nil
}

// UpdateExistingChannels recalculates scheduled delete times for already
// tracked channels in case their events were rescheduled or group settings
// changed since creation. Mirrors update_existing_channels.
func (m *Manager) UpdateExistingChannels(ctx context.Context, matched []core.MatchedStream, group core.EventGroup, existingByEvent map[string]core.ManagedChannel) (updated int, errs []StreamError) {
	for _, s := range matched {
		existing, found := existingByEvent[s.Event.ID]
		if !found || existing.DeletedAt != nil {
			continue
		}
		newDelete := CalculateDeleteTime(s.Event, group.DeleteTiming, m.Timezone, group.AssignedLeague)
		if sameDeleteTime(existing.ScheduledDeleteAt, newDelete) {
			continue
		}
		if err := m.Store.UpdateScheduledDelete(ctx, existing.ID, newDelete); err != nil {
			errs = append(errs, StreamError{StreamID: s.StreamID, Err: err})
			continue
		}
		updated++
	}
	return updated, errs
}

// SyncGroupSettings ensures every active channel in a group honors the
// group's current delete timing: clearing scheduled_delete_at for
// manual/stream_removed groups, or recalculating it via fetchEvent for
// timed groups. Mirrors sync_group_settings.
func (m *Manager) SyncGroupSettings(ctx context.Context, group core.EventGroup, fetchEvent func(ctx context.Context, espnEventID string) (*core.Event, error)) (updated, cleared int, errs []StreamError) {
	channels, err := m.Store.ListManagedChannelsByGroup(ctx, group.ID)
	if err != nil {
		return 0, 0, []StreamError{{Err: err}}
	}
	if len(channels) == 0 {
		return 0, 0, nil
	}

	if group.DeleteTiming == core.DeleteManual || group.DeleteTiming == core.DeleteStreamRemoved {
		for _, ch := range channels {
			if ch.ScheduledDeleteAt == nil {
				continue
			}
			if err := m.Store.UpdateScheduledDelete(ctx, ch.ID, nil); err != nil {
				errs = append(errs, StreamError{StreamID: ch.DispatcharrStreamID, Err: err})
				continue
			}
			cleared++
		}
		return 0, cleared, errs
	}

	for _, ch := range channels {
		if ch.ESPNEventID == "" || fetchEvent == nil {
			continue
		}
		event, err := fetchEvent(ctx, ch.ESPNEventID)
		if err != nil || event == nil {
			continue
		}
		newDelete := CalculateDeleteTime(*event, group.DeleteTiming, m.Timezone, group.AssignedLeague)
		if sameDeleteTime(ch.ScheduledDeleteAt, newDelete) {
			continue
		}
		if err := m.Store.UpdateScheduledDelete(ctx, ch.ID, newDelete); err != nil {
			errs = append(errs, StreamError{StreamID: ch.DispatcharrStreamID, Err: err})
			continue
		}
		updated++
	}
	return updated, cleared, errs
}

func sameDeleteTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

var errNoEventID = noEventIDErr{}

type noEventIDErr struct{}

func (noEventIDErr) Error() string { return "lifecycle: matched stream has no event id" }
