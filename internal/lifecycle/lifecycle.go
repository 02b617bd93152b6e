// Package lifecycle owns automatic channel creation and deletion in
// Dispatcharr for event-based EPG: deciding when a matched stream earns a
// channel, when that channel is due for deletion, and keeping
// internal/store's managed_channels bookkeeping in sync with both. EPG is
// injected directly via Dispatcharr's set-epg API, so tvg_id matching is
// never required for a managed channel to carry its programme data.
// Grounded on original_source/epg/channel_lifecycle.py.
package lifecycle

import (
	"context"
	"time"

	"github.com/teamarr/teamarr/internal/core"
	"github.com/teamarr/teamarr/internal/dispatcharr"
	"github.com/teamarr/teamarr/internal/template"
)

// sportDurationHours are conservative per-sport duration estimates
// (including likely overtime/extra innings) used only to decide whether an
// event crosses midnight for delete-time scheduling. Deliberately distinct
// from internal/epggen's programme-duration table, which mirrors a
// different upstream function with different (tighter) numbers.
var sportDurationHours = map[string]float64{
	"football":   4.0,
	"basketball": 3.0,
	"hockey":     3.0,
	"baseball":   4.0,
	"soccer":     2.5,
}

const defaultSportDurationHours = 3.5

func sportDurationFor(sport string) float64 {
	if h, ok := sportDurationHours[normalizeSport(sport)]; ok {
		return h
	}
	return defaultSportDurationHours
}

func normalizeSport(sport string) string {
	out := make([]byte, 0, len(sport))
	for i := 0; i < len(sport); i++ {
		c := sport[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

// ShouldCreateChannel reports whether a channel should be created for event
// now, given the group's create timing. This is the "earliest creation"
// check: a channel is never created before its threshold date even if the
// stream already exists. Mirrors should_create_channel.
func ShouldCreateChannel(event core.Event, timing core.CreateTiming, loc *time.Location, now time.Time) (bool, string) {
	switch timing {
	case core.CreateManual:
		return false, "manual creation only"
	case core.CreateStreamAvailable:
		return true, "stream available - immediate creation"
	}
	if event.StartTime.IsZero() {
		return false, "no event date"
	}

	eventDate := dateOnly(event.StartTime.In(loc))
	today := dateOnly(now.In(loc))

	var threshold time.Time
	switch timing {
	case core.CreateDayBefore:
		threshold = eventDate.AddDate(0, 0, -1)
	case core.Create2DaysBefore:
		threshold = eventDate.AddDate(0, 0, -2)
	default: // CreateSameDay and unrecognized values default to same-day
		threshold = eventDate
	}

	if !today.Before(threshold) {
		return true, "threshold reached"
	}
	days := int(threshold.Sub(today).Hours() / 24)
	return false, "too early - " + itoa(days) + " days until creation threshold"
}

// CalculateDeleteTime returns the latest moment (23:59:59 local) a channel
// should survive until, based on when the event actually ENDS rather than
// when it starts — an event that crosses midnight still gets the full
// buffer after its real end. Returns nil for timings that never schedule an
// automatic deletion. Mirrors calculate_delete_time.
func CalculateDeleteTime(event core.Event, timing core.DeleteTiming, loc *time.Location, sport string) *time.Time {
	if timing == core.DeleteManual || timing == core.DeleteStreamRemoved {
		return nil
	}
	if event.StartTime.IsZero() {
		return nil
	}

	start := event.StartTime.In(loc)
	end := start.Add(time.Duration(sportDurationFor(sport) * float64(time.Hour)))
	endDate := dateOnly(end)

	var deleteDate time.Time
	switch timing {
	case core.DeleteDayAfter:
		deleteDate = endDate.AddDate(0, 0, 1)
	case core.Delete2DaysAfter:
		deleteDate = endDate.AddDate(0, 0, 2)
	case core.DeleteSameDay:
		deleteDate = endDate
	default:
		return nil
	}

	at := time.Date(deleteDate.Year(), deleteDate.Month(), deleteDate.Day(), 23, 59, 59, 0, loc)
	return &at
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// GenerateChannelName builds the channel name for an event: the template's
// ChannelName field resolved through the standard event context when
// present, else "Away @ Home". Mirrors generate_channel_name.
func GenerateChannelName(ctx template.Context, tmpl core.Template) string {
	if tmpl.ChannelName != "" {
		if resolved := template.Resolve(tmpl.ChannelName, ctx); resolved != "" {
			return resolved
		}
	}
	away := ctx.Event.AwayTeam.Name
	home := ctx.Event.HomeTeam.Name
	if away == "" {
		away = "Away"
	}
	if home == "" {
		home = "Home"
	}
	return away + " @ " + home
}

// Store is the narrow persistence surface the manager needs, satisfied by
// *internal/store.Store.
type Store interface {
	InsertManagedChannel(ctx context.Context, c core.ManagedChannel) (int64, error)
	NextChannelNumber(ctx context.Context, groupID int64, channelStart int) (int, error)
	ListManagedChannelsByGroup(ctx context.Context, groupID int64) ([]core.ManagedChannel, error)
	ListAllManagedChannels(ctx context.Context) ([]core.ManagedChannel, error)
	ListPendingDeletions(ctx context.Context, asOf time.Time) ([]core.ManagedChannel, error)
	UpdateScheduledDelete(ctx context.Context, channelID int64, at *time.Time) error
	SetSyncStatus(ctx context.Context, channelID int64, status core.SyncStatus) error
	MarkDeleted(ctx context.Context, channelID int64, at time.Time) error
	AppendHistory(ctx context.Context, channelID int64, event, detail string, at time.Time) error
	LogoIsReferenced(ctx context.Context, logoID int64) (bool, error)
}

// ChannelAPI is the narrow Dispatcharr surface the manager needs.
type ChannelAPI interface {
	CreateChannel(ctx context.Context, req dispatcharr.CreateChannelRequest) (*dispatcharr.Channel, error)
	DeleteChannel(ctx context.Context, channelID int64) error
	SetChannelEPG(ctx context.Context, channelID, epgDataID int64) error
	UploadLogo(ctx context.Context, name, url string) (int64, dispatcharr.LogoUploadStatus, error)
	DeleteLogo(ctx context.Context, logoID int64) (dispatcharr.LogoDeleteStatus, error)
}

// Manager coordinates Dispatcharr channel CRUD with local managed_channel
// bookkeeping across an event group's matched streams.
type Manager struct {
	Channels  ChannelAPI
	Store     Store
	EPGDataID int64
	Timezone  *time.Location
}

// New builds a Manager wired to a live Dispatcharr client and store.
func New(channels ChannelAPI, store Store, epgDataID int64, loc *time.Location) *Manager {
	if loc == nil {
		loc = time.UTC
	}
	return &Manager{Channels: channels, Store: store, EPGDataID: epgDataID, Timezone: loc}
}
