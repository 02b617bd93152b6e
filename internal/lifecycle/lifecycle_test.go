package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/teamarr/teamarr/internal/core"
	"github.com/teamarr/teamarr/internal/dispatcharr"
)

func TestShouldCreateChannelSameDayThreshold(t *testing.T) {
	loc := time.UTC
	event := core.Event{StartTime: time.Date(2025, 9, 7, 13, 0, 0, 0, loc)}

	ok, _ := ShouldCreateChannel(event, core.CreateSameDay, loc, time.Date(2025, 9, 6, 0, 0, 0, 0, loc))
	if ok {
		t.Errorf("expected too early on day before event")
	}
	ok, _ = ShouldCreateChannel(event, core.CreateSameDay, loc, time.Date(2025, 9, 7, 0, 0, 0, 0, loc))
	if !ok {
		t.Errorf("expected create allowed on event day")
	}
}

func TestShouldCreateChannelManualNeverCreates(t *testing.T) {
	event := core.Event{StartTime: time.Now()}
	ok, _ := ShouldCreateChannel(event, core.CreateManual, time.UTC, time.Now())
	if ok {
		t.Errorf("manual timing should never auto-create")
	}
}

func TestCalculateDeleteTimeAccountsForMidnightCrossing(t *testing.T) {
	loc := time.UTC
	// 11pm start + 4h football duration -> ends 3am next day.
	event := core.Event{StartTime: time.Date(2025, 9, 7, 23, 0, 0, 0, loc)}
	got := CalculateDeleteTime(event, core.DeleteSameDay, loc, "football")
	if got == nil {
		t.Fatal("expected non-nil delete time")
	}
	if got.Day() != 8 {
		t.Errorf("expected delete scheduled for the day the event ends (8th), got %v", got)
	}
}

func TestCalculateDeleteTimeManualReturnsNil(t *testing.T) {
	event := core.Event{StartTime: time.Now()}
	if got := CalculateDeleteTime(event, core.DeleteManual, time.UTC, "football"); got != nil {
		t.Errorf("expected nil for manual timing, got %v", got)
	}
}

type fakeChannelAPI struct {
	created    []dispatcharr.CreateChannelRequest
	deletedIDs []int64
	nextID     int64
}

func (f *fakeChannelAPI) CreateChannel(ctx context.Context, req dispatcharr.CreateChannelRequest) (*dispatcharr.Channel, error) {
	f.created = append(f.created, req)
	f.nextID++
	return &dispatcharr.Channel{ID: f.nextID, Name: req.Name}, nil
}
func (f *fakeChannelAPI) DeleteChannel(ctx context.Context, channelID int64) error {
	f.deletedIDs = append(f.deletedIDs, channelID)
	return nil
}
func (f *fakeChannelAPI) SetChannelEPG(ctx context.Context, channelID, epgDataID int64) error {
	return nil
}
func (f *fakeChannelAPI) UploadLogo(ctx context.Context, name, url string) (int64, dispatcharr.LogoUploadStatus, error) {
	return 5, dispatcharr.LogoCreated, nil
}
func (f *fakeChannelAPI) DeleteLogo(ctx context.Context, logoID int64) (dispatcharr.LogoDeleteStatus, error) {
	return dispatcharr.LogoDeleted, nil
}

type fakeStore struct {
	channels map[int64]core.ManagedChannel
	nextID   int64
}

func newFakeStore() *fakeStore { return &fakeStore{channels: map[int64]core.ManagedChannel{}} }

func (f *fakeStore) InsertManagedChannel(ctx context.Context, c core.ManagedChannel) (int64, error) {
	f.nextID++
	c.ID = f.nextID
	f.channels[c.ID] = c
	return c.ID, nil
}
func (f *fakeStore) NextChannelNumber(ctx context.Context, groupID int64, channelStart int) (int, error) {
	max := channelStart - 1
	for _, c := range f.channels {
		if c.EventGroupID == groupID && c.ChannelNumber > max {
			max = c.ChannelNumber
		}
	}
	return max + 1, nil
}
func (f *fakeStore) ListManagedChannelsByGroup(ctx context.Context, groupID int64) ([]core.ManagedChannel, error) {
	var out []core.ManagedChannel
	for _, c := range f.channels {
		if c.EventGroupID == groupID && c.DeletedAt == nil {
			out = append(out, c)
		}
	}
	return out, nil
}
func (f *fakeStore) ListAllManagedChannels(ctx context.Context) ([]core.ManagedChannel, error) {
	var out []core.ManagedChannel
	for _, c := range f.channels {
		out = append(out, c)
	}
	return out, nil
}
func (f *fakeStore) ListPendingDeletions(ctx context.Context, asOf time.Time) ([]core.ManagedChannel, error) {
	var out []core.ManagedChannel
	for _, c := range f.channels {
		if c.DeletedAt == nil && c.ScheduledDeleteAt != nil && !c.ScheduledDeleteAt.After(asOf) {
			out = append(out, c)
		}
	}
	return out, nil
}
func (f *fakeStore) UpdateScheduledDelete(ctx context.Context, channelID int64, at *time.Time) error {
	c := f.channels[channelID]
	c.ScheduledDeleteAt = at
	f.channels[channelID] = c
	return nil
}
func (f *fakeStore) SetSyncStatus(ctx context.Context, channelID int64, status core.SyncStatus) error {
	return nil
}
func (f *fakeStore) MarkDeleted(ctx context.Context, channelID int64, at time.Time) error {
	c := f.channels[channelID]
	c.DeletedAt = &at
	f.channels[channelID] = c
	return nil
}
func (f *fakeStore) AppendHistory(ctx context.Context, channelID int64, event, detail string, at time.Time) error {
	return nil
}
func (f *fakeStore) LogoIsReferenced(ctx context.Context, logoID int64) (bool, error) {
	return false, nil
}

func TestProcessMatchedStreamsCreatesNewChannel(t *testing.T) {
	loc := time.UTC
	api := &fakeChannelAPI{}
	st := newFakeStore()
	mgr := New(api, st, 1, loc)

	group := core.EventGroup{ID: 1, ChannelStart: 5000, CreateTiming: core.CreateStreamAvailable, DeleteTiming: core.DeleteSameDay}
	ev := core.Event{ID: "401", StartTime: time.Date(2025, 9, 7, 13, 0, 0, 0, loc),
		HomeTeam: core.Team{Name: "Lions"}, AwayTeam: core.Team{Name: "Packers"}}
	matched := []core.MatchedStream{{StreamID: "s1", StreamName: "feed", Event: ev}}

	result := mgr.ProcessMatchedStreams(t.Context(), matched, group, core.Template{}, nil)
	if len(result.Created) != 1 {
		t.Fatalf("expected 1 created channel, got %d (errors=%v)", len(result.Created), result.Errors)
	}
	if result.Created[0].ChannelNumber != 5000 {
		t.Errorf("expected first channel number 5000, got %d", result.Created[0].ChannelNumber)
	}
	if result.Created[0].ChannelName != "Packers @ Lions" {
		t.Errorf("unexpected channel name %q", result.Created[0].ChannelName)
	}
}

func TestProcessMatchedStreamsSkipsWhenTooEarly(t *testing.T) {
	loc := time.UTC
	api := &fakeChannelAPI{}
	st := newFakeStore()
	mgr := New(api, st, 1, loc)

	group := core.EventGroup{ID: 1, ChannelStart: 5000, CreateTiming: core.CreateSameDay}
	ev := core.Event{ID: "401", StartTime: time.Now().Add(30 * 24 * time.Hour)}
	matched := []core.MatchedStream{{StreamID: "s1", Event: ev}}

	result := mgr.ProcessMatchedStreams(t.Context(), matched, group, core.Template{}, nil)
	if len(result.Created) != 0 || len(result.Skipped) != 1 {
		t.Fatalf("expected skip, got created=%d skipped=%d", len(result.Created), len(result.Skipped))
	}
}

func TestCleanupDeletedStreamsOnlyWhenStreamRemovedTiming(t *testing.T) {
	api := &fakeChannelAPI{}
	st := newFakeStore()
	st.channels[1] = core.ManagedChannel{ID: 1, EventGroupID: 1, DispatcharrChannelID: 10, DispatcharrStreamID: "gone"}
	mgr := New(api, st, 0, time.UTC)

	group := core.EventGroup{ID: 1, DeleteTiming: core.DeleteSameDay}
	result := mgr.CleanupDeletedStreams(t.Context(), group, map[string]struct{}{"present": {}})
	if len(result.Deleted) != 0 {
		t.Fatalf("expected no cleanup for non-stream_removed timing, got %d", len(result.Deleted))
	}

	group.DeleteTiming = core.DeleteStreamRemoved
	result = mgr.CleanupDeletedStreams(t.Context(), group, map[string]struct{}{"present": {}})
	if len(result.Deleted) != 1 {
		t.Fatalf("expected the orphaned stream's channel deleted, got %d", len(result.Deleted))
	}
	if len(api.deletedIDs) != 1 || api.deletedIDs[0] != 10 {
		t.Errorf("expected dispatcharr channel 10 deleted, got %v", api.deletedIDs)
	}
}
