package xmltv

import (
	"os"
	"testing"
	"time"

	"github.com/teamarr/teamarr/internal/core"
)

func writeFixtureFragment(t *testing.T, path string, channelID, title string) {
	t.Helper()
	start := time.Date(2025, 12, 15, 1, 0, 0, 0, time.UTC)
	doc := Document{
		GeneratorName: "Teamarr",
		Channels:      []Channel{{ID: channelID, DisplayName: title}},
		Programmes:    []core.Programme{programmeFixture(channelID, title, start, start.Add(time.Hour))},
	}
	if err := WriteFragment(path, doc); err != nil {
		t.Fatalf("WriteFragment(%s): %v", path, err)
	}
}

func TestConsolidate_mergesTeamsAndEventFragmentsDedupingChannels(t *testing.T) {
	dir := t.TempDir()
	writeFixtureFragment(t, TeamsPath(dir), "teamarr-team-1", "Lions")
	writeFixtureFragment(t, EventFragmentPath(dir, 1), "teamarr-team-1", "Lions")
	writeFixtureFragment(t, EventFragmentPath(dir, 2), "teamarr-event-9", "Lions at Packers")

	result, err := Consolidate(dir, "")
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	if result.FilesMerged != 3 {
		t.Fatalf("FilesMerged = %d, want 3", result.FilesMerged)
	}
	if result.ChannelCount != 2 {
		t.Fatalf("ChannelCount = %d, want 2 (duplicate teamarr-team-1 channel id deduped)", result.ChannelCount)
	}
	if result.ProgrammeCount != 3 {
		t.Fatalf("ProgrammeCount = %d, want 3 (programmes are never deduped)", result.ProgrammeCount)
	}

	f, err := os.Open(result.OutputPath)
	if err != nil {
		t.Fatalf("open merged output: %v", err)
	}
	defer f.Close()
	merged, err := Parse(f)
	if err != nil {
		t.Fatalf("parse merged output: %v", err)
	}
	if len(merged.Channels) != 2 || len(merged.Programmes) != 3 {
		t.Fatalf("merged doc mismatch: %+v", merged)
	}
}

func TestConsolidate_noFragmentsWritesEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	result, err := Consolidate(dir, "")
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	if result.FilesMerged != 0 || result.ChannelCount != 0 || result.ProgrammeCount != 0 {
		t.Fatalf("expected an empty merge result, got %+v", result)
	}
	if _, err := os.Stat(result.OutputPath); err != nil {
		t.Fatalf("expected output file to exist: %v", err)
	}
}

func TestFinalize_archivesEventFragmentsAndSweepsOldBaks(t *testing.T) {
	dir := t.TempDir()
	writeFixtureFragment(t, TeamsPath(dir), "teamarr-team-1", "Lions")
	writeFixtureFragment(t, EventFragmentPath(dir, 1), "teamarr-event-1", "Game One")
	writeFixtureFragment(t, EventFragmentPath(dir, 2), "teamarr-event-2", "Game Two")
	staleBak := EventFragmentPath(dir, 99) + eventFragmentBakSuffix
	if err := os.WriteFile(staleBak, []byte("stale"), 0o644); err != nil {
		t.Fatalf("seed stale .bak: %v", err)
	}

	archived, swept, err := Finalize(dir)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if swept != 1 {
		t.Fatalf("sweptOld = %d, want 1 (the stale .bak from a prior cycle)", swept)
	}
	if archived != 2 {
		t.Fatalf("archived = %d, want 2", archived)
	}
	if _, err := os.Stat(staleBak); !os.IsNotExist(err) {
		t.Fatalf("expected stale .bak removed, stat err = %v", err)
	}
	if _, err := os.Stat(EventFragmentPath(dir, 1) + eventFragmentBakSuffix); err != nil {
		t.Fatalf("expected event_epg_1.xml.bak to exist: %v", err)
	}
	if _, err := os.Stat(EventFragmentPath(dir, 1)); !os.IsNotExist(err) {
		t.Fatalf("expected original event_epg_1.xml to be renamed away, stat err = %v", err)
	}
	if _, err := os.Stat(TeamsPath(dir)); err != nil {
		t.Fatalf("expected teams.xml to survive Finalize untouched: %v", err)
	}
	if _, err := os.Stat(TeamsPath(dir) + eventFragmentBakSuffix); !os.IsNotExist(err) {
		t.Fatalf("teams.xml must never be archived to teams.xml.bak, stat err = %v", err)
	}
}
