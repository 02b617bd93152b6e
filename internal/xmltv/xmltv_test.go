package xmltv

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/teamarr/teamarr/internal/core"
)

func programmeFixture(channelID, title string, start, stop time.Time) core.Programme {
	return core.Programme{
		ChannelID: channelID,
		Title:     title,
		Start:     start,
		Stop:      stop,
	}
}

func TestEncode_doctypeAndElementOrder(t *testing.T) {
	doc := Document{
		Channels: []Channel{{ID: "c1", DisplayName: "Channel One"}},
	}
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `<!DOCTYPE tv SYSTEM "xmltv.dtd">`) {
		t.Errorf("missing DOCTYPE: %s", out)
	}
	if !strings.Contains(out, "<channel") {
		t.Fatalf("no <channel> found: %s", out)
	}
}

func TestEncodeParse_roundTrip(t *testing.T) {
	start := time.Date(2025, 12, 15, 1, 0, 0, 0, time.UTC)
	stop := start.Add(2 * time.Hour)
	doc := Document{
		GeneratorName: "Teamarr",
		Channels: []Channel{
			{ID: "teamarr-event-1", DisplayName: "Cowboys vs Giants", IconURL: "https://example.com/a.png"},
		},
		Programmes: []core.Programme{programmeFixture("teamarr-event-1", "Cowboys vs Giants", start, stop)},
	}

	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	parsed, err := Parse(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(parsed.Channels) != 1 || parsed.Channels[0].ID != "teamarr-event-1" {
		t.Fatalf("channel round-trip mismatch: %+v", parsed.Channels)
	}
	if len(parsed.Programmes) != 1 {
		t.Fatalf("expected 1 programme, got %d", len(parsed.Programmes))
	}
	p := parsed.Programmes[0]
	if p.ChannelID != "teamarr-event-1" || p.Title != "Cowboys vs Giants" {
		t.Errorf("programme identity mismatch: %+v", p)
	}
	if !p.Start.Equal(start.UTC()) || !p.Stop.Equal(stop.UTC()) {
		t.Errorf("programme times mismatch: got %v-%v want %v-%v", p.Start, p.Stop, start.UTC(), stop.UTC())
	}
}

func TestEncode_timesAreUTCWithOffset(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	start := time.Date(2025, 12, 14, 20, 0, 0, 0, loc)
	stop := start.Add(time.Hour)
	doc := Document{Programmes: []core.Programme{programmeFixture("c1", "Game", start, stop)}}
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "+0000") {
		t.Errorf("expected UTC +0000 offset in output: %s", out)
	}
	if strings.Contains(out, "-0500") {
		t.Errorf("expected times converted to UTC, found local offset: %s", out)
	}
}

func TestEncode_flagsFromTemplateNeverHardcoded(t *testing.T) {
	start := time.Date(2025, 12, 14, 20, 0, 0, 0, time.UTC)
	p := programmeFixture("c1", "Game", start, start.Add(time.Hour))
	p.Live = true
	p.New = false
	doc := Document{Programmes: []core.Programme{p}}
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "<live") {
		t.Errorf("expected <live/> present when Programme.Live is true: %s", out)
	}
	if strings.Contains(out, "<new") {
		t.Errorf("expected no <new/> when Programme.New is false: %s", out)
	}
}
