package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCollectors_countersAppearOnHandler(t *testing.T) {
	c := New()
	c.GenerationRuns.Inc()
	c.MatchedStreams.WithLabelValues("nfl").Add(3)
	c.ChannelCreates.Inc()
	c.CacheHits.Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"teamarr_generation_runs_total 1",
		`teamarr_matched_streams_total{league="nfl"} 3`,
		"teamarr_channel_create_total 1",
		"teamarr_cache_hit_total 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected metrics output to contain %q, got:\n%s", want, body)
		}
	}
}
