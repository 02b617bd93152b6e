// Package metrics exposes the counters an operator watches to see that a
// generation run is actually doing work: runs, matched streams, channels
// created, and cache hits. Grounded on cmd/plex-tuner/main.go's habit of
// exposing an operational endpoint alongside its own HTTP surface (it wires
// /lineup.json, /device.xml, /stream onto one mux); here /metrics joins a
// mux instead of a second listener.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors is the full set of counters a generation run touches. Callers
// construct one with New and pass it to the orchestrator, which increments
// every counter, instead of reaching for package-level globals.
type Collectors struct {
	GenerationRuns prometheus.Counter
	MatchedStreams *prometheus.CounterVec
	ChannelCreates prometheus.Counter
	CacheHits      prometheus.Counter

	registry *prometheus.Registry
}

// New registers every counter against its own registry so repeated calls
// (e.g. in tests) never collide with a package-level default registry.
func New() *Collectors {
	reg := prometheus.NewRegistry()
	c := &Collectors{
		GenerationRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "teamarr_generation_runs_total",
			Help: "Total number of orchestrator generation runs started.",
		}),
		MatchedStreams: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teamarr_matched_streams_total",
			Help: "Total number of streams successfully matched to an event, by league.",
		}, []string{"league"}),
		ChannelCreates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "teamarr_channel_create_total",
			Help: "Total number of Dispatcharr channels created by the lifecycle controller.",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "teamarr_cache_hit_total",
			Help: "Total number of stream matches served from the fingerprint cache instead of fresh fuzzy matching.",
		}),
	}
	reg.MustRegister(c.GenerationRuns, c.MatchedStreams, c.ChannelCreates, c.CacheHits)
	c.registry = reg
	return c
}

// Handler returns the /metrics endpoint to mount on the admin mux.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
