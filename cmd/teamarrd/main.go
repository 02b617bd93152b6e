// Command teamarrd wires together the sports providers, Dispatcharr client,
// persistence, and orchestrator into a runnable generation loop. The admin
// HTTP API, scheduler cron, and web UI are treated as external collaborators
// and are out of scope here; this binary exists so the pipeline itself can
// run standalone, fronted by a minimal CLI trigger in the style of
// cmd/plex-tuner/main.go.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teamarr/teamarr/internal/config"
	"github.com/teamarr/teamarr/internal/dispatcharr"
	"github.com/teamarr/teamarr/internal/metrics"
	"github.com/teamarr/teamarr/internal/orchestrator"
	"github.com/teamarr/teamarr/internal/sportsprovider"
	"github.com/teamarr/teamarr/internal/sportsprovider/cricket"
	"github.com/teamarr/teamarr/internal/sportsprovider/espn"
	"github.com/teamarr/teamarr/internal/sportsprovider/thesportsdb"
	"github.com/teamarr/teamarr/internal/store"
)

func main() {
	envFile := flag.String("env", ".env", "dotenv file to load before reading the environment")
	once := flag.Bool("once", false, "run a single generation cycle and exit instead of looping")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		log.Printf("teamarrd: load env file %s: %v", *envFile, err)
	}
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	s, err := store.Open(ctx, cfg.DBPath())
	if err != nil {
		log.Fatalf("teamarrd: open store: %v", err)
	}
	defer s.Close()

	if tz, err := s.GetSettingsTimezone(ctx, cfg.Timezone); err == nil && tz != "" {
		cfg.Timezone = tz
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("teamarrd: unknown timezone %q, using UTC: %v", cfg.Timezone, err)
		loc = time.UTC
	}

	channels := dispatcharr.New(cfg.DispatcharrURL, cfg.DispatcharrUser, cfg.DispatcharrPass)

	sports := buildSportsService(cfg)

	m := metrics.New()
	orch := orchestrator.New(s, channels, sports, cfg, m, cfg.EPGDataID, loc)

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		log.Printf("teamarrd: metrics listening on %s", cfg.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("teamarrd: metrics server: %v", err)
		}
	}()

	runOnce := func() {
		start := time.Now()
		result := orch.Run(ctx)
		log.Printf("teamarrd: generation run finished in %s: %s", time.Since(start), result.Summary())
	}

	if *once {
		runOnce()
		_ = srv.Close()
		return
	}

	runOnce()
	ticker := time.NewTicker(cfg.GenerationInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("teamarrd: shutting down")
			_ = srv.Close()
			os.Exit(0)
		case <-ticker.C:
			runOnce()
		}
	}
}

// buildSportsService registers the ESPN and TheSportsDB adapters for the
// leagues they natively cover, plus a cricket hybrid (TheSportsDB team
// directory, TheSportsDB-again as the schedule feed absent a dedicated
// premium source) since TheSportsDB's free tier lacks cricket fixtures.
func buildSportsService(cfg *config.Config) *sportsprovider.Service {
	espnProvider := espn.New(cfg.ESPNBaseURL, cfg.RateLimitPerSecond)
	tsdb := thesportsdb.New(cfg.TheSportsDBBaseURL, cfg.RateLimitPerSecond)

	svc := sportsprovider.NewService(espnProvider)
	for _, league := range []string{"nfl", "nba", "nhl", "mlb", "ncaaf", "ncaab", "mls", "ufc"} {
		svc.Register(league, espnProvider)
	}
	for _, league := range []string{"epl", "laliga", "seriea", "bundesliga", "ligue1", "ucl"} {
		svc.Register(league, tsdb)
	}
	svc.Register("cricket", cricket.New(tsdb, tsdb))
	return svc
}
