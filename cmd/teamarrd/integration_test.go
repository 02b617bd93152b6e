// Integration test: run with Dispatcharr credentials in .env (or set
// TEAMARR_*). Skip when no Dispatcharr URL/creds: go test -v -run Integration ./cmd/teamarrd
package main

import (
	"context"
	"testing"
	"time"

	"github.com/teamarr/teamarr/internal/config"
	"github.com/teamarr/teamarr/internal/dispatcharr"
)

func TestIntegration_dispatcharrReachable(t *testing.T) {
	for _, p := range []string{".env", "../.env", "../../.env"} {
		_ = config.LoadEnvFile(p)
	}
	cfg := config.Load()
	if cfg.DispatcharrURL == "" || cfg.DispatcharrUser == "" || cfg.DispatcharrPass == "" {
		t.Skip("no Dispatcharr credentials (set TEAMARR_DISPATCHARR_URL/USER/PASS in .env)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := dispatcharr.New(cfg.DispatcharrURL, cfg.DispatcharrUser, cfg.DispatcharrPass)
	channels, err := client.GetChannels(ctx)
	if err != nil {
		t.Fatalf("GetChannels: %v", err)
	}
	t.Logf("fetched %d channels from %s", len(channels), cfg.DispatcharrURL)
}

func TestBuildSportsService_nonNil(t *testing.T) {
	cfg := &config.Config{
		ESPNBaseURL:        "https://site.api.espn.com",
		TheSportsDBBaseURL: "https://www.thesportsdb.com/api/v1/json",
		RateLimitPerSecond: 5,
	}
	if svc := buildSportsService(cfg); svc == nil {
		t.Fatal("buildSportsService returned nil")
	}
}
