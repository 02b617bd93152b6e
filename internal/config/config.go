package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the settings needed to run a generation cycle: where Dispatcharr
// lives, which sports providers to query, and where local state is kept.
// Load from environment first; internal/store applies a settings-row (id=1)
// fallback on top for values an operator only wants to change at runtime.
type Config struct {
	DispatcharrURL      string
	DispatcharrUser     string
	DispatcharrPass     string
	Timezone            string // IANA zone, e.g. "America/Chicago"
	DataDir             string // sqlite DB, match cache, xmltv fragments
	XMLTVOutputDir      string
	ESPNBaseURL         string
	TheSportsDBBaseURL  string
	TheSportsDBAPIKey   string
	LookaheadDays       int
	PollInterval        time.Duration
	PollTimeout         time.Duration
	RefreshConcurrency  int
	RateLimitPerSecond  float64
	ReconcileAutoFix    bool
	DuplicateEventMode  string // "merge" | "separate"
	EPGDataID           int64  // Dispatcharr epg_data_id injected via set-epg
	MetricsAddr         string
	GenerationInterval  time.Duration
}

// Load reads config from environment. Call LoadEnvFile(".env") before Load()
// to populate the environment from a dotenv-style file first.
func Load() *Config {
	c := &Config{
		DispatcharrURL:     strings.TrimSuffix(os.Getenv("TEAMARR_DISPATCHARR_URL"), "/"),
		DispatcharrUser:    os.Getenv("TEAMARR_DISPATCHARR_USER"),
		DispatcharrPass:    os.Getenv("TEAMARR_DISPATCHARR_PASS"),
		Timezone:           getEnv("TEAMARR_TIMEZONE", "UTC"),
		DataDir:            getEnv("TEAMARR_DATA_DIR", "/var/lib/teamarr"),
		XMLTVOutputDir:     getEnv("TEAMARR_XMLTV_DIR", ""),
		ESPNBaseURL:        getEnv("TEAMARR_ESPN_BASE_URL", "https://site.api.espn.com"),
		TheSportsDBBaseURL: getEnv("TEAMARR_THESPORTSDB_BASE_URL", "https://www.thesportsdb.com/api/v1/json"),
		TheSportsDBAPIKey:  os.Getenv("TEAMARR_THESPORTSDB_API_KEY"),
		LookaheadDays:      getEnvInt("TEAMARR_LOOKAHEAD_DAYS", 14),
		PollInterval:       getEnvDuration("TEAMARR_POLL_INTERVAL", 2*time.Second),
		PollTimeout:        getEnvDuration("TEAMARR_POLL_TIMEOUT", 120*time.Second),
		RefreshConcurrency: getEnvInt("TEAMARR_REFRESH_CONCURRENCY", 5),
		RateLimitPerSecond: getEnvFloat("TEAMARR_RATE_LIMIT_PER_SECOND", 5),
		ReconcileAutoFix:   getEnvBool("TEAMARR_RECONCILE_AUTO_FIX", false),
		DuplicateEventMode: getEnv("TEAMARR_DUPLICATE_EVENT_MODE", "merge"),
		EPGDataID:          getEnvInt64("TEAMARR_EPG_DATA_ID", 0),
		MetricsAddr:        getEnv("TEAMARR_METRICS_ADDR", ":9477"),
		GenerationInterval: getEnvDuration("TEAMARR_GENERATION_INTERVAL", 15*time.Minute),
	}
	if c.XMLTVOutputDir == "" {
		c.XMLTVOutputDir = filepath.Join(c.DataDir, "xmltv")
	}
	if c.LookaheadDays <= 0 {
		c.LookaheadDays = 14
	}
	if c.RefreshConcurrency <= 0 {
		c.RefreshConcurrency = 5
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 120 * time.Second
	}
	return c
}

// DBPath returns the sqlite database file path under DataDir.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "teamarr.db")
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
