package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_defaults(t *testing.T) {
	os.Clearenv()
	c := Load()
	if c.Timezone != "UTC" {
		t.Errorf("Timezone = %q, want UTC", c.Timezone)
	}
	if c.LookaheadDays != 14 {
		t.Errorf("LookaheadDays = %d, want 14", c.LookaheadDays)
	}
	if c.PollInterval != 2*time.Second {
		t.Errorf("PollInterval = %v, want 2s", c.PollInterval)
	}
	if c.PollTimeout != 120*time.Second {
		t.Errorf("PollTimeout = %v, want 120s", c.PollTimeout)
	}
	if c.RefreshConcurrency != 5 {
		t.Errorf("RefreshConcurrency = %d, want 5", c.RefreshConcurrency)
	}
	want := filepath.Join("/var/lib/teamarr", "xmltv")
	if c.XMLTVOutputDir != want {
		t.Errorf("XMLTVOutputDir = %q, want %q", c.XMLTVOutputDir, want)
	}
}

func TestLoad_dispatcharrURLTrimsTrailingSlash(t *testing.T) {
	os.Clearenv()
	os.Setenv("TEAMARR_DISPATCHARR_URL", "http://dispatcharr.local:9191/")
	c := Load()
	if c.DispatcharrURL != "http://dispatcharr.local:9191" {
		t.Errorf("DispatcharrURL = %q, want trailing slash trimmed", c.DispatcharrURL)
	}
}

func TestLoad_explicitXMLTVDirOverridesDataDir(t *testing.T) {
	os.Clearenv()
	os.Setenv("TEAMARR_DATA_DIR", "/data")
	os.Setenv("TEAMARR_XMLTV_DIR", "/custom/xmltv")
	c := Load()
	if c.XMLTVOutputDir != "/custom/xmltv" {
		t.Errorf("XMLTVOutputDir = %q, want /custom/xmltv", c.XMLTVOutputDir)
	}
}

func TestLoad_invalidIntFallsBackToDefault(t *testing.T) {
	os.Clearenv()
	os.Setenv("TEAMARR_LOOKAHEAD_DAYS", "not-a-number")
	c := Load()
	if c.LookaheadDays != 14 {
		t.Errorf("LookaheadDays = %d, want default 14 on parse failure", c.LookaheadDays)
	}
}

func TestLoad_negativeLookaheadFallsBackToDefault(t *testing.T) {
	os.Clearenv()
	os.Setenv("TEAMARR_LOOKAHEAD_DAYS", "-3")
	c := Load()
	if c.LookaheadDays != 14 {
		t.Errorf("LookaheadDays = %d, want default 14 for non-positive value", c.LookaheadDays)
	}
}

func TestDBPath(t *testing.T) {
	os.Clearenv()
	os.Setenv("TEAMARR_DATA_DIR", "/data")
	c := Load()
	want := filepath.Join("/data", "teamarr.db")
	if c.DBPath() != want {
		t.Errorf("DBPath() = %q, want %q", c.DBPath(), want)
	}
}

func TestLoad_boolParsing(t *testing.T) {
	tests := []struct {
		val  string
		want bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"yes", true},
		{"false", false},
		{"0", false},
		{"", false},
	}
	for _, tt := range tests {
		os.Clearenv()
		if tt.val != "" {
			os.Setenv("TEAMARR_RECONCILE_AUTO_FIX", tt.val)
		}
		c := Load()
		if c.ReconcileAutoFix != tt.want {
			t.Errorf("ReconcileAutoFix for %q = %v, want %v", tt.val, c.ReconcileAutoFix, tt.want)
		}
	}
}
