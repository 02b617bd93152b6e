// Package epggen turns matched events into the Programme/ProcessedProgramme
// timelines the XMLTV writer emits, for both team channels (one channel per
// team, schedule-driven) and event channels (one channel per matched
// stream). Grounded on original_source/consumers/team_epg.py and
// original_source/epg/event_epg_generator.py.
package epggen

import "strings"

// fallbackDurations are used only when neither a custom template override
// nor a settings-backed per-sport/default value is available.
var fallbackDurations = map[string]float64{
	"football":   3.5,
	"basketball": 2.5,
	"hockey":     3.0,
	"baseball":   3.5,
	"soccer":     2.0,
}

const fallbackDurationDefault = 3.0

// DurationSettings holds the operator-configured, settings-row-backed
// per-sport and default game durations ("game_duration_<sport>" and
// "game_duration_default" settings keys).
type DurationSettings struct {
	BySport map[string]float64
	Default float64
}

// ResolveDuration picks an event's duration in hours following the same
// mode fallback chain as _get_event_duration: a "custom" mode uses the
// template's override when positive, falling through to "sport" mode
// otherwise; "sport" mode prefers a per-sport settings value, then the
// settings default; "default" mode uses only the settings default. Any
// mode that still can't resolve a value falls back to a hardcoded
// per-sport (or global) constant so a generation run is never blocked by
// missing settings.
func ResolveDuration(mode string, customHours float64, sport string, settings DurationSettings) float64 {
	sport = strings.ToLower(sport)

	if mode == "custom" {
		if customHours > 0 {
			return customHours
		}
		mode = "sport"
	}

	switch mode {
	case "sport":
		if v, ok := settings.BySport[sport]; ok {
			return v
		}
		if settings.Default > 0 {
			return settings.Default
		}
	case "default":
		if settings.Default > 0 {
			return settings.Default
		}
	}

	if v, ok := fallbackDurations[sport]; ok {
		return v
	}
	return fallbackDurationDefault
}
