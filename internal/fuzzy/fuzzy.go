// Package fuzzy implements the boolean+score matcher the stream→event
// matcher uses to decide whether a free-text stream name refers to a given
// team or event. Pattern generation is grounded on
// internal/epglink/epglink.go's NormalizeName punctuation-stripping
// approach, extended with mascot/city stripping and scoring rules where
// longer and rarer patterns score higher and matches that cross a word
// boundary score lower.
package fuzzy

import (
	"strings"
	"unicode"

	"github.com/teamarr/teamarr/internal/core"
)

// ABBREVIATIONS maps a handful of well-known short forms to their
// canonical (lowercased) team/league names, following the
// embedded-lookup-table-with-constructor pattern in internal/dvbdb/dvbdb.go.
// This is intentionally a small seed table, not an exhaustive league
// database — it is an exported map, and callers add entries to it directly
// for leagues the base table doesn't cover.
var ABBREVIATIONS = map[string]string{
	"nyg": "new york giants",
	"nyj": "new york jets",
	"ne":  "new england patriots",
	"dal": "dallas cowboys",
	"gb":  "green bay packers",
	"sf":  "san francisco 49ers",
	"kc":  "kansas city chiefs",
	"lac": "los angeles chargers",
	"lar": "los angeles rams",
	"tb":  "tampa bay buccaneers",
}

// MASCOT_WORDS are tokens safe to strip from a team name when only the city
// is meaningful in a stream title (e.g. "Lions" in "Detroit Lions").
var MASCOT_WORDS = map[string]struct{}{
	"lions": {}, "bears": {}, "packers": {}, "vikings": {},
	"cowboys": {}, "giants": {}, "eagles": {}, "commanders": {},
	"49ers": {}, "rams": {}, "seahawks": {}, "cardinals": {},
	"saints": {}, "falcons": {}, "panthers": {}, "buccaneers": {},
	"bills": {}, "dolphins": {}, "patriots": {}, "jets": {},
	"ravens": {}, "bengals": {}, "browns": {}, "steelers": {},
	"texans": {}, "colts": {}, "jaguars": {}, "titans": {},
	"broncos": {}, "chiefs": {}, "raiders": {}, "chargers": {},
	"celtics": {}, "nets": {}, "knicks": {}, "76ers": {}, "raptors": {},
	"bulls": {}, "cavaliers": {}, "pistons": {}, "pacers": {}, "bucks": {},
	"hawks": {}, "hornets": {}, "heat": {}, "magic": {}, "wizards": {},
	"mavericks": {}, "rockets": {}, "grizzlies": {}, "pelicans": {}, "spurs": {},
	"nuggets": {}, "timberwolves": {}, "thunder": {}, "trail blazers": {}, "jazz": {},
	"warriors": {}, "clippers": {}, "lakers": {}, "suns": {}, "kings": {},
	"yankees": {}, "red sox": {}, "blue jays": {}, "orioles": {}, "rays": {},
	"white sox": {}, "guardians": {}, "tigers": {}, "royals": {}, "twins": {},
	"astros": {}, "angels": {}, "athletics": {}, "mariners": {}, "rangers": {},
	"braves": {}, "marlins": {}, "mets": {}, "phillies": {}, "nationals": {},
	"cubs": {}, "reds": {}, "brewers": {}, "pirates": {}, "cardinals ": {},
	"diamondbacks": {}, "rockies": {}, "dodgers": {}, "padres": {}, "giants ": {},
	"bruins": {}, "sabres": {}, "red wings": {}, "panthers ": {}, "canadiens": {},
	"senators": {}, "lightning": {}, "maple leafs": {}, "hurricanes": {},
	"blue jackets": {}, "devils": {}, "islanders": {}, "capitals": {},
	"blackhawks": {}, "avalanche": {}, "stars": {}, "wild": {}, "predators": {},
	"blues": {}, "jets ": {}, "ducks": {}, "flames": {}, "oilers": {},
	"kings ": {}, "sharks": {}, "kraken": {}, "canucks": {}, "golden knights": {},
}

// MatchResult is the boolean+score outcome of matches_any.
type MatchResult struct {
	Matched bool
	Score   float64
}

// Matcher holds caller-supplied vocabulary overrides on top of the package
// defaults; the zero value uses ABBREVIATIONS/MASCOT_WORDS directly.
type Matcher struct {
	abbreviations map[string]string
	mascotWords   map[string]struct{}
	aliases       map[string][]string // lowercased team id -> extra alias strings
}

// New returns a Matcher seeded with the package's default vocabulary.
func New() *Matcher {
	return &Matcher{
		abbreviations: ABBREVIATIONS,
		mascotWords:   MASCOT_WORDS,
		aliases:       map[string][]string{},
	}
}

// RegisterAlias adds an extra free-text alias (e.g. a nickname) that
// generate_team_patterns should include for the given team id.
func (m *Matcher) RegisterAlias(teamID string, alias string) {
	key := strings.ToLower(teamID)
	m.aliases[key] = append(m.aliases[key], alias)
}

// GenerateTeamPatterns returns a deduplicated, lowercased, length>=2 set of
// patterns for team: full name, short name, abbreviation, name-minus-mascot,
// name-minus-city, and known aliases. Idempotent: calling it twice and
// deduping the concatenation yields the same set.
func (m *Matcher) GenerateTeamPatterns(team core.Team) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if len(s) < 2 {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	add(team.Name)
	add(team.ShortName)
	add(team.Abbreviation)

	if mascotStripped, ok := stripMascot(team.Name, m.mascotWords); ok {
		add(mascotStripped)
	}
	if cityStripped, ok := stripCity(team.Name); ok {
		add(cityStripped)
	}

	for _, alias := range m.aliases[strings.ToLower(team.ID)] {
		add(alias)
	}
	return out
}

// GenerateEventPatterns returns patterns for a free event name (UFC, boxing,
// etc.): the full name/short name, plus — for names containing a colon — the
// prefix before the colon, supporting tier-2 matching
// ("UFC Fight Night: Royval vs. Kape" -> also "ufc fight night").
func (m *Matcher) GenerateEventPatterns(values ...string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, v := range values {
		if v == "" {
			continue
		}
		lower := strings.ToLower(v)
		if _, ok := seen[lower]; !ok && len(lower) >= 2 {
			seen[lower] = struct{}{}
			out = append(out, lower)
		}
		if idx := strings.Index(lower, ":"); idx >= 0 {
			prefix := strings.TrimSpace(lower[:idx])
			if _, ok := seen[prefix]; !ok && len(prefix) >= 2 {
				seen[prefix] = struct{}{}
				out = append(out, prefix)
			}
		}
	}
	return out
}

// stripMascot removes a trailing mascot word from a team name, returning
// (city, true) when the name ends with a known mascot (e.g. "Detroit Lions"
// -> "detroit").
func stripMascot(name string, mascots map[string]struct{}) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(name))
	for mascot := range mascots {
		if strings.HasSuffix(lower, " "+mascot) {
			return strings.TrimSpace(strings.TrimSuffix(lower, mascot)), true
		}
	}
	return "", false
}

// stripCity removes a leading city/region token from a team name, returning
// (mascot, true) when the name has more than one word (e.g. "Detroit Lions"
// -> "lions"). This is the complement of stripMascot: when the mascot table
// doesn't recognize the suffix, the last word is still a useful pattern.
func stripCity(name string) (string, bool) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(name)))
	if len(fields) < 2 {
		return "", false
	}
	return fields[len(fields)-1], true
}

// MatchesAny performs case-insensitive substring plus token-boundary
// matching of patterns against haystack, returning the best-scoring match.
// Score rewards longer and rarer (fewer-pattern) matches and penalizes a
// match whose boundaries fall mid-word in haystack.
func (m *Matcher) MatchesAny(patterns []string, haystack string) MatchResult {
	haystack = strings.ToLower(haystack)
	best := MatchResult{}
	for _, p := range patterns {
		if p == "" {
			continue
		}
		idx := strings.Index(haystack, p)
		if idx < 0 {
			continue
		}
		score := scorePattern(p, haystack, idx, len(patterns))
		if score > best.Score || !best.Matched {
			best = MatchResult{Matched: true, Score: score}
		}
	}
	return best
}

// scorePattern computes a 0..100 score for one substring hit: base score
// from pattern length (longer = more specific = higher), a rarity bonus
// (fewer competing patterns in the set = higher), and a penalty when the
// match crosses a word boundary in haystack (a substring match that isn't
// also a token match is weaker evidence).
func scorePattern(pattern, haystack string, idx int, patternSetSize int) float64 {
	lengthScore := float64(len(pattern))
	if lengthScore > 30 {
		lengthScore = 30
	}
	rarityBonus := 10.0
	if patternSetSize > 0 {
		rarityBonus = 10.0 / float64(patternSetSize)
	}
	score := 50.0 + lengthScore + rarityBonus

	if !isTokenBoundary(haystack, idx, len(pattern)) {
		score -= 20.0
	}
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

// isTokenBoundary reports whether the match at haystack[idx:idx+n] starts
// and ends on a word boundary (not in the middle of a larger token).
func isTokenBoundary(haystack string, idx, n int) bool {
	before := idx == 0 || isBoundaryRune(runeAt(haystack, idx-1))
	after := idx+n >= len(haystack) || isBoundaryRune(runeAt(haystack, idx+n))
	return before && after
}

func isBoundaryRune(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsNumber(r)
}

func runeAt(s string, byteIdx int) rune {
	if byteIdx < 0 || byteIdx >= len(s) {
		return ' '
	}
	for _, r := range s[byteIdx:] {
		return r
	}
	return ' '
}
