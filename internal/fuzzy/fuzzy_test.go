package fuzzy

import (
	"testing"

	"github.com/teamarr/teamarr/internal/core"
)

func TestGenerateTeamPatternsIdempotent(t *testing.T) {
	m := New()
	team := core.Team{ID: "det", Name: "Detroit Lions", ShortName: "Lions", Abbreviation: "DET"}

	first := m.GenerateTeamPatterns(team)
	twice := dedup(append(append([]string{}, first...), m.GenerateTeamPatterns(team)...))

	if len(twice) != len(dedup(first)) {
		t.Fatalf("pattern generation is not idempotent: first=%v twice=%v", first, twice)
	}
}

func dedup(in []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func TestGenerateTeamPatternsContainsCityAndMascot(t *testing.T) {
	m := New()
	team := core.Team{Name: "Detroit Lions", ShortName: "Lions", Abbreviation: "DET"}
	patterns := m.GenerateTeamPatterns(team)

	want := map[string]bool{"detroit lions": false, "lions": false, "det": false, "detroit": false}
	for _, p := range patterns {
		if _, ok := want[p]; ok {
			want[p] = true
		}
	}
	for p, found := range want {
		if !found {
			t.Errorf("expected pattern %q in %v", p, patterns)
		}
	}
}

func TestGenerateEventPatternsColonPrefix(t *testing.T) {
	m := New()
	patterns := m.GenerateEventPatterns("UFC Fight Night: Royval vs. Kape", "UFC FN")
	found := false
	for _, p := range patterns {
		if p == "ufc fight night" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected colon-prefix pattern in %v", patterns)
	}
}

func TestMatchesAnyTokenBoundaryPenalty(t *testing.T) {
	m := New()
	exact := m.MatchesAny([]string{"lions"}, "detroit lions postgame")
	embedded := m.MatchesAny([]string{"lions"}, "the dandelions show")
	if !exact.Matched {
		t.Fatal("expected exact boundary match")
	}
	if embedded.Matched && embedded.Score >= exact.Score {
		t.Fatalf("expected cross-boundary match to score lower: exact=%v embedded=%v", exact, embedded)
	}
}

func TestMatchesAnyNoMatch(t *testing.T) {
	m := New()
	result := m.MatchesAny([]string{"lions", "bears"}, "packers vs vikings")
	if result.Matched {
		t.Fatalf("expected no match, got %v", result)
	}
}
