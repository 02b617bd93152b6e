package xmltv

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// TeamsFileName and the event-fragment glob name the intermediate fragment
// files, grounded on original_source/epg/epg_consolidator.py's file layout.
const (
	TeamsFileName          = "teams.xml"
	CombinedFileName       = "teamarr.xml"
	eventFragmentPattern   = "event_epg_*.xml"
	eventFragmentBakSuffix = ".bak"
)

// EventFragmentPath names the per-group intermediate file a group's event
// generation pass writes, merged into the final output by Consolidate.
func EventFragmentPath(dataDir string, groupID int64) string {
	return filepath.Join(dataDir, fmt.Sprintf("event_epg_%d.xml", groupID))
}

// TeamsPath is teams.xml's path under dataDir.
func TeamsPath(dataDir string) string {
	return filepath.Join(dataDir, TeamsFileName)
}

// WriteFragment writes doc to path, creating parent directories as needed.
// Used for both teams.xml and each group's event_epg_<id>.xml.
func WriteFragment(path string, doc Document) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("xmltv: create dir for %s: %w", path, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("xmltv: create %s: %w", path, err)
	}
	defer f.Close()
	if err := Encode(f, doc); err != nil {
		return err
	}
	return f.Close()
}

// MergeResult reports what Consolidate did.
type MergeResult struct {
	FilesMerged     int
	ChannelCount    int
	ProgrammeCount  int
	OutputPath      string
}

// Consolidate merges teams.xml plus every event_epg_*.xml fragment under
// dataDir into outputPath. Channels are deduplicated by id, first file
// wins; programmes are concatenated without dedup. Mirrors
// merge_all_epgs/merge_xmltv_files. Does not archive the source fragments —
// call Finalize once per full generation cycle for that.
func Consolidate(dataDir, outputPath string) (MergeResult, error) {
	if outputPath == "" {
		outputPath = filepath.Join(dataDir, CombinedFileName)
	}

	var fragments []string
	if _, err := os.Stat(TeamsPath(dataDir)); err == nil {
		fragments = append(fragments, TeamsPath(dataDir))
	}
	eventFiles, err := filepath.Glob(filepath.Join(dataDir, eventFragmentPattern))
	if err != nil {
		return MergeResult{}, fmt.Errorf("xmltv: glob event fragments: %w", err)
	}
	sort.Strings(eventFiles)
	fragments = append(fragments, eventFiles...)

	if len(fragments) == 0 {
		if err := WriteFragment(outputPath, Document{GeneratorName: "Teamarr"}); err != nil {
			return MergeResult{}, err
		}
		return MergeResult{OutputPath: outputPath}, nil
	}

	merged := Document{GeneratorName: "Teamarr"}
	seenChannels := make(map[string]struct{})
	for _, path := range fragments {
		f, err := os.Open(path)
		if err != nil {
			return MergeResult{}, fmt.Errorf("xmltv: open fragment %s: %w", path, err)
		}
		doc, err := Parse(f)
		f.Close()
		if err != nil {
			return MergeResult{}, fmt.Errorf("xmltv: parse fragment %s: %w", path, err)
		}
		for _, ch := range doc.Channels {
			if _, dup := seenChannels[ch.ID]; dup {
				continue
			}
			seenChannels[ch.ID] = struct{}{}
			merged.Channels = append(merged.Channels, ch)
		}
		merged.Programmes = append(merged.Programmes, doc.Programmes...)
	}

	if err := WriteFragment(outputPath, merged); err != nil {
		return MergeResult{}, err
	}

	return MergeResult{
		FilesMerged:    len(fragments),
		ChannelCount:   len(merged.Channels),
		ProgrammeCount: len(merged.Programmes),
		OutputPath:     outputPath,
	}, nil
}

// Finalize archives every event_epg_*.xml fragment under dataDir to .bak
// (replacing any existing .bak) and sweeps .bak files left over from the
// cycle before that — but never teams.xml.bak, since teams.xml itself is
// never archived between cycles (a partial event-only refresh must still
// be able to include it in the next merge). Call once at the end of a full
// generation cycle, after the final Consolidate. Mirrors
// finalize_epg_generation/cleanup_old_archives.
func Finalize(dataDir string) (archived, sweptOld int, err error) {
	sweptOld, err = cleanupOldEventArchives(dataDir)
	if err != nil {
		return 0, sweptOld, err
	}

	eventFiles, err := filepath.Glob(filepath.Join(dataDir, eventFragmentPattern))
	if err != nil {
		return 0, sweptOld, fmt.Errorf("xmltv: glob event fragments: %w", err)
	}
	for _, path := range eventFiles {
		if err := archiveFile(path); err != nil {
			return archived, sweptOld, err
		}
		archived++
	}
	return archived, sweptOld, nil
}

func cleanupOldEventArchives(dataDir string) (int, error) {
	pattern := filepath.Join(dataDir, eventFragmentPattern+eventFragmentBakSuffix)
	baks, err := filepath.Glob(pattern)
	if err != nil {
		return 0, fmt.Errorf("xmltv: glob old archives: %w", err)
	}
	swept := 0
	for _, bak := range baks {
		if err := os.Remove(bak); err != nil && !os.IsNotExist(err) {
			return swept, fmt.Errorf("xmltv: remove old archive %s: %w", bak, err)
		}
		swept++
	}
	return swept, nil
}

func archiveFile(path string) error {
	bak := path + eventFragmentBakSuffix
	if err := os.Remove(bak); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("xmltv: remove existing archive %s: %w", bak, err)
	}
	if err := os.Rename(path, bak); err != nil {
		return fmt.Errorf("xmltv: archive %s: %w", path, err)
	}
	return nil
}
