package catalogue

import (
	"sort"
	"strings"
)

// ProgramMeta is one entry of the curated program table: a lowercase pattern
// matched by substring against the cleaned program name, plus the display
// metadata for programs it matches. Entries are consulted in order and the
// first match wins, so broader patterns belong after narrower ones.
type ProgramMeta struct {
	Pattern  string
	Age      string
	Order    int
	Category string
}

// Programs the table does not know get sorted last under a generic category.
const (
	unknownProgramOrder    = 99
	unknownProgramCategory = "Other"
)

// DefaultProgramTable returns the curated age/order/category metadata. The
// table is a display aid only; the category must never be used as an
// authoritative type tag.
func DefaultProgramTable() []ProgramMeta {
	return []ProgramMeta{
		{Pattern: "scratchjr", Age: "5-6 Tahun", Order: 1, Category: "Block Coding"},
		{Pattern: "scratch", Age: "7-12 Tahun", Order: 2, Category: "Block Coding"},
		{Pattern: "minecraft", Age: "7-9 Tahun", Order: 3, Category: "Game Design"},
		{Pattern: "roblox studio", Age: "10-15 Tahun", Order: 4, Category: "Game Design"},
		{Pattern: "roblox", Age: "10-15 Tahun", Order: 4, Category: "Game Design"},
		{Pattern: "diy robotik", Age: "7-12 Tahun", Order: 5, Category: "Robotics"},
		{Pattern: "diy robotic", Age: "7-12 Tahun", Order: 5, Category: "Robotics"},
		{Pattern: "micro:bit robotic", Age: "7-15 Tahun", Order: 6, Category: "Robotics"},
		{Pattern: "microbit robotic", Age: "7-15 Tahun", Order: 6, Category: "Robotics"},
		{Pattern: "microbit", Age: "7-15 Tahun", Order: 6, Category: "Robotics"},
		{Pattern: "micro:bit", Age: "7-15 Tahun", Order: 6, Category: "Robotics"},
		{Pattern: "yahboom", Age: "7-15 Tahun", Order: 6, Category: "Robotics"},
		{Pattern: "app inventor", Age: "13-15 Tahun", Order: 7, Category: "App Development"},
		{Pattern: "python", Age: "15-18 Tahun", Order: 8, Category: "Text Coding"},
	}
}

// ProgramEntry is a distinct program with its looked-up display metadata.
type ProgramEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Age      string `json:"age,omitempty"`
	Order    int    `json:"order"`
	Category string `json:"category"`
}

// LevelEntry identifies one level tab. The label carries the first-seen
// planet theme for the level, except for Trial Class which stands alone.
type LevelEntry struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// UnitGroup is a contiguous run of sessions sharing a topic title, rendered
// under one heading. Non-contiguous repeats of the same title stay separate:
// arrival order after the session sort, not label identity, drives grouping.
type UnitGroup struct {
	Unit  string `json:"unit"`
	Items []Item `json:"items"`
}

// CleanProgramName strips the sales-channel prefix tokens and turns
// separator underscores into spaces for display and table matching.
func CleanProgramName(programID string) string {
	name := programID
	for _, prefix := range []string{"B2C_", "B2B_", "B2S_"} {
		name = strings.ReplaceAll(name, prefix, "")
	}
	return strings.ReplaceAll(name, "_", " ")
}

// lookupMeta finds the first table entry whose pattern is contained in the
// cleaned, lowercased program name.
func lookupMeta(table []ProgramMeta, programID string) (ProgramMeta, bool) {
	name := strings.ToLower(CleanProgramName(programID))
	for _, meta := range table {
		if strings.Contains(name, meta.Pattern) {
			return meta, true
		}
	}
	return ProgramMeta{}, false
}

// Programs derives the distinct program list from the canonical items,
// ordered by curated metadata. The sort is stable: programs sharing an order
// (or unknown to the table) keep their relative arrival order.
func Programs(items []Item, table []ProgramMeta) []ProgramEntry {
	seen := make(map[string]struct{}, len(items))
	entries := make([]ProgramEntry, 0, len(items))
	for _, item := range items {
		if item.ProgramID == "" {
			continue
		}
		if _, ok := seen[item.ProgramID]; ok {
			continue
		}
		seen[item.ProgramID] = struct{}{}

		entry := ProgramEntry{
			ID:       item.ProgramID,
			Name:     CleanProgramName(item.ProgramID),
			Order:    unknownProgramOrder,
			Category: unknownProgramCategory,
		}
		if meta, ok := lookupMeta(table, item.ProgramID); ok {
			entry.Age = meta.Age
			entry.Order = meta.Order
			entry.Category = meta.Category
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Order < entries[j].Order
	})
	return entries
}

// Levels derives the level tabs for one program. Trial Class always sorts
// first; the remaining ids compare as natural strings so "Level 2" precedes
// "Level 10". Each level's label carries the theme of the first item seen
// for it within the program.
func Levels(items []Item, programID string) []LevelEntry {
	themes := make(map[string]string)
	ids := make([]string, 0, 8)
	for _, item := range items {
		if item.ProgramID != programID {
			continue
		}
		if _, ok := themes[item.LevelID]; !ok {
			themes[item.LevelID] = item.PlanetTheme
			ids = append(ids, item.LevelID)
		}
	}

	sort.SliceStable(ids, func(i, j int) bool {
		if ids[i] == LevelTrialClass {
			return ids[j] != LevelTrialClass
		}
		if ids[j] == LevelTrialClass {
			return false
		}
		return naturalLess(ids[i], ids[j])
	})

	entries := make([]LevelEntry, 0, len(ids))
	for _, id := range ids {
		label := id
		if theme := themes[id]; id != LevelTrialClass && theme != "" {
			label = id + " - " + theme
		}
		entries = append(entries, LevelEntry{ID: id, Label: label})
	}
	return entries
}

// UnitGroups derives the grouped session list for one program and level:
// filter, sort by numeric session order, then fold items into the previous
// group while the topic title matches.
func UnitGroups(items []Item, programID, levelID string) []UnitGroup {
	filtered := make([]Item, 0, len(items))
	for _, item := range items {
		if item.ProgramID == programID && item.LevelID == levelID {
			filtered = append(filtered, item)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Order < filtered[j].Order
	})

	groups := make([]UnitGroup, 0, len(filtered))
	for _, item := range filtered {
		if n := len(groups); n > 0 && groups[n-1].Unit == item.TopicTitle {
			groups[n-1].Items = append(groups[n-1].Items, item)
			continue
		}
		groups = append(groups, UnitGroup{Unit: item.TopicTitle, Items: []Item{item}})
	}
	return groups
}

// naturalLess compares two strings treating digit runs as numbers, so
// "Level 10" sorts after "Level 2".
func naturalLess(a, b string) bool {
	for len(a) > 0 && len(b) > 0 {
		aDigit, bDigit := isDigit(a[0]), isDigit(b[0])
		if aDigit && bDigit {
			aNum, aRest := takeDigits(a)
			bNum, bRest := takeDigits(b)
			if aNum != bNum {
				return aNum < bNum
			}
			a, b = aRest, bRest
			continue
		}
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		a, b = a[1:], b[1:]
	}
	return len(a) < len(b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func takeDigits(s string) (int64, string) {
	end := 0
	for end < len(s) && isDigit(s[end]) {
		end++
	}
	var n int64
	for i := 0; i < end; i++ {
		n = n*10 + int64(s[i]-'0')
	}
	return n, s[end:]
}
