// Package catalogue turns loosely structured spreadsheet rows into a typed,
// navigable curriculum catalogue.
package catalogue

import (
	"strconv"
	"strings"
)

// Canonical sentinel values. Rows carrying an unusable program id are dropped
// by the loader; level and topic sentinels are displayed as-is.
const (
	LevelTrialClass = "Trial Class"
	LevelUnassigned = "Unassigned"
	TopicGeneral    = "General"
	UntitledSession = "Untitled Session"

	programUncategorized = "Uncategorized"
)

// RawRecord is one row as returned by the spreadsheet endpoint. The schema is
// not enforced upstream: keys may be renamed, missing, or belong to an older
// generation of the sheet, and values arrive as strings or numbers.
type RawRecord map[string]any

// Item is a curriculum session after normalization. It is the only shape the
// derivation logic consumes and is never mutated once produced.
type Item struct {
	ProgramID       string `json:"program_id"`
	ProgramIdentity string `json:"program_identity"`
	LevelID         string `json:"level_id"`

	// Order is the numeric sort key for sessions within a level. When the
	// sheet carries a non-numeric session identifier its original text is
	// preserved in OrderLabel and Order falls back to 0; sorting always uses
	// Order, display prefers OrderLabel when set.
	Order      int    `json:"session_order"`
	OrderLabel string `json:"session_label,omitempty"`

	UniqueCode        string `json:"unique_code"`
	TopicTitle        string `json:"topic_title"`
	SubTopicTitle     string `json:"sub_topic_title"`
	PlanetTheme       string `json:"planet_theme"`
	LearningObjective string `json:"learning_objective"`
	ActivityBreakdown string `json:"activity_breakdown"`
	MasteryFocus      string `json:"mastery_focus"`

	// Teacher tools. Each holds zero or more semicolon-delimited links.
	LessonPlan     string `json:"link_lesson_plan,omitempty"`
	Deck           string `json:"link_deck,omitempty"`
	Syllabus       string `json:"link_syllabus,omitempty"`
	RubricForm     string `json:"link_rubric_form,omitempty"`
	Sample         string `json:"link_sample,omitempty"`
	ExplainerVideo string `json:"explainer_video,omitempty"`

	// Class assets, safe to hand to students.
	Starter           string `json:"link_starter,omitempty"`
	IntroVideo        string `json:"link_video_intro,omitempty"`
	LessonVideo       string `json:"link_video_materi,omitempty"`
	VirtualBackground string `json:"link_vbg,omitempty"`
}

// Normalize maps one raw row to exactly one Item. It never fails: absent or
// wrong-typed fields degrade to documented defaults instead of erroring.
func Normalize(raw RawRecord) Item {
	programID := stringValue(raw["program_id"])
	if programID == "" {
		programID = stringValue(raw["program_identity"])
	}
	if programID == "" {
		programID = programUncategorized
	}

	identity := stringValue(raw["program_identity"])
	if identity == "" {
		identity = programID
	}

	order, orderLabel := parseOrder(raw["session_order"])

	topic := stringValue(raw["topic_title"])
	if topic == "" {
		topic = TopicGeneral
	}
	// Newer sheets split the old single title column: topic_title became the
	// unit-like grouping key and sub-topic_title the session title.
	subTopic := stringValue(raw["sub-topic_title"])
	if subTopic == "" {
		subTopic = stringValue(raw["topic_title"])
	}
	if subTopic == "" {
		subTopic = UntitledSession
	}

	levelValue, levelPresent := raw["level_id"]

	return Item{
		ProgramID:       programID,
		ProgramIdentity: identity,
		LevelID:         normalizeLevel(levelValue, levelPresent),
		Order:           order,
		OrderLabel:      orderLabel,
		UniqueCode:      stringValue(raw["unique_code"]),

		TopicTitle:        topic,
		SubTopicTitle:     subTopic,
		PlanetTheme:       stringValue(raw["planet_theme"]),
		LearningObjective: stringValue(raw["learning_objective"]),
		ActivityBreakdown: stringValue(raw["activity_breakdown"]),
		MasteryFocus:      stringValue(raw["mastery_focus"]),

		LessonPlan:     linkField(raw, "link_lesson_plan"),
		Deck:           linkField(raw, "link_deck"),
		Syllabus:       linkField(raw, "link_syllabus", "teacher_tools"),
		RubricForm:     linkField(raw, "link_rubric_form"),
		Sample:         linkField(raw, "link_sample"),
		ExplainerVideo: linkField(raw, "explainer_video"),

		Starter:           linkField(raw, "link_starter", "class_assets"),
		IntroVideo:        linkField(raw, "link_video_intro"),
		LessonVideo:       linkField(raw, "link_video_materi"),
		VirtualBackground: linkField(raw, "link_vbg", ""),
	}
}

// normalizeLevel canonicalizes the level column. A present value of 0 (in any
// spelling the sheet produces) means Trial Class, so presence is checked
// explicitly rather than by falsiness; only a truly absent value maps to
// Unassigned.
func normalizeLevel(value any, present bool) string {
	if !present || value == nil {
		return LevelUnassigned
	}
	level := strings.TrimSpace(stringify(value))
	upper := strings.ToUpper(level)
	if level == "0" || level == "0.0" || upper == "TRIAL" || strings.Contains(upper, "TRIAL CLASS") {
		return LevelTrialClass
	}
	if level == "" {
		return LevelUnassigned
	}
	return level
}

// parseOrder resolves the session_order fallback chain: integer parse, then
// the original text preserved as a label, then zero.
func parseOrder(value any) (int, string) {
	switch v := value.(type) {
	case nil:
		return 0, ""
	case float64:
		return int(v), ""
	case int:
		return v, ""
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, ""
		}
		if n, err := strconv.Atoi(s); err == nil {
			return n, ""
		}
		// Sheets sometimes export "3.0" or "3a"; a leading integer run still
		// orders the session correctly.
		if n, ok := leadingInt(s); ok {
			return n, s
		}
		return 0, s
	default:
		return 0, ""
	}
}

func leadingInt(s string) (int, bool) {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// linkField reads a link column, consulting legacy column names only when the
// canonical column is empty, then strips placeholder values.
func linkField(raw RawRecord, key string, legacy ...string) string {
	value := stringValue(raw[key])
	for _, name := range legacy {
		if value != "" {
			break
		}
		value = stringValue(raw[name])
	}
	return normalizeLink(value)
}

// normalizeLink trims a stored link reference and collapses placeholder
// values (a bare hyphen, an em dash, or its UTF-8-mangled form) to empty.
func normalizeLink(link string) string {
	trimmed := strings.TrimSpace(link)
	if isPlaceholder(trimmed) {
		return ""
	}
	return trimmed
}

// isPlaceholder reports whether a trimmed value is one of the "no link here"
// markers people type into the sheet.
func isPlaceholder(trimmed string) bool {
	switch trimmed {
	case "", "-", "—", "â€”":
		return true
	}
	return false
}

// stringValue renders a scalar cell as a string, treating absent and nil as
// empty. Numbers are formatted the way the sheet displays them (no trailing
// ".0" on whole numbers).
func stringValue(value any) string {
	if value == nil {
		return ""
	}
	return stringify(value)
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
