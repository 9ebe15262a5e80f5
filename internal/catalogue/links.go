package catalogue

import (
	"regexp"
	"strings"
)

// Link columns store zero or more references separated by semicolons. The
// helpers here split them apart and rewrite individual links into forms an
// inline preview frame can render.

var (
	youtubeWatch = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([^&]+)`)
	driveView    = regexp.MustCompile(`/view.*$`)
	driveEdit    = regexp.MustCompile(`/edit.*$`)
)

// SplitLinks breaks a stored link cell into individual links, preserving
// order and duplicates. Placeholder-only cells yield nothing.
func SplitLinks(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	if isPlaceholder(trimmed) {
		return nil
	}
	parts := strings.Split(trimmed, ";")
	links := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			links = append(links, part)
		}
	}
	return links
}

// EmbedURL rewrites a link into its embeddable preview form: YouTube watch
// URLs become autoplay player URLs, Google Docs/Drive view and edit suffixes
// become /preview. Anything unrecognized passes through verbatim, so the
// rewrite is idempotent and never fails on malformed input.
func EmbedURL(raw string) string {
	link := strings.TrimSpace(raw)
	if match := youtubeWatch.FindStringSubmatch(link); match != nil {
		return "https://www.youtube.com/embed/" + match[1] + "?autoplay=1"
	}
	if strings.Contains(link, "docs.google.com") || strings.Contains(link, "drive.google.com") {
		link = driveView.ReplaceAllString(link, "/preview")
		link = driveEdit.ReplaceAllString(link, "/preview")
	}
	return link
}
