package catalogue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Loader pulls the raw record collection from the spreadsheet endpoint and
// produces the canonical item list. It holds no state between loads; callers
// own the returned slice.
type Loader struct {
	sourceURL string
	client    *http.Client
}

// NewLoader creates a loader for the given source URL. The URL is treated as
// an opaque fetch target; no validation beyond using it.
func NewLoader(sourceURL string, timeout time.Duration) *Loader {
	return &Loader{
		sourceURL: sourceURL,
		client:    &http.Client{Timeout: timeout},
	}
}

// Fetch issues one request and returns the normalized, filtered catalogue.
// Transport failure, a non-2xx response, or a body that is not a JSON array
// all yield an empty list and an error; no partial results are returned.
func (l *Loader) Fetch(ctx context.Context) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.sourceURL, nil)
	if err != nil {
		return []Item{}, fmt.Errorf("build catalogue request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return []Item{}, fmt.Errorf("fetch catalogue: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return []Item{}, fmt.Errorf("fetch catalogue: unexpected status %d", resp.StatusCode)
	}

	var records []RawRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return []Item{}, fmt.Errorf("decode catalogue: %w", err)
	}

	return NormalizeAll(records), nil
}

// NormalizeAll converts a raw collection into canonical items: the leaked
// header row, if any, is discarded, every remaining record is normalized,
// and rows without a usable program id are dropped.
func NormalizeAll(records []RawRecord) []Item {
	if len(records) > 0 && isHeaderRow(records[0]) {
		records = records[1:]
	}

	items := make([]Item, 0, len(records))
	for _, record := range records {
		item := Normalize(record)
		if !validProgramID(item.ProgramID) {
			continue
		}
		items = append(items, item)
	}
	return items
}

// isHeaderRow detects a sheet header accidentally duplicated as the first
// data row: a record whose cell value equals its own column name. Checked
// once per load; a real program literally named "program_id" would be a
// false positive, which is accepted.
func isHeaderRow(record RawRecord) bool {
	return stringValue(record["topic_title"]) == "topic_title" ||
		stringValue(record["program_id"]) == "program_id"
}

// validProgramID rejects the placeholder program ids that mark unusable rows.
func validProgramID(id string) bool {
	switch id {
	case programUncategorized, "0", "undefined":
		return false
	}
	return true
}
