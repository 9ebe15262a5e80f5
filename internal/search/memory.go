package search

import (
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process fallback searcher used when Meilisearch is not
// configured or unreachable. It holds the current session records and scans
// them with case-insensitive substring matching.
type Memory struct {
	mu      sync.RWMutex
	records []SessionRecord
}

// NewMemory creates an empty in-memory searcher.
func NewMemory() *Memory {
	return &Memory{}
}

// Healthy always reports true; the in-process index has no remote dependency.
func (m *Memory) Healthy() bool {
	return true
}

// Replace swaps the full record set.
func (m *Memory) Replace(records []SessionRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = records
}

// Search scans all records for the query text across code, title, unit and
// objective. Matches on title or code rank above matches on the other fields.
func (m *Memory) Search(q Query) ([]Result, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(q.Text))

	type scored struct {
		rank int
		pos  int
		res  Result
	}
	var matches []scored
	for i, rec := range m.records {
		if q.Program != "" && rec.Program != q.Program {
			continue
		}
		if q.Level != "" && rec.Level != q.Level {
			continue
		}
		rank := matchRank(rec, needle)
		if rank == 0 {
			continue
		}
		matches = append(matches, scored{
			rank: rank,
			pos:  i,
			res: Result{
				Code:    rec.Code,
				Title:   rec.Title,
				Unit:    rec.Unit,
				Program: rec.Program,
				Level:   rec.Level,
				Snippet: rec.Objective,
			},
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].rank != matches[j].rank {
			return matches[i].rank > matches[j].rank
		}
		return matches[i].pos < matches[j].pos
	})

	total := len(matches)

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	start := q.Offset
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	results := make([]Result, 0, end-start)
	for _, match := range matches[start:end] {
		results = append(results, match.res)
	}
	return results, total, nil
}

// matchRank returns 0 for no match, 2 for a title or code hit, 1 otherwise.
// An empty needle matches everything so filtered browsing still works.
func matchRank(rec SessionRecord, needle string) int {
	if needle == "" {
		return 1
	}
	if strings.Contains(strings.ToLower(rec.Title), needle) ||
		strings.Contains(strings.ToLower(rec.Code), needle) {
		return 2
	}
	if strings.Contains(strings.ToLower(rec.Unit), needle) ||
		strings.Contains(strings.ToLower(rec.Objective), needle) {
		return 1
	}
	return 0
}
