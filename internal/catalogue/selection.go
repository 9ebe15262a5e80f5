package catalogue

import "sync"

// Selection holds the currently chosen program and level. Choosing a program
// resets the level to the Trial Class default in the same critical section,
// so no reader ever observes the new program paired with the old level.
type Selection struct {
	mu      sync.Mutex
	program string
	level   string
}

// NewSelection returns an empty selection: no program chosen, level at the
// Trial Class default.
func NewSelection() *Selection {
	return &Selection{level: LevelTrialClass}
}

// SelectProgram chooses a program and defaults the level atomically.
func (s *Selection) SelectProgram(programID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.program = programID
	s.level = LevelTrialClass
}

// SelectLevel chooses a level within the current program.
func (s *Selection) SelectLevel(levelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = levelID
}

// Clear drops the program choice and restores the default level.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.program = ""
	s.level = LevelTrialClass
}

// Current returns the chosen program and level as one consistent pair.
func (s *Selection) Current() (program, level string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.program, s.level
}

// View is the full set of derived navigation structures for one catalogue
// and one selection. It has no identity of its own: recompute it whenever
// either input changes.
type View struct {
	Programs []ProgramEntry `json:"programs"`
	Levels   []LevelEntry   `json:"levels"`
	Groups   []UnitGroup    `json:"groups"`
}

// View recomputes the derived structures for the current selection over the
// given canonical list. Pure with respect to its inputs: identical items,
// table, and selection always produce identical output.
func (s *Selection) View(items []Item, table []ProgramMeta) View {
	program, level := s.Current()
	view := View{Programs: Programs(items, table)}
	if program == "" {
		return view
	}
	view.Levels = Levels(items, program)
	view.Groups = UnitGroups(items, program, level)
	return view
}
