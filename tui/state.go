package tui

import (
	"fmt"
	"strconv"
	"strings"

	"loof/model"
	"loof/platform"
)

// ViewMode discriminates the two top-level TUI views.
type ViewMode int

const (
	ViewSearch ViewMode = iota
	ViewDetail
)

// DetailTab discriminates the detail view's tab strip.
type DetailTab int

const (
	TabOpenFiles DetailTab = iota
	TabNetwork
	TabFileTree
	TabSummary
)

// State is the data the rendering layer reads and Dispatch mutates. It
// carries no terminal handles of its own — those belong to whatever
// widget/rendering package consumes this contract.
type State struct {
	Mode        ViewMode
	SearchInput string

	AllProcesses    []model.Process
	FilteredIndices []int
	Selected        int

	SelectedProcess *model.Process
	DetailTab       DetailTab
	DetailSelected  int

	ShouldQuit bool
	ExportData string
	YankedLine string

	MatchCount int
	TotalCount int
}

// NewState seeds a State from an initial process snapshot.
func NewState(processes []model.Process) *State {
	indices := make([]int, len(processes))
	for i := range indices {
		indices[i] = i
	}
	return &State{
		Mode:            ViewSearch,
		AllProcesses:    processes,
		FilteredIndices: indices,
		MatchCount:      len(processes),
		TotalCount:      len(processes),
	}
}

// UpdateFilter re-scores AllProcesses against SearchInput. Matching is a
// case-insensitive substring test over "pid comm user"; there is no
// fuzzy-ranking library in this dependency set, so this stays a direct
// stdlib comparison rather than reaching for one.
func (s *State) UpdateFilter() {
	if s.SearchInput == "" {
		indices := make([]int, len(s.AllProcesses))
		for i := range indices {
			indices[i] = i
		}
		s.FilteredIndices = indices
	} else {
		query := strings.ToLower(s.SearchInput)
		var matched []int
		for i, p := range s.AllProcesses {
			haystack := strings.ToLower(fmt.Sprintf("%d %s %s", p.PID, p.Comm, p.User))
			if strings.Contains(haystack, query) {
				matched = append(matched, i)
			}
		}
		s.FilteredIndices = matched
	}

	s.MatchCount = len(s.FilteredIndices)
	if len(s.FilteredIndices) == 0 {
		s.Selected = -1
	} else {
		s.Selected = 0
	}
}

// Refresh reloads the process list from the provider.
func (s *State) Refresh(p platform.Provider) {
	processes, err := p.ListProcesses()
	if err != nil {
		return
	}
	s.TotalCount = len(processes)
	s.AllProcesses = processes
	s.UpdateFilter()
}

// SelectCurrent enters detail view for the highlighted search result.
func (s *State) SelectCurrent() {
	if s.Selected < 0 || s.Selected >= len(s.FilteredIndices) {
		return
	}
	idx := s.FilteredIndices[s.Selected]
	if idx < 0 || idx >= len(s.AllProcesses) {
		return
	}
	proc := s.AllProcesses[idx]
	s.SelectedProcess = &proc
	s.Mode = ViewDetail
	s.DetailTab = TabOpenFiles
	s.DetailSelected = 0
}

// GoBack returns to search view.
func (s *State) GoBack() {
	s.Mode = ViewSearch
	s.SelectedProcess = nil
}

// NextTab and PrevTab cycle the detail view's tab strip.
func (s *State) NextTab() {
	s.DetailTab = (s.DetailTab + 1) % 4
	s.DetailSelected = 0
}

func (s *State) PrevTab() {
	s.DetailTab = (s.DetailTab + 3) % 4
	s.DetailSelected = 0
}

func (s *State) detailItemCount() int {
	if s.SelectedProcess == nil {
		return 0
	}
	switch s.DetailTab {
	case TabOpenFiles:
		return len(s.SelectedProcess.Files)
	case TabNetwork:
		n := 0
		for _, f := range s.SelectedProcess.Files {
			if f.FileType.IsNetwork() {
				n++
			}
		}
		return n
	case TabFileTree:
		return len(s.SelectedProcess.Files)
	default:
		return 0
	}
}

func (s *State) moveSearch(delta int) {
	if len(s.FilteredIndices) == 0 {
		return
	}
	l := len(s.FilteredIndices)
	next := ((s.Selected+delta)%l + l) % l
	s.Selected = next
}

func (s *State) moveDetail(delta int) {
	count := s.detailItemCount()
	if count == 0 {
		return
	}
	next := s.DetailSelected + delta
	if next < 0 {
		next = 0
	}
	if next > count-1 {
		next = count - 1
	}
	s.DetailSelected = next
}

// MoveUp/MoveDown/PageUp/PageDown move the active list's cursor in
// whichever view is current.
func (s *State) MoveUp() {
	if s.Mode == ViewSearch {
		s.moveSearch(-1)
	} else {
		s.moveDetail(-1)
	}
}

func (s *State) MoveDown() {
	if s.Mode == ViewSearch {
		s.moveSearch(1)
	} else {
		s.moveDetail(1)
	}
}

func (s *State) PageUp() {
	if s.Mode == ViewSearch {
		s.moveSearch(-10)
	} else {
		s.moveDetail(-10)
	}
}

func (s *State) PageDown() {
	if s.Mode == ViewSearch {
		s.moveSearch(10)
	} else {
		s.moveDetail(10)
	}
}

// YankSelectedLine renders the currently highlighted descriptor as a
// single line, for the Ctrl+Y yank-to-clipboard-log action.
func (s *State) YankSelectedLine() (string, bool) {
	if s.SelectedProcess == nil {
		return "", false
	}
	files := s.SelectedProcess.Files
	if s.DetailSelected < 0 || s.DetailSelected >= len(files) {
		return "", false
	}
	f := files[s.DetailSelected]
	return fmt.Sprintf("%s %s %s %s", f.Fd.String(), f.FileType.String(), f.Node, f.Name), true
}

// ExportProcessData renders the selected process and its descriptors as a
// plain text block, for the Ctrl+E export-on-quit action.
func (s *State) ExportProcessData() string {
	if s.SelectedProcess == nil {
		return ""
	}
	p := s.SelectedProcess
	var b strings.Builder
	fmt.Fprintf(&b, "PID %d (%s) user=%s\n", p.PID, p.Comm, p.User)
	for _, f := range p.Files {
		b.WriteString(f.Fd.String())
		b.WriteString(" ")
		b.WriteString(f.FileType.String())
		b.WriteString(" ")
		b.WriteString(f.Name)
		b.WriteString("\n")
	}
	return b.String()
}

// FormatSelectedHeader is a small rendering helper widgets can reuse for
// the search view's status line: "N/M processes".
func (s *State) FormatSelectedHeader() string {
	return strconv.Itoa(s.MatchCount) + "/" + strconv.Itoa(s.TotalCount) + " processes"
}
