package tui

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"loof/platform"
)

// Dispatch folds one Action into state, consulting provider only for the
// actions that need fresh kernel data (Select, Refresh). It is the single
// entry point the rendering/event loop is expected to call per keypress;
// this package does not run that loop itself.
func Dispatch(action Action, state *State, provider platform.Provider) {
	switch action.Kind {
	case ActionQuit:
		state.ShouldQuit = true
	case ActionSearchInput:
		state.SearchInput += string(action.Char)
		state.UpdateFilter()
	case ActionSearchBackspace:
		if l := len(state.SearchInput); l > 0 {
			state.SearchInput = state.SearchInput[:l-1]
		}
		state.UpdateFilter()
	case ActionSearchClear:
		state.SearchInput = ""
		state.UpdateFilter()
	case ActionMoveUp:
		state.MoveUp()
	case ActionMoveDown:
		state.MoveDown()
	case ActionPageUp:
		state.PageUp()
	case ActionPageDown:
		state.PageDown()
	case ActionSelect:
		state.SelectCurrent()
		if state.SelectedProcess != nil {
			if files, err := provider.ListOpenFiles(state.SelectedProcess.PID); err == nil {
				state.SelectedProcess.Files = files
			}
		}
	case ActionBack:
		state.GoBack()
	case ActionNextTab:
		state.NextTab()
	case ActionPrevTab:
		state.PrevTab()
	case ActionRefresh:
		state.Refresh(provider)
	case ActionYankSelected:
		if line, ok := state.YankSelectedLine(); ok {
			state.YankedLine = line
		}
	case ActionExportProcess:
		if state.SelectedProcess != nil {
			state.ExportData = state.ExportProcessData()
			state.ShouldQuit = true
		}
	}
}

// RunGuarded puts the controlling terminal into raw mode, invokes loop,
// and restores the terminal on every exit path — normal return, error
// return, or panic — before re-panicking so a crash still surfaces.
// The actual render/event loop (reading keys, drawing frames) lives
// outside this package; loop takes no arguments and runs while stdin is
// already in raw mode.
func RunGuarded(loop func() error) (err error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("tui: stdin is not a terminal")
	}

	oldState, rawErr := term.MakeRaw(fd)
	if rawErr != nil {
		return fmt.Errorf("tui: enter raw mode: %w", rawErr)
	}

	defer func() {
		restoreErr := term.Restore(fd, oldState)
		if r := recover(); r != nil {
			panic(r)
		}
		if err == nil {
			err = restoreErr
		}
	}()

	return loop()
}
