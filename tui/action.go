// Package tui defines the contract the interactive collaborator is
// consumed through: a closed Action enum and a Dispatch function that
// folds an Action into State using a platform.Provider for any data it
// needs to refresh. The terminal-UI widgets themselves (tables, search
// view, detail view) are a separate rendering concern and out of scope
// here — this package only has to give that collaborator something
// stable to depend on.
package tui

// ActionKind discriminates the closed Action enum.
type ActionKind int

const (
	ActionQuit ActionKind = iota
	ActionSearchInput
	ActionSearchBackspace
	ActionSearchClear
	ActionMoveUp
	ActionMoveDown
	ActionPageUp
	ActionPageDown
	ActionSelect
	ActionBack
	ActionNextTab
	ActionPrevTab
	ActionRefresh
	ActionYankSelected
	ActionExportProcess
)

// Action is a single dispatchable user intent. Char is only meaningful
// for ActionSearchInput.
type Action struct {
	Kind ActionKind
	Char rune
}
