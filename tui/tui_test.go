package tui

import (
	"testing"

	"loof/model"
)

type fakeProvider struct {
	processes []model.Process
	files     map[uint32][]model.Descriptor
}

func (f *fakeProvider) ListProcesses() ([]model.Process, error) {
	return f.processes, nil
}

func (f *fakeProvider) ListOpenFiles(pid uint32) ([]model.Descriptor, error) {
	return f.files[pid], nil
}

func (f *fakeProvider) ListNetworkConnections(pid *uint32) ([]model.NetworkInfo, error) {
	return nil, nil
}

func TestDispatchQuit(t *testing.T) {
	s := NewState(nil)
	Dispatch(Action{Kind: ActionQuit}, s, &fakeProvider{})
	if !s.ShouldQuit {
		t.Error("expected ShouldQuit after ActionQuit")
	}
}

func TestDispatchSearchInput(t *testing.T) {
	s := NewState([]model.Process{{PID: 1, Comm: "nginx"}})
	Dispatch(Action{Kind: ActionSearchInput, Char: 'n'}, s, &fakeProvider{})
	if s.SearchInput != "n" {
		t.Errorf("SearchInput = %q, want %q", s.SearchInput, "n")
	}
}

func TestDispatchSearchBackspace(t *testing.T) {
	s := NewState(nil)
	s.SearchInput = "abc"
	Dispatch(Action{Kind: ActionSearchBackspace}, s, &fakeProvider{})
	if s.SearchInput != "ab" {
		t.Errorf("SearchInput = %q, want %q", s.SearchInput, "ab")
	}
}

func TestDispatchSelectFetchesFiles(t *testing.T) {
	p := &fakeProvider{
		processes: []model.Process{{PID: 42, Comm: "sshd"}},
		files: map[uint32][]model.Descriptor{
			42: {{Name: "/etc/ssh"}},
		},
	}
	s := NewState(p.processes)
	Dispatch(Action{Kind: ActionSelect}, s, p)
	if s.SelectedProcess == nil {
		t.Fatal("expected a selected process")
	}
	if len(s.SelectedProcess.Files) != 1 {
		t.Errorf("expected files populated from provider, got %v", s.SelectedProcess.Files)
	}
}

func TestDispatchExportSetsQuit(t *testing.T) {
	s := NewState([]model.Process{{PID: 1, Comm: "init"}})
	Dispatch(Action{Kind: ActionSelect}, s, &fakeProvider{})
	Dispatch(Action{Kind: ActionExportProcess}, s, &fakeProvider{})
	if !s.ShouldQuit {
		t.Error("expected ExportProcess to set ShouldQuit")
	}
	if s.ExportData == "" {
		t.Error("expected ExportData to be populated")
	}
}

func TestDispatchRefresh(t *testing.T) {
	p := &fakeProvider{processes: []model.Process{{PID: 1}, {PID: 2}, {PID: 3}}}
	s := NewState(nil)
	Dispatch(Action{Kind: ActionRefresh}, s, p)
	if s.TotalCount != 3 {
		t.Errorf("TotalCount = %d, want 3", s.TotalCount)
	}
}
