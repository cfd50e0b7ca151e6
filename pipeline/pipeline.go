// Package pipeline drives the single-threaded enumerate/filter/emit
// sequence: list processes, apply process-level filters, fetch each
// matching process's descriptor table, apply file-level filters, prune
// processes left with nothing to show, then emit in the configured
// output format. An optional repeat interval re-runs the whole sequence
// on a sleep loop.
package pipeline

import (
	"io"
	"time"

	"loof/errors"
	"loof/filter"
	"loof/logging"
	"loof/model"
	"loof/output"
	"loof/platform"
)

// Driver wires a Provider, a filter Config, and an output Formatter into
// one runnable pipeline.
type Driver struct {
	Provider  platform.Provider
	Filter    *filter.Config
	Formatter *output.Formatter
	Out       io.Writer

	// RepeatInterval re-runs RunOnce on a sleep loop when non-nil (-r).
	RepeatInterval *time.Duration
}

// Run executes the pipeline once, or repeatedly on RepeatInterval until
// RunOnce returns an error.
func (d *Driver) Run() error {
	for {
		if err := d.RunOnce(); err != nil {
			return err
		}
		if d.RepeatInterval == nil {
			return nil
		}
		time.Sleep(*d.RepeatInterval)
	}
}

// RunOnce performs one enumerate -> filter -> fetch -> filter -> prune ->
// emit pass.
func (d *Driver) RunOnce() error {
	processes, err := d.Provider.ListProcesses()
	if err != nil {
		return err
	}

	// Step 1: process-level filter.
	processes = filterProcesses(processes, d.Filter)

	hasFileFilters := d.Filter != nil && (d.Filter.Inet != nil || d.Filter.DirTree != "" ||
		d.Filter.Dir != "" || len(d.Filter.Names) > 0 || d.Filter.Size != nil)

	// Step 2: per-process descriptor fetch + file-level filter.
	for i := range processes {
		files, err := d.Provider.ListOpenFiles(processes[i].PID)
		if err != nil {
			// A process that exited between list_processes and here is a
			// routine race, not a degradation worth a diagnostic; anything
			// else (permission, a wedged kernel table) gets logged.
			if !errors.Is(err, errors.ErrNoSuchProcess) {
				log := logging.WithOperation(logging.WithProcess(logging.Default(), processes[i].PID), "list_open_files")
				log.Warn("skipping process", "err", err)
			}
			continue
		}
		if hasFileFilters {
			files = filterFiles(files, d.Filter)
		}
		processes[i].Files = files
	}

	// Step 3: prune processes left with no matching files, when file
	// filters were active.
	if hasFileFilters {
		kept := processes[:0]
		for _, p := range processes {
			if len(p.Files) > 0 {
				kept = append(kept, p)
			}
		}
		processes = kept
	}

	// Step 4: emit.
	d.emit(processes)
	return nil
}

func (d *Driver) emit(processes []model.Process) {
	switch {
	case d.Formatter.Terse:
		d.Formatter.PrintTerse(d.Out, processes)
	case d.Formatter.FieldOutput != "":
		for _, p := range processes {
			d.Formatter.PrintFieldOutput(d.Out, p)
		}
	default:
		d.Formatter.PrintHeader(d.Out)
		for _, p := range processes {
			if len(p.Files) == 0 {
				d.Formatter.PrintProcessSummary(d.Out, p)
			} else {
				d.Formatter.PrintProcessFiles(d.Out, p)
			}
		}
	}
}

func filterProcesses(procs []model.Process, cfg *filter.Config) []model.Process {
	if cfg == nil {
		return procs
	}
	kept := procs[:0]
	for _, p := range procs {
		if cfg.MatchesProcess(p) {
			kept = append(kept, p)
		}
	}
	return kept
}

func filterFiles(files []model.Descriptor, cfg *filter.Config) []model.Descriptor {
	if cfg == nil {
		return files
	}
	kept := files[:0]
	for _, f := range files {
		if cfg.MatchesFile(f) {
			kept = append(kept, f)
		}
	}
	return kept
}
