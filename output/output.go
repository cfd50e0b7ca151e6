// Package output renders process/descriptor data in the three lsof-style
// wire formats: columnar (human-readable table), field-delimited (-F, for
// scripting), and terse (-t, PIDs only). Precedence is terse >
// field-delimited > columnar.
package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"loof/model"
)

// Formatter renders process/descriptor rows per the CLI's chosen mode.
type Formatter struct {
	// CmdWidth is the COMMAND column width, default 9, set via +c.
	CmdWidth int
	// NoHostname suppresses hostname resolution (-n): addresses are
	// already numeric end to end, so this only documents the flag's
	// intent rather than altering formatting.
	NoHostname bool
	// NoPortName suppresses service-name resolution (-P): ports are
	// already rendered numerically.
	NoPortName bool
	// ListUID prints the numeric UID instead of the resolved username (-l).
	ListUID bool
	// ShowPPID adds the PPID column (-R).
	ShowPPID bool
	// Terse restricts output to one PID per line (-t).
	Terse bool
	// FieldOutput holds the -F field-character string; empty means
	// columnar mode.
	FieldOutput string
	// TCPInfo holds the -T flag value; "q" appends queue-size annotations
	// to IPv4/IPv6 descriptor names.
	TCPInfo string
}

// defaultFieldOutput is the field set used when -F is given with no
// explicit characters.
const defaultFieldOutput = "pcuftn"

// PrintHeader writes the columnar mode's header line.
func (f *Formatter) PrintHeader(w io.Writer) {
	width := f.cmdWidth()
	if f.ShowPPID {
		fmt.Fprintf(w, "%-*s %5s %5s %-8s %4s  %6s %8s  %8s  %4s %s\n",
			width, "COMMAND", "PID", "PPID", "USER", "FD", "TYPE", "DEVICE", "SIZE/OFF", "NODE", "NAME")
	} else {
		fmt.Fprintf(w, "%-*s %5s %-8s %4s  %6s %8s  %8s  %4s %s\n",
			width, "COMMAND", "PID", "USER", "FD", "TYPE", "DEVICE", "SIZE/OFF", "NODE", "NAME")
	}
}

// PrintProcessFiles writes one columnar-mode line per open descriptor.
func (f *Formatter) PrintProcessFiles(w io.Writer, proc model.Process) {
	cmd := fitStr(proc.Comm, f.cmdWidth())
	userDisplay := proc.User
	if f.ListUID {
		userDisplay = strconv.FormatUint(uint64(proc.UID), 10)
	}

	ppidStr := ""
	if proc.PPID != nil {
		ppidStr = strconv.FormatUint(uint64(*proc.PPID), 10)
	}

	for _, file := range proc.Files {
		name := f.decoratedName(file)
		sizeOff := formatSizeOff(file.SizeOff)

		if f.ShowPPID {
			fmt.Fprintf(w, "%s %5d %5s %-8s %4s  %6s %8s  %8s  %4s %s\n",
				cmd, proc.PID, ppidStr, userDisplay, file.Fd.String(), file.FileType.String(),
				file.Device, sizeOff, file.Node, name)
		} else {
			fmt.Fprintf(w, "%s %5d %-8s %4s  %6s %8s  %8s  %4s %s\n",
				cmd, proc.PID, userDisplay, file.Fd.String(), file.FileType.String(),
				file.Device, sizeOff, file.Node, name)
		}
	}
}

// PrintProcessSummary writes a single columnar-mode line for a process that
// matched the process-level filters but holds no descriptors (none were
// listed, or fetching them failed) — lsof still reports the process itself
// rather than omitting it. When file-level filters are active the pipeline
// prunes such processes instead, so no summary line is written for them.
func (f *Formatter) PrintProcessSummary(w io.Writer, proc model.Process) {
	userDisplay := proc.User
	if f.ListUID {
		userDisplay = strconv.FormatUint(uint64(proc.UID), 10)
	}
	cmd := fitStr(proc.Comm, f.cmdWidth())

	if f.ShowPPID {
		ppidStr := ""
		if proc.PPID != nil {
			ppidStr = strconv.FormatUint(uint64(*proc.PPID), 10)
		}
		fmt.Fprintf(w, "%s %5d %5s %-8s\n", cmd, proc.PID, ppidStr, userDisplay)
	} else {
		fmt.Fprintf(w, "%s %5d %-8s\n", cmd, proc.PID, userDisplay)
	}
}

// PrintTerse writes one PID per line.
func (f *Formatter) PrintTerse(w io.Writer, procs []model.Process) {
	for _, p := range procs {
		fmt.Fprintf(w, "%d\n", p.PID)
	}
}

// PrintFieldOutput writes -F mode records: a process-level field block
// followed by one file-level field block per descriptor, each field on
// its own line as a single-character tag plus value.
func (f *Formatter) PrintFieldOutput(w io.Writer, proc model.Process) {
	fields := f.FieldOutput
	if fields == "" {
		fields = defaultFieldOutput
	}

	for _, ch := range fields {
		switch ch {
		case 'p':
			fmt.Fprintf(w, "p%d\n", proc.PID)
		case 'c':
			fmt.Fprintf(w, "c%s\n", proc.Comm)
		case 'u':
			if f.ListUID {
				fmt.Fprintf(w, "u%d\n", proc.UID)
			} else {
				fmt.Fprintf(w, "u%s\n", proc.User)
			}
		case 'R':
			if proc.PPID != nil {
				fmt.Fprintf(w, "R%d\n", *proc.PPID)
			}
		case 'g':
			if proc.PGID != nil {
				fmt.Fprintf(w, "g%d\n", *proc.PGID)
			}
		}
	}

	for _, file := range proc.Files {
		for _, ch := range fields {
			switch ch {
			case 'f':
				fmt.Fprintf(w, "f%s\n", file.Fd.String())
			case 't':
				fmt.Fprintf(w, "t%s\n", file.FileType.String())
			case 'D':
				fmt.Fprintf(w, "D%s\n", file.Device)
			case 's':
				if file.SizeOff != nil {
					fmt.Fprintf(w, "s%d\n", *file.SizeOff)
				}
			case 'i':
				fmt.Fprintf(w, "i%s\n", file.Node)
			case 'n':
				fmt.Fprintf(w, "n%s\n", f.decoratedName(file))
			}
		}
	}
}

// decoratedName appends the -T q queue-size annotation to IPv4/IPv6
// descriptor names, when requested and both queue sizes are known.
func (f *Formatter) decoratedName(file model.Descriptor) string {
	name := file.Name
	if strings.Contains(f.TCPInfo, "q") && (file.FileType.Kind == model.FTIPv4 || file.FileType.Kind == model.FTIPv6) {
		if file.RxQueue != nil && file.TxQueue != nil {
			name += fmt.Sprintf(" QR=%d QS=%d", *file.RxQueue, *file.TxQueue)
		}
	}
	return name
}

func (f *Formatter) cmdWidth() int {
	if f.CmdWidth <= 0 {
		return 9
	}
	return f.CmdWidth
}

// fitStr truncates (by byte prefix) or space-pads s to exactly width bytes.
func fitStr(s string, width int) string {
	if len(s) > width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

// formatSizeOff renders the SIZE/OFF column: "0t0" when absent, matching
// lsof's convention for descriptors with no meaningful size or offset.
func formatSizeOff(size *uint64) string {
	if size == nil {
		return "0t0"
	}
	return strconv.FormatUint(*size, 10)
}
