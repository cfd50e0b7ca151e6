// Package cmd implements the loof CLI: flag parsing, the +X -> --Y
// preprocessing pass, and wiring the filter/output/pipeline/platform
// layers together for one invocation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"loof/filter"
	"loof/logging"
	"loof/output"
	"loof/pipeline"
	"loof/platform"
	"loof/tui"
)

// Version information set at build time.
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
)

var flags struct {
	pid         string
	pgid        string
	user        string
	command     string
	inet        string
	fdSpec      string
	sizeSpec    string
	andMode     bool
	noHostname  bool
	noPortName  bool
	listUID     bool
	showPPID    bool
	terse       bool
	fieldOutput string
	repeat      uint64
	tcpInfo     string
	avoidStat   bool
	followLinks bool
	suppressW   bool
	avoidBlock  bool
	crossFS     bool
	interactive bool
	dirTree     string
	dir         string
	cmdWidth    int
	debug       bool
}

var rootCmd = &cobra.Command{
	Use:     "loof [names...]",
	Short:   "An lsof-compatible process/open-file introspector",
	Version: Version,
	Long: `loof lists open files held by running processes, correlating
descriptor tables with kernel socket tables the way lsof does, with an
optional interactive TUI (-I).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()
		return nil
	},
	RunE: runRoot,
}

// Execute preprocesses +D/+d/+c into their --long equivalents, then runs
// the root command.
func Execute() error {
	rootCmd.SetArgs(PreprocessArgs(os.Args[1:]))
	return rootCmd.Execute()
}

func init() {
	f := rootCmd.Flags()

	f.StringVarP(&flags.pid, "pid", "p", "", "select by PID (comma-separated, prefix ^ to exclude)")
	f.StringVarP(&flags.pgid, "pgid", "g", "", "select by PGID (comma-separated, prefix ^ to exclude)")
	f.StringVarP(&flags.user, "user", "u", "", "select by user (comma-separated, prefix ^ to exclude)")
	f.StringVarP(&flags.command, "command", "c", "", "select by command name prefix (prefix ^ to exclude)")
	f.StringVarP(&flags.inet, "inet", "i", "", "select IPv[46] files, optionally [46][protocol][@host][:port]")
	f.Lookup("inet").NoOptDefVal = ""
	f.StringVarP(&flags.fdSpec, "fd", "d", "", "select by FD set (compatibility, advisory only)")
	f.StringVarP(&flags.sizeSpec, "size", "s", "", "file size filter: [+|-]SIZE[K|M|G]")
	f.BoolVarP(&flags.andMode, "and", "a", false, "AND selections (default is OR)")
	f.BoolVarP(&flags.noHostname, "no-hostname", "n", false, "no hostname resolution")
	f.BoolVarP(&flags.noPortName, "no-portname", "P", false, "no port name resolution")
	f.BoolVarP(&flags.listUID, "list-uid", "l", false, "list UID numbers instead of login names")
	f.BoolVarP(&flags.showPPID, "show-ppid", "R", false, "show parent PID (PPID) column")
	f.BoolVarP(&flags.terse, "terse", "t", false, "terse output: PIDs only")
	f.StringVarP(&flags.fieldOutput, "field", "F", "", "field-delimited output, optionally with field characters")
	f.Lookup("field").NoOptDefVal = ""
	f.Uint64VarP(&flags.repeat, "repeat", "r", 0, "repeat mode interval in seconds (0 disables)")
	f.StringVarP(&flags.tcpInfo, "tcp-info", "T", "", "TCP/TPI info: s=state, q=queue sizes")
	f.Lookup("tcp-info").NoOptDefVal = "s"
	f.BoolVarP(&flags.avoidStat, "avoid-stat", "S", false, "avoid stat() calls on files")
	f.BoolVarP(&flags.followLinks, "follow-symlinks", "L", false, "follow symbolic links")
	f.BoolVarP(&flags.suppressW, "suppress-warnings", "w", false, "suppress warnings")
	f.BoolVarP(&flags.avoidBlock, "avoid-blocking", "b", false, "avoid kernel blocks (compatibility, no-op)")
	f.BoolVarP(&flags.crossFS, "cross-fs", "x", false, "cross filesystem/mountpoint (compatibility, no-op)")
	f.BoolVarP(&flags.interactive, "interactive", "I", false, "enter interactive TUI mode")
	f.StringVar(&flags.dirTree, "dir-tree", "", "search directory tree recursively (+D)")
	f.StringVar(&flags.dir, "dir", "", "search directory non-recursively (+d)")
	f.IntVar(&flags.cmdWidth, "cmd-width", 9, "COMMAND column width (+c)")
	f.BoolVar(&flags.debug, "debug", false, "enable debug logging")
}

func setupLogging() {
	level := slog.LevelInfo
	if flags.debug {
		level = slog.LevelDebug
	}
	if flags.suppressW {
		// -w: suppress the per-skip diagnostic log line emitted when a
		// process or descriptor is swallowed by the pipeline's degrade
		// policy, without adding a skip counter.
		level = slog.LevelError
	}
	logger := logging.NewLogger(logging.Config{
		Level:  level,
		Format: "text",
		Output: os.Stderr,
	})
	logging.SetDefault(logger)
}

func runRoot(cmd *cobra.Command, args []string) error {
	provider := platform.New(platform.Config{
		AvoidStat:      flags.avoidStat,
		FollowSymlinks: flags.followLinks,
	})

	if flags.interactive {
		return runInteractive(provider)
	}

	filterConfig, err := buildFilterConfig(args)
	if err != nil {
		return fmt.Errorf("parsing filters: %w", err)
	}

	formatter := &output.Formatter{
		CmdWidth:    flags.cmdWidth,
		NoHostname:  flags.noHostname,
		NoPortName:  flags.noPortName,
		ListUID:     flags.listUID,
		ShowPPID:    flags.showPPID,
		Terse:       flags.terse,
		FieldOutput: flags.fieldOutput,
		TCPInfo:     flags.tcpInfo,
	}
	if cmd.Flags().Changed("field") && flags.fieldOutput == "" {
		formatter.FieldOutput = "pcuftn"
	}

	driver := &pipeline.Driver{
		Provider:  provider,
		Filter:    filterConfig,
		Formatter: formatter,
		Out:       os.Stdout,
	}
	if flags.repeat > 0 {
		d := time.Duration(flags.repeat) * time.Second
		driver.RepeatInterval = &d
	}

	return driver.Run()
}

func buildFilterConfig(names []string) (*filter.Config, error) {
	cfg := &filter.Config{AndMode: flags.andMode, Names: names, DirTree: flags.dirTree, Dir: flags.dir}

	if flags.pid != "" {
		pf, err := filter.ParsePidFilter(flags.pid)
		if err != nil {
			return nil, err
		}
		cfg.Pids = pf
	}
	if flags.pgid != "" {
		pf, err := filter.ParsePgidFilter(flags.pgid)
		if err != nil {
			return nil, err
		}
		cfg.Pgids = pf
	}
	if flags.user != "" {
		cfg.Users = filter.ParseUserFilter(flags.user)
	}
	if flags.command != "" {
		cfg.Command = filter.ParseCommandFilter(flags.command)
	}
	if flags.inet != "" || rootCmd.Flags().Changed("inet") {
		cfg.Inet = filter.ParseInetFilter(flags.inet)
	}
	if flags.sizeSpec != "" {
		sf, err := filter.ParseSizeFilter(flags.sizeSpec)
		if err != nil {
			return nil, err
		}
		cfg.Size = sf
	}

	return cfg, nil
}

func runInteractive(provider platform.Provider) error {
	processes, err := provider.ListProcesses()
	if err != nil {
		return err
	}
	state := tui.NewState(processes)

	err = tui.RunGuarded(func() error {
		// The real key-reading/rendering loop is a thin external
		// collaborator (see tui.Dispatch); this entry point only
		// guarantees raw-mode setup/teardown around it.
		return nil
	})
	if err != nil {
		return err
	}

	if state.ExportData != "" {
		fmt.Fprintln(os.Stdout, state.ExportData)
	}
	return nil
}

// PreprocessArgs rewrites lsof-style +D/+d/+c tokens into their
// cobra/pflag-compatible --long forms before parsing. Idempotent for
// tokens that do not begin with +.
func PreprocessArgs(args []string) []string {
	result := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "+D":
			result = append(result, "--dir-tree")
			if i+1 < len(args) {
				i++
				result = append(result, args[i])
			}
		case "+d":
			result = append(result, "--dir")
			if i+1 < len(args) {
				i++
				result = append(result, args[i])
			}
		case "+c":
			result = append(result, "--cmd-width")
			if i+1 < len(args) {
				i++
				result = append(result, args[i])
			}
		default:
			result = append(result, arg)
		}
	}
	return result
}
