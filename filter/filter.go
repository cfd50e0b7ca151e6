// Package filter implements the declarative CLI filter engine: process-level
// (pid/pgid/user/command) and file-level (inet/dir/dir_tree/names/size)
// predicates, composed with include/exclude lists and AND/OR semantics.
package filter

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"loof/errors"
	"loof/model"
)

// Config is the top-level filter set built from CLI flags. A nil field
// means that filter was not requested.
type Config struct {
	Pids    *PidFilter
	Pgids   *PgidFilter
	Users   *UserFilter
	Command *CommandFilter
	Inet    *InetFilter
	Size    *SizeFilter

	DirTree string
	Dir     string
	Names   []string

	AndMode bool
}

// PidFilter is a PID include/exclude set.
type PidFilter struct {
	Include []uint32
	Exclude []uint32
}

// PgidFilter is a PGID include/exclude set.
type PgidFilter struct {
	Include []uint32
	Exclude []uint32
}

// UserFilter is a username include/exclude set.
type UserFilter struct {
	Include []string
	Exclude []string
}

// CommandFilter is a command-name-prefix include/exclude set. The CLI
// grammar only ever supplies one token (no comma-splitting), matching -c.
type CommandFilter struct {
	Include []string
	Exclude []string
}

// SizeOp is the comparison operator a SizeFilter applies.
type SizeOp int

const (
	SizeExact SizeOp = iota
	SizeGreaterThan
	SizeLessThan
)

// SizeFilter matches a descriptor's SizeOff against a threshold.
type SizeFilter struct {
	Op    SizeOp
	Bytes uint64
}

// InetFilter matches network descriptors by IP version, protocol, host,
// and port, parsed from the `-i` spec grammar: [46][protocol][@host][:port].
type InetFilter struct {
	Protocol  string
	Host      string
	Port      uint16
	HasPort   bool
	IPVersion uint8
	HasIPVer  bool
}

// ParsePidFilter parses a comma-separated PID list; a leading `^` on a
// token excludes it. Empty tokens are skipped.
func ParsePidFilter(s string) (*PidFilter, error) {
	f := &PidFilter{}
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(tok, "^"); ok {
			pid, err := strconv.ParseUint(rest, 10, 32)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrParse, fmt.Sprintf("invalid PID: %s", rest))
			}
			f.Exclude = append(f.Exclude, uint32(pid))
			continue
		}
		pid, err := strconv.ParseUint(tok, 10, 32)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrParse, fmt.Sprintf("invalid PID: %s", tok))
		}
		f.Include = append(f.Include, uint32(pid))
	}
	return f, nil
}

// ParsePgidFilter parses a comma-separated PGID list, same grammar as
// ParsePidFilter.
func ParsePgidFilter(s string) (*PgidFilter, error) {
	f := &PgidFilter{}
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(tok, "^"); ok {
			pgid, err := strconv.ParseUint(rest, 10, 32)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrParse, fmt.Sprintf("invalid PGID: %s", rest))
			}
			f.Exclude = append(f.Exclude, uint32(pgid))
			continue
		}
		pgid, err := strconv.ParseUint(tok, 10, 32)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrParse, fmt.Sprintf("invalid PGID: %s", tok))
		}
		f.Include = append(f.Include, uint32(pgid))
	}
	return f, nil
}

// ParseUserFilter parses a comma-separated username list, `^`-excludes.
func ParseUserFilter(s string) *UserFilter {
	f := &UserFilter{}
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(tok, "^"); ok {
			f.Exclude = append(f.Exclude, rest)
			continue
		}
		f.Include = append(f.Include, tok)
	}
	return f
}

// ParseCommandFilter parses a single command-name-prefix token (no
// comma-splitting), `^`-excludes.
func ParseCommandFilter(s string) *CommandFilter {
	f := &CommandFilter{}
	tok := strings.TrimSpace(s)
	if tok == "" {
		return f
	}
	if rest, ok := strings.CutPrefix(tok, "^"); ok {
		f.Exclude = append(f.Exclude, rest)
		return f
	}
	f.Include = append(f.Include, tok)
	return f
}

// ParseSizeFilter parses "[+|-]SIZE[K|KB|M|MB|G|GB]". Returns nil, nil for
// an empty spec (no filter requested rather than a parse failure).
func ParseSizeFilter(s string) (*SizeFilter, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	op := SizeExact
	rest := s
	if r, ok := strings.CutPrefix(s, "+"); ok {
		op, rest = SizeGreaterThan, r
	} else if r, ok := strings.CutPrefix(s, "-"); ok {
		op, rest = SizeLessThan, r
	}
	rest = strings.TrimSpace(rest)

	numEnd := len(rest)
	for i, c := range rest {
		if c < '0' || c > '9' {
			numEnd = i
			break
		}
	}
	numStr, suffix := rest[:numEnd], rest[numEnd:]
	base, err := strconv.ParseUint(numStr, 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrParse, fmt.Sprintf("invalid size spec: %s", s))
	}

	var multiplier uint64
	switch strings.ToUpper(suffix) {
	case "":
		multiplier = 1
	case "K", "KB":
		multiplier = 1024
	case "M", "MB":
		multiplier = 1024 * 1024
	case "G", "GB":
		multiplier = 1024 * 1024 * 1024
	default:
		return nil, errors.New(errors.ErrParse, "parse size spec", fmt.Sprintf("unknown suffix: %s", suffix))
	}

	return &SizeFilter{Op: op, Bytes: base * multiplier}, nil
}

// ParseInetFilter parses the `-i` spec grammar: [46][protocol][@host][:port].
func ParseInetFilter(s string) *InetFilter {
	f := &InetFilter{}
	if s == "" {
		return f
	}
	remaining := s

	if remaining[0] == '4' || remaining[0] == '6' {
		f.IPVersion = remaining[0] - '0'
		f.HasIPVer = true
		remaining = remaining[1:]
	}

	protoEnd := strings.IndexAny(remaining, "@:")
	if protoEnd < 0 {
		protoEnd = len(remaining)
	}
	if protoEnd > 0 {
		f.Protocol = strings.ToUpper(remaining[:protoEnd])
	}
	remaining = remaining[protoEnd:]

	if strings.HasPrefix(remaining, "@") {
		remaining = remaining[1:]
		hostEnd := strings.IndexByte(remaining, ':')
		if hostEnd < 0 {
			hostEnd = len(remaining)
		}
		if hostEnd > 0 {
			f.Host = remaining[:hostEnd]
		}
		remaining = remaining[hostEnd:]
	}

	if strings.HasPrefix(remaining, ":") {
		remaining = remaining[1:]
		if port, err := strconv.ParseUint(remaining, 10, 16); err == nil {
			f.Port = uint16(port)
			f.HasPort = true
		}
	}

	return f
}

// MatchesFile checks whether a network descriptor matches this inet filter:
// network file type, optional IP version, optional protocol substring (via
// the descriptor's Node field, which carries the raw socket-table
// protocol tag), optional port and host substring match against Name.
func (f *InetFilter) MatchesFile(d model.Descriptor) bool {
	if !d.FileType.IsNetwork() {
		return false
	}

	if f.HasIPVer {
		switch f.IPVersion {
		case 4:
			if d.FileType.Kind != model.FTIPv4 {
				return false
			}
		case 6:
			if d.FileType.Kind != model.FTIPv6 {
				return false
			}
		}
	}

	if f.Protocol != "" {
		if !strings.Contains(strings.ToUpper(d.Node), f.Protocol) {
			return false
		}
	}

	if f.HasPort {
		portStr := fmt.Sprintf(":%d", f.Port)
		if !strings.Contains(d.Name, portStr) {
			return false
		}
	}

	if f.Host != "" {
		if !strings.Contains(d.Name, f.Host) {
			return false
		}
	}

	return true
}

// IsEmpty reports whether no filters at all are configured.
func (c *Config) IsEmpty() bool {
	return c.Pids == nil && c.Pgids == nil && c.Users == nil && c.Command == nil &&
		c.Inet == nil && c.DirTree == "" && c.Dir == "" && len(c.Names) == 0 && c.Size == nil
}

// MatchesProcess applies the process-level filters (pid, pgid, user,
// command). OR mode (default): any active, matching filter is sufficient.
// AND mode: every active filter must match.
func (c *Config) MatchesProcess(p model.Process) bool {
	if c.Pids == nil && c.Pgids == nil && c.Users == nil && c.Command == nil {
		return true
	}

	pidMatch := c.checkPid(p)
	pgidMatch := c.checkPgid(p)
	userMatch := c.checkUser(p)
	cmdMatch := c.checkCommand(p)

	if c.AndMode {
		pass := true
		if c.Pids != nil {
			pass = pass && pidMatch
		}
		if c.Pgids != nil {
			pass = pass && pgidMatch
		}
		if c.Users != nil {
			pass = pass && userMatch
		}
		if c.Command != nil {
			pass = pass && cmdMatch
		}
		return pass
	}

	any := false
	if c.Pids != nil {
		any = any || pidMatch
	}
	if c.Pgids != nil {
		any = any || pgidMatch
	}
	if c.Users != nil {
		any = any || userMatch
	}
	if c.Command != nil {
		any = any || cmdMatch
	}
	return any
}

// MatchesFile applies the file-level filters (inet, dir_tree, dir, names,
// size) with the same AND/OR composition rules. File-level filters have no
// exclude lists.
func (c *Config) MatchesFile(d model.Descriptor) bool {
	if c.Inet == nil && c.DirTree == "" && c.Dir == "" && len(c.Names) == 0 && c.Size == nil {
		return true
	}

	var results []bool
	if c.Inet != nil {
		results = append(results, c.Inet.MatchesFile(d))
	}
	if c.DirTree != "" {
		results = append(results, fileInDirTree(d.Name, c.DirTree))
	}
	if c.Dir != "" {
		results = append(results, fileInDir(d.Name, c.Dir))
	}
	if len(c.Names) > 0 {
		match := false
		for _, n := range c.Names {
			if d.Name == n {
				match = true
				break
			}
		}
		results = append(results, match)
	}
	if c.Size != nil {
		if d.SizeOff != nil {
			results = append(results, c.Size.matches(*d.SizeOff))
		} else {
			results = append(results, false)
		}
	}

	if len(results) == 0 {
		return true
	}

	if c.AndMode {
		for _, r := range results {
			if !r {
				return false
			}
		}
		return true
	}
	for _, r := range results {
		if r {
			return true
		}
	}
	return false
}

func (s *SizeFilter) matches(size uint64) bool {
	switch s.Op {
	case SizeGreaterThan:
		return size > s.Bytes
	case SizeLessThan:
		return size < s.Bytes
	default:
		return size == s.Bytes
	}
}

func (c *Config) checkPid(p model.Process) bool {
	f := c.Pids
	if f == nil {
		return true
	}
	if containsU32(f.Exclude, p.PID) {
		return false
	}
	if len(f.Include) == 0 {
		return true
	}
	return containsU32(f.Include, p.PID)
}

func (c *Config) checkPgid(p model.Process) bool {
	f := c.Pgids
	if f == nil {
		return true
	}
	if p.PGID == nil {
		return len(f.Include) == 0
	}
	pgid := *p.PGID
	if containsU32(f.Exclude, pgid) {
		return false
	}
	if len(f.Include) == 0 {
		return true
	}
	return containsU32(f.Include, pgid)
}

func (c *Config) checkUser(p model.Process) bool {
	f := c.Users
	if f == nil {
		return true
	}
	if containsStr(f.Exclude, p.User) {
		return false
	}
	if len(f.Include) == 0 {
		return true
	}
	return containsStr(f.Include, p.User)
}

func (c *Config) checkCommand(p model.Process) bool {
	f := c.Command
	if f == nil {
		return true
	}
	for _, ex := range f.Exclude {
		if strings.HasPrefix(p.Comm, ex) {
			return false
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, in := range f.Include {
		if strings.HasPrefix(p.Comm, in) {
			return true
		}
	}
	return false
}

func containsU32(s []uint32, v uint32) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func containsStr(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// fileInDirTree reports whether file is inside dir or any of its
// subdirectories.
func fileInDirTree(file, dir string) bool {
	prefix := dir
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return strings.HasPrefix(file, prefix) || file == dir
}

// fileInDir reports whether file's immediate parent directory is dir
// (non-recursive).
func fileInDir(file, dir string) bool {
	parent := filepath.Dir(file)
	return parent == dir
}
