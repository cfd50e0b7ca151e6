//go:build linux

package platform

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/prometheus/procfs"

	"loof/errors"
	"loof/logging"
	"loof/model"
)

// linuxProvider enumerates /proc. Grounded on prometheus/procfs for process
// and socket-table reads, with numbered-descriptor classification walked
// by hand the way a real lsof-style Go tool (DataDog's pkg/util/lsof) does
// it, since procfs has no typed fd-target classification of its own.
type linuxProvider struct {
	cfg Config
	fs  procfs.FS
}

func newPlatformProvider(cfg Config) Provider {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		logging.Default().Debug("procfs unavailable", "err", err)
	}
	return &linuxProvider{cfg: cfg, fs: fs}
}

func procRoot() string {
	if root := os.Getenv("HOST_PROC"); root != "" {
		return root
	}
	return "/proc"
}

func (p *linuxProvider) ListProcesses() ([]model.Process, error) {
	procs, err := p.fs.AllProcs()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrPlatform, "list_processes")
	}

	out := make([]model.Process, 0, len(procs))
	for _, proc := range procs {
		pr, ok := p.buildProcess(proc)
		if !ok {
			continue
		}
		out = append(out, pr)
	}
	return out, nil
}

func (p *linuxProvider) buildProcess(proc procfs.Proc) (model.Process, bool) {
	stat, err := proc.NewStat()
	if err != nil {
		// racy exit between AllProcs() and here; skip silently.
		return model.Process{}, false
	}

	pid := uint32(proc.PID)

	var ppid *uint32
	if stat.PPID > 0 {
		v := uint32(stat.PPID)
		ppid = &v
	}
	var pgid *uint32
	if stat.PGRP > 0 {
		v := uint32(stat.PGRP)
		pgid = &v
	}

	uid, username := resolveUser(proc.PID)

	comm := stat.Comm
	if comm == "" {
		comm, _ = proc.Comm()
	}

	cmdline, _ := proc.CmdLine()

	return model.Process{
		PID:     pid,
		PPID:    ppid,
		PGID:    pgid,
		UID:     uid,
		User:    username,
		Comm:    comm,
		Command: strings.Join(cmdline, " "),
	}, true
}

// resolveUser reads the owning uid off the /proc/<pid> directory entry
// (the kernel sets it to the process's real uid) and resolves it via the
// system user database, falling back to the decimal uid on miss.
func resolveUser(pid int) (uint32, string) {
	info, err := os.Stat(filepath.Join(procRoot(), strconv.Itoa(pid)))
	var uid uint32
	if err == nil {
		if st, ok := info.Sys().(*syscall.Stat_t); ok {
			uid = st.Uid
		}
	}
	if u, err := user.LookupId(strconv.FormatUint(uint64(uid), 10)); err == nil && u.Username != "" {
		return uid, u.Username
	}
	return uid, strconv.FormatUint(uint64(uid), 10)
}

func (p *linuxProvider) ListOpenFiles(pid uint32) ([]model.Descriptor, error) {
	base := filepath.Join(procRoot(), strconv.FormatUint(uint64(pid), 10))
	if _, err := os.Stat(base); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithPID(err, errors.ErrProcessNotFound, "list_open_files", pid)
		}
		return nil, errors.WrapWithPID(err, errors.ErrPermissionDenied, "list_open_files", pid)
	}

	var out []model.Descriptor
	if d, ok := p.specialEntry(base, "cwd", model.FdCwd); ok {
		out = append(out, d)
	}
	if d, ok := p.specialEntry(base, "root", model.FdRtd); ok {
		out = append(out, d)
	}
	if d, ok := p.specialEntry(base, "exe", model.FdTxt); ok {
		out = append(out, d)
	}
	out = append(out, p.memEntries(base)...)

	socketMap := p.buildSocketMap()

	fdDir := filepath.Join(base, "fd")
	entries, err := os.ReadDir(fdDir)
	if err != nil {
		logging.Default().Debug("fd directory unreadable", "pid", pid, "err", err)
		return out, nil
	}
	sort.Slice(entries, func(i, j int) bool {
		ni, _ := strconv.Atoi(entries[i].Name())
		nj, _ := strconv.Atoi(entries[j].Name())
		return ni < nj
	})

	for _, e := range entries {
		n, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		d, ok := p.numberedEntry(base, n, socketMap)
		if !ok {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (p *linuxProvider) specialEntry(base, name string, kind model.FdKind) (model.Descriptor, bool) {
	link := filepath.Join(base, name)
	target, _ := os.Readlink(link)

	d := model.Descriptor{Fd: model.Fd{Kind: kind}, Name: target}
	if p.cfg.AvoidStat {
		d.FileType = model.FileType{Kind: model.FTUnknown}
		return d, true
	}

	ft, device, node, sizeOff, linkTarget := p.classifyLink(link)
	d.FileType = ft
	d.Device = device
	d.Node = node
	d.SizeOff = sizeOff
	d.LinkTarget = linkTarget
	return d, true
}

// classifyLink stats or lstats a /proc fd-style symlink depending on
// FollowSymlinks. Default (lstat) sees the magic symlink itself, which
// classifies as LINK; follow_symlinks resolves through to the real target.
func (p *linuxProvider) classifyLink(link string) (ft model.FileType, device, node string, sizeOff *uint64, linkTarget *string) {
	var st syscall.Stat_t
	var err error
	if p.cfg.FollowSymlinks {
		err = syscall.Stat(link, &st)
	} else {
		err = syscall.Lstat(link, &st)
	}
	if err != nil {
		return model.FileType{Kind: model.FTUnknown}, "", "", nil, nil
	}

	ft = classifyMode(st.Mode)
	device = formatDevice(uint64(st.Dev))
	node = strconv.FormatUint(st.Ino, 10)
	size := uint64(st.Size)
	sizeOff = &size
	if ft.Kind == model.FTLink {
		if target, rerr := os.Readlink(link); rerr == nil {
			linkTarget = &target
		}
	}
	return
}

func (p *linuxProvider) memEntries(base string) []model.Descriptor {
	data, err := os.ReadFile(filepath.Join(base, "maps"))
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var out []model.Descriptor
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 6 {
			continue
		}
		path := fields[5]
		if path == "" || strings.HasPrefix(path, "[") || seen[path] {
			continue
		}
		seen[path] = true

		d := model.Descriptor{Fd: model.Fd{Kind: model.FdMem}, Name: path, FileType: model.FileType{Kind: model.FTReg}}
		if !p.cfg.AvoidStat {
			var st syscall.Stat_t
			if syscall.Stat(path, &st) == nil {
				d.FileType = classifyMode(st.Mode)
				d.Device = formatDevice(uint64(st.Dev))
				d.Node = strconv.FormatUint(st.Ino, 10)
				size := uint64(st.Size)
				d.SizeOff = &size
			}
		}
		out = append(out, d)
	}
	return out
}

func (p *linuxProvider) numberedEntry(base string, n int, socketMap map[uint64]model.SocketEntry) (model.Descriptor, bool) {
	link := filepath.Join(base, "fd", strconv.Itoa(n))
	target, err := os.Readlink(link)
	if err != nil {
		// fd vanished between ReadDir and here; skip it.
		return model.Descriptor{}, false
	}

	mode := readFdMode(filepath.Join(base, "fdinfo", strconv.Itoa(n)))
	d := model.Descriptor{Fd: model.Fd{Kind: model.FdNumbered, Number: n, Mode: mode}, Mode: &mode}

	switch {
	case strings.HasPrefix(target, "socket:["), strings.HasPrefix(target, "net:["):
		inode := parseBracketedInode(target)
		if entry, ok := socketMap[inode]; ok {
			d.FileType = socketFileType(entry.Protocol)
			d.Node = entry.Protocol.String()
			d.Name = socketName(inode, entry)
			tx, rx := entry.TxQueue, entry.RxQueue
			d.TxQueue, d.RxQueue = &tx, &rx
		} else {
			d.FileType = model.FileType{Kind: model.FTSock}
			d.Node = strconv.FormatUint(inode, 10)
			d.Name = fmt.Sprintf("%s:[%d]", target[:strings.IndexByte(target, ':')], inode)
		}
	case strings.HasPrefix(target, "pipe:["):
		inode := parseBracketedInode(target)
		d.FileType = model.FileType{Kind: model.FTPipe}
		d.Node = strconv.FormatUint(inode, 10)
		d.Name = fmt.Sprintf("pipe:[%d]", inode)
	case strings.HasPrefix(target, "anon_inode:"):
		label := strings.TrimPrefix(target, "anon_inode:")
		d.FileType = model.FileType{Kind: model.FTUnknown, Label: label}
		d.Name = fmt.Sprintf("anon_inode:[%s]", label)
	case strings.HasPrefix(target, "/memfd:"):
		label := strings.TrimPrefix(target, "/memfd:")
		d.FileType = model.FileType{Kind: model.FTReg}
		d.Name = "memfd:" + label
	case !strings.HasPrefix(target, "/") && strings.Contains(target, ":["):
		label := target[:strings.Index(target, ":[")]
		d.FileType = model.FileType{Kind: model.FTUnknown, Label: label}
		d.Name = fmt.Sprintf("%s:[%d]", label, parseBracketedInode(target))
	default:
		if p.cfg.AvoidStat {
			d.FileType = model.FileType{Kind: model.FTUnknown}
			d.Name = target
			break
		}
		ft, device, node, sizeOff, linkTarget := p.classifyLink(link)
		d.FileType = ft
		d.Device = device
		d.Node = node
		d.SizeOff = sizeOff
		d.LinkTarget = linkTarget
		d.Name = target
	}
	return d, true
}

// readFdMode decodes the "flags:" line of /proc/pid/fdinfo/fd. The value is
// octal with leading zeros stripped before parsing; a non-octal value falls
// back to decimal. Bottom two bits select Read/Write/ReadWrite/Unknown.
func readFdMode(fdinfoPath string) model.AccessMode {
	data, err := os.ReadFile(fdinfoPath)
	if err != nil {
		return model.AccessUnknown
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "flags:") {
			continue
		}
		raw := strings.TrimSpace(strings.TrimPrefix(line, "flags:"))
		trimmed := strings.TrimLeft(raw, "0")
		if trimmed == "" {
			trimmed = "0"
		}
		v, err := strconv.ParseUint(trimmed, 8, 64)
		if err != nil {
			v, err = strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return model.AccessUnknown
			}
		}
		switch v & 0x3 {
		case 0:
			return model.AccessRead
		case 1:
			return model.AccessWrite
		case 2:
			return model.AccessReadWrite
		default:
			return model.AccessUnknown
		}
	}
	return model.AccessUnknown
}

func parseBracketedInode(target string) uint64 {
	start := strings.IndexByte(target, '[')
	end := strings.IndexByte(target, ']')
	if start < 0 || end < 0 || end <= start {
		return 0
	}
	v, _ := strconv.ParseUint(target[start+1:end], 10, 64)
	return v
}

func socketFileType(proto model.Protocol) model.FileType {
	switch proto {
	case model.ProtoTCP, model.ProtoUDP:
		return model.FileType{Kind: model.FTIPv4}
	case model.ProtoTCP6, model.ProtoUDP6:
		return model.FileType{Kind: model.FTIPv6}
	case model.ProtoUnix:
		return model.FileType{Kind: model.FTUnix}
	default:
		return model.FileType{Kind: model.FTSock}
	}
}

// socketName renders the descriptor Name field for a matched socket-table
// entry: "<laddr>:<lport> -> <raddr>:<rport> (<qualifier>)" for TCP/UDP,
// the bound path (or "unix socket inode=<n>") for unix-domain sockets.
func socketName(inode uint64, e model.SocketEntry) string {
	if e.Protocol == model.ProtoUnix {
		if e.Path != "" {
			return e.Path
		}
		return fmt.Sprintf("unix socket inode=%d", inode)
	}
	qualifier := e.Protocol.String()
	if e.Protocol == model.ProtoTCP || e.Protocol == model.ProtoTCP6 {
		qualifier = e.State.String()
	}
	return fmt.Sprintf("%s:%d -> %s:%d (%s)", e.LocalAddr, e.LocalPort, e.RemoteAddr, e.RemotePort, qualifier)
}

// buildSocketMap reads the five kernel net tables in one pass. Built fresh
// per list_open_files call and discarded; never promoted to shared state.
func (p *linuxProvider) buildSocketMap() map[uint64]model.SocketEntry {
	m := make(map[uint64]model.SocketEntry)

	if rows, err := p.fs.NetTCP(); err == nil {
		for _, r := range rows {
			m[r.Inode] = model.SocketEntry{
				Protocol: model.ProtoTCP, LocalAddr: r.LocalAddr.String(), LocalPort: uint16(r.LocalPort),
				RemoteAddr: r.RemAddr.String(), RemotePort: uint16(r.RemPort),
				State: mapTCPState(r.St), TxQueue: r.TxQueue, RxQueue: r.RxQueue,
			}
		}
	}
	if rows, err := p.fs.NetTCP6(); err == nil {
		for _, r := range rows {
			m[r.Inode] = model.SocketEntry{
				Protocol: model.ProtoTCP6, LocalAddr: r.LocalAddr.String(), LocalPort: uint16(r.LocalPort),
				RemoteAddr: r.RemAddr.String(), RemotePort: uint16(r.RemPort),
				State: mapTCPState(r.St), TxQueue: r.TxQueue, RxQueue: r.RxQueue,
			}
		}
	}
	if rows, err := p.fs.NetUDP(); err == nil {
		for _, r := range rows {
			m[r.Inode] = model.SocketEntry{
				Protocol: model.ProtoUDP, LocalAddr: r.LocalAddr.String(), LocalPort: uint16(r.LocalPort),
				RemoteAddr: r.RemAddr.String(), RemotePort: uint16(r.RemPort),
				TxQueue: r.TxQueue, RxQueue: r.RxQueue,
			}
		}
	}
	if rows, err := p.fs.NetUDP6(); err == nil {
		for _, r := range rows {
			m[r.Inode] = model.SocketEntry{
				Protocol: model.ProtoUDP6, LocalAddr: r.LocalAddr.String(), LocalPort: uint16(r.LocalPort),
				RemoteAddr: r.RemAddr.String(), RemotePort: uint16(r.RemPort),
				TxQueue: r.TxQueue, RxQueue: r.RxQueue,
			}
		}
	}
	if uds, err := p.fs.NetUNIX(); err == nil {
		for _, r := range uds.Rows {
			m[r.Inode] = model.SocketEntry{Protocol: model.ProtoUnix, Path: r.Path}
		}
	}
	return m
}

// mapTCPState follows include/net/tcp_states.h. The kernel's numeric
// "Close" state (7) maps to TCPClosed, displayed as CLOSED — never the raw
// kernel token.
func mapTCPState(raw uint64) model.TCPState {
	switch raw {
	case 1:
		return model.TCPState{Kind: model.TCPEstablished}
	case 2:
		return model.TCPState{Kind: model.TCPSynSent}
	case 3:
		return model.TCPState{Kind: model.TCPSynRecv}
	case 4:
		return model.TCPState{Kind: model.TCPFinWait1}
	case 5:
		return model.TCPState{Kind: model.TCPFinWait2}
	case 6:
		return model.TCPState{Kind: model.TCPTimeWait}
	case 7:
		return model.TCPState{Kind: model.TCPClosed}
	case 8:
		return model.TCPState{Kind: model.TCPCloseWait}
	case 9:
		return model.TCPState{Kind: model.TCPLastAck}
	case 10:
		return model.TCPState{Kind: model.TCPListen}
	case 11:
		return model.TCPState{Kind: model.TCPClosing}
	default:
		return model.TCPState{Kind: model.TCPUnknown, Raw: strconv.FormatUint(raw, 10)}
	}
}

func classifyMode(mode uint32) model.FileType {
	switch mode & syscall.S_IFMT {
	case syscall.S_IFREG:
		return model.FileType{Kind: model.FTReg}
	case syscall.S_IFDIR:
		return model.FileType{Kind: model.FTDir}
	case syscall.S_IFCHR:
		return model.FileType{Kind: model.FTChr}
	case syscall.S_IFBLK:
		return model.FileType{Kind: model.FTBlk}
	case syscall.S_IFIFO:
		return model.FileType{Kind: model.FTFifo}
	case syscall.S_IFSOCK:
		return model.FileType{Kind: model.FTSock}
	case syscall.S_IFLNK:
		return model.FileType{Kind: model.FTLink}
	default:
		return model.FileType{Kind: model.FTUnknown}
	}
}

// formatDevice implements the procfs device-string formula: major =
// ((dev>>8)&0xfff) | ((dev>>32)&^0xfff), minor = (dev&0xff) |
// ((dev>>12)&^0xff).
func formatDevice(dev uint64) string {
	major := ((dev >> 8) & 0xfff) | ((dev >> 32) &^ 0xfff)
	minor := (dev & 0xff) | ((dev >> 12) &^ 0xff)
	return fmt.Sprintf("%d,%d", major, minor)
}

func (p *linuxProvider) ListNetworkConnections(pid *uint32) ([]model.NetworkInfo, error) {
	socketMap := p.buildSocketMap()

	if pid != nil {
		files, err := p.ListOpenFiles(*pid)
		if err != nil {
			return nil, err
		}
		var out []model.NetworkInfo
		for _, f := range files {
			if f.FileType.IsNetwork() {
				out = append(out, model.NetworkInfo{PID: *pid, Descriptor: f})
			}
		}
		return out, nil
	}

	procs, err := p.fs.AllProcs()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrPlatform, "list_network_connections")
	}

	inodeToPID := make(map[uint64]uint32)
	for _, proc := range procs {
		targets, err := proc.FileDescriptorTargets()
		if err != nil {
			continue
		}
		for _, t := range targets {
			if !strings.HasPrefix(t, "socket:[") {
				continue
			}
			inode := parseBracketedInode(t)
			if _, exists := inodeToPID[inode]; !exists {
				inodeToPID[inode] = uint32(proc.PID)
			}
		}
	}

	var out []model.NetworkInfo
	for inode, entry := range socketMap {
		d := model.Descriptor{
			Fd:       model.Fd{Kind: model.FdNumbered},
			FileType: socketFileType(entry.Protocol),
			Node:     entry.Protocol.String(),
			Name:     socketName(inode, entry),
		}
		tx, rx := entry.TxQueue, entry.RxQueue
		d.TxQueue, d.RxQueue = &tx, &rx
		out = append(out, model.NetworkInfo{PID: inodeToPID[inode], Descriptor: d})
	}
	return out, nil
}
