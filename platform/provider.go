// Package platform provides OS-specific enumeration of processes and their
// descriptor tables. Two concrete providers — linux.go (procfs-based) and
// darwin.go (libproc/kqueue-based) — satisfy the Provider contract; exactly
// one is compiled in per target OS via build tags, so there is no runtime
// branching cost.
package platform

import "loof/model"

// Config holds the static, for-the-lifetime-of-the-provider options.
type Config struct {
	// AvoidStat skips every stat call: only path, slot, and mode are
	// recorded.
	AvoidStat bool
	// FollowSymlinks stats rather than lstats special entries and
	// numbered path descriptors.
	FollowSymlinks bool
}

// Provider is the platform introspection contract. It is also the
// interface the TUI collaborator consumes (it never enumerates the kernel
// directly).
type Provider interface {
	// ListProcesses enumerates every visible process with identity
	// fields populated and Files empty. Per-process failures (racy
	// exits) are swallowed; the result reflects whatever could be read.
	ListProcesses() ([]model.Process, error)

	// ListOpenFiles enumerates every descriptor pid holds, including
	// the Cwd/Rtd/Txt/Mem special entries, in the order: Cwd, Rtd, Txt,
	// Mem (first-seen path order), then numbered descriptors in
	// kernel-provided order.
	ListOpenFiles(pid uint32) ([]model.Descriptor, error)

	// ListNetworkConnections returns the network descriptors of one pid
	// when pid != nil, or a full-system join keyed on socket inode when
	// pid == nil.
	ListNetworkConnections(pid *uint32) ([]model.NetworkInfo, error)
}

// New returns the Provider for the running OS.
func New(cfg Config) Provider {
	return newPlatformProvider(cfg)
}
