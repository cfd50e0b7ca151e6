package model

// Protocol is the socket-table protocol tag.
type Protocol int

const (
	ProtoTCP Protocol = iota
	ProtoTCP6
	ProtoUDP
	ProtoUDP6
	ProtoUnix
)

func (p Protocol) String() string {
	switch p {
	case ProtoTCP:
		return "TCP"
	case ProtoTCP6:
		return "TCP6"
	case ProtoUDP:
		return "UDP"
	case ProtoUDP6:
		return "UDP6"
	case ProtoUnix:
		return "unix"
	default:
		return "?"
	}
}

// TCPStateKind discriminates the TCP state enumeration.
type TCPStateKind int

const (
	TCPListen TCPStateKind = iota
	TCPEstablished
	TCPCloseWait
	TCPTimeWait
	TCPSynSent
	TCPSynRecv
	TCPFinWait1
	TCPFinWait2
	TCPClosing
	TCPLastAck
	TCPClosed
	TCPUnknown
)

// TCPState is the closed TCP-state set. Unknown carries the raw kernel
// token it could not classify.
type TCPState struct {
	Kind TCPStateKind
	Raw  string
}

// String renders the name the user sees. The kernel's "Close" state is
// intentionally displayed as CLOSED, never as the raw kernel token.
func (s TCPState) String() string {
	switch s.Kind {
	case TCPListen:
		return "LISTEN"
	case TCPEstablished:
		return "ESTABLISHED"
	case TCPCloseWait:
		return "CLOSE_WAIT"
	case TCPTimeWait:
		return "TIME_WAIT"
	case TCPSynSent:
		return "SYN_SENT"
	case TCPSynRecv:
		return "SYN_RECV"
	case TCPFinWait1:
		return "FIN_WAIT1"
	case TCPFinWait2:
		return "FIN_WAIT2"
	case TCPClosing:
		return "CLOSING"
	case TCPLastAck:
		return "LAST_ACK"
	case TCPClosed:
		return "CLOSED"
	default:
		if s.Raw != "" {
			return s.Raw
		}
		return "UNKNOWN"
	}
}

// SocketEntry is a single row of the provider's per-call inode→socket
// table. Never observable outside one list_open_files call.
type SocketEntry struct {
	Protocol Protocol

	LocalAddr  string
	LocalPort  uint16
	RemoteAddr string
	RemotePort uint16

	// Path is the bound path of a unix-domain socket; empty when
	// unbound.
	Path string

	State TCPState

	TxQueue uint64
	RxQueue uint64
}

// NetworkInfo is a network descriptor attributed to the process that holds
// it; returned by Provider.ListNetworkConnections, both for one pid and for
// the system-wide join.
type NetworkInfo struct {
	PID        uint32
	Descriptor Descriptor
}
