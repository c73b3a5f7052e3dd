package netdiag

import "fmt"

// TCPState is the kernel's TCP connection state, as returned in the
// tcp_info.tcpi_state field.
// https://datatracker.ietf.org/doc/draft-ietf-tcpm-rfc793bis/ and
// uapi/linux/tcp.h
type TCPState uint8

const (
	Invalid     TCPState = 0
	Established TCPState = 1
	SynSent     TCPState = 2
	SynRecv     TCPState = 3
	FinWait1    TCPState = 4
	FinWait2    TCPState = 5
	TimeWait    TCPState = 6
	Close       TCPState = 7
	CloseWait   TCPState = 8
	LastAck     TCPState = 9
	Listen      TCPState = 10
	Closing     TCPState = 11
)

var tcpStateName = map[TCPState]string{
	Invalid:     "INVALID",
	Established: "ESTABLISHED",
	SynSent:     "SYN_SENT",
	SynRecv:     "SYN_RECV",
	FinWait1:    "FIN_WAIT1",
	FinWait2:    "FIN_WAIT2",
	TimeWait:    "TIME_WAIT",
	Close:       "CLOSE",
	CloseWait:   "CLOSE_WAIT",
	LastAck:     "LAST_ACK",
	Listen:      "LISTEN",
	Closing:     "CLOSING",
}

func (s TCPState) String() string {
	if name, ok := tcpStateName[s]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN_STATE_%d", uint8(s))
}

// IsClosed reports whether s indicates the connection no longer exists from
// the kernel's perspective, so its cache entry can be evicted.
func (s TCPState) IsClosed() bool {
	return s == Close || s == Closing
}
