package netsock

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sys/unix"

	"github.com/ymarkovitch/pcomn-go/metrics"
	"github.com/ymarkovitch/pcomn-go/netaddr"
)

// AcceptFlags suppress specific Accept error conditions, turning them into
// a (nil, zero SockAddr, nil) "no connection right now" result instead of
// an error.
type AcceptFlags uint

const (
	// AllowEAGAIN returns (nil, zero SockAddr, nil) instead of an error
	// when a non-blocking Accept has nothing to accept.
	AllowEAGAIN AcceptFlags = 1 << iota
	// AllowEINTR returns (nil, zero SockAddr, nil) instead of an error
	// when Accept was interrupted by a signal.
	AllowEINTR
)

func family(addr netaddr.SockAddr) int {
	if addr.Family == netaddr.FamilyV6 {
		return unix.AF_INET6
	}
	return unix.AF_INET
}

// Server is a socket bound and listening for incoming stream connections.
type Server struct {
	*Basic
}

// isWildcardOrLoopback reports whether addr is the unspecified address
// (bind to every local interface) or the loopback address, the two cases
// that never need checking against the host's configured interfaces.
func isWildcardOrLoopback(addr netaddr.SockAddr) bool {
	if addr.Family == netaddr.FamilyV6 {
		if addr.V6 == (netaddr.IPv6{}) {
			return true
		}
		return addr.V6 == netaddr.FromGroups([8]uint16{0, 0, 0, 0, 0, 0, 0, 1})
	}
	if addr.V4 == 0 {
		return true
	}
	return addr.V4.Octet(0) == 127
}

// checkBindAddress validates addr against netaddr.LocalSubnets(), unless
// addr is a wildcard or loopback address. It fails open (returns nil) if
// LocalSubnets itself errors, since an inability to enumerate interfaces
// shouldn't block binding to an address the caller has deliberately chosen.
func checkBindAddress(addr netaddr.SockAddr) error {
	if isWildcardOrLoopback(addr) {
		return nil
	}
	v4subs, v6subs, err := netaddr.LocalSubnets()
	if err != nil {
		return nil
	}
	if addr.Family == netaddr.FamilyV6 {
		for _, s := range v6subs {
			if s.Match(addr.V6) {
				return nil
			}
		}
		return fmt.Errorf("%w: %s", ErrBindAddress, addr)
	}
	for _, s := range v4subs {
		if s.Match(addr.V4) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrBindAddress, addr)
}

// NewServer creates a bound (not yet listening) server socket. With
// reuseAddr, SO_REUSEADDR is set before bind. The bind address is first
// validated against the host's configured interfaces (see
// checkBindAddress), rejecting an address this host could never receive
// traffic on before a single syscall is made.
func NewServer(addr netaddr.SockAddr, reuseAddr bool) (*Server, error) {
	if err := checkBindAddress(addr); err != nil {
		return nil, err
	}
	fd, err := unix.Socket(family(addr), unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, &SocketError{Op: "socket", Err: err}
	}
	s := &Server{Basic: NewBasic(fd)}
	if reuseAddr {
		if err := s.SetsockoptInt(unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			s.Close()
			return nil, err
		}
	}
	if err := s.Bind(addr); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Listen marks the socket ready to accept connections, with the given
// backlog.
func (s *Server) Listen(backlog int) error {
	fd, err := s.checkFD()
	if err != nil {
		return err
	}
	if err := unix.Listen(fd, backlog); err != nil {
		return &SocketError{Op: "listen", Err: err}
	}
	return nil
}

// Accept accepts a connection. With no flags set, and in blocking mode, it
// always returns either a valid connected Stream or an error. With
// AllowEAGAIN/AllowEINTR set, the corresponding transient condition yields
// (nil, zero SockAddr, nil) instead of an error.
func (s *Server) Accept(flags AcceptFlags) (*Stream, netaddr.SockAddr, error) {
	fd, err := s.checkFD()
	if err != nil {
		return nil, netaddr.SockAddr{}, err
	}

	nfd, sa, err := unix.Accept(fd)
	if err != nil {
		if flags&AllowEAGAIN != 0 && (err == unix.EAGAIN || err == unix.EWOULDBLOCK) {
			return nil, netaddr.SockAddr{}, nil
		}
		if flags&AllowEINTR != 0 && err == unix.EINTR {
			return nil, netaddr.SockAddr{}, nil
		}
		metrics.ErrorCount.With(prometheus.Labels{"type": "accept"}).Inc()
		return nil, netaddr.SockAddr{}, &SocketError{Op: "accept", Err: err}
	}

	peer, convErr := netaddr.FromSockaddr(sa)
	if convErr != nil {
		unix.Close(nfd)
		metrics.ErrorCount.With(prometheus.Labels{"type": "accept"}).Inc()
		return nil, netaddr.SockAddr{}, &SocketError{Op: "accept", Err: convErr}
	}
	metrics.AcceptsTotal.With(prometheus.Labels{"af": familyLabel(peer)}).Inc()
	return &Stream{Basic: NewBasic(nfd), peer: peer, acceptedAt: time.Now()}, peer, nil
}

func familyLabel(addr netaddr.SockAddr) string {
	if addr.Family == netaddr.FamilyV6 {
		return "inet6"
	}
	return "inet"
}
