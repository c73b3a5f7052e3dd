package netsock

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/ymarkovitch/pcomn-go/netaddr"
)

// UDP is a connectionless datagram socket.
type UDP struct {
	*Basic
}

// NewUDP creates a datagram socket bound to addr.
func NewUDP(addr netaddr.SockAddr) (*UDP, error) {
	fd, err := unix.Socket(family(addr), unix.SOCK_DGRAM, 0)
	if err != nil {
		return nil, &SocketError{Op: "socket", Err: err}
	}
	u := &UDP{Basic: NewBasic(fd)}
	if err := u.Bind(addr); err != nil {
		u.Close()
		return nil, err
	}
	return u, nil
}

// Read receives one datagram, waiting up to timeout (negative means
// forever). On timeout it returns (nil, SockAddr{}, timeoutErr); on
// success it returns the datagram bytes and the sender's address.
func (u *UDP) Read(timeout time.Duration, infinite bool) ([]byte, netaddr.SockAddr, error) {
	fd, err := u.checkFD()
	if err != nil {
		return nil, netaddr.SockAddr{}, err
	}
	ready, err := u.Poll(unix.POLLIN, timeout, infinite)
	if err != nil {
		return nil, netaddr.SockAddr{}, err
	}
	if !ready {
		return nil, netaddr.SockAddr{}, newTimeout("recvfrom")
	}

	buf := make([]byte, 65536)
	n, sa, err := unix.Recvfrom(fd, buf, 0)
	if err != nil {
		return nil, netaddr.SockAddr{}, mapReceiveError(err)
	}
	peer, convErr := netaddr.FromSockaddr(sa)
	if convErr != nil {
		return nil, netaddr.SockAddr{}, &SocketError{Op: "recvfrom", Err: convErr}
	}
	return buf[:n], peer, nil
}

// SendMessage sends buf to peer. A 0 return means transient buffer
// pressure, not an error: the caller may retry.
func (u *UDP) SendMessage(buf []byte, peer netaddr.SockAddr) (int, error) {
	fd, err := u.checkFD()
	if err != nil {
		return 0, err
	}
	if err := unix.Sendto(fd, buf, 0, peer.ToSockaddr()); err != nil {
		if err == unix.EAGAIN || err == unix.ENOBUFS {
			return 0, nil
		}
		return 0, mapTransmitError(err)
	}
	return len(buf), nil
}
