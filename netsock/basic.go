package netsock

import (
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ymarkovitch/pcomn-go/netaddr"
)

const invalidFD int32 = -1

// Basic owns a single kernel socket descriptor. Close is idempotent and
// safe to call from any goroutine: the descriptor is atomically swapped to
// invalid before the OS close() call, so two concurrent Close() calls
// never race on the same fd, and a second call is simply a no-op.
type Basic struct {
	fd int32
}

// NewBasic wraps an already-created socket descriptor.
func NewBasic(fd int) *Basic { return &Basic{fd: int32(fd)} }

// FD returns the current descriptor, or -1 if the socket is closed.
func (b *Basic) FD() int { return int(atomic.LoadInt32(&b.fd)) }

// IsCreated reports whether the socket currently owns a live descriptor.
func (b *Basic) IsCreated() bool { return b.FD() >= 0 }

// Close closes the underlying descriptor exactly once. Calling Close
// again, from any goroutine, is a safe no-op.
func (b *Basic) Close() error {
	fd := atomic.SwapInt32(&b.fd, invalidFD)
	if fd < 0 {
		return nil
	}
	return unix.Close(int(fd))
}

func (b *Basic) checkFD() (int, error) {
	fd := b.FD()
	if fd < 0 {
		return 0, &SocketError{Op: "checkFD", Err: fmt.Errorf("socket is not created or already closed")}
	}
	return fd, nil
}

// Bind binds the socket to addr.
func (b *Basic) Bind(addr netaddr.SockAddr) error {
	fd, err := b.checkFD()
	if err != nil {
		return err
	}
	if err := unix.Bind(fd, addr.ToSockaddr()); err != nil {
		return &SocketError{Op: "bind", Err: err}
	}
	return nil
}

// Shutdown shuts down part or all of a full-duplex connection. which is
// one of unix.SHUT_RD, SHUT_WR, SHUT_RDWR. It never throws merely because
// the socket is already closed.
func (b *Basic) Shutdown(which int) bool {
	fd := b.FD()
	if fd < 0 {
		return false
	}
	return unix.Shutdown(fd, which) == nil
}

// SetsockoptInt sets an integer socket option.
func (b *Basic) SetsockoptInt(level, opt, value int) error {
	fd, err := b.checkFD()
	if err != nil {
		return err
	}
	if err := unix.SetsockoptInt(fd, level, opt, value); err != nil {
		return &SocketError{Op: "setsockopt", Err: err}
	}
	return nil
}

// GetsockoptInt reads an integer socket option.
func (b *Basic) GetsockoptInt(level, opt int) (int, error) {
	fd, err := b.checkFD()
	if err != nil {
		return 0, err
	}
	v, err := unix.GetsockoptInt(fd, level, opt)
	if err != nil {
		return 0, &SocketError{Op: "getsockopt", Err: err}
	}
	return v, nil
}

// Buffers returns the current (receive, send) buffer sizes.
func (b *Basic) Buffers() (rcv, snd int) {
	rcv, _ = b.GetsockoptInt(unix.SOL_SOCKET, unix.SO_RCVBUF)
	snd, _ = b.GetsockoptInt(unix.SOL_SOCKET, unix.SO_SNDBUF)
	return rcv, snd
}

// SetBuffers sets the receive and/or send buffer size; a negative value
// leaves that buffer unchanged.
func (b *Basic) SetBuffers(rcv, snd int) error {
	if rcv >= 0 {
		if err := b.SetsockoptInt(unix.SOL_SOCKET, unix.SO_RCVBUF, rcv); err != nil {
			return err
		}
	}
	if snd >= 0 {
		if err := b.SetsockoptInt(unix.SOL_SOCKET, unix.SO_SNDBUF, snd); err != nil {
			return err
		}
	}
	return nil
}

// SockAddr returns the local address the socket is bound to.
func (b *Basic) SockAddr() (netaddr.SockAddr, error) {
	fd, err := b.checkFD()
	if err != nil {
		return netaddr.SockAddr{}, err
	}
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return netaddr.SockAddr{}, &SocketError{Op: "getsockname", Err: err}
	}
	return netaddr.FromSockaddr(sa)
}

// Poll waits up to timeout (negative means forever) for events (a
// unix.POLLIN/POLLOUT mask) to become ready. It returns false on timeout
// and never returns an error solely because the deadline passed.
func (b *Basic) Poll(events int16, timeout time.Duration, infinite bool) (bool, error) {
	fd, err := b.checkFD()
	if err != nil {
		return false, err
	}
	ms := -1
	if !infinite {
		ms = int(timeout.Milliseconds())
	}
	fds := []unix.PollFd{{Fd: int32(fd), Events: events}}
	for {
		n, err := unix.Poll(fds, ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, &SocketError{Op: "poll", Err: err}
		}
		if n == 0 {
			return false, nil
		}
		return fds[0].Revents&events != 0, nil
	}
}
