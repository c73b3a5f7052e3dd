package netsock

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ymarkovitch/pcomn-go/metrics"
	"github.com/ymarkovitch/pcomn-go/netaddr"
)

// Stream is a connection-oriented (TCP) socket, either accepted by a
// Server or created to connect out to a peer.
type Stream struct {
	*Basic

	peer netaddr.SockAddr

	// acceptedAt is set by Server.Accept, zero for an outbound Stream
	// created by NewStream/Connect. Close observes the connection's
	// lifetime into metrics.ConnectionDurationHistogram only when set.
	acceptedAt time.Time
}

// PeerAddr returns the address of the connected peer: the address passed
// to Connect, or the address Accept resolved from the kernel's accept()
// call. It is the zero SockAddr if the stream has not yet connected.
func (s *Stream) PeerAddr() netaddr.SockAddr { return s.peer }

// Close closes the underlying descriptor and, for a Stream returned by
// Server.Accept, records the connection's lifetime.
func (s *Stream) Close() error {
	if !s.acceptedAt.IsZero() {
		metrics.ConnectionDurationHistogram.Observe(time.Since(s.acceptedAt).Seconds())
	}
	return s.Basic.Close()
}

// NewStream wraps a not-yet-connected stream socket of the given family.
func NewStream(fam netaddr.Family) (*Stream, error) {
	f := unix.AF_INET
	if fam == netaddr.FamilyV6 {
		f = unix.AF_INET6
	}
	fd, err := unix.Socket(f, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, &SocketError{Op: "socket", Err: err}
	}
	return &Stream{Basic: NewBasic(fd)}, nil
}

// Connect connects to peer, waiting up to timeout (0 means infinite).
func (s *Stream) Connect(peer netaddr.SockAddr, timeout time.Duration) error {
	fd, err := s.checkFD()
	if err != nil {
		return err
	}

	if timeout > 0 {
		if err := unix.SetNonblock(fd, true); err != nil {
			return &SocketError{Op: "connect", Err: err}
		}
		defer unix.SetNonblock(fd, false)
	}
	err = unix.Connect(fd, peer.ToSockaddr())
	if err == nil {
		s.peer = peer
		return nil
	}
	if err != unix.EINPROGRESS {
		return &SocketError{Op: "connect", Err: fmt.Errorf("%w: %v", ErrConnectionError, err)}
	}

	ready, pollErr := s.Poll(unix.POLLOUT, timeout, timeout <= 0)
	if pollErr != nil {
		return pollErr
	}
	if !ready {
		return newTimeout("connect")
	}
	soErr, getErr := s.GetsockoptInt(unix.SOL_SOCKET, unix.SO_ERROR)
	if getErr != nil {
		return getErr
	}
	if soErr != 0 {
		return &SocketError{Op: "connect", Err: fmt.Errorf("%w: %v", ErrConnectionError, unix.Errno(soErr))}
	}
	s.peer = peer
	return nil
}

func (s *Stream) waitReadable(timeout time.Duration, haveTimeout bool) error {
	if !haveTimeout {
		return nil
	}
	ready, err := s.Poll(unix.POLLIN, timeout, false)
	if err != nil {
		return err
	}
	if !ready {
		return newTimeout("recv")
	}
	return nil
}

func (s *Stream) waitWritable(timeout time.Duration, haveTimeout bool) error {
	if !haveTimeout {
		return nil
	}
	ready, err := s.Poll(unix.POLLOUT, timeout, false)
	if err != nil {
		return err
	}
	if !ready {
		return newTimeout("send")
	}
	return nil
}

// Receive reads into buf, waiting up to timeout if haveTimeout (a negative
// Go duration is never used; callers pass haveTimeout=false for an
// infinite wait). Error mapping: ECONNRESET -> ErrSenderClosed, anything
// else -> ErrReceiveError.
func (s *Stream) Receive(buf []byte, timeout time.Duration, haveTimeout bool) (int, error) {
	fd, err := s.checkFD()
	if err != nil {
		return 0, err
	}
	if err := s.waitReadable(timeout, haveTimeout); err != nil {
		return 0, err
	}
	n, err := unix.Read(fd, buf)
	if err != nil {
		return 0, mapReceiveError(err)
	}
	return n, nil
}

// ReceiveVec reads scattered into bufs (readv).
func (s *Stream) ReceiveVec(bufs [][]byte, timeout time.Duration, haveTimeout bool) (int, error) {
	if len(bufs) == 0 {
		return 0, nil
	}
	fd, err := s.checkFD()
	if err != nil {
		return 0, err
	}
	if err := s.waitReadable(timeout, haveTimeout); err != nil {
		return 0, err
	}
	n, err := unix.Readv(fd, bufs)
	if err != nil {
		return 0, mapReceiveError(err)
	}
	return n, nil
}

// Transmit writes buf, waiting up to timeout if haveTimeout. Error
// mapping: EPIPE/ECONNRESET -> ErrReceiverClosed, anything else ->
// ErrTransmitError.
func (s *Stream) Transmit(buf []byte, timeout time.Duration, haveTimeout bool) (int, error) {
	fd, err := s.checkFD()
	if err != nil {
		return 0, err
	}
	if err := s.waitWritable(timeout, haveTimeout); err != nil {
		return 0, err
	}
	n, err := unix.Write(fd, buf)
	if err != nil {
		return 0, mapTransmitError(err)
	}
	return n, nil
}

// TransmitVec writes gathered from bufs (writev).
func (s *Stream) TransmitVec(bufs [][]byte, timeout time.Duration, haveTimeout bool) (int, error) {
	if len(bufs) == 0 {
		return 0, nil
	}
	fd, err := s.checkFD()
	if err != nil {
		return 0, err
	}
	if err := s.waitWritable(timeout, haveTimeout); err != nil {
		return 0, err
	}
	n, err := unix.Writev(fd, bufs)
	if err != nil {
		return 0, mapTransmitError(err)
	}
	return n, nil
}

// TransmitFile sends size bytes of file (a regular-file descriptor)
// starting at offset, using the kernel's zero-copy sendfile when
// available.
func (s *Stream) TransmitFile(file int, size int64, offset int64) (int64, error) {
	fd, err := s.checkFD()
	if err != nil {
		return 0, err
	}
	off := offset
	n, err := unix.Sendfile(fd, file, &off, int(size))
	if err != nil {
		return 0, mapTransmitError(err)
	}
	return int64(n), nil
}

func mapTransmitError(err error) error {
	if err == unix.EPIPE || err == unix.ECONNRESET {
		return &SocketError{Op: "transmit", Err: ErrReceiverClosed}
	}
	return &SocketError{Op: "transmit", Err: fmt.Errorf("%w: %v", ErrTransmitError, err)}
}

func mapReceiveError(err error) error {
	if err == unix.ECONNRESET {
		return &SocketError{Op: "receive", Err: ErrSenderClosed}
	}
	return &SocketError{Op: "receive", Err: fmt.Errorf("%w: %v", ErrReceiveError, err)}
}
