package httpconn

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ymarkovitch/pcomn-go/httpmsg"
	"github.com/ymarkovitch/pcomn-go/netaddr"
)

// Transport is the byte-stream primitive a Connection drives. netsock.Stream
// satisfies it directly.
type Transport interface {
	Receive(buf []byte, timeout time.Duration, haveTimeout bool) (int, error)
	Transmit(buf []byte, timeout time.Duration, haveTimeout bool) (int, error)
	TransmitFile(fd int, size int64, offset int64) (int64, error)
	// PeerAddr returns the address of the connection's remote end, the
	// last-resort source for the Host header when neither the request
	// target nor Client.Host carries one.
	PeerAddr() netaddr.SockAddr
}

type inMode int

const (
	inIdle inMode = iota
	inFixed
	inChunked
	inUnbound
)

type outMode int

const (
	outIdle outMode = iota
	outFixed
	outChunked
)

// transportReader/transportWriter adapt Transport to the io.Reader/Writer
// interfaces httpmsg's parser and a bufio.Writer expect, blocking
// indefinitely (haveTimeout=false) the way a plain socket read/write would.
type transportReader struct{ t Transport }

func (r transportReader) Read(p []byte) (int, error) {
	n, err := r.t.Receive(p, 0, false)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

type transportWriter struct{ t Transport }

func (w transportWriter) Write(p []byte) (int, error) {
	return w.t.Transmit(p, 0, false)
}

// Connection drives one HTTP/1.1 byte stream through the framing state
// machine described by pendingIn/pendingOut: it hides contiguous vs.
// chunked transfer-encoding from Receive/Transmit callers, tracks message
// counts, and remembers the last request's method (for HEAD suppression)
// and connection-persistence preference.
type Connection struct {
	transport Transport
	reader    *bufio.Reader

	pendingIn      inMode
	inRemaining    int64 // inFixed: bytes left; inChunked: bytes left in current chunk
	needChunkFooter bool

	pendingOut   outMode
	outRemaining int64

	messagesReceived int
	messagesSent     int

	bytesReceived int64
	bytesSent     int64

	lastRequestWasHead bool
	lastWantsClose     bool
	lastWantsKeepAlive bool
}

// ConnMetrics is a point-in-time snapshot of one Connection's traffic
// counters, returned by Server.Metrics/Client.Metrics for feeding into the
// shared metrics package.
type ConnMetrics struct {
	MessagesReceived int
	MessagesSent     int
	BytesReceived    int64
	BytesSent        int64
}

func (c *Connection) metrics() ConnMetrics {
	return ConnMetrics{
		MessagesReceived: c.messagesReceived,
		MessagesSent:     c.messagesSent,
		BytesReceived:    c.bytesReceived,
		BytesSent:        c.bytesSent,
	}
}

func newConnection(t Transport) Connection {
	return Connection{
		transport: t,
		reader:    bufio.NewReader(transportReader{t}),
	}
}

// MessagesReceived returns the number of messages fully parsed so far.
func (c *Connection) MessagesReceived() int { return c.messagesReceived }

// MessagesSent returns the number of messages fully framed-out so far.
func (c *Connection) MessagesSent() int { return c.messagesSent }

// EOC ("end of content") reports whether all content pertaining to the
// last received message has been consumed.
func (c *Connection) EOC() bool { return c.pendingIn == inIdle }

// EOT ("end of transmit") reports whether all content pertaining to the
// last sent message has been transmitted.
func (c *Connection) EOT() bool { return c.pendingOut == outIdle }

func (c *Connection) setInboundFraming(m *httpmsg.Message, suppressBody bool) {
	if suppressBody {
		c.pendingIn = inIdle
		return
	}
	if n, ok := m.ContentLength(); ok {
		c.pendingIn = inFixed
		c.inRemaining = n
		return
	}
	if m.IsChunked() {
		c.pendingIn = inChunked
		c.inRemaining = 0
		return
	}
	if m.ContentType() != "" {
		c.pendingIn = inUnbound
		return
	}
	c.pendingIn = inIdle
}

// Receive reads content bytes, transparently unwrapping chunk framing,
// never returning more than remains of the current message. A 0, nil
// result at end of body is normal; a 0 return in the middle of a
// declared-length body means the peer closed early (ErrConnectionClosed).
// For an unbound body (no content-length, no chunking), peer close is the
// normal end-of-body signal and is reported as 0, nil.
func (c *Connection) Receive(buf []byte) (int, error) {
	n, err := c.receive(buf)
	c.bytesReceived += int64(n)
	return n, err
}

func (c *Connection) receive(buf []byte) (int, error) {
	switch c.pendingIn {
	case inIdle:
		return 0, nil

	case inFixed:
		if c.inRemaining == 0 {
			c.pendingIn = inIdle
			return 0, nil
		}
		want := int64(len(buf))
		if want > c.inRemaining {
			want = c.inRemaining
		}
		n, err := io.ReadFull(c.reader, buf[:want])
		if n > 0 {
			c.inRemaining -= int64(n)
			if c.inRemaining == 0 {
				c.pendingIn = inIdle
			}
			return n, nil
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return 0, ErrConnectionClosed
		}
		return 0, err

	case inUnbound:
		n, err := c.reader.Read(buf)
		if err == io.EOF {
			c.pendingIn = inIdle
			return n, nil
		}
		return n, err

	case inChunked:
		return c.receiveChunked(buf)
	}
	return 0, ErrLogicError
}

func (c *Connection) receiveChunked(buf []byte) (int, error) {
	if c.inRemaining == 0 {
		if c.needChunkFooter {
			if err := c.expectCRLF(); err != nil {
				return 0, err
			}
			c.needChunkFooter = false
		}
		size, err := c.readChunkSize()
		if err != nil {
			return 0, err
		}
		if size == 0 {
			if err := c.readTrailers(); err != nil {
				return 0, err
			}
			c.pendingIn = inIdle
			return 0, nil
		}
		c.inRemaining = size
	}

	want := int64(len(buf))
	if want > c.inRemaining {
		want = c.inRemaining
	}
	n, err := io.ReadFull(c.reader, buf[:want])
	if err != nil {
		return 0, ErrConnectionClosed
	}
	c.inRemaining -= int64(n)
	if c.inRemaining == 0 {
		c.needChunkFooter = true
	}
	return n, nil
}

func (c *Connection) expectCRLF() error {
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return ErrConnectionClosed
	}
	if line != "\r\n" && line != "\n" {
		return ErrMessageError
	}
	return nil
}

func (c *Connection) readChunkSize() (int64, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return 0, ErrConnectionClosed
	}
	line = strings.TrimRight(line, "\r\n")
	if semi := strings.IndexByte(line, ';'); semi >= 0 {
		line = line[:semi]
	}
	size, err := strconv.ParseInt(strings.TrimSpace(line), 16, 64)
	if err != nil {
		return 0, ErrMessageError
	}
	return size, nil
}

func (c *Connection) readTrailers() error {
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			return ErrConnectionClosed
		}
		if line == "\r\n" || line == "\n" {
			return nil
		}
	}
}

// setOutboundFraming establishes pendingOut from a message about to be
// transmitted. send_message while EOT() is false is a logic error.
func (c *Connection) setOutboundFraming(m *httpmsg.Message, suppressBody bool) error {
	if !c.EOT() {
		return ErrLogicError
	}
	if suppressBody {
		c.pendingOut = outIdle
		return nil
	}
	if n, ok := m.ContentLength(); ok {
		c.pendingOut = outFixed
		c.outRemaining = n
		return nil
	}
	if m.IsChunked() {
		c.pendingOut = outChunked
		c.outRemaining = 0
		return nil
	}
	c.pendingOut = outIdle
	return nil
}

// Transmit writes content bytes per the current outbound framing. In
// chunked mode, every call with a non-empty buf is one chunk; a call with
// an empty buf closes the chunked body. In contiguous mode the cumulative size
// across calls may never exceed the declared content-length.
func (c *Connection) Transmit(buf []byte) (int, error) {
	switch c.pendingOut {
	case outIdle:
		if len(buf) == 0 {
			return 0, nil
		}
		return 0, ErrLogicError

	case outFixed:
		if int64(len(buf)) > c.outRemaining {
			return 0, ErrContentExceedsLength
		}
		n, err := c.writeAll(buf)
		if err != nil {
			return n, err
		}
		c.outRemaining -= int64(n)
		return n, nil

	case outChunked:
		if len(buf) == 0 {
			if _, err := c.writeAll([]byte("0\r\n\r\n")); err != nil {
				return 0, err
			}
			c.pendingOut = outIdle
			return 0, nil
		}
		header := strconv.FormatInt(int64(len(buf)), 16) + "\r\n"
		if _, err := c.writeAll([]byte(header)); err != nil {
			return 0, err
		}
		n, err := c.writeAll(buf)
		if err != nil {
			return n, err
		}
		if _, err := c.writeAll([]byte("\r\n")); err != nil {
			return n, err
		}
		return n, nil
	}
	return 0, ErrLogicError
}

func (c *Connection) writeAll(buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := c.transport.Transmit(buf[total:], 0, false)
		total += n
		c.bytesSent += int64(n)
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, ErrConnectionClosed
		}
	}
	return total, nil
}

// TransmitFile sends size bytes of fd via the transport's zero-copy path.
// In contiguous mode it counts against the declared content-length; in
// chunked mode the file is wrapped as its own chunk.
func (c *Connection) TransmitFile(fd int, size int64, offset int64) (int64, error) {
	switch c.pendingOut {
	case outFixed:
		if size > c.outRemaining {
			return 0, ErrContentExceedsLength
		}
		n, err := c.transport.TransmitFile(fd, size, offset)
		c.bytesSent += n
		c.outRemaining -= n
		return n, err

	case outChunked:
		header := strconv.FormatInt(size, 16) + "\r\n"
		if _, err := c.writeAll([]byte(header)); err != nil {
			return 0, err
		}
		n, err := c.transport.TransmitFile(fd, size, offset)
		c.bytesSent += n
		if err != nil {
			return n, err
		}
		if _, werr := c.writeAll([]byte("\r\n")); werr != nil {
			return n, werr
		}
		return n, nil

	default:
		return 0, ErrLogicError
	}
}

// TransmitFileFramed sends header, then size bytes of fd, then footer. In
// contiguous mode these are three plain writes/sendfile against the
// declared content-length. In chunked mode, per the spec's "three sends"
// fallback, header/file/footer are each framed as their own chunk rather
// than assembled in a scratch buffer.
func (c *Connection) TransmitFileFramed(header []byte, fd int, size, offset int64, footer []byte) (int64, error) {
	var total int64
	if len(header) > 0 {
		n, err := c.Transmit(header)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	n, err := c.transmitFileBody(fd, size, offset)
	total += n
	if err != nil {
		return total, err
	}
	if len(footer) > 0 {
		n, err := c.Transmit(footer)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (c *Connection) transmitFileBody(fd int, size, offset int64) (int64, error) {
	switch c.pendingOut {
	case outFixed:
		if size > c.outRemaining {
			return 0, ErrContentExceedsLength
		}
		n, err := c.transport.TransmitFile(fd, size, offset)
		c.bytesSent += n
		c.outRemaining -= n
		return n, err
	case outChunked:
		hdr := strconv.FormatInt(size, 16) + "\r\n"
		if _, err := c.writeAll([]byte(hdr)); err != nil {
			return 0, err
		}
		n, err := c.transport.TransmitFile(fd, size, offset)
		c.bytesSent += n
		if err != nil {
			return n, err
		}
		if _, err := c.writeAll([]byte("\r\n")); err != nil {
			return n, err
		}
		return n, nil
	default:
		return 0, ErrLogicError
	}
}
