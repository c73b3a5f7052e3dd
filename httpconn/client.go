package httpconn

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ymarkovitch/pcomn-go/httpmsg"
	"github.com/ymarkovitch/pcomn-go/metrics"
)

// Client drives the client side of one HTTP/1.1 connection: it injects
// Accept-Encoding/Host/User-Agent on outgoing requests, and (for
// HTTP/1.1, non-final requests) requests a persistent connection.
type Client struct {
	Connection

	// UserAgent is emitted as the User-Agent: header value.
	UserAgent string
	// Host is used for the Host: header when the request URI carries no
	// host of its own.
	Host string

	continueCount int
}

// NewClient wraps t as the client side of an HTTP/1.1 connection.
func NewClient(t Transport, userAgent string) *Client {
	return &Client{Connection: newConnection(t), UserAgent: userAgent}
}

// ContinueCount returns how many 1xx intermediate responses have been
// received since the connection was created.
func (c *Client) ContinueCount() int { return c.continueCount }

// Metrics returns a snapshot of this connection's message and byte
// counters, for callers to fold into the shared metrics package.
func (c *Client) Metrics() ConnMetrics { return c.Connection.metrics() }

// statusClass renders an HTTP status code as its "2xx"-style class.
func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "xxx"
	}
	return strconv.Itoa(code/100) + "xx"
}

// SendRequest injects the client-role headers and writes req. isLast
// tells the client this is the final request it intends to send on this
// connection, suppressing the keep-alive request.
func (c *Client) SendRequest(req *httpmsg.Request, isLast bool) error {
	req.Header.Set("Accept-Encoding", "identity")

	// Host header precedence: a host already present on the request (set
	// explicitly, or recovered from an absolute-form request target by
	// setTarget), then the client's configured Host, then the socket
	// peer's address as a last resort.
	host := req.Host()
	if host == "" {
		host = c.Host
	}
	if host == "" {
		host = c.transport.PeerAddr().String()
	}
	if host != "" {
		req.Header.Set("Host", host)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if req.Version.Major == 1 && req.Version.Minor >= 1 && !isLast {
		req.Header.Set("Connection", "keep-alive")
		req.Header.Set("Keep-Alive", "300")
	}

	if err := c.setOutboundFraming(&req.Message, false); err != nil {
		return err
	}
	if _, err := req.WriteTo(transportWriter{c.transport}, httpmsg.WriteOpts{}); err != nil {
		return err
	}
	c.messagesSent++
	c.lastRequestWasHead = req.Method == httpmsg.MethodHead
	return nil
}

// ReceiveResponse reads the next response. A 1xx intermediate response
// does not count toward the answered balance: it increments
// ContinueCount and leaves the request outstanding, so the caller should
// call ReceiveResponse again for the final response.
func (c *Client) ReceiveResponse() (*httpmsg.Response, error) {
	resp, err := httpmsg.ParseResponseFrom(c.reader)
	if err != nil {
		return nil, err
	}
	c.messagesReceived++
	metrics.ResponseCount.With(prometheus.Labels{"class": statusClass(resp.StatusCode)}).Inc()

	if resp.IsInformational() {
		c.continueCount++
		c.pendingIn = inIdle
		return resp, nil
	}

	c.setInboundFraming(&resp.Message, c.lastRequestWasHead)
	return resp, nil
}
