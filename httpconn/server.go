package httpconn

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ymarkovitch/pcomn-go/httpmsg"
	"github.com/ymarkovitch/pcomn-go/metrics"
)

// Server drives the server side of one HTTP/1.1 connection: it parses
// incoming requests, tracks how many are unanswered, and stamps
// Date/Server/Connection headers on outgoing responses.
type Server struct {
	Connection

	// ServerName is emitted as the Server: header value.
	ServerName string

	unanswered int
}

// NewServer wraps t as the server side of an HTTP/1.1 connection.
func NewServer(t Transport, serverName string) *Server {
	return &Server{Connection: newConnection(t), ServerName: serverName}
}

// Unanswered returns the number of received requests not yet answered by
// a non-1xx response.
func (s *Server) Unanswered() int { return s.unanswered }

// Metrics returns a snapshot of this connection's message and byte
// counters, for callers to fold into the shared metrics package.
func (s *Server) Metrics() ConnMetrics { return s.Connection.metrics() }

// ReceiveRequest parses the next request line and headers. On success it
// increments the received-message count and the unanswered balance, and
// remembers whether the request was HEAD (response bodies are suppressed
// regardless of declared content-length).
func (s *Server) ReceiveRequest() (*httpmsg.Request, error) {
	req, err := httpmsg.ParseFrom(s.reader, httpmsg.FlagAllowExtensionMethods)
	if err != nil {
		return nil, err
	}
	metrics.RequestCount.With(prometheus.Labels{"method": req.Method.String()}).Inc()
	s.messagesReceived++
	s.unanswered++
	s.lastRequestWasHead = req.Method == httpmsg.MethodHead
	s.lastWantsClose = req.Flags&httpmsg.FlagClose != 0
	s.lastWantsKeepAlive = req.Flags&httpmsg.FlagKeepAlive != 0
	s.setInboundFraming(&req.Message, false)
	return req, nil
}

// Respond writes resp's status line and headers, after injecting Date,
// Server, and a Connection header derived from the last request. respond
// is rejected with ErrLogicError if there is no outstanding request to
// answer, unless resp is a 1xx intermediate response.
func (s *Server) Respond(resp *httpmsg.Response) error {
	if s.unanswered == 0 && !resp.IsInformational() {
		return ErrLogicError
	}

	resp.Header.Set("Date", formatDate(time.Now()))
	if s.ServerName != "" {
		resp.Header.Set("Server", s.ServerName)
	}
	switch {
	case s.lastWantsClose:
		resp.Header.Set("Connection", "close")
	case s.lastWantsKeepAlive:
		resp.Header.Set("Connection", "keep-alive")
		resp.Header.Set("Keep-Alive", "timeout=300")
	}

	suppressBody := s.lastRequestWasHead
	if err := s.setOutboundFraming(&resp.Message, suppressBody); err != nil {
		return err
	}

	if _, err := resp.WriteTo(transportWriter{s.transport}, httpmsg.WriteOpts{}); err != nil {
		return err
	}
	s.messagesSent++
	if !resp.IsInformational() {
		s.unanswered--
	}
	return nil
}

// formatDate renders t as an RFC 7231 IMF-fixdate, e.g.
// "Tue, 15 Nov 1994 08:12:31 GMT".
func formatDate(t time.Time) string {
	return t.UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT")
}
