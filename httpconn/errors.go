// Package httpconn drives a byte-stream transport (ordinarily a
// netsock.Stream) through the HTTP/1.1 framing state machine: it hides
// contiguous vs. chunked transfer behind receive/transmit, tracks
// pipelined requests and responses, injects the connection-role headers
// (Date/Server/Connection on the server side; Host/User-Agent/
// Accept-Encoding on the client side), and supports zero-copy file
// transmission.
package httpconn

import "errors"

var (
	// ErrConnectionClosed is returned when the peer closed mid-frame.
	ErrConnectionClosed = errors.New("httpconn: connection closed by peer")
	// ErrMessageError is returned when a framing invariant is violated
	// (e.g. a missing CRLF between chunks).
	ErrMessageError = errors.New("httpconn: message framing error")
	// ErrLogicError is returned for caller sequencing violations (e.g. an
	// unbalanced respond() call, or send_message while eot() is false).
	ErrLogicError = errors.New("httpconn: logic error")
	// ErrContentExceedsLength is returned when a contiguous-mode transmit
	// would write more than the declared content-length.
	ErrContentExceedsLength = errors.New("httpconn: transmit exceeds declared content-length")
)
