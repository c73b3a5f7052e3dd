// Package httpmsg implements HTTP/1.1 request and response messages:
// parsing from a byte stream, programmatic construction, header storage,
// content framing, and serialization. It does not open sockets or manage
// connection state; see package httpconn for that.
package httpmsg

import "errors"

var (
	// ErrInvalidHeader is returned when a header line does not match
	// `token ":" OWS field-value CRLF`.
	ErrInvalidHeader = errors.New("httpmsg: invalid header")
	// ErrInvalidRequest is returned when the request line is malformed.
	ErrInvalidRequest = errors.New("httpmsg: invalid request line")
	// ErrInvalidMethod is returned when a request's method token does not
	// match a known method and extension methods are not allowed.
	ErrInvalidMethod = errors.New("httpmsg: invalid method")
	// ErrResponseError is returned when the status line is malformed.
	ErrResponseError = errors.New("httpmsg: invalid status line")
	// ErrUnsupportedVersion is returned for any HTTP version other than
	// 1.0 or 1.1.
	ErrUnsupportedVersion = errors.New("httpmsg: unsupported HTTP version")
	// ErrUnexpectedEOF is returned when the input ends mid-message.
	ErrUnexpectedEOF = errors.New("httpmsg: unexpected EOF")
	// ErrInvalidStatusCode is returned constructing a Response with a
	// status code outside [100, 599].
	ErrInvalidStatusCode = errors.New("httpmsg: status code out of range")
)
