package httpmsg

import (
	"strconv"
	"strings"
)

// Version is an HTTP version number; only 1.0 and 1.1 are accepted.
type Version struct {
	Major int
	Minor int
}

func (v Version) String() string {
	return "HTTP/" + strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor)
}

// Valid reports whether v is HTTP/1.0 or HTTP/1.1.
func (v Version) Valid() bool { return v.Major == 1 && (v.Minor == 0 || v.Minor == 1) }

// Flags is a bitmask of message-level options.
type Flags uint

const (
	FlagChunked Flags = 1 << iota
	FlagClose
	FlagKeepAlive
	FlagUseRelativeURI
	FlagAllowExtensionMethods
	FlagAllowArbitraryHeaders
)

// Message holds the attributes shared by Request and Response: version,
// headers, content framing, and the message-level flag word.
type Message struct {
	Version Version
	Header  Header
	Flags   Flags

	contentLength    int64
	hasContentLength bool
}

// NewMessage returns a Message defaulted to HTTP/1.1 with empty headers.
func NewMessage() Message {
	return Message{Version: Version{1, 1}, Header: NewHeader()}
}

// ContentLength returns the declared body length and whether one was set.
func (m *Message) ContentLength() (int64, bool) { return m.contentLength, m.hasContentLength }

// IsChunked reports whether the message is framed as chunked transfer.
func (m *Message) IsChunked() bool { return m.Flags&FlagChunked != 0 }

// SetContentLength declares a fixed-length body of n bytes. It clears any
// chunked transfer-encoding the message previously requested: the last
// write wins.
func (m *Message) SetContentLength(n int64) {
	m.contentLength = n
	m.hasContentLength = true
	m.Flags &^= FlagChunked
	m.Header.Set("Content-Length", strconv.FormatInt(n, 10))
	m.Header.Del("Transfer-Encoding")
}

// SetChunked requests chunked transfer-encoding. It clears any previously
// declared content-length: the last write wins.
func (m *Message) SetChunked() {
	m.hasContentLength = false
	m.contentLength = 0
	m.Flags |= FlagChunked
	m.Header.Set("Transfer-Encoding", "chunked")
	m.Header.Del("Content-Length")
}

// SetHeader stores value under name, routing content-length,
// transfer-encoding and connection through their cross-updating setters
// so the message's framing/flag state always agrees with its headers.
// Unrecognized header names are silently dropped unless the message
// carries FlagAllowArbitraryHeaders, and even then only if the name is a
// valid token (contains no HTTP separator characters).
func (m *Message) SetHeader(name, value string) {
	if !admitHeaderName(name, m.Flags&FlagAllowArbitraryHeaders != 0) {
		return
	}
	switch normalize(name) {
	case "content-length":
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return
		}
		m.SetContentLength(n)
	case "transfer-encoding":
		if strings.EqualFold(strings.TrimSpace(value), "chunked") {
			m.SetChunked()
		} else {
			m.Header.Set(name, value)
		}
	case "connection":
		m.Header.Set(name, value)
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "close":
			m.Flags |= FlagClose
			m.Flags &^= FlagKeepAlive
		case "keep-alive":
			m.Flags |= FlagKeepAlive
			m.Flags &^= FlagClose
		}
	default:
		m.Header.Set(name, value)
	}
}

// ContentType returns the Content-Type header value, or "" if absent.
func (m *Message) ContentType() string { return m.Header.Get("Content-Type") }

// Host returns the Host header value, or "" if absent.
func (m *Message) Host() string { return m.Header.Get("Host") }
