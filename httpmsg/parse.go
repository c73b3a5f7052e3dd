package httpmsg

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// readLine reads one CRLF- or LF-terminated line, with the terminator
// stripped. io.EOF with no bytes read is returned verbatim; EOF after a
// partial line is reported as ErrUnexpectedEOF.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			if line == "" {
				return "", io.EOF
			}
			return "", fmt.Errorf("%w: truncated line", ErrUnexpectedEOF)
		}
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

func parseVersion(token string) (Version, error) {
	major, minor, ok := strings.Cut(strings.TrimPrefix(token, "HTTP/"), ".")
	if !ok || !strings.HasPrefix(token, "HTTP/") {
		return Version{}, ErrInvalidRequest
	}
	ma, err1 := strconv.Atoi(major)
	mi, err2 := strconv.Atoi(minor)
	if err1 != nil || err2 != nil {
		return Version{}, ErrInvalidRequest
	}
	v := Version{Major: ma, Minor: mi}
	if !v.Valid() {
		return Version{}, ErrUnsupportedVersion
	}
	return v, nil
}

// parseHeaders reads header lines (including continuations) up to and
// including the terminating blank line, applying them to m.
func parseHeaders(r *bufio.Reader, m *Message) error {
	var lastName string
	for {
		line, err := readLine(r)
		if err != nil {
			return err
		}
		if line == "" {
			return nil
		}
		if line[0] == ' ' || line[0] == '\t' {
			if lastName == "" {
				return ErrInvalidHeader
			}
			cont := strings.TrimSpace(line)
			vs := m.Header.Values(lastName)
			if len(vs) == 0 {
				return ErrInvalidHeader
			}
			vs[len(vs)-1] = vs[len(vs)-1] + " " + cont
			continue
		}
		name, value, found := strings.Cut(line, ":")
		if !found {
			return ErrInvalidHeader
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return ErrInvalidHeader
		}
		value = strings.TrimLeft(value, " \t")
		m.SetHeader(name, value)
		lastName = normalize(name)
	}
}

// Parse reads a request from r: request line, headers, and (if framing
// headers call for one) leaves the body unread — callers read the body
// through httpconn, which owns the framing state machine. flags seeds the
// message's permissive options (e.g. FlagAllowExtensionMethods) before the
// method token is checked.
func Parse(r io.Reader, flags Flags) (*Request, error) {
	return ParseFrom(bufio.NewReader(r), flags)
}

// ParseFrom is like Parse but reads from an existing *bufio.Reader,
// leaving any bytes buffered past the blank line available to the caller
// for the body or (with pipelining) the next message. httpconn uses this
// so a single buffered reader survives across messages on one connection.
func ParseFrom(br *bufio.Reader, flags Flags) (*Request, error) {
	line, err := readLine(br)
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return nil, ErrInvalidRequest
	}
	methodTok, target, versionTok := parts[0], parts[1], parts[2]

	method, known := methodFromToken(methodTok)
	if !known && flags&FlagAllowExtensionMethods == 0 {
		return nil, ErrInvalidMethod
	}

	version, err := parseVersion(versionTok)
	if err != nil {
		return nil, err
	}

	req := &Request{Message: NewMessage(), Method: method}
	if !known {
		req.MethodName = methodTok
	}
	req.Version = version
	req.Flags = flags
	req.setTarget(target)

	if err := parseHeaders(br, &req.Message); err != nil {
		return nil, err
	}
	return req, nil
}

// ParseResponse reads a response from r: status line and headers. As with
// Parse, the body is left for the connection layer to frame and read.
func ParseResponse(r io.Reader) (*Response, error) {
	return ParseResponseFrom(bufio.NewReader(r))
}

// ParseResponseFrom is like ParseResponse but reads from an existing
// *bufio.Reader; see ParseFrom.
func ParseResponseFrom(br *bufio.Reader) (*Response, error) {
	line, err := readLine(br)
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return nil, ErrResponseError
	}
	version, err := parseVersion(parts[0])
	if err != nil {
		return nil, err
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil || code < 100 || code > 599 {
		return nil, ErrResponseError
	}
	reason := StatusText(code)
	if len(parts) == 3 {
		reason = parts[2]
	}

	resp := &Response{Message: NewMessage(), StatusCode: code, Reason: reason}
	resp.Version = version

	if err := parseHeaders(br, &resp.Message); err != nil {
		return nil, err
	}
	return resp, nil
}
