package httpmsg

import (
	"bufio"
	"io"
	"strconv"
)

// WriteOpts controls message serialization.
type WriteOpts struct {
	// LineTerminator defaults to "\r\n"; "\n" is accepted for debug dumps.
	LineTerminator string
}

func (o WriteOpts) terminator() string {
	if o.LineTerminator == "" {
		return "\r\n"
	}
	return o.LineTerminator
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) WriteString(s string) (int, error) {
	n, err := io.WriteString(c.w, s)
	c.n += int64(n)
	return n, err
}

func writeHeaders(cw *countingWriter, h Header, eol string) error {
	var err error
	h.Each(func(key, value string) {
		if err != nil {
			return
		}
		_, err = cw.WriteString(key + ": " + value + eol)
	})
	if err != nil {
		return err
	}
	_, err = cw.WriteString(eol)
	return err
}

// WriteTo serializes the request line, headers, and terminating blank
// line. It does not write the body; callers stream the body separately
// through httpconn.
func (r *Request) WriteTo(w io.Writer, opts WriteOpts) (int64, error) {
	eol := opts.terminator()
	cw := &countingWriter{w: bufio.NewWriter(w)}
	bw := cw.w.(*bufio.Writer)

	method := r.Method.String()
	if r.Method == MethodExtension {
		method = r.MethodName
	}
	if _, err := cw.WriteString(method + " " + r.URI() + " " + r.Version.String() + eol); err != nil {
		return cw.n, err
	}
	if err := writeHeaders(cw, r.Header, eol); err != nil {
		return cw.n, err
	}
	return cw.n, bw.Flush()
}

// WriteTo serializes the status line, headers, and terminating blank
// line. It does not write the body.
func (r *Response) WriteTo(w io.Writer, opts WriteOpts) (int64, error) {
	eol := opts.terminator()
	cw := &countingWriter{w: bufio.NewWriter(w)}
	bw := cw.w.(*bufio.Writer)

	if _, err := cw.WriteString(r.Version.String() + " " + strconv.Itoa(r.StatusCode) + " " + r.Reason + eol); err != nil {
		return cw.n, err
	}
	if err := writeHeaders(cw, r.Header, eol); err != nil {
		return cw.n, err
	}
	return cw.n, bw.Flush()
}
