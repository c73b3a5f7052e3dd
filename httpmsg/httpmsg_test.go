package httpmsg_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-test/deep"

	"github.com/ymarkovitch/pcomn-go/httpmsg"
)

func TestHeaderCaseInsensitive(t *testing.T) {
	h := httpmsg.NewHeader()
	h.Set("Content-Length", "5")
	if got := h.Get("content-length"); got != "5" {
		t.Errorf("Get(content-length) = %q, want 5", got)
	}
	if got := httpmsg.CanonicalKey("content-length"); got != "Content-Length" {
		t.Errorf("CanonicalKey = %q", got)
	}
}

func TestContentLengthClearsChunked(t *testing.T) {
	m := httpmsg.NewMessage()
	m.SetChunked()
	if !m.IsChunked() {
		t.Fatal("expected chunked")
	}
	m.SetContentLength(42)
	if m.IsChunked() {
		t.Error("SetContentLength must clear chunked flag")
	}
	n, ok := m.ContentLength()
	if !ok || n != 42 {
		t.Errorf("ContentLength() = %d, %v", n, ok)
	}
	if m.Header.Get("Transfer-Encoding") != "" {
		t.Error("Transfer-Encoding header should be cleared")
	}
}

func TestChunkedClearsContentLength(t *testing.T) {
	m := httpmsg.NewMessage()
	m.SetContentLength(10)
	m.SetChunked()
	if _, ok := m.ContentLength(); ok {
		t.Error("SetChunked must clear content-length")
	}
	if m.Header.Get("Content-Length") != "" {
		t.Error("Content-Length header should be cleared")
	}
}

func TestParseRequestRoundTrip(t *testing.T) {
	raw := "GET /index?a=1 HTTP/1.1\r\nHost: example\r\n\r\n"
	req, err := httpmsg.Parse(strings.NewReader(raw), 0)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if req.Method != httpmsg.MethodGet {
		t.Errorf("Method = %v", req.Method)
	}
	if req.Target != "/index" {
		t.Errorf("Target = %q", req.Target)
	}
	if got := req.Query().Get("a"); got != "1" {
		t.Errorf("Query a = %q", got)
	}
	if req.Host() != "example" {
		t.Errorf("Host = %q", req.Host())
	}

	var buf bytes.Buffer
	if _, err := req.WriteTo(&buf, httpmsg.WriteOpts{}); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	req2, err := httpmsg.Parse(strings.NewReader(buf.String()), 0)
	if err != nil {
		t.Fatalf("re-Parse: %v", err)
	}
	if diff := deep.Equal(req.Target, req2.Target); diff != nil {
		t.Errorf("round-trip target diff: %v", diff)
	}
}

func TestParseResponseHeaderContinuation(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nWarning: first\r\n second\r\n\r\n"
	resp, err := httpmsg.ParseResponse(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if got := resp.Header.Get("Warning"); got != "first second" {
		t.Errorf("Warning = %q", got)
	}
}

func TestUnknownHeaderDroppedWithoutArbitraryFlag(t *testing.T) {
	raw := "GET /x HTTP/1.1\r\nX-Custom: 1\r\n\r\n"
	req, err := httpmsg.Parse(strings.NewReader(raw), 0)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if req.Header.Has("X-Custom") {
		t.Error("unrecognized header must be dropped without FlagAllowArbitraryHeaders")
	}
}

func TestUnknownHeaderAdmittedWithArbitraryFlag(t *testing.T) {
	raw := "GET /x HTTP/1.1\r\nX-Custom: 1\r\n\r\n"
	req, err := httpmsg.Parse(strings.NewReader(raw), httpmsg.FlagAllowArbitraryHeaders)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := req.Header.Get("X-Custom"); got != "1" {
		t.Errorf("X-Custom = %q, want 1", got)
	}
}

func TestArbitraryHeaderWithSeparatorStillRejected(t *testing.T) {
	m := httpmsg.NewMessage()
	m.Flags |= httpmsg.FlagAllowArbitraryHeaders
	m.SetHeader("X/Custom", "1")
	if m.Header.Has("X/Custom") {
		t.Error("a header name containing a separator must be rejected even with FlagAllowArbitraryHeaders")
	}
}

func TestInvalidMethodRejectedByDefault(t *testing.T) {
	raw := "FROB /x HTTP/1.1\r\n\r\n"
	if _, err := httpmsg.Parse(strings.NewReader(raw), 0); err == nil {
		t.Fatal("expected ErrInvalidMethod")
	}
	req, err := httpmsg.Parse(strings.NewReader(raw), httpmsg.FlagAllowExtensionMethods)
	if err != nil {
		t.Fatalf("Parse with AllowExtensionMethods: %v", err)
	}
	if req.Method != httpmsg.MethodExtension || req.MethodName != "FROB" {
		t.Errorf("got method %v %q", req.Method, req.MethodName)
	}
}

func TestUnsupportedVersion(t *testing.T) {
	raw := "GET / HTTP/2.0\r\n\r\n"
	if _, err := httpmsg.Parse(strings.NewReader(raw), 0); err != httpmsg.ErrUnsupportedVersion {
		t.Errorf("got %v, want ErrUnsupportedVersion", err)
	}
}

func TestStatusCodeOutOfRange(t *testing.T) {
	if _, err := httpmsg.NewResponse(700); err != httpmsg.ErrInvalidStatusCode {
		t.Errorf("got %v", err)
	}
	if txt := httpmsg.StatusText(999); txt != "Unknown" {
		t.Errorf("StatusText(999) = %q", txt)
	}
}
