package httpmsg

import "strings"

// httpSeparators are the RFC 2616 tspecials plus space: a header name
// containing any of these cannot be a token, and is rejected even under
// FlagAllowArbitraryHeaders.
const httpSeparators = "][()<>@,;:\\\"/?={}\t "

// knownHeaders is the interned set of header names SetHeader admits
// unconditionally. Anything else is dropped unless the message carries
// FlagAllowArbitraryHeaders, and even then only if it contains no
// separator character.
var knownHeaders = map[string]bool{
	"content-length":      true,
	"content-type":        true,
	"transfer-encoding":   true,
	"host":                true,
	"connection":          true,
	"keep-alive":          true,
	"date":                true,
	"pragma":              true,
	"trailer":             true,
	"upgrade":             true,
	"via":                 true,
	"warning":             true,
	"accept":              true,
	"accept-charset":      true,
	"accept-encoding":     true,
	"accept-language":     true,
	"authorization":       true,
	"expect":              true,
	"from":                true,
	"if-match":            true,
	"if-modified-since":   true,
	"if-none-match":       true,
	"if-range":            true,
	"if-unmodified-since": true,
	"max-forwards":        true,
	"proxy-authorization": true,
	"range":               true,
	"referer":             true,
	"te":                  true,
	"user-agent":          true,
	"accept-ranges":       true,
	"age":                 true,
	"etag":                true,
	"location":            true,
	"proxy-authenticate":  true,
	"retry-after":         true,
	"server":              true,
	"vary":                true,
	"www-authenticate":    true,
	"allow":               true,
	"content-encoding":    true,
	"content-language":    true,
	"content-location":    true,
	"content-md5":         true,
	"content-range":       true,
	"expires":             true,
	"last-modified":       true,
	"cache-control":       true,
}

// admitHeaderName reports whether name may be stored: known headers are
// always admitted; an unrecognized name is admitted only with
// allowArbitrary set, and only if it contains no HTTP separator char (so
// it's still a valid token).
func admitHeaderName(name string, allowArbitrary bool) bool {
	if knownHeaders[normalize(name)] {
		return true
	}
	return allowArbitrary && !strings.ContainsAny(name, httpSeparators)
}

// Header is a case-insensitive multimap of header fields that preserves
// insertion order across distinct names. Names are stored lowercased;
// CanonicalKey restores the wire capitalization on emission.
type Header struct {
	names  []string
	values map[string][]string
}

// NewHeader returns an empty Header ready for use.
func NewHeader() Header {
	return Header{values: make(map[string][]string)}
}

func normalize(name string) string { return strings.ToLower(name) }

// CanonicalKey capitalizes the first letter and every letter following a
// dash, e.g. "content-length" -> "Content-Length".
func CanonicalKey(name string) string {
	b := []byte(strings.ToLower(name))
	upperNext := true
	for i, c := range b {
		if upperNext && c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
		upperNext = c == '-'
	}
	return string(b)
}

// Add appends value under name, preserving any existing values.
func (h *Header) Add(name, value string) {
	if h.values == nil {
		h.values = make(map[string][]string)
	}
	key := normalize(name)
	if _, ok := h.values[key]; !ok {
		h.names = append(h.names, key)
	}
	h.values[key] = append(h.values[key], value)
}

// Set replaces all values under name with a single value.
func (h *Header) Set(name, value string) {
	if h.values == nil {
		h.values = make(map[string][]string)
	}
	key := normalize(name)
	if _, ok := h.values[key]; !ok {
		h.names = append(h.names, key)
	}
	h.values[key] = []string{value}
}

// Get returns the first value stored under name, or "" if absent.
func (h Header) Get(name string) string {
	vs := h.values[normalize(name)]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// Values returns every value stored under name, in insertion order.
func (h Header) Values(name string) []string {
	return h.values[normalize(name)]
}

// Has reports whether name has at least one stored value.
func (h Header) Has(name string) bool {
	_, ok := h.values[normalize(name)]
	return ok
}

// Del removes every value stored under name.
func (h *Header) Del(name string) {
	key := normalize(name)
	if _, ok := h.values[key]; !ok {
		return
	}
	delete(h.values, key)
	for i, n := range h.names {
		if n == key {
			h.names = append(h.names[:i], h.names[i+1:]...)
			break
		}
	}
}

// Names returns the stored header names, lowercased, in first-insertion
// order.
func (h Header) Names() []string {
	out := make([]string, len(h.names))
	copy(out, h.names)
	return out
}

// Each calls fn once per (canonicalKey, value) pair, in insertion order,
// emitting every value for a repeated header name.
func (h Header) Each(fn func(canonicalKey, value string)) {
	for _, name := range h.names {
		ck := CanonicalKey(name)
		for _, v := range h.values[name] {
			fn(ck, v)
		}
	}
}
