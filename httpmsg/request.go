package httpmsg

import (
	"net/url"
	"strings"
)

// Method is an HTTP request method.
type Method int

const (
	MethodGet Method = iota
	MethodHead
	MethodPost
	MethodPut
	MethodDelete
	MethodTrace
	MethodConnect
	MethodExtension
)

var methodNames = [...]string{
	MethodGet:       "GET",
	MethodHead:      "HEAD",
	MethodPost:      "POST",
	MethodPut:       "PUT",
	MethodDelete:    "DELETE",
	MethodTrace:     "TRACE",
	MethodConnect:   "CONNECT",
	MethodExtension: "",
}

func (m Method) String() string { return methodNames[m] }

func methodFromToken(token string) (Method, bool) {
	for m := MethodGet; m <= MethodConnect; m++ {
		if methodNames[m] == token {
			return m, true
		}
	}
	return MethodExtension, false
}

// Request is an HTTP request message: a Message plus method, target URI,
// and a parsed query dictionary.
type Request struct {
	Message

	Method     Method
	MethodName string // set when Method == MethodExtension
	Target     string // request-URI path component, no query
	query      url.Values
}

// NewRequest builds a programmatic request for method and target. target
// may include a query string, which is parsed into Query().
func NewRequest(method Method, target string) (*Request, error) {
	r := &Request{Message: NewMessage(), Method: method}
	if method == MethodExtension {
		return nil, ErrInvalidMethod
	}
	r.setTarget(target)
	return r, nil
}

// setTarget accepts either absolute-path form ("/path?query", the normal
// case) or absolute-URI form ("http://host/path?query", as sent through a
// proxy). In the latter case the embedded host is recovered into the Host
// header (the first tier of the Host fallback used by httpconn.Client and
// server-side request handling), and Target/query are parsed from the
// URI's path and query exactly as for the absolute-path form.
func (r *Request) setTarget(target string) {
	if u, err := url.Parse(target); err == nil && u.IsAbs() {
		if u.Host != "" {
			r.Header.Set("Host", u.Host)
		}
		r.Target = u.Path
		r.query = u.Query()
		if r.query == nil {
			r.query = url.Values{}
		}
		return
	}

	path, rawQuery, found := strings.Cut(target, "?")
	r.Target = path
	if found {
		r.query, _ = url.ParseQuery(rawQuery)
	}
	if r.query == nil {
		r.query = url.Values{}
	}
}

// Query returns the parsed query dictionary. Mutating it and calling
// URI() re-serializes from the dictionary, so programmatic changes round
// trip.
func (r *Request) Query() url.Values {
	if r.query == nil {
		r.query = url.Values{}
	}
	return r.query
}

// URI renders the request target. With FlagUseRelativeURI set, the target
// is serialized as absolute-path ("/path?query"); otherwise, if a Host is
// known, as absolute-URI ("http://host/path?query").
func (r *Request) URI() string {
	target := r.Target
	if q := r.query.Encode(); q != "" {
		target += "?" + q
	}
	if r.Flags&FlagUseRelativeURI != 0 || r.Host() == "" {
		return target
	}
	return "http://" + r.Host() + target
}
