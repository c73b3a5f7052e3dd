package httpmsg

// Response is an HTTP response message: a Message plus numeric status
// code and reason phrase.
type Response struct {
	Message

	StatusCode int
	Reason     string
}

// NewResponse builds a programmatic response with the given status code.
// code must be in [100, 599]; the reason phrase defaults to the static
// table entry (or "Unknown").
func NewResponse(code int) (*Response, error) {
	if code < 100 || code > 599 {
		return nil, ErrInvalidStatusCode
	}
	return &Response{
		Message:    NewMessage(),
		StatusCode: code,
		Reason:     StatusText(code),
	}, nil
}

// IsInformational reports whether the response is a 1xx intermediate
// response.
func (r *Response) IsInformational() bool { return r.StatusCode >= 100 && r.StatusCode < 200 }
