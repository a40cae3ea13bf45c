package fetch

import "fmt"

// RequestError reports a locator that cannot be turned into a request.
type RequestError struct {
	URL    string
	Reason string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("invalid request %q: %s", e.URL, e.Reason)
}

// TransportError reports a resource that could not be reached or whose body
// could not be read completely.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPStatusError reports a 4xx or 5xx response. Document holds the full
// response so callers may still extract an error body.
type HTTPStatusError struct {
	URL      string
	Code     int
	Document *RawDocument
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Code)
}
