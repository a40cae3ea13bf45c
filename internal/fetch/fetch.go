package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// Request locates a remote resource. Query parameters are merged into the
// URL's own query string; Header values are sent as-is.
type Request struct {
	URL    string
	Query  map[string]string
	Header map[string]string
}

// RawDocument is a fetched response, complete and read-only.
type RawDocument struct {
	// URL is the locator after query composition.
	URL         string
	StatusCode  int
	ContentType string
	Header      http.Header
	Body        []byte
}

// Gate decides whether a URL may be fetched at all. robots.Checker satisfies it.
type Gate interface {
	Allowed(ctx context.Context, u *url.URL) error
}

// Client performs single-attempt GET requests. It never retries and never
// caches; timeouts and cancellation are left to the Transport and ctx.
type Client struct {
	// Transport performs the request. Nil means a default HTTPTransport.
	Transport Transport
	// UserAgent is sent unless the request sets its own User-Agent header.
	UserAgent string
	// Robots, when set, is consulted before every fetch.
	Robots Gate
	// MaxConcurrent limits concurrent in-flight requests per client instance.
	// Zero means unlimited.
	MaxConcurrent int

	limiter     chan struct{}
	limiterOnce sync.Once
	defaultOnce sync.Once
	defaultTr   Transport
}

// Fetch retrieves the resource described by req. It returns a complete
// document, or a *RequestError, *TransportError or *HTTPStatusError. A 4xx/5xx
// response is returned inside the *HTTPStatusError with its body intact. A
// refusal from the Robots gate is wrapped in a *TransportError.
func (c *Client) Fetch(ctx context.Context, req Request) (*RawDocument, error) {
	u, err := ComposeURL(req.URL, req.Query)
	if err != nil {
		return nil, err
	}
	if c.Robots != nil {
		if err := c.Robots.Allowed(ctx, u); err != nil {
			return nil, &TransportError{URL: u.String(), Err: err}
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &RequestError{URL: req.URL, Reason: err.Error()}
	}
	for _, k := range sortedKeys(req.Header) {
		httpReq.Header.Set(k, req.Header[k])
	}
	if c.UserAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", c.UserAgent)
	}

	if err := c.acquire(ctx); err != nil {
		return nil, &TransportError{URL: u.String(), Err: err}
	}
	defer c.release()

	resp, err := c.transport().Perform(ctx, httpReq)
	if err != nil {
		return nil, &TransportError{URL: u.String(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		// A truncated body is never handed downstream.
		return nil, &TransportError{URL: u.String(), Err: fmt.Errorf("read body: %w", err)}
	}
	doc := &RawDocument{
		URL:         u.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Header:      resp.Header.Clone(),
		Body:        body,
	}
	if resp.StatusCode >= 400 {
		return nil, &HTTPStatusError{URL: doc.URL, Code: resp.StatusCode, Document: doc}
	}
	return doc, nil
}

// ComposeURL parses locator, requires an absolute http(s) URL and merges
// query into its query string. Merged parameters replace same-named ones.
func ComposeURL(locator string, query map[string]string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(locator))
	if err != nil {
		return nil, &RequestError{URL: locator, Reason: err.Error()}
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, &RequestError{URL: locator, Reason: "not an absolute URL"}
	}
	if !isHTTPScheme(u) {
		return nil, &RequestError{URL: locator, Reason: fmt.Sprintf("unsupported URL scheme %q", u.Scheme)}
	}
	if len(query) > 0 {
		q := u.Query()
		for k, v := range query {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}

func (c *Client) transport() Transport {
	if c.Transport != nil {
		return c.Transport
	}
	c.defaultOnce.Do(func() {
		c.defaultTr = &HTTPTransport{}
	})
	return c.defaultTr
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *Client) acquire(ctx context.Context) error {
	if c.MaxConcurrent <= 0 {
		return nil
	}
	c.limiterOnce.Do(func() {
		c.limiter = make(chan struct{}, c.MaxConcurrent)
	})
	select {
	case c.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) release() {
	if c.MaxConcurrent <= 0 || c.limiter == nil {
		return
	}
	select {
	case <-c.limiter:
	default:
	}
}
