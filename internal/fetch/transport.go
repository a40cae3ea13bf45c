package fetch

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// Transport performs one HTTP exchange and returns the response with an
// unread body. Implementations must not retry.
type Transport interface {
	Perform(ctx context.Context, req *http.Request) (*http.Response, error)
}

// HTTPTransport sends requests through a net/http client.
type HTTPTransport struct {
	// Client is used as a template; nil means a zero http.Client.
	Client *http.Client
	// RedirectMaxHops caps redirect following to avoid loops. Zero means default (5).
	RedirectMaxHops int
}

func (t *HTTPTransport) Perform(ctx context.Context, req *http.Request) (*http.Response, error) {
	return t.httpClient().Do(req.WithContext(ctx))
}

func (t *HTTPTransport) httpClient() *http.Client {
	var base http.Client
	if t.Client != nil {
		// Clone to attach our redirect policy without mutating caller's client
		base = *t.Client
	}
	base.CheckRedirect = t.checkRedirectFunc()
	return &base
}

func (t *HTTPTransport) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := t.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		// Only allow http/https during redirects
		if req.URL == nil || !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

// RestyTransport sends requests through a resty client, for callers that
// already configure proxies, TLS or auth on one. The client must not have
// retries configured.
type RestyTransport struct {
	Client *resty.Client
}

// NewRestyTransport wraps c, or a fresh resty client when c is nil.
func NewRestyTransport(c *resty.Client) *RestyTransport {
	if c == nil {
		c = resty.New().SetRetryCount(0)
	}
	return &RestyTransport{Client: c}
}

func (t *RestyTransport) Perform(ctx context.Context, req *http.Request) (*http.Response, error) {
	r := t.Client.R().
		SetContext(ctx).
		SetHeaderMultiValues(req.Header).
		SetDoNotParseResponse(true)
	resp, err := r.Execute(req.Method, req.URL.String())
	if err != nil {
		return nil, err
	}
	if resp.RawResponse == nil {
		return nil, errors.New("resty returned no response")
	}
	return resp.RawResponse, nil
}
