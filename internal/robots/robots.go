// Package robots gates fetches on a host's robots.txt.
package robots

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

type Source int

const (
	SourceNetwork Source = iota
	SourceMemory
)

// DisallowedError reports a URL that robots.txt forbids for our user agent.
type DisallowedError struct {
	URL       string
	UserAgent string
}

func (e *DisallowedError) Error() string {
	return fmt.Sprintf("robots.txt disallows %s for user agent %q", e.URL, e.UserAgent)
}

// Checker fetches and evaluates robots.txt per scheme and host. Parsed rules
// are kept in memory for EntryExpiry so a batch of fetches against one host
// costs one robots.txt request.
type Checker struct {
	HTTPClient  *http.Client
	UserAgent   string
	EntryExpiry time.Duration

	mu  sync.Mutex
	mem map[string]memEntry
	now func() time.Time
}

type memEntry struct {
	data   *robotstxt.RobotsData
	expiry time.Time
}

// Allowed returns a *DisallowedError when robots.txt forbids u. An
// unreachable robots.txt or a 4xx answer allows everything; a 5xx answer
// disallows everything, following robotstxt.FromStatusAndBytes.
func (c *Checker) Allowed(ctx context.Context, u *url.URL) error {
	robotsURL := (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/robots.txt"}).String()
	data, _, err := c.Get(ctx, robotsURL)
	if err != nil {
		// Treat an unreachable robots.txt as absent.
		return nil
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	if !data.TestAgent(path, c.agent()) {
		return &DisallowedError{URL: u.String(), UserAgent: c.agent()}
	}
	return nil
}

// Get returns the parsed robots.txt at robotsURL, from memory when fresh.
func (c *Checker) Get(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, Source, error) {
	c.mu.Lock()
	if c.now == nil {
		c.now = time.Now
	}
	if c.mem == nil {
		c.mem = make(map[string]memEntry)
	}
	if ent, ok := c.mem[robotsURL]; ok && c.now().Before(ent.expiry) {
		c.mu.Unlock()
		return ent.data, SourceMemory, nil
	}
	c.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, SourceNetwork, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", c.agent())
	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, SourceNetwork, err
	}
	defer resp.Body.Close()
	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, SourceNetwork, fmt.Errorf("parse robots: %w", err)
	}
	c.store(robotsURL, data)
	return data, SourceNetwork, nil
}

func (c *Checker) store(key string, data *robotstxt.RobotsData) {
	exp := c.EntryExpiry
	if exp <= 0 {
		exp = 30 * time.Minute
	}
	c.mu.Lock()
	c.mem[key] = memEntry{data: data, expiry: c.now().Add(exp)}
	c.mu.Unlock()
}

func (c *Checker) agent() string {
	if ua := strings.TrimSpace(c.UserAgent); ua != "" {
		return ua
	}
	return "*"
}
