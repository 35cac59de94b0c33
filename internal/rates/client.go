// Package rates fetches and caches the BCV and USDT exchange rates.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cartera/internal/core"
)

var ErrInvalidFeed = errors.New("invalid rate feed response")

// maxFeedBytes caps the body read from the feed.
const maxFeedBytes = 64 << 10

// Client reads a price feed publishing {"bcv": n, "usdt": n, "timestamp": t}.
type Client struct {
	url  string
	http *http.Client
	now  func() time.Time
}

// NewClient creates a feed client whose requests give up after timeout.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
		now:  time.Now,
	}
}

// Fetch downloads the current snapshot. A feed without a timestamp is
// stamped with the fetch time.
func (c *Client) Fetch(ctx context.Context) (core.Rates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return core.Rates{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return core.Rates{}, fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.Rates{}, fmt.Errorf("%w: status %d", ErrInvalidFeed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return core.Rates{}, fmt.Errorf("read rates: %w", err)
	}

	var r core.Rates
	if err := json.Unmarshal(body, &r); err != nil {
		return core.Rates{}, fmt.Errorf("%w: %v", ErrInvalidFeed, err)
	}
	if !r.Available() {
		return core.Rates{}, fmt.Errorf("%w: bcv=%s usdt=%s", ErrInvalidFeed, r.BCV, r.USDT)
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = c.now()
	}
	return r, nil
}
