package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/replenish-erp/replenish-erp/internal/stock"
)

// maxFeedBody caps how much of a feed response we are willing to read.
const maxFeedBody = 16 << 20

// FeedClient pulls one source's stock snapshot from a remote system over HTTP.
// It satisfies the worker's feed provider contract.
type FeedClient struct {
	source string
	url    string
	client *http.Client
}

// NewFeedClient constructs a feed client for the given source and endpoint.
func NewFeedClient(source, url string, timeout time.Duration) *FeedClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FeedClient{
		source: source,
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Source names the stock source this client feeds.
func (c *FeedClient) Source() string {
	return c.source
}

// feedResponse is the wire shape remote systems return.
type feedResponse struct {
	Items []stock.FeedItem `json:"items"`
}

// Fetch downloads and decodes the current snapshot.
func (c *FeedClient) Fetch(ctx context.Context) ([]stock.FeedItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("feed %s: build request: %w", c.source, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed %s: fetch: %w", c.source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxFeedBody))
		return nil, fmt.Errorf("feed %s: unexpected status %d", c.source, resp.StatusCode)
	}

	var payload feedResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxFeedBody)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("feed %s: decode: %w", c.source, err)
	}
	return payload.Items, nil
}
