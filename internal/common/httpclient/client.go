package httpclient

import (
	"context"
	"net/http"
	"time"
)

// Client is a thin wrapper over http.Client with a fixed timeout.
type Client struct {
	httpClient *http.Client
}

func New(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	return c.httpClient.Do(req)
}

// Underlying exposes the raw http.Client for packages that manage requests
// themselves.
func (c *Client) Underlying() *http.Client {
	return c.httpClient
}
