package blob

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	beema "github.com/prabhatkmr/beema-sub003"
)

// Client talks to a remote artifact service over HTTP. PUT/GET on
// /artifacts/<key>, GET /artifacts?prefix= for listing.
//
// Uploads are a single attempt. The run that produced the chunk fails
// if its upload fails; retrying the whole run is the caller's call.
type Client struct {
	http *resty.Client
}

var _ Store = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout overrides the default 30s request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// WithAuthToken sends a bearer token on every request.
func WithAuthToken(token string) ClientOption {
	return func(c *Client) { c.http.SetAuthToken(token) }
}

// NewClient returns a client for the artifact service at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(30 * time.Second).
			SetHeader("Accept", "application/octet-stream"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Put(ctx context.Context, key string, data []byte) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(data).
		Put("/artifacts/" + key)
	if err != nil {
		return fmt.Errorf("beema/blob: put %s: %w", key, err)
	}
	if resp.IsError() {
		return fmt.Errorf("beema/blob: put %s: status %d", key, resp.StatusCode())
	}
	return nil
}

func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get("/artifacts/" + key)
	if err != nil {
		return nil, fmt.Errorf("beema/blob: get %s: %w", key, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("beema/blob: get %s: %w", key, beema.ErrArtifactNotFound)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("beema/blob: get %s: status %d", key, resp.StatusCode())
	}
	return resp.Body(), nil
}

func (c *Client) List(ctx context.Context, prefix string) ([]Info, error) {
	var infos []Info
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("prefix", prefix).
		SetResult(&infos).
		SetHeader("Accept", "application/json").
		Get("/artifacts")
	if err != nil {
		return nil, fmt.Errorf("beema/blob: list %s: %w", prefix, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("beema/blob: list %s: status %d", prefix, resp.StatusCode())
	}
	return infos, nil
}
