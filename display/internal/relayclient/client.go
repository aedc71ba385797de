// Package relayclient calls the relay's HTTP endpoints from the display: the
// liveness probe and the topic publisher used to send test notices.
package relayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/orderflow/orderrelay/pkg/types"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 4 << 10

// Client talks to one relay.
type Client struct {
	base   *url.URL
	topic  string
	client *http.Client
}

// New returns a Client for the relay at origin. ws and wss origins are mapped
// to http and https.
func New(origin, topic string) (*Client, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("relayclient: parse %q: %w", origin, err)
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	case "http", "https":
	default:
		return nil, fmt.Errorf("relayclient: scheme %q unsupported", u.Scheme)
	}
	if topic == "" {
		return nil, errors.New("relayclient: topic must not be empty")
	}
	u.Path = ""
	u.RawQuery = ""
	return &Client{
		base:   u,
		topic:  topic,
		client: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Health calls GET /healthz and returns the greeting text.
func (c *Client) Health(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("healthz"), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("healthz returned HTTP %d", resp.StatusCode)
	}
	return string(body), nil
}

// Publish posts {"data": data} to the relay topic.
func (c *Client) Publish(ctx context.Context, data interface{}) error {
	body, err := json.Marshal(map[string]interface{}{"data": data})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return c.post(ctx, body)
}

// PublishNotice encodes n and publishes it as a JSON string, the shape order
// services use.
func (c *Client) PublishNotice(ctx context.Context, n types.OrderNotice) error {
	inner, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notice: %w", err)
	}
	return c.Publish(ctx, string(inner))
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.topic), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			return fmt.Errorf("relay returned HTTP %d: %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("relay returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) endpoint(segment string) string {
	u := *c.base
	u.Path = "/" + strings.TrimPrefix(segment, "/")
	return u.String()
}
