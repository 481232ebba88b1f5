package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxBodyBytes caps how much of a response body is read
const maxBodyBytes = 1 << 20

// StatusError is returned for non-2xx responses
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, string(e.Body))
}

// Client sends JSON requests with a fixed set of headers
type Client struct {
	HTTP    *http.Client
	Headers map[string]string
}

// New returns a client with the given timeout
func New(timeout time.Duration) *Client {
	return &Client{HTTP: &http.Client{Timeout: timeout}, Headers: map[string]string{}}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

// Do marshals in (when non-nil), sends the request and decodes a 2xx body into out (when non-nil).
// A non-2xx response yields *StatusError with the raw body.
func (c *Client) Do(ctx context.Context, method, url string, header http.Header, in, out interface{}) error {
	var bodyReader io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Body: body}
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// ErrorDetail pulls a human readable message out of an error body.
// The first non-empty string among keys wins, otherwise the trimmed body is returned.
func ErrorDetail(body []byte, keys ...string) string {
	var fields map[string]interface{}
	if err := json.Unmarshal(body, &fields); err == nil {
		for _, k := range keys {
			if s, ok := fields[k].(string); ok && s != "" {
				return s
			}
		}
	}
	return string(bytes.TrimSpace(body))
}
