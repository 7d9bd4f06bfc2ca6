// Package httpclient is the shared HTTP helper for the vendor clients that are
// not covered by an SDK: the transcript source, the text-to-speech endpoint and
// the conversation platform.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// maxBody caps how much of a response body is read into memory.
const maxBody = 64 << 20

// StatusError is returned when a provider answers with a status outside 2xx.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client wraps http.Client with an optional retry budget. Retries defaults to
// zero: a failed call is reported to the caller, not repeated.
type Client struct {
	HTTP    *http.Client
	Retries int

	// InitialInterval overrides the first backoff delay when non-zero.
	InitialInterval time.Duration
	Log             *logrus.Entry
}

func New(timeout time.Duration, retries int, log *logrus.Entry) *Client {
	return &Client{
		HTTP:    &http.Client{Timeout: timeout},
		Retries: retries,
		Log:     log,
	}
}

// Do sends the request built by newReq and returns the body of a 2xx response.
// newReq is called once per attempt so bodies can be replayed.
func (c *Client) Do(ctx context.Context, newReq func(ctx context.Context) (*http.Request, error)) ([]byte, http.Header, error) {
	var (
		body   []byte
		header http.Header
	)
	op := func() error {
		req, err := newReq(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.HTTP.Do(req)
		if err != nil {
			if c.Log != nil {
				c.Log.WithError(err).WithField("url", req.URL.String()).Warn("http request failed")
			}
			return err
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
		if err != nil {
			return err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			serr := &StatusError{StatusCode: resp.StatusCode, Body: string(b)}
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				// client errors never succeed on replay
				return backoff.Permanent(serr)
			}
			return serr
		}
		body, header = b, resp.Header
		return nil
	}

	exp := backoff.NewExponentialBackOff()
	if c.InitialInterval > 0 {
		exp.InitialInterval = c.InitialInterval
	}
	var bo backoff.BackOff = backoff.WithMaxRetries(exp, uint64(max(c.Retries, 0)))
	bo = backoff.WithContext(bo, ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, nil, err
	}
	return body, header, nil
}

// GetJSON issues a GET and decodes the JSON response into target.
func (c *Client) GetJSON(ctx context.Context, url string, headers map[string]string, target any) error {
	body, _, err := c.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		setHeaders(req, headers)
		return req, nil
	})
	if err != nil {
		return err
	}
	if target == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("json decode error: %w body=%s", err, truncate(string(body), 512))
	}
	return nil
}

// SendJSON marshals payload, sends it with method and decodes the response into target (if non-nil).
func (c *Client) SendJSON(ctx context.Context, method, url string, headers map[string]string, payload, target any) error {
	var data []byte
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
	}
	body, _, err := c.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		var rd io.Reader
		if data != nil {
			rd = bytes.NewReader(data)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, rd)
		if err != nil {
			return nil, err
		}
		if data != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		setHeaders(req, headers)
		return req, nil
	})
	if err != nil {
		return err
	}
	if target == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("json decode error: %w body=%s", err, truncate(string(body), 512))
	}
	return nil
}

// GetText issues a GET and returns the raw body.
func (c *Client) GetText(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	body, _, err := c.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		setHeaders(req, headers)
		return req, nil
	})
	return body, err
}

func setHeaders(req *http.Request, headers map[string]string) {
	for k, v := range headers {
		req.Header.Set(k, v)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
