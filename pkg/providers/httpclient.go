package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"
)

// HTTPClient is the shared base for HTTP vendor adapters. It owns a
// pooled http.Client and implements the gateway's retry contract:
// transient network failures and 5xx responses are retried exactly
// once after a short backoff, everything else surfaces immediately.
type HTTPClient struct {
	cfg    Config
	client *http.Client
}

// NewHTTPClient creates the base client from immutable configuration.
func NewHTTPClient(cfg Config) *HTTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 32
	}
	if cfg.MaxIdleConnsPerHost <= 0 {
		cfg.MaxIdleConnsPerHost = 8
	}
	if cfg.IdleConnTimeout <= 0 {
		cfg.IdleConnTimeout = 90 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &HTTPClient{
		cfg: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
	}
}

// Name returns the logical provider name.
func (c *HTTPClient) Name() string { return c.cfg.Name }

// Type returns the wire protocol family.
func (c *HTTPClient) Type() string { return c.cfg.Type }

// Config returns the immutable connection configuration.
func (c *HTTPClient) Config() Config { return c.cfg }

// Close releases pooled connections.
func (c *HTTPClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// Do performs an HTTP request with the single bounded transient retry
// and maps failures into the typed error taxonomy.
func (c *HTTPClient) Do(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	const maxAttempts = 2 // one call plus one bounded retry

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			slog.Debug("retrying provider request",
				"provider", c.cfg.Name,
				"backoff", c.cfg.RetryBackoff,
			)
			select {
			case <-ctx.Done():
				return nil, c.wrapContextErr(ctx.Err())
			case <-time.After(c.cfg.RetryBackoff):
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		if req.Header.Get("Content-Type") == "" && body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, c.wrapContextErr(ctx.Err())
			}
			lastErr = &TransientNetworkError{Provider: c.cfg.Name, Cause: err}
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, &AuthError{Provider: c.cfg.Name, Message: string(errBody)}

		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, &RateLimitError{
				Provider:   c.cfg.Name,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
				Message:    string(errBody),
			}

		case resp.StatusCode >= 500:
			lastErr = &VendorError{
				Provider:   c.cfg.Name,
				StatusCode: resp.StatusCode,
				Message:    string(errBody),
			}
			slog.Warn("provider returned server error",
				"provider", c.cfg.Name,
				"status", resp.StatusCode,
				"attempt", attempt,
			)
			continue

		default:
			return nil, &VendorError{
				Provider:   c.cfg.Name,
				StatusCode: resp.StatusCode,
				Message:    string(errBody),
			}
		}
	}

	return nil, lastErr
}

// wrapContextErr maps a context failure: deadline expiry is a
// transient timeout, explicit cancellation passes through.
func (c *HTTPClient) wrapContextErr(err error) error {
	if err == context.DeadlineExceeded {
		return &TransientNetworkError{Provider: c.cfg.Name, Cause: err}
	}
	return err
}

// DoJSON performs a JSON request and decodes the response into out.
func (c *HTTPClient) DoJSON(ctx context.Context, method, url string, in, out interface{}, headers map[string]string) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	resp, err := c.Do(ctx, method, url, body, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransientNetworkError{Provider: c.cfg.Name, Cause: err}
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return &VendorError{
				Provider: c.cfg.Name,
				Message:  fmt.Sprintf("malformed response: %v", err),
			}
		}
	}
	return nil
}

// DoMultipart uploads a file field plus form fields and decodes the
// JSON response into out. Used by transcription endpoints.
func (c *HTTPClient) DoMultipart(ctx context.Context, url, fileField, fileName string, file []byte, fields map[string]string, out interface{}) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile(fileField, fileName)
	if err != nil {
		return fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(file); err != nil {
		return fmt.Errorf("failed to build multipart body: %w", err)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("failed to build multipart body: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to build multipart body: %w", err)
	}

	headers := map[string]string{"Content-Type": w.FormDataContentType()}
	if c.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.cfg.APIKey
	}

	resp, err := c.Do(ctx, http.MethodPost, url, buf.Bytes(), headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransientNetworkError{Provider: c.cfg.Name, Cause: err}
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return &VendorError{
				Provider: c.cfg.Name,
				Message:  fmt.Sprintf("malformed response: %v", err),
			}
		}
	}
	return nil
}
