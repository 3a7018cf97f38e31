package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(url string) *HTTPClient {
	return NewHTTPClient(Config{
		Name:         "test",
		Type:         "test",
		APIKey:       "key",
		BaseURL:      url,
		Timeout:      5 * time.Second,
		RetryBackoff: time.Millisecond,
	})
}

func TestDoSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	defer c.Close()

	resp, err := c.Do(context.Background(), http.MethodPost, srv.URL, []byte(`{}`), nil)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestDoRetriesServerErrorOnce(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	defer c.Close()

	resp, err := c.Do(context.Background(), http.MethodGet, srv.URL, nil, nil)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	resp.Body.Close()
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestDoRetryIsBounded(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	defer c.Close()

	_, err := c.Do(context.Background(), http.MethodGet, srv.URL, nil, nil)
	if err == nil {
		t.Fatal("Do() error = nil, want VendorError")
	}
	var vendorErr *VendorError
	if !errors.As(err, &vendorErr) {
		t.Fatalf("error type = %T, want *VendorError", err)
	}
	if vendorErr.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", vendorErr.StatusCode)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("calls = %d, want exactly 2", got)
	}
}

func TestDoAuthErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	defer c.Close()

	_, err := c.Do(context.Background(), http.MethodGet, srv.URL, nil, nil)
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("error = %v, want ErrAuth", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestDoRateLimitError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	defer c.Close()

	_, err := c.Do(context.Background(), http.MethodGet, srv.URL, nil, nil)
	var rateLimitErr *RateLimitError
	if !errors.As(err, &rateLimitErr) {
		t.Fatalf("error type = %T, want *RateLimitError", err)
	}
	if rateLimitErr.RetryAfter != 30*time.Second {
		t.Errorf("RetryAfter = %v, want 30s", rateLimitErr.RetryAfter)
	}
	if !errors.Is(err, ErrRateLimit) {
		t.Error("errors.Is(err, ErrRateLimit) = false, want true")
	}
}

func TestDoClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	defer c.Close()

	_, err := c.Do(context.Background(), http.MethodGet, srv.URL, nil, nil)
	var vendorErr *VendorError
	if !errors.As(err, &vendorErr) {
		t.Fatalf("error type = %T, want *VendorError", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestDoCanceledContextSkipsRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Do(ctx, http.MethodGet, srv.URL, nil, nil)
	if err == nil {
		t.Fatal("Do() error = nil, want context error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestDoJSONDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		w.Write([]byte(`{"value":"hello"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	defer c.Close()

	var out struct {
		Value string `json:"value"`
	}
	in := map[string]string{"k": "v"}
	if err := c.DoJSON(context.Background(), http.MethodPost, srv.URL, in, &out, nil); err != nil {
		t.Fatalf("DoJSON() error = %v", err)
	}
	if out.Value != "hello" {
		t.Errorf("value = %q, want %q", out.Value, "hello")
	}
}

func TestDoJSONMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	defer c.Close()

	var out struct{}
	err := c.DoJSON(context.Background(), http.MethodPost, srv.URL, nil, &out, nil)
	if !errors.Is(err, ErrVendor) {
		t.Fatalf("error = %v, want ErrVendor", err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"15", 15 * time.Second},
		{"0", 0},
		{"garbage", 0},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.in); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
