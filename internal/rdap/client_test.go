package rdap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// doerFunc adapts a function to the HTTPDoer interface.
type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:     http.Header{"Content-Type": []string{"application/rdap+json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// sleepRecorder captures backoff delays instead of actually waiting.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

// emptyBootstrap returns a cache backed by a registry that always fails,
// so no fallback servers ever appear.
func emptyBootstrap(t *testing.T) *Bootstrap {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)
	return NewBootstrap(BootstrapConfig{URL: server.URL, Logger: zerolog.Nop()})
}

func TestClient_Resolve_RetryAfterRateLimit(t *testing.T) {
	var attempts atomic.Int32
	aggregator := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/domain/example.com" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if attempts.Add(1) == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ldhName": "example.com"}`))
	}))
	defer aggregator.Close()

	recorder := &sleepRecorder{}
	client := NewClient(ClientConfig{
		AggregatorURL: aggregator.URL,
		Bootstrap:     emptyBootstrap(t),
		Logger:        zerolog.Nop(),
		Sleep:         recorder.sleep,
	})

	resp, err := client.Resolve(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !resp.Success() {
		t.Fatalf("expected success, got status %d", resp.StatusCode)
	}
	if attempts.Load() != 2 {
		t.Errorf("expected 2 aggregator attempts, got %d", attempts.Load())
	}
	// 1s base backoff plus the server's 2s Retry-After hint.
	if len(recorder.delays) != 1 || recorder.delays[0] < 3*time.Second {
		t.Errorf("expected a single backoff of at least 3s, got %v", recorder.delays)
	}

	var payload struct {
		LDHName string `json:"ldhName"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if payload.LDHName != "example.com" {
		t.Errorf("unexpected payload %s", resp.Body)
	}
}

func TestClient_Resolve_RateLimitExhaustsRetries(t *testing.T) {
	var attempts atomic.Int32
	aggregator := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer aggregator.Close()

	recorder := &sleepRecorder{}
	client := NewClient(ClientConfig{
		AggregatorURL: aggregator.URL,
		Bootstrap:     emptyBootstrap(t),
		Logger:        zerolog.Nop(),
		Sleep:         recorder.sleep,
	})

	resp, err := client.Resolve(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 3 total attempts, then the last non-success response comes back.
	if attempts.Load() != 3 {
		t.Errorf("expected 3 aggregator attempts, got %d", attempts.Load())
	}
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429 response, got %d", resp.StatusCode)
	}
	// Exponential schedule: 1s then 2s, each plus the 1s Retry-After default.
	if len(recorder.delays) != 2 {
		t.Fatalf("expected 2 backoffs, got %v", recorder.delays)
	}
	if recorder.delays[0] != 2*time.Second || recorder.delays[1] != 3*time.Second {
		t.Errorf("unexpected backoff schedule %v", recorder.delays)
	}
}

func TestClient_Resolve_FallbackToBootstrapServers(t *testing.T) {
	var aggregatorHits, firstHits, secondHits atomic.Int32

	aggregator := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		aggregatorHits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer aggregator.Close()

	first := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		firstHits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer first.Close()

	second := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secondHits.Add(1)
		if r.URL.Path != "/domain/example.com" {
			t.Errorf("unexpected fallback path %s", r.URL.Path)
		}
		w.Write([]byte(`{"ldhName": "example.com", "source": "authoritative"}`))
	}))
	defer second.Close()

	registry := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Trailing slashes exercise the base-URL normalization.
		fmt.Fprintf(w, `{"services": [[["com"], ["%s/", "%s/"]]]}`, first.URL, second.URL)
	}))
	defer registry.Close()

	client := NewClient(ClientConfig{
		AggregatorURL: aggregator.URL,
		Bootstrap:     NewBootstrap(BootstrapConfig{URL: registry.URL, Logger: zerolog.Nop()}),
		Logger:        zerolog.Nop(),
		Sleep:         (&sleepRecorder{}).sleep,
	})

	resp, err := client.Resolve(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !resp.Success() {
		t.Fatalf("expected success from second fallback server, got %d", resp.StatusCode)
	}
	// A plain 500 is not retried, and each fallback server gets one shot.
	if aggregatorHits.Load() != 1 {
		t.Errorf("expected 1 aggregator attempt, got %d", aggregatorHits.Load())
	}
	if firstHits.Load() != 1 {
		t.Errorf("expected 1 attempt against first fallback, got %d", firstHits.Load())
	}
	if secondHits.Load() != 1 {
		t.Errorf("expected 1 attempt against second fallback, got %d", secondHits.Load())
	}
}

func TestClient_Resolve_ReturnsLastFailureResponse(t *testing.T) {
	aggregator := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"errorCode": 404}`))
	}))
	defer aggregator.Close()

	client := NewClient(ClientConfig{
		AggregatorURL: aggregator.URL,
		Bootstrap:     emptyBootstrap(t),
		Logger:        zerolog.Nop(),
		Sleep:         (&sleepRecorder{}).sleep,
	})

	resp, err := client.Resolve(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected the 404 response back, got %d", resp.StatusCode)
	}
}

// failingDoer always returns the configured error.
type failingDoer struct {
	err   error
	calls atomic.Int32
}

func (d *failingDoer) Do(_ *http.Request) (*http.Response, error) {
	d.calls.Add(1)
	return nil, d.err
}

func TestClient_Resolve_FinalUnguardedAttemptPropagatesError(t *testing.T) {
	doer := &failingDoer{err: errors.New("dial tcp: connection refused")}

	client := NewClient(ClientConfig{
		HTTPClient:    doer,
		AggregatorURL: "https://rdap.invalid",
		Bootstrap: NewBootstrap(BootstrapConfig{
			HTTPClient: &failingDoer{err: errors.New("dial tcp: connection refused")},
			URL:        "https://bootstrap.invalid",
			Logger:     zerolog.Nop(),
		}),
		Logger: zerolog.Nop(),
		Sleep:  (&sleepRecorder{}).sleep,
	})

	_, err := client.Resolve(context.Background(), "example.com")
	if err == nil {
		t.Fatal("expected error when no response was ever obtained")
	}
	// One aborted primary attempt plus the final unguarded one.
	if doer.calls.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", doer.calls.Load())
	}
}

func TestClient_Resolve_TimeoutIsRetried(t *testing.T) {
	var attempts atomic.Int32
	doer := doerFunc(func(_ *http.Request) (*http.Response, error) {
		if attempts.Add(1) == 1 {
			return nil, context.DeadlineExceeded
		}
		return jsonResponse(http.StatusOK, `{"ldhName": "example.com"}`), nil
	})

	recorder := &sleepRecorder{}
	client := NewClient(ClientConfig{
		HTTPClient:    doer,
		AggregatorURL: "https://rdap.invalid",
		Bootstrap:     emptyBootstrap(t),
		Logger:        zerolog.Nop(),
		Sleep:         recorder.sleep,
	})

	resp, err := client.Resolve(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Success() {
		t.Fatalf("expected success after timeout retry, got %d", resp.StatusCode)
	}
	if attempts.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts.Load())
	}
	if len(recorder.delays) != 1 || recorder.delays[0] != time.Second {
		t.Errorf("expected a single 1s backoff, got %v", recorder.delays)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		header string
		want   time.Duration
	}{
		{"", time.Second},
		{"2", 2 * time.Second},
		{" 10 ", 10 * time.Second},
		{"garbage", time.Second},
		{"-5", time.Second},
		{"Wed, 21 Oct 2026 07:28:00 GMT", time.Second},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.header); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}
