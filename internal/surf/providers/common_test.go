package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// statusServer answers every request with the status currently stored in code.
func statusServer(t *testing.T, code *atomic.Int32, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		c := int(code.Load())
		if c != http.StatusOK {
			http.Error(w, "nope", c)
			return
		}
		w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDoRequestWithResilienceSingleAttempt(t *testing.T) {
	var code, calls atomic.Int32
	code.Store(http.StatusServiceUnavailable)
	srv := statusServer(t, &code, &calls)

	cfg := HTTPClientConfig{Client: srv.Client()}
	build := func() (*http.Request, error) { return http.NewRequest(http.MethodGet, srv.URL, nil) }

	_, err := doRequestWithResilience(context.Background(), cfg, newCircuitBreaker("test"), build)
	if !errors.Is(err, errServerError) {
		t.Fatalf("err = %v, want errServerError", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestDoRequestWithResilienceClientErrorKeepsBody(t *testing.T) {
	var code, calls atomic.Int32
	code.Store(http.StatusNotFound)
	srv := statusServer(t, &code, &calls)

	cfg := HTTPClientConfig{Client: srv.Client()}
	build := func() (*http.Request, error) { return http.NewRequest(http.MethodGet, srv.URL, nil) }

	_, err := doRequestWithResilience(context.Background(), cfg, newCircuitBreaker("test"), build)
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound || se.Body != "nope\n" {
		t.Fatalf("err = %v, want 404 StatusError with body", err)
	}
	if !errors.Is(err, errUnexpected) {
		t.Error("404 should classify as errUnexpected")
	}
}

func TestCircuitBreakerIgnoresClientErrors(t *testing.T) {
	var code, calls atomic.Int32
	code.Store(http.StatusNotFound)
	srv := statusServer(t, &code, &calls)

	cfg := HTTPClientConfig{Client: srv.Client()}
	cb := newCircuitBreaker("test")
	build := func() (*http.Request, error) { return http.NewRequest(http.MethodGet, srv.URL, nil) }

	for i := 0; i < 20; i++ {
		doRequestWithResilience(context.Background(), cfg, cb, build)
	}

	code.Store(http.StatusOK)
	resp, err := doRequestWithResilience(context.Background(), cfg, cb, build)
	if err != nil {
		t.Fatalf("breaker tripped on 404s: %v", err)
	}
	resp.Body.Close()
	if calls.Load() != 21 {
		t.Errorf("calls = %d, want 21", calls.Load())
	}
}

func TestCircuitBreakerTripsOnServerErrors(t *testing.T) {
	var code, calls atomic.Int32
	code.Store(http.StatusBadGateway)
	srv := statusServer(t, &code, &calls)

	cfg := HTTPClientConfig{Client: srv.Client()}
	cb := newCircuitBreaker("test")
	build := func() (*http.Request, error) { return http.NewRequest(http.MethodGet, srv.URL, nil) }

	for i := 0; i < 6; i++ {
		doRequestWithResilience(context.Background(), cfg, cb, build)
	}

	_, err := doRequestWithResilience(context.Background(), cfg, cb, build)
	if !errors.Is(err, errCircuitOpen) {
		t.Fatalf("err = %v, want errCircuitOpen", err)
	}
	if calls.Load() != 6 {
		t.Errorf("calls = %d, want 6 (open breaker must not reach upstream)", calls.Load())
	}
}

func TestDoRequestWithResilienceNoClient(t *testing.T) {
	_, err := doRequestWithResilience(context.Background(), HTTPClientConfig{}, newCircuitBreaker("test"), nil)
	if !errors.Is(err, errNoHTTPClient) {
		t.Fatalf("err = %v, want errNoHTTPClient", err)
	}
}

func TestStatusErrorClassification(t *testing.T) {
	if !errors.Is(&StatusError{StatusCode: 429}, errRateLimited) {
		t.Error("429 should be rate limited")
	}
	if !errors.Is(&StatusError{StatusCode: 502}, errServerError) {
		t.Error("502 should be a server error")
	}
	if breakerSuccess(&StatusError{StatusCode: 429}) || breakerSuccess(errors.New("dial tcp: refused")) {
		t.Error("rate limits and transport errors must count against the breaker")
	}
	if !breakerSuccess(&StatusError{StatusCode: 404}) {
		t.Error("404 must not count against the breaker")
	}
}
