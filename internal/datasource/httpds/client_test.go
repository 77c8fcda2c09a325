package httpds

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

/*
newTestClient returns a client whose sleeps are recorded instead of waited.
*/
func newTestClient(cfg Config) (*Client, *[]time.Duration) {
	c := NewClient(cfg)
	var sleeps []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return c, &sleeps
}

// TestNewClient_Defaults verifies defaults and TLS wiring without a custom
// transport.
func TestNewClient_Defaults(t *testing.T) {
	t.Parallel()

	c := NewClient(Config{InsecureSkipVerify: true})

	if c.httpClient.Timeout != 30*time.Second {
		t.Fatalf("timeout=%v, want 30s", c.httpClient.Timeout)
	}
	if c.maxRetries != 0 || c.initialBackoff != 200*time.Millisecond || c.maxBackoff != 5*time.Second {
		t.Fatalf("defaults: retries=%d initial=%v max=%v", c.maxRetries, c.initialBackoff, c.maxBackoff)
	}
	tp, ok := c.httpClient.Transport.(*http.Transport)
	if !ok || tp.TLSClientConfig == nil || !tp.TLSClientConfig.InsecureSkipVerify {
		t.Fatalf("expected insecure TLS transport, got %#v", c.httpClient.Transport)
	}
}

func TestCustomTransport(t *testing.T) {
	t.Parallel()

	custom := &http.Transport{TLSClientConfig: &tls.Config{}}
	c := NewClient(Config{Transport: custom, InsecureSkipVerify: true})
	if c.httpClient.Transport != custom {
		t.Fatalf("custom transport not used")
	}
	if custom.TLSClientConfig.InsecureSkipVerify {
		t.Fatalf("InsecureSkipVerify applied on top of custom transport")
	}
}

func TestDo_RetryOn5xxThenSuccess(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if r.Header.Get("X-Base") != "b" || r.Header.Get("X-Req") != "r" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	c, sleeps := newTestClient(Config{MaxRetries: 3, BaseHeaders: http.Header{"X-Base": {"b"}}})
	resp, err := c.Get(context.Background(), srv.URL, http.Header{"X-Req": {"r"}})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("calls=%d, want 3", got)
	}
	want := []time.Duration{200 * time.Millisecond, 400 * time.Millisecond}
	if len(*sleeps) != 2 || (*sleeps)[0] != want[0] || (*sleeps)[1] != want[1] {
		t.Fatalf("sleeps=%v, want %v", *sleeps, want)
	}
}

// TestDo_NoRetries covers MaxRetries=0: exactly one attempt, and the final
// retryable response is handed back so its body can be surfaced.
func TestDo_NoRetries(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "boom")
	}))
	defer srv.Close()

	c, sleeps := newTestClient(Config{})
	resp, err := c.Post(context.Background(), srv.URL, []byte("x"), nil)
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	defer resp.Body.Close()

	err = CheckStatus(http.MethodPost, srv.URL, resp)
	var se *StatusError
	if !errors.As(err, &se) || se.Status != 500 || se.Body != "boom" {
		t.Fatalf("CheckStatus err=%v", err)
	}
	if calls != 1 || len(*sleeps) != 0 {
		t.Fatalf("calls=%d sleeps=%v, want one attempt", calls, *sleeps)
	}
}

func TestDo_TransportErrorExhaustsRetries(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, sleeps := newTestClient(Config{MaxRetries: 2})
	if _, err := c.Get(context.Background(), url, nil); err == nil {
		t.Fatal("expected error from closed server")
	}
	if len(*sleeps) != 2 {
		t.Fatalf("sleeps=%d, want 2", len(*sleeps))
	}
}

func TestDoJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusUnsupportedMediaType)
			return
		}
		b, _ := io.ReadAll(r.Body)
		io.WriteString(w, `{"echo":`+strconv.Quote(string(b))+`}`)
	}))
	defer srv.Close()

	c, _ := newTestClient(Config{})
	var out struct{ Echo string }
	if err := c.DoJSON(context.Background(), http.MethodPost, srv.URL, map[string]string{"a": "b"}, &out, nil); err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
	if out.Echo != `{"a":"b"}` {
		t.Fatalf("echo=%q", out.Echo)
	}
}

func TestBackoffDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		initial time.Duration
		attempt int
		max     time.Duration
		want    time.Duration
	}{
		{100 * time.Millisecond, 0, time.Second, 100 * time.Millisecond},
		{100 * time.Millisecond, 1, time.Second, 200 * time.Millisecond},
		{100 * time.Millisecond, 4, time.Second, time.Second},
		{2 * time.Second, 0, time.Second, time.Second},
		{time.Second, 62, 5 * time.Second, 5 * time.Second},
	}
	for _, tt := range tests {
		if got := backoffDuration(tt.initial, tt.attempt, tt.max); got != tt.want {
			t.Errorf("backoffDuration(%v, %d, %v)=%v, want %v", tt.initial, tt.attempt, tt.max, got, tt.want)
		}
	}
}

func TestIsRetryableStatus(t *testing.T) {
	t.Parallel()

	for _, code := range []int{429, 500, 502, 503, 599} {
		if !isRetryableStatus(code) {
			t.Errorf("%d should be retryable", code)
		}
	}
	for _, code := range []int{200, 204, 400, 401, 404, 600} {
		if isRetryableStatus(code) {
			t.Errorf("%d should not be retryable", code)
		}
	}
}

func TestSleep_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := Sleep(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("Sleep did not return early")
	}
}

func TestStore(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/a.csv" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, "x,y\n1,2\n")
	}))
	defer srv.Close()

	c, _ := newTestClient(Config{})
	s := &Store{Client: c, Base: srv.URL + "/files/"}

	rc, err := s.Open(context.Background(), "a.csv")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	b, _ := io.ReadAll(rc)
	rc.Close()
	if !strings.HasPrefix(string(b), "x,y") {
		t.Fatalf("body=%q", b)
	}

	var se *StatusError
	if _, err := s.Open(context.Background(), srv.URL+"/nope.csv"); !errors.As(err, &se) || se.Status != 404 {
		t.Fatalf("missing: err=%v", err)
	}
	if _, err := s.List(context.Background(), ""); err == nil {
		t.Fatal("List succeeded over HTTP")
	}
}
