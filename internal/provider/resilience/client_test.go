package resilience_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdpollen/crowdpollen/internal/provider/resilience"
)

// recordingServer tracks request arrival times.
type recordingServer struct {
	mu       sync.Mutex
	arrivals []time.Time
	handler  func(n int, w http.ResponseWriter, r *http.Request)
	server   *httptest.Server
}

func newRecordingServer(handler func(n int, w http.ResponseWriter, r *http.Request)) *recordingServer {
	rs := &recordingServer{handler: handler}
	rs.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.mu.Lock()
		rs.arrivals = append(rs.arrivals, time.Now())
		n := len(rs.arrivals)
		rs.mu.Unlock()
		rs.handler(n, w, r)
	}))
	return rs
}

func (rs *recordingServer) requestCount() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.arrivals)
}

func (rs *recordingServer) gaps() []time.Duration {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	var gaps []time.Duration
	for i := 1; i < len(rs.arrivals); i++ {
		gaps = append(gaps, rs.arrivals[i].Sub(rs.arrivals[i-1]))
	}
	return gaps
}

func testConfig(name string) resilience.ClientConfig {
	cfg := resilience.DefaultClientConfig(name)
	cfg.BackoffInitialInterval = 20 * time.Millisecond
	return cfg
}

func TestClient_Success(t *testing.T) {
	rs := newRecordingServer(func(_ int, w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	defer rs.server.Close()

	client := resilience.NewClient(testConfig("success"))

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, rs.server.URL, http.NoBody)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, rs.requestCount())
}

func TestClient_RateLimitRetriedWithBackoff(t *testing.T) {
	rs := newRecordingServer(func(n int, w http.ResponseWriter, _ *http.Request) {
		if n <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	defer rs.server.Close()

	client := resilience.NewClient(testConfig("ratelimit"))

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, rs.server.URL, http.NoBody)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Two rate-limit failures mean exactly two retries before success.
	require.Equal(t, 3, rs.requestCount())

	// Inter-attempt delays are non-decreasing (exponential backoff).
	gaps := rs.gaps()
	require.Len(t, gaps, 2)
	assert.GreaterOrEqual(t, gaps[1], gaps[0])
}

func TestClient_PermissionErrorAbortsRetries(t *testing.T) {
	rs := newRecordingServer(func(_ int, w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	defer rs.server.Close()

	client := resilience.NewClient(testConfig("permission"))

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, rs.server.URL, http.NoBody)
	require.NoError(t, err)

	_, err = client.Do(req) //nolint:bodyclose // error path returns no body
	require.Error(t, err)

	var permErr *resilience.PermissionError
	assert.ErrorAs(t, err, &permErr)
	assert.Equal(t, http.StatusForbidden, permErr.StatusCode)

	// No retries for permanent failures.
	assert.Equal(t, 1, rs.requestCount())
}

func TestClient_ServerErrorExhaustsRetries(t *testing.T) {
	rs := newRecordingServer(func(_ int, w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer rs.server.Close()

	cfg := testConfig("servererror")
	client := resilience.NewClient(cfg)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, rs.server.URL, http.NoBody)
	require.NoError(t, err)

	_, err = client.Do(req) //nolint:bodyclose // error path returns no body
	require.Error(t, err)
	assert.ErrorIs(t, err, resilience.ErrMaxRetriesExceeded)

	var srvErr *resilience.ServerError
	assert.ErrorAs(t, err, &srvErr)

	assert.Equal(t, cfg.MaxAttempts, rs.requestCount())
}

func TestClient_TimeoutRetriedImmediately(t *testing.T) {
	rs := newRecordingServer(func(n int, w http.ResponseWriter, _ *http.Request) {
		if n == 1 {
			time.Sleep(300 * time.Millisecond)
		}
		w.WriteHeader(http.StatusOK)
	})
	defer rs.server.Close()

	cfg := testConfig("timeout")
	cfg.AttemptTimeout = 50 * time.Millisecond
	// A large backoff proves timeouts skip the backoff schedule.
	cfg.BackoffInitialInterval = 5 * time.Second
	client := resilience.NewClient(cfg)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, rs.server.URL, http.NoBody)
	require.NoError(t, err)

	start := time.Now()
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, rs.requestCount())
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestClient_ContextCancellation(t *testing.T) {
	rs := newRecordingServer(func(_ int, w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	defer rs.server.Close()

	client := resilience.NewClient(testConfig("cancel"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rs.server.URL, http.NoBody)
	require.NoError(t, err)

	_, err = client.Do(req) //nolint:bodyclose // error path returns no body
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled) || errors.Is(err, resilience.ErrMaxRetriesExceeded))
}
