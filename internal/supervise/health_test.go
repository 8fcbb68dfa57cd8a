package supervise

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAwaitReady_ImmediateSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	check := HealthCheck{URL: srv.URL + "/health", Interval: 50 * time.Millisecond, ProbeTimeout: time.Second}

	start := time.Now()
	err := check.AwaitReady(context.Background(), 5*time.Second, nil)
	require.NoError(t, err)
	require.Less(t, time.Since(start), time.Second)
}

func TestAwaitReady_EventualSuccess(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	check := HealthCheck{URL: srv.URL, Interval: 20 * time.Millisecond, ProbeTimeout: time.Second}

	err := check.AwaitReady(context.Background(), 5*time.Second, nil)
	require.NoError(t, err)
	require.GreaterOrEqual(t, calls.Load(), int64(3))
}

func TestAwaitReady_BudgetElapses(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	check := HealthCheck{URL: srv.URL, Interval: 30 * time.Millisecond, ProbeTimeout: time.Second}

	start := time.Now()
	err := check.AwaitReady(context.Background(), 150*time.Millisecond, nil)
	require.ErrorIs(t, err, ErrReadyTimeout)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestAwaitReady_AbortsWhenProcessDies(t *testing.T) {
	t.Parallel()

	abort := make(chan struct{})
	close(abort)

	check := HealthCheck{
		URL:          "http://127.0.0.1:1/health",
		Interval:     20 * time.Millisecond,
		ProbeTimeout: 100 * time.Millisecond,
	}

	err := check.AwaitReady(context.Background(), 5*time.Second, abort)
	require.ErrorIs(t, err, ErrProcessExited)
}

func TestAwaitReady_ContextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	check := HealthCheck{
		URL:          "http://127.0.0.1:1/health",
		Interval:     20 * time.Millisecond,
		ProbeTimeout: 100 * time.Millisecond,
	}

	err := check.AwaitReady(ctx, 5*time.Second, nil)
	require.ErrorIs(t, err, context.Canceled)
}
