package archive

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berrylab/swd-weather-etl/internal/domain"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, 2*time.Second, slog.New(slog.DiscardHandler))
	c.initialInterval = time.Millisecond
	return c, srv
}

func TestFetchDaily(t *testing.T) {
	var gotPath atomic.Value
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.Path)
		w.Write([]byte("header\n1 1 30 45 0.1 0\n"))
	}))

	body, err := c.FetchDaily(context.Background(), "C5099", 2019)
	require.NoError(t, err)
	assert.Equal(t, "header\n1 1 30 45 0.1 0\n", string(body))

	// Two-digit year in the template path.
	assert.Equal(t, "/C509919.txt", gotPath.Load())
}

func TestFetchDailyNotFound(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))

	_, err := c.FetchDaily(context.Background(), "C9999", 2019)

	var rerr *domain.RetrievalError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "C9999", rerr.Station)
	assert.Equal(t, 2019, rerr.Year)
	assert.ErrorIs(t, err, ErrNotFound)

	// 404 is not retried.
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchDailyRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))

	body, err := c.FetchDaily(context.Background(), "C5099", 2019)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchDailyExhaustsRetries(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := c.FetchDaily(context.Background(), "C5099", 2019)

	var rerr *domain.RetrievalError
	require.ErrorAs(t, err, &rerr)
	assert.ErrorIs(t, err, errServerError)
}

func TestFetchDailyContextCancelled(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchDaily(ctx, "C5099", 2019)
	require.Error(t, err)
}
