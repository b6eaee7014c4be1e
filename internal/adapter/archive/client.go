// Package archive fetches raw per-station daily weather files from the
// remote archive over HTTP.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/berrylab/swd-weather-etl/internal/domain"
)

// ErrNotFound marks a station-year file the archive does not have. Not
// retryable; the station is reported as failed and the batch moves on.
var ErrNotFound = errors.New("station file not found")

var (
	errServerError = errors.New("archive server error")
	errRateLimited = errors.New("archive rate limited")
)

// Client retrieves station-year daily files from a fixed URL template:
// <base>/<station><two-digit-year>.txt. Transient failures are retried with
// exponential backoff behind a circuit breaker, so a dead archive fails the
// remaining stations fast instead of timing each one out.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger

	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
}

// NewClient creates an archive client. timeout bounds each HTTP request.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "weather-archive",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
		logger:          logger,
		maxRetries:      3,
		initialInterval: 200 * time.Millisecond,
		maxInterval:     2 * time.Second,
	}
}

// FetchDaily retrieves the raw daily file for one station and year. The
// returned bytes are the archive's response verbatim; parsing happens
// downstream. Failures come back as a RetrievalError carrying the station.
func (c *Client) FetchDaily(ctx context.Context, station string, year int) ([]byte, error) {
	url := c.fileURL(station, year)

	interval := c.initialInterval
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if !sleepWithContext(ctx, interval) {
				break
			}
			interval = min(interval*2, c.maxInterval)
		}

		body, err := c.doRequest(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !retryable(err) {
			break
		}
		c.logger.Warn("archive fetch retrying",
			"station", station, "year", year, "attempt", attempt+1, "error", err)
	}

	if lastErr == nil {
		lastErr = ctx.Err()
	}
	return nil, &domain.RetrievalError{Station: station, Year: year, Err: lastErr}
}

func (c *Client) fileURL(station string, year int) string {
	return fmt.Sprintf("%s/%s%02d.txt", c.baseURL, station, year%100)
}

func (c *Client) doRequest(ctx context.Context, url string) ([]byte, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("archive request: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, ErrNotFound
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, errRateLimited
		case resp.StatusCode >= 500:
			return nil, fmt.Errorf("%w: status %d", errServerError, resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// retryable reports whether another attempt could succeed. Missing files and
// an open breaker never do; rate limits, server errors, and transport errors
// might.
func retryable(err error) bool {
	if errors.Is(err, ErrNotFound) || errors.Is(err, gobreaker.ErrOpenState) {
		return false
	}
	return true
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
