// Package weather retrieves, normalizes, and seasonally aggregates
// per-station daily weather files.
package weather

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/berrylab/swd-weather-etl/internal/observability"
)

// ArchiveClient retrieves one station-year raw daily file.
type ArchiveClient interface {
	FetchDaily(ctx context.Context, station string, year int) ([]byte, error)
}

// Fetcher downloads raw station files with bounded concurrency and persists
// them under the storage directory. Fetches are idempotent: a station file
// already on disk is not requested again.
type Fetcher struct {
	client  ArchiveClient
	dir     string
	workers int
	timeout time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewFetcher creates a Fetcher. workers bounds concurrent requests; timeout
// bounds one station's retrieval, degrading to a recorded failure rather than
// stalling the batch.
func NewFetcher(client ArchiveClient, dir string, workers int, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Fetcher {
	if workers < 1 {
		workers = 1
	}
	return &Fetcher{
		client:  client,
		dir:     dir,
		workers: workers,
		timeout: timeout,
		logger:  logger,
		metrics: metrics,
	}
}

// RawPath is the deterministic on-disk location of a station-year raw file.
func RawPath(dir, station string, year int) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%d.txt", station, year))
}

// NormalizedPath is the deterministic location of a normalized daily table.
func NormalizedPath(dir, station string, year int) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%d_daily.csv", station, year))
}

// FetchAll retrieves every station's raw file for the year, at most workers
// at a time, and returns a per-station outcome map. One station's failure
// never aborts the others; cancelling the context only skips stations whose
// fetch has not started.
func (f *Fetcher) FetchAll(ctx context.Context, stations []string, year int) map[string]error {
	stations = dedupe(stations)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[string]error, len(stations))
		sem     = make(chan struct{}, f.workers)
	)

	for _, station := range stations {
		wg.Add(1)
		go func(station string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			err := f.fetchOne(ctx, station, year)

			mu.Lock()
			results[station] = err
			mu.Unlock()
		}(station)
	}
	wg.Wait()

	return results
}

func (f *Fetcher) fetchOne(ctx context.Context, station string, year int) error {
	path := RawPath(f.dir, station, year)
	if _, err := os.Stat(path); err == nil {
		f.logger.Debug("station file already present, skipping fetch", "station", station, "path", path)
		f.metrics.FetchOutcomes.WithLabelValues("cached").Inc()
		return nil
	}

	if err := ctx.Err(); err != nil {
		f.metrics.FetchOutcomes.WithLabelValues("failed").Inc()
		return err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	body, err := f.client.FetchDaily(fetchCtx, station, year)
	f.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		f.logger.Warn("station fetch failed", "station", station, "year", year, "error", err)
		f.metrics.FetchOutcomes.WithLabelValues("failed").Inc()
		return err
	}

	if err := os.WriteFile(path, body, 0o644); err != nil {
		f.metrics.FetchOutcomes.WithLabelValues("failed").Inc()
		return fmt.Errorf("persist station %s: %w", station, err)
	}

	f.logger.Info("station file fetched", "station", station, "year", year, "bytes", len(body))
	f.metrics.FetchOutcomes.WithLabelValues("fetched").Inc()
	return nil
}

func dedupe(stations []string) []string {
	seen := make(map[string]bool, len(stations))
	out := make([]string, 0, len(stations))
	for _, s := range stations {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
